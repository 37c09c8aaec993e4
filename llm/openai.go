package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/comrude/comrude/messages"
)

var _ Gateway = (*OpenAIClient)(nil)

// OpenAIClient streams chat completions through the official-compatible
// OpenAI API. A custom base URL covers self-hosted compatible servers.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) Stream(ctx context.Context, req *Request) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		zap.S().Debugw("openai completion started", "model", req.Model)

		system, turns := flatten(req)
		var chatMsgs []openai.ChatCompletionMessage
		if system != "" {
			chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			})
		}
		for _, t := range turns {
			chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
				Role:    t.role,
				Content: t.content,
			})
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:               req.Model,
			Messages:            chatMsgs,
			MaxCompletionTokens: maxTokensOrDefault(req),
			Temperature:         req.Temperature,
			Stream:              true,
		})
		if err != nil {
			emit(ctx, events, Event{Type: EventError, Err: transportErr("openai", err)})
			return
		}
		defer stream.Close()

		var full strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				emit(ctx, events, Event{Type: EventError, Err: transportErr("openai", err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				full.WriteString(delta)
				if !emit(ctx, events, Event{Type: EventContent, Content: delta}) {
					return
				}
			}
		}

		msg := messages.NewAssistant(full.String(), "openai", req.Model)
		emit(ctx, events, Event{Type: EventComplete, Message: &msg})
	}()
	return events
}
