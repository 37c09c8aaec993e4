package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/comrude/comrude/messages"
)

var _ Gateway = (*AnthropicClient)(nil)

// AnthropicClient streams responses through the Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	if apiKey == "" {
		zap.S().Debugw("anthropic client created without api key")
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (c *AnthropicClient) Stream(ctx context.Context, req *Request) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		zap.S().Debugw("anthropic completion started", "model", req.Model)

		system, turns := flatten(req)
		var msgs []anthropic.MessageParam
		for _, t := range turns {
			block := anthropic.NewTextBlock(t.content)
			switch t.role {
			case "assistant":
				msgs = append(msgs, anthropic.NewAssistantMessage(block))
			default:
				// System transcript entries fold into the user side;
				// the Messages API only accepts user/assistant roles.
				msgs = append(msgs, anthropic.NewUserMessage(block))
			}
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: int64(maxTokensOrDefault(req)),
			Messages:  msgs,
		}
		if req.Temperature > 0 {
			params.Temperature = anthropic.Float(float64(req.Temperature))
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
		}

		stream := c.client.Messages.NewStreaming(ctx, params)
		var full strings.Builder
		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta()
			if text := delta.Delta.Text; text != "" {
				full.WriteString(text)
				if !emit(ctx, events, Event{Type: EventContent, Content: text}) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			emit(ctx, events, Event{Type: EventError, Err: transportErr("anthropic", err)})
			return
		}

		msg := messages.NewAssistant(full.String(), "anthropic", req.Model)
		emit(ctx, events, Event{Type: EventComplete, Message: &msg})
	}()
	return events
}
