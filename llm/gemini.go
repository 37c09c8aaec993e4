package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/comrude/comrude/messages"
)

var _ Gateway = (*GeminiClient)(nil)

// GeminiClient streams responses through the GenAI API.
type GeminiClient struct {
	apiKey string
}

func NewGeminiClient(apiKey string) *GeminiClient {
	if apiKey == "" {
		zap.S().Debugw("gemini client created without api key")
	}
	return &GeminiClient{apiKey: apiKey}
}

func (c *GeminiClient) Stream(ctx context.Context, req *Request) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		zap.S().Debugw("gemini completion started", "model", req.Model)

		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
		if err != nil {
			emit(ctx, events, Event{Type: EventError, Err: transportErr("gemini", err)})
			return
		}

		system, turns := flatten(req)
		var contents []*genai.Content
		for _, t := range turns {
			role := genai.RoleUser
			if t.role == "assistant" {
				role = genai.RoleModel
			}
			contents = append(contents, &genai.Content{
				Role:  role,
				Parts: []*genai.Part{{Text: t.content}},
			})
		}

		config := &genai.GenerateContentConfig{
			MaxOutputTokens: int32(maxTokensOrDefault(req)),
		}
		if req.Temperature > 0 {
			config.Temperature = genai.Ptr(req.Temperature)
		}
		if system != "" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			}
		}

		var full strings.Builder
		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				emit(ctx, events, Event{Type: EventError, Err: transportErr("gemini", err)})
				return
			}
			if delta := resp.Text(); delta != "" {
				full.WriteString(delta)
				if !emit(ctx, events, Event{Type: EventContent, Content: delta}) {
					return
				}
			}
		}

		msg := messages.NewAssistant(full.String(), "gemini", req.Model)
		emit(ctx, events, Event{Type: EventComplete, Message: &msg})
	}()
	return events
}
