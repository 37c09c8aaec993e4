package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	ollamaapi "github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/comrude/comrude/messages"
)

var _ Gateway = (*OllamaClient)(nil)

const defaultOllamaURL = "http://localhost:11434"

// OllamaClient streams chat responses from a local or remote Ollama
// server. An API key is optional; when set it is sent as a Bearer token
// for proxied deployments.
type OllamaClient struct {
	client *ollamaapi.Client
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

func NewOllamaClient(baseURL, apiKey string) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		zap.S().Warnw("invalid ollama base url, using default", "url", baseURL, "error", err)
		u, _ = url.Parse(defaultOllamaURL)
	}
	httpClient := http.DefaultClient
	if apiKey != "" {
		httpClient = &http.Client{
			Transport: &bearerTransport{token: apiKey, base: http.DefaultTransport},
		}
	}
	return &OllamaClient{client: ollamaapi.NewClient(u, httpClient)}
}

func (c *OllamaClient) Stream(ctx context.Context, req *Request) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		zap.S().Debugw("ollama completion started", "model", req.Model)

		system, turns := flatten(req)
		var msgs []ollamaapi.Message
		if system != "" {
			msgs = append(msgs, ollamaapi.Message{Role: "system", Content: system})
		}
		for _, t := range turns {
			msgs = append(msgs, ollamaapi.Message{Role: t.role, Content: t.content})
		}

		chatReq := &ollamaapi.ChatRequest{
			Model:    req.Model,
			Messages: msgs,
			Options: map[string]any{
				"temperature": req.Temperature,
				"num_predict": maxTokensOrDefault(req),
			},
		}

		var full strings.Builder
		err := c.client.Chat(ctx, chatReq, func(resp ollamaapi.ChatResponse) error {
			if delta := resp.Message.Content; delta != "" {
				full.WriteString(delta)
				if !emit(ctx, events, Event{Type: EventContent, Content: delta}) {
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			emit(ctx, events, Event{Type: EventError, Err: transportErr("ollama", err)})
			return
		}

		msg := messages.NewAssistant(full.String(), "ollama", req.Model)
		emit(ctx, events, Event{Type: EventComplete, Message: &msg})
	}()
	return events
}
