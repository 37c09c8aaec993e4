package llm

import (
	"context"
	"fmt"
	"strings"
)

var _ Gateway = (*MultiPass)(nil)

// MultiPass routes requests across the closed provider set by model
// prefix: "openai/gpt-4o", "anthropic/claude-sonnet-4", "gemini/...",
// "ollama/...". New backends are added as new cases, not via open-ended
// dispatch.
type MultiPass struct {
	apiKeys map[string]string
}

// NewMultiPass creates a router over per-provider API keys, usually
// sourced from the environment.
func NewMultiPass(apiKeys map[string]string) *MultiPass {
	return &MultiPass{apiKeys: apiKeys}
}

// EnvVarForProvider names the environment variable holding the given
// provider's API key.
func EnvVarForProvider(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	case "ollama":
		return "OLLAMA_API_KEY"
	default:
		return fmt.Sprintf("%s_API_KEY", strings.ToUpper(provider))
	}
}

// Route resolves a prefixed model string to a concrete gateway and the
// bare model name. Unknown providers, missing prefixes, and missing
// keys are terminal errors; ollama is the one keyless provider.
func (m *MultiPass) Route(model, baseURL string) (Gateway, string, error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, "", fmt.Errorf(
			"model must include a provider prefix (e.g. 'openai/gpt-4o', 'anthropic/claude-sonnet-4'), got %q", model)
	}
	provider := strings.ToLower(parts[0])
	bare := parts[1]

	key := m.apiKeys[provider]
	switch provider {
	case "openai", "anthropic", "gemini":
		if key == "" {
			return nil, "", fmt.Errorf("missing API key for provider %q: set %s",
				provider, EnvVarForProvider(provider))
		}
	case "ollama":
		// Keyless by default.
	default:
		return nil, "", fmt.Errorf(
			"unknown provider %q: valid providers are openai, anthropic, gemini, ollama", provider)
	}

	switch provider {
	case "openai":
		return NewOpenAIClient(key, baseURL), bare, nil
	case "anthropic":
		return NewAnthropicClient(key), bare, nil
	case "gemini":
		return NewGeminiClient(key), bare, nil
	default:
		return NewOllamaClient(baseURL, key), bare, nil
	}
}

// Stream dispatches to the routed provider. Routing failures surface as
// a single terminal error event.
func (m *MultiPass) Stream(ctx context.Context, req *Request) <-chan Event {
	gateway, bare, err := m.Route(req.Model, req.BaseURL)
	if err != nil {
		events := make(chan Event, 1)
		events <- Event{Type: EventError, Err: terminalErr("router", err)}
		close(events)
		return events
	}
	routed := *req
	routed.Model = bare
	return gateway.Stream(ctx, &routed)
}
