package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/anthropics/anthropic-sdk-go"
	ollamaapi "github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// TransportError wraps a provider failure with a retryability verdict.
// The engine itself never retries; the flag tells the caller whether a
// retry could plausibly help.
type TransportError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	kind := "terminal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("%s: %s provider error: %v", e.Provider, kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// retryableStatus reports whether an HTTP status is worth retrying:
// timeouts, rate limits, and server-side failures. Auth and invalid
// request errors are terminal.
func retryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// transportErr classifies err for the given provider. Network-level
// failures and cancellations count as retryable; provider API errors
// are classified by status code.
func transportErr(provider string, err error) *TransportError {
	te := &TransportError{Provider: provider, Err: err}

	if errors.Is(err, context.DeadlineExceeded) {
		te.Retryable = true
		return te
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		te.Retryable = true
		return te
	}

	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		te.Retryable = retryableStatus(openaiErr.HTTPStatusCode)
		return te
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		te.Retryable = retryableStatus(anthropicErr.StatusCode)
		return te
	}
	var ollamaErr ollamaapi.StatusError
	if errors.As(err, &ollamaErr) {
		te.Retryable = retryableStatus(ollamaErr.StatusCode)
		return te
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		te.Retryable = retryableStatus(genaiErr.Code)
		return te
	}

	return te
}

// terminalErr builds a non-retryable error with no provider response
// behind it, e.g. a routing or configuration failure.
func terminalErr(provider string, err error) *TransportError {
	return &TransportError{Provider: provider, Err: err}
}
