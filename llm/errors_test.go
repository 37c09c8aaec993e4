package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func asTransportError(err error, target **TransportError) bool {
	return errors.As(err, target)
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
	}
	for _, tt := range tests {
		if got := retryableStatus(tt.code); got != tt.want {
			t.Errorf("retryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestTransportErrClassifiesAPIErrors(t *testing.T) {
	rateLimited := &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}
	te := transportErr("openai", rateLimited)
	if !te.Retryable {
		t.Error("429 should be retryable")
	}

	badAuth := &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}
	te = transportErr("openai", badAuth)
	if te.Retryable {
		t.Error("401 should be terminal")
	}
	var unwrapped *openai.APIError
	if !errors.As(te, &unwrapped) || unwrapped.HTTPStatusCode != 401 {
		t.Error("wrapped error should unwrap to the original")
	}
}

func TestTransportErrClassifiesTimeouts(t *testing.T) {
	te := transportErr("anthropic", fmt.Errorf("request: %w", context.DeadlineExceeded))
	if !te.Retryable {
		t.Error("deadline exceeded should be retryable")
	}
}

func TestTransportErrUnknownIsTerminal(t *testing.T) {
	te := transportErr("gemini", errors.New("something odd"))
	if te.Retryable {
		t.Error("unclassified errors default to terminal")
	}
	if te.Provider != "gemini" {
		t.Errorf("provider: got %q", te.Provider)
	}
}
