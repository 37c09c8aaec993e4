package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/comrude/comrude/messages"
)

// EventType discriminates streaming events from a provider gateway.
type EventType string

const (
	// EventContent carries an incremental chunk of assistant text.
	EventContent EventType = "content"
	// EventComplete carries the finalized assistant message. It is the
	// last event on a successful stream.
	EventComplete EventType = "complete"
	// EventError terminates the stream with a TransportError.
	EventError EventType = "error"
)

// Event is one item on a gateway stream.
type Event struct {
	Type    EventType
	Content string
	Message *messages.Message
	Err     error
}

// Request is a provider-agnostic completion request: the rendered
// context, the prior transcript, and the new prompt.
type Request struct {
	Model       string
	Prompt      string
	Context     []messages.ContextItem
	History     []messages.Message
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// Gateway is the single capability every provider variant implements:
// send a prompt with context, receive a stream of deltas ending in a
// complete message or an error. The channel is closed after the
// terminal event.
type Gateway interface {
	Stream(ctx context.Context, req *Request) <-chan Event
}

const defaultMaxTokens = 4096

func maxTokensOrDefault(req *Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}

// chatTurn is the neutral transcript entry providers convert from.
type chatTurn struct {
	role    string // "user", "assistant", "system"
	content string
}

// flatten renders a request into a system preamble plus a chronological
// transcript ending with the new prompt.
func flatten(req *Request) (system string, turns []chatTurn) {
	system = renderContext(req.Context)
	for _, m := range req.History {
		role := "user"
		switch m.Sender.Kind {
		case messages.SenderAssistant:
			role = "assistant"
		case messages.SenderSystem:
			role = "system"
		}
		if text := m.Text(); text != "" {
			turns = append(turns, chatTurn{role: role, content: text})
		}
	}
	turns = append(turns, chatTurn{role: "user", content: req.Prompt})
	return system, turns
}

// renderContext turns context items into one textual preamble.
func renderContext(items []messages.ContextItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Context from the ongoing session:\n")
	for _, item := range items {
		switch item.Type.Kind {
		case messages.ContextTypeCode:
			fmt.Fprintf(&b, "```%s\n%s\n```\n", item.Type.Language, item.Content)
		case messages.ContextTypeFile:
			fmt.Fprintf(&b, "File %s:\n%s\n", item.Type.Path, item.Content)
		case messages.ContextTypeCommand:
			fmt.Fprintf(&b, "Output of `%s`:\n%s\n", item.Type.Command, item.Content)
		default:
			b.WriteString(item.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// emit pushes an event unless the context is already gone.
func emit(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
