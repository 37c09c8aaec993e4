package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/comrude/comrude/messages"
)

// ConversationTurn pairs one user message with one assistant response,
// plus the context snapshot that was visible to the model at turn time.
// A turn is immutable once both messages are complete.
type ConversationTurn struct {
	ID                string                 `json:"id"`
	Timestamp         time.Time              `json:"timestamp"`
	UserMessage       messages.Message       `json:"user_message"`
	AssistantResponse messages.Message       `json:"assistant_response"`
	ContextSnapshot   []messages.ContextItem `json:"context_snapshot"`
	TokensUsed        int                    `json:"tokens_used"`
}

// Session is the durable unit of conversation state. One file per id on
// disk; owned exclusively by a single Manager while in memory.
type Session struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Turns      []ConversationTurn     `json:"conversation_turns"`
	Cumulative []messages.ContextItem `json:"cumulative_context"`
	Metadata   map[string]any         `json:"session_metadata"`
	Config     Config                 `json:"config"`
}

// newSession allocates a fresh session with a config snapshot. An empty
// name gets the timestamped default.
func newSession(name string, cfg Config) *Session {
	now := time.Now().UTC()
	if name == "" {
		name = "Session " + now.Format("2006-01-02 15:04")
	}
	return &Session{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
		Turns:      []ConversationTurn{},
		Cumulative: []messages.ContextItem{},
		Metadata:   map[string]any{},
		Config:     cfg,
	}
}

// validate rejects structurally incomplete sessions after decoding.
// encoding/json leaves missing fields zero valued, so absence has to be
// checked explicitly.
func (s *Session) validate() error {
	if s.ID == "" {
		return fmt.Errorf("missing session id")
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("session %s: missing created_at", s.ID)
	}
	if s.UpdatedAt.IsZero() {
		return fmt.Errorf("session %s: missing updated_at", s.ID)
	}
	seen := make(map[string]struct{}, len(s.Turns))
	var prev time.Time
	for i, turn := range s.Turns {
		if turn.ID == "" {
			return fmt.Errorf("session %s: turn %d missing id", s.ID, i)
		}
		if _, dup := seen[turn.ID]; dup {
			return fmt.Errorf("session %s: duplicate turn id %s", s.ID, turn.ID)
		}
		seen[turn.ID] = struct{}{}
		if turn.Timestamp.IsZero() {
			return fmt.Errorf("session %s: turn %s missing timestamp", s.ID, turn.ID)
		}
		if turn.Timestamp.Before(prev) {
			return fmt.Errorf("session %s: turn %s out of order", s.ID, turn.ID)
		}
		prev = turn.Timestamp
		if turn.UserMessage.ID == "" {
			return fmt.Errorf("session %s: turn %s missing user message", s.ID, turn.ID)
		}
	}
	return nil
}
