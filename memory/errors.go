package memory

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound reports a load for a session id with no file on
// disk.
var ErrSessionNotFound = errors.New("session not found")

// CorruptError reports a session file that exists but cannot be decoded
// into a structurally valid session. It is never coerced into an empty
// session.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt session file %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// CompressionInvariantError is the internal bug guard raised when a full
// compression pass still leaves the budgets exceeded. The call fails but
// the in-memory session is left exactly as it was.
type CompressionInvariantError struct {
	Turns     int
	Tokens    int
	MaxTurns  int
	MaxTokens int
}

func (e *CompressionInvariantError) Error() string {
	return fmt.Sprintf("compression invariant violated: %d turns (max %d), %d tokens (max %d)",
		e.Turns, e.MaxTurns, e.Tokens, e.MaxTokens)
}
