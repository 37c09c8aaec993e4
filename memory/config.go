package memory

import "fmt"

// Config holds the budgets and storage settings for the context memory
// engine. A snapshot of the active config is embedded in every persisted
// session.
type Config struct {
	// MaxContextTurns bounds how many full turns stay in the window.
	MaxContextTurns int `json:"max_context_turns"`
	// MaxContextTokens bounds the estimated token total of the window
	// plus the compressed residue.
	MaxContextTokens int `json:"max_context_tokens"`
	// EnableDiffCompression turns on diff-based absorption of evicted
	// turns that closely resemble an adjacent turn.
	EnableDiffCompression bool `json:"enable_diff_compression"`
	// EnableSummarization turns on lossy digesting of evicted turns
	// that could not be diffed.
	EnableSummarization bool `json:"enable_summarization"`
	// StoragePath is the directory holding one JSON file per session.
	StoragePath string `json:"session_storage_path"`
	// MaxAgeDays ages out session files whose updated_at is older.
	// Zero disables pruning.
	MaxAgeDays int `json:"session_max_age_days"`
}

// DefaultConfig returns the stock budgets: a three turn window, 8000
// tokens, both compression stages on, thirty day retention.
func DefaultConfig() Config {
	return Config{
		MaxContextTurns:       3,
		MaxContextTokens:      8000,
		EnableDiffCompression: true,
		EnableSummarization:   true,
		StoragePath:           ".comrude/sessions",
		MaxAgeDays:            30,
	}
}

func (c Config) validate() error {
	if c.MaxContextTurns < 1 {
		return fmt.Errorf("max_context_turns must be >= 1, got %d", c.MaxContextTurns)
	}
	if c.MaxContextTokens < 1 {
		return fmt.Errorf("max_context_tokens must be >= 1, got %d", c.MaxContextTokens)
	}
	if c.MaxAgeDays < 0 {
		return fmt.Errorf("session_max_age_days must be >= 0, got %d", c.MaxAgeDays)
	}
	if c.StoragePath == "" {
		return fmt.Errorf("session_storage_path must not be empty")
	}
	return nil
}
