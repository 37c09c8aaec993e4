package memory

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/comrude/comrude/messages"
)

var turnClock = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func makeTurn(user, assistant string) ConversationTurn {
	turnClock = turnClock.Add(time.Second)
	turn := ConversationTurn{
		ID:                uuid.NewString(),
		Timestamp:         turnClock,
		UserMessage:       messages.NewUser(user),
		AssistantResponse: messages.NewAssistant(assistant, "test", "test-model"),
	}
	turn.TokensUsed = TurnTokens(turn)
	return turn
}

func TestCompressNoopUnderBudget(t *testing.T) {
	c := NewCompressor(DefaultConfig())
	turns := []ConversationTurn{makeTurn("hi", "hello")}
	out, residue, err := c.Compress(turns, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(out) != 1 || len(residue) != 0 {
		t.Errorf("under-budget input should pass through, got %d turns %d residue", len(out), len(residue))
	}
}

func TestTurnBudgetAbsorbsOldest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTurns = 3
	c := NewCompressor(cfg)

	turns := []ConversationTurn{
		makeTurn("first question", "first answer about databases"),
		makeTurn("second question", "unrelated weather forecast tomorrow"),
		makeTurn("third question", "some notes on parsing"),
		makeTurn("fourth question", "closing remarks"),
	}
	oldest := turns[0].ID

	out, residue, err := c.Compress(turns, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 surviving turns, got %d", len(out))
	}
	for _, turn := range out {
		if turn.ID == oldest {
			t.Error("oldest turn should have been absorbed")
		}
	}
	if len(residue) == 0 {
		t.Error("absorbed turn left no residue")
	}
}

func TestCompressIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTurns = 2
	c := NewCompressor(cfg)

	turns := []ConversationTurn{
		makeTurn("one", "alpha response text"),
		makeTurn("two", "beta response text"),
		makeTurn("three", "gamma response text"),
		makeTurn("four", "delta response text"),
	}
	out1, res1, err := c.Compress(turns, nil)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	out2, res2, err := c.Compress(out1, res1)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(out2) != len(out1) || len(res2) != len(res1) {
		t.Errorf("second pass changed state: turns %d->%d residue %d->%d",
			len(out1), len(out2), len(res1), len(res2))
	}
	for i := range out1 {
		if out2[i].ID != out1[i].ID {
			t.Errorf("turn %d id changed across passes", i)
		}
	}
}

func TestHardTruncationDropsFromFront(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTurns = 3
	cfg.EnableDiffCompression = false
	cfg.EnableSummarization = false
	c := NewCompressor(cfg)

	turns := make([]ConversationTurn, 5)
	for i := range turns {
		turns[i] = makeTurn("question", "answer")
	}
	out, residue, err := c.Compress(turns, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 turns after hard truncation, got %d", len(out))
	}
	if out[0].ID != turns[2].ID {
		t.Error("hard truncation should drop from the front")
	}
	if len(residue) != 0 {
		t.Errorf("hard truncation should leave no residue, got %d items", len(residue))
	}
}

func TestDiffCompressionOnSimilarTurns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTurns = 1
	cfg.EnableSummarization = false
	c := NewCompressor(cfg)

	// Known-similar pair: heavy word overlap.
	turns := []ConversationTurn{
		makeTurn("show config", "the server config lives in /etc/app/config.yaml with three sections"),
		makeTurn("show config again", "the server config lives in /etc/app/config.yaml with four sections"),
	}
	out, residue, err := c.Compress(turns, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving turn, got %d", len(out))
	}
	if len(residue) != 1 {
		t.Fatalf("expected 1 residue item, got %d", len(residue))
	}
	if !strings.HasPrefix(residue[0].Content, "DIFF: ") {
		t.Errorf("similar turns should leave a diff marker, got %q", residue[0].Content)
	}
}

func TestSummarizationOnDissimilarTurns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTurns = 1
	c := NewCompressor(cfg)

	// Known-dissimilar pair: no shared vocabulary.
	turns := []ConversationTurn{
		makeTurn("please fix the parser bug in src/parser.go", "done, rewrote tokenizer loop"),
		makeTurn("what is for lunch", "soup"),
	}
	out, residue, err := c.Compress(turns, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving turn, got %d", len(out))
	}
	if len(residue) != 1 {
		t.Fatalf("expected 1 residue item, got %d", len(residue))
	}
	if !strings.HasPrefix(residue[0].Content, "[SUMMARY]") {
		t.Errorf("dissimilar turn should be summarized, got %q", residue[0].Content)
	}
	if !strings.Contains(residue[0].Content, "src/parser.go") {
		t.Errorf("summary should preserve mentioned file paths, got %q", residue[0].Content)
	}
	if residue[0].Metadata["turns_summarized"] != 1 {
		t.Errorf("expected turns_summarized metadata, got %v", residue[0].Metadata)
	}
}

func TestTokenBudgetEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTurns = 5
	cfg.MaxContextTokens = 200
	cfg.EnableDiffCompression = false
	c := NewCompressor(cfg)

	long := strings.Repeat("lorem ipsum dolor sit amet ", 15)
	turns := []ConversationTurn{
		makeTurn("q1", long),
		makeTurn("q2", long),
		makeTurn("q3", long),
	}
	out, residue, err := c.Compress(turns, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	total := TurnsTokens(out) + ItemsTokens(residue)
	if total > cfg.MaxContextTokens {
		t.Errorf("token budget still exceeded after compression: %d > %d", total, cfg.MaxContextTokens)
	}
	if len(out) == 0 {
		t.Error("at least one turn must survive compression")
	}
}

func TestCompressionInvariantError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTokens = 10
	c := NewCompressor(cfg)

	turns := []ConversationTurn{
		makeTurn("q", strings.Repeat("x", 400)),
	}
	out, residue, err := c.Compress(turns, nil)
	var inv *CompressionInvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected CompressionInvariantError, got %v", err)
	}
	if len(out) != 1 || out[0].ID != turns[0].ID {
		t.Error("failed compression must return inputs unchanged")
	}
	if len(residue) != 0 {
		t.Error("failed compression must not grow the residue")
	}
}

func TestSimilarHeuristicPinnedPairs(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "the quick brown fox", "the quick brown fox", true},
		{"one word changed", "deploy the service to staging now", "deploy the service to production now", true},
		{"disjoint", "kernel scheduling latency", "banana bread recipe ideas", false},
		{"empty left", "", "anything at all", false},
		{"both empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := similar(tt.a, tt.b); got != tt.want {
				t.Errorf("similar(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
