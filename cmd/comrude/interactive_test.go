package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/comrude/comrude/commands"
	"github.com/comrude/comrude/llm"
	"github.com/comrude/comrude/memory"
	"github.com/comrude/comrude/messages"
)

// stubGateway emits its deltas and then either finishes the stream or
// ends it the way a cancelled provider request does: the channel closes
// without a complete event.
type stubGateway struct {
	deltas   []string
	complete bool
}

func (g *stubGateway) Stream(ctx context.Context, req *llm.Request) <-chan llm.Event {
	events := make(chan llm.Event, len(g.deltas)+1)
	var full strings.Builder
	for _, d := range g.deltas {
		full.WriteString(d)
		events <- llm.Event{Type: llm.EventContent, Content: d}
	}
	if g.complete {
		msg := messages.NewAssistant(full.String(), "stub", req.Model)
		events <- llm.Event{Type: llm.EventComplete, Message: &msg}
	}
	close(events)
	return events
}

func testInteractive(t *testing.T, gw llm.Gateway) (*interactive, *memory.Manager) {
	t.Helper()
	cfg := memory.DefaultConfig()
	cfg.StoragePath = t.TempDir()
	manager, err := memory.NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := manager.CreateSession("loop test"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(manager.Close)
	return &interactive{
		cfg:      &Config{Model: "stub/model"},
		manager:  manager,
		router:   gw,
		executor: commands.NewExecutor(time.Minute),
		scanner:  bufio.NewScanner(strings.NewReader("")),
		model:    "stub/model",
	}, manager
}

func TestAskCancelledStreamRecordsNothing(t *testing.T) {
	i, manager := testInteractive(t, &stubGateway{deltas: []string{"partial ", "answer"}})
	i.pending = []messages.ContextItem{messages.TextItem("held over")}

	i.ask(context.Background(), "doomed prompt")

	if got := len(manager.Turns()); got != 0 {
		t.Errorf("cancelled stream must record nothing, got %d turns", got)
	}
	if len(manager.RenderContext()) != 0 {
		t.Error("cancelled stream must leave the rendered context unchanged")
	}
	if len(i.pending) != 1 {
		t.Error("pending context must survive a cancelled stream")
	}
}

func TestAskCompleteStreamRecordsTurn(t *testing.T) {
	i, manager := testInteractive(t, &stubGateway{deltas: []string{"the ", "reply"}, complete: true})

	i.ask(context.Background(), "a question")

	turns := manager.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 recorded turn, got %d", len(turns))
	}
	if turns[0].UserMessage.Text() != "a question" {
		t.Errorf("user message: got %q", turns[0].UserMessage.Text())
	}
	if turns[0].AssistantResponse.Text() != "the reply" {
		t.Errorf("assistant message: got %q", turns[0].AssistantResponse.Text())
	}
	if len(i.pending) != 0 {
		t.Error("pending context should be consumed by the recorded turn")
	}
}

func TestWatchSignalsStopsOnDone(t *testing.T) {
	i, _ := testInteractive(t, &stubGateway{})
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		i.watchSignals(sigs, done)
		close(finished)
	}()

	sigs <- os.Interrupt
	close(done)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("signal watcher did not stop after shutdown")
	}
}
