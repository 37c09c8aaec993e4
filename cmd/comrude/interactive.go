package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/comrude/comrude/commands"
	"github.com/comrude/comrude/llm"
	"github.com/comrude/comrude/memory"
	"github.com/comrude/comrude/messages"
)

// interactive is the foreground prompt loop. It owns the single active
// session through the memory manager and the one-at-a-time command
// executor.
type interactive struct {
	cfg      *Config
	manager  *memory.Manager
	router   llm.Gateway
	executor *commands.Executor
	scanner  *bufio.Scanner
	model    string

	// Command output captured for the next turn's context snapshot.
	pending []messages.ContextItem

	mu           sync.Mutex
	cancelStream context.CancelFunc
}

func newInteractive(cfg *Config, manager *memory.Manager) *interactive {
	return &interactive{
		cfg:      cfg,
		manager:  manager,
		router:   llm.NewMultiPass(apiKeysFromEnv()),
		executor: commands.NewExecutor(cfg.ExecTimeout),
		scanner:  bufio.NewScanner(os.Stdin),
		model:    cfg.Model,
	}
}

// run is the prompt loop. SIGINT never kills the host: while a command
// runs it is forwarded to the child's process group, while a completion
// streams it cancels that stream, and when idle it prints a hint.
func (i *interactive) run(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	done := make(chan struct{})
	defer close(done)
	defer signal.Stop(sigs)
	go i.watchSignals(sigs, done)

	printSystem("comrude session %q (%s)", i.manager.SessionName(), i.manager.SessionID())
	if term.IsTerminal(int(os.Stdin.Fd())) {
		printDim("type /help for commands")
	}

	for {
		fmt.Print(promptLabel())
		if !i.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(i.scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := i.dispatch(ctx, line)
			if err != nil {
				printError("%v", err)
			}
			if quit {
				break
			}
			continue
		}
		i.ask(ctx, line)
	}

	if err := i.manager.Save(); err != nil {
		printError("failed to save session: %v", err)
		return err
	}
	return nil
}

// watchSignals forwards interrupts until done closes, so the goroutine
// does not outlive the prompt loop that started it.
func (i *interactive) watchSignals(sigs <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-sigs:
			i.handleInterrupt()
		case <-done:
			return
		}
	}
}

func (i *interactive) handleInterrupt() {
	if i.executor.Running() {
		if i.executor.Interrupt() {
			zap.S().Debugw("interrupt forwarded to child process group")
		}
		return
	}
	i.mu.Lock()
	cancel := i.cancelStream
	i.mu.Unlock()
	if cancel != nil {
		cancel()
		return
	}
	fmt.Println()
	printDim("nothing to interrupt; /quit to exit")
}

func (i *interactive) setCancel(cancel context.CancelFunc) {
	i.mu.Lock()
	i.cancelStream = cancel
	i.mu.Unlock()
}

// ask sends one prompt, streams the reply, records the turn, and runs
// any suggested commands. A cancelled stream records nothing.
func (i *interactive) ask(ctx context.Context, prompt string) {
	streamCtx, cancel := context.WithCancel(ctx)
	i.setCancel(cancel)
	defer func() {
		i.setCancel(nil)
		cancel()
	}()

	req := &llm.Request{
		Model:       i.model,
		Prompt:      prompt,
		Context:     i.manager.RenderContext(),
		History:     i.history(),
		BaseURL:     i.cfg.BaseURL,
		MaxTokens:   i.cfg.MaxTokens,
		Temperature: i.cfg.Temperature,
	}

	var final *messages.Message
	for ev := range i.router.Stream(streamCtx, req) {
		switch ev.Type {
		case llm.EventContent:
			fmt.Print(assistantStyle.Styled(ev.Content))
		case llm.EventComplete:
			final = ev.Message
		case llm.EventError:
			fmt.Println()
			var te *llm.TransportError
			if errors.As(ev.Err, &te) && te.Retryable {
				printError("%v (worth retrying)", ev.Err)
			} else {
				printError("%v", ev.Err)
			}
			return
		}
	}
	fmt.Println()

	if final == nil {
		// Stream was cancelled mid-flight; the session is unchanged.
		printDim("(cancelled)")
		return
	}

	snapshot := i.pending
	i.pending = nil
	if _, err := i.manager.RecordTurn(messages.NewUser(prompt), *final, snapshot); err != nil {
		printError("turn recorded in memory only: %v", err)
	}

	for _, req := range commands.Extract(final.Text()) {
		i.runCommand(req)
	}
}

// runCommand confirms and executes one suggested command, keeping its
// output for the next turn's context.
func (i *interactive) runCommand(req commands.CommandRequest) {
	printSystem("suggested command: %s", req.Text)
	if !i.cfg.AutoConfirm && !promptYesNo(i.scanner, "run it?", false) {
		printDim("skipped")
		return
	}

	res := i.executor.Run(context.Background(), req)
	switch res.Status {
	case commands.StatusCompleted:
		if res.ExitCode == 0 {
			printSuccess("exit 0 in %s", res.Duration.Round(time.Millisecond))
		} else {
			printError("exit %d in %s", res.ExitCode, res.Duration.Round(time.Millisecond))
		}
	case commands.StatusInterrupted:
		printDim("interrupted")
	case commands.StatusTimedOut:
		printError("timed out after %s", res.Duration.Round(time.Millisecond))
	case commands.StatusSpawnFailed:
		printError("failed to start: %s", res.Stderr)
		return
	}
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}

	combined := res.Stdout + res.Stderr
	i.pending = append(i.pending, messages.CommandItem(req.Text, combined))
}

// history flattens the surviving turn window into a transcript.
func (i *interactive) history() []messages.Message {
	var msgs []messages.Message
	for _, turn := range i.manager.Turns() {
		msgs = append(msgs, turn.UserMessage, turn.AssistantResponse)
	}
	return msgs
}

// dispatch handles slash commands. It returns true when the loop should
// exit.
func (i *interactive) dispatch(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		printHelp()
		return false, nil

	case "/sessions":
		infos, err := i.manager.ListSessions()
		if err != nil {
			return false, err
		}
		for _, info := range infos {
			marker := " "
			if info.ID == i.manager.SessionID() {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, info.ID, info.Name)
		}
		return false, nil

	case "/session":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /session <id>|last")
		}
		if err := i.switchSession(args[0]); err != nil {
			return false, err
		}
		printSystem("switched to %q (%s)", i.manager.SessionName(), i.manager.SessionID())
		return false, nil

	case "/clear":
		i.manager.Clear()
		i.pending = nil
		printSystem("memory cleared, session id kept")
		return false, nil

	case "/memory":
		items := i.manager.RenderContext()
		if len(items) == 0 {
			printDim("context is empty")
			return false, nil
		}
		for n, item := range items {
			fmt.Printf("%2d. %s\n", n+1, describeItem(item))
		}
		return false, nil

	case "/run":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /run <command>")
		}
		i.runCommand(commands.CommandRequest{Text: strings.Join(args, " ")})
		return false, nil

	case "/model":
		if len(args) == 1 {
			i.model = args[0]
		}
		printSystem("model: %s", i.model)
		return false, nil

	case "/provider":
		provider := i.model
		if idx := strings.IndexByte(i.model, '/'); idx >= 0 {
			provider = i.model[:idx]
		}
		printSystem("provider: %s", provider)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s; /help lists commands", cmd)
	}
}

// switchSession saves the current session and activates another.
func (i *interactive) switchSession(target string) error {
	if err := i.manager.Save(); err != nil {
		printError("failed to save current session: %v", err)
	}
	if target == "last" {
		return i.manager.LoadLatest()
	}
	err := i.manager.LoadSession(target)
	if errors.Is(err, memory.ErrSessionNotFound) {
		return fmt.Errorf("no session with id %s", target)
	}
	return err
}

func describeItem(item messages.ContextItem) string {
	head := item.Content
	if idx := strings.IndexByte(head, '\n'); idx >= 0 {
		head = head[:idx]
	}
	if len(head) > 72 {
		head = head[:72] + "..."
	}
	switch item.Type.Kind {
	case messages.ContextTypeCode:
		return fmt.Sprintf("[code %s] %s", item.Type.Language, head)
	case messages.ContextTypeFile:
		return fmt.Sprintf("[file %s] %s", item.Type.Path, head)
	case messages.ContextTypeCommand:
		return fmt.Sprintf("[cmd %s] %s", item.Type.Command, head)
	default:
		return head
	}
}

func printHelp() {
	fmt.Println(`commands:
  /help            show this help
  /sessions        list stored sessions (most recent first)
  /session <id>    switch to a session, or "last" for the newest
  /clear           reset conversation memory, keep the session id
  /memory          show the rendered context
  /run <command>   execute a shell command
  /model [name]    show or set the model (provider/model)
  /provider        show the active provider
  /quit            save and exit`)
}
