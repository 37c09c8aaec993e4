package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the terminal state of an executed command. A non-zero exit
// code is still Completed; only spawn failure, interruption, and
// timeout are exceptional outcomes.
type Status string

const (
	StatusCompleted   Status = "Completed"
	StatusInterrupted Status = "Interrupted"
	StatusTimedOut    Status = "TimedOut"
	StatusSpawnFailed Status = "SpawnFailed"
)

// Result carries the terminal state and the full captured output of one
// command.
type Result struct {
	Status   Status
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs one command at a time in its own process group, so that
// interrupt signals can be forwarded to the child without touching the
// host. The zero timeout disables the deadline.
type Executor struct {
	timeout time.Duration

	mu   sync.Mutex
	pgid int
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Run executes the request under "sh -c" and blocks until it reaches a
// terminal state. The child is placed in a fresh process group on
// spawn; cancelling ctx or exceeding the timeout kills the whole group.
func (e *Executor) Run(ctx context.Context, req CommandRequest) Result {
	start := time.Now()

	cmd := exec.Command("sh", "-c", req.Text)
	cmd.Dir = req.WorkingDirectory
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return spawnFailure(err, start)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return spawnFailure(err, start)
	}
	if err := cmd.Start(); err != nil {
		return spawnFailure(err, start)
	}

	pgid := cmd.Process.Pid
	e.register(pgid)
	defer e.clear()
	zap.S().Debugw("command started", "pgid", pgid, "command", req.Text)

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})

	// Pipes must be fully drained before Wait.
	waited := make(chan error, 1)
	go func() {
		copyErr := g.Wait()
		waitErr := cmd.Wait()
		if waitErr == nil {
			waitErr = copyErr
		}
		waited <- waitErr
	}()

	var deadline <-chan time.Time
	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var status Status
	var waitErr error
	select {
	case waitErr = <-waited:
	case <-ctx.Done():
		syscall.Kill(-pgid, syscall.SIGKILL)
		waitErr = <-waited
		status = StatusInterrupted
	case <-deadline:
		zap.S().Debugw("command deadline exceeded, killing process group", "pgid", pgid)
		syscall.Kill(-pgid, syscall.SIGKILL)
		waitErr = <-waited
		status = StatusTimedOut
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
			if status == "" {
				if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok &&
					ws.Signaled() && ws.Signal() == syscall.SIGINT {
					status = StatusInterrupted
				}
			}
		}
	}
	if status == "" {
		status = StatusCompleted
	}

	return Result{
		Status:   status,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
}

// Interrupt forwards SIGINT to the registered foreground process group.
// It is safe to call from a signal handling goroutine at any time and
// reports false when no command is running.
func (e *Executor) Interrupt() bool {
	e.mu.Lock()
	pgid := e.pgid
	e.mu.Unlock()
	if pgid == 0 {
		return false
	}
	return syscall.Kill(-pgid, syscall.SIGINT) == nil
}

// Running reports whether a command is currently in flight.
func (e *Executor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pgid != 0
}

func (e *Executor) register(pgid int) {
	e.mu.Lock()
	e.pgid = pgid
	e.mu.Unlock()
}

func (e *Executor) clear() {
	e.mu.Lock()
	e.pgid = 0
	e.mu.Unlock()
}

func (e *Executor) currentPgid() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pgid
}

func spawnFailure(err error, start time.Time) Result {
	return Result{
		Status:   StatusSpawnFailed,
		ExitCode: -1,
		Stderr:   err.Error(),
		Duration: time.Since(start),
	}
}
