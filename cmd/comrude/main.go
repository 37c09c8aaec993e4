package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/comrude/comrude/internal/log"
	"github.com/comrude/comrude/memory"
)

func main() {
	app := &cli.Command{
		Name:   "comrude",
		Usage:  "Interactive LLM assistant with durable context memory",
		Flags:  defineFlags(),
		Action: runCommand,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to yaml config file",
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   "Model to use (provider/model format)",
			Value:   defaultModel,
		},

		// Session selection
		&cli.StringFlag{
			Name:    "session",
			Aliases: []string{"s"},
			Usage:   "Resume the session with this id",
		},
		&cli.BoolFlag{
			Name:    "last",
			Aliases: []string{"L"},
			Usage:   "Resume the most recently updated session",
		},
		&cli.BoolFlag{
			Name:  "list",
			Usage: "List stored sessions and exit",
		},

		// Memory budgets
		&cli.StringFlag{
			Name:  "storage",
			Usage: "Session storage directory",
		},
		&cli.IntFlag{
			Name:  "max-turns",
			Usage: "Maximum full turns kept in context",
		},
		&cli.IntFlag{
			Name:  "max-tokens",
			Usage: "Maximum estimated tokens kept in context",
		},
		&cli.BoolFlag{
			Name:  "no-diff",
			Usage: "Disable diff compression of evicted turns",
		},
		&cli.BoolFlag{
			Name:  "no-summarize",
			Usage: "Disable summarization of evicted turns",
		},

		// Command execution
		&cli.DurationFlag{
			Name:  "exec-timeout",
			Usage: "Timeout for executed shell commands",
			Value: defaultExecTimeout,
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Run suggested commands without confirmation",
		},

		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug logging",
		},
	}
}

func runCommand(ctx context.Context, cmd *cli.Command) error {
	log.Init(cmd.Bool("debug"))
	defer log.Sync()
	initColors()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	manager, err := memory.NewManager(cfg.Memory)
	if err != nil {
		return err
	}
	defer manager.Close()

	if cfg.List {
		return listSessions(manager)
	}

	// Aging sweep runs in the background and is cancelled on exit. It
	// touches only files, never the active session.
	pruneCtx, cancelPrune := context.WithCancel(ctx)
	defer cancelPrune()
	go func() {
		removed, err := manager.PruneExpired(pruneCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			zap.S().Warnw("session prune failed", "error", err)
			return
		}
		if removed > 0 {
			zap.S().Debugw("pruned expired sessions", "count", removed)
		}
	}()

	if err := selectSession(manager, cfg); err != nil {
		return err
	}

	loop := newInteractive(cfg, manager)
	return loop.run(ctx)
}

func selectSession(manager *memory.Manager, cfg *Config) error {
	switch {
	case cfg.SessionID != "":
		return manager.LoadSession(cfg.SessionID)
	case cfg.UseLast:
		err := manager.LoadLatest()
		if errors.Is(err, memory.ErrSessionNotFound) {
			return createFresh(manager)
		}
		return err
	default:
		return createFresh(manager)
	}
}

// createFresh starts a new session. A failed initial save is logged and
// tolerated: the in-memory session stays usable and later saves retry.
func createFresh(manager *memory.Manager) error {
	_, err := manager.CreateSession("")
	if err == nil {
		return nil
	}
	if manager.SessionID() == "" {
		return err
	}
	zap.S().Warnw("failed to persist new session, continuing in memory", "error", err)
	return nil
}

func listSessions(manager *memory.Manager) error {
	infos, err := manager.ListSessions()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		printDim("no stored sessions")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %s  %s\n",
			info.ID,
			info.UpdatedAt.Local().Format(time.DateTime),
			info.Name)
	}
	return nil
}
