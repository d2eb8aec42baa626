package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/wrgoldstein/copypg/internal/config"
	"github.com/wrgoldstein/copypg/internal/history"
	"github.com/wrgoldstein/copypg/internal/logging"
	"github.com/wrgoldstein/copypg/internal/orchestrator"
	"github.com/wrgoldstein/copypg/internal/runner"
	"github.com/wrgoldstein/copypg/internal/target"
	"github.com/wrgoldstein/copypg/internal/util"
	"github.com/wrgoldstein/copypg/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    version.Name,
		Usage:   version.Description,
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "copypg.yaml",
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log format: text or json",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:   "full",
				Usage:  "Drop and recreate the local database, then reload all data",
				Action: runFull,
			},
			{
				Name:   "reload",
				Usage:  "Refresh schema and data without recreating the database",
				Action: runReload,
			},
			{
				Name:  "refresh",
				Usage: "Reload sampled tables for the configured partition key values",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "shops",
						Usage: "Comma-separated shop ids to refresh (overrides config)",
					},
				},
				Action: runRefresh,
			},
			{
				Name:   "validate",
				Usage:  "Report table existence and row counts in the local database",
				Action: runValidate,
			},
			{
				Name:   "status",
				Usage:  "Show the last run with per-step results",
				Action: showStatus,
			},
			{
				Name:   "history",
				Usage:  "List all recorded runs",
				Action: showHistory,
			},
		},
	}
}

func setupLogging(c *cli.Context) error {
	level, err := logging.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	logging.SetFormat(c.String("log-format"))
	return nil
}

// newOrchestrator loads config and wires the orchestrator. A broken
// history store is downgraded to a warning: seeding works without it.
func newOrchestrator(c *cli.Context) (*orchestrator.Orchestrator, *config.Config, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	hist, err := history.Open(cfg.HistoryFile)
	if err != nil {
		logging.Warn("run history unavailable: %v", err)
		hist = nil
	}

	closeFn := func() {
		if hist != nil {
			hist.Close()
		}
	}

	return orchestrator.New(cfg, runner.New(), hist), cfg, closeFn, nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nInterrupted.")
		cancel()
	}()

	return ctx, cancel
}

func runFull(c *cli.Context) error {
	orch, _, closeFn, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	return orch.Full(ctx)
}

func runReload(c *cli.Context) error {
	orch, _, closeFn, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	return orch.Reload(ctx)
}

func runRefresh(c *cli.Context) error {
	orch, _, closeFn, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	return orch.Refresh(ctx, util.SplitCSV(c.String("shops")))
}

func runValidate(c *cli.Context) error {
	orch, cfg, closeFn, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := target.NewPool(ctx, cfg.Target.Database)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Target.Database, err)
	}
	defer pool.Close()

	return orch.Validate(ctx, pool)
}

func showStatus(c *cli.Context) error {
	orch, _, closeFn, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer closeFn()

	return orch.ShowStatus()
}

func showHistory(c *cli.Context) error {
	orch, _, closeFn, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer closeFn()

	return orch.ShowHistory()
}
