// Package orchestrator sequences the dump, rewrite and load operations
// that seed the local database.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/wrgoldstein/copypg/internal/config"
	"github.com/wrgoldstein/copypg/internal/history"
	"github.com/wrgoldstein/copypg/internal/logging"
	"github.com/wrgoldstein/copypg/internal/pipeline"
	"github.com/wrgoldstein/copypg/internal/progress"
	"github.com/wrgoldstein/copypg/internal/runner"
)

// Orchestrator builds and runs the seeding flows.
type Orchestrator struct {
	cfg  *config.Config
	run  runner.Runner
	hist *history.Store // nil disables run history
}

// New creates an Orchestrator. hist may be nil.
func New(cfg *config.Config, r runner.Runner, hist *history.Store) *Orchestrator {
	return &Orchestrator{cfg: cfg, run: r, hist: hist}
}

// Full drops and recreates the local database, then runs the reload flow.
func (o *Orchestrator) Full(ctx context.Context) error {
	steps := append([]pipeline.Step{
		{Name: "recreate_database", Run: o.recreateDatabase},
	}, o.reloadSteps()...)
	return o.execute(ctx, "full", steps)
}

// Reload refreshes schema and data without recreating the database.
func (o *Orchestrator) Reload(ctx context.Context) error {
	return o.execute(ctx, "reload", o.reloadSteps())
}

// Refresh reloads the sampled tables for the configured partition key
// values, or for shops when non-empty.
func (o *Orchestrator) Refresh(ctx context.Context, shops []string) error {
	if len(shops) > 0 {
		scoped := *o.cfg
		scoped.Partition.Values = shops
		return (&Orchestrator{cfg: &scoped, run: o.run, hist: o.hist}).Refresh(ctx, nil)
	}
	return o.execute(ctx, "refresh", o.refreshSteps())
}

func (o *Orchestrator) reloadSteps() []pipeline.Step {
	return []pipeline.Step{
		{Name: "download_schema", Run: o.downloadSchema},
		{Name: "process_schema", Run: o.processSchema},
		{Name: "drop_tables", Run: o.dropTables},
		{Name: "create_tables", Run: o.createTables},
		{Name: "download_data_for_small_tables", Run: o.downloadDataForSmallTables},
		{Name: "download_sample_of_data_for_large_tables", Run: o.downloadSampleOfDataForLargeTables},
		{Name: "load_data_for_small_tables", Run: o.loadDataForSmallTables},
		{Name: "load_data_for_large_tables", Run: o.loadDataForLargeTables},
	}
}

func (o *Orchestrator) refreshSteps() []pipeline.Step {
	return []pipeline.Step{
		{Name: "truncate_large_tables", Run: o.truncateLargeTables},
		{Name: "download_shop_specific_data_for_large_tables", Run: o.downloadShopSpecificDataForLargeTables},
		{Name: "load_data_for_large_tables", Run: o.loadDataForLargeTables},
	}
}

// execute runs the steps strictly in order and records the outcome.
// Step failures never fail the invocation: the returned error covers only
// whether the run itself could start.
func (o *Orchestrator) execute(ctx context.Context, command string, steps []pipeline.Step) error {
	if err := o.ensureWorkdirs(); err != nil {
		return err
	}

	runID := uuid.NewString()
	if o.hist != nil {
		if err := o.hist.CreateRun(runID, command); err != nil {
			logging.Warn("recording run start: %v", err)
		}
	}

	logging.Info("run %s: %s (%d steps)", runID, command, len(steps))

	tracker := progress.New(len(steps))
	results := pipeline.Execute(ctx, steps, tracker)
	failed := pipeline.CountFailed(results)

	if o.hist != nil {
		for i, res := range results {
			errMsg := ""
			if res.Err != nil {
				errMsg = res.Err.Error()
			}
			if err := o.hist.RecordStep(runID, i, res.Name, res.Status(), errMsg, res.Duration); err != nil {
				logging.Warn("recording step %s: %v", res.Name, err)
			}
		}

		status, errMsg := "success", ""
		if failed > 0 {
			status = "completed_with_failures"
			errMsg = fmt.Sprintf("%d of %d steps failed", failed, len(results))
		}
		if err := o.hist.CompleteRun(runID, status, errMsg); err != nil {
			logging.Warn("recording run completion: %v", err)
		}
	}

	if failed > 0 {
		logging.Warn("%d of %d steps failed; the local database may be partially populated", failed, len(results))
	}
	return nil
}

func (o *Orchestrator) ensureWorkdirs() error {
	for _, dir := range []string{o.rawDir(), o.processedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating working directory: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) rawDir() string       { return filepath.Join(o.cfg.Workdir, "raw") }
func (o *Orchestrator) processedDir() string { return filepath.Join(o.cfg.Workdir, "processed") }

// ShowHistory lists all recorded runs.
func (o *Orchestrator) ShowHistory() error {
	if o.hist == nil {
		return fmt.Errorf("run history is not available")
	}

	runs, err := o.hist.Runs()
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-36s  %-8s  %-24s  %-20s\n", "RUN", "COMMAND", "STATUS", "STARTED")
	for _, r := range runs {
		fmt.Printf("%-36s  %-8s  %-24s  %-20s\n",
			r.ID, r.Command, r.Status, r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// ShowStatus prints the most recent run with per-step results.
func (o *Orchestrator) ShowStatus() error {
	if o.hist == nil {
		return fmt.Errorf("run history is not available")
	}

	run, err := o.hist.LastRun()
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if run == nil {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("Run %s (%s): %s\n", run.ID, run.Command, run.Status)
	fmt.Printf("Started %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Error != "" {
		fmt.Printf("Error: %s\n", run.Error)
	}
	for _, step := range run.Steps {
		mark := "ok"
		if step.Status != "success" {
			mark = "FAILED"
		}
		fmt.Printf("  %2d. %-45s %-6s %8s\n", step.Seq+1, step.Name, mark, step.Duration.Round(10*time.Millisecond))
		if step.Error != "" {
			fmt.Printf("      %s\n", step.Error)
		}
	}
	return nil
}
