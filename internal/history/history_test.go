package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateRun("run-1", "reload"); err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}
	if err := s.RecordStep("run-1", 0, "download_schema", "success", "", 1200*time.Millisecond); err != nil {
		t.Fatalf("RecordStep() error: %v", err)
	}
	if err := s.RecordStep("run-1", 1, "load_data_for_large_tables", "failed", "exit status 1", 300*time.Millisecond); err != nil {
		t.Fatalf("RecordStep() error: %v", err)
	}
	if err := s.CompleteRun("run-1", "completed_with_failures", "1 step failed"); err != nil {
		t.Fatalf("CompleteRun() error: %v", err)
	}

	run, err := s.RunByID("run-1")
	if err != nil {
		t.Fatalf("RunByID() error: %v", err)
	}
	if run == nil {
		t.Fatal("RunByID() = nil, want run")
	}
	if run.Command != "reload" {
		t.Errorf("Command = %q, want reload", run.Command)
	}
	if run.Status != "completed_with_failures" {
		t.Errorf("Status = %q, want completed_with_failures", run.Status)
	}
	if len(run.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(run.Steps))
	}
	if run.Steps[0].Name != "download_schema" || run.Steps[0].Status != "success" {
		t.Errorf("Steps[0] = %+v", run.Steps[0])
	}
	if run.Steps[1].Status != "failed" || run.Steps[1].Error != "exit status 1" {
		t.Errorf("Steps[1] = %+v", run.Steps[1])
	}
	if run.Steps[0].Duration != 1200*time.Millisecond {
		t.Errorf("Steps[0].Duration = %v, want 1.2s", run.Steps[0].Duration)
	}
}

func TestRunByIDMissing(t *testing.T) {
	s := openTestStore(t)

	run, err := s.RunByID("nope")
	if err != nil {
		t.Fatalf("RunByID() error: %v", err)
	}
	if run != nil {
		t.Errorf("RunByID(missing) = %+v, want nil", run)
	}
}

func TestRunsOrderedMostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateRun("run-a", "full"); err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := s.CreateRun("run-b", "refresh"); err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Errorf("runs out of order: %v, %v", runs[0].ID, runs[1].ID)
	}
}

func TestLastRun(t *testing.T) {
	s := openTestStore(t)

	last, err := s.LastRun()
	if err != nil {
		t.Fatalf("LastRun() error: %v", err)
	}
	if last != nil {
		t.Errorf("LastRun() on empty store = %+v, want nil", last)
	}

	if err := s.CreateRun("run-a", "full"); err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := s.CreateRun("run-b", "reload"); err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}
	if err := s.RecordStep("run-b", 0, "truncate_large_tables", "success", "", time.Second); err != nil {
		t.Fatalf("RecordStep() error: %v", err)
	}

	last, err = s.LastRun()
	if err != nil {
		t.Fatalf("LastRun() error: %v", err)
	}
	if last == nil || last.ID != "run-b" {
		t.Fatalf("LastRun() = %+v, want run-b", last)
	}
	if len(last.Steps) != 1 {
		t.Errorf("len(last.Steps) = %d, want 1", len(last.Steps))
	}
}
