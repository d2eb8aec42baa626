// Package history persists run and step outcomes in a local SQLite file.
//
// The store is purely observational: pipeline execution never depends on it,
// and callers treat open/record failures as warnings.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is a recorded pipeline invocation.
type Run struct {
	ID          string
	Command     string
	Status      string
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
	Steps       []StepRecord
}

// StepRecord is the outcome of a single pipeline step.
type StepRecord struct {
	Seq      int
	Name     string
	Status   string
	Error    string
	Duration time.Duration
}

// Store wraps the SQLite history database.
type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	command      TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS run_steps (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);
`

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records the start of a run.
func (s *Store) CreateRun(id, command string) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, command, time.Now().UTC(),
	)
	return err
}

// RecordStep records a single step outcome for a run.
func (s *Store) RecordStep(runID string, seq int, name, status, errMsg string, d time.Duration) error {
	_, err := s.db.Exec(
		`INSERT INTO run_steps (run_id, seq, name, status, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, seq, name, status, errMsg, d.Milliseconds(),
	)
	return err
}

// CompleteRun marks a run finished with the given status.
func (s *Store) CompleteRun(id, status, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id,
	)
	return err
}

// Runs returns all recorded runs, most recent first, without step detail.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, command, status, error, started_at, completed_at
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var completed sql.NullTime
		if err := rows.Scan(&r.ID, &r.Command, &r.Status, &r.Error, &r.StartedAt, &completed); err != nil {
			return nil, err
		}
		if completed.Valid {
			r.CompletedAt = completed.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunByID returns a run with its step records, or nil if not found.
func (s *Store) RunByID(id string) (*Run, error) {
	var r Run
	var completed sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, command, status, error, started_at, completed_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Command, &r.Status, &r.Error, &r.StartedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		r.CompletedAt = completed.Time
	}

	steps, err := s.stepsForRun(id)
	if err != nil {
		return nil, err
	}
	r.Steps = steps
	return &r, nil
}

// LastRun returns the most recent run with step detail, or nil if the
// history is empty.
func (s *Store) LastRun() (*Run, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.RunByID(id)
}

func (s *Store) stepsForRun(runID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT seq, name, status, error, duration_ms FROM run_steps WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		var durationMs int64
		if err := rows.Scan(&rec.Seq, &rec.Name, &rec.Status, &rec.Error, &durationMs); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}
