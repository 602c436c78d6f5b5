// Package history records run summaries in a SQLite database so later runs
// can report deltas ("newly passing", "new failure") against the previous
// run, and the CLI can list recent runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valerio/go-emutest/emutest"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	total INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	errored INTEGER NOT NULL,
	updated INTEGER NOT NULL,
	missing_baseline INTEGER NOT NULL,
	unresolved INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	candidate_id TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// Store is a run-history database. Safe for use from a single process; runs
// are recorded after aggregation, never from worker goroutines.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// the schema. Use ":memory:" for a throwaway store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordRun stores a summary and its per-candidate results as one run.
func (s *Store) RecordRun(ctx context.Context, startedAt time.Time, summary *emutest.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, total, passed, failed, errored, updated,
			missing_baseline, unresolved, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339),
		summary.Total, summary.Passed, summary.Failed, summary.Errored,
		summary.Updated, summary.MissingBaseline, summary.Unresolved,
		summary.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, candidate_id, status, detail, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range summary.Results {
		if _, err := stmt.ExecContext(ctx,
			runID, r.Candidate.ID, r.Status(), r.Detail(), r.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("failed to record result for %q: %w", r.Candidate.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history transaction: %w", err)
	}
	return nil
}

// LatestOutcomes returns candidate id → status from the most recent recorded
// run, or an empty map when no run exists yet.
func (s *Store) LatestOutcomes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id, status FROM results
		 WHERE run_id = (SELECT MAX(id) FROM runs)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make(map[string]string)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes[id] = status
	}
	return outcomes, rows.Err()
}

// RunInfo is one row of the runs table.
type RunInfo struct {
	ID              int64
	StartedAt       time.Time
	Total           int
	Passed          int
	Failed          int
	Errored         int
	Updated         int
	MissingBaseline int
	Unresolved      int
	Duration        time.Duration
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, total, passed, failed, errored, updated,
			missing_baseline, unresolved, duration_ms
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&info.ID, &startedAt, &info.Total, &info.Passed,
			&info.Failed, &info.Errored, &info.Updated, &info.MissingBaseline,
			&info.Unresolved, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
		}
		info.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, info)
	}
	return runs, rows.Err()
}
