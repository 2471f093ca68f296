// Package store records batch runs and their per-artifact outcomes in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/gazeviz/internal/batch"
)

// Item status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded batch run.
type Run struct {
	ID         int64     `json:"id"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}

// Item is one artifact outcome within a run.
type Item struct {
	RunID       int64  `json:"run_id"`
	Participant string `json:"participant"`
	Media       string `json:"media"`
	Artifact    string `json:"artifact"`
	Path        string `json:"path"`
	Status      string `json:"status"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Store is the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the history database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a batch summary and returns the new run ID.
func (s *Store) RecordRun(ctx context.Context, command string, summary batch.Summary) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (command, started_at, finished_at, succeeded, failed) VALUES (?, ?, ?, ?, ?)`,
		command,
		summary.StartedAt.UTC().Format(time.RFC3339Nano),
		summary.FinishedAt.UTC().Format(time.RFC3339Nano),
		summary.Succeeded,
		summary.Failed)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO items (run_id, participant, media, artifact, path, status, error_kind, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range summary.Items {
		for _, a := range item.Artifacts {
			status, kind, msg := StatusOK, sql.NullString{}, sql.NullString{}
			if a.Err != nil {
				status = StatusFailed
				kind = sql.NullString{String: a.ErrorKind(), Valid: true}
				msg = sql.NullString{String: a.Err.Error(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, runID,
				item.Unit.Participant, item.Unit.Media, a.Kind, a.Path, status, kind, msg); err != nil {
				return 0, fmt.Errorf("failed to insert item %s %s: %w", item.Unit.Key(), a.Kind, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, started_at, finished_at, succeeded, failed
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Command, &started, &finished, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ItemsForRun returns the artifact outcomes recorded for a run.
func (s *Store) ItemsForRun(ctx context.Context, runID int64) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, participant, media, artifact, path, status, error_kind, error
		 FROM items WHERE run_id = ? ORDER BY participant, media, artifact`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var kind, msg sql.NullString
		if err := rows.Scan(&it.RunID, &it.Participant, &it.Media, &it.Artifact, &it.Path, &it.Status, &kind, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.ErrorKind, it.Error = kind.String, msg.String
		out = append(out, it)
	}
	return out, rows.Err()
}
