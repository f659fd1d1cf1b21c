// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records pipeline runs and their shard outcomes in a SQLite
// database so past runs can be listed and audited.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// RunStatus is the state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the ledger database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the ledger database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.LedgerConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("ledger path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Shard outcomes arrive from many workers; one connection serializes writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			pipeline TEXT NOT NULL,
			source_dir TEXT NOT NULL,
			dest_dir TEXT NOT NULL,
			workers INTEGER NOT NULL,
			failure_policy TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS shards (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			status TEXT NOT NULL,
			records_read INTEGER NOT NULL,
			records_written INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shards_run_id ON shards(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Run is one in-progress pipeline run. It implements process.Recorder.
type Run struct {
	ID        string
	Pipeline  string
	StartedAt time.Time

	store *Store
}

// StartRun inserts a new run in the running state and returns it.
func (s *Store) StartRun(ctx context.Context, pipeline string, cfg types.ProcessConfig) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Pipeline:  pipeline,
		StartedAt: time.Now().UTC(),
		store:     s,
	}
	query, args, err := sq.Insert("runs").
		Columns("id", "pipeline", "source_dir", "dest_dir", "workers", "failure_policy", "status", "started_at").
		Values(run.ID, pipeline, cfg.SourceDir, cfg.DestDir, cfg.Workers, string(cfg.FailurePolicy), string(RunRunning), run.StartedAt.Format(timeLayout)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	s.logger.Debug("run started", zap.String("run_id", run.ID), zap.String("pipeline", pipeline))
	return run, nil
}

// RecordShard stores one shard outcome under the run.
func (r *Run) RecordShard(ctx context.Context, o types.ShardOutcome) error {
	query, args, err := sq.Insert("shards").
		Columns("run_id", "input", "output", "status", "records_read", "records_written", "duration_ms", "error").
		Values(r.ID, o.Input, o.Output, string(o.Status), o.Read, o.Written, o.Duration.Milliseconds(), nullString(o.ErrorText())).
		ToSql()
	if err != nil {
		return fmt.Errorf("building shard insert: %w", err)
	}
	if _, err := r.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting shard %s: %w", o.Input, err)
	}
	return nil
}

// Finish marks the run succeeded when runErr is nil and failed otherwise.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	status, msg := RunSucceeded, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	query, args, err := sq.Update("runs").
		Set("status", string(status)).
		Set("error", nullString(msg)).
		Set("finished_at", time.Now().UTC().Format(timeLayout)).
		Where(sq.Eq{"id": r.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building run update: %w", err)
	}
	res, err := r.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", r.ID)
	}
	r.store.logger.Debug("run finished", zap.String("run_id", r.ID), zap.String("status", string(status)))
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
