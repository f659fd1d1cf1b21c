// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// DefaultLimit caps ListRuns when ListOptions.Limit is not set.
const DefaultLimit = 20

// ListOptions filters ListRuns.
type ListOptions struct {
	// Limit caps the number of runs returned, newest first.
	Limit int

	// Pipeline restricts results to one pipeline name when non-empty.
	Pipeline string
}

// RunSummary is one run with its shard totals.
type RunSummary struct {
	ID            string              `json:"id" yaml:"id"`
	Pipeline      string              `json:"pipeline" yaml:"pipeline"`
	SourceDir     string              `json:"source_dir" yaml:"source_dir"`
	DestDir       string              `json:"dest_dir" yaml:"dest_dir"`
	Workers       int                 `json:"workers" yaml:"workers"`
	FailurePolicy types.FailurePolicy `json:"failure_policy" yaml:"failure_policy"`
	Status        RunStatus           `json:"status" yaml:"status"`
	Error         string              `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt     time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Shards        int                 `json:"shards" yaml:"shards"`
	Done          int                 `json:"done" yaml:"done"`
	Failed        int                 `json:"failed" yaml:"failed"`
	Cancelled     int                 `json:"cancelled" yaml:"cancelled"`
	Read          int                 `json:"records_read" yaml:"records_read"`
	Written       int                 `json:"records_written" yaml:"records_written"`
}

// ShardRecord is a stored shard outcome.
type ShardRecord struct {
	Input    string            `json:"input" yaml:"input"`
	Output   string            `json:"output" yaml:"output"`
	Status   types.ShardStatus `json:"status" yaml:"status"`
	Read     int               `json:"records_read" yaml:"records_read"`
	Written  int               `json:"records_written" yaml:"records_written"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// ListRuns returns runs newest first with aggregated shard counts.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := sq.Select(
		"r.id", "r.pipeline", "r.source_dir", "r.dest_dir", "r.workers", "r.failure_policy",
		"r.status", "r.error", "r.started_at", "r.finished_at",
		"COUNT(s.rowid)",
		statusCount(types.ShardDone),
		statusCount(types.ShardFailed),
		statusCount(types.ShardCancelled),
		"COALESCE(SUM(s.records_read), 0)",
		"COALESCE(SUM(s.records_written), 0)",
	).
		From("runs r").
		LeftJoin("shards s ON s.run_id = r.id").
		GroupBy("r.id").
		OrderBy("r.started_at DESC", "r.rowid DESC").
		Limit(uint64(limit))
	if opts.Pipeline != "" {
		q = q.Where(sq.Eq{"r.pipeline": opts.Pipeline})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r                RunSummary
			runErr, finished sql.NullString
			started, policy  string
			status           string
		)
		if err := rows.Scan(
			&r.ID, &r.Pipeline, &r.SourceDir, &r.DestDir, &r.Workers, &policy,
			&status, &runErr, &started, &finished,
			&r.Shards, &r.Done, &r.Failed, &r.Cancelled, &r.Read, &r.Written,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.FailurePolicy = types.FailurePolicy(policy)
		r.Status = RunStatus(status)
		r.Error = runErr.String
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: parsing start time: %w", r.ID, err)
		}
		if finished.Valid {
			t, err := time.Parse(timeLayout, finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: parsing finish time: %w", r.ID, err)
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListShards returns the shard outcomes of one run in input order.
func (s *Store) ListShards(ctx context.Context, runID string) ([]ShardRecord, error) {
	query, args, err := sq.Select("input", "output", "status", "records_read", "records_written", "duration_ms", "error").
		From("shards").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("input").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building shard query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying shards: %w", err)
	}
	defer rows.Close()

	var shards []ShardRecord
	for rows.Next() {
		var (
			sh       ShardRecord
			status   string
			ms       int64
			shardErr sql.NullString
		)
		if err := rows.Scan(&sh.Input, &sh.Output, &status, &sh.Read, &sh.Written, &ms, &shardErr); err != nil {
			return nil, fmt.Errorf("scanning shard: %w", err)
		}
		sh.Status = types.ShardStatus(status)
		sh.Duration = time.Duration(ms) * time.Millisecond
		sh.Error = shardErr.String
		shards = append(shards, sh)
	}
	return shards, rows.Err()
}

func statusCount(status types.ShardStatus) string {
	return fmt.Sprintf("COALESCE(SUM(CASE WHEN s.status = '%s' THEN 1 ELSE 0 END), 0)", status)
}
