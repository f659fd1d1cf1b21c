// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process fans a per-shard transform out across a bounded worker
// pool. Every regular file in the source directory becomes one task that
// reads the shard, runs each record through a Pipeline, and writes one
// output shard named after the input.
//
// Shards share no state and finish in no particular order. Within a shard,
// output order follows input order.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/scholar-snapshot/internal/shard"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// DefaultSuffix is appended to each input base name to form its output name,
// so "0001.json" becomes "0001.jsonl.gz".
const DefaultSuffix = "l.gz"

// ShardError is a failure of one shard task.
type ShardError struct {
	Path string
	Err  error
}

func (e *ShardError) Error() string { return fmt.Sprintf("shard %s: %v", e.Path, e.Err) }

func (e *ShardError) Unwrap() error { return e.Err }

// Recorder receives each shard outcome as soon as its task ends. It is
// called from worker goroutines and must be safe for concurrent use.
type Recorder interface {
	RecordShard(ctx context.Context, outcome types.ShardOutcome) error
}

// Summary lists the outcome of every shard in input-name order.
type Summary struct {
	Shards []types.ShardOutcome
}

// Count returns how many shards ended with status.
func (s Summary) Count(status types.ShardStatus) int {
	n := 0
	for _, o := range s.Shards {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Records returns the total records read and written across shards.
func (s Summary) Records() (read, written int) {
	for _, o := range s.Shards {
		read += o.Read
		written += o.Written
	}
	return read, written
}

// Processor runs one Pipeline over every shard in a directory.
type Processor struct {
	cfg      types.ProcessConfig
	pipeline Pipeline
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the structured logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithRecorder reports every shard outcome to r.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// Defaults validates cfg and fills in Workers, Suffix, and FailurePolicy.
func Defaults(cfg types.ProcessConfig) (types.ProcessConfig, error) {
	if cfg.SourceDir == "" {
		return cfg, errors.New("source directory is required")
	}
	if cfg.DestDir == "" {
		return cfg, errors.New("destination directory is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Suffix == "" {
		cfg.Suffix = DefaultSuffix
	}
	switch cfg.FailurePolicy {
	case "":
		cfg.FailurePolicy = types.FailFast
	case types.FailFast, types.ContinueOnError:
	default:
		return cfg, fmt.Errorf("unknown failure policy %q: use %s or %s", cfg.FailurePolicy, types.FailFast, types.ContinueOnError)
	}
	return cfg, nil
}

// New returns a Processor for cfg after applying Defaults.
func New(cfg types.ProcessConfig, pipeline Pipeline, opts ...Option) (*Processor, error) {
	cfg, err := Defaults(cfg)
	if err != nil {
		return nil, err
	}
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	p := &Processor{cfg: cfg, pipeline: pipeline, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the effective configuration after defaults.
func (p *Processor) Config() types.ProcessConfig { return p.cfg }

// OutputPath returns the output shard path for an input shard.
func (p *Processor) OutputPath(input string) string {
	return filepath.Join(p.cfg.DestDir, filepath.Base(input)+p.cfg.Suffix)
}

// Run processes every shard and blocks until all tasks end.
//
// Under FailFast the first failure cancels the rest. Queued shards are not
// started and running shards stop at their next record; neither leaves an
// output file. Run returns that first failure as a *ShardError.
//
// Under ContinueOnError every shard runs to completion and Run returns all
// failures combined (see multierr.Errors).
//
// The Summary is complete in both cases.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	inputs, err := p.inputs()
	if err != nil {
		return Summary{}, err
	}
	if err := os.MkdirAll(p.cfg.DestDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating destination directory: %w", err)
	}

	p.logger.Info("processing shards",
		zap.String("pipeline", p.pipeline.Name()),
		zap.String("source", p.cfg.SourceDir),
		zap.String("dest", p.cfg.DestDir),
		zap.Int("shards", len(inputs)),
		zap.Int("workers", p.cfg.Workers),
		zap.String("failure_policy", string(p.cfg.FailurePolicy)))

	failFast := p.cfg.FailurePolicy == types.FailFast
	g, gctx := errgroup.WithContext(ctx)
	if !failFast {
		g, gctx = &errgroup.Group{}, ctx
	}
	g.SetLimit(p.cfg.Workers)

	outcomes := make([]types.ShardOutcome, len(inputs))
	var (
		mu     sync.Mutex
		failed error
	)

	for i, in := range inputs {
		g.Go(func() error {
			o := p.processShard(gctx, in)
			outcomes[i] = o
			p.report(ctx, o)

			if o.Status != types.ShardFailed {
				return nil
			}
			shardErr := &ShardError{Path: in, Err: o.Err}
			if failFast {
				return shardErr
			}
			mu.Lock()
			failed = multierr.Append(failed, shardErr)
			mu.Unlock()
			return nil
		})
	}

	err = g.Wait()
	if !failFast {
		err = failed
	}
	if err == nil {
		err = ctx.Err()
	}
	return Summary{Shards: outcomes}, err
}

// inputs lists the regular files directly inside the source directory.
func (p *Processor) inputs() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", p.cfg.SourceDir, err)
	}
	var paths []string
	for _, e := range entries {
		path := filepath.Join(p.cfg.SourceDir, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func (p *Processor) processShard(ctx context.Context, input string) types.ShardOutcome {
	start := time.Now()
	o := types.ShardOutcome{Input: input, Output: p.OutputPath(input)}
	finish := func(status types.ShardStatus, err error) types.ShardOutcome {
		o.Status, o.Err, o.Duration = status, err, time.Since(start)
		return o
	}

	if err := ctx.Err(); err != nil {
		return finish(types.ShardCancelled, err)
	}

	var records []types.Record
	for raw, err := range shard.Records(input) {
		if err != nil {
			return finish(types.ShardFailed, err)
		}
		if err := ctx.Err(); err != nil {
			return finish(types.ShardCancelled, err)
		}
		o.Read++
		rec, keep, err := p.pipeline.Apply(ctx, raw)
		if err != nil && ctx.Err() != nil {
			return finish(types.ShardCancelled, ctx.Err())
		}
		if err != nil {
			return finish(types.ShardFailed, fmt.Errorf("record %d: %w", o.Read, err))
		}
		if keep {
			records = append(records, rec)
		}
	}

	if err := shard.Write(o.Output, records); err != nil {
		return finish(types.ShardFailed, err)
	}
	o.Written = len(records)
	return finish(types.ShardDone, nil)
}

func (p *Processor) report(ctx context.Context, o types.ShardOutcome) {
	fields := []zap.Field{
		zap.String("input", o.Input),
		zap.String("status", string(o.Status)),
		zap.Int("read", o.Read),
		zap.Int("written", o.Written),
		zap.Duration("duration", o.Duration),
	}
	switch o.Status {
	case types.ShardFailed:
		p.logger.Error("shard failed", append(fields, zap.Error(o.Err))...)
	case types.ShardCancelled:
		p.logger.Warn("shard cancelled", fields...)
	default:
		p.logger.Info("shard done", append(fields, zap.String("output", o.Output))...)
	}

	if p.recorder == nil {
		return
	}
	// Record with the caller's context so cancelled shards are still logged.
	if err := p.recorder.RecordShard(context.WithoutCancel(ctx), o); err != nil {
		p.logger.Warn("recording shard outcome", zap.String("input", o.Input), zap.Error(err))
	}
}
