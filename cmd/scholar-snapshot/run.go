// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/scholar-snapshot/internal/ledger"
	"github.com/pdiddy/scholar-snapshot/internal/process"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

const defaultLedgerPath = ".scholar-snapshot/ledger.db"

// addProcessFlags registers the flags shared by the pipeline subcommands.
func addProcessFlags(fs *pflag.FlagSet) {
	fs.String("source", "", "directory of input shards")
	fs.String("dest", "", "directory for output shards (created if missing)")
	fs.Int("workers", 0, "worker pool size (0 = number of CPUs)")
	fs.String("suffix", process.DefaultSuffix, "suffix appended to each input name to form its output name")
	fs.Bool("continue-on-error", false, "process every shard and report all failures instead of stopping at the first")
}

// processConfig resolves the shared pipeline settings for section.
func processConfig(section string) (types.ProcessConfig, error) {
	cfg := types.ProcessConfig{
		SourceDir:     viper.GetString(section + ".source"),
		DestDir:       viper.GetString(section + ".dest"),
		Workers:       viper.GetInt(section + ".workers"),
		Suffix:        viper.GetString(section + ".suffix"),
		FailurePolicy: types.FailFast,
	}
	if viper.GetBool(section + ".continue-on-error") {
		cfg.FailurePolicy = types.ContinueOnError
	}
	if cfg.SourceDir == "" {
		return cfg, fmt.Errorf("--source is required")
	}
	if cfg.DestDir == "" {
		return cfg, fmt.Errorf("--dest is required")
	}
	return cfg, nil
}

func ledgerConfig() types.LedgerConfig {
	return types.LedgerConfig{Path: viper.GetString("ledger.path")}
}

// runPipeline runs pipeline over every shard, records the run in the
// ledger, and prints a summary. A ledger that cannot be opened is logged
// and skipped.
func runPipeline(cmd *cobra.Command, pipeline process.Pipeline, cfg types.ProcessConfig) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := process.Defaults(cfg)
	if err != nil {
		return err
	}

	opts := []process.Option{process.WithLogger(logger)}
	run, closeLedger := startRun(ctx, pipeline.Name(), cfg)
	defer closeLedger()
	if run != nil {
		opts = append(opts, process.WithRecorder(run))
	}

	p, err := process.New(cfg, pipeline, opts...)
	if err != nil {
		return err
	}

	summary, runErr := p.Run(ctx)
	printSummary(cmd.OutOrStdout(), summary)

	if run != nil {
		if err := run.Finish(context.WithoutCancel(ctx), runErr); err != nil {
			logger.Warn("recording run result", zap.String("run_id", run.ID), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run: %s\n", run.ID)
	}
	return runErr
}

// startRun opens the ledger and records a new run. It returns a nil run
// when the ledger is disabled or unusable.
func startRun(ctx context.Context, pipeline string, cfg types.ProcessConfig) (*ledger.Run, func()) {
	lc := ledgerConfig()
	if lc.Path == "" {
		return nil, func() {}
	}

	store, err := ledger.Open(lc, logger)
	if err != nil {
		logger.Warn("ledger unavailable, run will not be recorded", zap.String("path", lc.Path), zap.Error(err))
		return nil, func() {}
	}
	run, err := store.StartRun(ctx, pipeline, cfg)
	if err != nil {
		logger.Warn("ledger unavailable, run will not be recorded", zap.String("path", lc.Path), zap.Error(err))
		store.Close()
		return nil, func() {}
	}
	return run, func() { store.Close() }
}

func printSummary(w io.Writer, s process.Summary) {
	for _, o := range s.Shards {
		name := filepath.Base(o.Input)
		switch o.Status {
		case types.ShardDone:
			fmt.Fprintf(w, "done      %s -> %s (%d read, %d written)\n", name, o.Output, o.Read, o.Written)
		case types.ShardFailed:
			fmt.Fprintf(w, "failed    %s: %v\n", name, o.Err)
		case types.ShardCancelled:
			fmt.Fprintf(w, "cancelled %s\n", name)
		}
	}

	read, written := s.Records()
	fmt.Fprintf(w, "\nshards: %d, done: %d, failed: %d, cancelled: %d\n",
		len(s.Shards), s.Count(types.ShardDone), s.Count(types.ShardFailed), s.Count(types.ShardCancelled))
	fmt.Fprintf(w, "records read: %d, written: %d\n", read, written)
}
