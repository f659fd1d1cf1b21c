// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholar-snapshot/internal/ledger"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List past pipeline runs from the ledger",
	Long: `Runs lists recorded transform and classify runs, newest first, with their
shard and record totals. Given a run ID it lists that run's shards instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	lc := ledgerConfig()
	if lc.Path == "" {
		return fmt.Errorf("the ledger is disabled: set --ledger")
	}
	store, err := ledger.Open(lc, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	format := viper.GetString("runs.format")
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		shards, err := store.ListShards(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeFormatted(w, format, shards, func() { formatShardTable(w, shards) })
	}

	runs, err := store.ListRuns(cmd.Context(), ledger.ListOptions{
		Limit:    viper.GetInt("runs.limit"),
		Pipeline: viper.GetString("runs.pipeline"),
	})
	if err != nil {
		return err
	}
	return writeFormatted(w, format, runs, func() { formatRunTable(w, runs) })
}

func writeFormatted(w io.Writer, format string, v any, table func()) error {
	switch format {
	case "table", "":
		table()
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q: use table, json, or yaml", format)
	}
}

func formatRunTable(w io.Writer, runs []ledger.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-9s  %-9s  %-20s  %-17s  %s\n",
		"Run", "Pipeline", "Status", "Started", "Shards (ok/fail)", "Records (in/out)")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, r := range runs {
		shards := fmt.Sprintf("%d (%d/%d)", r.Shards, r.Done, r.Failed)
		records := fmt.Sprintf("%d/%d", r.Read, r.Written)
		fmt.Fprintf(w, "%-36s  %-9s  %-9s  %-20s  %-17s  %s\n",
			r.ID, r.Pipeline, r.Status, r.StartedAt.Local().Format(time.DateTime), shards, records)
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func formatShardTable(w io.Writer, shards []ledger.ShardRecord) {
	if len(shards) == 0 {
		fmt.Fprintln(w, "No shards recorded for this run.")
		return
	}

	fmt.Fprintf(w, "%-30s  %-9s  %-8s  %-8s  %-10s  %s\n",
		"Input", "Status", "Read", "Written", "Duration", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, s := range shards {
		input := s.Input
		if len(input) > 30 {
			input = "..." + input[len(input)-27:]
		}
		fmt.Fprintf(w, "%-30s  %-9s  %-8d  %-8d  %-10s  %s\n",
			input, s.Status, s.Read, s.Written, s.Duration.Round(time.Millisecond), s.Error)
	}
}

func init() {
	runsCmd.Flags().Int("limit", ledger.DefaultLimit, "maximum runs to list")
	runsCmd.Flags().String("pipeline", "", "only list runs of this pipeline: transform or classify")
	runsCmd.Flags().String("format", "table", "output format: table, json, or yaml")
	bindFlags("runs", runsCmd.Flags())

	rootCmd.AddCommand(runsCmd)
}
