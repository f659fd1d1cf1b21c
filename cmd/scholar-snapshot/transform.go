// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-snapshot/internal/filter"
	"github.com/pdiddy/scholar-snapshot/internal/process"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

const dateLayout = "2006-01-02"

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Normalize Crossref shards and keep recent journal articles",
	Long: `Transform reads every shard in --source, normalizes each record (lowercase
identifier keys, collapsed titles and ISSNs, YYYY-MM-DD dates, underscored
keys), and keeps records whose type matches --type and whose issued date is
on or after --cutoff. Each input shard produces one gzip JSON Lines shard in
--dest.`,
	RunE: runTransform,
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg, err := processConfig("transform")
	if err != nil {
		return err
	}
	fc, err := filterConfig()
	if err != nil {
		return err
	}
	return runPipeline(cmd, process.NewFilterPipeline(filter.New(fc)), cfg)
}

func filterConfig() (types.FilterConfig, error) {
	fc := types.FilterConfig{Type: viper.GetString("transform.type")}
	if s := viper.GetString("transform.cutoff"); s != "" {
		cutoff, err := time.Parse(dateLayout, s)
		if err != nil {
			return fc, fmt.Errorf("invalid --cutoff %q: want YYYY-MM-DD", s)
		}
		fc.Cutoff = cutoff
	}
	return fc, nil
}

func init() {
	addProcessFlags(transformCmd.Flags())
	transformCmd.Flags().String("type", filter.DefaultType, "record type to keep")
	transformCmd.Flags().String("cutoff", filter.DefaultCutoff.Format(dateLayout), "earliest issued date to keep (YYYY-MM-DD)")
	bindFlags("transform", transformCmd.Flags())

	rootCmd.AddCommand(transformCmd)
}
