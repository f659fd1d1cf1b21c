// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/scholar-snapshot/internal/classify"
	"github.com/pdiddy/scholar-snapshot/internal/process"
	"github.com/pdiddy/scholar-snapshot/internal/secrets"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Label records as research or editorial discourse",
	Long: `Classify reads every shard in --source, normalizes each record, extracts the
document-type feature vector, and scores it with a logistic model (--model)
or a remote scoring service (--model-url). Each output record holds the
identifier, the label, and the positive-class probability.

--source-kind selects the field mapping: crossref records are identified by
doi, openalex records by openalex_id.`,
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := processConfig("classify")
	if err != nil {
		return err
	}
	cc, err := classifierConfig()
	if err != nil {
		return err
	}

	c, err := newClassifier(cc)
	if err != nil {
		return err
	}
	adapter, err := classify.NewAdapter(classify.Source(cc.Source), c)
	if err != nil {
		return err
	}
	return runPipeline(cmd, process.NewClassifyPipeline(adapter), cfg)
}

func classifierConfig() (types.ClassifierConfig, error) {
	s, err := secrets.Load(viper.GetString("secrets-dir"), logger)
	if err != nil {
		return types.ClassifierConfig{}, err
	}
	if keys := s.Keys(); len(keys) > 0 {
		logger.Debug("loaded secrets", zap.Strings("keys", keys))
	}

	return types.ClassifierConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    viper.GetDuration("classify.timeout"),
			UserAgent:  "scholar-snapshot/" + version,
			MaxRetries: viper.GetInt("classify.max-retries"),
			APIKey:     s.Get(secrets.ScoringAPIKey, viper.GetString("classify.api-key")),
		},
		Source:    viper.GetString("classify.source-kind"),
		ModelPath: viper.GetString("classify.model"),
		ModelURL:  viper.GetString("classify.model-url"),
	}, nil
}

func newClassifier(cc types.ClassifierConfig) (classify.Classifier, error) {
	switch {
	case cc.ModelPath != "" && cc.ModelURL != "":
		return nil, fmt.Errorf("--model and --model-url are mutually exclusive")
	case cc.ModelPath != "":
		return classify.LoadModel(cc.ModelPath)
	case cc.ModelURL != "":
		return classify.NewRemoteModel(cc.ModelURL, cc.HTTPConfig, logger), nil
	default:
		return nil, fmt.Errorf("a classifier is required: provide --model or --model-url")
	}
}

func init() {
	addProcessFlags(classifyCmd.Flags())
	classifyCmd.Flags().String("source-kind", string(classify.SourceCrossref), "snapshot kind: crossref or openalex")
	classifyCmd.Flags().String("model", "", "YAML logistic-regression model file")
	classifyCmd.Flags().String("model-url", "", "remote scoring endpoint")
	classifyCmd.Flags().Duration("timeout", 30*time.Second, "remote scoring request timeout")
	classifyCmd.Flags().Int("max-retries", 5, "retries on HTTP 429/503 from the scoring endpoint")
	classifyCmd.Flags().String("api-key", "", "scoring endpoint bearer token (default: "+secrets.ScoringAPIKey+" in the secrets directory)")
	bindFlags("classify", classifyCmd.Flags())

	rootCmd.AddCommand(classifyCmd)
}
