// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"fmt"
	"math"
	"os"

	"go.yaml.in/yaml/v3"
)

// Model is a logistic-regression classifier over FeatureVector. It is
// immutable after loading and safe to share across goroutines.
type Model struct {
	// Schema must equal FeatureSchema.
	Schema string `yaml:"schema"`

	// Features repeats the column names the model was trained on, in order.
	Features []string `yaml:"features"`

	Intercept    float64   `yaml:"intercept"`
	Coefficients []float64 `yaml:"coefficients"`
}

// LoadModel reads and validates a YAML model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks that the model matches the current feature layout
// column for column.
func (m *Model) Validate() error {
	if m.Schema != FeatureSchema {
		return fmt.Errorf("%w: model schema %q, want %q", ErrSchemaMismatch, m.Schema, FeatureSchema)
	}
	if len(m.Features) != FeatureCount {
		return fmt.Errorf("%w: model has %d features, want %d", ErrSchemaMismatch, len(m.Features), FeatureCount)
	}
	for i, name := range m.Features {
		if name != FeatureNames[i] {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrSchemaMismatch, i, name, FeatureNames[i])
		}
	}
	if len(m.Coefficients) != FeatureCount {
		return fmt.Errorf("model has %d coefficients, want %d", len(m.Coefficients), FeatureCount)
	}
	return nil
}

// FeatureSchema implements Classifier.
func (m *Model) FeatureSchema() string { return m.Schema }

// PredictProba implements Classifier.
func (m *Model) PredictProba(_ context.Context, fv FeatureVector) ([]float64, error) {
	z := m.Intercept
	for i, x := range fv {
		z += m.Coefficients[i] * x
	}
	p := 1 / (1 + math.Exp(-z))
	return []float64{1 - p, p}, nil
}
