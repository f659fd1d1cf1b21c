// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify scores normalized records with a binary document-type
// classifier (research vs. editorial discourse).
//
// The Adapter derives a FeatureVector from a record and hands it to an
// injected Classifier. Two Classifier implementations ship with the package:
// Model, a logistic regression loaded from a YAML file, and RemoteModel,
// which calls an HTTP scoring service.
package classify

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// Threshold is the positive-class probability at or above which a record
// is labeled research discourse.
const Threshold = 0.5

var (
	// ErrSchemaMismatch is returned when a classifier was built for a
	// different feature layout than FeatureSchema.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrBadProbabilities is returned when a classifier yields something
	// other than two class probabilities in [0, 1].
	ErrBadProbabilities = errors.New("malformed class probabilities")
)

// Classifier returns class probabilities for a feature vector, as
// [p_editorial, p_research]. Implementations are shared across worker
// goroutines and must be safe for concurrent use.
type Classifier interface {
	// FeatureSchema names the feature layout the classifier was trained on.
	FeatureSchema() string

	PredictProba(ctx context.Context, fv FeatureVector) ([]float64, error)
}

// Label maps a positive-class probability to a label.
func Label(p float64) types.Label {
	if p >= Threshold {
		return types.LabelResearch
	}
	return types.LabelEditorial
}

// Adapter extracts features from records of one source and classifies them.
type Adapter struct {
	fields     FieldMap
	classifier Classifier
}

// NewAdapter returns an Adapter for records from source. It fails when the
// classifier's feature schema differs from FeatureSchema.
func NewAdapter(source Source, c Classifier) (*Adapter, error) {
	if c == nil {
		return nil, errors.New("classifier is required")
	}
	fields, err := FieldMapFor(source)
	if err != nil {
		return nil, err
	}
	if got := c.FeatureSchema(); got != FeatureSchema {
		return nil, fmt.Errorf("%w: classifier expects %q, extractor produces %q", ErrSchemaMismatch, got, FeatureSchema)
	}
	return &Adapter{fields: fields, classifier: c}, nil
}

// Score classifies one record.
func (a *Adapter) Score(ctx context.Context, rec types.Record) (types.Classification, error) {
	fv, err := a.fields.Extract(rec)
	if err != nil {
		return types.Classification{}, fmt.Errorf("extracting features: %w", err)
	}
	probs, err := a.classifier.PredictProba(ctx, fv)
	if err != nil {
		return types.Classification{}, fmt.Errorf("classifier: %w", err)
	}
	if len(probs) != 2 {
		return types.Classification{}, fmt.Errorf("%w: got %d classes, want 2", ErrBadProbabilities, len(probs))
	}
	p := probs[1]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return types.Classification{}, fmt.Errorf("%w: positive class probability %v", ErrBadProbabilities, p)
	}
	return types.Classification{Probability: p, Label: Label(p)}, nil
}

// Classify returns the output record for rec: its identifier, label, and
// positive-class probability.
func (a *Adapter) Classify(ctx context.Context, rec types.Record) (types.Record, error) {
	c, err := a.Score(ctx, rec)
	if err != nil {
		return nil, err
	}
	return types.Record{
		a.fields.IDKey: a.fields.Identifier(rec),
		"label":        string(c.Label),
		"proba":        c.Probability,
	}, nil
}
