// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"context"
	"errors"

	"github.com/pdiddy/scholar-snapshot/internal/classify"
	"github.com/pdiddy/scholar-snapshot/internal/filter"
	"github.com/pdiddy/scholar-snapshot/internal/normalize"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// Pipeline turns one raw record into zero or one output records. A
// Processor runs exactly one Pipeline, so filtering and classification are
// never combined in a single run.
type Pipeline interface {
	// Name identifies the pipeline in logs and the run ledger.
	Name() string

	// Apply returns the output record and whether to keep it. An error
	// fails the whole shard.
	Apply(ctx context.Context, raw types.RawRecord) (types.Record, bool, error)
}

// FilterPipeline normalizes records and keeps those the filter accepts.
type FilterPipeline struct {
	filter *filter.Filter
}

// NewFilterPipeline returns a FilterPipeline using f.
func NewFilterPipeline(f *filter.Filter) *FilterPipeline {
	return &FilterPipeline{filter: f}
}

// Name implements Pipeline.
func (p *FilterPipeline) Name() string { return "transform" }

// Apply implements Pipeline.
func (p *FilterPipeline) Apply(_ context.Context, raw types.RawRecord) (types.Record, bool, error) {
	rec, keep := p.filter.Apply(normalize.Record(raw))
	return rec, keep, nil
}

// ClassifyPipeline normalizes records and replaces each with its
// identifier, label, and probability.
type ClassifyPipeline struct {
	adapter *classify.Adapter
}

// NewClassifyPipeline returns a ClassifyPipeline using a.
func NewClassifyPipeline(a *classify.Adapter) *ClassifyPipeline {
	return &ClassifyPipeline{adapter: a}
}

// Name implements Pipeline.
func (p *ClassifyPipeline) Name() string { return "classify" }

// Apply implements Pipeline.
func (p *ClassifyPipeline) Apply(ctx context.Context, raw types.RawRecord) (types.Record, bool, error) {
	if p.adapter == nil {
		return nil, false, errors.New("classify pipeline has no adapter")
	}
	rec, err := p.adapter.Classify(ctx, normalize.Record(raw))
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
