// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter implements the legacy inclusion predicate used by
// pipelines that do not classify: keep journal articles issued on or after
// a cutoff date.
package filter

import (
	"time"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// DefaultType is the record type accepted when none is configured.
const DefaultType = "journal-article"

// DefaultCutoff is the earliest issued date accepted when none is configured.
var DefaultCutoff = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)

// Filter keeps records of one type issued on or after a cutoff.
type Filter struct {
	typ    string
	cutoff time.Time
}

// New returns a Filter for cfg, filling in defaults for zero fields.
func New(cfg types.FilterConfig) *Filter {
	f := &Filter{typ: cfg.Type, cutoff: cfg.Cutoff}
	if f.typ == "" {
		f.typ = DefaultType
	}
	if f.cutoff.IsZero() {
		f.cutoff = DefaultCutoff
	}
	return f
}

// Type returns the accepted record type.
func (f *Filter) Type() string { return f.typ }

// Cutoff returns the earliest accepted issued date.
func (f *Filter) Cutoff() time.Time { return f.cutoff }

// Apply returns rec and true when rec has the accepted type and an issued
// date on or after the cutoff. A missing, null, or unparseable issued date
// excludes the record.
func (f *Filter) Apply(rec types.Record) (types.Record, bool) {
	if typ, ok := rec["type"].(string); !ok || typ != f.typ {
		return nil, false
	}
	issued, ok := rec["issued"].(string)
	if !ok {
		return nil, false
	}
	t, err := time.Parse("2006-01-02", issued)
	if err != nil || t.Before(f.cutoff) {
		return nil, false
	}
	return rec, true
}
