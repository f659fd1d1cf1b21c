// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the record, classification, and configuration types
// shared by the snapshot pipeline stages.
package types

// RawRecord is one JSON object decoded from a snapshot shard. Its values are
// scalars (string, json.Number, bool, nil), nested mappings
// (map[string]any), or sequences ([]any). Keys and nesting vary by source.
type RawRecord map[string]any

// Record is a normalized record: snake_case keys, collapsed titles and
// ISSNs, and ISO-8601 date strings in place of Crossref date-parts.
type Record map[string]any

// Kind tags the three shapes a decoded JSON value can take.
type Kind int

const (
	KindScalar Kind = iota
	KindMapping
	KindSequence
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// KindOf reports the shape of v.
func KindOf(v any) Kind {
	switch v.(type) {
	case map[string]any, RawRecord, Record:
		return KindMapping
	case []any:
		return KindSequence
	default:
		return KindScalar
	}
}

// Mapping returns v as a plain map when it is any of the mapping types.
func Mapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawRecord:
		return m, true
	case Record:
		return m, true
	}
	return nil, false
}
