// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize reshapes raw Crossref and OpenAlex records into a flat,
// stable shape: snake_case keys, single-valued titles, joined ISSNs, and ISO
// dates in place of date-parts objects.
//
// The transform is pure and recursive over the three value kinds. All
// per-field behavior lives in one rule table (see RuleFor).
package normalize

import (
	"sort"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// Record normalizes one raw record.
func Record(raw types.RawRecord) types.Record {
	return types.Record(mapping(raw))
}

// Value normalizes any decoded JSON value. Mappings are rewritten key by
// key, sequences element by element in order, and scalars are returned
// unchanged.
func Value(v any) any {
	switch types.KindOf(v) {
	case types.KindMapping:
		m, _ := types.Mapping(v)
		return mapping(m)
	case types.KindSequence:
		return sequence(v.([]any))
	default:
		return v
	}
}

// mapping rewrites m key by key. When two raw keys normalize to the same
// key ("DOI" and "doi"), the raw key that sorts first wins.
func mapping(m map[string]any) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		nk := Key(k)
		if _, taken := out[nk]; taken {
			continue
		}
		v := m[k]
		if r, ok := rules[k]; ok && r.Collapse != nil {
			v = r.Collapse(v)
		}
		out[nk] = Value(v)
	}
	return out
}

func sequence(list []any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = Value(v)
	}
	return out
}
