// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"strings"
)

// Collapse rewrites a field value before the normalizer recurses into it.
type Collapse func(v any) any

// Rule is the rewrite applied to one raw field name. The rename happens
// first, then the collapse, then hyphens become underscores.
type Rule struct {
	// Rename replaces the raw key. Empty keeps it.
	Rename string

	// Collapse rewrites the value. Nil keeps it.
	Collapse Collapse
}

// DateFields lists the keys that carry Crossref date-parts objects.
var DateFields = []string{
	"approved",
	"created",
	"content-created",
	"content-updated",
	"deposited",
	"indexed",
	"issued",
	"posted",
	"accepted",
	"published",
	"published-print",
	"published-online",
	"role-start",
	"role-end",
	"updated",
	"award-start",
	"award-planned-end",
	"award-end",
	"start",
	"end",
}

var rules = buildRules()

func buildRules() map[string]Rule {
	r := map[string]Rule{
		"DOI":             {Rename: "doi"},
		"URL":             {Rename: "url"},
		"ISBN":            {Rename: "isbn"},
		"ORCID":           {Rename: "orcid"},
		"ISSN":            {Rename: "issn", Collapse: DedupJoin},
		"archive":         {Collapse: DedupJoin},
		"title":           {Collapse: First},
		"container-title": {Collapse: First},
	}
	for _, k := range DateFields {
		r[k] = Rule{Collapse: DateParts}
	}
	return r
}

// RuleFor returns the rule registered for a raw key.
func RuleFor(key string) (Rule, bool) {
	r, ok := rules[key]
	return r, ok
}

// Key returns the normalized form of a raw key: renamed if a rule says so,
// with hyphens replaced by underscores.
func Key(raw string) string {
	if r, ok := rules[raw]; ok && r.Rename != "" {
		raw = r.Rename
	}
	return strings.ReplaceAll(raw, "-", "_")
}

// First collapses a non-empty list to its first element. Anything else is
// returned unchanged.
func First(v any) any {
	if list, ok := v.([]any); ok && len(list) > 0 {
		return list[0]
	}
	return v
}

// DedupJoin collapses a list to a comma-joined string of its distinct
// elements. Callers must not rely on element order; this implementation
// keeps first-occurrence order. Nil elements are dropped and non-lists are
// returned unchanged.
func DedupJoin(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	seen := make(map[string]bool, len(list))
	parts := make([]string, 0, len(list))
	for _, e := range list {
		if e == nil {
			continue
		}
		s, ok := e.(string)
		if !ok {
			s = fmt.Sprint(e)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	return strings.Join(parts, ",")
}
