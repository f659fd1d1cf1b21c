// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/scholar-snapshot/internal/pagerange"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// FeatureSchema versions the feature vector layout. A model trained on a
// different layout must declare a different schema and is rejected.
const FeatureSchema = "doctype-v1"

// FeatureCount is the length of a FeatureVector.
const FeatureCount = 10

// FeatureNames lists the vector columns in order. The order is part of the
// model contract.
var FeatureNames = [FeatureCount]string{
	"author_count",
	"has_license",
	"is_referenced_by_count",
	"references_count",
	"has_funder",
	"page_count",
	"has_abstract",
	"title_word_length",
	"inst_count",
	"has_oa_url",
}

// FeatureVector is the numeric encoding of one record in FeatureNames order.
type FeatureVector [FeatureCount]float64

// Source identifies which snapshot a record came from.
type Source string

const (
	SourceCrossref Source = "crossref"
	SourceOpenAlex Source = "openalex"
)

// FieldMap maps a source's normalized field names onto the canonical
// features. Each feature lists candidate paths; the first present, non-null
// one is used. Paths may address nested fields with dots ("biblio.first_page").
type FieldMap struct {
	// ID is the identifier path and IDKey the output key it is written under.
	ID    string
	IDKey string

	AuthorCount  []string
	HasLicense   []string
	CitedByCount []string
	References   []string
	HasFunder    []string
	HasAbstract  []string
	InstCount    []string
	HasOAURL     []string

	// Page holds a combined range ("101-110"); FirstPage/LastPage are
	// used when it is absent.
	Page      []string
	FirstPage []string
	LastPage  []string

	Title []string
}

var fieldMaps = map[Source]FieldMap{
	SourceCrossref: {
		ID:           "doi",
		IDKey:        "doi",
		AuthorCount:  []string{"author_count", "author"},
		HasLicense:   []string{"has_license", "license"},
		CitedByCount: []string{"is_referenced_by_count"},
		References:   []string{"references_count"},
		HasFunder:    []string{"has_funder", "funder"},
		HasAbstract:  []string{"has_abstract", "abstract"},
		InstCount:    []string{"inst_count"},
		HasOAURL:     []string{"has_oa_url"},
		Page:         []string{"page"},
		FirstPage:    []string{"first_page"},
		LastPage:     []string{"last_page"},
		Title:        []string{"title"},
	},
	SourceOpenAlex: {
		ID:           "id",
		IDKey:        "openalex_id",
		AuthorCount:  []string{"author_count", "authorships"},
		HasLicense:   []string{"has_license", "primary_location.license"},
		CitedByCount: []string{"cited_by_count"},
		References:   []string{"referenced_works_count", "referenced_works"},
		HasFunder:    []string{"has_funder", "grants"},
		HasAbstract:  []string{"has_abstract", "abstract_inverted_index"},
		InstCount:    []string{"inst_count", "institutions_distinct_count"},
		HasOAURL:     []string{"has_oa_url", "open_access.oa_url"},
		Page:         []string{"page"},
		FirstPage:    []string{"first_page", "biblio.first_page"},
		LastPage:     []string{"last_page", "biblio.last_page"},
		Title:        []string{"title", "display_name"},
	},
}

// FieldMapFor returns the field map for source.
func FieldMapFor(source Source) (FieldMap, error) {
	fm, ok := fieldMaps[source]
	if !ok {
		return FieldMap{}, fmt.Errorf("unknown record source %q: use crossref or openalex", source)
	}
	return fm, nil
}

// Extract derives the feature vector for rec. Missing counts and flags
// default to 0, a missing page range to one page, and a missing title to
// zero words. A count field holding a non-numeric value is an error.
func (fm FieldMap) Extract(rec types.Record) (FeatureVector, error) {
	var fv FeatureVector

	counts := []struct {
		idx   int
		paths []string
	}{
		{0, fm.AuthorCount},
		{2, fm.CitedByCount},
		{3, fm.References},
		{8, fm.InstCount},
	}
	for _, c := range counts {
		n, err := count(lookup(rec, c.paths))
		if err != nil {
			return FeatureVector{}, fmt.Errorf("feature %s: %w", FeatureNames[c.idx], err)
		}
		fv[c.idx] = n
	}

	fv[1] = flag(lookup(rec, fm.HasLicense))
	fv[4] = flag(lookup(rec, fm.HasFunder))
	fv[5] = float64(fm.pageCount(rec))
	fv[6] = flag(lookup(rec, fm.HasAbstract))
	fv[7] = float64(titleWords(lookup(rec, fm.Title)))
	fv[9] = flag(lookup(rec, fm.HasOAURL))
	return fv, nil
}

// Identifier returns the record identifier, or nil when absent.
func (fm FieldMap) Identifier(rec types.Record) any {
	return lookup(rec, []string{fm.ID})
}

func (fm FieldMap) pageCount(rec types.Record) int {
	if page := lookup(rec, fm.Page); page != nil {
		return pagerange.Count(page)
	}
	first := lookup(rec, fm.FirstPage)
	last := lookup(rec, fm.LastPage)
	if first == nil || last == nil {
		return 1
	}
	return pagerange.Count(pagerange.Join(first, last))
}

// lookup returns the first non-nil value among paths.
func lookup(rec types.Record, paths []string) any {
	for _, p := range paths {
		var cur any = map[string]any(rec)
		for _, seg := range strings.Split(p, ".") {
			m, ok := types.Mapping(cur)
			if !ok {
				cur = nil
				break
			}
			cur = m[seg]
		}
		if cur != nil {
			return cur
		}
	}
	return nil
}

// count coerces a count field. Lists count their elements.
func count(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case bool:
		return boolFloat(n), nil
	case []any:
		return float64(len(n)), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("non-numeric value of type %T", v)
}

// flag coerces a presence or boolean field to 0 or 1.
func flag(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		return boolFloat(x)
	case string:
		return boolFloat(x != "")
	case json.Number:
		f, err := x.Float64()
		return boolFloat(err == nil && f != 0)
	case float64:
		return boolFloat(x != 0)
	case float32:
		return boolFloat(x != 0)
	case int:
		return boolFloat(x != 0)
	case int32:
		return boolFloat(x != 0)
	case int64:
		return boolFloat(x != 0)
	case []any:
		return boolFloat(len(x) > 0)
	}
	if m, ok := types.Mapping(v); ok {
		return boolFloat(len(m) > 0)
	}
	return 1
}

func titleWords(v any) int {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return 0
		}
		v = list[0]
	}
	s, ok := v.(string)
	if !ok {
		return 0
	}
	return len(strings.Fields(s))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
