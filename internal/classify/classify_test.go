// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

// fakeClassifier records the vector it was given and returns canned
// probabilities or an error.
type fakeClassifier struct {
	schema string
	probs  []float64
	err    error
	got    FeatureVector
}

func (f *fakeClassifier) FeatureSchema() string { return f.schema }

func (f *fakeClassifier) PredictProba(_ context.Context, fv FeatureVector) ([]float64, error) {
	f.got = fv
	return f.probs, f.err
}

func TestLabel(t *testing.T) {
	assert.Equal(t, types.LabelResearch, Label(0.93))
	assert.Equal(t, types.LabelResearch, Label(0.5))
	assert.Equal(t, types.LabelEditorial, Label(0.49))
	assert.Equal(t, types.LabelEditorial, Label(0))
}

func TestExtractCrossref(t *testing.T) {
	fm, err := FieldMapFor(SourceCrossref)
	require.NoError(t, err)

	rec := types.Record{
		"doi":                    "10.1000/xyz",
		"author_count":           json.Number("3"),
		"has_license":            true,
		"is_referenced_by_count": json.Number("12"),
		"references_count":       json.Number("40"),
		"has_funder":             false,
		"page":                   "e1010.e87-e1019.e87",
		"has_abstract":           "This is an abstract.",
		"title":                  "Efficient attention for long documents",
		"inst_count":             json.Number("2"),
		"has_oa_url":             true,
	}

	fv, err := fm.Extract(rec)
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{3, 1, 12, 40, 0, 10, 1, 5, 2, 1}, fv)
	assert.Equal(t, "10.1000/xyz", fm.Identifier(rec))
}

func TestExtractCrossrefNormalizedWork(t *testing.T) {
	fm, err := FieldMapFor(SourceCrossref)
	require.NoError(t, err)

	rec := types.Record{
		"author":                 []any{map[string]any{"family": "A"}, map[string]any{"family": "B"}},
		"license":                []any{map[string]any{"url": "https://example.org"}},
		"is_referenced_by_count": json.Number("4"),
		"title":                  "Short",
	}

	fv, err := fm.Extract(rec)
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{2, 1, 4, 0, 0, 1, 0, 1, 0, 0}, fv)
}

func TestExtractOpenAlex(t *testing.T) {
	fm, err := FieldMapFor(SourceOpenAlex)
	require.NoError(t, err)

	rec := types.Record{
		"id":                          "https://openalex.org/W123",
		"authorships":                 []any{map[string]any{}, map[string]any{}, map[string]any{}},
		"cited_by_count":              json.Number("7"),
		"referenced_works_count":      json.Number("25"),
		"grants":                      []any{},
		"abstract_inverted_index":     map[string]any{"Deep": []any{json.Number("0")}},
		"institutions_distinct_count": json.Number("4"),
		"open_access":                 map[string]any{"is_oa": true, "oa_url": "https://example.org/pdf"},
		"primary_location":            map[string]any{"license": nil},
		"biblio":                      map[string]any{"first_page": "101", "last_page": "110"},
		"display_name":                "Graph neural networks",
	}

	fv, err := fm.Extract(rec)
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{3, 0, 7, 25, 0, 10, 1, 3, 4, 1}, fv)
	assert.Equal(t, "https://openalex.org/W123", fm.Identifier(rec))
}

func TestExtractDefaults(t *testing.T) {
	for _, src := range []Source{SourceCrossref, SourceOpenAlex} {
		fm, err := FieldMapFor(src)
		require.NoError(t, err)

		fv, err := fm.Extract(types.Record{})
		require.NoError(t, err)
		assert.Equal(t, FeatureVector{0, 0, 0, 0, 0, 1, 0, 0, 0, 0}, fv, src)
	}
}

func TestFlagNumericKinds(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{int64(0), 0},
		{int64(3), 1},
		{int32(0), 0},
		{float32(0), 0},
		{float32(0.5), 1},
		{0, 0},
		{0.0, 0},
		{json.Number("0"), 0},
		{json.Number("2"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, flag(tt.in), "%T(%v)", tt.in, tt.in)
	}
}

func TestExtractRejectsNonNumericCount(t *testing.T) {
	fm, err := FieldMapFor(SourceCrossref)
	require.NoError(t, err)

	_, err = fm.Extract(types.Record{"references_count": "many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "references_count")
}

func TestFieldMapForUnknownSource(t *testing.T) {
	_, err := FieldMapFor("pubmed")
	assert.Error(t, err)
}

func TestNewAdapterRejectsSchemaMismatch(t *testing.T) {
	_, err := NewAdapter(SourceCrossref, &fakeClassifier{schema: "doctype-v0"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = NewAdapter(SourceCrossref, nil)
	assert.Error(t, err)
}

func TestAdapterClassify(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		rec    types.Record
		probs  []float64
		want   types.Record
	}{
		{
			name:   "crossref research",
			source: SourceCrossref,
			rec:    types.Record{"doi": "10.1/a", "title": "A study"},
			probs:  []float64{0.07, 0.93},
			want:   types.Record{"doi": "10.1/a", "label": "research_discourse", "proba": 0.93},
		},
		{
			name:   "openalex editorial",
			source: SourceOpenAlex,
			rec:    types.Record{"id": "https://openalex.org/W1"},
			probs:  []float64{0.51, 0.49},
			want:   types.Record{"openalex_id": "https://openalex.org/W1", "label": "editorial_discourse", "proba": 0.49},
		},
		{
			name:   "missing identifier",
			source: SourceCrossref,
			rec:    types.Record{},
			probs:  []float64{0.5, 0.5},
			want:   types.Record{"doi": nil, "label": "research_discourse", "proba": 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(tt.source, &fakeClassifier{schema: FeatureSchema, probs: tt.probs})
			require.NoError(t, err)

			got, err := a.Classify(context.Background(), tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapterPassesFeatureVector(t *testing.T) {
	fake := &fakeClassifier{schema: FeatureSchema, probs: []float64{0.2, 0.8}}
	a, err := NewAdapter(SourceCrossref, fake)
	require.NoError(t, err)

	_, err = a.Classify(context.Background(), types.Record{"author_count": json.Number("5"), "page": "101-102"})
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{5, 0, 0, 0, 0, 2, 0, 0, 0, 0}, fake.got)
}

func TestAdapterErrors(t *testing.T) {
	boom := errors.New("model exploded")
	tests := []struct {
		name    string
		fake    *fakeClassifier
		rec     types.Record
		wantErr error
	}{
		{name: "classifier error", fake: &fakeClassifier{schema: FeatureSchema, err: boom}, wantErr: boom},
		{name: "one class", fake: &fakeClassifier{schema: FeatureSchema, probs: []float64{1}}, wantErr: ErrBadProbabilities},
		{name: "out of range", fake: &fakeClassifier{schema: FeatureSchema, probs: []float64{-0.2, 1.2}}, wantErr: ErrBadProbabilities},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(SourceCrossref, tt.fake)
			require.NoError(t, err)

			_, err = a.Classify(context.Background(), types.Record{"doi": "x"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
