// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		rec  types.Record
		keep bool
	}{
		{name: "recent journal article", rec: types.Record{"type": "journal-article", "issued": "2020-05-01"}, keep: true},
		{name: "exactly at cutoff", rec: types.Record{"type": "journal-article", "issued": "2013-01-01"}, keep: true},
		{name: "day before cutoff", rec: types.Record{"type": "journal-article", "issued": "2012-12-31"}, keep: false},
		{name: "wrong type", rec: types.Record{"type": "book-chapter", "issued": "2020-05-01"}, keep: false},
		{name: "wrong type and old", rec: types.Record{"type": "book-chapter", "issued": "2010-01-01"}, keep: false},
		{name: "missing type", rec: types.Record{"issued": "2020-05-01"}, keep: false},
		{name: "missing issued", rec: types.Record{"type": "journal-article"}, keep: false},
		{name: "null issued", rec: types.Record{"type": "journal-article", "issued": nil}, keep: false},
		{name: "unparseable issued", rec: types.Record{"type": "journal-article", "issued": "May 2020"}, keep: false},
		{name: "non-string type", rec: types.Record{"type": 7, "issued": "2020-05-01"}, keep: false},
	}

	f := New(types.FilterConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := f.Apply(tt.rec)
			assert.Equal(t, tt.keep, keep)
			if tt.keep {
				assert.Equal(t, tt.rec, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	f := New(types.FilterConfig{})
	assert.Equal(t, DefaultType, f.Type())
	assert.Equal(t, DefaultCutoff, f.Cutoff())
}

func TestCustomTypeAndCutoff(t *testing.T) {
	f := New(types.FilterConfig{
		Type:   "proceedings-article",
		Cutoff: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
	})

	_, keep := f.Apply(types.Record{"type": "proceedings-article", "issued": "2021-06-01"})
	assert.True(t, keep)
	_, keep = f.Apply(types.Record{"type": "proceedings-article", "issued": "2015-06-01"})
	assert.False(t, keep)
	_, keep = f.Apply(types.Record{"type": "journal-article", "issued": "2021-06-01"})
	assert.False(t, keep)
}
