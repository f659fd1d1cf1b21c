// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/scholar-snapshot/internal/classify"
	"github.com/pdiddy/scholar-snapshot/internal/filter"
	"github.com/pdiddy/scholar-snapshot/internal/shard"
	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- test helpers ---

const keptRecord = `{"DOI": "10.1/keep", "type": "journal-article", "issued": {"date-parts": [[2020, 3]]}, "title": ["Kept"], "ISSN": ["1111-2222", "1111-2222"]}`
const droppedRecord = `{"DOI": "10.1/drop", "type": "book-chapter", "issued": {"date-parts": [[2010]]}, "title": ["Dropped"]}`

func setupDirs(t *testing.T) (src, dest string) {
	t.Helper()
	tmp := t.TempDir()
	src = filepath.Join(tmp, "download")
	dest = filepath.Join(tmp, "transform")
	require.NoError(t, os.MkdirAll(src, 0o755))
	return src, dest
}

func writeShard(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newFilterProcessor(t *testing.T, cfg types.ProcessConfig, opts ...Option) *Processor {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	p, err := New(cfg, NewFilterPipeline(filter.New(types.FilterConfig{})), opts...)
	require.NoError(t, err)
	return p
}

// fakeRecorder collects outcomes.
type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]types.ShardOutcome
	err      error
}

func (r *fakeRecorder) RecordShard(_ context.Context, o types.ShardOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]types.ShardOutcome)
	}
	r.outcomes[filepath.Base(o.Input)] = o
	return r.err
}

type fakeClassifier struct{ p float64 }

func (f fakeClassifier) FeatureSchema() string { return classify.FeatureSchema }

func (f fakeClassifier) PredictProba(_ context.Context, _ classify.FeatureVector) ([]float64, error) {
	return []float64{1 - f.p, f.p}, nil
}

// --- tests ---

func TestRunFilterEndToEnd(t *testing.T) {
	src, dest := setupDirs(t)
	writeShard(t, src, "crossref_sample.json", `{"items": [`+keptRecord+`, `+droppedRecord+`]}`)

	summary, err := newFilterProcessor(t, types.ProcessConfig{SourceDir: src, DestDir: dest, Workers: 2}).Run(context.Background())
	require.NoError(t, err)

	out := filepath.Join(dest, "crossref_sample.jsonl.gz")
	got, err := shard.ReadAll(out)
	require.NoError(t, err)

	want := []types.RawRecord{{
		"doi":    "10.1/keep",
		"type":   "journal-article",
		"issued": "2020-03-01",
		"title":  "Kept",
		"issn":   "1111-2222",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, summary.Shards, 1)
	o := summary.Shards[0]
	assert.Equal(t, types.ShardDone, o.Status)
	assert.Equal(t, out, o.Output)
	assert.Equal(t, 2, o.Read)
	assert.Equal(t, 1, o.Written)
}

func TestRunClassifyEndToEnd(t *testing.T) {
	src, dest := setupDirs(t)
	writeShard(t, src, "part-000.json", "{\"doi\": \"10.1/a\", \"title\": \"One\"}\n{\"doi\": \"10.1/b\", \"title\": \"Two\"}\n")

	adapter, err := classify.NewAdapter(classify.SourceCrossref, fakeClassifier{p: 0.93})
	require.NoError(t, err)
	p, err := New(types.ProcessConfig{SourceDir: src, DestDir: dest}, NewClassifyPipeline(adapter))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	got, err := shard.ReadAll(filepath.Join(dest, "part-000.jsonl.gz"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i, doi := range []string{"10.1/a", "10.1/b"} {
		assert.Equal(t, doi, got[i]["doi"])
		assert.Equal(t, "research_discourse", got[i]["label"])
		assert.Equal(t, "0.93", fmt.Sprint(got[i]["proba"]))
	}
}

func TestRunConcurrentMatchesSequential(t *testing.T) {
	src, _ := setupDirs(t)
	const n = 7
	for i := range n {
		var content string
		for j := range 5 {
			year := 2008 + i + j
			content += fmt.Sprintf(`{"DOI": "10.1/%d-%d", "type": "journal-article", "issued": {"date-parts": [[%d, %d, %d]]}}`+"\n", i, j, year, j+1, i+1)
		}
		writeShard(t, src, fmt.Sprintf("shard-%02d.json", i), content)
	}

	run := func(workers int) string {
		dest := filepath.Join(t.TempDir(), "out")
		summary, err := newFilterProcessor(t, types.ProcessConfig{SourceDir: src, DestDir: dest, Workers: workers}).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, n, summary.Count(types.ShardDone))
		return dest
	}

	seqDir := run(1)
	parDir := run(3)

	for i := range n {
		name := fmt.Sprintf("shard-%02d.jsonl.gz", i)
		seq, err := shard.ReadAll(filepath.Join(seqDir, name))
		require.NoError(t, err)
		par, err := shard.ReadAll(filepath.Join(parDir, name))
		require.NoError(t, err)
		assert.Equal(t, seq, par, name)
	}
}

func TestRunSkipsDirectoriesAndCreatesDest(t *testing.T) {
	src, dest := setupDirs(t)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	writeShard(t, src, "a.json", "[]")

	summary, err := newFilterProcessor(t, types.ProcessConfig{SourceDir: src, DestDir: dest}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Shards, 1)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.jsonl.gz", entries[0].Name())
}

func TestRunFailFast(t *testing.T) {
	src, dest := setupDirs(t)
	writeShard(t, src, "a-bad.json", `[{"DOI": "x"}, 17]`)
	writeShard(t, src, "b-good.json", `[`+keptRecord+`]`)
	writeShard(t, src, "c-good.json", `[`+keptRecord+`]`)

	rec := &fakeRecorder{}
	summary, err := newFilterProcessor(t, types.ProcessConfig{SourceDir: src, DestDir: dest, Workers: 1}, WithRecorder(rec)).Run(context.Background())
	require.Error(t, err)

	var shardErr *ShardError
	require.ErrorAs(t, err, &shardErr)
	assert.Equal(t, filepath.Join(src, "a-bad.json"), shardErr.Path)

	assert.Equal(t, 1, summary.Count(types.ShardFailed))
	assert.Equal(t, 2, summary.Count(types.ShardCancelled))
	assert.Len(t, rec.outcomes, 3)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "cancelled and failed shards must not leave output")
}

func TestRunContinueOnError(t *testing.T) {
	src, dest := setupDirs(t)
	writeShard(t, src, "a-bad.json", `not json`)
	writeShard(t, src, "b-good.json", `[`+keptRecord+`]`)
	writeShard(t, src, "c-bad.json", `["scalar"]`)
	writeShard(t, src, "d-good.json", `[`+keptRecord+`, `+droppedRecord+`]`)

	cfg := types.ProcessConfig{SourceDir: src, DestDir: dest, Workers: 2, FailurePolicy: types.ContinueOnError}
	summary, err := newFilterProcessor(t, cfg).Run(context.Background())
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	var failedPaths []string
	for _, e := range errs {
		var shardErr *ShardError
		require.ErrorAs(t, e, &shardErr)
		failedPaths = append(failedPaths, filepath.Base(shardErr.Path))
	}
	assert.ElementsMatch(t, []string{"a-bad.json", "c-bad.json"}, failedPaths)

	assert.Equal(t, 2, summary.Count(types.ShardDone))
	assert.Equal(t, 2, summary.Count(types.ShardFailed))
	read, written := summary.Records()
	assert.Equal(t, 3, read)
	assert.Equal(t, 2, written)

	for _, name := range []string{"b-good.jsonl.gz", "d-good.jsonl.gz"} {
		_, err := os.Stat(filepath.Join(dest, name))
		assert.NoError(t, err, name)
	}
}

func TestRunCancelledContext(t *testing.T) {
	src, dest := setupDirs(t)
	writeShard(t, src, "a.json", `[`+keptRecord+`]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newFilterProcessor(t, types.ProcessConfig{SourceDir: src, DestDir: dest}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Count(types.ShardCancelled))
}

func TestRunRecorderErrorDoesNotFailShard(t *testing.T) {
	src, dest := setupDirs(t)
	writeShard(t, src, "a.json", `[`+keptRecord+`]`)

	rec := &fakeRecorder{err: errors.New("ledger locked")}
	summary, err := newFilterProcessor(t, types.ProcessConfig{SourceDir: src, DestDir: dest}, WithRecorder(rec)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(types.ShardDone))
	assert.Equal(t, types.ShardDone, rec.outcomes["a.json"].Status)
}

func TestRunMissingSource(t *testing.T) {
	_, err := newFilterProcessor(t, types.ProcessConfig{SourceDir: filepath.Join(t.TempDir(), "absent"), DestDir: t.TempDir()}).Run(context.Background())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	pipeline := NewFilterPipeline(filter.New(types.FilterConfig{}))

	p, err := New(types.ProcessConfig{SourceDir: "in", DestDir: "out"}, pipeline)
	require.NoError(t, err)
	cfg := p.Config()
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, DefaultSuffix, cfg.Suffix)
	assert.Equal(t, types.FailFast, cfg.FailurePolicy)
	assert.Equal(t, filepath.Join("out", "0001.jsonl.gz"), p.OutputPath("in/0001.json"))

	_, err = New(types.ProcessConfig{DestDir: "out"}, pipeline)
	assert.Error(t, err)
	_, err = New(types.ProcessConfig{SourceDir: "in"}, pipeline)
	assert.Error(t, err)
	_, err = New(types.ProcessConfig{SourceDir: "in", DestDir: "out"}, nil)
	assert.Error(t, err)
	_, err = New(types.ProcessConfig{SourceDir: "in", DestDir: "out", FailurePolicy: "retry"}, pipeline)
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg, err := Defaults(types.ProcessConfig{SourceDir: "in", DestDir: "out", Workers: 3, FailurePolicy: types.ContinueOnError})
	require.NoError(t, err)
	assert.Equal(t, types.ProcessConfig{
		SourceDir:     "in",
		DestDir:       "out",
		Workers:       3,
		Suffix:        DefaultSuffix,
		FailurePolicy: types.ContinueOnError,
	}, cfg)

	_, err = Defaults(types.ProcessConfig{SourceDir: "in"})
	assert.Error(t, err)
}
