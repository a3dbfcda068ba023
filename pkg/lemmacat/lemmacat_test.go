package lemmacat_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lemmacat/pkg/lemmacat"
	"github.com/cognicore/lemmacat/pkg/lemmacat/classify"
	"github.com/cognicore/lemmacat/pkg/lemmacat/collect"
	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/lemma"
	"github.com/cognicore/lemmacat/pkg/lemmacat/normalize"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store/memstore"
	"github.com/cognicore/lemmacat/pkg/lemmacat/taxonomy"
)

// words lemmatizes by splitting on whitespace, so tests control lemmas exactly.
var words = lemma.Func(func(text string) ([]lemma.Token, error) {
	fields := strings.Fields(text)
	out := make([]lemma.Token, len(fields))
	for i, f := range fields {
		out[i] = lemma.Token{Text: f, Lemma: f}
	}
	return out, nil
})

func newEngine(t *testing.T, st store.Store, workers int) *lemmacat.Engine {
	t.Helper()
	n := normalize.New(words)
	idx, err := taxonomy.Build(n, []taxonomy.RawCategory{
		{Name: "A", Keywords: []string{"foo bar"}},
		{Name: "B", Keywords: []string{"baz"}},
	})
	require.NoError(t, err)

	e, err := lemmacat.New(lemmacat.Options{Normalizer: n, Index: idx, Store: st, Workers: workers})
	require.NoError(t, err)
	return e
}

func fixedClock() collect.Option {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return collect.WithClock(func() time.Time { return now })
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := lemmacat.New(lemmacat.Options{})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = lemmacat.New(lemmacat.Options{Normalizer: normalize.New(words)})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestEngineClassify(t *testing.T) {
	e := newEngine(t, nil, 1)
	defer e.Close()

	res, err := e.Classify(classify.Document{ID: "1", Body: "Foo Bar and BAZ"})
	require.NoError(t, err)
	assert.Equal(t, "A", res.Category)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, []string{"foo bar"}, res.Matched)

	res, err = e.Classify(classify.Document{ID: "2", Body: "nothing here"})
	require.NoError(t, err)
	assert.True(t, res.IsUnknown())
	assert.Equal(t, 0, res.Score)
	assert.NotNil(t, res.Matched)
	assert.Empty(t, res.Matched)
}

func TestClassifyBatchKeepsInputOrder(t *testing.T) {
	e := newEngine(t, nil, 8)

	var docs []classify.Document
	for i := 0; i < 100; i++ {
		body := "baz"
		if i%3 == 0 {
			body = "foo bar"
		}
		docs = append(docs, classify.Document{ID: fmt.Sprintf("doc-%03d", i), Body: body})
	}

	col, err := e.ClassifyBatch(context.Background(), docs)
	require.NoError(t, err)

	results := col.Results()
	require.Len(t, results, len(docs))
	for i, res := range results {
		assert.Equal(t, docs[i].ID, res.Document.ID)
		want := "B"
		if i%3 == 0 {
			want = "A"
		}
		assert.Equal(t, want, res.Category, docs[i].ID)
	}
}

func TestClassifyBatchSkipsFailedDocuments(t *testing.T) {
	st := memstore.New()
	e := newEngine(t, st, 2)
	ctx := context.Background()

	docs := []classify.Document{
		{ID: "ok-1", Body: "foo bar"},
		{ID: "bad", Body: "broken \xff bytes"},
		{ID: "ok-2", Body: "baz"},
	}
	col, err := e.ClassifyBatch(ctx, docs, fixedClock())
	require.NoError(t, err)

	results := col.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "ok-1", results[0].Document.ID)
	assert.Equal(t, "ok-2", results[1].Document.ID)

	failures := col.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].Position)
	assert.Equal(t, "bad", failures[0].Document.ID)
	assert.ErrorIs(t, failures[0].Err, internalerr.ErrNormalization)

	sum := col.Summary()
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Classified)
	assert.Equal(t, 1, sum.Failed)

	runID := col.Run().ID
	run, ok, err := st.GetRun(ctx, runID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.Index().Digest(), run.TaxonomyDigest)

	records, err := st.ListResults(ctx, runID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Position)
	assert.Equal(t, "A", records[0].Category)
	assert.Equal(t, []string{"foo bar"}, records[0].Matched)
	assert.Equal(t, 2, records[1].Position)

	stored, err := st.ListFailures(ctx, runID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "bad", stored[0].DocumentID)
	assert.Contains(t, stored[0].Error, "bad")
}

type failingStore struct {
	*memstore.Store
	err error
}

func (s failingStore) SaveResult(ctx context.Context, runID string, r store.Record) error {
	return s.err
}

func TestClassifyBatchAbortsOnStoreError(t *testing.T) {
	boom := errors.New("disk full")
	e := newEngine(t, failingStore{Store: memstore.New(), err: boom}, 2)

	docs := []classify.Document{{ID: "1", Body: "baz"}, {ID: "2", Body: "baz"}}
	col, err := e.ClassifyBatch(context.Background(), docs)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotNil(t, col)
}

func TestClassifyBatchCancelled(t *testing.T) {
	e := newEngine(t, nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	col, err := e.ClassifyBatch(ctx, []classify.Document{{Body: "baz"}, {Body: "baz"}})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, col)
	assert.Equal(t, 0, col.Len())
}

func TestClassifyBatchEmpty(t *testing.T) {
	e := newEngine(t, nil, 0)
	col, err := e.ClassifyBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, col.Summary().Total)
}

func TestEngineLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(zerolog.SyncWriter(&buf)).Level(zerolog.DebugLevel)

	n := normalize.New(words)
	idx, err := taxonomy.Build(n, []taxonomy.RawCategory{{Name: "B", Keywords: []string{"baz"}}})
	require.NoError(t, err)
	e, err := lemmacat.New(lemmacat.Options{Normalizer: n, Index: idx, Logger: &logger, Workers: 8})
	require.NoError(t, err)

	batch := []classify.Document{{ID: "bad", Body: "\xff"}}
	for i := 0; i < 50; i++ {
		batch = append(batch, classify.Document{ID: fmt.Sprintf("good-%d", i), Body: "baz"})
	}
	_, err = e.ClassifyBatch(context.Background(), batch)
	require.NoError(t, err)

	out := buf.String()
	// every log line must come out whole when workers log concurrently
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.True(t, strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}"), line)
	}
	assert.Equal(t, 50, strings.Count(out, `"message":"document classified"`))
	assert.Contains(t, out, `"message":"index ready"`)
	assert.Contains(t, out, `"message":"document classified"`)
	assert.Contains(t, out, `"message":"document skipped"`)
	assert.Contains(t, out, `"message":"batch done"`)
}

func TestRecordOf(t *testing.T) {
	rec := lemmacat.RecordOf(collect.Entry{
		ID:       "01HX",
		Position: 4,
		Result: classify.Result{
			Document: classify.Document{ID: "d", Subject: "s", Meta: map[string]string{"k": "v"}},
			Category: classify.Unknown,
		},
	})
	assert.Equal(t, store.Record{
		ID:         "01HX",
		Position:   4,
		DocumentID: "d",
		Subject:    "s",
		Category:   classify.Unknown,
		Matched:    []string{},
		Meta:       map[string]string{"k": "v"},
	}, rec)
}

func TestClassifyIntoStreams(t *testing.T) {
	st := memstore.New()
	e := newEngine(t, st, 1)
	ctx := context.Background()

	col, err := e.StartRun(ctx, fixedClock())
	require.NoError(t, err)

	entry, err := e.ClassifyInto(ctx, col, 0, classify.Document{ID: "x", Body: "baz"})
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "B", entry.Result.Category)
	assert.NotEmpty(t, entry.ID)

	entry, err = e.ClassifyInto(ctx, col, 1, classify.Document{ID: "y", Body: "\xff"})
	require.NoError(t, err)
	assert.Nil(t, entry)

	assert.Equal(t, 2, col.Len())
	records, err := st.ListResults(ctx, col.Run().ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "x", records[0].DocumentID)
}
