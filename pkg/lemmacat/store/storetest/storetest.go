// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
)

// Run exercises a backend. open must return a fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("RunRoundTrip", func(t *testing.T) { testRunRoundTrip(t, open(t)) })
	t.Run("MissingRun", func(t *testing.T) { testMissingRun(t, open(t)) })
	t.Run("ResultsOrderedByPosition", func(t *testing.T) { testResultsOrdered(t, open(t)) })
	t.Run("ResultUpsert", func(t *testing.T) { testResultUpsert(t, open(t)) })
	t.Run("Failures", func(t *testing.T) { testFailures(t, open(t)) })
	t.Run("RunsAreIsolated", func(t *testing.T) { testRunsIsolated(t, open(t)) })
	t.Run("ListRunsNewestFirst", func(t *testing.T) { testListRuns(t, open(t)) })
}

func sampleRun(id string) store.Run {
	return store.Run{
		ID:             id,
		StartedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		TaxonomyDigest: "abc123",
	}
}

func testRunRoundTrip(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	run := sampleRun("01HRUN0000000000000000000A")
	require.NoError(t, s.SaveRun(ctx, run))

	got, ok, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.TaxonomyDigest, got.TaxonomyDigest)
	assert.True(t, run.StartedAt.Equal(got.StartedAt), "started_at %v != %v", got.StartedAt, run.StartedAt)
}

func testMissingRun(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.GetRun(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	results, err := s.ListResults(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.Error(t, s.SaveResult(ctx, "nope", store.Record{ID: "r", Position: 0}))
}

func testResultsOrdered(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	run := sampleRun("01HRUN0000000000000000000B")
	require.NoError(t, s.SaveRun(ctx, run))

	for _, pos := range []int{2, 0, 10, 1} {
		require.NoError(t, s.SaveResult(ctx, run.ID, store.Record{
			ID:         "r" + string(rune('a'+pos)),
			Position:   pos,
			DocumentID: "doc",
			Category:   "atm_issues",
			Score:      pos,
			Matched:    []string{"atm", "withdraw"},
			Meta:       map[string]string{"expected": "atm_issues"},
		}))
	}

	results, err := s.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, want := range []int{0, 1, 2, 10} {
		assert.Equal(t, want, results[i].Position)
	}
	assert.Equal(t, []string{"atm", "withdraw"}, results[0].Matched)
	assert.Equal(t, map[string]string{"expected": "atm_issues"}, results[0].Meta)
	assert.Equal(t, "atm_issues", results[3].Category)
	assert.Equal(t, 10, results[3].Score)
}

func testResultUpsert(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	run := sampleRun("01HRUN0000000000000000000C")
	require.NoError(t, s.SaveRun(ctx, run))

	require.NoError(t, s.SaveResult(ctx, run.ID, store.Record{ID: "r1", Position: 0, Category: "a", Matched: []string{"x"}}))
	require.NoError(t, s.SaveResult(ctx, run.ID, store.Record{ID: "r2", Position: 0, Category: "unknown", Matched: []string{}}))

	results, err := s.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r2", results[0].ID)
	assert.Equal(t, "unknown", results[0].Category)
	assert.Empty(t, results[0].Matched)
}

func testFailures(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	run := sampleRun("01HRUN0000000000000000000D")
	require.NoError(t, s.SaveRun(ctx, run))

	require.NoError(t, s.SaveFailure(ctx, run.ID, store.FailureRecord{Position: 3, DocumentID: "d3", Error: "bad utf-8"}))
	require.NoError(t, s.SaveFailure(ctx, run.ID, store.FailureRecord{Position: 1, DocumentID: "d1", Error: "boom"}))

	failures, err := s.ListFailures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, store.FailureRecord{Position: 1, DocumentID: "d1", Error: "boom"}, failures[0])
	assert.Equal(t, "d3", failures[1].DocumentID)
}

func testRunsIsolated(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	a, b := sampleRun("01HRUN0000000000000000000E"), sampleRun("01HRUN0000000000000000000F")
	require.NoError(t, s.SaveRun(ctx, a))
	require.NoError(t, s.SaveRun(ctx, b))

	require.NoError(t, s.SaveResult(ctx, a.ID, store.Record{ID: "ra", Position: 0, Category: "x", Matched: []string{}}))
	require.NoError(t, s.SaveResult(ctx, b.ID, store.Record{ID: "rb", Position: 0, Category: "y", Matched: []string{}}))

	ra, err := s.ListResults(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, ra, 1)
	assert.Equal(t, "x", ra[0].Category)

	rb, err := s.ListResults(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, rb, 1)
	assert.Equal(t, "y", rb[0].Category)
}

func testListRuns(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	for _, id := range []string{"01HRUN0000000000000000000G", "01HRUN0000000000000000000J", "01HRUN0000000000000000000H"} {
		require.NoError(t, s.SaveRun(ctx, sampleRun(id)))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "01HRUN0000000000000000000J", runs[0].ID)
	assert.Equal(t, "01HRUN0000000000000000000H", runs[1].ID)
}
