package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	runs     map[string]store.Run
	results  map[string]map[int]store.Record
	failures map[string]map[int]store.FailureRecord
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:     make(map[string]store.Run),
		results:  make(map[string]map[int]store.Record),
		failures: make(map[string]map[int]store.FailureRecord),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[r.ID] = r
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	return r, ok, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	runs := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveResult inserts or replaces the result at r.Position.
func (s *Store) SaveResult(ctx context.Context, runID string, r store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	if s.results[runID] == nil {
		s.results[runID] = make(map[int]store.Record)
	}
	s.results[runID][r.Position] = copyRecord(r)
	return nil
}

// SaveFailure inserts or replaces the failure at f.Position.
func (s *Store) SaveFailure(ctx context.Context, runID string, f store.FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	if s.failures[runID] == nil {
		s.failures[runID] = make(map[int]store.FailureRecord)
	}
	s.failures[runID][f.Position] = f
	return nil
}

// ListResults returns a run's results ordered by position.
func (s *Store) ListResults(ctx context.Context, runID string) ([]store.Record, error) {
	s.mu.RLock()
	out := make([]store.Record, 0, len(s.results[runID]))
	for _, r := range s.results[runID] {
		out = append(out, copyRecord(r))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ListFailures returns a run's failures ordered by position.
func (s *Store) ListFailures(ctx context.Context, runID string) ([]store.FailureRecord, error) {
	s.mu.RLock()
	out := make([]store.FailureRecord, 0, len(s.failures[runID]))
	for _, f := range s.failures[runID] {
		out = append(out, f)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func copyRecord(r store.Record) store.Record {
	cp := r
	cp.Matched = make([]string, len(r.Matched))
	copy(cp.Matched, r.Matched)
	if r.Meta != nil {
		cp.Meta = make(map[string]string, len(r.Meta))
		for k, v := range r.Meta {
			cp.Meta[k] = v
		}
	}
	return cp
}
