// Package store persists classification runs so results can be reviewed later.
package store

import (
	"context"
	"time"
)

// Store is the persistence interface for classification runs.
type Store interface {
	Close() error

	// Runs
	SaveRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Results and failures of a run, keyed by position within the run.
	SaveResult(ctx context.Context, runID string, r Record) error
	SaveFailure(ctx context.Context, runID string, f FailureRecord) error
	ListResults(ctx context.Context, runID string) ([]Record, error)
	ListFailures(ctx context.Context, runID string) ([]FailureRecord, error)
}

// Run is a stored classification run.
type Run struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	TaxonomyDigest string    `json:"taxonomy_digest"`
}

// Record is a stored classification result.
type Record struct {
	ID         string            `json:"id"`
	Position   int               `json:"position"`
	DocumentID string            `json:"document_id"`
	Subject    string            `json:"subject,omitempty"`
	Category   string            `json:"category"`
	Score      int               `json:"score"`
	Matched    []string          `json:"matched"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// FailureRecord is a stored per-document failure.
type FailureRecord struct {
	Position   int    `json:"position"`
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}
