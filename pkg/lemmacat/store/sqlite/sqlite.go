package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; batch workers queue on the pool instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	taxonomy_digest TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	id TEXT NOT NULL,
	document_id TEXT,
	subject TEXT,
	category TEXT NOT NULL,
	score INTEGER NOT NULL,
	matched TEXT NOT NULL,
	meta TEXT,
	PRIMARY KEY(run_id, position),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS results_category ON results(run_id, category);

CREATE TABLE IF NOT EXISTS failures (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	document_id TEXT,
	error TEXT NOT NULL,
	PRIMARY KEY(run_id, position),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts or updates a run
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, started_at, taxonomy_digest)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	started_at=excluded.started_at,
	taxonomy_digest=excluded.taxonomy_digest;
`, r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.TaxonomyDigest)
	return err
}

// GetRun retrieves a run by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, started_at, taxonomy_digest FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

// ListRuns returns the most recent runs first. ULIDs sort by time.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, taxonomy_digest
FROM runs
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (store.Run, error) {
	var r store.Run
	var started string
	if err := row.Scan(&r.ID, &started, &r.TaxonomyDigest); err != nil {
		return store.Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: parse started_at: %w", r.ID, err)
	}
	r.StartedAt = t
	return r, nil
}

func (s *sqliteStore) requireRun(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	return err
}

// SaveResult inserts or replaces the result at r.Position
func (s *sqliteStore) SaveResult(ctx context.Context, runID string, r store.Record) error {
	if err := s.requireRun(ctx, runID); err != nil {
		return err
	}

	matched := r.Matched
	if matched == nil {
		matched = []string{}
	}
	matchedJSON, err := json.Marshal(matched)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(r.Meta)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO results (run_id, position, id, document_id, subject, category, score, matched, meta)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, position) DO UPDATE SET
	id=excluded.id,
	document_id=excluded.document_id,
	subject=excluded.subject,
	category=excluded.category,
	score=excluded.score,
	matched=excluded.matched,
	meta=excluded.meta;
`, runID, r.Position, r.ID, r.DocumentID, r.Subject, r.Category, r.Score, string(matchedJSON), string(metaJSON))
	return err
}

// SaveFailure inserts or replaces the failure at f.Position
func (s *sqliteStore) SaveFailure(ctx context.Context, runID string, f store.FailureRecord) error {
	if err := s.requireRun(ctx, runID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO failures (run_id, position, document_id, error)
VALUES (?, ?, ?, ?)
ON CONFLICT(run_id, position) DO UPDATE SET
	document_id=excluded.document_id,
	error=excluded.error;
`, runID, f.Position, f.DocumentID, f.Error)
	return err
}

// ListResults returns a run's results ordered by position
func (s *sqliteStore) ListResults(ctx context.Context, runID string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, position, document_id, subject, category, score, matched, meta
FROM results
WHERE run_id = ?
ORDER BY position;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var r store.Record
		var docID, subject sql.NullString
		var matchedJSON string
		var metaJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.Position, &docID, &subject, &r.Category, &r.Score, &matchedJSON, &metaJSON); err != nil {
			return nil, err
		}
		r.DocumentID = docID.String
		r.Subject = subject.String
		if err := json.Unmarshal([]byte(matchedJSON), &r.Matched); err != nil {
			return nil, err
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &r.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListFailures returns a run's failures ordered by position
func (s *sqliteStore) ListFailures(ctx context.Context, runID string) ([]store.FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT position, document_id, error
FROM failures
WHERE run_id = ?
ORDER BY position;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.FailureRecord
	for rows.Next() {
		var f store.FailureRecord
		var docID sql.NullString
		if err := rows.Scan(&f.Position, &docID, &f.Error); err != nil {
			return nil, err
		}
		f.DocumentID = docID.String
		out = append(out, f)
	}
	return out, rows.Err()
}
