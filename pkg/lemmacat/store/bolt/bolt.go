// Package bolt implements store.Store on bbolt (embedded B+ tree).
// Runs live in the "runs" bucket keyed by ID. Each run gets a bucket of its
// own holding "results" and "failures" sub-buckets keyed by big-endian
// position, so a cursor walk returns documents in input order.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
)

var (
	bucketRuns     = []byte("runs")
	bucketResults  = []byte("results")
	bucketFailures = []byte("failures")
)

// Store implements store.Store backed by bbolt.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a bbolt database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runBucketKey(id string) []byte {
	return []byte("run:" + id)
}

func positionKey(pos int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(pos))
	return k
}

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put([]byte(r.ID), data); err != nil {
			return err
		}
		rb, err := tx.CreateBucketIfNotExists(runBucketKey(r.ID))
		if err != nil {
			return err
		}
		if _, err := rb.CreateBucketIfNotExists(bucketResults); err != nil {
			return err
		}
		_, err = rb.CreateBucketIfNotExists(bucketFailures)
		return err
	})
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	var r store.Run
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return store.Run{}, false, fmt.Errorf("load run %s: %w", id, err)
	}
	return r, found, nil
}

// ListRuns returns the most recent runs first. ULIDs sort by time.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	var runs []store.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var r store.Run
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("run %s: %w", k, err)
			}
			runs = append(runs, r)
		}
		return nil
	})
	return runs, err
}

func (s *Store) put(runID string, sub []byte, pos int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket(runBucketKey(runID))
		if rb == nil {
			return fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
		}
		return rb.Bucket(sub).Put(positionKey(pos), data)
	})
}

func (s *Store) each(runID string, sub []byte, fn func(v []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(runBucketKey(runID))
		if rb == nil {
			return nil
		}
		return rb.Bucket(sub).ForEach(func(_, v []byte) error { return fn(v) })
	})
}

// SaveResult inserts or replaces the result at r.Position.
func (s *Store) SaveResult(ctx context.Context, runID string, r store.Record) error {
	if r.Matched == nil {
		r.Matched = []string{}
	}
	return s.put(runID, bucketResults, r.Position, r)
}

// SaveFailure inserts or replaces the failure at f.Position.
func (s *Store) SaveFailure(ctx context.Context, runID string, f store.FailureRecord) error {
	return s.put(runID, bucketFailures, f.Position, f)
}

// ListResults returns a run's results ordered by position.
func (s *Store) ListResults(ctx context.Context, runID string) ([]store.Record, error) {
	var out []store.Record
	err := s.each(runID, bucketResults, func(v []byte) error {
		var r store.Record
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// ListFailures returns a run's failures ordered by position.
func (s *Store) ListFailures(ctx context.Context, runID string) ([]store.FailureRecord, error) {
	var out []store.FailureRecord
	err := s.each(runID, bucketFailures, func(v []byte) error {
		var f store.FailureRecord
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}
