// Package lemmacat classifies short texts into categories by counting
// lemma-normalized keyword phrases.
//
// The Engine ties an immutable taxonomy.Index to a normalizer, fans batches
// out over a bounded number of workers and optionally persists every run to
// a store.Store.
package lemmacat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/lemmacat/pkg/lemmacat/classify"
	"github.com/cognicore/lemmacat/pkg/lemmacat/collect"
	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
	"github.com/cognicore/lemmacat/pkg/lemmacat/taxonomy"
)

// DefaultWorkers is the batch concurrency used when Options.Workers is unset.
const DefaultWorkers = 4

// Engine is the main classification facade
type Engine struct {
	classifier *classify.Classifier
	index      *taxonomy.Index
	store      store.Store
	workers    int
	log        zerolog.Logger
}

// Options configures an Engine instance
type Options struct {
	// Normalizer must be the one Index was built with.
	Normalizer classify.Normalizer
	Index      *taxonomy.Index
	// Store is optional. When set every run, result and failure is saved.
	Store   store.Store
	Workers int
	// Logger is shared by all batch workers. Its writer must be safe for
	// concurrent use when Workers > 1; wrap it with zerolog.SyncWriter.
	Logger *zerolog.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Normalizer == nil {
		return nil, fmt.Errorf("%w: normalizer is required", internalerr.ErrInvalidConfig)
	}
	if opts.Index == nil {
		return nil, fmt.Errorf("%w: index is required", internalerr.ErrInvalidConfig)
	}

	e := &Engine{
		classifier: classify.New(opts.Normalizer),
		index:      opts.Index,
		store:      opts.Store,
		workers:    opts.Workers,
		log:        zerolog.Nop(),
	}
	if e.workers <= 0 {
		e.workers = DefaultWorkers
	}
	if opts.Logger != nil {
		e.log = *opts.Logger
	}

	e.log.Info().
		Int("categories", opts.Index.Len()).
		Int("keywords", opts.Index.KeywordCount()).
		Str("digest", opts.Index.Digest()).
		Msg("index ready")
	return e, nil
}

// Index returns the category index the engine classifies against.
func (e *Engine) Index() *taxonomy.Index { return e.index }

// Close cleanly shuts down the engine and its store
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Classify classifies a single document without recording it.
func (e *Engine) Classify(doc classify.Document) (classify.Result, error) {
	return e.classifier.Classify(doc, e.index)
}

// StartRun opens a new run against the engine's index and saves it when a
// store is configured.
func (e *Engine) StartRun(ctx context.Context, opts ...collect.Option) (*collect.Collector, error) {
	col := collect.New(e.index.Digest(), opts...)
	run := col.Run()

	if e.store != nil {
		if err := e.store.SaveRun(ctx, store.Run{
			ID:             run.ID,
			StartedAt:      run.StartedAt,
			TaxonomyDigest: run.TaxonomyDigest,
		}); err != nil {
			return nil, fmt.Errorf("save run %s: %w", run.ID, err)
		}
	}
	e.log.Debug().Str("run", run.ID).Msg("run started")
	return col, nil
}

// ClassifyInto classifies doc as position pos of the run behind col and
// returns the recorded entry. A normalization failure is recorded on col and
// yields a nil entry and no error; the only errors returned come from the
// store.
func (e *Engine) ClassifyInto(ctx context.Context, col *collect.Collector, pos int, doc classify.Document) (*collect.Entry, error) {
	runID := col.Run().ID

	res, err := e.Classify(doc)
	if err != nil {
		col.Fail(pos, doc, err)
		e.log.Warn().
			Str("run", runID).
			Str("id", doc.ID).
			Int("position", pos).
			Err(err).
			Msg("document skipped")

		if e.store == nil {
			return nil, nil
		}
		if err := e.store.SaveFailure(ctx, runID, store.FailureRecord{
			Position:   pos,
			DocumentID: doc.ID,
			Error:      err.Error(),
		}); err != nil {
			return nil, fmt.Errorf("save failure %d: %w", pos, err)
		}
		return nil, nil
	}

	entry := col.Add(pos, res)
	e.log.Debug().
		Str("id", doc.ID).
		Str("category", res.Category).
		Int("score", res.Score).
		Msg("document classified")

	if e.store == nil {
		return &entry, nil
	}
	if err := e.store.SaveResult(ctx, runID, RecordOf(entry)); err != nil {
		return &entry, fmt.Errorf("save result %d: %w", pos, err)
	}
	e.log.Debug().Str("run", runID).Str("result", entry.ID).Msg("result stored")
	return &entry, nil
}

// ClassifyBatch classifies docs in a new run. Documents that fail to
// normalize are skipped and reported on the returned collector. Store errors
// and ctx cancellation abort the batch; the collector then holds whatever
// finished before the abort.
func (e *Engine) ClassifyBatch(ctx context.Context, docs []classify.Document, opts ...collect.Option) (*collect.Collector, error) {
	col, err := e.StartRun(ctx, opts...)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := e.ClassifyInto(gctx, col, i, doc)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return col, err
	}
	if err := ctx.Err(); err != nil {
		return col, err
	}

	sum := col.Summary()
	e.log.Info().
		Str("run", col.Run().ID).
		Int("total", sum.Total).
		Int("classified", sum.Classified).
		Int("unknown", sum.Unknown).
		Int("failed", sum.Failed).
		Msg("batch done")
	return col, nil
}

// RecordOf converts a collected entry into its stored form.
func RecordOf(e collect.Entry) store.Record {
	doc := e.Result.Document
	return store.Record{
		ID:         e.ID,
		Position:   e.Position,
		DocumentID: doc.ID,
		Subject:    doc.Subject,
		Category:   e.Result.Category,
		Score:      e.Result.Score,
		Matched:    append([]string{}, e.Result.Matched...),
		Meta:       doc.Meta,
	}
}
