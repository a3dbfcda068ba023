package cli

import (
	"context"
	"fmt"

	"github.com/cognicore/lemmacat/pkg/lemmacat"
	"github.com/cognicore/lemmacat/pkg/lemmacat/config"
	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/lemma"
	"github.com/cognicore/lemmacat/pkg/lemmacat/normalize"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store/bolt"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store/memstore"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store/sqlite"
)

const (
	formatTable = "table"
	formatJSONL = "jsonl"
)

func (a *app) format() (string, error) {
	switch f := a.v.GetString("format"); f {
	case formatTable, formatJSONL:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", internalerr.ErrInvalidConfig, f)
	}
}

// components loads the taxonomy and lexicon named by the settings.
func (a *app) components() (*config.Components, error) {
	taxonomyPath := a.v.GetString("taxonomy")
	if taxonomyPath == "" {
		return nil, fmt.Errorf("%w: --taxonomy is required", internalerr.ErrInvalidConfig)
	}

	loader := &config.Loader{
		TaxonomyPath: taxonomyPath,
		LexiconPath:  a.v.GetString("lexicon"),
		Language:     a.v.GetString("language"),
	}
	comp, err := loader.Load()
	if err != nil {
		return nil, err
	}
	a.logger().Debug().
		Str("taxonomy", taxonomyPath).
		Int("categories", comp.Index.Len()).
		Msg("taxonomy loaded")
	return comp, nil
}

// normalizer builds a normalizer without requiring a taxonomy.
func (a *app) normalizer() (*normalize.Normalizer, error) {
	var opts []lemma.Option
	if path := a.v.GetString("lexicon"); path != "" {
		lex, err := config.LoadLexicon(path)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		opts = append(opts, lemma.WithLexicon(lex))
	}
	lem, err := lemma.NewSnowball(a.v.GetString("language"), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return normalize.New(lem), nil
}

// openStore opens the configured store. It returns nil for driver "none".
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	driver := a.v.GetString("store.driver")
	path := a.v.GetString("store.path")

	needPath := func() error {
		if path == "" {
			return fmt.Errorf("%w: store %s needs --store-path", internalerr.ErrInvalidConfig, driver)
		}
		return nil
	}

	var (
		st  store.Store
		err error
	)
	switch driver {
	case "", "none":
		return nil, nil
	case "memory":
		st = memstore.New()
	case "sqlite":
		if err := needPath(); err != nil {
			return nil, err
		}
		st, err = sqlite.OpenSQLite(ctx, path)
	case "bolt":
		if err := needPath(); err != nil {
			return nil, err
		}
		st, err = bolt.Open(path)
	default:
		return nil, fmt.Errorf("%w: unknown store %q", internalerr.ErrInvalidConfig, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	a.logger().Debug().Str("driver", driver).Str("path", path).Msg("store opened")
	return st, nil
}

// engine builds a classification engine from the settings.
func (a *app) engine(ctx context.Context) (*lemmacat.Engine, error) {
	comp, err := a.components()
	if err != nil {
		return nil, err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	eng, err := lemmacat.New(lemmacat.Options{
		Normalizer: comp.Normalizer,
		Index:      comp.Index,
		Store:      st,
		Workers:    a.v.GetInt("workers"),
		Logger:     a.logger(),
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}
	return eng, nil
}
