package config

import (
	"fmt"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/lemma"
	"github.com/cognicore/lemmacat/pkg/lemmacat/normalize"
	"github.com/cognicore/lemmacat/pkg/lemmacat/taxonomy"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	TaxonomyPath  string
	LexiconPath   string // optional
	Language      string // snowball language, default english
	StemStopWords bool
}

// Components holds all loaded configuration components
type Components struct {
	Lemmatizer *lemma.Snowball
	Lexicon    *lemma.Lexicon // nil when no lexicon is configured
	Normalizer *normalize.Normalizer
	Index      *taxonomy.Index
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	if l.TaxonomyPath == "" {
		return nil, fmt.Errorf("%w: taxonomy path is required", internalerr.ErrInvalidConfig)
	}
	comp := &Components{}

	opts := []lemma.Option{lemma.WithStopWordStemming(l.StemStopWords)}
	if l.LexiconPath != "" {
		lex, err := LoadLexicon(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
		opts = append(opts, lemma.WithLexicon(lex))
	}

	lem, err := lemma.NewSnowball(l.Language, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	comp.Lemmatizer = lem
	comp.Normalizer = normalize.New(lem)

	tax, err := LoadTaxonomy(l.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	idx, err := taxonomy.Build(comp.Normalizer, tax.Categories)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	comp.Index = idx

	return comp, nil
}
