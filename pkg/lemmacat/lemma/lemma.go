// Package lemma is the boundary to the lemmatizer: it defines what the rest
// of lemmacat expects from one and ships a snowball-backed default.
package lemma

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Token is one unit of lemmatizer output.
type Token struct {
	Text  string // surface form as it appeared (after lower-casing)
	Lemma string // normalized base form
}

// Lemmatizer turns text into an ordered token sequence.
// Implementations must be deterministic for identical input.
type Lemmatizer interface {
	Lemmatize(text string) ([]Token, error)
}

// Func adapts a plain function to the Lemmatizer interface.
type Func func(text string) ([]Token, error)

// Lemmatize implements Lemmatizer.
func (f Func) Lemmatize(text string) ([]Token, error) { return f(text) }

// Languages supported by Snowball.
var Languages = []string{"english", "spanish", "french", "russian", "swedish", "norwegian", "hungarian"}

// Snowball lemmatizes with the Snowball stemmers. Stems stand in for lemmas:
// "declined" and "decline" both become "declin", which is all keyword
// matching needs as long as keywords and documents go through the same
// instance.
//
// A Snowball value is safe for concurrent use once constructed.
type Snowball struct {
	language      string
	stemStopWords bool
	tokenizer     *Tokenizer
	lexicon       *Lexicon
}

// Option configures a Snowball lemmatizer.
type Option func(*Snowball)

// WithLexicon maps irregular forms to a canonical word before stemming.
func WithLexicon(lex *Lexicon) Option {
	return func(s *Snowball) { s.lexicon = lex }
}

// WithStopWordStemming stems stop words too. By default they pass through unchanged.
func WithStopWordStemming(enabled bool) Option {
	return func(s *Snowball) { s.stemStopWords = enabled }
}

// NewSnowball creates a lemmatizer for the given language.
func NewSnowball(language string, opts ...Option) (*Snowball, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "english"
	}
	if !supported(language) {
		return nil, fmt.Errorf("lemma: unsupported language %q (supported: %s)", language, strings.Join(Languages, ", "))
	}

	s := &Snowball{
		language:  language,
		tokenizer: NewTokenizer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Language returns the stemmer language.
func (s *Snowball) Language() string { return s.language }

// Lemmatize implements Lemmatizer. Punctuation and symbols come back as
// tokens whose lemma equals their text.
func (s *Snowball) Lemmatize(text string) ([]Token, error) {
	words := s.tokenizer.Tokenize(text)
	tokens := make([]Token, 0, len(words))

	for _, w := range words {
		if !hasLetter(w) {
			tokens = append(tokens, Token{Text: w, Lemma: w})
			continue
		}

		base := w
		if s.lexicon != nil {
			base = s.lexicon.Normalize(base)
		}

		stem, err := snowball.Stem(base, s.language, s.stemStopWords)
		if err != nil {
			return nil, fmt.Errorf("lemma: stem %q: %w", w, err)
		}
		if stem == "" {
			stem = base
		}
		tokens = append(tokens, Token{Text: w, Lemma: stem})
	}

	return tokens, nil
}

func supported(language string) bool {
	for _, l := range Languages {
		if l == language {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
