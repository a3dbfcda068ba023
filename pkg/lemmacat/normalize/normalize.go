// Package normalize turns raw text into the lemma form keyword matching runs on.
package normalize

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/lemma"
)

// Separator joins lemmas into a haystack.
const Separator = " "

var errInvalidUTF8 = errors.New("text is not valid UTF-8")

// Error reports text the lemmatizer could not process.
// It matches internalerr.ErrNormalization with errors.Is.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "normalize: " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{internalerr.ErrNormalization, e.Err}
}

// Document is the normalized form of one text.
type Document struct {
	Lemmas   []string
	Haystack string // Lemmas joined by Separator
}

// Normalizer adapts a lemmatizer into a pure text -> lemmas function.
// It is safe for concurrent use when its lemmatizer is.
type Normalizer struct {
	lemmatizer lemma.Lemmatizer
}

// New creates a normalizer backed by l.
func New(l lemma.Lemmatizer) *Normalizer {
	return &Normalizer{lemmatizer: l}
}

// Normalize returns the lemmas of text in order. Text is NFKC-folded and
// lower-cased before lemmatizing; tokens that are only punctuation or
// whitespace are dropped.
func (n *Normalizer) Normalize(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, &Error{Err: errInvalidUTF8}
	}

	folded := strings.ToLower(norm.NFKC.String(text))

	tokens, err := n.lemmatizer.Lemmatize(folded)
	if err != nil {
		return nil, &Error{Err: err}
	}

	lemmas := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isNoise(tok.Lemma) {
			continue
		}
		lemmas = append(lemmas, tok.Lemma)
	}
	return lemmas, nil
}

// NormalizeToString returns the lemmas of text joined by Separator.
func (n *Normalizer) NormalizeToString(text string) (string, error) {
	doc, err := n.Document(text)
	if err != nil {
		return "", err
	}
	return doc.Haystack, nil
}

// Document normalizes text and keeps both the lemma sequence and the haystack.
func (n *Normalizer) Document(text string) (Document, error) {
	lemmas, err := n.Normalize(text)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Lemmas:   lemmas,
		Haystack: strings.Join(lemmas, Separator),
	}, nil
}

// isNoise reports lemmas made only of punctuation and whitespace.
func isNoise(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
