// Package taxonomy holds the category index: every category with its keyword
// phrases in both raw and normalized form, in a fixed order that decides ties.
package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
)

// Reserved is the category name kept for documents that match nothing.
const Reserved = "unknown"

// Normalizer turns a keyword phrase into its lemma-joined form.
type Normalizer interface {
	NormalizeToString(text string) (string, error)
}

// RawCategory is one entry of a source taxonomy. Names are used verbatim;
// Build rejects names with leading or trailing whitespace.
type RawCategory struct {
	Name     string
	Keywords []string
}

// Keyword is one keyword phrase of a category.
type Keyword struct {
	Raw        string
	Normalized string
}

// Category is a named, ordered, non-empty keyword list.
type Category struct {
	Name     string
	keywords []Keyword
}

// Len returns the number of keywords.
func (c Category) Len() int { return len(c.keywords) }

// Keyword returns the i-th keyword in declared order.
func (c Category) Keyword(i int) Keyword { return c.keywords[i] }

// Keywords returns a copy of the keyword list.
func (c Category) Keywords() []Keyword {
	return append([]Keyword(nil), c.keywords...)
}

// ConfigError describes why a taxonomy was rejected.
// It matches internalerr.ErrInvalidConfig with errors.Is.
type ConfigError struct {
	Category string
	Keyword  string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("taxonomy")
	if e.Category != "" {
		fmt.Fprintf(&b, ": category %q", e.Category)
	}
	if e.Keyword != "" {
		fmt.Fprintf(&b, ": keyword %q", e.Keyword)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{internalerr.ErrInvalidConfig, e.Err}
	}
	return []error{internalerr.ErrInvalidConfig}
}

// Index is the immutable, ordered set of categories a classifier scores
// against. Order is the tie-break order. An Index is safe for concurrent use.
type Index struct {
	categories []Category
	byName     map[string]int
	keywords   int
	digest     string
}

// Build normalizes every keyword phrase as a whole and returns the index.
// Each phrase keeps its lemma order so multi-word phrases still match as one
// contiguous substring.
func Build(n Normalizer, raw []RawCategory) (*Index, error) {
	if len(raw) == 0 {
		return nil, &ConfigError{Reason: "taxonomy is empty"}
	}

	idx := &Index{
		categories: make([]Category, 0, len(raw)),
		byName:     make(map[string]int, len(raw)),
	}
	h := sha256.New()

	for _, rc := range raw {
		name := rc.Name
		switch {
		case strings.TrimSpace(name) == "":
			return nil, &ConfigError{Reason: "category name is empty"}
		case strings.TrimSpace(name) != name:
			return nil, &ConfigError{Category: name, Reason: "category name has surrounding whitespace"}
		case name == Reserved:
			return nil, &ConfigError{Category: name, Reason: "name is reserved for unmatched documents"}
		case len(rc.Keywords) == 0:
			return nil, &ConfigError{Category: name, Reason: "category has no keywords"}
		}
		if _, dup := idx.byName[name]; dup {
			return nil, &ConfigError{Category: name, Reason: "duplicate category name"}
		}

		cat := Category{Name: name, keywords: make([]Keyword, 0, len(rc.Keywords))}
		fmt.Fprintf(h, "%s\x00", name)

		for _, kw := range rc.Keywords {
			normalized, err := n.NormalizeToString(kw)
			if err != nil {
				return nil, &ConfigError{Category: name, Keyword: kw, Reason: "keyword cannot be normalized", Err: err}
			}
			// An empty phrase is a substring of every document.
			if normalized == "" {
				return nil, &ConfigError{Category: name, Keyword: kw, Reason: "keyword normalizes to nothing"}
			}
			cat.keywords = append(cat.keywords, Keyword{Raw: kw, Normalized: normalized})
			fmt.Fprintf(h, "%s\x01", normalized)
		}

		idx.byName[name] = len(idx.categories)
		idx.categories = append(idx.categories, cat)
		idx.keywords += len(cat.keywords)
		h.Write([]byte{'\n'})
	}

	idx.digest = hex.EncodeToString(h.Sum(nil))
	return idx, nil
}

// Len returns the number of categories.
func (ix *Index) Len() int { return len(ix.categories) }

// Category returns the i-th category in tie-break order.
func (ix *Index) Category(i int) Category { return ix.categories[i] }

// Lookup returns the category with the given name.
func (ix *Index) Lookup(name string) (Category, bool) {
	i, ok := ix.byName[name]
	if !ok {
		return Category{}, false
	}
	return ix.categories[i], true
}

// Names returns category names in tie-break order.
func (ix *Index) Names() []string {
	names := make([]string, len(ix.categories))
	for i, c := range ix.categories {
		names[i] = c.Name
	}
	return names
}

// KeywordCount returns the total number of keyword phrases.
func (ix *Index) KeywordCount() int { return ix.keywords }

// Digest identifies the normalized taxonomy, order included. Two indexes
// with the same digest classify every document the same way.
func (ix *Index) Digest() string { return ix.digest }
