package lemma

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
)

// Lexicon maps irregular word forms to a canonical form before stemming.
// A stemmer unifies "declined" and "decline" but not "paid" and "pay";
// the lexicon covers the second kind.
//
// A Lexicon is not safe for concurrent mutation. Build it fully, then share
// it read-only.
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	groups map[string][]string

	// variant -> canonical
	reverseIndex map[string]string
}

// NewLexicon creates an empty lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{
		groups:       make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadLexiconYAML loads exception groups from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - canonical: pay
//	    variants: [paid, pays]
//	  - canonical: withdraw
//	    variants: [withdrew, withdrawn]
//
// Variants must be single words; the lexicon is applied token by token.
func LoadLexiconYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLexiconYAML(data)
}

// ParseLexiconYAML parses the format accepted by LoadLexiconYAML.
func ParseLexiconYAML(data []byte) (*Lexicon, error) {
	var config struct {
		Lemmas []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: lexicon: %v", internalerr.ErrInvalidConfig, err)
	}

	lex := NewLexicon()
	for i, entry := range config.Lemmas {
		canonical := strings.ToLower(strings.TrimSpace(entry.Canonical))
		if canonical == "" {
			return nil, fmt.Errorf("%w: lexicon entry %d has no canonical form", internalerr.ErrInvalidConfig, i)
		}
		for _, w := range append([]string{canonical}, entry.Variants...) {
			if len(strings.Fields(w)) != 1 {
				return nil, fmt.Errorf("%w: lexicon entry %q: %q is not a single word", internalerr.ErrInvalidConfig, canonical, w)
			}
		}
		lex.AddGroup(canonical, entry.Variants)
	}

	return lex, nil
}

// AddGroup registers variants of a canonical form.
// The canonical form is always the first entry of the group. Re-adding a
// canonical form replaces its previous variants.
func (l *Lexicon) AddGroup(canonical string, variants []string) {
	canonical = strings.ToLower(strings.TrimSpace(canonical))

	if oldVariants, exists := l.groups[canonical]; exists {
		for _, oldV := range oldVariants {
			delete(l.reverseIndex, oldV)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)

	normalized = append(normalized, canonical)
	seen[canonical] = true

	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && !seen[v] {
			normalized = append(normalized, v)
			seen[v] = true
		}
	}

	l.groups[canonical] = normalized

	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Normalize returns the canonical form of a word, or the word itself when
// the lexicon does not know it.
func (l *Lexicon) Normalize(word string) string {
	if canonical, ok := l.reverseIndex[word]; ok {
		return canonical
	}
	return word
}

// Variants returns every known form of word, canonical first.
func (l *Lexicon) Variants(word string) []string {
	word = strings.ToLower(word)
	if canonical, ok := l.reverseIndex[word]; ok {
		return append([]string(nil), l.groups[canonical]...)
	}
	return []string{word}
}

// Canonicals returns the canonical forms in sorted order.
func (l *Lexicon) Canonicals() []string {
	out := make([]string, 0, len(l.groups))
	for c := range l.groups {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of groups.
func (l *Lexicon) Len() int {
	return len(l.groups)
}
