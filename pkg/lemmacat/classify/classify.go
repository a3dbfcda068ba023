// Package classify scores documents against a category index and picks one
// category per document.
//
// A keyword phrase matches when its normalized text is a substring of the
// document's lemma-joined haystack. Matching is not aligned to token
// boundaries, so "atm error" matches the haystack of "bobcatm errors" and a
// short keyword can match inside a longer lemma.
package classify

import (
	"fmt"
	"strings"

	"github.com/cognicore/lemmacat/pkg/lemmacat/taxonomy"
)

// Unknown is assigned when no category scores above zero.
const Unknown = taxonomy.Reserved

// Normalizer produces the haystack a document is searched in.
type Normalizer interface {
	NormalizeToString(text string) (string, error)
}

// Document is one text to classify. Only Body is inspected; the other
// fields are carried into the Result unchanged.
type Document struct {
	ID      string            `json:"id,omitempty"`
	Subject string            `json:"subject,omitempty"`
	Body    string            `json:"body"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// CategoryScore is the score of one category for one document.
type CategoryScore struct {
	Category string   `json:"category"`
	Score    int      `json:"score"`
	Matched  []string `json:"matched"`
}

// Result is the outcome of classifying one document.
type Result struct {
	Document Document `json:"document"`
	Category string   `json:"category"`
	Score    int      `json:"score"`
	// Matched holds the winning category's matching keywords, normalized,
	// in declared order. Empty when Category is Unknown.
	Matched []string `json:"matched_keywords"`
	// Scores explains the decision: every category in index order.
	Scores []CategoryScore `json:"scores,omitempty"`
}

// IsUnknown reports whether no category matched.
func (r Result) IsUnknown() bool { return r.Category == Unknown }

// Classifier assigns categories. It holds no per-call state, so one value
// may serve any number of goroutines as long as its normalizer can.
type Classifier struct {
	normalizer Normalizer
}

// New creates a classifier. Use the normalizer the index was built with.
func New(n Normalizer) *Classifier {
	return &Classifier{normalizer: n}
}

// Classify normalizes doc.Body and scores it against idx.
// The only possible error is a normalization failure for this document.
func (c *Classifier) Classify(doc Document, idx *taxonomy.Index) (Result, error) {
	haystack, err := c.normalizer.NormalizeToString(doc.Body)
	if err != nil {
		if doc.ID != "" {
			return Result{}, fmt.Errorf("classify %s: %w", doc.ID, err)
		}
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	return Decide(doc, Score(haystack, idx)), nil
}

// Score computes every category's score against haystack in index order.
// A phrase counts once however often it occurs.
func Score(haystack string, idx *taxonomy.Index) []CategoryScore {
	scores := make([]CategoryScore, idx.Len())
	for i := range scores {
		cat := idx.Category(i)
		matched := make([]string, 0)
		for k := 0; k < cat.Len(); k++ {
			kw := cat.Keyword(k).Normalized
			if strings.Contains(haystack, kw) {
				matched = append(matched, kw)
			}
		}
		scores[i] = CategoryScore{Category: cat.Name, Score: len(matched), Matched: matched}
	}
	return scores
}

// Decide picks the winner from scores: the first category with the highest
// score, or Unknown when that score is zero.
func Decide(doc Document, scores []CategoryScore) Result {
	best := -1
	for i, s := range scores {
		if best < 0 || s.Score > scores[best].Score {
			best = i
		}
	}

	res := Result{
		Document: doc,
		Category: Unknown,
		Matched:  []string{},
		Scores:   scores,
	}
	if best < 0 || scores[best].Score == 0 {
		return res
	}

	res.Category = scores[best].Category
	res.Score = scores[best].Score
	res.Matched = append([]string(nil), scores[best].Matched...)
	return res
}
