// Package collect accumulates per-document results of one classification run
// in input order.
package collect

import (
	"crypto/rand"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lemmacat/pkg/lemmacat/classify"
)

// Run identifies one batch of classifications against one taxonomy.
type Run struct {
	ID             string
	StartedAt      time.Time
	TaxonomyDigest string
}

// Entry is one successfully classified document.
type Entry struct {
	ID       string
	Position int
	Result   classify.Result
}

// Failure is a document that could not be classified.
type Failure struct {
	Position int
	Document classify.Document
	Err      error
}

// Summary counts a run's outcomes.
type Summary struct {
	Total      int
	Classified int
	Unknown    int
	Failed     int
	ByCategory map[string]int
}

// Collector records results and failures. It is safe for concurrent use;
// readers always see entries sorted by position.
type Collector struct {
	mu       sync.Mutex
	run      Run
	entropy  io.Reader
	now      func() time.Time
	entries  []Entry
	failures []Failure
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the time source used for IDs and the run start.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New starts a run for the taxonomy with the given digest.
func New(taxonomyDigest string, opts ...Option) *Collector {
	c := &Collector{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	started := c.now().UTC()
	c.run = Run{
		ID:             c.newID(started),
		StartedAt:      started,
		TaxonomyDigest: taxonomyDigest,
	}
	return c
}

func (c *Collector) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), c.entropy).String()
}

// Run returns the run metadata.
func (c *Collector) Run() Run {
	return c.run
}

// Add records the result of the document at position and returns the entry.
func (c *Collector) Add(position int, res classify.Result) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry{
		ID:       c.newID(c.now()),
		Position: position,
		Result:   res,
	}
	c.entries = append(c.entries, e)
	return e
}

// Fail records a document that could not be classified.
func (c *Collector) Fail(position int, doc classify.Document, err error) Failure {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := Failure{Position: position, Document: doc, Err: err}
	c.failures = append(c.failures, f)
	return f
}

// Entries returns the recorded results sorted by position.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	out := append([]Entry(nil), c.entries...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Results returns the recorded results without entry metadata, sorted by position.
func (c *Collector) Results() []classify.Result {
	entries := c.Entries()
	out := make([]classify.Result, len(entries))
	for i, e := range entries {
		out[i] = e.Result
	}
	return out
}

// Failures returns the recorded failures sorted by position.
func (c *Collector) Failures() []Failure {
	c.mu.Lock()
	out := append([]Failure(nil), c.failures...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Len returns the number of documents seen, failed ones included.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries) + len(c.failures)
}

// Summary counts outcomes per category.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Total:      len(c.entries) + len(c.failures),
		Failed:     len(c.failures),
		ByCategory: make(map[string]int),
	}
	for _, e := range c.entries {
		s.ByCategory[e.Result.Category]++
		if e.Result.IsUnknown() {
			s.Unknown++
		} else {
			s.Classified++
		}
	}
	return s
}
