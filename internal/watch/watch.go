// Package watch reports documents that appear in or change inside an inbox
// directory.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Op is the kind of change seen for a file.
type Op int

const (
	Created Op = iota + 1
	Modified
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	}
	return "unknown"
}

// Event is a change to one watched file.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches a single directory (not recursive) using fsnotify.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string // lower-case, with leading dot
	log        zerolog.Logger
}

// New creates a watcher for files with the given extensions.
func New(extensions []string, logger zerolog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := make([]string, len(extensions))
	for i, e := range extensions {
		exts[i] = strings.ToLower(e)
	}
	return &Watcher{watcher: w, extensions: exts, log: logger}, nil
}

// Watch starts monitoring dir. The returned channel closes when ctx is done
// or the watcher is closed. Removes and renames away are ignored.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.accepts(event.Name) {
					continue
				}

				var op Op
				switch {
				case event.Has(fsnotify.Create):
					op = Created
				case event.Has(fsnotify.Write):
					op = Modified
				default:
					continue
				}

				select {
				case events <- Event{Path: event.Name, Op: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn().Err(err).Str("dir", dir).Msg("watch error")
			}
		}
	}()

	return events, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Existing lists files already in dir that the watcher would report,
// sorted by name.
func (w *Watcher) Existing(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if w.accepts(path) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (w *Watcher) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Seen remembers the size and modification time of files already handled,
// so repeated write events for unchanged content are dropped.
type Seen struct {
	mu    sync.Mutex
	files map[string]stamp
}

type stamp struct {
	size    int64
	modTime time.Time
}

// NewSeen creates an empty Seen.
func NewSeen() *Seen {
	return &Seen{files: make(map[string]stamp)}
}

// Changed reports whether path differs from the last time Changed returned
// true for it, and records its current state.
func (s *Seen) Changed(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	cur := stamp{size: info.Size(), modTime: info.ModTime()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.files[path]; ok && prev == cur {
		return false, nil
	}
	s.files[path] = cur
	return true, nil
}
