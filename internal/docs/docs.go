// Package docs loads documents to classify from JSONL batches and single files.
package docs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cognicore/lemmacat/pkg/lemmacat/classify"
	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
)

// Item is one document as read from disk.
type Item struct {
	ID          string            `json:"id"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	ContentType string            `json:"content_type,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Extensions lists the file types LoadFile understands.
var Extensions = []string{".txt", ".eml", ".html", ".htm", ".json"}

// Supported reports whether LoadFile can read path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Document converts the item to a classifier input. HTML bodies are
// reduced to their text.
func (it Item) Document() classify.Document {
	body := it.Body
	if isHTML(it.ContentType) {
		body = StripHTML(body)
	}
	return classify.Document{ID: it.ID, Subject: it.Subject, Body: body, Meta: it.Meta}
}

// Documents converts items in order.
func Documents(items []Item) []classify.Document {
	out := make([]classify.Document, len(items))
	for i, it := range items {
		out[i] = it.Document()
	}
	return out
}

// LoadFromJSONL loads items from a JSONL file. Malformed lines are logged and
// skipped. Items without an id get "<file>:<line>".
func LoadFromJSONL(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	items, err := ReadJSONL(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return items, nil
}

// ReadJSONL reads items from r; name is used for generated ids and log lines.
func ReadJSONL(r io.Reader, name string) ([]Item, error) {
	var items []Item
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}

		var item Item
		if err := json.Unmarshal(text, &item); err != nil {
			log.Warn().Str("file", name).Int("line", line).Err(err).Msg("skipping malformed JSON")
			continue
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("%s:%d", name, line)
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no valid items found in %s", internalerr.ErrInvalidInput, name)
	}
	return items, nil
}

// LoadFile reads a single document. The id is the file name unless the
// file carries its own (JSON "id", e-mail Message-Id).
func LoadFile(path string) (Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, fmt.Errorf("read file %s: %w", path, err)
	}
	name := filepath.Base(path)

	var item Item
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		item = Item{Body: string(data), ContentType: "text/plain"}
	case ".html", ".htm":
		item = Item{Subject: HTMLTitle(string(data)), Body: string(data), ContentType: "text/html"}
	case ".json":
		if err := json.Unmarshal(data, &item); err != nil {
			return Item{}, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidInput, path, err)
		}
	case ".eml":
		item, err = parseMail(data)
		if err != nil {
			return Item{}, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidInput, path, err)
		}
	default:
		return Item{}, fmt.Errorf("%w: unsupported file type %q", internalerr.ErrInvalidInput, ext)
	}

	if item.ID == "" {
		item.ID = name
	}
	if item.Meta == nil {
		item.Meta = make(map[string]string)
	}
	item.Meta["path"] = path
	return item, nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
