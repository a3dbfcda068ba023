package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lemmacat/pkg/lemmacat"
	"github.com/cognicore/lemmacat/pkg/lemmacat/config"
	"github.com/cognicore/lemmacat/pkg/lemmacat/store/memstore"
)

// syncBuffer is a bytes.Buffer that may be read while a command writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) lines() int {
	return strings.Count(b.String(), "\n")
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestInboxHandle(t *testing.T) {
	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs)
	t.Cleanup(func() { log.Logger = prev })

	comp, err := (&config.Loader{TaxonomyPath: taxonomyPath}).Load()
	require.NoError(t, err)
	st := memstore.New()
	eng, err := lemmacat.New(lemmacat.Options{Normalizer: comp.Normalizer, Index: comp.Index, Store: st, Workers: 1})
	require.NoError(t, err)

	ctx := context.Background()
	col, err := eng.StartRun(ctx)
	require.NoError(t, err)

	var out bytes.Buffer
	in := newInbox(eng, col, newResultWriter(&out, formatJSONL, false))
	dir := t.TempDir()

	a := writeDoc(t, dir, "a.txt", "the atm swallowed my card")
	require.NoError(t, in.handle(ctx, a))
	// unchanged size and mtime
	require.NoError(t, in.handle(ctx, a))

	bad := writeDoc(t, dir, "b.json", "{")
	require.NoError(t, in.handle(ctx, bad))
	require.NoError(t, in.handle(ctx, filepath.Join(dir, "gone.txt")))

	writeDoc(t, dir, "a.txt", "my credit card was declined again")
	require.NoError(t, in.handle(ctx, a))

	results := decodeResults(t, out.String())
	require.Len(t, results, 2)
	assert.Equal(t, "atm_issues", results[0].Category)
	assert.Equal(t, "credit_card_authentication_issue", results[1].Category)

	entries := col.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Position)
	assert.Equal(t, 1, entries[1].Position)

	records, err := st.ListResults(ctx, col.Run().ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	assert.Contains(t, logs.String(), "cannot read document")
	assert.Contains(t, logs.String(), "cannot stat document")
	assert.Contains(t, logs.String(), "gone.txt")
}

func TestWatchCommand(t *testing.T) {
	inboxDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	storeArgs := []string{"--store", "bolt", "--store-path", dbPath}

	writeDoc(t, inboxDir, "a.txt", "I visited the ATM but could not withdraw cash")
	writeDoc(t, inboxDir, "b.json", "{")
	writeDoc(t, inboxDir, "c.html", "<html><body><p>Birthday party on Saturday!</p></body></html>")
	writeDoc(t, inboxDir, "d.pdf", "%PDF")

	root := NewRootCommand()
	var stdout, stderr syncBuffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{
		"watch", "--taxonomy", taxonomyPath, "--dir", inboxDir, "--existing", "--format", "jsonl",
	}, storeArgs...))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return stdout.lines() >= 2 }, 10*time.Second, 20*time.Millisecond, stderr.String())

	// dropped in with a rename so the watcher sees one complete file
	staged := writeDoc(t, t.TempDir(), "e.txt", "My credit card was declined, the OTP never came.")
	require.NoError(t, os.Rename(staged, filepath.Join(inboxDir, "e.txt")))

	require.Eventually(t, func() bool { return stdout.lines() >= 3 }, 10*time.Second, 20*time.Millisecond, stderr.String())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	results := decodeResults(t, stdout.String())
	require.Len(t, results, 3)
	assert.Equal(t, "a.txt", results[0].Document.ID)
	assert.Equal(t, "atm_issues", results[0].Category)
	assert.Equal(t, "c.html", results[1].Document.ID)
	assert.Equal(t, "personal", results[1].Category)
	assert.Equal(t, "e.txt", results[2].Document.ID)
	assert.Equal(t, "credit_card_authentication_issue", results[2].Category)

	errOut := stderr.String()
	assert.Contains(t, errOut, "cannot read document")
	m := regexp.MustCompile(`run (\w+): 3 documents, 3 classified`).FindStringSubmatch(errOut)
	require.Len(t, m, 2, errOut)

	shown, _, err := run(t, "", append([]string{"runs", "show", m[1], "--format", "jsonl"}, storeArgs...)...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(shown), "\n")
	require.Len(t, lines, 3)
	for i, id := range []string{"a.txt", "c.html", "e.txt"} {
		assert.Contains(t, lines[i], fmt.Sprintf(`"position":%d`, i))
		assert.Contains(t, lines[i], fmt.Sprintf(`"document_id":%q`, id))
	}
}
