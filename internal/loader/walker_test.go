package loader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docA = `{"name": "a", "nodes": [{"id": "x"}, {"id": "y"}], "edges": [{"source": "x", "target": "y"}]}`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.json":              docA,
		"nested/b.JSON":       `{"name": "b", "nodes": []}`,
		"notes.txt":           "not a document",
		"scratch/c.json":      `{"name": "c", "nodes": []}`,
		"node_modules/d.json": `{"name": "d", "nodes": []}`,
		".gitignore":          "# scratch work\nscratch/\n",
	})

	t.Run("HonorsIgnoreFiles", func(t *testing.T) {
		t.Parallel()
		matcher, err := LoadMatcher(dir)
		require.NoError(t, err)

		entries, err := LoadDir(t.Context(), dir, matcher)

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a.json", entries[0].RelPath)
		assert.Equal(t, filepath.Join("nested", "b.JSON"), entries[1].RelPath)
		assert.Equal(t, "a", entries[0].Doc.Name)
		assert.Len(t, entries[0].SHA256, 64)
		assert.Equal(t, "x->y", entries[0].Doc.Edges[0].ID)
	})

	t.Run("NilMatcherLoadsEverything", func(t *testing.T) {
		t.Parallel()
		entries, err := LoadDir(t.Context(), dir, nil)

		require.NoError(t, err)
		assert.Len(t, entries, 4)
	})

	t.Run("InvalidDocumentFails", func(t *testing.T) {
		t.Parallel()
		bad := t.TempDir()
		writeFiles(t, bad, map[string]string{
			"ok.json":  docA,
			"bad.json": `{"nodes": [{"id": "x"}, {"id": "x"}]}`,
		})

		_, err := LoadDir(t.Context(), bad, nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("MissingGitignore", func(t *testing.T) {
		t.Parallel()
		matcher, err := LoadMatcher(t.TempDir())
		require.NoError(t, err)
		assert.True(t, matcher.Match([]string{".git"}, true))
		assert.False(t, matcher.Match([]string{"a.json"}, false))
	})
}

type changeRecorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *changeRecorder) handle(_ context.Context, changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changes)
}

func (r *changeRecorder) all() [][]Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Change(nil), r.batches...)
}

func TestWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.json": docA})

	ctx, cancel := context.WithCancel(t.Context())
	rec := &changeRecorder{}
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, nil, 50*time.Millisecond, rec.handle, nil)
	}()

	// The watcher registers asynchronously; keep rewriting until it sees a change.
	require.Eventually(t, func() bool {
		writeFiles(t, dir, map[string]string{"b.json": `{"name": "b", "nodes": []}`})
		return len(rec.all()) > 0
	}, 5*time.Second, 100*time.Millisecond)

	batch := rec.all()[0]
	require.Len(t, batch, 1)
	assert.Equal(t, "b.json", batch[0].RelPath)
	assert.Equal(t, "b", batch[0].Doc.Name)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.json")))
	assert.Eventually(t, func() bool {
		for _, b := range rec.all() {
			for _, c := range b {
				if c.RelPath == "a.json" && c.Removed {
					return true
				}
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "doc.json")
	doc := &Document{
		Name:  "net",
		Nodes: []NodeDoc{{ID: "a", Selected: true}, {ID: "b"}},
		Edges: []EdgeDoc{{Source: "a", Target: "b"}},
	}

	require.NoError(t, WriteFile(path, doc))
	got, err := ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "net", got.Name)
	assert.True(t, got.Nodes[0].Selected)
	assert.Equal(t, "a->b", got.Edges[0].ID)
}
