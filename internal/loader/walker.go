package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/sync/errgroup"
)

// Entry is a network document found on disk.
type Entry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the scanned directory.
	RelPath string

	// SHA256 is the hash of the file content.
	SHA256 string

	// Doc is the decoded document.
	Doc *Document
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	".vizsync/",
	"node_modules/",
}

// LoadMatcher builds an ignore matcher from the default patterns and the
// .gitignore file at the root of dir, if any.
func LoadMatcher(dir string) (gitignore.Matcher, error) {
	patterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns))
	for _, p := range defaultIgnorePatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return gitignore.NewMatcher(patterns), nil
}

// LoadDir decodes every network document under dir in parallel. Documents
// are returned ordered by relative path. A nil matcher ignores nothing.
func LoadDir(ctx context.Context, dir string, matcher gitignore.Matcher) ([]Entry, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && ignored(matcher, rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if isDocument(path) && !ignored(matcher, rel, false) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	entries := make([]Entry, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := readEntry(dir, path)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.RelPath, b.RelPath) })
	return entries, nil
}

// ReadFile decodes one network document.
func ReadFile(path string) (*Document, error) {
	entry, err := readEntry(filepath.Dir(path), path)
	if err != nil {
		return nil, err
	}
	return entry.Doc, nil
}

// WriteFile encodes doc to path, replacing the file.
func WriteFile(path string, doc *Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func readEntry(dir, path string) (Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Decode(bytes.NewReader(content))
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", path, err)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return Entry{}, err
	}
	hash := sha256.Sum256(content)
	return Entry{
		Path:    path,
		RelPath: rel,
		SHA256:  hex.EncodeToString(hash[:]),
		Doc:     doc,
	}, nil
}

func isDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func ignored(matcher gitignore.Matcher, rel string, isDir bool) bool {
	if matcher == nil {
		return false
	}
	return matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}
