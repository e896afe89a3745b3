package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet period after the last file event before a
// batch of changes is delivered.
const DefaultDebounce = 2 * time.Second

// Change is one document that changed on disk.
type Change struct {
	// RelPath is the path relative to the watched directory.
	RelPath string

	// Doc is the decoded document, nil when Removed is set.
	Doc *Document

	// Removed reports that the file no longer exists.
	Removed bool
}

// Handler receives one batch of changes, ordered by path.
type Handler func(ctx context.Context, changes []Change)

// Watch monitors dir for document changes and delivers them to handler in
// batches. It blocks until the context is cancelled.
func Watch(ctx context.Context, dir string, matcher gitignore.Matcher, debounce time.Duration, handler Handler, log *logrus.Logger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log = orDiscard(log)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, dir, matcher); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop() // Don't start yet

	log.WithField("dir", dir).Info("watching for document changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			rel, err := filepath.Rel(dir, event.Name)
			if err != nil {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !ignored(matcher, rel, true) {
						if err := addTree(watcher, event.Name, matcher); err != nil {
							log.WithError(err).Warn("watching new directory")
						}
					}
					continue
				}
			}

			if !isDocument(event.Name) || ignored(matcher, rel, false) {
				continue
			}

			changed[rel] = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watch error")

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}
			changes := collectChanges(dir, changed, log)
			changed = make(map[string]bool)
			if len(changes) > 0 {
				handler(ctx, changes)
			}
		}
	}
}

// collectChanges reads the changed documents. Unreadable documents are
// logged and skipped.
func collectChanges(dir string, changed map[string]bool, log *logrus.Logger) []Change {
	paths := make([]string, 0, len(changed))
	for rel := range changed {
		paths = append(paths, rel)
	}
	slices.Sort(paths)

	changes := make([]Change, 0, len(paths))
	for _, rel := range paths {
		path := filepath.Join(dir, rel)
		doc, err := ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			changes = append(changes, Change{RelPath: rel, Removed: true})
		case err != nil:
			log.WithError(err).WithField("file", rel).Warn("skipping unreadable document")
		default:
			changes = append(changes, Change{RelPath: rel, Doc: doc})
		}
	}
	return changes
}

func addTree(watcher *fsnotify.Watcher, root string, matcher gitignore.Matcher) error {
	base := root
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		if rel != "." && ignored(matcher, rel, true) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func orDiscard(log *logrus.Logger) *logrus.Logger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
