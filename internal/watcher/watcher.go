// Package watcher drives incremental re-ingestion: it watches a directory
// tree for source changes and reports them in debounced batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes is
// reported. Editors fire several events per save; the window coalesces
// them into one re-ingestion.
const DefaultDebounce = 2 * time.Second

// Handler receives a debounced batch of changed file paths, relative to
// the watched root, sorted.
type Handler func(ctx context.Context, paths []string)

// Watcher watches a directory tree recursively.
type Watcher struct {
	root       string
	debounce   time.Duration
	extensions map[string]bool
	exclude    []string
	logger     *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions restricts reporting to the given file extensions.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		w.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			w.extensions[strings.ToLower(e)] = true
		}
	}
}

// WithExclude sets directory name fragments to skip.
func WithExclude(patterns []string) Option {
	return func(w *Watcher) {
		w.exclude = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a Watcher for the directory tree rooted at root.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root; %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch root; %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", abs)
	}

	w := &Watcher{
		root:     abs,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is cancelled, invoking handler with each
// debounced batch of changes. Newly created directories are picked up and
// watched as they appear.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher; %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching", "root", w.root, "debounce", w.debounce)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.skipDir(event.Name) {
						if err := w.addTree(fsw, event.Name); err != nil {
							w.logger.Warn("failed to watch new directory",
								"path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			rel, ok := w.relevant(event.Name)
			if !ok {
				continue
			}
			pending[rel] = true
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)

			w.logger.Info("changes detected", "files", len(paths))
			handler(ctx, paths)
		}
	}
}

// addTree registers a directory and its subdirectories with the watcher.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s; %w", path, err)
		}
		return nil
	})
}

// skipDir reports whether dir is hidden or excluded.
func (w *Watcher) skipDir(dir string) bool {
	base := filepath.Base(dir)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range w.exclude {
		if strings.Contains(dir, pattern) {
			return true
		}
	}
	return false
}

// relevant maps an event path to a root-relative slash path, or reports
// false when the file is filtered out.
func (w *Watcher) relevant(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return "", false
	}
	if w.extensions != nil {
		ext := strings.ToLower(filepath.Ext(name))
		if !w.extensions[ext] {
			return "", false
		}
	}
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", false
	}
	if strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
