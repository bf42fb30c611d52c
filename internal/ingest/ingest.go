// Package ingest supplies source documents to the pipeline. The folder
// source walks a local repository, filters to indexable source files, and
// reads contents concurrently. Per-file read failures are skips, never
// fatal to the walk.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Document is one readable source file.
type Document struct {
	// Path is the file path relative to the source root, slash-separated.
	// It is the identity used in the graph.
	Path string

	// Language is the programming language derived from the extension.
	Language string

	// Content is the full file content.
	Content string

	// Lines is the number of lines in the content.
	Lines int
}

// Options configures a FolderSource.
type Options struct {
	// Extensions is the allow-list of file extensions, each with its dot.
	// Empty means the default set.
	Extensions []string

	// ExcludePatterns are path fragments or "*.ext" globs to skip.
	ExcludePatterns []string

	// MaxFileSize in bytes. Files above it are skipped. Zero means 10MB.
	MaxFileSize int64

	// SkipHidden skips dot-files and dot-directories.
	SkipHidden bool

	// Workers bounds concurrent file reads. Zero means 4.
	Workers int
}

// DefaultOptions returns the standard folder source configuration.
func DefaultOptions() Options {
	return Options{
		Extensions:      []string{".py", ".java", ".js", ".ts"},
		ExcludePatterns: []string{".git", "node_modules", "__pycache__", "vendor"},
		MaxFileSize:     10 * 1024 * 1024,
		SkipHidden:      true,
		Workers:         4,
	}
}

// FolderSource reads documents from a local directory tree.
type FolderSource struct {
	root    string
	opts    Options
	exts    map[string]struct{}
	logger  *slog.Logger
	skipped int
}

// NewFolderSource creates a folder source rooted at root. A codegraph.toml
// manifest at the root, when present, overrides the passed options.
func NewFolderSource(root string, opts Options, logger *slog.Logger) (*FolderSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source root %s; %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	manifest, err := LoadManifest(root)
	if err != nil {
		return nil, err
	}
	opts = manifest.apply(opts)

	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultOptions().MaxFileSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &FolderSource{
		root:   root,
		opts:   opts,
		exts:   exts,
		logger: logger.With("component", "ingest"),
	}, nil
}

// Skipped returns the number of files skipped by the last Load.
func (s *FolderSource) Skipped() int {
	return s.skipped
}

// Load walks the tree and reads every indexable file. Results are ordered
// by path, so repeated loads over an unchanged tree are identical.
func (s *FolderSource) Load(ctx context.Context) ([]Document, error) {
	s.skipped = 0

	var candidates []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("walk error, skipping", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == s.root {
				return nil
			}
			if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if matchesExclude(rel, s.opts.ExcludePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if matchesExclude(rel, s.opts.ExcludePatterns) {
			return nil
		}
		if _, ok := s.exts[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		if info, infoErr := d.Info(); infoErr == nil && info.Size() > s.opts.MaxFileSize {
			s.logger.Debug("skipping oversized file", "path", rel, "size", info.Size())
			s.skipped++
			return nil
		}

		candidates = append(candidates, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s; %w", s.root, err)
	}

	docs := make([]Document, 0, len(candidates))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, rel := range candidates {
		rel := rel
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			data, readErr := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
			if readErr != nil {
				s.logger.Warn("failed to read file, skipping", "path", rel, "error", readErr)
				mu.Lock()
				s.skipped++
				mu.Unlock()
				return nil
			}

			if isBinary(data) {
				s.logger.Debug("skipping binary file", "path", rel)
				mu.Lock()
				s.skipped++
				mu.Unlock()
				return nil
			}

			content := string(data)
			doc := Document{
				Path:     rel,
				Language: DetectLanguage(rel),
				Content:  content,
				Lines:    countLines(content),
			}

			mu.Lock()
			docs = append(docs, doc)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })

	return docs, nil
}

// matchesExclude reports whether rel matches any exclude pattern: either a
// path fragment or a "*.ext" glob against the base name.
func matchesExclude(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "*.") {
			if ok, _ := filepath.Match(p, base); ok {
				return true
			}
			continue
		}
		if strings.Contains(rel, p) {
			return true
		}
	}
	return false
}

// isBinary reports whether data looks like binary content: a NUL byte in
// the first 8KB or fewer than 70% printable runes.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if len(sample) == 0 {
		return false
	}

	printable := 0
	total := 0
	for i := 0; i < len(sample); {
		r, size := utf8.DecodeRune(sample[i:])
		if r == 0 {
			return true
		}
		if r == utf8.RuneError && size == 1 {
			total++
			i++
			continue
		}
		if r == '\n' || r == '\r' || r == '\t' || r >= 0x20 {
			printable++
		}
		total++
		i += size
	}

	return float64(printable)/float64(total) < 0.7
}

// countLines counts lines, treating a trailing fragment as a line.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
