// Package chunker splits source files into overlapping text chunks with
// positional metadata. Splitting is deterministic: identical input and
// options always produce identical chunks.
package chunker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codegraph-labs/codegraph/internal/errs"
)

// separators is the split preference order. The splitter cuts at the last
// occurrence of the highest-priority separator inside the size window,
// falling back to a hard cut at the window edge.
var separators = []string{"\n\n", "\n", " "}

// Options configures a Splitter. Sizes are measured in runes.
type Options struct {
	// ChunkSize is the maximum chunk length.
	ChunkSize int

	// ChunkOverlap is how far each chunk reaches back into its predecessor.
	// Must be strictly less than ChunkSize.
	ChunkOverlap int

	// Languages optionally restricts splitting to the named languages
	// (lowercase). Empty means all languages pass.
	Languages []string
}

// DefaultOptions returns the standard splitting configuration.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    500,
		ChunkOverlap: 50,
	}
}

// Chunk is one contiguous span of a source file.
type Chunk struct {
	// ChunkID uniquely identifies the chunk: "<file_path>:<index>".
	ChunkID string

	// FilePath is the owning file.
	FilePath string

	// Language is the file's detected language.
	Language string

	// Text is the exact substring of the file content.
	Text string

	// Index is the chunk's position within its file, starting at 0.
	Index int

	// StartLine and EndLine are 1-based inclusive line numbers.
	StartLine int
	EndLine   int
}

// Splitter produces chunks from file content.
type Splitter struct {
	opts      Options
	languages map[string]struct{}
}

// New creates a Splitter, validating options before any work happens.
func New(opts Options) (*Splitter, error) {
	if opts.ChunkSize <= 0 {
		return nil, &errs.ConfigurationError{Field: "chunk_size", Message: fmt.Sprintf("must be positive, got %d", opts.ChunkSize)}
	}
	if opts.ChunkOverlap < 0 {
		return nil, &errs.ConfigurationError{Field: "chunk_overlap", Message: fmt.Sprintf("must not be negative, got %d", opts.ChunkOverlap)}
	}
	if opts.ChunkOverlap >= opts.ChunkSize {
		return nil, &errs.ConfigurationError{
			Field:   "chunk_overlap",
			Message: fmt.Sprintf("must be strictly less than chunk_size (%d >= %d)", opts.ChunkOverlap, opts.ChunkSize),
		}
	}

	s := &Splitter{opts: opts}
	if len(opts.Languages) > 0 {
		s.languages = make(map[string]struct{}, len(opts.Languages))
		for _, lang := range opts.Languages {
			s.languages[strings.ToLower(lang)] = struct{}{}
		}
	}
	return s, nil
}

// Accepts reports whether the splitter processes files of the given language.
func (s *Splitter) Accepts(language string) bool {
	if s.languages == nil {
		return true
	}
	_, ok := s.languages[strings.ToLower(language)]
	return ok
}

// Split chunks a single file. Empty content and filtered-out languages
// produce zero chunks; neither is an error.
func (s *Splitter) Split(filePath, language, content string) []Chunk {
	if !s.Accepts(language) {
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	runes := []rune(content)
	lineStarts := buildLineStarts(runes)

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + s.opts.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.findBreak(runes, start, end)
		}

		text := string(runes[start:end])
		idx := len(chunks)
		chunks = append(chunks, Chunk{
			ChunkID:   ChunkID(filePath, idx),
			FilePath:  filePath,
			Language:  language,
			Text:      text,
			Index:     idx,
			StartLine: lineAt(lineStarts, start),
			EndLine:   lineAt(lineStarts, end-1),
		})

		if end == len(runes) {
			break
		}

		next := end - s.opts.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// SplitAll chunks an ordered sequence of files, preserving order.
func (s *Splitter) SplitAll(files []FileContent) []Chunk {
	var all []Chunk
	for _, f := range files {
		all = append(all, s.Split(f.Path, f.Language, f.Content)...)
	}
	return all
}

// FileContent is the splitter's view of one source file.
type FileContent struct {
	Path     string
	Language string
	Content  string
}

// ChunkID builds the canonical chunk identifier for a file position.
// Zero-padding keeps lexicographic order equal to positional order.
func ChunkID(filePath string, index int) string {
	return fmt.Sprintf("%s:%04d", filePath, index)
}

// findBreak returns the cut position inside (start, limit] that ends the
// chunk at the most natural boundary. Cuts happen after the separator so
// the next chunk begins at a fresh line or word.
func (s *Splitter) findBreak(runes []rune, start, limit int) int {
	window := string(runes[start:limit])

	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + len([]rune(window[:i])) + len([]rune(sep))
		}
	}
	return limit
}

// buildLineStarts returns the rune offset of each line's first rune.
func buildLineStarts(runes []rune) []int {
	starts := []int{0}
	for i, r := range runes {
		if r == '\n' && i+1 < len(runes) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineAt converts a rune offset to a 1-based line number.
func lineAt(lineStarts []int, offset int) int {
	if offset < 0 {
		return 1
	}
	// First line start strictly greater than offset; its predecessor owns it.
	i := sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > offset })
	return i
}

// EstimateTokens approximates the token count for a text.
// Uses the ~4 characters per token heuristic.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// CountLines returns the number of lines in content, counting a trailing
// fragment without a newline as a line.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
