package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/codegraph-labs/codegraph/internal/errs"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"valid", Options{ChunkSize: 500, ChunkOverlap: 50}, false},
		{"zero overlap", Options{ChunkSize: 100, ChunkOverlap: 0}, false},
		{"zero size", Options{ChunkSize: 0, ChunkOverlap: 0}, true},
		{"negative size", Options{ChunkSize: -1, ChunkOverlap: 0}, true},
		{"negative overlap", Options{ChunkSize: 100, ChunkOverlap: -1}, true},
		{"overlap equals size", Options{ChunkSize: 100, ChunkOverlap: 100}, true},
		{"overlap exceeds size", Options{ChunkSize: 100, ChunkOverlap: 150}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var cfgErr *errs.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected ConfigurationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSplitSingleChunk(t *testing.T) {
	s := mustSplitter(t, Options{ChunkSize: 100, ChunkOverlap: 10})

	content := "line one\nline two\nline three\n"
	chunks := s.Split("src/app.py", "python", content)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.ChunkID != "src/app.py:0000" {
		t.Errorf("unexpected chunk id %q", c.ChunkID)
	}
	if c.Text != content {
		t.Errorf("expected text to be the whole file, got %q", c.Text)
	}
	if c.FilePath != "src/app.py" || c.Language != "python" || c.Index != 0 {
		t.Errorf("unexpected metadata: %+v", c)
	}
	if c.StartLine != 1 || c.EndLine != 3 {
		t.Errorf("expected lines 1-3, got %d-%d", c.StartLine, c.EndLine)
	}
}

func TestSplitBreaksAtWordBoundary(t *testing.T) {
	s := mustSplitter(t, Options{ChunkSize: 10, ChunkOverlap: 3})

	chunks := s.Split("f.py", "python", "aaaa bbbb cccc dddd")

	want := []string{"aaaa bbbb ", "bb cccc ", "cc dddd"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, text := range want {
		if chunks[i].Text != text {
			t.Errorf("chunk %d: expected %q, got %q", i, text, chunks[i].Text)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, chunks[i].Index)
		}
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	s := mustSplitter(t, Options{ChunkSize: 20, ChunkOverlap: 0})

	chunks := s.Split("f.py", "python", "para one text\n\npara two text")

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "para one text\n\n" {
		t.Errorf("expected first chunk to end at the blank line, got %q", chunks[0].Text)
	}
	if chunks[1].Text != "para two text" {
		t.Errorf("unexpected second chunk %q", chunks[1].Text)
	}
	if chunks[1].StartLine != 3 || chunks[1].EndLine != 3 {
		t.Errorf("expected second chunk on line 3, got %d-%d", chunks[1].StartLine, chunks[1].EndLine)
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := mustSplitter(t, Options{ChunkSize: 30, ChunkOverlap: 5})

	content := strings.Repeat("def fn():\n    return 1\n\n", 8)
	first := s.Split("f.py", "python", content)
	second := s.Split("f.py", "python", content)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitEmptyContent(t *testing.T) {
	s := mustSplitter(t, Options{ChunkSize: 100, ChunkOverlap: 10})

	if got := s.Split("f.py", "python", ""); got != nil {
		t.Errorf("expected nil for empty content, got %d chunks", len(got))
	}
	if got := s.Split("f.py", "python", "  \n\t\n"); got != nil {
		t.Errorf("expected nil for whitespace-only content, got %d chunks", len(got))
	}
}

func TestSplitLanguageFilter(t *testing.T) {
	s := mustSplitter(t, Options{ChunkSize: 100, ChunkOverlap: 10, Languages: []string{"Python"}})

	if !s.Accepts("python") {
		t.Error("expected python to be accepted case-insensitively")
	}
	if s.Accepts("java") {
		t.Error("expected java to be rejected")
	}
	if got := s.Split("A.java", "java", "public class A {}"); got != nil {
		t.Errorf("expected nil for filtered language, got %d chunks", len(got))
	}
}

func TestSplitAllPreservesOrder(t *testing.T) {
	s := mustSplitter(t, Options{ChunkSize: 100, ChunkOverlap: 10})

	chunks := s.SplitAll([]FileContent{
		{Path: "a.py", Language: "python", Content: "print('a')\n"},
		{Path: "b.py", Language: "python", Content: "print('b')\n"},
	})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].FilePath != "a.py" || chunks[1].FilePath != "b.py" {
		t.Errorf("expected file order preserved, got %s then %s",
			chunks[0].FilePath, chunks[1].FilePath)
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("src/app.py", 0); got != "src/app.py:0000" {
		t.Errorf("unexpected id %q", got)
	}
	if got := ChunkID("src/app.py", 42); got != "src/app.py:0042" {
		t.Errorf("unexpected id %q", got)
	}
	// Padding keeps lexicographic order aligned with positional order.
	if ChunkID("f.py", 2) > ChunkID("f.py", 10) {
		t.Error("expected zero-padded ids to sort positionally")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"single no newline", "hello", 1},
		{"single with newline", "hello\n", 1},
		{"multi", "a\nb\nc\n", 3},
		{"trailing fragment", "a\nb\nc", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountLines(tt.content); got != tt.want {
				t.Errorf("CountLines = %d, want %d", got, tt.want)
			}
		})
	}
}

func mustSplitter(t *testing.T, opts Options) *Splitter {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("failed to create splitter: %v", err)
	}
	return s
}
