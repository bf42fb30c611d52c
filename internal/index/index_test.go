package index

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/providers"
	"github.com/codegraph-labs/codegraph/internal/testutil"
)

func fastRetry() providers.RetryPolicy {
	return providers.RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, Timeout: time.Second}
}

func makeChunks(n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{
			ChunkID:  chunker.ChunkID("app.py", i),
			FilePath: "app.py",
			Text:     fmt.Sprintf("def handler_%d(): pass", i),
			Index:    i,
		}
	}
	return chunks
}

func TestRunEmbedsAllChunks(t *testing.T) {
	store := testutil.NewMockStore(8)
	provider := &testutil.MockEmbeddingsProvider{Dim: 8}

	ix := New(store, provider, WithRetryPolicy(fastRetry()), WithBatchSize(4))
	report, err := ix.Run(context.Background(), makeChunks(10))
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if report.Total != 10 || report.Embedded != 10 || report.Failed != 0 {
		t.Errorf("report = %+v, want 10/10/0", report)
	}
	if got := report.Coverage(); got != 1.0 {
		t.Errorf("Coverage() = %v, want 1.0", got)
	}
	if len(store.Embeddings) != 10 {
		t.Errorf("stored %d vectors, want 10", len(store.Embeddings))
	}
	// 10 chunks in batches of 4 -> 3 provider calls.
	if provider.Calls() != 3 {
		t.Errorf("provider calls = %d, want 3", provider.Calls())
	}
}

func TestRunFailedItemLeftUnembedded(t *testing.T) {
	chunks := makeChunks(20)
	bad := chunks[7].Text

	store := testutil.NewMockStore(8)
	provider := &testutil.MockEmbeddingsProvider{
		Dim:       8,
		FailTexts: map[string]error{bad: errors.New("service unavailable")},
	}

	ix := New(store, provider, WithRetryPolicy(fastRetry()), WithBatchSize(5))
	report, err := ix.Run(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if report.Embedded != 19 || report.Failed != 1 {
		t.Errorf("embedded/failed = %d/%d, want 19/1", report.Embedded, report.Failed)
	}
	if len(report.FailedChunkIDs) != 1 || report.FailedChunkIDs[0] != chunks[7].ChunkID {
		t.Errorf("FailedChunkIDs = %v, want [%s]", report.FailedChunkIDs, chunks[7].ChunkID)
	}
	if _, ok := store.Embeddings[chunks[7].ChunkID]; ok {
		t.Error("failed chunk must not receive a vector")
	}
}

func TestRunDimensionMismatchFatal(t *testing.T) {
	store := testutil.NewMockStore(16)
	provider := &testutil.MockEmbeddingsProvider{Dim: 8}

	ix := New(store, provider, WithRetryPolicy(fastRetry()))
	_, err := ix.Run(context.Background(), makeChunks(3))

	var dim *errs.DimensionMismatchError
	if !errors.As(err, &dim) {
		t.Fatalf("error = %v, want DimensionMismatchError", err)
	}
	if dim.Want != 16 || dim.Got != 8 {
		t.Errorf("mismatch = want %d got %d", dim.Want, dim.Got)
	}
	if len(store.Embeddings) != 0 {
		t.Error("index must stay untouched on dimension mismatch")
	}
}

func TestRunCancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := testutil.NewMockStore(8)
	provider := &testutil.MockEmbeddingsProvider{Dim: 8}

	ix := New(store, provider, WithRetryPolicy(fastRetry()))
	_, err := ix.Run(ctx, makeChunks(5))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRank(t *testing.T) {
	match := func(id string, score float64) graph.ChunkMatch {
		return graph.ChunkMatch{Chunk: graph.ChunkNode{ChunkID: id}, Score: score}
	}

	tests := []struct {
		name    string
		in      []graph.ChunkMatch
		k       int
		floor   float64
		wantIDs []string
	}{
		{
			name:    "descending order",
			in:      []graph.ChunkMatch{match("a:0000", 0.3), match("b:0000", 0.9), match("c:0000", 0.6)},
			k:       3,
			wantIDs: []string{"b:0000", "c:0000", "a:0000"},
		},
		{
			name:    "ties break by chunk id ascending",
			in:      []graph.ChunkMatch{match("z:0000", 0.5), match("a:0000", 0.5), match("m:0000", 0.5)},
			k:       3,
			wantIDs: []string{"a:0000", "m:0000", "z:0000"},
		},
		{
			name:    "floor excludes even inside top k",
			in:      []graph.ChunkMatch{match("a:0000", 0.9), match("b:0000", 0.1)},
			k:       5,
			floor:   0.25,
			wantIDs: []string{"a:0000"},
		},
		{
			name:    "k truncates",
			in:      []graph.ChunkMatch{match("a:0000", 0.9), match("b:0000", 0.8), match("c:0000", 0.7)},
			k:       2,
			wantIDs: []string{"a:0000", "b:0000"},
		},
		{
			name:    "empty input",
			in:      nil,
			k:       5,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.in, tt.k, tt.floor)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].Chunk.ChunkID != want {
					t.Errorf("result[%d] = %s, want %s", i, got[i].Chunk.ChunkID, want)
				}
			}
		})
	}
}

func TestSearchExcludesUnembedded(t *testing.T) {
	store := testutil.NewMockStore(8)
	store.SimilaritySearchFunc = func(ctx context.Context, vector []float32, k int) ([]graph.ChunkMatch, error) {
		// The store only ever returns chunks carrying a vector.
		return []graph.ChunkMatch{
			{Chunk: graph.ChunkNode{ChunkID: "a.py:0000", HasEmbedding: true}, Score: 0.8},
			{Chunk: graph.ChunkNode{ChunkID: "a.py:0002", HasEmbedding: true}, Score: 0.6},
		}, nil
	}

	got, err := Search(context.Background(), store, make([]float32, 8), 3, 0)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	for _, m := range got {
		if !m.Chunk.HasEmbedding {
			t.Errorf("chunk %s has no embedding", m.Chunk.ChunkID)
		}
	}
}
