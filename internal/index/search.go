package index

import (
	"context"
	"sort"

	"github.com/codegraph-labs/codegraph/internal/graph"
)

// Rank orders matches by similarity, strictly descending, ties broken by
// chunk_id ascending, drops everything below floor, and truncates to k.
// The ordering is total, so equal inputs always rank identically.
func Rank(matches []graph.ChunkMatch, k int, floor float64) []graph.ChunkMatch {
	ranked := make([]graph.ChunkMatch, 0, len(matches))
	for _, m := range matches {
		if m.Score >= floor {
			ranked = append(ranked, m)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Chunk.ChunkID < ranked[j].Chunk.ChunkID
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Search runs a top-k similarity search against the store and ranks the
// results. Only chunks carrying a dimension-matching vector are candidates;
// the store guarantees that by construction of the vector index.
func Search(ctx context.Context, store graph.Store, vector []float32, k int, floor float64) ([]graph.ChunkMatch, error) {
	matches, err := store.SimilaritySearch(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	return Rank(matches, k, floor), nil
}
