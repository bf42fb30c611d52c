package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/testutil"
)

func entity(label, name string, span ...int) graph.EntityNode {
	e := graph.EntityNode{
		Label:          label,
		Name:           name,
		NormalizedName: graph.NormalizeName(name),
		FilePath:       "app.py",
	}
	if len(span) == 2 {
		e.StartLine = span[0]
		e.EndLine = span[1]
	}
	return e
}

func chunk(id string, start, end int, text string) graph.ChunkNode {
	return graph.ChunkNode{
		ChunkID:      id,
		FilePath:     "app.py",
		Text:         text,
		StartLine:    start,
		EndLine:      end,
		HasEmbedding: true,
	}
}

func TestRunLinksChunkToSpanningEntity(t *testing.T) {
	store := testutil.NewMockStore(8)
	store.EntitiesForFileFunc = func(ctx context.Context, filePath string) ([]graph.EntityNode, error) {
		return []graph.EntityNode{
			entity(graph.LabelClass, "Router", 1, 40),
			entity(graph.LabelFunction, "dispatch", 50, 80),
		}, nil
	}
	store.EmbeddedChunksForFileFunc = func(ctx context.Context, filePath string) ([]graph.ChunkNode, error) {
		return []graph.ChunkNode{chunk("app.py:0000", 5, 30, "class Router: ...")}, nil
	}

	report, err := New(store).Run(context.Background(), []string{"app.py"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ChunksLinked)
	assert.Equal(t, 0, report.FileFallbacks)

	require.Len(t, store.Bridges, 1)
	require.NotNil(t, store.Bridges[0].Entity)
	assert.Equal(t, "router", store.Bridges[0].Entity.NormalizedName)
}

func TestRunFileFallbackWhenNothingMatches(t *testing.T) {
	store := testutil.NewMockStore(8)
	store.EntitiesForFileFunc = func(ctx context.Context, filePath string) ([]graph.EntityNode, error) {
		return []graph.EntityNode{entity(graph.LabelClass, "Unrelated")}, nil
	}
	store.EmbeddedChunksForFileFunc = func(ctx context.Context, filePath string) ([]graph.ChunkNode, error) {
		return []graph.ChunkNode{chunk("app.py:0000", 1, 10, "import os\nimport sys")}, nil
	}

	report, err := New(store).Run(context.Background(), []string{"app.py"})
	require.NoError(t, err)

	assert.Equal(t, 0, report.ChunksLinked)
	assert.Equal(t, 1, report.FileFallbacks)

	require.Len(t, store.Bridges, 1)
	assert.Nil(t, store.Bridges[0].Entity, "no-match chunk gets the file-level bridge")
}

func TestRunTiePrefersShorterIdentifier(t *testing.T) {
	store := testutil.NewMockStore(8)
	store.EntitiesForFileFunc = func(ctx context.Context, filePath string) ([]graph.EntityNode, error) {
		// Neither has a span; both occur once with word boundaries,
		// scoring 0.6 each.
		return []graph.EntityNode{
			entity(graph.LabelFunction, "serialize_all"),
			entity(graph.LabelFunction, "parse"),
		}, nil
	}
	store.EmbeddedChunksForFileFunc = func(ctx context.Context, filePath string) ([]graph.ChunkNode, error) {
		return []graph.ChunkNode{chunk("app.py:0000", 1, 10, "calls parse then serialize_all once")}, nil
	}

	report, err := New(store).Run(context.Background(), []string{"app.py"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ties)
	require.Len(t, store.Bridges, 1)
	require.NotNil(t, store.Bridges[0].Entity)
	assert.Equal(t, "parse", store.Bridges[0].Entity.NormalizedName)
}

func TestRunIdempotentEdgeCounts(t *testing.T) {
	store := testutil.NewMockStore(8)
	store.EntitiesForFileFunc = func(ctx context.Context, filePath string) ([]graph.EntityNode, error) {
		return []graph.EntityNode{entity(graph.LabelClass, "Router", 1, 40)}, nil
	}
	store.EmbeddedChunksForFileFunc = func(ctx context.Context, filePath string) ([]graph.ChunkNode, error) {
		return []graph.ChunkNode{
			chunk("app.py:0000", 1, 20, "class Router:"),
			chunk("app.py:0001", 21, 40, "    def route(self): ..."),
		}, nil
	}

	linker := New(store)
	first, err := linker.Run(context.Background(), []string{"app.py"})
	require.NoError(t, err)
	second, err := linker.Run(context.Background(), []string{"app.py"})
	require.NoError(t, err)

	// Each run replaces, so per-run reports are identical and each chunk
	// sees exactly one ReplaceBridge per run.
	assert.Equal(t, first, second)
	assert.Len(t, store.Bridges, 4)
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name   string
		chunk  graph.ChunkNode
		entity graph.EntityNode
		want   float64
	}{
		{
			name:   "full span containment",
			chunk:  chunk("c:0000", 10, 20, ""),
			entity: entity(graph.LabelClass, "A", 1, 100),
			want:   1.0,
		},
		{
			name:   "half overlap",
			chunk:  chunk("c:0000", 1, 10, ""),
			entity: entity(graph.LabelClass, "A", 6, 40),
			want:   0.5,
		},
		{
			name:   "disjoint span",
			chunk:  chunk("c:0000", 1, 10, "mentions A anyway"),
			entity: entity(graph.LabelClass, "A", 50, 60),
			want:   0.0,
		},
		{
			name:   "single boundary occurrence",
			chunk:  chunk("c:0000", 1, 10, "x = render(y)"),
			entity: entity(graph.LabelFunction, "render"),
			want:   0.6,
		},
		{
			name:   "substring only, no boundary bonus",
			chunk:  chunk("c:0000", 1, 10, "prerendered = true"),
			entity: entity(graph.LabelFunction, "render"),
			want:   0.4,
		},
		{
			name:   "score caps at one",
			chunk:  chunk("c:0000", 1, 10, "render render render render"),
			entity: entity(graph.LabelFunction, "render"),
			want:   1.0,
		},
		{
			name:   "no occurrence",
			chunk:  chunk("c:0000", 1, 10, "nothing here"),
			entity: entity(graph.LabelFunction, "render"),
			want:   0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, matchScore(tt.chunk, tt.entity), 1e-9)
		})
	}
}

func TestHasWordBoundaryMatch(t *testing.T) {
	assert.True(t, hasWordBoundaryMatch("call parse now", "parse"))
	assert.True(t, hasWordBoundaryMatch("parse", "parse"))
	assert.True(t, hasWordBoundaryMatch("(parse)", "parse"))
	assert.False(t, hasWordBoundaryMatch("reparse only", "parse"))
	assert.False(t, hasWordBoundaryMatch("parser only", "parse"))
	assert.True(t, hasWordBoundaryMatch("parser and parse", "parse"))
}
