package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/providers"
	"github.com/codegraph-labs/codegraph/internal/testutil"
)

const inheritanceResponse = `{
  "entities": [
    {"kind": "class", "name": "OrcBlacksmith", "start_line": 1, "end_line": 20},
    {"kind": "class", "name": "Blacksmith"}
  ],
  "relationships": [
    {"source_kind": "class", "source": "OrcBlacksmith", "kind": "INHERITS", "target_kind": "class", "target": "Blacksmith"}
  ]
}`

func testChunk(id, path, text string) chunker.Chunk {
	return chunker.Chunk{
		ChunkID:   id,
		FilePath:  path,
		Language:  "java",
		Text:      text,
		StartLine: 1,
		EndLine:   20,
	}
}

func fastRetry() providers.RetryPolicy {
	return providers.RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, Timeout: time.Second}
}

func TestRunPersistsEntitiesAndRelationships(t *testing.T) {
	store := testutil.NewMockStore(4)
	provider := &testutil.MockSemanticProvider{Responses: []string{inheritanceResponse}}

	ex := New(store, provider, WithRetryPolicy(fastRetry()), WithWorkers(1))
	report, err := ex.Run(context.Background(), []chunker.Chunk{
		testChunk("a.java:0000", "a.java", "class OrcBlacksmith extends Blacksmith {}"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ChunksProcessed)
	assert.Equal(t, 0, report.ChunksSkipped)
	assert.Equal(t, 2, report.Entities)
	assert.Equal(t, 1, report.Relationships)
	assert.Equal(t, 0, report.Quarantined)

	calls := store.ExtractionsForFile("a.java")
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Entities, 2)
	assert.Equal(t, "orcblacksmith", calls[0].Entities[0].NormalizedName)
	assert.Equal(t, graph.LabelClass, calls[0].Entities[0].Label)
	assert.True(t, calls[0].Entities[0].HasSpan())
	assert.False(t, calls[0].Entities[1].HasSpan())

	require.Len(t, calls[0].Relationships, 1)
	assert.Equal(t, graph.RelInherits, calls[0].Relationships[0].Kind)
}

func TestRunRetriesOnServiceError(t *testing.T) {
	store := testutil.NewMockStore(4)
	provider := &testutil.MockSemanticProvider{
		Errs:      []error{errors.New("rate limited"), errors.New("rate limited")},
		Responses: []string{"", "", inheritanceResponse},
	}

	ex := New(store, provider, WithRetryPolicy(fastRetry()), WithWorkers(1))
	report, err := ex.Run(context.Background(), []chunker.Chunk{
		testChunk("a.java:0000", "a.java", "class OrcBlacksmith extends Blacksmith {}"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, provider.Calls())
	assert.Equal(t, 1, report.ChunksProcessed)
	assert.Equal(t, 0, report.ChunksSkipped)
}

func TestRunSkipsChunkAfterExhaustedRetries(t *testing.T) {
	store := testutil.NewMockStore(4)
	provider := &testutil.MockSemanticProvider{Responses: []string{"this is not json"}}

	ex := New(store, provider, WithRetryPolicy(fastRetry()), WithWorkers(1))
	report, err := ex.Run(context.Background(), []chunker.Chunk{
		testChunk("a.java:0000", "a.java", "class A {}"),
		testChunk("b.java:0000", "b.java", "class B {}"),
	})
	require.NoError(t, err, "per-chunk failures must not abort the run")

	assert.Equal(t, 0, report.ChunksProcessed)
	assert.Equal(t, 2, report.ChunksSkipped)
	assert.ElementsMatch(t, []string{"a.java:0000", "b.java:0000"}, report.SkippedChunkIDs)
	assert.Empty(t, store.Extractions)
}

func TestRunQuarantinesUnknownKinds(t *testing.T) {
	response := `{
	  "entities": [
	    {"kind": "class", "name": "Widget"},
	    {"kind": "macro", "name": "DEFINE_WIDGET"},
	    {"kind": "function", "name": ""}
	  ],
	  "relationships": [
	    {"source_kind": "class", "source": "Widget", "kind": "DECORATES", "target_kind": "class", "target": "Panel"}
	  ]
	}`

	store := testutil.NewMockStore(4)
	provider := &testutil.MockSemanticProvider{Responses: []string{response}}

	ex := New(store, provider, WithRetryPolicy(fastRetry()), WithWorkers(1))
	report, err := ex.Run(context.Background(), []chunker.Chunk{
		testChunk("w.py:0000", "w.py", "class Widget: pass"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ChunksProcessed)
	assert.Equal(t, 1, report.Entities, "only the valid entity survives")
	assert.Equal(t, 0, report.Relationships)
	assert.Equal(t, 3, report.Quarantined)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := testutil.NewMockStore(4)
	provider := &testutil.MockSemanticProvider{Responses: []string{inheritanceResponse}}

	ex := New(store, provider, WithRetryPolicy(fastRetry()))
	_, err := ex.Run(ctx, []chunker.Chunk{testChunk("a.java:0000", "a.java", "class A {}")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseExtraction(t *testing.T) {
	t.Run("fenced response", func(t *testing.T) {
		p, err := parseExtraction("c:0000", "a.py", "```json\n"+inheritanceResponse+"\n```")
		require.NoError(t, err)
		assert.Len(t, p.Entities, 2)
		assert.Len(t, p.Relationships, 1)
	})

	t.Run("invalid json is a parse error", func(t *testing.T) {
		_, err := parseExtraction("c:0000", "a.py", "nope")
		var perr *errs.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "c:0000", perr.ChunkID)
	})

	t.Run("empty object", func(t *testing.T) {
		p, err := parseExtraction("c:0000", "a.py", `{"entities": [], "relationships": []}`)
		require.NoError(t, err)
		assert.Empty(t, p.Entities)
		assert.Empty(t, p.Relationships)
		assert.Zero(t, p.Quarantined)
	})

	t.Run("duplicate entities collapse", func(t *testing.T) {
		p, err := parseExtraction("c:0000", "a.py", `{
		  "entities": [
		    {"kind": "function", "name": "render"},
		    {"kind": "function", "name": "Render"}
		  ]
		}`)
		require.NoError(t, err)
		assert.Len(t, p.Entities, 1, "normalized names merge")
	})

	t.Run("file endpoint resolves to chunk file", func(t *testing.T) {
		p, err := parseExtraction("c:0000", "src/app.py", `{
		  "relationships": [
		    {"source_kind": "file", "source": "whatever.py", "kind": "IMPORTS", "target_kind": "package", "target": "os"}
		  ]
		}`)
		require.NoError(t, err)
		require.Len(t, p.Relationships, 1)
		assert.Equal(t, graph.LabelFile, p.Relationships[0].SourceLabel)
		assert.Equal(t, "src/app.py", p.Relationships[0].SourceName)
	})

	t.Run("bridge relationship kinds are quarantined", func(t *testing.T) {
		p, err := parseExtraction("c:0000", "a.py", `{
		  "relationships": [
		    {"source_kind": "class", "source": "A", "kind": "REPRESENTS", "target_kind": "class", "target": "B"}
		  ]
		}`)
		require.NoError(t, err)
		assert.Empty(t, p.Relationships)
		assert.Equal(t, 1, p.Quarantined)
	})
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
