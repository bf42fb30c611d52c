// Package engine answers natural-language questions about ingested code by
// combining vector similarity search with bounded graph traversal. It is
// the only outward interface of the core.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/index"
	"github.com/codegraph-labs/codegraph/internal/providers"

	"github.com/google/uuid"
)

// Defaults applied when a Request leaves fields zero.
const (
	DefaultTopK           = 5
	DefaultTraversalDepth = 2
	DefaultTimeout        = 60 * time.Second
)

// stage names the steps of the query pipeline. A query advances through
// them in order; Embedding is the only stage whose failure fails the
// query, everything after degrades.
type stage string

const (
	stageEmbedding      stage = "embedding"
	stageVectorSearch   stage = "vector_search"
	stageEntityMapping  stage = "entity_mapping"
	stageGraphExpansion stage = "graph_expansion"
	stageSynthesis      stage = "synthesis"
	stageDone           stage = "done"
)

// Request is one question against the graph.
type Request struct {
	// Query is the natural-language question.
	Query string

	// K is the number of chunks to retrieve; 0 means DefaultTopK.
	K int

	// SimilarityFloor excludes weak matches even inside top-k.
	SimilarityFloor float64

	// IncludeGraphContext enables entity mapping and graph expansion.
	IncludeGraphContext bool

	// TraversalDepth bounds graph expansion; 0 means DefaultTraversalDepth.
	TraversalDepth int

	// Timeout bounds the whole query; 0 means DefaultTimeout. A timeout
	// hit after vector search returns the partial context.
	Timeout time.Duration
}

func (r Request) withDefaults() Request {
	if r.K <= 0 {
		r.K = DefaultTopK
	}
	if r.TraversalDepth <= 0 {
		r.TraversalDepth = DefaultTraversalDepth
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	return r
}

// Result is the answer with its supporting context.
type Result struct {
	// Answer is the synthesized response.
	Answer string `json:"answer"`

	// Found is false when vector search returned nothing.
	Found bool `json:"found"`

	// Chunks are the supporting chunks with similarity scores, ranked.
	Chunks []graph.ChunkMatch `json:"chunks,omitempty"`

	// Entities are the structural entities reached through bridges and
	// expansion, deduplicated.
	Entities []graph.EntityNode `json:"entities,omitempty"`

	// Relationships are the structural edges traversed during expansion.
	Relationships []graph.Relationship `json:"relationships,omitempty"`

	// Files are the distinct file paths the chunks came from.
	Files []string `json:"files,omitempty"`

	// Degraded is true when graph context or synthesis was lost and the
	// answer rests on vector results alone.
	Degraded bool `json:"degraded"`
}

// Engine executes query requests.
type Engine struct {
	store      graph.Store
	embeddings providers.EmbeddingsProvider
	semantic   providers.SemanticProvider
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over store with the given providers. The
// embeddings provider must be the one the index was built with.
func New(store graph.Store, embeddings providers.EmbeddingsProvider, semantic providers.SemanticProvider, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		embeddings: embeddings,
		semantic:   semantic,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query runs one request through the pipeline and returns the result.
// The only error returned is a query-embedding failure or caller
// cancellation; everything downstream degrades instead of failing.
func (e *Engine) Query(ctx context.Context, req Request) (*Result, error) {
	req = req.withDefaults()
	queryID := uuid.NewString()
	logger := e.logger.With("query_id", queryID)

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	result := &Result{}
	current := stageEmbedding
	var vector []float32

	for current != stageDone {
		logger.Debug("query stage", "stage", string(current))

		switch current {
		case stageEmbedding:
			vec, err := e.embedQuery(ctx, req.Query)
			if err != nil {
				// Sole fatal stage: without a query vector there is
				// nothing to retrieve.
				return nil, err
			}
			vector = vec
			current = stageVectorSearch

		case stageVectorSearch:
			matches, err := index.Search(ctx, e.store, vector, req.K, req.SimilarityFloor)
			if err != nil {
				return nil, err
			}
			result.Chunks = matches
			result.Files = distinctFiles(matches)
			if len(matches) == 0 {
				result.Answer = noResultsAnswer
				current = stageDone
				continue
			}
			result.Found = true
			if req.IncludeGraphContext {
				current = stageEntityMapping
			} else {
				current = stageSynthesis
			}

		case stageEntityMapping:
			if ctx.Err() != nil {
				return e.partial(logger, result, "timeout before entity mapping"), nil
			}
			anchors, err := e.mapEntities(ctx, result.Chunks)
			if err != nil {
				logger.Warn("entity mapping degraded to vector-only", "error", err)
				result.Degraded = true
				current = stageSynthesis
				continue
			}
			result.Entities = dedupeEntities(anchorEntities(anchors))
			current = stageGraphExpansion

		case stageGraphExpansion:
			if ctx.Err() != nil {
				return e.partial(logger, result, "timeout before graph expansion"), nil
			}
			entities, rels, err := e.expand(ctx, result.Entities, req.TraversalDepth)
			if err != nil {
				logger.Warn("graph expansion degraded to vector-only", "error", err)
				// Vector-only means exactly that: the anchors mapped so far
				// go too, not just the neighbors that failed to load.
				result.Entities = nil
				result.Degraded = true
				current = stageSynthesis
				continue
			}
			result.Entities = dedupeEntities(append(result.Entities, entities...))
			result.Relationships = rels
			current = stageSynthesis

		case stageSynthesis:
			if ctx.Err() != nil {
				return e.partial(logger, result, "timeout before synthesis"), nil
			}
			answer, err := e.synthesize(ctx, req.Query, result)
			if err != nil {
				logger.Warn("synthesis failed, returning fallback answer", "error", err)
				result.Answer = fallbackAnswer(result)
				result.Degraded = true
				current = stageDone
				continue
			}
			result.Answer = answer
			current = stageDone
		}
	}

	logger.Info("query complete",
		"found", result.Found,
		"chunks", len(result.Chunks),
		"entities", len(result.Entities),
		"degraded", result.Degraded)

	return result, nil
}

// partial finalizes a result whose pipeline was cut short by the query
// timeout: the retrieved context is returned rather than nothing.
func (e *Engine) partial(logger *slog.Logger, result *Result, reason string) *Result {
	logger.Warn("query returned partial context", "reason", reason)
	result.Degraded = true
	result.Answer = fallbackAnswer(result)
	return result
}

// embedQuery embeds the question with the same provider and dimension the
// index was built with.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := e.embeddings.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &errs.ServiceError{Service: e.embeddings.Name(), Op: "embed query", Err: err}
	}
	if want := e.store.Dimension(); len(vec) != want {
		return nil, &errs.DimensionMismatchError{Want: want, Got: len(vec)}
	}
	return vec, nil
}

// mapEntities follows each chunk's bridge to its anchor entity.
func (e *Engine) mapEntities(ctx context.Context, matches []graph.ChunkMatch) ([]graph.Anchor, error) {
	var anchors []graph.Anchor
	for _, m := range matches {
		anchor, err := e.store.AnchorForChunk(ctx, m.Chunk.ChunkID)
		if err != nil {
			return nil, err
		}
		if anchor != nil {
			anchors = append(anchors, *anchor)
		}
	}
	return anchors, nil
}

// expand walks structural edges breadth-first from the anchor entities, at
// most depth hops, with a visited set so cyclic graphs terminate.
func (e *Engine) expand(ctx context.Context, roots []graph.EntityNode, depth int) ([]graph.EntityNode, []graph.Relationship, error) {
	visited := make(map[string]bool, len(roots))
	for _, r := range roots {
		visited[entityKey(r)] = true
	}
	seenRels := make(map[string]bool)

	var entities []graph.EntityNode
	var rels []graph.Relationship

	frontier := roots
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []graph.EntityNode
		for _, entity := range frontier {
			if ctx.Err() != nil {
				return entities, rels, nil
			}

			neighbors, err := e.store.Neighbors(ctx, entity)
			if err != nil {
				return nil, nil, err
			}
			for _, n := range neighbors {
				rel := neighborRelationship(entity, n)
				rk := relKey(rel)
				if !seenRels[rk] {
					seenRels[rk] = true
					rels = append(rels, rel)
				}

				key := entityKey(n.Entity)
				if visited[key] {
					continue
				}
				visited[key] = true
				entities = append(entities, n.Entity)
				next = append(next, n.Entity)
			}
		}
		frontier = next
	}
	return entities, rels, nil
}

// neighborRelationship orients a traversed edge by its direction.
func neighborRelationship(from graph.EntityNode, n graph.Neighbor) graph.Relationship {
	if n.Outgoing {
		return graph.Relationship{
			SourceLabel: from.Label,
			SourceName:  from.Name,
			Kind:        n.Rel,
			TargetLabel: n.Entity.Label,
			TargetName:  n.Entity.Name,
		}
	}
	return graph.Relationship{
		SourceLabel: n.Entity.Label,
		SourceName:  n.Entity.Name,
		Kind:        n.Rel,
		TargetLabel: from.Label,
		TargetName:  from.Name,
	}
}

func entityKey(e graph.EntityNode) string {
	return e.Label + ":" + e.NormalizedName
}

func relKey(r graph.Relationship) string {
	return r.SourceLabel + ":" + graph.NormalizeName(r.SourceName) + "|" + r.Kind + "|" +
		r.TargetLabel + ":" + graph.NormalizeName(r.TargetName)
}

func anchorEntities(anchors []graph.Anchor) []graph.EntityNode {
	out := make([]graph.EntityNode, 0, len(anchors))
	for _, a := range anchors {
		// File-level fallback anchors carry no traversable entity.
		if a.Entity.Label == graph.LabelFile {
			continue
		}
		out = append(out, a.Entity)
	}
	return out
}

func dedupeEntities(entities []graph.EntityNode) []graph.EntityNode {
	seen := make(map[string]bool, len(entities))
	out := entities[:0]
	for _, e := range entities {
		key := entityKey(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func distinctFiles(matches []graph.ChunkMatch) []string {
	seen := make(map[string]bool, len(matches))
	var files []string
	for _, m := range matches {
		if seen[m.Chunk.FilePath] {
			continue
		}
		seen[m.Chunk.FilePath] = true
		files = append(files, m.Chunk.FilePath)
	}
	return files
}
