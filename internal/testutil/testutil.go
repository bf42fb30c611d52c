// Package testutil provides hand-written fakes for the store and provider
// interfaces, shared by tests across packages.
package testutil

import (
	"context"
	"sync"

	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

// MockStore is an in-memory graph.Store double. Behavior is overridden per
// test through the function fields; unset fields succeed with zero values.
// Calls that write are recorded for assertions.
type MockStore struct {
	mu sync.Mutex

	DimensionValue int

	UpsertFileFunc            func(ctx context.Context, file *graph.FileNode) error
	UpsertChunkFunc           func(ctx context.Context, chunk *graph.ChunkNode) error
	SetChunkEmbeddingFunc     func(ctx context.Context, chunkID string, embedding []float32) error
	UpsertExtractionFunc      func(ctx context.Context, filePath string, entities []graph.EntityNode, rels []graph.Relationship) error
	ReplaceBridgeFunc         func(ctx context.Context, chunkID, filePath string, entity *graph.EntityNode) error
	EntitiesForFileFunc       func(ctx context.Context, filePath string) ([]graph.EntityNode, error)
	EmbeddedChunksForFileFunc func(ctx context.Context, filePath string) ([]graph.ChunkNode, error)
	SimilaritySearchFunc      func(ctx context.Context, vector []float32, k int) ([]graph.ChunkMatch, error)
	AnchorForChunkFunc        func(ctx context.Context, chunkID string) (*graph.Anchor, error)
	NeighborsFunc             func(ctx context.Context, entity graph.EntityNode) ([]graph.Neighbor, error)
	StatsFunc                 func(ctx context.Context) (*graph.StoreStats, error)

	// Recorded write calls, in order.
	Files       []graph.FileNode
	Chunks      []graph.ChunkNode
	Embeddings  map[string][]float32
	Extractions []ExtractionCall
	Bridges     []BridgeCall
}

// ExtractionCall records one UpsertExtraction invocation.
type ExtractionCall struct {
	FilePath      string
	Entities      []graph.EntityNode
	Relationships []graph.Relationship
}

// BridgeCall records one ReplaceBridge invocation.
type BridgeCall struct {
	ChunkID  string
	FilePath string
	Entity   *graph.EntityNode
}

// NewMockStore returns a MockStore with the given embedding dimension.
func NewMockStore(dimension int) *MockStore {
	return &MockStore{
		DimensionValue: dimension,
		Embeddings:     make(map[string][]float32),
	}
}

func (m *MockStore) Name() string { return "mockstore" }

func (m *MockStore) Start(ctx context.Context) error { return nil }

func (m *MockStore) Stop(ctx context.Context) error { return nil }

func (m *MockStore) IsConnected() bool { return true }

func (m *MockStore) Dimension() int { return m.DimensionValue }

func (m *MockStore) UpsertFile(ctx context.Context, file *graph.FileNode) error {
	m.mu.Lock()
	m.Files = append(m.Files, *file)
	m.mu.Unlock()
	if m.UpsertFileFunc != nil {
		return m.UpsertFileFunc(ctx, file)
	}
	return nil
}

func (m *MockStore) UpsertChunk(ctx context.Context, chunk *graph.ChunkNode) error {
	m.mu.Lock()
	m.Chunks = append(m.Chunks, *chunk)
	m.mu.Unlock()
	if m.UpsertChunkFunc != nil {
		return m.UpsertChunkFunc(ctx, chunk)
	}
	return nil
}

func (m *MockStore) SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	if m.SetChunkEmbeddingFunc != nil {
		if err := m.SetChunkEmbeddingFunc(ctx, chunkID, embedding); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Embeddings[chunkID] = embedding
	m.mu.Unlock()
	return nil
}

func (m *MockStore) UpsertExtraction(ctx context.Context, filePath string, entities []graph.EntityNode, rels []graph.Relationship) error {
	m.mu.Lock()
	m.Extractions = append(m.Extractions, ExtractionCall{FilePath: filePath, Entities: entities, Relationships: rels})
	m.mu.Unlock()
	if m.UpsertExtractionFunc != nil {
		return m.UpsertExtractionFunc(ctx, filePath, entities, rels)
	}
	return nil
}

func (m *MockStore) ReplaceBridge(ctx context.Context, chunkID, filePath string, entity *graph.EntityNode) error {
	m.mu.Lock()
	m.Bridges = append(m.Bridges, BridgeCall{ChunkID: chunkID, FilePath: filePath, Entity: entity})
	m.mu.Unlock()
	if m.ReplaceBridgeFunc != nil {
		return m.ReplaceBridgeFunc(ctx, chunkID, filePath, entity)
	}
	return nil
}

func (m *MockStore) EntitiesForFile(ctx context.Context, filePath string) ([]graph.EntityNode, error) {
	if m.EntitiesForFileFunc != nil {
		return m.EntitiesForFileFunc(ctx, filePath)
	}
	return nil, nil
}

func (m *MockStore) EmbeddedChunksForFile(ctx context.Context, filePath string) ([]graph.ChunkNode, error) {
	if m.EmbeddedChunksForFileFunc != nil {
		return m.EmbeddedChunksForFileFunc(ctx, filePath)
	}
	return nil, nil
}

func (m *MockStore) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]graph.ChunkMatch, error) {
	if m.SimilaritySearchFunc != nil {
		return m.SimilaritySearchFunc(ctx, vector, k)
	}
	return nil, nil
}

func (m *MockStore) AnchorForChunk(ctx context.Context, chunkID string) (*graph.Anchor, error) {
	if m.AnchorForChunkFunc != nil {
		return m.AnchorForChunkFunc(ctx, chunkID)
	}
	return nil, nil
}

func (m *MockStore) Neighbors(ctx context.Context, entity graph.EntityNode) ([]graph.Neighbor, error) {
	if m.NeighborsFunc != nil {
		return m.NeighborsFunc(ctx, entity)
	}
	return nil, nil
}

func (m *MockStore) Query(ctx context.Context, cypher string) (*graph.QueryResult, error) {
	return &graph.QueryResult{}, nil
}

func (m *MockStore) Stats(ctx context.Context) (*graph.StoreStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &graph.StoreStats{}, nil
}

func (m *MockStore) Clear(ctx context.Context) error { return nil }

// ExtractionForFile returns the recorded extraction calls for one file.
func (m *MockStore) ExtractionsForFile(filePath string) []ExtractionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExtractionCall
	for _, c := range m.Extractions {
		if c.FilePath == filePath {
			out = append(out, c)
		}
	}
	return out
}

// MockSemanticProvider is a scripted providers.SemanticProvider.
type MockSemanticProvider struct {
	mu sync.Mutex

	// Responses are returned in order; the last one repeats.
	Responses []string

	// Errs, when non-nil at the call index, is returned instead.
	Errs []error

	// CompleteFunc overrides scripted behavior entirely.
	CompleteFunc func(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResult, error)

	// Requests records every request received.
	Requests []providers.CompletionRequest

	calls int
}

func (m *MockSemanticProvider) Name() string                    { return "mocksem" }
func (m *MockSemanticProvider) Type() providers.ProviderType    { return providers.ProviderTypeSemantic }
func (m *MockSemanticProvider) Available() bool                 { return true }
func (m *MockSemanticProvider) RateLimit() providers.RateLimitConfig { return providers.RateLimitConfig{} }
func (m *MockSemanticProvider) ModelName() string               { return "mock-model" }

func (m *MockSemanticProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	idx := m.calls
	m.calls++
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return nil, m.Errs[idx]
	}
	if len(m.Responses) == 0 {
		return &providers.CompletionResult{Content: "", ModelName: "mock-model"}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return &providers.CompletionResult{Content: m.Responses[idx], ModelName: "mock-model"}, nil
}

// Calls returns how many Complete calls were made.
func (m *MockSemanticProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockEmbeddingsProvider is a scripted providers.EmbeddingsProvider that
// returns deterministic vectors of a fixed dimension.
type MockEmbeddingsProvider struct {
	mu sync.Mutex

	Dim int

	// EmbedFunc overrides single-text embedding.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// BatchFunc overrides batch embedding.
	BatchFunc func(ctx context.Context, texts []string) ([]providers.EmbeddingsBatchResult, error)

	// FailTexts fails individual items by exact text match.
	FailTexts map[string]error

	calls int
}

func (m *MockEmbeddingsProvider) Name() string                    { return "mockemb" }
func (m *MockEmbeddingsProvider) Type() providers.ProviderType    { return providers.ProviderTypeEmbeddings }
func (m *MockEmbeddingsProvider) Available() bool                 { return true }
func (m *MockEmbeddingsProvider) RateLimit() providers.RateLimitConfig { return providers.RateLimitConfig{} }
func (m *MockEmbeddingsProvider) ModelName() string               { return "mock-embed" }
func (m *MockEmbeddingsProvider) Dimensions() int                 { return m.Dim }

// Vector returns the deterministic embedding for text: first component is
// a length signal, the rest zeros.
func (m *MockEmbeddingsProvider) Vector(text string) []float32 {
	v := make([]float32, m.Dim)
	if m.Dim > 0 {
		v[0] = float32(len(text)%97) / 97.0
	}
	return v
}

func (m *MockEmbeddingsProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	if err, ok := m.FailTexts[text]; ok {
		return nil, err
	}
	return m.Vector(text), nil
}

func (m *MockEmbeddingsProvider) EmbedBatch(ctx context.Context, texts []string) ([]providers.EmbeddingsBatchResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.BatchFunc != nil {
		return m.BatchFunc(ctx, texts)
	}
	for _, t := range texts {
		if err, ok := m.FailTexts[t]; ok {
			return nil, err
		}
	}
	out := make([]providers.EmbeddingsBatchResult, len(texts))
	for i, t := range texts {
		out[i] = providers.EmbeddingsBatchResult{Index: i, Embedding: m.Vector(t)}
	}
	return out, nil
}

// Calls returns how many provider calls were made.
func (m *MockEmbeddingsProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
