// Package index computes and stores chunk embeddings and ranks similarity
// search results. Chunks that cannot be embedded stay in the graph without
// a vector and are excluded from search.
package index

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codegraph-labs/codegraph/internal/cache"
	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

const defaultBatchSize = 32

// Indexer embeds chunks in batches and writes the vectors to the store.
type Indexer struct {
	store     graph.Store
	provider  providers.EmbeddingsProvider
	cache     *cache.EmbeddingsCache
	limiter   *providers.RateLimiter
	retry     providers.RetryPolicy
	batchSize int
	logger    *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithBatchSize sets how many chunks go into one embedding request.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithCache sets the embeddings cache. A nil cache disables caching.
func WithCache(c *cache.EmbeddingsCache) Option {
	return func(ix *Indexer) {
		ix.cache = c
	}
}

// WithRetryPolicy sets the retry policy for per-item fallback calls.
func WithRetryPolicy(p providers.RetryPolicy) Option {
	return func(ix *Indexer) {
		ix.retry = p
	}
}

// WithRateLimiter sets the limiter applied before each service call.
func WithRateLimiter(l *providers.RateLimiter) Option {
	return func(ix *Indexer) {
		ix.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// New creates an Indexer writing to store via provider.
func New(store graph.Store, provider providers.EmbeddingsProvider, opts ...Option) *Indexer {
	ix := &Indexer{
		store:     store,
		provider:  provider,
		retry:     providers.DefaultRetryPolicy(),
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Report summarizes one indexing run. Coverage is Embedded/Total.
type Report struct {
	Total          int      `json:"total"`
	Embedded       int      `json:"embedded"`
	Failed         int      `json:"failed"`
	CacheHits      int      `json:"cache_hits"`
	FailedChunkIDs []string `json:"failed_chunk_ids,omitempty"`
}

// Coverage returns the embedded fraction in [0, 1].
func (r *Report) Coverage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Embedded) / float64(r.Total)
}

// Run embeds every chunk and stores the vectors. A batch failure falls
// back to per-item retries; an item that still fails is left unembedded
// and recorded. A dimension mismatch fails the run: the index is never
// written with a wrong-size vector.
func (ix *Indexer) Run(ctx context.Context, chunks []chunker.Chunk) (*Report, error) {
	report := &Report{Total: len(chunks)}
	if len(chunks) == 0 {
		return report, nil
	}

	for start := 0; start < len(chunks); start += ix.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := ix.runBatch(ctx, chunks[start:end], report); err != nil {
			return report, err
		}
	}

	ix.logger.Info("indexing complete",
		"total", report.Total,
		"embedded", report.Embedded,
		"failed", report.Failed,
		"cache_hits", report.CacheHits,
		"coverage", report.Coverage())

	return report, nil
}

func (ix *Indexer) runBatch(ctx context.Context, batch []chunker.Chunk, report *Report) error {
	// Cache pass first; only misses go to the service.
	pending := make([]chunker.Chunk, 0, len(batch))
	for _, chunk := range batch {
		if vec, err := ix.cache.Get(ctx, ix.provider.ModelName(), chunk.Text); err == nil {
			if err := ix.storeVector(ctx, chunk, vec); err != nil {
				return err
			}
			report.Embedded++
			report.CacheHits++
			continue
		}
		pending = append(pending, chunk)
	}
	if len(pending) == 0 {
		return nil
	}

	texts := make([]string, len(pending))
	for i, chunk := range pending {
		texts[i] = chunk.Text
	}

	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	results, err := ix.provider.EmbedBatch(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ix.logger.Warn("batch embedding failed, falling back to per-item",
			"batch_size", len(pending),
			"error", err)
		return ix.runItems(ctx, pending, report)
	}

	vectors := make(map[int][]float32, len(results))
	for _, r := range results {
		vectors[r.Index] = r.Embedding
	}

	for i, chunk := range pending {
		vec, ok := vectors[i]
		if !ok {
			report.Failed++
			report.FailedChunkIDs = append(report.FailedChunkIDs, chunk.ChunkID)
			continue
		}
		if err := ix.storeVector(ctx, chunk, vec); err != nil {
			return err
		}
		ix.cache.Set(ctx, ix.provider.ModelName(), chunk.Text, vec)
		report.Embedded++
	}
	return nil
}

// runItems embeds chunks one at a time with retries. Persistent failures
// are recorded and skipped.
func (ix *Indexer) runItems(ctx context.Context, chunks []chunker.Chunk, report *Report) error {
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		vec, err := ix.embedOne(ctx, chunk.Text)
		if err != nil {
			var dim *errs.DimensionMismatchError
			if errors.As(err, &dim) || ctx.Err() != nil {
				return err
			}
			report.Failed++
			report.FailedChunkIDs = append(report.FailedChunkIDs, chunk.ChunkID)
			ix.logger.Warn("chunk left unembedded",
				"chunk_id", chunk.ChunkID,
				"error", err)
			continue
		}

		if err := ix.storeVector(ctx, chunk, vec); err != nil {
			return err
		}
		ix.cache.Set(ctx, ix.provider.ModelName(), chunk.Text, vec)
		report.Embedded++
	}
	return nil
}

func (ix *Indexer) embedOne(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= ix.retry.MaxRetries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(ix.retry.Backoff(attempt - 1)):
			}
		}

		if ix.limiter != nil {
			if err := ix.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vec, err := ix.provider.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, &errs.ServiceError{Service: ix.provider.Name(), Op: "embed", Err: lastErr}
}

// storeVector validates the dimension against the store and persists.
func (ix *Indexer) storeVector(ctx context.Context, chunk chunker.Chunk, vec []float32) error {
	if want := ix.store.Dimension(); len(vec) != want {
		return &errs.DimensionMismatchError{Want: want, Got: len(vec)}
	}
	return ix.store.SetChunkEmbedding(ctx, chunk.ChunkID, vec)
}
