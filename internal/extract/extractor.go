// Package extract derives structural entities and relationships from code
// chunks by delegating analysis to a schema-constrained completion service.
// The core never parses source code itself.
package extract

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

const defaultWorkers = 4

// Extractor runs structural extraction over a set of chunks with a bounded
// worker pool. Per-chunk failures are isolated: a chunk that cannot be
// extracted after retries is skipped and recorded, never fatal.
type Extractor struct {
	store    graph.Store
	provider providers.SemanticProvider
	limiter  *providers.RateLimiter
	retry    providers.RetryPolicy
	workers  int
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRetryPolicy sets the retry policy for completion calls.
func WithRetryPolicy(p providers.RetryPolicy) Option {
	return func(e *Extractor) {
		e.retry = p
	}
}

// WithRateLimiter sets the limiter shared across workers.
func WithRateLimiter(l *providers.RateLimiter) Option {
	return func(e *Extractor) {
		e.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor writing to store via provider.
func New(store graph.Store, provider providers.SemanticProvider, opts ...Option) *Extractor {
	e := &Extractor{
		store:    store,
		provider: provider,
		retry:    providers.DefaultRetryPolicy(),
		workers:  defaultWorkers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report summarizes one extraction run.
type Report struct {
	ChunksProcessed int      `json:"chunks_processed"`
	ChunksSkipped   int      `json:"chunks_skipped"`
	Entities        int      `json:"entities"`
	Relationships   int      `json:"relationships"`
	Quarantined     int      `json:"quarantined"`
	SkippedChunkIDs []string `json:"skipped_chunk_ids,omitempty"`
}

// Run extracts every chunk and persists the results. It returns a non-nil
// Report even on error. The only error returned is context cancellation;
// everything per-chunk is absorbed into the report.
func (e *Extractor) Run(ctx context.Context, chunks []chunker.Chunk) (*Report, error) {
	report := &Report{}
	if len(chunks) == 0 {
		return report, nil
	}

	jobs := make(chan chunker.Chunk)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				p, err := e.extractChunk(ctx, chunk)

				mu.Lock()
				if err != nil {
					report.ChunksSkipped++
					report.SkippedChunkIDs = append(report.SkippedChunkIDs, chunk.ChunkID)
					mu.Unlock()
					e.logger.Warn("extraction skipped chunk",
						"chunk_id", chunk.ChunkID,
						"error", err)
					continue
				}
				report.ChunksProcessed++
				report.Entities += len(p.Entities)
				report.Relationships += len(p.Relationships)
				report.Quarantined += p.Quarantined
				mu.Unlock()
			}
		}()
	}

	var cancelled bool
feed:
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- chunk:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		return report, ctx.Err()
	}

	e.logger.Info("extraction complete",
		"processed", report.ChunksProcessed,
		"skipped", report.ChunksSkipped,
		"entities", report.Entities,
		"relationships", report.Relationships,
		"quarantined", report.Quarantined)

	return report, nil
}

// extractChunk runs one chunk through the completion service with bounded
// retries, validates the response, and commits entities and relationships
// as one unit.
func (e *Extractor) extractChunk(ctx context.Context, chunk chunker.Chunk) (*parsed, error) {
	req := providers.CompletionRequest{
		System:       extractionSystemPrompt,
		Prompt:       buildExtractionPrompt(chunk),
		JSONResponse: true,
	}

	var p *parsed
	var lastErr error

	for attempt := 1; attempt <= e.retry.MaxRetries+1; attempt++ {
		if attempt > 1 {
			e.logger.Debug("retrying extraction",
				"chunk_id", chunk.ChunkID,
				"attempt", attempt,
				"delay", e.retry.Backoff(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.retry.Backoff(attempt - 1)):
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if e.retry.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.retry.Timeout)
		}
		result, err := e.provider.Complete(callCtx, req)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &errs.ServiceError{Service: e.provider.Name(), Op: "extract", Err: err}
			continue
		}

		p, lastErr = parseExtraction(chunk.ChunkID, chunk.FilePath, result.Content)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if err := e.store.UpsertExtraction(ctx, chunk.FilePath, p.Entities, p.Relationships); err != nil {
		return nil, err
	}
	return p, nil
}
