package cmdutil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codegraph-labs/codegraph/internal/cache"
	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/graph"
	"github.com/codegraph-labs/codegraph/internal/providers"
	"github.com/codegraph-labs/codegraph/internal/providers/embeddings"
	"github.com/codegraph-labs/codegraph/internal/providers/semantic"
)

// OpenStore builds the graph store from config and starts it. The caller
// owns the handle and must Stop it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (graph.Store, error) {
	store := graph.NewFalkorDBStore(
		graph.WithConfig(graph.Config{
			Host:               cfg.Graph.Host,
			Port:               cfg.Graph.Port,
			GraphName:          cfg.Graph.Name,
			PasswordEnv:        cfg.Graph.PasswordEnv,
			MaxRetries:         cfg.Graph.MaxRetries,
			RetryDelay:         time.Duration(cfg.Graph.RetryDelayMs) * time.Millisecond,
			WriteQueueSize:     cfg.Graph.WriteQueueSize,
			EmbeddingDimension: cfg.Embeddings.Dimensions,
		}),
		graph.WithLogger(logger),
	)
	if err := store.Start(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// NewEmbeddingsProvider builds the configured embeddings client.
func NewEmbeddingsProvider(cfg *config.Config) (providers.EmbeddingsProvider, error) {
	provider, err := embeddings.New(cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings provider; %w", err)
	}
	return provider, nil
}

// NewSemanticProvider builds the configured completion client.
func NewSemanticProvider(cfg *config.Config) (providers.SemanticProvider, error) {
	provider, err := semantic.New(cfg.Semantic)
	if err != nil {
		return nil, fmt.Errorf("failed to create semantic provider; %w", err)
	}
	return provider, nil
}

// NewEmbeddingsCache builds the Redis embeddings cache, or nil when the
// cache is disabled. The cache rides the graph's Redis server on a
// separate logical DB; a nil cache is a permanent miss.
func NewEmbeddingsCache(cfg *config.Config, logger *slog.Logger) *cache.EmbeddingsCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return cache.NewEmbeddingsCache(cache.Config{
		Addr: fmt.Sprintf("%s:%d", cfg.Graph.Host, cfg.Graph.Port),
		DB:   1,
		TTL:  time.Duration(cfg.Cache.TTLHours) * time.Hour,
	}, logger)
}

// RateLimiterFor builds a token-bucket limiter for requests-per-minute.
func RateLimiterFor(requestsPerMinute int) *providers.RateLimiter {
	return providers.NewRateLimiter(providers.RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
	})
}

// RetryPolicyFor maps config retry settings onto a policy.
func RetryPolicyFor(maxRetries, timeoutSeconds int) providers.RetryPolicy {
	policy := providers.DefaultRetryPolicy()
	if maxRetries > 0 {
		policy.MaxRetries = maxRetries
	}
	if timeoutSeconds > 0 {
		policy.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return policy
}
