package cache

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/redis/go-redis/v9"
)

// EmbeddingsCache caches embedding vectors in Redis. A nil *EmbeddingsCache
// is valid and behaves as a permanent miss, so callers need no enabled check.
type EmbeddingsCache struct {
	client *redis.Client
	config Config
	logger *slog.Logger
}

// NewEmbeddingsCache creates a new embeddings cache.
func NewEmbeddingsCache(config Config, logger *slog.Logger) *EmbeddingsCache {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &EmbeddingsCache{
		client: client,
		config: config,
		logger: logger.With("component", "embeddings-cache"),
	}
}

// Get retrieves a cached embedding by model and content. A corrupt entry is
// deleted and reported as a miss.
func (c *EmbeddingsCache) Get(ctx context.Context, model, content string) ([]float32, error) {
	if c == nil {
		return nil, ErrCacheMiss
	}

	key := cacheKey(model, content)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	vec, err := decodeVector(data)
	if err != nil {
		c.logger.Warn("deleting corrupt cache entry", "key", key, "error", err)
		_ = c.client.Del(ctx, key).Err()
		return nil, ErrCacheMiss
	}

	return vec, nil
}

// Set stores an embedding. Failures are logged, never propagated: the cache
// is an optimization, not a source of truth.
func (c *EmbeddingsCache) Set(ctx context.Context, model, content string, vec []float32) {
	if c == nil {
		return
	}

	key := cacheKey(model, content)

	if err := c.client.Set(ctx, key, encodeVector(vec), c.config.TTL).Err(); err != nil {
		c.logger.Warn("failed to cache embedding", "key", key, "error", err)
	}
}

// Close releases the Redis connection.
func (c *EmbeddingsCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func floatBits(f float32) uint32 {
	return math.Float32bits(f)
}

func floatFromBits(b uint32) float32 {
	return math.Float32frombits(b)
}
