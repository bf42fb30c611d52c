package embeddings

import (
	"fmt"
	"time"

	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

// New builds the embedding service client named by the configuration.
func New(cfg config.EmbeddingsConfig) (providers.EmbeddingsProvider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	rateLimit := providers.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit,
		BurstSize:         cfg.RateLimit / 10,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.ResolveAPIKey(),
			WithOpenAIModel(cfg.Model),
			WithOpenAIDimensions(cfg.Dimensions),
			WithOpenAITimeout(timeout),
			WithOpenAIRateLimit(rateLimit),
		), nil
	case "google", "gemini":
		return NewGoogleProvider(cfg.ResolveAPIKey(),
			WithGoogleModel(cfg.Model),
			WithGoogleDimensions(cfg.Dimensions),
			WithGoogleTimeout(timeout),
			WithGoogleRateLimit(rateLimit),
		), nil
	default:
		return nil, &errs.ConfigurationError{
			Field:   "embeddings.provider",
			Message: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}
	}
}
