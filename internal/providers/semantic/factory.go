package semantic

import (
	"fmt"
	"time"

	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

// New builds the completion service client named by the configuration.
func New(cfg config.SemanticConfig) (providers.SemanticProvider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	rateLimit := providers.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit,
		BurstSize:         cfg.RateLimit / 6,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.ResolveAPIKey(),
			WithOpenAIModel(cfg.Model),
			WithOpenAITimeout(timeout),
			WithOpenAIRateLimit(rateLimit),
		), nil
	case "google", "gemini":
		return NewGoogleProvider(cfg.ResolveAPIKey(),
			WithGoogleModel(cfg.Model),
			WithGoogleTimeout(timeout),
			WithGoogleRateLimit(rateLimit),
		), nil
	default:
		return nil, &errs.ConfigurationError{
			Field:   "semantic.provider",
			Message: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}
	}
}
