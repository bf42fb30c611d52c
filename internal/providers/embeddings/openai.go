// Package embeddings provides embedding service clients. Every returned
// vector is validated against the configured dimension before use.
package embeddings

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

const openaiDefaultEmbModel = "text-embedding-3-large"

// OpenAIProvider implements EmbeddingsProvider using the OpenAI API.
type OpenAIProvider struct {
	apiKey      string
	model       string
	dimensions  int
	timeout     time.Duration
	rateLimit   providers.RateLimitConfig
	client      *openai.Client
	rateLimiter *providers.RateLimiter
}

// OpenAIOption configures the OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIModel sets the model to use.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
	}
}

// WithOpenAIDimensions sets the embedding dimensions.
func WithOpenAIDimensions(dims int) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.dimensions = dims
	}
}

// WithOpenAITimeout sets the per-call timeout.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.timeout = d
	}
}

// WithOpenAIRateLimit sets the rate limit configuration.
func WithOpenAIRateLimit(cfg providers.RateLimitConfig) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.rateLimit = cfg
	}
}

// NewOpenAIProvider creates a new OpenAI embeddings provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:     apiKey,
		model:      openaiDefaultEmbModel,
		dimensions: 3072,
		timeout:    60 * time.Second,
		rateLimit:  providers.RateLimitConfig{RequestsPerMinute: 300, BurstSize: 30},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.client = openai.NewClient(p.apiKey)
	p.rateLimiter = providers.NewRateLimiter(p.rateLimit)

	return p
}

// Name returns the provider's unique identifier.
func (p *OpenAIProvider) Name() string {
	return "openai-embeddings"
}

// Type returns the provider type.
func (p *OpenAIProvider) Type() providers.ProviderType {
	return providers.ProviderTypeEmbeddings
}

// Available returns true if the provider is configured and ready.
func (p *OpenAIProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *OpenAIProvider) RateLimit() providers.RateLimitConfig {
	return p.rateLimit
}

// ModelName returns the name of the embedding model.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Dimensions returns the dimensionality of the embedding vectors.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0].Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts in a single API call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]providers.EmbeddingsBatchResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("openai embeddings provider not available; API key not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, &errs.ServiceError{Service: p.Name(), Op: "embed", Err: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, &errs.ServiceError{
			Service: p.Name(),
			Op:      "embed",
			Err:     fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	results := make([]providers.EmbeddingsBatchResult, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != p.dimensions {
			return nil, &errs.DimensionMismatchError{Want: p.dimensions, Got: len(d.Embedding)}
		}
		results[i] = providers.EmbeddingsBatchResult{
			Index:      d.Index,
			Embedding:  d.Embedding,
			TokensUsed: resp.Usage.TotalTokens / len(resp.Data),
		}
	}

	return results, nil
}
