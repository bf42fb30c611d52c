package embeddings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

const googleDefaultEmbModel = "gemini-embedding-001"

// GoogleProvider implements EmbeddingsProvider using the Gemini API.
type GoogleProvider struct {
	apiKey     string
	model      string
	dimensions int
	timeout    time.Duration
	rateLimit  providers.RateLimitConfig

	mu     sync.Mutex
	client *genai.Client

	rateLimiter *providers.RateLimiter
}

// GoogleOption configures the GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleModel sets the model to use.
func WithGoogleModel(model string) GoogleOption {
	return func(p *GoogleProvider) {
		p.model = model
	}
}

// WithGoogleDimensions sets the embedding dimensions.
func WithGoogleDimensions(dims int) GoogleOption {
	return func(p *GoogleProvider) {
		p.dimensions = dims
	}
}

// WithGoogleTimeout sets the per-call timeout.
func WithGoogleTimeout(d time.Duration) GoogleOption {
	return func(p *GoogleProvider) {
		p.timeout = d
	}
}

// WithGoogleRateLimit sets the rate limit configuration.
func WithGoogleRateLimit(cfg providers.RateLimitConfig) GoogleOption {
	return func(p *GoogleProvider) {
		p.rateLimit = cfg
	}
}

// NewGoogleProvider creates a new Gemini embeddings provider. The underlying
// client is created lazily on first use because construction needs a context.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:     apiKey,
		model:      googleDefaultEmbModel,
		dimensions: 3072,
		timeout:    60 * time.Second,
		rateLimit:  providers.RateLimitConfig{RequestsPerMinute: 300, BurstSize: 30},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.rateLimiter = providers.NewRateLimiter(p.rateLimit)

	return p
}

// Name returns the provider's unique identifier.
func (p *GoogleProvider) Name() string {
	return "google-embeddings"
}

// Type returns the provider type.
func (p *GoogleProvider) Type() providers.ProviderType {
	return providers.ProviderTypeEmbeddings
}

// Available returns true if the provider is configured and ready.
func (p *GoogleProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *GoogleProvider) RateLimit() providers.RateLimitConfig {
	return p.rateLimit
}

// ModelName returns the name of the embedding model.
func (p *GoogleProvider) ModelName() string {
	return p.model
}

// Dimensions returns the dimensionality of the embedding vectors.
func (p *GoogleProvider) Dimensions() int {
	return p.dimensions
}

func (p *GoogleProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client; %w", err)
	}

	p.client = client
	return client, nil
}

// Embed generates an embedding for a single text.
func (p *GoogleProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0].Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts in a single API call.
func (p *GoogleProvider) EmbedBatch(ctx context.Context, texts []string) ([]providers.EmbeddingsBatchResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("google embeddings provider not available; API key not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, &errs.ServiceError{Service: p.Name(), Op: "embed", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	em := client.EmbeddingModel(p.model)

	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &errs.ServiceError{Service: p.Name(), Op: "embed", Err: err}
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, &errs.ServiceError{
			Service: p.Name(),
			Op:      "embed",
			Err:     fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)),
		}
	}

	results := make([]providers.EmbeddingsBatchResult, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if len(e.Values) != p.dimensions {
			return nil, &errs.DimensionMismatchError{Want: p.dimensions, Got: len(e.Values)}
		}
		results[i] = providers.EmbeddingsBatchResult{
			Index:     i,
			Embedding: e.Values,
		}
	}

	return results, nil
}
