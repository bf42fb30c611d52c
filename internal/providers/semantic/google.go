package semantic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

const googleDefaultModel = "gemini-2.0-flash"

// GoogleProvider implements SemanticProvider using the Gemini API.
type GoogleProvider struct {
	apiKey    string
	model     string
	timeout   time.Duration
	rateLimit providers.RateLimitConfig

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

// NewGoogleProvider creates a new Gemini completion provider.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:    apiKey,
		model:     googleDefaultModel,
		timeout:   2 * time.Minute,
		rateLimit: providers.RateLimitConfig{RequestsPerMinute: 60, BurstSize: 10},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.rateLimiter = providers.NewRateLimiter(p.rateLimit)

	return p
}

// Name returns the provider's unique identifier.
func (p *GoogleProvider) Name() string {
	return "google"
}

// Type returns the provider type.
func (p *GoogleProvider) Type() providers.ProviderType {
	return providers.ProviderTypeSemantic
}

// Available returns true if the provider is configured and ready.
func (p *GoogleProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *GoogleProvider) RateLimit() providers.RateLimitConfig {
	return p.rateLimit
}

// ModelName returns the model identifier used by this provider.
func (p *GoogleProvider) ModelName() string {
	return p.model
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

// Complete sends one completion request.
func (p *GoogleProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("google provider not available; API key not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, &errs.ServiceError{Service: p.Name(), Op: "complete", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	model := client.GenerativeModel(p.model)
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONResponse {
		model.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, &errs.ServiceError{Service: p.Name(), Op: "complete", Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &errs.ServiceError{
			Service: p.Name(),
			Op:      "complete",
			Err:     fmt.Errorf("response contained no candidates"),
		}
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	result := &providers.CompletionResult{
		Content:   b.String(),
		ModelName: p.model,
	}
	if resp.UsageMetadata != nil {
		result.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return result, nil
}
