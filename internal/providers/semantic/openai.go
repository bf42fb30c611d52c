// Package semantic provides completion service clients. The same client
// serves both schema-constrained structural extraction and free-text
// answer synthesis.
package semantic

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

const openaiDefaultModel = "gpt-4o"

// OpenAIProvider implements SemanticProvider using the OpenAI API.
type OpenAIProvider struct {
	apiKey      string
	model       string
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

// NewOpenAIProvider creates a new OpenAI completion provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:    apiKey,
		model:     openaiDefaultModel,
		timeout:   2 * time.Minute,
		rateLimit: providers.RateLimitConfig{RequestsPerMinute: 60, BurstSize: 10},
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
	return "openai"
}

// Type returns the provider type.
func (p *OpenAIProvider) Type() providers.ProviderType {
	return providers.ProviderTypeSemantic
}

// Available returns true if the provider is configured and ready.
func (p *OpenAIProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *OpenAIProvider) RateLimit() providers.RateLimitConfig {
	return p.rateLimit
}

// ModelName returns the model identifier used by this provider.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Complete sends one completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("openai provider not available; API key not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}

	if req.JSONResponse {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, &errs.ServiceError{Service: p.Name(), Op: "complete", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &errs.ServiceError{
			Service: p.Name(),
			Op:      "complete",
			Err:     fmt.Errorf("response contained no choices"),
		}
	}

	return &providers.CompletionResult{
		Content:    resp.Choices[0].Message.Content,
		ModelName:  resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
