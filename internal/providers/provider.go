// Package providers defines the contracts for the two external services the
// core delegates to: a completion service (structural extraction and answer
// synthesis) and an embedding service (fixed-dimension vectors).
package providers

import (
	"context"
	"time"
)

// ProviderType represents the type of provider.
type ProviderType string

const (
	ProviderTypeSemantic   ProviderType = "semantic"
	ProviderTypeEmbeddings ProviderType = "embeddings"
)

// Provider is the base interface for all providers.
type Provider interface {
	// Name returns the provider's unique identifier.
	Name() string

	// Type returns the provider type.
	Type() ProviderType

	// Available returns true if the provider is configured and ready.
	Available() bool

	// RateLimit returns the rate limit configuration for this provider.
	RateLimit() RateLimitConfig
}

// RateLimitConfig defines rate limiting parameters for a provider.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// RetryPolicy defines how failed service calls are retried. Both service
// clients consume the same policy shape, so retry behaviour is configured
// in one place instead of scattered per call site.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first failure.
	MaxRetries int

	// InitialDelay is the backoff before the first retry; it doubles on
	// each subsequent attempt.
	InitialDelay time.Duration

	// Timeout bounds a single service call. No call blocks indefinitely.
	Timeout time.Duration
}

// DefaultRetryPolicy returns the standard retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Timeout:      2 * time.Minute,
	}
}

// Backoff returns the delay before the given retry attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.InitialDelay * time.Duration(1<<(attempt-1))
}

// CompletionRequest is one request to the completion service.
type CompletionRequest struct {
	// System is the system prompt establishing the task contract.
	System string

	// Prompt is the user content.
	Prompt string

	// JSONResponse requests a JSON object response when the provider
	// supports constrained output.
	JSONResponse bool

	// Temperature controls sampling. Zero means provider default.
	Temperature float32

	// MaxTokens bounds the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResult contains a completion service response.
type CompletionResult struct {
	// Content is the response text.
	Content string

	// ModelName is the specific model used.
	ModelName string

	// TokensUsed is the number of tokens consumed.
	TokensUsed int
}

// SemanticProvider is a completion service client.
type SemanticProvider interface {
	Provider

	// Complete sends one completion request.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// ModelName returns the model identifier used by this provider.
	ModelName() string
}

// EmbeddingsProvider is an embedding service client.
type EmbeddingsProvider interface {
	Provider

	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in a single API
	// call. Results are index-aligned with the input.
	EmbedBatch(ctx context.Context, texts []string) ([]EmbeddingsBatchResult, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int
}

// EmbeddingsBatchResult contains the result for a single item in a batch.
type EmbeddingsBatchResult struct {
	// Index is the position in the original input array.
	Index int `json:"index"`

	// Embedding is the vector representation.
	Embedding []float32 `json:"embedding"`

	// TokensUsed is the number of tokens consumed for this item.
	TokensUsed int `json:"tokens_used"`
}
