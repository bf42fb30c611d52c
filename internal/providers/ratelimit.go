package providers

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter provides token bucket rate limiting for API calls, keyed per
// provider. Requests-per-minute converts to a steady refill rate with the
// burst size as bucket capacity.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter from a provider's configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	burst := config.BurstSize
	if burst <= 0 {
		burst = rpm
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// TryAcquire attempts to acquire a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}
