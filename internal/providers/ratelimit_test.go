package providers

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiter(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 5})

	if r == nil {
		t.Fatal("NewRateLimiter returned nil")
	}

	// Burst tokens are available immediately.
	for i := 0; i < 5; i++ {
		if !r.TryAcquire() {
			t.Fatalf("TryAcquire failed on burst token %d", i)
		}
	}

	// Bucket is now drained; the next token needs ~1s to refill.
	if r.TryAcquire() {
		t.Error("TryAcquire succeeded on a drained bucket")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})

	// Zero config falls back to 60 rpm with burst equal to the rate.
	if !r.TryAcquire() {
		t.Error("default limiter should have tokens available")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})

	// Drain the bucket.
	if !r.TryAcquire() {
		t.Fatal("expected initial token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx); err == nil {
		t.Error("Wait should fail when the context expires before a token refills")
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{0, time.Second}, // clamped
	}

	for _, tt := range tests {
		if got := policy.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", policy.MaxRetries)
	}
	if policy.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", policy.InitialDelay)
	}
	if policy.Timeout == 0 {
		t.Error("Timeout should be bounded, not zero")
	}
}
