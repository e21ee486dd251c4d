package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out outgoing requests to the controller API
type RateLimiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewRateLimiter creates a RateLimiter allowing one request per delayMs milliseconds.
// A delay of zero or less disables pacing.
func NewRateLimiter(delayMs int) *RateLimiter {
	if delayMs <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	delay := time.Duration(delayMs) * time.Millisecond
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		delay:   delay,
	}
}

// Wait blocks until the next request may be sent or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Delay returns the configured spacing between requests
func (r *RateLimiter) Delay() time.Duration {
	if r == nil {
		return 0
	}
	return r.delay
}
