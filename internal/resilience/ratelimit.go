package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum delay between outbound calls to a single external API.
//
// The first Throttle resolves immediately; each subsequent call waits until at
// least 1/requestsPerSecond seconds have elapsed since the previous one
// resolved. Callers invoke Throttle immediately before the guarded network
// call. One shared instance per external dependency.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond calls with no bursting.
//
// Non-positive rates fall back to one request per second.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

// Throttle blocks until the next call is permitted.
//
// It never fails on its own; the only error it returns is the context's,
// when the caller is cancelled mid-wait.
func (r *RateLimiter) Throttle(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
