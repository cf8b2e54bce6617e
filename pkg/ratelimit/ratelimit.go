// Package ratelimit gates outbound NCBI requests behind a shared
// token bucket.
//
// NCBI enforces an aggregate request rate per client, not a per-job
// rate, so a single Limiter instance is constructed at startup and
// injected into every gateway call path. Requests are allowed at
// 3 rps without an API key and 10 rps with one.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the NCBI request ceiling without an API key.
	DefaultRate = 3.0

	// KeyedRate is the NCBI request ceiling with an API key configured.
	KeyedRate = 10.0
)

// Limiter is a token-bucket rate gate.
//
// Limiter is safe for concurrent use. Acquire blocks callers in lock
// arrival order until a token is available; no fairness guarantee is
// made beyond that.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a limiter allowing rps requests per second with the
// given burst capacity. A non-positive burst is clamped to 1.
func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

// EffectiveRate returns the request rate to configure for the given
// credentials: the keyed tier when an API key is held, otherwise the
// conservative default. An explicit override above the default wins.
func EffectiveRate(configured float64, hasAPIKey bool) float64 {
	if configured <= 0 {
		configured = DefaultRate
	}
	if hasAPIKey && configured <= DefaultRate {
		return KeyedRate
	}
	return configured
}

// Acquire blocks until one unit of capacity is available, then
// consumes it. It returns early only if ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}
