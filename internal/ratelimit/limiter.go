package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces sequential requests against the remote source
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter permitting perSecond requests per second with a
// burst of one. A non-positive rate disables limiting, which tests rely on.
func New(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until the next request may proceed.
// It returns an error if the context is canceled before then
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}
