package domain

import (
	"context"
	"time"
)

// RateLimiter throttles raw request volume per key. This is independent of
// the privacy budget: the budget meters privileged queries per session, the
// limiter protects the service itself.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
