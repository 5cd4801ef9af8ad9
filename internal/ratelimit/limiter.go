package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Gate paces outbound calls. Wait blocks until the caller may proceed or ctx is done.
type Gate interface {
	Wait(ctx context.Context) error
}

// Interval enforces a minimum delay between calls through a token bucket of burst 1.
// Concurrent callers each wait for their own slot; nothing is queued beyond the bucket.
type Interval struct {
	name    string
	limiter *rate.Limiter
}

// NewInterval creates a gate allowing one call per minDelay. A non-positive delay disables pacing.
func NewInterval(name string, minDelay time.Duration) *Interval {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &Interval{name: name, limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call slot
func (g *Interval) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", g.name, err)
	}
	return nil
}

// Name identifies the provider the gate belongs to
func (g *Interval) Name() string {
	return g.name
}

// Unlimited never blocks. Used in tests and for local fakes.
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
