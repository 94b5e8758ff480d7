package playback

import (
	"sync"
	"time"
)

const (
	rateLimitBase  = 5 * time.Second
	rateLimitCap   = 30 * time.Second
	errorBackoff   = 2 * time.Second
	errorThreshold = 5
)

// Governor tracks consecutive remote failures and holds polling off while a
// backoff window is open. Skipped ticks are dropped, never retried.
type Governor struct {
	mu                sync.Mutex
	now               func() time.Time
	consecutiveErrors int
	backoffUntil      time.Time
}

// NewGovernor creates a Governor reading time from now.
func NewGovernor(now func() time.Time) *Governor {
	return &Governor{now: now}
}

// ShouldPoll reports whether the backoff window has passed.
func (g *Governor) ShouldPoll() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.now().Before(g.backoffUntil)
}

// OnSuccess resets the error count and any backoff.
func (g *Governor) OnSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveErrors = 0
	g.backoffUntil = time.Time{}
}

// OnFailure records a failed call and returns the backoff it imposed, if any.
//
// A rate-limited failure backs off 5s doubling per consecutive error up to
// 30s. Other failures only back off, for a flat 2s, once more than five have
// happened in a row.
func (g *Governor) OnFailure(rateLimited bool) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutiveErrors++

	var backoff time.Duration
	switch {
	case rateLimited:
		backoff = rateLimitCap
		if shift := g.consecutiveErrors - 1; shift < 3 {
			backoff = min(rateLimitCap, rateLimitBase<<shift)
		}
	case g.consecutiveErrors > errorThreshold:
		backoff = errorBackoff
	default:
		return 0
	}

	g.backoffUntil = g.now().Add(backoff)
	return backoff
}

// ConsecutiveErrors returns the current failure streak.
func (g *Governor) ConsecutiveErrors() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecutiveErrors
}

// BackoffUntil returns when polling may resume. The zero time means no
// backoff.
func (g *Governor) BackoffUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.backoffUntil
}
