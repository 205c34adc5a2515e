package ledger

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle defaults, sized for the Etherscan free tier.
const (
	DefaultRate            = 5.0
	DefaultPenaltyInterval = time.Second
)

// Throttle paces calls to the remote ledger API. A single Throttle is shared
// by every Client in the process so that concurrent searches draw from one
// quota.
type Throttle struct {
	limiter         *rate.Limiter
	penaltyInterval time.Duration

	mu          sync.Mutex
	pausedUntil time.Time
	penalties   int
}

// NewThrottle creates a Throttle allowing perSecond calls per second. After a
// hard rate-limit signal the rate never exceeds one call per penaltyInterval.
func NewThrottle(perSecond float64, penaltyInterval time.Duration) *Throttle {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}

	if penaltyInterval <= 0 {
		penaltyInterval = DefaultPenaltyInterval
	}

	return &Throttle{
		limiter:         rate.NewLimiter(rate.Limit(perSecond), 1),
		penaltyInterval: penaltyInterval,
	}
}

// Wait blocks until the caller may issue one remote call. Any error is
// ctx.Err() and is returned only once ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	until := t.pausedUntil
	t.mu.Unlock()

	if d := time.Until(until); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := t.limiter.Wait(ctx); err != nil {
		// The limiter refuses up front when the next token lands after the
		// deadline; the caller still waits for the context to end.
		<-ctx.Done()

		return ctx.Err()
	}

	return nil
}

// Penalize records a hard rate-limit rejection: every caller pauses for
// pause (the penalty interval when pause is zero) and the steady rate drops to
// at most one call per penalty interval.
func (t *Throttle) Penalize(pause time.Duration) {
	if pause <= 0 {
		pause = t.penaltyInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if until := time.Now().Add(pause); until.After(t.pausedUntil) {
		t.pausedUntil = until
	}

	if floor := rate.Every(t.penaltyInterval); t.limiter.Limit() > floor {
		t.limiter.SetLimit(floor)
	}

	t.penalties++
}

// Rate returns the current steady rate in calls per second.
func (t *Throttle) Rate() float64 {
	return float64(t.limiter.Limit())
}

// Penalties returns how many hard rate-limit signals have been recorded.
func (t *Throttle) Penalties() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.penalties
}
