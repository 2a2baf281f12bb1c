package syncer

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay between whole-operation retry attempts.
// Individual requests are never retried mid-flight; the caller re-runs
// the minimal failed scope (full crawl or failed file subset) after an
// attempt completes.
type Backoff struct {
	Base         time.Duration
	Max          time.Duration
	EnableJitter bool
}

// DefaultBackoff suits a handful of whole-sync retries.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:         500 * time.Millisecond,
		Max:          30 * time.Second,
		EnableJitter: true,
	}
}

// Delay returns the exponential backoff for the given attempt, capped
// at Max, with optional jitter to avoid thundering herds.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return b.Base
	}

	delay := b.Base * time.Duration(math.Pow(2, float64(attempt)))
	if delay > b.Max {
		delay = b.Max
	}

	if b.EnableJitter {
		jitterWindow := delay.Milliseconds() / 10
		if jitterWindow > 0 {
			delay += time.Duration(rand.Int63n(jitterWindow)) * time.Millisecond
		}
	}

	return delay
}

// Wait sleeps for the attempt's delay or until the context is done.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.Delay(attempt)):
		return nil
	}
}
