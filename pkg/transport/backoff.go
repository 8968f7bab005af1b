package transport

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff delays between retry attempts: exponential growth with jitter,
// capped at a maximum.
const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
	jitterFraction = 0.25
)

// sleepBackoff blocks for the attempt's backoff delay or until the context is
// canceled. attempt is zero-based.
func sleepBackoff(ctx context.Context, attempt int) {
	delay := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(maxBackoff) {
		delay = float64(maxBackoff)
	}

	jitterRange := delay * jitterFraction
	delay += (rand.Float64()*2 - 1) * jitterRange

	t := time.NewTimer(time.Duration(delay))
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
