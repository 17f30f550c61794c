package remote

import (
	"math/rand/v2"
	"time"
)

const (
	// DefaultBackoffBase is the un-jittered delay for attempt 0.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultBackoffMax caps the exponential schedule.
	DefaultBackoffMax = 8 * time.Second

	// MinBackoff floors every computed delay so it is never zero or
	// negative after jitter.
	MinBackoff = 50 * time.Millisecond

	// jitterFraction is the symmetric jitter applied to each delay.
	jitterFraction = 0.25
)

// Backoff computes the delay before retry attempt n. The un-jittered
// center is min(base*2^n, max); symmetric random jitter of up to
// jitterFraction is applied, and the result is clamped to
// [MinBackoff, max].
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if max <= 0 {
		max = DefaultBackoffMax
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	if d > max {
		d = max
	}

	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFraction * float64(d))
	d += jitter

	if d < MinBackoff {
		d = MinBackoff
	}
	if d > max {
		d = max
	}
	return d
}
