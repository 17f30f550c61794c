package remote

import (
	"testing"
	"time"
)

func TestBackoffBounds(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	for attempt := 0; attempt < 10; attempt++ {
		// Jitter is random; sample repeatedly.
		for i := 0; i < 200; i++ {
			d := Backoff(attempt, base, max)
			if d < MinBackoff {
				t.Fatalf("attempt %d: delay %v below floor %v", attempt, d, MinBackoff)
			}
			if d > max {
				t.Fatalf("attempt %d: delay %v above max %v", attempt, d, max)
			}
		}
	}
}

func TestBackoffCenter(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	tests := []struct {
		attempt int
		center  time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1600 * time.Millisecond},
		{5, 2 * time.Second}, // capped
		{9, 2 * time.Second},
	}

	for _, tt := range tests {
		lo := time.Duration(float64(tt.center) * (1 - jitterFraction))
		hi := time.Duration(float64(tt.center) * (1 + jitterFraction))
		if hi > max {
			hi = max
		}
		for i := 0; i < 200; i++ {
			d := Backoff(tt.attempt, base, max)
			if d < lo || d > hi {
				t.Fatalf("attempt %d: delay %v outside jitter window [%v, %v]", tt.attempt, d, lo, hi)
			}
		}
	}
}

func TestBackoffDefaults(t *testing.T) {
	d := Backoff(0, 0, 0)
	if d < MinBackoff || d > DefaultBackoffMax {
		t.Errorf("Backoff with zero config = %v, outside [%v, %v]", d, MinBackoff, DefaultBackoffMax)
	}
}
