package push

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff implements exponential backoff with jitter for reconnect attempts.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	factor  float64
	jitter  float64

	mu       sync.Mutex
	current  time.Duration
	attempts int
}

// NewBackoff creates a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max <= 0 {
		max = time.Minute
	}
	return &Backoff{
		initial: initial,
		max:     max,
		factor:  2.0,
		jitter:  0.1,
		current: initial,
	}
}

// Next returns the next delay and advances the schedule.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	duration := b.current
	if b.jitter > 0 {
		jitterRange := float64(duration) * b.jitter
		duration = time.Duration(float64(duration) + (rand.Float64()*2-1)*jitterRange)
	}

	b.attempts++
	b.current = time.Duration(float64(b.current) * b.factor)
	if b.current > b.max {
		b.current = b.max
	}
	return duration
}

// Reset restores the initial delay after a successful connect.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
