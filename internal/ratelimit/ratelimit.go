// Package ratelimit provides a token bucket used to gate the accept loop.
package ratelimit

import (
	"sync"
	"time"
)

// Bucket refills at a fixed rate up to a burst capacity. A nil *Bucket
// allows everything, so callers need no enabled/disabled branching.
type Bucket struct {
	mu     sync.Mutex
	tokens float64
	cap    float64
	rate   float64 // tokens per second
	last   time.Time
}

// New returns a bucket refilling at rate tokens per second with the given
// burst capacity. A rate of zero or less disables limiting (nil bucket).
func New(rate, burst int) *Bucket {
	if rate <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Bucket{
		tokens: float64(burst),
		cap:    float64(burst),
		rate:   float64(rate),
		last:   time.Now(),
	}
}

// Allow consumes a token if one is available.
func (b *Bucket) Allow() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.cap {
		b.tokens = b.cap
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
