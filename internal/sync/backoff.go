package sync

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff implements exponential backoff with jitter for reconnects and
// write retries.
type Backoff struct {
	Initial    time.Duration // Initial delay (default: 500ms)
	Max        time.Duration // Maximum delay (default: 30s)
	Multiplier float64       // Multiplier per attempt (default: 2.0)
	Jitter     float64       // Jitter factor 0-1 (default: 0.2)

	attempt int
	mu      sync.Mutex
}

// NewBackoff creates a Backoff with defaults suited to a local-network sync
// server.
func NewBackoff() *Backoff {
	return &Backoff{
		Initial:    500 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// Next returns the next delay and advances the attempt counter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(b.attempt))
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter > 0 {
		jitterRange := delay * b.Jitter
		delay = delay + (rand.Float64()*2-1)*jitterRange
	}
	if delay < 0 {
		delay = float64(b.Initial)
	}

	b.attempt++
	return time.Duration(delay)
}

// Reset resets the attempt counter after a success.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt = 0
}

// Attempt returns the current attempt number.
func (b *Backoff) Attempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}
