package sync

import (
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := &Backoff{
		Initial:    100 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0, // deterministic
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second,
		1 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := &Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2.0}

	b.Next()
	b.Next()
	if b.Attempt() != 2 {
		t.Errorf("Attempt() = %d, want 2", b.Attempt())
	}

	b.Reset()
	if b.Attempt() != 0 {
		t.Errorf("Attempt() after reset = %d, want 0", b.Attempt())
	}
	if got := b.Next(); got != 100*time.Millisecond {
		t.Errorf("Next() after reset = %v, want initial", got)
	}
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	b := &Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2.0, Jitter: 0.2}

	got := b.Next()
	if got < 800*time.Millisecond || got > 1200*time.Millisecond {
		t.Errorf("jittered delay %v outside [0.8s, 1.2s]", got)
	}
}
