// Package testutil provides deterministic clocks, token generators, and
// snapshot builders for tests.
package testutil

import (
	"sync"
	"time"
)

// FixedClock returns the same wall time on every call.
//
// Runs driven by a FixedClock plus fixed tokens produce byte-identical
// reports, which is what the golden-report tests pin.
//
// Thread-safety: FixedClock is immutable and safe for concurrent use.
type FixedClock struct {
	at time.Time
}

// NewFixedClock creates a clock pinned to the given instant.
func NewFixedClock(at time.Time) *FixedClock {
	return &FixedClock{at: at}
}

// Now returns the pinned instant.
func (c *FixedClock) Now() time.Time { return c.at }

// SteppingClock returns strictly increasing instants, one step apart.
//
// Useful when a test needs distinct timestamps but still wants replayable
// values.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewSteppingClock creates a clock starting at start, advancing by step
// per call.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{next: start, step: step}
}

// Now returns the next instant and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}
