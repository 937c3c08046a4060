package testutil

import "sync"

// DeterministicClock is a resettable logical clock for tests.
//
// It implements clock.Clock: Now returns 1, 2, 3, ... so a test can predict
// the timestamp of every default-stamped update. Unlike clock.Logical it can
// be reset, which lets one scenario run several times with identical stamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Now() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{seq: 0}
}

// Now increments and returns the next timestamp.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last timestamp handed out without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Advance moves the clock forward by n without handing out the values.
// Tests use it to leave room for explicitly stamped updates.
func (c *DeterministicClock) Advance(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq += n
}

// Reset resets the clock to 0.
//
// After Reset(), the next call to Now() returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
