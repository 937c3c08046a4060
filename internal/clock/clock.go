// Package clock supplies the timestamps stores use to order their updates.
//
// Stores never read the system clock directly. Every default timestamp comes
// from an injected Clock so tests can run with deterministic values and a whole
// derivation graph can share one monotonic source.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns the timestamp for a new update.
type Clock interface {
	Now() int64
}

// Logical is a monotonic logical clock.
//
// Every call to Now returns a strictly increasing value, so two updates
// stamped by the same Logical clock never tie.
//
// Thread-safety: Logical is safe for concurrent use (atomic operations).
type Logical struct {
	seq atomic.Int64
}

// NewLogical creates a logical clock starting at 0. The first Now returns 1.
func NewLogical() *Logical {
	return &Logical{}
}

// NewLogicalAt creates a logical clock starting at a specific value.
func NewLogicalAt(start int64) *Logical {
	c := &Logical{}
	c.seq.Store(start)
	return c
}

// Now increments the clock and returns the new value.
func (c *Logical) Now() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (c *Logical) Current() int64 {
	return c.seq.Load()
}

// Wall stamps updates with Unix milliseconds. Updates in the same
// millisecond tie, which stores accept (only strictly older stamps are rejected).
type Wall struct{}

// Now returns the current Unix time in milliseconds.
func (Wall) Now() int64 {
	return time.Now().UnixMilli()
}

// Func adapts a plain function to the Clock interface.
type Func func() int64

// Now calls f.
func (f Func) Now() int64 {
	return f()
}

var defaultClock = NewLogical()

// Default returns the process-wide logical clock used by stores that were
// not given one explicitly.
func Default() *Logical {
	return defaultClock
}
