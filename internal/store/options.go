package store

import (
	"log/slog"

	"github.com/roach88/ripple/internal/clock"
)

// Option configures a store.
type Option func(*config)

type config struct {
	clock      clock.Clock
	logger     *slog.Logger
	name       string
	cycleCheck bool
	equal      any // func(a, b V) bool, checked by New
}

func newConfig(opts []Option) config {
	cfg := config{
		clock:      clock.Default(),
		logger:     slog.Default(),
		cycleCheck: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// forClone returns the settings a cloned store inherits, with opts applied
// on top. Names are not inherited: a clone is a different store.
func (c config) forClone(opts []Option) config {
	c.name = ""
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithClock sets the source of default timestamps.
// Default: clock.Default(), the process-wide logical clock.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithLogger sets the logger used for debug diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithName labels the store in errors and log lines.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithCycleCheck enables or disables rejection of updates to a store that
// is still emitting its own change. Default: enabled.
func WithCycleCheck(enabled bool) Option {
	return func(cfg *config) {
		cfg.cycleCheck = enabled
	}
}

// WithEqual overrides the change test of a value store. Set is a no-op when
// eq(current, next) is true. New panics if V does not match its own value type.
func WithEqual[V any](eq func(a, b V) bool) Option {
	return func(cfg *config) {
		cfg.equal = eq
	}
}
