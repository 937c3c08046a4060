package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ripple/internal/canon"
	"github.com/roach88/ripple/internal/clock"
	"github.com/roach88/ripple/internal/engine"
	"github.com/roach88/ripple/internal/store"
	"github.com/roach88/ripple/internal/tracelog"
)

// Runner executes scenario documents.
type Runner struct {
	logger  *slog.Logger
	observe func(TraceEvent)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger handed to every store and to the loop.
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithObserver registers fn for every recorded delta, as it is recorded.
func WithObserver(fn func(TraceEvent)) Option {
	return func(r *Runner) {
		r.observe = fn
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes doc with default options.
func Run(ctx context.Context, doc *Document) (*Result, error) {
	return NewRunner().Run(ctx, doc)
}

// Run builds the graph of doc, applies its steps and evaluates its
// assertions.
//
// A returned error means the scenario could not be run at all (cyclic
// graph, store construction failure). Step and assertion failures are
// reported in the Result instead.
func (r *Runner) Run(ctx context.Context, doc *Document) (*Result, error) {
	order, err := BuildOrder(doc.Stores)
	if err != nil {
		return nil, err
	}

	rec := newRecorder(r.observe)
	g := &graph{
		nodes:  make(map[string]*node, len(order)),
		clock:  clock.NewLogical(),
		logger: r.logger,
		rec:    rec,
	}

	loop := engine.New(engine.WithLogger(r.logger))
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()
	defer func() {
		loop.Stop()
		<-loopDone
	}()

	if err := loop.Exec(ctx, func() error { return g.build(order) }); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range doc.Steps {
		err := loop.Exec(ctx, func() error {
			rec.step = i + 1
			return g.apply(step)
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := checkStep(i+1, step, err); msg != "" {
			result.AddError(msg)
		}
	}

	err = loop.Exec(ctx, func() error {
		for _, msg := range evaluate(g, rec, doc.Assertions) {
			result.AddError(msg)
		}
		for _, name := range g.order {
			if n := g.nodes[name]; n != nil {
				result.State[name] = n.snapshot()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Trace = rec.events
	return result, nil
}

// apply executes one step. It runs on the loop.
func (g *graph) apply(step Step) error {
	target := step.Set + step.Patch + step.Destroy
	n, ok := g.nodes[target]
	if !ok {
		return fmt.Errorf("store %q is destroyed", target)
	}

	switch {
	case step.Set != "":
		s := n.value
		if step.TS != nil {
			return s.SetAt(step.Value, *step.TS)
		}
		return s.Set(step.Value)

	case step.Patch != "":
		c := n.coll
		p := store.Patch[Record]{Added: step.Added, Updated: step.Updated, Removed: step.Removed}
		if step.TS != nil {
			return c.SetAt(p, *step.TS)
		}
		return c.Set(p)

	case step.Destroy != "":
		n.destroy()
		delete(g.nodes, step.Destroy)
		return nil
	}
	return fmt.Errorf("empty step")
}

// checkStep compares the outcome of a step with its expect_error.
func checkStep(index int, step Step, err error) string {
	code := errorCode(err)
	switch {
	case step.ExpectError == "" && err != nil:
		return fmt.Sprintf("step %d: unexpected error: %v", index, err)
	case step.ExpectError != "" && err == nil:
		return fmt.Sprintf("step %d: expected %s, got success", index, step.ExpectError)
	case step.ExpectError != "" && code != step.ExpectError:
		return fmt.Sprintf("step %d: expected %s, got %v", index, step.ExpectError, err)
	}
	return ""
}

// errorCode extracts the store error code from err, if any.
func errorCode(err error) string {
	var se *store.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return ""
}

// Entries converts the trace to trace log entries with canonical payloads.
func (r *Result) Entries() ([]tracelog.Entry, error) {
	entries := make([]tracelog.Entry, len(r.Trace))
	for i, ev := range r.Trace {
		payload, err := canon.Marshal(ev.Delta)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", ev.Seq, ev.Store, err)
		}
		entries[i] = tracelog.Entry{
			Seq:     ev.Seq,
			Store:   ev.Store,
			Kind:    ev.Kind,
			TS:      ev.TS,
			Payload: string(payload),
		}
	}
	return entries, nil
}
