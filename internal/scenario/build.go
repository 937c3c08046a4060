package scenario

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/ripple/internal/clock"
	"github.com/roach88/ripple/internal/derive"
	"github.com/roach88/ripple/internal/store"
)

type (
	recordCollection = store.Collection[string, Record]
	recordCounter    = store.Counter[string, Record, string]
	valueStore       = store.Store[any]
	bucketCollection = store.Collection[string, derive.Bucket[string, Record]]
)

// node is one built store. Exactly one of the store fields is set.
type node struct {
	spec    StoreSpec
	value   *valueStore
	coll    *recordCollection
	buckets *bucketCollection
	counter *recordCounter
	destroy func()
}

// source returns the store as a derive.Source.
func (n *node) source() derive.Source {
	switch {
	case n.value != nil:
		return n.value
	case n.coll != nil:
		return n.coll
	case n.buckets != nil:
		return n.buckets
	default:
		return n.counter
	}
}

// snapshot returns the store content in a form canon can encode.
func (n *node) snapshot() any {
	switch {
	case n.value != nil:
		return n.value.Get()
	case n.coll != nil:
		return recordsToAny(n.coll.Get())
	case n.buckets != nil:
		out := make([]any, 0, n.buckets.Len())
		for _, b := range n.buckets.Get() {
			out = append(out, bucketToAny(b))
		}
		return out
	default:
		counts := make(map[string]any)
		for e, c := range n.counter.Get() {
			counts[e] = c
		}
		return counts
	}
}

// keys returns the keys of a collection node in item order.
func (n *node) keys() []string {
	switch {
	case n.coll != nil:
		items := n.coll.Get()
		out := make([]string, len(items))
		for i, r := range items {
			out[i] = n.coll.KeyOf(r)
		}
		return out
	case n.buckets != nil:
		items := n.buckets.Get()
		out := make([]string, len(items))
		for i, b := range items {
			out[i] = n.buckets.KeyOf(b)
		}
		return out
	}
	return nil
}

// graph is a built scenario.
type graph struct {
	nodes  map[string]*node
	order  []string
	clock  *clock.Logical
	logger *slog.Logger
	rec    *recorder
}

func (g *graph) opts(name string) []store.Option {
	return []store.Option{
		store.WithName(name),
		store.WithClock(g.clock),
		store.WithLogger(g.logger),
	}
}

// build creates every store of specs, which must already be in build
// order.
func (g *graph) build(specs []StoreSpec) error {
	for _, s := range specs {
		n, err := g.buildNode(s)
		if err != nil {
			return fmt.Errorf("build %s %q: %w", s.Kind, s.Name, err)
		}
		g.nodes[s.Name] = n
		g.order = append(g.order, s.Name)
	}
	return nil
}

func (g *graph) buildNode(s StoreSpec) (*node, error) {
	n := &node{spec: s}
	key := s.Key
	if key == "" {
		key = DefaultKeyField
	}
	opts := g.opts(s.Name)

	var err error
	switch s.Kind {
	case KindValue:
		n.value = store.New(s.Value, opts...)
	case KindSet:
		n.coll, err = store.NewSet(keyFunc(key), s.Items, opts...)
	case KindArray:
		n.coll, err = store.NewArray(keyFunc(key), comparator(s.OrderBy), s.Items, opts...)
	case KindFilter:
		n.coll, err = g.buildFilter(s, opts)
	case KindSort:
		n.coll, err = derive.Sort(g.nodes[s.Source].coll, comparator(s.OrderBy), opts...)
	case KindSlice:
		n.coll, err = g.buildSlice(s, opts)
	case KindMap:
		n.coll, err = derive.Map(g.nodes[s.Source].coll, keyFunc(key), project(s.Fields), opts...)
	case KindCount:
		n.counter, err = derive.Count(g.nodes[s.Source].coll, elements(s.Field), opts...)
	case KindReindex:
		n.buckets, err = derive.Reindex(g.nodes[s.Source].coll, func(r Record) string { return render(r[s.Field]) }, opts...)
	case KindDerived:
		n.value = g.buildDerived(s, opts)
	default:
		err = fmt.Errorf("unknown kind %q", s.Kind)
	}
	if err != nil {
		return nil, err
	}

	// Combinators apply their initial content before returning, so the
	// recorder picks it up from the last delta.
	g.rec.attach(n)

	switch {
	case n.value != nil:
		n.destroy = n.value.Destroy
	case n.coll != nil:
		n.destroy = n.coll.Destroy
	case n.buckets != nil:
		n.destroy = n.buckets.Destroy
	default:
		n.destroy = n.counter.Destroy
	}
	return n, nil
}

func (g *graph) buildFilter(s StoreSpec, opts []store.Option) (*recordCollection, error) {
	src := g.nodes[s.Source].coll
	where := *s.Where
	if s.Param == "" {
		return derive.Filter(src, func(r Record) bool {
			return matches(where.Op, r[where.Field], where.Value)
		}, opts...)
	}

	var incremental func(store.Delta[any]) bool
	if s.Narrowing {
		incremental = func(d store.Delta[any]) bool {
			old, ok1 := d.OldValue.(string)
			cur, ok2 := d.NewValue.(string)
			return ok1 && ok2 && derive.Narrowing(store.Delta[string]{OldValue: old, NewValue: cur, TS: d.TS})
		}
	}
	params := []derive.Param{derive.ParamOf(g.nodes[s.Param].value, incremental)}
	return derive.FilterBy(src, params, func(r Record, values []any) bool {
		return matches(where.Op, r[where.Field], values[0])
	}, opts...)
}

func (g *graph) buildSlice(s StoreSpec, opts []store.Option) (*recordCollection, error) {
	src := g.nodes[s.Source].coll

	var rng *store.Store[derive.Range]
	switch r := s.Range.(type) {
	case string:
		// The named store holds a [start, end] list; an invalid value
		// selects nothing.
		rng = derive.Derive1(g.nodes[r].value, func(v any) derive.Range {
			out, err := toRange(v)
			if err != nil {
				g.logger.Warn("invalid slice range", "store", s.Name, "range", r, "error", err)
				return derive.Range{}
			}
			return out
		}, store.WithClock(g.clock), store.WithLogger(g.logger), store.WithName(s.Name+".range"))
	default:
		fixed, err := toRange(r)
		if err != nil {
			return nil, err
		}
		rng = store.New(fixed, store.WithClock(g.clock), store.WithLogger(g.logger))
	}

	out, err := derive.Slice(src, rng, opts...)
	if err != nil {
		rng.Destroy()
		return nil, err
	}
	out.AddCleanup(rng.Destroy)
	return out, nil
}

func (g *graph) buildDerived(s StoreSpec, opts []store.Option) *valueStore {
	sources := make([]*node, len(s.Sources))
	deps := make([]derive.Source, len(s.Sources))
	for i, name := range s.Sources {
		sources[i] = g.nodes[name]
		deps[i] = sources[i].source()
	}
	return derive.DeriveN(func() any { return aggregate(s.Op, s.Field, sources) }, opts, deps...)
}

// aggregate folds the values of sources: value stores contribute their
// value, collections the given field of each record, counters their
// counts.
func aggregate(op, field string, sources []*node) any {
	var values []any
	length := 0
	for _, n := range sources {
		switch {
		case n.value != nil:
			values = append(values, n.value.Get())
			length++
		case n.coll != nil:
			for _, r := range n.coll.Get() {
				values = append(values, r[field])
			}
			length += n.coll.Len()
		case n.buckets != nil:
			length += n.buckets.Len()
		default:
			for _, c := range n.counter.Get() {
				values = append(values, c)
			}
			length += n.counter.Len()
		}
	}

	switch op {
	case OpLen:
		return length
	case OpSum:
		sum := 0.0
		for _, v := range values {
			if f, ok := toFloat(v); ok {
				sum += f
			}
		}
		return normalizeNumber(sum)
	case OpMin, OpMax:
		var best any
		for _, v := range values {
			if _, ok := toFloat(v); !ok {
				if _, isStr := v.(string); !isStr {
					continue
				}
			}
			if best == nil {
				best = v
				continue
			}
			c := compareValues(v, best)
			if (op == OpMin && c < 0) || (op == OpMax && c > 0) {
				best = v
			}
		}
		return best
	}
	return nil
}

// normalizeNumber returns integral floats as int so derived values compare
// equal to the integers scenario files are written with.
func normalizeNumber(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

func recordsToAny(records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

func bucketToAny(b derive.Bucket[string, Record]) map[string]any {
	return map[string]any{
		"index": b.Index,
		"items": recordsToAny(b.Items),
	}
}
