package scenario

import (
	"github.com/roach88/ripple/internal/derive"
	"github.com/roach88/ripple/internal/store"
	"github.com/roach88/ripple/internal/tracelog"
)

// recorder collects the deltas of every store into a trace.
type recorder struct {
	seq     int64
	step    int
	events  []TraceEvent
	perStep map[string]map[int]int
	observe func(TraceEvent)
}

func newRecorder(observe func(TraceEvent)) *recorder {
	return &recorder{
		events:  []TraceEvent{},
		perStep: make(map[string]map[int]int),
		observe: observe,
	}
}

// attach records the delta a store already holds, if any, and subscribes
// to the ones that follow.
func (r *recorder) attach(n *node) {
	name := n.spec.Name
	switch {
	case n.value != nil:
		if d, ok := n.value.LastDelta(); ok {
			r.add(name, tracelog.KindValue, d.TS, valueDelta(d))
		}
		n.value.OnChange(func(d store.Delta[any]) error {
			r.add(name, tracelog.KindValue, d.TS, valueDelta(d))
			return nil
		})
	case n.coll != nil:
		if d, ok := n.coll.LastDelta(); ok {
			r.add(name, tracelog.KindCollection, d.TS, collectionDelta(d, recordsToAny))
		}
		n.coll.OnChange(func(d store.CollectionDelta[Record]) error {
			r.add(name, tracelog.KindCollection, d.TS, collectionDelta(d, recordsToAny))
			return nil
		})
	case n.buckets != nil:
		if d, ok := n.buckets.LastDelta(); ok {
			r.add(name, tracelog.KindCollection, d.TS, collectionDelta(d, bucketsToAny))
		}
		n.buckets.OnChange(func(d store.CollectionDelta[derive.Bucket[string, Record]]) error {
			r.add(name, tracelog.KindCollection, d.TS, collectionDelta(d, bucketsToAny))
			return nil
		})
	default:
		if d, ok := n.counter.LastDelta(); ok {
			r.add(name, tracelog.KindCounter, d.TS, collectionDelta(d, stringsToAny))
		}
		n.counter.OnChange(func(d store.CollectionDelta[string]) error {
			r.add(name, tracelog.KindCounter, d.TS, collectionDelta(d, stringsToAny))
			return nil
		})
	}
}

func (r *recorder) add(name, kind string, ts int64, delta map[string]any) {
	r.seq++
	ev := TraceEvent{
		Seq:   r.seq,
		Step:  r.step,
		Store: name,
		Kind:  kind,
		TS:    ts,
		Delta: delta,
	}
	r.events = append(r.events, ev)
	if r.perStep[name] == nil {
		r.perStep[name] = make(map[int]int)
	}
	r.perStep[name][r.step]++
	if r.observe != nil {
		r.observe(ev)
	}
}

// stepEvents returns how many deltas a store emitted during step (1-based),
// or during all steps when step is 0.
func (r *recorder) stepEvents(name string, step int) int {
	if step > 0 {
		return r.perStep[name][step]
	}
	total := 0
	for s, n := range r.perStep[name] {
		if s > 0 {
			total += n
		}
	}
	return total
}

func valueDelta(d store.Delta[any]) map[string]any {
	return map[string]any{"old": d.OldValue, "new": d.NewValue}
}

func collectionDelta[T any](d store.CollectionDelta[T], conv func([]T) []any) map[string]any {
	out := make(map[string]any, 3)
	if len(d.Added) > 0 {
		out["added"] = conv(d.Added)
	}
	if len(d.Updated) > 0 {
		out["updated"] = conv(d.Updated)
	}
	if len(d.Removed) > 0 {
		out["removed"] = conv(d.Removed)
	}
	return out
}

func bucketsToAny(buckets []derive.Bucket[string, Record]) []any {
	out := make([]any, len(buckets))
	for i, b := range buckets {
		out[i] = bucketToAny(b)
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
