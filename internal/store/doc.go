// Package store implements observable containers that broadcast a structured
// delta whenever their content changes.
//
// # Store kinds
//
//   - Store[V]: a single value. Deltas carry the old and new value.
//   - Collection[K, T]: a keyed collection of items, either set-backed
//     (NewSet) or kept sorted by a comparator (NewArray). Deltas list the
//     accepted added, updated and removed items.
//   - Counter[K, T, E]: counts the elements extracted from each item.
//     Deltas list the elements whose counts appeared, changed or vanished.
//
// # Timestamps
//
// Every accepted update carries a logical timestamp. A store rejects any
// update stamped earlier than its current timestamp with an
// OUT_OF_ORDER_TIMESTAMP error, so a slow asynchronous producer can never
// overwrite a newer value. Default timestamps come from the injected
// clock.Clock (WithClock); stores that share a derivation graph should share
// one clock.
//
// # Propagation
//
// Set emits "change" synchronously. Subscribers (usually combinators from
// package derive) recompute and call Set on their own stores before the
// original Set returns, so one upstream update drives the whole graph
// depth-first. A diamond-shaped graph may recompute its join point once per
// path.
//
// The derivation graph must be acyclic. A store that is set again while it
// is still emitting its own change is rejected with CYCLE_DETECTED.
//
// # Concurrency
//
// Stores are not safe for concurrent use. Serialize all updates on one
// goroutine, for example through engine.Loop.
package store
