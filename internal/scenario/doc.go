// Package scenario runs declarative store graphs.
//
// A scenario document (YAML or CUE) declares a set of stores: plain value
// stores, set and array collections of records, and combinators over them
// (filter, sort, slice, count, map, reindex, derived). It then lists steps
// that mutate the source stores, and assertions on the resulting state and
// on the deltas each store emitted.
//
// Running a scenario:
//
//  1. Parse and validate the document (unknown fields are rejected).
//  2. Order the stores by dependency; a cyclic declaration is rejected
//     before anything is built.
//  3. Build every store with a fresh logical clock, recording each delta.
//  4. Apply the steps one at a time on an engine.Loop.
//  5. Evaluate the assertions and return a Result holding the trace.
//
// Traces are deterministic: the same document always yields the same
// trace, which AssertGolden compares against testdata/golden.
package scenario
