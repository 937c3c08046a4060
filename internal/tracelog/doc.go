// Package tracelog provides SQLite-backed storage for store change traces.
//
// A trace log holds runs and, for each run, the ordered list of deltas the
// stores emitted. It is an observability record only: nothing in ripple
// reads it back to rebuild store state.
//
// # Ordering
//
// Each entry carries the sequence number of its emission within the run
// and the logical timestamp of the delta. Reads order by seq, so a trace
// reads back in the order it was recorded regardless of timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Readers (trace, replay) use OpenReadOnly, which never creates a file and
// refuses logs whose schema version it does not know.
//
// Payloads are stored as canonical JSON (see internal/canon), so identical
// traces store identical bytes.
package tracelog
