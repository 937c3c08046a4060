// Package derive builds stores whose content is maintained from other
// stores.
//
// Every combinator follows the same shape:
//
//  1. Create the target store (a clone of the source, or a fresh store).
//  2. Compute its initial content from the current upstream state and apply
//     it as the target's first update, stamped with the upstream timestamp.
//  3. Subscribe to each upstream store. On change, compute an incremental
//     patch from the upstream delta and apply it with the upstream delta's
//     timestamp.
//  4. Register a cleanup on the target that unsubscribes from every
//     upstream store, so Destroy detaches the target completely.
//
// Only the Derive family recomputes from scratch on every change; the
// collection combinators work from the delta.
//
// Targets inherit the clock and logger of their (first) source unless the
// caller overrides them with store options.
package derive
