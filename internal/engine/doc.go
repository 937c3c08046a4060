// Package engine serializes store mutations onto a single goroutine.
//
// Stores and their combinators are not safe for concurrent use: a change
// propagates synchronously through the whole graph on the goroutine that
// called Set. Loop is the single writer for a store graph. Other goroutines
// submit work with Do; Run executes it in FIFO order.
//
// Asynchronous updates follow the store contract: the timestamp is taken
// when the update is requested, the producer runs off the loop, and the
// result is applied on the loop with the original timestamp. An update that
// finishes after a newer one has landed is rejected with
// OUT_OF_ORDER_TIMESTAMP instead of overwriting it.
package engine
