// Package flight implements the single-flight deduplication primitive: a
// keyed critical-section map that collapses concurrent requests for the
// same externally-expensive resource into one in-flight operation.
//
// The canonical consumer is federated destination resolution: when N
// requests need the network destination of the same remote server at once,
// exactly one DNS/well-known lookup runs and all N callers share its
// result. Any per-key idempotent computation with a meaningful cost profits
// the same way.
//
// The key table is an xsync.MapOf mutated with a single LoadOrStore per
// call, so the hot path takes no lock of its own and performs no I/O while
// bookkeeping. The slot is guaranteed to be released when the producer
// returns or panics.
package flight
