// Package store is the SQLite journal of every protocol call.
//
// Three append-only tables record what happened:
//   - invocations: the call, written before it executes
//   - completions: its output case, one per invocation
//   - signals: the events a successful call emitted
//
// Ordering uses the engine's logical seq, never wall time. Every read
// orders by seq ASC, id COLLATE BINARY ASC so replays see identical
// results. Writes use ON CONFLICT DO NOTHING, so re-recording the same
// content-addressed record is a no-op.
//
// The database runs in WAL mode with a single open connection; the engine
// is the only writer.
package store
