// Package chain holds the primitives shared by every guardvault contract:
// addresses, token ids and amounts, the per-call transaction context, and
// the typed protocol error.
//
// Contracts never talk to the journal or the signal bus directly. Each
// operation receives a *Tx carrying the sender and the block time, and
// reports observable signals through Tx.Emit. The engine keeps the
// buffered signals only when the operation returns nil, so a rejected call
// leaves no trace beyond its completion record.
package chain
