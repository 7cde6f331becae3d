// Package engine executes protocol calls against a World and journals them.
//
// Single writer:
// Every call is a transaction run under one lock. The engine stamps a seq
// from its logical Clock, writes the invocation, runs the action with a
// chain.Tx carrying the sender and block time, then writes the completion
// and the call's signals atomically. A rejected call journals its error
// code as the output case and emits no signals.
//
// Call flow:
//
//	Call -> bindCall (action table, arg checks)
//	     -> WriteInvocation(seq n)
//	     -> handler(World, Tx)
//	     -> WriteOutcome(completion seq n+1, signals n+2...)
//	     -> SignalSinks
//
// Calls can be applied directly (Apply) or queued to a Run loop
// (Enqueue, Submit). Replay rebuilds a World from the journal and verifies
// that re-execution reproduces it exactly.
package engine
