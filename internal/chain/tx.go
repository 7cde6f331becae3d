package chain

import "github.com/roach88/guardvault/internal/ir"

// Event is a signal raised by a contract during a transaction.
// Args keep the exact order external indexers expect.
type Event struct {
	Source Address
	Name   string
	Args   ir.IRArray
}

// Tx is the context of a single protocol call.
//
// A Tx is used by exactly one operation and is not safe for concurrent use.
type Tx struct {
	Sender Address
	Time   int64

	events *[]Event
}

// NewTx creates a transaction context for sender at block time now (unix seconds).
func NewTx(sender Address, now int64) *Tx {
	return &Tx{Sender: sender, Time: now, events: new([]Event)}
}

// As returns a context for a nested call made by sender within the same
// transaction. Signals from both contexts land in one buffer.
func (tx *Tx) As(sender Address) *Tx {
	return &Tx{Sender: sender, Time: tx.Time, events: tx.events}
}

// Emit records a signal. Supported arg types are Address, TokenID, Amount,
// string, bool, int, int64, uint64 and ir.IRValue.
func (tx *Tx) Emit(source Address, name string, args ...any) {
	vals := make(ir.IRArray, len(args))
	for i, a := range args {
		vals[i] = toIRValue(a)
	}
	*tx.events = append(*tx.events, Event{Source: source, Name: name, Args: vals})
}

// Events returns the signals emitted so far, in emission order.
func (tx *Tx) Events() []Event {
	return *tx.events
}

// Discard drops every buffered signal, including those of nested contexts.
func (tx *Tx) Discard() {
	*tx.events = nil
}

func toIRValue(v any) ir.IRValue {
	switch val := v.(type) {
	case ir.IRValue:
		return val
	case Address:
		return ir.IRString(val.String())
	case TokenID:
		return ir.IRInt(int64(val))
	case Amount:
		return ir.IRInt(int64(val))
	case string:
		return ir.IRString(val)
	case bool:
		return ir.IRBool(val)
	case int:
		return ir.IRInt(int64(val))
	case int64:
		return ir.IRInt(val)
	case uint64:
		return ir.IRInt(int64(val))
	default:
		panic("chain: unsupported signal argument type")
	}
}
