package codec

import (
	"fmt"

	"github.com/roach88/guardvault/internal/ir"
)

// SignalMessage is the wire form of ir.Signal.
type SignalMessage struct {
	ID           string `cbor:"id"`
	CompletionID string `cbor:"completion_id"`
	Seq          int64  `cbor:"seq"`
	Source       string `cbor:"source"`
	Name         string `cbor:"name"`
	Args         []any  `cbor:"args"`
}

// EncodeSignal encodes sig for publishing.
func EncodeSignal(sig ir.Signal) ([]byte, error) {
	args := make([]any, len(sig.Args))
	for i, a := range sig.Args {
		args[i] = ir.ToAny(a)
	}
	data, err := Marshal(SignalMessage{
		ID:           sig.ID,
		CompletionID: sig.CompletionID,
		Seq:          sig.Seq,
		Source:       sig.Source,
		Name:         sig.Name,
		Args:         args,
	})
	if err != nil {
		return nil, fmt.Errorf("encode signal %s: %w", sig.ID, err)
	}
	return data, nil
}

// DecodeSignal is the inverse of EncodeSignal.
func DecodeSignal(data []byte) (ir.Signal, error) {
	var msg SignalMessage
	if err := Unmarshal(data, &msg); err != nil {
		return ir.Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	if msg.ID == "" || msg.Name == "" {
		return ir.Signal{}, fmt.Errorf("decode signal: missing id or name")
	}
	args := make(ir.IRArray, len(msg.Args))
	for i, a := range msg.Args {
		v, err := ir.FromAny(a)
		if err != nil {
			return ir.Signal{}, fmt.Errorf("decode signal %s: args[%d]: %w", msg.ID, i, err)
		}
		args[i] = v
	}
	return ir.Signal{
		ID:           msg.ID,
		CompletionID: msg.CompletionID,
		Seq:          msg.Seq,
		Source:       msg.Source,
		Name:         msg.Name,
		Args:         args,
	}, nil
}
