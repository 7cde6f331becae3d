// Package codec is the binary wire format for signals leaving the engine.
//
// Encoding is CBOR with Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, shortest integer form, definite lengths. The same
// signal always encodes to the same bytes, so consumers can deduplicate
// on payload hashes as well as on signal ids.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Signal args only use string keys; decode any-typed maps the way
		// the ir package expects them.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Journal integers are int64. Decode every CBOR integer as int64
		// so values round-trip without a uint64 detour.
		IntDec: cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns RFC 8949 diagnostic notation for data, for logs and
// the trace command.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
