// Package ir defines the value model and record types of the guardvault
// journal.
//
// Everything that crosses the journal boundary (call arguments, results,
// signal payloads) is an IRValue. The set is closed: strings, int64,
// booleans, arrays, objects and, for decoding only, null. There are no
// floats, so every value has one canonical JSON encoding and one
// content-addressed id.
//
// ir imports nothing internal. Every other package may import it.
package ir
