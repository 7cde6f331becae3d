package chain

import (
	"fmt"
	"strings"
)

// Address identifies an account or a contract.
// Addresses are compared case-insensitively; ParseAddress lower-cases them.
type Address string

// ZeroAddress is the unset address. It never owns anything.
const ZeroAddress Address = ""

// TokenID identifies a token inside a collection. Ids are positive.
type TokenID uint64

// Amount is a held or transferred quantity.
type Amount uint64

// ParseAddress normalizes s into an Address.
func ParseAddress(s string) (Address, error) {
	a := Address(strings.ToLower(strings.TrimSpace(s)))
	if a == ZeroAddress {
		return ZeroAddress, fmt.Errorf("empty address")
	}
	return a, nil
}

// MustAddress is ParseAddress for literals. It panics on empty input.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the unset address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	if a.IsZero() {
		return "0x0"
	}
	return string(a)
}
