// Package abi computes EVM-style function selectors and interface ids.
//
// A selector is the first four bytes of the Keccak-256 hash of a canonical
// function signature such as "ownerOf(uint256)". An interface id is the XOR
// of the selectors of every function in the interface (ERC-165). Contracts
// use interface ids both to advertise the standard they implement and to
// fingerprint an implementation before it is activated.
package abi

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ID is a four-byte selector or interface id.
type ID [4]byte

// Selector returns the selector of a canonical function signature.
func Selector(signature string) ID {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var id ID
	copy(id[:], h.Sum(nil)[:4])
	return id
}

// InterfaceID XORs the selectors of signatures.
func InterfaceID(signatures ...string) ID {
	var id ID
	for _, sig := range signatures {
		s := Selector(sig)
		for i := range id {
			id[i] ^= s[i]
		}
	}
	return id
}

// Hex renders id as 0x-prefixed lowercase hex.
func (id ID) Hex() string {
	return fmt.Sprintf("0x%08x", binary.BigEndian.Uint32(id[:]))
}

func (id ID) String() string {
	return id.Hex()
}

// ParseID parses a 0x-prefixed eight digit hex id.
func ParseID(s string) (ID, error) {
	var id ID
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(s) != 8 {
		return id, fmt.Errorf("interface id %q: want 8 hex digits", s)
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "%08x", &v); err != nil {
		return id, fmt.Errorf("interface id %q: %w", s, err)
	}
	binary.BigEndian.PutUint32(id[:], v)
	return id, nil
}

// Well-known interface signatures.
var (
	ERC165Signatures = []string{
		"supportsInterface(bytes4)",
	}

	ERC721Signatures = []string{
		"balanceOf(address)",
		"ownerOf(uint256)",
		"safeTransferFrom(address,address,uint256,bytes)",
		"safeTransferFrom(address,address,uint256)",
		"transferFrom(address,address,uint256)",
		"approve(address,uint256)",
		"setApprovalForAll(address,bool)",
		"getApproved(uint256)",
		"isApprovedForAll(address,address)",
	}

	ERC1155Signatures = []string{
		"safeTransferFrom(address,address,uint256,uint256,bytes)",
		"safeBatchTransferFrom(address,address,uint256[],uint256[],bytes)",
		"balanceOf(address,uint256)",
		"balanceOfBatch(address[],uint256[])",
		"setApprovalForAll(address,bool)",
		"isApprovedForAll(address,address)",
	}
)

// Well-known interface ids.
var (
	ERC165  = InterfaceID(ERC165Signatures...)
	ERC721  = InterfaceID(ERC721Signatures...)
	ERC1155 = InterfaceID(ERC1155Signatures...)
)
