// Package asset models the external token contracts a vault can custody
// and the asset registry the vault consults for trust.
//
// Three standards are supported: single-owner NFTs (ERC-721 style),
// fungible tokens (ERC-20 style) and multi-unit semi-fungible tokens
// (ERC-1155 style). The in-memory contracts in this package enforce their
// own approval rules; callers such as the vault go through the same entry
// points any other account would.
package asset

import (
	"fmt"

	"github.com/roach88/guardvault/internal/abi"
	"github.com/roach88/guardvault/internal/chain"
)

// Kind classifies an asset contract.
type Kind int

const (
	KindUnknown Kind = iota
	KindNFT
	KindFungible
	KindMulti
)

func (k Kind) String() string {
	switch k {
	case KindNFT:
		return "nft"
	case KindFungible:
		return "ft"
	case KindMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// ParseKind parses the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "nft":
		return KindNFT, nil
	case "ft":
		return KindFungible, nil
	case "multi":
		return KindMulti, nil
	default:
		return KindUnknown, fmt.Errorf("unknown asset kind %q", s)
	}
}

// Contract is any deployed asset contract.
type Contract interface {
	Address() chain.Address
}

// NonFungible is a single-owner token contract.
type NonFungible interface {
	Contract
	OwnerOf(id chain.TokenID) (chain.Address, error)
	SafeTransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID) error
}

// Fungible is a divisible token contract. Its tokens carry no sub-id.
type Fungible interface {
	Contract
	BalanceOf(owner chain.Address) chain.Amount
	Transfer(tx *chain.Tx, to chain.Address, amount chain.Amount) error
	TransferFrom(tx *chain.Tx, from, to chain.Address, amount chain.Amount) error
}

// MultiToken holds many units per token id.
type MultiToken interface {
	Contract
	BalanceOf(owner chain.Address, id chain.TokenID) chain.Amount
	SafeTransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID, amount chain.Amount) error
}

// InterfaceProber is implemented by contracts that declare the standards
// they support.
type InterfaceProber interface {
	SupportsInterface(id abi.ID) bool
}

// Detect probes c for the standard it implements.
func Detect(c Contract) Kind {
	if p, ok := c.(InterfaceProber); ok {
		if _, nft := c.(NonFungible); nft && p.SupportsInterface(abi.ERC721) {
			return KindNFT
		}
		if _, multi := c.(MultiToken); multi && p.SupportsInterface(abi.ERC1155) {
			return KindMulti
		}
	}
	if _, ok := c.(Fungible); ok {
		return KindFungible
	}
	return KindUnknown
}

func checkRecipient(to chain.Address) error {
	if to.IsZero() {
		return chain.Errorf(chain.ErrInvalidRecipient, "transfer to the zero address")
	}
	return nil
}
