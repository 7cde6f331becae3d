package asset

import (
	"sync"

	"github.com/roach88/guardvault/internal/abi"
	"github.com/roach88/guardvault/internal/chain"
)

// NFT is an in-memory ERC-721 style collection.
type NFT struct {
	mu        sync.Mutex
	addr      chain.Address
	name      string
	minter    chain.Address
	owners    map[chain.TokenID]chain.Address
	balances  map[chain.Address]uint64
	approved  map[chain.TokenID]chain.Address
	operators map[chain.Address]map[chain.Address]bool
}

// NewNFT deploys a collection at addr. Only minter may mint.
func NewNFT(addr chain.Address, name string, minter chain.Address) *NFT {
	return &NFT{
		addr:      addr,
		name:      name,
		minter:    minter,
		owners:    make(map[chain.TokenID]chain.Address),
		balances:  make(map[chain.Address]uint64),
		approved:  make(map[chain.TokenID]chain.Address),
		operators: make(map[chain.Address]map[chain.Address]bool),
	}
}

func (n *NFT) Address() chain.Address { return n.addr }
func (n *NFT) Name() string           { return n.name }

// SupportsInterface reports ERC-165 and ERC-721.
func (n *NFT) SupportsInterface(id abi.ID) bool {
	return id == abi.ERC165 || id == abi.ERC721
}

// Mint creates token id for to.
func (n *NFT) Mint(tx *chain.Tx, to chain.Address, id chain.TokenID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if tx.Sender != n.minter {
		return chain.Errorf(chain.ErrNotAuthorized, "%s is not the minter of %s", tx.Sender, n.name)
	}
	if err := checkRecipient(to); err != nil {
		return err
	}
	if _, ok := n.owners[id]; ok {
		return chain.Errorf(chain.ErrTokenExists, "%s #%d already minted", n.name, id)
	}
	n.owners[id] = to
	n.balances[to]++
	tx.Emit(n.addr, "Transfer", chain.ZeroAddress, to, id)
	return nil
}

// OwnerOf returns the holder of id.
func (n *NFT) OwnerOf(id chain.TokenID) (chain.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	owner, ok := n.owners[id]
	if !ok {
		return chain.ZeroAddress, chain.Errorf(chain.ErrTokenNotFound, "%s #%d does not exist", n.name, id)
	}
	return owner, nil
}

// BalanceOf counts the tokens held by owner.
func (n *NFT) BalanceOf(owner chain.Address) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances[owner]
}

// Approve lets to move id once.
func (n *NFT) Approve(tx *chain.Tx, to chain.Address, id chain.TokenID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	owner, ok := n.owners[id]
	if !ok {
		return chain.Errorf(chain.ErrTokenNotFound, "%s #%d does not exist", n.name, id)
	}
	if tx.Sender != owner && !n.operators[owner][tx.Sender] {
		return chain.Errorf(chain.ErrNotAuthorized, "%s may not approve %s #%d", tx.Sender, n.name, id)
	}
	n.approved[id] = to
	tx.Emit(n.addr, "Approval", owner, to, id)
	return nil
}

// GetApproved returns the single-token approval for id.
func (n *NFT) GetApproved(id chain.TokenID) chain.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.approved[id]
}

// SetApprovalForAll grants or revokes operator rights over all of the sender's tokens.
func (n *NFT) SetApprovalForAll(tx *chain.Tx, operator chain.Address, approved bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if operator.IsZero() || operator == tx.Sender {
		return chain.Errorf(chain.ErrInvalidAddress, "invalid operator %s", operator)
	}
	ops := n.operators[tx.Sender]
	if ops == nil {
		ops = make(map[chain.Address]bool)
		n.operators[tx.Sender] = ops
	}
	ops[operator] = approved
	tx.Emit(n.addr, "ApprovalForAll", tx.Sender, operator, approved)
	return nil
}

// IsApprovedForAll reports operator rights.
func (n *NFT) IsApprovedForAll(owner, operator chain.Address) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.operators[owner][operator]
}

// SafeTransferFrom moves id from from to to on behalf of tx.Sender.
func (n *NFT) SafeTransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	owner, ok := n.owners[id]
	if !ok {
		return chain.Errorf(chain.ErrTokenNotFound, "%s #%d does not exist", n.name, id)
	}
	if owner != from {
		return chain.Errorf(chain.ErrNotTokenOwner, "%s does not own %s #%d", from, n.name, id)
	}
	if err := checkRecipient(to); err != nil {
		return err
	}
	sender := tx.Sender
	if sender != owner && n.approved[id] != sender && !n.operators[owner][sender] {
		return chain.Errorf(chain.ErrNotAuthorized, "%s is not approved for %s #%d", sender, n.name, id)
	}

	delete(n.approved, id)
	n.balances[from]--
	n.balances[to]++
	n.owners[id] = to
	tx.Emit(n.addr, "Transfer", from, to, id)
	return nil
}
