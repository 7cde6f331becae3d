package asset

import (
	"math"
	"sync"

	"github.com/roach88/guardvault/internal/abi"
	"github.com/roach88/guardvault/internal/chain"
)

type multiKey struct {
	owner chain.Address
	id    chain.TokenID
}

// Multi is an in-memory ERC-1155 style multi-unit token.
type Multi struct {
	mu        sync.Mutex
	addr      chain.Address
	name      string
	minter    chain.Address
	balances  map[multiKey]chain.Amount
	operators map[chain.Address]map[chain.Address]bool
}

// NewMulti deploys a multi-unit token at addr. Only minter may mint.
func NewMulti(addr chain.Address, name string, minter chain.Address) *Multi {
	return &Multi{
		addr:      addr,
		name:      name,
		minter:    minter,
		balances:  make(map[multiKey]chain.Amount),
		operators: make(map[chain.Address]map[chain.Address]bool),
	}
}

func (m *Multi) Address() chain.Address { return m.addr }
func (m *Multi) Name() string           { return m.name }

// SupportsInterface reports ERC-165 and ERC-1155.
func (m *Multi) SupportsInterface(id abi.ID) bool {
	return id == abi.ERC165 || id == abi.ERC1155
}

// Mint credits amount units of id to to.
func (m *Multi) Mint(tx *chain.Tx, to chain.Address, id chain.TokenID, amount chain.Amount) error {
	return m.MintBatch(tx, to, []chain.TokenID{id}, []chain.Amount{amount})
}

// MintBatch credits several ids at once. ids and amounts must line up.
func (m *Multi) MintBatch(tx *chain.Tx, to chain.Address, ids []chain.TokenID, amounts []chain.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.Sender != m.minter {
		return chain.Errorf(chain.ErrNotAuthorized, "%s is not the minter of %s", tx.Sender, m.name)
	}
	if err := checkRecipient(to); err != nil {
		return err
	}
	if len(ids) != len(amounts) {
		return chain.Errorf(chain.ErrInvalidAmount, "%d ids but %d amounts", len(ids), len(amounts))
	}
	for i, id := range ids {
		if amounts[i] > math.MaxInt64-m.balances[multiKey{to, id}] {
			return chain.Errorf(chain.ErrAmountOverflow, "%s #%d balance overflow", m.name, id)
		}
	}
	for i, id := range ids {
		m.balances[multiKey{to, id}] += amounts[i]
		tx.Emit(m.addr, "TransferSingle", tx.Sender, chain.ZeroAddress, to, id, amounts[i])
	}
	return nil
}

// BalanceOf returns owner's units of id.
func (m *Multi) BalanceOf(owner chain.Address, id chain.TokenID) chain.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[multiKey{owner, id}]
}

// SetApprovalForAll grants or revokes operator rights over the sender's units.
func (m *Multi) SetApprovalForAll(tx *chain.Tx, operator chain.Address, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if operator.IsZero() || operator == tx.Sender {
		return chain.Errorf(chain.ErrInvalidAddress, "invalid operator %s", operator)
	}
	ops := m.operators[tx.Sender]
	if ops == nil {
		ops = make(map[chain.Address]bool)
		m.operators[tx.Sender] = ops
	}
	ops[operator] = approved
	tx.Emit(m.addr, "ApprovalForAll", tx.Sender, operator, approved)
	return nil
}

// IsApprovedForAll reports operator rights.
func (m *Multi) IsApprovedForAll(owner, operator chain.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operators[owner][operator]
}

// SafeTransferFrom moves amount units of id on behalf of tx.Sender.
func (m *Multi) SafeTransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID, amount chain.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.Sender != from && !m.operators[from][tx.Sender] {
		return chain.Errorf(chain.ErrNotAuthorized, "%s is not an operator for %s on %s", tx.Sender, from, m.name)
	}
	if err := checkRecipient(to); err != nil {
		return err
	}
	src := multiKey{from, id}
	if m.balances[src] < amount {
		return chain.Errorf(chain.ErrInsufficientBalance,
			"%s #%d balance of %s is %d, need %d", m.name, id, from, m.balances[src], amount)
	}
	m.balances[src] -= amount
	m.balances[multiKey{to, id}] += amount
	tx.Emit(m.addr, "TransferSingle", tx.Sender, from, to, id, amount)
	return nil
}
