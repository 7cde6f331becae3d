package asset

import (
	"math"
	"sync"

	"github.com/roach88/guardvault/internal/chain"
)

// Token is an in-memory ERC-20 style fungible token.
type Token struct {
	mu         sync.Mutex
	addr       chain.Address
	name       string
	minter     chain.Address
	supply     chain.Amount
	balances   map[chain.Address]chain.Amount
	allowances map[chain.Address]map[chain.Address]chain.Amount
}

// NewToken deploys a fungible token at addr. Only minter may mint.
func NewToken(addr chain.Address, name string, minter chain.Address) *Token {
	return &Token{
		addr:       addr,
		name:       name,
		minter:     minter,
		balances:   make(map[chain.Address]chain.Amount),
		allowances: make(map[chain.Address]map[chain.Address]chain.Amount),
	}
}

func (t *Token) Address() chain.Address { return t.addr }
func (t *Token) Name() string           { return t.name }

// TotalSupply returns the minted amount.
func (t *Token) TotalSupply() chain.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supply
}

// Mint credits amount to to.
func (t *Token) Mint(tx *chain.Tx, to chain.Address, amount chain.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tx.Sender != t.minter {
		return chain.Errorf(chain.ErrNotAuthorized, "%s is not the minter of %s", tx.Sender, t.name)
	}
	if err := checkRecipient(to); err != nil {
		return err
	}
	if amount > math.MaxInt64-t.supply {
		return chain.Errorf(chain.ErrAmountOverflow, "%s supply overflow", t.name)
	}
	t.supply += amount
	t.balances[to] += amount
	tx.Emit(t.addr, "Transfer", chain.ZeroAddress, to, amount)
	return nil
}

// BalanceOf returns owner's balance.
func (t *Token) BalanceOf(owner chain.Address) chain.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[owner]
}

// Allowance returns what spender may still pull from owner.
func (t *Token) Allowance(owner, spender chain.Address) chain.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender]
}

// Approve sets spender's allowance over the sender's balance.
func (t *Token) Approve(tx *chain.Tx, spender chain.Address, amount chain.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if spender.IsZero() {
		return chain.Errorf(chain.ErrInvalidAddress, "approve to the zero address")
	}
	a := t.allowances[tx.Sender]
	if a == nil {
		a = make(map[chain.Address]chain.Amount)
		t.allowances[tx.Sender] = a
	}
	a[spender] = amount
	tx.Emit(t.addr, "Approval", tx.Sender, spender, amount)
	return nil
}

// Transfer moves amount from the sender to to.
func (t *Token) Transfer(tx *chain.Tx, to chain.Address, amount chain.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(tx, tx.Sender, to, amount)
}

// TransferFrom moves amount from from to to against the sender's allowance.
func (t *Token) TransferFrom(tx *chain.Tx, from, to chain.Address, amount chain.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	spender := tx.Sender
	allowed := t.allowances[from][spender]
	if spender != from && allowed < amount {
		return chain.Errorf(chain.ErrInsufficientAllowance,
			"%s allowance of %s over %s is %d, need %d", t.name, spender, from, allowed, amount)
	}
	if err := t.move(tx, from, to, amount); err != nil {
		return err
	}
	if spender != from {
		t.allowances[from][spender] = allowed - amount
	}
	return nil
}

// move must be called with t.mu held.
func (t *Token) move(tx *chain.Tx, from, to chain.Address, amount chain.Amount) error {
	if err := checkRecipient(to); err != nil {
		return err
	}
	if t.balances[from] < amount {
		return chain.Errorf(chain.ErrInsufficientBalance,
			"%s balance of %s is %d, need %d", t.name, from, t.balances[from], amount)
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	tx.Emit(t.addr, "Transfer", from, to, amount)
	return nil
}
