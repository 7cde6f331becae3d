package asset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/guardvault/internal/chain"
)

// Book indexes deployed asset contracts by address.
type Book struct {
	mu        sync.RWMutex
	contracts map[chain.Address]Contract
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{contracts: make(map[chain.Address]Contract)}
}

// Add registers c. Addresses are unique.
func (b *Book) Add(c Contract) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.contracts[c.Address()]; ok {
		return fmt.Errorf("asset contract %s already deployed", c.Address())
	}
	b.contracts[c.Address()] = c
	return nil
}

// Get returns the contract at addr.
func (b *Book) Get(addr chain.Address) (Contract, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.contracts[addr]
	return c, ok
}

// Addresses lists every deployed contract in sorted order.
func (b *Book) Addresses() []chain.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]chain.Address, 0, len(b.contracts))
	for a := range b.contracts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
