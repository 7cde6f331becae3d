package vault

import (
	"math"
	"sort"

	"github.com/roach88/guardvault/internal/chain"
)

// FungibleID is the asset id under which fungible balances are recorded.
const FungibleID chain.TokenID = 0

// Key identifies one ledger entry within a vault.
type Key struct {
	Contract chain.Address
	ID       chain.TokenID
}

// Holding is a ledger entry with a positive amount.
type Holding struct {
	Contract chain.Address
	ID       chain.TokenID
	Amount   chain.Amount
}

// ledger maps vault id to held amounts. Callers hold the vault lock.
type ledger map[chain.TokenID]map[Key]chain.Amount

func (l ledger) amount(vaultID chain.TokenID, k Key) chain.Amount {
	return l[vaultID][k]
}

func (l ledger) canCredit(vaultID chain.TokenID, k Key, n chain.Amount) bool {
	cur := uint64(l[vaultID][k])
	return uint64(n) <= math.MaxInt64-cur
}

func (l ledger) credit(vaultID chain.TokenID, k Key, n chain.Amount) {
	entries := l[vaultID]
	if entries == nil {
		entries = make(map[Key]chain.Amount)
		l[vaultID] = entries
	}
	entries[k] += n
}

// debit assumes amount(vaultID, k) >= n.
func (l ledger) debit(vaultID chain.TokenID, k Key, n chain.Amount) {
	entries := l[vaultID]
	entries[k] -= n
	if entries[k] == 0 {
		delete(entries, k)
	}
	if len(entries) == 0 {
		delete(l, vaultID)
	}
}

func (l ledger) holdings(vaultID chain.TokenID) []Holding {
	entries := l[vaultID]
	out := make([]Holding, 0, len(entries))
	for k, n := range entries {
		out = append(out, Holding{Contract: k.Contract, ID: k.ID, Amount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Contract != out[j].Contract {
			return out[i].Contract < out[j].Contract
		}
		return out[i].ID < out[j].ID
	})
	return out
}
