package vault

import (
	"sort"

	"github.com/roach88/guardvault/internal/chain"
)

// Policy governs third-party access to a vault.
//
// List entries override the flags in both directions: an address listed
// false is denied even under AllowAll, an address listed true is permitted
// without it. AllowWithConfirmation lets unlisted addresses ask the owner
// for a true entry via RequestAccess.
type Policy struct {
	AllowAll              bool
	AllowWithConfirmation bool
	List                  map[chain.Address]bool
}

// IsPermitted reports whether caller may deposit into or withdraw from a
// vault owned by owner.
func IsPermitted(p Policy, owner, caller chain.Address) bool {
	if caller == owner {
		return true
	}
	if allowed, listed := p.List[caller]; listed {
		return allowed
	}
	return p.AllowAll
}

// NewPolicy builds a Policy from parallel address and status lists.
func NewPolicy(allowAll, allowWithConfirmation bool, allowList []chain.Address, allowListStatus []bool) (Policy, error) {
	if len(allowList) != len(allowListStatus) {
		return Policy{}, chain.Errorf(chain.ErrInvalidPolicy,
			"allow list has %d addresses but %d statuses", len(allowList), len(allowListStatus))
	}
	p := Policy{AllowAll: allowAll, AllowWithConfirmation: allowWithConfirmation}
	if len(allowList) > 0 {
		p.List = make(map[chain.Address]bool, len(allowList))
	}
	for i, addr := range allowList {
		if addr.IsZero() {
			return Policy{}, chain.Errorf(chain.ErrInvalidPolicy, "allow list entry %d is the zero address", i)
		}
		p.List[addr] = allowListStatus[i]
	}
	return p, nil
}

func (p Policy) clone() Policy {
	out := Policy{AllowAll: p.AllowAll, AllowWithConfirmation: p.AllowWithConfirmation}
	if len(p.List) > 0 {
		out.List = make(map[chain.Address]bool, len(p.List))
		for k, v := range p.List {
			out.List[k] = v
		}
	}
	return out
}

// Listed returns the list entries in address order.
func (p Policy) Listed() []chain.Address {
	out := make([]chain.Address, 0, len(p.List))
	for a := range p.List {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
