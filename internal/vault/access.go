package vault

import "github.com/roach88/guardvault/internal/chain"

// grant is the access state one owner configured for a vault. It lapses
// when the protector token changes hands: the new owner starts with the
// empty policy and no outstanding requests, and so does a former owner who
// gets the token back.
type grant struct {
	owner    chain.Address
	tenure   uint64
	policy   Policy
	requests map[chain.Address]bool
}

// grantFor returns the grant of vault id made during the given tenure. A
// grant left from an earlier tenure is dropped and an empty one returned.
// Caller holds v.mu.
func (v *Vault) grantFor(id chain.TokenID, owner chain.Address, tenure uint64) *grant {
	g, ok := v.grants[id]
	if ok && g.owner == owner && g.tenure == tenure {
		return g
	}
	if ok {
		delete(v.grants, id)
	}
	return &grant{owner: owner, tenure: tenure}
}

// Configure replaces the access policy of vault id. Outstanding access
// requests are dropped. Only the vault owner may configure, and the owner
// cannot appear in the list.
func (v *Vault) Configure(tx *chain.Tx, id chain.TokenID, p Policy) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, tenure, err := v.protector.Tenure(id)
	if err != nil {
		return err
	}
	if tx.Sender != owner {
		return chain.Errorf(chain.ErrNotTokenOwner, "%s does not own %s #%d", tx.Sender, v.name, id)
	}
	for addr := range p.List {
		if addr.IsZero() {
			return chain.Errorf(chain.ErrInvalidPolicy, "allow list contains the zero address")
		}
		if addr == owner {
			return chain.Errorf(chain.ErrInvalidPolicy, "allow list contains the owner %s", owner)
		}
	}
	v.grants[id] = &grant{owner: owner, tenure: tenure, policy: p.clone()}
	tx.Emit(v.addr, "PolicyConfigured", id, p.AllowAll, p.AllowWithConfirmation)
	return nil
}

// RequestAccess asks the owner of vault id to list the caller. Requests are
// only accepted while the policy has AllowWithConfirmation set.
func (v *Vault) RequestAccess(tx *chain.Tx, id chain.TokenID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, tenure, err := v.protector.Tenure(id)
	if err != nil {
		return err
	}
	g := v.grantFor(id, owner, tenure)
	if !g.policy.AllowWithConfirmation {
		return chain.Errorf(chain.ErrAccessDenied, "%s #%d does not accept access requests", v.name, id)
	}
	if tx.Sender == owner {
		return chain.Errorf(chain.ErrInvalidAddress, "the owner needs no access grant")
	}
	if allowed, listed := g.policy.List[tx.Sender]; listed && !allowed {
		return chain.Errorf(chain.ErrAccessDenied, "%s is denied on %s #%d", tx.Sender, v.name, id)
	}
	if g.requests == nil {
		g.requests = make(map[chain.Address]bool)
	}
	g.requests[tx.Sender] = true
	tx.Emit(v.addr, "AccessRequested", id, tx.Sender)
	return nil
}

// ConfirmAccess grants requester access to vault id. Only the owner may
// confirm, and only an outstanding request made to that owner.
func (v *Vault) ConfirmAccess(tx *chain.Tx, id chain.TokenID, requester chain.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, tenure, err := v.protector.Tenure(id)
	if err != nil {
		return err
	}
	if tx.Sender != owner {
		return chain.Errorf(chain.ErrNotTokenOwner, "%s does not own %s #%d", tx.Sender, v.name, id)
	}
	g := v.grantFor(id, owner, tenure)
	if !g.requests[requester] {
		return chain.Errorf(chain.ErrNoPendingAccessRequest, "%s has not requested access to %s #%d", requester, v.name, id)
	}
	if g.policy.List == nil {
		g.policy.List = make(map[chain.Address]bool)
	}
	g.policy.List[requester] = true
	delete(g.requests, requester)
	tx.Emit(v.addr, "AccessConfirmed", id, requester)
	return nil
}
