package asset

import (
	"sync"

	"github.com/roach88/guardvault/internal/chain"
)

// Registry is the trust anchor consulted by vaults. It records which vault
// contracts are protected and, optionally, the kind of whitelisted asset
// contracts.
type Registry struct {
	mu        sync.Mutex
	addr      chain.Address
	owner     chain.Address
	protected map[chain.Address]bool
	kinds     map[chain.Address]Kind
}

// NewRegistry deploys a registry at addr administered by owner.
func NewRegistry(addr, owner chain.Address) *Registry {
	return &Registry{
		addr:      addr,
		owner:     owner,
		protected: make(map[chain.Address]bool),
		kinds:     make(map[chain.Address]Kind),
	}
}

func (r *Registry) Address() chain.Address { return r.addr }

// RegisterProtected trusts vault. Registration happens once per vault.
func (r *Registry) RegisterProtected(tx *chain.Tx, vault chain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.Sender != r.owner {
		return chain.Errorf(chain.ErrNotAuthorized, "%s does not administer the registry", tx.Sender)
	}
	if vault.IsZero() {
		return chain.Errorf(chain.ErrInvalidAddress, "cannot register the zero address")
	}
	if r.protected[vault] {
		return chain.Errorf(chain.ErrAlreadyRegistered, "vault %s already registered", vault)
	}
	r.protected[vault] = true
	tx.Emit(r.addr, "ProtectedRegistered", vault)
	return nil
}

// IsProtected reports whether vault was registered.
func (r *Registry) IsProtected(vault chain.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.protected[vault]
}

// RegisterAsset records the kind of an asset contract.
func (r *Registry) RegisterAsset(tx *chain.Tx, contract chain.Address, kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.Sender != r.owner {
		return chain.Errorf(chain.ErrNotAuthorized, "%s does not administer the registry", tx.Sender)
	}
	if kind == KindUnknown {
		return chain.Errorf(chain.ErrUnsupportedAsset, "cannot register %s with an unknown kind", contract)
	}
	r.kinds[contract] = kind
	tx.Emit(r.addr, "AssetRegistered", contract, kind.String())
	return nil
}

// KindOf returns the registered kind of contract.
func (r *Registry) KindOf(contract chain.Address) (Kind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.kinds[contract]
	return k, ok
}
