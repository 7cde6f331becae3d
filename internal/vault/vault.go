package vault

import (
	"sync"

	"github.com/roach88/guardvault/internal/asset"
	"github.com/roach88/guardvault/internal/chain"
)

// Owners is the protector collection a vault is bound to.
type Owners interface {
	Address() chain.Address
	OwnerOf(id chain.TokenID) (chain.Address, error)
	Tenure(id chain.TokenID) (chain.Address, uint64, error)
}

// Registry is the trust collaborator consulted before deposits.
type Registry interface {
	IsProtected(vault chain.Address) bool
	KindOf(contract chain.Address) (asset.Kind, bool)
}

// Resolver finds deployed asset contracts by address.
type Resolver interface {
	Get(addr chain.Address) (asset.Contract, bool)
}

// Vault is the custody contract for one protector collection.
type Vault struct {
	mu sync.Mutex

	addr      chain.Address
	name      string
	protector Owners
	registry  Registry
	assets    Resolver

	ledger ledger
	grants map[chain.TokenID]*grant
}

// New deploys a vault at addr bound to protector. registry may be nil, in
// which case deposits skip the trust check.
func New(addr chain.Address, name string, protector Owners, registry Registry, assets Resolver) *Vault {
	return &Vault{
		addr:      addr,
		name:      name,
		protector: protector,
		registry:  registry,
		assets:    assets,
		ledger:    make(ledger),
		grants:    make(map[chain.TokenID]*grant),
	}
}

func (v *Vault) Address() chain.Address   { return v.addr }
func (v *Vault) Name() string             { return v.name }
func (v *Vault) Protector() chain.Address { return v.protector.Address() }

// OwnerOf returns the owner of vault id, which is always the owner of
// protector token id.
func (v *Vault) OwnerOf(id chain.TokenID) (chain.Address, error) {
	return v.protector.OwnerOf(id)
}

// TransferFrom always fails: the vault token follows its protector.
func (v *Vault) TransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID) error {
	return chain.Errorf(chain.ErrSubordinateTransferForbidden, "%s #%d moves with its protector", v.name, id)
}

// SafeTransferFrom always fails.
func (v *Vault) SafeTransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID) error {
	return v.TransferFrom(tx, from, to, id)
}

// Approve always fails.
func (v *Vault) Approve(tx *chain.Tx, to chain.Address, id chain.TokenID) error {
	return chain.Errorf(chain.ErrSubordinateTransferForbidden, "%s #%d cannot be approved", v.name, id)
}

// SetApprovalForAll always fails.
func (v *Vault) SetApprovalForAll(tx *chain.Tx, operator chain.Address, approved bool) error {
	return chain.Errorf(chain.ErrSubordinateTransferForbidden, "%s tokens cannot be approved", v.name)
}

// OwnedAssetAmount returns what vault id holds of contract/assetID. It
// returns 0 for anything untracked.
func (v *Vault) OwnedAssetAmount(id chain.TokenID, contract chain.Address, assetID chain.TokenID) chain.Amount {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.amount(id, Key{Contract: contract, ID: assetID})
}

// Holdings lists every ledger entry of vault id.
func (v *Vault) Holdings(id chain.TokenID) []Holding {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.holdings(id)
}

// PolicyOf returns a copy of the access policy in force for vault id. A
// policy configured by a previous owner reads as the empty policy.
func (v *Vault) PolicyOf(id chain.TokenID) Policy {
	v.mu.Lock()
	defer v.mu.Unlock()
	owner, tenure, err := v.protector.Tenure(id)
	if err != nil {
		return Policy{}
	}
	return v.grantFor(id, owner, tenure).policy.clone()
}

// HasRequested reports an outstanding access request to the current owner.
func (v *Vault) HasRequested(id chain.TokenID, requester chain.Address) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	owner, tenure, err := v.protector.Tenure(id)
	if err != nil {
		return false
	}
	return v.grantFor(id, owner, tenure).requests[requester]
}

// authorize resolves the vault owner and checks the caller against policy.
func (v *Vault) authorize(tx *chain.Tx, id chain.TokenID, deposit bool) (chain.Address, error) {
	owner, tenure, err := v.protector.Tenure(id)
	if err != nil {
		return chain.ZeroAddress, err
	}
	if deposit && v.registry != nil && !v.registry.IsProtected(v.addr) {
		return chain.ZeroAddress, chain.Errorf(chain.ErrVaultNotRegistered, "%s is not registered as protected", v.addr)
	}
	if !IsPermitted(v.grantFor(id, owner, tenure).policy, owner, tx.Sender) {
		return chain.ZeroAddress, chain.Errorf(chain.ErrAccessDenied, "%s may not use %s #%d", tx.Sender, v.name, id).
			With("owner", owner.String())
	}
	return owner, nil
}

// kindOf prefers the registry's record and falls back to probing.
func (v *Vault) kindOf(contract chain.Address) (asset.Contract, asset.Kind, error) {
	c, ok := v.assets.Get(contract)
	if !ok {
		return nil, asset.KindUnknown, chain.Errorf(chain.ErrUnsupportedAsset, "no asset contract at %s", contract)
	}
	kind := asset.KindUnknown
	if v.registry != nil {
		kind, _ = v.registry.KindOf(contract)
	}
	if kind == asset.KindUnknown {
		kind = asset.Detect(c)
	}
	if !implements(c, kind) {
		return nil, asset.KindUnknown, chain.Errorf(chain.ErrUnsupportedAsset, "%s does not implement %s", contract, kind)
	}
	return c, kind, nil
}

func implements(c asset.Contract, kind asset.Kind) bool {
	switch kind {
	case asset.KindNFT:
		_, ok := c.(asset.NonFungible)
		return ok
	case asset.KindFungible:
		_, ok := c.(asset.Fungible)
		return ok
	case asset.KindMulti:
		_, ok := c.(asset.MultiToken)
		return ok
	default:
		return false
	}
}

func pullFailed(err error, contract chain.Address) error {
	return chain.Wrap(chain.ErrAssetTransferFailed, err, "asset transfer failed").With("asset", contract.String())
}
