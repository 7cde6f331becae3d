package manifest

import (
	"fmt"

	"github.com/roach88/guardvault/internal/asset"
	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/protector"
	"github.com/roach88/guardvault/internal/vault"
)

// Build deploys the manifest's contracts and applies its genesis state.
// Genesis signals are not journaled; each call returns a fresh World.
func (m *Manifest) Build() (*engine.World, error) {
	d := m.Deployment

	deployer, err := parseAddress("deployer", d.Deployer)
	if err != nil {
		return nil, err
	}
	genesis := chain.NewTx(deployer, d.GenesisTime)
	defer genesis.Discard()

	w := &engine.World{Assets: asset.NewBook()}

	pAddr, err := parseAddress("protector.address", d.Protector.Address)
	if err != nil {
		return nil, err
	}
	w.Protector = protector.New(pAddr, d.Protector.Name, deployer)

	for i, a := range d.Assets {
		c, err := deployAsset(a, genesis)
		if err != nil {
			return nil, fmt.Errorf("assets[%d]: %w", i, err)
		}
		if err := w.Assets.Add(c); err != nil {
			return nil, fmt.Errorf("assets[%d]: %w", i, err)
		}
	}

	// The vault takes its registry as an interface; a nil *asset.Registry
	// must not leak into it as a non-nil interface.
	var reg vault.Registry
	if d.Registry != nil {
		w.Registry, err = deployRegistry(d, genesis)
		if err != nil {
			return nil, err
		}
		reg = w.Registry
	}

	vAddr, err := parseAddress("vault.address", d.Vault.Address)
	if err != nil {
		return nil, err
	}
	w.Vault = vault.New(vAddr, d.Vault.Name, w.Protector, reg, w.Assets)

	if w.Registry != nil && *d.Registry.RegisterVault {
		owner := chain.MustAddress(d.Registry.Owner)
		if err := w.Registry.RegisterProtected(genesis.As(owner), vAddr); err != nil {
			return nil, fmt.Errorf("registry: register vault: %w", err)
		}
	}

	if err := initProtector(w.Protector, d.Protector, genesis); err != nil {
		return nil, err
	}
	return w, nil
}

func deployAsset(a AssetSpec, genesis *chain.Tx) (asset.Contract, error) {
	addr, err := parseAddress("address", a.Address)
	if err != nil {
		return nil, err
	}
	minter, err := parseAddress("minter", a.Minter)
	if err != nil {
		return nil, err
	}
	kind, err := asset.ParseKind(a.Kind)
	if err != nil {
		return nil, err
	}
	tx := genesis.As(minter)

	var c asset.Contract
	var mint func(to chain.Address, m AssetMint) error
	switch kind {
	case asset.KindNFT:
		nft := asset.NewNFT(addr, a.Name, minter)
		c = nft
		mint = func(to chain.Address, m AssetMint) error { return nft.Mint(tx, to, chain.TokenID(m.ID)) }
	case asset.KindFungible:
		tok := asset.NewToken(addr, a.Name, minter)
		c = tok
		mint = func(to chain.Address, m AssetMint) error { return tok.Mint(tx, to, chain.Amount(m.Amount)) }
	case asset.KindMulti:
		multi := asset.NewMulti(addr, a.Name, minter)
		c = multi
		mint = func(to chain.Address, m AssetMint) error {
			return multi.Mint(tx, to, chain.TokenID(m.ID), chain.Amount(m.Amount))
		}
	}

	for j, m := range a.Mints {
		to, err := parseAddress(fmt.Sprintf("mints[%d].to", j), m.To)
		if err != nil {
			return nil, err
		}
		if err := mint(to, m); err != nil {
			return nil, fmt.Errorf("mints[%d]: %w", j, err)
		}
	}
	return c, nil
}

func deployRegistry(d Deployment, genesis *chain.Tx) (*asset.Registry, error) {
	addr, err := parseAddress("registry.address", d.Registry.Address)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("registry.owner", d.Registry.Owner)
	if err != nil {
		return nil, err
	}
	reg := asset.NewRegistry(addr, owner)
	tx := genesis.As(owner)
	for i, a := range d.Assets {
		if !*a.Register {
			continue
		}
		kind, err := asset.ParseKind(a.Kind)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterAsset(tx, chain.MustAddress(a.Address), kind); err != nil {
			return nil, fmt.Errorf("registry: assets[%d]: %w", i, err)
		}
	}
	return reg, nil
}

func initProtector(p *protector.Protector, spec ProtectorSpec, genesis *chain.Tx) error {
	if spec.Admin == "" {
		return nil
	}
	admin, err := parseAddress("protector.admin", spec.Admin)
	if err != nil {
		return err
	}
	if err := p.Initialize(genesis, admin); err != nil {
		return fmt.Errorf("protector: %w", err)
	}
	tx := genesis.As(admin)
	for i, m := range spec.Mints {
		to, err := parseAddress(fmt.Sprintf("protector.mints[%d].to", i), m.To)
		if err != nil {
			return err
		}
		if err := p.Mint(tx, to, chain.TokenID(m.ID)); err != nil {
			return fmt.Errorf("protector.mints[%d]: %w", i, err)
		}
	}
	return nil
}

func parseAddress(field, s string) (chain.Address, error) {
	a, err := chain.ParseAddress(s)
	if err != nil {
		return "", &Error{Field: field, Message: err.Error()}
	}
	return a, nil
}
