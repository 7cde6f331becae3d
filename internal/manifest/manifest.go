// Package manifest loads CUE deployment manifests.
//
// A manifest names the deployer, the protector collection, its vault, the
// optional registry and the asset contracts available for custody, plus
// the genesis state they start from:
//
//	deployment: {
//		deployer: "deployer"
//		protector: {name: "Everdragons2Protector", admin: "deployer"}
//		vault: name: "Protected"
//		registry: {}
//		assets: [{address: "particle", name: "Particle", kind: "nft"}]
//	}
//
// The source is unified with an embedded schema and must be concrete.
// Build turns a manifest into an engine.World; rebuilding from the same
// source always yields the same genesis state, which is what lets the
// journal be replayed on top of it. Hash fingerprints the source and is
// stamped on every journaled invocation.
package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/guardvault/internal/ir"
)

//go:embed schema.cue
var schemaSource []byte

// Default addresses used when a manifest leaves them out.
const (
	DefaultProtectorAddress = "protector"
	DefaultVaultAddress     = "vault"
	DefaultRegistryAddress  = "registry"
)

// Manifest is a decoded deployment together with its source fingerprint.
type Manifest struct {
	Path       string
	Hash       string
	Deployment Deployment
}

// Deployment mirrors the #Deployment schema.
type Deployment struct {
	Deployer    string        `json:"deployer"`
	GenesisTime int64         `json:"genesis_time,omitempty"`
	Protector   ProtectorSpec `json:"protector"`
	Vault       VaultSpec     `json:"vault"`
	Registry    *RegistrySpec `json:"registry,omitempty"`
	Assets      []AssetSpec   `json:"assets,omitempty"`
}

// ProtectorSpec deploys the protector collection. A non-empty Admin
// initializes the collection at genesis; Mints then run as that admin.
type ProtectorSpec struct {
	Address string          `json:"address,omitempty"`
	Name    string          `json:"name"`
	Admin   string          `json:"admin,omitempty"`
	Mints   []ProtectorMint `json:"mints,omitempty"`
}

type ProtectorMint struct {
	To string `json:"to"`
	ID uint64 `json:"id"`
}

type VaultSpec struct {
	Address string `json:"address,omitempty"`
	Name    string `json:"name"`
}

// RegistrySpec deploys the registry. Owner defaults to the deployer and
// RegisterVault to true.
type RegistrySpec struct {
	Address       string `json:"address,omitempty"`
	Owner         string `json:"owner,omitempty"`
	RegisterVault *bool  `json:"register_vault,omitempty"`
}

// AssetSpec deploys one asset contract. Minter defaults to the deployer.
// Register records the kind in the registry and defaults to true.
type AssetSpec struct {
	Address  string      `json:"address"`
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Minter   string      `json:"minter,omitempty"`
	Register *bool       `json:"register,omitempty"`
	Mints    []AssetMint `json:"mints,omitempty"`
}

type AssetMint struct {
	To     string `json:"to"`
	ID     uint64 `json:"id,omitempty"`
	Amount uint64 `json:"amount,omitempty"`
}

// Error is a manifest problem with its source position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest load failed (%s): %w", path, err)
	}
	return Parse(path, src)
}

// Parse compiles src, checks it against the schema and decodes it.
func Parse(filename string, src []byte) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	dv := v.LookupPath(cue.ParsePath("deployment"))
	if !dv.Exists() {
		return nil, &Error{Field: "deployment", Message: "deployment is required", Pos: v.Pos()}
	}

	unified := schema.LookupPath(cue.ParsePath("#Deployment")).Unify(dv)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var d Deployment
	if err := unified.Decode(&d); err != nil {
		return nil, formatCUEError(err)
	}
	applyDefaults(&d)
	if err := check(&d); err != nil {
		return nil, err
	}

	return &Manifest{
		Path:       filename,
		Hash:       ir.ManifestHash(src),
		Deployment: d,
	}, nil
}

func applyDefaults(d *Deployment) {
	if d.Protector.Address == "" {
		d.Protector.Address = DefaultProtectorAddress
	}
	if d.Vault.Address == "" {
		d.Vault.Address = DefaultVaultAddress
	}
	if r := d.Registry; r != nil {
		if r.Address == "" {
			r.Address = DefaultRegistryAddress
		}
		if r.Owner == "" {
			r.Owner = d.Deployer
		}
		if r.RegisterVault == nil {
			r.RegisterVault = boolPtr(true)
		}
	}
	for i := range d.Assets {
		a := &d.Assets[i]
		if a.Minter == "" {
			a.Minter = d.Deployer
		}
		if a.Register == nil {
			a.Register = boolPtr(true)
		}
	}
}

// check covers the cross-field rules the schema cannot express.
func check(d *Deployment) error {
	if len(d.Protector.Mints) > 0 && d.Protector.Admin == "" {
		return &Error{Field: "protector.mints", Message: "minting at genesis requires protector.admin"}
	}

	seen := map[string]string{
		d.Protector.Address: "protector",
	}
	claim := func(addr, what string) error {
		if prev, ok := seen[addr]; ok {
			return &Error{Field: what + ".address", Message: fmt.Sprintf("address %q already used by %s", addr, prev)}
		}
		seen[addr] = what
		return nil
	}
	if err := claim(d.Vault.Address, "vault"); err != nil {
		return err
	}
	if d.Registry != nil {
		if err := claim(d.Registry.Address, "registry"); err != nil {
			return err
		}
	}
	for i, a := range d.Assets {
		field := fmt.Sprintf("assets[%d]", i)
		if err := claim(a.Address, field); err != nil {
			return err
		}
		for j, m := range a.Mints {
			mf := fmt.Sprintf("%s.mints[%d]", field, j)
			switch a.Kind {
			case "nft":
				if m.Amount != 0 {
					return &Error{Field: mf, Message: "nft mints take an id, not an amount"}
				}
			case "ft":
				if m.Amount == 0 || m.ID != 0 {
					return &Error{Field: mf, Message: "ft mints take an amount and no id"}
				}
			case "multi":
				if m.Amount == 0 {
					return &Error{Field: mf, Message: "multi mints take an id and an amount"}
				}
			}
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Field: "cue", Message: first.Error()}
}
