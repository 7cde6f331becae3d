package engine

import (
	"github.com/roach88/guardvault/internal/asset"
	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/protector"
	"github.com/roach88/guardvault/internal/vault"
)

// World is the set of deployed contracts the engine drives.
// Registry may be nil, in which case vault registration is not enforced.
type World struct {
	Protector *protector.Protector
	Vault     *vault.Vault
	Registry  *asset.Registry
	Assets    *asset.Book
}

// Contract resolves a deployed address to its name for logs and traces.
func (w *World) Contract(addr chain.Address) (string, bool) {
	switch {
	case w.Protector != nil && addr == w.Protector.Address():
		return w.Protector.Name(), true
	case w.Vault != nil && addr == w.Vault.Address():
		return w.Vault.Name(), true
	case w.Registry != nil && addr == w.Registry.Address():
		return "registry", true
	}
	if w.Assets == nil {
		return "", false
	}
	c, ok := w.Assets.Get(addr)
	if !ok {
		return "", false
	}
	if n, ok := c.(interface{ Name() string }); ok {
		return n.Name(), true
	}
	return string(addr), true
}
