package protector

import (
	"sort"

	"github.com/roach88/guardvault/internal/abi"
)

// Implementation is a versioned body of protector logic.
//
// ID fingerprints the interface the implementation serves. UpgradeTo only
// activates implementations whose ID equals InterfaceID.
type Implementation interface {
	Name() string
	Version() string
	ID() abi.ID
}

// GuardedTransferSignatures is the external surface every implementation
// must expose.
var GuardedTransferSignatures = []string{
	"setInitiator(address)",
	"confirmInitiator(address)",
	"revokeInitiator(address)",
	"startTransfer(uint256,address,uint256)",
	"completeTransfer(uint256)",
	"cancelTransfer(uint256)",
	"upgradeTo(address)",
	"version()",
}

// InterfaceID is the fingerprint of GuardedTransferSignatures.
var InterfaceID = abi.InterfaceID(GuardedTransferSignatures...)

type implementation struct {
	name       string
	version    string
	signatures []string
}

func (i implementation) Name() string    { return i.name }
func (i implementation) Version() string { return i.version }
func (i implementation) ID() abi.ID      { return abi.InterfaceID(i.signatures...) }

var (
	// V1 is the implementation every protector starts with.
	V1 Implementation = implementation{name: "v1", version: "1.0.0", signatures: GuardedTransferSignatures}

	// V2 serves the same interface under a new version.
	V2 Implementation = implementation{name: "v2", version: "2.0.0", signatures: GuardedTransferSignatures}
)

var catalog = map[string]Implementation{
	V1.Name(): V1,
	V2.Name(): V2,
}

// LookupImplementation returns a catalogued implementation by name.
func LookupImplementation(name string) (Implementation, bool) {
	impl, ok := catalog[name]
	return impl, ok
}

// Implementations lists catalogued implementation names.
func Implementations() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
