package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/abi"
	"github.com/roach88/guardvault/internal/protector"
)

// FingerprintOptions holds flags for the fingerprint command.
type FingerprintOptions struct {
	*RootOptions
	Manifest string
}

// InterfaceView is a named interface id.
type InterfaceView struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Supported *bool  `json:"supported,omitempty"` // by the deployed protector
}

// ImplementationView is a catalogued protector implementation.
type ImplementationView struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	ID         string `json:"id"`
	Compatible bool   `json:"compatible"`
}

// FingerprintResult is the output of the fingerprint command.
type FingerprintResult struct {
	Interfaces      []InterfaceView      `json:"interfaces"`
	Implementations []ImplementationView `json:"implementations"`
	Manifest        string               `json:"manifest,omitempty"`
	ManifestHash    string               `json:"manifest_hash,omitempty"`
	Version         string               `json:"version,omitempty"`
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FingerprintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Show interface ids and protector implementations",
		Long: `Show the interface ids the protocol recognizes and the catalogued
protector implementations that upgradeTo accepts.

An implementation is compatible when its id equals the guarded-transfer
interface id. When the manifest can be loaded, the deployed protector's
version and supported interfaces are shown as well.

Examples:
  guardvault fingerprint
  guardvault fingerprint --manifest deploy.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "deployment manifest (default from config)")

	return cmd
}

func runFingerprint(opts *FingerprintOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	known := []struct {
		name string
		id   abi.ID
	}{
		{"ERC165", abi.ERC165},
		{"ERC721", abi.ERC721},
		{"ERC1155", abi.ERC1155},
		{"GuardedTransfer", protector.InterfaceID},
	}

	result := FingerprintResult{}
	for _, k := range known {
		result.Interfaces = append(result.Interfaces, InterfaceView{Name: k.name, ID: k.id.Hex()})
	}
	for _, name := range protector.Implementations() {
		impl, _ := protector.LookupImplementation(name)
		result.Implementations = append(result.Implementations, ImplementationView{
			Name:       impl.Name(),
			Version:    impl.Version(),
			ID:         impl.ID().Hex(),
			Compatible: impl.ID() == protector.InterfaceID,
		})
	}

	path := opts.manifestPath(opts.Manifest)
	m, world, err := loadManifest(path)
	switch {
	case err == nil:
		result.Manifest = m.Path
		result.ManifestHash = m.Hash
		result.Version = world.Protector.Version()
		for i, k := range known {
			supported := world.Protector.SupportsInterface(k.id)
			result.Interfaces[i].Supported = &supported
		}
	case cmd.Flags().Changed("manifest"):
		return err
	default:
		formatter.VerboseLog("No deployment loaded from %s: %v", path, err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputFingerprintText(formatter, result)
	return nil
}

func outputFingerprintText(f *OutputFormatter, r FingerprintResult) {
	w := f.Writer
	fmt.Fprintln(w, "=== Interfaces ===")
	for _, iv := range r.Interfaces {
		line := fmt.Sprintf("  %-16s %s", iv.Name, iv.ID)
		if iv.Supported != nil && *iv.Supported {
			line += "  (supported)"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Implementations ===")
	for _, impl := range r.Implementations {
		mark := "✓"
		if !impl.Compatible {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s %s %s\n", mark, impl.Name, impl.Version, impl.ID)
	}

	if r.Manifest != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Deployment ===")
		fmt.Fprintf(w, "  Manifest: %s\n", r.Manifest)
		fmt.Fprintf(w, "  Hash:     %s\n", r.ManifestHash)
		fmt.Fprintf(w, "  Version:  %s\n", r.Version)
	}
}
