package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/manifest"
)

// ValidationError is one problem found in a manifest.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool               `json:"valid"`
	Errors     []ValidationError  `json:"errors,omitempty"`
	Deployment *DeploymentSummary `json:"deployment,omitempty"`
}

// DeploymentSummary describes the world a manifest deploys.
type DeploymentSummary struct {
	Manifest  string            `json:"manifest"`
	Hash      string            `json:"hash"`
	Deployer  string            `json:"deployer"`
	Genesis   int64             `json:"genesis_time"`
	Protector ContractSummary   `json:"protector"`
	Vault     ContractSummary   `json:"vault"`
	Registry  string            `json:"registry,omitempty"`
	Assets    []ContractSummary `json:"assets,omitempty"`
}

// ContractSummary is one deployed contract.
type ContractSummary struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind,omitempty"`
	Version string   `json:"version,omitempty"`
	Admin   string   `json:"admin,omitempty"`
	Tokens  []uint64 `json:"tokens,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Validate a deployment manifest",
		Long: `Validate a CUE deployment manifest and deploy it in memory.

Checks the manifest against the deployment schema and the cross-field
rules, then builds the world to catch genesis mints that cannot apply.
Without an argument the manifest from the config file is used.

Exit codes:
  0 - Manifest is valid
  1 - Manifest is invalid or cannot be deployed
  2 - Command error (manifest not found, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, rootOpts.manifestPath(path), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	formatter.VerboseLog("Validating %s", path)

	m, err := manifest.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("manifest not found: %s", path), nil)
			return WrapExitError(ExitCommandError, "manifest not found", err)
		}
		return outputValidationErrors(formatter, []ValidationError{toValidationError(err, ErrCodeManifest)})
	}

	w, err := m.Build()
	if err != nil {
		return outputValidationErrors(formatter, []ValidationError{toValidationError(err, ErrCodeDeploy)})
	}

	summary := summarize(m, w)
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Deployment: summary})
	}
	outputSummaryText(formatter, summary)
	return nil
}

func toValidationError(err error, code string) ValidationError {
	var merr *manifest.Error
	if errors.As(err, &merr) {
		ve := ValidationError{Field: merr.Field, Message: merr.Message, Code: code}
		if merr.Pos.IsValid() {
			ve.Line = merr.Pos.Line()
		}
		return ve
	}
	return ValidationError{Field: "manifest", Message: err.Error(), Code: code}
}

func summarize(m *manifest.Manifest, w *engine.World) *DeploymentSummary {
	d := m.Deployment
	s := &DeploymentSummary{
		Manifest: m.Path,
		Hash:     m.Hash,
		Deployer: d.Deployer,
		Genesis:  d.GenesisTime,
		Protector: ContractSummary{
			Address: w.Protector.Address().String(),
			Name:    w.Protector.Name(),
			Version: w.Protector.Version(),
		},
		Vault: ContractSummary{
			Address: w.Vault.Address().String(),
			Name:    w.Vault.Name(),
		},
	}
	if admin := w.Protector.Admin(); !admin.IsZero() {
		s.Protector.Admin = admin.String()
	}
	for _, mint := range d.Protector.Mints {
		s.Protector.Tokens = append(s.Protector.Tokens, mint.ID)
	}
	sort.Slice(s.Protector.Tokens, func(i, j int) bool { return s.Protector.Tokens[i] < s.Protector.Tokens[j] })
	if w.Registry != nil {
		s.Registry = w.Registry.Address().String()
	}
	for _, a := range d.Assets {
		s.Assets = append(s.Assets, ContractSummary{
			Address: chain.MustAddress(a.Address).String(),
			Name:    a.Name,
			Kind:    a.Kind,
		})
	}
	return s
}

func outputSummaryText(f *OutputFormatter, s *DeploymentSummary) {
	w := f.Writer
	fmt.Fprintf(w, "✓ %s is valid\n", s.Manifest)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Deployer:  %s (genesis %d)\n", s.Deployer, s.Genesis)
	fmt.Fprintf(w, "  Protector: %s at %s, version %s\n", s.Protector.Name, s.Protector.Address, s.Protector.Version)
	if s.Protector.Admin != "" {
		fmt.Fprintf(w, "             admin %s, %d token(s) minted\n", s.Protector.Admin, len(s.Protector.Tokens))
	} else {
		fmt.Fprintln(w, "             not initialized")
	}
	fmt.Fprintf(w, "  Vault:     %s at %s\n", s.Vault.Name, s.Vault.Address)
	if s.Registry != "" {
		fmt.Fprintf(w, "  Registry:  %s\n", s.Registry)
	}
	for _, a := range s.Assets {
		fmt.Fprintf(w, "  Asset:     %s (%s) at %s\n", a.Name, a.Kind, a.Address)
	}
	if f.Verbose {
		fmt.Fprintf(w, "  Hash:      %s\n", s.Hash)
	}
}

// outputValidationErrors outputs validation errors. Validation failures
// exit with code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	message := fmt.Sprintf("validation failed with %d error(s)", len(errs))
	if formatter.JSON() {
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, message)
}
