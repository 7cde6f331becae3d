package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/ir"
)

// Scenario is a conformance test: a deployment, calls to make against it
// and what must hold afterwards.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Manifest is the CUE deployment to start from. Relative paths are
	// resolved against the scenario file's directory.
	Manifest string `yaml:"manifest"`

	// FlowToken is stamped on every call. Empty means "test-flow-default".
	FlowToken string `yaml:"flow_token,omitempty"`

	// Setup steps establish state and must all succeed.
	Setup []Step `yaml:"setup,omitempty"`

	Flow       []Step      `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one call.
type Step struct {
	Invoke string         `yaml:"invoke"`
	As     string         `yaml:"as"`
	Args   map[string]any `yaml:"args,omitempty"`

	// Advance moves the block clock forward this many seconds before the
	// call.
	Advance int64 `yaml:"advance,omitempty"`

	// Expect is checked when set; otherwise any journaled outcome passes.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the outcome a step must produce. Result is a subset match.
type Expect struct {
	Case   string         `yaml:"case"`
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion checks signals or final state. Which fields apply depends on
// Type.
type Assertion struct {
	Type string `yaml:"type"`

	// signal_emitted, signal_count
	Signal string `yaml:"signal,omitempty"`
	Source string `yaml:"source,omitempty"`
	Args   []any  `yaml:"args,omitempty"`
	Count  int    `yaml:"count,omitempty"`

	// signal_order
	Signals []string `yaml:"signals,omitempty"`

	// owner_of, vault_owner_of, owned_amount
	ID      uint64 `yaml:"id,omitempty"`
	Owner   string `yaml:"owner,omitempty"`
	Asset   string `yaml:"asset,omitempty"`
	AssetID uint64 `yaml:"asset_id,omitempty"`
	Amount  uint64 `yaml:"amount,omitempty"`

	// version
	Version string `yaml:"version,omitempty"`
}

// Assertion type constants.
const (
	AssertSignalEmitted = "signal_emitted"
	AssertSignalOrder   = "signal_order"
	AssertSignalCount   = "signal_count"
	AssertOwnerOf       = "owner_of"
	AssertVaultOwnerOf  = "vault_owner_of"
	AssertOwnedAmount   = "owned_amount"
	AssertVersion       = "version"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Manifest != "" && !filepath.IsAbs(scenario.Manifest) {
		scenario.Manifest = filepath.Join(filepath.Dir(path), scenario.Manifest)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if _, err := os.Stat(s.Manifest); os.IsNotExist(err) {
		return fmt.Errorf("manifest not found: %s", s.Manifest)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Invoke == "" {
		return fmt.Errorf("invoke is required")
	}
	if _, ok := engine.LookupAction(ir.ActionURI(step.Invoke)); !ok {
		return fmt.Errorf("unknown action %q", step.Invoke)
	}
	if step.As == "" {
		return fmt.Errorf("as is required")
	}
	if step.Advance < 0 {
		return fmt.Errorf("advance must be non-negative")
	}
	if step.Expect != nil && step.Expect.Case == "" {
		return fmt.Errorf("expect: case is required")
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSignalEmitted:
		if a.Signal == "" {
			return fmt.Errorf("assertions[%d]: signal is required for signal_emitted", index)
		}
	case AssertSignalOrder:
		if len(a.Signals) == 0 {
			return fmt.Errorf("assertions[%d]: signals list is required for signal_order", index)
		}
	case AssertSignalCount:
		if a.Signal == "" {
			return fmt.Errorf("assertions[%d]: signal is required for signal_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for signal_count", index)
		}
	case AssertOwnerOf, AssertVaultOwnerOf:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for %s", index, a.Type)
		}
		if a.Owner == "" {
			return fmt.Errorf("assertions[%d]: owner is required for %s", index, a.Type)
		}
	case AssertOwnedAmount:
		if a.ID == 0 || a.Asset == "" {
			return fmt.Errorf("assertions[%d]: id and asset are required for owned_amount", index)
		}
	case AssertVersion:
		if a.Version == "" {
			return fmt.Errorf("assertions[%d]: version is required", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
