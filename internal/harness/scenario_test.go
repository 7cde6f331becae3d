package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
deployment: {
	deployer: "deployer"
	protector: {name: "Protector", admin: "deployer", mints: [{to: "bob", id: 1}]}
	vault: {name: "Vault"}
}
`

// writeScenario writes a manifest and a scenario into a fresh directory
// and returns the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.cue"), []byte(testManifest), 0644))
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Bob proposes an initiator"
manifest: deploy.cue
flow_token: flow-1
setup:
  - invoke: Protector.setApprovalForAll
    as: bob
    args: { operator: alice, approved: true }
flow:
  - invoke: Protector.setInitiator
    as: bob
    advance: 10
    args:
      initiator: alice
    expect:
      case: Success
assertions:
  - type: signal_emitted
    signal: InitiatorProposed
    args: [bob, alice]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "flow-1", scenario.FlowToken)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "deploy.cue"), scenario.Manifest)
	require.Len(t, scenario.Setup, 1)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "Protector.setInitiator", scenario.Flow[0].Invoke)
	assert.Equal(t, "bob", scenario.Flow[0].As)
	assert.Equal(t, int64(10), scenario.Flow[0].Advance)
	assert.Equal(t, "alice", scenario.Flow[0].Args["initiator"])
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, "Success", scenario.Flow[0].Expect.Case)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, []any{"bob", "alice"}, scenario.Assertions[0].Args)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_InvalidYAML(t *testing.T) {
	path := writeScenario(t, "name: [unclosed\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "invok instead of invoke"
manifest: deploy.cue
flow:
  - invok: Protector.setInitiator
    as: bob
assertions:
  - type: version
    version: "1.0.0"
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "d"
manifest: deploy.cue
flow: [{invoke: Protector.initialize, as: deployer}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
manifest: deploy.cue
flow: [{invoke: Protector.initialize, as: deployer}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing manifest",
			content: `
name: n
description: "d"
flow: [{invoke: Protector.initialize, as: deployer}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "manifest is required",
		},
		{
			name: "manifest not found",
			content: `
name: n
description: "d"
manifest: nowhere.cue
flow: [{invoke: Protector.initialize, as: deployer}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "manifest not found",
		},
		{
			name: "empty flow",
			content: `
name: n
description: "d"
manifest: deploy.cue
flow: []
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "flow list is required",
		},
		{
			name: "missing assertions",
			content: `
name: n
description: "d"
manifest: deploy.cue
flow: [{invoke: Protector.initialize, as: deployer}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown action",
			content: `
name: n
description: "d"
manifest: deploy.cue
flow: [{invoke: Protector.explode, as: deployer}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: `flow[0]: unknown action "Protector.explode"`,
		},
		{
			name: "missing sender",
			content: `
name: n
description: "d"
manifest: deploy.cue
setup: [{invoke: Protector.initialize}]
flow: [{invoke: Protector.initialize, as: deployer}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "setup[0]: as is required",
		},
		{
			name: "negative advance",
			content: `
name: n
description: "d"
manifest: deploy.cue
flow: [{invoke: Protector.initialize, as: deployer, advance: -5}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "advance must be non-negative",
		},
		{
			name: "expect without case",
			content: `
name: n
description: "d"
manifest: deploy.cue
flow: [{invoke: Protector.initialize, as: deployer, expect: {result: {a: 1}}}]
assertions: [{type: version, version: "1.0.0"}]
`,
			wantErr: "expect: case is required",
		},
		{
			name: "unknown assertion type",
			content: `
name: n
description: "d"
manifest: deploy.cue
flow: [{invoke: Protector.initialize, as: deployer}]
assertions: [{type: balance_of}]
`,
			wantErr: `unknown assertion type "balance_of"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"missing type", Assertion{}, "type is required"},
		{"emitted without signal", Assertion{Type: AssertSignalEmitted}, "signal is required for signal_emitted"},
		{"order without signals", Assertion{Type: AssertSignalOrder}, "signals list is required"},
		{"count without signal", Assertion{Type: AssertSignalCount}, "signal is required for signal_count"},
		{"negative count", Assertion{Type: AssertSignalCount, Signal: "Transfer", Count: -1}, "count must be non-negative"},
		{"owner_of without id", Assertion{Type: AssertOwnerOf, Owner: "bob"}, "id is required for owner_of"},
		{"vault_owner_of without owner", Assertion{Type: AssertVaultOwnerOf, ID: 1}, "owner is required for vault_owner_of"},
		{"owned_amount without asset", Assertion{Type: AssertOwnedAmount, ID: 1}, "id and asset are required"},
		{"version without version", Assertion{Type: AssertVersion}, "version is required"},
		{"valid count of zero", Assertion{Type: AssertSignalCount, Signal: "Transfer"}, ""},
		{"valid owned_amount", Assertion{Type: AssertOwnedAmount, ID: 1, Asset: "bulls"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
