package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_CheckedInScenarios(t *testing.T) {
	out, _, err := execute(t, "test", scenarioDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ guarded_transfer\n")
	assert.Contains(t, out, "✓ upgrade_authority\n")
	assert.Contains(t, out, "✓ vault_access\n")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := execute(t, "test", scenarioDir, "--filter", "vault_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "vault_access", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.Empty(t, resp.Data.Scenarios[0].Golden)

	out, _, err = execute(t, "test", scenarioDir, "--filter", "guarded_*", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

// scenarioFile writes a one-step scenario against the test manifest.
func scenarioFile(t *testing.T, dir, name, expectCase string) string {
	t.Helper()
	manifest, err := filepath.Abs(testManifest)
	require.NoError(t, err)

	content := "name: " + name + "\n" +
		"description: bob proposes alice as his initiator\n" +
		"manifest: " + manifest + "\n" +
		"flow_token: cli-flow\n" +
		"flow:\n" +
		"  - invoke: Protector.setInitiator\n" +
		"    as: bob\n" +
		"    args: { initiator: alice }\n" +
		"    expect: { case: " + expectCase + " }\n" +
		"assertions:\n" +
		"  - type: signal_count\n" +
		"    signal: InitiatorProposed\n" +
		"    count: 1\n"
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	scenarioFile(t, dir, "handshake", "Success")

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ handshake (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "handshake.golden"))
	require.NoError(t, err)
	assert.Equal(t,
		"scenario handshake\n"+
			"flow cli-flow\n"+
			"1 flow Protector.setInitiator as bob at 1000: Success\n"+
			"  3 protector InitiatorProposed [\"bob\",\"alice\",true]\n",
		string(golden))

	out, _, err = execute(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ handshake\n")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "handshake.golden"), []byte("stale\n"), 0o644))
	out, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ handshake")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenarioFile(t, dir, "wrong_case", "NotTokenOwner")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "✗ wrong_case")
	assert.Contains(t, out, "expected case NotTokenOwner, got Success")
	assert.Contains(t, out, "Test Summary: 0 passed, 2 failed, 2 total")

	out, _, err = execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Failed)
}
