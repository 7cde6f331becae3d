package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testManifest = "../../testdata/deploy/everdragons.cue"
	scenarioDir  = "../../testdata/scenarios"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// journalPath returns a fresh database path in a temp dir.
func journalPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "journal.db")
}

// invoke applies one call against db and fails the test unless it was
// applied.
func invoke(t *testing.T, db, action, as, args string, extra ...string) string {
	t.Helper()
	argv := append([]string{"invoke", action, "--db", db, "--manifest", testManifest, "--as", as, "--args", args}, extra...)
	out, _, err := execute(t, argv...)
	require.NoError(t, err, out)
	return out
}

// writeFile writes content under a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// manifestWithout writes a copy of the test manifest with old removed.
func manifestWithout(t *testing.T, old string) string {
	t.Helper()
	src, err := os.ReadFile(testManifest)
	require.NoError(t, err)
	require.Contains(t, string(src), old)
	return writeFile(t, "deploy.cue", strings.Replace(string(src), old, "", 1))
}
