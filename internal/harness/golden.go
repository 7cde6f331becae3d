package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// DefaultGoldenDir holds golden traces next to the package's tests.
const DefaultGoldenDir = "testdata/golden"

// RenderTrace renders a result as a line-oriented golden trace:
//
//	scenario <name>
//	flow <flow token>
//	<seq> <phase> <action> as <sender> at <block time>: <case>
//	  <seq> <source> <signal> <canonical args>
//
// Content ids and the manifest hash are left out so a trace only changes
// when behavior does.
func RenderTrace(scenario *Scenario, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario %s\n", scenario.Name)
	flow := scenario.FlowToken
	if flow == "" {
		flow = "test-flow-default"
	}
	fmt.Fprintf(&buf, "flow %s\n", flow)
	for _, ev := range result.Trace {
		fmt.Fprintf(&buf, "%d %s %s as %s at %d: %s\n",
			ev.Seq, ev.Phase, ev.Action, ev.Sender, ev.BlockTime, ev.Case)
		for _, s := range ev.Signals {
			fmt.Fprintf(&buf, "  %d %s %s %s\n", s.Seq, s.Source, s.Name, formatArgs(s.Args))
		}
	}
	return buf.Bytes()
}

// RunWithGolden runs scenario and compares its trace with
// <dir>/<scenario.Name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, dir string) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario, result, dir)
	return result, nil
}

// AssertGolden compares an existing result with its golden trace.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result, dir string) {
	t.Helper()

	if dir == "" {
		dir = DefaultGoldenDir
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, RenderTrace(scenario, result))
}

// GoldenPath returns where the CLI keeps the golden trace of a scenario
// loaded from scenarioFile: a golden/ directory beside it.
func GoldenPath(scenarioFile string, scenario *Scenario) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", scenario.Name+".golden")
}

// CompareGolden reports whether result renders to the trace stored at path.
func CompareGolden(path string, scenario *Scenario, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(want, RenderTrace(scenario, result)), nil
}

// WriteGolden stores result's trace at path.
func WriteGolden(path string, scenario *Scenario, result *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, RenderTrace(scenario, result), 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
