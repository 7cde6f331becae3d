package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/ir"
	"github.com/roach88/guardvault/internal/manifest"
	"github.com/roach88/guardvault/internal/store"
	"github.com/roach88/guardvault/internal/testutil"
)

// Harness holds the per-scenario engine and its collaborators.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	time     *testutil.ManualTime
	manifest *manifest.Manifest
	logger   *slog.Logger
}

// Run executes a scenario on a fresh in-memory journal.
//
// The returned error covers problems that stop the scenario from running
// at all (bad manifest, failed setup, store failures). Failed expectations
// and assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	m, err := manifest.Load(scenario.Manifest)
	if err != nil {
		return nil, err
	}
	world, err := m.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to deploy manifest: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewManualTime(m.Deployment.GenesisTime)
	h := &Harness{
		store: st,
		engine: engine.New(st, world,
			engine.WithTimeSource(clock),
			engine.WithFlowGenerator(testutil.NewFixedFlowGenerator(scenario.FlowToken)),
			engine.WithManifestHash(m.Hash),
			engine.WithLogger(logger),
		),
		time:     clock,
		manifest: m,
		logger:   logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{World: world}) {
		result.AddError(msg)
	}

	if err := h.verifyReplay(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// apply advances the block clock and submits step.
func (h *Harness) apply(ctx context.Context, step Step) (*engine.Receipt, error) {
	h.time.Advance(step.Advance)
	args, err := convertArgsToIRObject(step.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to convert args: %w", err)
	}
	return h.engine.Apply(ctx, engine.Call{
		Action: ir.ActionURI(step.Invoke),
		Sender: step.As,
		Args:   args,
	})
}

func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		rec, err := h.apply(ctx, step)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
		if !rec.OK() {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, rec.Err)
		}
		result.Trace = append(result.Trace, traceEvent(PhaseSetup, i, rec))
	}
	return nil
}

// executeFlow runs the flow steps and checks their expect clauses.
// Calls the engine refuses to journal (unknown sender, bad args) fail the
// scenario but do not stop it.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		rec, err := h.apply(ctx, step)
		if err != nil {
			var re *engine.RuntimeError
			if !errors.As(err, &re) {
				return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
			}
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Invoke, err))
			continue
		}
		result.Trace = append(result.Trace, traceEvent(PhaseFlow, i, rec))

		h.logger.Debug("flow step completed",
			"step", i,
			"action", step.Invoke,
			"sender", rec.Invocation.Sender,
			"case", rec.Completion.OutputCase,
		)

		if step.Expect == nil {
			continue
		}
		if msg := checkExpect(step.Expect, rec.Completion); msg != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, msg))
		}
	}
	return nil
}

// verifyReplay rebuilds the world from the manifest and replays the
// journal into it. Any divergence fails the scenario.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) error {
	fresh, err := h.manifest.Build()
	if err != nil {
		return fmt.Errorf("failed to redeploy manifest for replay: %w", err)
	}
	report, err := engine.Replay(ctx, h.store, fresh)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if err := report.Err(); err != nil {
		result.AddError(fmt.Sprintf("journal does not replay: %v", err))
	}
	return nil
}

func traceEvent(phase string, step int, rec *engine.Receipt) TraceEvent {
	return TraceEvent{
		Phase:     phase,
		Step:      step,
		Action:    string(rec.Invocation.ActionURI),
		Sender:    rec.Invocation.Sender,
		BlockTime: rec.Invocation.BlockTime,
		Seq:       rec.Invocation.Seq,
		Case:      rec.Completion.OutputCase,
		Result:    rec.Completion.Result,
		Signals:   rec.Signals,
	}
}

// checkExpect returns a description of the first mismatch, or "".
func checkExpect(want *Expect, got ir.Completion) string {
	if got.OutputCase != want.Case {
		msg := fmt.Sprintf("expected case %s, got %s", want.Case, got.OutputCase)
		if m, ok := got.Result["message"].(ir.IRString); ok {
			msg += fmt.Sprintf(" (%s)", m)
		}
		return msg
	}
	if len(want.Result) == 0 {
		return ""
	}
	expected, err := convertArgsToIRObject(want.Result)
	if err != nil {
		return fmt.Sprintf("bad expected result: %v", err)
	}
	for _, key := range expected.SortedKeys() {
		actual, ok := got.Result[key]
		if !ok {
			return fmt.Sprintf("result field %q missing", key)
		}
		if !reflect.DeepEqual(actual, expected[key]) {
			return fmt.Sprintf("result field %q = %v, want %v", key, actual, expected[key])
		}
	}
	return ""
}

// convertArgsToIRObject converts YAML-decoded args. Nulls and fractional
// numbers have no journal encoding and are rejected.
func convertArgsToIRObject(args map[string]any) (ir.IRObject, error) {
	if args == nil {
		return ir.IRObject{}, nil
	}
	v, err := ir.FromAny(args)
	if err != nil {
		return nil, err
	}
	return v.(ir.IRObject), nil
}
