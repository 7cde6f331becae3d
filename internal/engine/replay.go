package engine

// Replay and determinism
//
// Contract state lives in memory; the journal is what survives a restart.
// Replay rebuilds a World by re-executing every completed invocation in seq
// order, with the sender and block time it was journaled with. The same
// code path as Apply runs each call (bindCall, execute, seal), so a
// deterministic protocol produces byte-identical completions and signals.
//
// Replay checks three content addresses per invocation:
//
//	invocation id  - the journaled call was not altered
//	completion id  - same output case and result at the same seq
//	signal ids     - same signals, same order, same args
//
// An invocation without a completion was interrupted before its outcome
// was written; its effects never became durable, so Replay skips it and
// counts it in Report.Incomplete.

import (
	"context"
	"fmt"

	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/ir"
	"github.com/roach88/guardvault/internal/store"
)

// Mismatch is one divergence between the journal and re-execution.
type Mismatch struct {
	InvocationID string
	FlowToken    string
	Action       ir.ActionURI
	Seq          int64
	Reason       string
	Want         string
	Got          string
}

// Report summarizes a replay.
type Report struct {
	Applied    int
	Incomplete int
	Mismatches []Mismatch

	// LastSeq is the highest seq found in the journal. An engine resuming
	// after Replay should start its clock here.
	LastSeq int64

	// LastBlockTime is the newest block time journaled, 0 for an empty
	// journal. Pass it to WithLastBlockTime.
	LastBlockTime int64
}

// Err returns the first mismatch as a RuntimeError, or nil.
func (r *Report) Err() error {
	if len(r.Mismatches) == 0 {
		return nil
	}
	return NewReplayMismatchError(r.Mismatches[0])
}

// Replay re-executes the journal in s against w, which should be freshly
// built from the same manifest. w is left in the replayed state.
func Replay(ctx context.Context, s *store.Store, w *World) (*Report, error) {
	invs, err := s.ReadAllInvocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	comps, err := s.ReadAllCompletions(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	byInvocation := make(map[string]ir.Completion, len(comps))
	for _, c := range comps {
		byInvocation[c.InvocationID] = c
	}

	report := &Report{}
	report.LastSeq, err = s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	for _, inv := range invs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.LastBlockTime = max(report.LastBlockTime, inv.BlockTime)
		comp, ok := byInvocation[inv.ID]
		if !ok {
			report.Incomplete++
			continue
		}
		m, err := replayOne(ctx, s, w, inv, comp)
		if err != nil {
			return report, err
		}
		if m != nil {
			report.Mismatches = append(report.Mismatches, *m)
			continue
		}
		report.Applied++
	}
	return report, nil
}

func replayOne(ctx context.Context, s *store.Store, w *World, inv ir.Invocation, comp ir.Completion) (*Mismatch, error) {
	mismatch := func(reason, want, got string) *Mismatch {
		return &Mismatch{
			InvocationID: inv.ID,
			FlowToken:    inv.FlowToken,
			Action:       inv.ActionURI,
			Seq:          inv.Seq,
			Reason:       reason,
			Want:         want,
			Got:          got,
		}
	}

	id, err := ir.InvocationID(inv.FlowToken, inv.ActionURI, inv.Args, inv.Sender, inv.BlockTime, inv.Seq)
	if err != nil {
		return nil, err
	}
	if id != inv.ID {
		return mismatch("invocation id does not match its content", inv.ID, id), nil
	}

	h, err := bindCall(inv.ActionURI, inv.Args)
	if err != nil {
		return mismatch("invocation no longer binds", "", err.Error()), nil
	}
	sender, err := chain.ParseAddress(inv.Sender)
	if err != nil {
		return mismatch("invalid sender", "", inv.Sender), nil
	}

	out, err := execute(h, w, chain.NewTx(sender, inv.BlockTime))
	if err != nil {
		return nil, fmt.Errorf("replay %s at seq %d: %w", inv.ActionURI, inv.Seq, err)
	}
	if out.outputCase != comp.OutputCase {
		return mismatch("output case differs", comp.OutputCase, out.outputCase), nil
	}

	next := comp.Seq
	replayed, signals, err := seal(inv.ID, out,
		func() int64 { return comp.Seq },
		func() int64 { next++; return next },
	)
	if err != nil {
		return nil, err
	}
	if replayed.ID != comp.ID {
		return mismatch("result differs", comp.ID, replayed.ID), nil
	}

	journaled, err := s.ReadSignalsFor(ctx, comp.ID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if len(journaled) != len(signals) {
		return mismatch("signal count differs", fmt.Sprint(len(journaled)), fmt.Sprint(len(signals))), nil
	}
	for i := range signals {
		if journaled[i].ID != signals[i].ID {
			return mismatch(fmt.Sprintf("signal %d differs", i), journaled[i].Name, signals[i].Name), nil
		}
	}
	return nil, nil
}
