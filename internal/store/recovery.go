package store

import (
	"context"
	"fmt"

	"github.com/roach88/guardvault/internal/ir"
)

// FlowState summarizes one flow for inspection and crash recovery.
type FlowState struct {
	FlowToken      string
	Invocations    []ir.Invocation
	Completions    []ir.Completion
	Signals        []ir.Signal
	LastSeq        int64
	PendingCount   int    // invocations with no completion
	IsComplete     bool   // at least one invocation and none pending
	TerminalStatus string // output case of the last completion
}

// GetFlowState loads a flow and analyses its completeness.
func (s *Store) GetFlowState(ctx context.Context, flowToken string) (FlowState, error) {
	state := FlowState{FlowToken: flowToken}

	invs, comps, err := s.ReadFlow(ctx, flowToken)
	if err != nil {
		return state, fmt.Errorf("get flow state: %w", err)
	}
	sigs, err := s.ReadSignals(ctx, SignalFilter{FlowToken: flowToken})
	if err != nil {
		return state, fmt.Errorf("get flow state: %w", err)
	}
	state.Invocations, state.Completions, state.Signals = invs, comps, sigs

	done := make(map[string]bool, len(comps))
	for _, c := range comps {
		done[c.InvocationID] = true
		state.LastSeq = max(state.LastSeq, c.Seq)
	}
	for _, inv := range invs {
		state.LastSeq = max(state.LastSeq, inv.Seq)
		if !done[inv.ID] {
			state.PendingCount++
		}
	}
	for _, sig := range sigs {
		state.LastSeq = max(state.LastSeq, sig.Seq)
	}
	state.IsComplete = len(invs) > 0 && state.PendingCount == 0
	if len(comps) > 0 {
		state.TerminalStatus = comps[len(comps)-1].OutputCase
	}
	return state, nil
}

// FindIncompleteFlows returns flows with an invocation that never
// completed, which happens when the process dies mid-call.
func (s *Store) FindIncompleteFlows(ctx context.Context) ([]FlowState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT i.flow_token
		FROM invocations i
		LEFT JOIN completions c ON i.id = c.invocation_id
		WHERE c.id IS NULL
		ORDER BY i.flow_token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete flows: %w", err)
	}
	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			rows.Close()
			return nil, fmt.Errorf("find incomplete flows: scan: %w", err)
		}
		tokens = append(tokens, tok)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find incomplete flows: %w", err)
	}

	out := make([]FlowState, 0, len(tokens))
	for _, tok := range tokens {
		st, err := s.GetFlowState(ctx, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
