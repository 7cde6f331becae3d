package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardvault/internal/ir"
)

func TestGetFlowState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteInvocation(ctx, testInvocation("i1", "f", "Protector.startTransfer", 1)))
	require.NoError(t, s.WriteOutcome(ctx, testCompletion("c1", "i1", ir.SuccessCase, 2), []ir.Signal{
		testSignal("s1", "c1", "TransferStarted", 3),
	}))
	require.NoError(t, s.WriteInvocation(ctx, testInvocation("i2", "f", "Protector.completeTransfer", 4)))
	require.NoError(t, s.WriteCompletion(ctx, testCompletion("c2", "i2", "TransferNotAllowedYet", 5)))

	st, err := s.GetFlowState(ctx, "f")
	require.NoError(t, err)
	assert.True(t, st.IsComplete)
	assert.Equal(t, 0, st.PendingCount)
	assert.Equal(t, int64(5), st.LastSeq)
	assert.Equal(t, "TransferNotAllowedYet", st.TerminalStatus)
	assert.Len(t, st.Signals, 1)
}

func TestFindIncompleteFlows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteInvocation(ctx, testInvocation("i1", "done", "Protector.mint", 1)))
	require.NoError(t, s.WriteCompletion(ctx, testCompletion("c1", "i1", ir.SuccessCase, 2)))
	require.NoError(t, s.WriteInvocation(ctx, testInvocation("i2", "crashed", "Vault.depositNFT", 3)))

	flows, err := s.FindIncompleteFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "crashed", flows[0].FlowToken)
	assert.Equal(t, 1, flows[0].PendingCount)
	assert.False(t, flows[0].IsComplete)
	assert.Equal(t, "", flows[0].TerminalStatus)
}
