package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/ir"
)

func TestReplayRebuildsWorld(t *testing.T) {
	r := newRig(t)
	r.guardedTransfer(t)
	// Rejections are journaled and must replay as rejections.
	r.rejected(t, chain.ErrNotTokenOwner, bob, "Protector.completeTransfer", ir.IRObject{"id": ir.IRInt(1)})

	fresh := newTestWorld(t)
	report, err := Replay(context.Background(), r.s, fresh)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, 7, report.Applied)
	assert.Equal(t, 0, report.Incomplete)
	assert.Equal(t, r.e.Clock().Current(), report.LastSeq)
	assert.Equal(t, genesis+100, report.LastBlockTime)

	owner, err := fresh.Protector.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, chain.Address(fred), owner)
}

func TestReplayIsRepeatable(t *testing.T) {
	r := newRig(t)
	r.guardedTransfer(t)

	for i := 0; i < 3; i++ {
		report, err := Replay(context.Background(), r.s, newTestWorld(t))
		require.NoError(t, err)
		assert.Empty(t, report.Mismatches, "run %d", i)
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	r := newRig(t)
	r.bootstrap(t)

	// A world deployed by someone else rejects the initialize call.
	report, err := Replay(context.Background(), r.s, newWorldWithDeployer(t, "mallory"))
	require.NoError(t, err)
	require.NotEmpty(t, report.Mismatches)

	m := report.Mismatches[0]
	assert.Equal(t, ir.ActionURI("Protector.initialize"), m.Action)
	assert.Equal(t, "output case differs", m.Reason)
	assert.Equal(t, ir.SuccessCase, m.Want)
	assert.Equal(t, "NotTheContractDeployer", m.Got)
	assert.True(t, IsReplayMismatch(report.Err()))
}

func TestReplaySkipsIncompleteInvocations(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.bootstrap(t)

	inv := ir.Invocation{
		FlowToken: "crashed",
		ActionURI: "Protector.mint",
		Args:      ir.IRObject{"to": ir.IRString(alice), "id": ir.IRInt(2)},
		Seq:       r.e.Clock().Next(),
		Sender:    deployer,
		BlockTime: genesis,
	}
	inv.ID = ir.MustInvocationID(inv.FlowToken, inv.ActionURI, inv.Args, inv.Sender, inv.BlockTime, inv.Seq)
	require.NoError(t, r.s.WriteInvocation(ctx, inv))

	fresh := newTestWorld(t)
	report, err := Replay(ctx, r.s, fresh)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 1, report.Incomplete)
	assert.False(t, fresh.Protector.Exists(2), "an uncompleted call has no effects")
}

func TestResumeAfterReplay(t *testing.T) {
	r := newRig(t)
	r.bootstrap(t)

	fresh := newTestWorld(t)
	report, err := Replay(context.Background(), r.s, fresh)
	require.NoError(t, err)

	resumed := New(r.s, fresh, WithClock(NewClockAt(report.LastSeq)), WithTimeSource(r.time))
	rec, err := resumed.Apply(context.Background(), Call{
		Action: "Protector.mint",
		Sender: deployer,
		Args:   ir.IRObject{"to": ir.IRString(alice), "id": ir.IRInt(2)},
	})
	require.NoError(t, err)
	require.True(t, rec.OK())
	assert.Equal(t, report.LastSeq+1, rec.Invocation.Seq)

	// The combined journal still replays cleanly.
	again, err := Replay(context.Background(), r.s, newTestWorld(t))
	require.NoError(t, err)
	assert.Empty(t, again.Mismatches)
	assert.Equal(t, 3, again.Applied)
}
