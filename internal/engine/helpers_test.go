package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/guardvault/internal/asset"
	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/ir"
	"github.com/roach88/guardvault/internal/protector"
	"github.com/roach88/guardvault/internal/store"
	"github.com/roach88/guardvault/internal/testutil"
	"github.com/roach88/guardvault/internal/vault"
)

const (
	deployer = "deployer"
	bob      = "bob"
	alice    = "alice"
	fred     = "fred"

	vaultAddr = "protected"
	particle  = "particle"
	bulls     = "bulls"

	genesis int64 = 1000
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestWorld deploys contracts without any state; tests drive
// everything through the engine so the journal replays from scratch.
func newTestWorld(t *testing.T) *World {
	return newWorldWithDeployer(t, deployer)
}

func newWorldWithDeployer(t *testing.T, d chain.Address) *World {
	t.Helper()
	p := protector.New("protector", "Everdragons2Protector", d)
	reg := asset.NewRegistry("registry", d)
	book := asset.NewBook()
	require.NoError(t, book.Add(asset.NewNFT(particle, "Particle", d)))
	require.NoError(t, book.Add(asset.NewToken(bulls, "Bulls", d)))
	return &World{
		Protector: p,
		Registry:  reg,
		Assets:    book,
		Vault:     vault.New(vaultAddr, "Protected", p, reg, book),
	}
}

type rig struct {
	e    *Engine
	s    *store.Store
	w    *World
	time *testutil.ManualTime
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		s:    setupTestStore(t),
		w:    newTestWorld(t),
		time: testutil.NewManualTime(genesis),
	}
	base := []Option{
		WithTimeSource(r.time),
		WithFlowGenerator(testutil.NewCountingFlowGenerator("flow")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	r.e = New(r.s, r.w, append(base, opts...)...)
	return r
}

// call applies an action and fails the test on engine errors. Protocol
// rejections come back in the receipt.
func (r *rig) call(t *testing.T, sender, action string, args ir.IRObject) *Receipt {
	t.Helper()
	rec, err := r.e.Apply(context.Background(), Call{Action: ir.ActionURI(action), Sender: sender, Args: args})
	require.NoError(t, err)
	return rec
}

func (r *rig) ok(t *testing.T, sender, action string, args ir.IRObject) *Receipt {
	t.Helper()
	rec := r.call(t, sender, action, args)
	require.True(t, rec.OK(), "%s by %s: %v", action, sender, rec.Err)
	return rec
}

func (r *rig) rejected(t *testing.T, code chain.ErrorCode, sender, action string, args ir.IRObject) *Receipt {
	t.Helper()
	rec := r.call(t, sender, action, args)
	require.False(t, rec.OK(), "%s by %s should be rejected", action, sender)
	require.Equal(t, code, rec.Err.Code)
	return rec
}

// bootstrap initializes the protector and mints token 1 to bob.
func (r *rig) bootstrap(t *testing.T) {
	t.Helper()
	r.ok(t, deployer, "Protector.initialize", nil)
	r.ok(t, deployer, "Protector.mint", ir.IRObject{"to": ir.IRString(bob), "id": ir.IRInt(1)})
}

// guardedTransfer runs a full initiator-driven transfer of token 1 from
// bob to fred.
func (r *rig) guardedTransfer(t *testing.T) {
	t.Helper()
	r.bootstrap(t)
	r.ok(t, bob, "Protector.setInitiator", ir.IRObject{"initiator": ir.IRString(alice)})
	r.ok(t, alice, "Protector.confirmInitiator", ir.IRObject{"owner": ir.IRString(bob)})
	r.ok(t, alice, "Protector.startTransfer", ir.IRObject{"id": ir.IRInt(1), "to": ir.IRString(fred), "delay": ir.IRInt(100)})
	r.time.Advance(100)
	r.ok(t, bob, "Protector.completeTransfer", ir.IRObject{"id": ir.IRInt(1)})
}

type recordingSink struct {
	batches [][]ir.Signal
	err     error
}

func (s *recordingSink) Publish(_ context.Context, signals []ir.Signal) error {
	s.batches = append(s.batches, signals)
	return s.err
}
