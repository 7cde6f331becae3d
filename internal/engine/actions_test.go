package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardvault/internal/ir"
)

func TestActionTableIsWellFormed(t *testing.T) {
	seen := make(map[ir.ActionURI]bool)
	for _, a := range actionTable {
		assert.Empty(t, a.sig.Validate(), "%s", a.sig.URI)
		assert.False(t, seen[a.sig.URI], "duplicate action %s", a.sig.URI)
		seen[a.sig.URI] = true
		assert.NotNil(t, a.bind, "%s has no binder", a.sig.URI)
	}
	assert.Len(t, actionIndex, len(actionTable))
}

func TestActionsSorted(t *testing.T) {
	sigs := Actions()
	require.NotEmpty(t, sigs)
	assert.True(t, sort.SliceIsSorted(sigs, func(i, j int) bool { return sigs[i].URI < sigs[j].URI }))
}

func TestLookupAction(t *testing.T) {
	sig, ok := LookupAction("Protector.startTransfer")
	require.True(t, ok)
	assert.True(t, sig.HasOutput("TransferNotPermitted"))
	assert.True(t, sig.HasOutput("InvalidDelay"))

	_, ok = LookupAction("Protector.burn")
	assert.False(t, ok)
}

func TestBindCallDecodesAddresses(t *testing.T) {
	r := &argReader{args: ir.IRObject{"to": ir.IRString("  Fred ")}}
	assert.Equal(t, "fred", string(r.addr("to")))
	assert.True(t, r.addr("missing").IsZero(), "absent optional address reads as zero")
	assert.NoError(t, r.err)

	for _, blank := range []string{"", "   "} {
		r := &argReader{args: ir.IRObject{"admin": ir.IRString(blank)}}
		assert.True(t, r.addr("admin").IsZero())
		require.Error(t, r.err)
		assert.Contains(t, r.err.Error(), `"admin"`)
	}

	list := &argReader{args: ir.IRObject{"allow_list": ir.IRArray{ir.IRString("alice"), ir.IRString(" ")}}}
	assert.Nil(t, list.addrs("allow_list"))
	require.Error(t, list.err)
	assert.Contains(t, list.err.Error(), "allow_list[1]")
}

func TestBlankAddressIsInvalidArgs(t *testing.T) {
	_, err := bindCall("Protector.initialize", ir.IRObject{"admin": ir.IRString("  ")})
	assert.True(t, IsInvalidArgs(err), "got %v", err)

	_, err = bindCall("Protector.initialize", ir.IRObject{})
	assert.NoError(t, err, "omitting admin is how the sender becomes admin")

	r := newRig(t)
	_, err = r.e.Apply(context.Background(), Call{Action: "Protector.initialize", Sender: deployer,
		Args: ir.IRObject{"admin": ir.IRString("  ")}})
	assert.True(t, IsInvalidArgs(err), "got %v", err)
	assert.Equal(t, int64(0), r.e.Clock().Current(), "nothing is journaled")
	assert.True(t, r.w.Protector.Admin().IsZero())
}

func TestArgReaderKeepsFirstError(t *testing.T) {
	r := &argReader{args: ir.IRObject{"id": ir.IRInt(-3), "flag": ir.IRString("yes")}}
	r.id("id")
	r.flag("flag")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), `"id"`)
}

func TestArgReaderLists(t *testing.T) {
	r := &argReader{args: ir.IRObject{
		"list":   ir.IRArray{ir.IRString("Alice"), ir.IRString("bob")},
		"status": ir.IRArray{ir.IRBool(true), ir.IRBool(false)},
	}}
	addrs := r.addrs("list")
	require.Len(t, addrs, 2)
	assert.Equal(t, "alice", string(addrs[0]))
	assert.Equal(t, []bool{true, false}, r.flags("status"))
	assert.Empty(t, r.addrs("absent"))
	assert.NoError(t, r.err)

	bad := &argReader{args: ir.IRObject{"status": ir.IRArray{ir.IRInt(1)}}}
	bad.flags("status")
	assert.Error(t, bad.err)
}

func TestBindCall(t *testing.T) {
	_, err := bindCall("Vault.depositFT", ir.IRObject{"id": ir.IRInt(1), "asset": ir.IRString("bulls")})
	assert.True(t, IsInvalidArgs(err))

	_, err = bindCall("Vault.depositFT", ir.IRObject{"id": ir.IRInt(1), "asset": ir.IRString("bulls"), "amount": ir.IRString("10")})
	assert.True(t, IsInvalidArgs(err))

	h, err := bindCall("Vault.depositFT", ir.IRObject{"id": ir.IRInt(1), "asset": ir.IRString("bulls"), "amount": ir.IRInt(10)})
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = bindCall("Vault.melt", nil)
	assert.True(t, IsUnknownAction(err))
}
