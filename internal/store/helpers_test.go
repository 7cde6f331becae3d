package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/guardvault/internal/ir"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testInvocation(id, flow string, action ir.ActionURI, seq int64) ir.Invocation {
	return ir.Invocation{
		ID:            id,
		FlowToken:     flow,
		ActionURI:     action,
		Args:          ir.IRObject{},
		Seq:           seq,
		Sender:        "bob",
		BlockTime:     0,
		ManifestHash:  "manifest",
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

func testCompletion(id, invocationID, outputCase string, seq int64) ir.Completion {
	return ir.Completion{
		ID:           id,
		InvocationID: invocationID,
		OutputCase:   outputCase,
		Result:       ir.IRObject{},
		Seq:          seq,
	}
}

func testSignal(id, completionID, name string, seq int64, args ...ir.IRValue) ir.Signal {
	return ir.Signal{
		ID:           id,
		CompletionID: completionID,
		Seq:          seq,
		Source:       "protector",
		Name:         name,
		Args:         ir.IRArray(args),
	}
}
