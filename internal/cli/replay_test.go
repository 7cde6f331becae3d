package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedJournal appends an initiator handshake on flow f1 to db.
func seedJournal(t *testing.T, db string) {
	t.Helper()
	invoke(t, db, "Protector.setInitiator", "bob", `{"initiator":"alice"}`, "--at", "2000", "--flow", "f1")
	invoke(t, db, "Protector.confirmInitiator", "alice", `{"owner":"bob"}`, "--at", "2005", "--flow", "f1")
}

func TestReplay_Deterministic(t *testing.T) {
	db := journalPath(t)
	seedJournal(t, db)

	out, _, err := execute(t, "replay", "--db", db, "--manifest", testManifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 2 call(s) applied, last seq 6")
	assert.Contains(t, out, "✓ Journal replays deterministically")
}

func TestReplay_EmptyJournal(t *testing.T) {
	out, _, err := execute(t, "replay", "--db", journalPath(t), "--manifest", testManifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 0 call(s) applied, last seq 0")
}

func TestReplay_JSON(t *testing.T) {
	db := journalPath(t)
	seedJournal(t, db)

	out, _, err := execute(t, "replay", "--db", db, "--manifest", testManifest, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Applied)
	assert.Equal(t, int64(6), resp.Data.LastSeq)
	assert.True(t, resp.Data.Deterministic)
	assert.Empty(t, resp.Data.Mismatches)
	assert.Equal(t, testManifest, resp.Data.Manifest)
	assert.NotEmpty(t, resp.Data.ManifestHash)
}

func TestReplay_DivergentManifest(t *testing.T) {
	db := journalPath(t)
	seedJournal(t, db)

	// Without bob's genesis token, his setInitiator is rejected on replay.
	other := manifestWithout(t, `{to: "bob", id:   1},`)

	out, _, err := execute(t, "replay", "--db", db, "--manifest", other)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ [1] Protector.setInitiator in flow f1: output case differs")
	assert.Contains(t, out, "  journaled: Success")
	assert.Contains(t, out, "  replayed:  NotTokenOwner")
	assert.Contains(t, out, "✗ Determinism verification failed")

	out, _, err = execute(t, "replay", "--db", db, "--manifest", other, "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeReplay, resp.Error.Code)
	assert.False(t, resp.Data.Deterministic)
	require.NotEmpty(t, resp.Data.Mismatches)
	assert.Equal(t, "f1", resp.Data.Mismatches[0].FlowToken)
}

func TestReplay_InvokeRefusesDivergentJournal(t *testing.T) {
	db := journalPath(t)
	seedJournal(t, db)
	other := manifestWithout(t, `{to: "bob", id:   1},`)

	_, _, err := execute(t, "invoke", "Protector.mint", "--db", db, "--manifest", other,
		"--as", "curator", "--args", `{"to":"fred","id":9}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal does not replay")
}
