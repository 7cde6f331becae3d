package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/ir"
)

func TestActions_Text(t *testing.T) {
	out, _, err := execute(t, "actions")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(engine.Actions()))
	assert.Contains(t, out, "Protector.setInitiator(initiator string)\n")
	assert.Contains(t, out, "Protector.startTransfer(id int, to string, [delay int])\n")
	assert.NotContains(t, out, "  -> ")
}

func TestActions_PrefixAndVerbose(t *testing.T) {
	out, _, err := execute(t, "actions", "--prefix", "Vault.", "-v")
	require.NoError(t, err)

	assert.Contains(t, out, "Vault.depositNFT(id int, asset string, asset_id int)\n")
	assert.Contains(t, out, "  -> Success")
	assert.NotContains(t, out, "Protector.")
	assert.NotContains(t, out, "Asset.")
}

func TestActions_JSON(t *testing.T) {
	out, _, err := execute(t, "actions", "--prefix", "Protector.upgradeTo", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []ir.ActionSig `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, ir.ActionURI("Protector.upgradeTo"), resp.Data[0].URI)
	assert.Equal(t, "implementation", resp.Data[0].Args[0].Name)
}

func TestFormatSigArgs(t *testing.T) {
	assert.Equal(t, "", formatSigArgs(nil))
	assert.Equal(t, "asset string, [id int]", formatSigArgs([]ir.NamedArg{
		{Name: "asset", Type: "string"},
		{Name: "id", Type: "int", Optional: true},
	}))
}
