package protector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/ir"
)

func mustJSON(t *testing.T, ev chain.Event) string {
	t.Helper()
	b, err := ir.MarshalCanonical(ev.Args)
	require.NoError(t, err)
	return string(b)
}
