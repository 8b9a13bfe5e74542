package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	require.NoError(t, Guard(nil, "escrow"))

	pauses := NewPauses(" Escrow ")
	require.ErrorIs(t, Guard(pauses, "escrow"), ErrModulePaused)
	require.NoError(t, Guard(pauses, "token"))
	require.NoError(t, Guard(pauses, ""))

	pauses.Set("escrow", false)
	require.NoError(t, Guard(pauses, "escrow"))
}
