package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "client.log")
	require.NoError(t, InitLogger(path, false))
	Log.Debugw("hidden detail")
	Log.Infow("connection state changed", "state", "connected")
	SyncLogger()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "connection state changed")
	assert.Contains(t, out, "pixelarena")
	assert.NotContains(t, out, "hidden detail")
}
