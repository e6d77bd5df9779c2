package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelarena/store"
)

func validConfig() Config {
	return Config{
		server:         "ws://localhost:5000/ws",
		reconnectDelay: time.Second,
		tickRate:       60,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "wss", mutate: func(c *Config) { c.server = "wss://arena.example.com/ws" }},
		{name: "http scheme", mutate: func(c *Config) { c.server = "http://localhost:5000" }, wantErr: true},
		{name: "negative attempts", mutate: func(c *Config) { c.reconnectAttempts = -1 }, wantErr: true},
		{name: "zero delay", mutate: func(c *Config) { c.reconnectDelay = 0 }, wantErr: true},
		{name: "tick rate zero", mutate: func(c *Config) { c.tickRate = 0 }, wantErr: true},
		{name: "tick rate too high", mutate: func(c *Config) { c.tickRate = 1001 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewCmd_Defaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, "ws://localhost:5000/ws", cfg.server)
	assert.Equal(t, 5, cfg.reconnectAttempts)
	assert.Equal(t, time.Second, cfg.reconnectDelay)
	assert.Equal(t, 60, cfg.tickRate)
	assert.True(t, cfg.grid)
	assert.NoError(t, cfg.validate())
}

func TestNewCmd_EnvOverrides(t *testing.T) {
	t.Setenv("PIXELARENA_SERVER", "wss://arena.example.com/ws")
	t.Setenv("PIXELARENA_TICK_RATE", "30")
	t.Setenv("PIXELARENA_RECONNECT_DELAY", "250ms")
	t.Setenv("PIXELARENA_GRID", "false")

	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, "wss://arena.example.com/ws", cfg.server)
	assert.Equal(t, 30, cfg.tickRate)
	assert.Equal(t, 250*time.Millisecond, cfg.reconnectDelay)
	assert.False(t, cfg.grid)
}

func TestPlayersCmd(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "players.db")

	s, err := store.OpenSQLite(ctx, db, store.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, store.Row{ID: "p1", Name: "Ann"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := newCmd(&Config{})
		cmd.SetOut(&out)
		cmd.SetArgs(append(args, "--db", db))
		require.NoError(t, cmd.ExecuteContext(ctx))
		return out.String()
	}

	assert.Contains(t, run("players", "list"), "Ann")
	assert.Equal(t, "removed 1 inactive players\n", run("players", "prune"))
	assert.NotContains(t, run("players", "list"), "Ann")
}
