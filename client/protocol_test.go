package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	b, err := Encode(EventMovePlayer, MovePlayer{Direction: "up"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"move_player","data":{"direction":"up"}}`, string(b))

	_, err = Encode("", MovePlayer{Direction: "up"})
	assert.Error(t, err)
	_, err = Encode(EventMovePlayer, nil)
	assert.Error(t, err)
	_, err = Encode(EventMovePlayer, func() {})
	assert.Error(t, err)
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		event   string
		wantErr bool
	}{
		{name: "ok", frame: `{"event":"player_left","data":{"playerId":"p1"}}`, event: EventPlayerLeft},
		{name: "no data", frame: `{"event":"game_state"}`, event: EventGameState},
		{name: "empty", frame: ``, wantErr: true},
		{name: "not json", frame: `hello`, wantErr: true},
		{name: "missing event", frame: `{"data":{}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.event, env.Event)
		})
	}
}

func TestDecodePayload_GameState(t *testing.T) {
	raw := json.RawMessage(`{
		"players":[{"id":"p1","name":"A","x":10,"y":10,"color":"#f00"}],
		"yourPlayerId":"p1",
		"gameConfig":{"width":400,"height":300,"playerSize":6}
	}`)
	gs, err := DecodePayload[GameState](raw)
	require.NoError(t, err)
	assert.Equal(t, PlayerID("p1"), gs.YourPlayerID)
	require.Len(t, gs.Players, 1)
	assert.Equal(t, 10.0, gs.Players[0].X)
	require.NotNil(t, gs.GameConfig)
	assert.Equal(t, 6.0, gs.GameConfig.PlayerSize)

	_, err = DecodePayload[GameState](nil)
	assert.Error(t, err)
}
