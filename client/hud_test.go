package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusLines(t *testing.T) {
	st := seeded([]Player{
		{ID: "p1", Name: "A", X: 10.4, Y: 9.6, Color: "#f00"},
		{ID: "p2", Name: "B", X: 0, Y: 0, Color: "#0f0"},
	}, "p1")

	assert.Equal(t, []string{
		"Connected",
		"2 players online",
		"",
		"You: A",
		"  (10, 10)",
		"",
		"A (you)",
		"  10, 10",
		"B",
		"  0, 0",
	}, StatusLines(st, StateConnected))
}

func TestStatusLines_BeforeSnapshot(t *testing.T) {
	assert.Equal(t, []string{
		"Disconnected (connecting)",
		"0 players online",
		"",
		"You: -",
		"",
	}, StatusLines(EmptyState(), StateConnecting))
}

func TestResolveSelf(t *testing.T) {
	me := ResolveSelf(EmptyState())
	assert.False(t, me.Found)
	assert.Empty(t, me.ID)

	st := seeded([]Player{alice}, "p1")
	me = ResolveSelf(st)
	assert.True(t, me.Found)
	assert.Equal(t, "A", me.DisplayName)

	st, _ = st.WithLeave(PlayerLeft{PlayerID: "p1"})
	me = ResolveSelf(st)
	assert.False(t, me.Found)
	assert.Equal(t, PlayerID("p1"), me.ID)
}
