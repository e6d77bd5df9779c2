package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T, now func() time.Time) PlayerStore {
		s, err := OpenSQLite(context.Background(), ":memory:", WithClock(now))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "players.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, Row{ID: "p1", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Name)
}
