package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/storage/sqlite"
)

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "gunevo.db"), "default")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, engine.ErrSnapshotNotFound)

	st := engine.State{PlayerID: "p-1", Currency: 10, Level: 1, Equipped: "pistol", Unlocked: []string{"pistol"}, Range: "factory"}
	require.NoError(t, s.Save(ctx, st))
	st.Currency = 77
	require.NoError(t, s.Save(ctx, st))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestStore_SlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gunevo.db")
	a, err := sqlite.Open(ctx, path, "a")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Save(ctx, engine.State{PlayerID: "alpha"}))

	b, err := sqlite.Open(ctx, path, "b")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, engine.ErrSnapshotNotFound)
}

func TestOpen_EmptySlot(t *testing.T) {
	_, err := sqlite.Open(context.Background(), ":memory:", "")
	assert.Error(t, err)
}
