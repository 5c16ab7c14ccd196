package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/combat"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
)

func TestSpawner_PicksByWeight(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	factory, err := cat.Range("factory")
	require.NoError(t, err)
	s := combat.NewSpawner(cat.TargetKinds())

	cases := []struct {
		roll float64
		want string
	}{
		{0.0, "normal"},
		{0.59, "normal"},
		{0.61, "fast"},
		{0.86, "golden"},
		{0.96, "bomb"},
	}
	for _, tc := range cases {
		seq := rng.NewSequence(tc.roll)
		tgt := s.Spawn(seq, factory, epoch)
		assert.Equal(t, tc.want, tgt.Kind, "roll %v", tc.roll)
		assert.Equal(t, 0, seq.Remaining())
	}
}
