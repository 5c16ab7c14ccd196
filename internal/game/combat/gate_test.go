package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/finnkarter/gameosdpas/internal/game/combat"
)

func TestCooldownFor(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, combat.CooldownFor(600))
	assert.Equal(t, 200*time.Millisecond, combat.CooldownFor(300))
	assert.Panics(t, func() { combat.CooldownFor(0) })
}

func TestGate_Lifecycle(t *testing.T) {
	g := combat.NewGate(600)
	assert.Equal(t, combat.Ready, g.State(epoch))

	require.NoError(t, g.Begin(epoch))
	assert.Equal(t, combat.Firing, g.State(epoch))
	assert.ErrorIs(t, g.Begin(epoch), combat.ErrNotReady)

	g.End()
	assert.Equal(t, combat.Cooldown, g.State(epoch.Add(50*time.Millisecond)))
	assert.ErrorIs(t, g.Begin(epoch.Add(99*time.Millisecond)), combat.ErrNotReady)

	assert.Equal(t, combat.Ready, g.State(epoch.Add(100*time.Millisecond)))
	assert.NoError(t, g.Begin(epoch.Add(100*time.Millisecond)))
}

func TestGate_EndWithoutBeginIsNoop(t *testing.T) {
	g := combat.NewGate(60)
	g.End()
	assert.Equal(t, combat.Ready, g.State(epoch))
}

func TestGate_SetRateAndReset(t *testing.T) {
	g := combat.NewGate(60)
	require.NoError(t, g.Begin(epoch))
	g.End()
	g.SetRate(1200)
	assert.Equal(t, 50*time.Millisecond, g.Cooldown())
	assert.Equal(t, combat.Ready, g.State(epoch.Add(50*time.Millisecond)))

	require.NoError(t, g.Begin(epoch.Add(time.Second)))
	g.Reset()
	assert.Equal(t, combat.Ready, g.State(epoch.Add(time.Second)))
}

// TestGate_NeverFasterThanCooldown_Property verifies that accepted shots are always
// at least one cooldown apart, whatever the request pattern.
func TestGate_NeverFasterThanCooldown_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rpm := rapid.IntRange(1, 3000).Draw(rt, "rpm")
		g := combat.NewGate(rpm)
		now := epoch
		var accepted []time.Time
		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for range steps {
			now = now.Add(time.Duration(rapid.IntRange(0, 200).Draw(rt, "dtMs")) * time.Millisecond)
			if g.Begin(now) == nil {
				accepted = append(accepted, now)
				g.End()
			}
		}
		for i := 1; i < len(accepted); i++ {
			assert.GreaterOrEqual(rt, accepted[i].Sub(accepted[i-1]), g.Cooldown())
		}
	})
}

func TestGateState_String(t *testing.T) {
	assert.Equal(t, "ready", combat.Ready.String())
	assert.Equal(t, "firing", combat.Firing.String())
	assert.Equal(t, "cooldown", combat.Cooldown.String())
	assert.Equal(t, "unknown", combat.GateState(9).String())
}
