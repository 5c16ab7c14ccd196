package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
)

// TestPrestige_Scenario verifies {currency 50000, xp 20000, level 17, prestige 2}
// resets to {1000, 0, 1, 3} with play time unchanged.
func TestPrestige_Scenario(t *testing.T) {
	h := newHarness(t, rng.NewSeeded(1), nil)
	s := h.eng.Snapshot()
	s.Currency = 50000
	s.Experience = 20000
	s.Level = 17
	s.Prestige = 2
	s.PlayTime = 5 * time.Hour
	s.Counters.Kills = 400
	require.NoError(t, h.eng.Restore(s))

	var got []engine.PrestigeResult
	h.bus.Subscribe(engine.EventPrestigeActivated, func(n engine.Notification) { got = append(got, n.Prestige) })

	res := h.eng.Prestige()
	assert.Equal(t, 3, res.Prestige)
	assert.Equal(t, 17, res.PreviousLevel)
	assert.Equal(t, 50000, res.ForfeitedCurrency)
	assert.Equal(t, "1.3", res.CurrencyMultiplier.String())
	assert.Equal(t, "1.15", res.ExperienceMultiplier.String())
	require.Len(t, got, 1)

	after := h.eng.Snapshot()
	assert.Equal(t, 1000, after.Currency)
	assert.Equal(t, 0, after.Experience)
	assert.Equal(t, 1, after.Level)
	assert.Equal(t, 3, after.Prestige)
	assert.Equal(t, 5*time.Hour, after.PlayTime)
	assert.Equal(t, engine.Counters{}, after.Counters)
}

func TestPrestige_KeepsUnlocksAndUpgrades(t *testing.T) {
	h := newHarness(t, rng.NewSeeded(1), nil)
	s := h.eng.Snapshot()
	s.Experience = 1600
	s.Level = 5
	s.Currency = 10000
	require.NoError(t, h.eng.Restore(s))
	_, err := h.eng.PurchaseUpgrade("pistol", catalog.StatDamage)
	require.NoError(t, err)
	require.NoError(t, h.eng.Evolve("pistol", "glock17"))

	h.eng.Prestige()
	after := h.eng.Snapshot()
	assert.Equal(t, []string{"glock17", "pistol"}, after.Unlocked)
	assert.Equal(t, 1, after.UpgradeLevel("pistol", catalog.StatDamage))
	assert.Equal(t, "pistol", after.Equipped, "the starting weapon is equipped again")
	assert.Equal(t, engine.Ammo{Loaded: 8, Reserve: 32}, after.Ammo)
	assert.Equal(t, 2, after.Lifetime.WeaponsUnlocked)
}

func TestPrestige_BoostsRewards(t *testing.T) {
	h := newHarness(t, rng.NewSequence(hitRolls()...), nil)
	s := h.eng.Snapshot()
	s.Prestige = 3
	require.NoError(t, h.eng.Restore(s))

	_, err := h.eng.Fire(factoryTarget())
	require.NoError(t, err)
	after := h.eng.Snapshot()
	// floor(350 * 1.3) and floor(3 * 1.15)
	assert.Equal(t, 1000+455, after.Currency)
	assert.Equal(t, 3, after.Experience)
}

func TestMultipliers(t *testing.T) {
	assert.Equal(t, "1", engine.CurrencyMultiplier(0).String())
	assert.Equal(t, "2", engine.CurrencyMultiplier(10).String())
	assert.Equal(t, "1.05", engine.ExperienceMultiplier(1).String())
	assert.Equal(t, "1.5", engine.ExperienceMultiplier(10).String())
}
