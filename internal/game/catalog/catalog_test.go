package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
)

func mustDefault(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

// TestDefault_LoadsEmbeddedContent verifies the embedded tables parse and validate.
func TestDefault_LoadsEmbeddedContent(t *testing.T) {
	c := mustDefault(t)
	assert.Len(t, c.All(), 16)
	assert.Equal(t, "pistol", c.Starting().ID)
	assert.Len(t, c.TargetKinds(), 4)

	r, err := c.Range("woods")
	require.NoError(t, err)
	assert.Equal(t, 15, r.BaseValue)
	assert.InDelta(t, 1.2, r.Multiplier, 1e-9)

	k, err := c.Target("fast")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, k.Lifetime)
	bomb, err := c.Target("bomb")
	require.NoError(t, err)
	assert.True(t, bomb.BreaksCombo)
}

func TestGet_UnknownIDReturnsInvalidEntity(t *testing.T) {
	c := mustDefault(t)
	d, err := c.Get("railgun")
	assert.Nil(t, d)
	assert.True(t, errors.Is(err, catalog.ErrInvalidEntity))

	_, err = c.Range("moon")
	assert.ErrorIs(t, err, catalog.ErrUnknownRange)
	_, err = c.Target("dragon")
	assert.ErrorIs(t, err, catalog.ErrUnknownTarget)
}

func TestByTier_SortedByName(t *testing.T) {
	c := mustDefault(t)
	tier1 := c.ByTier(1)
	require.Len(t, tier1, 3)
	assert.Equal(t, "Glock 17", tier1[0].Name)
	assert.Equal(t, "PM Makarov", tier1[1].Name)
	assert.Equal(t, "PM Pistol", tier1[2].Name)
}

// TestEffectiveStats_AppliesPerLevelBonus checks each stat's bonus rule on the pistol.
func TestEffectiveStats_AppliesPerLevelBonus(t *testing.T) {
	c := mustDefault(t)
	pistol, err := c.Get("pistol")
	require.NoError(t, err)

	stats := catalog.EffectiveStats(pistol, map[catalog.Stat]int{
		catalog.StatDamage:      2, // floor(35*0.10)=3 per level
		catalog.StatAccuracy:    3, // floor(65*0.05)=3 per level
		catalog.StatRateOfFire:  1, // floor(300*0.08)=24 per level
		catalog.StatPenetration: 2, // +1 per level
	})
	assert.Equal(t, catalog.StatBundle{Damage: 41, Accuracy: 74, RateOfFire: 324, Penetration: 3}, stats)
	assert.Equal(t, pistol.Stats, catalog.EffectiveStats(pistol, nil), "no upgrades means base stats")
}

func TestEffectiveStats_ClampsLevelsAndAccuracy(t *testing.T) {
	c := mustDefault(t)
	svd, err := c.Get("svd")
	require.NoError(t, err)

	stats := catalog.EffectiveStats(svd, map[catalog.Stat]int{
		catalog.StatAccuracy:    15,
		catalog.StatPenetration: 99, // capped at max_level 15
	})
	assert.Equal(t, 100, stats.Accuracy)
	assert.Equal(t, 12+15, stats.Penetration)
}

// TestEffectiveStats_Idempotent_Property verifies the function is pure.
func TestEffectiveStats_Idempotent_Property(t *testing.T) {
	c := mustDefault(t)
	defs := c.All()
	rapid.Check(t, func(rt *rapid.T) {
		def := defs[rapid.IntRange(0, len(defs)-1).Draw(rt, "def")]
		levels := map[catalog.Stat]int{}
		for _, s := range catalog.AllStats {
			levels[s] = rapid.IntRange(-2, 50).Draw(rt, string(s))
		}
		first := catalog.EffectiveStats(def, levels)
		second := catalog.EffectiveStats(def, levels)
		assert.Equal(rt, first, second)
		assert.GreaterOrEqual(rt, first.Accuracy, 0)
		assert.LessOrEqual(rt, first.Accuracy, 100)
		assert.GreaterOrEqual(rt, first.Damage, def.Stats.Damage)
	})
}

func TestUpgradeCost_UsesDefinitionTable(t *testing.T) {
	c := mustDefault(t)
	pistol, err := c.Get("pistol")
	require.NoError(t, err)

	cost, err := catalog.UpgradeCost(pistol, catalog.StatDamage, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, cost)

	next, err := catalog.UpgradeCost(pistol, catalog.StatDamage, 1)
	require.NoError(t, err)
	assert.Greater(t, next, cost)

	_, err = catalog.UpgradeCost(pistol, catalog.Stat("recoil"), 0)
	assert.ErrorIs(t, err, catalog.ErrUnknownStat)
}

func TestEvolutionTargets(t *testing.T) {
	c := mustDefault(t)
	pistol, err := c.Get("pistol")
	require.NoError(t, err)
	targets := catalog.EvolutionTargets(pistol)
	assert.Equal(t, []string{"makarov", "glock17"}, targets)

	targets[0] = "mutated"
	assert.Equal(t, "makarov", pistol.Evolution.Unlocks[0], "returned slice must be a copy")

	pkm, err := c.Get("pkm")
	require.NoError(t, err)
	assert.Nil(t, catalog.EvolutionTargets(pkm))
}

func TestWeaponLevel(t *testing.T) {
	assert.Equal(t, 0, catalog.WeaponLevel(nil))
	assert.Equal(t, 0, catalog.WeaponLevel(map[catalog.Stat]int{catalog.StatDamage: 2}))
	assert.Equal(t, 2, catalog.WeaponLevel(map[catalog.Stat]int{catalog.StatDamage: 4, catalog.StatAccuracy: 3}))
}

func TestParseStat(t *testing.T) {
	s, err := catalog.ParseStat("rate_of_fire")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatRateOfFire, s)
	_, err = catalog.ParseStat("luck")
	assert.ErrorIs(t, err, catalog.ErrUnknownStat)
}

func TestStatBundle_DPS(t *testing.T) {
	b := catalog.StatBundle{Damage: 60, Accuracy: 50, RateOfFire: 600}
	assert.InDelta(t, 300.0, b.DPS(), 1e-9)
}

func writeContent(t *testing.T, weapons, world string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weapons.yaml"), []byte(weapons), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "world.yaml"), []byte(world), 0o644))
	return dir
}

const minimalWorld = `
ranges:
  - {id: factory, name: Factory, base_value: 10, multiplier: 1.0}
targets:
  - {id: normal, hp: 30, value_multiplier: 1.0, spawn_weight: 1, lifetime: 3s}
`

func TestLoadDir_Valid(t *testing.T) {
	dir := writeContent(t, `
- id: slingshot
  name: Slingshot
  tier: 1
  stats: {damage: 5, accuracy: 40, rate_of_fire: 60, penetration: 0}
  magazine_capacity: 1
  upgrades:
    damage: {base_cost: 10, max_level: 3}
`, minimalWorld)
	c, err := catalog.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "slingshot", c.Starting().ID)
}

func TestLoadDir_RejectsUnknownEvolutionTarget(t *testing.T) {
	dir := writeContent(t, `
- id: slingshot
  name: Slingshot
  tier: 1
  stats: {damage: 5, accuracy: 40, rate_of_fire: 60}
  magazine_capacity: 1
  evolution: {cost: 10, required_level: 2, unlocks: [trebuchet]}
`, minimalWorld)
	_, err := catalog.LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trebuchet")
}

func TestLoadDir_RejectsInvalidDefinition(t *testing.T) {
	dir := writeContent(t, `
- id: broken
  name: Broken
  tier: 1
  stats: {damage: 0, accuracy: 140, rate_of_fire: 60}
  magazine_capacity: 1
`, minimalWorld)
	_, err := catalog.LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "damage must be >= 1")
	assert.Contains(t, err.Error(), "accuracy must be in [0,100]")
}

func TestLoadDir_MissingFile(t *testing.T) {
	_, err := catalog.LoadDir(t.TempDir())
	assert.Error(t, err)
}
