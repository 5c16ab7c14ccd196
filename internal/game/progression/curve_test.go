package progression_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/finnkarter/gameosdpas/internal/game/progression"
)

func TestLevelForExperience_Table(t *testing.T) {
	cases := []struct{ xp, level int }{
		{0, 1}, {-50, 1}, {99, 1}, {100, 2}, {399, 2}, {400, 3}, {899, 3}, {900, 4}, {20000, 15},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, progression.LevelForExperience(tc.xp), "xp=%d", tc.xp)
	}
}

func TestExperienceForLevel_Table(t *testing.T) {
	assert.Equal(t, 0, progression.ExperienceForLevel(1))
	assert.Equal(t, 0, progression.ExperienceForLevel(0))
	assert.Equal(t, 100, progression.ExperienceForLevel(2))
	assert.Equal(t, 400, progression.ExperienceForLevel(3))
	assert.Equal(t, 10000, progression.ExperienceForLevel(11))
}

// TestLevelExperience_RoundTrip_Property verifies levelForExperience(experienceForLevel(L)) == L
// and that one experience point below the threshold still reports L-1.
func TestLevelExperience_RoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := rapid.IntRange(1, 5000).Draw(rt, "level")
		xp := progression.ExperienceForLevel(l)
		assert.Equal(rt, l, progression.LevelForExperience(xp))
		if l > 1 {
			assert.Equal(rt, l-1, progression.LevelForExperience(xp-1))
		}
	})
}

// TestLevelForExperience_Monotonic_Property verifies the level curve never decreases.
func TestLevelForExperience_Monotonic_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 1_000_000_000).Draw(rt, "a")
		b := rapid.IntRange(a, 1_000_000_001).Draw(rt, "b")
		assert.LessOrEqual(rt, progression.LevelForExperience(a), progression.LevelForExperience(b))
	})
}

func TestUpgradeCost_BaseAtLevelZero(t *testing.T) {
	assert.Equal(t, 100, progression.UpgradeCost(100, 0, progression.DefaultScalingFactor))
	assert.Equal(t, 2500, progression.UpgradeCost(2500, 0, progression.DefaultScalingFactor))
	assert.Equal(t, 100, progression.UpgradeCost(100, -3, progression.DefaultScalingFactor))
}

func TestUpgradeCost_Geometric(t *testing.T) {
	// 200 * 1.15^2 = 264.5
	assert.Equal(t, 264, progression.UpgradeCost(200, 2, progression.DefaultScalingFactor))
	// 1000 * 2^3
	assert.Equal(t, 8000, progression.UpgradeCost(1000, 3, 2.0))
}

func TestUpgradeCost_SmallBaseIsBumped(t *testing.T) {
	// floor(1.15^n) stays at 1 for n <= 4; each level still costs one more.
	assert.Equal(t, 4, progression.UpgradeCost(1, 3, progression.DefaultScalingFactor))
	assert.Equal(t, 7, progression.UpgradeCost(0, 7, progression.DefaultScalingFactor))
}

func TestUpgradeCost_Saturates(t *testing.T) {
	assert.Equal(t, progression.MaxUpgradeCost, progression.UpgradeCost(100, 1_000_000, progression.DefaultScalingFactor))
	assert.Equal(t, progression.MaxUpgradeCost, progression.UpgradeCost(100, math.MaxInt32, 2.0))
	assert.Equal(t, progression.MaxUpgradeCost, progression.UpgradeCost(math.MaxInt, 0, 2.0))
	assert.Equal(t, progression.MaxUpgradeCost, progression.UpgradeCost(math.MaxInt, 1, 2.0))
}

// TestUpgradeCost_StrictlyIncreasing_Property verifies cost rises with every level,
// including tiny base costs where plain flooring would stall.
func TestUpgradeCost_StrictlyIncreasing_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.IntRange(0, 100_000).Draw(rt, "base")
		factor := rapid.Float64Range(1.01, 2.0).Draw(rt, "factor")
		level := rapid.IntRange(0, 30).Draw(rt, "level")
		assert.Greater(rt,
			progression.UpgradeCost(base, level+1, factor),
			progression.UpgradeCost(base, level, factor))
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.95, progression.Clamp(1.2, 0.1, 0.95))
	assert.Equal(t, 0.1, progression.Clamp(0.01, 0.1, 0.95))
	assert.Equal(t, 0.5, progression.Clamp(0.5, 0.1, 0.95))
	assert.Equal(t, 100, progression.Clamp(130, 0, 100))
}
