// Package progression holds the pure experience, level and cost curves shared by
// every game mode. Nothing here carries state.
package progression

import (
	"cmp"
	"math"
)

// DefaultScalingFactor is the geometric growth applied per purchased upgrade level.
const DefaultScalingFactor = 1.15

// xpPerLevelUnit is the experience scale of the square-root level curve.
const xpPerLevelUnit = 100

// LevelForExperience maps experience to a level: floor(sqrt(xp/100)) + 1.
//
// Postcondition: Returns >= 1; level 1 at xp <= 0; monotonic non-decreasing in xp.
func LevelForExperience(xp int) int {
	if xp <= 0 {
		return 1
	}
	return isqrt(xp/xpPerLevelUnit) + 1
}

// ExperienceForLevel returns the smallest experience at which LevelForExperience
// reports level: (level-1)^2 * 100. The threshold for advancing past level L is
// therefore ExperienceForLevel(L+1) == L^2 * 100.
//
// Postcondition: LevelForExperience(ExperienceForLevel(level)) == level for level >= 1.
func ExperienceForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return n * n * xpPerLevelUnit
}

// MaxUpgradeCost is the price UpgradeCost saturates at. It is the largest integer
// a float64 holds exactly.
const MaxUpgradeCost = 1 << 53

// UpgradeCost returns the price of buying the next level of an upgrade currently at
// currentLevel: floor(baseCost * scalingFactor^currentLevel). When flooring would
// repeat or lower a price (small base costs), the price is raised to one above the
// previous level's so the curve stays strictly increasing. Prices saturate at
// MaxUpgradeCost.
//
// Precondition: scalingFactor > 1; baseCost >= 0. Negative currentLevel is treated as 0.
// Postcondition: UpgradeCost(b, l+1, f) > UpgradeCost(b, l, f) below MaxUpgradeCost.
func UpgradeCost(baseCost, currentLevel int, scalingFactor float64) int {
	currentLevel = max(currentLevel, 0)
	if baseCost <= 0 {
		// Every level floors to zero, so only the bump applies.
		return min(currentLevel, MaxUpgradeCost)
	}
	cost := min(baseCost, MaxUpgradeCost)
	prev := float64(baseCost)
	for lvl := 1; lvl <= currentLevel; lvl++ {
		raw := float64(baseCost) * math.Pow(scalingFactor, float64(lvl))
		next := saturate(raw)
		if next <= cost {
			next = min(cost+1, MaxUpgradeCost)
		} else if raw-prev >= 2 {
			// Steps only widen from here, so the floors never repeat again.
			return saturate(float64(baseCost) * math.Pow(scalingFactor, float64(currentLevel)))
		}
		if next == MaxUpgradeCost {
			return next
		}
		cost, prev = next, raw
	}
	return cost
}

// saturate floors v into [0, MaxUpgradeCost], mapping NaN and +Inf to the cap.
func saturate(v float64) int {
	switch {
	case math.IsNaN(v) || v >= MaxUpgradeCost:
		return MaxUpgradeCost
	case v <= 0:
		return 0
	}
	return int(math.Floor(v))
}

// Clamp limits v to [lo, hi].
//
// Precondition: lo <= hi.
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

func isqrt(n int) int {
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
