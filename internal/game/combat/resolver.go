package combat

import (
	"math"

	"github.com/finnkarter/gameosdpas/internal/game/progression"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
)

// Settings tunes the resolver.
type Settings struct {
	CriticalChance float64 `mapstructure:"critical_chance"`
	HeadshotChance float64 `mapstructure:"headshot_chance"`
	// Variance is the +/- fraction applied uniformly to damage.
	Variance     float64 `mapstructure:"variance"`
	MinHitChance float64 `mapstructure:"min_hit_chance"`
	MaxHitChance float64 `mapstructure:"max_hit_chance"`
}

// DefaultSettings returns crit 5%, headshot 10%, variance 10%, hit chance in [0.1, 0.95].
func DefaultSettings() Settings {
	return Settings{
		CriticalChance: 0.05,
		HeadshotChance: 0.10,
		Variance:       0.10,
		MinHitChance:   0.10,
		MaxHitChance:   0.95,
	}
}

const (
	criticalMultiplier = 2
	headshotMultiplier = 3
)

// HitChance returns clamp(accuracy/100 * rangeMultiplier * (1 + playerLevel*0.01), min, max).
//
// Postcondition: s.MinHitChance <= result <= s.MaxHitChance.
func HitChance(actor Actor, target Target, s Settings) float64 {
	acc := progression.Clamp(float64(actor.Stats.Accuracy)/100, 0, 1)
	chance := acc * target.RangeMultiplier * (1 + float64(actor.PlayerLevel)*0.01)
	return progression.Clamp(chance, s.MinHitChance, s.MaxHitChance)
}

// Resolve performs one shot of actor against target.
//
// Rolls are drawn in a fixed order: hit, critical, headshot, damage variance. A
// miss draws only the first. Headshot takes precedence over critical; only one
// multiplier applies per shot.
//
// Precondition: p must be non-nil.
// Postcondition: Miss => Damage == 0 && Reward == 0; hit => Damage >= 1 && Reward >= 0.
// For a fixed roll sequence the result is fully deterministic.
func Resolve(actor Actor, target Target, p rng.Policy, s Settings) Outcome {
	out := Outcome{
		Kind:       Miss,
		TargetID:   target.ID,
		TargetKind: target.Kind,
		HitChance:  HitChance(actor, target, s),
	}
	if p.Roll() >= out.HitChance {
		return out
	}

	critical := p.Roll() < s.CriticalChance
	headshot := p.Roll() < s.HeadshotChance
	variance := 1 + (p.Roll()-0.5)*2*s.Variance

	raw := float64(actor.Stats.Damage) * (1 + float64(actor.WeaponLevel)*0.1) * variance
	damage := max(1, int(math.Floor(raw)))

	out.Kind = Hit
	switch {
	case headshot:
		out.Kind = Headshot
		damage *= headshotMultiplier
	case critical:
		out.Kind = Critical
		damage *= criticalMultiplier
	}
	out.Damage = damage
	out.Reward = max(0, int(math.Floor(float64(damage)*float64(target.BaseValue)*target.Multiplier)))
	out.Killed = damage >= target.HP
	return out
}
