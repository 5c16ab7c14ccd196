package catalog

import (
	"fmt"
	"math"

	"github.com/finnkarter/gameosdpas/internal/game/progression"
)

// Stat names one upgradable weapon attribute.
type Stat string

const (
	// StatDamage is base damage per shot.
	StatDamage Stat = "damage"
	// StatAccuracy is hit accuracy in percent, clamped to [0, 100].
	StatAccuracy Stat = "accuracy"
	// StatRateOfFire is rounds per minute.
	StatRateOfFire Stat = "rate_of_fire"
	// StatPenetration is armour penetration class.
	StatPenetration Stat = "penetration"
)

// AllStats lists every Stat in display order.
var AllStats = []Stat{StatDamage, StatAccuracy, StatRateOfFire, StatPenetration}

// ParseStat converts a name to a Stat.
//
// Postcondition: Returns a known Stat or ErrUnknownStat.
func ParseStat(name string) (Stat, error) {
	for _, s := range AllStats {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStat, name)
}

// StatBundle is a weapon's combat attributes.
type StatBundle struct {
	Damage      int `yaml:"damage" json:"damage"`
	Accuracy    int `yaml:"accuracy" json:"accuracy"`
	RateOfFire  int `yaml:"rate_of_fire" json:"rate_of_fire"`
	Penetration int `yaml:"penetration" json:"penetration"`
}

// Get returns the value of stat, or 0 for an unknown stat.
func (b StatBundle) Get(s Stat) int {
	switch s {
	case StatDamage:
		return b.Damage
	case StatAccuracy:
		return b.Accuracy
	case StatRateOfFire:
		return b.RateOfFire
	case StatPenetration:
		return b.Penetration
	default:
		return 0
	}
}

// add returns a copy of b with delta added to stat.
func (b StatBundle) add(s Stat, delta int) StatBundle {
	switch s {
	case StatDamage:
		b.Damage += delta
	case StatAccuracy:
		b.Accuracy += delta
	case StatRateOfFire:
		b.RateOfFire += delta
	case StatPenetration:
		b.Penetration += delta
	}
	return b
}

// DPS returns expected damage per second: damage * rounds-per-second * accuracy.
//
// Postcondition: Returns >= 0.
func (b StatBundle) DPS() float64 {
	acc := progression.Clamp(float64(b.Accuracy)/100, 0, 1)
	return float64(max(b.Damage, 0)) * float64(max(b.RateOfFire, 0)) / 60 * acc
}

// PerLevelBonus returns the flat amount one purchased level of stat adds on top of base.
//
// Damage +10%, accuracy +5%, rate of fire +8% (never below 5 rpm), penetration +1.
// Postcondition: Returns >= 1.
func PerLevelBonus(s Stat, base int) int {
	switch s {
	case StatDamage:
		return max(1, int(math.Floor(float64(base)*0.10)))
	case StatAccuracy:
		return max(1, int(math.Floor(float64(base)*0.05)))
	case StatRateOfFire:
		return max(5, int(math.Floor(float64(base)*0.08)))
	default:
		return 1
	}
}
