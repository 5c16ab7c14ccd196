// Package catalog provides the static weapon, range and target definitions of the
// idle combat model and the pure lookups built on them.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrInvalidEntity is returned when an entity id is not in the catalog.
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrUnknownStat is returned for a stat name no upgrade table uses.
	ErrUnknownStat = errors.New("unknown stat")
	// ErrUnknownRange is returned for a range name not in the catalog.
	ErrUnknownRange = errors.New("unknown range")
	// ErrUnknownTarget is returned for a target kind not in the catalog.
	ErrUnknownTarget = errors.New("unknown target kind")
)

// UpgradeDef prices one purchasable stat upgrade.
type UpgradeDef struct {
	BaseCost int `yaml:"base_cost"`
	MaxLevel int `yaml:"max_level"`
	// ScalingFactor defaults to progression.DefaultScalingFactor when zero.
	ScalingFactor float64 `yaml:"scaling_factor"`
}

// Evolution gates the one-way replacement of a weapon by one of its successors.
type Evolution struct {
	Cost          int      `yaml:"cost"`
	RequiredLevel int      `yaml:"required_level"`
	Unlocks       []string `yaml:"unlocks"`
}

// Definition is an immutable weapon record loaded once at startup.
type Definition struct {
	ID               string              `yaml:"id"`
	Name             string              `yaml:"name"`
	Category         string              `yaml:"category"`
	Tier             int                 `yaml:"tier"`
	Description      string              `yaml:"description"`
	Stats            StatBundle          `yaml:"stats"`
	MagazineCapacity int                 `yaml:"magazine_capacity"`
	ReserveAmmo      int                 `yaml:"reserve_ammo"`
	Upgrades         map[Stat]UpgradeDef `yaml:"upgrades"`
	Evolution        *Evolution          `yaml:"evolution"`
}

// Validate checks that the Definition satisfies its invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if d.Tier < 1 {
		errs = append(errs, fmt.Errorf("Tier must be >= 1, got %d", d.Tier))
	}
	if d.Stats.Damage < 1 {
		errs = append(errs, fmt.Errorf("damage must be >= 1, got %d", d.Stats.Damage))
	}
	if d.Stats.Accuracy < 0 || d.Stats.Accuracy > 100 {
		errs = append(errs, fmt.Errorf("accuracy must be in [0,100], got %d", d.Stats.Accuracy))
	}
	if d.Stats.RateOfFire < 1 {
		errs = append(errs, fmt.Errorf("rate_of_fire must be >= 1, got %d", d.Stats.RateOfFire))
	}
	if d.MagazineCapacity < 1 {
		errs = append(errs, fmt.Errorf("magazine_capacity must be >= 1, got %d", d.MagazineCapacity))
	}
	if d.ReserveAmmo < 0 {
		errs = append(errs, fmt.Errorf("reserve_ammo must be >= 0, got %d", d.ReserveAmmo))
	}
	for stat, up := range d.Upgrades {
		if !slices.Contains(AllStats, stat) {
			errs = append(errs, fmt.Errorf("upgrade for unknown stat %q", stat))
		}
		if up.BaseCost < 1 {
			errs = append(errs, fmt.Errorf("upgrade %s base_cost must be >= 1", stat))
		}
		if up.MaxLevel < 1 {
			errs = append(errs, fmt.Errorf("upgrade %s max_level must be >= 1", stat))
		}
		if up.ScalingFactor != 0 && up.ScalingFactor <= 1 {
			errs = append(errs, fmt.Errorf("upgrade %s scaling_factor must be > 1", stat))
		}
	}
	if d.Evolution != nil {
		if d.Evolution.Cost < 0 {
			errs = append(errs, errors.New("evolution cost must be >= 0"))
		}
		if len(d.Evolution.Unlocks) == 0 {
			errs = append(errs, errors.New("evolution must unlock at least one successor"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("definition %q validation failed: %v", d.ID, errs)
	}
	return nil
}

// Range is a shooting range; it scales both hit chance and reward.
type Range struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	BaseValue  int     `yaml:"base_value"`
	Multiplier float64 `yaml:"multiplier"`
}

// TargetKind describes one spawnable target type.
type TargetKind struct {
	ID string `yaml:"id"`
	HP int    `yaml:"hp"`
	// ValueMultiplier scales the range reward; zero means the target pays nothing.
	ValueMultiplier float64 `yaml:"value_multiplier"`
	// SpawnWeight is the relative chance this kind is chosen by the spawner.
	SpawnWeight float64 `yaml:"spawn_weight"`
	// Lifetime is how long a spawned target stays before it escapes.
	Lifetime time.Duration `yaml:"lifetime"`
	// BreaksCombo marks hazard targets whose hit resets the combo counter.
	BreaksCombo bool `yaml:"breaks_combo"`
}
