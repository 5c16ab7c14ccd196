// Package combat resolves single shots against targets and gates how often a
// weapon may fire or reload.
package combat

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
)

var (
	// ErrNotReady is returned when a weapon is cooling down, already firing, or reloading.
	ErrNotReady = errors.New("weapon not ready")
	// ErrOutOfAmmo is returned when the magazine is empty.
	ErrOutOfAmmo = errors.New("magazine empty")
	// ErrMagazineFull is returned when reloading an already full magazine.
	ErrMagazineFull = errors.New("magazine already full")
	// ErrNoReserve is returned when reloading with no reserve ammunition.
	ErrNoReserve = errors.New("no reserve ammunition")
)

// HitKind classifies a resolved shot.
type HitKind int

const (
	Miss HitKind = iota
	Hit
	Critical
	Headshot
)

// String returns a human-readable label.
func (k HitKind) String() string {
	switch k {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case Critical:
		return "critical"
	case Headshot:
		return "headshot"
	default:
		return "unknown"
	}
}

// Actor is the shooter's effective combat profile for one resolution.
type Actor struct {
	Stats       catalog.StatBundle
	PlayerLevel int
	WeaponLevel int
}

// Target is one spawned target in a range.
//
// Each shot is resolved independently: a target is killed by a shot whose damage
// reaches its HP, and no damage is carried over between shots.
type Target struct {
	// ID is a per-spawn instance id.
	ID   string
	Kind string
	HP   int
	// BaseValue is the range's reward per point of damage.
	BaseValue int
	// Multiplier scales the reward (range multiplier times kind multiplier).
	Multiplier float64
	// RangeMultiplier scales the hit chance.
	RangeMultiplier float64
	BreaksCombo     bool
	// ExpiresAt is when the target escapes; zero means it never does.
	ExpiresAt time.Time
}

// Expired reports whether the target has escaped by now.
func (t Target) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// NewTarget builds a Target of kind placed on rangeDef, spawned at now.
//
// Precondition: kind and rangeDef must be non-nil.
// Postcondition: Returns a Target with a fresh ID; ExpiresAt is zero when kind.Lifetime is 0.
func NewTarget(kind *catalog.TargetKind, rangeDef *catalog.Range, now time.Time) Target {
	t := Target{
		ID:              uuid.NewString(),
		Kind:            kind.ID,
		HP:              kind.HP,
		BaseValue:       rangeDef.BaseValue,
		Multiplier:      rangeDef.Multiplier * kind.ValueMultiplier,
		RangeMultiplier: rangeDef.Multiplier,
		BreaksCombo:     kind.BreaksCombo,
	}
	if kind.Lifetime > 0 {
		t.ExpiresAt = now.Add(kind.Lifetime)
	}
	return t
}

// Outcome is the ephemeral result of one resolution. It is never persisted.
type Outcome struct {
	Kind       HitKind
	TargetID   string
	TargetKind string
	// HitChance is the clamped probability the shot had of landing.
	HitChance float64
	// Damage is the final damage dealt, 0 on a miss and >= 1 on a hit.
	Damage int
	// Reward is the currency earned before prestige bonuses, >= 0.
	Reward int
	// Killed is true when Damage >= the target's HP.
	Killed bool
}

// IsHit reports whether the shot landed.
func (o Outcome) IsHit() bool { return o.Kind != Miss }

// IsCritical reports whether the critical multiplier applied.
func (o Outcome) IsCritical() bool { return o.Kind == Critical }

// IsHeadshot reports whether the headshot multiplier applied.
func (o Outcome) IsHeadshot() bool { return o.Kind == Headshot }
