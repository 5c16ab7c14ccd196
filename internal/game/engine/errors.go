package engine

import (
	"errors"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/combat"
)

// Errors returned by Engine operations. Every failing operation leaves State unchanged.
var (
	// ErrInsufficientFunds is returned when a purchase costs more than the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrMaxLevelReached is returned when an upgrade is already at its max level.
	ErrMaxLevelReached = errors.New("max level reached")
	// ErrRequirementNotMet is returned when an evolution's level requirement is not met
	// or the target is not a successor of the source weapon.
	ErrRequirementNotMet = errors.New("requirement not met")
	// ErrLocked is returned when equipping a weapon that has not been unlocked.
	ErrLocked = errors.New("weapon locked")
	// ErrInvalidEntity is returned for an entity id the catalog does not know.
	ErrInvalidEntity = catalog.ErrInvalidEntity
	// ErrNotReady is returned when the weapon is cooling down or reloading.
	ErrNotReady = combat.ErrNotReady
	// ErrOutOfAmmo is returned when firing with an empty magazine.
	ErrOutOfAmmo = combat.ErrOutOfAmmo
	// ErrInvalidState is returned by Restore when a snapshot does not fit the catalog.
	ErrInvalidState = errors.New("invalid state")
)

// Errors reported by a Persister.
var (
	// ErrSnapshotNotFound means no snapshot has been saved yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSnapshotCorrupt means a snapshot exists but cannot be decoded or verified.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")
	// ErrPersistenceUnavailable means the storage backend cannot be reached.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)
