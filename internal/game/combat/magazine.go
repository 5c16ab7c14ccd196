package combat

import (
	"fmt"
	"time"
)

// Magazine tracks loaded and reserve rounds for one weapon.
//
// Invariant: 0 <= Loaded <= Capacity; Reserve >= 0; rounds are only ever moved
// from Reserve to Loaded, never created.
type Magazine struct {
	Capacity int
	Loaded   int
	Reserve  int

	reloading  bool
	reloadDone time.Time
}

// NewMagazine returns a full magazine with reserve rounds in reserve.
//
// Precondition: capacity > 0 (panics otherwise); reserve >= 0.
func NewMagazine(capacity, reserve int) *Magazine {
	if capacity <= 0 {
		panic(fmt.Sprintf("combat: NewMagazine: capacity must be > 0, got %d", capacity))
	}
	return &Magazine{Capacity: capacity, Loaded: capacity, Reserve: max(reserve, 0)}
}

// Consume removes one round.
//
// Postcondition: Loaded decreases by 1, or ErrOutOfAmmo when Loaded == 0.
func (m *Magazine) Consume() error {
	if m.Loaded <= 0 {
		return ErrOutOfAmmo
	}
	m.Loaded--
	return nil
}

// StartReload moves the magazine from Loaded to Reloading. With d <= 0 the
// reload completes immediately.
//
// Postcondition: Returns ErrNotReady while a reload is in progress, ErrMagazineFull
// when Loaded == Capacity, ErrNoReserve when Reserve == 0; otherwise the reload starts.
func (m *Magazine) StartReload(now time.Time, d time.Duration) error {
	m.Settle(now)
	switch {
	case m.reloading:
		return ErrNotReady
	case m.Loaded >= m.Capacity:
		return ErrMagazineFull
	case m.Reserve <= 0:
		return ErrNoReserve
	}
	m.reloading = true
	m.reloadDone = now.Add(d)
	m.Settle(now)
	return nil
}

// Settle completes a pending reload whose duration has elapsed by now.
//
// Postcondition: on completion Loaded += n and Reserve -= n with n = min(Capacity-Loaded, Reserve).
func (m *Magazine) Settle(now time.Time) {
	if !m.reloading || now.Before(m.reloadDone) {
		return
	}
	n := min(m.Capacity-m.Loaded, m.Reserve)
	m.Loaded += n
	m.Reserve -= n
	m.reloading = false
}

// Reloading reports whether a reload is still in progress at now.
func (m *Magazine) Reloading(now time.Time) bool {
	m.Settle(now)
	return m.reloading
}
