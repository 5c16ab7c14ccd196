package combat

import "time"

// GateState is the rate-of-fire state of a weapon.
type GateState int

const (
	Ready GateState = iota
	Firing
	Cooldown
)

// String returns a human-readable state label.
func (s GateState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Firing:
		return "firing"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// CooldownFor returns the minimum time between shots: 60000ms / roundsPerMinute.
//
// Precondition: rpm > 0 (panics otherwise).
func CooldownFor(rpm int) time.Duration {
	if rpm <= 0 {
		panic("combat: CooldownFor: rpm must be > 0")
	}
	return time.Minute / time.Duration(rpm)
}

// Gate enforces Ready -> Firing -> Cooldown -> Ready for one weapon.
// Requests made outside Ready are rejected, never queued.
//
// Gate is not safe for concurrent use; it is owned by a single engine.
type Gate struct {
	cooldown time.Duration
	lastShot time.Time
	firing   bool
	fired    bool
}

// NewGate creates a Ready gate for a weapon firing rpm rounds per minute.
//
// Precondition: rpm > 0.
func NewGate(rpm int) *Gate {
	return &Gate{cooldown: CooldownFor(rpm)}
}

// SetRate changes the cooldown, e.g. after a rate-of-fire upgrade.
//
// Precondition: rpm > 0.
func (g *Gate) SetRate(rpm int) {
	g.cooldown = CooldownFor(rpm)
}

// Cooldown returns the current cooldown duration.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// State returns the gate state at now.
func (g *Gate) State(now time.Time) GateState {
	switch {
	case g.firing:
		return Firing
	case g.fired && now.Sub(g.lastShot) < g.cooldown:
		return Cooldown
	default:
		return Ready
	}
}

// Begin moves the gate from Ready to Firing.
//
// Postcondition: Returns ErrNotReady and leaves the gate untouched unless State(now) == Ready.
func (g *Gate) Begin(now time.Time) error {
	if g.State(now) != Ready {
		return ErrNotReady
	}
	g.firing = true
	g.lastShot = now
	return nil
}

// End moves the gate from Firing to Cooldown; the cooldown runs from the Begin time.
func (g *Gate) End() {
	if !g.firing {
		return
	}
	g.firing = false
	g.fired = true
}

// Reset returns the gate to Ready, e.g. when a different weapon is equipped.
func (g *Gate) Reset() {
	g.firing = false
	g.fired = false
	g.lastShot = time.Time{}
}
