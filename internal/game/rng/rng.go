// Package rng provides the chance-roll abstraction used by every probabilistic
// decision in the idle combat model: hit, critical, headshot, damage variance
// and target spawning.
package rng

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Policy is the randomness provider for chance rolls.
//
// Implementations need not be safe for concurrent use unless documented.
type Policy interface {
	// Roll returns a float in [0, 1) and advances the internal state.
	//
	// Postcondition: 0 <= result < 1.
	Roll() float64
}

// seeded implements Policy with a PCG generator.
//
// Invariant: two seeded policies built from the same seed produce identical sequences.
type seeded struct {
	r *rand.Rand
}

// NewSeeded returns a deterministic Policy seeded with seed.
//
// Postcondition: Every value returned by Roll is in [0, 1).
func NewSeeded(seed uint64) Policy {
	return &seeded{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seeded) Roll() float64 {
	return s.r.Float64()
}

// Sequence replays a fixed list of rolls. It is intended for tests that need
// to assert exact combat outcomes.
type Sequence struct {
	mu    sync.Mutex
	rolls []float64
	pos   int
}

// NewSequence returns a Sequence that yields rolls in order.
//
// Precondition: every roll is in [0, 1) (panics otherwise).
func NewSequence(rolls ...float64) *Sequence {
	for i, r := range rolls {
		if r < 0 || r >= 1 {
			panic(fmt.Sprintf("rng: NewSequence: roll[%d]=%v outside [0,1)", i, r))
		}
	}
	cp := make([]float64, len(rolls))
	copy(cp, rolls)
	return &Sequence{rolls: cp}
}

// Roll returns the next queued roll.
//
// Precondition: Remaining() > 0. Panics with "rng: Sequence exhausted" otherwise.
func (s *Sequence) Roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.rolls) {
		panic("rng: Sequence exhausted")
	}
	r := s.rolls[s.pos]
	s.pos++
	return r
}

// Remaining reports how many rolls are left.
func (s *Sequence) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rolls) - s.pos
}

// Weighted picks an index from weights proportionally using a single roll.
//
// Precondition: len(weights) > 0; every weight >= 0; sum(weights) > 0.
// Postcondition: Returns an index i with weights[i] > 0.
func Weighted(p Policy, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		panic("rng: Weighted requires a positive total weight")
	}
	target := p.Roll() * total
	last := -1
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		acc += w
		if target < acc {
			return i
		}
	}
	return last
}
