package combat

import (
	"time"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
)

// Spawner picks target kinds by their spawn weights.
type Spawner struct {
	kinds   []*catalog.TargetKind
	weights []float64
}

// NewSpawner builds a Spawner over kinds.
//
// Precondition: at least one kind has a positive SpawnWeight.
func NewSpawner(kinds []*catalog.TargetKind) *Spawner {
	s := &Spawner{kinds: kinds, weights: make([]float64, len(kinds))}
	for i, k := range kinds {
		s.weights[i] = k.SpawnWeight
	}
	return s
}

// Spawn rolls one target kind and places it in rng at now.
//
// Postcondition: Draws exactly one roll from p.
func (s *Spawner) Spawn(p rng.Policy, in *catalog.Range, now time.Time) Target {
	kind := s.kinds[rng.Weighted(p, s.weights)]
	return NewTarget(kind, in, now)
}
