package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/combat"
	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/game/quest"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	eng   *engine.Engine
	clock *engine.ManualClock
	bus   *engine.Bus
	cat   *catalog.Catalog
}

func newHarness(t testing.TB, p rng.Policy, mutate func(*engine.Settings)) *harness {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return newHarnessWith(t, cat, p, mutate)
}

func newHarnessWith(t testing.TB, cat *catalog.Catalog, p rng.Policy, mutate func(*engine.Settings)) *harness {
	t.Helper()
	quests, err := quest.Default()
	require.NoError(t, err)
	settings := engine.DefaultSettings()
	settings.ReloadTime = 0
	if mutate != nil {
		mutate(&settings)
	}
	h := &harness{clock: engine.NewManualClock(epoch), bus: engine.NewBus(), cat: cat}
	h.eng, err = engine.New(engine.Deps{
		Catalog: cat,
		RNG:     p,
		Clock:   h.clock,
		Bus:     h.bus,
		Logger:  zaptest.NewLogger(t),
		Quests:  quests,
	}, settings)
	require.NoError(t, err)
	return h
}

// factoryTarget is a normal target in the factory range.
func factoryTarget() *combat.Target {
	return &combat.Target{ID: "t-1", Kind: "normal", HP: 30, BaseValue: 10, Multiplier: 1, RangeMultiplier: 1}
}

// cannonCatalog has one weapon that always hits for 10000.
func cannonCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]*catalog.Definition{{
			ID: "cannon", Name: "Cannon", Tier: 1,
			Stats:            catalog.StatBundle{Damage: 10000, Accuracy: 100, RateOfFire: 60},
			MagazineCapacity: 5,
			ReserveAmmo:      100,
		}},
		[]*catalog.Range{{ID: "factory", Name: "Factory", BaseValue: 10, Multiplier: 1}},
		[]*catalog.TargetKind{{ID: "normal", HP: 30, ValueMultiplier: 1, SpawnWeight: 1}},
	)
	require.NoError(t, err)
	return cat
}

// hitRolls is a plain hit: no critical, no headshot, no variance.
func hitRolls() []float64 { return []float64{0.0, 0.9, 0.95, 0.5} }
