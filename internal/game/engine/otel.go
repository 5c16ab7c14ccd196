package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/finnkarter/gameosdpas/internal/game/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instruments are the engine's counters. They are no-ops unless a global
// MeterProvider is installed.
type instruments struct {
	shots       metric.Int64Counter
	kills       metric.Int64Counter
	levelUps    metric.Int64Counter
	purchases   metric.Int64Counter
	evolutions  metric.Int64Counter
	prestiges   metric.Int64Counter
	earned      metric.Int64Counter
	saves       metric.Int64Counter
	questsTaken metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	m := meter()
	in := &instruments{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&in.shots, "engine.shots", "Shots resolved, by outcome kind"},
		{&in.kills, "engine.kills", "Targets killed"},
		{&in.levelUps, "engine.level_ups", "Player levels gained"},
		{&in.purchases, "engine.upgrades.purchased", "Upgrade levels purchased, by stat"},
		{&in.evolutions, "engine.evolutions", "Weapon evolutions completed"},
		{&in.prestiges, "engine.prestiges", "Prestige resets"},
		{&in.earned, "engine.currency.earned", "Currency credited to the player"},
		{&in.saves, "engine.saves", "Snapshot saves, by result"},
		{&in.questsTaken, "engine.quests.completed", "Quests completed"},
	}
	for _, c := range counters {
		var err error
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}
	return in, nil
}

func (in *instruments) add(c metric.Int64Counter, n int, attrs ...attribute.KeyValue) {
	if n <= 0 {
		return
	}
	c.Add(context.Background(), int64(n), metric.WithAttributes(attrs...))
}
