package engine

import (
	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/combat"
)

// Event names a notification published on the Bus.
type Event string

const (
	EventStatsChanged       Event = "statsChanged"
	EventWeaponChanged      Event = "weaponChanged"
	EventHitResolved        Event = "hitResolved"
	EventLevelUp            Event = "levelUp"
	EventUpgradePurchased   Event = "upgradePurchased"
	EventEvolutionCompleted Event = "evolutionCompleted"
	EventAutoFireToggled    Event = "autoFireToggled"
	EventPrestigeActivated  Event = "prestigeActivated"
	EventReloaded           Event = "reloaded"
	EventPersistenceFailed  Event = "persistenceFailed"
	EventQuestCompleted     Event = "questCompleted"
)

// Notification is the payload delivered to handlers. Only the fields relevant
// to Event are set.
type Notification struct {
	Event Event
	// State is set for statsChanged.
	State *State
	// Weapon is set for weaponChanged.
	Weapon *catalog.Definition
	// Outcome is set for hitResolved.
	Outcome combat.Outcome
	// Level is the new player level for levelUp, or the new upgrade level for upgradePurchased.
	Level    int
	EntityID string
	Stat     catalog.Stat
	FromID   string
	ToID     string
	AutoFire bool
	Prestige PrestigeResult
	QuestID  string
	Err      error
}

// Handler receives notifications. Handlers run synchronously on the engine's goroutine
// and must not call back into the engine.
type Handler func(Notification)

// Bus is a callback registry. The engine holds one; nothing embeds it.
//
// Bus is not safe for concurrent use; subscribe before driving the engine.
type Bus struct {
	handlers map[Event][]subscription
	nextID   int
}

type subscription struct {
	id int
	fn Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Event][]subscription)}
}

// Subscribe registers fn for ev and returns a function that removes it.
// The returned function is idempotent.
//
// Precondition: fn must not be nil.
func (b *Bus) Subscribe(ev Event, fn Handler) func() {
	b.nextID++
	id := b.nextID
	b.handlers[ev] = append(b.handlers[ev], subscription{id: id, fn: fn})
	return func() {
		subs := b.handlers[ev]
		for i, s := range subs {
			if s.id == id {
				b.handlers[ev] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Has reports whether any handler is subscribed to ev.
func (b *Bus) Has(ev Event) bool {
	return len(b.handlers[ev]) > 0
}

// Publish delivers n to every handler subscribed to n.Event in subscription order.
func (b *Bus) Publish(n Notification) {
	for _, s := range b.handlers[n.Event] {
		s.fn(n)
	}
}
