// Package engine owns the player's progression state and is the only code that
// mutates it: firing, reloading, upgrades, evolutions, prestige and quests.
//
// The engine is single-threaded by contract. The host drives it from one
// goroutine, either directly or through a Scheduler tick.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/combat"
	"github.com/finnkarter/gameosdpas/internal/game/progression"
	"github.com/finnkarter/gameosdpas/internal/game/quest"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
)

// Settings tunes the economy.
type Settings struct {
	StartingCurrency int    `mapstructure:"starting_currency"`
	DefaultRange     string `mapstructure:"default_range"`
	// ReloadTime is how long a reload takes; zero reloads instantly.
	ReloadTime time.Duration `mapstructure:"reload_time"`
	// AmmoPrice is the cost of one reserve round bought by Resupply.
	AmmoPrice int `mapstructure:"ammo_price"`
	// LevelUpBonus is paid per level reached, times the new level.
	LevelUpBonus int `mapstructure:"level_up_bonus"`
	// ExperienceDivisor converts damage to experience: floor(damage / divisor).
	ExperienceDivisor int             `mapstructure:"experience_divisor"`
	Combat            combat.Settings `mapstructure:"combat"`
}

// DefaultSettings returns the stock economy.
func DefaultSettings() Settings {
	return Settings{
		StartingCurrency:  1000,
		DefaultRange:      "factory",
		ReloadTime:        2 * time.Second,
		AmmoPrice:         2,
		LevelUpBonus:      500,
		ExperienceDivisor: 10,
		Combat:            combat.DefaultSettings(),
	}
}

// Deps are the collaborators injected into an Engine. Only Catalog is required.
type Deps struct {
	Catalog *catalog.Catalog
	// RNG defaults to rng.NewCrypto().
	RNG rng.Policy
	// Clock defaults to SystemClock.
	Clock Clock
	// Bus defaults to an empty Bus.
	Bus *Bus
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
	// Quests defaults to no quests.
	Quests []*quest.Definition
}

// Statistics is a derived view over State.
type Statistics struct {
	Counters Counters
	Lifetime Lifetime
	PlayTime time.Duration
	// Accuracy is shots hit over shots fired, in percent.
	Accuracy float64
	// HeadshotRatio is headshots over shots hit, in percent.
	HeadshotRatio float64
	DamagePerShot float64
	// DPS is the equipped weapon's expected damage per second.
	DPS float64
}

// Engine applies game operations to one player's State.
//
// Engine is not safe for concurrent use.
type Engine struct {
	cat      *catalog.Catalog
	rng      rng.Policy
	clock    Clock
	bus      *Bus
	logger   *zap.Logger
	metrics  *instruments
	settings Settings
	spawner  *combat.Spawner
	questDef []*quest.Definition
	quests   *quest.Log

	state State
	// gate and mag belong to the equipped weapon; gates and mags hold every
	// weapon drawn since the last Restore.
	gate   *combat.Gate
	mag    *combat.Magazine
	gates  map[string]*combat.Gate
	mags   map[string]*combat.Magazine
	target *combat.Target

	sched       *Scheduler
	saver       *Saver
	lastAccrual time.Time
}

// New builds an Engine holding a fresh State.
//
// Precondition: deps.Catalog must be non-nil and contain settings.DefaultRange.
// Postcondition: Returns an Engine at level 1 with the starting weapon equipped, or an error.
func New(deps Deps, settings Settings) (*Engine, error) {
	if deps.Catalog == nil {
		return nil, errors.New("engine.New: catalog is required")
	}
	if _, err := deps.Catalog.Range(settings.DefaultRange); err != nil {
		return nil, fmt.Errorf("engine.New: default range: %w", err)
	}
	if settings.ExperienceDivisor < 1 {
		return nil, fmt.Errorf("engine.New: experience divisor must be >= 1, got %d", settings.ExperienceDivisor)
	}
	if settings.StartingCurrency < 0 {
		return nil, fmt.Errorf("engine.New: starting currency must be >= 0, got %d", settings.StartingCurrency)
	}
	metrics, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}
	e := &Engine{
		cat:      deps.Catalog,
		rng:      deps.RNG,
		clock:    deps.Clock,
		bus:      deps.Bus,
		logger:   deps.Logger,
		metrics:  metrics,
		settings: settings,
		spawner:  combat.NewSpawner(deps.Catalog.TargetKinds()),
		questDef: deps.Quests,
		quests:   quest.NewLog(deps.Quests),
	}
	if e.rng == nil {
		e.rng = rng.NewCrypto()
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.bus == nil {
		e.bus = NewBus()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	start := deps.Catalog.Starting()
	e.state = State{
		PlayerID: uuid.NewString(),
		Currency: settings.StartingCurrency,
		Level:    1,
		Equipped: start.ID,
		Unlocked: []string{start.ID},
		Upgrades: make(map[string]map[catalog.Stat]int),
		Range:    settings.DefaultRange,
		Lifetime: Lifetime{WeaponsUnlocked: 1},
	}
	e.gates = make(map[string]*combat.Gate)
	e.mags = make(map[string]*combat.Magazine)
	e.loadWeapon(start)
	e.lastAccrual = e.clock.Now()
	return e, nil
}

// Bus returns the engine's notification bus.
func (e *Engine) Bus() *Bus { return e.bus }

// Catalog returns the catalog the engine validates against.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Snapshot returns a deep copy of the current State. Reloads that have finished
// by now are settled first.
func (e *Engine) Snapshot() State {
	now := e.clock.Now()
	s := e.state.Clone()
	for id, mag := range e.mags {
		mag.Settle(now)
		ammo := Ammo{Loaded: mag.Loaded, Reserve: mag.Reserve}
		if id == s.Equipped {
			s.Ammo = ammo
			continue
		}
		if s.Holstered == nil {
			s.Holstered = make(map[string]Ammo)
		}
		s.Holstered[id] = ammo
	}
	s.Quests = e.quests.Snapshot()
	return s
}

// Restore replaces the current State with s.
//
// Postcondition: On error the engine is unchanged; on success any pending reload,
// cooldown and live target are discarded.
func (e *Engine) Restore(s State) error {
	if err := s.Validate(e.cat); err != nil {
		return err
	}
	log := quest.NewLog(e.questDef)
	dropped, err := log.Restore(s.Quests)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if len(dropped) > 0 {
		e.logger.Warn("dropping progress for retired quests", zap.Strings("quests", dropped))
	}
	// Quests unlocked by the restored level open even if they were added after the save.
	log.Unlock(s.Level)

	next := s.Clone()
	next.Quests = nil
	next.Holstered = nil
	if next.PlayerID == "" {
		next.PlayerID = uuid.NewString()
	}
	if next.Upgrades == nil {
		next.Upgrades = make(map[string]map[catalog.Stat]int)
	}
	// Saves written before lifetime kills were tracked only carry the run tally.
	next.Lifetime.Kills = max(next.Lifetime.Kills, next.Counters.Kills)
	def, _ := e.cat.Get(next.Equipped)

	e.state = next
	e.quests = log
	e.gates = make(map[string]*combat.Gate)
	e.mags = make(map[string]*combat.Magazine, len(s.Holstered)+1)
	for id, ammo := range s.Holstered {
		d, _ := e.cat.Get(id)
		e.mags[id] = holster(d, ammo)
	}
	e.mags[def.ID] = holster(def, s.Ammo)
	e.loadWeapon(def)
	e.target = nil
	if e.sched != nil {
		e.syncAutoFire(e.clock.Now())
	}
	e.logger.Info("state restored",
		zap.String("player", next.PlayerID),
		zap.Int("level", next.Level),
		zap.Int("prestige", next.Prestige),
		zap.String("equipped", next.Equipped),
	)
	e.publishWeapon(def)
	e.publishStats()
	return nil
}

// Statistics returns derived combat statistics.
func (e *Engine) Statistics() Statistics {
	c := e.state.Counters
	st := Statistics{
		Counters: c,
		Lifetime: e.state.Lifetime,
		PlayTime: e.state.PlayTime,
		Accuracy: percent(c.ShotsHit, c.ShotsFired),
		DPS:      e.effectiveStats().DPS(),
	}
	st.HeadshotRatio = percent(c.Headshots, c.ShotsHit)
	if c.ShotsFired > 0 {
		st.DamagePerShot = float64(c.TotalDamage) / float64(c.ShotsFired)
	}
	return st
}

func percent(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// Target returns the live target the engine fires at when Fire is given nil.
func (e *Engine) Target() (combat.Target, bool) {
	if e.target == nil {
		return combat.Target{}, false
	}
	return *e.target, true
}

// GateState reports the equipped weapon's rate-of-fire state at the current time.
func (e *Engine) GateState() combat.GateState {
	return e.gate.State(e.clock.Now())
}

// Fire shoots once. With a nil target the engine fires at its live target,
// spawning one in the current range when none is alive.
//
// Postcondition: Returns ErrNotReady or ErrOutOfAmmo with no state mutation, or the
// resolved Outcome with currency, experience and counters updated.
func (e *Engine) Fire(target *combat.Target) (combat.Outcome, error) {
	now := e.clock.Now()
	if e.mag.Reloading(now) || e.gate.State(now) != combat.Ready {
		return combat.Outcome{}, ErrNotReady
	}
	if e.mag.Loaded == 0 {
		return combat.Outcome{}, ErrOutOfAmmo
	}

	tgt := target
	if tgt == nil {
		tgt = e.liveTarget(now)
	}
	if err := e.gate.Begin(now); err != nil {
		return combat.Outcome{}, err
	}
	defer e.gate.End()
	if err := e.mag.Consume(); err != nil {
		return combat.Outcome{}, err
	}

	def := e.equipped()
	levels := e.state.Upgrades[def.ID]
	actor := combat.Actor{
		Stats:       catalog.EffectiveStats(def, levels),
		PlayerLevel: e.state.Level,
		WeaponLevel: catalog.WeaponLevel(levels),
	}
	out := combat.Resolve(actor, *tgt, e.rng, e.settings.Combat)

	c := &e.state.Counters
	c.ShotsFired++
	e.metrics.add(e.metrics.shots, 1, attribute.String("kind", out.Kind.String()))
	if out.IsHit() {
		c.ShotsHit++
		c.TotalDamage += out.Damage
		switch out.Kind {
		case combat.Headshot:
			c.Headshots++
		case combat.Critical:
			c.Criticals++
		}
		if tgt.BreaksCombo {
			c.Combo = 0
		} else {
			c.Combo++
			c.BestCombo = max(c.BestCombo, c.Combo)
		}
		if out.Killed {
			c.Kills++
			e.state.Lifetime.Kills++
			e.metrics.add(e.metrics.kills, 1, attribute.String("target", tgt.Kind))
			if e.target != nil && e.target.ID == tgt.ID {
				e.target = nil
			}
		}
		e.earn(e.scaleCurrency(out.Reward))
		e.gainExperience(e.scaleExperience(out.Damage / e.settings.ExperienceDivisor))
	} else {
		c.Combo = 0
	}
	e.observeQuests()

	e.logger.Debug("shot resolved",
		zap.String("weapon", def.ID),
		zap.String("kind", out.Kind.String()),
		zap.String("target", tgt.Kind),
		zap.Int("damage", out.Damage),
		zap.Int("reward", out.Reward),
		zap.Bool("killed", out.Killed),
	)
	e.bus.Publish(Notification{Event: EventHitResolved, Outcome: out})
	e.publishStats()
	return out, nil
}

// Reload starts reloading the equipped weapon.
//
// Postcondition: Returns ErrNotReady while already reloading, combat.ErrMagazineFull or
// combat.ErrNoReserve when there is nothing to do; otherwise the reload is started.
func (e *Engine) Reload() error {
	if err := e.mag.StartReload(e.clock.Now(), e.settings.ReloadTime); err != nil {
		return err
	}
	e.logger.Debug("reload started", zap.String("weapon", e.state.Equipped), zap.Duration("duration", e.settings.ReloadTime))
	e.bus.Publish(Notification{Event: EventReloaded, EntityID: e.state.Equipped})
	return nil
}

// ErrReserveFull is returned by Resupply when the reserve is already full.
var ErrReserveFull = errors.New("reserve ammunition full")

// Resupply buys reserve rounds for the equipped weapon up to its stock reserve.
//
// Postcondition: Returns the amount paid, or ErrReserveFull / ErrInsufficientFunds with
// no mutation.
func (e *Engine) Resupply() (int, error) {
	def := e.equipped()
	missing := def.ReserveAmmo - e.mag.Reserve
	if missing <= 0 {
		return 0, ErrReserveFull
	}
	cost := missing * e.settings.AmmoPrice
	if cost > e.state.Currency {
		return 0, fmt.Errorf("%w: resupply costs %d, balance %d", ErrInsufficientFunds, cost, e.state.Currency)
	}
	e.state.Currency -= cost
	e.mag.Reserve += missing
	e.publishStats()
	return cost, nil
}

// PurchaseUpgrade buys the next level of stat on an unlocked weapon.
//
// Postcondition: Returns the new level, or ErrInvalidEntity / ErrLocked /
// catalog.ErrUnknownStat / ErrMaxLevelReached / ErrInsufficientFunds with no mutation.
// The balance never goes negative.
func (e *Engine) PurchaseUpgrade(entityID string, stat catalog.Stat) (int, error) {
	def, err := e.cat.Get(entityID)
	if err != nil {
		return 0, err
	}
	if !e.state.IsUnlocked(entityID) {
		return 0, fmt.Errorf("%w: %q", ErrLocked, entityID)
	}
	up, ok := def.Upgrades[stat]
	if !ok {
		return 0, fmt.Errorf("%w: %q has no %q upgrade", catalog.ErrUnknownStat, entityID, stat)
	}
	level := e.state.UpgradeLevel(entityID, stat)
	if level >= up.MaxLevel {
		return 0, fmt.Errorf("%w: %q %s is at %d", ErrMaxLevelReached, entityID, stat, level)
	}
	cost, err := catalog.UpgradeCost(def, stat, level)
	if err != nil {
		return 0, err
	}
	if cost > e.state.Currency {
		return 0, fmt.Errorf("%w: %s costs %d, balance %d", ErrInsufficientFunds, stat, cost, e.state.Currency)
	}

	e.state.Currency -= cost
	if e.state.Upgrades[entityID] == nil {
		e.state.Upgrades[entityID] = make(map[catalog.Stat]int)
	}
	level++
	e.state.Upgrades[entityID][stat] = level
	e.state.Lifetime.UpgradesPurchased++
	if entityID == e.state.Equipped && stat == catalog.StatRateOfFire {
		e.gate.SetRate(e.effectiveStats().RateOfFire)
	}

	e.metrics.add(e.metrics.purchases, 1, attribute.String("stat", string(stat)))
	e.logger.Info("upgrade purchased",
		zap.String("weapon", entityID),
		zap.String("stat", string(stat)),
		zap.Int("level", level),
		zap.Int("cost", cost),
	)
	e.bus.Publish(Notification{Event: EventUpgradePurchased, EntityID: entityID, Stat: stat, Level: level})
	e.publishStats()
	return level, nil
}

// Evolve spends the evolution cost of fromID to unlock and equip its successor toID.
// The player level must reach fromID's required level.
//
// Postcondition: Requirements and funds are verified before anything is deducted;
// on error the state is unchanged.
func (e *Engine) Evolve(fromID, toID string) error {
	from, err := e.cat.Get(fromID)
	if err != nil {
		return err
	}
	to, err := e.cat.Get(toID)
	if err != nil {
		return err
	}
	if !e.state.IsUnlocked(fromID) {
		return fmt.Errorf("%w: %q", ErrLocked, fromID)
	}
	if !slices.Contains(catalog.EvolutionTargets(from), toID) {
		return fmt.Errorf("%w: %q does not evolve into %q", ErrRequirementNotMet, fromID, toID)
	}
	if e.state.IsUnlocked(toID) {
		return fmt.Errorf("%w: %q is already unlocked", ErrRequirementNotMet, toID)
	}
	if e.state.Level < from.Evolution.RequiredLevel {
		return fmt.Errorf("%w: level %d, %q requires %d", ErrRequirementNotMet, e.state.Level, fromID, from.Evolution.RequiredLevel)
	}
	if from.Evolution.Cost > e.state.Currency {
		return fmt.Errorf("%w: evolution costs %d, balance %d", ErrInsufficientFunds, from.Evolution.Cost, e.state.Currency)
	}

	e.state.Currency -= from.Evolution.Cost
	e.state.unlock(toID)
	e.state.Lifetime.WeaponsUnlocked++
	e.state.Lifetime.Evolutions++
	e.state.Equipped = toID
	e.loadWeapon(to)

	e.metrics.add(e.metrics.evolutions, 1, attribute.String("to", toID))
	e.logger.Info("weapon evolved",
		zap.String("from", fromID),
		zap.String("to", toID),
		zap.Int("cost", from.Evolution.Cost),
	)
	e.bus.Publish(Notification{Event: EventEvolutionCompleted, FromID: fromID, ToID: toID})
	e.publishWeapon(to)
	e.publishStats()
	return nil
}

// Equip switches to an unlocked weapon. A weapon drawn before keeps its rounds and
// cooldown; one never drawn comes with a full magazine and stock reserve.
//
// Postcondition: Returns ErrInvalidEntity or ErrLocked with no mutation.
func (e *Engine) Equip(id string) error {
	def, err := e.cat.Get(id)
	if err != nil {
		return err
	}
	if !e.state.IsUnlocked(id) {
		return fmt.Errorf("%w: %q", ErrLocked, id)
	}
	if id == e.state.Equipped {
		return nil
	}
	e.state.Equipped = id
	e.loadWeapon(def)
	e.publishWeapon(def)
	e.publishStats()
	return nil
}

// SetRange moves the player to another range and discards the live target.
//
// Postcondition: Returns catalog.ErrUnknownRange with no mutation for an unknown id.
func (e *Engine) SetRange(id string) error {
	if _, err := e.cat.Range(id); err != nil {
		return err
	}
	e.state.Range = id
	e.target = nil
	e.publishStats()
	return nil
}

// ToggleAutoFire flips auto-fire and returns the new setting. When a Scheduler is
// attached, turning it off also cancels an auto-fire run already due.
func (e *Engine) ToggleAutoFire() bool {
	e.state.AutoFire = !e.state.AutoFire
	if e.sched != nil {
		e.syncAutoFire(e.clock.Now())
	}
	e.bus.Publish(Notification{Event: EventAutoFireToggled, AutoFire: e.state.AutoFire})
	return e.state.AutoFire
}

func (e *Engine) equipped() *catalog.Definition {
	def, err := e.cat.Get(e.state.Equipped)
	if err != nil {
		// Equipped is validated on every write.
		panic(fmt.Sprintf("engine: equipped weapon %q missing from catalog", e.state.Equipped))
	}
	return def
}

func (e *Engine) effectiveStats() catalog.StatBundle {
	def := e.equipped()
	return catalog.EffectiveStats(def, e.state.Upgrades[def.ID])
}

// loadWeapon makes def's magazine and gate current, creating them on first draw.
// An existing gate keeps its last shot and picks up the current rate of fire.
func (e *Engine) loadWeapon(def *catalog.Definition) {
	rpm := catalog.EffectiveStats(def, e.state.Upgrades[def.ID]).RateOfFire
	gate, ok := e.gates[def.ID]
	if ok {
		gate.SetRate(rpm)
	} else {
		gate = combat.NewGate(rpm)
		e.gates[def.ID] = gate
	}
	mag, ok := e.mags[def.ID]
	if !ok {
		mag = combat.NewMagazine(def.MagazineCapacity, def.ReserveAmmo)
		e.mags[def.ID] = mag
	}
	e.gate, e.mag = gate, mag
}

func holster(def *catalog.Definition, ammo Ammo) *combat.Magazine {
	mag := combat.NewMagazine(def.MagazineCapacity, ammo.Reserve)
	mag.Loaded = ammo.Loaded
	return mag
}

func (e *Engine) liveTarget(now time.Time) *combat.Target {
	if e.target == nil || e.target.Expired(now) {
		e.spawn(now)
	}
	return e.target
}

func (e *Engine) spawn(now time.Time) {
	r, err := e.cat.Range(e.state.Range)
	if err != nil {
		panic(fmt.Sprintf("engine: range %q missing from catalog", e.state.Range))
	}
	t := e.spawner.Spawn(e.rng, r, now)
	e.target = &t
}

func (e *Engine) earn(amount int) {
	if amount <= 0 {
		return
	}
	e.state.Currency += amount
	e.state.Lifetime.TotalEarned += amount
	e.metrics.add(e.metrics.earned, amount)
}

// gainExperience adds xp and processes every level threshold crossed.
func (e *Engine) gainExperience(xp int) {
	if xp <= 0 {
		return
	}
	e.state.Experience += xp
	for e.state.Experience >= progression.ExperienceForLevel(e.state.Level+1) {
		e.state.Level++
		e.earn(e.state.Level * e.settings.LevelUpBonus)
		e.metrics.add(e.metrics.levelUps, 1)
		e.logger.Info("level up", zap.Int("level", e.state.Level), zap.Int("experience", e.state.Experience))
		e.bus.Publish(Notification{Event: EventLevelUp, Level: e.state.Level})
		for _, id := range e.quests.Unlock(e.state.Level) {
			e.logger.Debug("quest unlocked", zap.String("quest", id))
		}
	}
}

func (e *Engine) publishStats() {
	if !e.bus.Has(EventStatsChanged) {
		return
	}
	s := e.Snapshot()
	e.bus.Publish(Notification{Event: EventStatsChanged, State: &s})
}

func (e *Engine) publishWeapon(def *catalog.Definition) {
	e.bus.Publish(Notification{Event: EventWeaponChanged, Weapon: def, EntityID: def.ID})
}

// accrue adds wall time since the last accrual to PlayTime.
func (e *Engine) accrue(now time.Time) {
	if d := now.Sub(e.lastAccrual); d > 0 {
		e.state.PlayTime += d
	}
	e.lastAccrual = now
}
