package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/finnkarter/gameosdpas/internal/game/progression"
)

//go:embed content/*.yaml
var defaultContent embed.FS

// weaponsFile and worldFile are the content file names read by Load.
const (
	weaponsFile = "weapons.yaml"
	worldFile   = "world.yaml"
)

type worldContent struct {
	Ranges  []*Range      `yaml:"ranges"`
	Targets []*TargetKind `yaml:"targets"`
}

// Catalog holds all weapon, range and target definitions indexed by ID.
// It is immutable after construction and safe for concurrent reads.
type Catalog struct {
	defs     map[string]*Definition
	order    []string
	starting string
	ranges   map[string]*Range
	targets  map[string]*TargetKind
	kinds    []string
}

// Default returns the catalog built from the embedded content tables.
//
// Postcondition: Returns a validated Catalog or a non-nil error.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultContent, "content")
	if err != nil {
		return nil, fmt.Errorf("catalog: opening embedded content: %w", err)
	}
	return Load(sub)
}

// LoadDir reads weapons.yaml and world.yaml from dir.
//
// Precondition: dir is a readable directory path.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Load parses weapons.yaml and world.yaml from fsys and validates every record.
// The first weapon listed becomes the starting weapon.
//
// Postcondition: Returns a Catalog whose evolution graph only references known IDs,
// or the first encountered error.
func Load(fsys fs.FS) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, weaponsFile)
	if err != nil {
		return nil, fmt.Errorf("catalog.Load: cannot read %q: %w", weaponsFile, err)
	}
	var defs []*Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("catalog.Load: cannot parse %q: %w", weaponsFile, err)
	}

	data, err = fs.ReadFile(fsys, worldFile)
	if err != nil {
		return nil, fmt.Errorf("catalog.Load: cannot read %q: %w", worldFile, err)
	}
	var world worldContent
	if err := yaml.Unmarshal(data, &world); err != nil {
		return nil, fmt.Errorf("catalog.Load: cannot parse %q: %w", worldFile, err)
	}
	return New(defs, world.Ranges, world.Targets)
}

// New builds a Catalog from already-parsed records.
//
// Precondition: defs must be non-empty; defs[0] is the starting weapon.
// Postcondition: Returns a validated Catalog or an error naming the first violation.
func New(defs []*Definition, ranges []*Range, targets []*TargetKind) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog.New: at least one weapon definition is required")
	}
	c := &Catalog{
		defs:    make(map[string]*Definition, len(defs)),
		ranges:  make(map[string]*Range, len(ranges)),
		targets: make(map[string]*TargetKind, len(targets)),
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("catalog.New: %w", err)
		}
		if _, exists := c.defs[d.ID]; exists {
			return nil, fmt.Errorf("catalog.New: weapon ID %q already registered", d.ID)
		}
		c.defs[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	c.starting = defs[0].ID
	for _, d := range defs {
		if d.Evolution == nil {
			continue
		}
		for _, id := range d.Evolution.Unlocks {
			if _, ok := c.defs[id]; !ok {
				return nil, fmt.Errorf("catalog.New: %q evolves into unknown weapon %q", d.ID, id)
			}
		}
	}
	for _, r := range ranges {
		if r.ID == "" || r.BaseValue < 0 || r.Multiplier <= 0 {
			return nil, fmt.Errorf("catalog.New: invalid range %+v", *r)
		}
		if _, exists := c.ranges[r.ID]; exists {
			return nil, fmt.Errorf("catalog.New: range ID %q already registered", r.ID)
		}
		c.ranges[r.ID] = r
	}
	for _, k := range targets {
		if k.ID == "" || k.HP < 1 || k.ValueMultiplier < 0 || k.SpawnWeight < 0 {
			return nil, fmt.Errorf("catalog.New: invalid target kind %+v", *k)
		}
		if _, exists := c.targets[k.ID]; exists {
			return nil, fmt.Errorf("catalog.New: target kind %q already registered", k.ID)
		}
		c.targets[k.ID] = k
		c.kinds = append(c.kinds, k.ID)
	}
	return c, nil
}

// Get returns the Definition for id.
//
// Postcondition: Returns (def, nil) or (nil, ErrInvalidEntity).
func (c *Catalog) Get(id string) (*Definition, error) {
	d, ok := c.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntity, id)
	}
	return d, nil
}

// All returns every Definition in content order.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

// ByTier returns the definitions of tier, sorted by name.
func (c *Catalog) ByTier(tier int) []*Definition {
	var out []*Definition
	for _, id := range c.order {
		if d := c.defs[id]; d.Tier == tier {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Starting returns the weapon every fresh or prestiged player is given.
func (c *Catalog) Starting() *Definition {
	return c.defs[c.starting]
}

// Range returns the range for id.
func (c *Catalog) Range(id string) (*Range, error) {
	r, ok := c.ranges[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRange, id)
	}
	return r, nil
}

// Target returns the target kind for id.
func (c *Catalog) Target(id string) (*TargetKind, error) {
	k, ok := c.targets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, id)
	}
	return k, nil
}

// TargetKinds returns all target kinds in content order.
func (c *Catalog) TargetKinds() []*TargetKind {
	out := make([]*TargetKind, 0, len(c.kinds))
	for _, id := range c.kinds {
		out = append(out, c.targets[id])
	}
	return out
}

// EffectiveStats applies purchased upgrade levels on top of def's base stats.
// Levels above an upgrade's MaxLevel count as MaxLevel; levels for stats def
// cannot upgrade are ignored. Accuracy is clamped to [0, 100].
//
// Postcondition: Pure; identical inputs always yield identical output.
func EffectiveStats(def *Definition, levels map[Stat]int) StatBundle {
	stats := def.Stats
	for _, s := range AllStats {
		up, ok := def.Upgrades[s]
		if !ok {
			continue
		}
		lvl := progression.Clamp(levels[s], 0, up.MaxLevel)
		if lvl == 0 {
			continue
		}
		stats = stats.add(s, PerLevelBonus(s, def.Stats.Get(s))*lvl)
	}
	stats.Accuracy = progression.Clamp(stats.Accuracy, 0, 100)
	return stats
}

// WeaponLevel derives a weapon's level from its purchased upgrades: one level per
// three upgrade levels bought.
//
// Postcondition: Returns >= 0.
func WeaponLevel(levels map[Stat]int) int {
	total := 0
	for _, l := range levels {
		total += max(l, 0)
	}
	return total / 3
}

// UpgradeCost prices the next level of stat for def at currentLevel.
//
// Postcondition: Returns the cost, or ErrUnknownStat when def has no such upgrade.
func UpgradeCost(def *Definition, s Stat, currentLevel int) (int, error) {
	up, ok := def.Upgrades[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q has no %q upgrade", ErrUnknownStat, def.ID, s)
	}
	factor := up.ScalingFactor
	if factor == 0 {
		factor = progression.DefaultScalingFactor
	}
	return progression.UpgradeCost(up.BaseCost, currentLevel, factor), nil
}

// EvolutionTargets returns the successor IDs def can evolve into; callers filter
// by the player's level against def.Evolution.RequiredLevel.
//
// Postcondition: Returns a fresh slice (nil when def has no evolution).
func EvolutionTargets(def *Definition) []string {
	if def.Evolution == nil {
		return nil
	}
	return slices.Clone(def.Evolution.Unlocks)
}
