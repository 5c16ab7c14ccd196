package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/quest"
)

// Counters are the per-run combat tallies reset by prestige.
type Counters struct {
	ShotsFired  int `json:"shots_fired"`
	ShotsHit    int `json:"shots_hit"`
	Headshots   int `json:"headshots"`
	Criticals   int `json:"criticals"`
	Kills       int `json:"kills"`
	TotalDamage int `json:"total_damage"`
	Combo       int `json:"combo"`
	BestCombo   int `json:"best_combo"`
}

// Lifetime are cumulative totals that survive prestige.
type Lifetime struct {
	TotalEarned       int `json:"total_earned"`
	UpgradesPurchased int `json:"upgrades_purchased"`
	WeaponsUnlocked   int `json:"weapons_unlocked"`
	Evolutions        int `json:"evolutions"`
	QuestsCompleted   int `json:"quests_completed"`
	// Kills counts targets destroyed across every run.
	Kills int `json:"kills"`
}

// Ammo is the persisted magazine of one weapon.
type Ammo struct {
	Loaded  int `json:"loaded"`
	Reserve int `json:"reserve"`
}

// State is the complete player progression state. It is a plain value: the engine
// owns the live copy and hands out deep copies through Snapshot.
type State struct {
	PlayerID   string        `json:"player_id"`
	Currency   int           `json:"currency"`
	Experience int           `json:"experience"`
	Level      int           `json:"level"`
	Prestige   int           `json:"prestige"`
	PlayTime   time.Duration `json:"play_time"`
	Counters   Counters      `json:"counters"`
	Lifetime   Lifetime      `json:"lifetime"`
	Equipped   string        `json:"equipped"`
	// Unlocked lists owned weapon ids in sorted order.
	Unlocked []string `json:"unlocked"`
	// Upgrades holds purchased levels per weapon id and stat.
	Upgrades map[string]map[catalog.Stat]int `json:"upgrades"`
	Range    string                          `json:"range"`
	AutoFire bool                            `json:"auto_fire"`
	Ammo     Ammo                            `json:"ammo"`
	// Holstered keeps the magazines of unlocked weapons other than the equipped one.
	Holstered map[string]Ammo           `json:"holstered,omitempty"`
	Quests    map[string]quest.Progress `json:"quests,omitempty"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Unlocked = slices.Clone(s.Unlocked)
	if s.Upgrades != nil {
		out.Upgrades = make(map[string]map[catalog.Stat]int, len(s.Upgrades))
		for id, levels := range s.Upgrades {
			out.Upgrades[id] = maps.Clone(levels)
		}
	}
	out.Holstered = maps.Clone(s.Holstered)
	out.Quests = maps.Clone(s.Quests)
	return out
}

// IsUnlocked reports whether id is owned.
func (s *State) IsUnlocked(id string) bool {
	_, found := slices.BinarySearch(s.Unlocked, id)
	return found
}

func (s *State) unlock(id string) bool {
	i, found := slices.BinarySearch(s.Unlocked, id)
	if found {
		return false
	}
	s.Unlocked = slices.Insert(s.Unlocked, i, id)
	return true
}

func (a Ammo) fits(def *catalog.Definition) bool {
	return a.Loaded >= 0 && a.Loaded <= def.MagazineCapacity && a.Reserve >= 0
}

// UpgradeLevel returns the purchased level of stat on entity id.
func (s *State) UpgradeLevel(id string, stat catalog.Stat) int {
	return s.Upgrades[id][stat]
}

// Validate checks s against cat.
//
// Postcondition: Returns nil, or an error wrapping ErrInvalidState listing every violation.
func (s *State) Validate(cat *catalog.Catalog) error {
	var errs []error
	if s.Currency < 0 {
		errs = append(errs, fmt.Errorf("currency %d is negative", s.Currency))
	}
	if s.Experience < 0 {
		errs = append(errs, fmt.Errorf("experience %d is negative", s.Experience))
	}
	if s.Level < 1 {
		errs = append(errs, fmt.Errorf("level %d is below 1", s.Level))
	}
	if s.Prestige < 0 {
		errs = append(errs, fmt.Errorf("prestige %d is negative", s.Prestige))
	}
	if s.PlayTime < 0 {
		errs = append(errs, fmt.Errorf("play time %s is negative", s.PlayTime))
	}
	if !slices.IsSorted(s.Unlocked) || len(slices.Compact(slices.Clone(s.Unlocked))) != len(s.Unlocked) {
		errs = append(errs, errors.New("unlocked list must be sorted and unique"))
	}
	for _, id := range s.Unlocked {
		if _, err := cat.Get(id); err != nil {
			errs = append(errs, err)
		}
	}
	def, err := cat.Get(s.Equipped)
	if err != nil {
		errs = append(errs, err)
	} else {
		if !s.IsUnlocked(s.Equipped) {
			errs = append(errs, fmt.Errorf("equipped %q is not unlocked", s.Equipped))
		}
		if !s.Ammo.fits(def) {
			errs = append(errs, fmt.Errorf("ammo %+v out of bounds for %q", s.Ammo, def.ID))
		}
	}
	for id, ammo := range s.Holstered {
		d, err := cat.Get(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch {
		case id == s.Equipped:
			errs = append(errs, fmt.Errorf("holstered %q is the equipped weapon", id))
		case !s.IsUnlocked(id):
			errs = append(errs, fmt.Errorf("holstered %q is not unlocked", id))
		case !ammo.fits(d):
			errs = append(errs, fmt.Errorf("holstered ammo %+v out of bounds for %q", ammo, id))
		}
	}
	for id, levels := range s.Upgrades {
		d, err := cat.Get(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for stat, lvl := range levels {
			up, ok := d.Upgrades[stat]
			if !ok {
				errs = append(errs, fmt.Errorf("%q has no %q upgrade", id, stat))
				continue
			}
			if lvl < 0 || lvl > up.MaxLevel {
				errs = append(errs, fmt.Errorf("%q %s level %d outside [0,%d]", id, stat, lvl, up.MaxLevel))
			}
		}
	}
	if _, err := cat.Range(s.Range); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidState, errs)
	}
	return nil
}
