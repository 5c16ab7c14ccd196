// Package quest tracks optional contracts (kill, accuracy and combo goals) and the
// rewards they pay out.
package quest

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed content/quests.yaml
var defaultContent embed.FS

var (
	// ErrUnknownQuest is returned for a quest id that is not defined.
	ErrUnknownQuest = errors.New("unknown quest")
	// ErrNotAvailable is returned when accepting a quest that is locked, active or completed.
	ErrNotAvailable = errors.New("quest not available")
	// ErrNotReady is returned when completing a quest whose goal is not yet met.
	ErrNotReady = errors.New("quest goal not met")
)

// Kind selects which statistic drives a quest's progress.
type Kind string

const (
	// KindKill counts targets killed since the quest was accepted.
	KindKill Kind = "kill"
	// KindAccuracy tracks the player's overall accuracy percentage.
	KindAccuracy Kind = "accuracy"
	// KindCombo tracks the best combo reached since the quest was accepted.
	KindCombo Kind = "combo"
)

// Status is the lifecycle state of one quest.
type Status string

const (
	Locked    Status = "locked"
	Available Status = "available"
	Active    Status = "active"
	Completed Status = "completed"
)

// Reward is paid once when a quest is completed.
type Reward struct {
	Currency   int `yaml:"currency" json:"currency"`
	Experience int `yaml:"experience" json:"experience"`
}

// Definition is a static quest record.
type Definition struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        Kind   `yaml:"kind"`
	Goal        int    `yaml:"goal"`
	// UnlockLevel is the player level at which a locked quest opens; 0 means open from the start.
	UnlockLevel int    `yaml:"unlock_level"`
	Reward      Reward `yaml:"reward"`
}

// Validate checks the Definition's invariants.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	switch d.Kind {
	case KindKill, KindAccuracy, KindCombo:
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", d.Kind))
	}
	if d.Goal < 1 {
		errs = append(errs, fmt.Errorf("goal must be >= 1, got %d", d.Goal))
	}
	if d.Kind == KindAccuracy && d.Goal > 100 {
		errs = append(errs, fmt.Errorf("accuracy goal must be <= 100, got %d", d.Goal))
	}
	if d.Reward.Currency < 0 || d.Reward.Experience < 0 {
		errs = append(errs, errors.New("reward must be non-negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("quest %q validation failed: %v", d.ID, errs)
	}
	return nil
}

// Progress is the persisted per-quest state.
type Progress struct {
	Status Status `json:"status"`
	// Value is the current progress toward Goal, capped at Goal.
	Value int `json:"value"`
	// Baseline is the kill count when a kill quest was accepted.
	Baseline int `json:"baseline,omitempty"`
}

// Stats is the slice of player statistics quests observe.
type Stats struct {
	// Kills must never decrease; kill quests count from the value at acceptance.
	Kills int
	// Accuracy is a percentage in [0, 100].
	Accuracy float64
	Combo    int
}

// Default parses the embedded quest table.
func Default() ([]*Definition, error) {
	return Load(defaultContent, "content/quests.yaml")
}

// Load parses and validates the quest table at name in fsys.
func Load(fsys fs.FS, name string) ([]*Definition, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("quest.Load: cannot read %q: %w", name, err)
	}
	var defs []*Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("quest.Load: cannot parse %q: %w", name, err)
	}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("quest.Load: %w", err)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("quest.Load: quest ID %q already registered", d.ID)
		}
		seen[d.ID] = true
	}
	return defs, nil
}

// Log holds the progress of every defined quest for one player.
//
// Log is not safe for concurrent use; it is owned by a single engine.
type Log struct {
	defs    map[string]*Definition
	order   []string
	entries map[string]*Progress
}

// NewLog returns a Log with every quest either Available or, when it has an
// UnlockLevel, Locked.
//
// Precondition: defs have been validated and have unique IDs.
func NewLog(defs []*Definition) *Log {
	l := &Log{
		defs:    make(map[string]*Definition, len(defs)),
		entries: make(map[string]*Progress, len(defs)),
	}
	for _, d := range defs {
		l.defs[d.ID] = d
		l.order = append(l.order, d.ID)
		status := Available
		if d.UnlockLevel > 0 {
			status = Locked
		}
		l.entries[d.ID] = &Progress{Status: status}
	}
	return l
}

// Definition returns the quest definition for id.
func (l *Log) Definition(id string) (*Definition, error) {
	d, ok := l.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuest, id)
	}
	return d, nil
}

// Get returns a copy of the progress for id.
func (l *Log) Get(id string) (Progress, error) {
	p, ok := l.entries[id]
	if !ok {
		return Progress{}, fmt.Errorf("%w: %q", ErrUnknownQuest, id)
	}
	return *p, nil
}

// Unlock opens every locked quest whose UnlockLevel is <= level.
//
// Postcondition: Returns the ids newly moved to Available, in definition order.
func (l *Log) Unlock(level int) []string {
	var opened []string
	for _, id := range l.order {
		p := l.entries[id]
		if p.Status == Locked && level >= l.defs[id].UnlockLevel {
			p.Status = Available
			opened = append(opened, id)
		}
	}
	return opened
}

// Accept activates an Available quest, recording the stats baseline.
//
// Postcondition: Returns ErrUnknownQuest or ErrNotAvailable without mutation on failure.
func (l *Log) Accept(id string, s Stats) error {
	p, ok := l.entries[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuest, id)
	}
	if p.Status != Available {
		return fmt.Errorf("%w: %q is %s", ErrNotAvailable, id, p.Status)
	}
	*p = Progress{Status: Active, Baseline: s.Kills}
	l.observe(id, s)
	return nil
}

// Observe updates every active quest from s.
//
// Postcondition: Returns the ids of active quests whose goal is met, in definition order.
func (l *Log) Observe(s Stats) []string {
	var ready []string
	for _, id := range l.order {
		if l.entries[id].Status != Active {
			continue
		}
		if l.observe(id, s) {
			ready = append(ready, id)
		}
	}
	return ready
}

func (l *Log) observe(id string, s Stats) bool {
	d, p := l.defs[id], l.entries[id]
	var v int
	switch d.Kind {
	case KindKill:
		v = s.Kills - p.Baseline
	case KindAccuracy:
		v = int(math.Floor(s.Accuracy))
	case KindCombo:
		v = max(p.Value, s.Combo)
	}
	p.Value = min(max(v, 0), d.Goal)
	return p.Value >= d.Goal
}

// Complete marks an active quest whose goal is met as Completed and returns its reward.
//
// Postcondition: A quest pays its reward at most once.
func (l *Log) Complete(id string) (Reward, error) {
	p, ok := l.entries[id]
	if !ok {
		return Reward{}, fmt.Errorf("%w: %q", ErrUnknownQuest, id)
	}
	d := l.defs[id]
	if p.Status != Active || p.Value < d.Goal {
		return Reward{}, fmt.Errorf("%w: %q", ErrNotReady, id)
	}
	p.Status = Completed
	return d.Reward, nil
}

// Snapshot returns a deep copy of all progress keyed by quest id.
func (l *Log) Snapshot() map[string]Progress {
	out := make(map[string]Progress, len(l.entries))
	for id, p := range l.entries {
		out[id] = *p
	}
	return out
}

// Restore replaces progress with entries. Quests absent from entries keep their
// initial state. Entries for quests no longer defined are skipped and their ids
// returned in sorted order.
//
// Postcondition: On error the Log is unchanged.
func (l *Log) Restore(entries map[string]Progress) (dropped []string, err error) {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		if _, ok := l.defs[id]; !ok {
			dropped = append(dropped, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	sort.Strings(dropped)
	for _, id := range ids {
		switch entries[id].Status {
		case Locked, Available, Active, Completed:
		default:
			return nil, fmt.Errorf("quest %q: invalid status %q", id, entries[id].Status)
		}
	}
	for _, id := range ids {
		p := entries[id]
		p.Value = min(max(p.Value, 0), l.defs[id].Goal)
		*l.entries[id] = p
	}
	return dropped, nil
}
