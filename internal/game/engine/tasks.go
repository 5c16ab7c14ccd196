package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finnkarter/gameosdpas/internal/game/combat"
)

// Task names registered by Attach.
const (
	TaskAutoFire = "autofire"
	TaskSpawn    = "spawn"
	TaskPlayTime = "playtime"
	TaskAutoSave = "autosave"
)

// Intervals are the periods of the engine's scheduled tasks.
type Intervals struct {
	AutoFire time.Duration `mapstructure:"auto_fire"`
	Spawn    time.Duration `mapstructure:"spawn"`
	PlayTime time.Duration `mapstructure:"play_time"`
	AutoSave time.Duration `mapstructure:"auto_save"`
}

// DefaultIntervals returns auto-fire 100ms, spawn 1s, play time 1s, auto-save 30s.
func DefaultIntervals() Intervals {
	return Intervals{
		AutoFire: 100 * time.Millisecond,
		Spawn:    time.Second,
		PlayTime: time.Second,
		AutoSave: 30 * time.Second,
	}
}

type taskSpec struct {
	name   string
	period time.Duration
	fn     func(time.Time)
}

// Attach registers the engine's periodic tasks on s. Auto-save is registered only
// when saver is non-nil. The auto-fire task runs only while auto-fire is on.
//
// Precondition: Attach is called at most once per engine.
func (e *Engine) Attach(s *Scheduler, saver *Saver, iv Intervals) error {
	if e.sched != nil {
		return errors.New("engine.Attach: already attached")
	}
	now := e.clock.Now()
	e.lastAccrual = now
	tasks := []taskSpec{
		{TaskPlayTime, iv.PlayTime, e.accrue},
		{TaskSpawn, iv.Spawn, e.spawnDue},
		{TaskAutoFire, iv.AutoFire, e.autoFire},
	}
	if saver != nil {
		tasks = append(tasks, taskSpec{TaskAutoSave, iv.AutoSave, e.autoSave})
	}
	for _, t := range tasks {
		if err := s.Every(t.name, t.period, now, t.fn); err != nil {
			return fmt.Errorf("engine.Attach: %w", err)
		}
	}
	e.sched = s
	e.saver = saver
	e.syncAutoFire(now)
	return nil
}

func (e *Engine) syncAutoFire(now time.Time) {
	if e.state.AutoFire {
		_ = e.sched.Start(TaskAutoFire, now)
		return
	}
	e.sched.Stop(TaskAutoFire)
}

func (e *Engine) spawnDue(now time.Time) {
	if e.target == nil || e.target.Expired(now) {
		e.spawn(now)
	}
}

// autoFire shoots at the live target, reloading when empty and buying reserve
// rounds when the reserve is dry and affordable.
func (e *Engine) autoFire(time.Time) {
	_, err := e.Fire(nil)
	if !errors.Is(err, ErrOutOfAmmo) {
		return
	}
	err = e.Reload()
	if errors.Is(err, combat.ErrNoReserve) {
		if _, err := e.Resupply(); err != nil {
			e.logger.Debug("auto-fire stalled", zap.Error(err))
			return
		}
		err = e.Reload()
	}
	if err != nil {
		e.logger.Debug("auto reload failed", zap.Error(err))
	}
}

func (e *Engine) autoSave(time.Time) {
	_ = e.Save()
}
