package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateTask is returned when registering a task name twice.
var ErrDuplicateTask = errors.New("task already registered")

// ErrUnknownTask is returned when starting a task that was never registered.
var ErrUnknownTask = errors.New("unknown task")

type task struct {
	name    string
	period  time.Duration
	run     func(now time.Time)
	next    time.Time
	stopped bool
}

// Scheduler multiplexes periodic tasks onto a single cooperative Tick.
// The host calls Tick from its loop; Scheduler itself never starts goroutines.
//
// Invariant: a task runs at most once per Tick and never more often than its period.
// Scheduler is not safe for concurrent use.
type Scheduler struct {
	tasks  []*task
	byName map[string]*task
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{byName: make(map[string]*task)}
}

// Every registers fn to run every period, first due at start+period.
//
// Precondition: period > 0; fn must not be nil.
// Postcondition: Returns ErrDuplicateTask if name is taken.
func (s *Scheduler) Every(name string, period time.Duration, start time.Time, fn func(now time.Time)) error {
	if period <= 0 {
		return fmt.Errorf("scheduler: task %q: period must be > 0, got %s", name, period)
	}
	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, name)
	}
	t := &task{name: name, period: period, run: fn, next: start.Add(period)}
	s.tasks = append(s.tasks, t)
	s.byName[name] = t
	return nil
}

// Tick runs every running task that is due at now, in registration order.
// A task stopped by an earlier task in the same Tick does not run. Missed periods
// are not replayed: a late task runs once and is rescheduled from now.
//
// Postcondition: Returns the number of tasks run.
func (s *Scheduler) Tick(now time.Time) int {
	ran := 0
	for _, t := range s.tasks {
		if t.stopped || now.Before(t.next) {
			continue
		}
		t.next = now.Add(t.period)
		t.run(now)
		ran++
	}
	return ran
}

// Stop cancels name. Stopping an unknown or stopped task is a no-op.
//
// Postcondition: the task does not run again until Start is called, even if it is
// already due in the current Tick.
func (s *Scheduler) Stop(name string) {
	if t, ok := s.byName[name]; ok {
		t.stopped = true
	}
}

// Start resumes a stopped task with its next run one period after now.
// Starting a running task is a no-op.
func (s *Scheduler) Start(name string, now time.Time) error {
	t, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	if t.stopped {
		t.stopped = false
		t.next = now.Add(t.period)
	}
	return nil
}

// Running reports whether name is registered and not stopped.
func (s *Scheduler) Running(name string) bool {
	t, ok := s.byName[name]
	return ok && !t.stopped
}
