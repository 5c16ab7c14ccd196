package server

import (
	"errors"
	"sync"
	"time"
)

// Ticker is a Service that calls Fn every Period on the goroutine running Start.
// Everything Fn touches is therefore confined to that one goroutine.
type Ticker struct {
	Period time.Duration
	Fn     func(now time.Time)
	// OnStop, if set, runs on the ticking goroutine after the last tick.
	OnStop func()

	once sync.Once
	done chan struct{}
	exit chan struct{}
}

// NewTicker returns a Ticker calling fn every period.
//
// Precondition: period > 0; fn must be non-nil.
func NewTicker(period time.Duration, fn func(now time.Time)) *Ticker {
	return &Ticker{
		Period: period,
		Fn:     fn,
		done:   make(chan struct{}),
		exit:   make(chan struct{}),
	}
}

// Start ticks until Stop is called.
func (t *Ticker) Start() error {
	defer close(t.exit)
	if t.Period <= 0 {
		return errors.New("ticker period must be positive")
	}
	tk := time.NewTicker(t.Period)
	defer tk.Stop()
	for {
		select {
		case <-t.done:
			if t.OnStop != nil {
				t.OnStop()
			}
			return nil
		case now := <-tk.C:
			t.Fn(now)
		}
	}
}

// Stop ends the loop and waits for OnStop to finish. Safe to call more than once.
//
// Precondition: Start has been or will be called.
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.done) })
	<-t.exit
}
