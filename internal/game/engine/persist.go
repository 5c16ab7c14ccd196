package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Persister stores and retrieves snapshots. Implementations live in internal/storage.
type Persister interface {
	// Save writes st, replacing any previous snapshot.
	Save(ctx context.Context, st State) error
	// Load returns the last saved snapshot, ErrSnapshotNotFound, ErrSnapshotCorrupt,
	// or ErrPersistenceUnavailable.
	Load(ctx context.Context) (State, error)
}

// Saver writes snapshots in the background so the engine never waits on storage.
// Failures are logged and queued for the engine to publish on its own goroutine.
//
// Saver is safe for concurrent use.
type Saver struct {
	p       Persister
	logger  *zap.Logger
	timeout time.Duration
	metrics *instruments

	wg       sync.WaitGroup
	mu       sync.Mutex
	inFlight bool
	failures []error
}

// NewSaver wraps p. Each background save is bounded by timeout.
//
// Precondition: p and logger must be non-nil; timeout > 0.
func NewSaver(p Persister, logger *zap.Logger, timeout time.Duration) (*Saver, error) {
	metrics, err := newInstruments()
	if err != nil {
		return nil, err
	}
	return &Saver{p: p, logger: logger, timeout: timeout, metrics: metrics}, nil
}

// Save starts writing st in the background and returns immediately. A save
// requested while another is running is skipped; the next one carries newer state.
//
// Postcondition: Returns false when the save was skipped.
func (s *Saver) Save(st State) bool {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Debug("save skipped, previous save still running")
		return false
	}
	s.inFlight = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		err := s.SaveNow(ctx, st)
		s.mu.Lock()
		s.inFlight = false
		if err != nil {
			s.failures = append(s.failures, err)
		}
		s.mu.Unlock()
	}()
	return true
}

// SaveNow writes st synchronously. Used for the final save on shutdown.
func (s *Saver) SaveNow(ctx context.Context, st State) error {
	start := time.Now()
	err := s.p.Save(ctx, st)
	if err != nil {
		s.metrics.add(s.metrics.saves, 1, attribute.String("result", "error"))
		s.logger.Warn("snapshot save failed", zap.String("player", st.PlayerID), zap.Error(err))
		return err
	}
	s.metrics.add(s.metrics.saves, 1, attribute.String("result", "ok"))
	s.logger.Debug("snapshot saved", zap.String("player", st.PlayerID), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Failures drains and returns the errors of completed background saves.
func (s *Saver) Failures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.failures
	s.failures = nil
	return out
}

// Wait blocks until every background save has finished.
func (s *Saver) Wait() {
	s.wg.Wait()
}

// LoadState reads the last snapshot from p.
//
// Postcondition: Returns (state, true, nil) when a snapshot was found; (zero, false, nil)
// for ErrSnapshotNotFound and ErrSnapshotCorrupt, which both mean a fresh start;
// any other error is returned.
func LoadState(ctx context.Context, p Persister, logger *zap.Logger) (State, bool, error) {
	st, err := p.Load(ctx)
	switch {
	case err == nil:
		return st, true, nil
	case errors.Is(err, ErrSnapshotNotFound):
		logger.Info("no saved snapshot, starting fresh")
		return State{}, false, nil
	case errors.Is(err, ErrSnapshotCorrupt):
		logger.Warn("saved snapshot is corrupt, starting fresh", zap.Error(err))
		return State{}, false, nil
	default:
		return State{}, false, err
	}
}

// Save hands the current snapshot to the attached Saver without waiting.
//
// Postcondition: Returns ErrPersistenceUnavailable when no Saver is attached.
func (e *Engine) Save() error {
	if e.saver == nil {
		return ErrPersistenceUnavailable
	}
	e.flushSaveFailures()
	e.saver.Save(e.Snapshot())
	return nil
}

// flushSaveFailures publishes persistenceFailed for each failed background save.
func (e *Engine) flushSaveFailures() {
	if e.saver == nil {
		return
	}
	for _, err := range e.saver.Failures() {
		e.bus.Publish(Notification{Event: EventPersistenceFailed, Err: err})
	}
}
