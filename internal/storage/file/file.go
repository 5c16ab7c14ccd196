// Package file stores the snapshot as a single JSON file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/storage/snapshot"
)

// Store persists one snapshot at Path. Writes go to a temporary file in the same
// directory which is then renamed over Path, so a crash never leaves a half-written
// snapshot behind.
type Store struct {
	path string
	now  func() time.Time
}

// New returns a Store writing to path, creating its directory if needed.
//
// Precondition: path must be non-empty.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file.New: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", engine.ErrPersistenceUnavailable, filepath.Dir(path), err)
	}
	return &Store{path: path, now: time.Now}, nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// Save atomically replaces the snapshot file.
func (s *Store) Save(ctx context.Context, st engine.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := snapshot.Encode(st, s.now())
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistenceUnavailable, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %v", engine.ErrPersistenceUnavailable, tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing %s: %v", engine.ErrPersistenceUnavailable, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", engine.ErrPersistenceUnavailable, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: renaming to %s: %v", engine.ErrPersistenceUnavailable, s.path, err)
	}
	return nil
}

// Load reads and verifies the snapshot file.
//
// Postcondition: Returns engine.ErrSnapshotNotFound when the file does not exist and
// engine.ErrSnapshotCorrupt when it fails verification.
func (s *Store) Load(ctx context.Context) (engine.State, error) {
	if err := ctx.Err(); err != nil {
		return engine.State{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return engine.State{}, engine.ErrSnapshotNotFound
	}
	if err != nil {
		return engine.State{}, fmt.Errorf("%w: reading %s: %v", engine.ErrPersistenceUnavailable, s.path, err)
	}
	st, _, err := snapshot.Decode(data)
	return st, err
}
