// Package sqlite stores snapshots in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/storage/snapshot"
)

// Store keeps one snapshot per slot in the snapshots table.
type Store struct {
	db   *sql.DB
	slot string
	now  func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for a private in-memory database.
//
// Precondition: slot must be non-empty.
// Postcondition: Returns a ready Store or an error wrapping engine.ErrPersistenceUnavailable.
func Open(ctx context.Context, path, slot string) (*Store, error) {
	if slot == "" {
		return nil, errors.New("sqlite.Open: slot must not be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", engine.ErrPersistenceUnavailable, path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling WAL: %v", engine.ErrPersistenceUnavailable, err)
	}
	s := &Store{db: db, slot: slot, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			slot       TEXT PRIMARY KEY,
			player_id  TEXT NOT NULL,
			saved_at   DATETIME NOT NULL,
			payload    BLOB NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("%w: migration failed: %v", engine.ErrPersistenceUnavailable, err)
		}
	}
	return nil
}

// Ping reports whether the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot for the store's slot.
func (s *Store) Save(ctx context.Context, st engine.State) error {
	now := s.now().UTC()
	data, err := snapshot.Encode(st, now)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (slot, player_id, saved_at, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET player_id = excluded.player_id,
		   saved_at = excluded.saved_at, payload = excluded.payload`,
		s.slot, st.PlayerID, now, data,
	)
	if err != nil {
		return fmt.Errorf("%w: saving slot %q: %v", engine.ErrPersistenceUnavailable, s.slot, err)
	}
	return nil
}

// Load returns the snapshot for the store's slot.
//
// Postcondition: Returns engine.ErrSnapshotNotFound for an empty slot.
func (s *Store) Load(ctx context.Context) (engine.State, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE slot = ?`, s.slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.State{}, engine.ErrSnapshotNotFound
	}
	if err != nil {
		return engine.State{}, fmt.Errorf("%w: loading slot %q: %v", engine.ErrPersistenceUnavailable, s.slot, err)
	}
	st, _, err := snapshot.Decode(data)
	return st, err
}
