package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/storage/snapshot"
)

// SnapshotRepository stores one snapshot per slot in the snapshots table created by
// migrations/000001_create_snapshots.up.sql.
type SnapshotRepository struct {
	db   *pgxpool.Pool
	slot string
	now  func() time.Time
}

// NewSnapshotRepository creates a SnapshotRepository for slot backed by db.
//
// Precondition: db must be a valid, open connection pool; slot must be non-empty.
func NewSnapshotRepository(db *pgxpool.Pool, slot string) *SnapshotRepository {
	return &SnapshotRepository{db: db, slot: slot, now: time.Now}
}

// Save upserts the snapshot for the repository's slot.
//
// Postcondition: Returns nil, or an error wrapping engine.ErrPersistenceUnavailable.
func (r *SnapshotRepository) Save(ctx context.Context, st engine.State) error {
	now := r.now().UTC()
	data, err := snapshot.Encode(st, now)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO snapshots (slot, player_id, saved_at, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (slot) DO UPDATE
		   SET player_id = EXCLUDED.player_id, saved_at = EXCLUDED.saved_at, payload = EXCLUDED.payload`,
		r.slot, st.PlayerID, now, data,
	)
	if err != nil {
		return fmt.Errorf("%w: saving slot %q: %v", engine.ErrPersistenceUnavailable, r.slot, err)
	}
	return nil
}

// Load returns the snapshot for the repository's slot.
//
// Postcondition: Returns engine.ErrSnapshotNotFound for an empty slot and
// engine.ErrSnapshotCorrupt when the payload fails verification.
func (r *SnapshotRepository) Load(ctx context.Context) (engine.State, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT payload FROM snapshots WHERE slot = $1`, r.slot).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.State{}, engine.ErrSnapshotNotFound
	}
	if err != nil {
		return engine.State{}, fmt.Errorf("%w: loading slot %q: %v", engine.ErrPersistenceUnavailable, r.slot, err)
	}
	st, _, err := snapshot.Decode(data)
	return st, err
}

// Delete removes the slot's snapshot. Deleting an empty slot is a no-op.
func (r *SnapshotRepository) Delete(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM snapshots WHERE slot = $1`, r.slot); err != nil {
		return fmt.Errorf("%w: deleting slot %q: %v", engine.ErrPersistenceUnavailable, r.slot, err)
	}
	return nil
}
