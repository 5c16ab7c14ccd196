// Package snapshot encodes engine state into the versioned, checksummed envelope
// shared by every storage backend.
package snapshot

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/finnkarter/gameosdpas/internal/game/engine"
)

// Version is the envelope format written by Encode.
const Version = 1

// Envelope wraps a serialized State with integrity metadata.
type Envelope struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	// Checksum is the hex BLAKE2b-256 digest of State.
	Checksum string          `json:"checksum"`
	State    json.RawMessage `json:"state"`
}

// Encode serializes st into an envelope stamped with savedAt.
//
// Postcondition: Decode(Encode(st)) returns st.
func Encode(st engine.State, savedAt time.Time) ([]byte, error) {
	body, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("snapshot.Encode: marshalling state: %w", err)
	}
	sum := blake2b.Sum256(body)
	env := Envelope{
		Version:  Version,
		SavedAt:  savedAt.UTC(),
		Checksum: hex.EncodeToString(sum[:]),
		State:    body,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("snapshot.Encode: marshalling envelope: %w", err)
	}
	return out, nil
}

// Decode verifies and unpacks an envelope.
//
// Postcondition: Returns the State, or an error wrapping engine.ErrSnapshotCorrupt when
// the data is malformed, from an unknown version, or fails its checksum.
func Decode(data []byte) (engine.State, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return engine.State{}, Envelope{}, fmt.Errorf("%w: %v", engine.ErrSnapshotCorrupt, err)
	}
	if env.Version != Version {
		return engine.State{}, env, fmt.Errorf("%w: unsupported version %d", engine.ErrSnapshotCorrupt, env.Version)
	}
	want, err := hex.DecodeString(env.Checksum)
	if err != nil {
		return engine.State{}, env, fmt.Errorf("%w: checksum: %v", engine.ErrSnapshotCorrupt, err)
	}
	sum := blake2b.Sum256(env.State)
	if !bytes.Equal(sum[:], want) {
		return engine.State{}, env, fmt.Errorf("%w: checksum mismatch", engine.ErrSnapshotCorrupt)
	}
	var st engine.State
	if err := json.Unmarshal(env.State, &st); err != nil {
		return engine.State{}, env, fmt.Errorf("%w: %v", engine.ErrSnapshotCorrupt, err)
	}
	return st, env, nil
}
