package rng

import (
	"crypto/rand"
	"encoding/binary"
)

// cryptoPolicy implements Policy using crypto/rand.
//
// Invariant: values are uniformly distributed over 2^53 evenly spaced points in [0, 1).
type cryptoPolicy struct{}

// NewCrypto returns a non-seeded Policy backed by crypto/rand. It is safe for
// concurrent use.
func NewCrypto() Policy {
	return cryptoPolicy{}
}

// Roll panics with "rng: crypto/rand failure: <err>" if crypto/rand fails.
func (cryptoPolicy) Roll() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}
