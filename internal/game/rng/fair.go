package rng

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// ProvablyFair derives rolls from HMAC-SHA256(serverSeed, "clientSeed:nonce:round").
// Each roll consumes four bytes of the stream, so a published server seed lets a
// player replay every roll of a session.
type ProvablyFair struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	round      uint64
	pos        int
	buf        [32]byte
}

// NewProvablyFair creates a ProvablyFair policy positioned at the start of the stream.
//
// Precondition: serverSeed must be non-empty.
func NewProvablyFair(serverSeed, clientSeed string, nonce uint64) *ProvablyFair {
	if serverSeed == "" {
		panic("rng: NewProvablyFair: serverSeed must be non-empty")
	}
	p := &ProvablyFair{serverSeed: serverSeed, clientSeed: clientSeed, nonce: nonce}
	p.fill()
	return p
}

func (p *ProvablyFair) fill() {
	h := hmac.New(sha256.New, []byte(p.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", p.clientSeed, p.nonce, p.round)
	copy(p.buf[:], h.Sum(nil))
	p.pos = 0
}

func (p *ProvablyFair) next() byte {
	if p.pos >= len(p.buf) {
		p.round++
		p.fill()
	}
	b := p.buf[p.pos]
	p.pos++
	return b
}

// Roll returns sum(b[i] / 256^(i+1)) over the next four stream bytes.
//
// Postcondition: 0 <= result < 1.
func (p *ProvablyFair) Roll() float64 {
	result := 0.0
	divider := 1.0
	for i := 0; i < 4; i++ {
		divider *= 256
		result += float64(p.next()) / divider
	}
	return result
}
