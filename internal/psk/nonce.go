package psk

import (
	"encoding/binary"
	"io"

	"github.com/sixafter/prng-chacha"
)

// maxNonceDrawAttempts bounds how many times drawNonzeroNonce retries a
// source that keeps returning zero. A cryptographically sound source has a
// 1-in-2^32 chance of a single zero draw, so exhausting this many attempts
// means the source is broken, not unlucky.
const maxNonceDrawAttempts = 16

// NonceSource supplies 32-bit GRE nonces for key rotation. Zero is reserved
// to mean "unset" at the protocol level, so a NonceSource must never return
// it as a usable draw; drawNonzeroNonce enforces that by retrying.
type NonceSource interface {
	Uint32() (uint32, error)
}

// chachaNonceSource draws nonces from prng-chacha's pooled, rekeying
// ChaCha20 stream.
type chachaNonceSource struct{}

func (chachaNonceSource) Uint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(prng.Reader, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// DefaultNonceSource is the NonceSource a KeyContext uses unless overridden.
var DefaultNonceSource NonceSource = chachaNonceSource{}

// drawNonzeroNonce draws from src until it yields a nonzero value, giving up
// after maxNonceDrawAttempts.
func drawNonzeroNonce(src NonceSource) (uint32, error) {
	for i := 0; i < maxNonceDrawAttempts; i++ {
		n, err := src.Uint32()
		if err != nil {
			return 0, err
		}
		if n != 0 {
			return n, nil
		}
	}
	return 0, ErrNonceSourceExhausted
}
