package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// BlockSize is the AES block size in bytes, and therefore the required IV
// length for CTR mode.
const BlockSize = aes.BlockSize

// Engine is a loaded AES key capable of transforming buffers under CTR mode.
// It is the "single abstraction" the rotation controller in package psk
// programs against: callers load a key once per derivation and then call
// Transform once per packet with a fresh IV, never branching on which
// concrete implementation backs the interface. The production backend
// (softwareEngine) wraps the standard library's constant-time AES
// implementation and is the only implementation in this module.
type Engine interface {
	// Transform runs AES-CTR keyed by the loaded key, XORing the keystream
	// seeded at iv into src and writing the result to dst. dst and src may
	// overlap exactly (in-place transform) or be disjoint; dst must have at
	// least len(src) bytes.
	Transform(iv [BlockSize]byte, dst, src []byte) error
}

// softwareEngine is the stdlib AES-CTR backend. CTR mode turns the AES block
// cipher into a stream cipher, so the same Transform call serves both
// encryption and decryption.
type softwareEngine struct {
	block cipher.Block
}

// NewSoftwareEngine loads rawKey into a fresh AES key schedule. rawKey must
// be 16, 24, or 32 bytes (AES-128/192/256).
func NewSoftwareEngine(rawKey []byte) (Engine, error) {
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: load AES key: %w", err)
	}
	return &softwareEngine{block: block}, nil
}

func (e *softwareEngine) Transform(iv [BlockSize]byte, dst, src []byte) error {
	if len(dst) < len(src) {
		return fmt.Errorf("crypto: dst buffer (%d bytes) shorter than src (%d bytes)", len(dst), len(src))
	}
	stream := cipher.NewCTR(e.block, iv[:])
	stream.XORKeyStream(dst[:len(src)], src)
	return nil
}
