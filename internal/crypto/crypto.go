// Package crypto provides the low-level primitives consumed by the RIST
// pre-shared-key engine in package psk: password-based key derivation and an
// AES counter-mode transform. It deliberately exposes a narrow surface —
// derive a raw key from (password, salt, length), then run a preloaded key
// over a buffer under CTR — so the rotation and lifecycle logic in psk never
// has to know how a key was produced or which block cipher backend produced
// the keystream.
package crypto

import "errors"

// SupportedKeyBits enumerates the AES key sizes the engine accepts.
var SupportedKeyBits = map[int]bool{128: true, 192: true, 256: true}

// ErrUnsupportedKeySize is returned when a caller requests a key length
// outside {128, 192, 256}.
var ErrUnsupportedKeySize = errors.New("crypto: unsupported AES key size, want 128, 192 or 256")

// ZeroBytes overwrites b with zeros. Callers use this to scrub derived key
// and passphrase material before it is released back to the allocator.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
