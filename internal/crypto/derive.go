package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DeriveKey runs PBKDF2-HMAC-SHA256 over (password, salt) and returns
// keyBits/8 bytes of key material. salt is used as an opaque byte string —
// callers that need determinism across machines of differing endianness
// must already have agreed on its encoding before calling DeriveKey.
//
// iterations is a parameter, not a package constant, so tests can exercise
// the derivation with a cheap iteration count without touching the
// production value defined in package psk.
func DeriveKey(password, salt []byte, iterations, keyBits int) ([]byte, error) {
	if !SupportedKeyBits[keyBits] {
		return nil, ErrUnsupportedKeySize
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("crypto: iterations must be positive, got %d", iterations)
	}

	return pbkdf2.Key(password, salt, iterations, keyBits/8, sha256.New), nil
}
