package psk

import (
	"encoding/binary"

	"github.com/ristpsk/corepsk/internal/crypto"
)

// greVersionNonceFirst is the GRE profile version that places the sequence
// number at the front of the IV instead of its tail. RIST's "simple"
// profile (version 0) and the newer "main" profile (version 1) disagree on
// this layout, so buildIV takes the version as an explicit parameter rather
// than assuming one.
const greVersionNonceFirst = 1

// buildIV lays a 32-bit sequence number into an AES-CTR initialization
// vector. Every other IV byte is zero. Placement depends on greVersion:
// version 1 writes seq into bytes [0:4), any other version writes it into
// bytes [12:16). seq is encoded big-endian so the resulting IV is identical
// on every host regardless of native byte order.
func buildIV(seq uint32, greVersion uint8) [crypto.BlockSize]byte {
	var iv [crypto.BlockSize]byte
	var seqBytes [4]byte
	binary.BigEndian.PutUint32(seqBytes[:], seq)

	if greVersion == greVersionNonceFirst {
		copy(iv[0:4], seqBytes[:])
	} else {
		copy(iv[12:16], seqBytes[:])
	}
	return iv
}

// encodeNonce renders a 32-bit GRE nonce as the 4-byte PBKDF2 salt. Like
// buildIV, it fixes big-endian encoding so two endpoints of differing
// native byte order derive the same key from the same nonce value.
func encodeNonce(nonce uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], nonce)
	return b[:]
}
