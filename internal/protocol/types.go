// Package protocol implements the minimal GRE-style header that carries a
// RIST payload's nonce and sequence number on the wire. It does not parse
// RIST's own framing or transport-layer GRE extensions — those live with
// whatever component owns the UDP socket — it only defines the handful of
// bytes package psk needs in order to key a KeyContext's Encrypt and
// Decrypt calls.
package protocol

import "errors"

// GRE profile versions recognized by Header. Version 1 ("main profile")
// and any other value ("simple profile") disagree on where the AES-CTR IV
// places the sequence number; see the psk package's buildIV.
const (
	VersionSimple uint8 = 0
	VersionMain   uint8 = 1
)

// HeaderSize is the size in bytes of an encoded Header.
const HeaderSize = 14

// MaxPayloadSize bounds a single packet's encrypted payload. It is set well
// above any realistic RIST MTU so Encode only rejects genuinely malformed
// callers, not legitimate traffic.
const MaxPayloadSize = 65507 - HeaderSize

var (
	// ErrInvalidHeader is returned when a buffer is too short to contain a
	// Header, or declares a payload length it doesn't actually carry.
	ErrInvalidHeader = errors.New("protocol: invalid header")

	// ErrPayloadTooLarge is returned by Encode when Payload exceeds
	// MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds maximum size")
)
