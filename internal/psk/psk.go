// Package psk implements the pre-shared-key payload cipher for a RIST peer
// association. A KeyContext holds one derived AES key plus the bookkeeping
// needed to decide when that key must be replaced: the PBKDF2 salt (the
// GRE nonce), how many packets it has protected, and the optional rotation
// interval configured for the session.
//
// The package does not parse RIST/GRE framing and does not authenticate
// payloads — it is the cipher core that a transport layer calls into once
// the nonce and sequence number have already been read off the wire.
package psk

// DefaultPBKDF2Iterations is the iteration count used to derive an AES key
// from a passphrase and nonce. It is fixed so that two endpoints configured
// with the same passphrase always derive the same key for the same nonce.
const DefaultPBKDF2Iterations = 100_000

// KeyReuseLimit is the hard cap on how many packets a single derived key may
// protect, independent of any configured rotation interval. Encrypt rotates
// proactively once it would be exceeded; Decrypt silently stops advancing a
// key that has already exceeded it.
const KeyReuseLimit = 10_000_000

// MaxPassphraseLen bounds the passphrase accepted by New and SetPassphrase.
// RIST carries the passphrase in configuration, not on the wire, so this is
// a sanity limit rather than a protocol constant.
const MaxPassphraseLen = 128
