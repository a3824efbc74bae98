package psk

import (
	"github.com/ristpsk/corepsk/internal/crypto"
)

// KeyContext holds the cipher state for one peer association: a passphrase,
// the AES key currently derived from it, and the bookkeeping needed to
// decide when that key must be replaced.
//
// KeyContext is not internally synchronized. RIST associates exactly one
// KeyContext with one peer, and the transport layer already serializes
// access to a given peer's send and receive paths; adding a mutex here
// would only hide a caller bug. Callers that share a KeyContext across
// goroutines must serialize their own access to it.
type KeyContext struct {
	password []byte
	keyBits  int
	rotation uint32

	nonce     uint32
	usedTimes uint32
	engine    crypto.Engine

	badDecryption bool
	badCount      uint32

	nonceSource NonceSource
	iterations  int

	recorder Recorder
}

// Recorder receives lifecycle events a KeyContext cannot usefully report on
// its own: rotations, derivations, and decrypt-path skips. It is a narrow
// view of package metrics' *Metrics rather than a dependency on it, so
// package psk stays free of any knowledge of Prometheus — a caller passes
// its own *metrics.Metrics to SetRecorder because the method set happens
// to line up, not because psk imports package metrics.
type Recorder interface {
	// RecordKeyRotation records a rotation that just derived a new key,
	// labeled by what triggered it: "initial", "interval", "reuse_cap", or
	// "follow" (a receiver adopting a sender's announced nonce).
	RecordKeyRotation(trigger string)

	// RecordDerivation records one PBKDF2 derivation attempt and whether it
	// failed.
	RecordDerivation(err error)

	// RecordDecryptSkippedNoNonce records a Decrypt call that no-opped
	// because no nonce has been announced for the peer yet.
	RecordDecryptSkippedNoNonce()

	// RecordDecryptSkippedReuseCap records a Decrypt call that no-opped
	// because the current key already reached the hard reuse limit.
	RecordDecryptSkippedReuseCap()
}

// SetRecorder attaches r so future rotations, derivations, and decrypt
// skips are reported to it. A nil recorder (the default) disables
// reporting; it is never invalid to call psk's operations without one.
func (k *KeyContext) SetRecorder(r Recorder) {
	k.recorder = r
}

// New creates a KeyContext for the given AES key size (128, 192, or 256)
// and rotation interval (0 disables proactive rotation by packet count).
// It only stores password; it does not draw a nonce or derive a key, so
// New cannot fail with ErrDerivationFailed or a nonce-source error — those
// only ever come from SetPassphrase, Encrypt, or Decrypt. The context
// stays inert (Ready() == false) until one of those calls derives a key.
func New(keyBits int, rotation uint32, password []byte) (*KeyContext, error) {
	if !crypto.SupportedKeyBits[keyBits] {
		return nil, ErrInvalidKeySize
	}
	if len(password) > MaxPassphraseLen {
		return nil, ErrPassphraseTooLong
	}

	ctx := &KeyContext{
		keyBits:     keyBits,
		rotation:    rotation,
		nonceSource: DefaultNonceSource,
		iterations:  DefaultPBKDF2Iterations,
	}
	if len(password) > 0 {
		ctx.password = append([]byte(nil), password...)
	}
	return ctx, nil
}

// Clone returns a new KeyContext with the same passphrase, key size,
// rotation interval, and nonce source, but no derived key and no usage
// history. It gives a fresh, independent context seeded from a template
// configured once, for example for a newly accepted peer.
func (k *KeyContext) Clone() *KeyContext {
	return &KeyContext{
		password:    append([]byte(nil), k.password...),
		keyBits:     k.keyBits,
		rotation:    k.rotation,
		nonceSource: k.nonceSource,
		iterations:  k.iterations,
		recorder:    k.recorder,
	}
}

// Destroy zeroes the passphrase and any derived key material and leaves the
// context inert. It is safe to call more than once.
func (k *KeyContext) Destroy() {
	crypto.ZeroBytes(k.password)
	k.password = nil
	k.engine = nil
	k.nonce = 0
	k.usedTimes = 0
	k.badDecryption = false
	k.badCount = 0
}

// SetPassphrase replaces the context's passphrase, draws a fresh nonce, and
// derives a new key. It is the only way an application changes the shared
// secret for a running association; Encrypt and Decrypt also move an inert
// context to ready when they derive its first key.
func (k *KeyContext) SetPassphrase(password []byte) error {
	if len(password) > MaxPassphraseLen {
		return ErrPassphraseTooLong
	}

	nonce, err := drawNonzeroNonce(k.nonceSource)
	if err != nil {
		return wrapDerivation(err)
	}

	crypto.ZeroBytes(k.password)
	k.password = append([]byte(nil), password...)
	k.nonce = nonce
	return k.deriveLocked()
}

// deriveLocked derives an AES key from the context's current password and
// nonce and loads it into a fresh cipher engine, resetting usage counters
// and diagnostic state. The name documents the caller contract shared with
// the rest of the package — it assumes external serialization, matching
// KeyContext as a whole.
func (k *KeyContext) deriveLocked() error {
	salt := encodeNonce(k.nonce)
	raw, err := crypto.DeriveKey(k.password, salt, k.iterations, k.keyBits)
	if err != nil {
		k.engine = nil
		wrapped := wrapDerivation(err)
		if k.recorder != nil {
			k.recorder.RecordDerivation(wrapped)
		}
		return wrapped
	}

	engine, err := crypto.NewSoftwareEngine(raw)
	crypto.ZeroBytes(raw)
	if err != nil {
		k.engine = nil
		wrapped := wrapDerivation(err)
		if k.recorder != nil {
			k.recorder.RecordDerivation(wrapped)
		}
		return wrapped
	}

	k.engine = engine
	k.usedTimes = 0
	k.badDecryption = false
	k.badCount = 0
	if k.recorder != nil {
		k.recorder.RecordDerivation(nil)
	}
	return nil
}

// Ready reports whether the context has a usable derived key.
func (k *KeyContext) Ready() bool {
	return k.nonce != 0 && k.engine != nil
}

// Nonce returns the GRE nonce the context's current key was derived from,
// or 0 if no key has been derived yet.
func (k *KeyContext) Nonce() uint32 { return k.nonce }

// UsedTimes returns how many packets the current key has protected.
func (k *KeyContext) UsedTimes() uint32 { return k.usedTimes }

// KeyBits returns the configured AES key size.
func (k *KeyContext) KeyBits() int { return k.keyBits }

// BadDecryption reports whether a caller has flagged a decrypted packet as
// garbage via RecordBadDecryption since the last key rotation.
func (k *KeyContext) BadDecryption() bool { return k.badDecryption }

// BadCount returns how many packets have been flagged via
// RecordBadDecryption since the last key rotation.
func (k *KeyContext) BadCount() uint32 { return k.badCount }

// RecordBadDecryption marks the current key as having produced at least one
// packet that failed validation upstream (for example, a GRE checksum or
// application-level framing check). KeyContext carries this purely as a
// diagnostic counter: it does not itself validate decrypted output, and
// does not act on the flag. Both counters reset on the next key
// derivation.
func (k *KeyContext) RecordBadDecryption() {
	k.badDecryption = true
	if k.badCount < ^uint32(0) {
		k.badCount++
	}
}
