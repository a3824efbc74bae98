package endpoint

import (
	"fmt"

	"github.com/ristpsk/corepsk/internal/protocol"
	"github.com/ristpsk/corepsk/internal/psk"
)

// Receiver decrypts incoming packets for one peer association, following
// whatever nonce the sender announces on the wire. Like Sender, a Receiver
// is not safe for concurrent use.
type Receiver struct {
	ctx *psk.KeyContext
}

// NewReceiver creates a Receiver with no key derived yet — psk.New only
// stores password — so its first DecryptPacket call is what derives a key,
// from the sender's first announced nonce.
func NewReceiver(keyBits int, password []byte) (*Receiver, error) {
	ctx, err := psk.New(keyBits, 0, password)
	if err != nil {
		return nil, err
	}
	return &Receiver{ctx: ctx}, nil
}

// DecryptPacket parses buf and attempts to decrypt its payload. ok is
// false, with a nil error, in the cases package psk documents as silent
// skips: no nonce announced yet, or a key that has reached its hard reuse
// limit. Callers should treat a false ok as a dropped packet, not a
// protocol violation.
func (r *Receiver) DecryptPacket(buf []byte) (plaintext []byte, ok bool, err error) {
	pkt, err := protocol.Decode(buf)
	if err != nil {
		return nil, false, fmt.Errorf("endpoint: decode packet: %w", err)
	}

	plaintext = make([]byte, len(pkt.Payload))
	transformed, err := r.ctx.Decrypt(pkt.Header.Nonce, pkt.Header.Seq, pkt.Header.Version, plaintext, pkt.Payload)
	if err != nil {
		return nil, false, err
	}
	if !transformed {
		return nil, false, nil
	}
	return plaintext, true, nil
}

// RecordBadDecryption flags the receiver's current key as having produced
// at least one packet that failed validation upstream (for example, a RIST
// framing check on the decrypted payload).
func (r *Receiver) RecordBadDecryption() { r.ctx.RecordBadDecryption() }

// SetRecorder attaches rec so the receiver's key rotations, derivations,
// and decrypt-path skips are reported to it. See psk.Recorder.
func (r *Receiver) SetRecorder(rec psk.Recorder) { r.ctx.SetRecorder(rec) }

// Nonce returns the GRE nonce the receiver's current key was derived from.
func (r *Receiver) Nonce() uint32 { return r.ctx.Nonce() }

// KeyBits returns the configured key size, for labeling metrics and logs.
func (r *Receiver) KeyBits() int { return r.ctx.KeyBits() }

// Close scrubs the receiver's key material.
func (r *Receiver) Close() { r.ctx.Destroy() }
