// Package endpoint wires package psk's KeyContext and package protocol's
// wire header together into the two roles a RIST peer association plays:
// encrypting outgoing payloads (Sender) and decrypting incoming ones
// (Receiver). It stays transport-agnostic — callers own the socket and
// hand Sender/Receiver raw bytes — so the cipher logic can be tested
// without a network.
package endpoint

import (
	"github.com/ristpsk/corepsk/internal/protocol"
	"github.com/ristpsk/corepsk/internal/psk"
)

// Sender encrypts successive payloads for one peer association, tracking
// the sequence number itself. Like psk.KeyContext, a Sender is not safe
// for concurrent use — one association's send path runs on one goroutine.
type Sender struct {
	ctx        *psk.KeyContext
	greVersion uint8
	seq        uint32
}

// NewSender creates a Sender with no key derived yet — psk.New only stores
// password — so its first EncryptPacket call draws a nonce and derives one.
func NewSender(keyBits int, rotation uint32, password []byte, greVersion uint8) (*Sender, error) {
	ctx, err := psk.New(keyBits, rotation, password)
	if err != nil {
		return nil, err
	}
	return &Sender{ctx: ctx, greVersion: greVersion}, nil
}

// EncryptPacket encrypts plaintext under the sender's current key —
// rotating first if the rotation controller calls for it — and returns
// the wire-ready bytes: header followed by ciphertext. The sequence
// number advances on every successful call, including ones that trigger a
// rotation; a call that returns an error leaves it unchanged.
func (s *Sender) EncryptPacket(plaintext []byte) ([]byte, error) {
	ciphertext := make([]byte, len(plaintext))
	if err := s.ctx.Encrypt(s.seq, s.greVersion, ciphertext, plaintext); err != nil {
		return nil, err
	}

	pkt := &protocol.Packet{
		Header: protocol.Header{
			Version: s.greVersion,
			Nonce:   s.ctx.Nonce(),
			Seq:     s.seq,
		},
		Payload: ciphertext,
	}
	buf, err := pkt.Encode()
	if err != nil {
		return nil, err
	}

	s.seq++
	return buf, nil
}

// SetRecorder attaches r so the sender's key rotations and derivations are
// reported to it. See psk.Recorder.
func (s *Sender) SetRecorder(r psk.Recorder) { s.ctx.SetRecorder(r) }

// Nonce returns the GRE nonce the sender's current key was derived from.
func (s *Sender) Nonce() uint32 { return s.ctx.Nonce() }

// KeyBits returns the configured key size, for labeling metrics and logs.
func (s *Sender) KeyBits() int { return s.ctx.KeyBits() }

// UsedTimes returns how many packets the sender's current key has
// protected.
func (s *Sender) UsedTimes() uint32 { return s.ctx.UsedTimes() }

// Close scrubs the sender's key material.
func (s *Sender) Close() { s.ctx.Destroy() }
