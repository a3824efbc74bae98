package protocol

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed 14-byte prefix carried in front of every encrypted
// RIST payload this module sends or receives.
//
// Wire layout:
//
//	Version    [1 byte]  - VersionSimple or VersionMain
//	Flags      [1 byte]  - reserved, must round-trip unchanged
//	Nonce      [4 bytes] - GRE nonce identifying the key this packet used (big-endian)
//	Seq        [4 bytes] - packet sequence number (big-endian)
//	PayloadLen [4 bytes] - length of the payload that follows (big-endian)
type Header struct {
	Version uint8
	Flags   uint8
	Nonce   uint32
	Seq     uint32
}

// Packet pairs a Header with the payload it describes. Payload holds
// ciphertext on the wire and plaintext once a KeyContext has decrypted it;
// Packet itself is agnostic to which.
type Packet struct {
	Header  Header
	Payload []byte
}

// Encode serializes p to a freshly allocated buffer.
func (p *Packet) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = p.Header.Version
	buf[1] = p.Header.Flags
	binary.BigEndian.PutUint32(buf[2:6], p.Header.Nonce)
	binary.BigEndian.PutUint32(buf[6:10], p.Header.Seq)
	binary.BigEndian.PutUint32(buf[10:14], uint32(len(p.Payload)))
	copy(buf[HeaderSize:], p.Payload)

	return buf, nil
}

// DecodeHeader reads just the fixed header out of buf, without copying or
// validating the payload that follows.
func DecodeHeader(buf []byte) (Header, uint32, error) {
	if len(buf) < HeaderSize {
		return Header{}, 0, fmt.Errorf("%w: buffer shorter than header", ErrInvalidHeader)
	}

	h := Header{
		Version: buf[0],
		Flags:   buf[1],
		Nonce:   binary.BigEndian.Uint32(buf[2:6]),
		Seq:     binary.BigEndian.Uint32(buf[6:10]),
	}
	length := binary.BigEndian.Uint32(buf[10:14])
	if length > MaxPayloadSize {
		return Header{}, 0, fmt.Errorf("%w: declared payload length exceeds maximum", ErrInvalidHeader)
	}

	return h, length, nil
}

// Decode parses a full packet out of buf, copying the payload so the
// returned Packet is independent of buf's backing array.
func Decode(buf []byte) (*Packet, error) {
	h, length, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) < HeaderSize+int(length) {
		return nil, fmt.Errorf("%w: buffer shorter than declared payload", ErrInvalidHeader)
	}

	payload := make([]byte, length)
	copy(payload, buf[HeaderSize:HeaderSize+length])

	return &Packet{Header: h, Payload: payload}, nil
}

// String returns a debug representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("Packet{Version=%d, Nonce=%d, Seq=%d, PayloadLen=%d}",
		p.Header.Version, p.Header.Nonce, p.Header.Seq, len(p.Payload))
}
