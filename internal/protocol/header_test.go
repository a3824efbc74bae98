package protocol

import (
	"bytes"
	"testing"
)

func TestPacket_EncodeDecodeRoundTrip(t *testing.T) {
	p := &Packet{
		Header: Header{
			Version: VersionMain,
			Flags:   0,
			Nonce:   0xAABBCCDD,
			Seq:     42,
		},
		Payload: []byte("ciphertext goes here"),
	}

	buf, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(buf) != HeaderSize+len(p.Payload) {
		t.Fatalf("Encode() length = %d, want %d", len(buf), HeaderSize+len(p.Payload))
	}

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Header != p.Header {
		t.Errorf("Decode() header = %+v, want %+v", decoded.Header, p.Header)
	}
	if !bytes.Equal(decoded.Payload, p.Payload) {
		t.Errorf("Decode() payload = %q, want %q", decoded.Payload, p.Payload)
	}
}

func TestPacket_EmptyPayload(t *testing.T) {
	p := &Packet{Header: Header{Version: VersionSimple}}
	buf, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(decoded.Payload) != 0 {
		t.Errorf("Decode() payload length = %d, want 0", len(decoded.Payload))
	}
}

func TestPacket_EncodeRejectsOversizedPayload(t *testing.T) {
	p := &Packet{Payload: make([]byte, MaxPayloadSize+1)}
	if _, err := p.Encode(); err != ErrPayloadTooLarge {
		t.Errorf("Encode() error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecodeHeader_RejectsShortBuffer(t *testing.T) {
	if _, _, err := DecodeHeader(make([]byte, HeaderSize-1)); err == nil {
		t.Error("DecodeHeader() with a short buffer should error")
	}
}

func TestDecode_RejectsTruncatedPayload(t *testing.T) {
	p := &Packet{Payload: []byte("0123456789")}
	buf, _ := p.Encode()
	if _, err := Decode(buf[:len(buf)-3]); err == nil {
		t.Error("Decode() with a truncated payload should error")
	}
}

func TestDecodeHeader_RejectsOversizedDeclaredLength(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[13] = 0xFF // low byte of a length far beyond MaxPayloadSize given the other bytes are 0xFF too
	buf[10], buf[11], buf[12] = 0xFF, 0xFF, 0xFF
	if _, _, err := DecodeHeader(buf); err == nil {
		t.Error("DecodeHeader() with an oversized declared length should error")
	}
}
