// Package identity persists the identifier a RIST endpoint presents to its
// peers across restarts.
//
// A peer association (one psk.KeyContext, one endpoint.Sender or
// endpoint.Receiver) is keyed by PSK passphrase and GRE nonce, not by this
// identifier — PeerID carries no cryptographic weight. It exists so logs
// and operator tooling can refer to "this install" by a stable short hex
// string instead of an ephemeral socket address, and so a future
// multi-peer listener has a lookup key to route an inbound association to
// the right KeyContext by. That is why Record, not a bare PeerID, is what
// gets persisted: an install's identity is the pairing of an ID with when
// it first came into existence, not the ID alone.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// IDSize is the size of a PeerID in bytes (128 bits).
	IDSize = 16

	// recordFileName is the name of the file storing this endpoint's
	// identity record.
	recordFileName = "endpoint_identity.yaml"
)

// ErrInvalidHexString is returned when a PeerID hex string is malformed.
var ErrInvalidHexString = errors.New("invalid hex string for peer ID")

// ZeroID represents an uninitialized peer ID.
var ZeroID = PeerID{}

// PeerID identifies one side of a RIST peer association. It has no
// cryptographic meaning of its own — it is purely a lookup key a future
// multi-peer transport layer could use to route an inbound packet to the
// right psk.KeyContext.
type PeerID [IDSize]byte

// NewPeerID generates a new random PeerID using crypto/rand.
func NewPeerID() (PeerID, error) {
	var id PeerID
	if _, err := io.ReadFull(rand.Reader, id[:]); err != nil {
		return ZeroID, fmt.Errorf("generate peer id: %w", err)
	}
	return id, nil
}

// ParsePeerID parses a PeerID from a hex string, accepting an optional
// "0x" prefix and surrounding whitespace.
func ParsePeerID(s string) (PeerID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")

	if len(s) != IDSize*2 {
		return ZeroID, fmt.Errorf("%w: got %d hex chars, expected %d", ErrInvalidHexString, len(s), IDSize*2)
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return ZeroID, fmt.Errorf("%w: %v", ErrInvalidHexString, err)
	}

	var id PeerID
	copy(id[:], raw)
	return id, nil
}

// String returns the full hex representation of the PeerID.
func (id PeerID) String() string {
	return hex.EncodeToString(id[:])
}

// ShortString returns a shortened hex representation (first 8 chars), for
// compact log lines.
func (id PeerID) ShortString() string {
	return hex.EncodeToString(id[:4])
}

// IsZero reports whether the PeerID is uninitialized.
func (id PeerID) IsZero() bool {
	return id == ZeroID
}

// Record is the on-disk identity of one RIST endpoint install: its PeerID
// plus when that ID was first generated. CreatedAt lets an operator tell
// "this box has always been this endpoint" apart from "this identity file
// was just regenerated," which a bare ID cannot.
type Record struct {
	ID        PeerID
	CreatedAt time.Time
}

// recordFile is the YAML shape written to disk. It exists separately from
// Record because PeerID round-trips as hex text on disk, not as the YAML
// library's default encoding of a [16]byte array.
type recordFile struct {
	PeerID    string    `yaml:"peer_id"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Store persists r to dataDir, creating the directory if needed. The write
// is atomic — to a temp file, then renamed into place — so a crash mid-write
// never leaves a truncated identity record behind.
func (r Record) Store(dataDir string) error {
	if r.ID.IsZero() {
		return errors.New("cannot store a record with a zero peer id")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	out, err := yaml.Marshal(recordFile{PeerID: r.ID.String(), CreatedAt: r.CreatedAt})
	if err != nil {
		return fmt.Errorf("encode identity record: %w", err)
	}

	filePath := filepath.Join(dataDir, recordFileName)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, out, 0600); err != nil {
		return fmt.Errorf("write identity record: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("persist identity record: %w", err)
	}
	return nil
}

// Load reads this endpoint's identity record from dataDir.
func Load(dataDir string) (Record, error) {
	filePath := filepath.Join(dataDir, recordFileName)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("identity record not found at %s", filePath)
		}
		return Record{}, fmt.Errorf("read identity record: %w", err)
	}

	var raw recordFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("parse identity record: %w", err)
	}

	id, err := ParsePeerID(raw.PeerID)
	if err != nil {
		return Record{}, fmt.Errorf("identity record has invalid peer id: %w", err)
	}

	return Record{ID: id, CreatedAt: raw.CreatedAt}, nil
}

// LoadOrCreate loads this endpoint's identity record from dataDir, or
// generates and persists a new one if none exists yet. The bool return
// reports whether a new record was created.
func LoadOrCreate(dataDir string) (Record, bool, error) {
	rec, err := Load(dataDir)
	if err == nil {
		return rec, false, nil
	}
	if !strings.Contains(err.Error(), "not found") {
		return Record{}, false, err
	}

	id, err := NewPeerID()
	if err != nil {
		return Record{}, false, err
	}
	rec = Record{ID: id, CreatedAt: now()}

	if err := rec.Store(dataDir); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Exists reports whether an identity record file exists in dataDir.
func Exists(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, recordFileName))
	return err == nil
}

// now is a seam so tests can pin CreatedAt instead of racing wall-clock
// time in round-trip assertions.
var now = time.Now
