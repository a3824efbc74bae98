package endpoint

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ristpsk/corepsk/internal/metrics"
)

func TestSenderReceiver_RoundTrip(t *testing.T) {
	sender, err := NewSender(256, 0, []byte("shared-secret"), 1)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	defer sender.Close()

	receiver, err := NewReceiver(256, []byte("shared-secret"))
	if err != nil {
		t.Fatalf("NewReceiver() error = %v", err)
	}
	defer receiver.Close()

	messages := [][]byte{
		[]byte("first packet"),
		[]byte("second packet, a bit longer this time"),
		[]byte(""),
	}

	for i, want := range messages {
		wire, err := sender.EncryptPacket(want)
		if err != nil {
			t.Fatalf("EncryptPacket(%d) error = %v", i, err)
		}

		got, ok, err := receiver.DecryptPacket(wire)
		if err != nil {
			t.Fatalf("DecryptPacket(%d) error = %v", i, err)
		}
		if !ok {
			t.Fatalf("DecryptPacket(%d) ok = false", i)
		}
		if string(got) != string(want) {
			t.Errorf("DecryptPacket(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestSenderReceiver_FollowsRotation(t *testing.T) {
	sender, err := NewSender(128, 2, []byte("p"), 0)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	receiver, err := NewReceiver(128, []byte("p"))
	if err != nil {
		t.Fatalf("NewReceiver() error = %v", err)
	}

	var lastNonce uint32
	for i := 0; i < 6; i++ {
		wire, err := sender.EncryptPacket([]byte("payload"))
		if err != nil {
			t.Fatalf("EncryptPacket(%d) error = %v", i, err)
		}
		_, ok, err := receiver.DecryptPacket(wire)
		if err != nil || !ok {
			t.Fatalf("DecryptPacket(%d) ok=%v err=%v", i, ok, err)
		}
		lastNonce = sender.Nonce()
	}

	if receiver.Nonce() != lastNonce {
		t.Errorf("receiver.Nonce() = %d, want it to match the sender's latest rotation %d", receiver.Nonce(), lastNonce)
	}
}

func TestReceiver_RejectsGarbageBuffer(t *testing.T) {
	receiver, err := NewReceiver(256, []byte("p"))
	if err != nil {
		t.Fatalf("NewReceiver() error = %v", err)
	}
	if _, _, err := receiver.DecryptPacket([]byte{1, 2, 3}); err == nil {
		t.Error("DecryptPacket() with a too-short buffer should error")
	}
}

func TestNewSender_RejectsInvalidKeySize(t *testing.T) {
	if _, err := NewSender(64, 0, []byte("p"), 1); err == nil {
		t.Error("NewSender(64) should error")
	}
}

func TestSenderReceiver_RecordRotationsAndDerivationsToMetrics(t *testing.T) {
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())

	sender, err := NewSender(128, 2, []byte("p"), 0)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	defer sender.Close()
	sender.SetRecorder(m)

	receiver, err := NewReceiver(128, []byte("p"))
	if err != nil {
		t.Fatalf("NewReceiver() error = %v", err)
	}
	defer receiver.Close()
	receiver.SetRecorder(m)

	// Three packets push the sender's usedTimes to the configured
	// rotation interval of 2, forcing one proactive rotation; the
	// receiver follows every nonce change it sees, including the
	// sender's very first one.
	for i := 0; i < 3; i++ {
		wire, err := sender.EncryptPacket([]byte("payload"))
		if err != nil {
			t.Fatalf("EncryptPacket(%d) error = %v", i, err)
		}
		if _, ok, err := receiver.DecryptPacket(wire); err != nil || !ok {
			t.Fatalf("DecryptPacket(%d) ok=%v err=%v", i, ok, err)
		}
	}

	if got := testutil.ToFloat64(m.KeyRotations.WithLabelValues("initial")); got != 1 {
		t.Errorf("KeyRotations[initial] = %v, want 1 (sender's first key)", got)
	}
	if got := testutil.ToFloat64(m.KeyRotations.WithLabelValues("interval")); got != 1 {
		t.Errorf("KeyRotations[interval] = %v, want 1 (sender's configured rotation)", got)
	}
	if got := testutil.ToFloat64(m.KeyRotations.WithLabelValues("follow")); got != 2 {
		t.Errorf("KeyRotations[follow] = %v, want 2 (receiver following both sender keys)", got)
	}
	if got := testutil.ToFloat64(m.KeyDerivations); got != 4 {
		t.Errorf("KeyDerivations = %v, want 4 (2 sender + 2 receiver)", got)
	}
}

func TestReceiver_RecordsDecryptSkippedNoNonce(t *testing.T) {
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())

	receiver, err := NewReceiver(128, []byte("p"))
	if err != nil {
		t.Fatalf("NewReceiver() error = %v", err)
	}
	defer receiver.Close()
	receiver.SetRecorder(m)

	// A packet with no nonce announced is a protocol.Header default value
	// (zero), which Decode produces for an otherwise well-formed buffer.
	header := make([]byte, 14)
	if _, _, err := receiver.DecryptPacket(header); err != nil {
		t.Fatalf("DecryptPacket() error = %v", err)
	}

	if got := testutil.ToFloat64(m.DecryptsSkippedNoNonce); got != 1 {
		t.Errorf("DecryptsSkippedNoNonce = %v, want 1", got)
	}
}
