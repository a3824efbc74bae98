// Package metrics provides Prometheus metrics for a RIST pre-shared-key
// endpoint.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ristpsk"

// Metrics contains all Prometheus metrics for an endpoint.
type Metrics struct {
	// Peer association metrics
	PeersActive prometheus.Gauge
	PeersTotal  prometheus.Counter

	// Cipher throughput metrics
	PacketsEncrypted *prometheus.CounterVec
	PacketsDecrypted *prometheus.CounterVec
	BytesEncrypted   prometheus.Counter
	BytesDecrypted   prometheus.Counter

	// Rotation and key-lifecycle metrics
	KeyRotations     *prometheus.CounterVec
	KeyDerivations   prometheus.Counter
	DerivationErrors prometheus.Counter

	// Decrypt-path diagnostics
	DecryptsSkippedNoNonce  prometheus.Counter
	DecryptsSkippedReuseCap prometheus.Counter
	BadDecryptions          prometheus.Counter

	DecryptLatency prometheus.Histogram
	EncryptLatency prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the default metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance registered against the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom
// registry, for tests and for processes running more than one endpoint.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PeersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_active",
			Help:      "Number of peer associations with a live KeyContext",
		}),
		PeersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peers_total",
			Help:      "Total number of peer associations created",
		}),

		PacketsEncrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_encrypted_total",
			Help:      "Total packets encrypted, by key size",
		}, []string{"key_bits"}),
		PacketsDecrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_decrypted_total",
			Help:      "Total packets decrypted, by key size",
		}, []string{"key_bits"}),
		BytesEncrypted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_encrypted_total",
			Help:      "Total plaintext bytes encrypted",
		}),
		BytesDecrypted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_decrypted_total",
			Help:      "Total ciphertext bytes decrypted",
		}),

		KeyRotations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_rotations_total",
			Help:      "Total key rotations, by trigger",
		}, []string{"trigger"}),
		KeyDerivations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_derivations_total",
			Help:      "Total PBKDF2 key derivations performed",
		}),
		DerivationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_derivation_errors_total",
			Help:      "Total key derivation failures",
		}),

		DecryptsSkippedNoNonce: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypts_skipped_no_nonce_total",
			Help:      "Total decrypts silently skipped because no nonce has been announced yet",
		}),
		DecryptsSkippedReuseCap: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypts_skipped_reuse_cap_total",
			Help:      "Total decrypts silently skipped because the key reached its hard reuse limit",
		}),
		BadDecryptions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bad_decryptions_total",
			Help:      "Total packets flagged as garbage after decryption",
		}),

		DecryptLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decrypt_latency_seconds",
			Help:      "Histogram of per-packet decrypt latency",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
		EncryptLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encrypt_latency_seconds",
			Help:      "Histogram of per-packet encrypt latency",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
	}
}

// RecordPeerCreated records a new peer association.
func (m *Metrics) RecordPeerCreated() {
	m.PeersActive.Inc()
	m.PeersTotal.Inc()
}

// RecordPeerDestroyed records a peer association being torn down.
func (m *Metrics) RecordPeerDestroyed() {
	m.PeersActive.Dec()
}

// RecordEncrypt records one successful Encrypt call.
func (m *Metrics) RecordEncrypt(keyBits int, payloadBytes int, latencySeconds float64) {
	m.PacketsEncrypted.WithLabelValues(keyBitsLabel(keyBits)).Inc()
	m.BytesEncrypted.Add(float64(payloadBytes))
	m.EncryptLatency.Observe(latencySeconds)
}

// RecordDecrypt records one Decrypt call that actually transformed a
// packet (as opposed to a silent skip; see RecordDecryptSkipped).
func (m *Metrics) RecordDecrypt(keyBits int, payloadBytes int, latencySeconds float64) {
	m.PacketsDecrypted.WithLabelValues(keyBitsLabel(keyBits)).Inc()
	m.BytesDecrypted.Add(float64(payloadBytes))
	m.DecryptLatency.Observe(latencySeconds)
}

// RecordDecryptSkippedNoNonce records a Decrypt call that no-opped because
// no nonce had been announced for the peer yet.
func (m *Metrics) RecordDecryptSkippedNoNonce() {
	m.DecryptsSkippedNoNonce.Inc()
}

// RecordDecryptSkippedReuseCap records a Decrypt call that no-opped because
// the current key reached the hard reuse limit.
func (m *Metrics) RecordDecryptSkippedReuseCap() {
	m.DecryptsSkippedReuseCap.Inc()
}

// RecordBadDecryption records a packet flagged as garbage after decryption.
func (m *Metrics) RecordBadDecryption() {
	m.BadDecryptions.Inc()
}

// RecordKeyRotation records a key rotation, labeled by what triggered it:
// "initial", "interval", "reuse_cap", or "follow".
func (m *Metrics) RecordKeyRotation(trigger string) {
	m.KeyRotations.WithLabelValues(trigger).Inc()
}

// RecordDerivation records a PBKDF2 key derivation attempt.
func (m *Metrics) RecordDerivation(err error) {
	m.KeyDerivations.Inc()
	if err != nil {
		m.DerivationErrors.Inc()
	}
}

func keyBitsLabel(bits int) string {
	switch bits {
	case 128:
		return "128"
	case 192:
		return "192"
	case 256:
		return "256"
	default:
		return "unknown"
	}
}
