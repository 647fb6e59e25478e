package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the PIX decode/verify pipeline.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	decodeDuration  *prometheus.HistogramVec
	decodeErrors    *prometheus.CounterVec
	keystoreHits    prometheus.Counter
	keystoreMisses  prometheus.Counter
	loaderDuration  *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		decodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pix_decode_duration_seconds",
				Help:    "Duration of BR Code decode+validate calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pix_decode_errors_total",
				Help: "Total BR Code decode/validate failures by reason.",
			},
			[]string{"reason"},
		),
		keystoreHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pix_keystore_hits_total",
				Help: "Total validated-key store lookups that hit.",
			},
		),
		keystoreMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pix_keystore_misses_total",
				Help: "Total validated-key store lookups that missed and triggered a JWKS fetch.",
			},
		),
		loaderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pix_loader_duration_seconds",
				Help:    "Duration of each stage of the dynamic PIX loader.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pix_requests_total",
				Help: "Total requests processed by the demo HTTP API.",
			},
			[]string{"status"},
		),
	}
}

// RecordDecodeDuration records how long a BR Code decode+validate call took.
func (m *Metrics) RecordDecodeDuration(brcodeType string, d time.Duration) {
	m.decodeDuration.WithLabelValues(brcodeType).Observe(d.Seconds())
}

// IncrDecodeError increments the decode error counter for a given reason.
func (m *Metrics) IncrDecodeError(reason string) {
	m.decodeErrors.WithLabelValues(reason).Inc()
}

// IncrKeystoreHit increments the keystore hit counter.
func (m *Metrics) IncrKeystoreHit() {
	m.keystoreHits.Inc()
}

// IncrKeystoreMiss increments the keystore miss counter.
func (m *Metrics) IncrKeystoreMiss() {
	m.keystoreMisses.Inc()
}

// RecordLoaderStageDuration records how long a single pixloader stage took.
func (m *Metrics) RecordLoaderStageDuration(stage string, d time.Duration) {
	m.loaderDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}
