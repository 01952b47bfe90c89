package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Capture pipeline counters
	FramesCaptured  atomic.Uint64
	CaptureFailures atomic.Uint64
	FramesEncoded   atomic.Uint64
	EncodeFailures  atomic.Uint64

	// Broadcast counters
	Broadcasts          atomic.Uint64
	BroadcastsCoalesced atomic.Uint64
	FramesSent          atomic.Uint64
	SendFailures        atomic.Uint64

	// Client tracking
	ClientsConnected atomic.Uint64 // cumulative accepted subscriptions
	ClientsRejected  atomic.Uint64 // invalid quality or admission cap
	ActiveClients    atomic.Uint64
	WantedQualities  atomic.Uint64

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	// Register Prometheus gauges
	m.registerPrometheusMetrics()

	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	// Capture pipeline metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_frames_captured_total",
			Help: "Total raw frames read from the camera",
		},
		func() float64 { return float64(m.FramesCaptured.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_capture_failures_total",
			Help: "Total failed camera reads (cycle skipped)",
		},
		func() float64 { return float64(m.CaptureFailures.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_frames_encoded_total",
			Help: "Total per-quality JPEG encodes",
		},
		func() float64 { return float64(m.FramesEncoded.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_encode_failures_total",
			Help: "Total failed JPEG encodes",
		},
		func() float64 { return float64(m.EncodeFailures.Load()) },
	))

	// Broadcast metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_broadcasts_total",
			Help: "Total broadcast events dispatched to workers",
		},
		func() float64 { return float64(m.Broadcasts.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_broadcasts_coalesced_total",
			Help: "Total broadcast notifications merged into a pending event",
		},
		func() float64 { return float64(m.BroadcastsCoalesced.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_frames_sent_total",
			Help: "Total frames delivered to subscribers",
		},
		func() float64 { return float64(m.FramesSent.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_send_failures_total",
			Help: "Total failed deliveries (subscriber evicted)",
		},
		func() float64 { return float64(m.SendFailures.Load()) },
	))

	// Client metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_clients_connected_total",
			Help: "Total clients accepted and subscribed",
		},
		func() float64 { return float64(m.ClientsConnected.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_clients_rejected_total",
			Help: "Total clients rejected before subscription",
		},
		func() float64 { return float64(m.ClientsRejected.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_active_clients",
			Help: "Number of currently subscribed clients",
		},
		func() float64 { return float64(m.ActiveClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "streaming_wanted_qualities",
			Help: "Number of quality levels with at least one subscriber",
		},
		func() float64 { return float64(m.WantedQualities.Load()) },
	))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
