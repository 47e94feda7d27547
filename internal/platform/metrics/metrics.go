package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the frame relay.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	framesReceivedTotal prometheus.Counter
	frameBytesTotal     prometheus.Counter
	chunksEmittedTotal  prometheus.Counter
	activeViewers       prometheus.Gauge
	knownRobots         prometheus.Gauge
}

// New creates and registers Prometheus metrics for the relay.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	framesReceivedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_received_total",
		Help: "Total number of frames uploaded by robots",
	})
	frameBytesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_frame_bytes_total",
		Help: "Total bytes of uploaded frame bodies",
	})
	chunksEmittedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_chunks_emitted_total",
		Help: "Total number of multipart chunks written to viewers",
	})
	activeViewers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_active_viewers",
		Help: "Number of open MJPEG viewer connections",
	})
	knownRobots := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_known_robots",
		Help: "Number of robot ids seen since process start",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		framesReceivedTotal,
		frameBytesTotal,
		chunksEmittedTotal,
		activeViewers,
		knownRobots,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		framesReceivedTotal: framesReceivedTotal,
		frameBytesTotal:     frameBytesTotal,
		chunksEmittedTotal:  chunksEmittedTotal,
		activeViewers:       activeViewers,
		knownRobots:         knownRobots,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveFrame records one uploaded frame of size n bytes.
func (m *Metrics) ObserveFrame(n int) {
	m.framesReceivedTotal.Inc()
	m.frameBytesTotal.Add(float64(n))
}

// IncChunksEmitted increments the emitted chunk counter.
func (m *Metrics) IncChunksEmitted() {
	m.chunksEmittedTotal.Inc()
}

// ViewerConnected and ViewerDisconnected track open stream connections.
func (m *Metrics) ViewerConnected() {
	m.activeViewers.Inc()
}

func (m *Metrics) ViewerDisconnected() {
	m.activeViewers.Dec()
}

// SetKnownRobots sets the known robots gauge.
func (m *Metrics) SetKnownRobots(n int) {
	m.knownRobots.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. known robots).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
