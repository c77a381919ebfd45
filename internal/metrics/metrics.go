package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pcapdissect"

// Metrics holds the per-run Prometheus metrics.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FramesRead      prometheus.Counter
	BytesCaptured   prometheus.Counter
	FrameSize       prometheus.Histogram
	LayersDissected *prometheus.CounterVec
	ReadErrors      prometheus.Counter
	DissectDuration prometheus.Histogram
}

// New creates all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_read_total",
			Help:      "Total number of frames read from the trace source",
		}),
		BytesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_captured_total",
			Help:      "Total captured bytes of all frames read",
		}),
		FrameSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_size_bytes",
			Help:      "Captured length of frames in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 11), // 64B to 64KB
		}),
		LayersDissected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layers_dissected_total",
				Help:      "Number of protocol layers dissected, by protocol",
			},
			[]string{"protocol"},
		),
		ReadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Number of terminal read errors from the trace source",
		}),
		DissectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dissect_duration_seconds",
			Help:      "Time spent dissecting a single frame",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10), // 1us to ~0.26s
		}),
	}
}

// ObserveFrame records one dissected frame
func (m *Metrics) ObserveFrame(capLen uint32, protocols []string, took time.Duration) {
	if m == nil {
		return
	}

	m.FramesRead.Inc()
	m.BytesCaptured.Add(float64(capLen))
	m.FrameSize.Observe(float64(capLen))
	m.DissectDuration.Observe(took.Seconds())
	for _, p := range protocols {
		m.LayersDissected.WithLabelValues(p).Inc()
	}
}

// ObserveReadError records a terminal read error
func (m *Metrics) ObserveReadError() {
	if m == nil {
		return
	}
	m.ReadErrors.Inc()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes all metrics in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
