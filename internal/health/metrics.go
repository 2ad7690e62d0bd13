// Package health exposes the runtime's Prometheus metric set and the
// on-demand health checker.
package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

const namespace = "hearthcore"

// Metrics bundles every counter and gauge the runtime maintains.
// Each runtime owns its own registry so independent instances in one
// process never collide on registration.
type Metrics struct {
	reg   *prometheus.Registry
	start time.Time

	AuthSuccess       prometheus.Counter
	AuthFailure       prometheus.Counter
	SessionRejections prometheus.Counter
	SessionsActive    prometheus.Gauge

	ModelLoads        prometheus.Counter
	ModelLoadFailures prometheus.Counter
	ModelUnloads      prometheus.Counter
	ModelsLoaded      prometheus.Gauge
	MemoryUsedBytes   prometheus.Gauge

	InferRequests       prometheus.Counter
	InferFailures       prometheus.Counter
	InferTimeouts       prometheus.Counter
	QueueRejections     prometheus.Counter
	StreamCancellations prometheus.Counter
	QueueDepth          prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry(), start: time.Now()}

	m.AuthSuccess = newCounter("session", "auth_success_total", "Successful authentications")
	m.AuthFailure = newCounter("session", "auth_failure_total", "Rejected authentication attempts")
	m.SessionRejections = newCounter("session", "validation_failures_total", "Session validations that failed")
	m.SessionsActive = newGauge("session", "active", "Sessions currently alive")

	m.ModelLoads = newCounter("model", "loads_total", "Models loaded successfully")
	m.ModelLoadFailures = newCounter("model", "load_failures_total", "Model load attempts that failed")
	m.ModelUnloads = newCounter("model", "unloads_total", "Models fully unloaded")
	m.ModelsLoaded = newGauge("model", "loaded", "Models currently ready for inference")
	m.MemoryUsedBytes = newGauge("model", "memory_used_bytes", "Bytes of weights held by ready models")

	m.InferRequests = newCounter("inference", "requests_total", "Inference requests admitted past the queue")
	m.InferFailures = newCounter("inference", "failures_total", "Admitted requests that failed")
	m.InferTimeouts = newCounter("inference", "timeouts_total", "Admitted requests that hit their deadline")
	m.QueueRejections = newCounter("inference", "queue_rejections_total", "Requests rejected because the queue was full")
	m.StreamCancellations = newCounter("inference", "stream_cancellations_total", "Streams cancelled by the consumer callback")
	m.QueueDepth = newGauge("inference", "queue_depth", "Queue slots currently held")

	m.reg.MustRegister(
		m.AuthSuccess, m.AuthFailure, m.SessionRejections, m.SessionsActive,
		m.ModelLoads, m.ModelLoadFailures, m.ModelUnloads, m.ModelsLoaded, m.MemoryUsedBytes,
		m.InferRequests, m.InferFailures, m.InferTimeouts, m.QueueRejections,
		m.StreamCancellations, m.QueueDepth,
	)
	return m
}

func newCounter(subsystem, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func newGauge(subsystem, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

// Registry exposes the underlying registry for exposition handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Uptime is the time elapsed since this metric set was created, which
// coincides with runtime construction.
func (m *Metrics) Uptime() time.Duration { return time.Since(m.start) }

// Snapshot gathers the registry into a stable, JSON-friendly shape.
// Values are read without touching any request-path lock.
func (m *Metrics) Snapshot() (types.MetricsSnapshot, error) {
	fams, err := m.reg.Gather()
	if err != nil {
		return types.MetricsSnapshot{}, err
	}
	snap := types.MetricsSnapshot{
		Counters:   make(map[string]uint64, len(fams)),
		Gauges:     make(map[string]float64),
		UptimeSecs: int64(m.Uptime().Seconds()),
	}
	for _, fam := range fams {
		for _, met := range fam.GetMetric() {
			switch {
			case met.GetCounter() != nil:
				snap.Counters[fam.GetName()] = uint64(met.GetCounter().GetValue())
			case met.GetGauge() != nil:
				snap.Gauges[fam.GetName()] = met.GetGauge().GetValue()
			}
		}
	}
	return snap, nil
}
