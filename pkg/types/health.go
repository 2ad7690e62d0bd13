package types

// HealthState is the overall condition of the runtime.
type HealthState string

const (
	// HealthHealthy: accepting requests and below degradation thresholds.
	HealthHealthy HealthState = "healthy"
	// HealthDegraded: accepting requests but above a degradation threshold.
	HealthDegraded HealthState = "degraded"
	// HealthUnhealthy: not accepting requests (e.g. shutting down).
	HealthUnhealthy HealthState = "unhealthy"
)

// HealthReport is a derived snapshot of runtime condition. It is computed
// on demand and never stored.
type HealthReport struct {
	State             HealthState `json:"state"`
	Ready             bool        `json:"ready"`
	AcceptingRequests bool        `json:"accepting_requests"`
	ModelsLoaded      int         `json:"models_loaded"`
	MemoryUsedBytes   int64       `json:"memory_used_bytes"`
	QueueDepth        int         `json:"queue_depth"`
	UptimeSecs        int64       `json:"uptime_secs"`
}

// MetricsSnapshot is a stable, serializable key/value view of the runtime
// counters and gauges. Values are best-effort under concurrent mutation.
type MetricsSnapshot struct {
	Counters   map[string]uint64  `json:"counters"`
	Gauges     map[string]float64 `json:"gauges"`
	UptimeSecs int64              `json:"uptime_secs"`
}
