package health

import (
	"sync/atomic"
	"time"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// CheckerConfig sets the thresholds the checker judges against.
type CheckerConfig struct {
	// Queue depth at or above which the runtime reports degraded and
	// stops reporting ready. Zero disables the check.
	DegradedQueueDepth int
	// Cumulative model load failures at or above which the runtime
	// reports degraded. Zero disables the check.
	DegradedLoadFailures int
	// Require at least one ready model for readiness.
	RequireModelLoaded bool
}

// Sources are the narrow views into live subsystems the checker reads.
// Nil funcs read as permanent zero values.
type Sources struct {
	Accepting    func() bool
	QueueDepth   func() int
	ModelsLoaded func() int
	MemoryUsed   func() int64
	LoadFailures func() int
	Uptime       func() time.Duration
}

// Checker computes health, readiness, and liveness on demand. It holds
// no state of its own beyond the terminating flag, so reports are always
// current.
type Checker struct {
	cfg         CheckerConfig
	src         Sources
	terminating atomic.Bool
}

func NewChecker(cfg CheckerConfig, src Sources) *Checker {
	if src.Accepting == nil {
		src.Accepting = func() bool { return false }
	}
	if src.QueueDepth == nil {
		src.QueueDepth = func() int { return 0 }
	}
	if src.ModelsLoaded == nil {
		src.ModelsLoaded = func() int { return 0 }
	}
	if src.MemoryUsed == nil {
		src.MemoryUsed = func() int64 { return 0 }
	}
	if src.LoadFailures == nil {
		src.LoadFailures = func() int { return 0 }
	}
	if src.Uptime == nil {
		src.Uptime = func() time.Duration { return 0 }
	}
	return &Checker{cfg: cfg, src: src}
}

// MarkTerminating flips liveness off. Called once teardown begins; there
// is no way back.
func (c *Checker) MarkTerminating() { c.terminating.Store(true) }

// Alive reports process liveness: true from construction until teardown
// begins, regardless of degradation.
func (c *Checker) Alive() bool { return !c.terminating.Load() }

// Ready reports whether an inference request submitted now would be
// admitted as far as this checker can tell.
func (c *Checker) Ready() bool {
	if c.terminating.Load() || !c.src.Accepting() {
		return false
	}
	if c.cfg.RequireModelLoaded && c.src.ModelsLoaded() == 0 {
		return false
	}
	if c.cfg.DegradedQueueDepth > 0 && c.src.QueueDepth() >= c.cfg.DegradedQueueDepth {
		return false
	}
	return true
}

// Report computes the full health report. Not accepting is unhealthy;
// accepting but past a degradation threshold (or missing a required
// model) is degraded; everything else is healthy.
func (c *Checker) Report() types.HealthReport {
	accepting := !c.terminating.Load() && c.src.Accepting()
	models := c.src.ModelsLoaded()
	queue := c.src.QueueDepth()
	failures := c.src.LoadFailures()

	state := types.HealthHealthy
	switch {
	case !accepting:
		state = types.HealthUnhealthy
	case c.cfg.RequireModelLoaded && models == 0:
		state = types.HealthDegraded
	case c.cfg.DegradedQueueDepth > 0 && queue >= c.cfg.DegradedQueueDepth:
		state = types.HealthDegraded
	case c.cfg.DegradedLoadFailures > 0 && failures >= c.cfg.DegradedLoadFailures:
		state = types.HealthDegraded
	}

	return types.HealthReport{
		State:             state,
		Ready:             c.Ready(),
		AcceptingRequests: accepting,
		ModelsLoaded:      models,
		MemoryUsedBytes:   c.src.MemoryUsed(),
		QueueDepth:        queue,
		UptimeSecs:        int64(c.src.Uptime().Seconds()),
	}
}
