// Package runtime assembles the session manager, model registry,
// dispatcher, and health checker into a single lifecycle-managed
// object. One Runtime is one serving instance.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/MythologIQ/Hearthlink-CORE/internal/config"
	"github.com/MythologIQ/Hearthlink-CORE/internal/dispatch"
	"github.com/MythologIQ/Hearthlink-CORE/internal/engine"
	"github.com/MythologIQ/Hearthlink-CORE/internal/health"
	"github.com/MythologIQ/Hearthlink-CORE/internal/registry"
	"github.com/MythologIQ/Hearthlink-CORE/internal/session"
)

// Cumulative load failures before health turns degraded.
const degradedLoadFailures = 3

// How long force-cancelled workers get to unwind before Close gives up.
const cancelGrace = 5 * time.Second

// Runtime is the orchestration core. Construct with New, use the
// facade methods, Close exactly once when done.
type Runtime struct {
	cfg config.Config
	log zerolog.Logger

	met      *health.Metrics
	sessions *session.Manager
	models   *registry.Registry
	disp     *dispatch.Dispatcher
	checker  *health.Checker

	closed    atomic.Bool
	closeOnce sync.Once
	sweepStop chan struct{}
	sweepDone chan struct{}
}

func New(cfg config.Config, opts ...Option) (*Runtime, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		eng: engine.NewSim(),
		dec: engine.Plaintext{},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	met := health.NewMetrics()
	rt := &Runtime{
		cfg:       cfg,
		log:       o.log.With().Str("component", "runtime").Logger(),
		met:       met,
		sessions:  session.NewManager(cfg.AuthToken, cfg.SessionTimeout(), met, o.log),
		models:    registry.New(o.eng, o.dec, cfg.BasePath, met, o.log),
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	rt.disp = dispatch.New(dispatch.Config{
		MaxQueueDepth:  cfg.MaxQueueDepth,
		MaxTextBytes:   cfg.MaxTextBytes,
		MaxInputTokens: cfg.MaxContextTokens,
		DefaultTimeout: cfg.RequestTimeout(),
	}, rt.sessions, rt.models, met, o.log)
	rt.checker = health.NewChecker(health.CheckerConfig{
		DegradedQueueDepth:   cfg.MaxQueueDepth,
		DegradedLoadFailures: degradedLoadFailures,
		RequireModelLoaded:   cfg.RequireModelLoaded,
	}, health.Sources{
		Accepting:    rt.disp.Accepting,
		QueueDepth:   rt.disp.QueueDepth,
		ModelsLoaded: rt.models.Count,
		MemoryUsed:   rt.models.MemoryUsed,
		LoadFailures: rt.models.LoadFailures,
		Uptime:       met.Uptime,
	})

	go rt.sweepLoop()

	rt.log.Info().
		Str("base_path", cfg.BasePath).
		Int("max_queue_depth", cfg.MaxQueueDepth).
		Int("max_context_tokens", cfg.MaxContextTokens).
		Dur("session_timeout", cfg.SessionTimeout()).
		Dur("request_timeout", cfg.RequestTimeout()).
		Msg("runtime started")
	return rt, nil
}

func (rt *Runtime) sweepLoop() {
	defer close(rt.sweepDone)
	ticker := time.NewTicker(rt.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rt.sessions.Sweep()
		case <-rt.sweepStop:
			return
		}
	}
}

// Close shuts down in dependency order: admission stops first, then
// in-flight requests drain up to the shutdown timeout, stragglers are
// force-cancelled, models unload, and sessions are revoked. Safe to
// call more than once; only the first call does the work.
func (rt *Runtime) Close() error {
	var err error
	rt.closeOnce.Do(func() {
		rt.closed.Store(true)
		rt.checker.MarkTerminating()
		rt.disp.Shutdown()
		close(rt.sweepStop)
		<-rt.sweepDone

		ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout())
		defer cancel()
		if werr := rt.disp.WaitIdle(ctx); werr != nil {
			n := rt.disp.CancelAll()
			rt.log.Warn().Int("cancelled", n).Msg("drain deadline passed, force-cancelling requests")
			gctx, gcancel := context.WithTimeout(context.Background(), cancelGrace)
			defer gcancel()
			if werr := rt.disp.WaitIdle(gctx); werr != nil {
				err = fmt.Errorf("shutdown: %w", werr)
			}
		}

		dctx, dcancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout())
		defer dcancel()
		if derr := rt.models.DrainAll(dctx); derr != nil && err == nil {
			err = fmt.Errorf("shutdown: %w", derr)
		}

		rt.sessions.RevokeAll()
		rt.log.Info().Msg("runtime stopped")
	})
	return err
}
