// Package dispatch admits inference requests against the session table,
// the model registry, and a bounded queue, then runs them under
// deadlines with cooperative cancellation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/MythologIQ/Hearthlink-CORE/internal/engine"
	"github.com/MythologIQ/Hearthlink-CORE/internal/health"
	"github.com/MythologIQ/Hearthlink-CORE/internal/registry"
	"github.com/MythologIQ/Hearthlink-CORE/internal/session"
	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// The engine reserves roughly four bytes per prompt token; admission
// uses the same coarse estimate.
const bytesPerTokenEstimate = 4

// Config sets the dispatcher's admission limits.
type Config struct {
	// Maximum concurrently admitted requests. Admission past this is
	// rejected outright, never queued behind a wait.
	MaxQueueDepth int
	// Maximum prompt size in bytes.
	MaxTextBytes int
	// Maximum estimated prompt tokens.
	MaxInputTokens int
	// Deadline applied when the request carries none; also the cap for
	// per-request timeouts on the plain Infer path.
	DefaultTimeout time.Duration
}

// Dispatcher owns admission and execution of inference requests.
type Dispatcher struct {
	cfg      Config
	sessions *session.Manager
	models   *registry.Registry
	met      *health.Metrics
	log      zerolog.Logger

	queue    *semaphore.Weighted
	depth    atomic.Int64
	shutting atomic.Bool
	nextReq  atomic.Uint64

	wg sync.WaitGroup

	mu      sync.Mutex
	cancels map[uint64]context.CancelFunc
}

func New(cfg Config, sessions *session.Manager, models *registry.Registry, met *health.Metrics, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		sessions: sessions,
		models:   models,
		met:      met,
		log:      log.With().Str("component", "dispatch").Logger(),
		queue:    semaphore.NewWeighted(int64(cfg.MaxQueueDepth)),
		cancels:  make(map[uint64]context.CancelFunc),
	}
}

// request carries one admitted inference call and the releases paired
// with what admission acquired. The model pin and the queue slot move
// to the worker goroutine; the session pin stays with the caller.
type request struct {
	model        engine.Model
	params       types.InferenceParams
	releaseModel func()
	releaseSess  func()
}

// admit runs the shared admission pipeline: shutdown gate, session,
// model pin, queue slot, then parameter and prompt budgets. On error
// everything acquired so far has been released; on success the caller
// owns the request.
func (d *Dispatcher) admit(sess string, modelID uint64, prompt string, params types.InferenceParams) (*request, error) {
	if d.shutting.Load() {
		return nil, types.ErrShuttingDown
	}

	if err := d.sessions.Acquire(sess); err != nil {
		return nil, err
	}

	mdl, releaseModel, err := d.models.Acquire(modelID)
	if err != nil {
		d.sessions.Release(sess)
		return nil, err
	}

	if !d.queue.TryAcquire(1) {
		releaseModel()
		d.sessions.Release(sess)
		d.met.QueueRejections.Inc()
		return nil, fmt.Errorf("%w: %d requests in flight", types.ErrQueueFull, d.cfg.MaxQueueDepth)
	}
	d.met.QueueDepth.Set(float64(d.depth.Add(1)))

	if err := params.Validate(); err != nil {
		d.releaseSlot()
		releaseModel()
		d.sessions.Release(sess)
		return nil, err
	}
	if err := d.checkPrompt(prompt); err != nil {
		d.releaseSlot()
		releaseModel()
		d.sessions.Release(sess)
		return nil, err
	}

	d.met.InferRequests.Inc()
	return &request{
		model:        mdl,
		params:       params.WithDefaults(),
		releaseModel: releaseModel,
		releaseSess:  func() { d.sessions.Release(sess) },
	}, nil
}

// checkPrompt applies the prompt budget: the raw byte cap and the
// 4-bytes-per-token estimate against the context window.
func (d *Dispatcher) checkPrompt(prompt string) error {
	if len(prompt) > d.cfg.MaxTextBytes {
		return fmt.Errorf("%w: prompt is %d bytes, limit %d", types.ErrContextExceeded, len(prompt), d.cfg.MaxTextBytes)
	}
	if est := len(prompt) / bytesPerTokenEstimate; est > d.cfg.MaxInputTokens {
		return fmt.Errorf("%w: prompt is ~%d tokens, limit %d", types.ErrContextExceeded, est, d.cfg.MaxInputTokens)
	}
	return nil
}

func (d *Dispatcher) releaseSlot() {
	d.queue.Release(1)
	d.met.QueueDepth.Set(float64(d.depth.Add(-1)))
}

// effectiveTimeout caps a request-supplied timeout at the configured
// default; unset means the default.
func (d *Dispatcher) effectiveTimeout(req time.Duration) time.Duration {
	if req <= 0 || req > d.cfg.DefaultTimeout {
		return d.cfg.DefaultTimeout
	}
	return req
}

// mapErr folds engine and context errors into the public taxonomy and
// counts the terminal outcome.
func (d *Dispatcher) mapErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		d.met.InferTimeouts.Inc()
		return fmt.Errorf("%w: request deadline exceeded", types.ErrTimeout)
	case errors.Is(err, context.Canceled):
		return types.ErrCancelled
	default:
		d.met.InferFailures.Inc()
		return fmt.Errorf("%w: %v", types.ErrInferenceFailed, err)
	}
}

// track registers a cancel func so shutdown can abort stragglers.
func (d *Dispatcher) track(cancel context.CancelFunc) uint64 {
	id := d.nextReq.Add(1)
	d.mu.Lock()
	d.cancels[id] = cancel
	d.mu.Unlock()
	return id
}

func (d *Dispatcher) untrack(id uint64) {
	d.mu.Lock()
	delete(d.cancels, id)
	d.mu.Unlock()
}

// CancelAll aborts every tracked request and reports how many were
// cancelled. Shutdown calls it once the drain deadline passes.
func (d *Dispatcher) CancelAll() int {
	d.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(d.cancels))
	for _, cancel := range d.cancels {
		cancels = append(cancels, cancel)
	}
	d.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// Shutdown permanently stops admission. In-flight requests keep
// running; pair with WaitIdle and CancelAll to drain them.
func (d *Dispatcher) Shutdown() {
	if d.shutting.CompareAndSwap(false, true) {
		d.log.Info().Msg("dispatcher stopped admitting requests")
	}
}

// Accepting reports whether new requests would currently be admitted.
func (d *Dispatcher) Accepting() bool { return !d.shutting.Load() }

// QueueDepth is the number of admission slots currently held.
func (d *Dispatcher) QueueDepth() int { return int(d.depth.Load()) }

// InFlight is the number of admitted requests whose workers have not
// finished, abandoned ones included.
func (d *Dispatcher) InFlight() int { return int(d.depth.Load()) }

// WaitIdle blocks until every admitted request has fully finished or
// ctx expires. Meant to be called after Shutdown.
func (d *Dispatcher) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %d requests still in flight", types.ErrTimeout, d.InFlight())
	}
}
