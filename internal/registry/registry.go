// Package registry tracks loaded models as refcounted handles with an
// atomic load/unload lifecycle. Unloading drains: new acquires fail
// immediately while in-flight requests finish, and the last release
// frees the engine resources.
package registry

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MythologIQ/Hearthlink-CORE/internal/common/fsutil"
	"github.com/MythologIQ/Hearthlink-CORE/internal/engine"
	"github.com/MythologIQ/Hearthlink-CORE/internal/health"
	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// Registry owns every model handle. Ids are process-unique and never
// reused; unloaded entries stay known so stale ids answer Info queries
// instead of aliasing a later model.
type Registry struct {
	eng      engine.Engine
	dec      engine.Decryptor
	basePath string
	met      *health.Metrics
	log      zerolog.Logger

	nextID       atomic.Uint64
	loadFailures atomic.Int64

	mu      sync.RWMutex
	handles map[uint64]*handle
}

func New(eng engine.Engine, dec engine.Decryptor, basePath string, met *health.Metrics, log zerolog.Logger) *Registry {
	return &Registry{
		eng:      eng,
		dec:      dec,
		basePath: basePath,
		met:      met,
		log:      log.With().Str("component", "registry").Logger(),
		handles:  make(map[uint64]*handle),
	}
}

// Load reads a model file (resolved under the registry base directory),
// hands the decrypted stream to the engine, and returns the new handle
// id. Loads of distinct paths proceed concurrently; loading the same
// path twice yields two independent handles.
func (r *Registry) Load(ctx context.Context, path string) (uint64, error) {
	resolved, err := fsutil.ResolveUnder(r.basePath, path)
	if err != nil {
		return 0, r.loadFailed(path, err)
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return 0, r.loadFailed(path, err)
	}
	if fi.IsDir() {
		return 0, r.loadFailed(path, fmt.Errorf("%s is a directory", resolved))
	}

	h := &handle{
		id:        r.nextID.Add(1),
		name:      modelName(resolved),
		path:      resolved,
		sizeBytes: fi.Size(),
		state:     types.ModelStateLoading,
	}
	r.mu.Lock()
	r.handles[h.id] = h
	r.mu.Unlock()

	// Decrypt and load outside the table lock so other handles stay
	// fully available during a slow load.
	mdl, err := r.openAndLoad(ctx, resolved)
	if err != nil {
		r.mu.Lock()
		delete(r.handles, h.id)
		r.mu.Unlock()
		return 0, r.loadFailed(path, err)
	}

	r.mu.Lock()
	h.model = mdl
	h.state = types.ModelStateReady
	r.mu.Unlock()

	r.met.ModelLoads.Inc()
	r.publishGauges()
	r.log.Info().Uint64("handle", h.id).Str("name", h.name).Int64("size_bytes", h.sizeBytes).Msg("model loaded")
	return h.id, nil
}

func (r *Registry) openAndLoad(ctx context.Context, path string) (engine.Model, error) {
	rc, err := r.dec.Decrypt(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return r.eng.Load(ctx, rc)
}

func (r *Registry) loadFailed(path string, err error) error {
	r.loadFailures.Add(1)
	r.met.ModelLoadFailures.Inc()
	r.log.Error().Str("path", path).Err(err).Msg("model load failed")
	return fmt.Errorf("%w: %v", types.ErrModelLoadFailed, err)
}

// Acquire pins a ready model for one request. The returned release must
// be called exactly once when the request is done; releases are what
// allow a pending unload to finish. Calling release more than once is
// a no-op.
func (r *Registry) Acquire(id uint64) (engine.Model, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok || h.state != types.ModelStateReady {
		return nil, nil, types.ErrModelNotFound
	}
	h.inFlight++

	released := false
	release := func() {
		r.mu.Lock()
		if released {
			r.mu.Unlock()
			return
		}
		released = true
		h.inFlight--
		var mdl engine.Model
		finalize := h.inFlight == 0 && h.state == types.ModelStateUnloading
		if finalize {
			mdl = r.finalizeLocked(h)
		}
		r.mu.Unlock()
		if finalize {
			r.unloadEngine(h, mdl)
		}
	}
	return h.model, release, nil
}

// Unload drains a ready model and frees it. New acquires fail from the
// moment it is called; the drain completes when in-flight requests have
// all released. ctx bounds only the wait: on expiry the handle stays in
// unloading and the last straggler still completes the unload later.
func (r *Registry) Unload(ctx context.Context, id uint64) error {
	r.mu.Lock()
	h, ok := r.handles[id]
	if !ok || h.state != types.ModelStateReady {
		r.mu.Unlock()
		return types.ErrModelNotFound
	}
	h.state = types.ModelStateUnloading
	h.done = make(chan struct{})
	done := h.done
	waiting := h.inFlight
	var mdl engine.Model
	if waiting == 0 {
		mdl = r.finalizeLocked(h)
	}
	r.mu.Unlock()

	// The ready set shrank the moment draining began.
	r.publishGauges()

	if waiting == 0 {
		r.unloadEngine(h, mdl)
		return nil
	}

	r.log.Info().Uint64("handle", id).Int("in_flight", waiting).Msg("draining model")
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: model %d still draining", types.ErrTimeout, id)
	}
}

// finalizeLocked flips an unloading handle to unloaded and detaches its
// engine model. Caller holds the lock and must pass the returned model
// to unloadEngine after unlocking.
func (r *Registry) finalizeLocked(h *handle) engine.Model {
	mdl := h.model
	h.model = nil
	h.state = types.ModelStateUnloaded
	close(h.done)
	return mdl
}

func (r *Registry) unloadEngine(h *handle, mdl engine.Model) {
	if mdl != nil {
		if err := r.eng.Unload(mdl); err != nil {
			r.log.Warn().Uint64("handle", h.id).Err(err).Msg("engine unload failed")
		}
	}
	r.met.ModelUnloads.Inc()
	r.publishGauges()
	r.log.Info().Uint64("handle", h.id).Str("name", h.name).Msg("model unloaded")
}

// Info answers for any id ever issued, including unloaded ones.
func (r *Registry) Info(id uint64) (types.ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return types.ModelInfo{}, types.ErrModelNotFound
	}
	return h.info(), nil
}

// List returns every known handle in ascending id order.
func (r *Registry) List() []types.ModelInfo {
	r.mu.RLock()
	out := make([]types.ModelInfo, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h.info())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].HandleID < out[j].HandleID })
	return out
}

// Count is the number of models currently ready.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, h := range r.handles {
		if h.state == types.ModelStateReady {
			n++
		}
	}
	return n
}

// MemoryUsed sums the weight bytes of ready models.
func (r *Registry) MemoryUsed() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, h := range r.handles {
		if h.state == types.ModelStateReady {
			total += h.sizeBytes
		}
	}
	return total
}

// LoadFailures is the cumulative count of failed load attempts.
func (r *Registry) LoadFailures() int {
	return int(r.loadFailures.Load())
}

// DrainAll unloads every currently ready model in parallel. Used at
// shutdown.
func (r *Registry) DrainAll(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.handles))
	for id, h := range r.handles {
		if h.state == types.ModelStateReady {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return r.Unload(ctx, id)
		})
	}
	return g.Wait()
}

func (r *Registry) publishGauges() {
	r.met.ModelsLoaded.Set(float64(r.Count()))
	r.met.MemoryUsedBytes.Set(float64(r.MemoryUsed()))
}
