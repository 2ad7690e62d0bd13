package runtime

import (
	"context"
	"time"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// Authenticate exchanges the shared token for a new session id.
func (rt *Runtime) Authenticate(token string) (string, error) {
	if rt.closed.Load() {
		return "", types.ErrShuttingDown
	}
	return rt.sessions.Authenticate(token)
}

func (rt *Runtime) ValidateSession(id string) error { return rt.sessions.Validate(id) }

func (rt *Runtime) ReleaseSession(id string) { rt.sessions.Release(id) }

func (rt *Runtime) RevokeSession(id string) error { return rt.sessions.Revoke(id) }

func (rt *Runtime) SessionCount() int { return rt.sessions.Count() }

// LoadModel loads the weights at path, resolved under the configured
// base directory, and returns the new handle id.
func (rt *Runtime) LoadModel(ctx context.Context, path string) (uint64, error) {
	if rt.closed.Load() {
		return 0, types.ErrShuttingDown
	}
	return rt.models.Load(ctx, path)
}

// UnloadModel drains and frees a model. ctx bounds the drain wait.
func (rt *Runtime) UnloadModel(ctx context.Context, id uint64) error {
	if rt.closed.Load() {
		return types.ErrShuttingDown
	}
	return rt.models.Unload(ctx, id)
}

func (rt *Runtime) ModelInfo(id uint64) (types.ModelInfo, error) { return rt.models.Info(id) }

func (rt *Runtime) ListModels() []types.ModelInfo { return rt.models.List() }

func (rt *Runtime) ModelCount() int { return rt.models.Count() }

// Infer runs one blocking inference request under the default deadline
// policy.
func (rt *Runtime) Infer(ctx context.Context, sess string, modelID uint64, prompt string, params types.InferenceParams) (types.InferenceResult, error) {
	return rt.disp.Infer(ctx, sess, modelID, prompt, params)
}

// InferWithTimeout is Infer with an explicit deadline that may exceed
// the configured default.
func (rt *Runtime) InferWithTimeout(ctx context.Context, sess string, modelID uint64, prompt string, params types.InferenceParams, timeout time.Duration) (types.InferenceResult, error) {
	return rt.disp.InferWithTimeout(ctx, sess, modelID, prompt, params, timeout)
}

// InferStreaming delivers generated chunks to fn on the calling
// goroutine; see the dispatcher for the exact final-call contract.
func (rt *Runtime) InferStreaming(ctx context.Context, sess string, modelID uint64, prompt string, params types.InferenceParams, fn types.StreamFunc) error {
	return rt.disp.InferStreaming(ctx, sess, modelID, prompt, params, fn)
}

// Health computes the current health report.
func (rt *Runtime) Health() types.HealthReport { return rt.checker.Report() }

// Alive is the liveness probe: true until Close begins.
func (rt *Runtime) Alive() bool { return rt.checker.Alive() }

// Ready is the readiness probe: true when a request submitted now
// would be admitted.
func (rt *Runtime) Ready() bool { return rt.checker.Ready() }

// MetricsSnapshot gathers all counters and gauges.
func (rt *Runtime) MetricsSnapshot() (types.MetricsSnapshot, error) { return rt.met.Snapshot() }

// Uptime since construction.
func (rt *Runtime) Uptime() time.Duration { return rt.met.Uptime() }
