package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MythologIQ/Hearthlink-CORE/internal/config"
	"github.com/MythologIQ/Hearthlink-CORE/internal/engine"
	"github.com/MythologIQ/Hearthlink-CORE/internal/runtime"
)

const testToken = "e2e-token"

// createTempModelsDir creates a temporary directory populated with small
// model files and returns the directory path and the file names.
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("e2e weights"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// newCore builds a runtime rooted at modelsDir. sim, when non-nil, replaces
// the default engine; mutate, when non-nil, adjusts the config first.
func newCore(t *testing.T, modelsDir string, sim *engine.Sim, mutate func(*config.Config)) *runtime.Runtime {
	t.Helper()
	cfg := config.Default()
	cfg.AuthToken = testToken
	cfg.BasePath = modelsDir
	cfg.LogLevel = "off"
	if mutate != nil {
		mutate(&cfg)
	}
	var opts []runtime.Option
	if sim != nil {
		opts = append(opts, runtime.WithEngine(sim))
	}
	rt, err := runtime.New(cfg, opts...)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func authSession(t *testing.T, rt *runtime.Runtime) string {
	t.Helper()
	sess, err := rt.Authenticate(testToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return sess
}

func loadModel(t *testing.T, rt *runtime.Runtime, name string) uint64 {
	t.Helper()
	id, err := rt.LoadModel(context.Background(), name)
	if err != nil {
		t.Fatalf("load model %s: %v", name, err)
	}
	return id
}

// counter reads one counter from the metrics snapshot by its full name.
func counter(t *testing.T, rt *runtime.Runtime, name string) uint64 {
	t.Helper()
	snap, err := rt.MetricsSnapshot()
	if err != nil {
		t.Fatalf("metrics snapshot: %v", err)
	}
	return snap.Counters[name]
}

func gauge(t *testing.T, rt *runtime.Runtime, name string) float64 {
	t.Helper()
	snap, err := rt.MetricsSnapshot()
	if err != nil {
		t.Fatalf("metrics snapshot: %v", err)
	}
	return snap.Gauges[name]
}

// waitFor polls cond every few milliseconds until it holds or the
// deadline passes.
func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
