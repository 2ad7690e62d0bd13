package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MythologIQ/Hearthlink-CORE/internal/registry"
	"github.com/MythologIQ/Hearthlink-CORE/internal/runtime"
	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

type probeKind string

const (
	probeHealth probeKind = "health"
	probeLive   probeKind = "live"
	probeReady  probeKind = "ready"
)

// runProbe constructs a runtime, evaluates one probe against it and
// prints the result. A failing probe returns an error so the process
// exits non-zero.
func runProbe(w io.Writer, opts *Options, kind probeKind) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	rt, err := runtime.New(cfg, runtime.WithLogger(newLogger("off")))
	if err != nil {
		return err
	}
	defer rt.Close()

	switch kind {
	case probeLive:
		alive := rt.Alive()
		fmt.Fprintf(w, "{\"alive\":%t}\n", alive)
		if !alive {
			return fmt.Errorf("liveness probe failed")
		}
	case probeReady:
		ready := rt.Ready()
		fmt.Fprintf(w, "{\"ready\":%t}\n", ready)
		if !ready {
			return fmt.Errorf("readiness probe failed")
		}
	default:
		rep := rt.Health()
		if err := printJSON(w, rep); err != nil {
			return err
		}
		if rep.State == types.HealthUnhealthy {
			return fmt.Errorf("health probe failed: %s", rep.State)
		}
	}
	return nil
}

// runStatus prints the metrics snapshot of a freshly constructed runtime.
func runStatus(w io.Writer, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	rt, err := runtime.New(cfg, runtime.WithLogger(newLogger("off")))
	if err != nil {
		return err
	}
	defer rt.Close()
	snap, err := rt.MetricsSnapshot()
	if err != nil {
		return err
	}
	return printJSON(w, snap)
}

// runModels lists the model files discovered under dir, defaulting to
// the configured base path. No runtime is constructed.
func runModels(w io.Writer, opts *Options, dir string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.BasePath
	}
	found, err := registry.ScanDir(dir)
	if err != nil {
		return err
	}
	return printJSON(w, found)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
