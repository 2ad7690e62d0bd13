package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MythologIQ/Hearthlink-CORE/internal/runtime"
)

// serveSignals is swapped by tests to terminate serve without a real
// signal.
var serveSignals = func() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	return stop
}

// runServe constructs the runtime, optionally preloads models, then
// blocks until SIGINT or SIGTERM and shuts down gracefully.
func runServe(opts *Options, models []string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)
	rt, err := runtime.New(cfg, runtime.WithLogger(log))
	if err != nil {
		return err
	}
	for _, path := range models {
		id, err := rt.LoadModel(context.Background(), path)
		if err != nil {
			rt.Close()
			return fmt.Errorf("preload %s: %w", path, err)
		}
		log.Info().Uint64("model_id", id).Str("path", path).Msg("model preloaded")
	}
	<-serveSignals()
	log.Info().Msg("signal received, shutting down")
	return rt.Close()
}
