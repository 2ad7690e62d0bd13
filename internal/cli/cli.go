// Package cli implements the hearthcore command tree. Every command
// constructs the runtime in-process; there is no remote control plane.
package cli

import (
	"fmt"
	"os"

	"github.com/MythologIQ/Hearthlink-CORE/internal/config"
)

// Options carries the settings shared by every command. Values resolve
// flag over environment over config file over built-in default.
type Options struct {
	ConfigPath string
	LogLevel   string
	AuthToken  string
	BasePath   string
}

func defaultOptions() *Options {
	return &Options{
		ConfigPath: envStr("HEARTHCORE_CONFIG", ""),
		LogLevel:   envStr("HEARTHCORE_LOG_LEVEL", ""),
		AuthToken:  envStr("HEARTHCORE_AUTH_TOKEN", ""),
		BasePath:   envStr("HEARTHCORE_BASE_PATH", ""),
	}
}

// loadConfig resolves the effective configuration: the config file when
// one is named, overlaid with whatever flags or environment variables
// were set.
func loadConfig(opts *Options) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.AuthToken != "" {
		cfg.AuthToken = opts.AuthToken
	}
	if opts.BasePath != "" {
		cfg.BasePath = opts.BasePath
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg.Normalize(), nil
}

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code (0 for success, non-zero on error).
func MainWithArgs(args []string) int {
	root := buildRootCmd(defaultOptions())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/hearthcore.
func Main() int { return MainWithArgs(os.Args[1:]) }
