package cli

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// newLogger builds the process logger. It writes to stderr so command
// output on stdout stays machine readable.
func newLogger(level string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(parseLevel(level))
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "off":
		return zerolog.Disabled
	case "error", "err":
		return zerolog.ErrorLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "debug":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Env helpers
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
