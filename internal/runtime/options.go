package runtime

import (
	"github.com/rs/zerolog"

	"github.com/MythologIQ/Hearthlink-CORE/internal/engine"
)

type options struct {
	eng engine.Engine
	dec engine.Decryptor
	log zerolog.Logger
}

// Option overrides one of the runtime's pluggable collaborators.
type Option func(*options)

// WithEngine swaps the model runtime. The default is the simulated
// engine, which makes a bare runtime usable for tests and dry runs.
func WithEngine(eng engine.Engine) Option {
	return func(o *options) { o.eng = eng }
}

// WithDecryptor swaps the model file decryptor. The default reads
// files as-is.
func WithDecryptor(dec engine.Decryptor) Option {
	return func(o *options) { o.dec = dec }
}

// WithLogger sets the base logger; components attach their own fields.
// The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}
