// Package engine defines the capability boundary to the model runtime.
// The real runtime lives outside this repository; the registry and
// dispatcher talk to it only through these interfaces, so tests and the
// default binary run against the simulated engine in sim.go.
package engine

import (
	"context"
	"io"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// Engine abstracts the model runtime used by the registry.
type Engine interface {
	// Load reads model weights from r and prepares them for inference.
	// Implementations must return when ctx is canceled.
	Load(ctx context.Context, r io.Reader) (Model, error)
	// Unload releases all resources held by a previously loaded model.
	// The model must not be used afterwards.
	Unload(m Model) error
}

// Model is a loaded model ready to serve inference.
type Model interface {
	// Generate produces the complete output for a prompt.
	// Implementations must return when ctx is canceled.
	Generate(ctx context.Context, prompt string, params types.InferenceParams) (types.InferenceResult, error)
	// GenerateStream invokes emit once per generated token, in order.
	// A non-nil error from emit aborts generation and is returned as-is.
	// Implementations must return when ctx is canceled.
	GenerateStream(ctx context.Context, prompt string, params types.InferenceParams, emit func(token string) error) error
}

// Decryptor opens model files for reading, reversing at-rest encryption.
// The container format is the model runtime's concern, not ours.
type Decryptor interface {
	Decrypt(path string) (io.ReadCloser, error)
}
