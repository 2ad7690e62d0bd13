// Package types holds the public data contracts of the runtime: inference
// parameters and results, model and health descriptions, and the shared
// error taxonomy. It has no behavior beyond validation and defaulting.
package types

import (
	"fmt"
	"time"
)

// Generation parameter defaults applied when a field is left zero.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultTopK        = 40
)

// InferenceParams are the caller-supplied generation parameters for one
// request. Zero values mean "use the default".
type InferenceParams struct {
	// Maximum number of new tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`
	// Sampling temperature (higher = more random).
	Temperature float64 `json:"temperature,omitempty"`
	// Nucleus sampling probability.
	TopP float64 `json:"top_p,omitempty"`
	// Top-K sampling: limit candidates to the top K tokens.
	TopK int `json:"top_k,omitempty"`
	// Stream results chunk by chunk instead of returning one result.
	Stream bool `json:"stream,omitempty"`
	// Per-request timeout in milliseconds. 0 uses the configured default;
	// values above the configured default are capped to it.
	TimeoutMillis int64 `json:"timeout_ms,omitempty"`
}

// Validate rejects parameter combinations no engine can honor.
func (p InferenceParams) Validate() error {
	if p.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must not be negative", ErrInvalidParams)
	}
	if p.Temperature < 0 {
		return fmt.Errorf("%w: temperature must not be negative", ErrInvalidParams)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return fmt.Errorf("%w: top_p must be within (0, 1]", ErrInvalidParams)
	}
	if p.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative", ErrInvalidParams)
	}
	if p.TimeoutMillis < 0 {
		return fmt.Errorf("%w: timeout_ms must not be negative", ErrInvalidParams)
	}
	return nil
}

// WithDefaults returns a copy with zero fields replaced by the defaults.
func (p InferenceParams) WithDefaults() InferenceParams {
	if p.MaxTokens == 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = DefaultTemperature
	}
	if p.TopP == 0 {
		p.TopP = DefaultTopP
	}
	if p.TopK == 0 {
		p.TopK = DefaultTopK
	}
	return p
}

// Timeout converts TimeoutMillis to a duration. Zero means unset.
func (p InferenceParams) Timeout() time.Duration {
	return time.Duration(p.TimeoutMillis) * time.Millisecond
}
