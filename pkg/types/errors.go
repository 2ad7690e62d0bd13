package types

import "errors"

// Sentinel errors shared by every component. Callers branch on these with
// errors.Is; components wrap them with fmt.Errorf("%w: ...") to attach
// request-specific detail without changing the kind.
var (
	// Caller contract violations. Local to the failing call, no state change.
	ErrInvalidParams = errors.New("invalid inference parameters")
	ErrInvalidConfig = errors.New("invalid runtime configuration")

	// Identity and authorization failures. Never fatal to the runtime.
	ErrAuthFailed      = errors.New("authentication failed")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")

	// Backpressure. The caller should retry later; not an internal fault.
	ErrQueueFull = errors.New("request queue is full")

	// Model lifecycle failures, scoped to one handle.
	ErrModelNotFound   = errors.New("model not found")
	ErrModelLoadFailed = errors.New("model load failed")

	// Per-request failures. Do not affect sibling requests or the
	// model's loaded state.
	ErrInferenceFailed = errors.New("inference failed")
	ErrContextExceeded = errors.New("context length exceeded")
	ErrTimeout         = errors.New("request timed out")
	ErrCancelled       = errors.New("request cancelled")

	// Runtime lifecycle: all new work is rejected.
	ErrShuttingDown = errors.New("runtime is shutting down")

	// Unexpected invariant violation. Logged; the request fails but the
	// runtime stays up.
	ErrInternal = errors.New("internal error")
)

// Code is the stable numeric identifier a boundary layer serializes for
// each error kind. Values never change between releases.
type Code int32

const (
	CodeOK              Code = 0
	CodeInvalidConfig   Code = -2
	CodeAuthFailed      Code = -3
	CodeSessionExpired  Code = -4
	CodeSessionNotFound Code = -5
	CodeRateLimited     Code = -6
	CodeModelNotFound   Code = -7
	CodeModelLoadFailed Code = -8
	CodeInferenceFailed Code = -9
	CodeContextExceeded Code = -10
	CodeInvalidParams   Code = -11
	CodeQueueFull       Code = -12
	CodeShuttingDown    Code = -13
	CodeTimeout         Code = -14
	CodeCancelled       Code = -15
	CodeInternal        Code = -99
)

// CodeOf maps err to its stable Code. A nil error is CodeOK; an error
// that wraps none of the sentinels is CodeInternal.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidParams):
		return CodeInvalidParams
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, ErrAuthFailed):
		return CodeAuthFailed
	case errors.Is(err, ErrSessionExpired):
		return CodeSessionExpired
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, ErrQueueFull):
		return CodeQueueFull
	case errors.Is(err, ErrModelNotFound):
		return CodeModelNotFound
	case errors.Is(err, ErrModelLoadFailed):
		return CodeModelLoadFailed
	case errors.Is(err, ErrContextExceeded):
		return CodeContextExceeded
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	case errors.Is(err, ErrInferenceFailed):
		return CodeInferenceFailed
	case errors.Is(err, ErrShuttingDown):
		return CodeShuttingDown
	default:
		return CodeInternal
	}
}

// IsBackpressure reports whether err means the caller should back off and
// retry later rather than treat the failure as permanent.
func IsBackpressure(err error) bool {
	return errors.Is(err, ErrQueueFull)
}
