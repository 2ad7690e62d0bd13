package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfMapsEverySentinel(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeOK},
		{ErrInvalidParams, CodeInvalidParams},
		{ErrInvalidConfig, CodeInvalidConfig},
		{ErrAuthFailed, CodeAuthFailed},
		{ErrSessionExpired, CodeSessionExpired},
		{ErrSessionNotFound, CodeSessionNotFound},
		{ErrQueueFull, CodeQueueFull},
		{ErrModelNotFound, CodeModelNotFound},
		{ErrModelLoadFailed, CodeModelLoadFailed},
		{ErrInferenceFailed, CodeInferenceFailed},
		{ErrContextExceeded, CodeContextExceeded},
		{ErrTimeout, CodeTimeout},
		{ErrCancelled, CodeCancelled},
		{ErrShuttingDown, CodeShuttingDown},
		{ErrInternal, CodeInternal},
	}
	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Fatalf("CodeOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestCodeOfSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("%w: handle 42", ErrModelNotFound)
	if got := CodeOf(err); got != CodeModelNotFound {
		t.Fatalf("wrapped error mapped to %d, want %d", got, CodeModelNotFound)
	}
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("wrapped error lost its sentinel")
	}
}

func TestCodeOfUnknownErrorIsInternal(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Fatalf("unknown error mapped to %d, want %d", got, CodeInternal)
	}
}

func TestIsBackpressure(t *testing.T) {
	if !IsBackpressure(fmt.Errorf("%w: depth 1000", ErrQueueFull)) {
		t.Fatalf("queue-full should be backpressure")
	}
	if IsBackpressure(ErrTimeout) {
		t.Fatalf("timeout is not backpressure")
	}
}
