package pkg

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	// Verify all sentinel errors are distinct
	errs := []error{
		ErrInvalidParameter,
		ErrBufferTooSmall,
		ErrNilCallback,
		ErrInvalidStream,
		ErrNotSupported,
		ErrTimeout,
		ErrCancelled,
		ErrAlreadyRunning,
		ErrNotRunning,
		ErrNotConnected,
		ErrNotConfigured,
		ErrInvalidState,
		ErrUnsupportedFormat,
	}

	for i, err1 := range errs {
		if err1 == nil {
			t.Errorf("error %d is nil", i)
			continue
		}
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("error %d and %d are equal", i, j)
			}
		}
	}
}

func TestContextError(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"wrapped deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), ErrTimeout},
		{"cancelled", context.Canceled, ErrCancelled},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContextError(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ContextError(%v) = %v, want nil", tt.in, got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("ContextError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
