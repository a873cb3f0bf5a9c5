package pkg

import (
	"context"
	"errors"
)

// Argument and registration errors, detected before anything reaches a driver.
var (
	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBufferTooSmall indicates a buffer is shorter than its declared size.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNilCallback indicates a nil callback was given for registration.
	ErrNilCallback = errors.New("callback is nil")

	// ErrInvalidStream indicates an operation addressed a sub-stream that
	// does not support it (e.g. muting the video stream).
	ErrInvalidStream = errors.New("invalid stream for operation")
)

// Driver and lifecycle errors.
var (
	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrTimeout indicates a blocking operation hit its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates a blocking operation was cancelled.
	ErrCancelled = errors.New("operation cancelled")

	// ErrAlreadyRunning indicates the stream is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the stream is not running.
	ErrNotRunning = errors.New("not running")

	// ErrNotConnected indicates no device is connected.
	ErrNotConnected = errors.New("device not connected")

	// ErrNotConfigured indicates the sub-stream has not been configured.
	ErrNotConfigured = errors.New("stream not configured")

	// ErrInvalidState indicates the operation is not valid in the current
	// lifecycle state.
	ErrInvalidState = errors.New("invalid stream state")

	// ErrUnsupportedFormat indicates the device has no matching format.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ContextError maps a context error onto the package sentinels so callers can
// tell a deadline from a cancellation with errors.Is. Other errors pass
// through unchanged.
func ContextError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return ErrCancelled
	default:
		return err
	}
}
