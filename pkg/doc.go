// Package pkg provides shared utilities for the usbstream packages.
//
// This package contains common functionality used by the controller, the
// driver implementations and the command-line tool, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for argument, lifecycle and driver failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentSim, "device connected", "vid", 0x303a)
//
// Components that accept an injected logger use [ForComponent] to tag it.
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrTimeout) {
//	    // Retry or give up
//	}
package pkg
