// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import (
	"log/slog"

	"github.com/gogpu/diffevo/compute"
)

// SetLogger configures the logger for diffevo and every compute backend.
// By default, diffevo produces no log output. Pass nil to restore the
// silent default.
//
// SetLogger is safe for concurrent use.
//
// Log levels used by diffevo:
//   - [slog.LevelDebug]: launches, buffer sizes, compiled programs
//   - [slog.LevelInfo]: device selection, solve completion
//   - [slog.LevelWarn]: release failures during teardown
//   - [slog.LevelError]: the failure that ended a solve
//
// Example:
//
//	diffevo.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	compute.SetLogger(l)
}

// Logger returns the current logger. It never returns nil.
func Logger() *slog.Logger {
	return compute.Logger()
}
