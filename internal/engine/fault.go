// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"io"
	"log/slog"
)

// faultController records the first failure of a solve and owns the
// cleanup list. It is used by a single goroutine.
type faultController struct {
	log  *slog.Logger
	diag io.Writer

	err       error
	secondary []error

	cleanups []cleanup
	tornDown bool
}

type cleanup struct {
	name string
	fn   func() error
}

func newFaultController(log *slog.Logger, diag io.Writer) *faultController {
	return &faultController{log: log, diag: diag}
}

// fail records err unless a failure is already recorded, emits a diagnostic
// and returns the recorded (first) error.
func (f *faultController) fail(err error) error {
	if err == nil {
		return f.err
	}
	if f.err != nil {
		f.secondary = append(f.secondary, err)
		f.log.Warn("diffevo: further failure after first fault", "err", err)
		return f.err
	}
	f.err = err
	f.log.Error("diffevo: solve failed", "kind", KindOf(err).String(), "err", err)
	f.emit("diffevo: %v\n", err)
	if buildLog := BuildLog(err); buildLog != "" {
		f.log.Error("diffevo: build log", "log", buildLog)
		f.emit("%s\n", buildLog)
	}
	return f.err
}

// failed reports whether a failure has been recorded.
func (f *faultController) failed() bool { return f.err != nil }

// Err returns the first recorded failure.
func (f *faultController) Err() error { return f.err }

// onTeardown registers fn to run during teardown. Cleanups run in reverse
// registration order.
func (f *faultController) onTeardown(name string, fn func() error) {
	f.cleanups = append(f.cleanups, cleanup{name: name, fn: fn})
}

// teardown runs every registered cleanup exactly once. Cleanup failures are
// reported on the diagnostic channel but never replace the recorded fault.
// It returns the joined cleanup failures for callers that want them.
func (f *faultController) teardown() []error {
	if f.tornDown {
		return nil
	}
	f.tornDown = true

	var errs []error
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		c := f.cleanups[i]
		if err := c.fn(); err != nil {
			errs = append(errs, err)
			f.secondary = append(f.secondary, err)
			f.log.Warn("diffevo: release failed", "step", c.name, "err", err)
			f.emit("diffevo: release %s: %v\n", c.name, err)
		}
	}
	f.cleanups = nil
	return errs
}

func (f *faultController) emit(format string, args ...any) {
	if f.diag == nil {
		return
	}
	_, _ = fmt.Fprintf(f.diag, format, args...)
}
