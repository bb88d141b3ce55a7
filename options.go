// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import (
	"io"
	"log/slog"

	"github.com/gogpu/diffevo/compute"
)

// Option configures a solve.
//
// Example:
//
//	// Default backend, fresh seed
//	res, err := diffevo.Solve("eval.wgsl", p)
//
//	// Host backend, reproducible run
//	res, err := diffevo.Solve("eval.yaml", p,
//	    diffevo.WithBackend("host"),
//	    diffevo.WithSeed(42))
type Option func(*options)

type options struct {
	backend     string
	factory     compute.Factory
	seed        uint64
	logger      *slog.Logger
	diagnostics io.Writer
	metrics     *Metrics
}

// WithBackend selects a registered backend by name ("wgpu", "host").
// The default tries every registered backend in priority order.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithFactory opens the device with f, overriding WithBackend. Use it to
// run on a device shared with the rest of an application.
func WithFactory(f compute.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithSeed fixes the host seed, overriding Params.Seed. Solves with the
// same seed, params and backend produce the same result.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithLogger sets the logger for this solve only. The default is Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDiagnostics sets where failure diagnostics, including the complete
// build log of a failed compile, are written. Solve writes none by default;
// SolveInto defaults to standard error.
func WithDiagnostics(w io.Writer) Option {
	return func(o *options) {
		o.diagnostics = w
	}
}

// WithMetrics records the solve in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func (o *options) resolveFactory() compute.Factory {
	if o.factory != nil {
		return o.factory
	}
	if o.backend != "" {
		name := o.backend
		return func() (compute.Device, error) { return compute.Open(name) }
	}
	return compute.Default()
}
