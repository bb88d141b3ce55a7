// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/diffevo/internal/engine"
)

// Result is the best member of the final generation.
type Result struct {
	// Best holds the member's attributes.
	Best []float64

	// Cost is the cost eval assigned to Best.
	Cost float64

	// Index is the member's position in the final population.
	Index int
}

// Solve runs one differential evolution solve. sourcePath names the eval
// source in the backend's program language: WGSL for "wgpu", a link
// manifest for "host".
//
// Solve blocks until the result has been read back and every device
// resource has been released. On failure it returns a *Error and no
// result.
func Solve(sourcePath string, p Params, opts ...Option) (Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return solve(sourcePath, p, &o)
}

// SolveInto runs Solve and stores the result in best and cost. It returns
// 0 on success and 1 on failure, after writing diagnostics to standard
// error (or the WithDiagnostics writer). On failure best and cost are left
// untouched.
//
// best must hold at least p.Attributes values.
func SolveInto(sourcePath string, p Params, best []float64, cost *float64, opts ...Option) int {
	o := options{diagnostics: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	if len(best) < p.Attributes || cost == nil {
		err := &Error{
			Kind: KindConfiguration,
			Op:   "outputs",
			Err:  fmt.Errorf("need room for %d attributes and a cost, got %d", p.Attributes, len(best)),
		}
		emit(o.diagnostics, err)
		return 1
	}
	res, err := solve(sourcePath, p, &o)
	if err != nil {
		return 1
	}
	copy(best, res.Best)
	*cost = res.Cost
	return 0
}

func solve(sourcePath string, p Params, o *options) (Result, error) {
	log := o.logger
	if log == nil {
		log = Logger()
	}
	log = log.With("solve", uuid.NewString())

	if err := p.Validate(); err != nil {
		log.Error("diffevo: invalid params", "err", err)
		emit(o.diagnostics, err)
		if o.metrics != nil {
			o.metrics.observe(err, 0, 0)
		}
		return Result{}, err
	}

	seed := o.seed
	if seed == 0 {
		seed = p.Seed
	}
	if seed == 0 {
		seed = engine.NewSeed()
	}
	log.Debug("diffevo: solve started",
		"source", sourcePath,
		"backend", o.backend,
		"seed", seed,
		"iterations", p.Iterations,
		"population", p.Population,
		"attributes", p.Attributes)

	cfg := engine.Config{
		Factory:     o.resolveFactory(),
		SourcePath:  sourcePath,
		Problem:     p.problem(),
		Seed:        seed,
		Logger:      log,
		Diagnostics: o.diagnostics,
	}
	if o.metrics != nil {
		cfg.Observer = o.metrics
	}

	res, stats, err := engine.Run(cfg)
	if o.metrics != nil {
		o.metrics.observe(err, res.Cost, stats.Elapsed)
	}
	if err != nil {
		return Result{}, err
	}
	log.Info("diffevo: solved",
		"backend", stats.Backend,
		"device", stats.Device,
		"elapsed", stats.Elapsed.Round(time.Microsecond),
		"cost", res.Cost)
	return Result{Best: res.Best, Cost: res.Cost, Index: res.Index}, nil
}

func emit(w io.Writer, err error) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "diffevo: %v\n", err)
}
