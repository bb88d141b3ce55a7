// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/gogpu/diffevo/compute"
)

// defaultEvalLocalSize is the work group size announced to the eval source
// when no per-member parallelism is configured.
const defaultEvalLocalSize = 64

// Config describes one solve.
type Config struct {
	// Factory opens the device. Required.
	Factory compute.Factory

	// SourcePath is the path of the eval source. Required.
	SourcePath string

	Problem Problem

	// Seed drives the host generator of per-member seeds.
	Seed uint64

	// Logger receives lifecycle and diagnostic records. Nil discards them.
	Logger *slog.Logger

	// Diagnostics receives human-readable failure messages, including the
	// full build log of a failed compile. Nil disables it.
	Diagnostics io.Writer

	// Observer receives launch notifications. Nil disables them.
	Observer Observer
}

// Stats summarizes a completed or failed solve.
type Stats struct {
	Backend  string
	Device   string
	Launches int
	Terminal int
	Elapsed  time.Duration

	// ReleaseErrors holds failures seen during teardown. They never
	// replace the solve error.
	ReleaseErrors []error
}

// Run executes one solve: open the session, compile, allocate, enqueue the
// generational pipeline, and extract the best member. Every acquired
// resource is released before Run returns, on success and on failure.
//
// No partial result is returned on failure.
func Run(cfg Config) (res Result, stats Stats, err error) {
	log := cfg.Logger
	if log == nil {
		log = compute.Logger()
	}
	start := time.Now()
	fc := newFaultController(log, cfg.Diagnostics)
	defer func() {
		stats.ReleaseErrors = fc.teardown()
		stats.Elapsed = time.Since(start)
		err = fc.Err()
		if fc.failed() {
			res = Result{}
		}
	}()

	res, err = run(cfg, log, fc, &stats)
	if err != nil {
		fc.fail(err)
	}
	return res, stats, fc.Err()
}

func run(cfg Config, log *slog.Logger, fc *faultController, stats *Stats) (Result, error) {
	pr := cfg.Problem

	s, err := openSession(cfg.Factory, log)
	if err != nil {
		return Result{}, err
	}
	fc.onTeardown("session", s.teardown)
	stats.Backend, stats.Device = s.info.Backend, s.info.Name

	if err := pr.checkLimits(s.info); err != nil {
		return Result{}, err
	}
	if err := s.compile(cfg.SourcePath, pr.constants(defaultEvalLocalSize)); err != nil {
		return Result{}, err
	}

	p := newPool(s.device, log)
	fc.onTeardown("buffers", p.release)
	if err := p.allocate(s.program, pr, Seeds(cfg.Seed, pr.Population)); err != nil {
		return Result{}, err
	}

	pl, err := newPipeline(s.device, p, pr, log, cfg.Observer)
	if err != nil {
		return Result{}, err
	}
	terminal, err := pl.run()
	stats.Launches = pl.launches
	if err != nil {
		return Result{}, err
	}
	stats.Terminal = int(terminal)

	res, err := extract(s.device, p, pr, terminal)
	if err != nil {
		return Result{}, err
	}
	log.Info("diffevo: solve finished",
		"generations", pr.Iterations,
		"launches", pl.launches,
		"best_cost", res.Cost,
		"best_index", res.Index)
	return res, nil
}
