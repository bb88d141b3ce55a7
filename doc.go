// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package diffevo minimizes a user-supplied cost function with
// differential evolution on a compute device.
//
// # Overview
//
// The caller writes one kernel, eval, that assigns a cost to every member
// of a population. diffevo owns the rest: it opens a device, compiles eval
// together with its built-in init, mutate and select kernels, allocates
// the population, runs every generation on the device without host
// round-trips, and reads back only the best member.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/diffevo"
//	    _ "github.com/gogpu/diffevo/backend/wgpu"
//	)
//
//	res, err := diffevo.Solve("eval.wgsl", diffevo.Params{
//	    Iterations: 200,
//	    Population: 64,
//	    Attributes: 8,
//	    Sigma:      2,
//	    Shrink:     0.6,
//	    Crossover:  0.9,
//	})
//
// # Backends
//
// Backends register themselves with the compute package when imported:
//
//	backend/wgpu     GPU compute passes through gogpu/wgpu (WGSL sources)
//	backend/hostcpu  goroutine task graph (YAML link manifests)
//
// The host backend is always linked. The default backend is the first
// that opens, in the order wgpu, host.
//
// # Algorithm
//
// Each generation applies DE/rand/1/bin: for member i three distinct
// donors a, b, c are drawn, one attribute is always taken from
// a + F*(b - c) and every other with probability CR, and the trial
// replaces i only if its cost is strictly lower. The cost of a member
// therefore never increases across generations.
//
// # Errors
//
// Every failure is a *Error classified by Kind. A compile failure carries
// the complete build log, available through BuildLog.
package diffevo

import (
	// The host backend is always available.
	_ "github.com/gogpu/diffevo/backend/hostcpu"
)
