// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compute defines the device abstraction used by the diffevo solver.
//
// A [Device] bundles one adapter, one context and one command queue. Kernels
// are launched with [Device.Enqueue]; every launch names the events it
// depends on and returns its own completion [Event], so callers describe a
// dependency graph rather than a serial stream.
//
// # Backends
//
// Backends register a [Factory] from init():
//
//	import _ "github.com/gogpu/diffevo/backend/wgpu"    // Vulkan via gogpu/wgpu
//	import _ "github.com/gogpu/diffevo/backend/hostcpu" // goroutine task graph
//
// [Default] tries wgpu first and falls back to the host backend.
//
// # Kernel Arguments
//
// Arguments are positional and typed ([ArgKind]). A kernel's [Signature]
// fixes the kinds; [Signature.Check] rejects mismatches before anything is
// dispatched. On backends with binding tables (WGSL), scalars are packed in
// order into one uniform block at Signature.Binding and buffers take the
// following bindings:
//
//	init(rng, seeds, pop, n, d, mu, sigma) with Binding = 0:
//	  @binding(0) uniform { n: u32, d: u32, mu: f32, sigma: f32 }
//	  @binding(1) rng    @binding(2) seeds    @binding(3) pop
//
// # Reals
//
// Devices store reals in their native [Precision]; [Precision.EncodeReals]
// and [Precision.DecodeReals] convert host float64 slices.
package compute
