// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu is a compute backend that runs the solver on a GPU through
// the gogpu/wgpu HAL. It registers itself as compute.BackendWGPU.
//
// Programs are WGSL. Sources are concatenated after a header declaring the
// solver constants as u32, compiled to SPIR-V with naga, and loaded as one
// shader module. Kernel "name" is the compute entry point fn de_name:
//
//	@group(0) @binding(8)  var<uniform> params: EvalParams; // pop_size, attr_count
//	@group(0) @binding(9)  var<storage, read> pop: array<f32>;
//	@group(0) @binding(10) var<storage, read_write> costs: array<f32>;
//	@group(0) @binding(11) var<storage, read> data: array<f32>;
//
//	@compute @workgroup_size(DE_EVAL_LOCAL_SIZE)
//	fn de_eval(@builtin(global_invocation_id) gid: vec3<u32>) { ... }
//
// Reals are f32 on the device. Each launch is one compute pass recorded
// in enqueue order; passes on the queue run in that order, so launch wait
// lists hold without further synchronization.
//
// Build with -tags nogpu to leave this backend out.
package wgpu
