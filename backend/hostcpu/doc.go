// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package hostcpu is a compute backend that runs kernels on host
// goroutines. It registers itself as compute.BackendHost.
//
// Programs are link manifests rather than shader text. The user's eval
// source names a registered Objective (or KernelFunc) for the eval entry
// point:
//
//	entry_points:
//	  eval: rastrigin
//
// The built-in source links init, mutate and select to Go implementations
// of the same generator and DE/rand/1/bin step used by the wgpu shader.
//
// Reals are stored as float64. Each launch becomes a task that waits only
// on its listed events; its work groups run on a shared work-stealing
// worker pool.
package hostcpu
