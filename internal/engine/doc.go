// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package engine is the host-side execution engine of the diffevo solver.
//
// A solve moves through five parts, each in its own file:
//
//   - session.go: opens the device (context + queue) and builds the program
//     from the user's eval source and the backend's algorithm source
//   - pool.go: allocates RNG state, seeds, three population slots, three
//     cost slots, optional constant data, and the four kernels
//   - pipeline.go: enqueues init, eval and one mutate/eval/select round per
//     generation, each launch waiting only on the events it reads from
//   - extract.go: drains the queue and reads back the best member
//   - fault.go: keeps the first failure and runs teardown exactly once
//
// # Slot Rotation
//
// Slots 0 and 2 alternate as the current generation; slot 1 only ever holds
// trial vectors. Selection reads the current slot and the trial slot and
// writes the other persisted slot:
//
//	generation   current   trial   written by select
//	0            0         1       2
//	1            2         1       0
//	2            0         1       2
//
// After n generations the final population is in slot 0 for even n and in
// slot 2 for odd n.
package engine
