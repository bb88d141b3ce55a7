// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"

	"github.com/gogpu/diffevo/compute"
)

// Problem is the validated, device-sized form of the solver parameters.
type Problem struct {
	Iterations uint32
	Population uint32
	Attributes uint32

	Mu    float64
	Sigma float64

	Shrink    float64
	Crossover float64

	// ConstData is copied into a read-only buffer visible to eval.
	// Nil when not needed.
	ConstData []byte

	// LocalWorkSize is the number of work items per member for eval.
	// Zero evaluates each member with a single work item.
	LocalWorkSize uint32

	// LocalDataSize is the scratch size in bytes shared by the work items
	// of one member. Only meaningful with LocalWorkSize > 0.
	LocalDataSize uint32
}

// rngStateSize is the per-member RNG state: four 32-bit xorshift words.
const rngStateSize = 16

// checkLimits rejects parallelism settings the device cannot honor.
func (p Problem) checkLimits(info compute.DeviceInfo) error {
	if p.LocalWorkSize > 0 && info.MaxLocalSize > 0 && p.LocalWorkSize > info.MaxLocalSize {
		return newError(KindConfiguration, "check limits",
			fmt.Errorf("local work size %d exceeds device limit %d", p.LocalWorkSize, info.MaxLocalSize))
	}
	if p.LocalDataSize > 0 && info.MaxLocalMemory > 0 && p.LocalDataSize > info.MaxLocalMemory {
		return newError(KindConfiguration, "check limits",
			fmt.Errorf("local data size %d exceeds device limit %d", p.LocalDataSize, info.MaxLocalMemory))
	}
	return nil
}

// constants returns the compile-time constants derived from the problem.
// The eval source sizes its work group and scratch from them.
func (p Problem) constants(defaultLocal uint32) []compute.Constant {
	local := p.LocalWorkSize
	if local == 0 {
		local = defaultLocal
	}
	return []compute.Constant{
		{Name: ConstEvalLocalSize, Value: local},
		{Name: ConstEvalScratchSize, Value: p.LocalDataSize},
	}
}

// layout holds the byte sizes of every buffer of a solve.
type layout struct {
	realSize  uint64
	popBytes  uint64
	costBytes uint64
	rngBytes  uint64
	seedBytes uint64
}

func newLayout(p Problem, prec compute.Precision) layout {
	size := uint64(prec.Size())
	n := uint64(p.Population)
	return layout{
		realSize:  size,
		popBytes:  n * uint64(p.Attributes) * size,
		costBytes: n * size,
		rngBytes:  n * rngStateSize,
		seedBytes: n * 4,
	}
}

// memberOffset returns the byte offset of member i in a population slot.
func (l layout) memberOffset(p Problem, i uint32) uint64 {
	return uint64(i) * uint64(p.Attributes) * l.realSize
}
