// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import "github.com/gogpu/diffevo/compute"

// kernelID indexes the four kernels of a solve.
type kernelID int

const (
	kernelInit kernelID = iota
	kernelEval
	kernelMutate
	kernelSelect

	kernelCount
)

// Entry point names. The user source defines eval; the backend's built-in
// source defines the other three.
const (
	EntryInit   = "init"
	EntryEval   = "eval"
	EntryMutate = "mutate"
	EntrySelect = "select"
)

// Compile-time constants visible to every source of the program.
const (
	ConstEvalLocalSize   = "DE_EVAL_LOCAL_SIZE"
	ConstEvalScratchSize = "DE_EVAL_SCRATCH_SIZE"
)

func (k kernelID) String() string {
	switch k {
	case kernelInit:
		return EntryInit
	case kernelEval:
		return EntryEval
	case kernelMutate:
		return EntryMutate
	case kernelSelect:
		return EntrySelect
	default:
		return "unknown"
	}
}

// Signatures is the kernel contract. Binding bases leave room for the
// uniform block plus up to seven buffers per kernel.
var Signatures = [kernelCount]compute.Signature{
	// init(rng, seeds, pop, popSize, attrCount, mu, sigma)
	kernelInit: {Binding: 0, Args: []compute.ArgKind{
		compute.ArgBufferWrite, compute.ArgBufferRead, compute.ArgBufferWrite,
		compute.ArgUint32, compute.ArgUint32, compute.ArgReal, compute.ArgReal,
	}},
	// eval(pop, costs, popSize, attrCount, constData, scratch)
	kernelEval: {Binding: 8, Args: []compute.ArgKind{
		compute.ArgBufferRead, compute.ArgBufferWrite,
		compute.ArgUint32, compute.ArgUint32,
		compute.ArgBufferRead, compute.ArgLocal,
	}},
	// mutate(rng, basePop, trialPop, popSize, attrCount, shrink, crossover)
	kernelMutate: {Binding: 16, Args: []compute.ArgKind{
		compute.ArgBufferWrite, compute.ArgBufferRead, compute.ArgBufferWrite,
		compute.ArgUint32, compute.ArgUint32, compute.ArgReal, compute.ArgReal,
	}},
	// select(candPop, candCosts, trialPop, trialCosts, outPop, outCosts, popSize, attrCount)
	kernelSelect: {Binding: 24, Args: []compute.ArgKind{
		compute.ArgBufferRead, compute.ArgBufferRead,
		compute.ArgBufferRead, compute.ArgBufferRead,
		compute.ArgBufferWrite, compute.ArgBufferWrite,
		compute.ArgUint32, compute.ArgUint32,
	}},
}
