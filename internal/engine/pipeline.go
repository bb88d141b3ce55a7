// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/diffevo/compute"
)

// Observer receives pipeline progress. Implementations must be cheap; they
// are called on the solving goroutine.
type Observer interface {
	// KernelEnqueued is called after each successful launch.
	KernelEnqueued(kernel string)
}

type nopObserver struct{}

func (nopObserver) KernelEnqueued(string) {}

// pipeline enqueues the generational launch graph:
//
//	init -> eval0 -> { mutate_i -> evalTrial_i -> select_i } for each generation
//
// mutate_i waits on the event that made the current slot ready (eval0, then
// select_{i-1}); select_i waits on that same event and on evalTrial_i. No
// launch waits on anything else, so the device may overlap independent work.
type pipeline struct {
	dev  compute.Device
	pool *pool
	pr   Problem
	log  *slog.Logger
	obs  Observer

	evalGlobal uint32
	evalLocal  uint32

	launches int
}

func newPipeline(dev compute.Device, p *pool, pr Problem, log *slog.Logger, obs Observer) (*pipeline, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	pl := &pipeline{dev: dev, pool: p, pr: pr, log: log, obs: obs}
	if err := pl.sizeEval(); err != nil {
		return nil, err
	}
	return pl, nil
}

// sizeEval derives the eval dispatch: one work item per member, or
// LocalWorkSize work items per member grouped into one work group.
func (pl *pipeline) sizeEval() error {
	if pl.pr.LocalWorkSize == 0 {
		pl.evalGlobal = pl.pr.Population
		return nil
	}
	global := uint64(pl.pr.Population) * uint64(pl.pr.LocalWorkSize)
	if global > math.MaxUint32 {
		return newError(KindConfiguration, "size eval",
			fmt.Errorf("%d members x %d work items overflows the dispatch size", pl.pr.Population, pl.pr.LocalWorkSize))
	}
	pl.evalGlobal = uint32(global)
	pl.evalLocal = pl.pr.LocalWorkSize
	return nil
}

// run enqueues the whole graph and returns the slot that will hold the
// final generation. It does not wait for the device.
func (pl *pipeline) run() (slot, error) {
	n, d := pl.pr.Population, pl.pr.Attributes
	bufs := pl.pool

	initDone, err := pl.enqueue(kernelInit, compute.Launch{
		Label: "init",
		Args: []compute.Arg{
			compute.WriteBuffer(bufs.rng),
			compute.ReadBuffer(bufs.seeds),
			compute.WriteBuffer(bufs.pop[slotFirst]),
			compute.Uint32(n),
			compute.Uint32(d),
			compute.Real(pl.pr.Mu),
			compute.Real(pl.pr.Sigma),
		},
		Global: n,
	})
	if err != nil {
		return 0, err
	}

	evalDone, err := pl.enqueueEval(slotFirst, "eval[init]", initDone)
	if err != nil {
		return 0, err
	}

	rot := newRotation(evalDone)
	for i := uint32(0); i < pl.pr.Iterations; i++ {
		if err := pl.generation(&rot, i); err != nil {
			return 0, err
		}
	}

	if want := terminalSlot(pl.pr.Iterations); rot.current != want {
		return 0, newError(KindDispatch, "rotate slots",
			fmt.Errorf("terminal slot %v after %d generations, want %v", rot.current, pl.pr.Iterations, want))
	}

	pl.log.Debug("diffevo: pipeline enqueued",
		"generations", pl.pr.Iterations,
		"launches", pl.launches,
		"terminal", rot.current.String())
	return rot.current, nil
}

// generation enqueues mutate, trial evaluation and selection for generation
// i and advances the rotation.
func (pl *pipeline) generation(rot *rotation, i uint32) error {
	n, d := pl.pr.Population, pl.pr.Attributes
	bufs := pl.pool
	cur, trial, out := rot.current, rot.trial(), rot.next()

	mutated, err := pl.enqueue(kernelMutate, compute.Launch{
		Label: fmt.Sprintf("mutate[%d]", i),
		Args: []compute.Arg{
			compute.WriteBuffer(bufs.rng),
			compute.ReadBuffer(bufs.pop[cur]),
			compute.WriteBuffer(bufs.pop[trial]),
			compute.Uint32(n),
			compute.Uint32(d),
			compute.Real(pl.pr.Shrink),
			compute.Real(pl.pr.Crossover),
		},
		Global: n,
		Wait:   []compute.Event{rot.ready},
	})
	if err != nil {
		return err
	}

	trialDone, err := pl.enqueueEval(trial, fmt.Sprintf("eval[%d]", i), mutated)
	if err != nil {
		return err
	}

	selected, err := pl.enqueue(kernelSelect, compute.Launch{
		Label: fmt.Sprintf("select[%d]", i),
		Args: []compute.Arg{
			compute.ReadBuffer(bufs.pop[cur]),
			compute.ReadBuffer(bufs.costs[cur]),
			compute.ReadBuffer(bufs.pop[trial]),
			compute.ReadBuffer(bufs.costs[trial]),
			compute.WriteBuffer(bufs.pop[out]),
			compute.WriteBuffer(bufs.costs[out]),
			compute.Uint32(n),
			compute.Uint32(d),
		},
		Global: n,
		Wait:   []compute.Event{rot.ready, trialDone},
	})
	if err != nil {
		return err
	}

	rot.advance(selected)
	return nil
}

// enqueueEval evaluates the population in s once after waits.
func (pl *pipeline) enqueueEval(s slot, label string, after compute.Event) (compute.Event, error) {
	bufs := pl.pool
	return pl.enqueue(kernelEval, compute.Launch{
		Label: label,
		Args: []compute.Arg{
			compute.ReadBuffer(bufs.pop[s]),
			compute.WriteBuffer(bufs.costs[s]),
			compute.Uint32(pl.pr.Population),
			compute.Uint32(pl.pr.Attributes),
			compute.ReadBuffer(bufs.evalData),
			compute.Local(pl.pr.LocalDataSize),
		},
		Global: pl.evalGlobal,
		Local:  pl.evalLocal,
		Wait:   []compute.Event{after},
	})
}

func (pl *pipeline) enqueue(k kernelID, l compute.Launch) (compute.Event, error) {
	ev, err := pl.dev.Enqueue(pl.pool.kernels[k], l)
	if err != nil {
		return nil, newError(KindDispatch, "enqueue "+l.Label, err)
	}
	pl.launches++
	pl.obs.KernelEnqueued(k.String())
	return ev, nil
}
