// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hostcpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/diffevo/compute"
)

// KernelFunc runs one work group of a launch.
type KernelFunc func(g *Group) error

// Group is the view of one work group: its work item range, its scratch
// memory, and the launch arguments.
type Group struct {
	// ID is the work group index.
	ID uint32

	// Start and End bound the work items of the group: [Start, End).
	Start, End uint32

	// LocalSize is the work group size requested by the launch. Zero when
	// the device chose the grouping.
	LocalSize uint32

	// Scratch is memory shared by the work items of the group. It is
	// zeroed for every group.
	Scratch []byte

	args   []boundArg
	consts map[string]uint32
}

type boundArg struct {
	kind compute.ArgKind
	buf  *buffer
	u    uint32
	r    float64
}

// Uint returns scalar argument i.
func (g *Group) Uint(i int) uint32 { return g.args[i].u }

// Real returns scalar argument i.
func (g *Group) Real(i int) float64 { return g.args[i].r }

// Bytes returns the memory of buffer argument i, or nil when no buffer was
// bound.
func (g *Group) Bytes(i int) []byte {
	if g.args[i].buf == nil {
		return nil
	}
	return g.args[i].buf.data
}

// Load returns real idx of buffer argument i.
func (g *Group) Load(i int, idx uint32) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(g.Bytes(i)[uint64(idx)*8:]))
}

// Store sets real idx of buffer argument i.
func (g *Group) Store(i int, idx uint32, v float64) {
	binary.LittleEndian.PutUint64(g.Bytes(i)[uint64(idx)*8:], math.Float64bits(v))
}

// Word returns 32-bit word idx of buffer argument i.
func (g *Group) Word(i int, idx uint32) uint32 {
	return binary.LittleEndian.Uint32(g.Bytes(i)[uint64(idx)*4:])
}

// SetWord sets 32-bit word idx of buffer argument i.
func (g *Group) SetWord(i int, idx uint32, v uint32) {
	binary.LittleEndian.PutUint32(g.Bytes(i)[uint64(idx)*4:], v)
}

// Const returns a compile-time constant of the program.
func (g *Group) Const(name string) (uint32, bool) {
	v, ok := g.consts[name]
	return v, ok
}

func (g *Group) loadState(i int, member uint32) rngState {
	var s rngState
	for w := range s {
		s[w] = g.Word(i, member*4+uint32(w))
	}
	return s
}

func (g *Group) storeState(i int, member uint32, s rngState) {
	for w, v := range s {
		g.SetWord(i, member*4+uint32(w), v)
	}
}

// =============================================================================
// Kernel registry
// =============================================================================

var (
	kernelsMu sync.RWMutex
	kernels   = map[string]KernelFunc{
		"diffevo.init":   initKernel,
		"diffevo.mutate": mutateKernel,
		"diffevo.select": selectKernel,
	}
)

// RegisterKernel makes fn linkable under name. Manifests refer to kernels
// and objectives by name; a kernel takes precedence over an objective of
// the same name.
func RegisterKernel(name string, fn KernelFunc) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[name] = fn
}

// lookupKernel resolves name to a kernel or a wrapped objective.
func lookupKernel(name string) (KernelFunc, bool) {
	kernelsMu.RLock()
	fn, ok := kernels[name]
	kernelsMu.RUnlock()
	if ok {
		return fn, true
	}
	if obj, ok := lookupObjective(name); ok {
		return objectiveKernel(obj), true
	}
	return nil, false
}

// =============================================================================
// Built-in kernels
// =============================================================================

// initKernel: init(rng, seeds, pop, popSize, attrCount, mu, sigma).
// Seeds each member's generator and draws N(mu, sigma) attributes.
func initKernel(g *Group) error {
	n, attrs := g.Uint(3), g.Uint(4)
	mu, sigma := g.Real(5), g.Real(6)
	for i := g.Start; i < g.End && i < n; i++ {
		s := seedState(g.Word(1, i))
		for k := range attrs {
			g.Store(2, i*attrs+k, mu+sigma*s.normal())
		}
		g.storeState(0, i, s)
	}
	return nil
}

// mutateKernel: mutate(rng, base, trial, popSize, attrCount, shrink, crossover).
// DE/rand/1/bin: trial = base[a] + shrink*(base[b]-base[c]) per attribute
// with probability crossover, and always at one forced attribute.
func mutateKernel(g *Group) error {
	n, attrs := g.Uint(3), g.Uint(4)
	shrink, crossover := g.Real(5), g.Real(6)
	if attrs == 0 {
		return nil
	}
	for i := g.Start; i < g.End && i < n; i++ {
		s := g.loadState(0, i)
		a, b, c := pickDonors(&s, i, n)
		forced := s.below(attrs)
		for k := range attrs {
			v := g.Load(1, i*attrs+k)
			if k == forced || s.uniform() < crossover {
				v = g.Load(1, a*attrs+k) + shrink*(g.Load(1, b*attrs+k)-g.Load(1, c*attrs+k))
			}
			g.Store(2, i*attrs+k, v)
		}
		g.storeState(0, i, s)
	}
	return nil
}

// pickDonors draws three members distinct from each other and from i. With
// fewer than four members it draws with replacement.
func pickDonors(s *rngState, i, n uint32) (uint32, uint32, uint32) {
	if n < 4 {
		return s.below(n), s.below(n), s.below(n)
	}
	excluded := [4]uint32{i}
	count := uint32(1)
	var picks [3]uint32
	for p := range picks {
		r := s.below(n - count)
		// Skip excluded indices in ascending order.
		for e := range count {
			if r >= excluded[e] {
				r++
			}
		}
		picks[p] = r
		// Keep excluded sorted.
		j := count
		for j > 0 && excluded[j-1] > r {
			excluded[j] = excluded[j-1]
			j--
		}
		excluded[j] = r
		count++
	}
	return picks[0], picks[1], picks[2]
}

// selectKernel: select(candPop, candCosts, trialPop, trialCosts, outPop,
// outCosts, popSize, attrCount). Keeps the trial only when strictly cheaper,
// so a member whose cost is NaN is never replaced.
func selectKernel(g *Group) error {
	n, attrs := g.Uint(6), g.Uint(7)
	for i := g.Start; i < g.End && i < n; i++ {
		pop, costs := 0, 1
		if g.Load(3, i) < g.Load(1, i) {
			pop, costs = 2, 3
		}
		for k := range attrs {
			g.Store(4, i*attrs+k, g.Load(pop, i*attrs+k))
		}
		g.Store(5, i, g.Load(costs, i))
	}
	return nil
}

// objectiveKernel adapts an Objective to eval(pop, costs, popSize,
// attrCount, constData, scratch). With an explicit work group size each
// group evaluates the member equal to its ID.
func objectiveKernel(obj Objective) KernelFunc {
	return func(g *Group) error {
		n, attrs := g.Uint(2), g.Uint(3)
		data := g.Bytes(4)
		x := make([]float64, attrs)
		eval := func(i uint32) error {
			for k := range attrs {
				x[k] = g.Load(0, i*attrs+k)
			}
			cost, err := callObjective(obj, x, data)
			if err != nil {
				return fmt.Errorf("%w: member %d: %w", errKernel, i, err)
			}
			g.Store(1, i, cost)
			return nil
		}
		if g.LocalSize > 0 {
			if g.ID < n {
				return eval(g.ID)
			}
			return nil
		}
		for i := g.Start; i < g.End && i < n; i++ {
			if err := eval(i); err != nil {
				return err
			}
		}
		return nil
	}
}

// callObjective runs obj and turns a panic into an error.
func callObjective(obj Objective, x []float64, data []byte) (cost float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("objective panicked: %v", r)
		}
	}()
	return obj(x, data), nil
}
