// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"math"

	"github.com/gogpu/diffevo/compute"
)

// Result is the best member found by a solve.
type Result struct {
	// Best holds the attributes of the best member.
	Best []float64

	// Cost is the cost of Best.
	Cost float64

	// Index is the member index of Best in the final generation.
	Index int
}

// extract drains the device, reads the costs of the terminal slot, and
// reads back the attributes of the cheapest member only.
func extract(dev compute.Device, p *pool, pr Problem, terminal slot) (Result, error) {
	if err := dev.Finish(); err != nil {
		return Result{}, newError(KindDispatch, "finish", err)
	}

	prec := dev.Info().Precision
	raw := make([]byte, p.layout.costBytes)
	if err := dev.ReadBuffer(p.costs[terminal], 0, raw); err != nil {
		return Result{}, newError(KindReadback, "read "+p.costs[terminal].Label(), err)
	}
	costs := prec.DecodeReals(raw)
	if uint32(len(costs)) != pr.Population {
		return Result{}, newError(KindReadback, "read "+p.costs[terminal].Label(),
			fmt.Errorf("decoded %d costs for %d members", len(costs), pr.Population))
	}

	best := argmin(costs)

	attrs := make([]byte, uint64(pr.Attributes)*p.layout.realSize)
	offset := p.layout.memberOffset(pr, uint32(best))
	if err := dev.ReadBuffer(p.pop[terminal], offset, attrs); err != nil {
		return Result{}, newError(KindReadback, "read "+p.pop[terminal].Label(), err)
	}

	return Result{
		Best:  prec.DecodeReals(attrs),
		Cost:  costs[best],
		Index: best,
	}, nil
}

// argmin returns the index of the smallest cost. Ties resolve to the
// lowest index and NaN never beats a number. An all-NaN slice yields 0.
func argmin(costs []float64) int {
	best := -1
	for i, c := range costs {
		if math.IsNaN(c) {
			continue
		}
		if best < 0 || c < costs[best] {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
