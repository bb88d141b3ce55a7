// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"

	"github.com/gogpu/diffevo/compute"
)

// slot indexes one of the three population/cost buffer pairs.
type slot int

const (
	// slotFirst holds the initial population and every even generation.
	slotFirst slot = 0

	// slotTrial holds mutated trial vectors. It is never a persisted
	// generation.
	slotTrial slot = 1

	// slotSecond holds every odd generation.
	slotSecond slot = 2

	slotCount slot = 3
)

func (s slot) String() string { return fmt.Sprintf("slot%d", int(s)) }

// rotation tracks which persisted slot holds the current generation and
// which event produced it. Selection always writes the other persisted
// slot, so the current slot is never written while it is read.
type rotation struct {
	current slot

	// ready completes when the current slot's population and costs are
	// final: the initial evaluation, then each selection.
	ready compute.Event

	generation uint32
}

func newRotation(ready compute.Event) rotation {
	return rotation{current: slotFirst, ready: ready}
}

// next returns the slot the coming selection writes.
func (r rotation) next() slot {
	if r.current == slotFirst {
		return slotSecond
	}
	return slotFirst
}

// trial returns the scratch slot for mutated vectors.
func (r rotation) trial() slot { return slotTrial }

// advance makes the slot written by selection current.
func (r *rotation) advance(selected compute.Event) {
	r.current = r.next()
	r.ready = selected
	r.generation++
}

// terminalSlot returns the slot holding the final generation after the
// given number of generations.
func terminalSlot(generations uint32) slot {
	if generations%2 == 0 {
		return slotFirst
	}
	return slotSecond
}
