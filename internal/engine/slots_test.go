// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import "testing"

func TestRotationAlternatesPersistedSlots(t *testing.T) {
	rot := newRotation(&mockEvent{label: "eval[init]"})
	for g := uint32(0); g < 10; g++ {
		cur, trial, out := rot.current, rot.trial(), rot.next()
		if trial != slotTrial {
			t.Fatalf("generation %d: trial = %v, want %v", g, trial, slotTrial)
		}
		if cur == slotTrial || out == slotTrial {
			t.Fatalf("generation %d: persisted slot is the trial slot (cur=%v out=%v)", g, cur, out)
		}
		if cur == out {
			t.Fatalf("generation %d: select writes the slot it reads (%v)", g, cur)
		}
		if cur != terminalSlot(g) {
			t.Errorf("generation %d: current = %v, want %v", g, cur, terminalSlot(g))
		}
		rot.advance(&mockEvent{label: "select"})
	}
	if rot.generation != 10 {
		t.Errorf("generation = %d, want 10", rot.generation)
	}
}

func TestRotationAdvanceUpdatesReady(t *testing.T) {
	first := &mockEvent{label: "eval[init]"}
	rot := newRotation(first)
	if rot.ready != first {
		t.Fatalf("ready = %v, want eval[init]", rot.ready)
	}
	sel := &mockEvent{label: "select[0]"}
	rot.advance(sel)
	if rot.ready != sel {
		t.Errorf("ready = %v, want select[0]", rot.ready)
	}
	if rot.current != slotSecond {
		t.Errorf("current = %v, want %v", rot.current, slotSecond)
	}
}

func TestTerminalSlot(t *testing.T) {
	tests := []struct {
		generations uint32
		want        slot
	}{
		{0, slotFirst},
		{1, slotSecond},
		{2, slotFirst},
		{7, slotSecond},
		{1000, slotFirst},
	}
	for _, tt := range tests {
		if got := terminalSlot(tt.generations); got != tt.want {
			t.Errorf("terminalSlot(%d) = %v, want %v", tt.generations, got, tt.want)
		}
	}
}

func TestSlotString(t *testing.T) {
	if got := slotSecond.String(); got != "slot2" {
		t.Errorf("String() = %q, want %q", got, "slot2")
	}
}
