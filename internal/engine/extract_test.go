// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/diffevo/compute"
)

func TestArgmin(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name  string
		costs []float64
		want  int
	}{
		{"single", []float64{3}, 0},
		{"last", []float64{3, 2, 1}, 2},
		{"tie resolves low", []float64{5, 1, 4, 1}, 1},
		{"nan skipped", []float64{nan, 2, nan, 1}, 3},
		{"leading nan", []float64{nan, 7}, 1},
		{"all nan", []float64{nan, nan}, 0},
		{"negative inf", []float64{0, math.Inf(-1), -1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argmin(tt.costs); got != tt.want {
				t.Errorf("argmin(%v) = %d, want %d", tt.costs, got, tt.want)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	pr := Problem{Population: 10, Attributes: 4}
	l := newLayout(pr, compute.Float32)
	if l.popBytes != 160 || l.costBytes != 40 || l.rngBytes != 160 || l.seedBytes != 40 {
		t.Errorf("layout = %+v", l)
	}
	if got := l.memberOffset(pr, 3); got != 48 {
		t.Errorf("memberOffset(3) = %d, want 48", got)
	}
}

// =============================================================================
// faultController
// =============================================================================

func TestFaultControllerKeepsFirstError(t *testing.T) {
	var diag bytes.Buffer
	fc := newFaultController(slog.New(slog.NewTextHandler(&diag, nil)), nil)
	first := newError(KindDispatch, "enqueue mutate[0]", errors.New("boom"))
	second := newError(KindReadback, "read costs[0]", errors.New("late"))

	if got := fc.fail(first); got != first {
		t.Errorf("fail(first) = %v, want first", got)
	}
	if got := fc.fail(second); got != first {
		t.Errorf("fail(second) = %v, want first", got)
	}
	if !fc.failed() || fc.Err() != first {
		t.Errorf("Err() = %v, want first", fc.Err())
	}
	if len(fc.secondary) != 1 {
		t.Errorf("secondary = %v, want 1 entry", fc.secondary)
	}
}

func TestFaultControllerTeardownOnceInReverse(t *testing.T) {
	fc := newFaultController(slog.New(slog.DiscardHandler), nil)
	var order []string
	fc.onTeardown("session", func() error { order = append(order, "session"); return nil })
	fc.onTeardown("buffers", func() error { order = append(order, "buffers"); return errors.New("stuck") })

	errs := fc.teardown()
	if len(errs) != 1 {
		t.Errorf("teardown() = %v, want 1 error", errs)
	}
	if got := strings.Join(order, ","); got != "buffers,session" {
		t.Errorf("order = %s, want buffers,session", got)
	}
	if errs := fc.teardown(); errs != nil {
		t.Errorf("second teardown() = %v, want nil", errs)
	}
	if len(order) != 2 {
		t.Errorf("cleanups ran %d times, want 2", len(order))
	}
	if fc.Err() != nil {
		t.Errorf("Err() = %v, want nil after cleanup failure", fc.Err())
	}
}

func TestErrorKinds(t *testing.T) {
	err := newError(KindCompile, "compile", &compute.BuildError{Program: "p", Log: "line 1\nline 2"})
	if !errors.Is(err, ErrCompile) {
		t.Error("errors.Is(err, ErrCompile) = false")
	}
	if errors.Is(err, ErrDispatch) {
		t.Error("errors.Is(err, ErrDispatch) = true")
	}
	if got := KindOf(err); got != KindCompile {
		t.Errorf("KindOf() = %v, want %v", got, KindCompile)
	}
	if got := BuildLog(err); got != "line 1\nline 2" {
		t.Errorf("BuildLog() = %q", got)
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", got)
	}
	if !strings.Contains(err.Error(), "compile error") {
		t.Errorf("Error() = %q", err.Error())
	}
}
