// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/diffevo/compute"
)

func TestMetricsSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	p := validParams()
	p.Iterations = 3
	if _, err := Solve(sphereManifest, p, WithBackend(compute.BackendHost), WithMetrics(m)); err != nil {
		t.Fatal(err)
	}

	launches := map[string]float64{"init": 1, "eval": 4, "mutate": 3, "select": 3}
	for kernel, want := range launches {
		if got := testutil.ToFloat64(m.launches.WithLabelValues(kernel)); got != want {
			t.Errorf("kernel_launches_total{kernel=%q} = %v, want %v", kernel, got, want)
		}
	}
	if got := testutil.ToFloat64(m.solves.WithLabelValues("ok")); got != 1 {
		t.Errorf("solves_total{result=ok} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 1 {
		t.Errorf("solve_duration_seconds series = %d, want 1", n)
	}
}

func TestMetricsFailureKinds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observe(&Error{Kind: KindCompile, Op: "compile", Err: errors.New("x")}, 0, time.Millisecond)
	m.observe(&Error{Kind: KindCompile, Op: "compile", Err: errors.New("y")}, 0, time.Millisecond)
	m.observe(errors.New("plain"), 0, time.Millisecond)
	m.observe(nil, 0.25, time.Millisecond)

	const want = `
# HELP diffevo_solves_total Count of solves by result (ok or the failure kind).
# TYPE diffevo_solves_total counter
diffevo_solves_total{result="compile"} 2
diffevo_solves_total{result="error"} 1
diffevo_solves_total{result="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "diffevo_solves_total"); err != nil {
		t.Error(err)
	}
	if got := testutil.ToFloat64(m.bestCost); got != 0.25 {
		t.Errorf("best_cost = %v, want 0.25", got)
	}
}

func TestMetricsInvalidParams(t *testing.T) {
	m := NewMetrics(nil)
	if _, err := Solve(sphereManifest, Params{}, WithMetrics(m)); err == nil {
		t.Fatal("Solve() with zero Params succeeded")
	}
	if got := testutil.ToFloat64(m.solves.WithLabelValues("configuration")); got != 1 {
		t.Errorf("solves_total{result=configuration} = %v, want 1", got)
	}
}
