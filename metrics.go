// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "diffevo"

// Metrics records solve outcomes and kernel launches as Prometheus
// collectors. One Metrics may be shared by concurrent solves.
type Metrics struct {
	solves   *prometheus.CounterVec
	launches *prometheus.CounterVec
	duration prometheus.Histogram
	bestCost prometheus.Gauge
}

// NewMetrics creates the solver collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "solves_total",
				Help:      "Count of solves by result (ok or the failure kind).",
			},
			[]string{"result"},
		),
		launches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "kernel_launches_total",
				Help:      "Count of kernel launches enqueued, by kernel.",
			},
			[]string{"kernel"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "solve_duration_seconds",
				Help:      "Wall time of a solve, from device open to teardown.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		bestCost: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "best_cost",
				Help:      "Cost of the best member of the last successful solve.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.solves, m.launches, m.duration, m.bestCost)
	}
	return m
}

// KernelEnqueued counts one launch of kernel.
func (m *Metrics) KernelEnqueued(kernel string) {
	m.launches.WithLabelValues(kernel).Inc()
}

// observe records the outcome of one solve.
func (m *Metrics) observe(err error, cost float64, elapsed time.Duration) {
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.solves.WithLabelValues(resultLabel(err)).Inc()
		return
	}
	m.solves.WithLabelValues("ok").Inc()
	m.bestCost.Set(cost)
}

func resultLabel(err error) string {
	switch KindOf(err) {
	case KindConfiguration:
		return "configuration"
	case KindResource:
		return "resource"
	case KindCompile:
		return "compile"
	case KindDispatch:
		return "dispatch"
	case KindReadback:
		return "readback"
	default:
		return "error"
	}
}
