// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hostcpu

import (
	"math"
	"sort"
	"sync"
)

// Objective computes the cost of one member. data is the solve's constant
// data, or nil. Lower is better.
type Objective func(x []float64, data []byte) float64

var (
	objectivesMu sync.RWMutex
	objectives   = map[string]Objective{
		"sphere":     Sphere,
		"rosenbrock": Rosenbrock,
		"rastrigin":  Rastrigin,
	}
)

// RegisterObjective makes obj linkable as an eval entry point under name.
// An existing objective with the same name is replaced.
func RegisterObjective(name string, obj Objective) {
	objectivesMu.Lock()
	defer objectivesMu.Unlock()
	objectives[name] = obj
}

// Objectives returns the sorted names of registered objectives.
func Objectives() []string {
	objectivesMu.RLock()
	defer objectivesMu.RUnlock()
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupObjective(name string) (Objective, bool) {
	objectivesMu.RLock()
	defer objectivesMu.RUnlock()
	obj, ok := objectives[name]
	return obj, ok
}

// Sphere is the sum of squares. Minimum 0 at the origin.
func Sphere(x []float64, _ []byte) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return s
}

// Rosenbrock is the generalized Rosenbrock valley. Minimum 0 at (1, ..., 1).
func Rosenbrock(x []float64, _ []byte) float64 {
	s := 0.0
	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		s += 100*a*a + b*b
	}
	return s
}

// Rastrigin is highly multimodal. Minimum 0 at the origin.
func Rastrigin(x []float64, _ []byte) float64 {
	s := 10 * float64(len(x))
	for _, v := range x {
		s += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return s
}
