// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func validParams() Params {
	return Params{
		Iterations: 10,
		Population: 8,
		Attributes: 2,
		Mu:         0,
		Sigma:      1,
		Shrink:     0.5,
		Crossover:  0.9,
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr string
	}{
		{"valid", func(*Params) {}, ""},
		{"zero iterations", func(p *Params) { p.Iterations = 0 }, ""},
		{"negative iterations", func(p *Params) { p.Iterations = -1 }, "iterations must be >= 0"},
		{"zero population", func(p *Params) { p.Population = 0 }, "population must be >= 1"},
		{"zero attributes", func(p *Params) { p.Attributes = 0 }, "attributes must be >= 1"},
		{"negative sigma", func(p *Params) { p.Sigma = -0.1 }, "sigma must be >= 0"},
		{"zero sigma", func(p *Params) { p.Sigma = 0 }, ""},
		{"nan mu", func(p *Params) { p.Mu = math.NaN() }, "mu must be finite"},
		{"inf sigma", func(p *Params) { p.Sigma = math.Inf(1) }, "sigma must be finite"},
		{"shrink zero", func(p *Params) { p.Shrink = 0 }, "shrink must be > 0"},
		{"shrink one", func(p *Params) { p.Shrink = 1 }, "shrink must be < 1"},
		{"crossover zero", func(p *Params) { p.Crossover = 0 }, "crossover must be > 0"},
		{"crossover one", func(p *Params) { p.Crossover = 1 }, "crossover must be < 1"},
		{"negative local size", func(p *Params) { p.Eval.LocalWorkSize = -4 }, "eval.local_work_size must be >= 0"},
		{"negative local data", func(p *Params) { p.Eval.LocalDataSize = -1 }, "eval.local_data_size must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Validate() = %v, want ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParamsValidateReportsAll(t *testing.T) {
	p := Params{}
	err := p.Validate()
	if err == nil {
		t.Fatal("Validate() of zero Params = nil")
	}
	for _, field := range []string{"population", "attributes", "shrink", "crossover"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestParamsYAML(t *testing.T) {
	const doc = `
iterations: 50
population: 32
attributes: 4
mu: 1.5
sigma: 0.25
shrink: 0.7
crossover: 0.3
seed: 99
eval:
  local_work_size: 8
  local_data_size: 256
`
	var p Params
	if err := yaml.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatal(err)
	}
	want := Params{
		Iterations: 50, Population: 32, Attributes: 4,
		Mu: 1.5, Sigma: 0.25, Shrink: 0.7, Crossover: 0.3, Seed: 99,
		Eval: Eval{LocalWorkSize: 8, LocalDataSize: 256},
	}
	if p.Iterations != want.Iterations || p.Population != want.Population ||
		p.Attributes != want.Attributes || p.Mu != want.Mu || p.Sigma != want.Sigma ||
		p.Shrink != want.Shrink || p.Crossover != want.Crossover || p.Seed != want.Seed ||
		p.Eval.LocalWorkSize != want.Eval.LocalWorkSize || p.Eval.LocalDataSize != want.Eval.LocalDataSize {
		t.Errorf("decoded %+v, want %+v", p, want)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParamsProblem(t *testing.T) {
	p := validParams()
	p.Eval = Eval{ConstData: []byte{1, 2}, LocalWorkSize: 4, LocalDataSize: 64}
	pr := p.problem()
	if pr.Iterations != 10 || pr.Population != 8 || pr.Attributes != 2 {
		t.Errorf("sizes = %d/%d/%d, want 10/8/2", pr.Iterations, pr.Population, pr.Attributes)
	}
	if pr.LocalWorkSize != 4 || pr.LocalDataSize != 64 || len(pr.ConstData) != 2 {
		t.Errorf("eval config not carried: %+v", pr)
	}
}
