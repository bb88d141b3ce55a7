// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/diffevo"
)

type solveFlags struct {
	source   string
	config   string
	backend  string
	seed     uint64
	data     string
	logLevel string

	// Overrides, applied only when set on the command line.
	params diffevo.Params
}

// output is the YAML document printed after a successful solve.
type output struct {
	Backend string    `yaml:"backend,omitempty"`
	Cost    float64   `yaml:"cost"`
	Index   int       `yaml:"index"`
	Best    []float64 `yaml:"best,flow"`
}

func newSolveCmd() *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Minimize the cost computed by an eval source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSolve(cmd, &f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.source, "source", "s", "", "eval source (WGSL for wgpu, link manifest for host)")
	fl.StringVarP(&f.config, "config", "c", "", "YAML problem file")
	fl.StringVarP(&f.backend, "backend", "b", "", "backend name (default: first available)")
	fl.Uint64Var(&f.seed, "seed", 0, "host seed (0 draws a fresh one)")
	fl.StringVar(&f.data, "data", "", "file copied into the eval constant-data buffer")
	fl.StringVar(&f.logLevel, "log-level", "", "log to stderr at debug, info, warn or error")

	p := &f.params
	fl.IntVar(&p.Iterations, "iterations", 0, "number of generations")
	fl.IntVar(&p.Population, "population", 0, "number of members")
	fl.IntVar(&p.Attributes, "attributes", 0, "attributes per member")
	fl.Float64Var(&p.Mu, "mu", 0, "mean of the initial attributes")
	fl.Float64Var(&p.Sigma, "sigma", 0, "standard deviation of the initial attributes")
	fl.Float64Var(&p.Shrink, "shrink", 0, "differential weight, in (0,1)")
	fl.Float64Var(&p.Crossover, "crossover", 0, "crossover probability, in (0,1)")
	fl.IntVar(&p.Eval.LocalWorkSize, "local-work-size", 0, "work items per member in eval")
	fl.IntVar(&p.Eval.LocalDataSize, "local-data-size", 0, "scratch bytes per member in eval")

	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func runSolve(cmd *cobra.Command, f *solveFlags) error {
	p, err := loadParams(cmd, f)
	if err != nil {
		return err
	}

	opts := []diffevo.Option{diffevo.WithDiagnostics(cmd.ErrOrStderr())}
	if f.backend != "" {
		opts = append(opts, diffevo.WithBackend(f.backend))
	}
	if f.seed != 0 {
		opts = append(opts, diffevo.WithSeed(f.seed))
	}
	if f.logLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		opts = append(opts, diffevo.WithLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
			&slog.HandlerOptions{Level: level}))))
	}

	res, err := diffevo.Solve(f.source, p, opts...)
	if err != nil {
		return errReported
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	return enc.Encode(output{Backend: f.backend, Cost: res.Cost, Index: res.Index, Best: res.Best})
}

// loadParams reads the problem file, if any, then applies the flags the
// user set explicitly.
func loadParams(cmd *cobra.Command, f *solveFlags) (diffevo.Params, error) {
	var p diffevo.Params
	if f.config != "" {
		raw, err := os.ReadFile(f.config)
		if err != nil {
			return p, err
		}
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("%s: %w", f.config, err)
		}
	}

	fl := cmd.Flags()
	o := f.params
	for name, apply := range map[string]func(){
		"iterations":      func() { p.Iterations = o.Iterations },
		"population":      func() { p.Population = o.Population },
		"attributes":      func() { p.Attributes = o.Attributes },
		"mu":              func() { p.Mu = o.Mu },
		"sigma":           func() { p.Sigma = o.Sigma },
		"shrink":          func() { p.Shrink = o.Shrink },
		"crossover":       func() { p.Crossover = o.Crossover },
		"local-work-size": func() { p.Eval.LocalWorkSize = o.Eval.LocalWorkSize },
		"local-data-size": func() { p.Eval.LocalDataSize = o.Eval.LocalDataSize },
	} {
		if fl.Changed(name) {
			apply()
		}
	}

	if f.data != "" {
		data, err := os.ReadFile(f.data)
		if err != nil {
			return p, fmt.Errorf("--data: %w", err)
		}
		p.Eval.ConstData = data
	}
	return p, nil
}
