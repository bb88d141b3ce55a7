// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gogpu/diffevo/internal/engine"
)

// Params describes one differential evolution problem.
//
// The yaml tags match the problem files read by the diffevo command.
type Params struct {
	// Iterations is the number of generations. Zero evaluates the initial
	// population only.
	Iterations int `yaml:"iterations" validate:"gte=0,lte=4294967295"`

	// Population is the number of members.
	Population int `yaml:"population" validate:"gte=1,lte=4294967295"`

	// Attributes is the number of attributes per member.
	Attributes int `yaml:"attributes" validate:"gte=1,lte=4294967295"`

	// Mu and Sigma parameterize the normal distribution of the initial
	// attributes.
	Mu    float64 `yaml:"mu" validate:"finite"`
	Sigma float64 `yaml:"sigma" validate:"finite,gte=0"`

	// Shrink is the differential weight F.
	Shrink float64 `yaml:"shrink" validate:"gt=0,lt=1"`

	// Crossover is the probability CR of taking a mutated attribute.
	Crossover float64 `yaml:"crossover" validate:"gt=0,lt=1"`

	Eval Eval `yaml:"eval"`

	// Seed fixes the per-member seeds. Zero draws a fresh seed per solve.
	Seed uint64 `yaml:"seed"`
}

// Eval configures the user's evaluation kernel.
type Eval struct {
	// ConstData is copied once into a read-only buffer passed to eval.
	ConstData []byte `yaml:"-"`

	// LocalWorkSize is the number of work items cooperating on one member.
	// Zero evaluates each member with a single work item.
	LocalWorkSize int `yaml:"local_work_size" validate:"gte=0,lte=4294967295"`

	// LocalDataSize is the scratch memory, in bytes, shared by the work
	// items of one member.
	LocalDataSize int `yaml:"local_data_size" validate:"gte=0,lte=4294967295"`
}

var paramsValidate *validator.Validate

func init() {
	paramsValidate = validator.New(validator.WithRequiredStructEnabled())
	paramsValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = paramsValidate.RegisterValidation("finite", validateFinite)
}

func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks every parameter range. All violations are reported in
// one configuration error.
func (p *Params) Validate() error {
	err := paramsValidate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: KindConfiguration, Op: "validate params", Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return &Error{
		Kind: KindConfiguration,
		Op:   "validate params",
		Err:  errors.New(strings.Join(msgs, "; ")),
	}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Params.")
	switch fe.Tag() {
	case "finite":
		return fmt.Sprintf("%s must be finite, got %v", field, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s, got %v", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be > %s, got %v", field, fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("%s must be < %s, got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// problem converts validated params to the engine form.
func (p *Params) problem() engine.Problem {
	return engine.Problem{
		Iterations:    uint32(p.Iterations),
		Population:    uint32(p.Population),
		Attributes:    uint32(p.Attributes),
		Mu:            p.Mu,
		Sigma:         p.Sigma,
		Shrink:        p.Shrink,
		Crossover:     p.Crossover,
		ConstData:     p.Eval.ConstData,
		LocalWorkSize: uint32(p.Eval.LocalWorkSize),
		LocalDataSize: uint32(p.Eval.LocalDataSize),
	}
}
