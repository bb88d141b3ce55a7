// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"fmt"

	"github.com/gogpu/diffevo/compute"
)

// Kind classifies solve failures.
type Kind uint8

const (
	// KindConfiguration covers a missing or unreadable source and missing
	// kernel entry points.
	KindConfiguration Kind = iota + 1

	// KindResource covers host or device allocation failures, including
	// failure to open a device.
	KindResource

	// KindCompile covers program build failures. The error carries the
	// full build log.
	KindCompile

	// KindDispatch covers argument binding and enqueue failures.
	KindDispatch

	// KindReadback covers failures of the final blocking reads.
	KindReadback
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindResource:
		return "resource error"
	case KindCompile:
		return "compile error"
	case KindDispatch:
		return "dispatch error"
	case KindReadback:
		return "readback error"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Sentinels matching each kind, for use with errors.Is.
var (
	ErrConfiguration = &kindSentinel{KindConfiguration}
	ErrResource      = &kindSentinel{KindResource}
	ErrCompile       = &kindSentinel{KindCompile}
	ErrDispatch      = &kindSentinel{KindDispatch}
	ErrReadback      = &kindSentinel{KindReadback}
)

type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return "diffevo: " + s.kind.String() }

// Error is a classified solve failure.
type Error struct {
	Kind Kind

	// Op names the failed step, e.g. "compile" or "enqueue mutate[3]".
	Op string

	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("diffevo: %s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	s, ok := target.(*kindSentinel)
	return ok && s.kind == e.Kind
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or zero when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// BuildLog returns the compiler output carried by err, or "" when err is not
// a build failure.
func BuildLog(err error) string {
	var be *compute.BuildError
	if errors.As(err, &be) {
		return be.Log
	}
	return ""
}
