// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package diffevo

import "github.com/gogpu/diffevo/internal/engine"

// Error is a classified solve failure. Use errors.Is with the Err*
// sentinels to test its kind.
type Error = engine.Error

// Kind classifies solve failures.
type Kind = engine.Kind

// Failure kinds.
const (
	KindConfiguration = engine.KindConfiguration
	KindResource      = engine.KindResource
	KindCompile       = engine.KindCompile
	KindDispatch      = engine.KindDispatch
	KindReadback      = engine.KindReadback
)

// Sentinels for errors.Is.
var (
	// ErrConfiguration reports invalid parameters, a missing or unreadable
	// eval source, or a missing kernel entry point.
	ErrConfiguration = engine.ErrConfiguration

	// ErrResource reports a device that could not be opened or memory that
	// could not be allocated.
	ErrResource = engine.ErrResource

	// ErrCompile reports a program build failure. See BuildLog.
	ErrCompile = engine.ErrCompile

	// ErrDispatch reports a kernel launch that could not be bound or
	// enqueued, or that failed on the device.
	ErrDispatch = engine.ErrDispatch

	// ErrReadback reports a failed final read.
	ErrReadback = engine.ErrReadback
)

// KindOf returns the kind of err, or zero when err is not a solve failure.
func KindOf(err error) Kind { return engine.KindOf(err) }

// BuildLog returns the complete compiler output carried by a compile
// failure, or "" for any other error.
func BuildLog(err error) string { return engine.BuildLog(err) }
