// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"errors"
	"fmt"
	"strings"
)

// Common device errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("compute: backend not available")

	// ErrNoDevice is returned when a backend finds no usable adapter.
	ErrNoDevice = errors.New("compute: no device available")

	// ErrEntryPointNotFound is returned by CreateKernel for unknown kernels.
	ErrEntryPointNotFound = errors.New("compute: entry point not found")

	// ErrArgumentMismatch is returned by Enqueue when arguments do not
	// match the kernel signature.
	ErrArgumentMismatch = errors.New("compute: argument mismatch")

	// ErrForeignHandle is returned when a handle from another device is used.
	ErrForeignHandle = errors.New("compute: handle belongs to another device")

	// ErrReleased is returned when a released handle is used or released again.
	ErrReleased = errors.New("compute: handle already released")

	// ErrClosed is returned when a closed device is used.
	ErrClosed = errors.New("compute: device closed")

	// ErrOutOfRange is returned for reads or writes past the end of a buffer.
	ErrOutOfRange = errors.New("compute: buffer access out of range")
)

// BuildError reports a failed program build. Log holds the complete
// compiler output.
type BuildError struct {
	Program string
	Log     string
	Err     error
}

// Error implements error.
func (e *BuildError) Error() string {
	first := e.Log
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if first == "" && e.Err != nil {
		first = e.Err.Error()
	}
	return fmt.Sprintf("compute: build %s failed: %s", e.Program, first)
}

// Unwrap returns the underlying compiler error.
func (e *BuildError) Unwrap() error { return e.Err }

// SourceMap records where each source starts in a concatenated program, so
// compiler line numbers can be attributed to files.
type SourceMap struct {
	entries []sourceSpan
}

type sourceSpan struct {
	name        string
	first, last int
}

// Concat joins sources in order after a header and records their line
// spans. Each source is terminated by a newline.
func Concat(header string, sources []Source) (string, SourceMap) {
	var b strings.Builder
	var m SourceMap
	line := 1
	if header != "" {
		b.WriteString(header)
		if !strings.HasSuffix(header, "\n") {
			b.WriteByte('\n')
		}
		line += strings.Count(b.String(), "\n")
	}
	for _, s := range sources {
		text := s.Text
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		n := strings.Count(text, "\n")
		m.entries = append(m.entries, sourceSpan{name: s.Name, first: line, last: line + n - 1})
		b.WriteString(text)
		line += n
	}
	return b.String(), m
}

// Annotate prefixes a build log with the line span of every source.
func (m SourceMap) Annotate(log string) string {
	var b strings.Builder
	for _, e := range m.entries {
		fmt.Fprintf(&b, "note: lines %d-%d: %s\n", e.first, e.last, e.name)
	}
	b.WriteString(log)
	return b.String()
}

// Locate maps a line of the concatenated program to the source name and the
// line within that source.
func (m SourceMap) Locate(line int) (name string, local int, ok bool) {
	for _, e := range m.entries {
		if line >= e.first && line <= e.last {
			return e.name, line - e.first + 1, true
		}
	}
	return "", 0, false
}
