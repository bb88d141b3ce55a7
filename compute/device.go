// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

// Device abstracts one opened compute device together with its context and
// its single command queue.
//
// The interface is the seam that lets the same solver engine drive a real
// GPU (backend/wgpu), the host task graph (backend/hostcpu), or a recording
// mock in tests.
//
// Resource lifecycle:
//   - Resources are created via Create* / Compile
//   - Resources must be released explicitly via Release*
//   - Releasing a resource twice returns ErrReleased
//   - Close releases the queue, the context and the device itself
//
// A Device is owned by exactly one solve and is not safe for concurrent use.
type Device interface {
	// Info describes the device and its limits.
	Info() DeviceInfo

	// BuiltinSource returns the backend's algorithm source (the init,
	// mutate and select kernels plus their helpers) in the language that
	// Compile accepts.
	BuiltinSource() Source

	// Compile builds all sources into a single program.
	// Sources are concatenated in order. Constants are made visible to
	// every source before the first line.
	//
	// A build failure returns a *BuildError carrying the full build log.
	Compile(desc ProgramDesc) (Program, error)

	// CreateKernel looks up an entry point of a compiled program.
	// Returns an error wrapping ErrEntryPointNotFound when the program does
	// not define it.
	CreateKernel(p Program, entryPoint string, sig Signature) (Kernel, error)

	// CreateBuffer allocates device memory. When desc.Contents is non-nil
	// it is copied into the buffer at creation.
	CreateBuffer(desc BufferDesc) (Buffer, error)

	// WriteBuffer uploads data at offset.
	WriteBuffer(b Buffer, offset uint64, data []byte) error

	// Enqueue schedules one kernel launch. The launch starts only after
	// every event in l.Wait has completed and never waits on anything
	// else. The returned event completes when the launch does.
	Enqueue(k Kernel, l Launch) (Event, error)

	// Finish blocks until every enqueued launch has completed.
	// It returns the first launch failure, if any.
	Finish() error

	// ReadBuffer blocks until all enqueued work is done and copies
	// len(dst) bytes starting at offset into dst.
	ReadBuffer(b Buffer, offset uint64, dst []byte) error

	// ReleaseBuffer frees device memory.
	ReleaseBuffer(b Buffer) error

	// ReleaseKernel frees a kernel handle and anything cached for it.
	ReleaseKernel(k Kernel) error

	// ReleaseProgram frees a compiled program.
	ReleaseProgram(p Program) error

	// Close releases the queue, the context and the device. Every part is
	// released even if an earlier release fails; the failures are joined.
	Close() error
}

// Factory opens a device. Backends register one factory each.
type Factory func() (Device, error)

// DeviceInfo describes an opened device.
type DeviceInfo struct {
	// Backend is the registry name of the backend ("wgpu", "host").
	Backend string

	// Name is the adapter or host description.
	Name string

	// Precision is the storage format of reals on the device.
	Precision Precision

	// MaxLocalSize is the largest number of work items allowed to share
	// one work group.
	MaxLocalSize uint32

	// MaxLocalMemory is the largest scratch allocation, in bytes, that one
	// work group may share.
	MaxLocalMemory uint32

	// MaxBufferSize is the largest single buffer, in bytes.
	MaxBufferSize uint64
}

// Source is one unit of program text.
type Source struct {
	// Name identifies the source in build logs (usually a file path).
	Name string

	// Text is the program text.
	Text string
}

// Constant is a named unsigned value injected ahead of all sources.
type Constant struct {
	Name  string
	Value uint32
}

// ProgramDesc describes a program build.
type ProgramDesc struct {
	Label     string
	Sources   []Source
	Constants []Constant
}

// BufferUsage describes how kernels access a buffer.
type BufferUsage uint8

const (
	// BufferReadWrite buffers may be written by kernels.
	BufferReadWrite BufferUsage = iota

	// BufferReadOnly buffers are only read by kernels.
	BufferReadOnly
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case BufferReadWrite:
		return "read-write"
	case BufferReadOnly:
		return "read-only"
	default:
		return "unknown"
	}
}

// BufferDesc describes a buffer allocation.
type BufferDesc struct {
	Label    string
	Size     uint64
	Usage    BufferUsage
	Contents []byte
}

// Buffer is an opaque device allocation.
type Buffer interface {
	Label() string
	Size() uint64
}

// Program is an opaque compiled program.
type Program interface {
	// EntryPoints lists the kernel names the program defines.
	EntryPoints() []string
}

// Kernel is an opaque handle to one entry point of a program.
type Kernel interface {
	Name() string
}

// Event marks the completion of one launch.
type Event interface {
	Label() string
}

// Launch describes one kernel dispatch.
type Launch struct {
	// Label names the launch in logs and events (e.g. "mutate[3]").
	Label string

	// Args are the positional kernel arguments. They must match the
	// kernel's Signature.
	Args []Arg

	// Global is the total number of work items.
	Global uint32

	// Local is the work group size. Zero lets the device choose; a
	// positive value requires Global to be a multiple of it.
	Local uint32

	// Wait lists the events this launch depends on.
	Wait []Event
}
