// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"fmt"
	"math"
)

// ArgKind is the type of one positional kernel argument.
type ArgKind uint8

const (
	// ArgBufferRead is a buffer the kernel only reads.
	ArgBufferRead ArgKind = iota + 1

	// ArgBufferWrite is a buffer the kernel reads and writes.
	ArgBufferWrite

	// ArgUint32 is an unsigned scalar.
	ArgUint32

	// ArgReal is a real scalar, stored in the device precision.
	ArgReal

	// ArgLocal is work group scratch memory, given as a byte size.
	ArgLocal
)

// String returns the kind name used in diagnostics.
func (k ArgKind) String() string {
	switch k {
	case ArgBufferRead:
		return "buffer(read)"
	case ArgBufferWrite:
		return "buffer(read_write)"
	case ArgUint32:
		return "u32"
	case ArgReal:
		return "real"
	case ArgLocal:
		return "local"
	default:
		return fmt.Sprintf("ArgKind(%d)", uint8(k))
	}
}

// IsBuffer reports whether the kind binds a buffer.
func (k ArgKind) IsBuffer() bool {
	return k == ArgBufferRead || k == ArgBufferWrite
}

// IsScalar reports whether the kind is passed by value.
func (k ArgKind) IsScalar() bool {
	return k == ArgUint32 || k == ArgReal
}

// Arg is one positional kernel argument.
type Arg struct {
	Kind ArgKind

	// Buffer is set for buffer kinds. A nil buffer means "not provided"
	// and is legal only for ArgBufferRead.
	Buffer Buffer

	// Uint is set for ArgUint32, and holds the byte size for ArgLocal.
	Uint uint32

	// Real is set for ArgReal.
	Real float64
}

// ReadBuffer returns a read-only buffer argument. b may be nil.
func ReadBuffer(b Buffer) Arg { return Arg{Kind: ArgBufferRead, Buffer: b} }

// WriteBuffer returns a read-write buffer argument.
func WriteBuffer(b Buffer) Arg { return Arg{Kind: ArgBufferWrite, Buffer: b} }

// Uint32 returns an unsigned scalar argument.
func Uint32(v uint32) Arg { return Arg{Kind: ArgUint32, Uint: v} }

// Real returns a real scalar argument.
func Real(v float64) Arg { return Arg{Kind: ArgReal, Real: v} }

// Local returns a scratch allocation of size bytes shared per work group.
func Local(size uint32) Arg { return Arg{Kind: ArgLocal, Uint: size} }

// Signature is the argument contract of a kernel.
type Signature struct {
	// Binding is the first binding slot used by the kernel on backends
	// with explicit binding tables. Scalars are packed into one uniform
	// block at Binding; buffers follow at Binding+1, Binding+2, ...
	Binding uint32

	// Args lists the argument kinds in positional order.
	Args []ArgKind
}

// BufferCount returns the number of buffer arguments.
func (s Signature) BufferCount() int {
	n := 0
	for _, k := range s.Args {
		if k.IsBuffer() {
			n++
		}
	}
	return n
}

// HasScalars reports whether any argument is passed by value.
func (s Signature) HasScalars() bool {
	for _, k := range s.Args {
		if k.IsScalar() {
			return true
		}
	}
	return false
}

// Check verifies that args match the signature.
func (s Signature) Check(kernel string, args []Arg) error {
	if len(args) != len(s.Args) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrArgumentMismatch, kernel, len(s.Args), len(args))
	}
	for i, a := range args {
		if a.Kind != s.Args[i] {
			return fmt.Errorf("%w: %s argument %d is %s, got %s",
				ErrArgumentMismatch, kernel, i, s.Args[i], a.Kind)
		}
		if a.Kind == ArgBufferWrite && a.Buffer == nil {
			return fmt.Errorf("%w: %s argument %d: writable buffer is nil",
				ErrArgumentMismatch, kernel, i)
		}
		if a.Kind == ArgReal && (math.IsNaN(a.Real) || math.IsInf(a.Real, 0)) {
			return fmt.Errorf("%w: %s argument %d: non-finite real %v",
				ErrArgumentMismatch, kernel, i, a.Real)
		}
	}
	return nil
}
