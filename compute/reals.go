// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Precision is the storage format of reals in device memory.
type Precision uint8

const (
	// Float32 stores reals as IEEE-754 binary32 (WGSL f32).
	Float32 Precision = iota + 1

	// Float64 stores reals as IEEE-754 binary64.
	Float64
)

// Size returns the byte size of one real.
func (p Precision) Size() int {
	switch p {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// String returns the precision name.
func (p Precision) String() string {
	switch p {
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	default:
		return fmt.Sprintf("Precision(%d)", uint8(p))
	}
}

// EncodeReals converts host values to device bytes (little-endian).
func (p Precision) EncodeReals(vals []float64) []byte {
	size := p.Size()
	out := make([]byte, len(vals)*size)
	for i, v := range vals {
		p.PutReal(out[i*size:], v)
	}
	return out
}

// DecodeReals converts device bytes to host values. Trailing bytes that do
// not form a whole real are ignored.
func (p Precision) DecodeReals(data []byte) []float64 {
	size := p.Size()
	if size == 0 {
		return nil
	}
	out := make([]float64, len(data)/size)
	for i := range out {
		out[i] = p.Real(data[i*size:])
	}
	return out
}

// PutReal stores one value at the start of b.
func (p Precision) PutReal(b []byte, v float64) {
	switch p {
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// Real loads one value from the start of b.
func (p Precision) Real(b []byte) float64 {
	switch p {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return math.NaN()
	}
}

// EncodeUint32s converts unsigned values to little-endian bytes.
func EncodeUint32s(vals []uint32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// DecodeUint32s converts little-endian bytes to unsigned values.
func DecodeUint32s(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}
