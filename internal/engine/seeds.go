// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// Seeds returns one independent 32-bit seed per member, drawn from a PCG
// generator seeded with seed. The same seed always yields the same seeds.
func Seeds(seed uint64, members uint32) []uint32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]uint32, members)
	for i := range out {
		out[i] = rng.Uint32()
	}
	return out
}

// NewSeed returns a fresh host seed. It mixes the wall clock with bytes
// from the system CSPRNG so solves started within the same clock tick still
// get different seeds.
func NewSeed() uint64 {
	seed := uint64(time.Now().UnixNano())
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		seed ^= binary.LittleEndian.Uint64(b[:])
	}
	return seed
}
