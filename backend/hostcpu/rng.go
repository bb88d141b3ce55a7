// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hostcpu

import "math"

// rngState is one member's xorshift128 generator. The same generator and
// seeding run in the wgpu shader, so a seed produces the same stream on
// both backends up to real precision.
type rngState [4]uint32

// mix32 is a 32-bit integer finalizer used to spread seeds.
func mix32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// seedState derives a non-zero generator state from a 32-bit seed.
func seedState(seed uint32) rngState {
	var s rngState
	s[0] = mix32(seed ^ 0x9e3779b9)
	s[1] = mix32(s[0] + 0x6a09e667)
	s[2] = mix32(s[1] + 0xbb67ae85)
	s[3] = mix32(s[2] + 0x3c6ef372)
	if s == (rngState{}) {
		s[0] = 1
	}
	return s
}

// next advances the generator and returns 32 random bits.
func (s *rngState) next() uint32 {
	t := s[0] ^ (s[0] << 11)
	s[0], s[1], s[2] = s[1], s[2], s[3]
	s[3] = s[3] ^ (s[3] >> 19) ^ t ^ (t >> 8)
	return s[3]
}

// uniform returns a value in the open interval (0, 1).
func (s *rngState) uniform() float64 {
	return (float64(s.next()>>8) + 0.5) / 16777216
}

// normal returns a standard normal sample (Box-Muller).
func (s *rngState) normal() float64 {
	u1 := s.uniform()
	u2 := s.uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// below returns a value in [0, n). n must be positive.
func (s *rngState) below(n uint32) uint32 {
	return s.next() % n
}
