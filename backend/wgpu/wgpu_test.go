// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"slices"
	"testing"

	"github.com/gogpu/diffevo/compute"
)

func testConstants() []compute.Constant {
	return []compute.Constant{
		{Name: "DE_EVAL_LOCAL_SIZE", Value: 64},
		{Name: "DE_EVAL_SCRATCH_SIZE", Value: 0},
	}
}

func TestBuiltinShaderCompiles(t *testing.T) {
	text, _ := compute.Concat(constantHeader(testConstants()), []compute.Source{
		{Name: "diffevo.wgsl", Text: builtinSource},
	})
	spirv, err := compileWGSL(text)
	if err != nil {
		t.Fatalf("compile built-in shader: %v", err)
	}
	if len(spirv) == 0 || spirv[0] != 0x07230203 {
		t.Errorf("SPIR-V magic = %#x, want 0x07230203", spirv[0])
	}
}

func TestExampleEvalCompiles(t *testing.T) {
	for _, path := range []string{"../../examples/sphere/eval.wgsl", "../../examples/rastrigin/eval.wgsl"} {
		t.Run(path, func(t *testing.T) {
			src, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			text, _ := compute.Concat(constantHeader(testConstants()), []compute.Source{
				{Name: "diffevo.wgsl", Text: builtinSource},
				{Name: path, Text: string(src)},
			})
			if _, err := compileWGSL(text); err != nil {
				t.Fatalf("compile: %v", err)
			}
			got := scanEntryPoints(text)
			want := []string{"eval", "init", "mutate", "select"}
			if !slices.Equal(got, want) {
				t.Errorf("entry points = %v, want %v", got, want)
			}
		})
	}
}

func TestScanEntryPoints(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "fn de_eval() {}", nil},
		{"single", "@compute @workgroup_size(64)\nfn de_eval(@builtin(global_invocation_id) g: vec3<u32>) {}", []string{"eval"}},
		{"unprefixed", "@compute @workgroup_size(1) fn main() {}", nil},
		{"multiline attrs", "@compute\n@workgroup_size(8, 1, 1)\nfn  de_mutate() {}", []string{"mutate"}},
		{"sorted", "@compute @workgroup_size(1) fn de_z() {}\n@compute @workgroup_size(1) fn de_a() {}", []string{"a", "z"}},
		{"helper after struct", "struct P { a: u32; }\nfn de_helper() {}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scanEntryPoints(tt.text); !slices.Equal(got, tt.want) {
				t.Errorf("scanEntryPoints = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstantHeader(t *testing.T) {
	got := constantHeader([]compute.Constant{{Name: "A", Value: 1}, {Name: "B", Value: 4096}})
	want := "const A: u32 = 1u;\nconst B: u32 = 4096u;\n"
	if got != want {
		t.Errorf("constantHeader = %q, want %q", got, want)
	}
	if constantHeader(nil) != "" {
		t.Error("empty constants should give an empty header")
	}
}

func TestPackScalars(t *testing.T) {
	args := []compute.Arg{
		compute.WriteBuffer(nil),
		compute.Uint32(7),
		compute.Uint32(3),
		compute.Real(0.5),
		compute.Local(128),
	}
	got := packScalars(args)
	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
	if v := binary.LittleEndian.Uint32(got[0:]); v != 7 {
		t.Errorf("field 0 = %d, want 7", v)
	}
	if v := binary.LittleEndian.Uint32(got[4:]); v != 3 {
		t.Errorf("field 1 = %d, want 3", v)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(got[8:])); v != 0.5 {
		t.Errorf("field 2 = %v, want 0.5", v)
	}
	if v := binary.LittleEndian.Uint32(got[12:]); v != 0 {
		t.Errorf("padding = %d, want 0", v)
	}

	if packScalars([]compute.Arg{compute.ReadBuffer(nil)}) != nil {
		t.Error("no scalars should pack to nil")
	}
	five := make([]compute.Arg, 5)
	for i := range five {
		five[i] = compute.Uint32(uint32(i))
	}
	if n := len(packScalars(five)); n != 32 {
		t.Errorf("five scalars packed to %d bytes, want 32", n)
	}
}

func TestLayoutEntries(t *testing.T) {
	sig := compute.Signature{Binding: 8, Args: []compute.ArgKind{
		compute.ArgBufferRead, compute.ArgBufferWrite,
		compute.ArgUint32, compute.ArgUint32,
		compute.ArgBufferRead, compute.ArgLocal,
	}}
	entries := layoutEntries(sig)
	want := []uint32{8, 9, 10, 11}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Binding != want[i] {
			t.Errorf("entry %d binding = %d, want %d", i, e.Binding, want[i])
		}
	}

	noScalars := layoutEntries(compute.Signature{Binding: 0, Args: []compute.ArgKind{compute.ArgBufferWrite}})
	if len(noScalars) != 1 || noScalars[0].Binding != 1 {
		t.Errorf("buffer-only layout = %+v, want one entry at binding 1", noScalars)
	}
}

func TestWorkgroups(t *testing.T) {
	d := &Device{maxLocal: 256}
	tests := []struct {
		name    string
		l       compute.Launch
		want    uint32
		wantErr bool
	}{
		{"default exact", compute.Launch{Label: "a", Global: 128}, 2, false},
		{"default tail", compute.Launch{Label: "b", Global: 65}, 2, false},
		{"default one", compute.Launch{Label: "c", Global: 1}, 1, false},
		{"explicit", compute.Launch{Label: "d", Global: 64, Local: 8}, 8, false},
		{"not multiple", compute.Launch{Label: "e", Global: 10, Local: 4}, 0, true},
		{"too large", compute.Launch{Label: "f", Global: 512, Local: 512}, 0, true},
		{"dispatch limit", compute.Launch{Label: "g", Global: 65536, Local: 1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.workgroups(tt.l)
			if tt.wantErr {
				if !errors.Is(err, compute.ErrArgumentMismatch) {
					t.Fatalf("err = %v, want ErrArgumentMismatch", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("workgroups = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPad4(t *testing.T) {
	if got := pad4([]byte{1, 2, 3, 4}); len(got) != 4 {
		t.Errorf("aligned input changed length to %d", len(got))
	}
	got := pad4([]byte{1, 2, 3, 4, 5})
	if !slices.Equal(got, []byte{1, 2, 3, 4, 5, 0, 0, 0}) {
		t.Errorf("pad4 = %v", got)
	}
}

// openDevice opens a GPU or skips the test.
func openDevice(t *testing.T) *Device {
	t.Helper()
	d, err := New(Config{})
	if err != nil {
		t.Skipf("no GPU available: %v", err)
	}
	return d
}

func TestDeviceBufferRoundTrip(t *testing.T) {
	d := openDevice(t)
	defer d.Close()

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b, err := d.CreateBuffer(compute.BufferDesc{Label: "rt", Size: 10, Contents: data})
	if err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 7)
	if err := d.ReadBuffer(b, 3, got); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, data[3:]) {
		t.Errorf("read %v, want %v", got, data[3:])
	}

	if err := d.WriteBuffer(b, 4, []byte{0xAA, 0xBB, 0xCC}); err != nil {
		t.Fatal(err)
	}
	all := make([]byte, 10)
	if err := d.ReadBuffer(b, 0, all); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 0xAA, 0xBB, 0xCC, 8, 9, 10}
	if !slices.Equal(all, want) {
		t.Errorf("after write %v, want %v", all, want)
	}

	if err := d.ReleaseBuffer(b); err != nil {
		t.Fatal(err)
	}
	if err := d.ReleaseBuffer(b); !errors.Is(err, compute.ErrReleased) {
		t.Errorf("second release err = %v, want ErrReleased", err)
	}
	if n := d.liveHandles(); n != 0 {
		t.Errorf("%d live handles", n)
	}
}

func TestDeviceCompileErrorLog(t *testing.T) {
	d := openDevice(t)
	defer d.Close()

	_, err := d.Compile(compute.ProgramDesc{
		Label:   "broken",
		Sources: []compute.Source{{Name: "bad.wgsl", Text: "fn de_eval( {"}},
	})
	var be *compute.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *compute.BuildError", err)
	}
	if be.Log == "" {
		t.Error("build log is empty")
	}
}

func TestDeviceMissingEntryPoint(t *testing.T) {
	d := openDevice(t)
	defer d.Close()

	p, err := d.Compile(compute.ProgramDesc{
		Label:     "builtin",
		Sources:   []compute.Source{d.BuiltinSource()},
		Constants: testConstants(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer d.ReleaseProgram(p)

	_, err = d.CreateKernel(p, "eval", compute.Signature{})
	if !errors.Is(err, compute.ErrEntryPointNotFound) {
		t.Errorf("err = %v, want ErrEntryPointNotFound", err)
	}
}

func TestCompileCacheReusesSPIRV(t *testing.T) {
	text, _ := compute.Concat(constantHeader(testConstants()), []compute.Source{
		{Name: "diffevo.wgsl", Text: builtinSource},
	})
	key := sha256.Sum256([]byte(text))
	spirvCache.Delete(key)

	calls := 0
	compile := func() ([]uint32, error) {
		calls++
		return compileWGSL(text)
	}
	first, err := spirvCache.GetOrCreate(key, compile)
	if err != nil {
		t.Fatal(err)
	}
	second, err := spirvCache.GetOrCreate(key, compile)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("compiled %d times, want 1", calls)
	}
	if &first[0] != &second[0] {
		t.Error("second lookup did not return the cached module")
	}
}
