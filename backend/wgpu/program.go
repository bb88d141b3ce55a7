// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"crypto/sha256"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/diffevo/compute"
	"github.com/gogpu/diffevo/internal/cache"
)

//go:embed shaders/diffevo.wgsl
var builtinSource string

// entryPrefix is prepended to kernel names to form WGSL function names:
// kernel "select" is fn de_select. Plain names would shadow WGSL built-ins.
const entryPrefix = "de_"

// spirvCache holds compiled modules by source hash, shared by all devices.
var spirvCache = cache.New[[sha256.Size]byte, []uint32](32)

// entryPattern finds compute entry points and captures the function name.
var entryPattern = regexp.MustCompile(`@compute\b[^{;]*?\bfn\s+([A-Za-z_][A-Za-z0-9_]*)`)

type program struct {
	dev     *Device
	label   string
	module  hal.ShaderModule
	entries []string
}

func (p *program) EntryPoints() []string { return p.entries }

// Compile prefixes the constants, concatenates the sources, compiles the
// result to SPIR-V and creates one shader module holding every entry point.
func (d *Device) Compile(desc compute.ProgramDesc) (compute.Program, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	text, sm := compute.Concat(constantHeader(desc.Constants), desc.Sources)

	spirv, err := spirvCache.GetOrCreate(sha256.Sum256([]byte(text)), func() ([]uint32, error) {
		return compileWGSL(text)
	})
	if err != nil {
		return nil, &compute.BuildError{
			Program: desc.Label,
			Log:     sm.Annotate(err.Error()),
			Err:     err,
		}
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %s: %w", desc.Label, err)
	}

	p := &program{dev: d, label: desc.Label, module: module, entries: scanEntryPoints(text)}
	d.live[p] = "program " + desc.Label
	d.log.Debug("wgpu: program compiled",
		"label", desc.Label,
		"spirv_words", len(spirv),
		"entry_points", p.entries)
	return p, nil
}

// ReleaseProgram destroys the shader module. Pipelines created from it stay
// valid.
func (d *Device) ReleaseProgram(p compute.Program) error {
	prog, ok := p.(*program)
	if !ok || prog.dev != d {
		return compute.ErrForeignHandle
	}
	if _, ok := d.live[prog]; !ok {
		return compute.ErrReleased
	}
	delete(d.live, prog)
	if !d.closed && prog.module != nil {
		d.device.DestroyShaderModule(prog.module)
	}
	prog.module = nil
	return nil
}

// constantHeader declares each constant as a WGSL u32.
func constantHeader(consts []compute.Constant) string {
	var b strings.Builder
	for _, c := range consts {
		fmt.Fprintf(&b, "const %s: u32 = %du;\n", c.Name, c.Value)
	}
	return b.String()
}

// scanEntryPoints lists the kernel names of all de_-prefixed compute entry
// points, sorted.
func scanEntryPoints(text string) []string {
	var names []string
	for _, m := range entryPattern.FindAllStringSubmatch(text, -1) {
		if name, ok := strings.CutPrefix(m[1], entryPrefix); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
