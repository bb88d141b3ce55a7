// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/diffevo/compute"
)

// kernel owns the pipeline of one entry point and the bind groups created
// for it. Bind groups are cached by argument identity, so a generation
// loop alternating between two slot layouts creates two bind groups.
type kernel struct {
	dev  *Device
	name string
	sig  compute.Signature

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	bindings map[string]*binding
}

func (k *kernel) Name() string { return k.name }

// binding is a bind group plus the uniform buffer holding its scalars.
type binding struct {
	uniform hal.Buffer
	group   hal.BindGroup
}

// CreateKernel builds the bind group layout, pipeline layout and compute
// pipeline of entryPoint from sig.
func (d *Device) CreateKernel(p compute.Program, entryPoint string, sig compute.Signature) (compute.Kernel, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	prog, ok := p.(*program)
	if !ok || prog.dev != d {
		return nil, compute.ErrForeignHandle
	}
	if _, ok := d.live[prog]; !ok {
		return nil, compute.ErrReleased
	}
	if !slices.Contains(prog.entries, entryPoint) {
		return nil, fmt.Errorf("%w: %q in program %s", compute.ErrEntryPointNotFound, entryPoint, prog.label)
	}

	k := &kernel{dev: d, name: entryPoint, sig: sig, bindings: make(map[string]*binding)}
	if err := k.createPipeline(prog); err != nil {
		k.destroy()
		return nil, err
	}
	d.live[k] = "kernel " + entryPoint
	return k, nil
}

func (k *kernel) createPipeline(prog *program) error {
	dev := k.dev.device
	var err error
	k.bindLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   k.name + "_bind_layout",
		Entries: layoutEntries(k.sig),
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout %s: %w", k.name, err)
	}
	k.pipeLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            k.name + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout %s: %w", k.name, err)
	}
	k.pipeline, err = dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   k.name,
		Layout:  k.pipeLayout,
		Compute: hal.ComputeState{Module: prog.module, EntryPoint: entryPrefix + k.name},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create compute pipeline %s: %w", k.name, err)
	}
	return nil
}

// layoutEntries maps a signature onto group 0: the scalar block at
// sig.Binding, then one storage binding per buffer argument.
func layoutEntries(sig compute.Signature) []gputypes.BindGroupLayoutEntry {
	var entries []gputypes.BindGroupLayoutEntry
	if sig.HasScalars() {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    sig.Binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	next := sig.Binding + 1
	for _, kind := range sig.Args {
		if !kind.IsBuffer() {
			continue
		}
		typ := gputypes.BufferBindingTypeStorage
		if kind == compute.ArgBufferRead {
			typ = gputypes.BufferBindingTypeReadOnlyStorage
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    next,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		})
		next++
	}
	return entries
}

// packScalars lays scalar arguments out as consecutive 32-bit fields,
// reals as f32, padded to 16 bytes. Returns nil when there are none.
func packScalars(args []compute.Arg) []byte {
	var out []byte
	for _, a := range args {
		switch a.Kind {
		case compute.ArgUint32:
			out = binary.LittleEndian.AppendUint32(out, a.Uint)
		case compute.ArgReal:
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(a.Real)))
		}
	}
	if len(out) == 0 {
		return nil
	}
	for len(out)%16 != 0 {
		out = append(out, 0)
	}
	return out
}

// bindingFor returns the cached bind group for these arguments, creating
// it on first use.
func (k *kernel) bindingFor(args []compute.Arg, bufs []*buffer) (*binding, error) {
	scalars := packScalars(args)
	var key strings.Builder
	key.WriteString(hex.EncodeToString(scalars))
	for _, b := range bufs {
		key.WriteByte('|')
		key.WriteString(strconv.FormatUint(b.id, 10))
	}
	if bg, ok := k.bindings[key.String()]; ok {
		return bg, nil
	}

	dev := k.dev
	bg := &binding{}
	var entries []gputypes.BindGroupEntry
	if scalars != nil {
		ub, err := dev.device.CreateBuffer(&hal.BufferDescriptor{
			Label: k.name + "_params",
			Size:  uint64(len(scalars)),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create uniform buffer %s: %w", k.name, err)
		}
		bg.uniform = ub
		dev.queue.WriteBuffer(ub, 0, scalars)
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  k.sig.Binding,
			Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uint64(len(scalars))},
		})
	}
	for j, b := range bufs {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  k.sig.Binding + 1 + uint32(j),
			Resource: gputypes.BufferBinding{Buffer: b.raw.NativeHandle(), Offset: 0, Size: b.alloc},
		})
	}

	group, err := dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   k.name + "_bind",
		Layout:  k.bindLayout,
		Entries: entries,
	})
	if err != nil {
		if bg.uniform != nil {
			dev.device.DestroyBuffer(bg.uniform)
		}
		return nil, fmt.Errorf("wgpu: create bind group %s: %w", k.name, err)
	}
	bg.group = group
	k.bindings[key.String()] = bg
	return bg, nil
}

// ReleaseKernel waits for in-flight work, then destroys the kernel's bind
// groups and pipeline.
func (d *Device) ReleaseKernel(k compute.Kernel) error {
	kern, ok := k.(*kernel)
	if !ok || kern.dev != d {
		return compute.ErrForeignHandle
	}
	if _, ok := d.live[kern]; !ok {
		return compute.ErrReleased
	}
	err := d.Finish()
	delete(d.live, kern)
	if !d.closed {
		kern.destroy()
	}
	return err
}

func (k *kernel) destroy() {
	dev := k.dev.device
	for key, bg := range k.bindings {
		if bg.group != nil {
			dev.DestroyBindGroup(bg.group)
		}
		if bg.uniform != nil {
			dev.DestroyBuffer(bg.uniform)
		}
		delete(k.bindings, key)
	}
	if k.pipeline != nil {
		dev.DestroyComputePipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.pipeLayout != nil {
		dev.DestroyPipelineLayout(k.pipeLayout)
		k.pipeLayout = nil
	}
	if k.bindLayout != nil {
		dev.DestroyBindGroupLayout(k.bindLayout)
		k.bindLayout = nil
	}
}
