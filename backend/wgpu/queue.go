// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/diffevo/compute"
)

const (
	// builtinGroupSize is the @workgroup_size of the built-in kernels.
	builtinGroupSize = 64

	// maxDispatch is the WebGPU limit on workgroups per dimension.
	maxDispatch = 65535
)

type buffer struct {
	dev      *Device
	id       uint64
	label    string
	size     uint64 // requested
	alloc    uint64 // rounded up to 4 bytes
	raw      hal.Buffer
	readOnly bool
}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }

type event struct {
	dev   *Device
	id    uint64
	label string
}

func (e *event) Label() string { return e.label }

func align4(n uint64) uint64 { return (n + 3) &^ 3 }

// CreateBuffer allocates a storage buffer and uploads desc.Contents.
func (d *Device) CreateBuffer(desc compute.BufferDesc) (compute.Buffer, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	if uint64(len(desc.Contents)) > desc.Size {
		return nil, fmt.Errorf("%w: %d bytes of contents for %s of %d bytes",
			compute.ErrOutOfRange, len(desc.Contents), desc.Label, desc.Size)
	}
	b, err := d.newBuffer(desc.Label, desc.Size, desc.Usage == compute.BufferReadOnly)
	if err != nil {
		return nil, err
	}
	if len(desc.Contents) > 0 {
		d.queue.WriteBuffer(b.raw, 0, pad4(desc.Contents))
	}
	d.live[b] = "buffer " + desc.Label
	return b, nil
}

func (d *Device) newBuffer(label string, size uint64, readOnly bool) (*buffer, error) {
	alloc := align4(max(size, 4))
	if d.maxBuffer > 0 && alloc > d.maxBuffer {
		return nil, fmt.Errorf("%w: buffer %s of %d bytes exceeds %d",
			compute.ErrOutOfRange, label, size, d.maxBuffer)
	}
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  alloc,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %s: %w", label, err)
	}
	d.nextID++
	return &buffer{dev: d, id: d.nextID, label: label, size: size, alloc: alloc, raw: raw, readOnly: readOnly}, nil
}

// pad4 returns data extended with zeros to a multiple of 4 bytes.
func pad4(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, align4(uint64(len(data))))
	copy(out, data)
	return out
}

// WriteBuffer submits pending launches, then uploads data. Queue writes are
// ordered after earlier submissions.
func (d *Device) WriteBuffer(b compute.Buffer, offset uint64, data []byte) error {
	buf, err := d.ownBuffer(b)
	if err != nil {
		return err
	}
	if offset%4 != 0 || offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("%w: write %d bytes at %d to %s", compute.ErrOutOfRange, len(data), offset, buf.label)
	}
	if len(data)%4 != 0 {
		// Merge the partial last word with its current contents.
		if err := d.Finish(); err != nil {
			return err
		}
		last := uint64(len(data)) &^ 3
		merged := make([]byte, last+4)
		if err := d.readRaw(buf, offset+last, merged[last:]); err != nil {
			return err
		}
		copy(merged, data)
		data = merged
	}
	if err := d.flush(); err != nil {
		return err
	}
	d.queue.WriteBuffer(buf.raw, offset, data)
	return nil
}

// Enqueue records one compute pass. Waits are satisfied by queue order.
func (d *Device) Enqueue(k compute.Kernel, l compute.Launch) (compute.Event, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	kern, ok := k.(*kernel)
	if !ok || kern.dev != d {
		return nil, compute.ErrForeignHandle
	}
	if _, ok := d.live[kern]; !ok {
		return nil, compute.ErrReleased
	}
	if err := kern.sig.Check(kern.name, l.Args); err != nil {
		return nil, err
	}
	for _, w := range l.Wait {
		ev, ok := w.(*event)
		if !ok || ev.dev != d {
			return nil, fmt.Errorf("%w: wait event %s", compute.ErrForeignHandle, w.Label())
		}
	}

	bufs, err := d.bindBuffers(kern, l.Args)
	if err != nil {
		return nil, err
	}
	groups, err := d.workgroups(l)
	if err != nil {
		return nil, err
	}
	bg, err := kern.bindingFor(l.Args, bufs)
	if err != nil {
		return nil, err
	}

	if err := d.beginEncoding(); err != nil {
		return nil, err
	}
	pass := d.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: l.Label})
	pass.SetPipeline(kern.pipeline)
	pass.SetBindGroup(0, bg.group, nil)
	pass.Dispatch(groups, 1, 1)
	pass.End()
	d.passes++

	d.nextID++
	ev := &event{dev: d, id: d.nextID, label: l.Label}
	d.log.Debug("wgpu: launch recorded",
		"label", l.Label,
		"kernel", kern.name,
		"global", l.Global,
		"workgroups", groups,
		"wait", len(l.Wait))

	if d.passes >= maxPassesPerSubmit {
		if err := d.flush(); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// bindBuffers resolves buffer arguments in order. A nil read-only argument
// binds the shared dummy buffer.
func (d *Device) bindBuffers(k *kernel, args []compute.Arg) ([]*buffer, error) {
	var bufs []*buffer
	for i, a := range args {
		switch a.Kind {
		case compute.ArgBufferRead, compute.ArgBufferWrite:
			if a.Buffer == nil {
				dummy, err := d.dummyBuffer()
				if err != nil {
					return nil, err
				}
				bufs = append(bufs, dummy)
				continue
			}
			buf, err := d.ownBuffer(a.Buffer)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", k.name, i, err)
			}
			if a.Kind == compute.ArgBufferWrite && buf.readOnly {
				return nil, fmt.Errorf("%w: %s argument %d: buffer %s is read-only",
					compute.ErrArgumentMismatch, k.name, i, buf.label)
			}
			bufs = append(bufs, buf)
		case compute.ArgLocal:
			if a.Uint > maxLocalMemory {
				return nil, fmt.Errorf("%w: %s argument %d: %d bytes of scratch exceeds %d",
					compute.ErrArgumentMismatch, k.name, i, a.Uint, maxLocalMemory)
			}
		}
	}
	return bufs, nil
}

// workgroups returns the dispatch size of l. Without a local size the
// built-in group size is used and kernels guard the tail.
func (d *Device) workgroups(l compute.Launch) (uint32, error) {
	var groups uint32
	if l.Local == 0 {
		groups = (l.Global + builtinGroupSize - 1) / builtinGroupSize
	} else {
		if d.maxLocal > 0 && l.Local > d.maxLocal {
			return 0, fmt.Errorf("%w: %s: work group size %d exceeds %d",
				compute.ErrArgumentMismatch, l.Label, l.Local, d.maxLocal)
		}
		if l.Global%l.Local != 0 {
			return 0, fmt.Errorf("%w: %s: global size %d is not a multiple of work group size %d",
				compute.ErrArgumentMismatch, l.Label, l.Global, l.Local)
		}
		groups = l.Global / l.Local
	}
	if groups > maxDispatch {
		return 0, fmt.Errorf("%w: %s: %d workgroups exceeds %d",
			compute.ErrArgumentMismatch, l.Label, groups, maxDispatch)
	}
	return groups, nil
}

func (d *Device) dummyBuffer() (*buffer, error) {
	if d.dummy != nil {
		return d.dummy, nil
	}
	b, err := d.newBuffer("unset", 4, true)
	if err != nil {
		return nil, err
	}
	d.dummy = b
	return b, nil
}

func (d *Device) beginEncoding() error {
	if d.encoder != nil {
		return nil
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "diffevo"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("diffevo"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	d.encoder = encoder
	d.passes = 0
	return nil
}

// flush submits the open encoder, if any, signaling the next fence value.
func (d *Device) flush() error {
	if d.encoder == nil {
		return nil
	}
	encoder := d.encoder
	d.encoder = nil
	d.passes = 0
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	d.submitted++
	if err := d.queue.Submit([]hal.CommandBuffer{cmd}, d.fence, d.submitted); err != nil {
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	d.inflight = append(d.inflight, cmd)
	return nil
}

// Finish submits recorded passes and waits for the last fence value.
func (d *Device) Finish() error {
	if d.closed {
		return compute.ErrClosed
	}
	if err := d.flush(); err != nil {
		return err
	}
	if len(d.inflight) == 0 {
		return nil
	}
	ok, err := d.device.Wait(d.fence, d.submitted, d.cfg.Timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: GPU timeout after %v", d.cfg.Timeout)
	}
	for _, cmd := range d.inflight {
		d.device.FreeCommandBuffer(cmd)
	}
	d.inflight = d.inflight[:0]
	return nil
}

// ReadBuffer waits for all work, then copies the range through a staging
// buffer.
func (d *Device) ReadBuffer(b compute.Buffer, offset uint64, dst []byte) error {
	buf, err := d.ownBuffer(b)
	if err != nil {
		return err
	}
	if offset+uint64(len(dst)) > buf.size {
		return fmt.Errorf("%w: read %d bytes at %d from %s", compute.ErrOutOfRange, len(dst), offset, buf.label)
	}
	if err := d.Finish(); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	return d.readRaw(buf, offset, dst)
}

// readRaw copies buf[offset:offset+len(dst)] to the host. The queue must be
// idle.
func (d *Device) readRaw(buf *buffer, offset uint64, dst []byte) error {
	start := offset &^ 3
	size := align4(offset + uint64(len(dst))) - start

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: buf.label + "_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer %s: %w", buf.label, err)
	}
	defer d.device.DestroyBuffer(staging)

	if err := d.beginEncoding(); err != nil {
		return err
	}
	d.encoder.CopyBufferToBuffer(buf.raw, staging, []hal.BufferCopy{
		{SrcOffset: start, DstOffset: 0, Size: size},
	})
	if err := d.Finish(); err != nil {
		return err
	}

	raw := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, raw); err != nil {
		return fmt.Errorf("wgpu: readback %s: %w", buf.label, err)
	}
	copy(dst, raw[offset-start:])
	return nil
}

// ReleaseBuffer waits for in-flight work and destroys the buffer.
func (d *Device) ReleaseBuffer(b compute.Buffer) error {
	buf, err := d.ownBuffer(b)
	if err != nil {
		return err
	}
	err = d.Finish()
	delete(d.live, buf)
	d.device.DestroyBuffer(buf.raw)
	buf.raw = nil
	return err
}

func (d *Device) ownBuffer(b compute.Buffer) (*buffer, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	buf, ok := b.(*buffer)
	if !ok || buf.dev != d {
		return nil, compute.ErrForeignHandle
	}
	if _, ok := d.live[buf]; !ok {
		return nil, fmt.Errorf("%w: buffer %s", compute.ErrReleased, buf.label)
	}
	return buf, nil
}
