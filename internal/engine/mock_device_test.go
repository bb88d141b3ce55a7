// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/diffevo/compute"
)

// mockDevice is an in-order device that runs simple Go kernels at enqueue
// time and records every call for assertions.
type mockDevice struct {
	info compute.DeviceInfo

	// failOn maps an operation key ("compile", "create buffer pop[2]",
	// "create kernel eval", "enqueue select[1]", "read costs[0]",
	// "release buffer rng", "close", ...) to the error it returns.
	failOn map[string]error

	// entryPoints defines what the compiled program exports.
	entryPoints []string

	// objective computes the cost of one member in the eval kernel.
	objective func(x []float64) float64

	sources  []compute.Source
	consts   []compute.Constant
	launches []*mockLaunch
	reads    []mockRead
	live     map[any]string
	closed   bool
	nextID   int

	// selections records, per select launch, candidate and output costs.
	selections []mockSelection
}

type mockBuffer struct {
	dev      *mockDevice
	label    string
	data     []byte
	released bool
}

func (b *mockBuffer) Label() string { return b.label }
func (b *mockBuffer) Size() uint64  { return uint64(len(b.data)) }

type mockProgram struct{ entries []string }

func (p *mockProgram) EntryPoints() []string { return p.entries }

type mockKernel struct {
	name string
	sig  compute.Signature
}

func (k *mockKernel) Name() string { return k.name }

type mockEvent struct {
	id    int
	label string
}

func (e *mockEvent) Label() string { return e.label }

type mockLaunch struct {
	kernel string
	launch compute.Launch
	event  *mockEvent
}

type mockRead struct {
	label  string
	offset uint64
	size   int
}

type mockSelection struct {
	label     string
	candCosts []float64
	outCosts  []float64
}

func newMockDevice() *mockDevice {
	return &mockDevice{
		info: compute.DeviceInfo{
			Backend:        "mock",
			Name:           "mock device",
			Precision:      compute.Float64,
			MaxLocalSize:   256,
			MaxLocalMemory: 16384,
		},
		failOn:      map[string]error{},
		entryPoints: []string{EntryInit, EntryEval, EntryMutate, EntrySelect},
		objective: func(x []float64) float64 {
			s := 0.0
			for _, v := range x {
				s += v * v
			}
			return s
		},
		live: map[any]string{},
	}
}

func (d *mockDevice) factory() compute.Factory {
	return func() (compute.Device, error) {
		if err := d.failOn["open"]; err != nil {
			return nil, err
		}
		d.live[d] = "device"
		return d, nil
	}
}

func (d *mockDevice) fail(op string) error { return d.failOn[op] }

func (d *mockDevice) Info() compute.DeviceInfo { return d.info }

func (d *mockDevice) BuiltinSource() compute.Source {
	return compute.Source{Name: "builtin", Text: "init mutate select"}
}

func (d *mockDevice) Compile(desc compute.ProgramDesc) (compute.Program, error) {
	d.sources = desc.Sources
	d.consts = desc.Constants
	if err := d.fail("compile"); err != nil {
		return nil, err
	}
	p := &mockProgram{entries: d.entryPoints}
	d.live[p] = "program"
	return p, nil
}

func (d *mockDevice) CreateKernel(p compute.Program, name string, sig compute.Signature) (compute.Kernel, error) {
	if err := d.fail("create kernel " + name); err != nil {
		return nil, err
	}
	if !slices.Contains(p.EntryPoints(), name) {
		return nil, fmt.Errorf("%w: %s", compute.ErrEntryPointNotFound, name)
	}
	k := &mockKernel{name: name, sig: sig}
	d.live[k] = "kernel " + name
	return k, nil
}

func (d *mockDevice) CreateBuffer(desc compute.BufferDesc) (compute.Buffer, error) {
	if err := d.fail("create buffer " + desc.Label); err != nil {
		return nil, err
	}
	b := &mockBuffer{dev: d, label: desc.Label, data: make([]byte, desc.Size)}
	copy(b.data, desc.Contents)
	d.live[b] = "buffer " + desc.Label
	return b, nil
}

func (d *mockDevice) WriteBuffer(b compute.Buffer, offset uint64, data []byte) error {
	mb := b.(*mockBuffer)
	copy(mb.data[offset:], data)
	return nil
}

func (d *mockDevice) Enqueue(k compute.Kernel, l compute.Launch) (compute.Event, error) {
	mk := k.(*mockKernel)
	if err := d.fail("enqueue " + l.Label); err != nil {
		return nil, err
	}
	if err := mk.sig.Check(mk.name, l.Args); err != nil {
		return nil, err
	}
	for _, w := range l.Wait {
		if _, ok := w.(*mockEvent); !ok {
			return nil, compute.ErrForeignHandle
		}
	}
	d.nextID++
	ev := &mockEvent{id: d.nextID, label: l.Label}
	d.launches = append(d.launches, &mockLaunch{kernel: mk.name, launch: l, event: ev})
	d.execute(mk.name, l)
	return ev, nil
}

func (d *mockDevice) Finish() error { return d.fail("finish") }

func (d *mockDevice) ReadBuffer(b compute.Buffer, offset uint64, dst []byte) error {
	mb := b.(*mockBuffer)
	d.reads = append(d.reads, mockRead{label: mb.label, offset: offset, size: len(dst)})
	if err := d.fail("read " + mb.label); err != nil {
		return err
	}
	if offset+uint64(len(dst)) > uint64(len(mb.data)) {
		return compute.ErrOutOfRange
	}
	copy(dst, mb.data[offset:])
	return nil
}

func (d *mockDevice) ReleaseBuffer(b compute.Buffer) error {
	mb := b.(*mockBuffer)
	if mb.released {
		return compute.ErrReleased
	}
	mb.released = true
	delete(d.live, mb)
	return d.fail("release buffer " + mb.label)
}

func (d *mockDevice) ReleaseKernel(k compute.Kernel) error {
	if _, ok := d.live[k]; !ok {
		return compute.ErrReleased
	}
	delete(d.live, k)
	return d.fail("release kernel " + k.Name())
}

func (d *mockDevice) ReleaseProgram(p compute.Program) error {
	if _, ok := d.live[p]; !ok {
		return compute.ErrReleased
	}
	delete(d.live, p)
	return d.fail("release program")
}

func (d *mockDevice) Close() error {
	if d.closed {
		return compute.ErrClosed
	}
	d.closed = true
	delete(d.live, d)
	return d.fail("close")
}

// leaked lists handles that were never released.
func (d *mockDevice) leaked() []string {
	var out []string
	for _, label := range d.live {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

// launch returns the recorded launch with the given label.
func (d *mockDevice) launch(label string) *mockLaunch {
	for _, l := range d.launches {
		if l.launch.Label == label {
			return l
		}
	}
	return nil
}

func waitLabels(l *mockLaunch) []string {
	out := make([]string, 0, len(l.launch.Wait))
	for _, w := range l.launch.Wait {
		out = append(out, w.Label())
	}
	return out
}

func bufferLabel(a compute.Arg) string {
	if a.Buffer == nil {
		return "<nil>"
	}
	return a.Buffer.Label()
}

// =============================================================================
// Mock kernels
// =============================================================================

func (d *mockDevice) reals(a compute.Arg) []float64 {
	return d.info.Precision.DecodeReals(a.Buffer.(*mockBuffer).data)
}

func (d *mockDevice) store(a compute.Arg, vals []float64) {
	copy(a.Buffer.(*mockBuffer).data, d.info.Precision.EncodeReals(vals))
}

// mockInitValue is the deterministic initial attribute k of a member with
// the given seed.
func mockInitValue(seed uint32, k int, mu, sigma float64) float64 {
	return mu + sigma*(float64(int(seed%2001)-1000)/1000+float64(k)/10)
}

func (d *mockDevice) execute(kernel string, l compute.Launch) {
	args := l.Args
	switch kernel {
	case EntryInit:
		seeds := compute.DecodeUint32s(args[1].Buffer.(*mockBuffer).data)
		n, attrs := int(args[3].Uint), int(args[4].Uint)
		pop := make([]float64, n*attrs)
		for i := range n {
			for k := range attrs {
				pop[i*attrs+k] = mockInitValue(seeds[i], k, args[5].Real, args[6].Real)
			}
		}
		d.store(args[2], pop)

	case EntryEval:
		pop := d.reals(args[0])
		n, attrs := int(args[2].Uint), int(args[3].Uint)
		costs := make([]float64, n)
		for i := range n {
			costs[i] = d.objective(pop[i*attrs : (i+1)*attrs])
		}
		d.store(args[1], costs)

	case EntryMutate:
		base := d.reals(args[1])
		n, attrs := int(args[3].Uint), int(args[4].Uint)
		trial := make([]float64, n*attrs)
		for i := range n {
			src := (i + 1) % n
			for k := range attrs {
				trial[i*attrs+k] = base[src*attrs+k] * args[5].Real
			}
		}
		d.store(args[2], trial)

	case EntrySelect:
		candPop, candCosts := d.reals(args[0]), d.reals(args[1])
		trialPop, trialCosts := d.reals(args[2]), d.reals(args[3])
		n, attrs := int(args[6].Uint), int(args[7].Uint)
		outPop := make([]float64, n*attrs)
		outCosts := make([]float64, n)
		for i := range n {
			src, srcCosts := candPop, candCosts
			if trialCosts[i] < candCosts[i] {
				src, srcCosts = trialPop, trialCosts
			}
			copy(outPop[i*attrs:(i+1)*attrs], src[i*attrs:(i+1)*attrs])
			outCosts[i] = srcCosts[i]
		}
		d.store(args[4], outPop)
		d.store(args[5], outCosts)
		d.selections = append(d.selections, mockSelection{
			label:     l.Label,
			candCosts: slices.Clone(candCosts),
			outCosts:  outCosts,
		})
	}
}

// injected is a distinct error for fault injection.
func injected(op string) error {
	return errors.New("injected failure: " + strings.TrimSpace(op))
}
