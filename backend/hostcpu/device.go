// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hostcpu

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/diffevo/compute"
	"github.com/gogpu/diffevo/internal/parallel"
)

// Device limits.
const (
	// MaxLocalSize is the largest work group the host device accepts.
	MaxLocalSize = 256

	// MaxLocalMemory is the largest per-group scratch allocation in bytes.
	MaxLocalMemory = 64 << 10

	// defaultGroupSize is the number of work items per group when a launch
	// leaves the group size to the device.
	defaultGroupSize = 64
)

// Config configures a host device.
type Config struct {
	// Workers is the number of worker goroutines. Zero uses GOMAXPROCS.
	Workers int

	// Logger overrides the shared compute logger.
	Logger *slog.Logger
}

// Device runs kernels on host goroutines. It implements compute.Device.
//
// Every Enqueue starts one task. A task waits only on the events listed in
// its launch, then runs its work groups on the shared worker pool, so
// independent launches overlap.
type Device struct {
	cfg  Config
	log  *slog.Logger
	pool *parallel.WorkerPool

	tasks   *errgroup.Group
	pending error // failure observed by a drain, reported by the next Finish

	live   map[any]string
	closed bool
	nextID uint64
}

var _ compute.Device = (*Device)(nil)

// New opens a host device.
func New(cfg Config) *Device {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := cfg.Logger
	if log == nil {
		log = compute.Logger()
	}
	d := &Device{
		cfg:   cfg,
		log:   log,
		pool:  parallel.NewWorkerPool(workers),
		tasks: new(errgroup.Group),
		live:  make(map[any]string),
	}
	log.Debug("hostcpu: device opened", "workers", workers)
	return d
}

// Open opens a host device with default settings. It is the factory
// registered under compute.BackendHost.
func Open() (compute.Device, error) {
	return New(Config{}), nil
}

func init() {
	compute.Register(compute.BackendHost, Open)
}

// Info describes the host device.
func (d *Device) Info() compute.DeviceInfo {
	return compute.DeviceInfo{
		Backend:        compute.BackendHost,
		Name:           fmt.Sprintf("host (%d workers, %s/%s)", d.pool.Workers(), runtime.GOOS, runtime.GOARCH),
		Precision:      compute.Float64,
		MaxLocalSize:   MaxLocalSize,
		MaxLocalMemory: MaxLocalMemory,
	}
}

// BuiltinSource returns the manifest linking init, mutate and select to the
// built-in differential evolution kernels.
func (d *Device) BuiltinSource() compute.Source {
	return compute.Source{Name: "diffevo-builtin.yaml", Text: builtinManifest}
}

// Compile links all manifests into one program.
func (d *Device) Compile(desc compute.ProgramDesc) (compute.Program, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	p, err := link(d, desc)
	if err != nil {
		return nil, err
	}
	d.live[p] = "program " + desc.Label
	d.log.Debug("hostcpu: program linked", "label", desc.Label, "entry_points", p.EntryPoints())
	return p, nil
}

// CreateKernel looks up an entry point of a linked program.
func (d *Device) CreateKernel(p compute.Program, entryPoint string, sig compute.Signature) (compute.Kernel, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	prog, err := d.ownProgram(p)
	if err != nil {
		return nil, err
	}
	fn, ok := prog.entries[entryPoint]
	if !ok {
		return nil, fmt.Errorf("%w: %q in program %s", compute.ErrEntryPointNotFound, entryPoint, prog.label)
	}
	k := &kernel{dev: d, name: entryPoint, fn: fn, sig: sig, consts: prog.consts}
	d.live[k] = "kernel " + entryPoint
	return k, nil
}

// CreateBuffer allocates host memory.
func (d *Device) CreateBuffer(desc compute.BufferDesc) (compute.Buffer, error) {
	if d.closed {
		return nil, compute.ErrClosed
	}
	if uint64(len(desc.Contents)) > desc.Size {
		return nil, fmt.Errorf("%w: %d bytes of contents for %s of %d bytes",
			compute.ErrOutOfRange, len(desc.Contents), desc.Label, desc.Size)
	}
	b := &buffer{dev: d, label: desc.Label, usage: desc.Usage, data: make([]byte, desc.Size)}
	copy(b.data, desc.Contents)
	d.live[b] = "buffer " + desc.Label
	return b, nil
}

// WriteBuffer waits for enqueued work and copies data into b.
func (d *Device) WriteBuffer(b compute.Buffer, offset uint64, data []byte) error {
	buf, err := d.ownBuffer(b)
	if err != nil {
		return err
	}
	if err := d.Finish(); err != nil {
		return err
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("%w: write %d bytes at %d to %s", compute.ErrOutOfRange, len(data), offset, buf.label)
	}
	copy(buf.data[offset:], data)
	return nil
}

// Enqueue validates the launch and starts its task.
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
	args, scratch, err := d.bind(kern, l.Args)
	if err != nil {
		return nil, err
	}
	deps := make([]*event, 0, len(l.Wait))
	for _, w := range l.Wait {
		ev, ok := w.(*event)
		if !ok || ev.dev != d {
			return nil, fmt.Errorf("%w: wait event %s", compute.ErrForeignHandle, w.Label())
		}
		deps = append(deps, ev)
	}
	groups, err := d.split(kern, l, args, scratch)
	if err != nil {
		return nil, err
	}

	d.nextID++
	ev := &event{dev: d, id: d.nextID, label: l.Label, done: make(chan struct{})}
	d.tasks.Go(func() error { return d.runTask(ev, deps, groups) })
	return ev, nil
}

// runTask waits for deps and runs the groups of one launch. A failed
// dependency fails the task without running it; only the root failure is
// returned to the task group.
func (d *Device) runTask(ev *event, deps []*event, groups []func() error) error {
	defer close(ev.done)
	for _, dep := range deps {
		<-dep.done
		if dep.err != nil {
			ev.err = fmt.Errorf("%s: dependency %s failed: %w", ev.label, dep.label, dep.err)
			return nil
		}
	}
	if err := d.pool.Run(groups); err != nil {
		ev.err = fmt.Errorf("%s: %w", ev.label, err)
		return ev.err
	}
	return nil
}

// Finish waits for every enqueued task and returns the first failure.
func (d *Device) Finish() error {
	if d.closed {
		return compute.ErrClosed
	}
	d.drain()
	err := d.pending
	d.pending = nil
	return err
}

// drain waits for every task and keeps the first failure for Finish.
func (d *Device) drain() {
	err := d.tasks.Wait()
	d.tasks = new(errgroup.Group)
	if err != nil && d.pending == nil {
		d.pending = err
	}
}

// ReadBuffer waits for enqueued work and copies len(dst) bytes at offset.
func (d *Device) ReadBuffer(b compute.Buffer, offset uint64, dst []byte) error {
	buf, err := d.ownBuffer(b)
	if err != nil {
		return err
	}
	if err := d.Finish(); err != nil {
		return err
	}
	if offset+uint64(len(dst)) > uint64(len(buf.data)) {
		return fmt.Errorf("%w: read %d bytes at %d from %s", compute.ErrOutOfRange, len(dst), offset, buf.label)
	}
	copy(dst, buf.data[offset:])
	return nil
}

// ReleaseBuffer frees b after in-flight work completes.
func (d *Device) ReleaseBuffer(b compute.Buffer) error {
	buf, err := d.ownBuffer(b)
	if err != nil {
		return err
	}
	d.drain()
	delete(d.live, buf)
	buf.data = nil
	return nil
}

// ReleaseKernel frees a kernel handle after in-flight work completes.
func (d *Device) ReleaseKernel(k compute.Kernel) error {
	kern, ok := k.(*kernel)
	if !ok || kern.dev != d {
		return compute.ErrForeignHandle
	}
	if _, ok := d.live[kern]; !ok {
		return compute.ErrReleased
	}
	d.drain()
	delete(d.live, kern)
	return nil
}

// ReleaseProgram frees a linked program.
func (d *Device) ReleaseProgram(p compute.Program) error {
	prog, err := d.ownProgram(p)
	if err != nil {
		return err
	}
	delete(d.live, prog)
	return nil
}

// Close drains the queue and stops the workers. Handles still live at
// Close are reported and dropped.
func (d *Device) Close() error {
	if d.closed {
		return compute.ErrClosed
	}
	d.drain()
	d.closed = true
	d.pool.Close()

	var err error
	if n := len(d.live); n > 0 {
		err = fmt.Errorf("hostcpu: %d handles still live at close", n)
		d.log.Warn("hostcpu: closing with live handles", "count", n)
		clear(d.live)
	}
	d.log.Debug("hostcpu: device closed")
	return err
}

// liveHandles returns the number of unreleased handles.
func (d *Device) liveHandles() int { return len(d.live) }

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

func (d *Device) ownProgram(p compute.Program) (*program, error) {
	prog, ok := p.(*program)
	if !ok || prog.dev != d {
		return nil, compute.ErrForeignHandle
	}
	if _, ok := d.live[prog]; !ok {
		return nil, compute.ErrReleased
	}
	return prog, nil
}

// bind resolves buffer arguments to host memory and returns the scratch
// size requested by a Local argument.
func (d *Device) bind(k *kernel, args []compute.Arg) ([]boundArg, uint32, error) {
	out := make([]boundArg, len(args))
	var scratch uint32
	for i, a := range args {
		out[i] = boundArg{kind: a.Kind, u: a.Uint, r: a.Real}
		switch {
		case a.Kind.IsBuffer():
			if a.Buffer == nil {
				continue
			}
			buf, err := d.ownBuffer(a.Buffer)
			if err != nil {
				return nil, 0, fmt.Errorf("%s argument %d: %w", k.name, i, err)
			}
			if a.Kind == compute.ArgBufferWrite && buf.usage == compute.BufferReadOnly {
				return nil, 0, fmt.Errorf("%w: %s argument %d: buffer %s is read-only",
					compute.ErrArgumentMismatch, k.name, i, buf.label)
			}
			out[i].buf = buf
		case a.Kind == compute.ArgLocal:
			if a.Uint > MaxLocalMemory {
				return nil, 0, fmt.Errorf("%w: %s argument %d: %d bytes of scratch exceeds %d",
					compute.ErrArgumentMismatch, k.name, i, a.Uint, MaxLocalMemory)
			}
			scratch = a.Uint
		}
	}
	return out, scratch, nil
}

// split cuts a launch into work groups. With Local zero, items are grouped
// defaultGroupSize at a time; otherwise each group has exactly Local items.
func (d *Device) split(k *kernel, l compute.Launch, args []boundArg, scratch uint32) ([]func() error, error) {
	size := l.Local
	if size == 0 {
		size = min(uint32(defaultGroupSize), max(l.Global, 1))
	} else {
		if size > MaxLocalSize {
			return nil, fmt.Errorf("%w: %s: work group size %d exceeds %d",
				compute.ErrArgumentMismatch, l.Label, size, MaxLocalSize)
		}
		if l.Global%size != 0 {
			return nil, fmt.Errorf("%w: %s: global size %d is not a multiple of work group size %d",
				compute.ErrArgumentMismatch, l.Label, l.Global, size)
		}
	}

	count := (l.Global + size - 1) / size
	groups := make([]func() error, count)
	for id := range count {
		g := &Group{
			ID:        id,
			Start:     id * size,
			End:       min(id*size+size, l.Global),
			LocalSize: l.Local,
			args:      args,
			consts:    k.consts,
		}
		groups[id] = func() error {
			if scratch > 0 {
				g.Scratch = make([]byte, scratch)
			}
			return k.fn(g)
		}
	}
	return groups, nil
}

// =============================================================================
// Handles
// =============================================================================

type buffer struct {
	dev   *Device
	label string
	usage compute.BufferUsage
	data  []byte
}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return uint64(len(b.data)) }

type kernel struct {
	dev    *Device
	name   string
	fn     KernelFunc
	sig    compute.Signature
	consts map[string]uint32
}

func (k *kernel) Name() string { return k.name }

type event struct {
	dev   *Device
	id    uint64
	label string
	done  chan struct{}
	err   error
}

func (e *event) Label() string { return e.label }

// errKernel marks failures reported by kernel code.
var errKernel = errors.New("hostcpu: kernel failed")
