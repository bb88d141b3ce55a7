// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/diffevo/compute"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

const (
	// defaultTimeout bounds every fence wait.
	defaultTimeout = 60 * time.Second

	// maxLocalMemory is the WebGPU default workgroup storage limit.
	maxLocalMemory = 16384

	// maxPassesPerSubmit bounds the command buffer size. Longer graphs are
	// split into several in-order submissions.
	maxPassesPerSubmit = 1024
)

// Config configures a wgpu device.
type Config struct {
	// Timeout bounds each wait for the GPU. Zero uses 60 seconds.
	Timeout time.Duration

	// Logger overrides the shared compute logger.
	Logger *slog.Logger
}

// Device runs kernels as compute passes on a wgpu HAL device. It
// implements compute.Device.
//
// Launches are recorded into one command encoder in enqueue order and
// submitted on Finish, a blocking read, or every maxPassesPerSubmit passes.
// Passes on a queue execute in submission order, so every wait list the
// engine passes is satisfied without extra synchronization.
type Device struct {
	cfg Config
	log *slog.Logger

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device: never destroyed by Close

	name      string
	maxLocal  uint32
	maxBuffer uint64

	encoder   hal.CommandEncoder
	passes    int
	fence     hal.Fence
	submitted uint64
	inflight  []hal.CommandBuffer

	// dummy backs optional read-only buffer arguments left unset.
	dummy *buffer

	live   map[any]string
	closed bool
	nextID uint64
}

var _ compute.Device = (*Device)(nil)

func init() {
	compute.Register(compute.BackendWGPU, Open)
}

// Open opens the first discrete or integrated GPU, falling back to the
// first adapter. It is the factory registered under compute.BackendWGPU.
func Open() (compute.Device, error) {
	d, err := New(Config{})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// New opens a device with its own instance.
func New(cfg Config) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", compute.ErrNoDevice)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", compute.ErrNoDevice)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d, err := newDevice(cfg, openDev.Device, openDev.Queue, selected.Info.Name, limits)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.log.Info("wgpu: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// OpenShared wraps a device owned by someone else, such as a gogpu
// window. The provider must expose HalDevice() and HalQueue() returning
// hal.Device and hal.Queue. Close releases only what the solver created.
func OpenShared(provider gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	d, err := newDevice(cfg, device, queue, "shared device", gputypes.DefaultLimits())
	if err != nil {
		return nil, err
	}
	d.external = true
	d.log.Info("wgpu: using shared device")
	return d, nil
}

// SharedFactory returns a factory that wraps provider's device.
func SharedFactory(provider gpucontext.DeviceProvider, cfg Config) compute.Factory {
	return func() (compute.Device, error) {
		d, err := OpenShared(provider, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func newDevice(cfg Config, device hal.Device, queue hal.Queue, name string, limits gputypes.Limits) (*Device, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = compute.Logger()
	}
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return &Device{
		cfg:       cfg,
		log:       log,
		device:    device,
		queue:     queue,
		name:      name,
		maxLocal:  limits.MaxComputeWorkgroupSizeX,
		maxBuffer: limits.MaxBufferSize,
		fence:     fence,
		live:      make(map[any]string),
	}, nil
}

// Info describes the device.
func (d *Device) Info() compute.DeviceInfo {
	return compute.DeviceInfo{
		Backend:        compute.BackendWGPU,
		Name:           d.name,
		Precision:      compute.Float32,
		MaxLocalSize:   d.maxLocal,
		MaxLocalMemory: maxLocalMemory,
		MaxBufferSize:  d.maxBuffer,
	}
}

// BuiltinSource returns the WGSL source of de_init, de_mutate and de_select.
func (d *Device) BuiltinSource() compute.Source {
	return compute.Source{Name: "diffevo.wgsl", Text: builtinSource}
}

// Close waits for the queue, releases what the device still owns and, for
// devices it opened, destroys the device and the instance. Every step runs
// even if an earlier one fails.
func (d *Device) Close() error {
	if d.closed {
		return compute.ErrClosed
	}
	var errs []error
	if err := d.Finish(); err != nil {
		errs = append(errs, err)
	}
	d.closed = true

	if d.dummy != nil {
		d.device.DestroyBuffer(d.dummy.raw)
		delete(d.live, d.dummy)
		d.dummy = nil
	}
	if n := len(d.live); n > 0 {
		errs = append(errs, fmt.Errorf("wgpu: %d handles still live at close", n))
		d.log.Warn("wgpu: closing with live handles", "count", n)
		clear(d.live)
	}
	if d.fence != nil {
		d.device.DestroyFence(d.fence)
		d.fence = nil
	}

	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
	d.log.Debug("wgpu: device closed")
	return errors.Join(errs...)
}

// liveHandles returns the number of unreleased handles.
func (d *Device) liveHandles() int { return len(d.live) }
