// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/diffevo/compute"
)

// pool owns every buffer and kernel handle of a solve. Fields are filled
// as soon as each handle is created so release can free a partial set.
type pool struct {
	dev    compute.Device
	layout layout
	log    *slog.Logger

	rng      compute.Buffer
	seeds    compute.Buffer
	pop      [slotCount]compute.Buffer
	costs    [slotCount]compute.Buffer
	evalData compute.Buffer

	kernels [kernelCount]compute.Kernel
}

func newPool(dev compute.Device, log *slog.Logger) *pool {
	return &pool{dev: dev, log: log}
}

// allocate creates all buffers, uploads seeds and constant data, and
// creates the four kernels from program.
func (p *pool) allocate(program compute.Program, pr Problem, seeds []uint32) error {
	if uint32(len(seeds)) != pr.Population {
		return newError(KindResource, "allocate seeds",
			fmt.Errorf("got %d seeds for %d members", len(seeds), pr.Population))
	}
	info := p.dev.Info()
	p.layout = newLayout(pr, info.Precision)
	if p.layout.realSize == 0 {
		return newError(KindResource, "allocate", fmt.Errorf("device reports unknown precision %v", info.Precision))
	}
	if info.MaxBufferSize > 0 && p.layout.popBytes > info.MaxBufferSize {
		return newError(KindResource, "allocate",
			fmt.Errorf("population slot of %d bytes exceeds device limit %d", p.layout.popBytes, info.MaxBufferSize))
	}

	var err error
	if p.rng, err = p.create("rng", p.layout.rngBytes, compute.BufferReadWrite, nil); err != nil {
		return err
	}
	if p.seeds, err = p.create("seeds", p.layout.seedBytes, compute.BufferReadOnly, compute.EncodeUint32s(seeds)); err != nil {
		return err
	}
	for i := range slotCount {
		if p.pop[i], err = p.create(fmt.Sprintf("pop[%d]", i), p.layout.popBytes, compute.BufferReadWrite, nil); err != nil {
			return err
		}
		if p.costs[i], err = p.create(fmt.Sprintf("costs[%d]", i), p.layout.costBytes, compute.BufferReadWrite, nil); err != nil {
			return err
		}
	}
	if pr.ConstData != nil {
		if p.evalData, err = p.create("eval_data", uint64(len(pr.ConstData)), compute.BufferReadOnly, pr.ConstData); err != nil {
			return err
		}
	}

	for k := range kernelCount {
		kern, err := p.dev.CreateKernel(program, k.String(), Signatures[k])
		if err != nil {
			if errors.Is(err, compute.ErrEntryPointNotFound) {
				return newError(KindConfiguration, "create kernel "+k.String(), err)
			}
			return newError(KindResource, "create kernel "+k.String(), err)
		}
		p.kernels[k] = kern
	}

	p.log.Debug("diffevo: buffers allocated",
		"pop_bytes", p.layout.popBytes,
		"cost_bytes", p.layout.costBytes,
		"rng_bytes", p.layout.rngBytes,
		"const_bytes", len(pr.ConstData))
	return nil
}

func (p *pool) create(label string, size uint64, usage compute.BufferUsage, contents []byte) (compute.Buffer, error) {
	b, err := p.dev.CreateBuffer(compute.BufferDesc{
		Label:    label,
		Size:     size,
		Usage:    usage,
		Contents: contents,
	})
	if err != nil {
		return nil, newError(KindResource, "create buffer "+label, err)
	}
	return b, nil
}

// release frees every handle that was created, buffers first, then
// kernels. Each handle is released once; failures are joined.
func (p *pool) release() error {
	var errs []error
	free := func(b *compute.Buffer) {
		if *b == nil {
			return
		}
		if err := p.dev.ReleaseBuffer(*b); err != nil {
			errs = append(errs, fmt.Errorf("release buffer %s: %w", (*b).Label(), err))
		}
		*b = nil
	}

	free(&p.rng)
	free(&p.seeds)
	for i := range slotCount {
		free(&p.pop[i])
		free(&p.costs[i])
	}
	free(&p.evalData)

	for i, k := range p.kernels {
		if k == nil {
			continue
		}
		if err := p.dev.ReleaseKernel(k); err != nil {
			errs = append(errs, fmt.Errorf("release kernel %s: %w", k.Name(), err))
		}
		p.kernels[i] = nil
	}
	return errors.Join(errs...)
}
