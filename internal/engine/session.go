// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gogpu/diffevo/compute"
)

// session owns the device (with its context and queue) and the compiled
// program of one solve.
type session struct {
	device  compute.Device
	program compute.Program
	info    compute.DeviceInfo
	log     *slog.Logger
}

// openSession opens a device through factory.
func openSession(factory compute.Factory, log *slog.Logger) (*session, error) {
	if factory == nil {
		return nil, newError(KindConfiguration, "open device", errors.New("no device factory"))
	}
	dev, err := factory()
	if err != nil {
		return nil, newError(KindResource, "open device", err)
	}
	if dev == nil {
		return nil, newError(KindResource, "open device", compute.ErrNoDevice)
	}
	s := &session{device: dev, info: dev.Info(), log: log}
	log.Info("diffevo: device opened",
		"backend", s.info.Backend,
		"device", s.info.Name,
		"precision", s.info.Precision.String())
	return s, nil
}

// compile loads the user source from path and builds it together with the
// backend's algorithm source as one program.
func (s *session) compile(path string, constants []compute.Constant) error {
	if path == "" {
		return newError(KindConfiguration, "load source", errors.New("eval source path not specified"))
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return newError(KindConfiguration, "load source", err)
	}

	desc := compute.ProgramDesc{
		Label: "diffevo",
		Sources: []compute.Source{
			{Name: path, Text: string(text)},
			s.device.BuiltinSource(),
		},
		Constants: constants,
	}
	s.log.Debug("diffevo: compiling program",
		"source", path,
		"source_bytes", len(text),
		"constants", len(constants))

	program, err := s.device.Compile(desc)
	if err != nil {
		var be *compute.BuildError
		if errors.As(err, &be) {
			return newError(KindCompile, "compile", err)
		}
		return newError(KindResource, "compile", err)
	}
	s.program = program
	return nil
}

// teardown releases the program, then the device. Parts that were never
// created are skipped; every release is attempted.
func (s *session) teardown() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.program != nil {
		if err := s.device.ReleaseProgram(s.program); err != nil {
			errs = append(errs, fmt.Errorf("release program: %w", err))
		}
		s.program = nil
	}
	if s.device != nil {
		if err := s.device.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close device: %w", err))
		}
		s.device = nil
	}
	return errors.Join(errs...)
}
