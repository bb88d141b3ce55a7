// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compute

import (
	"fmt"
	"sort"
	"sync"
)

// Backend names.
const (
	BackendWGPU = "wgpu"
	BackendHost = "host"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	backendPriority = []string{BackendWGPU, BackendHost}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get returns the factory registered under name.
func Get(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return f, nil
}

// Default returns a factory that opens the best available backend.
//
// Backends are tried in priority order (wgpu, then host), then any other
// registered backend in name order. The first one that opens a device
// wins; a backend that fails to open is logged and skipped.
func Default() Factory {
	return func() (Device, error) {
		registryMu.RLock()
		order := make([]string, 0, len(factories))
		seen := make(map[string]bool, len(factories))
		for _, name := range backendPriority {
			if _, ok := factories[name]; ok {
				order = append(order, name)
				seen[name] = true
			}
		}
		rest := make([]string, 0, len(factories))
		for name := range factories {
			if !seen[name] {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		order = append(order, rest...)
		candidates := make([]Factory, len(order))
		for i, name := range order {
			candidates[i] = factories[name]
		}
		registryMu.RUnlock()

		if len(candidates) == 0 {
			return nil, ErrBackendNotAvailable
		}

		var lastErr error
		for i, f := range candidates {
			dev, err := f()
			if err == nil {
				return dev, nil
			}
			slogger().Warn("compute: backend unavailable", "backend", order[i], "err", err)
			lastErr = err
		}
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, lastErr)
	}
}

// Open opens a device from the named backend, or the default backend when
// name is empty.
func Open(name string) (Device, error) {
	if name == "" {
		return Default()()
	}
	f, err := Get(name)
	if err != nil {
		return nil, err
	}
	return f()
}
