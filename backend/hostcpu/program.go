// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hostcpu

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/diffevo/compute"
)

// Host programs are link manifests: YAML documents that map entry point
// names to registered kernels or objectives.
//
//	# eval.yaml
//	entry_points:
//	  eval: rosenbrock
const builtinManifest = `# Built-in differential evolution kernels.
entry_points:
  init: diffevo.init
  mutate: diffevo.mutate
  select: diffevo.select
`

type manifest struct {
	EntryPoints map[string]string `yaml:"entry_points"`
}

type program struct {
	dev     *Device
	label   string
	entries map[string]KernelFunc
	consts  map[string]uint32
}

func (p *program) EntryPoints() []string {
	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// link parses every source and resolves its entry points. All problems are
// collected into one build log.
func link(d *Device, desc compute.ProgramDesc) (*program, error) {
	p := &program{
		dev:     d,
		label:   desc.Label,
		entries: make(map[string]KernelFunc),
		consts:  make(map[string]uint32, len(desc.Constants)),
	}
	for _, c := range desc.Constants {
		p.consts[c.Name] = c.Value
	}

	var diags []string
	owner := make(map[string]string)
	for _, src := range desc.Sources {
		m, err := parseManifest(src.Text)
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s: %v", src.Name, err))
			continue
		}
		names := make([]string, 0, len(m.EntryPoints))
		for name := range m.EntryPoints {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, entry := range names {
			target := m.EntryPoints[entry]
			if prev, dup := owner[entry]; dup {
				diags = append(diags, fmt.Sprintf("%s: entry point %q already defined in %s", src.Name, entry, prev))
				continue
			}
			fn, ok := lookupKernel(target)
			if !ok {
				diags = append(diags, fmt.Sprintf("%s: entry point %q: unknown kernel or objective %q", src.Name, entry, target))
				continue
			}
			owner[entry] = src.Name
			p.entries[entry] = fn
		}
	}

	if len(diags) > 0 {
		buildLog := strings.Join(diags, "\n")
		return nil, &compute.BuildError{
			Program: desc.Label,
			Log:     buildLog,
			Err:     fmt.Errorf("%d link errors", len(diags)),
		}
	}
	return p, nil
}

func parseManifest(text string) (manifest, error) {
	var m manifest
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return m, errors.New("empty manifest")
		}
		return m, err
	}
	if len(m.EntryPoints) == 0 {
		return m, errors.New("manifest defines no entry points")
	}
	return m, nil
}
