// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package options implements the typed option model: keys, values,
// and the store that holds them.
//
// An option key has three parts: a name, an owning subproject (empty
// for the top level project) and the machine it applies to. The
// external spelling is [subproject:][build.]name; the host machine is
// the default and is never spelled out.
package options

import (
	"strings"

	"github.com/eli-schwartz/meson/machine"
)

// Key identifies an option. The zero value is not meaningful; use
// NewKey or ParseKey.
type Key struct {
	Name       string
	Subproject string
	Machine    machine.Choice
}

// NewKey returns a key for name in the top level project, for the
// host machine.
func NewKey(name string) Key {
	return Key{Name: name, Machine: machine.Host}
}

// ParseKey parses the external [subproject:][build.]name spelling.
// A "host." prefix is accepted and means the same as no prefix.
func ParseKey(raw string) Key {
	subproject := ""
	if i := strings.Index(raw, ":"); i >= 0 {
		subproject, raw = raw[:i], raw[i+1:]
	}
	m := machine.Host
	switch {
	case strings.HasPrefix(raw, "build."):
		m = machine.Build
		raw = raw[len("build."):]
	case strings.HasPrefix(raw, "host."):
		raw = raw[len("host."):]
	}
	return Key{Name: raw, Subproject: subproject, Machine: m}
}

// String renders the external spelling.
func (k Key) String() string {
	out := k.Name
	if k.Machine == machine.Build {
		out = "build." + out
	}
	if k.Subproject != "" {
		out = k.Subproject + ":" + out
	}
	return out
}

// Less orders keys by (subproject, machine, name).
func (k Key) Less(other Key) bool {
	if k.Subproject != other.Subproject {
		return k.Subproject < other.Subproject
	}
	if k.Machine != other.Machine {
		return k.Machine < other.Machine
	}
	return k.Name < other.Name
}

// WithName returns a copy of k with a different name.
func (k Key) WithName(name string) Key {
	k.Name = name
	return k
}

// WithSubproject returns a copy of k owned by subproject.
func (k Key) WithSubproject(subproject string) Key {
	k.Subproject = subproject
	return k
}

// WithMachine returns a copy of k for the given machine.
func (k Key) WithMachine(m machine.Choice) Key {
	k.Machine = m
	return k
}

// AsRoot returns the key without a subproject.
func (k Key) AsRoot() Key { return k.WithSubproject("") }

// AsBuild returns the key for the build machine.
func (k Key) AsBuild() Key { return k.WithMachine(machine.Build) }

// AsHost returns the key for the host machine.
func (k Key) AsHost() Key { return k.WithMachine(machine.Host) }

// HasModulePrefix reports whether the name is module scoped,
// e.g. "python.platlibdir".
func (k Key) HasModulePrefix() bool {
	return strings.Contains(k.Name, ".")
}

// ModulePrefix returns the module part of a module scoped name, or "".
func (k Key) ModulePrefix() string {
	if i := strings.Index(k.Name, "."); i >= 0 {
		return k.Name[:i]
	}
	return ""
}

// WithoutModulePrefix strips the module part off a module scoped name.
func (k Key) WithoutModulePrefix() Key {
	if i := strings.Index(k.Name, "."); i >= 0 {
		return k.WithName(k.Name[i+1:])
	}
	return k
}

// MarshalText renders the external spelling, so Key works as a JSON
// map key.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the external spelling.
func (k *Key) UnmarshalText(text []byte) error {
	*k = ParseKey(string(text))
	return nil
}
