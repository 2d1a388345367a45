// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package deps defines the resolved dependency shape the argument
// composition layer consumes. Discovery (pkg-config, cmake) happens
// elsewhere; by the time a Dependency reaches this package its compile
// and link arguments are final strings.
package deps

import (
	"strings"
)

// IncludeType controls how include search arguments of a dependency
// are spelled when handed to a compiler.
type IncludeType string

const (
	// IncludePreserve hands the arguments through untouched.
	IncludePreserve IncludeType = "preserve"
	// IncludeSystem rewrites -I/ /I to -isystem, demoting the
	// dependency's headers below the project's own in warning checks.
	IncludeSystem IncludeType = "system"
	// IncludeNonSystem rewrites -isystem back to -I.
	IncludeNonSystem IncludeType = "non-system"
)

// Dependency is a resolved external or internal dependency.
type Dependency interface {
	// Name is the name the dependency was requested under.
	Name() string
	// Version is the discovered version, or "unknown".
	Version() string
	// Found reports whether the dependency resolved.
	Found() bool
	// CompileArgs returns the compile arguments, include-type
	// conversion already applied.
	CompileArgs() []string
	// LinkArgs returns the link arguments.
	LinkArgs() []string
}

// convertIncludeArgs applies the IncludeType rewrite rules to a
// compile argument list.
func convertIncludeArgs(args []string, it IncludeType) []string {
	switch it {
	case IncludeSystem:
		converted := make([]string, 0, len(args))
		for _, a := range args {
			if strings.HasPrefix(a, "-I") || strings.HasPrefix(a, "/I") {
				converted = append(converted, "-isystem"+a[2:])
			} else {
				converted = append(converted, a)
			}
		}
		return converted
	case IncludeNonSystem:
		converted := make([]string, 0, len(args))
		for _, a := range args {
			if strings.HasPrefix(a, "-isystem") {
				converted = append(converted, "-I"+a[len("-isystem"):])
			} else {
				converted = append(converted, a)
			}
		}
		return converted
	default:
		return args
	}
}

// Internal is a dependency whose arguments were assembled inside the
// build definition rather than discovered on the system. It is always
// found.
type Internal struct {
	name        string
	version     string
	includeType IncludeType
	compileArgs []string
	linkArgs    []string
	extDeps     []Dependency
}

// NewInternal returns a found dependency carrying the given argument
// lists verbatim.
func NewInternal(name, version string, compileArgs, linkArgs []string) *Internal {
	return &Internal{
		name:        name,
		version:     version,
		includeType: IncludePreserve,
		compileArgs: compileArgs,
		linkArgs:    linkArgs,
	}
}

// WithIncludeType returns a copy with a different include spelling.
func (d *Internal) WithIncludeType(it IncludeType) *Internal {
	nd := *d
	nd.includeType = it
	return &nd
}

// AddSubDependency records dep so its arguments show up in the
// flattened AllCompileArgs/AllLinkArgs views.
func (d *Internal) AddSubDependency(dep Dependency) {
	d.extDeps = append(d.extDeps, dep)
}

func (d *Internal) Name() string { return d.name }

func (d *Internal) Found() bool { return true }

func (d *Internal) Version() string {
	if d.version == "" {
		return "unknown"
	}
	return d.version
}

func (d *Internal) CompileArgs() []string {
	return convertIncludeArgs(d.compileArgs, d.includeType)
}

func (d *Internal) LinkArgs() []string { return d.linkArgs }

// AllCompileArgs flattens the compile arguments of d and its sub
// dependencies, depth first.
func (d *Internal) AllCompileArgs() []string {
	args := append([]string(nil), d.CompileArgs()...)
	for _, sub := range d.extDeps {
		if i, ok := sub.(*Internal); ok {
			args = append(args, i.AllCompileArgs()...)
			continue
		}
		args = append(args, sub.CompileArgs()...)
	}
	return args
}

// AllLinkArgs flattens the link arguments of d and its sub
// dependencies, depth first.
func (d *Internal) AllLinkArgs() []string {
	args := append([]string(nil), d.LinkArgs()...)
	for _, sub := range d.extDeps {
		if i, ok := sub.(*Internal); ok {
			args = append(args, i.AllLinkArgs()...)
			continue
		}
		args = append(args, sub.LinkArgs()...)
	}
	return args
}

// NotFound is a dependency that failed to resolve. Argument accessors
// return nil so a caller that forgot to check Found composes nothing
// rather than garbage.
type NotFound struct {
	name string
}

// NewNotFound returns a not-found dependency for name.
func NewNotFound(name string) *NotFound { return &NotFound{name: name} }

func (d *NotFound) Name() string { return d.name }

func (d *NotFound) Version() string { return "unknown" }

func (d *NotFound) Found() bool { return false }

func (d *NotFound) CompileArgs() []string { return nil }

func (d *NotFound) LinkArgs() []string { return nil }

// Threads carries the toolchain specific flags for the platform
// thread library. The flags come from the compiler that will consume
// them (e.g. -pthread for gcc on linux, nothing for msvc).
type Threads struct {
	compileArgs []string
	linkArgs    []string
}

// NewThreads returns the thread dependency given the consuming
// compiler's thread flags.
func NewThreads(compileArgs, linkArgs []string) *Threads {
	return &Threads{compileArgs: compileArgs, linkArgs: linkArgs}
}

func (d *Threads) Name() string { return "threads" }

func (d *Threads) Version() string { return "unknown" }

func (d *Threads) Found() bool { return true }

func (d *Threads) CompileArgs() []string { return d.compileArgs }

func (d *Threads) LinkArgs() []string { return d.linkArgs }
