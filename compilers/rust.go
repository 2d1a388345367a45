// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"fmt"
	"strings"

	"github.com/eli-schwartz/meson/arglist"
	"github.com/eli-schwartz/meson/options"
)

var rustOptimizationArgs = map[string][]string{
	"0": {},
	"g": {"-C", "opt-level=0"},
	"1": {"-C", "opt-level=1"},
	"2": {"-C", "opt-level=2"},
	"3": {"-C", "opt-level=3"},
	"s": {"-C", "opt-level=s"},
}

// rustc has no warning levels to speak of: level 0 allows everything,
// level 3 makes the default lints warn.
var rustWarnArgs = map[string][]string{
	"0": {"-A", "warnings"},
	"1": {},
	"2": {},
	"3": {"-W", "warnings"},
}

// rustLibPrefixes are the -L kind prefixes rustc accepts.
var rustLibPrefixes = []string{
	"-Ldependency=", "-Lcrate=", "-Lnative=", "-Lframework=", "-Lall=",
}

func rustTraits() traits {
	var tr traits
	tr.outputArgs = func(_ *Compiler, target string) []string {
		return []string{"-o", target}
	}
	tr.optimizationArgs = rustOptimizationArgs
	tr.debugArgs = clikeDebugArgs
	tr.picArgs = func(*Compiler) []string {
		return []string{"-C", "relocation-model=pic"}
	}
	// pic already decides this, there is no separate toggle.
	tr.pieArgs = func(*Compiler) []string { return nil }
	tr.coloroutArgs = func(_ *Compiler, colortype string) ([]string, error) {
		switch colortype {
		case "always", "never", "auto":
			return []string{"--color=" + colortype}, nil
		}
		return nil, fmt.Errorf("invalid color type for rust %s", colortype)
	}
	// rustc links the runtime it was told to target on its own.
	tr.crtCompileArgs = func(*Compiler, string, string) ([]string, error) {
		return nil, nil
	}
	tr.warnArgs = rustWarnArgs
	// -D warnings makes every lint not explicitly allowed an error.
	tr.werrorArgs = []string{"-D", "warnings"}
	tr.linkerAlways = func(c *Compiler) []string {
		if c.linker == nil {
			return nil
		}
		var args []string
		for _, a := range c.linker.AlwaysArgs() {
			args = append(args, "-C", "link-arg="+a)
		}
		return args
	}
	tr.useLinkerArgs = func(_ *Compiler, linker string) []string {
		return []string{"-C", "linker=" + linker}
	}
	tr.argPolicy = arglist.Base
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, rustLibPrefixes...)
	}
	tr.depfileSuffix = "d"
	tr.depGenArgs = func(_ *Compiler, _, outfile string) []string {
		return []string{"--dep-info", outfile}
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		return map[options.Key]options.Option{
			c.OptionKey("std"): options.NewCombo("rust_std", "Rust edition to use",
				"none", []string{"none", "2015", "2018", "2021"}),
		}
	}
	tr.optionCompileArgs = func(c *Compiler, s *options.Store) []string {
		if std, ok := s.String(c.OptionKey("std")); ok && std != "none" {
			return []string{"--edition=" + std}
		}
		return nil
	}
	tr.noStaticLinker = true
	tr.sanityCode = "fn main() {\n}\n"
	return tr
}

func newRust(id string, tc Toolchain) *Compiler {
	c := newCompiler(id, "rust", tc, rustTraits())
	c.addBaseOptions("b_colorout")
	// When rustc drives link.exe the Windows CRT choice applies.
	if strings.Contains(c.LinkerID(), "link") {
		c.addBaseOptions("b_vscrt")
	}
	return c
}

// NewRustCompiler returns a rustc.
func NewRustCompiler(tc Toolchain) *Compiler {
	return newRust("rustc", tc)
}

// NewClippyRustCompiler returns clippy-driver, the lint wrapper around
// rustc. Only the id differs.
func NewClippyRustCompiler(tc Toolchain) *Compiler {
	return newRust("clippy-driver rustc", tc)
}
