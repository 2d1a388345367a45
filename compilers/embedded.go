// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/options"
)

// Cross-only toolchains for firmware targets. They borrow the clike
// command line where they can and diverge where the vendor did.

func crossOnly(id string, tc Toolchain) error {
	if !tc.IsCross {
		return fmt.Errorf("%s supports only cross-compilation", id)
	}
	return nil
}

// Levels 0 and 2 are left to armclang's defaults.
var armclangOptimizationArgs = map[string][]string{
	"0": {}, "g": {"-g"}, "1": {"-O1"}, "2": {}, "3": {"-O3"}, "s": {"-Oz"},
}

// NewArmClangCompiler returns armclang, the clang half of Arm Compiler
// 6. It must pair with armlink, so only cross builds make sense.
func NewArmClangCompiler(language string, tc Toolchain) (*Compiler, error) {
	if err := crossOnly("armclang", tc); err != nil {
		return nil, err
	}
	var tr traits
	applyClike(&tr, language)
	tr.optimizationArgs = armclangOptimizationArgs
	tr.picArgs = func(*Compiler) []string { return nil }
	tr.coloroutArgs = func(_ *Compiler, colortype string) ([]string, error) {
		return slices.Clone(gnuColorArgs[colortype]), nil
	}
	// b_lto and b_coverage are accepted but armlink decides both.
	tr.ltoCompileArgs = func(*Compiler, int, string) ([]string, error) { return nil, nil }
	tr.coverageArgs = func(*Compiler) []string { return nil }
	tr.depfileSuffix = "d"
	tr.depGenArgs = func(_ *Compiler, outtarget, outfile string) []string {
		return []string{"-MD", "-MT", outtarget, "-MF", outfile}
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		stds := []string{"c++98", "c++03", "c++11", "c++14", "c++17"}
		if c.language != "cpp" {
			stds = []string{"c90", "c99", "c11"}
		}
		return gnuLikeOptions(c, stds)
	}
	tr.optionCompileArgs = stdOptionCompileArgs
	c := newCompiler("armclang", language, tc, tr)
	c.addBaseOptions("b_pch", "b_lto", "b_pgo", "b_coverage", "b_ndebug",
		"b_staticpic", "b_colorout")
	return c, nil
}

var xc16OptimizationArgs = map[string][]string{
	"0": {"-O0"}, "g": {"-O0"}, "1": {"-O1"}, "2": {"-O2"}, "3": {"-O3"}, "s": {"-Os"},
}

// xc16ArgsToNative drops host linker arguments the xc16 driver cannot
// digest.
func xc16ArgsToNative(args []string) []string {
	var out []string
	for _, a := range args {
		if strings.HasPrefix(a, "-Wl,-rpath=") || a == "--print-search-dirs" ||
			strings.HasPrefix(a, "-L") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// NewXc16Compiler returns Microchip's xc16 C compiler for PIC24 and
// dsPIC parts.
func NewXc16Compiler(tc Toolchain) (*Compiler, error) {
	if err := crossOnly("xc16", tc); err != nil {
		return nil, err
	}
	var tr traits
	applyClike(&tr, "c")
	tr.optimizationArgs = xc16OptimizationArgs
	tr.debugArgs = nil
	tr.picArgs = func(*Compiler) []string { return nil }
	tr.warnArgs = map[string][]string{"0": nil, "1": nil, "2": nil, "3": nil}
	tr.coverageArgs = func(*Compiler) []string { return nil }
	tr.threadFlags = nil
	tr.toNative = xc16ArgsToNative
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, "-I")
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		return gnuLikeOptions(c, []string{"c89", "c99"})
	}
	tr.optionCompileArgs = func(c *Compiler, s *options.Store) []string {
		if std, ok := s.String(c.OptionKey("std")); ok && std != "none" {
			return []string{"-ansi", "-std=" + std}
		}
		return nil
	}
	c := newCompiler("xc16", "c", tc, tr)
	c.canCompile["s"] = true
	c.canCompile["h"] = true
	return c, nil
}

var ccompOptimizationArgs = map[string][]string{
	"0": {"-O0"}, "g": {"-O0"}, "1": {"-O1"}, "2": {"-O2"}, "3": {"-O3"}, "s": {"-Os"},
}

var ccompBuildtypeArgs = map[string][]string{
	"debug":          {"-O0", "-g"},
	"debugoptimized": {"-O0", "-g"},
	"release":        {"-O3"},
	"minsize":        {"-Os"},
	"custom":         {"-Obranchless"},
}

// ccompWulArgs are passed through to the underlying gcc ccomp links
// with, so they need the -WUl escape.
var ccompWulArgs = map[string]bool{"-ffreestanding": true, "-r": true}

func ccompArgsToNative(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if ccompWulArgs[a] {
			out = append(out, "-WUl,"+a)
			continue
		}
		out = append(out, a)
	}
	return out
}

// NewCompCertCompiler returns ccomp, the formally verified C compiler.
func NewCompCertCompiler(tc Toolchain) *Compiler {
	var tr traits
	applyClike(&tr, "c")
	tr.preprocessOnly = []string{"-E"}
	tr.optimizationArgs = ccompOptimizationArgs
	tr.debugArgs = map[bool][]string{true: {"-O0", "-g"}}
	tr.buildtypeArgs = ccompBuildtypeArgs
	tr.picArgs = func(*Compiler) []string { return nil }
	tr.warnArgs = map[string][]string{"0": nil, "1": nil, "2": nil, "3": nil}
	tr.werrorArgs = nil
	tr.coverageArgs = func(*Compiler) []string { return nil }
	tr.threadFlags = nil
	tr.toNative = ccompArgsToNative
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, "-I")
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		std := options.NewStd(c.language, allCStds)
		std.SetVersions([]string{"c89", "c99"}, false, false)
		return map[options.Key]options.Option{c.OptionKey("std"): std}
	}
	tr.optionCompileArgs = stdOptionCompileArgs
	c := newCompiler("ccomp", "c", tc, tr)
	c.canCompile["s"] = true
	c.canCompile["h"] = true
	return c
}

var tiOptimizationArgs = map[string][]string{
	"0": {"-O0"}, "g": {"-Ooff"}, "1": {"-O1"}, "2": {"-O2"}, "3": {"-O3"}, "s": {"-O4"},
}

// tiArgsToNative rewrites defines to TI's spelling and drops host
// linker arguments.
func tiArgsToNative(args []string) []string {
	var out []string
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "-D"):
			out = append(out, "--define="+a[2:])
		case strings.HasPrefix(a, "-Wl,-rpath=") || a == "--print-search-dirs" ||
			strings.HasPrefix(a, "-L"):
			continue
		default:
			out = append(out, a)
		}
	}
	return out
}

func newTI(id, language string, tc Toolchain) (*Compiler, error) {
	if err := crossOnly(id, tc); err != nil {
		return nil, err
	}
	var tr traits
	applyClike(&tr, language)
	tr.outputArgs = func(_ *Compiler, target string) []string {
		return []string{"--output_file=" + target}
	}
	// cl2000 compiles by default; -z switches it into link mode.
	tr.compileOnly = nil
	tr.includeArgs = func(_ *Compiler, path string, _ bool) []string {
		if path == "" {
			path = "."
		}
		return []string{"-I=" + path}
	}
	tr.optimizationArgs = tiOptimizationArgs
	tr.picArgs = func(*Compiler) []string { return nil }
	tr.warnArgs = map[string][]string{"0": nil, "1": nil, "2": nil, "3": nil}
	tr.werrorArgs = []string{"--emit_warnings_as_errors"}
	tr.noOptimization = []string{"-Ooff"}
	tr.threadFlags = nil
	tr.toNative = tiArgsToNative
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, "--include_path=", "-I")
	}
	tr.depfileSuffix = "d"
	tr.depGenArgs = func(_ *Compiler, _, outfile string) []string {
		return []string{"--preproc_with_compile", "--preproc_dependency=" + outfile}
	}
	if language == "c" {
		tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
			std := options.NewStd(c.language, allCStds)
			std.SetVersions([]string{"c89", "c99", "c11"}, false, false)
			return map[options.Key]options.Option{c.OptionKey("std"): std}
		}
		tr.optionCompileArgs = func(c *Compiler, s *options.Store) []string {
			if std, ok := s.String(c.OptionKey("std")); ok && std != "none" {
				return []string{"--" + std}
			}
			return nil
		}
	}
	c := newCompiler(id, language, tc, tr)
	c.canCompile["asm"] = true
	c.canCompile["cla"] = true
	c.canCompile["h"] = true
	return c, nil
}

// NewTICompiler returns a TI compiler such as cl2000 or armcl.
func NewTICompiler(language string, tc Toolchain) (*Compiler, error) {
	return newTI("ti", language, tc)
}

// NewC2000Compiler is the deprecated alias detection keeps for old
// cross files naming the toolchain c2000.
func NewC2000Compiler(language string, tc Toolchain) (*Compiler, error) {
	return newTI("c2000", language, tc)
}
