// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/arglist"
	"github.com/eli-schwartz/meson/options"
	"github.com/eli-schwartz/meson/toolsupport/msvcutil"
	"github.com/eli-schwartz/meson/toolsupport/verutil"
)

var msvcCRTArgs = map[string][]string{
	"none": {},
	"md":   {"/MD"},
	"mdd":  {"/MDd"},
	"mt":   {"/MT"},
	"mtd":  {"/MTd"},
}

// msvcCRTVal resolves the b_vscrt value to a concrete runtime choice.
// The from_buildtype values pick the runtime the old per-buildtype flag
// tables used to.
func msvcCRTVal(crtVal, buildtype string) (string, error) {
	if _, ok := msvcCRTArgs[crtVal]; ok {
		return crtVal, nil
	}
	dbg, rel := "mdd", "md"
	if crtVal == "static_from_buildtype" {
		dbg, rel = "mtd", "mt"
	}
	switch buildtype {
	case "plain":
		return "none", nil
	case "debug":
		return dbg, nil
	case "debugoptimized", "release", "minsize":
		return rel, nil
	}
	return "", fmt.Errorf(`requested C runtime based on buildtype, but buildtype is %q`, buildtype)
}

var vsLikeOptimizationArgs = map[string][]string{
	"0": {"/Od"}, "g": {}, "1": {"/O1"}, "2": {"/O2"},
	"3": {"/O2", "/Gw"}, "s": {"/O1", "/Gw"},
}

var vsLikeWarnArgs = map[string][]string{
	"0": nil, "1": {"/W2"}, "2": {"/W3"}, "3": {"/W4"},
	"everything": {"/Wall"},
}

// withoutArg returns the table with arg filtered from every level.
func withoutArg(table map[string][]string, arg string) map[string][]string {
	out := make(map[string][]string, len(table))
	for k, v := range table {
		kept := make([]string, 0, len(v))
		for _, a := range v {
			if a != arg {
				kept = append(kept, a)
			}
		}
		out[k] = kept
	}
	return out
}

// applyVSLike fills the traits shared by compilers imitating cl.exe.
// Internal arguments stay in unix style and are translated on the way
// out, so dedup and lookups work across syntaxes.
func applyVSLike(tr *traits, language string) {
	tr.alwaysArgs = []string{"/nologo", "/showIncludes", "/utf-8"}
	tr.outputArgs = func(_ *Compiler, target string) []string {
		if strings.HasSuffix(target, ".exe") {
			return []string{"/Fe" + target}
		}
		return []string{"/Fo" + target}
	}
	tr.compileOnly = []string{"/c"}
	tr.preprocessOnly = []string{"/EP"}
	tr.includeArgs = func(_ *Compiler, path string, _ bool) []string {
		if path == "" {
			path = "."
		}
		// cl.exe has no concept of system header directories.
		return []string{"-I" + path}
	}
	tr.optimizationArgs = vsLikeOptimizationArgs
	tr.debugArgs = map[bool][]string{true: {"/Zi"}}
	tr.picArgs = func(*Compiler) []string { return nil }
	tr.crtCompileArgs = func(_ *Compiler, crtVal, buildtype string) ([]string, error) {
		val, err := msvcCRTVal(crtVal, buildtype)
		if err != nil {
			return nil, err
		}
		return slices.Clone(msvcCRTArgs[val]), nil
	}
	tr.warnArgs = vsLikeWarnArgs
	tr.werrorArgs = []string{"/WX"}
	tr.noOptimization = []string{"/Od"}
	tr.disableAssert = func(*Compiler) []string { return []string{"-DNDEBUG"} }
	tr.argumentSyntax = "msvc"
	tr.argPolicy = arglist.CLike
	tr.toNative = msvcutil.UnixArgsToNative
	tr.fromNative = msvcutil.NativeArgsToUnix
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, "-I", "/I", "/LIBPATH:")
	}
	tr.optionLinkArgs = func(c *Compiler, s *options.Store) []string {
		libs, _ := s.Strings(c.OptionKey("winlibs"))
		return slices.Clone(libs)
	}
	tr.sanityCode = clikeSanityCode(language)
}

// vsLikeOptions registers the std and winlibs options of a cl.exe
// style compiler. gnu also admits the gnu dialect std names, which
// clang-cl forwards to its clang side.
func vsLikeOptions(c *Compiler, stds []string, gnu bool) map[options.Key]options.Option {
	all := allCStds
	if c.language == "cpp" {
		all = allCPPStds
	}
	std := options.NewStd(c.language, all)
	std.SetVersions(stds, gnu, false)
	return map[options.Key]options.Option{
		c.OptionKey("std"): std,
		c.OptionKey("winlibs"): options.NewArray(
			c.language+"_winlibs", "Windows libs to link against.", MSVCWinlibs),
	}
}

func finishVSLike(c *Compiler) {
	// cl.exe never drives link.exe for us, so environment compile
	// flags must not leak into link lines.
	c.invokesLinker = false
	c.canCompile["h"] = true
	c.addBaseOptions("b_pch", "b_ndebug", "b_vscrt")
}

// NewMSVCCompiler returns Microsoft cl.exe for language ("c" or
// "cpp").
func NewMSVCCompiler(language string, tc Toolchain) *Compiler {
	var tr traits
	applyVSLike(&tr, language)
	// /utf-8 and /Gw arrived with Visual Studio 2015 and 2013.
	if verutil.Before(tc.Version, "19.00") {
		tr.alwaysArgs = []string{"/nologo", "/showIncludes"}
	}
	if verutil.Before(tc.Version, "18.0") {
		tr.optimizationArgs = withoutArg(vsLikeOptimizationArgs, "/Gw")
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		var stds []string
		if c.language == "cpp" {
			if verutil.AtLeast(c.version, "19.00") {
				stds = append(stds, "c++14")
			}
			if verutil.AtLeast(c.version, "19.11") {
				stds = append(stds, "c++17")
			}
			if verutil.AtLeast(c.version, "19.29") {
				stds = append(stds, "c++20")
			}
		} else {
			stds = []string{"c89", "c99"}
			if verutil.AtLeast(c.version, "19.28") {
				stds = append(stds, "c11", "c17")
			}
		}
		return vsLikeOptions(c, stds, false)
	}
	tr.optionCompileArgs = func(c *Compiler, s *options.Store) []string {
		std, ok := s.String(c.OptionKey("std"))
		if !ok || std == "none" {
			return nil
		}
		// cl.exe compiles c89 and c99 by default and has no flag to
		// ask for them.
		if c.language != "cpp" && !strings.HasPrefix(std, "c1") {
			return nil
		}
		return []string{"/std:" + std}
	}
	c := newCompiler("msvc", language, tc, tr)
	finishVSLike(c)
	return c
}

// NewClangClCompiler returns clang in cl.exe guise.
func NewClangClCompiler(language string, tc Toolchain) *Compiler {
	var tr traits
	applyVSLike(&tr, language)
	tr.includeArgs = func(_ *Compiler, path string, system bool) []string {
		if path == "" {
			path = "."
		}
		if system {
			return []string{"/clang:-isystem" + path}
		}
		return []string{"-I" + path}
	}
	tr.checkArgs = func(c *Compiler, mode CompileCheckMode) []string {
		args := c.NoOptimizationArgs()
		// clang-cl only warns about unknown arguments by default,
		// which defeats probing for supported flags.
		if mode == ModeCompile {
			args = append(args, "-Werror=unknown-argument", "-Werror=unknown-warning-option")
		}
		return args
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		stds := []string{"c++11", "c++14", "c++17", "c++20"}
		if c.language != "cpp" {
			stds = clikeCStds(c.version, stdGates{c17: "6.0.0", c18: "8.0.0", c2x: "9.0.0"})
		}
		return vsLikeOptions(c, stds, true)
	}
	tr.optionCompileArgs = func(c *Compiler, s *options.Store) []string {
		std, ok := s.String(c.OptionKey("std"))
		if !ok || std == "none" {
			return nil
		}
		// The C driver side only understands the unix spelling.
		if c.language != "cpp" {
			return []string{"/clang:-std=" + std}
		}
		return []string{"/std:" + std}
	}
	c := newCompiler("clang-cl", language, tc, tr)
	finishVSLike(c)
	c.canCompile["s"] = true
	c.canCompile["sx"] = true
	return c
}

var intelClBuildtypeArgs = map[string][]string{
	"debug":          {"/Zi", "/traceback"},
	"debugoptimized": {"/Zi", "/traceback"},
}

var intelClOptimizationArgs = map[string][]string{
	"0": {"/Od"}, "g": {"/Od"}, "1": {"/O1"}, "2": {"/O2"}, "3": {"/O3"}, "s": {"/Os"},
}

// NewIntelClCompiler returns icl, the classic Intel compiler on
// Windows.
func NewIntelClCompiler(language string, tc Toolchain) *Compiler {
	var tr traits
	applyVSLike(&tr, language)
	tr.buildtypeArgs = intelClBuildtypeArgs
	tr.optimizationArgs = intelClOptimizationArgs
	tr.checkArgs = func(c *Compiler, mode CompileCheckMode) []string {
		args := c.NoOptimizationArgs()
		if mode != ModeLink {
			args = append(args,
				"/Qdiag-error:10006", // ignoring unknown option
				"/Qdiag-error:10148", // option not supported
				"/Qdiag-error:10155", // ignoring argument required
				"/Qdiag-error:10156", // ignoring not argument allowed
				"/Qdiag-error:10157", // ignoring argument of the wrong type
				"/Qdiag-error:10158", // argument must be separate
			)
		}
		return args
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		stds := []string{"c++11", "c++14", "c++17"}
		if c.language != "cpp" {
			stds = []string{"c89", "c99", "c11"}
		}
		return vsLikeOptions(c, stds, false)
	}
	tr.optionCompileArgs = func(c *Compiler, s *options.Store) []string {
		std, ok := s.String(c.OptionKey("std"))
		if !ok || std == "none" {
			return nil
		}
		if c.language == "cpp" {
			return []string{"/std:" + std}
		}
		// icl has no explicit c89 mode; its default is close enough.
		if std == "c89" {
			return nil
		}
		return []string{"/Qstd:" + std}
	}
	c := newCompiler("intel-cl", language, tc, tr)
	finishVSLike(c)
	return c
}
