// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/arglist"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/options"
	"github.com/eli-schwartz/meson/toolsupport/verutil"
)

// absJoin resolves p against base: absolute paths stand, relative ones
// are joined and cleaned.
func absJoin(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// rewritePrefixedPaths rewrites the path part of any argument carrying
// one of the glued prefixes to be absolute against buildDir.
func rewritePrefixedPaths(args []string, buildDir string, prefixes ...string) []string {
	out := slices.Clone(args)
	for i, a := range out {
		for _, p := range prefixes {
			if strings.HasPrefix(a, p) {
				out[i] = p + absJoin(buildDir, a[len(p):])
				break
			}
		}
	}
	return out
}

// The sanity sources are chosen so a compiler for the wrong language
// fails: the C snippet uses class as an identifier, the C++ one
// declares a class.
func clikeSanityCode(language string) string {
	if language == "cpp" {
		return "class breakCCompiler;int main(void) { return 0; }\n"
	}
	return "int main(void) { int class=0; return class; }\n"
}

// applyClike fills the traits every compiler with a traditional unix
// cc command line shares. Families refine on top of it.
func applyClike(tr *traits, language string) {
	tr.outputArgs = func(_ *Compiler, target string) []string {
		return []string{"-o", target}
	}
	tr.compileOnly = []string{"-c"}
	tr.preprocessOnly = []string{"-E", "-P"}
	tr.includeArgs = func(_ *Compiler, path string, system bool) []string {
		if path == "" {
			path = "."
		}
		if system {
			return []string{"-isystem", path}
		}
		return []string{"-I" + path}
	}
	tr.optimizationArgs = clikeOptimizationArgs
	tr.debugArgs = clikeDebugArgs
	tr.werrorArgs = []string{"-Werror"}
	tr.noOptimization = []string{"-O0"}
	tr.noStdincArgs = []string{"-nostdinc"}
	tr.disableAssert = func(*Compiler) []string { return []string{"-DNDEBUG"} }
	tr.threadFlags = func(_ *Compiler, m machine.Info) []string {
		if m.Haiku() || m.Darwin() {
			return nil
		}
		return []string{"-pthread"}
	}
	tr.argPolicy = arglist.CLike
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, "-I", "-L")
	}
	tr.sanityCode = clikeSanityCode(language)
}

var gnuOptimizationArgs = map[string][]string{
	"0": {"-O0"}, "g": {"-Og"}, "1": {"-O1"}, "2": {"-O2"}, "3": {"-O3"}, "s": {"-Os"},
}

// clang prefers -Oz for size; everything else matches gcc.
var clangOptimizationArgs = map[string][]string{
	"0": {"-O0"}, "g": {"-Og"}, "1": {"-O1"}, "2": {"-O2"}, "3": {"-O3"}, "s": {"-Oz"},
}

var gnuColorArgs = map[string][]string{
	"auto":   {"-fdiagnostics-color=auto"},
	"always": {"-fdiagnostics-color=always"},
	"never":  {"-fdiagnostics-color=never"},
}

func gnuSanitizerArgs(value string) []string {
	if value == "none" {
		return nil
	}
	args := []string{"-fsanitize=" + value}
	// covers combined values such as address,undefined
	if strings.Contains(value, "address") {
		args = append(args, "-fno-omit-frame-pointer")
	}
	return args
}

func gnuWarnArgs(language string) map[string][]string {
	base := []string{"-Wall"}
	if language == "cpp" || language == "objcpp" {
		base = append(base, "-Wnon-virtual-dtor")
	}
	return map[string][]string{
		"0": nil,
		"1": base,
		"2": append(slices.Clone(base), "-Wextra"),
		"3": append(slices.Clone(base), "-Wextra", "-Wpedantic"),
	}
}

// applyGnuLike fills the traits shared by every compiler imitating the
// GNU command line: gcc, clang and icc.
func applyGnuLike(tr *traits, language string) {
	applyClike(tr, language)
	// The gnu dialect glues the system include path to its flag.
	tr.includeArgs = func(_ *Compiler, path string, system bool) []string {
		if path == "" {
			path = "."
		}
		if system {
			return []string{"-isystem" + path}
		}
		return []string{"-I" + path}
	}
	tr.picArgs = func(c *Compiler) []string {
		// PIC is always on for Windows and macOS targets.
		if c.info.Windows() || c.info.Cygwin() || c.info.Darwin() {
			return nil
		}
		return []string{"-fPIC"}
	}
	tr.pieArgs = func(*Compiler) []string { return []string{"-fPIE"} }
	tr.ltoCompileArgs = func(*Compiler, int, string) ([]string, error) {
		return []string{"-flto"}, nil
	}
	tr.sanitizerArgs = func(_ *Compiler, value string) []string {
		return gnuSanitizerArgs(value)
	}
	tr.coverageArgs = func(*Compiler) []string { return []string{"--coverage"} }
	tr.profileGenArgs = func(*Compiler) []string { return []string{"-fprofile-generate"} }
	tr.profileUseArgs = func(*Compiler) []string { return []string{"-fprofile-use"} }
	tr.warnArgs = gnuWarnArgs(language)
	tr.argumentSyntax = "gcc"
	tr.depfileSuffix = "d"
	tr.depGenArgs = func(_ *Compiler, outtarget, outfile string) []string {
		return []string{"-MD", "-MQ", outtarget, "-MF", outfile}
	}
}

// addGnuLikeBaseOptions opts a gnuish compiler into the base options
// its target platform can honor and registers assembly sources.
func addGnuLikeBaseOptions(c *Compiler) {
	c.addBaseOptions("b_pch", "b_lto", "b_pgo", "b_coverage", "b_ndebug", "b_staticpic", "b_pie")
	if !(c.info.Windows() || c.info.Cygwin() || c.info.OpenBSD()) {
		c.addBaseOptions("b_lundef")
	}
	if !(c.info.Windows() || c.info.Cygwin()) {
		c.addBaseOptions("b_asneeded")
	}
	if !c.info.Hurd() {
		c.addBaseOptions("b_sanitize")
	}
	c.canCompile["s"] = true
	c.canCompile["h"] = true
}

// allCStds and allCPPStds list every standard any compiler of the
// language understands, used to validate user input before checking
// what the detected compiler supports.
var (
	allCStds   = []string{"c89", "c90", "c99", "c11", "c17", "c18", "c2x"}
	allCPPStds = []string{
		"c++98", "c++03", "c++11", "c++14", "c++17", "c++1z", "c++2a", "c++20", "c++23",
	}
)

// stdGates holds the version each C standard became available in a
// clang or gcc lineage.
type stdGates struct {
	c17, c18, c2x string
}

func clikeCStds(version string, g stdGates) []string {
	stds := []string{"c89", "c99", "c11"}
	if verutil.AtLeast(version, g.c17) {
		stds = append(stds, "c17")
	}
	if verutil.AtLeast(version, g.c18) {
		stds = append(stds, "c18")
	}
	if verutil.AtLeast(version, g.c2x) {
		stds = append(stds, "c2x")
	}
	return stds
}

// gnuLikeOptions registers the std option (plus winlibs when targeting
// Windows) for a gcc or clang style compiler. stds lists the supported
// standards of the detected version.
func gnuLikeOptions(c *Compiler, stds []string) map[options.Key]options.Option {
	var all []string
	if c.language == "cpp" {
		all = allCPPStds
	} else {
		all = allCStds
	}
	std := options.NewStd(c.language, all)
	std.SetVersions(stds, true, false)
	opts := map[options.Key]options.Option{c.OptionKey("std"): std}
	if c.info.Windows() || c.info.Cygwin() {
		opts[c.OptionKey("winlibs")] = options.NewArray(
			c.language+"_winlibs", "Standard Win libraries to link against", GnuWinlibs)
	}
	return opts
}

func stdOptionCompileArgs(c *Compiler, s *options.Store) []string {
	if std, ok := s.String(c.OptionKey("std")); ok && std != "none" {
		return []string{"-std=" + std}
	}
	return nil
}

func winlibsOptionLinkArgs(c *Compiler, s *options.Store) []string {
	if !(c.info.Windows() || c.info.Cygwin()) {
		return nil
	}
	libs, _ := s.Strings(c.OptionKey("winlibs"))
	return slices.Clone(libs)
}

// NewGccCompiler returns a gcc for language ("c" or "cpp"). defines
// carries the builtin preprocessor defines captured during detection.
func NewGccCompiler(language string, tc Toolchain, defines map[string]string) *Compiler {
	var tr traits
	applyGnuLike(&tr, language)
	tr.optimizationArgs = gnuOptimizationArgs
	tr.coloroutArgs = func(c *Compiler, colortype string) ([]string, error) {
		// -fdiagnostics-color arrived in gcc 4.9.0.
		if !verutil.AtLeast(c.version, "4.9.0") {
			return nil, nil
		}
		return slices.Clone(gnuColorArgs[colortype]), nil
	}
	tr.ltoCompileArgs = func(_ *Compiler, threads int, _ string) ([]string, error) {
		if threads > 0 {
			return []string{fmt.Sprintf("-flto=%d", threads)}, nil
		}
		return []string{"-flto"}, nil
	}
	tr.profileUseArgs = func(*Compiler) []string {
		return []string{"-fprofile-use", "-fprofile-correction"}
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		stds := allCPPStds
		if c.language != "cpp" {
			stds = clikeCStds(c.version, stdGates{c17: "8.0.0", c18: "8.0.0", c2x: "9.0.0"})
		}
		return gnuLikeOptions(c, stds)
	}
	tr.optionCompileArgs = stdOptionCompileArgs
	tr.optionLinkArgs = winlibsOptionLinkArgs
	c := newCompiler("gcc", language, tc, tr)
	c.defines = defines
	addGnuLikeBaseOptions(c)
	c.addBaseOptions("b_colorout", "b_lto_threads")
	return c
}

// thinLTOLinkers are the linkers able to consume LLVM ThinLTO objects.
var thinLTOLinkers = map[string]bool{
	"ld64": true, "lld-link": true, "ld.lld": true, "ld.gold": true, "ld.mold": true,
}

func newClangFamily(language string, tc Toolchain, defines map[string]string, cGates stdGates, cppStds []string) *Compiler {
	var tr traits
	applyGnuLike(&tr, language)
	tr.optimizationArgs = clangOptimizationArgs
	tr.coloroutArgs = func(_ *Compiler, colortype string) ([]string, error) {
		return slices.Clone(gnuColorArgs[colortype]), nil
	}
	tr.ltoCompileArgs = func(c *Compiler, _ int, mode string) ([]string, error) {
		if mode == "thin" {
			if !thinLTOLinkers[c.LinkerID()] {
				return nil, fmt.Errorf("LLVM's ThinLTO only works with gold, lld, lld-link, ld64 or mold, not %s", c.LinkerID())
			}
			return []string{"-flto=" + mode}, nil
		}
		return []string{"-flto"}, nil
	}
	// Thread count applies when linking only; -flto-jobs=0 means auto,
	// like leaving it off.
	tr.ltoLinkArgs = func(c *Compiler, threads int, mode string) ([]string, error) {
		args, err := c.tr.ltoCompileArgs(c, threads, mode)
		if err != nil {
			return nil, err
		}
		if threads > 0 {
			if !verutil.AtLeast(c.version, "4.0.0") {
				return nil, fmt.Errorf("clang support for LTO threads requires clang >=4.0")
			}
			args = append(args, fmt.Sprintf("-flto-jobs=%d", threads))
		}
		return args, nil
	}
	tr.profileGenArgs = func(*Compiler) []string { return []string{"-fprofile-instr-generate"} }
	tr.profileUseArgs = func(*Compiler) []string {
		return []string{"-fprofile-instr-use=default.profdata"}
	}
	tr.checkArgs = func(c *Compiler, mode CompileCheckMode) []string {
		// Without this clang only warns about undefined symbols in
		// compile checks, defeating them.
		if mode == ModeCompile {
			return append(c.NoOptimizationArgs(), "-Werror=implicit-function-declaration")
		}
		return c.NoOptimizationArgs()
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		stds := cppStds
		if c.language != "cpp" {
			stds = clikeCStds(c.version, cGates)
		}
		return gnuLikeOptions(c, stds)
	}
	tr.optionCompileArgs = stdOptionCompileArgs
	tr.optionLinkArgs = winlibsOptionLinkArgs
	c := newCompiler("clang", language, tc, tr)
	c.defines = defines
	addGnuLikeBaseOptions(c)
	c.addBaseOptions("b_colorout", "b_lto_threads", "b_lto_mode")
	// Only Apple's ld knows how to fold bitcode into the output.
	if c.LinkerID() == "ld64" {
		c.addBaseOptions("b_bitcode")
	}
	return c
}

// NewClangCompiler returns a clang for language ("c" or "cpp").
func NewClangCompiler(language string, tc Toolchain, defines map[string]string) *Compiler {
	return newClangFamily(language, tc, defines,
		stdGates{c17: "6.0.0", c18: "8.0.0", c2x: "9.0.0"}, allCPPStds)
}

// NewAppleClangCompiler returns Xcode's clang. Its version numbers run
// ahead of upstream llvm, so standards appear at different versions.
func NewAppleClangCompiler(language string, tc Toolchain, defines map[string]string) *Compiler {
	return newClangFamily(language, tc, defines,
		stdGates{c17: "10.0.0", c18: "11.0.0", c2x: "11.0.0"},
		[]string{"c++98", "c++03", "c++11", "c++14", "c++17", "c++1z", "c++2a", "c++20"})
}

var intelBuildtypeArgs = map[string][]string{
	"debug":          {"-g", "-traceback"},
	"debugoptimized": {"-g", "-traceback"},
}

var intelOptimizationArgs = map[string][]string{
	"0": {"-O0"}, "g": {"-O0"}, "1": {"-O1"}, "2": {"-O2"}, "3": {"-O3"}, "s": {"-Os"},
}

// NewIntelGnuCompiler returns icc, the classic Intel compiler on
// linux and macOS. As of 19.0 it has no sanitizer, color or lto
// support, so its base option set is fixed rather than platform
// derived.
func NewIntelGnuCompiler(language string, tc Toolchain) *Compiler {
	var tr traits
	applyGnuLike(&tr, language)
	tr.buildtypeArgs = intelBuildtypeArgs
	tr.optimizationArgs = intelOptimizationArgs
	tr.profileGenArgs = func(*Compiler) []string { return []string{"-prof-gen=threadsafe"} }
	tr.profileUseArgs = func(*Compiler) []string { return []string{"-prof-use"} }
	tr.checkArgs = func(c *Compiler, mode CompileCheckMode) []string {
		// icc ignores unknown options unless told they are errors.
		return append(c.NoOptimizationArgs(),
			"-diag-error", "10006", // ignoring unknown option
			"-diag-error", "10148", // option not supported
			"-diag-error", "10155", // ignoring argument required
			"-diag-error", "10156", // ignoring not argument allowed
			"-diag-error", "10157", // ignoring argument of the wrong type
			"-diag-error", "10158", // argument must be separate
		)
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		var stds []string
		if c.language == "cpp" {
			stds = []string{"c++98", "c++03"}
			if verutil.AtLeast(c.version, "15.0.0") {
				stds = append(stds, "c++11", "c++14")
			}
			if verutil.AtLeast(c.version, "16.0.0") {
				stds = append(stds, "c++17")
			}
			if verutil.AtLeast(c.version, "19.1.0") {
				stds = append(stds, "c++2a")
			}
		} else {
			stds = []string{"c89", "c99"}
			if verutil.AtLeast(c.version, "16.0.0") {
				stds = append(stds, "c11")
			}
		}
		return gnuLikeOptions(c, stds)
	}
	tr.optionCompileArgs = stdOptionCompileArgs
	tr.optionLinkArgs = winlibsOptionLinkArgs
	c := newCompiler("intel", language, tc, tr)
	c.canCompile["s"] = true
	c.canCompile["h"] = true
	c.addBaseOptions("b_pch", "b_lundef", "b_asneeded", "b_pgo", "b_coverage",
		"b_ndebug", "b_staticpic", "b_pie")
	return c
}
