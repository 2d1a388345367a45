// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/arglist"
	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/options"
)

// Toolchain carries the detected identity every compiler constructor
// needs: the command, its version, the machine it targets and the
// dynamic linker it drives. Linker is nil for toolchains that link
// themselves or never link.
type Toolchain struct {
	Exelist     []string
	Version     string
	FullVersion string
	ForMachine  machine.Choice
	Info        machine.Info
	IsCross     bool
	Linker      *linkers.DynamicLinker
}

// Compiler drives one language's compiler. Like linkers.DynamicLinker,
// a compiler's behavior is assembled at construction from trait
// tables: every New*Compiler constructor picks a family of capability
// implementations and fills in the identity.
type Compiler struct {
	id          string
	language    string
	exelist     []string
	version     string
	fullVersion string
	forMachine  machine.Choice
	info        machine.Info
	isCross     bool
	linker      *linkers.DynamicLinker
	// invokesLinker is false when the compiler never drives the link
	// step itself (cl.exe), so compile flags from the environment must
	// not leak into link lines.
	invokesLinker bool
	// baseOptions names the b_* options this toolchain opts into.
	baseOptions map[string]bool
	// defines holds builtin preprocessor defines captured during
	// detection, when the toolchain publishes them.
	defines map[string]string

	canCompile    map[string]bool
	defaultSuffix string

	tr traits
}

// traits carries a compiler variant's behavior as data. A nil func
// field means the capability is absent, as documented per accessor.
type traits struct {
	alwaysArgs     []string
	outputArgs     func(c *Compiler, target string) []string
	compileOnly    []string
	preprocessOnly []string
	includeArgs    func(c *Compiler, path string, system bool) []string

	optimizationArgs map[string][]string
	debugArgs        map[bool][]string
	buildtypeArgs    map[string][]string

	picArgs        func(c *Compiler) []string
	pieArgs        func(c *Compiler) []string
	ltoCompileArgs func(c *Compiler, threads int, mode string) ([]string, error)
	ltoLinkArgs    func(c *Compiler, threads int, mode string) ([]string, error)
	sanitizerArgs  func(c *Compiler, value string) []string
	coloroutArgs   func(c *Compiler, colortype string) ([]string, error)
	coverageArgs   func(c *Compiler) []string
	profileGenArgs func(c *Compiler) []string
	profileUseArgs func(c *Compiler) []string
	disableAssert  func(c *Compiler) []string
	crtCompileArgs func(c *Compiler, crtVal, buildtype string) ([]string, error)
	crtLinkArgs    func(c *Compiler, crtVal, buildtype string) ([]string, error)

	warnArgs         map[string][]string
	werrorArgs       []string
	noOptimization   []string
	checkArgs        func(c *Compiler, mode CompileCheckMode) []string
	noStdincArgs     []string
	stdExeLinkArgs   []string
	stdSharedLibArgs []string
	threadFlags      func(c *Compiler, m machine.Info) []string

	// isLinker marks toolchains that perform the link step in the
	// same binary, such as csc. Linker queries answer locally instead
	// of delegating.
	isLinker      bool
	ownRSP        bool
	ownRSPSyntax  linkers.RSPSyntax
	linkerAlways  func(c *Compiler) []string
	useLinkerArgs func(c *Compiler, linker string) []string
	// noStaticLinker marks toolchains that archive their own static
	// libraries, so detection skips probing for ar.
	noStaticLinker bool

	argumentSyntax string
	argPolicy      *arglist.Policy
	toNative       func(args []string) []string
	fromNative     func(args []string) []string
	absolutePaths  func(c *Compiler, args []string, buildDir string) []string

	depfileSuffix string
	depGenArgs    func(c *Compiler, outtarget, outfile string) []string

	compilerOptions   func(c *Compiler) map[options.Key]options.Option
	optionCompileArgs func(c *Compiler, s *options.Store) []string
	optionLinkArgs    func(c *Compiler, s *options.Store) []string

	sanityCode   string
	sanityRunner string
	// sanityCompileOnly marks transpilers whose sanity check cannot
	// produce a runnable program.
	sanityCompileOnly bool
}

func newCompiler(id, language string, tc Toolchain, tr traits) *Compiler {
	suffixes := LangSuffixes[language]
	if len(suffixes) == 0 {
		panic(fmt.Sprintf("compilers: unknown language %q", language))
	}
	can := make(map[string]bool, len(suffixes))
	for _, s := range suffixes {
		can[s] = true
	}
	version := tc.Version
	if version == "" {
		version = "unknown version"
	}
	return &Compiler{
		id:            id,
		language:      language,
		exelist:       slices.Clone(tc.Exelist),
		version:       version,
		fullVersion:   tc.FullVersion,
		forMachine:    tc.ForMachine,
		info:          tc.Info,
		isCross:       tc.IsCross,
		linker:        tc.Linker,
		invokesLinker: true,
		baseOptions:   map[string]bool{},
		canCompile:    can,
		defaultSuffix: suffixes[0],
		tr:            tr,
	}
}

func (c *Compiler) addBaseOptions(names ...string) {
	for _, n := range names {
		c.baseOptions[n] = true
	}
}

// ID identifies the toolchain, e.g. "gcc", "clang-cl", "intel". The
// strings are stable and match what project files may test against.
func (c *Compiler) ID() string { return c.id }

// Language returns the language the compiler consumes, e.g. "c".
func (c *Compiler) Language() string { return c.language }

// displayLanguages maps language names to their spelled out form
// where capitalization alone is not enough.
var displayLanguages = map[string]string{
	"cpp": "C++", "cs": "C sharp", "objc": "Objective-C",
	"objcpp": "Objective-C++",
}

// DisplayLanguage returns the language name for messages.
func (c *Compiler) DisplayLanguage() string {
	if d, ok := displayLanguages[c.language]; ok {
		return d
	}
	return strings.ToUpper(c.language[:1]) + c.language[1:]
}

// Exelist returns the command used to invoke the compiler.
func (c *Compiler) Exelist() []string { return slices.Clone(c.exelist) }

// NameString returns the command formatted for messages.
func (c *Compiler) NameString() string { return strings.Join(c.exelist, " ") }

// Version returns the detected tool version.
func (c *Compiler) Version() string { return c.version }

// FullVersion returns the raw version banner, when one was captured.
func (c *Compiler) FullVersion() string { return c.fullVersion }

// VersionString returns the id and version formatted for log lines.
func (c *Compiler) VersionString() string {
	details := []string{c.id, c.version}
	if c.fullVersion != "" {
		details = append(details, fmt.Sprintf("%q", c.fullVersion))
	}
	return "(" + strings.Join(details, " ") + ")"
}

// ForMachine returns the machine the compiler produces objects for.
func (c *Compiler) ForMachine() machine.Choice { return c.forMachine }

// Info returns the machine information of the target.
func (c *Compiler) Info() machine.Info { return c.info }

// IsCross reports whether the compiler targets a machine other than
// the one running the build.
func (c *Compiler) IsCross() bool { return c.isCross }

// DefaultSuffix returns the suffix used for scratch sources.
func (c *Compiler) DefaultSuffix() string { return c.defaultSuffix }

// InvokesLinker reports whether the compiler drives the link step, so
// environment compile flags also apply when linking.
func (c *Compiler) InvokesLinker() bool { return c.invokesLinker }

// NeedsStaticLinker reports whether static libraries built from this
// compiler's objects take a separate archiver.
func (c *Compiler) NeedsStaticLinker() bool { return !c.tr.noStaticLinker }

// HasBaseOption reports whether the toolchain opts into the named b_*
// option.
func (c *Compiler) HasBaseOption(name string) bool { return c.baseOptions[name] }

// BaseOptionNames returns the b_* options the toolchain opts into,
// sorted.
func (c *Compiler) BaseOptionNames() []string {
	names := make([]string, 0, len(c.baseOptions))
	for n := range c.baseOptions {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Defines returns the builtin preprocessor defines captured during
// detection.
func (c *Compiler) Defines() map[string]string {
	return maps.Clone(c.defines)
}

// HasBuiltinDefine reports whether the toolchain publishes the named
// builtin preprocessor define.
func (c *Compiler) HasBuiltinDefine(name string) bool {
	_, ok := c.defines[name]
	return ok
}

// BuiltinDefine returns the value of a builtin preprocessor define.
func (c *Compiler) BuiltinDefine(name string) (string, bool) {
	v, ok := c.defines[name]
	return v, ok
}

// CanCompile reports whether the compiler accepts src, judged by its
// suffix alone.
func (c *Compiler) CanCompile(src string) bool {
	suffix := fileSuffix(src)
	return suffix != "" && c.canCompile[suffix]
}

// NewArgs returns an argument list with the compiler's dedup policy.
func (c *Compiler) NewArgs(args ...string) *arglist.Args {
	return arglist.New(c.tr.argPolicy, args...)
}

// AlwaysArgs returns arguments passed on every invocation.
func (c *Compiler) AlwaysArgs() []string { return slices.Clone(c.tr.alwaysArgs) }

// OutputArgs returns the arguments naming the file to produce.
func (c *Compiler) OutputArgs(target string) []string {
	return c.tr.outputArgs(c, target)
}

// CompileOnlyArgs returns the arguments stopping before the link step.
func (c *Compiler) CompileOnlyArgs() []string { return slices.Clone(c.tr.compileOnly) }

// PreprocessOnlyArgs returns the arguments stopping after the
// preprocessor.
func (c *Compiler) PreprocessOnlyArgs() ([]string, error) {
	if c.tr.preprocessOnly == nil {
		return nil, merrors.Unsupportedf(c.id, "a preprocessor")
	}
	return slices.Clone(c.tr.preprocessOnly), nil
}

// ModeArgs returns the always args plus the arguments selecting how
// far mode drives the toolchain.
func (c *Compiler) ModeArgs(mode CompileCheckMode) ([]string, error) {
	args := c.AlwaysArgs()
	switch mode {
	case ModeCompile:
		args = append(args, c.CompileOnlyArgs()...)
	case ModePreprocess:
		pp, err := c.PreprocessOnlyArgs()
		if err != nil {
			return nil, err
		}
		args = append(args, pp...)
	}
	return args, nil
}

// IncludeArgs returns the arguments adding a header search directory.
// A system directory is marked so its headers do not produce warnings.
func (c *Compiler) IncludeArgs(path string, system bool) []string {
	if c.tr.includeArgs == nil {
		return nil
	}
	return c.tr.includeArgs(c, path, system)
}

// OptimizationArgs returns the arguments for an optimization level.
// Levels a toolchain leaves to its defaults yield nothing.
func (c *Compiler) OptimizationArgs(level string) []string {
	return slices.Clone(c.tr.optimizationArgs[level])
}

// NoOptimizationArgs returns the arguments disabling all optimization,
// used for compile checks so dead code is not eliminated.
func (c *Compiler) NoOptimizationArgs() []string { return slices.Clone(c.tr.noOptimization) }

// CompilerCheckArgs returns extra arguments applied to probe
// invocations for mode. The default turns optimization off so checks
// are not defeated by dead code elimination; some toolchains add
// diagnostics that make unknown options hard errors.
func (c *Compiler) CompilerCheckArgs(mode CompileCheckMode) []string {
	if c.tr.checkArgs != nil {
		return c.tr.checkArgs(c, mode)
	}
	return c.NoOptimizationArgs()
}

// DebugArgs returns the arguments controlling debug information.
// Toolchains without a flag for it yield nothing.
func (c *Compiler) DebugArgs(debug bool) []string {
	return slices.Clone(c.tr.debugArgs[debug])
}

// BuildtypeArgs returns compiler arguments implied by the buildtype.
func (c *Compiler) BuildtypeArgs(buildtype string) []string {
	return slices.Clone(c.tr.buildtypeArgs[buildtype])
}

// PICArgs returns the arguments selecting position-independent code.
func (c *Compiler) PICArgs() ([]string, error) {
	if c.tr.picArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "position-independent code")
	}
	return c.tr.picArgs(c), nil
}

// PIEArgs returns the compile arguments for a position-independent
// executable.
func (c *Compiler) PIEArgs() ([]string, error) {
	if c.tr.pieArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "position-independent executables")
	}
	return c.tr.pieArgs(c), nil
}

// LTOCompileArgs returns the compile arguments enabling link time
// optimization. threads 0 leaves the job count to the toolchain; mode
// is "default" or "thin".
func (c *Compiler) LTOCompileArgs(threads int, mode string) ([]string, error) {
	if c.tr.ltoCompileArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "link time optimization")
	}
	return c.tr.ltoCompileArgs(c, threads, mode)
}

// SanitizerCompileArgs returns the compile arguments for the sanitizer
// value of b_sanitize.
func (c *Compiler) SanitizerCompileArgs(value string) ([]string, error) {
	if c.tr.sanitizerArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "sanitizers")
	}
	return c.tr.sanitizerArgs(c, value), nil
}

// ColoroutArgs returns the arguments controlling colored diagnostics.
func (c *Compiler) ColoroutArgs(colortype string) ([]string, error) {
	if c.tr.coloroutArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "colored diagnostics")
	}
	return c.tr.coloroutArgs(c, colortype)
}

// CoverageArgs returns the compile arguments enabling coverage data.
func (c *Compiler) CoverageArgs() ([]string, error) {
	if c.tr.coverageArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "coverage data generation")
	}
	return c.tr.coverageArgs(c), nil
}

// ProfileGenerateArgs returns the arguments instrumenting for profile
// guided optimization.
func (c *Compiler) ProfileGenerateArgs() ([]string, error) {
	if c.tr.profileGenArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "profile guided optimization")
	}
	return c.tr.profileGenArgs(c), nil
}

// ProfileUseArgs returns the arguments consuming recorded profiles.
func (c *Compiler) ProfileUseArgs() ([]string, error) {
	if c.tr.profileUseArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "profile guided optimization")
	}
	return c.tr.profileUseArgs(c), nil
}

// DisableAssertArgs returns the arguments compiling asserts out.
func (c *Compiler) DisableAssertArgs() []string {
	if c.tr.disableAssert == nil {
		return nil
	}
	return c.tr.disableAssert(c)
}

// CRTCompileArgs returns the compile arguments selecting a Windows C
// runtime. from_buildtype and static_from_buildtype values resolve
// against buildtype.
func (c *Compiler) CRTCompileArgs(crtVal, buildtype string) ([]string, error) {
	if c.tr.crtCompileArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "Windows CRT selection")
	}
	return c.tr.crtCompileArgs(c, crtVal, buildtype)
}

// WarnArgs returns the arguments for a warning level ("0" to "3").
func (c *Compiler) WarnArgs(level string) []string {
	return slices.Clone(c.tr.warnArgs[level])
}

// NoWarnArgs returns the arguments disabling all warnings.
func (c *Compiler) NoWarnArgs() []string { return c.WarnArgs("0") }

// WerrorArgs returns the arguments turning warnings into errors.
func (c *Compiler) WerrorArgs() []string { return slices.Clone(c.tr.werrorArgs) }

// NoStdincArgs returns the arguments dropping the default header
// search path.
func (c *Compiler) NoStdincArgs() []string { return slices.Clone(c.tr.noStdincArgs) }

// ThreadFlags returns the compile arguments for thread support.
func (c *Compiler) ThreadFlags(m machine.Info) []string {
	if c.tr.threadFlags == nil {
		return nil
	}
	return c.tr.threadFlags(c, m)
}

// ArgumentSyntax names the command line family the compiler imitates:
// "gcc", "msvc" or "other".
func (c *Compiler) ArgumentSyntax() string {
	if c.tr.argumentSyntax == "" {
		return "other"
	}
	return c.tr.argumentSyntax
}

// LargefileArgs returns the arguments enabling transparent large file
// support for 32 bit unix systems. Darwin is 64 bit only and MSVC has
// no transparent mode, so both yield nothing.
func (c *Compiler) LargefileArgs() []string {
	if c.ArgumentSyntax() == "msvc" || c.info.Darwin() {
		return nil
	}
	return []string{"-D_FILE_OFFSET_BITS=64"}
}

// UnixArgsToNative translates unix style arguments to the compiler's
// native syntax.
func (c *Compiler) UnixArgsToNative(args []string) []string {
	if c.tr.toNative == nil {
		return slices.Clone(args)
	}
	return c.tr.toNative(args)
}

// NativeArgsToUnix translates native arguments back to unix style.
func (c *Compiler) NativeArgsToUnix(args []string) []string {
	if c.tr.fromNative == nil {
		return slices.Clone(args)
	}
	return c.tr.fromNative(args)
}

// ComputeParametersWithAbsolutePaths rewrites relative search paths in
// args (-I, -L and family equivalents) against buildDir.
func (c *Compiler) ComputeParametersWithAbsolutePaths(args []string, buildDir string) ([]string, error) {
	if c.tr.absolutePaths == nil {
		return nil, merrors.Unsupportedf(c.id, "compute_parameters_with_absolute_paths")
	}
	return c.tr.absolutePaths(c, args, buildDir), nil
}

// DepfileSuffix returns the suffix of generated dependency files.
func (c *Compiler) DepfileSuffix() (string, error) {
	if c.tr.depfileSuffix == "" {
		return "", merrors.Unsupportedf(c.id, "dependency files")
	}
	return c.tr.depfileSuffix, nil
}

// DependencyGenArgs returns the arguments writing a dependency file
// for outtarget to outfile.
func (c *Compiler) DependencyGenArgs(outtarget, outfile string) []string {
	if c.tr.depGenArgs == nil {
		return nil
	}
	return c.tr.depGenArgs(c, outtarget, outfile)
}

// UseLinkerArgs returns the arguments selecting a non-default linker
// by name, e.g. "gold".
func (c *Compiler) UseLinkerArgs(linker string) []string {
	if c.tr.useLinkerArgs == nil {
		return nil
	}
	return c.tr.useLinkerArgs(c, linker)
}

// StdExeLinkArgs returns arguments required to link an executable.
func (c *Compiler) StdExeLinkArgs() []string { return slices.Clone(c.tr.stdExeLinkArgs) }

// Options returns the per-language options this compiler registers,
// such as c_std or cython_language.
func (c *Compiler) Options() map[options.Key]options.Option {
	if c.tr.compilerOptions == nil {
		return nil
	}
	return c.tr.compilerOptions(c)
}

// OptionKey returns the compiler's option key for name, e.g. "std" of
// a C compiler for the host machine is c_std.
func (c *Compiler) OptionKey(name string) options.Key {
	return options.Key{Name: c.language + "_" + name, Machine: c.forMachine}
}

// OptionCompileArgs returns compile arguments derived from the
// compiler's own options in s.
func (c *Compiler) OptionCompileArgs(s *options.Store) []string {
	if c.tr.optionCompileArgs == nil {
		return nil
	}
	return c.tr.optionCompileArgs(c, s)
}

// OptionLinkArgs returns link arguments derived from the compiler's
// own options in s.
func (c *Compiler) OptionLinkArgs(s *options.Store) []string {
	if c.tr.optionLinkArgs == nil {
		return nil
	}
	return c.tr.optionLinkArgs(c, s)
}
