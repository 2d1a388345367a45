// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linkers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/merrors"
)

// DynamicLinker drives the link step of one toolchain. A linker's
// behavior is assembled at construction from trait tables, not from a
// type hierarchy: every New*DynamicLinker constructor picks an output
// dialect and a family of capability implementations.
type DynamicLinker struct {
	id         string
	exelist    []string
	forMachine machine.Choice
	version    string
	// prefixArg routes an argument through the compiler driver to
	// the linker, either glued ("-Wl,") or as a separate preceding
	// token ("-Xlinker"). Empty when the linker is invoked directly.
	prefixArg  string
	alwaysArgs []string
	// machineArg is the link.exe style /MACHINE: value. Empty skips
	// the flag.
	machineArg string
	// direct is false when the linker is driven by the compiler
	// rather than invoked as its own process.
	direct bool
	tr     traits
}

// traits carries a linker variant's behavior as data. A nil func
// field means the capability is absent or empty, as documented per
// accessor.
type traits struct {
	buildtypeArgs  map[string][]string
	outputArgs     func(l *DynamicLinker, out string) []string
	searchArgs     func(l *DynamicLinker, dir string) []string
	sharedLib      func(l *DynamicLinker) ([]string, error)
	sharedModule   func(l *DynamicLinker) ([]string, error)
	pieArgs        func(l *DynamicLinker) []string
	asNeededArgs   func(l *DynamicLinker) []string
	linkWholeFor   func(l *DynamicLinker, args []string) []string
	allowUndefined func(l *DynamicLinker) []string
	noUndefined    func(l *DynamicLinker) []string
	fatalWarnings  func(l *DynamicLinker) []string
	headerpadArgs  func(l *DynamicLinker) []string
	bitcodeArgs    func(l *DynamicLinker) []string
	ltoArgs        []string
	sanitizerArgs  func(l *DynamicLinker, value string) []string
	coverageArgs   func(l *DynamicLinker) []string
	exportDynamic  func(l *DynamicLinker, m machine.Info) []string
	importLibrary  func(l *DynamicLinker, implib string) []string
	threadFlags    func(l *DynamicLinker, m machine.Info) []string
	sonameArgs     func(l *DynamicLinker, m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error)
	rpathArgs      func(l *DynamicLinker, req RPathRequest) ([]string, map[string]bool)
	winSubsystem   func(l *DynamicLinker, value string) ([]string, error)
	debugfileName  func(target string) string
	debugfileArgs  func(l *DynamicLinker, target string) []string
	alwaysArgsFn   func(l *DynamicLinker) []string
	libPrefix      string
	// guiAppSubsystem routes GUIAppArgs through the Windows subsystem
	// selection. Set only on the link.exe style linkers.
	guiAppSubsystem bool
	acceptsRSP      bool
	rspSyntax       RSPSyntax
	toNative        func(args []string) []string
}

// applyPrefix routes args through the compiler driver when the linker
// is not invoked directly. A prefix ending in ',' or '=' is glued to
// each argument (-Wl,-soname); any other prefix is a separate token
// preceding it (-Xlinker -soname).
func (l *DynamicLinker) applyPrefix(args ...string) []string {
	if l.prefixArg == "" {
		return args
	}
	if strings.HasSuffix(l.prefixArg, ",") || strings.HasSuffix(l.prefixArg, "=") {
		out := make([]string, len(args))
		for i, a := range args {
			out[i] = l.prefixArg + a
		}
		return out
	}
	out := make([]string, 0, 2*len(args))
	for _, a := range args {
		out = append(out, l.prefixArg, a)
	}
	return out
}

// ID identifies the linker, e.g. "ld.bfd", "ld64", "link". The
// strings are stable and match what project files may test against.
func (l *DynamicLinker) ID() string { return l.id }

// Exelist returns the command used to invoke the linker.
func (l *DynamicLinker) Exelist() []string { return slices.Clone(l.exelist) }

// Version returns the detected tool version.
func (l *DynamicLinker) Version() string { return l.version }

// VersionString returns the id and version formatted for log lines.
func (l *DynamicLinker) VersionString() string {
	return fmt.Sprintf("(%s %s)", l.id, l.version)
}

// ForMachine returns the machine the linker produces binaries for.
func (l *DynamicLinker) ForMachine() machine.Choice { return l.forMachine }

// PrefixArg returns the prefix that smuggles arguments through the
// compiler driver, e.g. "-Wl," or "-Xlinker". Empty for linkers
// invoked directly.
func (l *DynamicLinker) PrefixArg() string { return l.prefixArg }

// MachineArg returns the link.exe style /MACHINE: value, e.g. "x64".
// Empty when the linker takes none.
func (l *DynamicLinker) MachineArg() string { return l.machineArg }

// AlwaysArgs returns arguments passed on every link.
func (l *DynamicLinker) AlwaysArgs() []string {
	if l.tr.alwaysArgsFn != nil {
		return l.tr.alwaysArgsFn(l)
	}
	return slices.Clone(l.alwaysArgs)
}

// BaseAlwaysArgs returns the configured always-on arguments without
// the family decoration AlwaysArgs applies.
func (l *DynamicLinker) BaseAlwaysArgs() []string { return slices.Clone(l.alwaysArgs) }

// AcceptsRSP reports whether the linker accepts @file response files.
func (l *DynamicLinker) AcceptsRSP() bool { return l.tr.acceptsRSP }

// RSPSyntax returns the response file dialect.
func (l *DynamicLinker) RSPSyntax() RSPSyntax { return l.tr.rspSyntax }

// LibPrefix returns the prefix glued to raw library arguments, e.g.
// "-lib=" for rlink.
func (l *DynamicLinker) LibPrefix() string { return l.tr.libPrefix }

// InvokedByCompiler reports whether the compiler drives the linker
// rather than the build invoking it directly.
func (l *DynamicLinker) InvokedByCompiler() bool { return !l.direct }

// OutputArgs returns the arguments that name the binary to produce.
func (l *DynamicLinker) OutputArgs(out string) []string {
	return l.tr.outputArgs(l, out)
}

// SearchArgs returns the arguments adding a library search directory.
func (l *DynamicLinker) SearchArgs(dir string) ([]string, error) {
	if l.tr.searchArgs == nil {
		return nil, merrors.Unsupportedf(l.id, "library search directory arguments")
	}
	return l.tr.searchArgs(l, dir), nil
}

// BuildtypeArgs returns linker arguments implied by the buildtype.
func (l *DynamicLinker) BuildtypeArgs(buildtype string) []string {
	return l.applyPrefix(l.tr.buildtypeArgs[buildtype]...)
}

// StdSharedLibArgs returns the arguments selecting shared library
// output.
func (l *DynamicLinker) StdSharedLibArgs() ([]string, error) {
	if l.tr.sharedLib == nil {
		return nil, nil
	}
	return l.tr.sharedLib(l)
}

// StdSharedModuleArgs returns the arguments selecting loadable module
// output. Most linkers treat modules as shared libraries.
func (l *DynamicLinker) StdSharedModuleArgs() ([]string, error) {
	if l.tr.sharedModule != nil {
		return l.tr.sharedModule(l)
	}
	return l.StdSharedLibArgs()
}

// PIEArgs returns the arguments selecting a position-independent
// executable.
func (l *DynamicLinker) PIEArgs() ([]string, error) {
	if l.tr.pieArgs == nil {
		return nil, merrors.Unsupportedf(l.id, "position-independent executables")
	}
	return l.tr.pieArgs(l), nil
}

// AsNeededArgs returns the arguments that drop unreferenced shared
// library dependencies.
func (l *DynamicLinker) AsNeededArgs() []string {
	if l.tr.asNeededArgs == nil {
		return nil
	}
	return l.tr.asNeededArgs(l)
}

// LinkWholeFor brackets static library arguments so every member is
// pulled in. An empty input stays empty: no dangling brackets.
func (l *DynamicLinker) LinkWholeFor(args []string) ([]string, error) {
	if l.tr.linkWholeFor == nil {
		return nil, merrors.Unsupportedf(l.id, "link_whole")
	}
	if len(args) == 0 {
		return nil, nil
	}
	return l.tr.linkWholeFor(l, args), nil
}

// AllowUndefinedArgs returns the arguments permitting undefined
// symbols in shared libraries at link time.
func (l *DynamicLinker) AllowUndefinedArgs() ([]string, error) {
	if l.tr.allowUndefined == nil {
		return nil, merrors.Unsupportedf(l.id, "allowing undefined symbols")
	}
	return l.tr.allowUndefined(l), nil
}

// NoUndefinedArgs returns the arguments making undefined symbols a
// link error.
func (l *DynamicLinker) NoUndefinedArgs() []string {
	if l.tr.noUndefined == nil {
		return nil
	}
	return l.tr.noUndefined(l)
}

// FatalWarnings returns the arguments making linker warnings errors.
func (l *DynamicLinker) FatalWarnings() []string {
	if l.tr.fatalWarnings == nil {
		return nil
	}
	return l.tr.fatalWarnings(l)
}

// HeaderpadArgs returns the Mach-O header padding arguments.
func (l *DynamicLinker) HeaderpadArgs() []string {
	if l.tr.headerpadArgs == nil {
		return nil
	}
	return l.tr.headerpadArgs(l)
}

// BitcodeArgs returns the arguments embedding a bitcode bundle.
func (l *DynamicLinker) BitcodeArgs() ([]string, error) {
	if l.tr.bitcodeArgs == nil {
		return nil, merrors.Unsupportedf(l.id, "bitcode bundles")
	}
	return l.tr.bitcodeArgs(l), nil
}

// LTOArgs returns the arguments enabling link time optimization.
func (l *DynamicLinker) LTOArgs() []string { return slices.Clone(l.tr.ltoArgs) }

// SanitizerArgs returns the link arguments for the sanitizer value of
// b_sanitize.
func (l *DynamicLinker) SanitizerArgs(value string) []string {
	if l.tr.sanitizerArgs == nil {
		return nil
	}
	return l.tr.sanitizerArgs(l, value)
}

// CoverageArgs returns the arguments enabling coverage data output.
func (l *DynamicLinker) CoverageArgs() ([]string, error) {
	if l.tr.coverageArgs == nil {
		return nil, merrors.Unsupportedf(l.id, "coverage data generation")
	}
	return l.tr.coverageArgs(l), nil
}

// ExportDynamicArgs returns the arguments exporting symbols from an
// executable for use by dlopened plugins.
func (l *DynamicLinker) ExportDynamicArgs(m machine.Info) []string {
	if l.tr.exportDynamic == nil {
		return nil
	}
	return l.tr.exportDynamic(l, m)
}

// ImportLibraryArgs returns the arguments naming the Windows import
// library to write.
func (l *DynamicLinker) ImportLibraryArgs(implib string) []string {
	if l.tr.importLibrary == nil {
		return nil
	}
	return l.tr.importLibrary(l, implib)
}

// ThreadFlags returns the link arguments for thread support.
func (l *DynamicLinker) ThreadFlags(m machine.Info) []string {
	if l.tr.threadFlags == nil {
		return nil
	}
	return l.tr.threadFlags(l, m)
}

// SonameArgs returns the arguments recording the shared library's
// runtime name. darwinVersions carries the Mach-O compatibility and
// current version, in that order.
func (l *DynamicLinker) SonameArgs(m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error) {
	if l.tr.sonameArgs == nil {
		return nil, nil
	}
	return l.tr.sonameArgs(l, m, prefix, name, suffix, soversion, darwinVersions)
}

// BuildRPathArgs returns the arguments embedding build and install
// rpaths, plus the byte-exact rpath entries installation must strip.
func (l *DynamicLinker) BuildRPathArgs(req RPathRequest) ([]string, map[string]bool) {
	if l.tr.rpathArgs == nil {
		return nil, nil
	}
	return l.tr.rpathArgs(l, req)
}

// WinSubsystemArgs returns the arguments selecting a Windows
// subsystem, e.g. "console" or "windows,6.0".
func (l *DynamicLinker) WinSubsystemArgs(value string) ([]string, error) {
	if l.tr.winSubsystem == nil {
		return nil, nil
	}
	return l.tr.winSubsystem(l, value)
}

// GUIAppArgs returns the subsystem arguments for a GUI or console
// application. Only the link.exe style linkers map this onto
// /SUBSYSTEM; elsewhere the GUI flag is handled by the compiler.
func (l *DynamicLinker) GUIAppArgs(gui bool) ([]string, error) {
	if !l.tr.guiAppSubsystem {
		return nil, nil
	}
	value := "console"
	if gui {
		value = "windows"
	}
	return l.WinSubsystemArgs(value)
}

// DebugfileName returns the name of the separate debug information
// file for target, or empty when the linker writes none.
func (l *DynamicLinker) DebugfileName(target string) string {
	if l.tr.debugfileName == nil {
		return ""
	}
	return l.tr.debugfileName(target)
}

// DebugfileArgs returns the arguments controlling where separate
// debug information is written.
func (l *DynamicLinker) DebugfileArgs(target string) []string {
	if l.tr.debugfileArgs == nil {
		return nil
	}
	return l.tr.debugfileArgs(l, target)
}

// UnixArgsToNative translates unix style arguments to the linker's
// native syntax.
func (l *DynamicLinker) UnixArgsToNative(args []string) []string {
	if l.tr.toNative == nil {
		return slices.Clone(args)
	}
	return l.tr.toNative(args)
}
