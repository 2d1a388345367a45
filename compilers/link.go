// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"slices"

	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/merrors"
)

// This file is the link side of the compiler: most queries delegate to
// the dynamic linker the compiler drives. Toolchains marked isLinker
// perform the link step in the same binary and answer locally with the
// no-op baseline; toolchains with no linker at all (cython transpiles,
// it never links) report capabilities as unsupported.

// Linker returns the dynamic linker the compiler drives, or nil.
func (c *Compiler) Linker() *linkers.DynamicLinker { return c.linker }

// LinkerID identifies the dynamic linker in use. Toolchains that link
// themselves answer with their own id.
func (c *Compiler) LinkerID() string {
	if c.linker == nil {
		return c.id
	}
	return c.linker.ID()
}

// LinkerExelist returns the command invoking the linker.
func (c *Compiler) LinkerExelist() []string {
	if c.linker == nil {
		return c.Exelist()
	}
	return c.linker.Exelist()
}

// LinkerOutputArgs returns the link arguments naming the binary to
// produce.
func (c *Compiler) LinkerOutputArgs(target string) []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.OutputArgs(target)
}

// LinkerSearchArgs returns the arguments adding a library search
// directory to the link.
func (c *Compiler) LinkerSearchArgs(dir string) ([]string, error) {
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "library search directory arguments")
	}
	return c.linker.SearchArgs(dir)
}

// LinkerAlwaysArgs returns linker arguments passed on every link.
func (c *Compiler) LinkerAlwaysArgs() []string {
	if c.tr.linkerAlways != nil {
		return c.tr.linkerAlways(c)
	}
	if c.linker == nil {
		return nil
	}
	return c.linker.AlwaysArgs()
}

// LinkerLibPrefix returns the prefix glued to raw library arguments.
func (c *Compiler) LinkerLibPrefix() string {
	if c.linker == nil {
		return ""
	}
	return c.linker.LibPrefix()
}

// AcceptsRSP reports whether the link step accepts @file response
// files.
func (c *Compiler) AcceptsRSP() bool {
	if c.tr.isLinker || c.linker == nil {
		return c.tr.ownRSP
	}
	return c.linker.AcceptsRSP()
}

// RSPSyntax returns the response file dialect of the link step.
func (c *Compiler) RSPSyntax() linkers.RSPSyntax {
	if c.tr.isLinker || c.linker == nil {
		return c.tr.ownRSPSyntax
	}
	return c.linker.RSPSyntax()
}

// LTOLinkArgs returns the link arguments enabling link time
// optimization.
func (c *Compiler) LTOLinkArgs(threads int, mode string) ([]string, error) {
	if c.tr.ltoLinkArgs != nil {
		return c.tr.ltoLinkArgs(c, threads, mode)
	}
	if c.tr.isLinker {
		return nil, nil
	}
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "link time optimization")
	}
	return c.linker.LTOArgs(), nil
}

// SanitizerLinkArgs returns the link arguments for the sanitizer value
// of b_sanitize.
func (c *Compiler) SanitizerLinkArgs(value string) []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.SanitizerArgs(value)
}

// CoverageLinkArgs returns the link arguments for coverage data.
func (c *Compiler) CoverageLinkArgs() ([]string, error) {
	if c.tr.isLinker {
		return nil, nil
	}
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "coverage data generation")
	}
	return c.linker.CoverageArgs()
}

// AsNeededArgs returns the link arguments dropping unreferenced shared
// library dependencies.
func (c *Compiler) AsNeededArgs() []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.AsNeededArgs()
}

// HeaderpadArgs returns the Mach-O header padding link arguments.
func (c *Compiler) HeaderpadArgs() []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.HeaderpadArgs()
}

// BitcodeArgs returns the link arguments embedding a bitcode bundle.
func (c *Compiler) BitcodeArgs() ([]string, error) {
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "bitcode bundles")
	}
	return c.linker.BitcodeArgs()
}

// NoUndefinedLinkArgs returns the link arguments making undefined
// symbols an error.
func (c *Compiler) NoUndefinedLinkArgs() []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.NoUndefinedArgs()
}

// AllowUndefinedLinkArgs returns the link arguments permitting
// undefined symbols in shared objects.
func (c *Compiler) AllowUndefinedLinkArgs() ([]string, error) {
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "allowing undefined symbols")
	}
	return c.linker.AllowUndefinedArgs()
}

// CRTLinkArgs returns the link arguments selecting a Windows C
// runtime. Only toolchains that link without cl.exe's driver carry
// these.
func (c *Compiler) CRTLinkArgs(crtVal, buildtype string) ([]string, error) {
	if c.tr.crtLinkArgs == nil {
		return nil, merrors.Unsupportedf(c.id, "Windows CRT link arguments")
	}
	return c.tr.crtLinkArgs(c, crtVal, buildtype)
}

// PIELinkArgs returns the link arguments for a position-independent
// executable.
func (c *Compiler) PIELinkArgs() ([]string, error) {
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "position-independent executables")
	}
	return c.linker.PIEArgs()
}

// BuildtypeLinkerArgs returns linker arguments implied by the
// buildtype.
func (c *Compiler) BuildtypeLinkerArgs(buildtype string) []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.BuildtypeArgs(buildtype)
}

// StdSharedLibLinkArgs returns the arguments selecting shared library
// output. Single-binary toolchains like swiftc carry their own.
func (c *Compiler) StdSharedLibLinkArgs() ([]string, error) {
	if c.tr.stdSharedLibArgs != nil {
		return slices.Clone(c.tr.stdSharedLibArgs), nil
	}
	if c.linker == nil {
		return nil, nil
	}
	return c.linker.StdSharedLibArgs()
}

// StdSharedModuleLinkArgs returns the arguments selecting loadable
// module output.
func (c *Compiler) StdSharedModuleLinkArgs() ([]string, error) {
	if c.linker == nil {
		return nil, nil
	}
	return c.linker.StdSharedModuleArgs()
}

// LinkWholeFor brackets static library arguments so every member is
// pulled into the link.
func (c *Compiler) LinkWholeFor(args []string) ([]string, error) {
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "link_whole")
	}
	return c.linker.LinkWholeFor(args)
}

// SonameArgs returns the arguments recording a shared library's
// runtime name.
func (c *Compiler) SonameArgs(m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error) {
	if c.linker == nil {
		return nil, merrors.Unsupportedf(c.id, "shared libraries")
	}
	return c.linker.SonameArgs(m, prefix, name, suffix, soversion, darwinVersions)
}

// BuildRPathArgs returns the arguments embedding build and install
// rpaths, plus the rpath entries installation must strip.
func (c *Compiler) BuildRPathArgs(req linkers.RPathRequest) ([]string, map[string]bool) {
	if c.linker == nil {
		return nil, nil
	}
	return c.linker.BuildRPathArgs(req)
}

// ThreadLinkFlags returns the link arguments for thread support.
func (c *Compiler) ThreadLinkFlags(m machine.Info) []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.ThreadFlags(m)
}

// ImportLibraryArgs returns the arguments naming the Windows import
// library to write.
func (c *Compiler) ImportLibraryArgs(implib string) []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.ImportLibraryArgs(implib)
}

// DebugfileName returns the name of the separate debug information
// file for target, or empty.
func (c *Compiler) DebugfileName(target string) string {
	if c.linker == nil {
		return ""
	}
	return c.linker.DebugfileName(target)
}

// DebugfileArgs returns the arguments controlling where separate debug
// information is written.
func (c *Compiler) DebugfileArgs(target string) []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.DebugfileArgs(target)
}

// WinSubsystemArgs returns the arguments selecting a Windows
// subsystem.
func (c *Compiler) WinSubsystemArgs(value string) ([]string, error) {
	if c.linker == nil {
		return nil, nil
	}
	return c.linker.WinSubsystemArgs(value)
}

// GUIAppArgs returns the subsystem arguments for a GUI or console
// application.
func (c *Compiler) GUIAppArgs(gui bool) ([]string, error) {
	if c.linker == nil {
		return nil, nil
	}
	return c.linker.GUIAppArgs(gui)
}

// ExportDynamicArgs returns the arguments exporting symbols from an
// executable for dlopened plugins.
func (c *Compiler) ExportDynamicArgs(m machine.Info) []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.ExportDynamicArgs(m)
}

// FatalWarningsLinkArgs returns the arguments making linker warnings
// errors.
func (c *Compiler) FatalWarningsLinkArgs() []string {
	if c.linker == nil {
		return nil
	}
	return c.linker.FatalWarnings()
}
