// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linkers

import (
	"runtime"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/toolsupport/msvcutil"
)

// StaticLinker drives an archive tool. Instances come from the
// New*Linker constructors; differences between tools are data on the
// struct, not subtypes.
type StaticLinker struct {
	id               string
	exelist          []string
	stdArgs          []string
	stdThinArgs      []string
	alwaysArgs       []string
	linkerAlwaysArgs []string
	outputArgs       func(target string) []string
	acceptsRSP       bool
	rspSyntax        RSPSyntax
	toNative         func(args []string) []string
}

// ID identifies the archiver, e.g. "ar", "lib", "armar". The strings
// are stable and match what project files may test against.
func (l *StaticLinker) ID() string { return l.id }

// Exelist returns the command used to invoke the archiver.
func (l *StaticLinker) Exelist() []string { return slices.Clone(l.exelist) }

// OutputArgs returns the arguments that name the archive to produce.
func (l *StaticLinker) OutputArgs(target string) []string {
	if l.outputArgs == nil {
		return []string{target}
	}
	return l.outputArgs(target)
}

// StdLinkArgs returns the standard archiving mode arguments. thin
// selects a thin archive where the tool supports one.
func (l *StaticLinker) StdLinkArgs(thin bool) []string {
	if thin && len(l.stdThinArgs) > 0 {
		return slices.Clone(l.stdThinArgs)
	}
	return slices.Clone(l.stdArgs)
}

// AlwaysArgs returns arguments passed on every invocation.
func (l *StaticLinker) AlwaysArgs() []string { return slices.Clone(l.alwaysArgs) }

// LinkerAlwaysArgs returns arguments passed on every archive step.
func (l *StaticLinker) LinkerAlwaysArgs() []string { return slices.Clone(l.linkerAlwaysArgs) }

// CanAcceptRSP reports whether the tool accepts @file response files.
func (l *StaticLinker) CanAcceptRSP() bool { return l.acceptsRSP }

// RSPSyntax returns the response file dialect. Only meaningful when
// CanAcceptRSP is true.
func (l *StaticLinker) RSPSyntax() RSPSyntax { return l.rspSyntax }

// UnixArgsToNative translates unix style arguments to the tool's
// native syntax.
func (l *StaticLinker) UnixArgsToNative(args []string) []string {
	if l.toNative == nil {
		return slices.Clone(args)
	}
	return l.toNative(args)
}

// NewArLinker returns the linker for an ar style archiver. helpOutput
// is the tool's own usage text (from running it with -h), probed for
// capabilities that vary between ar builds: deterministic mode [D],
// thin archives [T], and @file response files.
func NewArLinker(exelist []string, helpOutput string) *StaticLinker {
	stdArgs := "csr"
	thin := ""
	if strings.Contains(helpOutput, "[D]") {
		stdArgs += "D"
	}
	if strings.Contains(helpOutput, "[T]") {
		thin = "T"
	}
	l := &StaticLinker{
		id:         "ar",
		exelist:    slices.Clone(exelist),
		stdArgs:    []string{stdArgs},
		acceptsRSP: strings.Contains(helpOutput, "@<"),
		rspSyntax:  RSPSyntaxGCC,
	}
	// Thin archives produce members macOS ld rejects as being built
	// for an unknown file format, so stay with regular archives there.
	if thin != "" && runtime.GOOS != "darwin" {
		l.stdThinArgs = []string{stdArgs + thin}
	}
	return l
}

// NewArmarLinker returns the linker for ARM's armar, which cannot
// accept @file response files.
func NewArmarLinker(exelist []string) *StaticLinker {
	return &StaticLinker{
		id:        "armar",
		exelist:   slices.Clone(exelist),
		stdArgs:   []string{"-csr"},
		rspSyntax: RSPSyntaxGCC,
	}
}

// NewAIXArLinker returns the linker for AIX ar, forced to accept
// objects of any architecture.
func NewAIXArLinker(exelist []string) *StaticLinker {
	return &StaticLinker{
		id:        "aixar",
		exelist:   slices.Clone(exelist),
		stdArgs:   []string{"-csr", "-Xany"},
		rspSyntax: RSPSyntaxGCC,
	}
}

func newVisualStudioLikeLinker(id string, exelist []string, machineArg string) *StaticLinker {
	return &StaticLinker{
		id:               id,
		exelist:          slices.Clone(exelist),
		alwaysArgs:       []string{"/NOLOGO"},
		linkerAlwaysArgs: []string{"/NOLOGO"},
		outputArgs: func(target string) []string {
			var args []string
			if machineArg != "" {
				args = append(args, "/MACHINE:"+machineArg)
			}
			return append(args, "/OUT:"+target)
		},
		acceptsRSP: runtime.GOOS == "windows",
		rspSyntax:  RSPSyntaxMSVC,
		toNative:   msvcutil.UnixArgsToNative,
	}
}

// NewVisualStudioLinker returns the linker for Microsoft's lib.exe.
func NewVisualStudioLinker(exelist []string, machineArg string) *StaticLinker {
	return newVisualStudioLikeLinker("lib", exelist, machineArg)
}

// NewIntelVisualStudioLinker returns the linker for Intel's xilib.
func NewIntelVisualStudioLinker(exelist []string, machineArg string) *StaticLinker {
	return newVisualStudioLikeLinker("xilib", exelist, machineArg)
}

// NewDLinker returns the static linker of a D compiler driver, which
// archives through the compiler itself.
func NewDLinker(exelist []string, arch string, syntax RSPSyntax) *StaticLinker {
	var always []string
	if runtime.GOOS == "windows" {
		switch {
		case arch == "x86_64":
			always = []string{"-m64"}
		case arch == "x86_mscoff" && exelist[0] == "dmd":
			always = []string{"-m32mscoff"}
		default:
			always = []string{"-m32"}
		}
	}
	return &StaticLinker{
		id:               exelist[0],
		exelist:          slices.Clone(exelist),
		stdArgs:          []string{"-lib"},
		linkerAlwaysArgs: always,
		outputArgs: func(target string) []string {
			return []string{"-of=" + target}
		},
		acceptsRSP: runtime.GOOS == "windows",
		rspSyntax:  syntax,
	}
}

// NewCcrxLinker returns the linker for the Renesas CC-RX archiver.
func NewCcrxLinker(exelist []string) *StaticLinker {
	return &StaticLinker{
		id:               "rlink",
		exelist:          slices.Clone(exelist),
		linkerAlwaysArgs: []string{"-nologo", "-form=library"},
		outputArgs: func(target string) []string {
			return []string{"-output=" + target}
		},
	}
}

// NewXc16Linker returns the linker for the Microchip XC16 archiver.
func NewXc16Linker(exelist []string) *StaticLinker {
	return &StaticLinker{
		id:               "xc16-ar",
		exelist:          slices.Clone(exelist),
		linkerAlwaysArgs: []string{"rcs"},
	}
}

// NewCompCertLinker returns the linker for the CompCert archiver.
func NewCompCertLinker(exelist []string) *StaticLinker {
	return &StaticLinker{
		id:      "ccomp",
		exelist: slices.Clone(exelist),
		outputArgs: func(target string) []string {
			return []string{"-o" + target}
		},
	}
}

// NewTILinker returns the linker for the Texas Instruments archiver.
func NewTILinker(exelist []string) *StaticLinker {
	return &StaticLinker{
		id:               "ti-ar",
		exelist:          slices.Clone(exelist),
		linkerAlwaysArgs: []string{"-r"},
	}
}

// NewC2000Linker returns the TI archiver under its older C2000 id,
// kept so project files written against it keep matching.
func NewC2000Linker(exelist []string) *StaticLinker {
	l := NewTILinker(exelist)
	l.id = "ar2000"
	return l
}

// NewPGIStaticLinker returns the linker for the PGI / NVIDIA HPC
// archiver.
func NewPGIStaticLinker(exelist []string) *StaticLinker {
	return &StaticLinker{
		id:         "ar",
		exelist:    slices.Clone(exelist),
		stdArgs:    []string{"-r"},
		acceptsRSP: runtime.GOOS == "windows",
	}
}
