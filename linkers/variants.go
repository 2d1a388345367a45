// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linkers

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/toolsupport/msvcutil"
)

func noArgs(l *DynamicLinker) []string { return nil }

// applyPosix fills the POSIX output dialect: -o, -L and -shared.
func applyPosix(tr *traits) {
	tr.outputArgs = func(l *DynamicLinker, out string) []string {
		return []string{"-o", out}
	}
	tr.searchArgs = func(l *DynamicLinker, dir string) []string {
		return []string{"-L" + dir}
	}
	tr.sharedLib = func(l *DynamicLinker) ([]string, error) {
		return []string{"-shared"}, nil
	}
}

var gnuBuildtypeArgs = map[string][]string{
	"release": {"-O1"},
}

// applyGnuLike fills the capability set shared by GNU ld.bfd and
// ld.gold, LLVM's gnu-flavored lld, and linkers imitating them.
func applyGnuLike(tr *traits) {
	tr.buildtypeArgs = gnuBuildtypeArgs
	tr.pieArgs = func(l *DynamicLinker) []string { return []string{"-pie"} }
	tr.asNeededArgs = func(l *DynamicLinker) []string { return l.applyPrefix("--as-needed") }
	tr.linkWholeFor = func(l *DynamicLinker, args []string) []string {
		out := l.applyPrefix("--whole-archive")
		out = append(out, args...)
		return append(out, l.applyPrefix("--no-whole-archive")...)
	}
	tr.allowUndefined = func(l *DynamicLinker) []string { return l.applyPrefix("--allow-shlib-undefined") }
	tr.ltoArgs = []string{"-flto"}
	tr.sanitizerArgs = fsanitizeArgs
	tr.coverageArgs = func(l *DynamicLinker) []string { return []string{"--coverage"} }
	tr.exportDynamic = func(l *DynamicLinker, m machine.Info) []string {
		if m.Windows() || m.Cygwin() {
			return l.applyPrefix("--export-all-symbols")
		}
		return l.applyPrefix("-export-dynamic")
	}
	tr.importLibrary = func(l *DynamicLinker, implib string) []string {
		return l.applyPrefix("--out-implib=" + implib)
	}
	tr.threadFlags = func(l *DynamicLinker, m machine.Info) []string {
		if m.Haiku() {
			return nil
		}
		return []string{"-pthread"}
	}
	tr.noUndefined = func(l *DynamicLinker) []string { return l.applyPrefix("--no-undefined") }
	tr.fatalWarnings = func(l *DynamicLinker) []string { return l.applyPrefix("--fatal-warnings") }
	tr.sonameArgs = func(l *DynamicLinker, m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error) {
		if m.Windows() || m.Cygwin() {
			// The soname argument has no effect on PE/COFF.
			return nil, nil
		}
		sostr := ""
		if soversion != "" {
			sostr = "." + soversion
		}
		return l.applyPrefix(fmt.Sprintf("-soname,%s%s.%s%s", prefix, name, suffix, sostr)), nil
	}
	tr.rpathArgs = gnuRPathArgs
	tr.winSubsystem = func(l *DynamicLinker, value string) ([]string, error) {
		var arg string
		switch {
		case strings.Contains(value, "windows"):
			arg = "--subsystem,windows"
		case strings.Contains(value, "console"):
			arg = "--subsystem,console"
		default:
			return nil, fmt.Errorf("only \"windows\" and \"console\" are supported for win_subsystem with MinGW, not %q", value)
		}
		if strings.Contains(value, ",") {
			arg += ":" + strings.Split(value, ",")[1]
		}
		return l.applyPrefix(arg), nil
	}
}

func fsanitizeArgs(l *DynamicLinker, value string) []string {
	if value == "none" {
		return nil
	}
	return []string{"-fsanitize=" + value}
}

// gnuRPathArgs implements the ELF rpath layout shared by the GNU
// linkers: build-tree paths first behind $ORIGIN, the extra build
// rpath as-is, the result padded to reserve room for the install
// rpath, and absolute -rpath-link entries for transitive shared
// library resolution.
func gnuRPathArgs(l *DynamicLinker, req RPathRequest) ([]string, map[string]bool) {
	m := req.Machine
	if m.Windows() || m.Cygwin() {
		return nil, nil
	}
	if len(req.RPaths) == 0 && req.InstallRPath == "" && req.BuildRPath == "" {
		return nil, nil
	}
	var args []string
	paths := originPaths(req, "$ORIGIN")
	// The build-tree rpaths must be stripped on installation.
	// install_name_tool rejects duplicate -delete_rpath arguments,
	// so the set is deduplicated.
	remove := make(map[string]bool)
	for _, p := range paths {
		remove[p] = true
	}
	if req.BuildRPath != "" {
		if !slices.Contains(paths, req.BuildRPath) {
			paths = append(paths, req.BuildRPath)
		}
		for _, p := range strings.Split(req.BuildRPath, ":") {
			remove[p] = true
		}
	}
	if m.DragonflyBSD() || m.OpenBSD() {
		// These systems do not record the value of ORIGIN in the
		// .dynamic section by default, leaving $ORIGIN undefined at
		// runtime.
		args = append(args, l.applyPrefix("-z,origin")...)
	}
	args = append(args, l.applyPrefix("-rpath,"+padRPath(strings.Join(paths, ":"), req.InstallRPath))...)
	if m.SunOS() {
		return args, remove
	}
	// Rpaths used while linking must be absolute and are not written
	// to the binary. One option per directory: a single long option
	// trips up some compiler drivers.
	for _, p := range req.RPaths {
		args = append(args, l.applyPrefix("-rpath-link,"+buildDirJoin(req.BuildDir, p))...)
	}
	return args, remove
}

// applyApple fills the ld64 capability set.
func applyApple(tr *traits) {
	tr.asNeededArgs = func(l *DynamicLinker) []string { return l.applyPrefix("-dead_strip_dylibs") }
	tr.allowUndefined = func(l *DynamicLinker) []string { return l.applyPrefix("-undefined,dynamic_lookup") }
	tr.sharedModule = func(l *DynamicLinker) ([]string, error) {
		return append([]string{"-bundle"}, l.applyPrefix("-undefined,dynamic_lookup")...), nil
	}
	tr.pieArgs = func(l *DynamicLinker) []string { return nil }
	tr.linkWholeFor = func(l *DynamicLinker, args []string) []string {
		// ld64 takes one archive per -force_load, there is no
		// bracketed group form.
		var out []string
		for _, a := range args {
			out = append(out, l.applyPrefix("-force_load")...)
			out = append(out, a)
		}
		return out
	}
	tr.coverageArgs = func(l *DynamicLinker) []string { return []string{"--coverage"} }
	tr.sanitizerArgs = fsanitizeArgs
	tr.noUndefined = func(l *DynamicLinker) []string { return l.applyPrefix("-undefined,error") }
	tr.headerpadArgs = func(l *DynamicLinker) []string { return l.applyPrefix("-headerpad_max_install_names") }
	tr.bitcodeArgs = func(l *DynamicLinker) []string { return l.applyPrefix("-bitcode_bundle") }
	tr.fatalWarnings = func(l *DynamicLinker) []string { return l.applyPrefix("-fatal_warnings") }
	tr.sonameArgs = func(l *DynamicLinker, m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error) {
		installName := "@rpath/" + prefix + name
		if soversion != "" {
			installName += "." + soversion
		}
		installName += ".dylib"
		args := []string{"-install_name", installName}
		if len(darwinVersions) == 2 {
			args = append(args, "-compatibility_version", darwinVersions[0],
				"-current_version", darwinVersions[1])
		}
		return args, nil
	}
	tr.rpathArgs = func(l *DynamicLinker, req RPathRequest) ([]string, map[string]bool) {
		if len(req.RPaths) == 0 && req.InstallRPath == "" && req.BuildRPath == "" {
			return nil, nil
		}
		// @loader_path is the Mach-O equivalent of $ORIGIN.
		paths := originPaths(req, "@loader_path")
		if req.BuildRPath != "" && !slices.Contains(paths, req.BuildRPath) {
			paths = append(paths, req.BuildRPath)
		}
		var args []string
		for _, rp := range paths {
			args = append(args, l.applyPrefix("-rpath,"+rp)...)
		}
		return args, nil
	}
}

var vsBuildtypeArgs = map[string][]string{
	// The implicit REF and ICF optimizations are disabled by /DEBUG.
	"release": {"/OPT:REF"},
	"minsize": {"/INCREMENTAL:NO", "/OPT:REF"},
}

// applyVSLike fills the link.exe dialect.
func applyVSLike(tr *traits) {
	tr.buildtypeArgs = vsBuildtypeArgs
	tr.outputArgs = func(l *DynamicLinker, out string) []string {
		if l.machineArg == "" {
			return l.applyPrefix("/OUT:" + out)
		}
		return l.applyPrefix("/MACHINE:"+l.machineArg, "/OUT:"+out)
	}
	tr.alwaysArgsFn = func(l *DynamicLinker) []string {
		return append(l.applyPrefix("/nologo"), l.alwaysArgs...)
	}
	tr.searchArgs = func(l *DynamicLinker, dir string) []string {
		return l.applyPrefix("/LIBPATH:" + dir)
	}
	tr.sharedLib = func(l *DynamicLinker) ([]string, error) {
		return l.applyPrefix("/DLL"), nil
	}
	tr.debugfileName = func(target string) string {
		base := target
		if i := strings.LastIndexByte(target, '.'); i >= 0 {
			base = target[:i]
		}
		return base + ".pdb"
	}
	tr.debugfileArgs = func(l *DynamicLinker, target string) []string {
		return l.applyPrefix("/DEBUG", "/PDB:"+l.tr.debugfileName(target))
	}
	tr.linkWholeFor = func(l *DynamicLinker, args []string) []string {
		// Available since VS2015.
		var out []string
		for _, a := range args {
			out = append(out, l.applyPrefix("/WHOLEARCHIVE:"+a)...)
		}
		return out
	}
	tr.allowUndefined = noArgs
	tr.importLibrary = func(l *DynamicLinker, implib string) []string {
		return l.applyPrefix("/IMPLIB:" + implib)
	}
	tr.winSubsystem = func(l *DynamicLinker, value string) ([]string, error) {
		return l.applyPrefix("/SUBSYSTEM:" + strings.ToUpper(value)), nil
	}
	tr.acceptsRSP = runtime.GOOS == "windows"
	tr.rspSyntax = RSPSyntaxMSVC
	tr.toNative = msvcutil.UnixArgsToNative
}

func newDynamic(id string, exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string, tr traits) *DynamicLinker {
	if version == "" {
		version = "unknown version"
	}
	return &DynamicLinker{
		id:         id,
		exelist:    slices.Clone(exelist),
		forMachine: forMachine,
		prefixArg:  prefixArg,
		alwaysArgs: slices.Clone(alwaysArgs),
		version:    version,
		direct:     true,
		tr:         tr,
	}
}

func newGnuLike(id string, exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	var tr traits
	applyPosix(&tr)
	applyGnuLike(&tr)
	tr.acceptsRSP = runtime.GOOS == "windows"
	return newDynamic(id, exelist, forMachine, prefixArg, alwaysArgs, version, tr)
}

// NewGnuBFDDynamicLinker returns GNU ld.bfd.
func NewGnuBFDDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	l := newGnuLike("ld.bfd", exelist, forMachine, prefixArg, alwaysArgs, version)
	l.tr.acceptsRSP = true
	return l
}

// NewGnuGoldDynamicLinker returns GNU ld.gold.
func NewGnuGoldDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	l := newGnuLike("ld.gold", exelist, forMachine, prefixArg, alwaysArgs, version)
	l.tr.acceptsRSP = true
	return l
}

// NewMoldDynamicLinker returns mold, which speaks the GNU dialect.
func NewMoldDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	l := newGnuLike("ld.mold", exelist, forMachine, prefixArg, alwaysArgs, version)
	l.tr.acceptsRSP = true
	return l
}

// NewLLVMDynamicLinker returns the gnu-flavored ld.lld.
// allowShlibUndefined is probed by the detector: some lld targets
// (windows, wasm) reject --allow-shlib-undefined.
func NewLLVMDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string, allowShlibUndefined bool) *DynamicLinker {
	l := newGnuLike("ld.lld", exelist, forMachine, prefixArg, alwaysArgs, version)
	if !allowShlibUndefined {
		l.tr.allowUndefined = noArgs
	}
	return l
}

// NewQualcommLLVMDynamicLinker returns the Snapdragon LLVM ARM linker.
func NewQualcommLLVMDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string, allowShlibUndefined bool) *DynamicLinker {
	l := NewLLVMDynamicLinker(exelist, forMachine, prefixArg, alwaysArgs, version, allowShlibUndefined)
	l.id = "ld.qcld"
	return l
}

// NewWASMDynamicLinker returns Emscripten's wasm-ld.
func NewWASMDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	l := newGnuLike("ld.wasm", exelist, forMachine, prefixArg, alwaysArgs, version)
	l.tr.allowUndefined = func(l *DynamicLinker) []string {
		return []string{"-s", "ERROR_ON_UNDEFINED_SYMBOLS=0"}
	}
	l.tr.noUndefined = func(l *DynamicLinker) []string {
		return []string{"-s", "ERROR_ON_UNDEFINED_SYMBOLS=1"}
	}
	l.tr.asNeededArgs = nil
	l.tr.rpathArgs = nil
	l.tr.sonameArgs = func(l *DynamicLinker, m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error) {
		return nil, merrors.Unsupportedf(l.id, "shared libraries")
	}
	return l
}

// NewAppleDynamicLinker returns Apple's ld64.
func NewAppleDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	var tr traits
	applyPosix(&tr)
	applyApple(&tr)
	tr.acceptsRSP = runtime.GOOS == "windows"
	return newDynamic("ld64", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
}

// NewMSVCDynamicLinker returns Microsoft's link.exe. machineArg names
// the /MACHINE: target, empty to let the driver decide. direct is
// false when the compiler drives the link.
func NewMSVCDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, machineArg, version string, direct bool) *DynamicLinker {
	if len(exelist) == 0 {
		exelist = []string{"link.exe"}
	}
	var tr traits
	applyVSLike(&tr)
	l := newDynamic("link", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
	l.machineArg = machineArg
	l.direct = direct
	l.tr.guiAppSubsystem = true
	vsAlways := l.tr.alwaysArgsFn
	l.tr.alwaysArgsFn = func(l *DynamicLinker) []string {
		return append(l.applyPrefix("/nologo", "/release"), vsAlways(l)...)
	}
	return l
}

// NewClangClDynamicLinker returns lld-link.exe. An empty machineArg
// skips /MACHINE:, letting clang's target triple pick the machine.
func NewClangClDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, machineArg, version string, direct bool) *DynamicLinker {
	if len(exelist) == 0 {
		exelist = []string{"lld-link.exe"}
	}
	var tr traits
	applyVSLike(&tr)
	l := newDynamic("lld-link", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
	l.machineArg = machineArg
	l.direct = direct
	l.tr.guiAppSubsystem = true
	return l
}

// NewXilinkDynamicLinker returns Intel's xilink.exe.
func NewXilinkDynamicLinker(forMachine machine.Choice, alwaysArgs []string, version string) *DynamicLinker {
	var tr traits
	applyVSLike(&tr)
	l := newDynamic("xilink", []string{"xilink.exe"}, forMachine, "", alwaysArgs, version, tr)
	l.machineArg = "x86"
	l.tr.guiAppSubsystem = true
	return l
}

// NewOptlinkDynamicLinker returns Digital Mars' optlink, which speaks
// most of the link.exe dialect but writes no pdb files.
func NewOptlinkDynamicLinker(exelist []string, forMachine machine.Choice, version string) *DynamicLinker {
	var tr traits
	applyVSLike(&tr)
	l := newDynamic("optlink", exelist, forMachine, "", nil, version, tr)
	l.machineArg = "x86"
	l.tr.alwaysArgsFn = func(l *DynamicLinker) []string { return nil }
	l.tr.debugfileArgs = nil
	return l
}

// NewSolarisDynamicLinker returns the Sys-V linker of Solaris and
// illumos. zHelpOutput is the tool's -z help text, probed for
// -z type=pie support (Solaris 11.2 and later).
func NewSolarisDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version, zHelpOutput string) *DynamicLinker {
	var pie []string
	for _, line := range strings.Split(zHelpOutput, "\n") {
		if strings.Contains(line, "-z type") {
			if strings.Contains(line, "pie") {
				pie = []string{"-z", "type=pie"}
			}
			break
		}
	}
	var tr traits
	applyPosix(&tr)
	tr.acceptsRSP = runtime.GOOS == "windows"
	tr.linkWholeFor = func(l *DynamicLinker, args []string) []string {
		out := l.applyPrefix("--whole-archive")
		out = append(out, args...)
		return append(out, l.applyPrefix("--no-whole-archive")...)
	}
	tr.pieArgs = func(l *DynamicLinker) []string { return slices.Clone(pie) }
	tr.asNeededArgs = func(l *DynamicLinker) []string { return l.applyPrefix("-z", "ignore") }
	tr.noUndefined = func(l *DynamicLinker) []string { return []string{"-z", "defs"} }
	tr.allowUndefined = func(l *DynamicLinker) []string { return []string{"-z", "nodefs"} }
	tr.fatalWarnings = func(l *DynamicLinker) []string { return []string{"-z", "fatal-warnings"} }
	tr.sonameArgs = func(l *DynamicLinker, m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error) {
		sostr := ""
		if soversion != "" {
			sostr = "." + soversion
		}
		return l.applyPrefix(fmt.Sprintf("-soname,%s%s.%s%s", prefix, name, suffix, sostr)), nil
	}
	tr.rpathArgs = func(l *DynamicLinker, req RPathRequest) ([]string, map[string]bool) {
		if len(req.RPaths) == 0 && req.InstallRPath == "" && req.BuildRPath == "" {
			return nil, nil
		}
		paths := originPaths(req, "$ORIGIN")
		remove := make(map[string]bool)
		for _, p := range paths {
			remove[p] = true
		}
		if req.BuildRPath != "" {
			if !slices.Contains(paths, req.BuildRPath) {
				paths = append(paths, req.BuildRPath)
			}
			for _, p := range strings.Split(req.BuildRPath, ":") {
				remove[p] = true
			}
		}
		return l.applyPrefix("-rpath," + padRPath(strings.Join(paths, ":"), req.InstallRPath)), remove
	}
	return newDynamic("ld.solaris", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
}

// NewAIXDynamicLinker returns the Sys-V linker of AIX.
func NewAIXDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	var tr traits
	applyPosix(&tr)
	tr.acceptsRSP = runtime.GOOS == "windows"
	tr.alwaysArgsFn = func(l *DynamicLinker) []string {
		return append(l.applyPrefix("-bnoipath", "-bbigtoc"), l.alwaysArgs...)
	}
	tr.noUndefined = func(l *DynamicLinker) []string { return l.applyPrefix("-bernotok") }
	tr.allowUndefined = func(l *DynamicLinker) []string { return l.applyPrefix("-berok") }
	tr.threadFlags = func(l *DynamicLinker, m machine.Info) []string { return []string{"-pthread"} }
	tr.rpathArgs = func(l *DynamicLinker, req RPathRequest) ([]string, map[string]bool) {
		// AIX records the whole library path. Install rpath first,
		// then build paths, then the system path.
		var paths []string
		seen := make(map[string]bool)
		add := func(p string) {
			if p != "" && !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
		add(req.InstallRPath)
		add(req.BuildRPath)
		for _, p := range req.RPaths {
			add(buildDirJoin(req.BuildDir, p))
		}
		if len(req.SystemDirs) == 0 {
			add("/usr/lib")
			add("/lib")
		} else {
			for _, p := range req.SystemDirs {
				if dirExists(p) {
					add(p)
				}
			}
		}
		return l.applyPrefix("-blibpath:" + strings.Join(paths, ":")), nil
	}
	return newDynamic("ld.aix", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
}

// NewPGIDynamicLinker returns the PGI / NVIDIA HPC linker.
func NewPGIDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	var tr traits
	applyPosix(&tr)
	tr.acceptsRSP = runtime.GOOS == "windows"
	tr.allowUndefined = noArgs
	tr.sharedLib = func(l *DynamicLinker) ([]string, error) {
		// PGI -shared is Linux only.
		switch runtime.GOOS {
		case "windows":
			return []string{"-Bdynamic", "-Mmakedll"}, nil
		case "linux":
			return []string{"-shared"}, nil
		}
		return nil, nil
	}
	tr.rpathArgs = func(l *DynamicLinker, req RPathRequest) ([]string, map[string]bool) {
		if req.Machine.Windows() {
			return nil, nil
		}
		var args []string
		for _, p := range req.RPaths {
			args = append(args, "-R"+buildDirJoin(req.BuildDir, p))
		}
		return args, nil
	}
	return newDynamic("pgi", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
}

// NewNAGDynamicLinker returns the NAG Fortran linker, which reaches
// ld through two levels of gcc indirection. quietArgs suppresses the
// version banner on nagfor 7100 and later.
func NewNAGDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string, quietArgs []string) *DynamicLinker {
	var tr traits
	applyPosix(&tr)
	tr.acceptsRSP = runtime.GOOS == "windows"
	tr.allowUndefined = noArgs
	tr.sharedLib = func(l *DynamicLinker) ([]string, error) {
		return append(slices.Clone(quietArgs), "-Wl,-shared"), nil
	}
	tr.rpathArgs = func(l *DynamicLinker, req RPathRequest) ([]string, map[string]bool) {
		if len(req.RPaths) == 0 && req.InstallRPath == "" && req.BuildRPath == "" {
			return nil, nil
		}
		paths := originPaths(req, "$ORIGIN")
		if req.BuildRPath != "" && !slices.Contains(paths, req.BuildRPath) {
			paths = append(paths, req.BuildRPath)
		}
		var args []string
		for _, rp := range paths {
			args = append(args, l.applyPrefix("-Wl,-Wl,,-rpath,,"+rp)...)
		}
		return args, nil
	}
	return newDynamic("nag", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
}

// NewCudaDynamicLinker returns nvlink.
func NewCudaDynamicLinker(exelist []string, forMachine machine.Choice, prefixArg string, alwaysArgs []string, version string) *DynamicLinker {
	var tr traits
	applyPosix(&tr)
	// nvcc chokes on versioned shared library names unless they are
	// routed through -Xlinker=.
	tr.libPrefix = "-Xlinker="
	tr.fatalWarnings = func(l *DynamicLinker) []string { return []string{"--warning-as-error"} }
	tr.allowUndefined = noArgs
	return newDynamic("nvlink", exelist, forMachine, prefixArg, alwaysArgs, version, tr)
}

// NewArmDynamicLinker returns ARM's armlink.
func NewArmDynamicLinker(forMachine machine.Choice, version string) *DynamicLinker {
	var tr traits
	applyPosix(&tr)
	tr.allowUndefined = noArgs
	tr.sharedLib = func(l *DynamicLinker) ([]string, error) {
		return nil, merrors.Unsupportedf(l.id, "shared libraries")
	}
	return newDynamic("armlink", []string{"armlink"}, forMachine, "", nil, version, tr)
}

// NewArmClangDynamicLinker returns armlink as driven by ARM's clang
// fork, which adds symbol export and import library handling.
func NewArmClangDynamicLinker(forMachine machine.Choice, version string) *DynamicLinker {
	l := NewArmDynamicLinker(forMachine, version)
	l.tr.exportDynamic = func(l *DynamicLinker, m machine.Info) []string {
		return []string{"--export_dynamic"}
	}
	l.tr.importLibrary = func(l *DynamicLinker, implib string) []string {
		return []string{"--symdefs=" + implib}
	}
	return l
}

// NewCcrxDynamicLinker returns the Renesas CC-RX linker.
func NewCcrxDynamicLinker(forMachine machine.Choice, version string) *DynamicLinker {
	var tr traits
	tr.libPrefix = "-lib="
	tr.outputArgs = func(l *DynamicLinker, out string) []string {
		return []string{"-output=" + out}
	}
	tr.allowUndefined = noArgs
	return newDynamic("rlink", []string{"rlink.exe"}, forMachine, "", nil, version, tr)
}

// NewXc16DynamicLinker returns the Microchip XC16 linker.
func NewXc16DynamicLinker(forMachine machine.Choice, version string) *DynamicLinker {
	var tr traits
	tr.outputArgs = func(l *DynamicLinker, out string) []string {
		return []string{"-o" + out}
	}
	tr.linkWholeFor = func(l *DynamicLinker, args []string) []string {
		out := l.applyPrefix("--start-group")
		out = append(out, args...)
		return append(out, l.applyPrefix("--end-group")...)
	}
	tr.allowUndefined = noArgs
	return newDynamic("xc16-gcc", []string{"xc16-gcc"}, forMachine, "", nil, version, tr)
}

// NewCompCertDynamicLinker returns the CompCert linker, which drives
// gcc underneath.
func NewCompCertDynamicLinker(forMachine machine.Choice, version string) *DynamicLinker {
	var tr traits
	tr.outputArgs = func(l *DynamicLinker, out string) []string {
		return []string{"-o" + out}
	}
	tr.searchArgs = func(l *DynamicLinker, dir string) []string {
		return []string{"-L" + dir}
	}
	tr.linkWholeFor = func(l *DynamicLinker, args []string) []string {
		out := l.applyPrefix("-Wl,--whole-archive")
		out = append(out, args...)
		return append(out, l.applyPrefix("-Wl,--no-whole-archive")...)
	}
	tr.allowUndefined = noArgs
	tr.sonameArgs = func(l *DynamicLinker, m machine.Info, prefix, name, suffix, soversion string, darwinVersions []string) ([]string, error) {
		return nil, merrors.Unsupportedf(l.id, "shared libraries")
	}
	return newDynamic("ccomp", []string{"ccomp"}, forMachine, "", nil, version, tr)
}

func newTIDynamicLinker(id string, exelist []string, forMachine machine.Choice, version string) *DynamicLinker {
	var tr traits
	tr.libPrefix = "-l="
	tr.outputArgs = func(l *DynamicLinker, out string) []string {
		return []string{"-z", "--output_file=" + out}
	}
	tr.linkWholeFor = func(l *DynamicLinker, args []string) []string {
		out := l.applyPrefix("--start-group")
		out = append(out, args...)
		return append(out, l.applyPrefix("--end-group")...)
	}
	tr.allowUndefined = noArgs
	tr.alwaysArgsFn = func(l *DynamicLinker) []string { return nil }
	return newDynamic(id, exelist, forMachine, "", nil, version, tr)
}

// NewTIDynamicLinker returns the Texas Instruments linker.
func NewTIDynamicLinker(exelist []string, forMachine machine.Choice, version string) *DynamicLinker {
	return newTIDynamicLinker("ti", exelist, forMachine, version)
}

// NewC2000DynamicLinker returns the TI linker under its older C2000
// id, kept so project files written against it keep matching.
func NewC2000DynamicLinker(exelist []string, forMachine machine.Choice, version string) *DynamicLinker {
	return newTIDynamicLinker("cl2000", exelist, forMachine, version)
}
