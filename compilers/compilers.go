// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compilers implements the compiler abstraction: per-toolchain
// argument derivation, capability queries and scratch-build probing.
//
// A compiler's behavior is assembled at construction from trait tables,
// the same way package linkers builds its variants. The closed set of
// concrete toolchains is spread over the per-family files (gnu.go,
// msvc.go, rust.go, ...); this file holds the tables shared by all of
// them: language/suffix classification, environment variable names, and
// the argument tables more than one family reads.
package compilers

import (
	"regexp"
	"runtime"
	"slices"
	"strings"
)

// LangSuffixes maps a language to the file suffixes that are always in
// that language. Headers are absent: a .h could be C, C++ or ObjC.
var LangSuffixes = map[string][]string{
	"c":       {"c"},
	"cpp":     {"cpp", "cc", "cxx", "c++", "hh", "hpp", "ipp", "hxx", "ino", "ixx", "C"},
	"cuda":    {"cu"},
	"fortran": {"f90", "f95", "f03", "f08", "f", "for", "ftn", "fpp"},
	"d":       {"d", "di"},
	"objc":    {"m"},
	"objcpp":  {"mm"},
	"rust":    {"rs"},
	"vala":    {"vala", "vapi", "gs"},
	"cs":      {"cs"},
	"swift":   {"swift"},
	"java":    {"java"},
	"cython":  {"pyx"},
}

var headerSuffixes = []string{"h", "hh", "hpp", "hxx", "H", "ipp", "moc", "vapi", "di"}

var objSuffixes = []string{"o", "obj", "res"}

// libSuffixes includes "js": emscripten treats .js files as libraries.
var libSuffixes = []string{"a", "lib", "dll", "dll.a", "dylib", "so", "js"}

// CLibLangs are the languages that by default consume and produce
// libraries following the C ABI; they can generally be mixed freely.
var CLibLangs = []string{"objcpp", "cpp", "objc", "c", "fortran"}

// CLinkLangs are the languages whose objects can be linked with C code
// directly by the linker.
var CLinkLangs = append([]string{"d", "cuda"}, CLibLangs...)

// clinkSuffixes are the source suffixes of all C-linkable languages,
// plus headers, LLVM IR and assembly.
var clinkSuffixes = func() []string {
	var out []string
	for _, l := range append(slices.Clone(CLinkLangs), "vala") {
		out = append(out, LangSuffixes[l]...)
	}
	return append(out, "h", "ll", "s")
}()

// SortClinkLangs is the sort key ordering languages according to
// reversed CLinkLangs with unknown languages last. It makes C win over
// C++ for sources both can compile, such as assembly.
func SortClinkLangs(lang string) int {
	i := slices.Index(CLinkLangs, lang)
	if i < 0 {
		return 1
	}
	return -i
}

// CFLAGSMapping names the environment variable carrying compile
// arguments for each language.
var CFLAGSMapping = map[string]string{
	"c":       "CFLAGS",
	"cpp":     "CXXFLAGS",
	"cuda":    "CUFLAGS",
	"objc":    "OBJCFLAGS",
	"objcpp":  "OBJCXXFLAGS",
	"fortran": "FFLAGS",
	"d":       "DFLAGS",
	"vala":    "VALAFLAGS",
	"rust":    "RUSTFLAGS",
	"cython":  "CYTHONFLAGS",
}

// LanguagesUsingLdflags are the languages whose link step honors
// LDFLAGS.
var LanguagesUsingLdflags = map[string]bool{
	"objcpp": true, "cpp": true, "objc": true, "c": true,
	"fortran": true, "d": true, "cuda": true,
}

// LanguagesUsingCppflags are the languages whose compile step honors
// CPPFLAGS.
var LanguagesUsingCppflags = map[string]bool{
	"c": true, "cpp": true, "objc": true, "objcpp": true,
}

var soRegexp = regexp.MustCompile(`.*\.so(\.[0-9]+)?(\.[0-9]+)?(\.[0-9]+)?$`)

// caseSensitiveFS reports whether file names compare case-sensitively
// on this system. It gates whether ".C" can mean C++.
var caseSensitiveFS = runtime.GOOS != "windows" && runtime.GOOS != "darwin"

// fileSuffix returns the suffix used for language membership tests.
// ".C" stays uppercase where the filesystem can tell it apart from
// ".c"; all other suffixes compare lowercase.
func fileSuffix(fname string) string {
	i := strings.LastIndexByte(fname, '.')
	if i < 0 {
		return ""
	}
	suffix := fname[i+1:]
	if suffix == "C" && caseSensitiveFS {
		return suffix
	}
	return strings.ToLower(suffix)
}

// IsHeader reports whether fname is a header file.
func IsHeader(fname string) bool {
	i := strings.LastIndexByte(fname, '.')
	return i >= 0 && slices.Contains(headerSuffixes, fname[i+1:])
}

// IsSource reports whether fname is a source of a C-linkable language.
func IsSource(fname string) bool {
	return slices.Contains(clinkSuffixes, strings.ToLower(fileSuffix(fname)))
}

// IsAssembly reports whether fname is an assembly source.
func IsAssembly(fname string) bool {
	return strings.ToLower(fileSuffix(fname)) == "s"
}

// IsLLVMIR reports whether fname is LLVM IR.
func IsLLVMIR(fname string) bool {
	return fileSuffix(fname) == "ll"
}

// IsObject reports whether fname is an object file.
func IsObject(fname string) bool {
	i := strings.LastIndexByte(fname, '.')
	return i >= 0 && slices.Contains(objSuffixes, fname[i+1:])
}

// IsLibrary reports whether fname is a library, including versioned
// shared libraries such as libfoo.so.1.2.
func IsLibrary(fname string) bool {
	if soRegexp.MatchString(fname) {
		return true
	}
	i := strings.LastIndexByte(fname, '.')
	return i >= 0 && slices.Contains(libSuffixes, fname[i+1:])
}

// IsKnownSuffix reports whether fname's suffix belongs to any language
// or linkable input.
func IsKnownSuffix(fname string) bool {
	i := strings.LastIndexByte(fname, '.')
	if i < 0 {
		return false
	}
	suffix := fname[i+1:]
	for _, suffixes := range LangSuffixes {
		if slices.Contains(suffixes, suffix) {
			return true
		}
	}
	return slices.Contains(clinkSuffixes, suffix)
}

// CompileCheckMode selects how far a probe drives the toolchain.
type CompileCheckMode int

const (
	// ModePreprocess stops after the preprocessor. Output goes to
	// stdout and is discarded.
	ModePreprocess CompileCheckMode = iota
	// ModeCompile stops before the link step.
	ModeCompile
	// ModeLink produces an executable.
	ModeLink
)

func (m CompileCheckMode) String() string {
	switch m {
	case ModePreprocess:
		return "preprocess"
	case ModeCompile:
		return "compile"
	case ModeLink:
		return "link"
	}
	return "unknown"
}

// clikeOptimizationArgs is the generic optimization table of C like
// drivers that leave -O0 implied. The gnu family overrides level 0 and
// g with explicit flags.
var clikeOptimizationArgs = map[string][]string{
	"0": nil,
	"g": nil,
	"1": {"-O1"},
	"2": {"-O2"},
	"3": {"-O3"},
	"s": {"-Os"},
}

var clikeDebugArgs = map[bool][]string{true: {"-g"}}

// GnuWinlibs are the Windows system libraries linked by default with
// gcc style drivers.
var GnuWinlibs = []string{
	"-lkernel32", "-luser32", "-lgdi32", "-lwinspool", "-lshell32",
	"-lole32", "-loleaut32", "-luuid", "-lcomdlg32", "-ladvapi32",
}

// MSVCWinlibs are the Windows system libraries linked by default with
// cl style drivers.
var MSVCWinlibs = []string{
	"kernel32.lib", "user32.lib", "gdi32.lib", "winspool.lib",
	"shell32.lib", "ole32.lib", "oleaut32.lib", "uuid.lib",
	"comdlg32.lib", "advapi32.lib",
}

// RemoveLinkerlikeArgs filters a mixed argument list down to the
// arguments that are safe to reuse for a compile-only invocation,
// dropping link-step arguments such as -Wl, options, library search
// paths and macOS framework references.
func RemoveLinkerlikeArgs(args []string) []string {
	rmExact := map[string]bool{"-headerpad_max_install_names": true}
	rmPrefixes := []string{"-Wl,", "-L"}
	rmNext := map[string]bool{"-L": true, "-framework": true}
	var out []string
	skip := false
	for _, arg := range args {
		if skip {
			skip = false
			continue
		}
		if rmExact[arg] {
			continue
		}
		// A bare -L consumes the next argument; -Lfoo is the glued
		// form caught by the prefix check below.
		if rmNext[arg] {
			skip = true
			continue
		}
		if hasAnyPrefix(arg, rmPrefixes) {
			continue
		}
		out = append(out, arg)
	}
	return out
}

func hasAnyPrefix(arg string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(arg, p) {
			return true
		}
	}
	return false
}
