// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package environment

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/options"
	"github.com/eli-schwartz/meson/toolsupport/shutil"
)

// ldEnvVar names the environment variable that overrides the dynamic
// linker, per language.
var ldEnvVar = map[string]string{
	"c":    "CC_LD",
	"cpp":  "CXX_LD",
	"rust": "RUSTC_LD",
}

// prefixArgs routes arguments to the linker the way a compiler driver
// expects: glued for prefixes ending in "," or "=", as a separate
// preceding token otherwise, and bare when there is no driver prefix.
func prefixArgs(prefix string, args ...string) []string {
	if prefix == "" {
		return slices.Clone(args)
	}
	glue := strings.HasSuffix(prefix, ",") || strings.HasSuffix(prefix, "=")
	var out []string
	for _, a := range args {
		if glue {
			out = append(out, prefix+a)
		} else {
			out = append(out, prefix, a)
		}
	}
	return out
}

func linkerDetectError(cmd []string, out, errout string) error {
	return fmt.Errorf("unable to detect linker via %q\nstdout: %s\nstderr: %s",
		strings.Join(cmd, " "), out, errout)
}

// Some lld targets (windows, wasm) reject --allow-shlib-undefined.
// Probing beats tracking target lists. Releases before lld 9 print
// the offending argument unquoted.
func probeAllowShlibUndefined(ctx context.Context, env *Environment, exelist []string, prefix string, alwaysArgs []string) (bool, error) {
	cmd := append(slices.Clone(exelist), alwaysArgs...)
	cmd = append(cmd, prefixArgs(prefix, "--allow-shlib-undefined")...)
	_, errout, _, err := env.runTool(ctx, "probe --allow-shlib-undefined", cmd)
	if err != nil {
		return false, err
	}
	return !strings.Contains(errout, "unknown argument: --allow-shlib-undefined") &&
		!strings.Contains(errout, "unknown argument: '--allow-shlib-undefined'"), nil
}

// The LLD MinGW frontend did not answer --version before 9.0.0; its
// -v output leaks the backend invocation on the line before the
// error.
var mingwLLDRe = regexp.MustCompile(`(?s)\A.*\n(.*?)\nlld-link: `)

// guessNixLinker sniffs which linker a posixy compiler driver invokes
// by asking for the linker's version through the driver. prefix is
// the driver's linker pass-through ("-Wl," or "-Xlinker"). extraArgs
// carries anything the driver needs to get that far, such as the
// source file swiftc insists on. The LDFLAGS collected from the
// environment ride along so flags like -fuse-ld take effect, and the
// language's _LD variable picks a linker explicitly.
func guessNixLinker(ctx context.Context, env *Environment, exelist []string, prefix, lang string, m machine.Choice, extraArgs []string) (*linkers.DynamicLinker, error) {
	var override []string
	if v, ok := env.EnvVar(m, ldEnvVar[lang]); ok {
		override = []string{"-fuse-ld=" + v}
	}
	checkArgs := prefixArgs(prefix, "--version")
	checkArgs = append(checkArgs, extraArgs...)
	checkArgs = append(checkArgs, env.envArgs(options.Key{Name: lang + "_link_args", Machine: m})...)
	checkArgs = append(checkArgs, override...)

	cmd := append(slices.Clone(exelist), checkArgs...)
	out, errout, _, err := env.runTool(ctx, "detect linker", cmd)
	if err != nil {
		return nil, err
	}
	v := SearchVersion(out + errout)

	switch {
	case strings.Contains(firstLine(out), "LLD"):
		// ld64.lld speaks the Apple dialect, not the gnu one; -v
		// names the flavor.
		rerun := append(slices.Clone(exelist), override...)
		rerun = append(rerun, prefixArgs(prefix, "-v")...)
		rerun = append(rerun, extraArgs...)
		_, verr, _, err := env.runTool(ctx, "detect LLD flavor", rerun)
		if err != nil {
			return nil, err
		}
		if strings.Contains(verr, "ld64.lld") {
			return linkers.NewAppleDynamicLinker(exelist, m, prefix, override, v), nil
		}
		allowShlib, err := probeAllowShlibUndefined(ctx, env, exelist, prefix, override)
		if err != nil {
			return nil, err
		}
		return linkers.NewLLVMDynamicLinker(exelist, m, prefix, override, v, allowShlib), nil

	case strings.Contains(errout, "Snapdragon") && strings.Contains(errout, "LLVM"):
		allowShlib, err := probeAllowShlibUndefined(ctx, env, exelist, prefix, override)
		if err != nil {
			return nil, err
		}
		return linkers.NewQualcommLLVMDynamicLinker(exelist, m, prefix, override, v, allowShlib), nil

	case strings.HasPrefix(errout, "lld-link: "):
		rerun := append(slices.Clone(cmd), "-v")
		_, e2, _, err := env.runTool(ctx, "detect MinGW lld", rerun)
		if err != nil {
			return nil, err
		}
		if mt := mingwLLDRe.FindStringSubmatch(e2); mt != nil {
			if argv, err := shutil.Split(mt[1]); err == nil && len(argv) > 0 {
				if o2, _, _, err := env.runTool(ctx, "detect MinGW lld version", []string{argv[0], "--version"}); err == nil {
					v = SearchVersion(o2)
				}
			}
		}
		allowShlib, err := probeAllowShlibUndefined(ctx, env, exelist, prefix, override)
		if err != nil {
			return nil, err
		}
		return linkers.NewLLVMDynamicLinker(exelist, m, prefix, override, v, allowShlib), nil

	// First marker is Apple clang, the second real gcc on darwin,
	// the third icc. Sometimes the message reads "unknown options".
	case strings.HasSuffix(errout, "(use -v to see invocation)\n") ||
		strings.Contains(errout, "macosx_version") ||
		strings.Contains(errout, "ld: unknown option"):
		rerun := append(slices.Clone(exelist), prefixArgs(prefix, "-v")...)
		rerun = append(rerun, extraArgs...)
		_, verr, _, err := env.runTool(ctx, "detect Apple linker", rerun)
		if err != nil {
			return nil, err
		}
		v = ""
		for _, line := range strings.Split(verr, "\n") {
			if strings.Contains(line, "PROJECT:ld") || strings.Contains(line, "PROJECT:dyld") {
				if _, after, ok := strings.Cut(line, "-"); ok {
					v = after
				}
				break
			}
		}
		if v == "" {
			return nil, linkerDetectError(cmd, out, errout)
		}
		return linkers.NewAppleDynamicLinker(exelist, m, prefix, override, v), nil

	case strings.Contains(out, "GNU") || strings.Contains(errout, "GNU"):
		// The banner is alone on stdout, except under swift which may
		// reroute it to stderr.
		switch {
		case strings.HasPrefix(out, "GNU gold") || strings.HasPrefix(errout, "GNU gold"):
			return linkers.NewGnuGoldDynamicLinker(exelist, m, prefix, override, v), nil
		case strings.HasPrefix(out, "mold") || strings.HasPrefix(errout, "mold"):
			return linkers.NewMoldDynamicLinker(exelist, m, prefix, override, v), nil
		}
		return linkers.NewGnuBFDDynamicLinker(exelist, m, prefix, override, v), nil

	case strings.Contains(out, "Solaris") || strings.Contains(errout, "Solaris"):
		v = UnknownVersion
		for _, line := range strings.Split(out+errout, "\n") {
			if strings.Contains(line, "ld: Software Generation Utilities") {
				if parts := strings.Split(line, ":"); len(parts) > 2 {
					v = strings.TrimSpace(parts[2])
				}
				break
			}
		}
		zout, zerr, _, err := env.runTool(ctx, "probe solaris linker",
			append(slices.Clone(exelist), prefixArgs(prefix, "-zhelp")...))
		if err != nil {
			return nil, err
		}
		return linkers.NewSolarisDynamicLinker(exelist, m, prefix, override, v, zout+zerr), nil

	case strings.Contains(errout, "ld: 0706-012 The -- flag is not recognized"):
		rerun := append(slices.Clone(exelist), prefixArgs(prefix, "-V")...)
		rerun = append(rerun, extraArgs...)
		_, e2, _, err := env.runTool(ctx, "detect AIX linker", rerun)
		if err != nil {
			return nil, err
		}
		return linkers.NewAIXDynamicLinker(exelist, m, prefix, override, SearchVersion(e2)), nil
	}
	return nil, linkerDetectError(cmd, out, errout)
}

// winMachineRe finds the target architecture in a link.exe banner.
// ARM64 sorts before ARM so the longer name wins.
var winMachineRe = regexp.MustCompile(`(X86|X64|ARM64|ARM)`)

// guessWinLinker sniffs a link.exe style linker, either a bare linker
// binary or one reached through a compiler driver. useLinkerPrefix is
// false when the probe flags must stay bare even though a prefix
// exists. invokedDirectly is false when the compiler stays in the
// loop at link time, as with clang-cl.
func guessWinLinker(ctx context.Context, env *Environment, exelist []string, prefix, lang string, m machine.Choice, invokedDirectly, useLinkerPrefix bool) (*linkers.DynamicLinker, error) {
	usedPrefix := ""
	if useLinkerPrefix {
		usedPrefix = prefix
	}
	// link.exe has no --version; /logo prints the banner. Send both so
	// whichever dialect answers identifies itself.
	probeArgs := prefixArgs(usedPrefix, "/logo")
	probeArgs = append(probeArgs, prefixArgs(usedPrefix, "--version")...)
	probeArgs = append(probeArgs, env.envArgs(options.Key{Name: lang + "_link_args", Machine: m})...)

	if v, ok := env.EnvVar(m, ldEnvVar[lang]); ok && invokedDirectly {
		alt, err := shutil.SplitNative(v)
		if err != nil {
			return nil, fmt.Errorf("invalid $%s value %q: %w", ldEnvVar[lang], v, err)
		}
		if len(alt) > 0 {
			exelist = alt
		}
	}
	cmd := append(slices.Clone(exelist), probeArgs...)
	out, errout, _, err := env.runTool(ctx, "detect linker", cmd)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.Contains(firstLine(out), "LLD"):
		if strings.Contains(out, "(compatible with GNU linkers)") {
			allowShlib, err := probeAllowShlibUndefined(ctx, env, exelist, usedPrefix, nil)
			if err != nil {
				return nil, err
			}
			return linkers.NewLLVMDynamicLinker(exelist, m, usedPrefix, nil, SearchVersion(out), allowShlib), nil
		}
		// The machine argument stays empty: clang's target triple
		// already picked it.
		return linkers.NewClangClDynamicLinker(exelist, m, usedPrefix, nil, "", SearchVersion(out), invokedDirectly), nil

	case strings.Contains(out, "OPTLINK"):
		// Optlink's stdout may open with a stray \r, hence Contains.
		return linkers.NewOptlinkDynamicLinker(exelist, m, SearchVersion(out)), nil

	case strings.HasPrefix(out, "Microsoft") || strings.HasPrefix(errout, "Microsoft"):
		banner := out
		if banner == "" {
			banner = errout
		}
		target := "x86"
		if mt := winMachineRe.FindStringSubmatch(firstLine(banner)); mt != nil {
			target = mt[1]
		}
		return linkers.NewMSVCDynamicLinker(exelist, m, usedPrefix, nil, target, SearchVersion(banner), invokedDirectly), nil

	case strings.Contains(out, "GNU coreutils"):
		return nil, fmt.Errorf("found GNU link.exe instead of MSVC link.exe at %s; adjust PATH so the Visual Studio tools come first", exelist[0])
	}
	return nil, linkerDetectError(cmd, out, errout)
}

// staticVersionArg picks the flag that makes an archiver print its
// banner. lib.exe wants /?, the TI and ARM archivers a bare ?.
func staticVersionArg(exelist []string) string {
	for _, x := range exelist {
		switch filepath.Base(x) {
		case "lib", "lib.exe", "llvm-lib", "llvm-lib.exe", "xilib", "xilib.exe":
			return "/?"
		}
	}
	switch filepath.Base(exelist[0]) {
	case "ar2000", "ar2000.exe", "ar430", "ar430.exe", "armar", "armar.exe", "ar6x", "ar6x.exe":
		return "?"
	}
	return "--version"
}

// staticLinkerCandidates returns the archivers to try for c, most
// specific first. gcc-ar and llvm-ar understand their compiler's LTO
// objects where plain ar does not.
func (env *Environment) staticLinkerCandidates(m machine.Choice, c *compilers.Compiler) ([][]string, error) {
	if v, ok := env.EnvVar(m, "AR"); ok {
		exelist, err := shutil.SplitNative(v)
		if err != nil {
			return nil, fmt.Errorf("invalid $AR value %q: %w", v, err)
		}
		if len(exelist) > 0 {
			return [][]string{exelist}, nil
		}
	}
	defaults := [][]string{{"ar"}, {"gar"}}
	switch {
	case c.ArgumentSyntax() == "msvc":
		return [][]string{{"lib"}, {"llvm-lib"}}, nil
	case c.ID() == "gcc":
		return append([][]string{{"gcc-ar"}}, defaults...), nil
	case c.ID() == "clang" || c.ID() == "apple-clang":
		return append([][]string{{"llvm-ar"}}, defaults...), nil
	}
	return defaults, nil
}

// DetectStaticLinker finds the archiver matching an already detected
// compiler.
func DetectStaticLinker(ctx context.Context, env *Environment, c *compilers.Compiler) (*linkers.StaticLinker, error) {
	m := c.ForMachine()
	trials, err := env.staticLinkerCandidates(m, c)
	if err != nil {
		return nil, err
	}
	// lib.exe needs the compiler's target machine; a compiler without
	// a dynamic linker has none to give.
	machineArg := ""
	if l := c.Linker(); l != nil {
		machineArg = l.MachineArg()
	}
	var fails []string
	for _, exelist := range trials {
		name := filepath.Base(exelist[0])
		out, errout, code, err := env.runTool(ctx, "detect archiver",
			append(slices.Clone(exelist), staticVersionArg(exelist)))
		if err != nil {
			fails = append(fails, fmt.Sprintf("%s: %v", strings.Join(exelist, " "), err))
			continue
		}
		switch {
		case strings.Contains(errout, "xilib: executing 'lib'"):
			return linkers.NewIntelVisualStudioLinker(exelist, machineArg), nil
		case strings.Contains(strings.ToUpper(out), "/OUT:") || strings.Contains(strings.ToUpper(errout), "/OUT:"):
			return linkers.NewVisualStudioLinker(exelist, machineArg), nil
		case strings.Contains(errout, "ar-Error-Unknown switch: --version"):
			return linkers.NewPGIStaticLinker(exelist), nil
		case code == 0 && strings.Contains(name, "armar"):
			return linkers.NewArmarLinker(exelist), nil
		case strings.HasPrefix(errout, "Renesas") || strings.Contains(errout, "rlink"):
			return linkers.NewCcrxLinker(exelist), nil
		case strings.HasPrefix(out, "GNU ar") && strings.Contains(name, "xc16-ar"):
			return linkers.NewXc16Linker(exelist), nil
		case strings.Contains(errout, "-->  error: bad option 'e'"):
			return linkers.NewTILinker(exelist), nil
		case strings.Contains(out, "Texas Instruments Incorporated"):
			if strings.Contains(name, "ar2000") {
				return linkers.NewC2000Linker(exelist), nil
			}
			return linkers.NewTILinker(exelist), nil
		case strings.HasPrefix(out, "The CompCert"):
			return linkers.NewCompCertLinker(exelist), nil
		case code == 0,
			code == 1 && strings.HasPrefix(errout, "usage"), // BSD and macOS
			code == 1 && strings.HasPrefix(errout, "ar: bad option: --"): // Solaris
			// ar's help screen advertises deterministic and thin
			// archive support.
			helpOut, _, _, err := env.runTool(ctx, "probe archiver capabilities",
				append(slices.Clone(exelist), "-h"))
			if err != nil {
				return nil, err
			}
			return linkers.NewArLinker(exelist, helpOut), nil
		case code == 1 && strings.HasPrefix(errout, "Usage"): // AIX
			return linkers.NewAIXArLinker(exelist), nil
		}
		fails = append(fails, fmt.Sprintf("%s: unknown archiver", strings.Join(exelist, " ")))
	}
	return nil, fmt.Errorf("could not detect an archiver for %s:\n  %s",
		c.NameString(), strings.Join(fails, "\n  "))
}
