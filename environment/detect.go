// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package environment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/toolsupport/shutil"
)

// envVarCompiler names the environment variable that overrides the
// default compiler of each language. Swift has none.
var envVarCompiler = map[string]string{
	"c":      "CC",
	"cpp":    "CXX",
	"cs":     "CSC",
	"cython": "CYTHON",
	"rust":   "RUSTC",
}

func exelists(names ...string) [][]string {
	out := make([][]string, 0, len(names))
	for _, n := range names {
		out = append(out, []string{n})
	}
	return out
}

// defaultCompilers lists the candidate binaries per language, tried
// in order. The windows lists lead with the vendor compilers because
// a MinGW gcc on PATH rarely matches the Visual Studio environment
// the user set up.
func (env *Environment) defaultCompilers(lang string) [][]string {
	windows := env.build.Windows()
	switch lang {
	case "c":
		if windows {
			return exelists("icl", "cl", "cc", "gcc", "clang", "clang-cl", "pgcc")
		}
		return exelists("cc", "gcc", "clang", "nvc", "pgcc", "icc", "icx")
	case "cpp":
		if windows {
			return exelists("icl", "cl", "c++", "g++", "clang++", "clang-cl", "pgc++")
		}
		return exelists("c++", "g++", "clang++", "nvc++", "pgc++", "icpc", "icpx")
	case "cs":
		return exelists("mcs", "csc")
	case "cython":
		return exelists("cython", "cython3")
	case "rust":
		return exelists("rustc")
	case "swift":
		return exelists("swiftc")
	}
	return nil
}

// compilerCandidates returns the exelists to try for lang. The
// language's environment variable wins and is shell-split so wrapper
// values like CC="ccache gcc" stay intact.
func (env *Environment) compilerCandidates(m machine.Choice, lang string) ([][]string, error) {
	if evar := envVarCompiler[lang]; evar != "" {
		if v, ok := env.EnvVar(m, evar); ok {
			exelist, err := shutil.SplitNative(v)
			if err != nil {
				return nil, fmt.Errorf("invalid $%s value %q: %w", evar, v, err)
			}
			if len(exelist) > 0 {
				return [][]string{exelist}, nil
			}
		}
	}
	candidates := env.defaultCompilers(lang)
	if candidates == nil {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	return candidates, nil
}

// versionArg picks the flag that makes a candidate print its banner.
// cl.exe has no --version and answers /? with a usage screen that
// carries the banner. Watcom ships a cl.exe clone; the banner sorts
// it out later.
func versionArg(exelist []string) string {
	for _, x := range exelist {
		switch filepath.Base(x) {
		case "cl", "cl.exe":
			return "/?"
		}
	}
	return "--version"
}

func joinCmd(exelist []string) string { return strings.Join(exelist, " ") }

func detectFailed(lang string, m machine.Choice, fails []string) error {
	return fmt.Errorf("could not detect a %s compiler for the %s machine:\n  %s",
		lang, m, strings.Join(fails, "\n  "))
}

// gnuDefines captures the builtin preprocessor defines of a gcc-like
// compiler by preprocessing an empty source file.
func (env *Environment) gnuDefines(ctx context.Context, exelist []string, lang string) (map[string]string, error) {
	suffix := "c"
	if lang == "cpp" {
		suffix = "cpp"
	}
	tmpdir, err := os.MkdirTemp(env.ScratchDir, "detect-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpdir)
	src := filepath.Join(tmpdir, "empty."+suffix)
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		return nil, err
	}
	args := append(slices.Clone(exelist), "-E", "-dM", src)
	out, errout, code, err := env.runTool(ctx, "probe compiler defines", args)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("no pre-processor defines:\nstdout: %s\nstderr: %s", out, errout)
	}
	defines := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(line, "#define ")
		if !ok {
			continue
		}
		name, value, _ := strings.Cut(rest, " ")
		defines[name] = value
	}
	return defines, nil
}

// gnuVersionFromDefines rebuilds the gcc version from its defines.
// The --version banner carries distro decorations, the defines don't.
func gnuVersionFromDefines(defines map[string]string) string {
	get := func(k string) string {
		if v := defines[k]; v != "" {
			return v
		}
		return "0"
	}
	return get("__GNUC__") + "." + get("__GNUC_MINOR__") + "." + get("__GNUC_PATCHLEVEL__")
}

var (
	armclangVersionRe = regexp.MustCompile(`.*Component.*`)
	clangTargetRe     = regexp.MustCompile(`(?m)^Target: (.*?)-`)
	// The trailing class keeps ARM from shadowing ARM64.
	msvcTargetRe = regexp.MustCompile(`(x86|x64|ARM64|ARM)([^_A-Za-z0-9]|$)`)
)

// DetectCCompiler finds the C compiler for m.
func DetectCCompiler(ctx context.Context, env *Environment, m machine.Choice) (*compilers.Compiler, error) {
	return env.detectCLike(ctx, "c", m)
}

// DetectCPPCompiler finds the C++ compiler for m.
func DetectCPPCompiler(ctx context.Context, env *Environment, m machine.Choice) (*compilers.Compiler, error) {
	return env.detectCLike(ctx, "cpp", m)
}

// detectCLike runs each candidate with its version flag and matches
// the banner against the known toolchain families. Candidates that
// fail to run or stay unrecognized are noted and skipped.
func (env *Environment) detectCLike(ctx context.Context, lang string, m machine.Choice) (*compilers.Compiler, error) {
	candidates, err := env.compilerCandidates(m, lang)
	if err != nil {
		return nil, err
	}
	var fails []string
	for _, exelist := range candidates {
		out, errout, _, err := env.runTool(ctx, "detect "+lang+" compiler",
			append(slices.Clone(exelist), versionArg(exelist)))
		if err != nil {
			fails = append(fails, fmt.Sprintf("%s: %v", joinCmd(exelist), err))
			continue
		}
		c, err := env.classifyCLike(ctx, lang, m, exelist, out, errout)
		if err != nil {
			fails = append(fails, fmt.Sprintf("%s: %v", joinCmd(exelist), err))
			continue
		}
		if c == nil {
			fails = append(fails, fmt.Sprintf("%s: unknown compiler", joinCmd(exelist)))
			continue
		}
		mlog.Debugf(ctx, "%s compiler for the %s machine: %s (%s %s)",
			c.DisplayLanguage(), m, c.NameString(), c.ID(), c.Version())
		return c, nil
	}
	return nil, detectFailed(lang, m, fails)
}

// classifyCLike maps a version banner to a toolchain family and
// builds the compiler, probing for the matching linker along the way.
// A nil compiler with nil error means the banner was not recognized.
func (env *Environment) classifyCLike(ctx context.Context, lang string, m machine.Choice, exelist []string, out, errout string) (*compilers.Compiler, error) {
	info := env.Machine(m)
	tc := func(version, fullVersion string, linker *linkers.DynamicLinker) compilers.Toolchain {
		return compilers.Toolchain{
			Exelist:     exelist,
			Version:     version,
			FullVersion: fullVersion,
			ForMachine:  m,
			Info:        info,
			IsCross:     env.MachineIsCross(m),
			Linker:      linker,
		}
	}
	version := SearchVersion(out)
	fullVersion := firstLine(out)

	guessGcc := strings.Contains(out, "Free Software Foundation") || strings.HasPrefix(out, "xt-")
	if strings.Contains(out, "Microchip Technology") {
		// xc16 prints an FSF banner too but links its own way.
		guessGcc = false
	}

	switch {
	case guessGcc:
		defines, err := env.gnuDefines(ctx, exelist, lang)
		if err != nil {
			return nil, err
		}
		version = gnuVersionFromDefines(defines)
		linker, err := guessNixLinker(ctx, env, exelist, "-Wl,", lang, m, nil)
		if err != nil {
			return nil, err
		}
		return compilers.NewGccCompiler(lang, tc(version, fullVersion, linker), defines), nil

	case strings.Contains(out, "armclang"):
		banner := armclangVersionRe.FindString(out)
		if banner == "" {
			return nil, fmt.Errorf("armclang version string not found in %q", firstLine(out))
		}
		version = SearchVersion(banner)
		return compilers.NewArmClangCompiler(lang, tc(version, banner,
			linkers.NewArmClangDynamicLinker(m, version)))

	case strings.Contains(out, "CL.EXE COMPATIBILITY"):
		// clang-cl wearing the cl disguise; ask again the clang way.
		out2, _, _, err := env.runTool(ctx, "detect clang-cl",
			append(slices.Clone(exelist), "--version"))
		if err != nil {
			return nil, err
		}
		if mt := clangTargetRe.FindStringSubmatch(out2); mt == nil {
			return nil, fmt.Errorf("failed to detect clang-cl target architecture:\n%s", out2)
		}
		version = SearchVersion(out2)
		linker, err := guessWinLinker(ctx, env, []string{"lld-link"}, "", lang, m, true, true)
		if err != nil {
			return nil, err
		}
		return compilers.NewClangClCompiler(lang, tc(version, firstLine(out2), linker)), nil

	case strings.Contains(out, "clang") || strings.Contains(out, "Clang"):
		defines, err := env.gnuDefines(ctx, exelist, lang)
		if err != nil {
			return nil, err
		}
		var linker *linkers.DynamicLinker
		if strings.Contains(out, "windows") || info.Windows() {
			// MinGW clang links through ld-like linkers; fall back
			// to the nix probe when the win one comes up empty.
			linker, _ = guessWinLinker(ctx, env, exelist, "-Wl,", lang, m, false, true)
		}
		if linker == nil {
			linker, err = guessNixLinker(ctx, env, exelist, "-Wl,", lang, m, nil)
			if err != nil {
				return nil, err
			}
		}
		if strings.Contains(out, "Apple") {
			return compilers.NewAppleClangCompiler(lang, tc(version, fullVersion, linker), defines), nil
		}
		return compilers.NewClangCompiler(lang, tc(version, fullVersion, linker), defines), nil

	case strings.Contains(errout, "Intel(R) C++ Intel(R)"):
		// icl prints its banner on stderr.
		version = SearchVersion(errout)
		return compilers.NewIntelClCompiler(lang, tc(version, firstLine(errout),
			linkers.NewXilinkDynamicLinker(m, nil, version))), nil

	case strings.Contains(out, "Microsoft") || strings.Contains(errout, "Microsoft"):
		// cl /? puts the banner on stderr, some wrappers on stdout.
		version = ""
		var lookat string
		for _, s := range []string{errout, out} {
			if v := SearchVersion(s); v != UnknownVersion {
				version, lookat = v, s
				break
			}
		}
		if version == "" {
			return nil, fmt.Errorf("failed to detect MSVC compiler version:\n%s", errout)
		}
		sig := firstLine(lookat)
		if !msvcTargetRe.MatchString(sig) {
			return nil, fmt.Errorf("failed to detect MSVC compiler target architecture: %q", sig)
		}
		linker, err := guessWinLinker(ctx, env, []string{"link"}, "", lang, m, true, true)
		if err != nil {
			return nil, err
		}
		return compilers.NewMSVCCompiler(lang, tc(version, sig, linker)), nil

	case strings.Contains(out, "(ICC)"):
		linker, err := guessNixLinker(ctx, env, exelist, "-Wl,", lang, m, nil)
		if err != nil {
			return nil, err
		}
		return compilers.NewIntelGnuCompiler(lang, tc(version, fullVersion, linker)), nil

	case strings.Contains(out, "TMS320C2000 C/C++"):
		return compilers.NewC2000Compiler(lang, tc(version, fullVersion,
			linkers.NewC2000DynamicLinker(exelist, m, version)))

	case strings.Contains(out, "TI ARM C/C++ Compiler"):
		return compilers.NewTICompiler(lang, tc(version, fullVersion,
			linkers.NewTIDynamicLinker(exelist, m, version)))

	case strings.Contains(out, "Microchip Technology"):
		return compilers.NewXc16Compiler(tc(version, fullVersion,
			linkers.NewXc16DynamicLinker(m, version)))

	case strings.Contains(out, "CompCert"):
		return compilers.NewCompCertCompiler(tc(version, fullVersion,
			linkers.NewCompCertDynamicLinker(m, version))), nil
	}
	return nil, nil
}

// rustc takes its linker choice as -C arguments rather than flags of
// its own.
func rustLinkerArgs(v string) []string { return []string{"-C", "linker=" + v} }

// DetectRustCompiler finds the Rust compiler for m. rustc drives the
// final link through the C toolchain, so the C compiler is detected
// first and its linker is shared.
func DetectRustCompiler(ctx context.Context, env *Environment, m machine.Choice) (*compilers.Compiler, error) {
	candidates, err := env.compilerCandidates(m, "rust")
	if err != nil {
		return nil, err
	}
	cc, err := DetectCCompiler(ctx, env, m)
	if err != nil {
		return nil, fmt.Errorf("rust needs a C toolchain to link with: %w", err)
	}
	ccLinker := cc.Linker()

	var fails []string
	for _, exelist := range candidates {
		out, _, _, err := env.runTool(ctx, "detect rust compiler",
			append(slices.Clone(exelist), "--version"))
		if err != nil {
			fails = append(fails, fmt.Sprintf("%s: %v", joinCmd(exelist), err))
			continue
		}
		clippy := false
		if strings.Contains(out, "clippy") {
			// clippy-driver reports its own version; ask for the
			// underlying rustc's instead.
			out2, _, _, err := env.runTool(ctx, "detect rust compiler",
				append(slices.Clone(exelist), "--rustc", "--version"))
			if err != nil {
				fails = append(fails, fmt.Sprintf("%s: %v", joinCmd(exelist), err))
				continue
			}
			out = out2
			clippy = true
		}
		if !strings.Contains(out, "rustc") {
			fails = append(fails, fmt.Sprintf("%s: not a rustc", joinCmd(exelist)))
			continue
		}
		for _, a := range exelist {
			if strings.HasPrefix(a, "linker=") {
				mlog.Warnf(ctx, "please set the linker with the RUSTC_LD environment variable, not -C linker= in $RUSTC")
				break
			}
		}

		exelist = slices.Clone(exelist)
		if v, ok := env.EnvVar(m, "RUSTC_LD"); ok {
			exelist = append(exelist, rustLinkerArgs(v)...)
		} else {
			switch ccLinker.ID() {
			case "link", "lld-link", "xilink", "optlink":
				exelist = append(exelist, rustLinkerArgs("lld-link")...)
			default:
				drive := append(ccLinker.Exelist(), ccLinker.AlwaysArgs()...)
				switch filepath.Base(drive[0]) {
				case "ccache", "sccache":
					// rustc would misread the wrapper as the linker.
					drive = drive[1:]
				}
				exelist = append(exelist, rustLinkerArgs(drive[0])...)
				for _, a := range drive[1:] {
					exelist = append(exelist, "-C", "link-arg="+a)
				}
			}
		}

		tc := compilers.Toolchain{
			Exelist:     exelist,
			Version:     SearchVersion(out),
			FullVersion: firstLine(out),
			ForMachine:  m,
			Info:        env.Machine(m),
			IsCross:     env.MachineIsCross(m),
			Linker:      ccLinker,
		}
		if clippy {
			return compilers.NewClippyRustCompiler(tc), nil
		}
		return compilers.NewRustCompiler(tc), nil
	}
	return nil, detectFailed("rust", m, fails)
}

// DetectCSCompiler finds the C# compiler for m.
func DetectCSCompiler(ctx context.Context, env *Environment, m machine.Choice) (*compilers.Compiler, error) {
	candidates, err := env.compilerCandidates(m, "cs")
	if err != nil {
		return nil, err
	}
	var fails []string
	for _, exelist := range candidates {
		out, _, _, err := env.runTool(ctx, "detect cs compiler",
			append(slices.Clone(exelist), "--version"))
		if err != nil {
			fails = append(fails, fmt.Sprintf("%s: %v", joinCmd(exelist), err))
			continue
		}
		tc := compilers.Toolchain{
			Exelist:     exelist,
			Version:     SearchVersion(out),
			FullVersion: firstLine(out),
			ForMachine:  m,
			Info:        env.Machine(m),
			IsCross:     env.MachineIsCross(m),
		}
		switch {
		case strings.Contains(out, "Mono"):
			return compilers.NewMonoCompiler(tc), nil
		case strings.Contains(out, "Visual C#"):
			return compilers.NewVisualStudioCsCompiler(tc), nil
		}
		fails = append(fails, fmt.Sprintf("%s: unknown compiler", joinCmd(exelist)))
	}
	return nil, detectFailed("cs", m, fails)
}

// DetectCythonCompiler finds the Cython transpiler for m.
func DetectCythonCompiler(ctx context.Context, env *Environment, m machine.Choice) (*compilers.Compiler, error) {
	candidates, err := env.compilerCandidates(m, "cython")
	if err != nil {
		return nil, err
	}
	var fails []string
	for _, exelist := range candidates {
		out, errout, _, err := env.runTool(ctx, "detect cython compiler",
			append(slices.Clone(exelist), "-V"))
		if err != nil {
			fails = append(fails, fmt.Sprintf("%s: %v", joinCmd(exelist), err))
			continue
		}
		// Older cython prints the version on stderr.
		banner := out
		if !strings.Contains(out, "Cython") {
			banner = errout
		}
		if !strings.Contains(banner, "Cython") {
			fails = append(fails, fmt.Sprintf("%s: unknown compiler", joinCmd(exelist)))
			continue
		}
		return compilers.NewCythonCompiler(compilers.Toolchain{
			Exelist:     exelist,
			Version:     SearchVersion(banner),
			FullVersion: firstLine(banner),
			ForMachine:  m,
			Info:        env.Machine(m),
			IsCross:     env.MachineIsCross(m),
		}), nil
	}
	return nil, detectFailed("cython", m, fails)
}

// DetectSwiftCompiler finds the Swift compiler for m. swiftc refuses
// to poke its linker without a source file, so one is written to the
// scratch dir for the probe.
func DetectSwiftCompiler(ctx context.Context, env *Environment, m machine.Choice) (*compilers.Compiler, error) {
	candidates, err := env.compilerCandidates(m, "swift")
	if err != nil {
		return nil, err
	}
	var fails []string
	for _, exelist := range candidates {
		_, errout, _, err := env.runTool(ctx, "detect swift compiler",
			append(slices.Clone(exelist), "-v"))
		if err != nil {
			fails = append(fails, fmt.Sprintf("%s: %v", joinCmd(exelist), err))
			continue
		}
		if !strings.Contains(errout, "Swift") {
			fails = append(fails, fmt.Sprintf("%s: unknown compiler", joinCmd(exelist)))
			continue
		}
		version := SearchVersion(errout)
		tmpdir, err := os.MkdirTemp(env.ScratchDir, "detect-")
		if err != nil {
			return nil, err
		}
		src := filepath.Join(tmpdir, "empty.swift")
		if err := os.WriteFile(src, nil, 0o644); err != nil {
			os.RemoveAll(tmpdir)
			return nil, err
		}
		linker, err := guessNixLinker(ctx, env, exelist, "-Xlinker", "swift", m, []string{src})
		os.RemoveAll(tmpdir)
		if err != nil {
			return nil, err
		}
		return compilers.NewSwiftCompiler(compilers.Toolchain{
			Exelist:     exelist,
			Version:     version,
			FullVersion: firstLine(errout),
			ForMachine:  m,
			Info:        env.Machine(m),
			IsCross:     env.MachineIsCross(m),
			Linker:      linker,
		}), nil
	}
	return nil, detectFailed("swift", m, fails)
}

// DetectCompiler finds the compiler for one of the supported
// languages.
func DetectCompiler(ctx context.Context, env *Environment, lang string, m machine.Choice) (*compilers.Compiler, error) {
	switch lang {
	case "c":
		return DetectCCompiler(ctx, env, m)
	case "cpp":
		return DetectCPPCompiler(ctx, env, m)
	case "rust":
		return DetectRustCompiler(ctx, env, m)
	case "cs":
		return DetectCSCompiler(ctx, env, m)
	case "cython":
		return DetectCythonCompiler(ctx, env, m)
	case "swift":
		return DetectSwiftCompiler(ctx, env, m)
	}
	return nil, fmt.Errorf("unsupported language %q", lang)
}

// SanityCheckAll verifies that every detected compiler can build and
// run a trivial program, in parallel. workDir keeps the scratch
// sources around for postmortems.
func SanityCheckAll(ctx context.Context, pr *compilers.Prober, workDir string, cs []*compilers.Compiler) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range cs {
		g.Go(func() error {
			if err := c.SanityCheck(ctx, pr, workDir); err != nil {
				return fmt.Errorf("%s compiler %s: %w", c.DisplayLanguage(), c.NameString(), err)
			}
			mlog.Debugf(ctx, "%s compiler %s passed the sanity check", c.DisplayLanguage(), c.NameString())
			return nil
		})
	}
	return g.Wait()
}
