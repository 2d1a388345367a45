// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"runtime"

	"github.com/eli-schwartz/meson/arglist"
	"github.com/eli-schwartz/meson/linkers"
)

var csOptimizationArgs = map[string][]string{
	"0": {}, "g": {},
	"1": {"-optimize+"}, "2": {"-optimize+"}, "3": {"-optimize+"}, "s": {"-optimize+"},
}

var monoBuildtypeArgs = map[string][]string{
	"debugoptimized": {"-optimize+"},
	"release":        {"-optimize+"},
}

const csSanityCode = `public class Sanity {
    static public void Main () {
    }
}
`

// csTraits describes compilers for the CLI: one binary both compiles
// and links, so linker queries answer locally.
func csTraits(runner string) traits {
	var tr traits
	tr.alwaysArgs = []string{"/nologo"}
	tr.outputArgs = func(_ *Compiler, target string) []string {
		return []string{"-out:" + target}
	}
	tr.optimizationArgs = csOptimizationArgs
	tr.debugArgs = map[bool][]string{true: {"-debug"}}
	tr.buildtypeArgs = monoBuildtypeArgs
	tr.picArgs = func(*Compiler) []string { return nil }
	tr.werrorArgs = []string{"-warnaserror"}
	tr.isLinker = true
	// Response files only help on Windows, where the command line
	// length limit bites.
	tr.ownRSP = runtime.GOOS == "windows"
	tr.linkerAlways = func(*Compiler) []string { return []string{"/nologo"} }
	tr.noStaticLinker = true
	tr.argPolicy = arglist.Base
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, "-L", "-lib:")
	}
	tr.sanityCode = csSanityCode
	tr.sanityRunner = runner
	return tr
}

// NewMonoCompiler returns mono's mcs. Its executables need the mono
// runtime to run.
func NewMonoCompiler(tc Toolchain) *Compiler {
	tr := csTraits("mono")
	tr.ownRSPSyntax = linkers.RSPSyntaxGCC
	return newCompiler("mono", "cs", tc, tr)
}

// NewVisualStudioCsCompiler returns Microsoft's csc.
func NewVisualStudioCsCompiler(tc Toolchain) *Compiler {
	tr := csTraits("")
	tr.ownRSPSyntax = linkers.RSPSyntaxMSVC
	return newCompiler("csc", "cs", tc, tr)
}
