// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import "github.com/eli-schwartz/meson/arglist"

// swiftc has a single -O switch; levels only decide whether it is on.
var swiftOptimizationArgs = map[string][]string{
	"0": {}, "g": {},
	"1": {"-O"}, "2": {"-O"}, "3": {"-O"}, "s": {"-O"},
}

// NewSwiftCompiler returns a swiftc. It drives its linker with
// -Xlinker prefixed arguments, one token per argument.
func NewSwiftCompiler(tc Toolchain) *Compiler {
	var tr traits
	tr.outputArgs = func(_ *Compiler, target string) []string {
		return []string{"-o", target}
	}
	tr.compileOnly = []string{"-c"}
	tr.includeArgs = func(_ *Compiler, path string, _ bool) []string {
		if path == "" {
			path = "."
		}
		return []string{"-I" + path}
	}
	tr.optimizationArgs = swiftOptimizationArgs
	tr.debugArgs = clikeDebugArgs
	tr.werrorArgs = []string{"--fatal-warnings"}
	tr.stdExeLinkArgs = []string{"-emit-executable"}
	tr.stdSharedLibArgs = []string{"-emit-library"}
	tr.argPolicy = arglist.Base
	tr.absolutePaths = func(_ *Compiler, args []string, buildDir string) []string {
		return rewritePrefixedPaths(args, buildDir, "-I", "-L")
	}
	tr.depfileSuffix = "d"
	tr.depGenArgs = func(_ *Compiler, _, _ string) []string {
		return []string{"-emit-dependencies"}
	}
	tr.sanityCode = `print("Swift compilation is working.")` + "\n"
	return newCompiler("llvm", "swift", tc, tr)
}
