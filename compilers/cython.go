// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"slices"

	"github.com/eli-schwartz/meson/arglist"
	"github.com/eli-schwartz/meson/options"
)

// NewCythonCompiler returns a cython transpiler. It emits C or C++ for
// a real compiler to consume, so it neither links nor archives.
func NewCythonCompiler(tc Toolchain) *Compiler {
	var tr traits
	tr.alwaysArgs = []string{"--fast-fail"}
	tr.outputArgs = func(_ *Compiler, target string) []string {
		return []string{"-o", target}
	}
	tr.picArgs = func(*Compiler) []string { return nil }
	tr.werrorArgs = []string{"-Werror"}
	tr.noStaticLinker = true
	tr.argPolicy = arglist.Base
	tr.absolutePaths = func(_ *Compiler, args []string, _ string) []string {
		return slices.Clone(args)
	}
	tr.compilerOptions = func(c *Compiler) map[options.Key]options.Option {
		return map[options.Key]options.Option{
			c.OptionKey("version"): options.NewCombo("cython_version",
				"Python version to target", "3", []string{"2", "3"}),
			c.OptionKey("language"): options.NewCombo("cython_language",
				"Output C or C++ files", "c", []string{"c", "cpp"}),
		}
	}
	tr.optionCompileArgs = func(c *Compiler, s *options.Store) []string {
		var args []string
		if v, ok := s.String(c.OptionKey("version")); ok {
			args = append(args, "-"+v)
		}
		if lang, ok := s.String(c.OptionKey("language")); ok && lang == "cpp" {
			args = append(args, "--cplus")
		}
		return args
	}
	tr.sanityCode = `print("hello world")` + "\n"
	tr.sanityCompileOnly = true
	return newCompiler("cython", "cython", tc, tr)
}
