// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package environment

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
	"github.com/eli-schwartz/meson/toolsupport/shutil"
)

// cflagsMapping names the compile-flag environment variable of each
// language.
var cflagsMapping = map[string]string{
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
	"cs":      "CSFLAGS",
}

// languagesUsingLdflags read LDFLAGS from the environment because
// their compiler drives the link step.
var languagesUsingLdflags = map[string]bool{
	"objcpp":  true,
	"cpp":     true,
	"objc":    true,
	"c":       true,
	"fortran": true,
	"d":       true,
	"cuda":    true,
}

// languagesUsingCppflags read CPPFLAGS in addition to their own
// compile flag variable.
var languagesUsingCppflags = map[string]bool{
	"c":      true,
	"cpp":    true,
	"objc":   true,
	"objcpp": true,
}

func sortedLangs(m map[string]bool) []string {
	langs := make([]string, 0, len(m))
	for l := range m {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// CollectEnvOptions reads the option values the environment supplies:
// per-language compile flags such as CFLAGS, CPPFLAGS for the
// preprocessed languages, and LDFLAGS for the languages whose
// compiler drives the link. Values are split the way a shell would.
// The collected values are held until a toolchain for the language is
// registered; they never override options the user set explicitly.
func (env *Environment) CollectEnvOptions(ctx context.Context) error {
	env.envOpts = map[options.Key][]string{}
	split := func(evar, value string) ([]string, error) {
		args, err := shutil.SplitNative(value)
		if err != nil {
			return nil, fmt.Errorf("invalid $%s value %q: %w", evar, value, err)
		}
		return args, nil
	}
	cflagsLangs := make([]string, 0, len(cflagsMapping))
	for lang := range cflagsMapping {
		cflagsLangs = append(cflagsLangs, lang)
	}
	sort.Strings(cflagsLangs)
	for _, m := range machine.Choices() {
		for _, lang := range cflagsLangs {
			evar := cflagsMapping[lang]
			v, ok := env.EnvVar(m, evar)
			if !ok {
				continue
			}
			args, err := split(evar, v)
			if err != nil {
				return err
			}
			key := options.Key{Name: lang + "_args", Machine: m}
			env.envOpts[key] = append(env.envOpts[key], args...)
			mlog.Debugf(ctx, "env: %s -> %s = %q", evar, key, args)
		}
		if v, ok := env.EnvVar(m, "CPPFLAGS"); ok {
			args, err := split("CPPFLAGS", v)
			if err != nil {
				return err
			}
			for _, lang := range sortedLangs(languagesUsingCppflags) {
				key := options.Key{Name: lang + "_args", Machine: m}
				env.envOpts[key] = append(env.envOpts[key], args...)
			}
		}
		if v, ok := env.EnvVar(m, "LDFLAGS"); ok {
			args, err := split("LDFLAGS", v)
			if err != nil {
				return err
			}
			for _, lang := range sortedLangs(languagesUsingLdflags) {
				key := options.Key{Name: lang + "_link_args", Machine: m}
				env.envOpts[key] = append(env.envOpts[key], args...)
			}
		}
	}
	return nil
}

// envArgs returns the collected environment value for one option key.
func (env *Environment) envArgs(key options.Key) []string {
	return env.envOpts[key]
}

// RegisterCompilerOptions adds the options a detected toolchain brings
// along to s: the compiler's own options such as c_std, the free-form
// <lang>_args and <lang>_link_args arrays seeded from the collected
// environment values, and the b_* base options the toolchain opts
// into. cmdline holds the option settings given on the command line,
// which take precedence over environment values.
//
// When the compiler also drives the link step, compile flags taken
// from the environment reach the link line too. That is how autotools
// treats CFLAGS, and the environment variables feel wrong without it.
func (env *Environment) RegisterCompilerOptions(ctx context.Context, s *options.Store, c *compilers.Compiler, cmdline map[options.Key]string) {
	lang := c.Language()
	opts := c.Options()
	keys := make([]options.Key, 0, len(opts))
	for key := range opts {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b options.Key) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	for _, key := range keys {
		if s.Contains(key) {
			continue
		}
		s.AddCompilerOption(lang, key, opts[key])
	}

	argkey := c.OptionKey("args")
	largkey := c.OptionKey("link_args")
	compArgs := slices.Clone(env.envArgs(argkey))
	linkArgs := slices.Clone(env.envArgs(largkey))
	_, compFromCmdline := cmdline[argkey]
	if c.InvokesLinker() && !compFromCmdline {
		linkArgs = append(linkArgs, compArgs...)
	}
	desc := fmt.Sprintf("Extra arguments passed to the %s", c.DisplayLanguage())
	if !s.Contains(argkey) {
		s.AddCompilerOption(lang, argkey, options.NewArgsArray(argkey.Name, desc+" compiler", compArgs))
	}
	if !s.Contains(largkey) {
		s.AddCompilerOption(lang, largkey, options.NewArgsArray(largkey.Name, desc+" linker", linkArgs))
	}

	compilers.AddBaseOptions(s, c)
}
