// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"context"

	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
)

// BaseOptions returns fresh instances of every b_* option. Each
// toolchain opts into a subset; the store holds one instance per name
// no matter how many toolchains want it.
func BaseOptions() map[options.Key]options.Option {
	all := []options.Option{
		options.NewBoolean("b_pch", "Use precompiled headers", true),
		options.NewBoolean("b_lto", "Use link time optimization", false),
		options.NewInteger("b_lto_threads",
			"Use multiple threads for Link Time Optimization", nil, nil, 0),
		options.NewCombo("b_lto_mode", "Select between different LTO modes.",
			"default", []string{"default", "thin"}),
		options.NewCombo("b_sanitize", "Code sanitizer to use", "none",
			[]string{"none", "address", "thread", "undefined", "memory", "address,undefined"}),
		options.NewBoolean("b_lundef", "Use -Wl,--no-undefined when linking", true),
		options.NewBoolean("b_asneeded", "Use -Wl,--as-needed when linking", true),
		options.NewCombo("b_pgo", "Use profile guided optimization", "off",
			[]string{"off", "generate", "use"}),
		options.NewBoolean("b_coverage", "Enable coverage tracking.", false),
		options.NewCombo("b_colorout", "Use colored output", "always",
			[]string{"auto", "always", "never"}),
		options.NewCombo("b_ndebug", "Disable asserts", "false",
			[]string{"true", "false", "if-release"}),
		options.NewBoolean("b_staticpic", "Build static libraries as position independent", true),
		options.NewBoolean("b_pie", "Build executables as position independent", false),
		options.NewBoolean("b_bitcode", "Generate and embed bitcode (only macOS/iOS/tvOS)", false),
		options.NewCombo("b_vscrt", "VS run-time library type to use.", "from_buildtype",
			[]string{"none", "md", "mdd", "mt", "mtd", "from_buildtype", "static_from_buildtype"}),
	}
	m := make(map[options.Key]options.Option, len(all))
	for _, o := range all {
		m[options.NewKey(o.Name())] = o
	}
	return m
}

// AddBaseOptions registers the b_* options c opts into in s. Options
// another toolchain already registered are kept as they are.
func AddBaseOptions(s *options.Store, c *Compiler) {
	all := BaseOptions()
	for _, name := range c.BaseOptionNames() {
		key := options.NewKey(name)
		if s.Contains(key) {
			continue
		}
		s.AddSystemOption(key, all[key])
	}
}

// baseBool reads a bool b_* option, reporting false unless c opts into
// the option and the store holds it.
func baseBool(s *options.Store, c *Compiler, name string) (bool, bool) {
	if !c.HasBaseOption(name) {
		return false, false
	}
	return s.Bool(options.NewKey(name))
}

// baseString is baseBool for combo options.
func baseString(s *options.Store, c *Compiler, name string) (string, bool) {
	if !c.HasBaseOption(name) {
		return "", false
	}
	return s.String(options.NewKey(name))
}

func optionInt(s *options.Store, name string, fallback int) int {
	if v, ok := s.Int(options.NewKey(name)); ok {
		return v
	}
	return fallback
}

func optionString(s *options.Store, name, fallback string) string {
	if v, ok := s.String(options.NewKey(name)); ok {
		return v
	}
	return fallback
}

// optionEnabled reports whether a bool b_* option both applies to c
// and is turned on.
func optionEnabled(s *options.Store, c *Compiler, name string) bool {
	on, ok := baseBool(s, c, name)
	return ok && on
}

// appendBase appends extra to args unless the toolchain reported the
// capability as unsupported, which is logged once and skipped. Any
// other error is a real configuration problem and propagates.
func appendBase(ctx context.Context, args *[]string, extra []string, err error) error {
	if err != nil {
		if merrors.IsUnsupported(err) {
			mlog.WarnOnce(ctx, err.Error(), "%s, ignoring", err)
			return nil
		}
		return err
	}
	*args = append(*args, extra...)
	return nil
}

// GetBaseCompileArgs returns the compile arguments the b_* options in
// s imply for c. Options the toolchain does not opt into are skipped
// silently; capabilities it reports as unsupported are skipped with a
// one-time warning.
func GetBaseCompileArgs(ctx context.Context, s *options.Store, c *Compiler) ([]string, error) {
	var args []string
	if on, ok := baseBool(s, c, "b_lto"); ok && on {
		lto, err := c.LTOCompileArgs(
			optionInt(s, "b_lto_threads", 0), optionString(s, "b_lto_mode", "default"))
		if err := appendBase(ctx, &args, lto, err); err != nil {
			return nil, err
		}
	}
	if v, ok := baseString(s, c, "b_colorout"); ok {
		co, err := c.ColoroutArgs(v)
		if err := appendBase(ctx, &args, co, err); err != nil {
			return nil, err
		}
	}
	if v, ok := baseString(s, c, "b_sanitize"); ok {
		san, err := c.SanitizerCompileArgs(v)
		if err := appendBase(ctx, &args, san, err); err != nil {
			return nil, err
		}
	}
	if v, ok := baseString(s, c, "b_pgo"); ok {
		var pgo []string
		var err error
		switch v {
		case "generate":
			pgo, err = c.ProfileGenerateArgs()
		case "use":
			pgo, err = c.ProfileUseArgs()
		}
		if err := appendBase(ctx, &args, pgo, err); err != nil {
			return nil, err
		}
	}
	if on, ok := baseBool(s, c, "b_coverage"); ok && on {
		cov, err := c.CoverageArgs()
		if err := appendBase(ctx, &args, cov, err); err != nil {
			return nil, err
		}
	}
	if v, ok := baseString(s, c, "b_ndebug"); ok {
		buildtype := optionString(s, "buildtype", "")
		if v == "true" || (v == "if-release" && (buildtype == "release" || buildtype == "plain")) {
			args = append(args, c.DisableAssertArgs()...)
		}
	}
	if optionEnabled(s, c, "b_bitcode") {
		args = append(args, "-fembed-bitcode")
	}
	if crt, ok := baseString(s, c, "b_vscrt"); ok {
		if buildtype, okBT := s.String(options.NewKey("buildtype")); okBT {
			crtArgs, err := c.CRTCompileArgs(crt, buildtype)
			if err := appendBase(ctx, &args, crtArgs, err); err != nil {
				return nil, err
			}
		}
	}
	return args, nil
}

// GetBaseLinkArgs returns the link arguments the b_* options in s
// imply for c. isSharedModule excludes the arguments that conflict
// with -bundle style loadable modules.
func GetBaseLinkArgs(ctx context.Context, s *options.Store, c *Compiler, isSharedModule bool) ([]string, error) {
	var args []string
	if on, ok := baseBool(s, c, "b_lto"); ok && on {
		lto, err := c.LTOLinkArgs(
			optionInt(s, "b_lto_threads", 0), optionString(s, "b_lto_mode", "default"))
		if err := appendBase(ctx, &args, lto, err); err != nil {
			return nil, err
		}
	}
	if v, ok := baseString(s, c, "b_sanitize"); ok {
		args = append(args, c.SanitizerLinkArgs(v)...)
	}
	if v, ok := baseString(s, c, "b_pgo"); ok {
		var pgo []string
		var err error
		switch v {
		case "generate":
			pgo, err = c.ProfileGenerateArgs()
		case "use":
			pgo, err = c.ProfileUseArgs()
		}
		if err := appendBase(ctx, &args, pgo, err); err != nil {
			return nil, err
		}
	}
	if on, ok := baseBool(s, c, "b_coverage"); ok && on {
		cov, err := c.CoverageLinkArgs()
		if err := appendBase(ctx, &args, cov, err); err != nil {
			return nil, err
		}
	}
	asNeeded := optionEnabled(s, c, "b_asneeded")
	bitcode := optionEnabled(s, c, "b_bitcode")
	// A loadable module cannot carry bitcode: -bitcode_bundle is
	// incompatible with -undefined and -bundle.
	if bitcode && !isSharedModule {
		bc, err := c.BitcodeArgs()
		if err := appendBase(ctx, &args, bc, err); err != nil {
			return nil, err
		}
	} else if asNeeded {
		args = append(args, c.AsNeededArgs()...)
	}
	// Apple's ld dislikes -undefined and -headerpad_max_install_names
	// when bitcode is on.
	if !bitcode {
		args = append(args, c.HeaderpadArgs()...)
		if !isSharedModule && optionEnabled(s, c, "b_lundef") {
			args = append(args, c.NoUndefinedLinkArgs()...)
		} else {
			allow, err := c.AllowUndefinedLinkArgs()
			if err := appendBase(ctx, &args, allow, err); err != nil {
				return nil, err
			}
		}
	} else {
		mlog.WarnOnce(ctx, "b_bitcode-link",
			"b_bitcode is enabled; linker options incompatible with bitcode will be skipped")
	}
	if crt, ok := baseString(s, c, "b_vscrt"); ok {
		if buildtype, okBT := s.String(options.NewKey("buildtype")); okBT {
			// Toolchains whose linker step has no runtime choice of
			// its own skip this without noise.
			crtArgs, err := c.CRTLinkArgs(crt, buildtype)
			if err == nil {
				args = append(args, crtArgs...)
			} else if !merrors.IsUnsupported(err) {
				return nil, err
			}
		}
	}
	return args, nil
}
