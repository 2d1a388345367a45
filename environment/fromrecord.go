// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package environment

import (
	"context"
	"fmt"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/coredata"
	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
)

// RestoreOptions rebuilds the live option store of a configured build
// directory: builtin options first, then the options of every
// toolchain recorded for the host machine, then the persisted values
// on top. A record this version cannot rebuild falls back to a fresh
// detection, with a warning.
func RestoreOptions(ctx context.Context, env *Environment, s *options.Store, d *coredata.Data) ([]*compilers.Compiler, error) {
	if err := options.InitBuiltinOptions(ctx, s, map[options.Key]string{}); err != nil {
		return nil, err
	}
	langs := d.Languages(machine.Host)
	comps := make([]*compilers.Compiler, 0, len(langs))
	for _, lang := range langs {
		rec, _ := d.Toolchain(machine.Host, lang)
		comp, err := CompilerFromRecord(env, machine.Host, rec)
		if err != nil {
			mlog.Warnf(ctx, "%v, probing the %s toolchain again", err, lang)
			comp, err = DetectCompiler(ctx, env, lang, machine.Host)
			if err != nil {
				return nil, err
			}
		}
		comps = append(comps, comp)
	}
	for _, comp := range comps {
		env.RegisterCompilerOptions(ctx, s, comp, nil)
	}
	if err := d.ApplyOptions(ctx, s); err != nil {
		return nil, err
	}
	return comps, nil
}

// CompilerFromRecord rebuilds a previously detected compiler from its
// coredata record without running the tool again. A record this
// version cannot rebuild reports an error; the caller should fall
// back to a fresh detection then.
func CompilerFromRecord(env *Environment, m machine.Choice, rec coredata.ToolchainRecord) (*compilers.Compiler, error) {
	linker, err := linkerFromRecord(m, rec.Linker)
	if err != nil {
		return nil, err
	}
	tc := compilers.Toolchain{
		Exelist:     rec.Exelist,
		Version:     rec.Version,
		FullVersion: rec.FullVersion,
		ForMachine:  m,
		Info:        env.Machine(m),
		IsCross:     rec.IsCross,
		Linker:      linker,
	}
	switch rec.ID {
	case "gcc":
		return compilers.NewGccCompiler(rec.Language, tc, rec.Defines), nil
	case "clang":
		// Xcode's clang reports the plain clang id; the define tells
		// the forks apart.
		if _, ok := rec.Defines["__apple_build_version__"]; ok {
			return compilers.NewAppleClangCompiler(rec.Language, tc, rec.Defines), nil
		}
		return compilers.NewClangCompiler(rec.Language, tc, rec.Defines), nil
	case "intel":
		return compilers.NewIntelGnuCompiler(rec.Language, tc), nil
	case "msvc":
		return compilers.NewMSVCCompiler(rec.Language, tc), nil
	case "clang-cl":
		return compilers.NewClangClCompiler(rec.Language, tc), nil
	case "intel-cl":
		return compilers.NewIntelClCompiler(rec.Language, tc), nil
	case "armclang":
		return compilers.NewArmClangCompiler(rec.Language, tc)
	case "xc16":
		return compilers.NewXc16Compiler(tc)
	case "ccomp":
		return compilers.NewCompCertCompiler(tc), nil
	case "ti":
		return compilers.NewTICompiler(rec.Language, tc)
	case "c2000":
		return compilers.NewC2000Compiler(rec.Language, tc)
	case "rustc":
		return compilers.NewRustCompiler(tc), nil
	case "clippy-driver rustc":
		return compilers.NewClippyRustCompiler(tc), nil
	case "mono":
		return compilers.NewMonoCompiler(tc), nil
	case "csc":
		return compilers.NewVisualStudioCsCompiler(tc), nil
	case "cython":
		return compilers.NewCythonCompiler(tc), nil
	case "llvm": // swiftc
		return compilers.NewSwiftCompiler(tc), nil
	}
	return nil, fmt.Errorf("cannot rebuild %s compiler %q from its record", rec.Language, rec.ID)
}

// linkerFromRecord rebuilds the dynamic linker named by rec. Linkers
// whose construction needs probe output the record does not carry,
// such as the Solaris -z help text, report an error so the caller
// re-detects instead.
func linkerFromRecord(m machine.Choice, rec *coredata.LinkerRecord) (*linkers.DynamicLinker, error) {
	if rec == nil {
		return nil, nil
	}
	switch rec.ID {
	case "ld.bfd":
		return linkers.NewGnuBFDDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "ld.gold":
		return linkers.NewGnuGoldDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "ld.mold":
		return linkers.NewMoldDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "ld.lld":
		return linkers.NewLLVMDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version, rec.AllowShlibUndefined), nil
	case "ld.qcld":
		return linkers.NewQualcommLLVMDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version, rec.AllowShlibUndefined), nil
	case "ld.wasm":
		return linkers.NewWASMDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "ld64":
		return linkers.NewAppleDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "link":
		return linkers.NewMSVCDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.MachineArg, rec.Version, rec.Direct), nil
	case "lld-link":
		return linkers.NewClangClDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.MachineArg, rec.Version, rec.Direct), nil
	case "xilink":
		return linkers.NewXilinkDynamicLinker(m, rec.AlwaysArgs, rec.Version), nil
	case "optlink":
		return linkers.NewOptlinkDynamicLinker(rec.Exelist, m, rec.Version), nil
	case "ld.aix":
		return linkers.NewAIXDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "pgi":
		return linkers.NewPGIDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "nvlink":
		return linkers.NewCudaDynamicLinker(rec.Exelist, m, rec.Prefix, rec.AlwaysArgs, rec.Version), nil
	case "armlink":
		// Detection only ever builds the armclang flavor.
		return linkers.NewArmClangDynamicLinker(m, rec.Version), nil
	case "rlink":
		return linkers.NewCcrxDynamicLinker(m, rec.Version), nil
	case "xc16-gcc":
		return linkers.NewXc16DynamicLinker(m, rec.Version), nil
	case "ccomp":
		return linkers.NewCompCertDynamicLinker(m, rec.Version), nil
	case "ti":
		return linkers.NewTIDynamicLinker(rec.Exelist, m, rec.Version), nil
	case "cl2000":
		return linkers.NewC2000DynamicLinker(rec.Exelist, m, rec.Version), nil
	}
	return nil, fmt.Errorf("cannot rebuild linker %q from its record", rec.ID)
}
