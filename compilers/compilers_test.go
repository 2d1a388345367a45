// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/options"
)

func linuxInfo() machine.Info {
	return machine.Info{System: "linux", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
}

func darwinInfo() machine.Info {
	return machine.Info{System: "darwin", CPUFamily: "aarch64", CPU: "arm64", Endian: "little"}
}

func windowsInfo() machine.Info {
	return machine.Info{System: "windows", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
}

func testGcc(language, version string) *Compiler {
	ld := linkers.NewGnuBFDDynamicLinker([]string{"ld"}, machine.Host, "-Wl,", nil, "2.40")
	return NewGccCompiler(language, Toolchain{
		Exelist:    []string{"cc"},
		Version:    version,
		ForMachine: machine.Host,
		Info:       linuxInfo(),
		Linker:     ld,
	}, nil)
}

func testClang(info machine.Info, ld *linkers.DynamicLinker) *Compiler {
	return NewClangCompiler("c", Toolchain{
		Exelist:    []string{"clang"},
		Version:    "15.0.7",
		ForMachine: machine.Host,
		Info:       info,
		Linker:     ld,
	}, nil)
}

func testMSVC(language string) *Compiler {
	ld := linkers.NewMSVCDynamicLinker(nil, machine.Host, "", nil, "x64", "14.29", false)
	return NewMSVCCompiler(language, Toolchain{
		Exelist:    []string{"cl"},
		Version:    "19.29.30133",
		ForMachine: machine.Host,
		Info:       windowsInfo(),
		Linker:     ld,
	})
}

func TestCanCompile(t *testing.T) {
	gcc := testGcc("c", "12.2.0")
	for _, tc := range []struct {
		src  string
		want bool
	}{
		{src: "foo.c", want: true},
		{src: "dir/foo.c", want: true},
		{src: "foo.s", want: true}, // registered by the gnu family
		{src: "foo.h", want: true},
		{src: "foo.cpp", want: false},
		{src: "foo.rs", want: false},
		{src: "foo", want: false},
	} {
		if got := gcc.CanCompile(tc.src); got != tc.want {
			t.Errorf("gcc.CanCompile(%q)=%v; want %v", tc.src, got, tc.want)
		}
	}
	cython := NewCythonCompiler(Toolchain{Exelist: []string{"cython"}, Version: "0.29.30", ForMachine: machine.Build, Info: linuxInfo()})
	if !cython.CanCompile("mod.pyx") {
		t.Error("cython.CanCompile(mod.pyx)=false; want true")
	}
}

func TestOptimizationArgs(t *testing.T) {
	gcc := testGcc("c", "12.2.0")
	clang := testClang(linuxInfo(), linkers.NewLLVMDynamicLinker([]string{"ld.lld"}, machine.Host, "-Wl,", nil, "15.0.7", true))
	msvc := testMSVC("c")
	for _, tc := range []struct {
		name  string
		c     *Compiler
		level string
		want  []string
	}{
		{name: "gcc 0 is explicit", c: gcc, level: "0", want: []string{"-O0"}},
		{name: "gcc g", c: gcc, level: "g", want: []string{"-Og"}},
		{name: "gcc s", c: gcc, level: "s", want: []string{"-Os"}},
		{name: "clang s prefers Oz", c: clang, level: "s", want: []string{"-Oz"}},
		{name: "msvc 0", c: msvc, level: "0", want: []string{"/Od"}},
		{name: "msvc 3", c: msvc, level: "3", want: []string{"/O2", "/Gw"}},
		{name: "msvc g has no flag", c: msvc, level: "g", want: []string{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, tc.c.OptimizationArgs(tc.level)); diff != "" {
				t.Errorf("OptimizationArgs(%q): diff -want +got:\n%s", tc.level, diff)
			}
		})
	}
}

func TestGccLTOThreads(t *testing.T) {
	gcc := testGcc("c", "12.2.0")
	got, err := gcc.LTOCompileArgs(0, "default")
	if err != nil {
		t.Fatalf("LTOCompileArgs(0)=%v", err)
	}
	if diff := cmp.Diff([]string{"-flto"}, got); diff != "" {
		t.Errorf("LTOCompileArgs(0): diff -want +got:\n%s", diff)
	}
	got, err = gcc.LTOCompileArgs(4, "default")
	if err != nil {
		t.Fatalf("LTOCoompileArgs(4)=%v", err)
	}
	if diff := cmp.Diff([]string{"-flto=4"}, got); diff != "" {
		t.Errorf("LTOCompileArgs(4): diff -want +got:\n%s", diff)
	}
}

func TestClangThinLTO_LinkerGate(t *testing.T) {
	bfd := linkers.NewGnuBFDDynamicLinker([]string{"ld"}, machine.Host, "-Wl,", nil, "2.40")
	c := testClang(linuxInfo(), bfd)
	if _, err := c.LTOCompileArgs(0, "thin"); err == nil {
		t.Error("LTOCompileArgs(thin) with ld.bfd: no error; want linker error")
	}

	lld := linkers.NewLLVMDynamicLinker([]string{"ld.lld"}, machine.Host, "-Wl,", nil, "15.0.7", true)
	c = testClang(linuxInfo(), lld)
	got, err := c.LTOCompileArgs(0, "thin")
	if err != nil {
		t.Fatalf("LTOCompileArgs(thin) with ld.lld: %v", err)
	}
	if diff := cmp.Diff([]string{"-flto=thin"}, got); diff != "" {
		t.Errorf("LTOCompileArgs(thin): diff -want +got:\n%s", diff)
	}
}

func TestGccColorout_VersionGate(t *testing.T) {
	old := testGcc("c", "4.8.4")
	got, err := old.ColoroutArgs("always")
	if err != nil || len(got) != 0 {
		t.Errorf("gcc 4.8 ColoroutArgs=%v, %v; want empty, nil", got, err)
	}
	cur := testGcc("c", "12.2.0")
	got, err = cur.ColoroutArgs("always")
	if err != nil {
		t.Fatalf("ColoroutArgs: %v", err)
	}
	if diff := cmp.Diff([]string{"-fdiagnostics-color=always"}, got); diff != "" {
		t.Errorf("ColoroutArgs: diff -want +got:\n%s", diff)
	}
}

func TestPICArgs_Platform(t *testing.T) {
	linux := testGcc("c", "12.2.0")
	got, err := linux.PICArgs()
	if err != nil {
		t.Fatalf("PICArgs: %v", err)
	}
	if diff := cmp.Diff([]string{"-fPIC"}, got); diff != "" {
		t.Errorf("PICArgs linux: diff -want +got:\n%s", diff)
	}

	apple := NewAppleClangCompiler("c", Toolchain{
		Exelist:    []string{"clang"},
		Version:    "14.0.0",
		ForMachine: machine.Host,
		Info:       darwinInfo(),
		Linker:     linkers.NewAppleDynamicLinker([]string{"ld"}, machine.Host, "-Wl,", nil, "820.1"),
	}, nil)
	got, err = apple.PICArgs()
	if err != nil {
		t.Fatalf("PICArgs: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("PICArgs darwin=%v; want empty (always PIC)", got)
	}
}

func TestUnsupportedFeature(t *testing.T) {
	msvc := testMSVC("c")
	if _, err := msvc.LTOCompileArgs(0, "default"); !merrors.IsUnsupported(err) {
		t.Errorf("msvc LTOCompileArgs err=%v; want UnsupportedFeatureError", err)
	}
	if _, err := msvc.PIEArgs(); !merrors.IsUnsupported(err) {
		t.Errorf("msvc PIEArgs err=%v; want UnsupportedFeatureError", err)
	}
}

func TestMSVCCRTArgs(t *testing.T) {
	msvc := testMSVC("c")
	for _, tc := range []struct {
		crt, buildtype string
		want           []string
	}{
		{crt: "md", buildtype: "debug", want: []string{"/MD"}},
		{crt: "from_buildtype", buildtype: "debug", want: []string{"/MDd"}},
		{crt: "from_buildtype", buildtype: "release", want: []string{"/MD"}},
		{crt: "static_from_buildtype", buildtype: "release", want: []string{"/MT"}},
		{crt: "static_from_buildtype", buildtype: "debug", want: []string{"/MTd"}},
		{crt: "from_buildtype", buildtype: "plain", want: []string{}},
	} {
		got, err := msvc.CRTCompileArgs(tc.crt, tc.buildtype)
		if err != nil {
			t.Errorf("CRTCompileArgs(%q, %q)=%v", tc.crt, tc.buildtype, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("CRTCompileArgs(%q, %q): diff -want +got:\n%s", tc.crt, tc.buildtype, diff)
		}
	}
	if _, err := msvc.CRTCompileArgs("from_buildtype", "custom"); err == nil {
		t.Error("CRTCompileArgs(from_buildtype, custom): no error; want error")
	}
}

// baseStore builds a store holding c's base options plus buildtype.
func baseStore(t *testing.T, cs ...*Compiler) *options.Store {
	t.Helper()
	s := options.NewStore()
	for _, c := range cs {
		AddBaseOptions(s, c)
	}
	s.AddSystemOption(options.NewKey("buildtype"), options.NewCombo(
		"buildtype", "Build type to use", "debug", options.BuildtypeChoices))
	return s
}

func setOption(t *testing.T, s *options.Store, name string, value any) {
	t.Helper()
	if _, err := s.SetValue(context.Background(), options.NewKey(name), value); err != nil {
		t.Fatalf("SetValue(%s, %v): %v", name, value, err)
	}
}

func TestGetBaseCompileArgs_Defaults(t *testing.T) {
	ctx := context.Background()
	gcc := testGcc("c", "12.2.0")
	s := baseStore(t, gcc)

	got, err := GetBaseCompileArgs(ctx, s, gcc)
	if err != nil {
		t.Fatalf("GetBaseCompileArgs: %v", err)
	}
	// Only colorout is on by default.
	want := []string{"-fdiagnostics-color=always"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetBaseCompileArgs: diff -want +got:\n%s", diff)
	}
}

func TestGetBaseCompileArgs_Composition(t *testing.T) {
	ctx := context.Background()
	gcc := testGcc("c", "12.2.0")
	s := baseStore(t, gcc)
	setOption(t, s, "b_lto", true)
	setOption(t, s, "b_lto_threads", 4)
	setOption(t, s, "b_sanitize", "address")
	setOption(t, s, "b_ndebug", "if-release")
	setOption(t, s, "buildtype", "release")

	got, err := GetBaseCompileArgs(ctx, s, gcc)
	if err != nil {
		t.Fatalf("GetBaseCompileArgs: %v", err)
	}
	want := []string{
		"-flto=4",
		"-fdiagnostics-color=always",
		"-fsanitize=address", "-fno-omit-frame-pointer",
		"-DNDEBUG",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetBaseCompileArgs: diff -want +got:\n%s", diff)
	}
}

func TestGetBaseCompileArgs_NdebugIfRelease(t *testing.T) {
	ctx := context.Background()
	gcc := testGcc("c", "12.2.0")
	for _, tc := range []struct {
		buildtype string
		want      bool
	}{
		{buildtype: "release", want: true},
		{buildtype: "plain", want: true},
		{buildtype: "debug", want: false},
		{buildtype: "debugoptimized", want: false},
	} {
		s := baseStore(t, gcc)
		setOption(t, s, "b_ndebug", "if-release")
		setOption(t, s, "buildtype", tc.buildtype)
		got, err := GetBaseCompileArgs(ctx, s, gcc)
		if err != nil {
			t.Fatalf("GetBaseCompileArgs: %v", err)
		}
		has := false
		for _, a := range got {
			if a == "-DNDEBUG" {
				has = true
			}
		}
		if has != tc.want {
			t.Errorf("buildtype %s: -DNDEBUG present=%v; want %v", tc.buildtype, has, tc.want)
		}
	}
}

func TestGetBaseCompileArgs_VscrtFromBuildtype(t *testing.T) {
	ctx := context.Background()
	msvc := testMSVC("c")
	s := baseStore(t, msvc)

	got, err := GetBaseCompileArgs(ctx, s, msvc)
	if err != nil {
		t.Fatalf("GetBaseCompileArgs: %v", err)
	}
	if diff := cmp.Diff([]string{"/MDd"}, got); diff != "" {
		t.Errorf("debug buildtype: diff -want +got:\n%s", diff)
	}

	setOption(t, s, "buildtype", "release")
	setOption(t, s, "b_vscrt", "static_from_buildtype")
	got, err = GetBaseCompileArgs(ctx, s, msvc)
	if err != nil {
		t.Fatalf("GetBaseCompileArgs: %v", err)
	}
	if diff := cmp.Diff([]string{"/MT"}, got); diff != "" {
		t.Errorf("static_from_buildtype release: diff -want +got:\n%s", diff)
	}
}

func appleClangWithLd64() *Compiler {
	return NewAppleClangCompiler("c", Toolchain{
		Exelist:    []string{"clang"},
		Version:    "14.0.0",
		ForMachine: machine.Host,
		Info:       darwinInfo(),
		Linker:     linkers.NewAppleDynamicLinker([]string{"ld"}, machine.Host, "-Wl,", nil, "820.1"),
	}, nil)
}

func TestGetBaseLinkArgs_Defaults(t *testing.T) {
	ctx := context.Background()
	c := appleClangWithLd64()
	s := baseStore(t, c)

	got, err := GetBaseLinkArgs(ctx, s, c, false)
	if err != nil {
		t.Fatalf("GetBaseLinkArgs: %v", err)
	}
	want := []string{
		"-Wl,-dead_strip_dylibs",
		"-Wl,-headerpad_max_install_names",
		"-Wl,-undefined,error",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetBaseLinkArgs: diff -want +got:\n%s", diff)
	}
}

func TestGetBaseLinkArgs_BitcodeExcludes(t *testing.T) {
	ctx := context.Background()
	c := appleClangWithLd64()
	s := baseStore(t, c)
	setOption(t, s, "b_bitcode", true)

	got, err := GetBaseLinkArgs(ctx, s, c, false)
	if err != nil {
		t.Fatalf("GetBaseLinkArgs: %v", err)
	}
	// Bitcode displaces as-needed, headerpad and undefined handling.
	want := []string{"-Wl,-bitcode_bundle"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetBaseLinkArgs with bitcode: diff -want +got:\n%s", diff)
	}
}

func TestGetBaseLinkArgs_SharedModule(t *testing.T) {
	ctx := context.Background()
	c := appleClangWithLd64()
	s := baseStore(t, c)

	got, err := GetBaseLinkArgs(ctx, s, c, true)
	if err != nil {
		t.Fatalf("GetBaseLinkArgs: %v", err)
	}
	// A loadable module resolves symbols lazily, so it gets
	// -undefined,dynamic_lookup instead of -undefined,error.
	want := []string{
		"-Wl,-dead_strip_dylibs",
		"-Wl,-headerpad_max_install_names",
		"-Wl,-undefined,dynamic_lookup",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetBaseLinkArgs shared module: diff -want +got:\n%s", diff)
	}
}

func TestStdOption(t *testing.T) {
	ctx := context.Background()
	gcc := testGcc("c", "12.2.0")
	s := options.NewStore()
	for k, o := range gcc.Options() {
		s.AddCompilerOption("c", k, o)
	}

	if got := gcc.OptionCompileArgs(s); len(got) != 0 {
		t.Errorf("OptionCompileArgs with std=none: %v; want empty", got)
	}
	if _, err := s.SetValue(ctx, gcc.OptionKey("std"), "c11"); err != nil {
		t.Fatalf("SetValue(c_std): %v", err)
	}
	if diff := cmp.Diff([]string{"-std=c11"}, gcc.OptionCompileArgs(s)); diff != "" {
		t.Errorf("OptionCompileArgs: diff -want +got:\n%s", diff)
	}
}

func TestCompilerOptions_WinlibsOnlyOnWindows(t *testing.T) {
	gcc := testGcc("c", "12.2.0")
	if _, ok := gcc.Options()[gcc.OptionKey("winlibs")]; ok {
		t.Error("linux gcc registers winlibs; want absent")
	}
	msvc := testMSVC("c")
	o, ok := msvc.Options()[msvc.OptionKey("winlibs")]
	if !ok {
		t.Fatal("msvc winlibs option missing")
	}
	if diff := cmp.Diff(MSVCWinlibs, o.Value()); diff != "" {
		t.Errorf("winlibs default: diff -want +got:\n%s", diff)
	}
}

func TestRemoveLinkerlikeArgs(t *testing.T) {
	in := []string{
		"-DFOO", "-Wl,--as-needed", "-L/opt/lib", "-L", "/usr/lib",
		"-framework", "OpenGL", "-I/inc", "-headerpad_max_install_names", "-O2",
	}
	want := []string{"-DFOO", "-I/inc", "-O2"}
	if diff := cmp.Diff(want, RemoveLinkerlikeArgs(in)); diff != "" {
		t.Errorf("RemoveLinkerlikeArgs: diff -want +got:\n%s", diff)
	}
}

func TestSortClinkLangs(t *testing.T) {
	// C must sort ahead of C++ so it wins ties for sources both can
	// compile.
	if SortClinkLangs("c") >= SortClinkLangs("cpp") {
		t.Errorf("c=%d cpp=%d; want c < cpp", SortClinkLangs("c"), SortClinkLangs("cpp"))
	}
	if SortClinkLangs("cpp") >= SortClinkLangs("java") {
		t.Errorf("cpp=%d java=%d; want cpp < java", SortClinkLangs("cpp"), SortClinkLangs("java"))
	}
}

func TestLargefileArgs(t *testing.T) {
	gcc := testGcc("c", "12.2.0")
	if diff := cmp.Diff([]string{"-D_FILE_OFFSET_BITS=64"}, gcc.LargefileArgs()); diff != "" {
		t.Errorf("gcc LargefileArgs: diff -want +got:\n%s", diff)
	}
	if got := appleClangWithLd64().LargefileArgs(); len(got) != 0 {
		t.Errorf("darwin LargefileArgs=%v; want empty", got)
	}
	if got := testMSVC("c").LargefileArgs(); len(got) != 0 {
		t.Errorf("msvc LargefileArgs=%v; want empty", got)
	}
}

func TestComputeParametersWithAbsolutePaths(t *testing.T) {
	gcc := testGcc("c", "12.2.0")
	got, err := gcc.ComputeParametersWithAbsolutePaths(
		[]string{"-Iinclude", "-I/abs/include", "-Lsub/lib", "-DFOO"}, "/build")
	if err != nil {
		t.Fatalf("ComputeParametersWithAbsolutePaths: %v", err)
	}
	want := []string{"-I/build/include", "-I/abs/include", "-L/build/sub/lib", "-DFOO"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("gcc: diff -want +got:\n%s", diff)
	}

	msvc := testMSVC("c")
	got, err = msvc.ComputeParametersWithAbsolutePaths(
		[]string{"/Iinclude", "-Iother", "/LIBPATH:lib"}, "/build")
	if err != nil {
		t.Fatalf("ComputeParametersWithAbsolutePaths: %v", err)
	}
	want = []string{"/I/build/include", "-I/build/other", "/LIBPATH:/build/lib"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("msvc: diff -want +got:\n%s", diff)
	}
}

func TestThreadFlags(t *testing.T) {
	gcc := testGcc("c", "12.2.0")
	if diff := cmp.Diff([]string{"-pthread"}, gcc.ThreadFlags(linuxInfo())); diff != "" {
		t.Errorf("ThreadFlags linux: diff -want +got:\n%s", diff)
	}
	if got := gcc.ThreadFlags(darwinInfo()); len(got) != 0 {
		t.Errorf("ThreadFlags darwin=%v; want empty", got)
	}
}
