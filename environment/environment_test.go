// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package environment

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/execute"
	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/options"
)

// fakeExecutor records the commands it is asked to run and delegates
// their behavior to run.
type fakeExecutor struct {
	mu   sync.Mutex
	cmds []*execute.Cmd
	run  func(cmd *execute.Cmd) error
}

func (f *fakeExecutor) Run(ctx context.Context, cmd *execute.Cmd) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.mu.Unlock()
	if f.run == nil {
		return nil
	}
	return f.run(cmd)
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cmds)
}

func (f *fakeExecutor) cmd(t *testing.T, i int) *execute.Cmd {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.cmds) {
		t.Fatalf("executor ran %d commands; want at least %d", len(f.cmds), i+1)
	}
	return f.cmds[i]
}

func linuxInfo() machine.Info {
	return machine.Info{System: "linux", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
}

func windowsInfo() machine.Info {
	return machine.Info{System: "windows", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
}

// testEnv returns a native linux environment backed by fake and the
// given variables.
func testEnv(t *testing.T, fake *fakeExecutor, vars map[string]string) *Environment {
	t.Helper()
	return &Environment{
		build:      linuxInfo(),
		host:       linuxInfo(),
		Getenv:     func(k string) string { return vars[k] },
		Executor:   fake,
		ScratchDir: t.TempDir(),
	}
}

func TestSearchVersion(t *testing.T) {
	for _, tc := range []struct {
		text string
		want string
	}{
		{"cc (Debian 12.2.0-14) 12.2.0", "12.2.0-14"},
		{"Debian clang version 15.0.7", "15.0.7"},
		{"GNU ld (GNU Binutils for Debian) 2.40", "2.40"},
		{"Microsoft (R) C/C++ Optimizing Compiler Version 19.29.30133 for x64", "19.29.30133"},
		{"rustc 1.73.0 (cc66ad468 2023-10-03)", "1.73.0"},
		{"Apple Swift version 5.9", "5.9"},
		// A date is not a version; the fallback still finds the dotted
		// build id.
		{"Build 20180804 of 2020.01.100", "2020.01.100"},
		{"no digits here", UnknownVersion},
		{"", UnknownVersion},
	} {
		if got := SearchVersion(tc.text); got != tc.want {
			t.Errorf("SearchVersion(%q)=%q; want %q", tc.text, got, tc.want)
		}
	}
}

func TestEnvVar(t *testing.T) {
	native := testEnv(t, nil, map[string]string{"CC": "gcc", "CC_FOR_BUILD": "other"})
	for _, m := range machine.Choices() {
		// A native build reads the plain name for both machines.
		if v, ok := native.EnvVar(m, "CC"); !ok || v != "gcc" {
			t.Errorf("native EnvVar(%s, CC)=%q, %v; want gcc, true", m, v, ok)
		}
	}

	cross := NewCross(machine.Info{System: "linux", CPUFamily: "aarch64", CPU: "aarch64", Endian: "little"})
	cross.Getenv = func(k string) string {
		return map[string]string{"CC": "aarch64-linux-gnu-gcc", "CC_FOR_BUILD": "gcc"}[k]
	}
	if v, _ := cross.EnvVar(machine.Host, "CC"); v != "aarch64-linux-gnu-gcc" {
		t.Errorf("cross EnvVar(host, CC)=%q; want the cross compiler", v)
	}
	if v, _ := cross.EnvVar(machine.Build, "CC"); v != "gcc" {
		t.Errorf("cross EnvVar(build, CC)=%q; want the _FOR_BUILD value", v)
	}
	if _, ok := cross.EnvVar(machine.Build, "CXX"); ok {
		t.Error("cross EnvVar(build, CXX) reports set; want unset")
	}

	if !cross.IsCross() || cross.MachineIsCross(machine.Build) || !cross.MachineIsCross(machine.Host) {
		t.Errorf("cross machine flags: IsCross=%v build=%v host=%v; want true, false, true",
			cross.IsCross(), cross.MachineIsCross(machine.Build), cross.MachineIsCross(machine.Host))
	}
}

func TestCollectEnvOptions(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, nil, map[string]string{
		"CFLAGS":    "-O2 -g",
		"CPPFLAGS":  "-DFROM_CPP",
		"LDFLAGS":   "-L/opt/lib -Wl,-z,now",
		"RUSTFLAGS": "--edition 2021",
	})
	if err := env.CollectEnvOptions(ctx); err != nil {
		t.Fatalf("CollectEnvOptions: %v", err)
	}
	for _, tc := range []struct {
		key  options.Key
		want []string
	}{
		// CPPFLAGS lands after the language's own flags.
		{options.Key{Name: "c_args", Machine: machine.Host}, []string{"-O2", "-g", "-DFROM_CPP"}},
		{options.Key{Name: "c_args", Machine: machine.Build}, []string{"-O2", "-g", "-DFROM_CPP"}},
		{options.Key{Name: "cpp_args", Machine: machine.Host}, []string{"-DFROM_CPP"}},
		{options.Key{Name: "rust_args", Machine: machine.Host}, []string{"--edition", "2021"}},
		{options.Key{Name: "c_link_args", Machine: machine.Host}, []string{"-L/opt/lib", "-Wl,-z,now"}},
		// rustc reads RUSTFLAGS but never LDFLAGS.
		{options.Key{Name: "rust_link_args", Machine: machine.Host}, nil},
	} {
		if diff := cmp.Diff(tc.want, env.envArgs(tc.key)); diff != "" {
			t.Errorf("envArgs(%s): diff -want +got:\n%s", tc.key, diff)
		}
	}
}

func TestCollectEnvOptions_BadValue(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, nil, map[string]string{"CFLAGS": `-DOOPS="unterminated`})
	if err := env.CollectEnvOptions(ctx); err == nil {
		t.Fatal("CollectEnvOptions succeeded on an unterminated quote; want error")
	}
}

func testGcc(t *testing.T, language string) *compilers.Compiler {
	t.Helper()
	ld := linkers.NewGnuBFDDynamicLinker([]string{"cc"}, machine.Host, "-Wl,", nil, "2.40")
	return compilers.NewGccCompiler(language, compilers.Toolchain{
		Exelist:    []string{"cc"},
		Version:    "12.2.0",
		ForMachine: machine.Host,
		Info:       linuxInfo(),
		Linker:     ld,
	}, nil)
}

func TestRegisterCompilerOptions(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, nil, map[string]string{
		"CFLAGS":  "-O2",
		"LDFLAGS": "-L/opt/lib",
	})
	if err := env.CollectEnvOptions(ctx); err != nil {
		t.Fatalf("CollectEnvOptions: %v", err)
	}
	gcc := testGcc(t, "c")
	s := options.NewStore()
	env.RegisterCompilerOptions(ctx, s, gcc, nil)

	argkey := gcc.OptionKey("args")
	v, ok := s.Value(argkey)
	if !ok {
		t.Fatalf("store has no %s", argkey)
	}
	if diff := cmp.Diff([]string{"-O2"}, v); diff != "" {
		t.Errorf("%s: diff -want +got:\n%s", argkey, diff)
	}

	// gcc drives its own link step, so environment compile flags reach
	// the link line behind LDFLAGS.
	largkey := gcc.OptionKey("link_args")
	v, ok = s.Value(largkey)
	if !ok {
		t.Fatalf("store has no %s", largkey)
	}
	if diff := cmp.Diff([]string{"-L/opt/lib", "-O2"}, v); diff != "" {
		t.Errorf("%s: diff -want +got:\n%s", largkey, diff)
	}

	// The compiler's own options and its base options ride along.
	if !s.Contains(gcc.OptionKey("std")) {
		t.Errorf("store has no %s", gcc.OptionKey("std"))
	}
	if !s.Contains(options.NewKey("b_lto")) {
		t.Error("store has no b_lto")
	}
}

func TestRegisterCompilerOptions_CmdlineWins(t *testing.T) {
	ctx := context.Background()
	env := testEnv(t, nil, map[string]string{
		"CFLAGS":  "-O2",
		"LDFLAGS": "-L/opt/lib",
	})
	if err := env.CollectEnvOptions(ctx); err != nil {
		t.Fatalf("CollectEnvOptions: %v", err)
	}
	gcc := testGcc(t, "c")
	s := options.NewStore()
	argkey := gcc.OptionKey("args")
	env.RegisterCompilerOptions(ctx, s, gcc, map[options.Key]string{argkey: "-O3"})

	// With c_args given on the command line the environment compile
	// flags stay off the link line; the -D value itself is applied by
	// the caller afterwards.
	v, _ := s.Value(gcc.OptionKey("link_args"))
	if diff := cmp.Diff([]string{"-L/opt/lib"}, v); diff != "" {
		t.Errorf("link args: diff -want +got:\n%s", diff)
	}
}

func TestRegisterCompilerOptions_PerMachine(t *testing.T) {
	ctx := context.Background()
	cross := NewCross(machine.Info{System: "linux", CPUFamily: "aarch64", CPU: "aarch64", Endian: "little"})
	cross.Getenv = func(k string) string {
		return map[string]string{
			"CFLAGS":           "-mbranch-protection=standard",
			"CFLAGS_FOR_BUILD": "-O1",
		}[k]
	}
	if err := cross.CollectEnvOptions(ctx); err != nil {
		t.Fatalf("CollectEnvOptions: %v", err)
	}
	if diff := cmp.Diff([]string{"-mbranch-protection=standard"},
		cross.envArgs(options.Key{Name: "c_args", Machine: machine.Host})); diff != "" {
		t.Errorf("host c_args: diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-O1"},
		cross.envArgs(options.Key{Name: "c_args", Machine: machine.Build})); diff != "" {
		t.Errorf("build c_args: diff -want +got:\n%s", diff)
	}
}
