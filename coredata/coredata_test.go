// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package coredata

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/options"
)

func testGcc() *compilers.Compiler {
	ld := linkers.NewGnuBFDDynamicLinker([]string{"ld"}, machine.Host, "-Wl,", nil, "2.40")
	return compilers.NewGccCompiler("c", compilers.Toolchain{
		Exelist:     []string{"cc"},
		Version:     "12.2.0",
		FullVersion: "cc (GCC) 12.2.0",
		ForMachine:  machine.Host,
		Info:        machine.Info{System: "linux", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"},
		Linker:      ld,
	}, map[string]string{"__GNUC__": "12"})
}

func testStore(t *testing.T) *options.Store {
	t.Helper()
	s := options.NewStore()
	s.AddSystemOption(options.NewKey("buildtype"), options.NewCombo("buildtype", "Build type to use", "debug", options.BuildtypeChoices))
	s.AddSystemOption(options.NewKey("b_lto"), options.NewBoolean("b_lto", "Use link time optimization", false))
	s.AddSystemOption(options.NewKey("unity_size"), options.NewInteger("unity_size", "Unity block size", nil, nil, 4))
	s.AddCompilerOption("c", options.NewKey("c_args"), options.NewArgsArray("c_args", "C compile arguments", nil))
	return s
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	buildDir := t.TempDir()

	d := New()
	if d.Version != Version {
		t.Errorf("New().Version=%q; want %q", d.Version, Version)
	}
	if d.RunID == "" {
		t.Error("New().RunID is empty")
	}
	d.CmdLineArgs = []string{"-Dbuildtype=release", "-Db_lto=true"}
	d.SetMachine(machine.Build, machine.Info{System: "linux", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"})
	d.SetMachine(machine.Host, machine.Info{System: "linux", CPUFamily: "aarch64", CPU: "aarch64", Endian: "little"})
	d.SetToolchain(machine.Host, RecordToolchain(testGcc()))

	if err := Save(ctx, d, buildDir); err != nil {
		t.Fatalf("Save=%v", err)
	}
	got, err := Load(ctx, buildDir)
	if err != nil {
		t.Fatalf("Load=%v", err)
	}
	if got.Version != Version {
		t.Errorf("Version=%q; want %q", got.Version, Version)
	}
	if got.RunID != d.RunID {
		t.Errorf("RunID=%q; want %q", got.RunID, d.RunID)
	}
	if diff := cmp.Diff(d.CmdLineArgs, got.CmdLineArgs); diff != "" {
		t.Errorf("CmdLineArgs: diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff(d.Machines, got.Machines); diff != "" {
		t.Errorf("Machines: diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff(d.Compilers, got.Compilers); diff != "" {
		t.Errorf("Compilers: diff -want +got:\n%s", diff)
	}

	info, ok := got.Machine(machine.Host)
	if !ok {
		t.Fatal("Machine(host) not recorded")
	}
	if info.CPUFamily != "aarch64" {
		t.Errorf("host CPUFamily=%q; want aarch64", info.CPUFamily)
	}
	if diff := cmp.Diff([]string{"c"}, got.Languages(machine.Host)); diff != "" {
		t.Errorf("Languages(host): diff -want +got:\n%s", diff)
	}
	if langs := got.Languages(machine.Build); len(langs) != 0 {
		t.Errorf("Languages(build)=%v; want none", langs)
	}
	if _, ok := got.Toolchain(machine.Build, "c"); ok {
		t.Error("Toolchain(build, c) found; want miss")
	}
}

func TestRecordToolchain(t *testing.T) {
	rec := RecordToolchain(testGcc())
	want := ToolchainRecord{
		ID:          "gcc",
		Language:    "c",
		Exelist:     []string{"cc"},
		Version:     "12.2.0",
		FullVersion: "cc (GCC) 12.2.0",
		Defines:     map[string]string{"__GNUC__": "12"},
		Linker:      &LinkerRecord{ID: "ld.bfd", Exelist: []string{"ld"}, Version: "2.40", Prefix: "-Wl,"},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("RecordToolchain: diff -want +got:\n%s", diff)
	}
}

func TestRecordStaticLinker(t *testing.T) {
	rec := RecordStaticLinker(linkers.NewArLinker([]string{"ar"}, "usage: ar [D]"))
	want := &LinkerRecord{ID: "ar", Exelist: []string{"ar"}}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("RecordStaticLinker: diff -want +got:\n%s", diff)
	}
	if got := RecordStaticLinker(nil); got != nil {
		t.Errorf("RecordStaticLinker(nil)=%v; want nil", got)
	}
}

func TestApplyOptions(t *testing.T) {
	ctx := context.Background()
	buildDir := t.TempDir()

	s := testStore(t)
	mustSet := func(k options.Key, v any) {
		t.Helper()
		if _, err := s.SetValue(ctx, k, v); err != nil {
			t.Fatalf("SetValue(%s, %v)=%v", k, v, err)
		}
	}
	mustSet(options.NewKey("buildtype"), "release")
	mustSet(options.NewKey("b_lto"), true)
	mustSet(options.NewKey("unity_size"), 64)
	mustSet(options.NewKey("c_args"), []string{"-DFOO", "-O2"})

	d := New()
	d.CaptureOptions(s)
	// A stored option whose owner is gone must not break the apply.
	d.Options[options.NewKey("cpp_args")] = []string{"-DGONE"}
	if err := Save(ctx, d, buildDir); err != nil {
		t.Fatalf("Save=%v", err)
	}
	got, err := Load(ctx, buildDir)
	if err != nil {
		t.Fatalf("Load=%v", err)
	}

	s2 := testStore(t)
	if err := got.ApplyOptions(ctx, s2); err != nil {
		t.Fatalf("ApplyOptions=%v", err)
	}
	if v, _ := s2.String(options.NewKey("buildtype")); v != "release" {
		t.Errorf("buildtype=%q; want release", v)
	}
	if v, _ := s2.Bool(options.NewKey("b_lto")); !v {
		t.Error("b_lto=false; want true")
	}
	// JSON hands numbers back as float64; the integer option must still
	// land as an int.
	if v, ok := s2.Int(options.NewKey("unity_size")); !ok || v != 64 {
		t.Errorf("unity_size=%d (ok=%v); want 64", v, ok)
	}
	v, _ := s2.Strings(options.NewKey("c_args"))
	if diff := cmp.Diff([]string{"-DFOO", "-O2"}, v); diff != "" {
		t.Errorf("c_args: diff -want +got:\n%s", diff)
	}
}

func TestCheckCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	buildDir := t.TempDir()

	cc := compilers.NewCheckCache()
	cc.Restore(map[string]*compilers.CompileResult{
		"k1": {Command: []string{"cc", "t.c"}, ReturnCode: 0, Stdout: "ok"},
		"k2": {ReturnCode: 1, Stderr: "no such header"},
	})
	d := New()
	d.CaptureCheckCache(cc)
	if err := Save(ctx, d, buildDir); err != nil {
		t.Fatalf("Save=%v", err)
	}
	got, err := Load(ctx, buildDir)
	if err != nil {
		t.Fatalf("Load=%v", err)
	}

	cc2 := compilers.NewCheckCache()
	got.RestoreCheckCache(cc2)
	if cc2.Len() != 2 {
		t.Fatalf("restored cache Len()=%d; want 2", cc2.Len())
	}
	if diff := cmp.Diff(cc.Snapshot(), cc2.Snapshot()); diff != "" {
		t.Errorf("check cache: diff -want +got:\n%s", diff)
	}
}

func TestLoadNotConfigured(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load on empty dir=%v; want fs.ErrNotExist", err)
	}
}

func TestLoadVersionMismatch(t *testing.T) {
	ctx := context.Background()
	buildDir := t.TempDir()
	if err := os.MkdirAll(PrivateDir(buildDir), 0o755); err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(&Data{Version: "2.0.0", RunID: "old"})
	if err != nil {
		t.Fatal(err)
	}
	if err := saveFile(ctx, File(buildDir), b); err != nil {
		t.Fatal(err)
	}

	_, err = Load(ctx, buildDir)
	var vme *VersionMismatchError
	if !errors.As(err, &vme) {
		t.Fatalf("Load=%v; want VersionMismatchError", err)
	}
	if vme.Configured != "2.0.0" || vme.Current != Version {
		t.Errorf("VersionMismatchError=%+v; want Configured=2.0.0 Current=%s", vme, Version)
	}
}

func TestLoadCorrupt(t *testing.T) {
	buildDir := t.TempDir()
	if err := os.MkdirAll(PrivateDir(buildDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(File(buildDir), []byte("not a zstd frame"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), buildDir)
	if err == nil {
		t.Fatal("Load succeeded on corrupt file")
	}
	if !strings.Contains(err.Error(), "corrupted") {
		t.Errorf("Load=%v; want corruption error", err)
	}
}

func TestSaveKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	buildDir := t.TempDir()

	d1 := New()
	if err := Save(ctx, d1, buildDir); err != nil {
		t.Fatalf("first Save=%v", err)
	}
	d2 := New()
	if err := Save(ctx, d2, buildDir); err != nil {
		t.Fatalf("second Save=%v", err)
	}

	got, err := Load(ctx, buildDir)
	if err != nil {
		t.Fatalf("Load=%v", err)
	}
	if got.RunID != d2.RunID {
		t.Errorf("current RunID=%q; want %q", got.RunID, d2.RunID)
	}

	b, err := loadFile(ctx, File(buildDir)+".0")
	if err != nil {
		t.Fatalf("loading previous state: %v", err)
	}
	prev := &Data{}
	if err := json.Unmarshal(b, prev); err != nil {
		t.Fatalf("decoding previous state: %v", err)
	}
	if prev.RunID != d1.RunID {
		t.Errorf("previous RunID=%q; want %q", prev.RunID, d1.RunID)
	}

	if _, err := os.Stat(File(buildDir) + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestSaveVersionGate(t *testing.T) {
	d := New()
	d.Version = "0.60.0"
	err := Save(context.Background(), d, t.TempDir())
	var vme *VersionMismatchError
	if !errors.As(err, &vme) {
		t.Fatalf("Save=%v; want VersionMismatchError", err)
	}
}

func TestMajorVersionsDiffer(t *testing.T) {
	for _, tc := range []struct {
		v1, v2 string
		want   bool
	}{
		{"1.3.0", "1.3.0", false},
		{"1.3.0", "1.3.99", false},
		{"1.3.0", "1.4.0", true},
		{"1.3.0", "2.3.0", true},
		{"1.3", "1.3.5", false},
		{"1.3.0.rc1", "1.3.0", false},
	} {
		if got := MajorVersionsDiffer(tc.v1, tc.v2); got != tc.want {
			t.Errorf("MajorVersionsDiffer(%q, %q)=%v; want %v", tc.v1, tc.v2, got, tc.want)
		}
	}
}
