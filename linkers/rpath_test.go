// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linkers

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/eli-schwartz/meson/machine"
)

var (
	linuxMachine     = machine.Info{System: "linux", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
	windowsMachine   = machine.Info{System: "windows", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
	darwinMachine    = machine.Info{System: "darwin", CPUFamily: "aarch64", CPU: "aarch64", Endian: "little"}
	sunosMachine     = machine.Info{System: "sunos", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
	dragonflyMachine = machine.Info{System: "dragonfly", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
	haikuMachine     = machine.Info{System: "haiku", CPUFamily: "x86_64", CPU: "x86_64", Endian: "little"}
	aixMachine       = machine.Info{System: "aix", CPUFamily: "ppc64", CPU: "ppc64", Endian: "big"}
)

func TestEvaluateRPath(t *testing.T) {
	for _, tc := range []struct {
		p, buildDir, fromDir string
		want                 string
	}{
		{"sub", "/proj/build", "sub", ""},
		{"/opt/vendor/lib", "/proj/build", "sub", "/opt/vendor/lib"},
		{"libs", "/proj/build", "sub", "../libs"},
		{"sub/inner", "/proj/build", "sub", "inner"},
		{"other/libs", "/proj/build", "sub/deep", "../../other/libs"},
	} {
		got := evaluateRPath(tc.p, tc.buildDir, tc.fromDir)
		if got != tc.want {
			t.Errorf("evaluateRPath(%q, %q, %q)=%q; want %q", tc.p, tc.buildDir, tc.fromDir, got, tc.want)
		}
	}
}

func TestOrderRPaths(t *testing.T) {
	got := orderRPaths([]string{"/usr/lib", "../libs", "/opt/lib", "inner"})
	want := []string{"../libs", "inner", "/usr/lib", "/opt/lib"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("orderRPaths: diff -want +got:\n%s", diff)
	}
}

func TestPadRPath(t *testing.T) {
	for _, tc := range []struct {
		paths, installRPath string
		want                string
	}{
		{"abc", "", "abc"},
		{"abcdef", "abc", "abcdef"},
		{"abc", "abcdef", "abc:XXX"},
		{"", "abcd", "XXXX"},
	} {
		got := padRPath(tc.paths, tc.installRPath)
		if got != tc.want {
			t.Errorf("padRPath(%q, %q)=%q; want %q", tc.paths, tc.installRPath, got, tc.want)
		}
	}
}

func TestGnuBuildRPathArgs(t *testing.T) {
	l := NewGnuBFDDynamicLinker([]string{"ld.bfd"}, machine.Host, "-Wl,", nil, "2.38")
	for _, tc := range []struct {
		name       string
		req        RPathRequest
		want       []string
		wantRemove map[string]bool
	}{
		{
			name: "basic",
			req: RPathRequest{
				Machine:  linuxMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
				RPaths:   []string{"libs"},
			},
			want: []string{
				"-Wl,-rpath,$ORIGIN/../libs",
				"-Wl,-rpath-link,/proj/build/libs",
			},
			wantRemove: map[string]bool{"$ORIGIN/../libs": true},
		},
		{
			name: "duplicates collapse in rpath only",
			req: RPathRequest{
				Machine:  linuxMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
				RPaths:   []string{"libs", "libs"},
			},
			want: []string{
				"-Wl,-rpath,$ORIGIN/../libs",
				"-Wl,-rpath-link,/proj/build/libs",
				"-Wl,-rpath-link,/proj/build/libs",
			},
			wantRemove: map[string]bool{"$ORIGIN/../libs": true},
		},
		{
			name: "build rpath appended and split for removal",
			req: RPathRequest{
				Machine:    linuxMachine,
				BuildDir:   "/proj/build",
				FromDir:    "sub",
				RPaths:     []string{"libs"},
				BuildRPath: "/extra/one:/extra/two",
			},
			want: []string{
				"-Wl,-rpath,$ORIGIN/../libs:/extra/one:/extra/two",
				"-Wl,-rpath-link,/proj/build/libs",
			},
			wantRemove: map[string]bool{
				"$ORIGIN/../libs": true,
				"/extra/one":      true,
				"/extra/two":      true,
			},
		},
		{
			name: "install rpath reserves space",
			req: RPathRequest{
				Machine:      linuxMachine,
				BuildDir:     "/proj/build",
				FromDir:      "sub",
				RPaths:       []string{"libs"},
				InstallRPath: "/opt/lib/install1234",
			},
			want: []string{
				"-Wl,-rpath,$ORIGIN/../libs:XXXXX",
				"-Wl,-rpath-link,/proj/build/libs",
			},
			wantRemove: map[string]bool{"$ORIGIN/../libs": true},
		},
		{
			name: "absolute entry stays absolute",
			req: RPathRequest{
				Machine:  linuxMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
				RPaths:   []string{"/opt/vendor/lib"},
			},
			want: []string{
				"-Wl,-rpath,/opt/vendor/lib",
				"-Wl,-rpath-link,/opt/vendor/lib",
			},
			wantRemove: map[string]bool{"/opt/vendor/lib": true},
		},
		{
			name: "link directory collapses to origin",
			req: RPathRequest{
				Machine:  linuxMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
				RPaths:   []string{"sub"},
			},
			want: []string{
				"-Wl,-rpath,$ORIGIN/",
				"-Wl,-rpath-link,/proj/build/sub",
			},
			wantRemove: map[string]bool{"$ORIGIN/": true},
		},
		{
			name: "sunos skips rpath-link",
			req: RPathRequest{
				Machine:  sunosMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
				RPaths:   []string{"libs"},
			},
			want:       []string{"-Wl,-rpath,$ORIGIN/../libs"},
			wantRemove: map[string]bool{"$ORIGIN/../libs": true},
		},
		{
			name: "dragonfly records origin",
			req: RPathRequest{
				Machine:  dragonflyMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
				RPaths:   []string{"libs"},
			},
			want: []string{
				"-Wl,-z,origin",
				"-Wl,-rpath,$ORIGIN/../libs",
				"-Wl,-rpath-link,/proj/build/libs",
			},
			wantRemove: map[string]bool{"$ORIGIN/../libs": true},
		},
		{
			name: "windows has no rpath",
			req: RPathRequest{
				Machine:  windowsMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
				RPaths:   []string{"libs"},
			},
		},
		{
			name: "no inputs",
			req: RPathRequest{
				Machine:  linuxMachine,
				BuildDir: "/proj/build",
				FromDir:  "sub",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, remove := l.BuildRPathArgs(tc.req)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantRemove, remove, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("BuildRPathArgs remove: diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestAppleBuildRPathArgs(t *testing.T) {
	l := NewAppleDynamicLinker([]string{"ld"}, machine.Host, "-Wl,", nil, "600.1")
	req := RPathRequest{
		Machine:      darwinMachine,
		BuildDir:     "/proj/build",
		FromDir:      "sub",
		RPaths:       []string{"libs"},
		BuildRPath:   "/extra",
		InstallRPath: "/opt/some/very/long/install/rpath",
	}
	got, remove := l.BuildRPathArgs(req)
	// Mach-O rpaths are rewritten entry-wise on install, so there is
	// no padding and nothing to strip by prefix.
	want := []string{
		"-Wl,-rpath,@loader_path/../libs",
		"-Wl,-rpath,/extra",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
	}
	if len(remove) != 0 {
		t.Errorf("BuildRPathArgs remove=%v; want empty", remove)
	}
}

func TestSolarisBuildRPathArgs(t *testing.T) {
	l := NewSolarisDynamicLinker([]string{"/usr/bin/ld"}, machine.Host, "-Wl,", nil, "1.7", "")
	req := RPathRequest{
		Machine:      sunosMachine,
		BuildDir:     "/proj/build",
		FromDir:      "sub",
		RPaths:       []string{"libs"},
		InstallRPath: "/install/lib123456",
	}
	got, remove := l.BuildRPathArgs(req)
	want := []string{"-Wl,-rpath,$ORIGIN/../libs:XXX"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
	}
	wantRemove := map[string]bool{"$ORIGIN/../libs": true}
	if diff := cmp.Diff(wantRemove, remove); diff != "" {
		t.Errorf("BuildRPathArgs remove: diff -want +got:\n%s", diff)
	}
}

func TestAIXBuildRPathArgs(t *testing.T) {
	l := NewAIXDynamicLinker([]string{"ld"}, machine.Host, "-Wl,", nil, "7.2")
	t.Run("default system path", func(t *testing.T) {
		req := RPathRequest{
			Machine:      aixMachine,
			BuildDir:     "/proj/build",
			FromDir:      "sub",
			RPaths:       []string{"libs"},
			BuildRPath:   "/extra",
			InstallRPath: "/install",
		}
		got, remove := l.BuildRPathArgs(req)
		want := []string{"-Wl,-blibpath:/install:/extra:/proj/build/libs:/usr/lib:/lib"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
		}
		if len(remove) != 0 {
			t.Errorf("BuildRPathArgs remove=%v; want empty", remove)
		}
	})
	t.Run("compiler system dirs filtered for existence", func(t *testing.T) {
		dir := t.TempDir()
		req := RPathRequest{
			Machine:    aixMachine,
			BuildDir:   "/proj/build",
			FromDir:    "sub",
			RPaths:     []string{"libs"},
			SystemDirs: []string{dir, "/nonexistent/blibpath/dir"},
		}
		got, _ := l.BuildRPathArgs(req)
		want := []string{"-Wl,-blibpath:/proj/build/libs:" + dir}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
		}
	})
	t.Run("no inputs still records system path", func(t *testing.T) {
		got, _ := l.BuildRPathArgs(RPathRequest{Machine: aixMachine, BuildDir: "/proj/build"})
		want := []string{"-Wl,-blibpath:/usr/lib:/lib"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
		}
	})
}

func TestNAGBuildRPathArgs(t *testing.T) {
	l := NewNAGDynamicLinker([]string{"nagfor"}, machine.Host, "", nil, "7.1", nil)
	req := RPathRequest{
		Machine:    linuxMachine,
		BuildDir:   "/proj/build",
		FromDir:    "sub",
		RPaths:     []string{"libs"},
		BuildRPath: "/extra",
	}
	got, remove := l.BuildRPathArgs(req)
	// Each -Wl, layer is unwrapped by one driver: nagfor, then gcc.
	want := []string{
		"-Wl,-Wl,,-rpath,,$ORIGIN/../libs",
		"-Wl,-Wl,,-rpath,,/extra",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
	}
	if len(remove) != 0 {
		t.Errorf("BuildRPathArgs remove=%v; want empty", remove)
	}
}

func TestPGIBuildRPathArgs(t *testing.T) {
	l := NewPGIDynamicLinker([]string{"pgcc"}, machine.Host, "", nil, "21.5")
	got, remove := l.BuildRPathArgs(RPathRequest{
		Machine:  linuxMachine,
		BuildDir: "/proj/build",
		RPaths:   []string{"libs", "/opt/lib"},
	})
	want := []string{"-R/proj/build/libs", "-R/opt/lib"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildRPathArgs args: diff -want +got:\n%s", diff)
	}
	if len(remove) != 0 {
		t.Errorf("BuildRPathArgs remove=%v; want empty", remove)
	}

	got, _ = l.BuildRPathArgs(RPathRequest{
		Machine:  windowsMachine,
		BuildDir: "/proj/build",
		RPaths:   []string{"libs"},
	})
	if len(got) != 0 {
		t.Errorf("BuildRPathArgs on windows=%v; want empty", got)
	}
}
