// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linkers

import (
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewArLinkerProbing(t *testing.T) {
	t.Run("gnu ar", func(t *testing.T) {
		const usage = `Usage: ar [emulation options] [-]{dmpqrstx}[abcDfilMNoPsSTuvV] [--plugin <name>] [member-name] [count] archive-file file...
       ar -M [<mri-script]
 generic modifiers:
  [D]          - use zero for timestamps and uids/gids (default)
  [U]          - use actual timestamps and uids/gids
  [T]          - deterministic thin archive
 @<file>       - read options from <file>
`
		l := NewArLinker([]string{"ar"}, usage)
		if got, want := l.ID(), "ar"; got != want {
			t.Errorf("ID()=%q; want %q", got, want)
		}
		if diff := cmp.Diff([]string{"csrD"}, l.StdLinkArgs(false)); diff != "" {
			t.Errorf("StdLinkArgs(false): diff -want +got:\n%s", diff)
		}
		wantThin := []string{"csrDT"}
		if runtime.GOOS == "darwin" {
			// Thin archive members are rejected by the macOS ld.
			wantThin = []string{"csrD"}
		}
		if diff := cmp.Diff(wantThin, l.StdLinkArgs(true)); diff != "" {
			t.Errorf("StdLinkArgs(true): diff -want +got:\n%s", diff)
		}
		if !l.CanAcceptRSP() {
			t.Errorf("CanAcceptRSP()=false; want true")
		}
	})
	t.Run("bsd ar", func(t *testing.T) {
		const usage = `usage: ar -d [-Tjsvz] archive file ...
	ar -q [-cTjsvz] archive file ...
`
		l := NewArLinker([]string{"ar"}, usage)
		if diff := cmp.Diff([]string{"csr"}, l.StdLinkArgs(false)); diff != "" {
			t.Errorf("StdLinkArgs(false): diff -want +got:\n%s", diff)
		}
		if diff := cmp.Diff([]string{"csr"}, l.StdLinkArgs(true)); diff != "" {
			t.Errorf("StdLinkArgs(true): diff -want +got:\n%s", diff)
		}
		if l.CanAcceptRSP() {
			t.Errorf("CanAcceptRSP()=true; want false")
		}
	})
}

func TestStaticLinkerIDs(t *testing.T) {
	for _, tc := range []struct {
		want string
		l    *StaticLinker
	}{
		{"ar", NewArLinker([]string{"ar"}, "")},
		{"armar", NewArmarLinker([]string{"armar"})},
		{"aixar", NewAIXArLinker([]string{"ar"})},
		{"lib", NewVisualStudioLinker([]string{"lib.exe"}, "x64")},
		{"xilib", NewIntelVisualStudioLinker([]string{"xilib.exe"}, "x64")},
		{"dmd", NewDLinker([]string{"dmd"}, "x86_64", RSPSyntaxGCC)},
		{"rlink", NewCcrxLinker([]string{"rlink.exe"})},
		{"xc16-ar", NewXc16Linker([]string{"xc16-ar"})},
		{"ccomp", NewCompCertLinker([]string{"ccomp"})},
		{"ti-ar", NewTILinker([]string{"ar6x"})},
		{"ar2000", NewC2000Linker([]string{"ar2000"})},
		{"ar", NewPGIStaticLinker([]string{"ar"})},
	} {
		if got := tc.l.ID(); got != tc.want {
			t.Errorf("ID()=%q; want %q", got, tc.want)
		}
	}
}

func TestVisualStudioStaticLinker(t *testing.T) {
	l := NewVisualStudioLinker([]string{"lib.exe"}, "x64")
	if diff := cmp.Diff([]string{"/NOLOGO"}, l.AlwaysArgs()); diff != "" {
		t.Errorf("AlwaysArgs: diff -want +got:\n%s", diff)
	}
	want := []string{"/MACHINE:x64", "/OUT:foo.lib"}
	if diff := cmp.Diff(want, l.OutputArgs("foo.lib")); diff != "" {
		t.Errorf("OutputArgs: diff -want +got:\n%s", diff)
	}
	if got := l.RSPSyntax(); got != RSPSyntaxMSVC {
		t.Errorf("RSPSyntax()=%v; want %v", got, RSPSyntaxMSVC)
	}

	// Without a machine argument only the output is named.
	l = NewVisualStudioLinker([]string{"lib.exe"}, "")
	if diff := cmp.Diff([]string{"/OUT:foo.lib"}, l.OutputArgs("foo.lib")); diff != "" {
		t.Errorf("OutputArgs: diff -want +got:\n%s", diff)
	}
}

func TestDLinker(t *testing.T) {
	l := NewDLinker([]string{"dmd"}, "x86_64", RSPSyntaxMSVC)
	if diff := cmp.Diff([]string{"-lib"}, l.StdLinkArgs(false)); diff != "" {
		t.Errorf("StdLinkArgs: diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-of=foo.a"}, l.OutputArgs("foo.a")); diff != "" {
		t.Errorf("OutputArgs: diff -want +got:\n%s", diff)
	}
	if got := l.RSPSyntax(); got != RSPSyntaxMSVC {
		t.Errorf("RSPSyntax()=%v; want %v", got, RSPSyntaxMSVC)
	}
	got := l.LinkerAlwaysArgs()
	if runtime.GOOS == "windows" {
		if diff := cmp.Diff([]string{"-m64"}, got); diff != "" {
			t.Errorf("LinkerAlwaysArgs: diff -want +got:\n%s", diff)
		}
	} else if len(got) != 0 {
		t.Errorf("LinkerAlwaysArgs=%v; want empty off windows", got)
	}
}

func TestCcrxStaticLinker(t *testing.T) {
	l := NewCcrxLinker([]string{"rlink.exe"})
	if diff := cmp.Diff([]string{"-nologo", "-form=library"}, l.LinkerAlwaysArgs()); diff != "" {
		t.Errorf("LinkerAlwaysArgs: diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-output=foo.lib"}, l.OutputArgs("foo.lib")); diff != "" {
		t.Errorf("OutputArgs: diff -want +got:\n%s", diff)
	}
}

func TestCompCertStaticLinker(t *testing.T) {
	l := NewCompCertLinker([]string{"ccomp"})
	if diff := cmp.Diff([]string{"-ofoo.a"}, l.OutputArgs("foo.a")); diff != "" {
		t.Errorf("OutputArgs: diff -want +got:\n%s", diff)
	}
}
