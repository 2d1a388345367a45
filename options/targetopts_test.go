// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOverrideOptionsLayering(t *testing.T) {
	to := NewTargetOverrides()
	to.Global().SetOption("cpp_std", "c++17")
	to.Global().SetOption("werror", "true")
	to.Target("libfoo").SetOption("cpp_std", "c++14")

	initial := []string{"buildtype=debug", "cpp_std=c++11", "b_lto=false"}

	got := to.OverrideOptions("libfoo", initial)
	want := []string{
		"buildtype=debug", "b_lto=false", "werror=true", "cpp_std=c++14",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OverrideOptions(libfoo): diff -want +got:\n%s", diff)
	}

	// A target with no layer of its own gets the global values only,
	// and untouched entries keep their relative order.
	got = to.OverrideOptions("libbar", initial)
	want = []string{
		"buildtype=debug", "b_lto=false", "cpp_std=c++17", "werror=true",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OverrideOptions(libbar): diff -want +got:\n%s", diff)
	}

	// The initial list is not mutated.
	if diff := cmp.Diff([]string{"buildtype=debug", "cpp_std=c++11", "b_lto=false"}, initial); diff != "" {
		t.Errorf("initial mutated: diff -want +got:\n%s", diff)
	}
}

func TestOverrideOptionsRepeatedSet(t *testing.T) {
	to := NewTargetOverrides()
	to.Global().SetOption("cpp_std", "c++14")
	to.Global().SetOption("werror", "true")
	to.Global().SetOption("cpp_std", "c++20")

	got := to.OverrideOptions("t", nil)
	want := []string{"cpp_std=c++20", "werror=true"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("diff -want +got:\n%s", diff)
	}
}

func TestOverrideCompileAndLinkArgs(t *testing.T) {
	to := NewTargetOverrides()
	to.Global().AppendCompileArgs("c", "-DGLOBAL")
	to.Target("libfoo").AppendCompileArgs("c", "-DFOO")
	to.Target("libfoo").AppendLinkArgs("-lm")

	got := to.CompileArgs("libfoo", "c", []string{"-O2"})
	want := []string{"-O2", "-DGLOBAL", "-DFOO"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompileArgs(c): diff -want +got:\n%s", diff)
	}

	// No layer registered args for cpp; initial comes back as is.
	got = to.CompileArgs("libfoo", "cpp", []string{"-O2"})
	if diff := cmp.Diff([]string{"-O2"}, got); diff != "" {
		t.Errorf("CompileArgs(cpp): diff -want +got:\n%s", diff)
	}

	got = to.LinkArgs("libfoo", []string{"-shared"})
	if diff := cmp.Diff([]string{"-shared", "-lm"}, got); diff != "" {
		t.Errorf("LinkArgs: diff -want +got:\n%s", diff)
	}
	got = to.LinkArgs("libbar", []string{"-shared"})
	if diff := cmp.Diff([]string{"-shared"}, got); diff != "" {
		t.Errorf("LinkArgs(no layer): diff -want +got:\n%s", diff)
	}
}

func TestOverrideInstall(t *testing.T) {
	to := NewTargetOverrides()
	if got := to.Install("t", true); !got {
		t.Errorf("Install with no overrides = false, want initial true")
	}
	to.Global().SetInstall(false)
	if got := to.Install("t", true); got {
		t.Errorf("Install with global false = true, want false")
	}
	to.Target("t").SetInstall(true)
	if got := to.Install("t", false); !got {
		t.Errorf("Install with target true = false, want true")
	}
}
