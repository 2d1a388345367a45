// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eli-schwartz/meson/merrors"
)

func TestStoreValueFor(t *testing.T) {
	s := NewStore()
	root := NewKey("werror")
	s.AddSystemOption(root, NewBoolean("werror", "", true))

	sub := root.WithSubproject("sub")
	subOpt := NewBoolean("werror", "", false)
	subOpt.SetYielding(true)
	s.AddSystemOption(sub, subOpt)

	other := root.WithSubproject("other")
	s.AddSystemOption(other, NewBoolean("werror", "", false))

	lonely := NewKey("sub_only").WithSubproject("sub")
	lonelyOpt := NewBoolean("sub_only", "", true)
	lonelyOpt.SetYielding(true)
	s.AddSystemOption(lonely, lonelyOpt)

	for _, tc := range []struct {
		key  Key
		want any
		ok   bool
	}{
		{key: root, want: true, ok: true},
		// A yielding subproject option defers to the root project.
		{key: sub, want: true, ok: true},
		// A non yielding option keeps its own value.
		{key: other, want: false, ok: true},
		// A yielding option without a root counterpart keeps its value.
		{key: lonely, want: true, ok: true},
		// Subprojects that never defined the option inherit it.
		{key: root.WithSubproject("third"), want: true, ok: true},
		{key: NewKey("unknown"), ok: false},
	} {
		got, ok := s.ValueFor(tc.key)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ValueFor(%s)=%v, %t; want %v, %t", tc.key, got, ok, tc.want, tc.ok)
		}
	}

	// Value reads the raw entry without layering.
	if got, ok := s.Value(sub); !ok || got != false {
		t.Errorf("Value(%s)=%v, %t; want false, true", sub, got, ok)
	}
}

func TestStoreTypedAccessors(t *testing.T) {
	s := NewStore()
	s.AddSystemOption(NewKey("werror"), NewBoolean("werror", "", true))
	s.AddSystemOption(NewKey("buildtype"), NewCombo("buildtype", "", "debug", BuildtypeChoices))
	s.AddSystemOption(NewKey("unity_size"), NewInteger("unity_size", "", intp(2), nil, 4))
	s.AddSystemOption(NewKey("force_fallback_for"), NewArray("force_fallback_for", "", []string{"glib"}))

	if got, ok := s.Bool(NewKey("werror")); !ok || !got {
		t.Errorf("Bool(werror)=%t, %t; want true, true", got, ok)
	}
	if got, ok := s.String(NewKey("buildtype")); !ok || got != "debug" {
		t.Errorf("String(buildtype)=%q, %t; want debug, true", got, ok)
	}
	if got, ok := s.Int(NewKey("unity_size")); !ok || got != 4 {
		t.Errorf("Int(unity_size)=%d, %t; want 4, true", got, ok)
	}
	if got, ok := s.Strings(NewKey("force_fallback_for")); !ok || !slices.Equal(got, []string{"glib"}) {
		t.Errorf("Strings(force_fallback_for)=%v, %t; want [glib], true", got, ok)
	}
	// A type mismatch reports absence.
	if _, ok := s.Bool(NewKey("buildtype")); ok {
		t.Error("Bool(buildtype) ok=true; want false")
	}
	if _, ok := s.Int(NewKey("missing")); ok {
		t.Error("Int(missing) ok=true; want false")
	}
}

func TestSetOptionReadonly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	backend := NewCombo("backend", "", "ninja", BackendChoices)
	backend.setReadonly()
	key := NewKey("backend")
	s.AddSystemOption(key, backend)

	if _, err := s.SetOption(ctx, key, "xcode", true); err != nil {
		t.Fatalf("SetOption(first invocation): %v", err)
	}
	if got, _ := s.String(key); got != "xcode" {
		t.Errorf("value=%q; want xcode", got)
	}
	_, err := s.SetOption(ctx, key, "ninja", false)
	var ive *merrors.InvalidOptionValueError
	if !errors.As(err, &ive) {
		t.Fatalf("SetOption err=%v; want InvalidOptionValueError", err)
	}
	if got, _ := s.String(key); got != "xcode" {
		t.Errorf("value after rejected write=%q; want xcode", got)
	}
}

func TestSetValueUnknownOption(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.SetValue(ctx, NewKey("bogus"), "x"); err == nil {
		t.Error("SetValue(bogus) succeeded; want error")
	}
}

func TestSetOptionDeprecatedAll(t *testing.T) {
	ctx, logger := testContext()
	s := NewStore()
	opt := NewBoolean("stdsplit", "", true)
	opt.SetDeprecated(Deprecation{All: true})
	key := NewKey("stdsplit")
	s.AddSystemOption(key, opt)

	for i := 0; i < 3; i++ {
		if _, err := s.SetValue(ctx, key, false); err != nil {
			t.Fatalf("SetValue: %v", err)
		}
	}
	if got := logger.Warnings(); got != 1 {
		t.Errorf("Warnings()=%d; want 1", got)
	}
}

func TestSetOptionDeprecatedValues(t *testing.T) {
	ctx, logger := testContext()
	s := NewStore()
	opt := NewChoicesArray("protocols", "", nil, []string{"ssl3", "tls12", "tls13"})
	opt.SetDeprecated(Deprecation{Values: []string{"ssl3"}})
	key := NewKey("protocols")
	s.AddSystemOption(key, opt)

	if _, err := s.SetOption(ctx, key, []string{"tls12", "tls13"}, false); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if got := logger.Warnings(); got != 0 {
		t.Errorf("Warnings() after clean set=%d; want 0", got)
	}
	if _, err := s.SetOption(ctx, key, []string{"ssl3", "tls12"}, false); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if got := logger.Warnings(); got != 1 {
		t.Errorf("Warnings() after deprecated value=%d; want 1", got)
	}
	// Repeating the same deprecated value stays quiet.
	if _, err := s.SetOption(ctx, key, []string{"ssl3"}, false); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if got := logger.Warnings(); got != 1 {
		t.Errorf("Warnings() after repeat=%d; want 1", got)
	}

	boolOpt := NewBoolean("vsenv", "", false)
	boolOpt.SetDeprecated(Deprecation{Values: []string{"true"}})
	bkey := NewKey("vsenv")
	s.AddSystemOption(bkey, boolOpt)
	if _, err := s.SetOption(ctx, bkey, true, false); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if got := logger.Warnings(); got != 2 {
		t.Errorf("Warnings() after deprecated boolean=%d; want 2", got)
	}
}

func TestSetOptionReplacedValues(t *testing.T) {
	ctx, logger := testContext()
	s := NewStore()
	opt := NewCombo("layout", "", "mirror", []string{"mirror", "flat"})
	opt.SetDeprecated(Deprecation{Replaced: map[string]string{"legacy": "flat"}})
	key := NewKey("layout")
	s.AddSystemOption(key, opt)

	// The mapping applies before validation; "legacy" is not a choice.
	if _, err := s.SetOption(ctx, key, "legacy", false); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if got, _ := s.String(key); got != "flat" {
		t.Errorf("value=%q; want flat", got)
	}
	if got := logger.Warnings(); got != 1 {
		t.Errorf("Warnings()=%d; want 1", got)
	}
}

func TestSetOptionReplacedArrayElements(t *testing.T) {
	ctx, _ := testContext()
	s := NewStore()
	opt := NewArray("force_fallback_for", "", nil)
	opt.SetDeprecated(Deprecation{Replaced: map[string]string{"oldlib": "newlib"}})
	key := NewKey("force_fallback_for")
	s.AddSystemOption(key, opt)

	if _, err := s.SetOption(ctx, key, "oldlib,zlib", false); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	got, _ := s.Strings(key)
	want := []string{"newlib", "zlib"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("value: diff -want +got:\n%s", diff)
	}
}

func TestSetOptionReplacementOption(t *testing.T) {
	ctx, logger := testContext()
	s := NewStore()
	oldOpt := NewBoolean("use_docs", "", true)
	oldOpt.SetDeprecated(Deprecation{Replacement: "docs"})
	s.AddSystemOption(NewKey("use_docs"), oldOpt)
	s.AddSystemOption(NewKey("docs"), NewBoolean("docs", "", true))

	changed, err := s.SetOption(ctx, NewKey("use_docs"), false, false)
	if err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if !changed {
		t.Error("changed=false; want true")
	}
	// Both the replacement and the deprecated option take the value.
	if got, _ := s.Bool(NewKey("docs")); got {
		t.Error("replacement option still true; want false")
	}
	if got, _ := s.Bool(NewKey("use_docs")); got {
		t.Error("deprecated option still true; want false")
	}
	if got := logger.Warnings(); got != 1 {
		t.Errorf("Warnings()=%d; want 1", got)
	}
}

func TestIsReservedName(t *testing.T) {
	s := NewStore()
	for _, tc := range []struct {
		name string
		want bool
	}{
		{name: "prefix", want: true},
		{name: "buildtype", want: true},
		{name: "b_lto", want: true},
		{name: "backend_max_links", want: true},
		{name: "c_std", want: true},
		{name: "cpp_args", want: true},
		{name: "rust_edition", want: true},
		{name: "myopt", want: false},
		{name: "foo_bar", want: false},
		{name: "build_dir", want: false},
		{name: "clang_args", want: false},
	} {
		if got := s.IsReservedName(NewKey(tc.name)); got != tc.want {
			t.Errorf("IsReservedName(%q)=%t; want %t", tc.name, got, tc.want)
		}
	}
}

func TestAddProjectOption(t *testing.T) {
	s := NewStore()
	key := NewKey("with_docs").WithSubproject("sub")
	if err := s.AddProjectOption(key, NewBoolean("with_docs", "", false)); err != nil {
		t.Fatalf("AddProjectOption: %v", err)
	}
	if !s.IsProjectOption(key) {
		t.Error("IsProjectOption()=false; want true")
	}

	err := s.AddProjectOption(NewKey("c_std"), NewString("c_std", "", ""))
	var ive *merrors.InvalidOptionValueError
	if !errors.As(err, &ive) {
		t.Errorf("AddProjectOption(c_std) err=%v; want InvalidOptionValueError", err)
	}

	s.Remove(key)
	if s.Contains(key) || s.IsProjectOption(key) {
		t.Error("key still present after Remove")
	}
}

func TestNamespacePredicates(t *testing.T) {
	s := NewStore()
	modKey := NewKey("pkgconfig.relocatable")
	s.AddModuleOption("pkgconfig", modKey, NewBoolean("pkgconfig.relocatable", "", false))

	if !s.IsModuleOption(modKey) {
		t.Error("IsModuleOption(pkgconfig.relocatable)=false; want true")
	}
	if !s.IsBuiltinOption(modKey) {
		t.Error("IsBuiltinOption(pkgconfig.relocatable)=false; want true")
	}
	if !s.IsBuiltinOption(NewKey("buildtype")) {
		t.Error("IsBuiltinOption(buildtype)=false; want true")
	}
	// Base options are their own namespace.
	if s.IsBuiltinOption(NewKey("b_lto")) {
		t.Error("IsBuiltinOption(b_lto)=true; want false")
	}
	if !s.IsBaseOption(NewKey("b_lto")) {
		t.Error("IsBaseOption(b_lto)=false; want true")
	}
	if !s.IsCompilerOption(NewKey("c_args")) {
		t.Error("IsCompilerOption(c_args)=false; want true")
	}
	if s.IsCompilerOption(NewKey("buildtype")) {
		t.Error("IsCompilerOption(buildtype)=true; want false")
	}
	if !s.IsBackendOption(NewKey("backend_max_links")) {
		t.Error("IsBackendOption(backend_max_links)=false; want true")
	}
}

func TestReplaceObject(t *testing.T) {
	s := NewStore()
	key := NewKey("c_std")
	s.AddCompilerOption("c", key, NewCombo("c_std", "", "none", []string{"none", "c99"}))
	s.ReplaceObject(key, NewCombo("c_std", "", "c11", []string{"none", "c99", "c11"}))
	if got, _ := s.String(key); got != "c11" {
		t.Errorf("value=%q; want c11", got)
	}
}

func TestSortedKeys(t *testing.T) {
	s := NewStore()
	for _, k := range []Key{
		NewKey("werror").WithSubproject("sub"),
		NewKey("c_std").AsBuild(),
		NewKey("buildtype"),
		NewKey("c_std"),
	} {
		s.AddSystemOption(k, NewString(k.Name, "", ""))
	}
	want := []Key{
		NewKey("c_std").AsBuild(),
		NewKey("buildtype"),
		NewKey("c_std"),
		NewKey("werror").WithSubproject("sub"),
	}
	if diff := cmp.Diff(want, s.SortedKeys()); diff != "" {
		t.Errorf("SortedKeys: diff -want +got:\n%s", diff)
	}
	if got := s.Len(); got != 4 {
		t.Errorf("Len()=%d; want 4", got)
	}
}
