// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/mlog"
)

// testContext returns a context with a quiet logger whose warning and
// deprecation count the test can inspect.
func testContext() (context.Context, *mlog.Logger) {
	logger := mlog.New(io.Discard)
	return mlog.NewContext(context.Background(), logger), logger
}

func TestBooleanValidate(t *testing.T) {
	ctx := context.Background()
	o := NewBoolean("werror", "", false)
	for _, tc := range []struct {
		in      any
		want    any
		wantErr bool
	}{
		{in: true, want: true},
		{in: false, want: false},
		{in: "true", want: true},
		{in: "False", want: false},
		{in: "yes", wantErr: true},
		{in: 1, wantErr: true},
	} {
		got, err := o.Validate(ctx, tc.in)
		if tc.wantErr {
			var ive *merrors.InvalidOptionValueError
			if !errors.As(err, &ive) {
				t.Errorf("Validate(%v)=%v, %v; want InvalidOptionValueError", tc.in, got, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("Validate(%v)=%v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestComboValidate(t *testing.T) {
	ctx := context.Background()
	o := NewCombo("buildtype", "", "debug", BuildtypeChoices)
	if got, err := o.Validate(ctx, "release"); err != nil || got != "release" {
		t.Errorf("Validate(release)=%v, %v; want release", got, err)
	}
	// The error names the offending value's type.
	for _, tc := range []struct {
		in      any
		wantTyp string
	}{
		{in: "fast", wantTyp: "string"},
		{in: true, wantTyp: "boolean"},
		{in: 3, wantTyp: "number"},
	} {
		_, err := o.Validate(ctx, tc.in)
		var ive *merrors.InvalidOptionValueError
		if !errors.As(err, &ive) {
			t.Fatalf("Validate(%v) err=%v; want InvalidOptionValueError", tc.in, err)
		}
		if !strings.Contains(ive.Msg, tc.wantTyp) {
			t.Errorf("Validate(%v) msg=%q; want mention of %q", tc.in, ive.Msg, tc.wantTyp)
		}
		if diff := cmp.Diff(BuildtypeChoices, ive.Choices); diff != "" {
			t.Errorf("Validate(%v) choices: diff -want +got:\n%s", tc.in, diff)
		}
	}
}

func TestIntegerValidate(t *testing.T) {
	ctx := context.Background()
	o := NewInteger("unity_size", "", intp(2), intp(8), 4)
	for _, tc := range []struct {
		in      any
		want    int
		wantErr bool
	}{
		{in: 2, want: 2},
		{in: int64(8), want: 8},
		{in: "5", want: 5},
		{in: float64(4), want: 4},
		{in: 4.5, wantErr: true},
		{in: "abc", wantErr: true},
		{in: 1, wantErr: true},
		{in: 9, wantErr: true},
		{in: nil, wantErr: true},
	} {
		got, err := o.Validate(ctx, tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Validate(%v)=%v; want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("Validate(%v)=%v, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestIntegerPrintableChoices(t *testing.T) {
	for _, tc := range []struct {
		min, max *int
		want     []string
	}{
		{min: intp(2), max: intp(8), want: []string{">= 2, <= 8"}},
		{min: intp(0), want: []string{">= 0"}},
		{max: intp(3), want: []string{"<= 3"}},
		{want: nil},
	} {
		o := NewInteger("n", "", tc.min, tc.max, 2)
		if diff := cmp.Diff(tc.want, o.PrintableChoices(), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("PrintableChoices: diff -want +got:\n%s", diff)
		}
	}
}

func TestUmaskOption(t *testing.T) {
	ctx := context.Background()
	o := NewUmask("install_umask", "", "022")
	if mode, ok := o.Mode(); !ok || mode != 0o022 {
		t.Errorf("Mode()=%04o, %t; want 0022, true", mode, ok)
	}
	if got := o.PrintableValue(); got != "0022" {
		t.Errorf("PrintableValue()=%v; want 0022", got)
	}

	changed, err := o.SetValue(ctx, "preserve")
	if err != nil || !changed {
		t.Fatalf("SetValue(preserve)=%t, %v; want true, nil", changed, err)
	}
	if got := o.Value(); got != "preserve" {
		t.Errorf("Value()=%v; want preserve", got)
	}
	if _, ok := o.Mode(); ok {
		t.Error("Mode() ok=true after preserve; want false")
	}
	changed, err = o.SetValue(ctx, "preserve")
	if err != nil || changed {
		t.Errorf("SetValue(preserve) again=%t, %v; want false, nil", changed, err)
	}

	for _, tc := range []struct {
		in   any
		want int
	}{
		{in: "777", want: 0o777},
		{in: "0", want: 0},
		{in: 0o022, want: 0o022},
	} {
		got, err := o.Validate(ctx, tc.in)
		if err != nil || got != tc.want {
			t.Errorf("Validate(%v)=%v, %v; want %04o", tc.in, got, err, tc.want)
		}
	}
	for _, in := range []any{"778", "mask", 0o1000, -1, true} {
		if _, err := o.Validate(ctx, in); err == nil {
			t.Errorf("Validate(%v) succeeded; want error", in)
		}
	}
}

func TestArrayListify(t *testing.T) {
	ctx := context.Background()
	o := NewArray("modules", "", nil)
	for _, tc := range []struct {
		in      any
		want    []string
		wantErr bool
	}{
		{in: []string{"a", "b"}, want: []string{"a", "b"}},
		{in: []any{"a", "b"}, want: []string{"a", "b"}},
		{in: []any{"a", 1}, wantErr: true},
		{in: "a,b , c", want: []string{"a", "b", "c"}},
		{in: "a", want: []string{"a"}},
		{in: "", want: nil},
		{in: `[a, 'b', "c"]`, want: []string{"a", "b", "c"}},
		{in: "[]", want: nil},
		{in: "[a, b", wantErr: true},
		{in: 42, wantErr: true},
	} {
		got, err := o.Validate(ctx, tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Validate(%v)=%v; want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Validate(%v): %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got.([]string), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Validate(%v): diff -want +got:\n%s", tc.in, diff)
		}
	}
}

func TestArgsArraySplit(t *testing.T) {
	ctx, logger := testContext()
	o := NewArgsArray("c_args", "", nil)
	got, err := o.Validate(ctx, `-DFOO="bar baz" -O2`)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []string{"-DFOO=bar baz", "-O2"}
	if diff := cmp.Diff(want, got.([]string)); diff != "" {
		t.Errorf("Validate: diff -want +got:\n%s", diff)
	}
	// Argument lists allow repeats without complaint.
	if _, err := o.Validate(ctx, []string{"-O2", "-O2"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := logger.Warnings(); got != 0 {
		t.Errorf("Warnings()=%d; want 0", got)
	}
	if _, err := o.Validate(ctx, `-DBAD="unterminated`); err == nil {
		t.Error("Validate(unterminated quote) succeeded; want error")
	}
}

func TestArrayDuplicateDeprecation(t *testing.T) {
	ctx, logger := testContext()
	o := NewArray("modules", "", nil)
	if _, err := o.SetValue(ctx, []string{"a", "b", "a"}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := logger.Warnings(); got != 1 {
		t.Errorf("Warnings()=%d; want 1", got)
	}
}

func TestChoicesArrayValidate(t *testing.T) {
	ctx := context.Background()
	o := NewChoicesArray("drink", "", []string{"coffee"}, []string{"coffee", "tea", "water"})
	if _, err := o.Validate(ctx, []string{"tea", "water"}); err != nil {
		t.Errorf("Validate(tea, water): %v", err)
	}
	_, err := o.Validate(ctx, []string{"tea", "juice", "soda"})
	var ive *merrors.InvalidOptionValueError
	if !errors.As(err, &ive) {
		t.Fatalf("Validate err=%v; want InvalidOptionValueError", err)
	}
	// Only the offending elements are reported.
	if got, want := fmt.Sprint(ive.Value), "juice, soda"; got != want {
		t.Errorf("bad elements=%q; want %q", got, want)
	}
}

func TestArrayExtendValue(t *testing.T) {
	ctx := context.Background()
	o := NewArray("modules", "", []string{"a"})
	if err := o.ExtendValue(ctx, "b,c"); err != nil {
		t.Fatalf("ExtendValue: %v", err)
	}
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, o.Strings()); diff != "" {
		t.Errorf("Strings: diff -want +got:\n%s", diff)
	}
}

func TestFeatureOption(t *testing.T) {
	ctx := context.Background()
	o := NewFeature("auto_features", "", "auto")
	if !o.IsAuto() || o.IsEnabled() || o.IsDisabled() {
		t.Errorf("state after auto: enabled=%t disabled=%t auto=%t", o.IsEnabled(), o.IsDisabled(), o.IsAuto())
	}
	if _, err := o.SetValue(ctx, FeatureEnabled); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if !o.IsEnabled() {
		t.Error("IsEnabled()=false after enabled")
	}
	if got := o.Type(); got != "feature" {
		t.Errorf("Type()=%q; want feature", got)
	}
	if _, err := o.SetValue(ctx, "on"); err == nil {
		t.Error("SetValue(on) succeeded; want error")
	}
}

func TestSetValueChanged(t *testing.T) {
	ctx := context.Background()
	o := NewString("prefix", "", "/usr/local")
	changed, err := o.SetValue(ctx, "/opt")
	if err != nil || !changed {
		t.Errorf("SetValue(/opt)=%t, %v; want true, nil", changed, err)
	}
	changed, err = o.SetValue(ctx, "/opt")
	if err != nil || changed {
		t.Errorf("SetValue(/opt) again=%t, %v; want false, nil", changed, err)
	}
}
