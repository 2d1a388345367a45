// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package configure

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/eli-schwartz/meson/options"
)

func TestPrintOptions(t *testing.T) {
	ctx := context.Background()
	s := options.NewStore()
	err := options.InitBuiltinOptions(ctx, s, map[options.Key]string{
		options.NewKey("buildtype"): "release",
	})
	if err != nil {
		t.Fatalf("InitBuiltinOptions: %v", err)
	}

	var buf bytes.Buffer
	printOptions(&buf, s)
	out := buf.String()

	dirs := strings.Index(out, "Directories:")
	core := strings.Index(out, "Core options:")
	if dirs < 0 || core < 0 || dirs > core {
		t.Errorf("section order: Directories at %d, Core options at %d:\n%s", dirs, core, out)
	}
	for _, want := range []string{
		"Option",
		"Current Value",
		"prefix",
		"/usr/local",
		"buildtype",
		"release",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printOptions output lacks %q:\n%s", want, out)
		}
	}
}

func TestFormatValue(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want string
	}{
		{[]string{"-O2", "-g"}, "[-O2, -g]"},
		{[]string{}, "[]"},
		{"release", "release"},
		{true, "true"},
		{3, "3"},
	} {
		if got := formatValue(tc.in); got != tc.want {
			t.Errorf("formatValue(%v)=%q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatChoices(t *testing.T) {
	if got := formatChoices(nil); got != "" {
		t.Errorf("formatChoices(nil)=%q; want empty", got)
	}
	if got, want := formatChoices([]string{"true", "false"}), "[true, false]"; got != want {
		t.Errorf("formatChoices=%q; want %q", got, want)
	}
}

func TestParseDefines_Malformed(t *testing.T) {
	if _, err := parseDefines([]string{"buildtype"}); err == nil {
		t.Error("parseDefines accepted a setting without a value; want error")
	}
	got, err := parseDefines([]string{"b_lto=true"})
	if err != nil {
		t.Fatalf("parseDefines: %v", err)
	}
	if v := got[options.NewKey("b_lto")]; v != "true" {
		t.Errorf("b_lto=%q; want true", v)
	}
}
