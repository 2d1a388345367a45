// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package rsputil

import "testing"

func TestQuoteGCC(t *testing.T) {
	for _, tc := range []struct {
		arg  string
		want string
	}{
		{"-O2", "-O2"},
		{"", "''"},
		{"-DNAME=value with space", "'-DNAME=value with space'"},
		{`-DPATH=C:\dir`, `'-DPATH=C:\\dir'`},
		{`-DMSG="hi"`, `'-DMSG="hi"'`},
		{"-DQ='q'", `'-DQ='\''q'\'''`},
	} {
		if got := QuoteGCC(tc.arg); got != tc.want {
			t.Errorf("QuoteGCC(%q)=%q; want %q", tc.arg, got, tc.want)
		}
	}
}

func TestQuoteMSVC(t *testing.T) {
	for _, tc := range []struct {
		arg  string
		want string
	}{
		{"/nologo", "/nologo"},
		{"", `""`},
		{`/OUT:my lib.dll`, `"/OUT:my lib.dll"`},
		{`a"b`, `"a\"b"`},
		{`dir\`, `"dir\\"`},
		{`back\\"q`, `"back\\\\\"q"`},
	} {
		if got := QuoteMSVC(tc.arg); got != tc.want {
			t.Errorf("QuoteMSVC(%q)=%q; want %q", tc.arg, got, tc.want)
		}
	}
}

func TestJoin(t *testing.T) {
	got := JoinGCC([]string{"-o", "out dir/a.out", "-L/lib"})
	if want := "-o 'out dir/a.out' -L/lib"; got != want {
		t.Errorf("JoinGCC=%q; want %q", got, want)
	}
	got = JoinMSVC([]string{"/nologo", `/OUT:a b.exe`})
	if want := `/nologo "/OUT:a b.exe"`; got != want {
		t.Errorf("JoinMSVC=%q; want %q", got, want)
	}
}
