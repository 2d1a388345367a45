// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package verutil compares dotted version numbers reported by
// toolchains, e.g. "12.2.0" of gcc or "19.29.30133" of cl.exe.
package verutil

import (
	"strings"

	"golang.org/x/mod/semver"
)

// canon reduces a tool version banner to the semver syntax x/mod
// understands: leading v, at most three numeric fields, no leading
// zeros, suffix junk like "-4ubuntu1" dropped.
func canon(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	end := 0
	for end < len(v) {
		c := v[end]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		end++
	}
	v = strings.Trim(v[:end], ".")
	if v == "" {
		return ""
	}
	fields := strings.Split(v, ".")
	if len(fields) > 3 {
		fields = fields[:3]
	}
	for i, f := range fields {
		f = strings.TrimLeft(f, "0")
		if f == "" {
			f = "0"
		}
		fields[i] = f
	}
	return "v" + strings.Join(fields, ".")
}

// Compare returns -1, 0 or 1 like strings.Compare. A version that
// cannot be parsed compares below every valid one.
func Compare(a, b string) int {
	return semver.Compare(canon(a), canon(b))
}

// AtLeast reports whether version is min or newer. An unparseable
// version is never at least anything, so feature gates fail closed.
func AtLeast(version, min string) bool {
	v := canon(version)
	if v == "" {
		return false
	}
	return semver.Compare(v, canon(min)) >= 0
}

// Before reports whether version is older than limit. An unparseable
// version is never before, so workarounds for old tools stay off.
func Before(version, limit string) bool {
	v := canon(version)
	if v == "" {
		return false
	}
	return semver.Compare(v, canon(limit)) < 0
}
