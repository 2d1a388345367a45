// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package machine

import (
	"runtime"
	"testing"
)

func TestChoiceString(t *testing.T) {
	for _, tc := range []struct {
		c    Choice
		want string
	}{
		{Build, "build"},
		{Host, "host"},
	} {
		if got := tc.c.String(); got != tc.want {
			t.Errorf("Choice(%d).String()=%q; want %q", int(tc.c), got, tc.want)
		}
	}
	if Build >= Host {
		t.Errorf("Build=%d Host=%d; want Build < Host", Build, Host)
	}
}

func TestDetectBuildMachine(t *testing.T) {
	got := DetectBuildMachine()
	if got.System == "" || got.CPUFamily == "" || got.CPU == "" {
		t.Errorf("DetectBuildMachine()=%+v; want all fields set", got)
	}
	if got.Endian != "little" && got.Endian != "big" {
		t.Errorf("DetectBuildMachine().Endian=%q; want little or big", got.Endian)
	}
	switch runtime.GOARCH {
	case "amd64":
		if got.CPUFamily != "x86_64" {
			t.Errorf("CPUFamily=%q on amd64; want x86_64", got.CPUFamily)
		}
	case "arm64":
		if got.CPUFamily != "aarch64" {
			t.Errorf("CPUFamily=%q on arm64; want aarch64", got.CPUFamily)
		}
	}
}
