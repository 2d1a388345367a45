// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build unix

package localexec

import (
	"os/exec"
	"syscall"
)

// maxRSS reports the peak resident set size of the finished cmd in
// kilobytes, 0 when unavailable.
func maxRSS(cmd *exec.Cmd) int64 {
	if cmd.ProcessState == nil {
		return 0
	}
	if u, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage); ok {
		// 32bit arch may use int32 for Maxrss.
		return int64(u.Maxrss)
	}
	return 0
}
