// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package shutil

// SplitNative splits a command line fragment using the conventions of
// the build machine's shell. Option values and environment variables
// such as CFLAGS are written for the local shell, so they split with
// POSIX rules here and cmd.exe rules on windows.
func SplitNative(cmdline string) ([]string, error) {
	return Split(cmdline)
}
