// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build unix

package runtimex

// getproccount defers to runtime.NumCPU, which respects the CPU
// affinity mask on unix.
func getproccount() int {
	return 0
}
