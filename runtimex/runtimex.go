// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runtimex corrects runtime.NumCPU on hosts where it
// undercounts. Probe pools and fork limits size themselves from it.
package runtimex

import "runtime"

var ncpu int

func init() {
	ncpu = getproccount()
	if ncpu == 0 {
		ncpu = runtime.NumCPU()
	}
}

// NumCPU returns the number of logical CPUs usable by the current
// process. runtime.NumCPU only counts the process's own Processor
// Group on Windows, capping the answer at 64 however large the
// machine; here all groups count.
func NumCPU() int {
	return ncpu
}
