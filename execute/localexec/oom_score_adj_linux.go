// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build linux

package localexec

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/eli-schwartz/meson/mlog"
)

// probeOOMScore makes tool children preferred OOM kill targets over
// the generator itself.
const probeOOMScore = 500

func adjustOOMScore(ctx context.Context, pid int) {
	err := os.WriteFile(fmt.Sprintf("/proc/%d/oom_score_adj", pid), strconv.AppendInt(nil, probeOOMScore, 10), 0644)
	if err != nil {
		mlog.Debugf(ctx, "failed to set %d/oom_score_adj %d: %v", pid, probeOOMScore, err)
	}
}
