// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"time"
)

// DurationThreshold is the threshold below which a finished spinner
// operation is not worth reporting.
const DurationThreshold = 1 * time.Second

// FormatDuration formats duration in "X.XXs", "XmXX.XXs" or "XhXmXX.XXs".
func FormatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	hours := d / time.Hour
	d -= hours * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	secs := float64(d) / float64(time.Second)
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%05.2fs", hours, mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm%05.2fs", mins, secs)
	default:
		return fmt.Sprintf("%.2fs", secs)
	}
}
