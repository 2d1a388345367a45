// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

type logSpinner struct {
	started time.Time
}

// Start implements the ui.Spinner interface.
// Because a log-based UI cannot support an animated spinner, this is used only to report spinner start.
func (l *logSpinner) Start(format string, args ...any) {
	l.started = time.Now()
	log.Infof(format, args...)
}

// Stop implements the ui.Spinner interface.
// It reports success or failure with the elapsed time.
func (l *logSpinner) Stop(err error) {
	if err != nil {
		log.Warnf("-> failed %s %v", time.Since(l.started), err)
		return
	}
	log.Infof("-> done %s", time.Since(l.started))
}

// Done reports the formatted message with the elapsed time.
func (l *logSpinner) Done(format string, args ...any) {
	log.Infof("-> %s %s", fmt.Sprintf(format, args...), time.Since(l.started))
}

// LogUI is a log-based UI for non-terminal stdout, e.g. when setup
// output is redirected to a file or piped to another tool.
type LogUI struct{}

// PrintLines implements the ui.UI interface.
// Each non-empty message prints on its own line, stripped of ansi
// escape sequences. In-place updates (messages replacing the last N
// lines) are not replayed.
func (LogUI) PrintLines(msgs ...string) {
	if len(msgs) > 0 && msgs[0] == "\n" {
		msgs = msgs[1:]
	}
	for _, msg := range msgs {
		if msg == "" {
			continue
		}
		fmt.Fprintln(os.Stdout, StripANSIEscapeCodes(msg))
	}
}

// NewSpinner returns a log-based spinner.
func (LogUI) NewSpinner() Spinner {
	return &logSpinner{}
}
