// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// clearLine moves to column one and erases the current line.
const clearLine = "\r\033[K"

type termSpinner struct {
	quit, done chan struct{}
	started    time.Time
	n          int
	msg        string
}

// Start begins spinning with the formatted message.
func (s *termSpinner) Start(format string, args ...any) {
	s.started = time.Now()
	s.msg = fmt.Sprintf(format, args...)
	fmt.Printf("%s... ", s.msg)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		tick := time.NewTicker(500 * time.Millisecond)
		defer tick.Stop()
		const chars = `/-\|`
		for {
			select {
			case <-s.quit:
				return
			case <-tick.C:
				fmt.Printf("\b%c", chars[s.n%len(chars)])
				s.n++
			}
		}
	}()
}

// Stop erases the spinner line, reporting err when non-nil.
// Finished messages faster than DurationThreshold leave no trace.
func (s *termSpinner) Stop(err error) {
	close(s.quit)
	<-s.done
	d := time.Since(s.started)
	if err != nil {
		fmt.Printf("%s%6s %s failed %v\n", clearLine, FormatDuration(d), s.msg, err)
		return
	}
	if d < DurationThreshold {
		fmt.Print(clearLine)
		return
	}
	fmt.Printf("%s%6s %s\n", clearLine, FormatDuration(d), s.msg)
}

// Done ends the spinner with a success message.
func (s *termSpinner) Done(format string, args ...any) {
	close(s.quit)
	<-s.done
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s%6s %s %s\n", clearLine, FormatDuration(time.Since(s.started)), s.msg, msg)
}

// TermUI prints to a terminal.
type TermUI struct {
	width int
}

func (t *TermUI) init() {
	t.width, _, _ = term.GetSize(int(os.Stdout.Fd()))
}

// PrintLines implements the ui.UI interface.
// A leading "\n" message appends below earlier output; otherwise the
// current status line is rewritten in place.
func (t *TermUI) PrintLines(msgs ...string) {
	var buf bytes.Buffer
	if len(msgs) > 0 && msgs[0] == "\n" {
		msgs = msgs[1:]
	} else {
		buf.WriteString(clearLine)
	}
	first := true
	for _, msg := range msgs {
		if msg == "" {
			continue
		}
		if !first {
			fmt.Fprintln(&buf)
		}
		first = false
		buf.WriteString(clipLine(msg, t.width))
	}
	os.Stdout.Write(buf.Bytes())
}

// NewSpinner returns a terminal-based spinner.
func (TermUI) NewSpinner() Spinner {
	return &termSpinner{}
}
