// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ui provides console output for meson subcommands.
package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// Spinner reports progress of a long operation, such as toolchain
// detection or a sanity check run.
type Spinner interface {
	// Start begins spinning with the formatted message.
	Start(format string, args ...any)
	// Stop ends the spinner, printing err when non-nil.
	Stop(err error)
	// Done ends the spinner with a success message.
	Done(format string, args ...any)
}

// UI prints configure progress and summaries.
type UI interface {
	// PrintLines writes message lines to the console.
	// A leading "\n" message appends below earlier output. Otherwise
	// the current status line is rewritten in place.
	PrintLines(msgs ...string)
	// NewSpinner returns a new spinner.
	NewSpinner() Spinner
}

// Default is the UI implementation selected at startup.
// Changing it later is undefined behavior.
var Default UI

func init() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		termUI := &TermUI{}
		termUI.init()
		Default = termUI
	} else {
		Default = &LogUI{}
	}
}

// IsTerminal reports whether Default writes to a terminal.
func IsTerminal() bool {
	_, ok := Default.(*TermUI)
	return ok
}

// clipLine shortens a status line to width columns by dropping the
// tail. Status lines put the interesting part first, so the tail is
// the safe end to lose. Messages spanning lines print tables or
// summaries and are never clipped. SGR sequences do not count toward
// the width; a clipped line that contained any gets a reset appended
// so a dropped reset cannot leak attributes into later output.
func clipLine(msg string, width int) string {
	if width <= 4 || strings.Contains(msg, "\n") {
		return msg
	}
	const marker = "..."
	cols := 0
	cut := -1
	sawSGR := false
	for i := 0; i < len(msg); i++ {
		if strings.HasPrefix(msg[i:], "\033[") {
			j := strings.IndexByte(msg[i:], 'm')
			if j < 0 {
				break
			}
			sawSGR = true
			i += j
			continue
		}
		cols++
		if cols == width-len(marker) {
			cut = i + 1
		}
	}
	if cols < width {
		return msg
	}
	out := msg[:cut] + marker
	if sawSGR {
		out += Reset.String()
	}
	return out
}

// https://en.wikipedia.org/wiki/ANSI_escape_code#SGR_(Select_Graphic_Rendition)_parameters
type SGRCode int

const (
	Bold SGRCode = iota
	Red
	Green
	Yellow
	Cyan
	BackgroundRed
	Reset
)

var sgrEscSeq = map[SGRCode]string{
	Bold:          "\033[1m",
	Red:           "\033[31;1m",
	Green:         "\033[32m",
	Yellow:        "\033[33m",
	Cyan:          "\033[36m",
	BackgroundRed: "\033[41;37m",
	Reset:         "\033[0m",
}

func (s SGRCode) String() string {
	return sgrEscSeq[s]
}

// SGR wraps s in the given SGR attribute and a trailing reset.
func SGR(n SGRCode, s string) string {
	return n.String() + s + Reset.String()
}

// StripANSIEscapeCodes removes ANSI escape sequences from s.
func StripANSIEscapeCodes(s string) string {
	if !strings.ContainsRune(s, '\033') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\033' {
			sb.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '[' {
			// CSI: skip up to and including the final byte.
			i += 2
			for i < len(s) && !isCSIFinal(s[i]) {
				i++
			}
		}
		// A bare escape drops; the next byte prints as-is.
	}
	return sb.String()
}

func isCSIFinal(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
