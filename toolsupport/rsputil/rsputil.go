// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package rsputil quotes arguments for response files. Tools read
// @file contents with their own lexer, so the quoting differs from
// the shell quoting in toolsupport/shutil.
package rsputil

import (
	"strings"

	"github.com/eli-schwartz/meson/toolsupport/shutil"
)

// QuoteGCC quotes arg for the gcc @file lexer (libiberty buildargv).
// It differs from shell quoting in that a backslash always escapes
// the next character, even inside single quotes.
func QuoteGCC(arg string) string {
	return shutil.Quote(strings.ReplaceAll(arg, `\`, `\\`))
}

// QuoteMSVC quotes arg the way CommandLineToArgvW parses it: double
// quotes around the argument, backslashes doubled only when they
// precede a quote.
func QuoteMSVC(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\"") {
		return arg
	}
	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(arg); i++ {
		switch arg[i] {
		case '\\':
			slashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteByte(arg[i])
	}
	// Trailing backslashes would escape the closing quote.
	b.WriteString(strings.Repeat(`\`, slashes))
	b.WriteByte('"')
	return b.String()
}

// JoinGCC renders args as gcc response file content.
func JoinGCC(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		quoted = append(quoted, QuoteGCC(arg))
	}
	return strings.Join(quoted, " ")
}

// JoinMSVC renders args as link.exe response file content.
func JoinMSVC(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		quoted = append(quoted, QuoteMSVC(arg))
	}
	return strings.Join(quoted, " ")
}
