// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shutil

import (
	"fmt"
	"strings"
)

// Split splits a command line fragment using POSIX shell quoting
// rules: whitespace separates arguments, single quotes preserve
// everything, double quotes preserve everything except the escapes
// \" \\ \$ and \`, and a backslash escapes the next character.
// Unbalanced quotes or a trailing backslash are an error.
//
// It is used to split option values such as c_args and environment
// variables such as CFLAGS. No shell evaluation happens; $ and other
// metacharacters are ordinary characters.
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	started := false
	flush := func() {
		if started {
			args = append(args, sb.String())
			sb.Reset()
			started = false
		}
	}
	const (
		stUnquoted = iota
		stSingle
		stDouble
	)
	st := stUnquoted
	for i := 0; i < len(cmdline); i++ {
		ch := cmdline[i]
		switch st {
		case stSingle:
			if ch == '\'' {
				st = stUnquoted
				continue
			}
			sb.WriteByte(ch)
		case stDouble:
			switch ch {
			case '\\':
				if i+1 < len(cmdline) && strings.IndexByte("\"\\$`", cmdline[i+1]) >= 0 {
					i++
					sb.WriteByte(cmdline[i])
					continue
				}
				sb.WriteByte(ch)
			case '"':
				st = stUnquoted
			default:
				sb.WriteByte(ch)
			}
		default:
			switch ch {
			case '\\':
				if i+1 >= len(cmdline) {
					return nil, fmt.Errorf("failed to split %q: trailing backslash", cmdline)
				}
				i++
				sb.WriteByte(cmdline[i])
				started = true
			case '\'':
				st = stSingle
				started = true
			case '"':
				st = stDouble
				started = true
			case ' ', '\t', '\n', '\r':
				flush()
			default:
				sb.WriteByte(ch)
				started = true
			}
		}
	}
	if st != stUnquoted {
		return nil, fmt.Errorf("failed to split %q: unbalanced quote", cmdline)
	}
	flush()
	return args, nil
}
