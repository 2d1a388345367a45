// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package msvcutil provides utilities of msvc.
package msvcutil

import (
	"path/filepath"
	"strings"
)

// ignoreLibs are unix libraries the MSVC C runtime provides by
// default, so -l flags naming them are dropped instead of translated.
var ignoreLibs = map[string]bool{
	"m": true, "c": true, "pthread": true, "dl": true, "rt": true, "execinfo": true,
}

// UnixArgsToNative translates gcc style arguments to cl.exe/link.exe
// syntax. Arguments that have no MSVC equivalent are dropped.
func UnixArgsToNative(args []string) []string {
	result := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == "-mms-bitfields" || arg == "-pthread":
			continue
		case strings.HasPrefix(arg, "-LIBPATH:"):
			arg = "/LIBPATH:" + arg[len("-LIBPATH:"):]
		case strings.HasPrefix(arg, "-L"):
			arg = "/LIBPATH:" + arg[2:]
		case strings.HasPrefix(arg, "-l"):
			name := arg[2:]
			if ignoreLibs[name] {
				continue
			}
			arg = name + ".lib"
		case strings.HasPrefix(arg, "-isystem"):
			// cl has no system include concept, use /I.
			arg = "/I" + strings.TrimPrefix(arg[len("-isystem"):], "=")
		case strings.HasPrefix(arg, "-idirafter"):
			arg = "/I" + strings.TrimPrefix(arg[len("-idirafter"):], "=")
		case strings.HasPrefix(arg, "/source-charset:") || strings.HasPrefix(arg, "/execution-charset:") || arg == "/validate-charset-":
			// cl rejects both a charset option and /utf-8, so drop
			// the /utf-8 added by default when the user sets one.
			kept := result[:0]
			for _, r := range result {
				if r != "/utf-8" {
					kept = append(kept, r)
				}
			}
			result = kept
		}
		result = append(result, arg)
	}
	return result
}

// NativeArgsToUnix translates cl.exe/link.exe style arguments to the
// gcc syntax the argument handling works in.
func NativeArgsToUnix(args []string) []string {
	result := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "/LIBPATH:") || strings.HasPrefix(arg, "-LIBPATH:"):
			result = append(result, "-L"+arg[len("/LIBPATH:"):])
		case (strings.HasSuffix(arg, ".a") || strings.HasSuffix(arg, ".lib")) && !filepath.IsAbs(arg):
			result = append(result, "-l"+arg)
		default:
			result = append(result, arg)
		}
	}
	return result
}
