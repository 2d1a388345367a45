// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package linkers models the static archivers and dynamic linkers a
// toolchain may use. Each tool is a value carrying its argument
// dialect as data; behavior shared by a family (GNU, Apple, link.exe)
// lives in trait builders the constructors compose.
package linkers

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/toolsupport/rsputil"
)

// RSPSyntax is the response file dialect a tool accepts.
type RSPSyntax int

const (
	// RSPSyntaxGCC is the gcc @file dialect: backslash escapes,
	// whitespace separated.
	RSPSyntaxGCC RSPSyntax = iota
	// RSPSyntaxMSVC is the link.exe @file dialect.
	RSPSyntaxMSVC
)

func (s RSPSyntax) String() string {
	if s == RSPSyntaxMSVC {
		return "msvc"
	}
	return "gcc"
}

// Quote quotes arg for a response file in this dialect.
func (s RSPSyntax) Quote(arg string) string {
	if s == RSPSyntaxMSVC {
		return rsputil.QuoteMSVC(arg)
	}
	return rsputil.QuoteGCC(arg)
}

// Join renders args as response file content in this dialect.
func (s RSPSyntax) Join(args []string) string {
	if s == RSPSyntaxMSVC {
		return rsputil.JoinMSVC(args)
	}
	return rsputil.JoinGCC(args)
}

// RPathRequest carries the inputs of rpath argument generation.
type RPathRequest struct {
	Machine machine.Info
	// BuildDir is the absolute build directory root.
	BuildDir string
	// FromDir is the directory, relative to BuildDir, the binary is
	// linked in.
	FromDir string
	// RPaths are the raw rpath entries, relative to BuildDir unless
	// absolute.
	RPaths []string
	// BuildRPath is an extra rpath used only in the build tree,
	// added as-is.
	BuildRPath string
	// InstallRPath is the rpath the installed binary will carry. It
	// is not written at link time but its length reserves header
	// space so installation can rewrite the rpath in place.
	InstallRPath string
	// SystemDirs are the compiler's default library directories,
	// consulted only by linkers that need the full search path
	// recorded (AIX).
	SystemDirs []string
}

// evaluateRPath converts one raw rpath entry to internal form: the
// entry naming fromDir itself collapses to the empty string, absolute
// entries pass through, and everything else becomes relative to the
// link directory so binary layout does not depend on the build
// directory location.
func evaluateRPath(p, buildDir, fromDir string) string {
	if p == fromDir {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(filepath.Join(buildDir, fromDir), filepath.Join(buildDir, p))
	if err != nil {
		return p
	}
	return rel
}

// orderRPaths moves rpaths pointing inside the build tree ahead of
// absolute ones so built binaries prefer freshly built libraries over
// installed copies. The partition is stable.
func orderRPaths(rpaths []string) []string {
	out := slices.Clone(rpaths)
	slices.SortStableFunc(out, func(a, b string) int {
		ab, bb := 0, 0
		if filepath.IsAbs(a) {
			ab = 1
		}
		if filepath.IsAbs(b) {
			bb = 1
		}
		return ab - bb
	})
	return out
}

func prepareRPaths(raw []string, buildDir, fromDir string) []string {
	internal := make([]string, 0, len(raw))
	for _, p := range raw {
		internal = append(internal, evaluateRPath(p, buildDir, fromDir))
	}
	return orderRPaths(internal)
}

// joinOrigin glues a prepared rpath to the loader relative origin
// token. filepath.Join is unsuitable: it would normalize away the
// ".." segments following the token. Absolute rpaths stay absolute.
func joinOrigin(origin, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return origin + "/" + p
}

// buildDirJoin resolves a raw rpath entry against the build
// directory. Absolute entries stay as they are.
func buildDirJoin(buildDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(buildDir, p)
}

// originPaths joins every prepared rpath to the loader relative origin
// token and deduplicates preserving first-seen order.
func originPaths(req RPathRequest, origin string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, p := range prepareRPaths(req.RPaths, req.BuildDir, req.FromDir) {
		op := joinOrigin(origin, p)
		if !seen[op] {
			seen[op] = true
			paths = append(paths, op)
		}
	}
	return paths
}

// padRPath reserves space in the written rpath string for the longer
// install-time rpath, so installation can rewrite it without a relink.
func padRPath(paths, installRPath string) string {
	if len(paths) >= len(installRPath) {
		return paths
	}
	padding := strings.Repeat("X", len(installRPath)-len(paths))
	if paths == "" {
		return padding
	}
	return paths + ":" + padding
}

// dirExists reports whether p is an existing directory.
func dirExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
