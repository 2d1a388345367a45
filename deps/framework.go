// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package deps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/toolsupport/verutil"
)

// Framework is an Apple framework found under one of the framework
// search directories. Compile args carry -F plus a plain -I fallback
// because most cross platform projects include <GL/gl.h>, not
// <OpenGL/gl.h>.
type Framework struct {
	name string
	// path is the full path to the name.framework directory.
	path        string
	compileArgs []string
	linkArgs    []string
	found       bool
}

// NewFramework looks for name.framework under paths, in order. The
// returned dependency reports Found false when no directory matches.
func NewFramework(ctx context.Context, name string, paths []string) *Framework {
	d := &Framework{name: name}
	for _, p := range paths {
		mlog.Debugf(ctx, "looking for framework %s in %s", name, p)
		fp, err := frameworkPath(p, name)
		if err != nil || fp == "" {
			continue
		}
		d.path = fp
		d.compileArgs = []string{"-F" + fp}
		if incdir := frameworkIncludePath(fp); incdir != "" {
			d.compileArgs = append(d.compileArgs, "-I"+incdir)
		}
		d.linkArgs = []string{"-F" + fp, "-framework", strings.TrimSuffix(filepath.Base(fp), ".framework")}
		d.found = true
		return d
	}
	return d
}

func (d *Framework) Name() string { return d.name }

func (d *Framework) Version() string { return "unknown" }

func (d *Framework) Found() bool { return d.found }

func (d *Framework) CompileArgs() []string { return d.compileArgs }

func (d *Framework) LinkArgs() []string { return d.linkArgs }

// Path returns the framework directory, e.g.
// /Library/Frameworks/Python.framework.
func (d *Framework) Path() string { return d.path }

// frameworkPath finds the *.framework directory for name under dir.
// The match is case insensitive because macOS filesystems usually are.
func frameworkPath(dir, name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.framework"))
	if err != nil {
		return "", fmt.Errorf("bad framework search dir %s: %w", dir, err)
	}
	lname := strings.ToLower(name)
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".framework")
		if strings.ToLower(base) == lname {
			return m, nil
		}
	}
	return "", nil
}

// frameworkIncludePath finds the Headers directory of a framework.
// Headers should be a symlink into Versions/Current, but broken
// frameworks exist, so fall back to the highest version.
func frameworkIncludePath(fwpath string) string {
	trials := []string{
		"Headers",
		filepath.Join("Versions", "Current", "Headers"),
		latestVersionHeaders(fwpath),
	}
	for _, t := range trials {
		p := filepath.Join(fwpath, t)
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return p
		}
	}
	return ""
}

func latestVersionHeaders(fwpath string) string {
	matches, err := filepath.Glob(filepath.Join(fwpath, "Versions", "*"))
	if err != nil {
		return "Headers"
	}
	latest := ""
	for _, m := range matches {
		v := filepath.Base(m)
		if strings.EqualFold(v, "current") {
			continue
		}
		if latest == "" || verutil.Compare(v, latest) > 0 {
			latest = v
		}
	}
	if latest == "" {
		// Most system frameworks have no Versions directory at all.
		return "Headers"
	}
	return filepath.Join("Versions", latest, "Headers")
}
