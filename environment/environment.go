// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package environment detects the toolchains taking part in a build.
//
// An Environment describes the build machine (where configuration
// runs) and the host machine (where the outputs run), looks up tools
// through environment variables, probes candidate binaries for their
// family and version, and constructs the matching compilers.Compiler
// and linkers.DynamicLinker values. It also collects the option
// values the environment supplies, such as CFLAGS, and seeds them
// into an options.Store when a toolchain is registered.
package environment

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/eli-schwartz/meson/execute"
	"github.com/eli-schwartz/meson/execute/localexec"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
)

// Environment holds the machines of a build and the hooks detection
// needs to reach the outside world.
type Environment struct {
	build   machine.Info
	host    machine.Info
	isCross bool

	// Getenv looks up process environment variables. Nil means
	// os.Getenv; tests substitute a map lookup. An empty value reads
	// as unset.
	Getenv func(string) string

	// Executor runs detection probes. Nil means run locally.
	Executor execute.Executor

	// ScratchDir parents temp dirs for probes that need a source
	// file. Empty means the system temp dir.
	ScratchDir string

	// envOpts holds option values collected from the environment,
	// keyed by the option they seed. See CollectEnvOptions.
	envOpts map[options.Key][]string
}

// New returns an environment for a native build: both machines are
// the machine running the process.
func New() *Environment {
	m := machine.DetectBuildMachine()
	return &Environment{build: m, host: m}
}

// NewCross returns an environment whose outputs run on host rather
// than on the machine running the process. Toolchains detected for
// the host are cross toolchains.
func NewCross(host machine.Info) *Environment {
	return &Environment{build: machine.DetectBuildMachine(), host: host, isCross: true}
}

// Machine returns the description of one machine.
func (env *Environment) Machine(m machine.Choice) machine.Info {
	if m == machine.Build {
		return env.build
	}
	return env.host
}

// IsCross reports whether the host machine differs from the build
// machine.
func (env *Environment) IsCross() bool { return env.isCross }

// MachineIsCross reports whether toolchains for m cross-compile. Only
// the host side of a cross build does; the build machine always runs
// its own outputs.
func (env *Environment) MachineIsCross(m machine.Choice) bool {
	return env.isCross && m == machine.Host
}

func (env *Environment) getenv(name string) string {
	if env.Getenv != nil {
		return env.Getenv(name)
	}
	return os.Getenv(name)
}

// EnvVar looks up an environment variable for one machine. In a cross
// build plain names describe the host toolchain and the build machine
// reads the _FOR_BUILD spelling, so CC names the cross compiler and
// CC_FOR_BUILD the native one.
func (env *Environment) EnvVar(m machine.Choice, name string) (string, bool) {
	if env.isCross && m == machine.Build {
		name += "_FOR_BUILD"
	}
	v := env.getenv(name)
	return v, v != ""
}

func (env *Environment) executor() execute.Executor {
	if env.Executor == nil {
		return localexec.LocalExec{}
	}
	return env.Executor
}

// runTool invokes a tool and captures its output. A nonzero exit is a
// result, not an error; only failing to spawn the tool reports an
// error.
func (env *Environment) runTool(ctx context.Context, desc string, args []string) (stdout, stderr string, exitCode int, err error) {
	cmd := &execute.Cmd{
		ID:   uuid.New().String(),
		Desc: desc,
		Args: args,
		// A deterministic tool locale keeps banners parseable.
		Env: []string{"LC_ALL=C"},
	}
	mlog.Debugf(ctx, "%s: %s", desc, strings.Join(args, " "))
	if err := env.executor().Run(ctx, cmd); err != nil {
		var eerr execute.ExitError
		if !errors.As(err, &eerr) {
			return "", "", 0, &merrors.ToolchainProbeError{Cmd: args, Err: err}
		}
		exitCode = eerr.ExitCode
	}
	mlog.Debugf(ctx, "%s stdout:\n%s", desc, cmd.Stdout())
	mlog.Debugf(ctx, "%s stderr:\n%s", desc, cmd.Stderr())
	return string(cmd.Stdout()), string(cmd.Stderr()), exitCode, nil
}

// Tool banners bury the version in prose, and may carry dates or
// serial numbers that look like versions. Take the first one or two
// digit group followed by dotted groups and not preceded by a digit
// or a period; limiting the major version to two digits rejects
// dates like 20140320.
var (
	versionRe = regexp.MustCompile(`(?:^|[^\d.])(\d{1,2}(?:\.\d+)+(?:-[a-zA-Z0-9]+)?)`)
	// Looser fallback for banners like "2020.01.100".
	versionFallbackRe = regexp.MustCompile(`\d{1,4}\.\d{1,4}\.?\d{0,4}`)
)

// UnknownVersion is reported when no version can be parsed from a
// tool's output.
const UnknownVersion = "unknown version"

// SearchVersion digs a dotted version number out of tool output,
// returning UnknownVersion when there is none.
func SearchVersion(text string) string {
	if m := versionRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := versionFallbackRe.FindString(text); m != "" {
		return m
	}
	return UnknownVersion
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
