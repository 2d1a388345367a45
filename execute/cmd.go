// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package execute runs toolchain commands.
package execute

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/eli-schwartz/meson/toolsupport/shutil"
)

// Executor is an interface to run the cmd.
type Executor interface {
	Run(ctx context.Context, cmd *Cmd) error
}

// Cmd describes one toolchain invocation, such as a version probe or
// a scratch compile. Both output streams are captured so the caller
// can parse them after the run.
type Cmd struct {
	// ID identifies this invocation in logs. It does not have to be
	// human readable, so a UUID is fine.
	ID string

	// Desc is a short human readable description of the invocation,
	// e.g. "compile testfile.c".
	Desc string

	// Args holds the command line.
	Args []string

	// Env holds KEY=VALUE entries appended to the inherited
	// environment of the process.
	Env []string

	// Dir is the working directory of the cmd.
	Dir string

	stdout, stderr bytes.Buffer
}

// Command renders the command line for error messages.
func (c *Cmd) Command() string {
	return shutil.Join(c.Args)
}

// StdoutWriter starts a fresh stdout capture and returns its writer.
func (c *Cmd) StdoutWriter() io.Writer {
	c.stdout.Reset()
	return &c.stdout
}

// StderrWriter starts a fresh stderr capture and returns its writer.
func (c *Cmd) StderrWriter() io.Writer {
	c.stderr.Reset()
	return &c.stderr
}

// Stdout returns the stdout captured by the last run.
func (c *Cmd) Stdout() []byte {
	return c.stdout.Bytes()
}

// Stderr returns the stderr captured by the last run.
func (c *Cmd) Stderr() []byte {
	return c.stderr.Bytes()
}

// ExitError reports a command that ran to completion and exited
// non-zero.
type ExitError struct {
	ExitCode int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit=%d", e.ExitCode)
}
