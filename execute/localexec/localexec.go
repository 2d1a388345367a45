// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package localexec implements local command execution.
package localexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/eli-schwartz/meson/execute"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/runtimex"
	"github.com/eli-schwartz/meson/sync/semaphore"
)

// WorkerName is a name used for worker of the cmd in logs.
const WorkerName = "local"

// LocalExec implements execute.Executor interface that runs commands
// locally.
type LocalExec struct{}

// Run runs cmd with LocalExec.
func Run(ctx context.Context, cmd *execute.Cmd) error {
	return LocalExec{}.Run(ctx, cmd)
}

// forkSema bounds concurrent process creation. Windows runs out of
// memory resources when too many processes start at once.
var forkSema = semaphore.New("fork", runtimex.NumCPU())

// Run runs a cmd.
func (LocalExec) Run(ctx context.Context, cmd *execute.Cmd) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("no arguments in the command. ID: %s", cmd.ID)
	}
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Env = append(os.Environ(), cmd.Env...)
	c.Dir = cmd.Dir
	c.Stdout = cmd.StdoutWriter()
	c.Stderr = cmd.StderrWriter()
	s := time.Now()
	err := forkSema.Do(ctx, func(ctx context.Context) error {
		return c.Start()
	})
	if err == nil {
		// Tool invocations are expendable relative to the generator
		// process itself.
		adjustOOMScore(ctx, c.Process.Pid)
		err = c.Wait()
	}
	d := time.Since(s)
	if ctx.Err() != nil {
		return fmt.Errorf("%s interrupted: %w", cmd.ID, ctx.Err())
	}
	code, err := exitCode(err)
	if err != nil {
		return fmt.Errorf("could not invoke %q: %w", cmd.Command(), err)
	}
	mlog.Debugf(ctx, "%s: exit=%d stdout=%d stderr=%d dur=%s maxrss=%d",
		cmd.ID, code, len(cmd.Stdout()), len(cmd.Stderr()), d, maxRSS(c))
	if code != 0 {
		return execute.ExitError{ExitCode: code}
	}
	return nil
}

// exitCode maps err to the process exit code. A non-exit error (spawn
// failure) is returned unchanged.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var eerr *exec.ExitError
	if !errors.As(err, &eerr) {
		return -1, err
	}
	if w, ok := eerr.ProcessState.Sys().(syscall.WaitStatus); ok {
		return w.ExitStatus(), nil
	}
	return 1, nil
}
