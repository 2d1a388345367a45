// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Meson configures build directories. It detects toolchains, probes
// their capabilities and resolves build options.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"github.com/eli-schwartz/meson/coredata"
	"github.com/eli-schwartz/meson/subcmd/configure"
	"github.com/eli-schwartz/meson/subcmd/envcmd"
	"github.com/eli-schwartz/meson/subcmd/introspect"
	"github.com/eli-schwartz/meson/subcmd/setup"
	"github.com/eli-schwartz/meson/subcmd/version"
	"github.com/eli-schwartz/meson/ui"
)

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "meson",
		Title: "Meson build configurator",
		Context: func(ctx context.Context) context.Context {
			return ctx
		},
		Commands: []*subcommands.Command{
			setup.Cmd(),
			configure.Cmd(),
			introspect.Cmd(),
			envcmd.Cmd(),
			version.Cmd(coredata.Version),
			subcommands.CmdHelp,
		},
	}
}

func main() {
	os.Exit(mesonMain())
}

func mesonMain() (exitCode int) {
	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, buf)
			exitCode = 2
		}
	}()

	ui.Init()
	defer ui.Restore()

	return subcommands.Run(getApplication(), nil)
}
