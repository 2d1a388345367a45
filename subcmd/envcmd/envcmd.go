// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package envcmd implements the subcommand `env` which reports the
// toolchains the current environment would give a new build directory,
// without writing any state.
package envcmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"github.com/eli-schwartz/meson/coredata"
	"github.com/eli-schwartz/meson/environment"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/ui"
)

const envUsage = `report the toolchains the current environment provides.

 $ meson env [-languages c,cpp] [-json]

Runs the same detection setup would run, honoring CC, CXX, CC_LD and
friends, and prints the outcome. Nothing is written.
`

// Cmd returns the Command for the `env` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "env [options]",
		ShortDesc: "report detected machines and toolchains",
		LongDesc:  envUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &envRun{}
			r.init()
			return r
		},
	}
}

type envRun struct {
	subcommands.CommandRunBase

	languages string
	jsonOut   bool
}

func (c *envRun) init() {
	c.Flags.StringVar(&c.languages, "languages", "c", "comma separated languages to detect toolchains for")
	c.Flags.BoolVar(&c.jsonOut, "json", false, "print toolchain records as JSON")
}

// Run runs the `env` subcommand.
func (c *envRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	if len(args) != 0 {
		fmt.Fprintf(a.GetErr(), "%s: positional arguments not expected\n", a.GetName())
		return 1
	}
	if err := c.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *envRun) run(ctx context.Context) error {
	logger := mlog.New(os.Stderr)
	ctx = mlog.NewContext(ctx, logger)

	buildEnv := environment.New()
	if err := buildEnv.CollectEnvOptions(ctx); err != nil {
		return err
	}
	var langs []string
	for _, lang := range strings.Split(c.languages, ",") {
		lang = strings.TrimSpace(lang)
		if lang != "" && !slices.Contains(langs, lang) {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return errors.New("no languages given")
	}

	records := map[string]coredata.ToolchainRecord{}
	var lines []string
	info := buildEnv.Machine(machine.Host)
	lines = append(lines, fmt.Sprintf("Host machine: %s %s (%s, %s endian)",
		info.System, info.CPUFamily, info.CPU, info.Endian))

	var errs []error
	for _, lang := range langs {
		comp, err := environment.DetectCompiler(ctx, buildEnv, lang, machine.Host)
		if err != nil {
			errs = append(errs, err)
			lines = append(lines, fmt.Sprintf("%s: %v", lang, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s compiler: %s (%s %s %q)",
			comp.DisplayLanguage(), comp.NameString(), comp.ID(), comp.Version(), comp.FullVersion()))
		if l := comp.Linker(); l != nil {
			lines = append(lines, fmt.Sprintf("%s linker: %s %s %s",
				comp.DisplayLanguage(), comp.NameString(), l.ID(), l.Version()))
		}
		rec := coredata.RecordToolchain(comp)
		if comp.NeedsStaticLinker() {
			sl, err := environment.DetectStaticLinker(ctx, buildEnv, comp)
			if err != nil {
				lines = append(lines, fmt.Sprintf("%s static linker: %v", comp.DisplayLanguage(), err))
			} else {
				rec.StaticLinker = coredata.RecordStaticLinker(sl)
				lines = append(lines, fmt.Sprintf("%s static linker: %s %s",
					comp.DisplayLanguage(), strings.Join(sl.Exelist(), " "), sl.Version()))
			}
		}
		records[lang] = rec
	}
	if len(errs) == len(langs) {
		return errors.Join(errs...)
	}

	if c.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	ui.Default.PrintLines("\n", strings.Join(lines, "\n")+"\n")
	return nil
}
