// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package introspect implements the subcommand `introspect` which
// dumps the state of a configured build directory as JSON.
package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"github.com/eli-schwartz/meson/coredata"
	"github.com/eli-schwartz/meson/environment"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
)

const introspectUsage = `dump the state of a configured build directory as JSON.

 $ meson introspect -buildoptions [builddir]
 $ meson introspect -machines -compilers [builddir]

One dump prints bare; several print as an object keyed by dump name.
`

// Cmd returns the Command for the `introspect` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "introspect [options] [builddir]",
		ShortDesc: "dump build directory state as JSON",
		LongDesc:  introspectUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &introspectRun{}
			r.init()
			return r
		},
	}
}

type introspectRun struct {
	subcommands.CommandRunBase

	buildoptions bool
	machines     bool
	compilers    bool
	all          bool
	indent       bool

	buildDir string
}

func (c *introspectRun) init() {
	c.Flags.BoolVar(&c.buildoptions, "buildoptions", false, "dump every option with value, type and choices")
	c.Flags.BoolVar(&c.machines, "machines", false, "dump the build and host machine descriptions")
	c.Flags.BoolVar(&c.compilers, "compilers", false, "dump the detected toolchains per machine and language")
	c.Flags.BoolVar(&c.all, "all", false, "dump everything")
	c.Flags.BoolVar(&c.indent, "indent", false, "pretty print the JSON output")
}

// Run runs the `introspect` subcommand.
func (c *introspectRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	switch len(args) {
	case 0:
		c.buildDir = "."
	case 1:
		c.buildDir = args[0]
	default:
		fmt.Fprintf(a.GetErr(), "%s: at most one build directory expected\n", a.GetName())
		return 1
	}
	if err := c.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *introspectRun) run(ctx context.Context) error {
	logger := mlog.New(os.Stderr)
	ctx = mlog.NewContext(ctx, logger)

	d, err := coredata.Load(ctx, c.buildDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s is not a configured build directory: run meson setup first", c.buildDir)
		}
		return err
	}

	out := map[string]any{}
	if c.buildoptions || c.all {
		opts, err := buildOptions(ctx, d)
		if err != nil {
			return err
		}
		out["buildoptions"] = opts
	}
	if c.compilers || c.all {
		out["compilers"] = d.Compilers
	}
	if c.machines || c.all {
		out["machines"] = d.Machines
	}
	if len(out) == 0 {
		return errors.New("nothing to dump: pass -buildoptions, -machines, -compilers or -all")
	}

	var v any = out
	if len(out) == 1 {
		for _, single := range out {
			v = single
		}
	}
	enc := json.NewEncoder(os.Stdout)
	if c.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// buildOption is one row of the buildoptions dump.
type buildOption struct {
	Name        string   `json:"name"`
	Value       any      `json:"value"`
	Section     string   `json:"section"`
	Machine     string   `json:"machine"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Choices     []string `json:"choices,omitempty"`
}

func buildOptions(ctx context.Context, d *coredata.Data) ([]buildOption, error) {
	buildEnv := environment.New()
	store := options.NewStore()
	if _, err := environment.RestoreOptions(ctx, buildEnv, store, d); err != nil {
		return nil, err
	}
	keys := store.SortedKeys()
	// A name registered for both machines reports its machine;
	// everything else is machine agnostic.
	type nameSub struct{ name, sub string }
	count := make(map[nameSub]int, len(keys))
	for _, k := range keys {
		count[nameSub{k.Name, k.Subproject}]++
	}
	opts := make([]buildOption, 0, len(keys))
	for _, k := range keys {
		o, ok := store.Object(k)
		if !ok {
			continue
		}
		m := "any"
		if count[nameSub{k.Name, k.Subproject}] > 1 {
			m = k.Machine.String()
		}
		opts = append(opts, buildOption{
			Name:        k.String(),
			Value:       o.Value(),
			Section:     store.Section(k),
			Machine:     m,
			Type:        o.Type(),
			Description: o.Description(),
			Choices:     o.PrintableChoices(),
		})
	}
	return opts, nil
}
