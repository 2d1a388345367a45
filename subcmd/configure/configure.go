// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package configure implements the subcommand `configure` which shows
// and changes the options of a configured build directory.
package configure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"github.com/eli-schwartz/meson/coredata"
	"github.com/eli-schwartz/meson/environment"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
	"github.com/eli-schwartz/meson/ui"
)

const configureUsage = `show or change the options of a configured build directory.

 $ meson configure [builddir]
 $ meson configure [-D name=value]... [builddir]

Without -D settings, prints every option with its current value.
With -D settings, validates and stores the new values.
`

// Cmd returns the Command for the `configure` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "configure [options] [builddir]",
		ShortDesc: "show or change options of a build directory",
		LongDesc:  configureUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &configureRun{}
			r.init()
			return r
		},
	}
}

type configureRun struct {
	subcommands.CommandRunBase

	defines  defineFlag
	buildDir string
}

type defineFlag []string

func (f *defineFlag) String() string { return strings.Join(*f, " ") }

func (f *defineFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func (c *configureRun) init() {
	c.Flags.Var(&c.defines, "D", "set the value of a build option, e.g. -D buildtype=release (repeatable)")
}

// Run runs the `configure` subcommand.
func (c *configureRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
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
		msgPrefix := "Error"
		if ui.IsTerminal() {
			msgPrefix = ui.SGR(ui.BackgroundRed, msgPrefix)
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", msgPrefix, err)
		return 1
	}
	return 0
}

func (c *configureRun) run(ctx context.Context) error {
	logger := mlog.New(os.Stderr)
	ctx = mlog.NewContext(ctx, logger)

	d, err := coredata.Load(ctx, c.buildDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s is not a configured build directory: run meson setup first", c.buildDir)
		}
		return err
	}
	buildEnv := environment.New()
	store := options.NewStore()
	if _, err := environment.RestoreOptions(ctx, buildEnv, store, d); err != nil {
		return err
	}

	if len(c.defines) == 0 {
		printOptions(os.Stdout, store)
		return nil
	}

	cmdline, err := parseDefines(c.defines)
	if err != nil {
		return err
	}
	keys := make([]options.Key, 0, len(cmdline))
	for k := range cmdline {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b options.Key) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	changed := false
	for _, k := range keys {
		dirty, err := store.SetOption(ctx, k, cmdline[k], false)
		if err != nil {
			return err
		}
		changed = changed || dirty
	}
	if !changed {
		mlog.Infof(ctx, "no option values changed")
		return nil
	}
	d.CmdLineArgs = append(d.CmdLineArgs, c.defines...)
	d.CaptureOptions(store)
	return coredata.Save(ctx, d, c.buildDir)
}

func parseDefines(defs []string) (map[options.Key]string, error) {
	out := make(map[options.Key]string, len(defs))
	for _, def := range defs {
		name, value, ok := strings.Cut(def, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("option %q is malformed: expected name=value", def)
		}
		out[options.ParseKey(name)] = value
	}
	return out, nil
}

// sectionTitles orders the option listing the way setup registers:
// directories first, then core, then the narrower namespaces.
var sectionTitles = []struct {
	section string
	title   string
}{
	{"directory", "Directories"},
	{"core", "Core options"},
	{"backend", "Backend options"},
	{"base", "Base options"},
	{"compiler", "Compiler options"},
	{"user", "Project options"},
}

func printOptions(w io.Writer, s *options.Store) {
	bySection := map[string][]options.Key{}
	for _, k := range s.SortedKeys() {
		sec := s.Section(k)
		bySection[sec] = append(bySection[sec], k)
	}
	first := true
	for _, st := range sectionTitles {
		keys := bySection[st.section]
		if len(keys) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		title := st.title
		if ui.IsTerminal() {
			title = ui.SGR(ui.Bold, title)
		}
		fmt.Fprintf(w, "%s:\n", title)
		printTable(w, s, keys)
	}
}

func printTable(w io.Writer, s *options.Store, keys []options.Key) {
	rows := make([][4]string, 0, len(keys)+2)
	rows = append(rows,
		[4]string{"Option", "Current Value", "Possible Values", "Description"},
		[4]string{"------", "-------------", "---------------", "-----------"})
	for _, k := range keys {
		o, ok := s.Object(k)
		if !ok {
			continue
		}
		rows = append(rows, [4]string{
			k.String(),
			formatValue(o.PrintableValue()),
			formatChoices(o.PrintableChoices()),
			o.Description(),
		})
	}
	var width [3]int
	for _, r := range rows {
		for i := range width {
			if len(r[i]) > width[i] {
				width[i] = len(r[i])
			}
		}
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-*s  %-*s  %-*s  %s\n", width[0], r[0], width[1], r[1], width[2], r[2], r[3])
	}
}

func formatValue(v any) string {
	if elems, ok := v.([]string); ok {
		return "[" + strings.Join(elems, ", ") + "]"
	}
	return fmt.Sprint(v)
}

func formatChoices(choices []string) string {
	if choices == nil {
		return ""
	}
	return "[" + strings.Join(choices, ", ") + "]"
}
