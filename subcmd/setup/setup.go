// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package setup implements the subcommand `setup` which configures a
// build directory: it detects toolchains, runs sanity checks, resolves
// option values and persists the result.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/coredata"
	"github.com/eli-schwartz/meson/environment"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
	"github.com/eli-schwartz/meson/ui"
)

const setupUsage = `configure a build directory.

 $ meson setup [-D name=value]... [-languages c,cpp] <builddir>

Detects a toolchain for every requested language, sanity checks each
one, resolves option values from the command line and the environment,
and writes the state the other subcommands read to
<builddir>/meson-private.
`

// Cmd returns the Command for the `setup` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "setup [options] <builddir>",
		ShortDesc: "configure a build directory",
		LongDesc:  setupUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &setupRun{}
			r.init()
			return r
		},
	}
}

type setupRun struct {
	subcommands.CommandRunBase
	started time.Time

	// flag values
	languages   string
	defines     defineFlag
	reconfigure bool

	buildDir string
}

// defineFlag accumulates repeated -D name=value settings.
type defineFlag []string

func (f *defineFlag) String() string { return strings.Join(*f, " ") }

func (f *defineFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func (c *setupRun) init() {
	c.Flags.Var(&c.defines, "D", "set the value of a build option, e.g. -D buildtype=release (repeatable)")
	c.Flags.StringVar(&c.languages, "languages", "c", "comma separated languages to detect toolchains for")
	c.Flags.BoolVar(&c.reconfigure, "reconfigure", false, "regenerate an already configured directory, replaying its recorded command line")
}

// Run runs the `setup` subcommand.
func (c *setupRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	c.started = time.Now()
	ctx := cli.GetContext(a, c, env)
	if len(args) != 1 {
		fmt.Fprintf(a.GetErr(), "%s: exactly one build directory expected\n", a.GetName())
		return 1
	}
	c.buildDir = args[0]
	err := c.run(ctx)
	d := time.Since(c.started)
	dur := ui.FormatDuration(d)
	if err != nil {
		msgPrefix := "Setup Failure"
		if ui.IsTerminal() {
			dur = ui.SGR(ui.Bold, dur)
			msgPrefix = ui.SGR(ui.BackgroundRed, msgPrefix)
		}
		fmt.Fprintf(os.Stderr, "\n%6s %s: %v\n", dur, msgPrefix, err)
		return 1
	}
	msgPrefix := "Setup Succeeded"
	if ui.IsTerminal() {
		dur = ui.SGR(ui.Bold, dur)
		msgPrefix = ui.SGR(ui.Green, msgPrefix)
	}
	fmt.Fprintf(os.Stderr, "%6s %s: %s\n", dur, msgPrefix, c.buildDir)
	return 0
}

type errInterrupted struct{}

func (errInterrupted) Error() string        { return "interrupt by signal" }
func (errInterrupted) Is(target error) bool { return target == context.Canceled }

func (c *setupRun) run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer signals.HandleInterrupt(func() {
		cancel(errInterrupted{})
	})()

	defines := slices.Clone([]string(c.defines))
	_, err := os.Stat(coredata.File(c.buildDir))
	switch {
	case err == nil && !c.reconfigure:
		return fmt.Errorf("directory %s is already configured; pass -reconfigure to regenerate it", c.buildDir)
	case err == nil:
		old, err := coredata.Load(ctx, c.buildDir)
		if err != nil {
			return fmt.Errorf("reconfigure: %w", err)
		}
		// The recorded command line replays first so this run's
		// settings win.
		defines = append(slices.Clone(old.CmdLineArgs), defines...)
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	privateDir := coredata.PrivateDir(c.buildDir)
	logsDir := coredata.LogsDir(c.buildDir)
	for _, dir := range []string{privateDir, logsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	logger := mlog.New(os.Stderr)
	if err := logger.SetupFile(logsDir); err != nil {
		return err
	}
	defer logger.Close()
	ctx = mlog.NewContext(ctx, logger)
	mlog.Debugf(ctx, "meson %s setup %q", coredata.Version, c.buildDir)

	cmdline, err := parseDefines(defines)
	if err != nil {
		return err
	}
	langs, err := parseLanguages(c.languages)
	if err != nil {
		return err
	}

	buildEnv := environment.New()
	if err := buildEnv.CollectEnvOptions(ctx); err != nil {
		return err
	}

	store := options.NewStore()
	if err := options.InitBuiltinOptions(ctx, store, cmdline); err != nil {
		return err
	}

	summary := []string{
		ui.SGR(ui.Bold, "The Meson build system"),
		fmt.Sprintf("Version: %s", coredata.Version),
		fmt.Sprintf("Build dir: %s", absDir(c.buildDir)),
		"Build type: native build",
	}
	hostInfo := buildEnv.Machine(machine.Host)
	summary = append(summary,
		fmt.Sprintf("Host machine cpu family: %s", hostInfo.CPUFamily),
		fmt.Sprintf("Host machine cpu: %s", hostInfo.CPU),
	)

	detected := make([]*compilers.Compiler, 0, len(langs))
	for _, lang := range langs {
		comp, err := environment.DetectCompiler(ctx, buildEnv, lang, machine.Host)
		if err != nil {
			return err
		}
		detected = append(detected, comp)
		summary = append(summary, compilerSummary(machine.Host, comp)...)
	}

	pr := &compilers.Prober{
		Executor:   buildEnv.Executor,
		Cache:      compilers.NewCheckCache(),
		Store:      store,
		ScratchDir: privateDir,
	}
	spin := ui.Default.NewSpinner()
	spin.Start("Sanity testing %d toolchain(s)", len(detected))
	err = environment.SanityCheckAll(ctx, pr, privateDir, detected)
	spin.Stop(err)
	if err != nil {
		return err
	}

	for _, comp := range detected {
		buildEnv.RegisterCompilerOptions(ctx, store, comp, cmdline)
	}
	if err := applyRemaining(ctx, store, cmdline); err != nil {
		return err
	}

	recs := make([]coredata.ToolchainRecord, 0, len(detected))
	for _, comp := range detected {
		rec := coredata.RecordToolchain(comp)
		if comp.NeedsStaticLinker() {
			sl, err := environment.DetectStaticLinker(ctx, buildEnv, comp)
			if err != nil {
				return err
			}
			rec.StaticLinker = coredata.RecordStaticLinker(sl)
			summary = append(summary, fmt.Sprintf("%s static linker for the %s machine: %s %s",
				comp.DisplayLanguage(), machine.Host, strings.Join(sl.Exelist(), " "), sl.Version()))
		}
		recs = append(recs, rec)
	}

	d := coredata.New()
	d.CmdLineArgs = defines
	// A native build aliases the build machine to the host machine,
	// so one detection pass serves both.
	for _, m := range machine.Choices() {
		d.SetMachine(m, buildEnv.Machine(m))
		for _, rec := range recs {
			d.SetToolchain(m, rec)
		}
	}
	d.CaptureOptions(store)
	d.CaptureCheckCache(pr.Cache)
	if err := coredata.Save(ctx, d, c.buildDir); err != nil {
		return err
	}

	ui.Default.PrintLines("\n", strings.Join(summary, "\n")+"\n")
	if n := logger.Warnings(); n > 0 {
		mlog.Infof(ctx, "%d warning(s), see %s", n, logger.LogFile())
	}
	return nil
}

// parseDefines turns repeated -D name=value settings into keyed raw
// values. Later settings of the same key win.
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

func parseLanguages(s string) ([]string, error) {
	var langs []string
	for _, lang := range strings.Split(s, ",") {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if slices.Contains(langs, lang) {
			continue
		}
		langs = append(langs, lang)
	}
	if len(langs) == 0 {
		return nil, errors.New("no languages given: pass -languages, e.g. -languages c,cpp")
	}
	return langs, nil
}

// applyRemaining sets the command line options no registration pass
// consumed: compiler options such as c_std, or misspellings the store
// rejects.
func applyRemaining(ctx context.Context, s *options.Store, cmdline map[options.Key]string) error {
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
	for _, k := range keys {
		if _, err := s.SetOption(ctx, k, cmdline[k], true); err != nil {
			return err
		}
	}
	return nil
}

func compilerSummary(m machine.Choice, comp *compilers.Compiler) []string {
	lines := []string{
		fmt.Sprintf("%s compiler for the %s machine: %s (%s %s %q)",
			comp.DisplayLanguage(), m, comp.NameString(), comp.ID(), comp.Version(), comp.FullVersion()),
	}
	if l := comp.Linker(); l != nil {
		lines = append(lines, fmt.Sprintf("%s linker for the %s machine: %s %s %s",
			comp.DisplayLanguage(), m, comp.NameString(), l.ID(), l.Version()))
	}
	return lines
}

func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
