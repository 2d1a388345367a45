// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/eli-schwartz/meson/deps"
	"github.com/eli-schwartz/meson/execute"
	"github.com/eli-schwartz/meson/execute/localexec"
	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
	"github.com/eli-schwartz/meson/runtimex"
	"github.com/eli-schwartz/meson/sync/semaphore"
)

// probeSema bounds concurrent scratch builds. Each probe is one child
// process, so tracking NumCPU keeps configuration from fork-bombing
// the machine when many checks are issued at once.
var probeSema = semaphore.New("probe", runtimex.NumCPU())

// CompileResult captures one probe invocation of a toolchain.
type CompileResult struct {
	// Command is the full command line that ran, native syntax.
	Command []string `json:"command,omitempty"`
	// ReturnCode is the tool's exit status. A probe that could not
	// even spawn is an error, not a CompileResult.
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	InputName  string `json:"input_name,omitempty"`
	// OutputName is the produced artifact. Only meaningful while the
	// probe directory still exists.
	OutputName string `json:"output_name,omitempty"`
	// Cached marks a result served from the check cache rather than a
	// fresh invocation.
	Cached bool `json:"-"`
}

// Succeeded reports whether the tool exited zero.
func (r *CompileResult) Succeeded() bool { return r.ReturnCode == 0 }

// RunResult captures compiling and executing a probe program.
type RunResult struct {
	Compiled   bool
	ReturnCode int
	Stdout     string
	Stderr     string
	Cached     bool
}

// CheckCache memoizes probe results within and across configuration
// runs. The key covers everything that can change the answer: the
// tool, its version, the source text, the extra arguments and the
// check mode. Concurrent probes for the same key share one invocation.
type CheckCache struct {
	sf singleflight.Group

	mu sync.Mutex
	m  map[string]*CompileResult
}

// NewCheckCache returns an empty cache.
func NewCheckCache() *CheckCache {
	return &CheckCache{m: map[string]*CompileResult{}}
}

func checkCacheKey(exelist []string, version, code string, extraArgs []string, mode CompileCheckMode) string {
	return strings.Join([]string{
		strings.Join(exelist, "\x00"),
		version,
		code,
		strings.Join(extraArgs, "\x00"),
		mode.String(),
	}, "\x01")
}

// Len returns the number of cached results.
func (cc *CheckCache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.m)
}

// Snapshot copies the cache contents for persistence.
func (cc *CheckCache) Snapshot() map[string]*CompileResult {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	m := make(map[string]*CompileResult, len(cc.m))
	for k, v := range cc.m {
		r := *v
		m[k] = &r
	}
	return m
}

// Restore seeds the cache from a persisted snapshot. Existing entries
// win over restored ones.
func (cc *CheckCache) Restore(m map[string]*CompileResult) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for k, v := range m {
		if _, ok := cc.m[k]; ok {
			continue
		}
		r := *v
		cc.m[k] = &r
	}
}

// do returns the cached result for key, or runs fn once even under
// concurrent callers and caches its result. Results served without
// running fn are copies marked Cached.
func (cc *CheckCache) do(key string, fn func() (*CompileResult, error)) (*CompileResult, error) {
	cc.mu.Lock()
	if r, ok := cc.m[key]; ok {
		cc.mu.Unlock()
		cached := *r
		cached.Cached = true
		return &cached, nil
	}
	cc.mu.Unlock()
	v, err, shared := cc.sf.Do(key, func() (any, error) {
		r, err := fn()
		if err != nil {
			return nil, err
		}
		cc.mu.Lock()
		cc.m[key] = r
		cc.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	r := v.(*CompileResult)
	if shared {
		cached := *r
		cached.Cached = true
		return &cached, nil
	}
	return r, nil
}

// Prober bundles what scratch builds need beyond the compiler itself.
type Prober struct {
	// Executor runs the tool. Nil means run locally.
	Executor execute.Executor
	// Cache memoizes results. Nil disables caching.
	Cache *CheckCache
	// Store supplies per-language external args (<lang>_args,
	// <lang>_link_args) folded into wrapped checks. May be nil.
	Store *options.Store
	// ScratchDir parents the per-probe temp dirs. Empty means the
	// system temp dir.
	ScratchDir string
}

func (pr *Prober) executor() execute.Executor {
	if pr.Executor == nil {
		return localexec.LocalExec{}
	}
	return pr.Executor
}

func outputSuffix(mode CompileCheckMode) string {
	// .exe is executable on every platform; everything below link
	// stops at an object.
	if mode == ModeLink {
		return "exe"
	}
	return "obj"
}

// Compile builds code in a fresh scratch directory and reports how the
// tool behaved. A nonzero exit is a valid result; only failing to
// invoke the tool at all is an error. extraArgs go last so arguments
// like cl.exe's /link reach the tool intact. The scratch directory is
// removed before returning, so OutputName is gone by then; use Run for
// probes that must execute their artifact.
func (c *Compiler) Compile(ctx context.Context, pr *Prober, code string, extraArgs []string, mode CompileCheckMode) (*CompileResult, error) {
	tmpdir, err := os.MkdirTemp(pr.ScratchDir, "probe-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpdir)
	return c.compileIn(ctx, pr, tmpdir, code, extraArgs, mode)
}

// compileIn is Compile without scratch directory ownership. The caller
// keeps tmpdir alive while it needs the output artifact.
func (c *Compiler) compileIn(ctx context.Context, pr *Prober, tmpdir, code string, extraArgs []string, mode CompileCheckMode) (*CompileResult, error) {
	srcName := filepath.Join(tmpdir, "testfile."+c.defaultSuffix)
	if err := os.WriteFile(srcName, []byte(code), 0o644); err != nil {
		return nil, err
	}

	args := c.NewArgs()
	args.Append(srcName)
	// Preprocess output goes to stdout and is discarded.
	output := ""
	if mode != ModePreprocess {
		output = filepath.Join(tmpdir, "output."+outputSuffix(mode))
		args.Append(c.OutputArgs(output)...)
	}
	modeArgs, err := c.ModeArgs(mode)
	if err != nil {
		return nil, err
	}
	args.Append(modeArgs...)
	args.Append(extraArgs...)

	command := append(c.Exelist(), args.ToNative(c)...)
	mlog.Debugf(ctx, "running %s check in %s", mode, tmpdir)
	mlog.Debugf(ctx, "command line: %s", strings.Join(command, " "))
	mlog.Debugf(ctx, "code:\n%s", code)

	cmd := &execute.Cmd{
		ID:   uuid.New().String(),
		Desc: fmt.Sprintf("%s %s", mode, filepath.Base(srcName)),
		Args: command,
		// A deterministic tool locale keeps output parseable; ccache
		// would only ever miss on ad hoc probe sources.
		Env: []string{"LC_ALL=C", "CCACHE_DISABLE=1"},
		Dir: tmpdir,
	}
	err = probeSema.Do(ctx, func(ctx context.Context) error {
		return pr.executor().Run(ctx, cmd)
	})
	returnCode := 0
	if err != nil {
		var eerr execute.ExitError
		if !errors.As(err, &eerr) {
			return nil, &merrors.ToolchainProbeError{Cmd: command, Err: err}
		}
		returnCode = eerr.ExitCode
	}
	mlog.Debugf(ctx, "compiler stdout:\n%s", cmd.Stdout())
	mlog.Debugf(ctx, "compiler stderr:\n%s", cmd.Stderr())

	return &CompileResult{
		Command:    command,
		ReturnCode: returnCode,
		Stdout:     string(cmd.Stdout()),
		Stderr:     string(cmd.Stderr()),
		InputName:  srcName,
		OutputName: output,
	}, nil
}

// CachedCompile is Compile behind the prober's check cache. Identical
// probes within one run return the stored result without invoking the
// toolchain again.
func (c *Compiler) CachedCompile(ctx context.Context, pr *Prober, code string, extraArgs []string, mode CompileCheckMode) (*CompileResult, error) {
	if pr.Cache == nil {
		return c.Compile(ctx, pr, code, extraArgs, mode)
	}
	key := checkCacheKey(c.exelist, c.version, code, extraArgs, mode)
	r, err := pr.Cache.do(key, func() (*CompileResult, error) {
		return c.Compile(ctx, pr, code, extraArgs, mode)
	})
	if err != nil {
		return nil, err
	}
	if r.Cached {
		mlog.Debugf(ctx, "using cached %s check: %s", mode, strings.Join(r.Command, " "))
	}
	return r, nil
}

// wrapperArgs assembles the standard argument set for a wrapped check:
// check args, dependency args, external args from the option store,
// and the caller's extra args last so they override everything.
func (c *Compiler) wrapperArgs(pr *Prober, extraArgs []string, dependencies []deps.Dependency, mode CompileCheckMode) []string {
	args := c.NewArgs(c.CompilerCheckArgs(mode)...)
	for _, d := range dependencies {
		args.Append(d.CompileArgs()...)
		if mode == ModeLink {
			args.Append(d.LinkArgs()...)
		}
	}
	if pr.Store != nil {
		switch mode {
		case ModeCompile:
			if v, ok := pr.Store.Strings(c.OptionKey("args")); ok {
				args.Append(v...)
			}
		case ModeLink:
			if v, ok := pr.Store.Strings(c.OptionKey("link_args")); ok {
				args.Append(v...)
			}
		}
	}
	args.Append(extraArgs...)
	return args.Slice()
}

// Compiles reports whether code compiles, plus whether the answer came
// from the check cache.
func (c *Compiler) Compiles(ctx context.Context, pr *Prober, code string, extraArgs []string, dependencies []deps.Dependency) (ok, cached bool, err error) {
	args := c.wrapperArgs(pr, extraArgs, dependencies, ModeCompile)
	r, err := c.CachedCompile(ctx, pr, code, args, ModeCompile)
	if err != nil {
		return false, false, err
	}
	return r.Succeeded(), r.Cached, nil
}

// Links reports whether code compiles and links into an executable.
func (c *Compiler) Links(ctx context.Context, pr *Prober, code string, extraArgs []string, dependencies []deps.Dependency) (ok, cached bool, err error) {
	args := c.wrapperArgs(pr, extraArgs, dependencies, ModeLink)
	r, err := c.CachedCompile(ctx, pr, code, args, ModeLink)
	if err != nil {
		return false, false, err
	}
	return r.Succeeded(), r.Cached, nil
}

// ErrCrossNoRun reports a run check against a cross toolchain, whose
// artifacts cannot execute on the build machine.
var ErrCrossNoRun = errors.New("cannot run binaries for the host machine on the build machine")

// Run links code and executes the produced binary, capturing its exit
// status and output. Run results are never cached: the probe's answer
// depends on the execution environment, not just the toolchain.
func (c *Compiler) Run(ctx context.Context, pr *Prober, code string, extraArgs []string, dependencies []deps.Dependency) (RunResult, error) {
	if c.isCross {
		return RunResult{}, ErrCrossNoRun
	}
	tmpdir, err := os.MkdirTemp(pr.ScratchDir, "probe-")
	if err != nil {
		return RunResult{}, err
	}
	defer os.RemoveAll(tmpdir)

	args := c.wrapperArgs(pr, extraArgs, dependencies, ModeLink)
	r, err := c.compileIn(ctx, pr, tmpdir, code, args, ModeLink)
	if err != nil {
		return RunResult{}, err
	}
	if !r.Succeeded() {
		mlog.Debugf(ctx, "could not compile test file %s: %d", r.InputName, r.ReturnCode)
		return RunResult{Compiled: false}, nil
	}

	cmd := &execute.Cmd{
		ID:   uuid.New().String(),
		Desc: fmt.Sprintf("run %s", filepath.Base(r.OutputName)),
		Args: []string{r.OutputName},
		Dir:  tmpdir,
	}
	returnCode := 0
	if err := pr.executor().Run(ctx, cmd); err != nil {
		var eerr execute.ExitError
		if !errors.As(err, &eerr) {
			return RunResult{}, &merrors.ToolchainProbeError{Cmd: cmd.Args, Err: err}
		}
		returnCode = eerr.ExitCode
	}
	return RunResult{
		Compiled:   true,
		ReturnCode: returnCode,
		Stdout:     string(cmd.Stdout()),
		Stderr:     string(cmd.Stderr()),
	}, nil
}

// SanityCheck verifies the toolchain can build, and for native
// toolchains run, a trivial program. workDir must exist; the sanity
// files stay there for postmortem inspection. Any failure is fatal for
// configuration, so it is an error, not a result.
func (c *Compiler) SanityCheck(ctx context.Context, pr *Prober, workDir string) error {
	srcName := filepath.Join(workDir, "sanitycheck."+c.defaultSuffix)
	if err := os.WriteFile(srcName, []byte(c.tr.sanityCode), 0o644); err != nil {
		return err
	}
	binName := filepath.Join(workDir, "sanitycheck.exe")

	mode := ModeLink
	if c.isCross && !c.tr.sanityCompileOnly {
		// A plain compile still proves a cross toolchain works when
		// its output cannot execute here.
		mode = ModeCompile
	}
	args := c.NewArgs()
	args.Append(srcName)
	args.Append(c.OutputArgs(binName)...)
	modeArgs, err := c.ModeArgs(mode)
	if err != nil {
		return err
	}
	args.Append(modeArgs...)
	if mode == ModeLink {
		args.Append(c.StdExeLinkArgs()...)
	}
	command := append(c.Exelist(), args.ToNative(c)...)
	mlog.Debugf(ctx, "sanity testing %s compiler: %s", c.DisplayLanguage(), strings.Join(command, " "))

	cmd := &execute.Cmd{
		ID:   uuid.New().String(),
		Desc: fmt.Sprintf("sanity compile %s", c.DisplayLanguage()),
		Args: command,
		Env:  []string{"LC_ALL=C", "CCACHE_DISABLE=1"},
		Dir:  workDir,
	}
	if err := pr.executor().Run(ctx, cmd); err != nil {
		var eerr execute.ExitError
		if !errors.As(err, &eerr) {
			return &merrors.ToolchainProbeError{Cmd: command, Err: err}
		}
		return &merrors.ToolchainProbeError{
			Cmd: command,
			Err: fmt.Errorf("compiler %s cannot compile programs (exit=%d)\nstdout:\n%sstderr:\n%s",
				c.NameString(), eerr.ExitCode, cmd.Stdout(), cmd.Stderr()),
		}
	}
	if mode != ModeLink || c.tr.sanityCompileOnly {
		return nil
	}
	if c.isCross {
		// No execution wrapper; assume cross binaries work.
		return nil
	}

	runArgs := []string{binName}
	if c.tr.sanityRunner != "" {
		runArgs = []string{c.tr.sanityRunner, binName}
	}
	run := &execute.Cmd{
		ID:   uuid.New().String(),
		Desc: fmt.Sprintf("sanity run %s", c.DisplayLanguage()),
		Args: runArgs,
		Dir:  workDir,
	}
	if err := pr.executor().Run(ctx, run); err != nil {
		return &merrors.ToolchainProbeError{
			Cmd: runArgs,
			Err: fmt.Errorf("executables created by %s compiler %s are not runnable: %w",
				c.DisplayLanguage(), c.NameString(), err),
		}
	}
	return nil
}
