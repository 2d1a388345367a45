// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package coredata persists the configured state of a build directory.
//
// The state lives at <builddir>/meson-private/coredata.json.zst: a zstd
// compressed JSON document holding the option values, the detected
// toolchains and the compile check cache. Reconfiguring loads it back
// so options keep their values and checks that already ran are not
// probed again. The file is stamped with the version that wrote it;
// loads across a major.minor change are rejected rather than guessed
// at.
package coredata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/eli-schwartz/meson/compilers"
	"github.com/eli-schwartz/meson/linkers"
	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/options"
)

// Version is the version of the configuration core. A build directory
// records the version that configured it, and patch releases stay
// compatible with each other's state.
const Version = "1.3.0"

const (
	privateDirName = "meson-private"
	logsDirName    = "meson-logs"
	fileName       = "coredata.json.zst"
)

// PrivateDir returns the state directory under buildDir.
func PrivateDir(buildDir string) string {
	return filepath.Join(buildDir, privateDirName)
}

// LogsDir returns the log directory under buildDir.
func LogsDir(buildDir string) string {
	return filepath.Join(buildDir, logsDirName)
}

// File returns the coredata path under buildDir.
func File(buildDir string) string {
	return filepath.Join(PrivateDir(buildDir), fileName)
}

// VersionMismatchError reports a build directory configured by an
// incompatible version.
type VersionMismatchError struct {
	Configured string
	Current    string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("build directory was configured by version %s and is incompatible with version %s; set up a fresh build directory", e.Configured, e.Current)
}

// MajorVersionsDiffer reports whether v1 and v2 differ in their
// major.minor components.
func MajorVersionsDiffer(v1, v2 string) bool {
	return majorMinor(v1) != majorMinor(v2)
}

func majorMinor(v string) string {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return v
	}
	return parts[0] + "." + parts[1]
}

// LinkerRecord identifies a detected linker, dynamic or static, well
// enough to rebuild it without probing the tool again.
type LinkerRecord struct {
	ID      string   `json:"id"`
	Exelist []string `json:"exelist"`
	Version string   `json:"version,omitempty"`

	// Prefix carries arguments through the compiler driver, e.g.
	// "-Wl,". Dynamic linkers only.
	Prefix     string   `json:"prefix,omitempty"`
	AlwaysArgs []string `json:"always_args,omitempty"`
	MachineArg string   `json:"machine_arg,omitempty"`
	// Direct marks linkers the build invokes itself rather than
	// through the compiler.
	Direct bool `json:"direct,omitempty"`
	// AllowShlibUndefined records the probed lld capability.
	AllowShlibUndefined bool `json:"allow_shlib_undefined,omitempty"`
}

// ToolchainRecord identifies a detected compiler well enough to rebuild
// it on a later run without probing the tool again.
type ToolchainRecord struct {
	ID          string            `json:"id"`
	Language    string            `json:"language"`
	Exelist     []string          `json:"exelist"`
	Version     string            `json:"version"`
	FullVersion string            `json:"full_version,omitempty"`
	IsCross     bool              `json:"is_cross,omitempty"`
	Defines     map[string]string `json:"defines,omitempty"`

	Linker       *LinkerRecord `json:"linker,omitempty"`
	StaticLinker *LinkerRecord `json:"static_linker,omitempty"`
}

// RecordToolchain captures c's identity. The static linker, detected
// separately, is recorded by the caller.
func RecordToolchain(c *compilers.Compiler) ToolchainRecord {
	rec := ToolchainRecord{
		ID:          c.ID(),
		Language:    c.Language(),
		Exelist:     c.Exelist(),
		Version:     c.Version(),
		FullVersion: c.FullVersion(),
		IsCross:     c.IsCross(),
		Defines:     c.Defines(),
	}
	if l := c.Linker(); l != nil {
		rec.Linker = RecordDynamicLinker(l)
	}
	return rec
}

// RecordDynamicLinker captures a dynamic linker's identity.
func RecordDynamicLinker(l *linkers.DynamicLinker) *LinkerRecord {
	if l == nil {
		return nil
	}
	rec := &LinkerRecord{
		ID:         l.ID(),
		Exelist:    l.Exelist(),
		Version:    l.Version(),
		Prefix:     l.PrefixArg(),
		AlwaysArgs: l.BaseAlwaysArgs(),
		MachineArg: l.MachineArg(),
		Direct:     !l.InvokedByCompiler(),
	}
	if l.ID() == "ld.lld" {
		args, err := l.AllowUndefinedArgs()
		rec.AllowShlibUndefined = err == nil && len(args) > 0
	}
	return rec
}

// RecordStaticLinker captures an archiver's identity.
func RecordStaticLinker(l *linkers.StaticLinker) *LinkerRecord {
	if l == nil {
		return nil
	}
	return &LinkerRecord{ID: l.ID(), Exelist: l.Exelist()}
}

// Data is everything a configured build directory remembers.
type Data struct {
	Version string `json:"version"`
	// RunID identifies the configuration run that last wrote the state.
	RunID string `json:"run_id"`

	// CmdLineArgs are the raw -D option settings given to setup, kept
	// so a reconfiguration can replay them.
	CmdLineArgs []string `json:"cmd_line_args,omitempty"`

	// Machines describes the build and host machines, keyed "build" and
	// "host".
	Machines map[string]machine.Info `json:"machines,omitempty"`

	// Options holds every option value, keyed by the option key's
	// external spelling.
	Options map[options.Key]any `json:"options,omitempty"`

	// Compilers maps machine name to language to the detected
	// toolchain.
	Compilers map[string]map[string]ToolchainRecord `json:"compilers,omitempty"`

	// CheckCache is the compile check cache snapshot.
	CheckCache map[string]*compilers.CompileResult `json:"check_cache,omitempty"`
}

// New returns empty coredata stamped with the current version and a
// fresh run id.
func New() *Data {
	return &Data{
		Version:   Version,
		RunID:     uuid.New().String(),
		Machines:  map[string]machine.Info{},
		Options:   map[options.Key]any{},
		Compilers: map[string]map[string]ToolchainRecord{},
	}
}

// SetMachine records the description of m.
func (d *Data) SetMachine(m machine.Choice, info machine.Info) {
	if d.Machines == nil {
		d.Machines = map[string]machine.Info{}
	}
	d.Machines[m.String()] = info
}

// Machine returns the recorded description of m.
func (d *Data) Machine(m machine.Choice) (machine.Info, bool) {
	info, ok := d.Machines[m.String()]
	return info, ok
}

// SetToolchain records a detected compiler for m.
func (d *Data) SetToolchain(m machine.Choice, rec ToolchainRecord) {
	if d.Compilers == nil {
		d.Compilers = map[string]map[string]ToolchainRecord{}
	}
	byLang := d.Compilers[m.String()]
	if byLang == nil {
		byLang = map[string]ToolchainRecord{}
		d.Compilers[m.String()] = byLang
	}
	byLang[rec.Language] = rec
}

// Toolchain returns the recorded compiler for language on m.
func (d *Data) Toolchain(m machine.Choice, language string) (ToolchainRecord, bool) {
	rec, ok := d.Compilers[m.String()][language]
	return rec, ok
}

// Languages returns the languages with a recorded compiler for m,
// sorted.
func (d *Data) Languages(m machine.Choice) []string {
	byLang := d.Compilers[m.String()]
	langs := make([]string, 0, len(byLang))
	for l := range byLang {
		langs = append(langs, l)
	}
	slices.Sort(langs)
	return langs
}

// CaptureOptions snapshots every option value in s.
func (d *Data) CaptureOptions(s *options.Store) {
	d.Options = make(map[options.Key]any, s.Len())
	for _, k := range s.SortedKeys() {
		v, _ := s.Value(k)
		d.Options[k] = v
	}
}

// ApplyOptions writes the recorded values back into s. Recorded keys s
// does not know are skipped: their owner, such as a compiler that is no
// longer in use, is gone.
func (d *Data) ApplyOptions(ctx context.Context, s *options.Store) error {
	keys := make([]options.Key, 0, len(d.Options))
	for k := range d.Options {
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
		if !s.Contains(k) {
			mlog.Debugf(ctx, "stored option %s is no longer registered, skipping", k)
			continue
		}
		if _, err := s.SetOption(ctx, k, d.Options[k], true); err != nil {
			return fmt.Errorf("restoring option %s: %w", k, err)
		}
	}
	return nil
}

// CaptureCheckCache snapshots cc into d.
func (d *Data) CaptureCheckCache(cc *compilers.CheckCache) {
	d.CheckCache = cc.Snapshot()
}

// RestoreCheckCache seeds cc with the recorded check results.
func (d *Data) RestoreCheckCache(cc *compilers.CheckCache) {
	cc.Restore(d.CheckCache)
}

// Load reads the coredata of buildDir. A directory that was never set
// up returns an error wrapping fs.ErrNotExist.
func Load(ctx context.Context, buildDir string) (*Data, error) {
	fname := File(buildDir)
	b, err := loadFile(ctx, fname)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s is not a configured build directory: %w", buildDir, err)
		}
		return nil, fmt.Errorf("%s is corrupted: %w", fname, err)
	}
	d := &Data{}
	if err := json.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("%s is corrupted: %w", fname, err)
	}
	if MajorVersionsDiffer(d.Version, Version) {
		return nil, &VersionMismatchError{Configured: d.Version, Current: Version}
	}
	mlog.Debugf(ctx, "loaded coredata %s (version %s, run %s)", fname, d.Version, d.RunID)
	return d, nil
}

// Save writes d under buildDir, creating the private directory when
// needed. The previous state is kept as coredata.json.zst.0 and the new
// file lands via rename, so a crash never leaves a torn state behind.
func Save(ctx context.Context, d *Data, buildDir string) error {
	if MajorVersionsDiffer(d.Version, Version) {
		return &VersionMismatchError{Configured: d.Version, Current: Version}
	}
	if err := os.MkdirAll(PrivateDir(buildDir), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	fname := File(buildDir)
	if err := saveFile(ctx, fname, b); err != nil {
		return err
	}
	mlog.Debugf(ctx, "saved coredata %s (%d options, %d cached checks)", fname, len(d.Options), len(d.CheckCache))
	return nil
}

func loadFile(ctx context.Context, fname string) ([]byte, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	r, err := zstd.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func saveFile(ctx context.Context, fname string, data []byte) error {
	// keep the previous state in *.0
	ofname := fname + ".0"
	if err := os.Remove(ofname); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(fname, ofname); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	tmpname := fname + ".tmp"
	f, err := os.Create(tmpname)
	if err != nil {
		return err
	}
	w, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpname, fname)
}
