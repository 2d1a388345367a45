// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/eli-schwartz/meson/machine"
	"github.com/eli-schwartz/meson/merrors"
)

// builtinNames are the names reserved for builtin options in any
// namespace.
var builtinNames = map[string]bool{
	"prefix":                 true,
	"bindir":                 true,
	"datadir":                true,
	"includedir":             true,
	"infodir":                true,
	"libdir":                 true,
	"licensedir":             true,
	"libexecdir":             true,
	"localedir":              true,
	"localstatedir":          true,
	"mandir":                 true,
	"sbindir":                true,
	"sharedstatedir":         true,
	"sysconfdir":             true,
	"auto_features":          true,
	"backend":                true,
	"buildtype":              true,
	"debug":                  true,
	"default_library":        true,
	"default_both_libraries": true,
	"errorlogs":              true,
	"genvslite":              true,
	"install_umask":          true,
	"layout":                 true,
	"optimization":           true,
	"prefer_static":          true,
	"stdsplit":               true,
	"strip":                  true,
	"unity":                  true,
	"unity_size":             true,
	"warning_level":          true,
	"werror":                 true,
	"wrap_mode":              true,
	"force_fallback_for":     true,
	"pkg_config_path":        true,
	"cmake_prefix_path":      true,
	"vsenv":                  true,
}

// BackendChoices lists the known generator backends.
var BackendChoices = []string{"ninja", "vs", "vs2010", "vs2012", "vs2013", "vs2015", "vs2017", "vs2019", "vs2022", "xcode", "none"}

// BuildtypeChoices lists the buildtype values.
var BuildtypeChoices = []string{"plain", "debug", "debugoptimized", "release", "minsize", "custom"}

// OptimizationChoices lists the optimization levels.
var OptimizationChoices = []string{"plain", "0", "g", "1", "2", "3", "s"}

// Kind selects the option type a Builtin creates.
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindCombo
	KindInteger
	KindUmask
	KindArray
	KindFeature
)

// Builtin describes one builtin option: its type, default and
// constraints. The option object itself is created per store with
// InitOption.
type Builtin struct {
	Kind        Kind
	Description string
	Default     any
	Choices     []string
	Min, Max    *int
	Yielding    bool
	Readonly    bool
	// NoPrefixDefaults maps an installation prefix to the default used
	// under that prefix, for directories that live outside the prefix
	// in common layouts, e.g. sysconfdir /etc under /usr.
	NoPrefixDefaults map[string]string
}

// prefixedDefault resolves the default for the configured installation
// prefix. Combo, integer and umask options never depend on the prefix.
func (b *Builtin) prefixedDefault(prefix string) any {
	switch b.Kind {
	case KindCombo, KindInteger, KindUmask:
		return b.Default
	}
	if v, ok := b.NoPrefixDefaults[prefix]; ok {
		return v
	}
	return b.Default
}

type mutable interface {
	SetYielding(bool)
	setReadonly()
}

// InitOption creates the option for key, set to value, or to the
// prefix dependent default when value is nil.
func (b *Builtin) InitOption(ctx context.Context, key Key, value any, prefix string) (Option, error) {
	def := b.prefixedDefault(prefix)
	var o Option
	switch b.Kind {
	case KindString:
		o = NewString(key.Name, b.Description, def.(string))
	case KindBoolean:
		o = NewBoolean(key.Name, b.Description, def.(bool))
	case KindCombo:
		o = NewCombo(key.Name, b.Description, def.(string), b.Choices)
	case KindInteger:
		o = NewInteger(key.Name, b.Description, b.Min, b.Max, def.(int))
	case KindUmask:
		o = NewUmask(key.Name, b.Description, def.(string))
	case KindArray:
		o = NewArray(key.Name, b.Description, def.([]string))
	case KindFeature:
		o = NewFeature(key.Name, b.Description, def.(string))
	}
	m := o.(mutable)
	m.SetYielding(b.Yielding)
	if b.Readonly {
		m.setReadonly()
	}
	if value != nil {
		if _, err := o.SetValue(ctx, value); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// BuiltinEntry pairs a key with its definition, keeping table order
// for display.
type BuiltinEntry struct {
	Key     Key
	Builtin *Builtin
}

func defaultPrefix() string {
	if runtime.GOOS == "windows" {
		return "c:/"
	}
	return "/usr/local"
}

func intp(i int) *int { return &i }

// BuiltinDirOptions are the installation directory options.
var BuiltinDirOptions = []BuiltinEntry{
	{NewKey("prefix"), &Builtin{Kind: KindString, Description: "Installation prefix", Default: defaultPrefix(), Yielding: true}},
	{NewKey("bindir"), &Builtin{Kind: KindString, Description: "Executable directory", Default: "bin", Yielding: true}},
	{NewKey("datadir"), &Builtin{Kind: KindString, Description: "Data file directory", Default: "share", Yielding: true}},
	{NewKey("includedir"), &Builtin{Kind: KindString, Description: "Header file directory", Default: "include", Yielding: true}},
	{NewKey("infodir"), &Builtin{Kind: KindString, Description: "Info page directory", Default: "share/info", Yielding: true}},
	{NewKey("libdir"), &Builtin{Kind: KindString, Description: "Library directory", Default: "lib", Yielding: true}},
	{NewKey("licensedir"), &Builtin{Kind: KindString, Description: "Licenses directory", Default: "", Yielding: true}},
	{NewKey("libexecdir"), &Builtin{Kind: KindString, Description: "Library executable directory", Default: "libexec", Yielding: true}},
	{NewKey("localedir"), &Builtin{Kind: KindString, Description: "Locale data directory", Default: "share/locale", Yielding: true}},
	{NewKey("localstatedir"), &Builtin{Kind: KindString, Description: "Localstate data directory", Default: "var", Yielding: true,
		NoPrefixDefaults: map[string]string{"/usr": "/var", "/usr/local": "/var/local"}}},
	{NewKey("mandir"), &Builtin{Kind: KindString, Description: "Manual page directory", Default: "share/man", Yielding: true}},
	{NewKey("sbindir"), &Builtin{Kind: KindString, Description: "System executable directory", Default: "sbin", Yielding: true}},
	{NewKey("sharedstatedir"), &Builtin{Kind: KindString, Description: "Architecture-independent data directory", Default: "com", Yielding: true,
		NoPrefixDefaults: map[string]string{"/usr": "/var/lib", "/usr/local": "/var/local/lib"}}},
	{NewKey("sysconfdir"), &Builtin{Kind: KindString, Description: "Sysconf data directory", Default: "etc", Yielding: true,
		NoPrefixDefaults: map[string]string{"/usr": "/etc"}}},
}

var dirOptionNames = func() map[string]bool {
	m := make(map[string]bool, len(BuiltinDirOptions))
	for _, e := range BuiltinDirOptions {
		m[e.Key.Name] = true
	}
	return m
}()

// BuiltinCoreOptions are the machine independent builtin options.
var BuiltinCoreOptions = []BuiltinEntry{
	{NewKey("auto_features"), &Builtin{Kind: KindFeature, Description: "Override value of all 'auto' features", Default: "auto", Yielding: true}},
	{NewKey("backend"), &Builtin{Kind: KindCombo, Description: "Backend to use", Default: "ninja", Choices: BackendChoices, Yielding: true, Readonly: true}},
	{NewKey("buildtype"), &Builtin{Kind: KindCombo, Description: "Build type to use", Default: "debug", Choices: BuildtypeChoices, Yielding: true}},
	{NewKey("debug"), &Builtin{Kind: KindBoolean, Description: "Enable debug symbols and other information", Default: true, Yielding: true}},
	{NewKey("default_library"), &Builtin{Kind: KindCombo, Description: "Default library type", Default: "shared", Choices: []string{"shared", "static", "both"}}},
	{NewKey("default_both_libraries"), &Builtin{Kind: KindCombo, Description: "Default library type for both_libraries", Default: "shared", Choices: []string{"shared", "static", "auto"}, Yielding: true}},
	{NewKey("errorlogs"), &Builtin{Kind: KindBoolean, Description: "Whether to print the logs from failing tests", Default: true, Yielding: true}},
	{NewKey("install_umask"), &Builtin{Kind: KindUmask, Description: "Default umask to apply on permissions of installed files", Default: "022", Yielding: true}},
	{NewKey("layout"), &Builtin{Kind: KindCombo, Description: "Build directory layout", Default: "mirror", Choices: []string{"mirror", "flat"}, Yielding: true}},
	{NewKey("optimization"), &Builtin{Kind: KindCombo, Description: "Optimization level", Default: "0", Choices: OptimizationChoices, Yielding: true}},
	{NewKey("prefer_static"), &Builtin{Kind: KindBoolean, Description: "Whether to try static linking before shared linking", Default: false, Yielding: true}},
	{NewKey("stdsplit"), &Builtin{Kind: KindBoolean, Description: "Split stdout and stderr in test logs", Default: true, Yielding: true}},
	{NewKey("strip"), &Builtin{Kind: KindBoolean, Description: "Strip targets on install", Default: false, Yielding: true}},
	{NewKey("unity"), &Builtin{Kind: KindCombo, Description: "Unity build", Default: "off", Choices: []string{"on", "off", "subprojects"}, Yielding: true}},
	{NewKey("unity_size"), &Builtin{Kind: KindInteger, Description: "Unity block size", Default: 4, Min: intp(2), Yielding: true}},
	{NewKey("warning_level"), &Builtin{Kind: KindCombo, Description: "Compiler warning level to use", Default: "1", Choices: []string{"0", "1", "2", "3", "everything"}}},
	{NewKey("werror"), &Builtin{Kind: KindBoolean, Description: "Treat warnings as errors", Default: false}},
	{NewKey("wrap_mode"), &Builtin{Kind: KindCombo, Description: "Wrap mode", Default: "default", Choices: []string{"default", "nofallback", "nodownload", "forcefallback", "nopromote"}, Yielding: true}},
	{NewKey("force_fallback_for"), &Builtin{Kind: KindArray, Description: "Force fallback for those subprojects", Default: []string{}, Yielding: true}},

	// Pkgconfig module
	{NewKey("pkgconfig.relocatable"), &Builtin{Kind: KindBoolean, Description: "Generate pkgconfig files as relocatable", Default: false, Yielding: true}},

	// Python module
	{NewKey("python.bytecompile"), &Builtin{Kind: KindInteger, Description: "Whether to compile bytecode", Default: 0, Min: intp(-1), Max: intp(2), Yielding: true}},
	{NewKey("python.install_env"), &Builtin{Kind: KindCombo, Description: "Which python environment to install to", Default: "prefix", Choices: []string{"auto", "prefix", "system", "venv"}, Yielding: true}},
	{NewKey("python.platlibdir"), &Builtin{Kind: KindString, Description: "Directory for site-specific, platform-specific files.", Default: "", Yielding: true, NoPrefixDefaults: map[string]string{}}},
	{NewKey("python.purelibdir"), &Builtin{Kind: KindString, Description: "Directory for site-specific, non-platform-specific files.", Default: "", Yielding: true, NoPrefixDefaults: map[string]string{}}},
	{NewKey("python.allow_limited_api"), &Builtin{Kind: KindBoolean, Description: "Whether to allow use of the Python Limited API", Default: true, Yielding: true}},
}

// BuiltinOptionsPerMachine exist separately for the build and host
// machines.
var BuiltinOptionsPerMachine = []BuiltinEntry{
	{NewKey("pkg_config_path"), &Builtin{Kind: KindArray, Description: "List of additional paths for pkg-config to search", Default: []string{}, Yielding: true}},
	{NewKey("cmake_prefix_path"), &Builtin{Kind: KindArray, Description: "List of additional prefixes for cmake to search", Default: []string{}, Yielding: true}},
}

// AllBuiltins returns the dir and core options in display order.
func AllBuiltins() []BuiltinEntry {
	out := make([]BuiltinEntry, 0, len(BuiltinDirOptions)+len(BuiltinCoreOptions))
	out = append(out, BuiltinDirOptions...)
	out = append(out, BuiltinCoreOptions...)
	return out
}

// SanitizePrefix normalizes the installation prefix. It must be an
// absolute path. A trailing separator is dropped so later path joins
// do not double it, except for a bare root such as "/" or "c:\".
func SanitizePrefix(prefix string) (string, error) {
	if !filepath.IsAbs(prefix) {
		return "", &merrors.InvalidOptionValueError{
			Option: "prefix",
			Value:  prefix,
			Msg:    "prefix value must be an absolute path",
		}
	}
	if strings.HasSuffix(prefix, "/") || strings.HasSuffix(prefix, "\\") {
		switch {
		case len(prefix) == 3 && prefix[1] == ':':
			// "c:\" and "c:/" keep the separator: "c:" alone is a
			// drive relative path on windows.
		case len(prefix) == 1:
		default:
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix, nil
}

// InitBuiltinOptions registers every builtin option in s. Settings in
// cmdline are applied to the options they name and removed from the
// map, leaving behind only the keys no builtin owns. The installation
// prefix feeds the defaults of several directory options, so the
// prefix setting is resolved before everything else.
func InitBuiltinOptions(ctx context.Context, s *Store, cmdline map[Key]string) error {
	prefix := defaultPrefix()
	prefixKey := NewKey("prefix")
	if v, ok := cmdline[prefixKey]; ok {
		p, err := SanitizePrefix(v)
		if err != nil {
			return err
		}
		prefix = p
		cmdline[prefixKey] = p
	}
	add := func(key Key, b *Builtin) error {
		var value any
		if v, ok := cmdline[key]; ok {
			value = v
			delete(cmdline, key)
		}
		o, err := b.InitOption(ctx, key, value, prefix)
		if err != nil {
			return err
		}
		if i := strings.Index(key.Name, "."); i >= 0 {
			s.AddModuleOption(key.Name[:i], key, o)
		} else {
			s.AddSystemOption(key, o)
		}
		return nil
	}
	for _, e := range AllBuiltins() {
		if err := add(e.Key, e.Builtin); err != nil {
			return err
		}
	}
	for _, m := range machine.Choices() {
		for _, e := range BuiltinOptionsPerMachine {
			if err := add(e.Key.WithMachine(m), e.Builtin); err != nil {
				return err
			}
		}
	}
	return nil
}
