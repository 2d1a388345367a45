// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/mlog"
)

// knownLanguages are the language prefixes recognized for compiler
// options such as c_std or rust_args. The compilers package registers
// options for a subset of these.
var knownLanguages = []string{
	"c", "cpp", "cs", "cuda", "cython", "d", "fortran", "java",
	"masm", "nasm", "objc", "objcpp", "rust", "swift", "vala",
}

// KnownLanguages returns the language prefixes recognized for
// compiler options.
func KnownLanguages() []string {
	return slices.Clone(knownLanguages)
}

// Store holds every option of a configured build, across namespaces:
// builtin, backend, base (b_*), compiler (<lang>_*), module
// (<module>.*) and project options.
type Store struct {
	opts           map[Key]Option
	projectOptions map[Key]bool
	moduleOptions  map[Key]bool
	languages      map[string]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	langs := make(map[string]bool, len(knownLanguages))
	for _, l := range knownLanguages {
		langs[l] = true
	}
	return &Store{
		opts:           map[Key]Option{},
		projectOptions: map[Key]bool{},
		moduleOptions:  map[Key]bool{},
		languages:      langs,
	}
}

// Len returns the number of options.
func (s *Store) Len() int { return len(s.opts) }

// Contains reports whether key is present.
func (s *Store) Contains(key Key) bool {
	_, ok := s.opts[key]
	return ok
}

// Object returns the option object for key.
func (s *Store) Object(key Key) (Option, bool) {
	o, ok := s.opts[key]
	return o, ok
}

// Value returns the raw value for key.
func (s *Store) Value(key Key) (any, bool) {
	o, ok := s.opts[key]
	if !ok {
		return nil, false
	}
	return o.Value(), true
}

// ValueFor returns the value for key with subproject layering: a
// yielding subproject option defers to the root project's option of
// the same name, and a key for a subproject that never defined the
// option falls back to the root option.
func (s *Store) ValueFor(key Key) (any, bool) {
	if o, ok := s.opts[key]; ok {
		if key.Subproject != "" && o.Yielding() {
			if root, rok := s.opts[key.AsRoot()]; rok {
				return root.Value(), true
			}
		}
		return o.Value(), true
	}
	if key.Subproject != "" {
		if root, ok := s.opts[key.AsRoot()]; ok {
			return root.Value(), true
		}
	}
	return nil, false
}

// Bool returns a boolean option's value.
func (s *Store) Bool(key Key) (bool, bool) {
	if o, ok := s.opts[key]; ok {
		if b, bok := o.Value().(bool); bok {
			return b, true
		}
	}
	return false, false
}

// String returns a string valued option's value. Combo, feature and
// string options all qualify.
func (s *Store) String(key Key) (string, bool) {
	if o, ok := s.opts[key]; ok {
		if v, vok := o.Value().(string); vok {
			return v, true
		}
	}
	return "", false
}

// Int returns an integer option's value.
func (s *Store) Int(key Key) (int, bool) {
	if o, ok := s.opts[key]; ok {
		if v, vok := o.Value().(int); vok {
			return v, true
		}
	}
	return 0, false
}

// Strings returns an array option's value.
func (s *Store) Strings(key Key) ([]string, bool) {
	if o, ok := s.opts[key]; ok {
		if v, vok := o.Value().([]string); vok {
			return v, true
		}
	}
	return nil, false
}

// SortedKeys returns all keys ordered by (subproject, machine, name).
func (s *Store) SortedKeys() []Key {
	keys := make([]Key, 0, len(s.opts))
	for k := range s.opts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return keys
}

// AddSystemOption registers a non-module, non-project option.
// It panics on a module scoped name; that indicates a defect in the
// registering code.
func (s *Store) AddSystemOption(key Key, o Option) {
	if strings.Contains(key.Name, ".") {
		panic(fmt.Sprintf("options: non-module option has a period in its name %q", key.Name))
	}
	s.addSystemOptionInternal(key, o)
}

func (s *Store) addSystemOptionInternal(key Key, o Option) {
	s.opts[key] = o
}

// AddCompilerOption registers an option owned by a language's
// compiler. The name must carry the language prefix.
func (s *Store) AddCompilerOption(language string, key Key, o Option) {
	if !strings.HasPrefix(key.Name, language+"_") {
		panic(fmt.Sprintf("options: compiler option name %q does not start with %s_", key.Name, language))
	}
	s.AddSystemOption(key, o)
}

// AddModuleOption registers an option owned by a module. The name must
// carry the "<module>." prefix.
func (s *Store) AddModuleOption(module string, key Key, o Option) {
	if !strings.HasPrefix(key.Name, module+".") {
		panic(fmt.Sprintf("options: module option name %q does not start with %s.", key.Name, module))
	}
	s.addSystemOptionInternal(key, o)
	s.moduleOptions[key] = true
}

// AddProjectOption registers an option declared by a project. Reserved
// names are rejected.
func (s *Store) AddProjectOption(key Key, o Option) error {
	if s.IsReservedName(key) {
		return &merrors.InvalidOptionValueError{
			Option: key.String(),
			Value:  key.Name,
			Msg:    "option name is reserved",
		}
	}
	s.opts[key] = o
	s.projectOptions[key] = true
	return nil
}

// Remove deletes key from the store.
func (s *Store) Remove(key Key) {
	delete(s.opts, key)
	delete(s.projectOptions, key)
	delete(s.moduleOptions, key)
}

// ReplaceObject swaps the option object for an existing key, keeping
// its namespace. Used when a later compiler refines an option's
// choices.
func (s *Store) ReplaceObject(key Key, o Option) {
	s.opts[key] = o
}

// SetValue validates and stores a new value for key.
func (s *Store) SetValue(ctx context.Context, key Key, value any) (bool, error) {
	return s.SetOption(ctx, key, value, false)
}

// SetOption validates and stores a new value for key, applying
// deprecation rules. firstInvocation allows writing readonly options
// during initial setup.
func (s *Store) SetOption(ctx context.Context, key Key, value any, firstInvocation bool) (bool, error) {
	opt, ok := s.opts[key]
	if !ok {
		return false, &merrors.InvalidOptionValueError{Option: key.String(), Value: value, Msg: "unknown option"}
	}
	if opt.Readonly() && !firstInvocation {
		return false, &merrors.InvalidOptionValueError{Option: key.String(), Value: value, Msg: "cannot modify readonly option"}
	}
	d := opt.Deprecated()
	switch {
	case d.All:
		mlog.DeprecationOnce(ctx, "option:"+key.String(), "option %q is deprecated", key)
	case len(d.Values) > 0:
		for _, v := range listifyForDeprecation(opt, value) {
			if slices.Contains(d.Values, v) {
				mlog.DeprecationOnce(ctx, "option:"+key.String()+"="+v, "option %q value %q is deprecated", key, v)
			}
		}
	case len(d.Replaced) > 0:
		value = replaceDeprecatedValues(ctx, key, opt, value, d.Replaced)
	case d.Replacement != "":
		mlog.DeprecationOnce(ctx, "option:"+key.String(), "option %q is replaced by %q", key, d.Replacement)
		dirty, err := s.SetOption(ctx, ParseKey(d.Replacement), value, firstInvocation)
		if err != nil {
			return false, err
		}
		changed, err := opt.SetValue(ctx, value)
		return dirty || changed, err
	}
	return opt.SetValue(ctx, value)
}

// listifyForDeprecation renders the incoming value as the strings the
// deprecation tables are keyed by.
func listifyForDeprecation(opt Option, value any) []string {
	switch t := value.(type) {
	case []string:
		return t
	case string:
		if ao, ok := opt.(*ArrayOption); ok {
			if elems, err := ao.listify(t); err == nil {
				return elems
			}
		}
		return []string{t}
	case bool:
		return []string{fmt.Sprintf("%t", t)}
	}
	return nil
}

func replaceDeprecatedValues(ctx context.Context, key Key, opt Option, value any, replaced map[string]string) any {
	replace := func(v string) string {
		if nv, ok := replaced[v]; ok {
			mlog.DeprecationOnce(ctx, "option:"+key.String()+"="+v, "option %q value %q is replaced by %q", key, v, nv)
			return nv
		}
		return v
	}
	switch t := value.(type) {
	case string:
		ao, ok := opt.(*ArrayOption)
		if !ok {
			return replace(t)
		}
		elems, err := ao.listify(t)
		if err != nil {
			return value
		}
		for i, e := range elems {
			elems[i] = replace(e)
		}
		return elems
	case []string:
		out := slices.Clone(t)
		for i, e := range out {
			out[i] = replace(e)
		}
		return out
	}
	return value
}

// IsProjectOption reports whether key was declared by a project.
func (s *Store) IsProjectOption(key Key) bool {
	return s.projectOptions[key]
}

// IsReservedName reports whether the name may not be used for a
// project option.
func (s *Store) IsReservedName(key Key) bool {
	if builtinNames[key.Name] {
		return true
	}
	prefix, _, found := strings.Cut(key.Name, "_")
	if !found {
		return false
	}
	if prefix == "b" || prefix == "backend" {
		return true
	}
	return s.languages[prefix]
}

// IsBuiltinOption reports whether key is a builtin or module option.
func (s *Store) IsBuiltinOption(key Key) bool {
	return builtinNames[key.Name] || s.IsModuleOption(key)
}

// IsBaseOption reports whether key is a base option (b_*).
func (s *Store) IsBaseOption(key Key) bool {
	return strings.HasPrefix(key.Name, "b_")
}

// IsBackendOption reports whether key is a backend option.
func (s *Store) IsBackendOption(key Key) bool {
	return strings.HasPrefix(key.Name, "backend_")
}

// IsCompilerOption reports whether key belongs to a language's
// compiler.
func (s *Store) IsCompilerOption(key Key) bool {
	prefix, _, found := strings.Cut(key.Name, "_")
	if !found {
		return false
	}
	return s.languages[prefix]
}

// IsModuleOption reports whether key belongs to a module.
func (s *Store) IsModuleOption(key Key) bool {
	return s.moduleOptions[key]
}

// Section returns the display grouping of key, as introspection
// reports it: "directory", "core", "backend", "base", "compiler" or
// "user". Module options count as core.
func (s *Store) Section(key Key) string {
	switch {
	case s.IsProjectOption(key):
		return "user"
	case s.IsBaseOption(key):
		return "base"
	case s.IsBackendOption(key):
		return "backend"
	case s.IsCompilerOption(key):
		return "compiler"
	case dirOptionNames[key.Name]:
		return "directory"
	default:
		return "core"
	}
}
