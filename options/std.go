// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/eli-schwartz/meson/mlog"
)

// StdOption is the per language "<lang>_std" option. The user may set
// a list of standards in preference order and the first one the
// compiler supports is selected.
//
// For historical reasons some compilers allowed a GNU std and silently
// fell back to the plain C std. That fallback is deprecated; projects
// supporting both GNU and MSVC compilers should set e.g.
// c_std=gnu11,c11.
type StdOption struct {
	ComboOption
	lang    string
	allStds []string
	// deprecatedStds maps a deprecated std to its replacement,
	// e.g. gnu11 -> c11.
	deprecatedStds map[string]string
}

// NewStd returns the std option for lang. allStds lists every standard
// any compiler of the language understands; "none" is always accepted.
// Supported standards are declared later with SetVersions.
func NewStd(lang string, allStds []string) *StdOption {
	name := lang + "_std"
	if lang == "c++" {
		name = "cpp_std"
	}
	o := &StdOption{
		ComboOption: ComboOption{
			base:    base{name: name, description: lang + " language standard to use"},
			choices: []string{"none"},
		},
		lang:           strings.ToLower(lang),
		allStds:        append([]string{"none"}, allStds...),
		deprecatedStds: map[string]string{},
	}
	mustSet(o, "none")
	return o
}

// SetVersions declares the standards the current compiler supports.
// With gnu set, the matching gnuXX spellings are supported too; with
// gnuDeprecated they are instead accepted only as deprecated aliases
// that fall back to the plain std.
func (o *StdOption) SetVersions(versions []string, gnu, gnuDeprecated bool) {
	for _, std := range versions {
		if !slices.Contains(o.allStds, std) {
			panic(fmt.Sprintf("options: %q is not a known %s std", std, o.lang))
		}
	}
	o.choices = append(o.choices, versions...)
	if !gnu {
		return
	}
	gnuVers := make([]string, 0, len(versions))
	for _, std := range versions {
		gnuVers = append(gnuVers, "gnu"+std[1:])
	}
	if gnuDeprecated {
		for i, g := range gnuVers {
			o.deprecatedStds[g] = versions[i]
		}
	} else {
		o.choices = append(o.choices, gnuVers...)
	}
}

func (o *StdOption) Validate(ctx context.Context, v any) (any, error) {
	candidates, err := stdCandidates(v)
	if err != nil {
		return nil, o.invalid(v, nil, "%v", err)
	}
	var unknown []string
	for _, std := range candidates {
		if !slices.Contains(o.allStds, std) {
			unknown = append(unknown, std)
		}
	}
	if len(unknown) > 0 {
		return nil, o.invalid(strings.Join(unknown, ","), o.allStds, "unknown %s std", o.lang)
	}
	for _, std := range candidates {
		if slices.Contains(o.choices, std) {
			return std, nil
		}
	}
	for _, std := range candidates {
		newstd, ok := o.deprecatedStds[std]
		if !ok {
			continue
		}
		mlog.Deprecation(ctx, "none of the values %v are supported by the %s compiler.\n"+
			"However, the deprecated %s std currently falls back to %s.\n"+
			"This will be an error in meson 2.0.\n"+
			"If the project supports both GNU and MSVC compilers, a value such as\n"+
			"\"c_std=gnu11,c11\" specifies that GNU is preferred but it can safely fallback to plain c11.",
			candidates, o.lang, std, newstd)
		return newstd, nil
	}
	return nil, o.invalid(strings.Join(candidates, ","), o.choices,
		"none of the values are supported by the %s compiler", strings.ToUpper(o.lang))
}

// SetValue validates through the std specific rules, so a deprecated
// std stores its replacement.
func (o *StdOption) SetValue(ctx context.Context, v any) (bool, error) {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return false, err
	}
	s := nv.(string)
	changed := s != o.value
	o.value = s
	return changed, nil
}

// stdCandidates splits the user input into the preference list.
func stdCandidates(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		var out []string
		for _, e := range strings.Split(t, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
		if out == nil {
			out = []string{""}
		}
		return out, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %v is not a string", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("value %v is not a string", v)
}
