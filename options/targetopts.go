// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"slices"
	"strings"
)

// TargetOverrides holds per-target option and argument overrides
// layered on top of a set of global overrides. Values are "name=value"
// strings, the shape the backend embeds in build files. The specificity
// order is target over global over initial defaults; each layer only
// replaces entries it names and leaves the rest in their original
// order.
type TargetOverrides struct {
	global  *OverrideLayer
	targets map[string]*OverrideLayer
}

// NewTargetOverrides returns an empty override set.
func NewTargetOverrides() *TargetOverrides {
	return &TargetOverrides{
		global:  newOverrideLayer(),
		targets: map[string]*OverrideLayer{},
	}
}

// Global returns the layer applied to every target.
func (t *TargetOverrides) Global() *OverrideLayer {
	return t.global
}

// Target returns the layer for tgt, creating it if absent.
func (t *TargetOverrides) Target(tgt string) *OverrideLayer {
	s, ok := t.targets[tgt]
	if !ok {
		s = newOverrideLayer()
		t.targets[tgt] = s
	}
	return s
}

// OverrideOptions layers the global and the per-target overrides over
// initial. Each pass filters out the initial entries the layer names
// and appends the layer's own values, so untouched entries keep their
// relative order and a target value wins over a global one.
func (t *TargetOverrides) OverrideOptions(tgt string, initial []string) []string {
	res := t.global.overrideOptions(initial)
	if s, ok := t.targets[tgt]; ok {
		res = s.overrideOptions(res)
	}
	return res
}

// CompileArgs appends the global then the per-target extra compile
// arguments for lang to initial.
func (t *TargetOverrides) CompileArgs(tgt, lang string, initial []string) []string {
	res := t.global.compileArgs(lang, initial)
	if s, ok := t.targets[tgt]; ok {
		res = s.compileArgs(lang, res)
	}
	return res
}

// LinkArgs appends the global then the per-target extra link arguments
// to initial.
func (t *TargetOverrides) LinkArgs(tgt string, initial []string) []string {
	res := t.global.linkArgs(initial)
	if s, ok := t.targets[tgt]; ok {
		res = s.linkArgs(res)
	}
	return res
}

// Install resolves whether tgt should be installed: a per-target
// setting wins over the global one, and both default to initial when
// unset.
func (t *TargetOverrides) Install(tgt string, initial bool) bool {
	res := t.global.install(initial)
	if s, ok := t.targets[tgt]; ok {
		res = s.install(res)
	}
	return res
}

// installPreserve is the unset state of an install override.
const installPreserve = "preserve"

// OverrideLayer is one layer of overrides, either the global layer or
// a single target's.
type OverrideLayer struct {
	opts     map[string]string
	optOrder []string
	langArgs map[string][]string
	linkArgv []string
	inst     string
}

func newOverrideLayer() *OverrideLayer {
	return &OverrideLayer{
		opts:     map[string]string{},
		langArgs: map[string][]string{},
		inst:     installPreserve,
	}
}

// SetOption records an option override. A repeated name keeps its
// first-set position but takes the new value.
func (s *OverrideLayer) SetOption(name, value string) {
	if _, ok := s.opts[name]; !ok {
		s.optOrder = append(s.optOrder, name)
	}
	s.opts[name] = value
}

// AppendCompileArgs adds extra compile arguments for lang.
func (s *OverrideLayer) AppendCompileArgs(lang string, args ...string) {
	s.langArgs[lang] = append(s.langArgs[lang], args...)
}

// AppendLinkArgs adds extra link arguments.
func (s *OverrideLayer) AppendLinkArgs(args ...string) {
	s.linkArgv = append(s.linkArgv, args...)
}

// SetInstall records an install override.
func (s *OverrideLayer) SetInstall(install bool) {
	if install {
		s.inst = "true"
	} else {
		s.inst = "false"
	}
}

func (s *OverrideLayer) overrideOptions(initial []string) []string {
	res := make([]string, 0, len(initial)+len(s.optOrder))
	for _, kv := range initial {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := s.opts[name]; !ok {
			res = append(res, kv)
		}
	}
	for _, name := range s.optOrder {
		res = append(res, name+"="+s.opts[name])
	}
	return res
}

func (s *OverrideLayer) compileArgs(lang string, initial []string) []string {
	if args, ok := s.langArgs[lang]; ok {
		return append(slices.Clone(initial), args...)
	}
	return initial
}

func (s *OverrideLayer) linkArgs(initial []string) []string {
	if len(s.linkArgv) == 0 {
		return initial
	}
	return append(slices.Clone(initial), s.linkArgv...)
}

func (s *OverrideLayer) install(initial bool) bool {
	switch s.inst {
	case "true":
		return true
	case "false":
		return false
	}
	return initial
}
