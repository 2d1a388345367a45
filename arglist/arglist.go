// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package arglist implements a compiler argument list that understands
// which arguments override each other, which are one shot flags, and
// which must keep their position and count.
package arglist

import (
	"regexp"
	"slices"
	"strings"
)

// Dedup classifies how an argument may be de-duplicated.
type Dedup int

const (
	// NoDedup arguments must keep position and count. This matters
	// for symbol resolution in static or shared libraries, so they
	// are never removed or reordered.
	NoDedup Dedup = iota
	// Unique arguments cannot be undone once specified, such as -c or
	// -pipe. New instances are skipped.
	Unique
	// Overridden arguments are replaced by a later occurrence, e.g.
	// -DFOO followed by -UFOO. The earlier copy is dropped and the
	// new one appended.
	Overridden
)

// libRegexp matches unix shared libraries with versioned suffixes,
// e.g. path/to/libfoo.so.0.1.0.
var libRegexp = regexp.MustCompile(`(^|[/\\])lib.*\.so(\.[0-9]+)?(\.[0-9]+)?(\.[0-9]+)?$`)

// alwaysDedupArgs are deduplicated even on the direct append path
// because they are special arguments to the linker.
var alwaysDedupArgs = map[string]bool{
	"-lc": true, "-lm": true, "-lzlib": true, "-ldl": true, "-lrt": true, "-lpthread": true,
}

// Policy describes the argument syntax of a compiler family: which
// prefixes override, which prepend, and which flags are one shot.
type Policy struct {
	// PrependPrefixes are argument prefixes that override by
	// prepending instead of appending, so that e.g. user include
	// paths stay ahead of system include paths.
	PrependPrefixes []string

	// Overridden classification.
	Dedup2Prefixes []string
	Dedup2Suffixes []string
	Dedup2Args     []string

	// Unique classification.
	Dedup1Prefixes []string
	Dedup1Suffixes []string
	Dedup1Args     []string

	// GroupLibraries brackets spans of more than one library with
	// --start-group/--end-group on GNU linkers when rendering to
	// native syntax, so symbols are searched recursively across them.
	GroupLibraries bool
}

// CLike is the policy of C like compiler drivers (gcc, clang, msvc):
// include and library search paths prepend and override, macro
// definitions override, libraries and one shot mode flags are unique.
var CLike = &Policy{
	PrependPrefixes: []string{"-I", "-L"},
	Dedup2Prefixes:  []string{"-I", "-isystem", "-L", "-D", "-U"},
	Dedup1Prefixes:  []string{"-l", "-Wl,-l", "-Wl,--export-dynamic"},
	Dedup1Suffixes:  []string{".lib", ".dll", ".so", ".dylib", ".a"},
	Dedup1Args:      []string{"-c", "-S", "-E", "-pipe", "-pthread"},
	GroupLibraries:  true,
}

// Base is the minimal policy shared by the remaining compilers
// (rustc, csc, swiftc): libraries named by path are one shot,
// everything else keeps position and count.
var Base = &Policy{
	Dedup1Suffixes: []string{".lib", ".dll", ".so", ".dylib", ".a"},
}

// Classify returns the dedup class of arg under the policy. A nil
// policy classifies everything NoDedup.
func (p *Policy) Classify(arg string) Dedup {
	if p == nil {
		return NoDedup
	}
	if slices.Contains(p.Dedup2Args, arg) || hasAnyPrefix(arg, p.Dedup2Prefixes) || hasAnySuffix(arg, p.Dedup2Suffixes) {
		return Overridden
	}
	if slices.Contains(p.Dedup1Args, arg) || hasAnyPrefix(arg, p.Dedup1Prefixes) || hasAnySuffix(arg, p.Dedup1Suffixes) || libRegexp.MatchString(arg) {
		return Unique
	}
	return NoDedup
}

func (p *Policy) shouldPrepend(arg string) bool {
	if p == nil {
		return false
	}
	return hasAnyPrefix(arg, p.PrependPrefixes)
}

func hasAnyPrefix(arg string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(arg, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(arg string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(arg, s) {
			return true
		}
	}
	return false
}

// Compiler is the slice of the compiler interface the argument list
// needs to render itself in native syntax.
type Compiler interface {
	// UnixArgsToNative translates unix style arguments to the
	// toolchain's native syntax.
	UnixArgsToNative(args []string) []string
	// LinkerID identifies the dynamic linker in use, e.g. "ld.bfd".
	LinkerID() string
}

// groupFlags matches arguments that participate in a static library
// group: libraries by suffix and -l flags.
var groupFlags = regexp.MustCompile(`\.so(\.[0-9]+)?(\.[0-9]+)?(\.[0-9]+)?$|^(-Wl,)?-l|\.a$`)

// gnuGroupLinkers are the linkers that accept
// -Wl,--start-group/--end-group bracketing.
var gnuGroupLinkers = map[string]bool{
	"ld.bfd": true, "ld.gold": true, "ld.lld": true, "ld.mold": true,
}

// Args is a compiler argument vector. Appends through Append buffer
// into pre and post queues which are merged into the vector on the
// next read, resolving overrides.
type Args struct {
	policy    *Policy
	container []string
	pre       []string
	post      []string
}

// New returns an argument list governed by policy. A nil policy
// disables all deduplication.
func New(policy *Policy, args ...string) *Args {
	return &Args{policy: policy, container: slices.Clone(args)}
}

// Len returns the number of arguments.
func (a *Args) Len() int {
	a.flushPrePost()
	return len(a.container)
}

// Slice returns a copy of the argument vector.
func (a *Args) Slice() []string {
	a.flushPrePost()
	return slices.Clone(a.container)
}

// Contains reports whether arg is present.
func (a *Args) Contains(arg string) bool {
	a.flushPrePost()
	return slices.Contains(a.container, arg)
}

// Copy returns an independent copy.
func (a *Args) Copy() *Args {
	a.flushPrePost()
	return &Args{policy: a.policy, container: slices.Clone(a.container)}
}

// Append adds args taking argument overriding into account while
// preserving order as much as possible: overridden arguments drop
// their earlier copy, unique arguments are skipped if already present,
// and prepend prefixed arguments go to the front so that, for
// example, later system include paths never shadow earlier user ones.
func (a *Args) Append(args ...string) {
	var tmpPre []string
	for _, arg := range args {
		dedup := a.policy.Classify(arg)
		if dedup == Unique {
			if slices.Contains(a.container, arg) || slices.Contains(a.pre, arg) || slices.Contains(a.post, arg) {
				continue
			}
		}
		prepend := a.policy.shouldPrepend(arg)
		if dedup == Overridden {
			if prepend {
				if slices.Contains(tmpPre, arg) {
					continue
				}
			} else if slices.Contains(a.post, arg) {
				continue
			}
		}
		if prepend {
			tmpPre = append(tmpPre, arg)
		} else {
			a.post = append(a.post, arg)
		}
	}
	// Prepended arguments keep their arrival order but go ahead of
	// anything buffered by earlier calls.
	a.pre = append(tmpPre, a.pre...)
}

// AppendDirect adds args without deduplication or rearrangement,
// except for special linker arguments like -lm which are always
// deduplicated.
func (a *Args) AppendDirect(args ...string) {
	a.flushPrePost()
	for _, arg := range args {
		if alwaysDedupArgs[arg] {
			a.Append(arg)
		} else {
			a.container = append(a.container, arg)
		}
	}
}

// Prepend adds args to the front of the vector without deduplication.
func (a *Args) Prepend(args ...string) {
	a.flushPrePost()
	a.container = append(slices.Clone(args), a.container...)
}

// flushPrePost merges the buffered pre and post queues into the
// vector. Overridden arguments buffered in either queue replace their
// copies in the vector.
func (a *Args) flushPrePost() {
	if len(a.pre) == 0 && len(a.post) == 0 {
		return
	}
	newArgs := make([]string, 0, len(a.pre)+len(a.container)+len(a.post))
	preFlushSet := make(map[string]bool)
	postFlushSet := make(map[string]bool)
	var postFlush []string

	for _, arg := range a.pre {
		if a.policy.Classify(arg) == Overridden {
			if preFlushSet[arg] {
				continue
			}
			preFlushSet[arg] = true
		}
		newArgs = append(newArgs, arg)
	}
	for i := len(a.post) - 1; i >= 0; i-- {
		arg := a.post[i]
		if a.policy.Classify(arg) == Overridden {
			if postFlushSet[arg] {
				continue
			}
			postFlushSet[arg] = true
		}
		postFlush = append([]string{arg}, postFlush...)
	}
	if len(preFlushSet) > 0 || len(postFlushSet) > 0 {
		for _, arg := range a.container {
			if !preFlushSet[arg] && !postFlushSet[arg] {
				newArgs = append(newArgs, arg)
			}
		}
	} else {
		newArgs = append(newArgs, a.container...)
	}
	newArgs = append(newArgs, postFlush...)

	a.container = newArgs
	a.pre = a.pre[:0]
	a.post = a.post[:0]
}

// ToNative renders the vector in the compiler's native syntax. When
// the linker is a GNU one and the vector references more than one
// library, the library span is bracketed with
// -Wl,--start-group/--end-group so symbols are searched recursively
// across them.
func (a *Args) ToNative(c Compiler) []string {
	a.flushPrePost()
	args := slices.Clone(a.container)
	if a.policy != nil && a.policy.GroupLibraries && gnuGroupLinkers[c.LinkerID()] {
		groupStart, groupEnd := -1, -1
		for i, arg := range args {
			if !groupFlags.MatchString(arg) {
				continue
			}
			groupEnd = i
			if groupStart < 0 {
				groupStart = i
			}
		}
		if groupEnd > groupStart && groupStart >= 0 {
			args = slices.Insert(args, groupEnd+1, "-Wl,--end-group")
			args = slices.Insert(args, groupStart, "-Wl,--start-group")
		}
	}
	return c.UnixArgsToNative(args)
}
