// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package merrors defines the error types shared by the option,
// compiler and linker packages.
//
// The types keep distinct failure channels apart:
//
//   - UnsupportedFeatureError: a toolchain cannot express a requested
//     capability. Recoverable; callers usually skip the feature.
//   - InvalidOptionValueError: user input failed validation.
//   - ToolchainProbeError: running a tool failed in a way that makes
//     its answers unusable. Fatal for the current run.
//   - ArgTranslationError: an argument could not be translated for the
//     target toolchain. Indicates a defect, not an environment problem.
package merrors

import (
	"errors"
	"fmt"
	"strings"
)

// UnsupportedFeatureError reports that a compiler or linker has no way
// to express a feature.
type UnsupportedFeatureError struct {
	Tool    string // compiler or linker id, e.g. "gcc", "ld.bfd"
	Feature string // e.g. "PIE", "LTO with 4 threads"
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s doesn't support %s", e.Tool, e.Feature)
}

// Unsupportedf returns an UnsupportedFeatureError for tool with a
// formatted feature description.
func Unsupportedf(tool, format string, args ...any) error {
	return &UnsupportedFeatureError{Tool: tool, Feature: fmt.Sprintf(format, args...)}
}

// IsUnsupported reports whether err is an UnsupportedFeatureError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedFeatureError
	return errors.As(err, &ue)
}

// InvalidOptionValueError reports a user supplied option value that
// failed validation.
type InvalidOptionValueError struct {
	Option  string // option key as the user writes it
	Value   any
	Choices []string // valid choices, if enumerable
	Msg     string   // extra explanation, may be empty
}

func (e *InvalidOptionValueError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid value %q for option %q", fmt.Sprint(e.Value), e.Option)
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if len(e.Choices) > 0 {
		fmt.Fprintf(&sb, ". possible values are %s", strings.Join(e.Choices, ", "))
	}
	return sb.String()
}

// ToolchainProbeError reports a failure to run or interpret a probe of
// an external tool.
type ToolchainProbeError struct {
	Cmd []string
	Err error
}

func (e *ToolchainProbeError) Error() string {
	return fmt.Sprintf("could not invoke %q: %v", strings.Join(e.Cmd, " "), e.Err)
}

func (e *ToolchainProbeError) Unwrap() error { return e.Err }

// ArgTranslationError reports an argument that could not be translated
// to the target toolchain's native syntax.
type ArgTranslationError struct {
	Tool string
	Arg  string
}

func (e *ArgTranslationError) Error() string {
	return fmt.Sprintf("cannot translate %q for %s", e.Arg, e.Tool)
}
