// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package options

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/eli-schwartz/meson/merrors"
	"github.com/eli-schwartz/meson/mlog"
	"github.com/eli-schwartz/meson/toolsupport/shutil"
)

// Deprecation describes whether and how an option is deprecated.
// At most one field is set.
type Deprecation struct {
	// All marks the whole option as deprecated.
	All bool
	// Values lists values that are deprecated, without replacement.
	Values []string
	// Replaced maps deprecated values to their replacements.
	Replaced map[string]string
	// Replacement names the option that supersedes this one.
	Replacement string
}

// IsZero reports whether no deprecation applies.
func (d Deprecation) IsZero() bool {
	return !d.All && len(d.Values) == 0 && len(d.Replaced) == 0 && d.Replacement == ""
}

// Option is a typed, validated user option.
//
// SetValue validates and stores a new value and reports whether the
// stored value changed. Validation failures are returned as
// *merrors.InvalidOptionValueError.
type Option interface {
	Name() string
	Description() string
	// Type returns the introspection type name: "string", "boolean",
	// "combo", "integer", "array" or "feature".
	Type() string
	Yielding() bool
	Readonly() bool
	Deprecated() Deprecation

	Value() any
	// PrintableValue returns the value in its display form, e.g. an
	// umask renders as a zero padded octal string.
	PrintableValue() any
	// PrintableChoices returns display forms of the valid values, or
	// nil when the value space is not enumerable.
	PrintableChoices() []string

	Validate(ctx context.Context, v any) (any, error)
	SetValue(ctx context.Context, v any) (bool, error)
}

type base struct {
	name        string
	description string
	yielding    bool
	readonly    bool
	deprecated  Deprecation
}

func (b *base) Name() string            { return b.name }
func (b *base) Description() string     { return b.description }
func (b *base) Yielding() bool          { return b.yielding }
func (b *base) Readonly() bool          { return b.readonly }
func (b *base) Deprecated() Deprecation { return b.deprecated }

// SetYielding marks whether the option yields to the parent project's
// option of the same name.
func (b *base) SetYielding(v bool) { b.yielding = v }

// SetDeprecated attaches deprecation state.
func (b *base) SetDeprecated(d Deprecation) { b.deprecated = d }

func (b *base) setReadonly() { b.readonly = true }

// invalid is a shorthand for the validation error all options return.
func (b *base) invalid(value any, choices []string, format string, args ...any) error {
	return &merrors.InvalidOptionValueError{
		Option:  b.name,
		Value:   value,
		Choices: choices,
		Msg:     fmt.Sprintf(format, args...),
	}
}

// StringOption holds a free form string.
type StringOption struct {
	base
	value string
}

// NewString returns a string option. It panics if value is not valid,
// which for a free form string cannot happen.
func NewString(name, description, value string) *StringOption {
	o := &StringOption{base: base{name: name, description: description}}
	mustSet(o, value)
	return o
}

func (o *StringOption) Type() string               { return "string" }
func (o *StringOption) Value() any                 { return o.value }
func (o *StringOption) String() string             { return o.value }
func (o *StringOption) PrintableValue() any        { return o.value }
func (o *StringOption) PrintableChoices() []string { return nil }

func (o *StringOption) Validate(ctx context.Context, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, o.invalid(v, nil, "not a string")
	}
	return s, nil
}

func (o *StringOption) SetValue(ctx context.Context, v any) (bool, error) {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return false, err
	}
	s := nv.(string)
	changed := s != o.value
	o.value = s
	return changed, nil
}

// BooleanOption holds a boolean. It accepts the strings "true" and
// "false" case insensitively.
type BooleanOption struct {
	base
	value bool
}

// NewBoolean returns a boolean option.
func NewBoolean(name, description string, value bool) *BooleanOption {
	o := &BooleanOption{base: base{name: name, description: description}}
	mustSet(o, value)
	return o
}

func (o *BooleanOption) Type() string               { return "boolean" }
func (o *BooleanOption) Value() any                 { return o.value }
func (o *BooleanOption) Bool() bool                 { return o.value }
func (o *BooleanOption) PrintableValue() any        { return o.value }
func (o *BooleanOption) PrintableChoices() []string { return []string{"true", "false"} }

func (o *BooleanOption) Validate(ctx context.Context, v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(t) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, o.invalid(v, o.PrintableChoices(), "not a boolean (true or false)")
	}
	return nil, o.invalid(v, o.PrintableChoices(), "cannot be converted to a boolean")
}

func (o *BooleanOption) SetValue(ctx context.Context, v any) (bool, error) {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return false, err
	}
	b := nv.(bool)
	changed := b != o.value
	o.value = b
	return changed, nil
}

// ComboOption holds one value out of an enumerated list.
type ComboOption struct {
	base
	choices []string
	value   string
}

// NewCombo returns a combo option. It panics if value is not one of
// choices.
func NewCombo(name, description, value string, choices []string) *ComboOption {
	o := &ComboOption{base: base{name: name, description: description}, choices: choices}
	mustSet(o, value)
	return o
}

func (o *ComboOption) Type() string               { return "combo" }
func (o *ComboOption) Value() any                 { return o.value }
func (o *ComboOption) String() string             { return o.value }
func (o *ComboOption) Choices() []string          { return o.choices }
func (o *ComboOption) PrintableValue() any        { return o.value }
func (o *ComboOption) PrintableChoices() []string { return slices.Clone(o.choices) }

func (o *ComboOption) Validate(ctx context.Context, v any) (any, error) {
	s, ok := v.(string)
	if !ok || !slices.Contains(o.choices, s) {
		typ := "string"
		switch v.(type) {
		case bool:
			typ = "boolean"
		case int, int64, float64:
			typ = "number"
		}
		return nil, o.invalid(v, o.choices, "value of type %q is not one of the choices", typ)
	}
	return s, nil
}

func (o *ComboOption) SetValue(ctx context.Context, v any) (bool, error) {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return false, err
	}
	s := nv.(string)
	changed := s != o.value
	o.value = s
	return changed, nil
}

// IntegerOption holds an integer constrained to an optional range.
type IntegerOption struct {
	base
	min, max *int
	value    int
}

// NewInteger returns an integer option. A nil min or max leaves that
// side unbounded. It panics if value is out of range.
func NewInteger(name, description string, min, max *int, value int) *IntegerOption {
	o := &IntegerOption{base: base{name: name, description: description}, min: min, max: max}
	mustSet(o, value)
	return o
}

func (o *IntegerOption) Type() string        { return "integer" }
func (o *IntegerOption) Value() any          { return o.value }
func (o *IntegerOption) Int() int            { return o.value }
func (o *IntegerOption) PrintableValue() any { return o.value }

func (o *IntegerOption) PrintableChoices() []string {
	var parts []string
	if o.min != nil {
		parts = append(parts, fmt.Sprintf(">= %d", *o.min))
	}
	if o.max != nil {
		parts = append(parts, fmt.Sprintf("<= %d", *o.max))
	}
	if parts == nil {
		return nil
	}
	return []string{strings.Join(parts, ", ")}
}

func (o *IntegerOption) toInt(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, o.invalid(s, nil, "not convertible to an integer")
	}
	return i, nil
}

func (o *IntegerOption) Validate(ctx context.Context, v any) (any, error) {
	var i int
	switch t := v.(type) {
	case int:
		i = t
	case int64:
		i = int(t)
	case float64:
		if t != math.Trunc(t) {
			return nil, o.invalid(v, nil, "not an integer")
		}
		i = int(t)
	case string:
		var err error
		i, err = o.toInt(t)
		if err != nil {
			return nil, err
		}
	default:
		return nil, o.invalid(v, nil, "not an integer")
	}
	if o.min != nil && i < *o.min {
		return nil, o.invalid(v, o.PrintableChoices(), "less than minimum value %d", *o.min)
	}
	if o.max != nil && i > *o.max {
		return nil, o.invalid(v, o.PrintableChoices(), "more than maximum value %d", *o.max)
	}
	return i, nil
}

func (o *IntegerOption) SetValue(ctx context.Context, v any) (bool, error) {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return false, err
	}
	i := nv.(int)
	changed := i != o.value
	o.value = i
	return changed, nil
}

// UmaskOption holds a file mode mask: either the string "preserve" or
// an octal integer no greater than 0777.
type UmaskOption struct {
	base
	preserve bool
	value    int
}

// NewUmask returns an umask option. value is "preserve" or an octal
// string such as "022". It panics on an invalid value.
func NewUmask(name, description, value string) *UmaskOption {
	o := &UmaskOption{base: base{name: name, description: description}}
	mustSet(o, value)
	return o
}

func (o *UmaskOption) Type() string { return "integer" }

// Value returns "preserve" or the mask as an int.
func (o *UmaskOption) Value() any {
	if o.preserve {
		return "preserve"
	}
	return o.value
}

// Mode returns the mask and whether it applies; ok is false for
// "preserve".
func (o *UmaskOption) Mode() (mode int, ok bool) {
	return o.value, !o.preserve
}

func (o *UmaskOption) PrintableValue() any {
	if o.preserve {
		return "preserve"
	}
	return fmt.Sprintf("%04o", o.value)
}

func (o *UmaskOption) PrintableChoices() []string {
	return []string{"preserve", ">= 0000, <= 0777"}
}

func (o *UmaskOption) Validate(ctx context.Context, v any) (any, error) {
	switch t := v.(type) {
	case string:
		if t == "preserve" {
			return "preserve", nil
		}
		i, err := strconv.ParseInt(t, 8, 32)
		if err != nil {
			return nil, o.invalid(v, o.PrintableChoices(), "invalid mode")
		}
		v = int(i)
	case int:
	case int64:
		v = int(t)
	case float64:
		v = int(t)
	default:
		return nil, o.invalid(v, o.PrintableChoices(), "invalid mode")
	}
	i := v.(int)
	if i < 0 || i > 0o777 {
		return nil, o.invalid(fmt.Sprintf("%04o", i), o.PrintableChoices(), "out of range")
	}
	return i, nil
}

func (o *UmaskOption) SetValue(ctx context.Context, v any) (bool, error) {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return false, err
	}
	if s, ok := nv.(string); ok && s == "preserve" {
		changed := !o.preserve
		o.preserve = true
		o.value = 0
		return changed, nil
	}
	i := nv.(int)
	changed := o.preserve || i != o.value
	o.preserve = false
	o.value = i
	return changed, nil
}

// ArrayOption holds a list of strings. String input is split either on
// commas, or with shell quoting rules when the option was created with
// NewArgsArray. A bracketed list "[a, b]" is also accepted.
type ArrayOption struct {
	base
	choices   []string
	splitArgs bool
	allowDups bool
	value     []string
}

// NewArray returns a string array option.
func NewArray(name, description string, value []string) *ArrayOption {
	o := &ArrayOption{base: base{name: name, description: description}}
	mustSet(o, value)
	return o
}

// NewChoicesArray returns a string array option whose elements must
// come from choices.
func NewChoicesArray(name, description string, value, choices []string) *ArrayOption {
	o := &ArrayOption{base: base{name: name, description: description}, choices: choices}
	mustSet(o, value)
	return o
}

// NewArgsArray returns a string array option that splits string input
// with shell quoting rules and allows duplicate elements. Used for
// free form argument lists such as c_args.
func NewArgsArray(name, description string, value []string) *ArrayOption {
	o := &ArrayOption{base: base{name: name, description: description}, splitArgs: true, allowDups: true}
	mustSet(o, value)
	return o
}

func (o *ArrayOption) Type() string        { return "array" }
func (o *ArrayOption) Value() any          { return slices.Clone(o.value) }
func (o *ArrayOption) Strings() []string   { return slices.Clone(o.value) }
func (o *ArrayOption) PrintableValue() any { return slices.Clone(o.value) }

func (o *ArrayOption) PrintableChoices() []string {
	if o.choices == nil {
		return nil
	}
	return slices.Clone(o.choices)
}

// listify converts string input to the element list.
func (o *ArrayOption) listify(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, o.invalid(v, nil, "array element %v is not a string", e)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if s := strings.TrimSpace(t); strings.HasPrefix(s, "[") {
			if !strings.HasSuffix(s, "]") {
				return nil, o.invalid(v, nil, "malformed list")
			}
			return splitBracketList(s[1 : len(s)-1]), nil
		}
		if o.splitArgs {
			elems, err := shutil.SplitNative(t)
			if err != nil {
				return nil, o.invalid(v, nil, "%v", err)
			}
			return elems, nil
		}
		var out []string
		for _, e := range strings.Split(t, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
		return out, nil
	}
	return nil, o.invalid(v, nil, "not an array of strings")
}

func splitBracketList(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		e = strings.Trim(e, `'"`)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (o *ArrayOption) Validate(ctx context.Context, v any) (any, error) {
	elems, err := o.listify(v)
	if err != nil {
		return nil, err
	}
	if !o.allowDups {
		seen := make(map[string]bool, len(elems))
		for _, e := range elems {
			if seen[e] {
				mlog.Deprecation(ctx, "duplicated values in array option %q", o.name)
				break
			}
			seen[e] = true
		}
	}
	if o.choices != nil {
		var bad []string
		for _, e := range elems {
			if !slices.Contains(o.choices, e) {
				bad = append(bad, e)
			}
		}
		if len(bad) > 0 {
			return nil, o.invalid(strings.Join(bad, ", "), o.choices, "not in allowed choices")
		}
	}
	return elems, nil
}

func (o *ArrayOption) SetValue(ctx context.Context, v any) (bool, error) {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return false, err
	}
	elems := nv.([]string)
	changed := !slices.Equal(elems, o.value)
	o.value = elems
	return changed, nil
}

// ExtendValue appends additional elements, validating them first.
func (o *ArrayOption) ExtendValue(ctx context.Context, v any) error {
	nv, err := o.Validate(ctx, v)
	if err != nil {
		return err
	}
	o.value = append(o.value, nv.([]string)...)
	return nil
}

// Feature states.
const (
	FeatureEnabled  = "enabled"
	FeatureDisabled = "disabled"
	FeatureAuto     = "auto"
)

// FeatureOption is a tristate: enabled, disabled or auto.
type FeatureOption struct {
	ComboOption
}

// NewFeature returns a feature option.
func NewFeature(name, description, value string) *FeatureOption {
	o := &FeatureOption{ComboOption{
		base:    base{name: name, description: description},
		choices: []string{FeatureEnabled, FeatureDisabled, FeatureAuto},
	}}
	mustSet(o, value)
	return o
}

func (o *FeatureOption) Type() string     { return "feature" }
func (o *FeatureOption) IsEnabled() bool  { return o.value == FeatureEnabled }
func (o *FeatureOption) IsDisabled() bool { return o.value == FeatureDisabled }
func (o *FeatureOption) IsAuto() bool     { return o.value == FeatureAuto }

// mustSet stores the initial value and panics on a validation error.
// Initial values come from code, not from users.
func mustSet(o Option, v any) {
	if _, err := o.SetValue(context.Background(), v); err != nil {
		panic(fmt.Sprintf("options: bad default for %q: %v", o.Name(), err))
	}
}
