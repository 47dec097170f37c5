// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package param defines the typed acquisition-parameter value used
// throughout the compliance audit engine.
//
// # Description
//
// A Value is a closed tagged variant: it is either a concrete scalar
// or tuple (repetition time, flip angle, phase encoding direction...),
// the Unspecified sentinel (attribute absent from the scan header or
// unparseable), or the EqualCount sentinel (majority voting found no
// defensible winner). All equality, tolerance and hashing logic
// dispatches on the variant tag so sentinel values can never be
// mistaken for real acquisition values.
//
// # Thread Safety
//
// Value is immutable after construction and safe to share across
// goroutines.
package param

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	// KindUnspecified marks an attribute that was absent or
	// unparseable at extraction time.
	KindUnspecified Kind = iota

	// KindConcrete marks a real scalar or tuple value.
	KindConcrete

	// KindEqualCount marks an unresolved tie in majority voting.
	// It is never a valid acquisition value; comparing anything
	// against it is non-compliant.
	KindEqualCount
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindUnspecified:
		return "unspecified"
	case KindConcrete:
		return "concrete"
	case KindEqualCount:
		return "equal_count"
	default:
		return "unknown"
	}
}

// scalarType discriminates the payload of a concrete Value.
type scalarType int

const (
	scalarNone scalarType = iota
	scalarNumber
	scalarString
	scalarBool
	scalarTuple
)

// Value is one acquisition attribute of a scan run.
//
// The zero value is Unspecified.
type Value struct {
	kind   Kind
	sType  scalarType
	number float64
	str    string
	flag   bool
	tuple  []Value
}

// =============================================================================
// Constructors
// =============================================================================

// Unspecified returns the absent-attribute sentinel.
func Unspecified() Value {
	return Value{kind: KindUnspecified}
}

// EqualCount returns the majority-tie sentinel.
func EqualCount() Value {
	return Value{kind: KindEqualCount}
}

// Number returns a concrete numeric value.
func Number(v float64) Value {
	return Value{kind: KindConcrete, sType: scalarNumber, number: v}
}

// String_ returns a concrete string value.
//
// The trailing underscore avoids colliding with fmt.Stringer.
func String_(v string) Value {
	return Value{kind: KindConcrete, sType: scalarString, str: v}
}

// Bool returns a concrete boolean value.
func Bool(v bool) Value {
	return Value{kind: KindConcrete, sType: scalarBool, flag: v}
}

// Tuple returns a concrete composite value, e.g. a shim gradient
// triplet or a multi-valued image type attribute.
func Tuple(items ...Value) Value {
	copied := make([]Value, len(items))
	copy(copied, items)
	return Value{kind: KindConcrete, sType: scalarTuple, tuple: copied}
}

// FromAny converts a dynamically typed value (as decoded from JSON or
// YAML) into a Value.
//
// Supported inputs: nil (Unspecified), float64, int, string, bool and
// homogeneous or mixed slices of those. Anything else is rejected
// with ErrUnsupportedType.
func FromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Unspecified(), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q", ErrUnsupportedType, v.String())
		}
		return Number(f), nil
	case string:
		return String_(v), nil
	case bool:
		return Bool(v), nil
	case []any:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, converted)
		}
		return Tuple(items...), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, raw)
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsConcrete reports whether v carries a real value.
func (v Value) IsConcrete() bool { return v.kind == KindConcrete }

// IsUnspecified reports whether v is the absent-attribute sentinel.
func (v Value) IsUnspecified() bool { return v.kind == KindUnspecified }

// IsEqualCount reports whether v is the majority-tie sentinel.
func (v Value) IsEqualCount() bool { return v.kind == KindEqualCount }

// Number returns the numeric payload. The second return is false when
// v is not a concrete number.
func (v Value) Number() (float64, bool) {
	return v.number, v.kind == KindConcrete && v.sType == scalarNumber
}

// Str returns the string payload. The second return is false when v
// is not a concrete string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindConcrete && v.sType == scalarString
}

// Bool returns the boolean payload. The second return is false when v
// is not a concrete boolean.
func (v Value) Bool() (bool, bool) {
	return v.flag, v.kind == KindConcrete && v.sType == scalarBool
}

// Tuple returns the tuple payload. The second return is false when v
// is not a concrete tuple.
func (v Value) Tuple() ([]Value, bool) {
	if v.kind != KindConcrete || v.sType != scalarTuple {
		return nil, false
	}
	items := make([]Value, len(v.tuple))
	copy(items, v.tuple)
	return items, true
}

// =============================================================================
// Canonical key and equality
// =============================================================================

// Key returns a canonical, collision-free string encoding of v.
//
// Majority voting tallies frequencies over these keys so that
// composite (tuple) values count correctly; the original Value is
// retained alongside the key, so nothing is lost in the round trip.
func (v Value) Key() string {
	switch v.kind {
	case KindUnspecified:
		return "u"
	case KindEqualCount:
		return "q"
	}
	switch v.sType {
	case scalarNumber:
		return "n:" + strconv.FormatFloat(v.number, 'g', -1, 64)
	case scalarString:
		return "s:" + v.str
	case scalarBool:
		return "b:" + strconv.FormatBool(v.flag)
	case scalarTuple:
		parts := make([]string, len(v.tuple))
		for i, item := range v.tuple {
			parts[i] = item.Key()
		}
		return "t:[" + strings.Join(parts, "|") + "]"
	default:
		return "u"
	}
}

// String renders v for reports and log lines.
func (v Value) String() string {
	switch v.kind {
	case KindUnspecified:
		return "Unspecified"
	case KindEqualCount:
		return "EqualCount"
	}
	switch v.sType {
	case scalarNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case scalarString:
		return v.str
	case scalarBool:
		return strconv.FormatBool(v.flag)
	case scalarTuple:
		parts := make([]string, len(v.tuple))
		for i, item := range v.tuple {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "Unspecified"
	}
}

// Equal reports exact equality of two values, sentinel tags included.
// Two Unspecified values are equal; EqualCount equals only itself.
func (v Value) Equal(other Value) bool {
	return v.Key() == other.Key()
}

// relEpsilon floors the relative-tolerance denominator so comparisons
// against values at or near zero stay meaningful.
const relEpsilon = 1e-9

// WithinTolerance reports whether two values match under a relative
// numeric tolerance after rounding to the given number of decimals.
//
// # Description
//
// Numeric pairs are rounded to `decimals` places and compared with
// |a-b| <= tolerance * max(|a|, |b|, epsilon); tolerance 0 degenerates
// to exact equality of the rounded values. Numeric tuples of equal
// length compare element-wise under the same rule. Every other
// concrete combination falls back to exact equality on the canonical
// key. Sentinels follow the audit contract: two Unspecified values
// match (compliant by absence), any other sentinel pairing does not.
func (v Value) WithinTolerance(other Value, tolerance float64, decimals int) bool {
	if v.kind == KindUnspecified && other.kind == KindUnspecified {
		return true
	}
	if v.kind != KindConcrete || other.kind != KindConcrete {
		return false
	}

	if v.sType == scalarNumber && other.sType == scalarNumber {
		return numbersMatch(v.number, other.number, tolerance, decimals)
	}
	if v.sType == scalarTuple && other.sType == scalarTuple &&
		len(v.tuple) == len(other.tuple) {
		for i := range v.tuple {
			if !v.tuple[i].WithinTolerance(other.tuple[i], tolerance, decimals) {
				return false
			}
		}
		return true
	}
	return v.Equal(other)
}

func numbersMatch(a, b, tolerance float64, decimals int) bool {
	ra := roundTo(a, decimals)
	rb := roundTo(b, decimals)
	if tolerance <= 0 {
		return ra == rb
	}
	scale := math.Max(math.Abs(ra), math.Abs(rb))
	scale = math.Max(scale, relEpsilon)
	return math.Abs(ra-rb) <= tolerance*scale
}

func roundTo(x float64, decimals int) float64 {
	if decimals < 0 {
		return x
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}

// =============================================================================
// JSON encoding (dataset snapshots, NC logs, reference files)
// =============================================================================

// jsonValue is the wire form of a Value.
type jsonValue struct {
	Kind  string   `json:"kind"`
	Type  string   `json:"type,omitempty"`
	Num   *float64 `json:"num,omitempty"`
	Str   *string  `json:"str,omitempty"`
	Bool  *bool    `json:"bool,omitempty"`
	Items []Value  `json:"items,omitempty"`
}

// MarshalJSON encodes the tagged variant explicitly so snapshots can
// round-trip sentinels without ambiguity.
func (v Value) MarshalJSON() ([]byte, error) {
	out := jsonValue{Kind: v.kind.String()}
	if v.kind == KindConcrete {
		switch v.sType {
		case scalarNumber:
			out.Type = "number"
			out.Num = &v.number
		case scalarString:
			out.Type = "string"
			out.Str = &v.str
		case scalarBool:
			out.Type = "bool"
			out.Bool = &v.flag
		case scalarTuple:
			out.Type = "tuple"
			out.Items = v.tuple
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in jsonValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "unspecified", "":
		*v = Unspecified()
	case "equal_count":
		*v = EqualCount()
	case "concrete":
		switch in.Type {
		case "number":
			if in.Num == nil {
				return fmt.Errorf("%w: concrete number without payload", ErrUnsupportedType)
			}
			*v = Number(*in.Num)
		case "string":
			if in.Str == nil {
				return fmt.Errorf("%w: concrete string without payload", ErrUnsupportedType)
			}
			*v = String_(*in.Str)
		case "bool":
			if in.Bool == nil {
				return fmt.Errorf("%w: concrete bool without payload", ErrUnsupportedType)
			}
			*v = Bool(*in.Bool)
		case "tuple":
			*v = Tuple(in.Items...)
		default:
			return fmt.Errorf("%w: scalar type %q", ErrUnsupportedType, in.Type)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrUnsupportedType, in.Kind)
	}
	return nil
}

// SortedNames returns the keys of a parameter mapping in stable
// lexical order. Downstream reason aggregation and reports rely on
// this ordering being deterministic run to run.
func SortedNames(params map[string]Value) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
