package types

import (
	"math"
	"strconv"
	"strings"
)

// Value is a typed literal or runtime value. Which fields are meaningful
// depends on Kind: Bool; Int for integer kinds; Float for float kinds;
// Str for string, name, struct text and object paths; Vec for vectors;
// Items for arrays and sets; Keys and Items for maps.
type Value struct {
	Kind  Kind      `cbor:"1,keyasint" json:"kind"`
	Bool  bool      `cbor:"2,keyasint,omitempty" json:"bool,omitempty"`
	Int   int64     `cbor:"3,keyasint,omitempty" json:"int,omitempty"`
	Float float64   `cbor:"4,keyasint,omitempty" json:"float,omitempty"`
	Str   string    `cbor:"5,keyasint,omitempty" json:"str,omitempty"`
	Vec   []float64 `cbor:"6,keyasint,omitempty" json:"vec,omitempty"`
	Items []Value   `cbor:"7,keyasint,omitempty" json:"items,omitempty"`
	Keys  []Value   `cbor:"8,keyasint,omitempty" json:"keys,omitempty"`
}

// MakeBool returns a bool value.
func MakeBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// MakeInt returns an integer value of the given integer kind.
func MakeInt(k Kind, v int64) Value { return Value{Kind: k, Int: v} }

// MakeFloat returns a float value of the given float kind.
func MakeFloat(k Kind, v float64) Value {
	if k == KindFloat {
		v = float64(float32(v))
	}
	return Value{Kind: k, Float: v}
}

// MakeString returns a string-like value (string, name, struct, object).
func MakeString(k Kind, s string) Value { return Value{Kind: k, Str: s} }

// MakeVector returns a vector or vector2 value.
func MakeVector(k Kind, comps ...float64) Value {
	return Value{Kind: k, Vec: append([]float64(nil), comps...)}
}

// MakeArray returns an array value.
func MakeArray(items ...Value) Value {
	return Value{Kind: KindArray, Items: items}
}

// AsFloat returns the numeric value as a float64.
func (v Value) AsFloat() float64 {
	if v.Kind.IsInteger() {
		return float64(v.Int)
	}
	if v.Kind == KindBool {
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Float
}

// AsInt returns the numeric value truncated to an int64.
func (v Value) AsInt() int64 {
	if v.Kind.IsFloat() {
		return int64(v.Float)
	}
	if v.Kind == KindBool {
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Int
}

// Truthy reports whether the value counts as true for a branch.
func (v Value) Truthy() bool {
	switch {
	case v.Kind == KindBool:
		return v.Bool
	case v.Kind.IsInteger():
		return v.Int != 0
	case v.Kind.IsFloat():
		return v.Float != 0
	case v.Kind == KindString || v.Kind == KindName:
		return v.Str != ""
	}
	return false
}

// Equal reports deep equality, treating NaN as equal to itself.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Bool != o.Bool || v.Int != o.Int || v.Str != o.Str {
		return false
	}
	if v.Float != o.Float && !(math.IsNaN(v.Float) && math.IsNaN(o.Float)) {
		return false
	}
	if len(v.Vec) != len(o.Vec) || len(v.Items) != len(o.Items) || len(v.Keys) != len(o.Keys) {
		return false
	}
	for i := range v.Vec {
		if v.Vec[i] != o.Vec[i] {
			return false
		}
	}
	for i := range v.Items {
		if !v.Items[i].Equal(o.Items[i]) {
			return false
		}
	}
	for i := range v.Keys {
		if !v.Keys[i].Equal(o.Keys[i]) {
			return false
		}
	}
	return true
}

// String renders the value in literal text form.
func (v Value) String() string {
	return FormatLiteral(v)
}

// FormatLiteral renders a value as default-value text that ParseLiteral
// reads back.
func FormatLiteral(v Value) string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindByte, KindInt32, KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float, 32)
	case KindDouble:
		return formatFloat(v.Float, 64)
	case KindString, KindName, KindStruct, KindObject:
		return v.Str
	case KindVector, KindVector2:
		axes := []string{"X", "Y", "Z"}
		parts := make([]string, len(v.Vec))
		for i, c := range v.Vec {
			parts[i] = axes[i%len(axes)] + "=" + formatFloat(c, 64)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case KindArray, KindSet:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = FormatLiteral(item)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case KindMap:
		parts := make([]string, len(v.Items))
		for i := range v.Items {
			parts[i] = FormatLiteral(v.Keys[i]) + "=" + FormatLiteral(v.Items[i])
		}
		return "(" + strings.Join(parts, ",") + ")"
	}
	return ""
}

func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if strings.ContainsAny(s, ".eENI") {
		return s
	}
	return s + ".0"
}
