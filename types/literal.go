package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/coregx/coregex"
)

const number = `[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?`

var (
	vectorPattern = mustCompile(`^\(?\s*(?:[XYZxyz]\s*=\s*)?` + number +
		`(?:\s*,\s*(?:[XYZxyz]\s*=\s*)?` + number + `){1,2}\s*\)?$`)
	componentSep = mustCompile(`\s*,\s*`)
	axisPrefix   = mustCompile(`^[XYZxyz]\s*=\s*`)
)

func mustCompile(pattern string) *coregex.Regexp {
	re, err := coregex.Compile(pattern)
	if err != nil {
		panic(fmt.Sprintf("types: bad literal pattern %q: %v", pattern, err))
	}
	return re
}

// Zero returns the type-appropriate default used when a pin has neither a
// connection nor literal text.
func (r *Registry) Zero(t Type) Value {
	switch t.Kind {
	case KindVector2:
		return MakeVector(KindVector2, 0, 0)
	case KindVector:
		return MakeVector(KindVector, 0, 0, 0)
	}
	return Value{Kind: t.Kind}
}

// ParseLiteral reads default-value text as a value of type t.
func (r *Registry) ParseLiteral(t Type, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch t.Kind {
	case KindWildcard:
		return Value{}, fmt.Errorf("types: cannot read %q for an unresolved type", text)
	case KindBool:
		switch strings.ToLower(text) {
		case "true", "1":
			return MakeBool(true), nil
		case "false", "0":
			return MakeBool(false), nil
		}
		return Value{}, fmt.Errorf("types: %q is not a bool", text)
	case KindByte:
		n, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return Value{}, fmt.Errorf("types: %q is not a byte: %w", text, err)
		}
		return MakeInt(KindByte, int64(n)), nil
	case KindInt32, KindInt64:
		bits := 32
		if t.Kind == KindInt64 {
			bits = 64
		}
		n, err := strconv.ParseInt(text, 10, bits)
		if err != nil {
			return Value{}, fmt.Errorf("types: %q is not an %s: %w", text, t, err)
		}
		return MakeInt(t.Kind, n), nil
	case KindFloat, KindDouble:
		bits := 32
		if t.Kind == KindDouble {
			bits = 64
		}
		f, err := strconv.ParseFloat(text, bits)
		if err != nil {
			return Value{}, fmt.Errorf("types: %q is not a %s: %w", text, t, err)
		}
		return MakeFloat(t.Kind, f), nil
	case KindString, KindName:
		return MakeString(t.Kind, text), nil
	case KindStruct:
		if text != "" && !(strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")")) {
			return Value{}, fmt.Errorf("types: struct literal %q must be parenthesized", text)
		}
		return MakeString(KindStruct, text), nil
	case KindObject:
		if text == "None" {
			text = ""
		}
		return MakeString(KindObject, text), nil
	case KindVector, KindVector2:
		return r.parseVector(t, text)
	case KindArray, KindSet:
		return r.parseList(t, text)
	case KindMap:
		return r.parseMap(t, text)
	}
	return Value{}, fmt.Errorf("types: no literal syntax for %s", t)
}

func (r *Registry) parseVector(t Type, text string) (Value, error) {
	if text == "" {
		return r.Zero(t), nil
	}
	if !vectorPattern.MatchString(text) {
		return Value{}, fmt.Errorf("types: %q is not a %s", text, t)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(text), "("), ")")
	parts := componentSep.Split(strings.TrimSpace(body), -1)
	want := 3
	if t.Kind == KindVector2 {
		want = 2
	}
	if len(parts) != want {
		return Value{}, fmt.Errorf("types: %s needs %d components, %q has %d", t, want, text, len(parts))
	}
	comps := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(axisPrefix.ReplaceAllString(p, ""), 64)
		if err != nil {
			return Value{}, fmt.Errorf("types: component %d of %q: %w", i, text, err)
		}
		comps[i] = f
	}
	return MakeVector(t.Kind, comps...), nil
}

func (r *Registry) parseList(t Type, text string) (Value, error) {
	items, err := splitList(text)
	if err != nil {
		return Value{}, err
	}
	out := Value{Kind: t.Kind}
	for _, item := range items {
		v, err := r.ParseLiteral(*t.Elem, unquote(item))
		if err != nil {
			return Value{}, err
		}
		if t.Kind == KindSet && containsValue(out.Items, v) {
			continue
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}

func (r *Registry) parseMap(t Type, text string) (Value, error) {
	items, err := splitList(text)
	if err != nil {
		return Value{}, err
	}
	out := Value{Kind: KindMap}
	for _, item := range items {
		eq := topLevelIndex(item, '=')
		if eq < 0 {
			return Value{}, fmt.Errorf("types: map entry %q has no '='", item)
		}
		k, err := r.ParseLiteral(*t.Key, unquote(strings.TrimSpace(item[:eq])))
		if err != nil {
			return Value{}, err
		}
		v, err := r.ParseLiteral(*t.Elem, unquote(strings.TrimSpace(item[eq+1:])))
		if err != nil {
			return Value{}, err
		}
		out.Keys = append(out.Keys, k)
		out.Items = append(out.Items, v)
	}
	return out, nil
}

// splitList splits "(a,b,(c,d))" into its top-level items.
func splitList(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "()" {
		return nil, nil
	}
	if !strings.HasPrefix(text, "(") || !strings.HasSuffix(text, ")") {
		return nil, fmt.Errorf("types: container literal %q must be parenthesized", text)
	}
	body := text[1 : len(text)-1]
	var items []string
	depth, start := 0, 0
	quoted := false
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case c == '"' && (i == 0 || body[i-1] != '\\'):
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("types: unbalanced ')' in %q", text)
			}
		case c == ',' && depth == 0:
			items = append(items, strings.TrimSpace(body[start:i]))
			start = i + 1
		}
	}
	if depth != 0 || quoted {
		return nil, fmt.Errorf("types: unterminated literal %q", text)
	}
	return append(items, strings.TrimSpace(body[start:])), nil
}

func topLevelIndex(s string, sep byte) int {
	depth := 0
	quoted := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == sep && depth == 0:
			return i
		}
	}
	return -1
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

func containsValue(vs []Value, v Value) bool {
	for _, x := range vs {
		if x.Equal(v) {
			return true
		}
	}
	return false
}

// ConvertValue converts v, a value of type from, to type to. Numeric
// conversions are range checked and never lose information.
func (r *Registry) ConvertValue(v Value, from, to Type) (Value, error) {
	if from.Equal(to) {
		return v, nil
	}
	fk, tk := from.Kind, to.Kind
	switch {
	case fk.IsNumeric() && tk.IsNumeric():
		return convertNumber(v, to)
	case fk == KindBool && tk.IsNumeric():
		return convertNumber(MakeInt(KindInt64, v.AsInt()), to)
	case tk == KindString && !fk.IsContainer():
		return MakeString(KindString, FormatLiteral(v)), nil
	case (fk == KindString || fk == KindName) && tk != KindString:
		return r.ParseLiteral(to, v.Str)
	case fk == KindVector2 && tk == KindVector:
		return MakeVector(KindVector, v.Vec[0], v.Vec[1], 0), nil
	case fk == KindObject && tk == KindObject:
		if !r.IsSubclass(from.Name, to.Name) {
			return Value{}, fmt.Errorf("types: %s is not a %s", from, to)
		}
		return v, nil
	case (fk == KindArray || fk == KindSet) && (tk == KindArray || tk == KindSet):
		out := Value{Kind: tk}
		for _, item := range v.Items {
			c, err := r.ConvertValue(item, *from.Elem, *to.Elem)
			if err != nil {
				return Value{}, err
			}
			if tk == KindSet && containsValue(out.Items, c) {
				continue
			}
			out.Items = append(out.Items, c)
		}
		return out, nil
	case fk == KindMap && tk == KindMap && from.Key.Equal(*to.Key):
		out := Value{Kind: KindMap, Keys: v.Keys}
		for _, item := range v.Items {
			c, err := r.ConvertValue(item, *from.Elem, *to.Elem)
			if err != nil {
				return Value{}, err
			}
			out.Items = append(out.Items, c)
		}
		return out, nil
	}
	return Value{}, fmt.Errorf("types: no conversion from %s to %s", from, to)
}

func convertNumber(v Value, to Type) (Value, error) {
	switch {
	case to.Kind.IsFloat():
		f := v.AsFloat()
		if to.Kind == KindFloat && !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return Value{}, fmt.Errorf("types: %v overflows float", f)
		}
		return MakeFloat(to.Kind, f), nil
	case v.Kind.IsFloat():
		f := v.Float
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return Value{}, fmt.Errorf("types: %v is not integral", f)
		}
		return convertNumber(MakeInt(KindInt64, int64(f)), to)
	}
	n := v.Int
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	switch to.Kind {
	case KindByte:
		lo, hi = 0, math.MaxUint8
	case KindInt32:
		lo, hi = math.MinInt32, math.MaxInt32
	}
	if n < lo || n > hi {
		return Value{}, fmt.Errorf("types: %d overflows %s", n, to)
	}
	return MakeInt(to.Kind, n), nil
}

// Literal reads default text for a pin of type t. When from is concrete the
// text was authored for from and is converted; otherwise it is read as t.
func (r *Registry) Literal(t Type, text string, from Type) (Value, error) {
	if from.HasWildcard() || from.Equal(t) {
		return r.ParseLiteral(t, text)
	}
	v, err := r.ParseLiteral(from, text)
	if err != nil {
		return Value{}, err
	}
	return r.ConvertValue(v, from, t)
}

// ConvertLiteral converts default text authored for from into text for to.
func (r *Registry) ConvertLiteral(text string, from, to Type) (string, error) {
	v, err := r.Literal(to, text, from)
	if err != nil {
		return "", err
	}
	return FormatLiteral(v), nil
}
