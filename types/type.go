// Package types describes pin types, the promotion table used to resolve
// wildcard pins, and the literal text format for default values.
package types

import (
	"fmt"
	"strings"
)

// Kind is the tag of a type descriptor.
type Kind uint8

const (
	KindWildcard Kind = iota // pending resolution
	KindBool
	KindByte
	KindInt32
	KindInt64
	KindFloat
	KindDouble
	KindString
	KindName
	KindVector2
	KindVector
	KindStruct // Name holds the struct name
	KindObject // Name holds the class name
	KindArray  // Elem
	KindSet    // Elem
	KindMap    // Key, Elem
)

var kindNames = map[Kind]string{
	KindWildcard: "*",
	KindBool:     "bool",
	KindByte:     "byte",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindFloat:    "float",
	KindDouble:   "double",
	KindString:   "string",
	KindName:     "name",
	KindVector2:  "vector2",
	KindVector:   "vector",
	KindStruct:   "struct",
	KindObject:   "object",
	KindArray:    "array",
	KindSet:      "set",
	KindMap:      "map",
}

// String returns the descriptor keyword for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsNumeric reports whether values of the kind are integers or floats.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindByte, KindInt32, KindInt64, KindFloat, KindDouble:
		return true
	}
	return false
}

// IsInteger reports whether the kind is an integer kind.
func (k Kind) IsInteger() bool {
	return k == KindByte || k == KindInt32 || k == KindInt64
}

// IsFloat reports whether the kind is a floating-point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat || k == KindDouble
}

// IsContainer reports whether the kind nests other descriptors.
func (k Kind) IsContainer() bool {
	return k == KindArray || k == KindSet || k == KindMap
}

// Type is a pin type descriptor. Containers carry their nested descriptors:
// arrays and sets use Elem, maps use Key and Elem.
type Type struct {
	Kind Kind
	Name string
	Key  *Type
	Elem *Type
}

// Predeclared descriptors.
var (
	Wildcard = Type{Kind: KindWildcard}
	Bool     = Type{Kind: KindBool}
	Byte     = Type{Kind: KindByte}
	Int32    = Type{Kind: KindInt32}
	Int64    = Type{Kind: KindInt64}
	Float    = Type{Kind: KindFloat}
	Double   = Type{Kind: KindDouble}
	String   = Type{Kind: KindString}
	Name     = Type{Kind: KindName}
	Vector2  = Type{Kind: KindVector2}
	Vector   = Type{Kind: KindVector}
)

// ArrayOf returns array<elem>.
func ArrayOf(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

// SetOf returns set<elem>.
func SetOf(elem Type) Type {
	return Type{Kind: KindSet, Elem: &elem}
}

// MapOf returns map<key,elem>.
func MapOf(key, elem Type) Type {
	return Type{Kind: KindMap, Key: &key, Elem: &elem}
}

// StructOf returns struct<name>.
func StructOf(name string) Type {
	return Type{Kind: KindStruct, Name: name}
}

// ObjectOf returns object<class>.
func ObjectOf(class string) Type {
	return Type{Kind: KindObject, Name: class}
}

// IsWildcard reports whether t itself is the wildcard marker.
func (t Type) IsWildcard() bool {
	return t.Kind == KindWildcard
}

// HasWildcard reports whether t or any nested descriptor is a wildcard.
func (t Type) HasWildcard() bool {
	if t.Kind == KindWildcard {
		return true
	}
	if t.Key != nil && t.Key.HasWildcard() {
		return true
	}
	return t.Elem != nil && t.Elem.HasWildcard()
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Name != o.Name {
		return false
	}
	if !equalPtr(t.Key, o.Key) {
		return false
	}
	return equalPtr(t.Elem, o.Elem)
}

func equalPtr(a, b *Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// String renders the descriptor in the same syntax Parse accepts.
func (t Type) String() string {
	switch t.Kind {
	case KindStruct, KindObject:
		return t.Kind.String() + "<" + t.Name + ">"
	case KindArray, KindSet:
		return t.Kind.String() + "<" + elemString(t.Elem) + ">"
	case KindMap:
		return "map<" + elemString(t.Key) + "," + elemString(t.Elem) + ">"
	}
	return t.Kind.String()
}

func elemString(t *Type) string {
	if t == nil {
		return "*"
	}
	return t.String()
}

// Parse reads a descriptor such as "int32", "array<float>",
// "map<name,vector>", "object<Actor>" or "*".
func Parse(s string) (Type, error) {
	p := &typeParser{src: strings.TrimSpace(s)}
	t, err := p.parse()
	if err != nil {
		return Type{}, err
	}
	if p.pos != len(p.src) {
		return Type{}, fmt.Errorf("types: trailing input in %q at %d", s, p.pos)
	}
	return t, nil
}

// MustParse is Parse for descriptors known to be valid.
func MustParse(s string) Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) word() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '<' || c == '>' || c == ',' || c == ' ' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("types: expected %q at %d in %q", c, p.pos, p.src)
	}
	p.pos++
	return nil
}

func (p *typeParser) parse() (Type, error) {
	w := p.word()
	switch w {
	case "":
		return Type{}, fmt.Errorf("types: empty descriptor in %q", p.src)
	case "*":
		return Wildcard, nil
	case "array", "set":
		if err := p.expect('<'); err != nil {
			return Type{}, err
		}
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect('>'); err != nil {
			return Type{}, err
		}
		if w == "array" {
			return ArrayOf(elem), nil
		}
		return SetOf(elem), nil
	case "map":
		if err := p.expect('<'); err != nil {
			return Type{}, err
		}
		key, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(','); err != nil {
			return Type{}, err
		}
		elem, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect('>'); err != nil {
			return Type{}, err
		}
		return MapOf(key, elem), nil
	case "struct", "object":
		if err := p.expect('<'); err != nil {
			return Type{}, err
		}
		name := p.word()
		if name == "" {
			return Type{}, fmt.Errorf("types: missing %s name in %q", w, p.src)
		}
		if err := p.expect('>'); err != nil {
			return Type{}, err
		}
		if w == "struct" {
			return StructOf(name), nil
		}
		return ObjectOf(name), nil
	}
	for k, name := range kindNames {
		if name == w && !k.IsContainer() && k != KindStruct && k != KindObject {
			return Type{Kind: k}, nil
		}
	}
	return Type{}, fmt.Errorf("types: unknown type %q", w)
}

// Match binds the wildcard hole of shape against a concrete type. It
// returns the hole's type and true when shape and concrete agree everywhere
// outside the hole. Every wildcard in shape names the same hole.
func Match(shape, concrete Type) (Type, bool) {
	var hole *Type
	if !matchInto(shape, concrete, &hole) || hole == nil {
		return Type{}, false
	}
	return *hole, true
}

func matchInto(shape, concrete Type, hole **Type) bool {
	if shape.Kind == KindWildcard {
		if concrete.HasWildcard() {
			return false
		}
		if *hole != nil {
			return (*hole).Equal(concrete)
		}
		c := concrete
		*hole = &c
		return true
	}
	if shape.Kind != concrete.Kind || shape.Name != concrete.Name {
		return false
	}
	if shape.Key != nil {
		if concrete.Key == nil || !matchInto(*shape.Key, *concrete.Key, hole) {
			return false
		}
	}
	if shape.Elem != nil {
		if concrete.Elem == nil || !matchInto(*shape.Elem, *concrete.Elem, hole) {
			return false
		}
	}
	return true
}

// Substitute replaces every wildcard in shape with hole.
func Substitute(shape, hole Type) Type {
	switch {
	case shape.Kind == KindWildcard:
		return hole
	case shape.Kind == KindMap:
		return MapOf(Substitute(*shape.Key, hole), Substitute(*shape.Elem, hole))
	case shape.Kind == KindArray:
		return ArrayOf(Substitute(*shape.Elem, hole))
	case shape.Kind == KindSet:
		return SetOf(Substitute(*shape.Elem, hole))
	}
	return shape
}
