package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Field is a named member of a struct type.
type Field struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// StructDef describes an aggregate type.
type StructDef struct {
	Name   string
	Fields []Field
}

// ClassDef describes an object class. Parent is empty for root classes.
type ClassDef struct {
	Name   string
	Parent string
}

// Registry holds the known aggregate and object types together with the
// promotion table. It is populated before compilation starts and only read
// afterwards, so one Registry may be shared by concurrent compilations.
type Registry struct {
	structs map[string]*StructDef
	classes map[string]*ClassDef
	table   *Table
}

// NewRegistry creates a registry with the default promotion table.
func NewRegistry() *Registry {
	return &Registry{
		structs: make(map[string]*StructDef),
		classes: make(map[string]*ClassDef),
		table:   DefaultTable(),
	}
}

// DefineStruct registers a struct type.
func (r *Registry) DefineStruct(name string, fields ...Field) {
	r.structs[name] = &StructDef{Name: name, Fields: fields}
}

// DefineClass registers an object class with an optional parent.
func (r *Registry) DefineClass(name, parent string) {
	r.classes[name] = &ClassDef{Name: name, Parent: parent}
}

// Struct looks up a struct definition.
func (r *Registry) Struct(name string) (*StructDef, bool) {
	d, ok := r.structs[name]
	return d, ok
}

// Class looks up a class definition.
func (r *Registry) Class(name string) (*ClassDef, bool) {
	d, ok := r.classes[name]
	return d, ok
}

// ClassNames returns the registered class names in sorted order.
func (r *Registry) ClassNames() []string {
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fingerprint digests every definition that can change compiled output:
// struct layouts, the class hierarchy and the promotion table. Registries
// with the same definitions share a fingerprint.
func (r *Registry) Fingerprint() string {
	var b strings.Builder
	structs := make([]string, 0, len(r.structs))
	for n := range r.structs {
		structs = append(structs, n)
	}
	sort.Strings(structs)
	for _, n := range structs {
		fmt.Fprintf(&b, "struct %s", n)
		for _, f := range r.structs[n].Fields {
			fmt.Fprintf(&b, " %s:%s", f.Name, f.Type)
		}
		b.WriteByte('\n')
	}
	for _, n := range r.ClassNames() {
		fmt.Fprintf(&b, "class %s < %s\n", n, r.classes[n].Parent)
	}
	for _, e := range r.table.Edges() {
		fmt.Fprintf(&b, "promote %s\n", e)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Table returns the promotion table.
func (r *Registry) Table() *Table {
	return r.table
}

// IsSubclass reports whether sub equals parent or derives from it.
func (r *Registry) IsSubclass(sub, parent string) bool {
	seen := make(map[string]bool)
	for name := sub; name != ""; {
		if name == parent {
			return true
		}
		if seen[name] {
			return false
		}
		seen[name] = true
		def, ok := r.classes[name]
		if !ok {
			return false
		}
		name = def.Parent
	}
	return false
}

// Check reports descriptors that reference unknown structs or classes.
func (r *Registry) Check(t Type) error {
	switch t.Kind {
	case KindStruct:
		if _, ok := r.structs[t.Name]; !ok {
			return fmt.Errorf("types: unknown struct %q", t.Name)
		}
	case KindObject:
		if _, ok := r.classes[t.Name]; !ok {
			return fmt.Errorf("types: unknown class %q", t.Name)
		}
	}
	if t.Key != nil {
		if err := r.Check(*t.Key); err != nil {
			return err
		}
	}
	if t.Elem != nil {
		return r.Check(*t.Elem)
	}
	return nil
}
