package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoCandidates is returned by Resolve when given nothing to resolve.
var ErrNoCandidates = errors.New("types: no candidate types")

// ConflictError reports candidates with no unique common promotion target.
type ConflictError struct {
	Candidates []Type
}

func (e *ConflictError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.String()
	}
	return fmt.Sprintf("types: conflicting types %s", strings.Join(names, ", "))
}

// Table is a directed promotion graph between scalar kinds. Object and
// container promotion is derived from the class hierarchy and element
// types rather than stored as edges.
type Table struct {
	edges map[Kind][]Kind
}

// DefaultTable returns narrow-integer → wide-integer → floating-point
// and small-vector → large-vector promotions.
func DefaultTable() *Table {
	t := &Table{edges: make(map[Kind][]Kind)}
	t.Add(KindByte, KindInt32)
	t.Add(KindInt32, KindInt64)
	t.Add(KindInt32, KindFloat)
	t.Add(KindInt64, KindDouble)
	t.Add(KindFloat, KindDouble)
	t.Add(KindVector2, KindVector)
	t.Add(KindName, KindString)
	return t
}

// Add registers a direct promotion from one scalar kind to another.
func (t *Table) Add(from, to Kind) {
	for _, k := range t.edges[from] {
		if k == to {
			return
		}
	}
	t.edges[from] = append(t.edges[from], to)
}

// AddPromotion registers an extra scalar promotion. The table must stay
// acyclic so that Resolve has a unique least bound to find.
func (r *Registry) AddPromotion(from, to Type) error {
	if !isScalar(from.Kind) || !isScalar(to.Kind) {
		return fmt.Errorf("types: promotion %s -> %s: only scalar kinds take table edges", from, to)
	}
	if from.Kind == to.Kind {
		return fmt.Errorf("types: promotion %s -> %s: self edge", from, to)
	}
	for _, k := range r.table.reachable(to.Kind) {
		if k == from.Kind {
			return fmt.Errorf("types: promotion %s -> %s would create a cycle", from, to)
		}
	}
	r.table.Add(from.Kind, to.Kind)
	return nil
}

func isScalar(k Kind) bool {
	return k != KindWildcard && k != KindStruct && k != KindObject && !k.IsContainer()
}

// Direct returns the kinds from promotes to in one step.
func (t *Table) Direct(from Kind) []Kind {
	return t.edges[from]
}

// Edges renders every direct promotion as "from -> to", sorted.
func (t *Table) Edges() []string {
	var out []string
	for from, tos := range t.edges {
		for _, to := range tos {
			out = append(out, from.String()+" -> "+to.String())
		}
	}
	sort.Strings(out)
	return out
}

// reachable returns from and every kind reachable from it, breadth first.
func (t *Table) reachable(from Kind) []Kind {
	out := []Kind{from}
	seen := map[Kind]bool{from: true}
	for i := 0; i < len(out); i++ {
		for _, next := range t.edges[out[i]] {
			if !seen[next] {
				seen[next] = true
				out = append(out, next)
			}
		}
	}
	return out
}

// Closure returns t and every type t promotes to, t first.
func (r *Registry) Closure(t Type) []Type {
	switch t.Kind {
	case KindObject:
		var out []Type
		seen := make(map[string]bool)
		for name := t.Name; name != "" && !seen[name]; {
			seen[name] = true
			out = append(out, ObjectOf(name))
			def, ok := r.classes[name]
			if !ok {
				break
			}
			name = def.Parent
		}
		return out
	case KindArray, KindSet:
		var out []Type
		for _, e := range r.Closure(*t.Elem) {
			if t.Kind == KindArray {
				out = append(out, ArrayOf(e))
			} else {
				out = append(out, SetOf(e))
			}
		}
		return out
	case KindMap:
		var out []Type
		for _, e := range r.Closure(*t.Elem) {
			out = append(out, MapOf(*t.Key, e))
		}
		return out
	case KindStruct, KindWildcard:
		return []Type{t}
	}
	kinds := r.table.reachable(t.Kind)
	out := make([]Type, len(kinds))
	for i, k := range kinds {
		out[i] = Type{Kind: k}
	}
	return out
}

// PromotesTo reports whether a value of from may be used where to is
// expected, including from == to.
func (r *Registry) PromotesTo(from, to Type) bool {
	for _, c := range r.Closure(from) {
		if c.Equal(to) {
			return true
		}
	}
	return false
}

// Resolve picks the concrete type for a wildcard connected to candidates.
// Identical candidates resolve to themselves. Otherwise the result is the
// unique least type every candidate promotes to.
func (r *Registry) Resolve(candidates []Type) (Type, error) {
	uniq := dedupe(candidates)
	switch len(uniq) {
	case 0:
		return Type{}, ErrNoCandidates
	case 1:
		return uniq[0], nil
	}

	common := r.Closure(uniq[0])
	for _, c := range uniq[1:] {
		common = intersect(common, r.Closure(c))
		if len(common) == 0 {
			return Type{}, &ConflictError{Candidates: uniq}
		}
	}

	var least []Type
	for _, u := range common {
		ok := true
		for _, v := range common {
			if !r.PromotesTo(u, v) {
				ok = false
				break
			}
		}
		if ok {
			least = append(least, u)
		}
	}
	if len(least) != 1 {
		return Type{}, &ConflictError{Candidates: uniq}
	}
	return least[0], nil
}

// Fallback is the type substituted into a wildcard whose resolution failed:
// the smallest numeric type. Container shapes become containers of it.
func (r *Registry) Fallback() Type {
	return Byte
}

func dedupe(ts []Type) []Type {
	var out []Type
	for _, t := range ts {
		dup := false
		for _, o := range out {
			if o.Equal(t) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}

func intersect(a, b []Type) []Type {
	var out []Type
	for _, x := range a {
		for _, y := range b {
			if x.Equal(y) {
				out = append(out, x)
				break
			}
		}
	}
	return out
}
