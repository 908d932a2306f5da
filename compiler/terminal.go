package compiler

import (
	"fmt"

	"github.com/chazu/graphc/diag"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/pkg/bytecode"
	"github.com/chazu/graphc/types"
)

// TerminalKind is the storage class of a terminal.
type TerminalKind uint8

const (
	TermParam TerminalKind = iota
	TermResult
	TermLocal
	TermMember
	TermLiteral
)

var terminalKindNames = [...]string{"param", "result", "local", "member", "literal"}

func (k TerminalKind) String() string {
	if int(k) < len(terminalKindNames) {
		return terminalKindNames[k]
	}
	return fmt.Sprintf("TerminalKind(%d)", k)
}

// Terminal is a storage location backing a data pin's value.
type Terminal struct {
	Kind  TerminalKind
	Index int
	Type  types.Type
	// Value is the constant of a literal terminal.
	Value types.Value
}

func (t *Terminal) String() string {
	if t.Kind == TermLiteral {
		return fmt.Sprintf("literal %s", types.FormatLiteral(t.Value))
	}
	return fmt.Sprintf("%s%d", t.Kind, t.Index)
}

// Operand returns the operand encoding of t. Literal indices point into
// the constant pool.
func (t *Terminal) Operand() bytecode.Operand {
	classes := [...]bytecode.Class{
		TermParam:   bytecode.ClassParam,
		TermResult:  bytecode.ClassResult,
		TermLocal:   bytecode.ClassLocal,
		TermMember:  bytecode.ClassMember,
		TermLiteral: bytecode.ClassConst,
	}
	return bytecode.Operand{Class: classes[t.Kind], Index: uint16(t.Index)}
}

// Allocator binds data pins to terminals for one unit. Allocation is lazy
// and memoized per pin; directly connected pins share the output's
// terminal, and a Local is never shared by pins that are not connected.
type Allocator struct {
	g     *graph.Graph
	reg   *types.Registry
	diags *diag.List

	pins    map[graph.PinID]*Terminal
	sources map[graph.PinID]*Terminal
	vars    map[string]*Terminal
	results map[string]*Terminal
	members map[string]*Terminal
	values  map[graph.PinID]types.Value // parsed default text

	Params    []bytecode.Slot
	Results   []bytecode.Slot
	Locals    []bytecode.Slot
	Members   []string
	Constants []types.Value
}

// NewAllocator prepares allocation over g.
func NewAllocator(g *graph.Graph, reg *types.Registry, diags *diag.List) *Allocator {
	return &Allocator{
		g:       g,
		reg:     reg,
		diags:   diags,
		pins:    make(map[graph.PinID]*Terminal),
		sources: make(map[graph.PinID]*Terminal),
		vars:    make(map[string]*Terminal),
		results: make(map[string]*Terminal),
		members: make(map[string]*Terminal),
		values:  make(map[graph.PinID]types.Value),
	}
}

// Output returns the terminal an output pin writes: a Parameter for entry
// params, a Literal for literal nodes, a Member for get_member, and a
// fresh Local otherwise.
func (a *Allocator) Output(p *graph.Pin) *Terminal {
	if t, ok := a.pins[p.ID]; ok {
		return t
	}
	var t *Terminal
	n := a.g.Node(p.Node)
	switch {
	case p.Role == graph.RoleParam:
		t = &Terminal{Kind: TermParam, Index: len(a.Params), Type: p.Type}
		a.Params = append(a.Params, bytecode.Slot{Name: p.Name, Type: p.Type.String()})
	case n != nil && n.Kind == graph.KindLiteral:
		t = a.literal(p.Type, a.defaultValue(p))
	case n != nil && n.Kind == graph.KindGetMember:
		t = a.Member(n.Config[graph.ConfigMember], p.Type)
	default:
		t = a.local(string(p.ID), p.Type)
	}
	a.pins[p.ID] = t
	return t
}

// Source returns the terminal an input pin reads. A connected input reads
// the connected output, converting literals to the input's type; an
// unconnected input reads its default text or the zero value.
func (a *Allocator) Source(p *graph.Pin) *Terminal {
	if t, ok := a.sources[p.ID]; ok {
		return t
	}
	var t *Terminal
	if linked := a.g.Linked(p); len(linked) > 0 {
		src := linked[0]
		if n := a.g.Node(src.Node); n != nil && n.Kind == graph.KindLiteral && !src.Type.Equal(p.Type) {
			v, err := a.reg.ConvertValue(a.defaultValue(src), src.Type, p.Type)
			if err != nil {
				a.diags.Warnf(string(p.Node), "input %s: %v; using zero value", p.Name, err)
				v = a.reg.Zero(p.Type)
			}
			t = a.literal(p.Type, v)
		} else {
			t = a.Output(src)
		}
	} else {
		t = a.literal(p.Type, a.defaultValue(p))
	}
	a.sources[p.ID] = t
	return t
}

// defaultValue reads p's default text, degrading to the zero value with a
// ConversionWarning. Each pin is parsed once, so a literal feeding several
// inputs warns once.
func (a *Allocator) defaultValue(p *graph.Pin) types.Value {
	if v, ok := a.values[p.ID]; ok {
		return v
	}
	v := a.reg.Zero(p.Type)
	if p.HasDefault {
		parsed, err := a.reg.Literal(p.Type, p.Default, p.DefaultType)
		if err != nil {
			a.diags.Warnf(string(p.Node), "default of %s: %v; using zero value", p.Name, err)
		} else {
			v = parsed
		}
	}
	a.values[p.ID] = v
	return v
}

// Result returns the result slot a return input writes. Return nodes share
// result slots by pin name.
func (a *Allocator) Result(p *graph.Pin) *Terminal {
	if t, ok := a.results[p.Name]; ok {
		return t
	}
	t := &Terminal{Kind: TermResult, Index: len(a.Results), Type: p.Type}
	a.Results = append(a.Results, bytecode.Slot{Name: p.Name, Type: p.Type.String()})
	a.results[p.Name] = t
	return t
}

// Var returns the Local owned by a named variable.
func (a *Allocator) Var(name string, t types.Type) *Terminal {
	if v, ok := a.vars[name]; ok {
		return v
	}
	v := a.local("var "+name, t)
	a.vars[name] = v
	return v
}

// Member returns the terminal of a member slot.
func (a *Allocator) Member(name string, t types.Type) *Terminal {
	if m, ok := a.members[name]; ok {
		return m
	}
	m := &Terminal{Kind: TermMember, Index: len(a.Members), Type: t}
	a.Members = append(a.Members, name)
	a.members[name] = m
	return m
}

// allocMark is a snapshot of the allocation table lengths.
type allocMark struct {
	params, results, locals, members, constants int
}

func (a *Allocator) mark() allocMark {
	return allocMark{len(a.Params), len(a.Results), len(a.Locals), len(a.Members), len(a.Constants)}
}

// rollback releases every terminal allocated since m, so a failed handler
// leaves no dead slots behind.
func (a *Allocator) rollback(m allocMark) {
	stale := func(t *Terminal) bool {
		switch t.Kind {
		case TermParam:
			return t.Index >= m.params
		case TermResult:
			return t.Index >= m.results
		case TermLocal:
			return t.Index >= m.locals
		case TermMember:
			return t.Index >= m.members
		default:
			return t.Index >= m.constants
		}
	}
	for _, memo := range []map[graph.PinID]*Terminal{a.pins, a.sources} {
		for id, t := range memo {
			if stale(t) {
				delete(memo, id)
			}
		}
	}
	for _, memo := range []map[string]*Terminal{a.vars, a.results, a.members} {
		for name, t := range memo {
			if stale(t) {
				delete(memo, name)
			}
		}
	}
	a.Params = a.Params[:m.params]
	a.Results = a.Results[:m.results]
	a.Locals = a.Locals[:m.locals]
	a.Members = a.Members[:m.members]
	a.Constants = a.Constants[:m.constants]
}

func (a *Allocator) local(name string, t types.Type) *Terminal {
	l := &Terminal{Kind: TermLocal, Index: len(a.Locals), Type: t}
	a.Locals = append(a.Locals, bytecode.Slot{Name: name, Type: t.String()})
	return l
}

// literal interns v in the constant pool.
func (a *Allocator) literal(t types.Type, v types.Value) *Terminal {
	for i, c := range a.Constants {
		if c.Kind == v.Kind && c.Equal(v) {
			return &Terminal{Kind: TermLiteral, Index: i, Type: t, Value: v}
		}
	}
	a.Constants = append(a.Constants, v)
	return &Terminal{Kind: TermLiteral, Index: len(a.Constants) - 1, Type: t, Value: v}
}
