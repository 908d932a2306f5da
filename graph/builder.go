package graph

import (
	"fmt"
	"strings"

	"github.com/chazu/graphc/types"
)

// PinSpec describes a pin for the Builder.
type PinSpec struct {
	Name        string
	Dir         Direction
	Kind        PinKind
	Type        types.Type
	Default     string
	HasDefault  bool
	DefaultType types.Type
	Role        Role
}

// ExecIn is an execution input pin.
func ExecIn(name string) PinSpec { return PinSpec{Name: name, Dir: Input, Kind: Exec} }

// ExecOut is an execution output pin.
func ExecOut(name string) PinSpec { return PinSpec{Name: name, Dir: Output, Kind: Exec} }

// In is a data input pin.
func In(name string, t types.Type) PinSpec {
	return PinSpec{Name: name, Dir: Input, Kind: Data, Type: t}
}

// InDefault is a data input pin with literal default text.
func InDefault(name string, t types.Type, text string) PinSpec {
	s := In(name, t)
	s.Default, s.HasDefault = text, true
	return s
}

// Out is a data output pin.
func Out(name string, t types.Type) PinSpec {
	return PinSpec{Name: name, Dir: Output, Kind: Data, Type: t}
}

// Param is an entry output bound to a function parameter.
func Param(name string, t types.Type) PinSpec {
	s := Out(name, t)
	s.Role = RoleParam
	return s
}

// Result is a return input bound to a function result.
func Result(name string, t types.Type) PinSpec {
	s := In(name, t)
	s.Role = RoleResult
	return s
}

// Typed sets the type the default text was authored for.
func (s PinSpec) Typed(t types.Type) PinSpec {
	s.DefaultType = t
	return s
}

// Builder assembles a graph. Pin ids are "<node>.<pin>". The first error
// sticks and is returned by Graph.
type Builder struct {
	g     *Graph
	err   error
	added []NodeID
}

// NewBuilder starts a graph for the named function unit.
func NewBuilder(name string) *Builder {
	return &Builder{g: New(name)}
}

// Extend returns a builder that adds to an existing graph.
func Extend(g *Graph) *Builder {
	return &Builder{g: g}
}

// Added returns the ids of the nodes this builder created, in order.
func (b *Builder) Added() []NodeID {
	return b.added
}

// Err returns the first error the builder recorded.
func (b *Builder) Err() error {
	return b.err
}

// PinRef returns the id the builder assigns to pin name on node.
func PinRef(node NodeID, name string) PinID {
	return PinID(string(node) + "." + name)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Node adds a node of any kind.
func (b *Builder) Node(id string, kind Kind, config map[string]string, pins ...PinSpec) *Builder {
	if b.err != nil {
		return b
	}
	nid := NodeID(id)
	if _, err := b.g.AddNode(nid, kind, config); err != nil {
		b.fail(err)
		return b
	}
	b.added = append(b.added, nid)
	for _, s := range pins {
		_, err := b.g.AddPin(nid, Pin{
			ID:          PinRef(nid, s.Name),
			Name:        s.Name,
			Dir:         s.Dir,
			Kind:        s.Kind,
			Type:        s.Type,
			Default:     s.Default,
			HasDefault:  s.HasDefault,
			DefaultType: s.DefaultType,
			Role:        s.Role,
		})
		if err != nil {
			b.fail(err)
			return b
		}
	}
	return b
}

// Entry adds a function entry point with parameter outputs.
func (b *Builder) Entry(id, name string, params ...PinSpec) *Builder {
	pins := append([]PinSpec{ExecOut(PinThen)}, params...)
	return b.Node(id, KindEntry, map[string]string{ConfigName: name}, pins...)
}

// Return adds a return node with result inputs.
func (b *Builder) Return(id string, results ...PinSpec) *Builder {
	pins := append([]PinSpec{ExecIn(PinExec)}, results...)
	return b.Node(id, KindReturn, nil, pins...)
}

// Call adds an impure call node with exec in/then pins.
func (b *Builder) Call(id, function string, pins ...PinSpec) *Builder {
	all := append([]PinSpec{ExecIn(PinExec), ExecOut(PinThen)}, pins...)
	return b.Node(id, KindCall, map[string]string{ConfigFunction: function}, all...)
}

// PureCall adds a call node without exec pins.
func (b *Builder) PureCall(id, function string, pins ...PinSpec) *Builder {
	return b.Node(id, KindCall, map[string]string{ConfigFunction: function}, pins...)
}

// Literal adds a pure node producing a constant.
func (b *Builder) Literal(id string, t types.Type, text string) *Builder {
	out := Out(PinValue, t)
	out.Default, out.HasDefault = text, true
	return b.Node(id, KindLiteral, nil, out)
}

// Branch adds a two-way branch on a bool condition.
func (b *Builder) Branch(id string) *Builder {
	return b.Node(id, KindBranch, nil,
		ExecIn(PinExec), In(PinCondition, types.Bool), ExecOut(PinThen), ExecOut(PinElse))
}

// Sequence adds a node that runs its n outputs in order.
func (b *Builder) Sequence(id string, n int) *Builder {
	pins := []PinSpec{ExecIn(PinExec)}
	for i := 0; i < n; i++ {
		pins = append(pins, ExecOut(fmt.Sprintf("then_%d", i)))
	}
	return b.Node(id, KindSequence, nil, pins...)
}

// GetVar adds a pure read of a function-local variable.
func (b *Builder) GetVar(id, name string, t types.Type) *Builder {
	return b.Node(id, KindGetVar, map[string]string{ConfigVar: name}, Out(PinValue, t))
}

// SetVar adds a write of a function-local variable.
func (b *Builder) SetVar(id, name string, t types.Type) *Builder {
	return b.Node(id, KindSetVar, map[string]string{ConfigVar: name},
		ExecIn(PinExec), ExecOut(PinThen), In(PinValue, t))
}

// GetMember adds a pure read of a member slot.
func (b *Builder) GetMember(id, member string, t types.Type) *Builder {
	return b.Node(id, KindGetMember, map[string]string{ConfigMember: member}, Out(PinValue, t))
}

// SetMember adds a write of a member slot.
func (b *Builder) SetMember(id, member string, t types.Type) *Builder {
	return b.Node(id, KindSetMember, map[string]string{ConfigMember: member},
		ExecIn(PinExec), ExecOut(PinThen), In(PinValue, t))
}

// ForLoop adds a composite counting loop over [first, last].
func (b *Builder) ForLoop(id string) *Builder {
	return b.Node(id, KindForLoop, nil,
		ExecIn(PinExec),
		InDefault(PinFirst, types.Int32, "0"),
		InDefault(PinLast, types.Int32, "0"),
		ExecOut(PinBody),
		Out(PinIndex, types.Int32),
		ExecOut(PinCompleted))
}

// WhileLoop adds a composite loop running while condition holds.
func (b *Builder) WhileLoop(id string) *Builder {
	return b.Node(id, KindWhileLoop, nil,
		ExecIn(PinExec), In(PinCondition, types.Bool), ExecOut(PinBody), ExecOut(PinCompleted))
}

// ForEach adds a composite loop over the elements of an array.
func (b *Builder) ForEach(id string) *Builder {
	return b.Node(id, KindForEach, nil,
		ExecIn(PinExec),
		In(PinArray, types.ArrayOf(types.Wildcard)),
		ExecOut(PinBody),
		Out(PinElement, types.Wildcard),
		Out(PinIndex, types.Int32),
		ExecOut(PinCompleted))
}

// Macro adds a composite node inlining the named macro graph.
func (b *Builder) Macro(id, macro string, pins ...PinSpec) *Builder {
	return b.Node(id, KindMacro, map[string]string{ConfigMacro: macro}, pins...)
}

// Construct adds a composite object construction; data inputs besides the
// exec pins become property assignments.
func (b *Builder) Construct(id, class string, pins ...PinSpec) *Builder {
	all := append([]PinSpec{ExecIn(PinExec), ExecOut(PinThen), Out(PinResult, types.ObjectOf(class))}, pins...)
	return b.Node(id, KindConstruct, map[string]string{ConfigClass: class}, all...)
}

// Link connects two pins named "node.pin".
func (b *Builder) Link(from, to string) *Builder {
	if b.err != nil {
		return b
	}
	if !strings.Contains(from, ".") || !strings.Contains(to, ".") {
		b.fail(fmt.Errorf("graph: link %q -> %q: want node.pin references", from, to))
		return b
	}
	if err := b.g.Connect(PinID(from), PinID(to)); err != nil {
		b.fail(err)
	}
	return b
}

// Graph returns the built graph or the first error.
func (b *Builder) Graph() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.g, nil
}

// MustGraph is Graph for fixtures known to be valid.
func (b *Builder) MustGraph() *Graph {
	g, err := b.Graph()
	if err != nil {
		panic(err)
	}
	return g
}
