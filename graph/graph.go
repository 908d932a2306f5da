// Package graph is the node graph the compiler consumes: nodes owning typed
// pins, pins connected to pins by id. The Graph owns both in arenas indexed
// by id, so connections never hold pointers.
package graph

import (
	"fmt"

	"github.com/chazu/graphc/types"
)

// NodeID identifies a node within its graph.
type NodeID string

// PinID identifies a pin within its graph.
type PinID string

// Direction is the flow direction of a pin.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "out"
	}
	return "in"
}

// PinKind separates control flow pins from value pins.
type PinKind uint8

const (
	Data PinKind = iota
	Exec
)

func (k PinKind) String() string {
	if k == Exec {
		return "exec"
	}
	return "data"
}

// Role marks pins that form a function's signature.
type Role uint8

const (
	RoleNone Role = iota
	RoleParam
	RoleResult
)

func (r Role) String() string {
	switch r {
	case RoleParam:
		return "param"
	case RoleResult:
		return "result"
	}
	return ""
}

// Pin is a typed port on a node.
type Pin struct {
	ID   PinID
	Node NodeID
	Name string
	Dir  Direction
	Kind PinKind
	Type types.Type

	// Default is the literal text used when the pin is unconnected.
	Default    string
	HasDefault bool
	// DefaultType is the type Default was written for. The zero value
	// (wildcard) means Default is read as the pin's own type.
	DefaultType types.Type

	Role  Role
	Links []PinID
}

// IsExec reports whether the pin carries control flow.
func (p *Pin) IsExec() bool { return p.Kind == Exec }

// Node is a unit of computation.
type Node struct {
	ID     NodeID
	Kind   Kind
	Config map[string]string
	Pins   []PinID
}

// Graph owns nodes and pins. Removed nodes leave a nil slot in the arena
// so that iteration order stays stable.
type Graph struct {
	name      string
	nodes     []*Node
	pins      []*Pin
	nodeIndex map[NodeID]int
	pinIndex  map[PinID]int
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:      name,
		nodeIndex: make(map[NodeID]int),
		pinIndex:  make(map[PinID]int),
	}
}

// Name returns the graph's function-unit name.
func (g *Graph) Name() string { return g.name }

// AddNode adds a node with no pins.
func (g *Graph) AddNode(id NodeID, kind Kind, config map[string]string) (*Node, error) {
	if _, exists := g.nodeIndex[id]; exists {
		return nil, fmt.Errorf("graph: duplicate node %q", id)
	}
	if config == nil {
		config = make(map[string]string)
	}
	n := &Node{ID: id, Kind: kind, Config: config}
	g.nodeIndex[id] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return n, nil
}

// AddPin appends p to the pin list of node. Links on p are ignored; use
// Connect.
func (g *Graph) AddPin(node NodeID, p Pin) (*Pin, error) {
	n := g.Node(node)
	if n == nil {
		return nil, fmt.Errorf("graph: pin %q on unknown node %q", p.ID, node)
	}
	if _, exists := g.pinIndex[p.ID]; exists {
		return nil, fmt.Errorf("graph: duplicate pin %q", p.ID)
	}
	p.Node = node
	p.Links = nil
	pin := &p
	g.pinIndex[p.ID] = len(g.pins)
	g.pins = append(g.pins, pin)
	n.Pins = append(n.Pins, p.ID)
	return pin, nil
}

// Node looks up a node by id.
func (g *Graph) Node(id NodeID) *Node {
	i, ok := g.nodeIndex[id]
	if !ok {
		return nil
	}
	return g.nodes[i]
}

// Pin looks up a pin by id.
func (g *Graph) Pin(id PinID) *Pin {
	i, ok := g.pinIndex[id]
	if !ok {
		return nil
	}
	return g.pins[i]
}

// Nodes returns live nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeIndex))
	for _, n := range g.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodeIndex) }

// Pins returns the pins of n in declaration order.
func (g *Graph) Pins(n *Node) []*Pin {
	out := make([]*Pin, 0, len(n.Pins))
	for _, id := range n.Pins {
		if p := g.Pin(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// PinsOf returns the pins of n with the given direction and kind.
func (g *Graph) PinsOf(n *Node, dir Direction, kind PinKind) []*Pin {
	var out []*Pin
	for _, p := range g.Pins(n) {
		if p.Dir == dir && p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// FindPin returns the pin of node called name, or nil.
func (g *Graph) FindPin(node NodeID, name string) *Pin {
	n := g.Node(node)
	if n == nil {
		return nil
	}
	for _, id := range n.Pins {
		if p := g.Pin(id); p != nil && p.Name == name {
			return p
		}
	}
	return nil
}

// Linked returns the pins p is connected to, in connection order.
func (g *Graph) Linked(p *Pin) []*Pin {
	out := make([]*Pin, 0, len(p.Links))
	for _, id := range p.Links {
		if q := g.Pin(id); q != nil {
			out = append(out, q)
		}
	}
	return out
}

// IsPure reports whether n has no execution pins.
func (g *Graph) IsPure(n *Node) bool {
	for _, p := range g.Pins(n) {
		if p.Kind == Exec {
			return false
		}
	}
	return true
}

// IsEntry reports whether n starts an execution chain: it has exec outputs
// but no exec inputs.
func (g *Graph) IsEntry(n *Node) bool {
	return len(g.PinsOf(n, Input, Exec)) == 0 && len(g.PinsOf(n, Output, Exec)) > 0
}

// Entries returns entry nodes in graph order.
func (g *Graph) Entries() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if g.IsEntry(n) {
			out = append(out, n)
		}
	}
	return out
}

// Connect links an output pin and an input pin of the same kind.
func (g *Graph) Connect(a, b PinID) error {
	pa, pb := g.Pin(a), g.Pin(b)
	if pa == nil || pb == nil {
		return fmt.Errorf("graph: connect %q to %q: unknown pin", a, b)
	}
	if pa.Dir == pb.Dir {
		return fmt.Errorf("graph: connect %q to %q: both pins are %s", a, b, pa.Dir)
	}
	if pa.Kind != pb.Kind {
		return fmt.Errorf("graph: connect %q to %q: %s pin to %s pin", a, b, pa.Kind, pb.Kind)
	}
	if hasLink(pa, b) {
		return nil
	}
	pa.Links = append(pa.Links, b)
	pb.Links = append(pb.Links, a)
	return nil
}

// Disconnect removes the connection between a and b, if any.
func (g *Graph) Disconnect(a, b PinID) {
	if pa := g.Pin(a); pa != nil {
		pa.Links = removeLink(pa.Links, b)
	}
	if pb := g.Pin(b); pb != nil {
		pb.Links = removeLink(pb.Links, a)
	}
}

// ReplaceLink moves the connection external↔old to external↔replacement.
// The new id takes old's position in external's connection list.
func (g *Graph) ReplaceLink(external, old, replacement PinID) error {
	pe, po, pr := g.Pin(external), g.Pin(old), g.Pin(replacement)
	if pe == nil || po == nil || pr == nil {
		return fmt.Errorf("graph: replace link %q: %q -> %q: unknown pin", external, old, replacement)
	}
	if pr.Dir == pe.Dir || pr.Kind != pe.Kind {
		return fmt.Errorf("graph: replace link %q: %q is not a compatible endpoint", external, replacement)
	}
	idx := -1
	for i, id := range pe.Links {
		if id == old {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("graph: replace link: %q is not connected to %q", external, old)
	}
	po.Links = removeLink(po.Links, external)
	if hasLink(pe, replacement) {
		pe.Links = append(pe.Links[:idx], pe.Links[idx+1:]...)
		return nil
	}
	pe.Links[idx] = replacement
	pr.Links = append(pr.Links, external)
	return nil
}

// RemoveNode disconnects and deletes a node and its pins.
func (g *Graph) RemoveNode(id NodeID) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return
	}
	n := g.nodes[i]
	for _, pid := range n.Pins {
		p := g.Pin(pid)
		if p == nil {
			continue
		}
		for _, other := range append([]PinID(nil), p.Links...) {
			g.Disconnect(pid, other)
		}
		g.pins[g.pinIndex[pid]] = nil
		delete(g.pinIndex, pid)
	}
	g.nodes[i] = nil
	delete(g.nodeIndex, id)
}

// Retain removes every node not in keep.
func (g *Graph) Retain(keep map[NodeID]bool) {
	for _, n := range g.Nodes() {
		if !keep[n.ID] {
			g.RemoveNode(n.ID)
		}
	}
}

// Clone returns a deep copy with compacted arenas.
func (g *Graph) Clone() *Graph {
	c := New(g.name)
	for _, n := range g.Nodes() {
		cfg := make(map[string]string, len(n.Config))
		for k, v := range n.Config {
			cfg[k] = v
		}
		cn := &Node{ID: n.ID, Kind: n.Kind, Config: cfg, Pins: append([]PinID(nil), n.Pins...)}
		c.nodeIndex[n.ID] = len(c.nodes)
		c.nodes = append(c.nodes, cn)
		for _, p := range g.Pins(n) {
			cp := *p
			cp.Links = append([]PinID(nil), p.Links...)
			c.pinIndex[p.ID] = len(c.pins)
			c.pins = append(c.pins, &cp)
		}
	}
	return c
}

func hasLink(p *Pin, id PinID) bool {
	for _, l := range p.Links {
		if l == id {
			return true
		}
	}
	return false
}

func removeLink(links []PinID, id PinID) []PinID {
	for i, l := range links {
		if l == id {
			return append(links[:i], links[i+1:]...)
		}
	}
	return links
}
