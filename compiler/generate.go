package compiler

import (
	"fmt"

	"github.com/chazu/graphc/diag"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/linearize"
	"github.com/chazu/graphc/pkg/bytecode"
	"github.com/chazu/graphc/symbols"
)

// Handler emits the statements of one node. Handlers for impure nodes end
// by transferring control, usually with Context.Continue. A returned
// error discards what the handler emitted; the node compiles to a Nop.
type Handler func(c *Context, n *graph.Node) error

// Generator turns schedules into statements by dispatching each node to
// the handler registered for its kind. It is read-only once configured.
type Generator struct {
	handlers map[graph.Kind]Handler
}

// NewGenerator returns a generator with handlers for every primitive kind.
func NewGenerator() *Generator {
	g := &Generator{handlers: make(map[graph.Kind]Handler)}
	g.Register(graph.KindEntry, genEntry)
	g.Register(graph.KindReturn, genReturn)
	g.Register(graph.KindCall, genCall)
	g.Register(graph.KindLiteral, genNothing)
	g.Register(graph.KindGetMember, genNothing)
	g.Register(graph.KindBranch, genBranch)
	g.Register(graph.KindSequence, genSequence)
	g.Register(graph.KindGetVar, genGetVar)
	g.Register(graph.KindSetVar, genSetVar)
	g.Register(graph.KindSetMember, genSetMember)
	g.Register(graph.KindConvert, genConvert)
	g.Register(graph.KindNoop, genNoop)
	return g
}

// Register installs the handler for kind, replacing any existing one.
func (g *Generator) Register(kind graph.Kind, h Handler) {
	g.handlers[kind] = h
}

// Handler returns the handler registered for kind.
func (g *Generator) Handler(kind graph.Kind) (Handler, bool) {
	h, ok := g.handlers[kind]
	return h, ok
}

// Context is the per-unit state handlers emit into.
type Context struct {
	Graph     *graph.Graph
	Alloc     *Allocator
	Functions *symbols.Registry
	Diags     *diag.List

	node     graph.NodeID
	buf      []Statement
	labels   map[graph.NodeID]bytecode.Label
	next     bytecode.Label
	epilogue bytecode.Label
}

// Emit appends s to the current node's statements.
func (c *Context) Emit(s Statement) {
	s.Node = c.node
	c.buf = append(c.buf, s)
}

// LabelOf returns the label placed before node's code.
func (c *Context) LabelOf(node graph.NodeID) bytecode.Label {
	if l, ok := c.labels[node]; ok {
		return l
	}
	l := c.newLabel()
	c.labels[node] = l
	return l
}

func (c *Context) newLabel() bytecode.Label {
	l := c.next
	c.next++
	return l
}

// Epilogue returns the label of the shared chain end, which resumes the
// innermost pushed continuation or returns.
func (c *Context) Epilogue() bytecode.Label { return c.epilogue }

// Target returns where the exec output p leads: the label of the node it
// is connected to, or the epilogue when it is unconnected.
func (c *Context) Target(p *graph.Pin) bytecode.Label {
	if p != nil {
		for _, q := range c.Graph.Linked(p) {
			return c.LabelOf(q.Node)
		}
	}
	return c.epilogue
}

// Goto emits an unconditional jump.
func (c *Context) Goto(l bytecode.Label) {
	c.Emit(Statement{Kind: StmtJump, Target: l})
}

// Continue jumps to the node n's first exec output leads to.
func (c *Context) Continue(n *graph.Node) {
	var first *graph.Pin
	if outs := c.Graph.PinsOf(n, graph.Output, graph.Exec); len(outs) > 0 {
		first = outs[0]
	}
	c.Goto(c.Target(first))
}

// RequirePin returns n's pin called name.
func (c *Context) RequirePin(n *graph.Node, name string) (*graph.Pin, error) {
	if p := c.Graph.FindPin(n.ID, name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%s node has no %s pin", n.Kind, name)
}

// Code is the generator's output for one unit.
type Code struct {
	Statements []Statement
	Entries    []bytecode.Entry
}

// Generate emits the statements for every schedule, followed by the shared
// epilogue. Jumps to the immediately following label are removed, and the
// epilogue is dropped when nothing reaches it.
func (gen *Generator) Generate(g *graph.Graph, scheds []*linearize.Schedule, alloc *Allocator, fns *symbols.Registry, diags *diag.List) *Code {
	c := &Context{
		Graph:     g,
		Alloc:     alloc,
		Functions: fns,
		Diags:     diags,
		labels:    make(map[graph.NodeID]bytecode.Label),
	}
	c.epilogue = c.newLabel()

	code := &Code{}
	var out []Statement
	labeled := make(map[graph.NodeID]bool)
	for _, s := range scheds {
		code.Entries = append(code.Entries, c.entry(s.Entry))
		for _, st := range s.Steps {
			if st.Join {
				continue
			}
			anchor := st.Node
			if st.Pure {
				anchor = st.Anchor
			}
			if !labeled[anchor] {
				labeled[anchor] = true
				out = append(out, Statement{Kind: StmtLabel, Target: c.LabelOf(anchor)})
			}
			out = append(out, gen.node(c, st.Node)...)
		}
	}
	out = append(out,
		Statement{Kind: StmtLabel, Target: c.epilogue},
		Statement{Kind: StmtPopFlow})

	out = removeFallthroughJumps(out)
	code.Statements = dropEpilogue(out, c.epilogue)
	return code
}

func (c *Context) entry(id graph.NodeID) bytecode.Entry {
	n := c.Graph.Node(id)
	e := bytecode.Entry{Name: string(id), Node: string(id), Label: c.LabelOf(id)}
	if name := n.Config[graph.ConfigName]; name != "" {
		e.Name = name
	}
	for _, p := range c.Graph.PinsOf(n, graph.Output, graph.Data) {
		if p.Role == graph.RoleParam {
			e.Params = append(e.Params, uint16(c.Alloc.Output(p).Index))
		}
	}
	return e
}

// node runs the handler for one node. A failing handler leaves a single
// Nop and releases the terminals it allocated; an impure node still passes
// control to its first exec output.
func (gen *Generator) node(c *Context, id graph.NodeID) []Statement {
	n := c.Graph.Node(id)
	c.node, c.buf = id, nil
	h, ok := gen.handlers[n.Kind]
	m := c.Alloc.mark()
	var err error
	if !ok {
		err = fmt.Errorf("no statement handler for %s nodes", n.Kind)
	} else {
		err = h(c, n)
	}
	if err != nil {
		log.Warningf("%s: node %s: %v", c.Graph.Name(), id, err)
		c.Diags.Errorf(string(id), "%v", err)
		c.Alloc.rollback(m)
		c.buf = nil
		c.Emit(Statement{Kind: StmtNop})
		if !c.Graph.IsPure(n) && n.Kind != graph.KindReturn {
			c.Continue(n)
		}
	}
	return c.buf
}

// removeFallthroughJumps deletes unconditional jumps whose target label
// directly follows them.
func removeFallthroughJumps(in []Statement) []Statement {
	out := make([]Statement, 0, len(in))
	for i, s := range in {
		if s.Kind == StmtJump && labelFollows(in[i+1:], s.Target) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func labelFollows(rest []Statement, l bytecode.Label) bool {
	for _, s := range rest {
		if s.Kind != StmtLabel {
			return false
		}
		if s.Target == l {
			return true
		}
	}
	return false
}

// dropEpilogue removes the trailing epilogue when no jump names it and the
// code before it cannot fall through.
func dropEpilogue(in []Statement, epilogue bytecode.Label) []Statement {
	for _, s := range in {
		if s.IsJump() && s.Target == epilogue {
			return in
		}
	}
	at := -1
	for i, s := range in {
		if s.Kind == StmtLabel && s.Target == epilogue {
			at = i
			break
		}
	}
	if at < 0 {
		return in
	}
	for i := at - 1; i >= 0; i-- {
		if in[i].Kind == StmtLabel {
			continue
		}
		if !in[i].Terminates() {
			return in
		}
		break
	}
	return append(in[:at:at], in[at+2:]...)
}
