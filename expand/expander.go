// Package expand rewrites composite nodes into subgraphs of primitive
// nodes. Expansion runs as a worklist to a fixed point: a template may
// itself produce composites, which are queued and expanded in turn.
package expand

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/graphc/diag"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/types"
)

var log = commonlog.GetLogger("graphc.expand")

// DefaultMaxExpansions bounds the number of composite nodes expanded for
// one graph.
const DefaultMaxExpansions = 4096

// Template expands one composite node. It adds its subgraph to x.Graph and
// returns the boundary map from the composite's pin names to the template
// pins that take over each connection. A returned error degrades the node
// to a stub and is reported as a ResolutionError.
type Template func(x *Expansion, n *graph.Node) (Boundary, error)

// Boundary maps a composite pin name to the template pins replacing it.
// Inputs map to template inputs (a data input may fan out to several);
// outputs map to template outputs (an exec output may be produced by
// several template exec outputs).
type Boundary map[string][]graph.PinID

// Options configures an Expander.
type Options struct {
	MaxExpansions int
	Macros        *MacroLibrary
	Types         *types.Registry
}

// Expander holds the template table. It is read-only once configured and
// may be shared by concurrent compilations.
type Expander struct {
	opts      Options
	templates map[graph.Kind]Template
}

// New creates an expander with the built-in templates.
func New(opts Options) *Expander {
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = DefaultMaxExpansions
	}
	if opts.Macros == nil {
		opts.Macros = NewMacroLibrary()
	}
	if opts.Types == nil {
		opts.Types = types.NewRegistry()
	}
	e := &Expander{opts: opts, templates: make(map[graph.Kind]Template)}
	e.Register(graph.KindForLoop, forLoop)
	e.Register(graph.KindWhileLoop, whileLoop)
	e.Register(graph.KindForEach, forEach)
	e.Register(graph.KindMacro, e.macro)
	e.Register(graph.KindConstruct, e.construct)
	return e
}

// Register installs the template for kind, replacing any existing one.
func (e *Expander) Register(kind graph.Kind, t Template) {
	e.templates[kind] = t
}

// Expansion is the state of expanding one composite node.
type Expansion struct {
	Graph *graph.Graph
	// Prefix namespaces the ids of the template's nodes.
	Prefix string
	b      *graph.Builder
}

// Build returns the builder templates add their nodes with.
func (x *Expansion) Build() *graph.Builder { return x.b }

// ID returns the namespaced id for a template-local node name.
func (x *Expansion) ID(local string) string { return x.Prefix + local }

// Pin returns the namespaced id of pin name on template-local node.
func (x *Expansion) Pin(local, name string) graph.PinID {
	return graph.PinRef(graph.NodeID(x.ID(local)), name)
}

// Expand rewrites every composite node of g in place. Nodes whose template
// fails become noop stubs and are reported; exceeding the expansion bound
// is a StructuralError.
func (e *Expander) Expand(g *graph.Graph) (diag.List, error) {
	var diags diag.List
	var queue []graph.NodeID
	for _, n := range g.Nodes() {
		if graph.IsComposite(n.Kind) {
			queue = append(queue, n.ID)
		}
	}

	count := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := g.Node(id)
		if n == nil || !graph.IsComposite(n.Kind) {
			continue
		}
		count++
		if count > e.opts.MaxExpansions {
			return diags, &graph.StructuralError{
				Node:    id,
				Message: fmt.Sprintf("expansion did not terminate within %d expansions", e.opts.MaxExpansions),
			}
		}

		added, err := e.expandNode(g, n)
		if err != nil {
			log.Warningf("%s: node %s: %v", g.Name(), id, err)
			diags.Errorf(string(id), "%v", err)
			// The stub's exec input falls through to its first exec output.
			n.Kind = graph.KindNoop
			continue
		}
		for _, nid := range added {
			if m := g.Node(nid); m != nil && graph.IsComposite(m.Kind) {
				queue = append(queue, nid)
			}
		}
	}
	if count > 0 {
		log.Debugf("%s: expanded %d composite nodes", g.Name(), count)
	}
	return diags, nil
}

// expandNode runs the template for n. On failure every node the template
// added is removed again, leaving n untouched.
func (e *Expander) expandNode(g *graph.Graph, n *graph.Node) ([]graph.NodeID, error) {
	tmpl, ok := e.templates[n.Kind]
	if !ok {
		return nil, fmt.Errorf("no template for %s node", n.Kind)
	}
	x := &Expansion{Graph: g, Prefix: string(n.ID) + "/", b: graph.Extend(g)}
	boundary, err := tmpl(x, n)
	if err == nil {
		err = x.b.Err()
	}
	if err == nil {
		err = rewire(g, n, boundary)
	}
	if err != nil {
		for _, nid := range x.b.Added() {
			g.RemoveNode(nid)
		}
		return nil, err
	}
	g.RemoveNode(n.ID)
	return x.b.Added(), nil
}
