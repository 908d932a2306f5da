// Package linearize orders the nodes of an expanded graph for code
// generation. Impure nodes are laid out depth-first along their exec
// connections; pure nodes are placed just before the first impure node
// that consumes them.
package linearize

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/graphc/graph"
)

var log = commonlog.GetLogger("graphc.linearize")

// Step is one position in a schedule.
type Step struct {
	Node graph.NodeID

	// Pure marks a value node evaluated on behalf of Anchor, the impure
	// node that first consumes it along this path.
	Pure   bool
	Anchor graph.NodeID

	// Join marks an exec edge from From into Node, which was already placed
	// earlier. Code generation emits a jump for it.
	Join bool
	From graph.NodeID
}

func (s Step) String() string {
	switch {
	case s.Join:
		return fmt.Sprintf("%s -> %s", s.From, s.Node)
	case s.Pure:
		return fmt.Sprintf("%s@%s", s.Node, s.Anchor)
	}
	return string(s.Node)
}

// Schedule is the ordered node list for one entry.
type Schedule struct {
	Entry graph.NodeID
	Steps []Step
}

// Impure returns the impure nodes placed by s, in order.
func (s *Schedule) Impure() []graph.NodeID {
	var out []graph.NodeID
	for _, st := range s.Steps {
		if !st.Pure && !st.Join {
			out = append(out, st.Node)
		}
	}
	return out
}

// PureFor returns the pure nodes placed for anchor, in evaluation order.
func (s *Schedule) PureFor(anchor graph.NodeID) []graph.NodeID {
	var out []graph.NodeID
	for _, st := range s.Steps {
		if st.Pure && st.Anchor == anchor {
			out = append(out, st.Node)
		}
	}
	return out
}

type linearizer struct {
	g     *graph.Graph
	dom   *Dominators
	loops *Loops

	placed   map[graph.NodeID]bool
	anchors  map[graph.NodeID][]graph.NodeID // pure node -> anchors it was placed at
	visiting map[graph.NodeID]bool
}

// Linearize produces one schedule per entry, in entry order. An impure node
// reachable from several entries is placed once, by the first entry that
// reaches it; later paths join it. A cycle among pure nodes is a
// StructuralError.
func Linearize(g *graph.Graph) ([]*Schedule, error) {
	entries, err := g.RequireEntries()
	if err != nil {
		return nil, err
	}
	dom := ComputeDominators(g)
	l := &linearizer{
		g:        g,
		dom:      dom,
		loops:    ComputeLoops(g, dom),
		placed:   make(map[graph.NodeID]bool),
		anchors:  make(map[graph.NodeID][]graph.NodeID),
		visiting: make(map[graph.NodeID]bool),
	}
	out := make([]*Schedule, 0, len(entries))
	for _, e := range entries {
		s, err := l.schedule(e)
		if err != nil {
			return nil, err
		}
		log.Debugf("entry %s: %d steps", e.ID, len(s.Steps))
		out = append(out, s)
	}
	return out, nil
}

type edge struct {
	to   graph.NodeID
	from graph.NodeID
}

func (l *linearizer) schedule(entry *graph.Node) (*Schedule, error) {
	s := &Schedule{Entry: entry.ID}
	stack := []edge{{to: entry.ID}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if l.placed[e.to] {
			s.Steps = append(s.Steps, Step{Node: e.to, Join: true, From: e.from})
			continue
		}
		n := l.g.Node(e.to)
		if n == nil {
			continue
		}
		l.placed[n.ID] = true
		if err := l.placeInputs(s, n, n.ID); err != nil {
			return nil, err
		}
		s.Steps = append(s.Steps, Step{Node: n.ID})

		succ := orderedSuccessors(l.g, n)
		for i := len(succ) - 1; i >= 0; i-- {
			stack = append(stack, edge{to: succ[i], from: n.ID})
		}
	}
	return s, nil
}

// placeInputs schedules the pure sources of n's data inputs, depth first,
// so each is evaluated after its own inputs.
func (l *linearizer) placeInputs(s *Schedule, n *graph.Node, anchor graph.NodeID) error {
	for _, p := range l.g.PinsOf(n, graph.Input, graph.Data) {
		for _, q := range l.g.Linked(p) {
			src := l.g.Node(q.Node)
			if src == nil || !l.g.IsPure(src) {
				continue
			}
			if err := l.placePure(s, src, anchor); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *linearizer) placePure(s *Schedule, n *graph.Node, anchor graph.NodeID) error {
	if l.visiting[n.ID] {
		return &graph.StructuralError{Node: n.ID, Message: "cycle through pure nodes"}
	}
	if l.reusable(n.ID, anchor) {
		return nil
	}
	l.visiting[n.ID] = true
	defer delete(l.visiting, n.ID)

	if err := l.placeInputs(s, n, anchor); err != nil {
		return err
	}
	s.Steps = append(s.Steps, Step{Node: n.ID, Pure: true, Anchor: anchor})
	l.anchors[n.ID] = append(l.anchors[n.ID], anchor)
	return nil
}

// reusable reports whether an earlier evaluation of n is visible and current
// at anchor: every path to anchor passes through the node it was evaluated
// for, and no loop around anchor leaves that node outside.
func (l *linearizer) reusable(n, anchor graph.NodeID) bool {
	for _, a := range l.anchors[n] {
		if a == anchor {
			return true
		}
		if l.dom.Dominates(a, anchor) && l.loops.Within(a, anchor) {
			return true
		}
	}
	return false
}

// orderedSuccessors lists the nodes n's exec outputs lead to. A branch
// visits its then side first regardless of pin order.
func orderedSuccessors(g *graph.Graph, n *graph.Node) []graph.NodeID {
	if n.Kind == graph.KindBranch {
		var out []graph.NodeID
		for _, name := range []string{graph.PinThen, graph.PinElse} {
			if p := g.FindPin(n.ID, name); p != nil {
				for _, q := range g.Linked(p) {
					out = append(out, q.Node)
				}
			}
		}
		return out
	}
	return execSuccessors(g, n)
}
