package linearize

import "github.com/chazu/graphc/graph"

// Loops records natural loop membership in the exec flow graph. A loop is
// identified by its header: the target of a back edge, which dominates the
// edge's source. Back edges sharing a header form one loop.
type Loops struct {
	body map[graph.NodeID]map[graph.NodeID]bool // header -> members
	of   map[graph.NodeID][]graph.NodeID        // node -> headers of enclosing loops
}

// ComputeLoops finds the natural loops of g's exec flow.
func ComputeLoops(g *graph.Graph, dom *Dominators) *Loops {
	l := &Loops{
		body: make(map[graph.NodeID]map[graph.NodeID]bool),
		of:   make(map[graph.NodeID][]graph.NodeID),
	}

	preds := make(map[graph.NodeID][]graph.NodeID)
	for _, id := range dom.order {
		if id == root {
			continue
		}
		for _, s := range execSuccessors(g, g.Node(id)) {
			preds[s] = append(preds[s], id)
		}
	}

	// Reverse postorder keeps header discovery deterministic.
	for i := len(dom.order) - 1; i >= 0; i-- {
		u := dom.order[i]
		if u == root {
			continue
		}
		for _, h := range execSuccessors(g, g.Node(u)) {
			if !dom.Dominates(h, u) {
				continue
			}
			members := l.body[h]
			if members == nil {
				members = map[graph.NodeID]bool{h: true}
				l.body[h] = members
			}
			work := []graph.NodeID{u}
			for len(work) > 0 {
				n := work[len(work)-1]
				work = work[:len(work)-1]
				if members[n] {
					continue
				}
				members[n] = true
				work = append(work, preds[n]...)
			}
		}
	}

	for i := len(dom.order) - 1; i >= 0; i-- {
		h := dom.order[i]
		for n := range l.body[h] {
			l.of[n] = append(l.of[n], h)
		}
	}
	return l
}

// Headers returns the headers of every loop containing n, outermost first.
func (l *Loops) Headers(n graph.NodeID) []graph.NodeID {
	return l.of[n]
}

// Contains reports whether n belongs to the loop headed by h.
func (l *Loops) Contains(h, n graph.NodeID) bool {
	return l.body[h][n]
}

// Within reports whether every loop containing b also contains a. A value
// computed at a is then recomputed on every iteration that reaches b.
func (l *Loops) Within(a, b graph.NodeID) bool {
	for _, h := range l.of[b] {
		if !l.body[h][a] {
			return false
		}
	}
	return true
}
