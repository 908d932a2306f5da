package linearize

import "github.com/chazu/graphc/graph"

// Dominators answers dominance queries over the exec flow graph. A virtual
// root precedes every entry, so a node dominates another only if every
// path from any entry passes through it.
//
// The tree is computed with the iterative algorithm of Cooper, Harvey and
// Kennedy over a reverse postorder.
type Dominators struct {
	index map[graph.NodeID]int // node -> postorder number; root is highest
	order []graph.NodeID
	idom  []int
}

const root graph.NodeID = ""

// ComputeDominators builds the dominator tree of g's exec flow.
func ComputeDominators(g *graph.Graph) *Dominators {
	succ := func(id graph.NodeID) []graph.NodeID {
		if id == root {
			var out []graph.NodeID
			for _, e := range g.Entries() {
				out = append(out, e.ID)
			}
			return out
		}
		return execSuccessors(g, g.Node(id))
	}

	// Depth-first postorder from the root.
	d := &Dominators{index: make(map[graph.NodeID]int)}
	visited := map[graph.NodeID]bool{root: true}
	type frame struct {
		id   graph.NodeID
		next []graph.NodeID
	}
	stack := []frame{{root, succ(root)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.next) == 0 {
			d.index[top.id] = len(d.order)
			d.order = append(d.order, top.id)
			stack = stack[:len(stack)-1]
			continue
		}
		s := top.next[0]
		top.next = top.next[1:]
		if !visited[s] {
			visited[s] = true
			stack = append(stack, frame{s, succ(s)})
		}
	}

	order := d.order
	preds := make([][]int, len(order))
	for _, id := range order {
		for _, s := range succ(id) {
			if j, ok := d.index[s]; ok {
				preds[j] = append(preds[j], d.index[id])
			}
		}
	}

	const undefined = -1
	d.idom = make([]int, len(order))
	for i := range d.idom {
		d.idom[i] = undefined
	}
	start := d.index[root]
	d.idom[start] = start

	for changed := true; changed; {
		changed = false
		// Reverse postorder, skipping the root.
		for b := len(order) - 2; b >= 0; b-- {
			newIdom := undefined
			for _, p := range preds[b] {
				if d.idom[p] == undefined {
					continue
				}
				if newIdom == undefined {
					newIdom = p
				} else {
					newIdom = d.intersect(p, newIdom)
				}
			}
			if newIdom != undefined && d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}
	return d
}

func (d *Dominators) intersect(a, b int) int {
	for a != b {
		for a < b {
			a = d.idom[a]
		}
		for b < a {
			b = d.idom[b]
		}
	}
	return a
}

// Dominates reports whether every exec path to b passes through a. A node
// dominates itself; nodes outside the exec flow dominate nothing.
func (d *Dominators) Dominates(a, b graph.NodeID) bool {
	ia, ok := d.index[a]
	if !ok {
		return false
	}
	ib, ok := d.index[b]
	if !ok {
		return false
	}
	for {
		if ib == ia {
			return true
		}
		next := d.idom[ib]
		if next == ib || next < 0 {
			return false
		}
		ib = next
	}
}

// Idom returns the immediate dominator of n, or "" for entries and nodes
// outside the exec flow.
func (d *Dominators) Idom(n graph.NodeID) graph.NodeID {
	i, ok := d.index[n]
	if !ok || d.idom[i] < 0 {
		return root
	}
	return d.order[d.idom[i]]
}

// execSuccessors returns the nodes n's exec outputs lead to, in pin order.
func execSuccessors(g *graph.Graph, n *graph.Node) []graph.NodeID {
	if n == nil {
		return nil
	}
	var out []graph.NodeID
	for _, p := range g.PinsOf(n, graph.Output, graph.Exec) {
		for _, q := range g.Linked(p) {
			out = append(out, q.Node)
		}
	}
	return out
}
