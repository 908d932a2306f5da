package linearize

import "github.com/chazu/graphc/graph"

// Reachable returns the nodes that can execute or be evaluated: every node
// on an exec path from an entry, and every pure node feeding one of them
// through data connections.
func Reachable(g *graph.Graph) map[graph.NodeID]bool {
	seen := make(map[graph.NodeID]bool)
	var work []*graph.Node
	for _, n := range g.Entries() {
		seen[n.ID] = true
		work = append(work, n)
	}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		for _, p := range g.Pins(n) {
			follow := (p.Kind == graph.Exec && p.Dir == graph.Output) ||
				(p.Kind == graph.Data && p.Dir == graph.Input)
			if !follow {
				continue
			}
			for _, q := range g.Linked(p) {
				m := g.Node(q.Node)
				if m == nil || seen[m.ID] {
					continue
				}
				// Data sources that have exec pins only run when reached by
				// execution.
				if p.Kind == graph.Data && !g.IsPure(m) {
					continue
				}
				seen[m.ID] = true
				work = append(work, m)
			}
		}
	}
	return seen
}

// Prune removes every node Reachable does not return and reports how many
// were removed.
func Prune(g *graph.Graph) int {
	keep := Reachable(g)
	before := g.NodeCount()
	g.Retain(keep)
	return before - g.NodeCount()
}
