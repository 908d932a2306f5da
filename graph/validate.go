package graph

import "fmt"

// StructuralError reports a malformed graph. It is fatal for the unit being
// compiled.
type StructuralError struct {
	Node    NodeID
	Pin     PinID
	Message string
}

func (e *StructuralError) Error() string {
	switch {
	case e.Pin != "":
		return fmt.Sprintf("structural error at pin %s: %s", e.Pin, e.Message)
	case e.Node != "":
		return fmt.Sprintf("structural error at node %s: %s", e.Node, e.Message)
	}
	return "structural error: " + e.Message
}

func structuralf(node NodeID, pin PinID, format string, args ...interface{}) *StructuralError {
	return &StructuralError{Node: node, Pin: pin, Message: fmt.Sprintf(format, args...)}
}

// Validate checks that every connection is symmetric and well-formed: the
// endpoints exist, face opposite directions and carry the same pin kind.
// A data input takes at most one connection, as does an exec output.
func (g *Graph) Validate() error {
	for _, n := range g.Nodes() {
		for _, pid := range n.Pins {
			p := g.Pin(pid)
			if p == nil {
				return structuralf(n.ID, pid, "pin does not exist")
			}
			if p.Node != n.ID {
				return structuralf(n.ID, pid, "pin belongs to node %s", p.Node)
			}
			if err := g.validatePin(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) validatePin(p *Pin) error {
	seen := make(map[PinID]bool, len(p.Links))
	for _, lid := range p.Links {
		if seen[lid] {
			return structuralf(p.Node, p.ID, "duplicate connection to %s", lid)
		}
		seen[lid] = true
		q := g.Pin(lid)
		if q == nil {
			return structuralf(p.Node, p.ID, "connected to missing pin %s", lid)
		}
		if !hasLink(q, p.ID) {
			return structuralf(p.Node, p.ID, "asymmetric connection: %s does not link back", lid)
		}
		if q.Dir == p.Dir {
			return structuralf(p.Node, p.ID, "connected to %s pin %s of the same direction", q.Dir, lid)
		}
		if q.Kind != p.Kind {
			return structuralf(p.Node, p.ID, "%s pin connected to %s pin %s", p.Kind, q.Kind, lid)
		}
	}
	if len(p.Links) > 1 {
		if p.Kind == Data && p.Dir == Input {
			return structuralf(p.Node, p.ID, "data input has %d connections", len(p.Links))
		}
		if p.Kind == Exec && p.Dir == Output {
			return structuralf(p.Node, p.ID, "exec output has %d connections", len(p.Links))
		}
	}
	return nil
}

// RequireEntries returns the entry nodes, or a StructuralError when the
// graph has none.
func (g *Graph) RequireEntries() ([]*Node, error) {
	entries := g.Entries()
	if len(entries) == 0 {
		return nil, &StructuralError{Message: fmt.Sprintf("graph %q has no entry node", g.name)}
	}
	return entries, nil
}
