package expand

import (
	"fmt"

	"github.com/chazu/graphc/graph"
)

// rewire moves every external connection of composite n onto the template
// pins named by boundary. An external pin keeps its position in its own
// connection list. Unconnected data inputs hand their default text to
// every template pin they map to.
func rewire(g *graph.Graph, n *graph.Node, boundary Boundary) error {
	for _, p := range g.Pins(n) {
		targets := boundary[p.Name]
		external := append([]graph.PinID(nil), p.Links...)
		if len(targets) == 0 {
			if len(external) > 0 {
				return fmt.Errorf("%s pin %q is connected but the template has no %s", p.Dir, p.Name, p.Name)
			}
			continue
		}
		for _, t := range targets {
			if g.Pin(t) == nil {
				return fmt.Errorf("template pin %s does not exist", t)
			}
		}

		switch {
		case p.Dir == graph.Input && p.Kind == graph.Data:
			if len(external) == 0 {
				if p.HasDefault {
					for _, t := range targets {
						tp := g.Pin(t)
						tp.Default, tp.HasDefault, tp.DefaultType = p.Default, true, p.DefaultType
					}
				}
				continue
			}
			src := external[0]
			if err := g.ReplaceLink(src, p.ID, targets[0]); err != nil {
				return err
			}
			for _, t := range targets[1:] {
				if err := g.Connect(src, t); err != nil {
					return err
				}
			}

		case p.Dir == graph.Input && p.Kind == graph.Exec:
			for _, src := range external {
				if err := g.ReplaceLink(src, p.ID, targets[0]); err != nil {
					return err
				}
			}

		case p.Dir == graph.Output && p.Kind == graph.Data:
			for _, dst := range external {
				if err := g.ReplaceLink(dst, p.ID, targets[0]); err != nil {
					return err
				}
			}

		case p.Dir == graph.Output && p.Kind == graph.Exec:
			for _, dst := range external {
				if err := g.ReplaceLink(dst, p.ID, targets[0]); err != nil {
					return err
				}
				for _, t := range targets[1:] {
					if err := g.Connect(t, dst); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
