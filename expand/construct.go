package expand

import (
	"fmt"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/symbols"
	"github.com/chazu/graphc/types"
)

// construct builds an object in phases: begin_construct, one
// set_property per data input besides the exec pins, then
// finish_construct. The object flows through the chain by value.
func (e *Expander) construct(x *Expansion, n *graph.Node) (Boundary, error) {
	class := n.Config[graph.ConfigClass]
	if class == "" {
		return nil, fmt.Errorf("construct node has no %q config", graph.ConfigClass)
	}
	if _, ok := e.opts.Types.Class(class); !ok {
		return nil, fmt.Errorf("unknown class %q", class)
	}
	obj := types.ObjectOf(class)
	b := x.Build()

	b.Call(x.ID("begin"), symbols.BeginConstruct,
		graph.InDefault("class", types.Name, class), graph.Out(graph.PinResult, obj))

	boundary := Boundary{
		graph.PinExec: {x.Pin("begin", graph.PinExec)},
	}
	prev := "begin"
	for i, p := range x.Graph.PinsOf(n, graph.Input, graph.Data) {
		step := fmt.Sprintf("set_%d", i)
		b.Call(x.ID(step), symbols.SetProperty,
			graph.In("object", obj),
			graph.InDefault("property", types.Name, p.Name),
			graph.In(graph.PinValue, p.Type),
			graph.Out(graph.PinResult, obj))
		link(b, x, prev, graph.PinThen, step, graph.PinExec)
		link(b, x, prev, graph.PinResult, step, "object")
		boundary[p.Name] = []graph.PinID{x.Pin(step, graph.PinValue)}
		prev = step
	}

	b.Call(x.ID("finish"), symbols.FinishConstruct,
		graph.In("object", obj), graph.Out(graph.PinResult, obj))
	link(b, x, prev, graph.PinThen, "finish", graph.PinExec)
	link(b, x, prev, graph.PinResult, "finish", "object")

	boundary[graph.PinThen] = []graph.PinID{x.Pin("finish", graph.PinThen)}
	boundary[graph.PinResult] = []graph.PinID{x.Pin("finish", graph.PinResult)}
	return boundary, nil
}
