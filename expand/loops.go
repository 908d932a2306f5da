package expand

import (
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/types"
)

// forLoop counts a private variable from first to last inclusive:
//
//	init: counter = first
//	header: branch less_equal(counter, last)
//	  then: sequence [body, inc]
//	  else: completed
//	inc: counter = counter + 1, back to header
func forLoop(x *Expansion, n *graph.Node) (Boundary, error) {
	counter := x.ID("counter")
	b := x.Build()
	b.SetVar(x.ID("init"), counter, types.Int32).
		Branch(x.ID("header")).
		GetVar(x.ID("read"), counter, types.Int32).
		PureCall(x.ID("test"), "less_equal",
			graph.In("a", types.Int32), graph.In("b", types.Int32), graph.Out(graph.PinResult, types.Bool)).
		Sequence(x.ID("seq"), 2).
		GetVar(x.ID("index"), counter, types.Int32).
		GetVar(x.ID("current"), counter, types.Int32).
		PureCall(x.ID("next"), "add",
			graph.In("a", types.Int32), graph.InDefault("b", types.Int32, "1"), graph.Out(graph.PinResult, types.Int32)).
		SetVar(x.ID("inc"), counter, types.Int32)

	link(b, x, "init", graph.PinThen, "header", graph.PinExec)
	link(b, x, "read", graph.PinValue, "test", "a")
	link(b, x, "test", graph.PinResult, "header", graph.PinCondition)
	link(b, x, "header", graph.PinThen, "seq", graph.PinExec)
	link(b, x, "seq", "then_1", "inc", graph.PinExec)
	link(b, x, "current", graph.PinValue, "next", "a")
	link(b, x, "next", graph.PinResult, "inc", graph.PinValue)
	link(b, x, "inc", graph.PinThen, "header", graph.PinExec)

	return Boundary{
		graph.PinExec:      {x.Pin("init", graph.PinExec)},
		graph.PinFirst:     {x.Pin("init", graph.PinValue)},
		graph.PinLast:      {x.Pin("test", "b")},
		graph.PinBody:      {x.Pin("seq", "then_0")},
		graph.PinCompleted: {x.Pin("header", graph.PinElse)},
		graph.PinIndex:     {x.Pin("index", graph.PinValue)},
	}, nil
}

// whileLoop re-tests its condition at the header after every body run.
func whileLoop(x *Expansion, n *graph.Node) (Boundary, error) {
	b := x.Build()
	b.Branch(x.ID("header")).Sequence(x.ID("seq"), 2)
	link(b, x, "header", graph.PinThen, "seq", graph.PinExec)
	link(b, x, "seq", "then_1", "header", graph.PinExec)

	return Boundary{
		graph.PinExec:      {x.Pin("header", graph.PinExec)},
		graph.PinCondition: {x.Pin("header", graph.PinCondition)},
		graph.PinBody:      {x.Pin("seq", "then_0")},
		graph.PinCompleted: {x.Pin("header", graph.PinElse)},
	}, nil
}

// forEach runs a for_loop over 0..length-1 and reads the element at the
// loop index.
func forEach(x *Expansion, n *graph.Node) (Boundary, error) {
	arrType := types.ArrayOf(types.Wildcard)
	if p := x.Graph.FindPin(n.ID, graph.PinArray); p != nil {
		arrType = p.Type
	}
	elemType := types.Wildcard
	if p := x.Graph.FindPin(n.ID, graph.PinElement); p != nil {
		elemType = p.Type
	}

	b := x.Build()
	b.ForLoop(x.ID("loop")).
		PureCall(x.ID("length"), "array_length",
			graph.In(graph.PinArray, arrType), graph.Out(graph.PinResult, types.Int32)).
		PureCall(x.ID("last"), "subtract",
			graph.In("a", types.Int32), graph.InDefault("b", types.Int32, "1"), graph.Out(graph.PinResult, types.Int32)).
		PureCall(x.ID("get"), "array_get",
			graph.In(graph.PinArray, arrType), graph.In(graph.PinIndex, types.Int32), graph.Out(graph.PinResult, elemType))

	link(b, x, "length", graph.PinResult, "last", "a")
	link(b, x, "last", graph.PinResult, "loop", graph.PinLast)
	link(b, x, "loop", graph.PinIndex, "get", graph.PinIndex)

	return Boundary{
		graph.PinExec:      {x.Pin("loop", graph.PinExec)},
		graph.PinArray:     {x.Pin("length", graph.PinArray), x.Pin("get", graph.PinArray)},
		graph.PinBody:      {x.Pin("loop", graph.PinBody)},
		graph.PinCompleted: {x.Pin("loop", graph.PinCompleted)},
		graph.PinIndex:     {x.Pin("loop", graph.PinIndex)},
		graph.PinElement:   {x.Pin("get", graph.PinResult)},
	}, nil
}

func link(b *graph.Builder, x *Expansion, from, fromPin, to, toPin string) {
	b.Link(string(x.Pin(from, fromPin)), string(x.Pin(to, toPin)))
}
