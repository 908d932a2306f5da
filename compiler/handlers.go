package compiler

import (
	"fmt"

	"github.com/chazu/graphc/graph"
)

func genNothing(c *Context, n *graph.Node) error { return nil }

func genEntry(c *Context, n *graph.Node) error {
	c.Continue(n)
	return nil
}

func genNoop(c *Context, n *graph.Node) error {
	if !c.Graph.IsPure(n) {
		c.Continue(n)
	}
	return nil
}

// genReturn copies every data input into the result slot of the same name.
func genReturn(c *Context, n *graph.Node) error {
	var args []*Terminal
	for _, p := range c.Graph.PinsOf(n, graph.Input, graph.Data) {
		args = append(args, c.Alloc.Result(p), c.Alloc.Source(p))
	}
	c.Emit(Statement{Kind: StmtReturn, Args: args})
	return nil
}

// genCall binds data inputs to parameters and data outputs to results in
// pin order.
func genCall(c *Context, n *graph.Node) error {
	name := n.Config[graph.ConfigFunction]
	if name == "" {
		return fmt.Errorf("call node has no function")
	}
	if c.Functions == nil {
		return fmt.Errorf("unknown function %q", name)
	}
	f, ok := c.Functions.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown function %q", name)
	}
	ins := c.Graph.PinsOf(n, graph.Input, graph.Data)
	outs := c.Graph.PinsOf(n, graph.Output, graph.Data)
	if len(ins) != len(f.Params) {
		return fmt.Errorf("%s takes %d arguments, node has %d inputs", f.Signature(), len(f.Params), len(ins))
	}
	if len(outs) > len(f.Results) {
		return fmt.Errorf("%s returns %d values, node has %d outputs", f.Signature(), len(f.Results), len(outs))
	}

	s := Statement{Kind: StmtCall, Function: name}
	for _, p := range ins {
		s.Args = append(s.Args, c.Alloc.Source(p))
	}
	for _, p := range outs {
		s.Results = append(s.Results, c.Alloc.Output(p))
	}
	c.Emit(s)
	if !c.Graph.IsPure(n) {
		c.Continue(n)
	}
	return nil
}

// genBranch falls through to the then side; the else side is reached by
// the conditional jump.
func genBranch(c *Context, n *graph.Node) error {
	cond, err := c.RequirePin(n, graph.PinCondition)
	if err != nil {
		return err
	}
	c.Emit(Statement{
		Kind:   StmtJumpIfNot,
		Args:   []*Terminal{c.Alloc.Source(cond)},
		Target: c.Target(c.Graph.FindPin(n.ID, graph.PinElse)),
	})
	c.Goto(c.Target(c.Graph.FindPin(n.ID, graph.PinThen)))
	return nil
}

// genSequence pushes the later outputs as continuations, last first, and
// runs the first output. Each chain end resumes the next continuation.
func genSequence(c *Context, n *graph.Node) error {
	outs := c.Graph.PinsOf(n, graph.Output, graph.Exec)
	for i := len(outs) - 1; i >= 1; i-- {
		if len(outs[i].Links) == 0 {
			continue
		}
		c.Emit(Statement{Kind: StmtPushFlow, Target: c.Target(outs[i])})
	}
	var first *graph.Pin
	if len(outs) > 0 {
		first = outs[0]
	}
	c.Goto(c.Target(first))
	return nil
}

func genGetVar(c *Context, n *graph.Node) error {
	name := n.Config[graph.ConfigVar]
	if name == "" {
		return fmt.Errorf("get_var node has no variable name")
	}
	out, err := c.RequirePin(n, graph.PinValue)
	if err != nil {
		return err
	}
	c.Emit(Statement{Kind: StmtAssign, Args: []*Terminal{c.Alloc.Output(out), c.Alloc.Var(name, out.Type)}})
	return nil
}

func genSetVar(c *Context, n *graph.Node) error {
	name := n.Config[graph.ConfigVar]
	if name == "" {
		return fmt.Errorf("set_var node has no variable name")
	}
	in, err := c.RequirePin(n, graph.PinValue)
	if err != nil {
		return err
	}
	c.Emit(Statement{Kind: StmtAssign, Args: []*Terminal{c.Alloc.Var(name, in.Type), c.Alloc.Source(in)}})
	c.Continue(n)
	return nil
}

func genSetMember(c *Context, n *graph.Node) error {
	name := n.Config[graph.ConfigMember]
	if name == "" {
		return fmt.Errorf("set_member node has no member name")
	}
	in, err := c.RequirePin(n, graph.PinValue)
	if err != nil {
		return err
	}
	c.Emit(Statement{Kind: StmtAssign, Args: []*Terminal{c.Alloc.Member(name, in.Type), c.Alloc.Source(in)}})
	c.Continue(n)
	return nil
}

func genConvert(c *Context, n *graph.Node) error {
	in, err := c.RequirePin(n, graph.PinValue)
	if err != nil {
		return err
	}
	out, err := c.RequirePin(n, graph.PinResult)
	if err != nil {
		return err
	}
	c.Emit(Statement{
		Kind: StmtConvert,
		Args: []*Terminal{c.Alloc.Output(out), c.Alloc.Source(in)},
		From: in.Type,
		To:   out.Type,
	})
	return nil
}
