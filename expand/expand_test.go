package expand

import (
	"errors"
	"testing"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/types"
)

func linkedTo(g *graph.Graph, pin graph.PinID) []graph.PinID {
	p := g.Pin(pin)
	if p == nil {
		return nil
	}
	return p.Links
}

func hasLink(g *graph.Graph, a, b graph.PinID) bool {
	for _, l := range linkedTo(g, a) {
		if l == b {
			return true
		}
	}
	return false
}

func noComposites(t *testing.T, g *graph.Graph) {
	t.Helper()
	for _, n := range g.Nodes() {
		if graph.IsComposite(n.Kind) {
			t.Errorf("composite node %s (%s) survived expansion", n.ID, n.Kind)
		}
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() after expansion = %v", err)
	}
}

func forLoopGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewBuilder("loop").
		Entry("entry", "main").
		Literal("last", types.Int32, "2").
		ForLoop("loop").
		Call("work", "print_int", graph.In("n", types.Int32)).
		Return("ret").
		Link("entry.then", "loop.exec").
		Link("last.value", "loop.last").
		Link("loop.body", "work.exec").
		Link("loop.index", "work.n").
		Link("loop.completed", "ret.exec").
		Graph()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestForLoopExpansion(t *testing.T) {
	g := forLoopGraph(t)
	diags, err := New(Options{}).Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("diagnostics = %v, want none", diags)
	}
	noComposites(t, g)

	checks := []struct{ a, b graph.PinID }{
		{"entry.then", "loop/init.exec"},
		{"last.value", "loop/test.b"},
		{"loop/seq.then_0", "work.exec"},
		{"loop/index.value", "work.n"},
		{"loop/header.else", "ret.exec"},
		{"loop/inc.then", "loop/header.exec"},
	}
	for _, c := range checks {
		if !hasLink(g, c.a, c.b) {
			t.Errorf("missing link %s -> %s", c.a, c.b)
		}
	}
	init := g.Pin("loop/init.value")
	if !init.HasDefault || init.Default != "0" {
		t.Errorf("init.value default = %q (%v), want \"0\"", init.Default, init.HasDefault)
	}
	if g.Node("loop") != nil {
		t.Error("composite node should be removed")
	}
}

func TestWhileLoopExpansion(t *testing.T) {
	g := graph.NewBuilder("while").
		Entry("entry", "main").
		GetVar("flag", "running", types.Bool).
		WhileLoop("w").
		Call("work", "tick").
		Return("ret").
		Link("entry.then", "w.exec").
		Link("flag.value", "w.condition").
		Link("w.body", "work.exec").
		Link("w.completed", "ret.exec").
		MustGraph()
	if _, err := New(Options{}).Expand(g); err != nil {
		t.Fatal(err)
	}
	noComposites(t, g)
	if !hasLink(g, "w/seq.then_1", "w/header.exec") {
		t.Error("loop back edge missing")
	}
	if !hasLink(g, "flag.value", "w/header.condition") {
		t.Error("condition not rewired")
	}
}

func TestForEachExpandsThroughForLoop(t *testing.T) {
	g := graph.NewBuilder("each").
		Entry("entry", "main", graph.Param("items", types.ArrayOf(types.Float))).
		ForEach("fe").
		Call("use", "print_float", graph.In("x", types.Float)).
		Return("ret").
		Link("entry.then", "fe.exec").
		Link("entry.items", "fe.array").
		Link("fe.body", "use.exec").
		Link("fe.element", "use.x").
		Link("fe.completed", "ret.exec").
		MustGraph()
	if _, err := New(Options{}).Expand(g); err != nil {
		t.Fatal(err)
	}
	noComposites(t, g)
	if g.Node("fe/loop/header") == nil {
		t.Error("nested for_loop was not expanded")
	}
	items := linkedTo(g, "entry.items")
	if len(items) != 2 || items[0] != "fe/length.array" || items[1] != "fe/get.array" {
		t.Errorf("entry.items links = %v, want [fe/length.array fe/get.array]", items)
	}
	if !hasLink(g, "fe/get.result", "use.x") {
		t.Error("element not rewired to array_get")
	}
	if !hasLink(g, "fe/loop/index.value", "fe/get.index") {
		t.Error("array_get index not fed by the loop counter")
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	g := forLoopGraph(t)
	e := New(Options{})
	if _, err := e.Expand(g); err != nil {
		t.Fatal(err)
	}
	before, err := g.ToDocument().EncodeJSON()
	if err != nil {
		t.Fatal(err)
	}
	diags, err := e.Expand(g)
	if err != nil || len(diags) != 0 {
		t.Fatalf("second Expand = %v, %v", diags, err)
	}
	after, _ := g.ToDocument().EncodeJSON()
	if string(before) != string(after) {
		t.Error("expanding a primitive-only graph changed it")
	}
}

func TestExpansionPreservesLinkOrder(t *testing.T) {
	g := graph.NewBuilder("order").
		Entry("entry", "main").
		Literal("src", types.Int32, "5").
		PureCall("c1", "f", graph.In("x", types.Int32)).
		ForLoop("loop").
		PureCall("c3", "f", graph.In("x", types.Int32)).
		Link("entry.then", "loop.exec").
		Link("src.value", "c1.x").
		Link("src.value", "loop.last").
		Link("src.value", "c3.x").
		MustGraph()
	if _, err := New(Options{}).Expand(g); err != nil {
		t.Fatal(err)
	}
	got := linkedTo(g, "src.value")
	want := []graph.PinID{"c1.x", "loop/test.b", "c3.x"}
	if len(got) != len(want) {
		t.Fatalf("src.value links = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("src.value links[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func doubleMacro(t *testing.T) *MacroLibrary {
	t.Helper()
	m := graph.NewBuilder("double").
		Node("in", graph.KindMacroInput, nil, graph.ExecOut("exec"), graph.Out("x", types.Int32)).
		PureCall("add", "add", graph.In("a", types.Int32), graph.In("b", types.Int32), graph.Out(graph.PinResult, types.Int32)).
		Call("sink", "print_int", graph.In("v", types.Int32)).
		Node("out", graph.KindMacroOutput, nil, graph.ExecIn("then"), graph.In("y", types.Int32)).
		Link("in.exec", "sink.exec").
		Link("in.x", "add.a").
		Link("in.x", "add.b").
		Link("add.result", "sink.v").
		Link("sink.then", "out.then").
		Link("add.result", "out.y").
		MustGraph()
	lib := NewMacroLibrary()
	if err := lib.Add("double", m); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return lib
}

func TestMacroInline(t *testing.T) {
	g := graph.NewBuilder("main").
		Entry("entry", "main").
		Literal("three", types.Int32, "3").
		Macro("m", "double", graph.ExecIn("exec"), graph.In("x", types.Int32), graph.ExecOut("then"), graph.Out("y", types.Int32)).
		Return("ret", graph.Result("value", types.Int32)).
		Link("entry.then", "m.exec").
		Link("three.value", "m.x").
		Link("m.then", "ret.exec").
		Link("m.y", "ret.value").
		MustGraph()
	diags, err := New(Options{Macros: doubleMacro(t)}).Expand(g)
	if err != nil || len(diags) != 0 {
		t.Fatalf("Expand = %v, %v", diags, err)
	}
	noComposites(t, g)
	checks := []struct{ a, b graph.PinID }{
		{"entry.then", "m/sink.exec"},
		{"three.value", "m/add.a"},
		{"three.value", "m/add.b"},
		{"m/add.result", "m/sink.v"},
		{"m/sink.then", "ret.exec"},
		{"m/add.result", "ret.value"},
	}
	for _, c := range checks {
		if !hasLink(g, c.a, c.b) {
			t.Errorf("missing link %s -> %s", c.a, c.b)
		}
	}
	for _, id := range []graph.NodeID{"m/in", "m/out"} {
		if g.Node(id) != nil {
			t.Errorf("tunnel node %s should not be copied", id)
		}
	}
}

func TestFailedExpansionBecomesStub(t *testing.T) {
	tests := []struct {
		name string
		node func(b *graph.Builder) *graph.Builder
	}{
		{"unknown macro", func(b *graph.Builder) *graph.Builder {
			return b.Macro("bad", "nope", graph.ExecIn("exec"), graph.ExecOut("then"))
		}},
		{"missing macro name", func(b *graph.Builder) *graph.Builder {
			return b.Node("bad", graph.KindMacro, nil, graph.ExecIn("exec"), graph.ExecOut("then"))
		}},
		{"unknown class", func(b *graph.Builder) *graph.Builder {
			return b.Construct("bad", "Ghost")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := graph.NewBuilder("stub").Entry("entry", "main")
			g := tt.node(b).
				Return("ret").
				Link("entry.then", "bad.exec").
				Link("bad.then", "ret.exec").
				MustGraph()
			nodesBefore := g.NodeCount()
			diags, err := New(Options{}).Expand(g)
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if !diags.HasErrors() || len(diags.ForNode("bad")) != 1 {
				t.Errorf("diagnostics = %v, want one error on bad", diags)
			}
			if k := g.Node("bad").Kind; k != graph.KindNoop {
				t.Errorf("bad.Kind = %s, want noop", k)
			}
			if g.NodeCount() != nodesBefore {
				t.Errorf("NodeCount = %d, want %d (partial template left behind)", g.NodeCount(), nodesBefore)
			}
			if !hasLink(g, "entry.then", "bad.exec") {
				t.Error("stub lost its connections")
			}
		})
	}
}

func TestRecursiveMacroIsBounded(t *testing.T) {
	rec := graph.NewBuilder("rec").
		Node("in", graph.KindMacroInput, nil, graph.ExecOut("exec")).
		Macro("again", "rec", graph.ExecIn("exec"), graph.ExecOut("then")).
		Node("out", graph.KindMacroOutput, nil, graph.ExecIn("then")).
		Link("in.exec", "again.exec").
		Link("again.then", "out.then").
		MustGraph()
	lib := NewMacroLibrary()
	if err := lib.Add("rec", rec); err != nil {
		t.Fatal(err)
	}
	g := graph.NewBuilder("main").
		Entry("entry", "main").
		Macro("m", "rec", graph.ExecIn("exec"), graph.ExecOut("then")).
		Link("entry.then", "m.exec").
		MustGraph()

	_, err := New(Options{Macros: lib, MaxExpansions: 16}).Expand(g)
	var se *graph.StructuralError
	if !errors.As(err, &se) {
		t.Errorf("Expand = %v, want StructuralError", err)
	}
}

func TestConstructExpansion(t *testing.T) {
	reg := types.NewRegistry()
	reg.DefineClass("Actor", "")
	g := graph.NewBuilder("mk").
		Entry("entry", "main").
		Literal("hp", types.Int32, "100").
		Construct("mk", "Actor", graph.In("health", types.Int32), graph.InDefault("name", types.String, "bob")).
		Return("ret", graph.Result("actor", types.ObjectOf("Actor"))).
		Link("entry.then", "mk.exec").
		Link("hp.value", "mk.health").
		Link("mk.then", "ret.exec").
		Link("mk.result", "ret.actor").
		MustGraph()
	diags, err := New(Options{Types: reg}).Expand(g)
	if err != nil || len(diags) != 0 {
		t.Fatalf("Expand = %v, %v", diags, err)
	}
	noComposites(t, g)

	chain := []graph.PinID{"mk/begin.exec", "mk/set_0.exec", "mk/set_1.exec", "mk/finish.exec", "ret.exec"}
	if !hasLink(g, "entry.then", chain[0]) {
		t.Errorf("entry not wired to %s", chain[0])
	}
	for i, from := range []graph.PinID{"mk/begin.then", "mk/set_0.then", "mk/set_1.then", "mk/finish.then"} {
		if !hasLink(g, from, chain[i+1]) {
			t.Errorf("missing exec link %s -> %s", from, chain[i+1])
		}
	}
	if p := g.Pin("mk/set_0.property"); p.Default != "health" {
		t.Errorf("set_0 property = %q, want health", p.Default)
	}
	if !hasLink(g, "hp.value", "mk/set_0.value") {
		t.Error("health value not rewired")
	}
	if p := g.Pin("mk/set_1.value"); !p.HasDefault || p.Default != "bob" {
		t.Errorf("set_1 value default = %q, want bob", p.Default)
	}
	if !hasLink(g, "mk/finish.result", "ret.actor") {
		t.Error("result not rewired to finish_construct")
	}
}

func TestMacroLibraryRejectsTwoInputs(t *testing.T) {
	m := graph.NewBuilder("bad").
		Node("in1", graph.KindMacroInput, nil).
		Node("in2", graph.KindMacroInput, nil).
		MustGraph()
	if err := NewMacroLibrary().Add("bad", m); err == nil {
		t.Error("Add should reject two macro_input nodes")
	}
}
