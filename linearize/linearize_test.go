package linearize

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/types"
)

func branchGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewBuilder("branchy").
		Entry("entry", "main", graph.Param("x", types.Int32)).
		Literal("ten", types.Int32, "10").
		PureCall("cmp", "less", graph.In("a", types.Int32), graph.In("b", types.Int32), graph.Out("result", types.Bool)).
		Branch("br").
		Call("yes", "print", graph.In("s", types.Int32)).
		Call("no", "print", graph.In("s", types.Int32)).
		Return("ret").
		Link("entry.then", "br.exec").
		Link("entry.x", "cmp.a").
		Link("ten.value", "cmp.b").
		Link("cmp.result", "br.condition").
		Link("br.else", "no.exec").
		Link("br.then", "yes.exec").
		Link("entry.x", "yes.s").
		Link("entry.x", "no.s").
		Link("yes.then", "ret.exec").
		Link("no.then", "ret.exec").
		Graph()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestReachableAndPrune(t *testing.T) {
	g := branchGraph(t)
	if err := graph.Extend(g).
		Literal("orphan", types.Int32, "1").
		Call("dead", "print", graph.In("s", types.Int32)).
		Link("orphan.value", "dead.s").
		Err(); err != nil {
		t.Fatal(err)
	}

	r := Reachable(g)
	for _, id := range []graph.NodeID{"entry", "ten", "cmp", "br", "yes", "no", "ret"} {
		if !r[id] {
			t.Errorf("%s should be reachable", id)
		}
	}
	if r["orphan"] || r["dead"] {
		t.Error("orphan and dead should be unreachable")
	}
	if n := Prune(g); n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() after Prune = %v", err)
	}
}

func TestReachableSkipsImpureDataSources(t *testing.T) {
	g, err := graph.NewBuilder("impure-src").
		Entry("entry", "main").
		Call("side", "make", graph.Out("v", types.Int32)).
		Return("ret", graph.Result("out", types.Int32)).
		Link("entry.then", "ret.exec").
		Link("side.v", "ret.out").
		Graph()
	if err != nil {
		t.Fatal(err)
	}
	if Reachable(g)["side"] {
		t.Error("a data source with exec pins only runs when executed")
	}
}

func TestScheduleBranchThenFirst(t *testing.T) {
	g := branchGraph(t)
	scheds, err := Linearize(g)
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	if len(scheds) != 1 {
		t.Fatalf("got %d schedules, want 1", len(scheds))
	}
	s := scheds[0]
	want := []graph.NodeID{"entry", "br", "yes", "ret", "no"}
	if got := s.Impure(); !reflect.DeepEqual(got, want) {
		t.Errorf("Impure() = %v, want %v", got, want)
	}
	if got := s.PureFor("br"); !reflect.DeepEqual(got, []graph.NodeID{"ten", "cmp"}) {
		t.Errorf("PureFor(br) = %v, want [ten cmp]", got)
	}

	last := s.Steps[len(s.Steps)-1]
	if !last.Join || last.Node != "ret" || last.From != "no" {
		t.Errorf("last step = %v, want join no -> ret", last)
	}
}

func TestSharedPureNodeReusedWhenDominated(t *testing.T) {
	g, err := graph.NewBuilder("shared").
		Entry("entry", "main").
		GetMember("hp", "health", types.Int32).
		PureCall("double", "add", graph.In("a", types.Int32), graph.In("b", types.Int32), graph.Out("result", types.Int32)).
		Call("first", "print", graph.In("s", types.Int32)).
		Call("second", "print", graph.In("s", types.Int32)).
		Return("ret").
		Link("entry.then", "first.exec").
		Link("first.then", "second.exec").
		Link("second.then", "ret.exec").
		Link("hp.value", "double.a").
		Link("hp.value", "double.b").
		Link("double.result", "first.s").
		Link("double.result", "second.s").
		Graph()
	if err != nil {
		t.Fatal(err)
	}
	scheds, err := Linearize(g)
	if err != nil {
		t.Fatal(err)
	}
	count := map[graph.NodeID]int{}
	for _, st := range scheds[0].Steps {
		if st.Pure {
			count[st.Node]++
		}
	}
	if count["hp"] != 1 || count["double"] != 1 {
		t.Errorf("pure placements = %v, want one each", count)
	}
	if got := scheds[0].PureFor("first"); !reflect.DeepEqual(got, []graph.NodeID{"hp", "double"}) {
		t.Errorf("PureFor(first) = %v", got)
	}
}

func TestSharedPureNodeRescheduledAcrossBranches(t *testing.T) {
	g := branchGraph(t)
	if err := graph.Extend(g).
		Literal("k", types.Int32, "7").
		PureCall("neg", "subtract", graph.In("a", types.Int32), graph.Out("result", types.Int32)).
		Link("k.value", "neg.a").
		Err(); err != nil {
		t.Fatal(err)
	}
	// Feed neg into both arms instead of the parameter.
	for _, arm := range []graph.PinID{"yes.s", "no.s"} {
		g.Disconnect("entry.x", arm)
		if err := g.Connect("neg.result", arm); err != nil {
			t.Fatal(err)
		}
	}
	scheds, err := Linearize(g)
	if err != nil {
		t.Fatal(err)
	}
	s := scheds[0]
	if got := s.PureFor("yes"); !reflect.DeepEqual(got, []graph.NodeID{"k", "neg"}) {
		t.Errorf("PureFor(yes) = %v", got)
	}
	if got := s.PureFor("no"); !reflect.DeepEqual(got, []graph.NodeID{"k", "neg"}) {
		t.Errorf("PureFor(no) = %v, want re-evaluation on the else path", got)
	}
}

func TestPureCycle(t *testing.T) {
	g, err := graph.NewBuilder("cycle").
		Entry("entry", "main").
		PureCall("a", "f", graph.In("x", types.Int32), graph.Out("y", types.Int32)).
		PureCall("b", "f", graph.In("x", types.Int32), graph.Out("y", types.Int32)).
		Return("ret", graph.Result("out", types.Int32)).
		Link("entry.then", "ret.exec").
		Link("a.y", "b.x").
		Link("b.y", "a.x").
		Link("a.y", "ret.out").
		Graph()
	if err != nil {
		t.Fatal(err)
	}
	_, err = Linearize(g)
	var se *graph.StructuralError
	if !errors.As(err, &se) {
		t.Errorf("Linearize() = %v, want StructuralError", err)
	}
}

func TestSecondEntryJoinsSharedCode(t *testing.T) {
	g, err := graph.NewBuilder("two").
		Entry("e1", "start").
		Entry("e2", "restart").
		Call("work", "print", graph.InDefault("s", types.String, "hi")).
		Return("ret").
		Link("e1.then", "work.exec").
		Link("e2.then", "work.exec").
		Link("work.then", "ret.exec").
		Graph()
	if err != nil {
		t.Fatal(err)
	}
	scheds, err := Linearize(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(scheds) != 2 {
		t.Fatalf("got %d schedules", len(scheds))
	}
	second := scheds[1].Steps
	if len(second) != 2 || second[0].Node != "e2" || !second[1].Join || second[1].Node != "work" {
		t.Errorf("second schedule = %v, want [e2, e2 -> work]", second)
	}
}

func TestDominators(t *testing.T) {
	g := branchGraph(t)
	d := ComputeDominators(g)
	tests := []struct {
		a, b graph.NodeID
		want bool
	}{
		{"entry", "ret", true},
		{"br", "yes", true},
		{"br", "ret", true},
		{"yes", "ret", false},
		{"no", "ret", false},
		{"ret", "ret", true},
		{"cmp", "br", false},
	}
	for _, tt := range tests {
		if got := d.Dominates(tt.a, tt.b); got != tt.want {
			t.Errorf("Dominates(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
	if got := d.Idom("ret"); got != "br" {
		t.Errorf("Idom(ret) = %q, want br", got)
	}
	if got := d.Idom("entry"); got != "" {
		t.Errorf("Idom(entry) = %q, want empty", got)
	}
}

func TestDominatorsWithLoop(t *testing.T) {
	g, err := graph.NewBuilder("loop").
		Entry("entry", "main").
		Branch("header").
		Sequence("seq", 2).
		Call("body", "print", graph.InDefault("s", types.String, "x")).
		SetVar("inc", "i", types.Int32).
		Return("ret").
		Link("entry.then", "header.exec").
		Link("header.then", "seq.exec").
		Link("header.else", "ret.exec").
		Link("seq.then_0", "body.exec").
		Link("seq.then_1", "inc.exec").
		Link("inc.then", "header.exec").
		Graph()
	if err != nil {
		t.Fatal(err)
	}
	d := ComputeDominators(g)
	if !d.Dominates("header", "inc") || !d.Dominates("seq", "inc") {
		t.Error("header and seq should dominate inc")
	}
	if d.Dominates("body", "inc") {
		t.Error("body should not dominate inc")
	}
	if d.Dominates("inc", "header") {
		t.Error("the back edge source should not dominate the header")
	}
}

func loopGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewBuilder("loop").
		Entry("entry", "main").
		GetVar("total", "total", types.Int32).
		Call("record", "print", graph.In("s", types.Int32)).
		Branch("header").
		Call("body", "print", graph.In("s", types.Int32)).
		SetVar("inc", "total", types.Int32).
		Return("ret").
		Link("entry.then", "record.exec").
		Link("record.then", "header.exec").
		Link("header.then", "body.exec").
		Link("header.else", "ret.exec").
		Link("body.then", "inc.exec").
		Link("inc.then", "header.exec").
		Link("total.value", "record.s").
		Link("total.value", "body.s").
		Link("total.value", "inc.value").
		Graph()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestLoops(t *testing.T) {
	g := loopGraph(t)
	loops := ComputeLoops(g, ComputeDominators(g))
	tests := []struct {
		n    graph.NodeID
		want bool
	}{
		{"header", true},
		{"body", true},
		{"inc", true},
		{"entry", false},
		{"record", false},
		{"ret", false},
	}
	for _, tt := range tests {
		if got := loops.Contains("header", tt.n); got != tt.want {
			t.Errorf("Contains(header, %s) = %v, want %v", tt.n, got, tt.want)
		}
	}
	if got := loops.Headers("body"); !reflect.DeepEqual(got, []graph.NodeID{"header"}) {
		t.Errorf("Headers(body) = %v, want [header]", got)
	}
	if loops.Within("record", "inc") {
		t.Error("record is outside the loop around inc")
	}
	if !loops.Within("body", "inc") || !loops.Within("inc", "ret") {
		t.Error("Within should hold for nodes sharing every enclosing loop")
	}
}

func TestPureNodeReevaluatedInsideLoop(t *testing.T) {
	scheds, err := Linearize(loopGraph(t))
	if err != nil {
		t.Fatal(err)
	}
	s := scheds[0]
	if got := s.PureFor("record"); !reflect.DeepEqual(got, []graph.NodeID{"total"}) {
		t.Errorf("PureFor(record) = %v, want [total]", got)
	}
	// The read before the loop is stale once the body writes total.
	if got := s.PureFor("body"); !reflect.DeepEqual(got, []graph.NodeID{"total"}) {
		t.Errorf("PureFor(body) = %v, want a fresh read inside the loop", got)
	}
	// Later consumers in the same iteration share the body's read.
	if got := s.PureFor("inc"); len(got) != 0 {
		t.Errorf("PureFor(inc) = %v, want reuse of the body's read", got)
	}
}
