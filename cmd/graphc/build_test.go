package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chazu/graphc/compiler"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/store"
	"github.com/chazu/graphc/types"
)

func unit(name string) *graph.Graph {
	return graph.NewBuilder(name).
		Entry("entry", "main", graph.Param("n", types.Int32)).
		Return("ret", graph.Result("value", types.Int32)).
		Link("entry.then", "ret.exec").
		Link("entry.n", "ret.value").
		MustGraph()
}

func TestBuildUsesCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	b := &builder{opts: compiler.Options{Workers: 2}, driver: store.DriverSQLite, cachePath: path}
	units := []*graph.Graph{unit("a"), unit("b")}

	first, err := b.build(ctx, units)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.build(ctx, units)
	if err != nil {
		t.Fatal(err)
	}
	for i := range units {
		if first[i].Err != nil || second[i].Err != nil {
			t.Fatalf("unit %d: %v / %v", i, first[i].Err, second[i].Err)
		}
		if first[i].Program.Build != second[i].Program.Build {
			t.Errorf("unit %d: cached build %s, want %s", i, second[i].Program.Build, first[i].Program.Build)
		}
	}

	s, err := store.Open(store.DriverSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Programs != 2 {
		t.Errorf("cached programs = %d, want 2", st.Programs)
	}
}

func TestBuildWithoutCache(t *testing.T) {
	b := &builder{opts: compiler.Options{}}
	results, err := b.build(context.Background(), []*graph.Graph{unit("solo")})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Program == nil {
		t.Errorf("results = %+v, want one program", results)
	}
}

func mixedUnit() *graph.Graph {
	return graph.NewBuilder("mixed").
		Entry("entry", "main").
		Literal("big", types.Int64, "4").
		Literal("half", types.Float, "0.5").
		PureCall("add", "add", graph.In("a", types.Wildcard), graph.In("b", types.Wildcard), graph.Out(graph.PinResult, types.Wildcard)).
		Return("ret", graph.Result("value", types.Wildcard)).
		Link("entry.then", "ret.exec").
		Link("big.value", "add.a").
		Link("half.value", "add.b").
		Link("add.result", "ret.value").
		MustGraph()
}

func TestBuildCacheMissesWhenRegistryChanges(t *testing.T) {
	ctx := context.Background()
	reg := types.NewRegistry()
	b := &builder{
		opts:      compiler.Options{Types: reg},
		driver:    store.DriverSQLite,
		cachePath: filepath.Join(t.TempDir(), "cache.db"),
	}
	units := []*graph.Graph{mixedUnit()}

	first, err := b.build(ctx, units)
	if err != nil || first[0].Err != nil {
		t.Fatalf("build: %v / %v", err, first[0].Err)
	}
	if got := first[0].Program.Results; len(got) != 1 || got[0].Type != "double" {
		t.Fatalf("Results = %v, want one double slot", got)
	}

	if err := reg.AddPromotion(types.Int64, types.Float); err != nil {
		t.Fatal(err)
	}
	second, err := b.build(ctx, units)
	if err != nil || second[0].Err != nil {
		t.Fatalf("rebuild: %v / %v", err, second[0].Err)
	}
	if got := second[0].Program.Results; len(got) != 1 || got[0].Type != "float" {
		t.Errorf("Results = %v, want a fresh float slot after the promotion change", got)
	}
}
