package manifest

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/pkg/bytecode"
	"github.com/chazu/graphc/types"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.1.0"

[compile]
offset-width = "4"
max-expansions = 64
workers = 3

[[compile.promotions]]
from = "bool"
to = "byte"

[cache]
driver = "duckdb"
path = "build/programs.duckdb"

[[types.structs]]
name = "Hit"
fields = [{ name = "damage", type = "int32" }, { name = "at", type = "vector" }]

[[types.classes]]
name = "Actor"

[[types.classes]]
name = "Pawn"
parent = "Actor"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.Compile.MaxExpansions != 64 {
		t.Errorf("max-expansions = %d, want 64", m.Compile.MaxExpansions)
	}
	if m.Compile.Workers != 3 {
		t.Errorf("workers = %d, want 3", m.Compile.Workers)
	}
	if w, err := m.Width(); err != nil || w != bytecode.Width4 {
		t.Errorf("Width() = %v, %v; want 4", w, err)
	}
	if m.Cache.Driver != "duckdb" {
		t.Errorf("cache driver = %q, want duckdb", m.Cache.Driver)
	}
	if got, want := m.CachePath(), filepath.Join(m.Dir, "build", "programs.duckdb"); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}

	reg, err := m.TypeRegistry()
	if err != nil {
		t.Fatalf("TypeRegistry: %v", err)
	}
	hit, ok := reg.Struct("Hit")
	if !ok || len(hit.Fields) != 2 {
		t.Errorf("struct Hit = %v, want two fields", hit)
	}
	if !reg.IsSubclass("Pawn", "Actor") {
		t.Error("Pawn should be a subclass of Actor")
	}
	if !reg.PromotesTo(types.Bool, types.Byte) {
		t.Error("extra promotion bool -> byte not registered")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Compile.OffsetWidth != "auto" {
		t.Errorf("default offset-width = %q, want auto", m.Compile.OffsetWidth)
	}
	if m.Compile.Workers != runtime.NumCPU() {
		t.Errorf("default workers = %d, want %d", m.Compile.Workers, runtime.NumCPU())
	}
	if m.Cache.Driver != "sqlite" {
		t.Errorf("default cache driver = %q, want sqlite", m.Cache.Driver)
	}
	if got, want := m.CachePath(), filepath.Join(m.Dir, ".graphc", "cache.db"); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
}

func TestSchemaRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown section", "[source]\ndirs = [\"src\"]\n", "source"},
		{"bad width", "[compile]\noffset-width = \"8\"\n", "offset-width"},
		{"negative workers", "[compile]\nworkers = -1\n", "workers"},
		{"bad driver", "[cache]\ndriver = \"postgres\"\n", "driver"},
		{"unnamed struct", "[[types.structs]]\nfields = []\n", "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("Parse succeeded, want a schema error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestTypeRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field type", "[[types.structs]]\nname = \"S\"\nfields = [{ name = \"a\", type = \"struct<Missing>\" }]\n"},
		{"cyclic promotion", "[[compile.promotions]]\nfrom = \"double\"\nto = \"int32\"\n"},
		{"aggregate promotion", "[[compile.promotions]]\nfrom = \"array<int32>\"\nto = \"string\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.content))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if _, err := m.TypeRegistry(); err == nil {
				t.Error("TypeRegistry succeeded, want an error")
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[project]\nname = \"found-project\"\n")

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no graphc.toml exists")
	}
}

func TestMacrosAndOptions(t *testing.T) {
	dir := t.TempDir()
	mg := graph.NewBuilder("twice").
		Node("in", graph.KindMacroInput, nil, graph.Out("x", types.Int32)).
		PureCall("add", "add", graph.In("a", types.Int32), graph.In("b", types.Int32), graph.Out(graph.PinResult, types.Int32)).
		Node("out", graph.KindMacroOutput, nil, graph.In("y", types.Int32)).
		Link("in.x", "add.a").
		Link("in.x", "add.b").
		Link("add.result", "out.y").
		MustGraph()
	data, err := mg.ToDocument().EncodeJSON()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "macros"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "macros", "twice.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `
[compile]
offset-width = "2"

[macros]
double = "macros/twice.json"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := m.Options(nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.Width != bytecode.Width2 {
		t.Errorf("Width = %v, want 2", opts.Width)
	}
	if _, ok := opts.Macros.Lookup("double"); !ok {
		t.Errorf("macros = %v, want double", opts.Macros.Names())
	}

	m.Macros["missing"] = "macros/nope.json"
	if _, err := m.MacroLibrary(); err == nil {
		t.Error("MacroLibrary with a missing file should fail")
	}
}
