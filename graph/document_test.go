package graph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDocumentRoundTrip(t *testing.T) {
	g := sampleGraph(t)
	doc := g.ToDocument()

	codecs := []struct {
		name   string
		encode func(*Document) ([]byte, error)
		decode func([]byte) (*Document, error)
	}{
		{"json", (*Document).EncodeJSON, DecodeJSON},
		{"cbor", (*Document).EncodeCBOR, DecodeCBOR},
	}
	for _, c := range codecs {
		t.Run(c.name, func(t *testing.T) {
			data, err := c.encode(doc)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			back, err := c.decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			g2, err := FromDocument(back)
			if err != nil {
				t.Fatalf("FromDocument: %v", err)
			}
			if err := g2.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if g2.NodeCount() != g.NodeCount() {
				t.Errorf("NodeCount = %d, want %d", g2.NodeCount(), g.NodeCount())
			}
			lit := g2.Pin("two.value")
			if lit == nil || !lit.HasDefault || lit.Default != "2" {
				t.Errorf("two.value default lost: %+v", lit)
			}
			if ret := g2.Pin("ret.value"); ret.Role != RoleResult {
				t.Errorf("ret.value role = %v, want result", ret.Role)
			}
		})
	}
}

func TestCBOREncodingIsDeterministic(t *testing.T) {
	a, err := sampleGraph(t).ToDocument().EncodeCBOR()
	if err != nil {
		t.Fatal(err)
	}
	b, err := sampleGraph(t).ToDocument().EncodeCBOR()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("canonical CBOR encoding differs between identical graphs")
	}
}

func TestFromDocumentKeepsAsymmetricLinks(t *testing.T) {
	def := "1"
	doc := &Document{
		Name: "bad",
		Nodes: []NodeRecord{
			{ID: "a", Kind: "literal", Pins: []string{"a.value"}},
			{ID: "b", Kind: "call", Pins: []string{"b.x"}},
		},
		Pins: []PinRecord{
			{ID: "a.value", Name: "value", Direction: "out", Kind: "data", Type: "int32", Default: &def, Links: []string{"b.x"}},
			{ID: "b.x", Name: "x", Direction: "in", Kind: "data", Type: "int32"},
		},
	}
	g, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	var se *StructuralError
	if err := g.Validate(); !errors.As(err, &se) {
		t.Errorf("Validate() = %v, want StructuralError", err)
	}
}

func TestFromDocumentErrors(t *testing.T) {
	tests := []*Document{
		{Nodes: []NodeRecord{{ID: "a", Pins: []string{"a.x"}}}},
		{Nodes: []NodeRecord{{ID: "a", Pins: []string{"a.x"}}}, Pins: []PinRecord{{ID: "a.x", Direction: "sideways"}}},
		{Nodes: []NodeRecord{{ID: "a", Pins: []string{"a.x"}}}, Pins: []PinRecord{{ID: "a.x", Direction: "in", Type: "int"}}},
		{Nodes: []NodeRecord{{ID: "a"}, {ID: "a"}}},
	}
	for i, doc := range tests {
		if _, err := FromDocument(doc); err == nil {
			t.Errorf("case %d: FromDocument succeeded, want error", i)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	data, err := sampleGraph(t).ToDocument().EncodeJSON()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "adder.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if g.Name() != "sample" {
		t.Errorf("Name() = %q, want sample", g.Name())
	}
}
