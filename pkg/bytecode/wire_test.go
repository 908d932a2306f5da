package bytecode

import (
	"bytes"
	"testing"
)

func TestProgramCBORRoundTrip(t *testing.T) {
	p, err := Assemble(loopUnit(), Width2)
	if err != nil {
		t.Fatal(err)
	}
	p.Hash, p.Build = "deadbeef", "00000000-0000-5000-8000-000000000000"
	data, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := p.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("canonical encoding is not deterministic")
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(back.Code, p.Code) {
		t.Error("code differs after round trip")
	}
	if back.Hash != p.Hash || back.Build != p.Build || back.OffsetWidth != 2 {
		t.Errorf("header differs: %+v", back)
	}
	if len(back.Constants) != 3 || !back.Constants[1].Equal(p.Constants[1]) {
		t.Errorf("Constants = %v, want %v", back.Constants, p.Constants)
	}
	if off, _ := back.Symbol("inc"); off != p.Symbols["inc"] {
		t.Errorf("Symbol(inc) = %d, want %d", off, p.Symbols["inc"])
	}
	if e, ok := back.Entry("main"); !ok || e.Node != "entry" {
		t.Errorf("Entry(main) = %+v, %v", e, ok)
	}
}

func TestUnmarshalRejectsNewerVersion(t *testing.T) {
	p := &Program{Version: ProgramVersion + 1, OffsetWidth: 2}
	data, err := p.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Error("Unmarshal should reject a newer program version")
	}
}
