package bytecode

import (
	"strings"
	"testing"
)

func TestDisassemble(t *testing.T) {
	p, err := Assemble(loopUnit(), Width2)
	if err != nil {
		t.Fatal(err)
	}
	p.Hash = "abc123"
	out := p.Disassemble()

	for _, want := range []string{
		"; === loop ===",
		"2-byte offsets",
		"; hash  abc123",
		"[  0] less",
		"main @0000 (entry)",
		"ASSIGN l0 <- k0=0",
		"CALL less(l0, k1=3) -> (l1)",
		"JUMP_IF_NOT l1",
		"PUSH_FLOW",
		"RETURN r0 <- l0",
		"; header",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleTruncated(t *testing.T) {
	p := &Program{Name: "bad", OffsetWidth: 2, Code: []byte{byte(OpJump), 0x00}}
	if out := p.Disassemble(); !strings.Contains(out, "truncated") {
		t.Errorf("expected truncation note, got:\n%s", out)
	}
}
