package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "NOP"},
		{OpAssign, "ASSIGN"},
		{OpConvert, "CONVERT"},
		{OpCall, "CALL"},
		{OpJump, "JUMP"},
		{OpJumpIfNot, "JUMP_IF_NOT"},
		{OpPushFlow, "PUSH_FLOW"},
		{OpPopFlow, "POP_FLOW"},
		{OpReturn, "RETURN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	got := Opcode(0xEE).String()
	if !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
}

func TestOpcodeCategories(t *testing.T) {
	for _, op := range []Opcode{OpJump, OpJumpIfNot, OpPushFlow} {
		if !op.IsJump() {
			t.Errorf("%s.IsJump() = false", op)
		}
	}
	for _, op := range []Opcode{OpNop, OpCall, OpPopFlow, OpReturn} {
		if op.IsJump() {
			t.Errorf("%s.IsJump() = true", op)
		}
	}
	if !OpLabel.IsPseudo() || OpReturn.IsPseudo() {
		t.Error("only OpLabel is a pseudo-instruction")
	}
}

func TestOperandString(t *testing.T) {
	tests := []struct {
		o    Operand
		want string
	}{
		{Operand{ClassParam, 0}, "p0"},
		{Operand{ClassResult, 1}, "r1"},
		{Operand{ClassLocal, 12}, "l12"},
		{Operand{ClassMember, 3}, "m3"},
		{Operand{ClassConst, 7}, "k7"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.o, got, tt.want)
		}
	}
}
