package bytecode

import "fmt"

// Opcode is a bytecode instruction. Opcodes are grouped into ranges by
// category.
type Opcode byte

const (
	// ========================================================================
	// No-op (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation

	// ========================================================================
	// Data movement (0x10-0x1F)
	// ========================================================================

	OpAssign  Opcode = 0x10 // dst <- src: OpAssign <dst:opnd> <src:opnd>
	OpConvert Opcode = 0x11 // dst <- convert(src): OpConvert <dst:opnd> <src:opnd> <from:u16> <to:u16>

	// ========================================================================
	// Calls (0x20-0x2F)
	// ========================================================================

	OpCall Opcode = 0x20 // OpCall <import:u16> <argc:u8> <args:opnd...> <resc:u8> <results:opnd...>

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpJump      Opcode = 0x80 // Unconditional jump: OpJump <offset:iW>
	OpJumpIfNot Opcode = 0x81 // Jump if operand is falsy: OpJumpIfNot <cond:opnd> <offset:iW>
	OpPushFlow  Opcode = 0x82 // Push continuation: OpPushFlow <offset:iW>
	OpPopFlow   Opcode = 0x83 // Resume innermost continuation, or return when none

	// ========================================================================
	// Return (0xF0-0xFD)
	// ========================================================================

	OpReturn Opcode = 0xF0 // OpReturn <n:u8> (<dst:opnd> <src:opnd>)*n

	// ========================================================================
	// Assembler pseudo-instructions (0xFE-0xFF). Never encoded.
	// ========================================================================

	OpLabel Opcode = 0xFE // Zero-width jump target
)

// Operand lengths that depend on the instruction.
const (
	OperandVariable = -1 // length decoded from counts in the operands
	OperandOffset   = -2 // a single jump offset of the program's width
)

// OperandSize is the encoded size of one terminal operand: class byte plus
// a u16 slot index.
const OperandSize = 3

// OpcodeInfo provides metadata about each opcode.
type OpcodeInfo struct {
	Name       string // Human-readable name
	OperandLen int    // Fixed operand bytes, or OperandVariable / OperandOffset
	Operands   int    // Terminal operands before the offset, for jumps
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0, 0},

	OpAssign:  {"ASSIGN", 2 * OperandSize, 2},
	OpConvert: {"CONVERT", 2*OperandSize + 4, 2},

	OpCall: {"CALL", OperandVariable, 0},

	OpJump:      {"JUMP", OperandOffset, 0},
	OpJumpIfNot: {"JUMP_IF_NOT", OperandOffset, 1},
	OpPushFlow:  {"PUSH_FLOW", OperandOffset, 0},
	OpPopFlow:   {"POP_FLOW", 0, 0},

	OpReturn: {"RETURN", OperandVariable, 0},

	OpLabel: {"LABEL", 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsJump reports whether op carries a jump offset.
func (op Opcode) IsJump() bool {
	return GetOpcodeInfo(op).OperandLen == OperandOffset
}

// IsPseudo reports whether op exists only in the assembler's input.
func (op Opcode) IsPseudo() bool {
	return op >= OpLabel
}

// AllOpcodes returns every defined opcode.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// Class identifies the storage a terminal operand refers to.
type Class byte

const (
	ClassParam  Class = 0x00
	ClassResult Class = 0x01
	ClassLocal  Class = 0x02
	ClassMember Class = 0x03
	ClassConst  Class = 0x04
)

var classPrefix = map[Class]string{
	ClassParam:  "p",
	ClassResult: "r",
	ClassLocal:  "l",
	ClassMember: "m",
	ClassConst:  "k",
}

func (c Class) String() string {
	if p, ok := classPrefix[c]; ok {
		return p
	}
	return fmt.Sprintf("class(0x%02X)", byte(c))
}

// Operand is an encoded terminal reference.
type Operand struct {
	Class Class
	Index uint16
}

func (o Operand) String() string {
	return fmt.Sprintf("%s%d", o.Class, o.Index)
}
