package bytecode

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", p.Name))
	sb.WriteString(fmt.Sprintf("; graphc bytecode v%d, %d-byte offsets\n", p.Version, p.OffsetWidth))
	if p.Hash != "" {
		sb.WriteString(fmt.Sprintf("; hash  %s\n", p.Hash))
	}
	if p.Build != "" {
		sb.WriteString(fmt.Sprintf("; build %s\n", p.Build))
	}
	sb.WriteString(fmt.Sprintf("; Slots: %d params, %d results, %d locals\n", len(p.Params), len(p.Results), len(p.Locals)))
	sb.WriteString("\n")

	if len(p.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range p.Constants {
			display := c.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s %s\n", i, c.Kind, display))
		}
		sb.WriteString("\n")
	}
	if len(p.Imports) > 0 {
		sb.WriteString("; Imports:\n")
		for i, name := range p.Imports {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, name))
		}
		sb.WriteString("\n")
	}
	if len(p.Members) > 0 {
		sb.WriteString("; Members:\n")
		for i, name := range p.Members {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, name))
		}
		sb.WriteString("\n")
	}
	if len(p.Entries) > 0 {
		sb.WriteString("; Entries:\n")
		for _, e := range p.Entries {
			sb.WriteString(fmt.Sprintf(";   %s @%04X (%s)\n", e.Name, e.Offset, e.Node))
		}
		sb.WriteString("\n")
	}

	nodesAt := make(map[int][]string)
	for node, off := range p.Symbols {
		nodesAt[off] = append(nodesAt[off], node)
	}

	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(p.Code) {
		if nodes := nodesAt[offset]; len(nodes) > 0 {
			sort.Strings(nodes)
			sb.WriteString(fmt.Sprintf("      ; %s\n", strings.Join(nodes, ", ")))
		}
		line, n := p.disassembleInstruction(offset)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		if n == 0 {
			break
		}
		offset += n
	}
	return sb.String()
}

// disassembleInstruction formats the instruction at offset and returns its
// length, or 0 when the code cannot be decoded further.
func (p *Program) disassembleInstruction(offset int) (string, int) {
	n, err := InstrLen(p.Code, offset, p.OffsetWidth)
	if err != nil {
		return fmt.Sprintf("<%v>", err), 0
	}
	op := Opcode(p.Code[offset])
	pos := offset + 1

	switch op {
	case OpNop, OpPopFlow:
		return op.String(), n

	case OpAssign:
		dst, src := readOperand(p.Code, pos), readOperand(p.Code, pos+OperandSize)
		return fmt.Sprintf("ASSIGN %s <- %s", p.operand(dst), p.operand(src)), n

	case OpConvert:
		dst, src := readOperand(p.Code, pos), readOperand(p.Code, pos+OperandSize)
		from := binary.BigEndian.Uint16(p.Code[pos+2*OperandSize:])
		to := binary.BigEndian.Uint16(p.Code[pos+2*OperandSize+2:])
		return fmt.Sprintf("CONVERT %s <- %s (%s -> %s)", p.operand(dst), p.operand(src), p.typeName(from), p.typeName(to)), n

	case OpCall:
		imp := binary.BigEndian.Uint16(p.Code[pos:])
		name := fmt.Sprintf("import(%d)", imp)
		if int(imp) < len(p.Imports) {
			name = p.Imports[imp]
		}
		pos += 2
		args := p.operandList(&pos)
		results := p.operandList(&pos)
		return fmt.Sprintf("CALL %s(%s) -> (%s)", name, args, results), n

	case OpReturn:
		count := int(p.Code[pos])
		pos++
		pairs := make([]string, 0, count)
		for i := 0; i < count; i++ {
			dst, src := readOperand(p.Code, pos), readOperand(p.Code, pos+OperandSize)
			pos += 2 * OperandSize
			pairs = append(pairs, fmt.Sprintf("%s <- %s", p.operand(dst), p.operand(src)))
		}
		if len(pairs) == 0 {
			return "RETURN", n
		}
		return "RETURN " + strings.Join(pairs, ", "), n

	case OpJump, OpPushFlow:
		delta := readOffset(p.Code, pos, p.OffsetWidth)
		return fmt.Sprintf("%s %+d ; -> %04X", op, delta, pos+p.OffsetWidth+delta), n

	case OpJumpIfNot:
		cond := readOperand(p.Code, pos)
		pos += OperandSize
		delta := readOffset(p.Code, pos, p.OffsetWidth)
		return fmt.Sprintf("JUMP_IF_NOT %s %+d ; -> %04X", p.operand(cond), delta, pos+p.OffsetWidth+delta), n
	}
	return op.String(), n
}

func (p *Program) operandList(pos *int) string {
	count := int(p.Code[*pos])
	*pos++
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		parts = append(parts, p.operand(readOperand(p.Code, *pos)))
		*pos += OperandSize
	}
	return strings.Join(parts, ", ")
}

func (p *Program) operand(o Operand) string {
	switch o.Class {
	case ClassConst:
		if int(o.Index) < len(p.Constants) {
			return fmt.Sprintf("%s=%s", o, p.Constants[o.Index])
		}
	case ClassMember:
		if int(o.Index) < len(p.Members) {
			return fmt.Sprintf("%s(%s)", o, p.Members[o.Index])
		}
	}
	return o.String()
}

func (p *Program) typeName(i uint16) string {
	if int(i) < len(p.Types) {
		return p.Types[i]
	}
	return fmt.Sprintf("type(%d)", i)
}
