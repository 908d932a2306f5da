package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/graphc/types"
)

// Label names a position in the instruction stream.
type Label int

// NoLabel marks an instruction without a jump target.
const NoLabel Label = -1

// Width selects the byte width of jump offsets.
type Width int

const (
	WidthAuto Width = 0 // two bytes, four when a jump does not fit
	Width2    Width = 2
	Width4    Width = 4
)

// ParseWidth reads "auto", "2" or "4".
func ParseWidth(s string) (Width, error) {
	switch s {
	case "", "auto":
		return WidthAuto, nil
	case "2":
		return Width2, nil
	case "4":
		return Width4, nil
	}
	return 0, fmt.Errorf("bytecode: invalid offset width %q", s)
}

func (w Width) String() string {
	if w == WidthAuto {
		return "auto"
	}
	return fmt.Sprintf("%d", int(w))
}

// Instr is one abstract instruction given to the assembler.
//
// Assign and Convert take Args [dst, src]; JumpIfNot takes Args [cond];
// Call takes Args and Results; Return takes Args as dst, src pairs. Label
// defines Target for OpLabel and names the destination of jumps.
type Instr struct {
	Op      Opcode
	Node    string
	Target  Label
	Import  uint16
	From    uint16
	To      uint16
	Args    []Operand
	Results []Operand
}

// Unit is the assembler's input: an instruction stream plus the tables its
// operands index. The tables are copied into the program unchanged.
type Unit struct {
	Name      string
	Instrs    []Instr
	Constants []types.Value
	Types     []string
	Imports   []string
	Members   []string
	Params    []Slot
	Results   []Slot
	Locals    []Slot
	Entries   []Entry
}

// EncodingError reports a unit that cannot be assembled. It is fatal for
// the unit.
type EncodingError struct {
	Unit    string
	Message string
	// Overflow is set when a jump offset exceeded the chosen width.
	Overflow bool
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error in %s: %s", e.Unit, e.Message)
}

// Assemble encodes a unit. With WidthAuto the unit is first assembled with
// two-byte offsets and retried with four when a jump overflows.
func Assemble(u *Unit, width Width) (*Program, error) {
	switch width {
	case WidthAuto:
		p, err := assemble(u, 2)
		var ee *EncodingError
		if errors.As(err, &ee) && ee.Overflow {
			return assemble(u, 4)
		}
		return p, err
	case Width2, Width4:
		return assemble(u, int(width))
	}
	return nil, fmt.Errorf("bytecode: invalid offset width %d", int(width))
}

type fixup struct {
	at    int // position of the placeholder
	label Label
}

type assembler struct {
	unit    string
	width   int
	code    []byte
	labels  map[Label]int
	fixups  []fixup
	symbols map[string]int
}

func assemble(u *Unit, width int) (*Program, error) {
	return newAssembler(u.Name, width).assemble(u)
}

func newAssembler(unit string, width int) *assembler {
	return &assembler{
		unit:    unit,
		width:   width,
		labels:  make(map[Label]int),
		symbols: make(map[string]int),
	}
}

func (a *assembler) assemble(u *Unit) (*Program, error) {
	a.code = make([]byte, 0, 16*len(u.Instrs))
	if err := a.check(u); err != nil {
		return nil, err
	}
	for i := range u.Instrs {
		if err := a.emit(&u.Instrs[i]); err != nil {
			return nil, err
		}
	}
	if err := a.patch(); err != nil {
		return nil, err
	}

	p := &Program{
		Version:     ProgramVersion,
		Name:        u.Name,
		OffsetWidth: a.width,
		Code:        a.code,
		Constants:   u.Constants,
		Types:       u.Types,
		Imports:     u.Imports,
		Members:     u.Members,
		Params:      u.Params,
		Results:     u.Results,
		Locals:      u.Locals,
		Symbols:     a.symbols,
	}
	for _, e := range u.Entries {
		off, ok := a.labels[e.Label]
		if !ok {
			return nil, a.errorf(false, "entry %s has no label", e.Name)
		}
		e.Offset = off
		p.Entries = append(p.Entries, e)
	}
	return p, nil
}

func (a *assembler) errorf(overflow bool, format string, args ...interface{}) *EncodingError {
	return &EncodingError{Unit: a.unit, Message: fmt.Sprintf(format, args...), Overflow: overflow}
}

// check rejects tables whose indices do not fit the operand encoding.
func (a *assembler) check(u *Unit) error {
	tables := []struct {
		name string
		n    int
	}{
		{"constants", len(u.Constants)},
		{"types", len(u.Types)},
		{"imports", len(u.Imports)},
		{"members", len(u.Members)},
		{"parameters", len(u.Params)},
		{"results", len(u.Results)},
		{"locals", len(u.Locals)},
	}
	for _, t := range tables {
		if t.n > math.MaxUint16+1 {
			return a.errorf(false, "program too large: %d %s", t.n, t.name)
		}
	}
	return nil
}

func (a *assembler) mark(node string) {
	if node == "" {
		return
	}
	if _, seen := a.symbols[node]; !seen {
		a.symbols[node] = len(a.code)
	}
}

// emit is pass one: append the encoding, leaving placeholders for jumps to
// labels not yet placed.
func (a *assembler) emit(in *Instr) error {
	a.mark(in.Node)
	switch in.Op {
	case OpLabel:
		if _, dup := a.labels[in.Target]; dup {
			return a.errorf(false, "label L%d defined twice", in.Target)
		}
		a.labels[in.Target] = len(a.code)
		return nil

	case OpNop, OpPopFlow:
		a.code = append(a.code, byte(in.Op))

	case OpAssign:
		if len(in.Args) != 2 {
			return a.errorf(false, "%s needs 2 operands, got %d", in.Op, len(in.Args))
		}
		a.code = append(a.code, byte(in.Op))
		a.operands(in.Args...)

	case OpConvert:
		if len(in.Args) != 2 {
			return a.errorf(false, "%s needs 2 operands, got %d", in.Op, len(in.Args))
		}
		a.code = append(a.code, byte(in.Op))
		a.operands(in.Args...)
		a.code = binary.BigEndian.AppendUint16(a.code, in.From)
		a.code = binary.BigEndian.AppendUint16(a.code, in.To)

	case OpCall:
		if len(in.Args) > math.MaxUint8 || len(in.Results) > math.MaxUint8 {
			return a.errorf(false, "call has too many operands")
		}
		a.code = append(a.code, byte(in.Op))
		a.code = binary.BigEndian.AppendUint16(a.code, in.Import)
		a.code = append(a.code, byte(len(in.Args)))
		a.operands(in.Args...)
		a.code = append(a.code, byte(len(in.Results)))
		a.operands(in.Results...)

	case OpReturn:
		if len(in.Args)%2 != 0 || len(in.Args)/2 > math.MaxUint8 {
			return a.errorf(false, "return needs dst, src pairs")
		}
		a.code = append(a.code, byte(in.Op), byte(len(in.Args)/2))
		a.operands(in.Args...)

	case OpJump, OpPushFlow:
		a.code = append(a.code, byte(in.Op))
		return a.offset(in.Target)

	case OpJumpIfNot:
		if len(in.Args) != 1 {
			return a.errorf(false, "%s needs a condition operand", in.Op)
		}
		a.code = append(a.code, byte(in.Op))
		a.operands(in.Args...)
		return a.offset(in.Target)

	default:
		return a.errorf(false, "cannot encode opcode %s", in.Op)
	}
	return nil
}

func (a *assembler) operands(ops ...Operand) {
	for _, o := range ops {
		a.code = append(a.code, byte(o.Class))
		a.code = binary.BigEndian.AppendUint16(a.code, o.Index)
	}
}

// offset writes the jump distance to target. Backward targets are known
// and encoded directly; forward targets get a placeholder and a fixup.
func (a *assembler) offset(target Label) error {
	at := len(a.code)
	if dest, placed := a.labels[target]; placed {
		a.code = append(a.code, make([]byte, a.width)...)
		return a.put(at, dest-(at+a.width))
	}
	for i := 0; i < a.width; i++ {
		a.code = append(a.code, 0xFF)
	}
	a.fixups = append(a.fixups, fixup{at: at, label: target})
	return nil
}

// patch is pass two: resolve every recorded fixup.
func (a *assembler) patch() error {
	for _, f := range a.fixups {
		dest, ok := a.labels[f.label]
		if !ok {
			return a.errorf(false, "jump to undefined label L%d", f.label)
		}
		if err := a.put(f.at, dest-(f.at+a.width)); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) put(at, delta int) error {
	switch a.width {
	case 2:
		if delta < math.MinInt16 || delta > math.MaxInt16 {
			return a.errorf(true, "program too large: jump of %d bytes exceeds 2-byte offsets", delta)
		}
		binary.BigEndian.PutUint16(a.code[at:], uint16(int16(delta)))
	case 4:
		if delta < math.MinInt32 || delta > math.MaxInt32 {
			return a.errorf(true, "program too large: jump of %d bytes exceeds 4-byte offsets", delta)
		}
		binary.BigEndian.PutUint32(a.code[at:], uint32(int32(delta)))
	}
	return nil
}

// readOffset decodes a jump offset of the given width at pos.
func readOffset(code []byte, pos, width int) int {
	if width == 4 {
		return int(int32(binary.BigEndian.Uint32(code[pos:])))
	}
	return int(int16(binary.BigEndian.Uint16(code[pos:])))
}

func readOperand(code []byte, pos int) Operand {
	return Operand{Class: Class(code[pos]), Index: binary.BigEndian.Uint16(code[pos+1:])}
}

// InstrLen returns the encoded length of the instruction at pos.
func InstrLen(code []byte, pos, width int) (int, error) {
	if pos >= len(code) {
		return 0, fmt.Errorf("bytecode: offset %d past end of code", pos)
	}
	op := Opcode(code[pos])
	info := GetOpcodeInfo(op)
	var n int
	switch info.OperandLen {
	case OperandOffset:
		n = 1 + info.Operands*OperandSize + width
	case OperandVariable:
		switch op {
		case OpCall:
			if pos+4 > len(code) {
				return 0, fmt.Errorf("bytecode: truncated call at %d", pos)
			}
			argc := int(code[pos+3])
			rp := pos + 4 + argc*OperandSize
			if rp >= len(code) {
				return 0, fmt.Errorf("bytecode: truncated call at %d", pos)
			}
			n = 4 + argc*OperandSize + 1 + int(code[rp])*OperandSize
		case OpReturn:
			if pos+1 >= len(code) {
				return 0, fmt.Errorf("bytecode: truncated return at %d", pos)
			}
			n = 2 + int(code[pos+1])*2*OperandSize
		}
	default:
		if _, known := opcodeInfoTable[op]; !known || op.IsPseudo() {
			return 0, fmt.Errorf("bytecode: invalid opcode 0x%02X at %d", byte(op), pos)
		}
		n = 1 + info.OperandLen
	}
	if pos+n > len(code) {
		return 0, fmt.Errorf("bytecode: truncated %s at %d", op, pos)
	}
	return n, nil
}
