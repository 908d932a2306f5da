package bytecode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chazu/graphc/symbols"
	"github.com/chazu/graphc/types"
)

// DefaultMaxSteps bounds how many instructions Run executes.
const DefaultMaxSteps = 1 << 20

// ErrStepLimit is returned when a run exceeds its step budget.
var ErrStepLimit = errors.New("bytecode: step limit exceeded")

// Machine is a reference interpreter for programs. It links imports
// against a function registry once, then runs entries. A Machine is not
// safe for concurrent use.
type Machine struct {
	prog    *Program
	natives []symbols.NativeFunc
	types   []types.Type
	reg     *types.Registry

	Members  map[string]types.Value
	MaxSteps int
	// Trace, when set, receives every executed instruction.
	Trace func(pc int, op Opcode)

	frame frame
}

type frame struct {
	params  []types.Value
	results []types.Value
	locals  []types.Value
	flow    []int
	pc      int
}

// NewMachine links p against fns. Every import must resolve. reg supplies
// struct and class definitions for zero values and conversions; nil means
// an empty registry.
func NewMachine(p *Program, fns *symbols.Registry, reg *types.Registry) (*Machine, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = types.NewRegistry()
	}
	m := &Machine{
		prog:     p,
		reg:      reg,
		Members:  make(map[string]types.Value),
		MaxSteps: DefaultMaxSteps,
	}
	for _, name := range p.Imports {
		f, ok := fns.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("bytecode: unresolved import %q", name)
		}
		m.natives = append(m.natives, f.Impl)
	}
	for _, s := range p.Types {
		t, err := types.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("bytecode: type table: %w", err)
		}
		m.types = append(m.types, t)
	}
	return m, nil
}

// Run executes the named entry with args bound to its parameters and
// returns the result slots.
func (m *Machine) Run(ctx context.Context, entry string, args ...types.Value) ([]types.Value, error) {
	e, ok := m.prog.Entry(entry)
	if !ok {
		return nil, fmt.Errorf("bytecode: no entry %q in %s", entry, m.prog.Name)
	}
	if len(args) != len(e.Params) {
		return nil, fmt.Errorf("bytecode: entry %s takes %d arguments, got %d", entry, len(e.Params), len(args))
	}
	var err error
	m.frame = frame{pc: e.Offset}
	if m.frame.params, err = m.zeroSlots(m.prog.Params); err != nil {
		return nil, err
	}
	if m.frame.results, err = m.zeroSlots(m.prog.Results); err != nil {
		return nil, err
	}
	if m.frame.locals, err = m.zeroSlots(m.prog.Locals); err != nil {
		return nil, err
	}
	for i, slot := range e.Params {
		m.frame.params[slot] = args[i]
	}
	return m.run(ctx)
}

func (m *Machine) zeroSlots(slots []Slot) ([]types.Value, error) {
	out := make([]types.Value, len(slots))
	for i, s := range slots {
		t, err := types.Parse(s.Type)
		if err != nil {
			return nil, fmt.Errorf("bytecode: slot %s: %w", s.Name, err)
		}
		out[i] = m.reg.Zero(t)
	}
	return out, nil
}

func (m *Machine) run(ctx context.Context) ([]types.Value, error) {
	code := m.prog.Code
	width := m.prog.OffsetWidth
	f := &m.frame
	for steps := 0; ; steps++ {
		if steps >= m.MaxSteps {
			return nil, ErrStepLimit
		}
		if steps&0xFFF == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if f.pc >= len(code) {
			return f.results, nil
		}
		at := f.pc
		n, err := InstrLen(code, at, width)
		if err != nil {
			return nil, err
		}
		op := Opcode(code[at])
		if m.Trace != nil {
			m.Trace(at, op)
		}
		pos := at + 1
		f.pc = at + n

		switch op {
		case OpNop:

		case OpAssign:
			v, err := m.read(readOperand(code, pos+OperandSize))
			if err != nil {
				return nil, err
			}
			if err := m.write(readOperand(code, pos), v); err != nil {
				return nil, err
			}

		case OpConvert:
			v, err := m.read(readOperand(code, pos+OperandSize))
			if err != nil {
				return nil, err
			}
			from := binary.BigEndian.Uint16(code[pos+2*OperandSize:])
			to := binary.BigEndian.Uint16(code[pos+2*OperandSize+2:])
			if int(from) >= len(m.types) || int(to) >= len(m.types) {
				return nil, fmt.Errorf("bytecode: convert at %04X: bad type index", at)
			}
			cv, err := m.reg.ConvertValue(v, m.types[from], m.types[to])
			if err != nil {
				return nil, fmt.Errorf("bytecode: convert at %04X: %w", at, err)
			}
			if err := m.write(readOperand(code, pos), cv); err != nil {
				return nil, err
			}

		case OpCall:
			if err := m.call(code, at); err != nil {
				return nil, err
			}

		case OpJump:
			f.pc = pos + width + readOffset(code, pos, width)

		case OpJumpIfNot:
			cond, err := m.read(readOperand(code, pos))
			if err != nil {
				return nil, err
			}
			pos += OperandSize
			if !cond.Truthy() {
				f.pc = pos + width + readOffset(code, pos, width)
			}

		case OpPushFlow:
			f.flow = append(f.flow, pos+width+readOffset(code, pos, width))

		case OpPopFlow:
			if len(f.flow) == 0 {
				return f.results, nil
			}
			f.pc = f.flow[len(f.flow)-1]
			f.flow = f.flow[:len(f.flow)-1]

		case OpReturn:
			count := int(code[pos])
			pos++
			for i := 0; i < count; i++ {
				v, err := m.read(readOperand(code, pos+OperandSize))
				if err != nil {
					return nil, err
				}
				if err := m.write(readOperand(code, pos), v); err != nil {
					return nil, err
				}
				pos += 2 * OperandSize
			}
			return f.results, nil

		default:
			return nil, fmt.Errorf("bytecode: cannot execute %s at %04X", op, at)
		}
	}
}

func (m *Machine) call(code []byte, at int) error {
	pos := at + 1
	imp := binary.BigEndian.Uint16(code[pos:])
	pos += 2
	if int(imp) >= len(m.natives) {
		return fmt.Errorf("bytecode: call at %04X: bad import %d", at, imp)
	}
	argc := int(code[pos])
	pos++
	args := make([]types.Value, argc)
	for i := range args {
		v, err := m.read(readOperand(code, pos))
		if err != nil {
			return err
		}
		args[i] = v
		pos += OperandSize
	}
	out, err := m.natives[imp](args)
	if err != nil {
		return fmt.Errorf("bytecode: call %s at %04X: %w", m.prog.Imports[imp], at, err)
	}
	resc := int(code[pos])
	pos++
	if len(out) < resc {
		return fmt.Errorf("bytecode: call %s at %04X: %d results, want %d", m.prog.Imports[imp], at, len(out), resc)
	}
	for i := 0; i < resc; i++ {
		if err := m.write(readOperand(code, pos), out[i]); err != nil {
			return err
		}
		pos += OperandSize
	}
	return nil
}

func (m *Machine) read(o Operand) (types.Value, error) {
	f := &m.frame
	i := int(o.Index)
	switch o.Class {
	case ClassParam:
		if i < len(f.params) {
			return f.params[i], nil
		}
	case ClassResult:
		if i < len(f.results) {
			return f.results[i], nil
		}
	case ClassLocal:
		if i < len(f.locals) {
			return f.locals[i], nil
		}
	case ClassMember:
		if i < len(m.prog.Members) {
			return m.Members[m.prog.Members[i]], nil
		}
	case ClassConst:
		if i < len(m.prog.Constants) {
			return m.prog.Constants[i], nil
		}
	}
	return types.Value{}, fmt.Errorf("bytecode: operand %s out of range", o)
}

func (m *Machine) write(o Operand, v types.Value) error {
	f := &m.frame
	i := int(o.Index)
	switch o.Class {
	case ClassParam:
		if i < len(f.params) {
			f.params[i] = v
			return nil
		}
	case ClassResult:
		if i < len(f.results) {
			f.results[i] = v
			return nil
		}
	case ClassLocal:
		if i < len(f.locals) {
			f.locals[i] = v
			return nil
		}
	case ClassMember:
		if i < len(m.prog.Members) {
			m.Members[m.prog.Members[i]] = v
			return nil
		}
	case ClassConst:
		return fmt.Errorf("bytecode: cannot write constant %s", o)
	}
	return fmt.Errorf("bytecode: operand %s out of range", o)
}
