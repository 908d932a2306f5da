package compiler

import (
	"fmt"

	"github.com/chazu/graphc/pkg/bytecode"
)

// lower translates statements into the assembler's instruction form,
// building the import and type tables as it goes.
func lower(name string, code *Code, a *Allocator) (*bytecode.Unit, error) {
	u := &bytecode.Unit{
		Name:      name,
		Constants: a.Constants,
		Members:   a.Members,
		Params:    a.Params,
		Results:   a.Results,
		Locals:    a.Locals,
		Entries:   code.Entries,
	}
	imports := make(map[string]uint16)
	typeIndex := make(map[string]uint16)
	internType := func(s string) uint16 {
		if i, ok := typeIndex[s]; ok {
			return i
		}
		i := uint16(len(u.Types))
		typeIndex[s] = i
		u.Types = append(u.Types, s)
		return i
	}

	for i := range code.Statements {
		s := &code.Statements[i]
		in := bytecode.Instr{Node: string(s.Node), Target: bytecode.NoLabel}
		switch s.Kind {
		case StmtNop:
			in.Op = bytecode.OpNop
		case StmtLabel:
			in.Op, in.Target = bytecode.OpLabel, s.Target
		case StmtCall:
			idx, ok := imports[s.Function]
			if !ok {
				idx = uint16(len(u.Imports))
				imports[s.Function] = idx
				u.Imports = append(u.Imports, s.Function)
			}
			in.Op, in.Import = bytecode.OpCall, idx
			in.Args = operands(s.Args)
			in.Results = operands(s.Results)
		case StmtAssign:
			in.Op, in.Args = bytecode.OpAssign, operands(s.Args)
		case StmtConvert:
			in.Op, in.Args = bytecode.OpConvert, operands(s.Args)
			in.From = internType(s.From.String())
			in.To = internType(s.To.String())
		case StmtJump:
			in.Op, in.Target = bytecode.OpJump, s.Target
		case StmtJumpIfNot:
			in.Op, in.Target = bytecode.OpJumpIfNot, s.Target
			in.Args = operands(s.Args)
		case StmtPushFlow:
			in.Op, in.Target = bytecode.OpPushFlow, s.Target
		case StmtPopFlow:
			in.Op = bytecode.OpPopFlow
		case StmtReturn:
			in.Op, in.Args = bytecode.OpReturn, operands(s.Args)
		default:
			return nil, fmt.Errorf("compiler: cannot lower %s statement", s.Kind)
		}
		u.Instrs = append(u.Instrs, in)
	}
	return u, nil
}

func operands(ts []*Terminal) []bytecode.Operand {
	if len(ts) == 0 {
		return nil
	}
	out := make([]bytecode.Operand, len(ts))
	for i, t := range ts {
		out[i] = t.Operand()
	}
	return out
}
