package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/pkg/bytecode"
	"github.com/chazu/graphc/types"
)

// StatementKind is the abstract operation of a statement.
type StatementKind uint8

const (
	StmtNop StatementKind = iota
	StmtCall
	StmtAssign
	StmtConvert
	StmtJump
	StmtJumpIfNot
	StmtReturn
	StmtPushFlow
	StmtPopFlow
	StmtLabel
)

var statementNames = [...]string{
	StmtNop:       "nop",
	StmtCall:      "call",
	StmtAssign:    "assign",
	StmtConvert:   "convert",
	StmtJump:      "jump",
	StmtJumpIfNot: "jump_if_not",
	StmtReturn:    "return",
	StmtPushFlow:  "push_flow",
	StmtPopFlow:   "pop_flow",
	StmtLabel:     "label",
}

func (k StatementKind) String() string {
	if int(k) < len(statementNames) {
		return statementNames[k]
	}
	return fmt.Sprintf("StatementKind(%d)", k)
}

// Statement is an instruction before encoding. Operands are terminals;
// jumps name labels.
//
// Assign and Convert use Args [dst, src]; JumpIfNot uses Args [cond];
// Return uses Args as result, source pairs.
type Statement struct {
	Kind     StatementKind
	Node     graph.NodeID
	Function string
	Args     []*Terminal
	Results  []*Terminal
	From, To types.Type
	Target   bytecode.Label
}

// IsJump reports whether s transfers control to Target.
func (s *Statement) IsJump() bool {
	return s.Kind == StmtJump || s.Kind == StmtJumpIfNot || s.Kind == StmtPushFlow
}

// Terminates reports whether control never falls through s.
func (s *Statement) Terminates() bool {
	return s.Kind == StmtJump || s.Kind == StmtReturn || s.Kind == StmtPopFlow
}

func (s *Statement) String() string {
	switch s.Kind {
	case StmtLabel:
		return fmt.Sprintf("L%d:", s.Target)
	case StmtCall:
		return fmt.Sprintf("call %s(%s) -> (%s)", s.Function, terminals(s.Args), terminals(s.Results))
	case StmtAssign:
		return fmt.Sprintf("%s = %s", s.Args[0], s.Args[1])
	case StmtConvert:
		return fmt.Sprintf("%s = %s(%s)", s.Args[0], s.To, s.Args[1])
	case StmtJump, StmtPushFlow:
		return fmt.Sprintf("%s L%d", s.Kind, s.Target)
	case StmtJumpIfNot:
		return fmt.Sprintf("%s %s L%d", s.Kind, s.Args[0], s.Target)
	case StmtReturn:
		var parts []string
		for i := 0; i+1 < len(s.Args); i += 2 {
			parts = append(parts, fmt.Sprintf("%s = %s", s.Args[i], s.Args[i+1]))
		}
		return strings.TrimSpace("return " + strings.Join(parts, ", "))
	}
	return s.Kind.String()
}

func terminals(ts []*Terminal) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
