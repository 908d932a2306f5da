package bytecode

import (
	"fmt"

	"github.com/chazu/graphc/diag"
	"github.com/chazu/graphc/types"
)

// ProgramVersion is the current program format version.
// Increment when making incompatible changes to the format.
const ProgramVersion uint16 = 1

// Slot describes one storage slot: its name and type descriptor.
type Slot struct {
	Name string `cbor:"1,keyasint" json:"name"`
	Type string `cbor:"2,keyasint" json:"type"`
}

// Entry is a callable entry point of a program.
type Entry struct {
	Name   string   `cbor:"1,keyasint" json:"name"`
	Node   string   `cbor:"2,keyasint" json:"node"`
	Offset int      `cbor:"3,keyasint" json:"offset"`
	Params []uint16 `cbor:"4,keyasint,omitempty" json:"params,omitempty"`

	// Label is where the entry starts in the assembler's input.
	Label Label `cbor:"-" json:"-"`
}

// Program is a compiled function unit. It is immutable once assembled.
type Program struct {
	Version     uint16 `cbor:"1,keyasint" json:"version"`
	Name        string `cbor:"2,keyasint" json:"name"`
	Hash        string `cbor:"3,keyasint" json:"hash"`
	Build       string `cbor:"4,keyasint" json:"build"`
	OffsetWidth int    `cbor:"5,keyasint" json:"offsetWidth"`
	Code        []byte `cbor:"6,keyasint" json:"code"`

	Constants []types.Value `cbor:"7,keyasint,omitempty" json:"constants,omitempty"`
	Types     []string      `cbor:"8,keyasint,omitempty" json:"types,omitempty"`
	Imports   []string      `cbor:"9,keyasint,omitempty" json:"imports,omitempty"`
	Members   []string      `cbor:"10,keyasint,omitempty" json:"members,omitempty"`

	Params  []Slot `cbor:"11,keyasint,omitempty" json:"params,omitempty"`
	Results []Slot `cbor:"12,keyasint,omitempty" json:"results,omitempty"`
	Locals  []Slot `cbor:"13,keyasint,omitempty" json:"locals,omitempty"`

	Entries     []Entry        `cbor:"14,keyasint,omitempty" json:"entries,omitempty"`
	Symbols     map[string]int `cbor:"15,keyasint,omitempty" json:"symbols,omitempty"`
	Diagnostics diag.List      `cbor:"16,keyasint,omitempty" json:"diagnostics,omitempty"`
}

// Entry returns the entry point called name.
func (p *Program) Entry(name string) (Entry, bool) {
	for _, e := range p.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Symbol returns the first code offset node contributed.
func (p *Program) Symbol(node string) (int, bool) {
	off, ok := p.Symbols[node]
	return off, ok
}

// Check verifies that the tables referenced by the code are consistent.
func (p *Program) Check() error {
	if p.Version > ProgramVersion {
		return fmt.Errorf("bytecode: program version %d is newer than supported version %d", p.Version, ProgramVersion)
	}
	if p.OffsetWidth != 2 && p.OffsetWidth != 4 {
		return fmt.Errorf("bytecode: invalid offset width %d", p.OffsetWidth)
	}
	for _, e := range p.Entries {
		if e.Offset < 0 || e.Offset > len(p.Code) {
			return fmt.Errorf("bytecode: entry %s offset %d outside code", e.Name, e.Offset)
		}
		for _, slot := range e.Params {
			if int(slot) >= len(p.Params) {
				return fmt.Errorf("bytecode: entry %s binds missing parameter %d", e.Name, slot)
			}
		}
	}
	return nil
}
