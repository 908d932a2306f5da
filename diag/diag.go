// Package diag holds the findings a compilation accumulates on its program.
// Diagnostics are data, not errors: a program can carry errors and still be
// produced, in which case it compiled but should not ship.
package diag

import (
	"fmt"
	"strings"
)

// Severity grades a diagnostic.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "info"
}

// Kind classifies what went wrong.
type Kind uint8

const (
	KindNone Kind = iota
	// StructuralError: malformed graph. Fatal for the unit.
	KindStructural
	// ResolutionError: unresolvable type, function or configuration. The
	// node degrades to a stub or a default value.
	KindResolution
	// EncodingError: the program could not be assembled. Fatal for the unit.
	KindEncoding
	// ConversionWarning: a literal could not be converted and fell back to
	// the zero value.
	KindConversion
)

var kindNames = [...]string{
	KindNone:       "",
	KindStructural: "structural",
	KindResolution: "resolution",
	KindEncoding:   "encoding",
	KindConversion: "conversion",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Diagnostic is one finding, tagged with the node it concerns.
type Diagnostic struct {
	Severity Severity `cbor:"1,keyasint" json:"severity"`
	Kind     Kind     `cbor:"2,keyasint" json:"kind"`
	Node     string   `cbor:"3,keyasint,omitempty" json:"node,omitempty"`
	Message  string   `cbor:"4,keyasint" json:"message"`
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.String())
	if d.Kind != KindNone {
		sb.WriteString(" [")
		sb.WriteString(d.Kind.String())
		sb.WriteString("]")
	}
	if d.Node != "" {
		sb.WriteString(" ")
		sb.WriteString(d.Node)
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// List accumulates diagnostics in the order they were found.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(sev Severity, kind Kind, node, format string, args ...interface{}) {
	*l = append(*l, Diagnostic{Severity: sev, Kind: kind, Node: node, Message: fmt.Sprintf(format, args...)})
}

// Errorf records a ResolutionError.
func (l *List) Errorf(node, format string, args ...interface{}) {
	l.Add(Error, KindResolution, node, format, args...)
}

// Warnf records a ConversionWarning.
func (l *List) Warnf(node, format string, args ...interface{}) {
	l.Add(Warning, KindConversion, node, format, args...)
}

// HasErrors reports whether any diagnostic is an error.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns how many diagnostics have the given severity.
func (l List) Count(sev Severity) int {
	n := 0
	for _, d := range l {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// ForNode returns the diagnostics tagged with node.
func (l List) ForNode(node string) List {
	var out List
	for _, d := range l {
		if d.Node == node {
			out = append(out, d)
		}
	}
	return out
}
