package graph

// Kind tags a node with the handler that compiles it.
type Kind string

// Primitive kinds. These reach the statement generator.
const (
	KindEntry     Kind = "entry"
	KindReturn    Kind = "return"
	KindCall      Kind = "call"
	KindLiteral   Kind = "literal"
	KindBranch    Kind = "branch"
	KindSequence  Kind = "sequence"
	KindGetVar    Kind = "get_var"
	KindSetVar    Kind = "set_var"
	KindGetMember Kind = "get_member"
	KindSetMember Kind = "set_member"
	KindConvert   Kind = "convert"
	KindNoop      Kind = "noop"
)

// Composite kinds. The expander rewrites these into primitives.
const (
	KindForLoop   Kind = "for_loop"
	KindWhileLoop Kind = "while_loop"
	KindForEach   Kind = "for_each"
	KindMacro     Kind = "macro"
	KindConstruct Kind = "construct"

	// Tunnel nodes bound a macro body. They only appear in macro graphs.
	KindMacroInput  Kind = "macro_input"
	KindMacroOutput Kind = "macro_output"
)

var composite = map[Kind]bool{
	KindForLoop:   true,
	KindWhileLoop: true,
	KindForEach:   true,
	KindMacro:     true,
	KindConstruct: true,
}

// IsComposite reports whether k must be expanded before compilation.
func IsComposite(k Kind) bool { return composite[k] }

// Well-known pin names.
const (
	PinExec      = "exec"
	PinThen      = "then"
	PinElse      = "else"
	PinCondition = "condition"
	PinValue     = "value"
	PinResult    = "result"
	PinTarget    = "target"

	PinFirst     = "first"
	PinLast      = "last"
	PinBody      = "body"
	PinIndex     = "index"
	PinCompleted = "completed"
	PinArray     = "array"
	PinElement   = "element"
)

// Well-known config keys.
const (
	ConfigName     = "name"
	ConfigFunction = "function"
	ConfigVar      = "var"
	ConfigMember   = "member"
	ConfigMacro    = "macro"
	ConfigClass    = "class"
	ConfigValue    = "value"
)
