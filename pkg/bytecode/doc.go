// Package bytecode assembles compiled function units into a compact
// register-style bytecode, and runs them on a small reference machine.
//
// # Encoding
//
// Every instruction is a one-byte opcode followed by its operands. A
// terminal operand is three bytes: a storage class (parameter, result,
// local, member or constant) and a big-endian u16 slot index. Jump
// offsets are signed, relative to the byte after the offset field, and
// two or four bytes wide for the whole program.
//
// # Assembly
//
// Assemble runs two passes over a Unit. The first appends encodings; a
// jump to a label that is already placed is encoded directly, a jump to a
// label not yet placed writes a placeholder and records a fixup. The
// second pass patches every fixup with target - (placeholder + width).
// With WidthAuto the unit is assembled with two-byte offsets and
// reassembled with four when any jump does not fit. An offset that does
// not fit the chosen width is an EncodingError.
//
// # Flow stack
//
// PUSH_FLOW saves a continuation and POP_FLOW resumes the innermost one,
// returning from the entry when none is left. Sequences and loop bodies
// use this to come back after a chain of statements ends.
//
// # Programs
//
// A Program carries the code with the tables its operands index, one
// Entry per entry node, a symbol table mapping node ids to the first
// offset they contributed, and the diagnostics of its compilation.
// Programs serialize to canonical CBOR and disassemble to text.
package bytecode
