// Package bytecode provides the compiler and stack-based virtual machine
// for Luna programs.
//
// The bytecode format is designed for:
//   - Compact representation (typically 1-4 bytes per instruction)
//   - Fast decoding (fixed-width opcodes, simple operand formats)
//   - Easy serialization (canonical CBOR, cacheable in SQLite)
//
// # Architecture Overview
//
// The package consists of several components:
//
//   - Opcodes: a small stack-based instruction set covering constants,
//     frame slots, arithmetic, comparison, control flow, and calls
//
//   - Program: a compiled unit containing the instruction stream, the
//     constant and name pools, and the function symbol table. Programs
//     serialize to bytes using the "LNBC" format (LuNa ByteCode) for
//     storage or caching.
//
//   - Compiler: converts a parsed statement list (ast.Statement) to a
//     Program in a single forward pass, backpatching jump targets and
//     registering function symbols in two phases.
//
//   - VM: stack-based interpreter that executes programs. Each call
//     pushes a typed activation frame carrying the return address, the
//     operand-stack base, the arity, and the local slots.
//
// # Calling Convention
//
// The caller pushes arguments left to right and executes OpCall. The VM
// resolves the name (builtins first, then the symbol table), sizes a new
// frame from the callee's symbol, and jumps to its body. The body begins
// with one OpBindArg per parameter, copying arguments from below the
// frame base into local slots. OpReturn truncates the operand stack to
// base minus arity, so arguments are consumed along with the frame, and
// pushes the return value for the caller.
//
// Control flow inside a function compiles to relative jump offsets that
// are patched during compilation; only function names survive into the
// symbol table, so an OpCall target that was never declared fails at
// run time with a deterministic error.
package bytecode
