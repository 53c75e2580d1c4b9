package bytecode

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ProgramVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const ProgramVersion uint16 = 1

// Program is a compiled unit: the instruction stream plus the pools it
// references and the symbol table for call resolution. A Program is
// immutable once compilation finishes.
type Program struct {
	Version uint16 `cbor:"version"`

	// Code section
	Code []byte `cbor:"code"`

	// Constant pool - integers referenced by OpConst
	Constants []int64 `cbor:"constants"`

	// Name pool - call targets referenced by OpCall
	Names []string `cbor:"names"`

	// Function symbols
	Symbols *SymbolTable `cbor:"symbols"`
}

// NewProgram creates a new empty program with the current version.
func NewProgram() *Program {
	return &Program{
		Version: ProgramVersion,
		Code:    make([]byte, 0, 64),
		Symbols: NewSymbolTable(),
	}
}

// AddConstant adds an integer constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (p *Program) AddConstant(value int64) uint16 {
	for i, v := range p.Constants {
		if v == value {
			return uint16(i)
		}
	}
	idx := uint16(len(p.Constants))
	p.Constants = append(p.Constants, value)
	return idx
}

// AddName adds a call-target name to the pool and returns its index.
// If the name already exists, returns the existing index.
func (p *Program) AddName(name string) uint16 {
	for i, n := range p.Names {
		if n == name {
			return uint16(i)
		}
	}
	idx := uint16(len(p.Names))
	p.Names = append(p.Names, name)
	return idx
}

// Emit appends a single-byte opcode to the code section.
func (p *Program) Emit(op Opcode) int {
	offset := len(p.Code)
	p.Code = append(p.Code, byte(op))
	return offset
}

// EmitWithOperands appends an opcode with operand bytes.
func (p *Program) EmitWithOperands(op Opcode, operands ...byte) int {
	offset := len(p.Code)
	p.Code = append(p.Code, byte(op))
	p.Code = append(p.Code, operands...)
	return offset
}

// EmitConstant emits an OpConst instruction for the given value.
// Adds the constant to the pool if not already present.
func (p *Program) EmitConstant(value int64) int {
	idx := p.AddConstant(value)
	return p.EmitWithOperands(OpConst, byte(idx>>8), byte(idx))
}

// EmitJump emits a jump instruction with a placeholder offset.
// Returns the offset of the placeholder for later patching.
func (p *Program) EmitJump(op Opcode) int {
	p.Emit(op)
	offset := len(p.Code)
	p.Code = append(p.Code, 0xFF, 0xFF) // Placeholder
	return offset
}

// PatchJump patches a jump placeholder to jump to the current position.
// Fails when the delta does not fit the i16 operand.
func (p *Program) PatchJump(placeholderOffset int) error {
	// Calculate relative jump from after the 2-byte offset
	jumpFrom := placeholderOffset + 2
	jumpTo := len(p.Code)
	delta := jumpTo - jumpFrom
	if delta > math.MaxInt16 || delta < math.MinInt16 {
		return errors.Errorf("jump of %d bytes exceeds the 16-bit offset range", delta)
	}

	p.Code[placeholderOffset] = byte(delta >> 8)
	p.Code[placeholderOffset+1] = byte(delta)
	return nil
}

// CurrentOffset returns the current offset in the code section.
func (p *Program) CurrentOffset() int {
	return len(p.Code)
}

// ConstantCount returns the number of constants in the pool.
func (p *Program) ConstantCount() int {
	return len(p.Constants)
}

// readUint16 reads a big-endian uint16 from the code at the given offset.
func (p *Program) readUint16(offset int) uint16 {
	if offset+1 >= len(p.Code) {
		return 0
	}
	return binary.BigEndian.Uint16(p.Code[offset:])
}

// readInt16 reads a big-endian int16 from the code at the given offset.
func (p *Program) readInt16(offset int) int16 {
	return int16(p.readUint16(offset))
}
