package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Luna Bytecode v%d\n", p.Version))

	// Constants
	if len(p.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, v := range p.Constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %d\n", i, v))
		}
	}

	// Call-target names
	if len(p.Names) > 0 {
		sb.WriteString("; Names:\n")
		for i, n := range p.Names {
			sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", i, n))
		}
	}

	// Functions
	if p.Symbols.Len() > 0 {
		sb.WriteString("; Functions:\n")
		for _, n := range p.Symbols.Names() {
			sym, _ := p.Symbols.Lookup(n)
			sb.WriteString(fmt.Sprintf(";   %s/%d at %04X (locals=%d)\n",
				n, sym.Arity, sym.Location, sym.LocalCount))
		}
	}

	sb.WriteString("\n; Code:\n")
	offset := 0
	for offset < len(p.Code) {
		line, instrLen := p.disassembleInstruction(offset)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (p *Program) disassembleInstruction(offset int) (string, int) {
	if offset >= len(p.Code) {
		return "<end of code>", 0
	}

	op := Opcode(p.Code[offset])
	info := GetOpcodeInfo(op)

	switch op {
	case OpConst:
		idx := p.readUint16(offset + 1)
		if int(idx) < len(p.Constants) {
			return fmt.Sprintf("CONST %d ; %d", idx, p.Constants[idx]), 3
		}
		return fmt.Sprintf("CONST %d ; <out of range>", idx), 3

	case OpLoadSlot:
		return fmt.Sprintf("LOAD_SLOT %d", p.Code[offset+1]), 2

	case OpStoreSlot:
		return fmt.Sprintf("STORE_SLOT %d", p.Code[offset+1]), 2

	case OpBindArg:
		return fmt.Sprintf("BIND_ARG slot=%d arg=%d", p.Code[offset+1], p.Code[offset+2]), 3

	case OpJump:
		delta := p.readInt16(offset + 1)
		target := offset + 3 + int(delta)
		return fmt.Sprintf("JUMP %+d (-> %04X)", delta, target), 3

	case OpJumpFalse:
		delta := p.readInt16(offset + 1)
		target := offset + 3 + int(delta)
		return fmt.Sprintf("JUMP_FALSE %+d (-> %04X)", delta, target), 3

	case OpCall:
		nameIdx := p.readUint16(offset + 1)
		argc := p.Code[offset+3]
		name := ""
		if int(nameIdx) < len(p.Names) {
			name = p.Names[nameIdx]
		}
		return fmt.Sprintf("CALL %d (%s) argc=%d", nameIdx, name, argc), 4

	// Default: use info from table
	default:
		instrLen := 1 + info.OperandLen
		if info.OperandLen == 0 {
			return info.Name, instrLen
		}
		operands := make([]string, 0, info.OperandLen)
		for i := 0; i < info.OperandLen; i++ {
			if offset+1+i < len(p.Code) {
				operands = append(operands, fmt.Sprintf("0x%02X", p.Code[offset+1+i]))
			}
		}
		return fmt.Sprintf("%s %s", info.Name, strings.Join(operands, " ")), instrLen
	}
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (p *Program) DisassembleInstruction(offset int) string {
	line, _ := p.disassembleInstruction(offset)
	return line
}

// DisassembleToLines returns the disassembly as a slice of lines.
func (p *Program) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(p.Code) {
		line, instrLen := p.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the program.
// Note: This iterates through all code, so it's O(n).
func (p *Program) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(p.Code) {
		op := Opcode(p.Code[offset])
		offset += op.InstructionLen()
		count++
	}
	return count
}
