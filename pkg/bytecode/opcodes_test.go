package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no name", byte(op))
		}
	}
}

func TestUnknownOpcodeInfo(t *testing.T) {
	info := GetOpcodeInfo(Opcode(0xEE))
	if !strings.HasPrefix(info.Name, "UNKNOWN") {
		t.Errorf("Expected UNKNOWN name, got %q", info.Name)
	}
}

func TestInstructionLengths(t *testing.T) {
	cases := []struct {
		op   Opcode
		want int
	}{
		{OpNop, 1},
		{OpPop, 1},
		{OpConst, 3},
		{OpConstZero, 1},
		{OpLoadSlot, 2},
		{OpStoreSlot, 2},
		{OpBindArg, 3},
		{OpAdd, 1},
		{OpSub, 1},
		{OpLt, 1},
		{OpJump, 3},
		{OpJumpFalse, 3},
		{OpCall, 4},
		{OpReturn, 1},
	}
	for _, c := range cases {
		if got := c.op.InstructionLen(); got != c.want {
			t.Errorf("%s: expected length %d, got %d", c.op, c.want, got)
		}
	}
	if len(cases) != OpcodeCount() {
		t.Errorf("Length table covers %d opcodes, %d defined", len(cases), OpcodeCount())
	}
}

func TestIsJump(t *testing.T) {
	if !OpJump.IsJump() || !OpJumpFalse.IsJump() {
		t.Error("Jump opcodes not classified as jumps")
	}
	if OpCall.IsJump() || OpReturn.IsJump() {
		t.Error("Non-jump opcode classified as jump")
	}
}
