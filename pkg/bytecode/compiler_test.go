package bytecode

import (
	"strings"
	"testing"

	"github.com/lunalang/luna/pkg/parser"
)

// compileSource parses and compiles a source text, failing the test on error.
func compileSource(t *testing.T, src string) *Program {
	t.Helper()
	stmts, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	program, err := Compile(stmts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return program
}

// compileError parses and compiles, expecting a compile error.
func compileError(t *testing.T, src string) error {
	t.Helper()
	stmts, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, err = Compile(stmts)
	if err == nil {
		t.Fatalf("Expected compile error for %q", src)
	}
	return err
}

func TestCompileConstant(t *testing.T) {
	p := compileSource(t, "return 42;")

	if p.ConstantCount() != 1 || p.Constants[0] != 42 {
		t.Errorf("Unexpected constant pool: %v", p.Constants)
	}
	want := []byte{byte(OpConst), 0x00, 0x00, byte(OpReturn)}
	if string(p.Code) != string(want) {
		t.Errorf("Expected code %v, got %v", want, p.Code)
	}
}

func TestCompileZeroUsesConstZero(t *testing.T) {
	p := compileSource(t, "return 0;")
	if p.ConstantCount() != 0 {
		t.Errorf("Zero should not enter the constant pool: %v", p.Constants)
	}
	if Opcode(p.Code[0]) != OpConstZero {
		t.Errorf("Expected CONST_ZERO, got %s", Opcode(p.Code[0]))
	}
}

func TestCompileConstantDedup(t *testing.T) {
	p := compileSource(t, "return 7 + 7;")
	if p.ConstantCount() != 1 {
		t.Errorf("Expected deduplicated pool, got %v", p.Constants)
	}
}

func TestCompileExpressionStatementEmitsPop(t *testing.T) {
	p := compileSource(t, "print(1);")
	last := Opcode(p.Code[len(p.Code)-1])
	if last != OpPop {
		t.Errorf("Expected trailing POP after expression statement, got %s", last)
	}
}

func TestCompileFunctionSymbol(t *testing.T) {
	p := compileSource(t, "function add(a, b) return a + b; end")

	sym, ok := p.Symbols.Lookup("add")
	if !ok {
		t.Fatal("Function 'add' not in symbol table")
	}
	if sym.Arity != 2 {
		t.Errorf("Expected arity 2, got %d", sym.Arity)
	}
	if sym.LocalCount != 0 {
		t.Errorf("Expected 0 locals, got %d", sym.LocalCount)
	}
	// Body starts after the 3-byte guard jump
	if sym.Location != 3 {
		t.Errorf("Expected location 3, got %d", sym.Location)
	}
	// Body entry binds both parameters
	if Opcode(p.Code[sym.Location]) != OpBindArg {
		t.Errorf("Expected BIND_ARG at body entry, got %s", Opcode(p.Code[sym.Location]))
	}
}

func TestCompileFunctionLocalCount(t *testing.T) {
	p := compileSource(t, `function f(a)
  local x = 1;
  local y = 2;
  local x = 3;
  return x + y;
end`)

	sym, _ := p.Symbols.Lookup("f")
	// x declared twice reuses its slot
	if sym.LocalCount != 2 {
		t.Errorf("Expected 2 locals, got %d", sym.LocalCount)
	}
}

func TestCompileFunctionFallthroughReturns(t *testing.T) {
	p := compileSource(t, "function noisy() print(1); end")

	// The compiled body must end with CONST_ZERO RETURN before the guard
	// jump's landing point.
	n := len(p.Code)
	if Opcode(p.Code[n-1]) != OpReturn || Opcode(p.Code[n-2]) != OpConstZero {
		t.Errorf("Expected CONST_ZERO RETURN at body end, got %s %s",
			Opcode(p.Code[n-2]), Opcode(p.Code[n-1]))
	}
}

func TestCompileTrailingIfStillGetsEpilogue(t *testing.T) {
	// The body's last emitted opcode is the if-body's RETURN, but the
	// false branch of the JUMP_FALSE falls past it. The epilogue must be
	// appended anyway.
	p := compileSource(t, `function f(x)
  if x < 1 then
    return 0;
  end
end`)

	n := len(p.Code)
	if Opcode(p.Code[n-1]) != OpReturn || Opcode(p.Code[n-2]) != OpConstZero {
		t.Errorf("Expected CONST_ZERO RETURN epilogue after trailing if, got %s %s",
			Opcode(p.Code[n-2]), Opcode(p.Code[n-1]))
	}
}

func TestCompileTrailingNestedFunctionGetsEpilogue(t *testing.T) {
	p := compileSource(t, `function outer()
  function inner() return 1; end
end`)

	n := len(p.Code)
	if Opcode(p.Code[n-1]) != OpReturn || Opcode(p.Code[n-2]) != OpConstZero {
		t.Errorf("Expected CONST_ZERO RETURN epilogue after nested declaration, got %s %s",
			Opcode(p.Code[n-2]), Opcode(p.Code[n-1]))
	}
}

func TestPatchJumpRejectsOversizedDelta(t *testing.T) {
	p := NewProgram()
	placeholder := p.EmitJump(OpJump)
	for i := 0; i < 0x8000; i++ {
		p.Emit(OpNop)
	}
	if err := p.PatchJump(placeholder); err == nil {
		t.Error("Expected error for jump delta beyond the i16 range")
	}

	q := NewProgram()
	ph := q.EmitJump(OpJump)
	q.Emit(OpNop)
	if err := q.PatchJump(ph); err != nil {
		t.Errorf("Small delta should patch cleanly: %v", err)
	}
}

func TestCompileGuardJumpSkipsBody(t *testing.T) {
	p := compileSource(t, "function one() return 1; end print(2);")

	// First instruction is the guard jump; its target must be past the body.
	if Opcode(p.Code[0]) != OpJump {
		t.Fatalf("Expected leading JUMP, got %s", Opcode(p.Code[0]))
	}
	delta := p.readInt16(1)
	target := 3 + int(delta)
	sym, _ := p.Symbols.Lookup("one")
	if target <= sym.Location {
		t.Errorf("Guard jump target %d does not skip body at %d", target, sym.Location)
	}
}

func TestCompileIfJumpFalse(t *testing.T) {
	p := compileSource(t, "if 1 < 2 then print(1); end")

	found := false
	for offset := 0; offset < len(p.Code); {
		op := Opcode(p.Code[offset])
		if op == OpJumpFalse {
			found = true
			delta := p.readInt16(offset + 1)
			if delta <= 0 {
				t.Errorf("Expected forward jump, got delta %d", delta)
			}
		}
		offset += op.InstructionLen()
	}
	if !found {
		t.Error("No JUMP_FALSE emitted for if statement")
	}
}

func TestCompileDuplicateFunction(t *testing.T) {
	err := compileError(t, "function f() return 1; end function f() return 2; end")
	if !strings.Contains(err.Error(), "already declared") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCompileUndefinedIdentifier(t *testing.T) {
	err := compileError(t, "return nope;")
	if !strings.Contains(err.Error(), "undefined identifier") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCompileUnknownOperator(t *testing.T) {
	err := compileError(t, "return 1 * 2;")
	if !strings.Contains(err.Error(), "unsupported binary operator") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCompileDuplicateParameter(t *testing.T) {
	err := compileError(t, "function f(a, a) return a; end")
	if !strings.Contains(err.Error(), "duplicate parameter") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCompileCallDoesNotResolveName(t *testing.T) {
	// Calls to names that are never defined still compile; resolution is
	// a VM concern.
	p := compileSource(t, "mystery(1);")
	if len(p.Names) != 1 || p.Names[0] != "mystery" {
		t.Errorf("Unexpected name pool: %v", p.Names)
	}
}

func TestCompileLabelsNeverEnterSymbolTable(t *testing.T) {
	p := compileSource(t, `function f(x)
  if x < 1 then return 0; end
  return 1;
end`)
	if p.Symbols.Len() != 1 {
		t.Errorf("Expected only 'f' in symbol table, got %v", p.Symbols.Names())
	}
}
