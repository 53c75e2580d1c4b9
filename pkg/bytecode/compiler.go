package bytecode

import (
	"github.com/pkg/errors"

	"github.com/lunalang/luna/pkg/ast"
)

// maxSlots is the largest slot index addressable by the u8 slot operand.
const maxSlots = 256

// Compiler converts an AST into a Program in a single forward pass.
// Forward jump targets are backpatched; function metadata is registered
// in two phases (Declare at body entry, Finalize after the body).
type Compiler struct {
	program *Program

	// Local-name table for the scope being compiled: identifier -> slot.
	// A fresh table is installed per function body; top-level statements
	// share the one created at construction. The table exists only at
	// compile time - every name resolves to a slot operand. Parameters
	// occupy the low slots; locals follow.
	slots map[string]uint8
}

// Compile translates a statement list into an executable Program.
func Compile(stmts []ast.Statement) (*Program, error) {
	c := &Compiler{
		program: NewProgram(),
		slots:   make(map[string]uint8),
	}
	for _, stmt := range stmts {
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	return c.program, nil
}

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.FunctionDecl:
		return c.compileFunction(s)

	case *ast.IfStmt:
		return c.compileIf(s)

	case *ast.LocalStmt:
		return c.compileLocal(s)

	case *ast.ReturnStmt:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.program.Emit(OpReturn)
		return nil

	case *ast.ExprStmt:
		if err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		c.program.Emit(OpPop) // Discard result
		return nil

	default:
		return errors.Errorf("%s: unsupported statement type %T", stmt.Pos(), stmt)
	}
}

// endsWithReturn reports whether a body's last statement is a return.
// Only the statement level counts: an if whose body returns still falls
// through on the false branch, so it does not qualify.
func endsWithReturn(body []ast.Statement) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ast.ReturnStmt)
	return ok
}

// compileFunction emits a guard jump so top-level execution does not fall
// into the body, then compiles the body in a fresh scope. The symbol is
// declared before the body (location and arity) and finalized after it,
// when the local count is known.
func (c *Compiler) compileFunction(fd *ast.FunctionDecl) error {
	guard := c.program.EmitJump(OpJump)

	if len(fd.Params) > maxSlots {
		return errors.Errorf("%s: function %q has too many parameters (%d, max %d)",
			fd.Position, fd.Name, len(fd.Params), maxSlots)
	}
	if err := c.program.Symbols.Declare(fd.Name, c.program.CurrentOffset(), len(fd.Params)); err != nil {
		return errors.Wrapf(err, "%s", fd.Position)
	}

	outerSlots := c.slots
	c.slots = make(map[string]uint8, len(fd.Params))

	// Parameter values were pushed by the caller before the frame
	// existed; bind each one into its declared slot.
	for i, param := range fd.Params {
		if _, exists := c.slots[param.Name]; exists {
			return errors.Errorf("%s: duplicate parameter %q", param.Position, param.Name)
		}
		c.slots[param.Name] = uint8(i)
		c.program.EmitWithOperands(OpBindArg, uint8(i), uint8(i))
	}

	for _, stmt := range fd.Body {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}

	// Every path must return before the guard landing pad. A trailing if
	// or nested declaration still falls through even when the last emitted
	// opcode was a return, so only a return *statement* counts.
	if !endsWithReturn(fd.Body) {
		c.program.Emit(OpConstZero)
		c.program.Emit(OpReturn)
	}

	localCount := len(c.slots) - len(fd.Params)
	c.slots = outerSlots

	if err := c.program.Symbols.Finalize(fd.Name, localCount); err != nil {
		return errors.Wrapf(err, "%s", fd.Position)
	}

	if err := c.program.PatchJump(guard); err != nil {
		return errors.Wrapf(err, "%s: function %q", fd.Position, fd.Name)
	}
	return nil
}

// compileIf compiles the test, a conditional jump over the body, and the
// body. The jump target is patched to the address just past the body.
func (c *Compiler) compileIf(s *ast.IfStmt) error {
	if err := c.compileExpr(s.Test); err != nil {
		return err
	}

	skip := c.program.EmitJump(OpJumpFalse)

	for _, stmt := range s.Body {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}

	if err := c.program.PatchJump(skip); err != nil {
		return errors.Wrapf(err, "%s: if body", s.Position)
	}
	return nil
}

// compileLocal assigns the next unused slot to the name, compiles the
// initializer, and stores it. Redeclaring a name reuses its slot.
func (c *Compiler) compileLocal(s *ast.LocalStmt) error {
	slot, exists := c.slots[s.Name]
	if !exists {
		if len(c.slots) >= maxSlots {
			return errors.Errorf("%s: too many locals (max %d)", s.NamePos, maxSlots)
		}
		slot = uint8(len(c.slots))
		c.slots[s.Name] = slot
	}

	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	c.program.EmitWithOperands(OpStoreSlot, slot)
	return nil
}

func (c *Compiler) compileExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.NumberLit:
		if e.Value == 0 {
			c.program.Emit(OpConstZero)
		} else {
			c.program.EmitConstant(e.Value)
		}
		return nil

	case *ast.Ident:
		slot, ok := c.slots[e.Name]
		if !ok {
			return errors.Errorf("%s: undefined identifier %q", e.Position, e.Name)
		}
		c.program.EmitWithOperands(OpLoadSlot, slot)
		return nil

	case *ast.BinaryExpr:
		return c.compileBinary(e)

	case *ast.CallExpr:
		return c.compileCall(e)

	default:
		return errors.Errorf("%s: unsupported expression type %T", expr.Pos(), expr)
	}
}

// compileBinary compiles left then right, preserving source order on the
// stack, then the operator. Unknown operator text is a compile error.
func (c *Compiler) compileBinary(b *ast.BinaryExpr) error {
	if err := c.compileExpr(b.Left); err != nil {
		return err
	}
	if err := c.compileExpr(b.Right); err != nil {
		return err
	}

	switch b.Op {
	case "+":
		c.program.Emit(OpAdd)
	case "-":
		c.program.Emit(OpSub)
	case "<":
		c.program.Emit(OpLt)
	default:
		return errors.Errorf("%s: unsupported binary operator %q", b.OpPos, b.Op)
	}
	return nil
}

// compileCall compiles arguments left-to-right, then the call. Whether
// the name resolves to a builtin or a user function is decided by the VM.
func (c *Compiler) compileCall(e *ast.CallExpr) error {
	if len(e.Args) > 255 {
		return errors.Errorf("%s: too many arguments in call to %q", e.Position, e.Name)
	}
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}

	idx := c.program.AddName(e.Name)
	c.program.EmitWithOperands(OpCall, byte(idx>>8), byte(idx), byte(len(e.Args)))
	return nil
}
