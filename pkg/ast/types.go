// Package ast defines the syntax tree consumed by the bytecode compiler.
//
// A program is an ordered sequence of statements. The node set is
// deliberately small: five statement forms and four expression forms.
package ast

import "fmt"

// Position identifies a location in the original source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based
}

// String formats the position as "line:column" for diagnostics.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is implemented by every AST node.
type Node interface {
	Pos() Position
}

// Statement is one of: *FunctionDecl, *IfStmt, *LocalStmt, *ReturnStmt,
// *ExprStmt.
type Statement interface {
	Node
	stmtNode()
}

// Expression is one of: *NumberLit, *Ident, *BinaryExpr, *CallExpr.
type Expression interface {
	Node
	exprNode()
}

// NumberLit is an integer literal.
type NumberLit struct {
	Text     string // original source text
	Value    int64
	Position Position
}

func (n *NumberLit) Pos() Position { return n.Position }
func (n *NumberLit) exprNode()     {}

// Ident is a reference to a parameter or local variable.
type Ident struct {
	Name     string
	Position Position
}

func (i *Ident) Pos() Position { return i.Position }
func (i *Ident) exprNode()     {}

// BinaryExpr applies an infix operator to two operands.
// The operator is carried as source text; the compiler decides which
// operators are valid.
type BinaryExpr struct {
	Op    string
	OpPos Position
	Left  Expression
	Right Expression
}

func (b *BinaryExpr) Pos() Position { return b.Left.Pos() }
func (b *BinaryExpr) exprNode()     {}

// CallExpr invokes a function or builtin by name with the given arguments.
type CallExpr struct {
	Name     string
	Args     []Expression
	Position Position // position of the name
}

func (c *CallExpr) Pos() Position { return c.Position }
func (c *CallExpr) exprNode()     {}

// Param is a declared function parameter.
type Param struct {
	Name     string
	Position Position
}

// FunctionDecl declares a named function.
type FunctionDecl struct {
	Name     string
	Params   []Param
	Body     []Statement
	Position Position // position of the "function" keyword
}

func (f *FunctionDecl) Pos() Position { return f.Position }
func (f *FunctionDecl) stmtNode()     {}

// IfStmt executes its body when the test is non-zero. There is no else
// branch.
type IfStmt struct {
	Test     Expression
	Body     []Statement
	Position Position // position of the "if" keyword
}

func (s *IfStmt) Pos() Position { return s.Position }
func (s *IfStmt) stmtNode()     {}

// LocalStmt declares a local variable with an initial value.
type LocalStmt struct {
	Name     string
	NamePos  Position
	Value    Expression
	Position Position // position of the "local" keyword
}

func (s *LocalStmt) Pos() Position { return s.Position }
func (s *LocalStmt) stmtNode()     {}

// ReturnStmt returns a value from the enclosing function. At the top
// level it terminates the program with the value as its result.
type ReturnStmt struct {
	Value    Expression
	Position Position // position of the "return" keyword
}

func (s *ReturnStmt) Pos() Position { return s.Position }
func (s *ReturnStmt) stmtNode()     {}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	Expr Expression
}

func (s *ExprStmt) Pos() Position { return s.Expr.Pos() }
func (s *ExprStmt) stmtNode()     {}
