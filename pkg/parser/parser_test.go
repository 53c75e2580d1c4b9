package parser

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/lunalang/luna/pkg/ast"
)

func parseOne(t *testing.T, src string) ast.Statement {
	t.Helper()
	stmts, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("Expected 1 statement, got %d", len(stmts))
	}
	return stmts[0]
}

func TestParseFunctionDecl(t *testing.T) {
	stmt := parseOne(t, "function add(a, b) return a + b; end")

	fd, ok := stmt.(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("Expected FunctionDecl, got %T", stmt)
	}
	if fd.Name != "add" {
		t.Errorf("Expected name 'add', got %q", fd.Name)
	}
	if len(fd.Params) != 2 || fd.Params[0].Name != "a" || fd.Params[1].Name != "b" {
		t.Errorf("Unexpected params: %v", fd.Params)
	}
	if len(fd.Body) != 1 {
		t.Fatalf("Expected 1 body statement, got %d", len(fd.Body))
	}
	ret, ok := fd.Body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("Expected ReturnStmt, got %T", fd.Body[0])
	}
	bin, ok := ret.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("Expected BinaryExpr, got %T", ret.Value)
	}
	if bin.Op != "+" {
		t.Errorf("Expected op '+', got %q", bin.Op)
	}
}

func TestParseNoParams(t *testing.T) {
	stmt := parseOne(t, "function zero() return 0; end")
	fd := stmt.(*ast.FunctionDecl)
	if len(fd.Params) != 0 {
		t.Errorf("Expected no params, got %v", fd.Params)
	}
}

func TestParseLeftAssociativeChain(t *testing.T) {
	stmt := parseOne(t, "return 10 - 3 - 2;")
	ret := stmt.(*ast.ReturnStmt)

	// ((10 - 3) - 2)
	outer, ok := ret.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("Expected BinaryExpr, got %T", ret.Value)
	}
	inner, ok := outer.Left.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("Expected nested BinaryExpr on left, got %T", outer.Left)
	}
	if lit, ok := inner.Left.(*ast.NumberLit); !ok || lit.Value != 10 {
		t.Errorf("Expected innermost left 10, got %v", inner.Left)
	}
	if lit, ok := outer.Right.(*ast.NumberLit); !ok || lit.Value != 2 {
		t.Errorf("Expected outermost right 2, got %v", outer.Right)
	}
}

func TestParseCallArguments(t *testing.T) {
	stmt := parseOne(t, "print(1, x, f(2));")
	es := stmt.(*ast.ExprStmt)
	call, ok := es.Expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("Expected CallExpr, got %T", es.Expr)
	}
	if call.Name != "print" || len(call.Args) != 3 {
		t.Fatalf("Unexpected call: %s with %d args", call.Name, len(call.Args))
	}
	if _, ok := call.Args[2].(*ast.CallExpr); !ok {
		t.Errorf("Expected nested call as third arg, got %T", call.Args[2])
	}
}

func TestParseIfStatement(t *testing.T) {
	stmt := parseOne(t, "if n < 1 then return 0; end")
	ifs, ok := stmt.(*ast.IfStmt)
	if !ok {
		t.Fatalf("Expected IfStmt, got %T", stmt)
	}
	if _, ok := ifs.Test.(*ast.BinaryExpr); !ok {
		t.Errorf("Expected BinaryExpr test, got %T", ifs.Test)
	}
	if len(ifs.Body) != 1 {
		t.Errorf("Expected 1 body statement, got %d", len(ifs.Body))
	}
}

func TestParseLocalRequiresInitializer(t *testing.T) {
	if _, err := Parse("local x;"); err == nil {
		t.Error("Expected error for local without initializer")
	}
}

func TestParseMissingSemicolon(t *testing.T) {
	if _, err := Parse("return 1"); err == nil {
		t.Error("Expected error for missing semicolon")
	}
}

func TestParseUnterminatedBlockIsUnexpectedEOF(t *testing.T) {
	_, err := Parse("function f()\n  return 1;\n")
	if err == nil {
		t.Fatal("Expected error for unterminated function body")
	}
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestParseCompleteInputIsNotUnexpectedEOF(t *testing.T) {
	_, err := Parse("local x = @@;")
	if err == nil {
		t.Fatal("Expected error")
	}
	if errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Lex error should not report unexpected EOF: %v", err)
	}
}

func TestParseErrorsIncludePosition(t *testing.T) {
	_, err := Parse("local = 1;")
	if err == nil {
		t.Fatal("Expected error")
	}
	if got := err.Error(); !containsPosition(got) {
		t.Errorf("Expected position in error, got %q", got)
	}
}

func containsPosition(s string) bool {
	// Errors are prefixed "line:col: ..."
	for i := 1; i < len(s); i++ {
		if s[i] == ':' && s[i-1] >= '0' && s[i-1] <= '9' {
			return true
		}
	}
	return false
}

func TestParseMultipleStatements(t *testing.T) {
	stmts, err := Parse("local a = 1;\nlocal b = 2;\nprint(a + b);")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("Expected 3 statements, got %d", len(stmts))
	}
}
