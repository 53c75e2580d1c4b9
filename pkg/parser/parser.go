package parser

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/lunalang/luna/pkg/ast"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over the token stream
// ---------------------------------------------------------------------------

// ErrUnexpectedEOF is wrapped into parse errors caused by running out of
// input. Callers (the REPL) use it to detect incomplete input and prompt
// for a continuation line.
var ErrUnexpectedEOF = errors.New("unexpected end of input")

// Parser consumes a token stream and produces an AST.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse lexes and parses a whole source text into a statement list.
func Parse(src string) ([]ast.Statement, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens).ParseProgram()
}

// New creates a parser over a lexed token stream. The stream must be
// terminated by a TokenEOF token.
func New(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() ([]ast.Statement, error) {
	var stmts []ast.Statement
	for p.cur().Type != TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it has the wanted type, and fails
// with a positioned error otherwise.
func (p *Parser) expect(t TokenType, context string) (Token, error) {
	tok := p.cur()
	if tok.Type != t {
		return tok, p.errorAt(tok, "expected %s in %s, got %s", t, context, tok)
	}
	return p.advance(), nil
}

func (p *Parser) errorAt(tok Token, format string, args ...interface{}) error {
	err := errors.Errorf("%s: "+format, append([]interface{}{tok.Pos}, args...)...)
	if tok.Type == TokenEOF {
		return errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	return err
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Type {
	case TokenFunction:
		return p.parseFunction()
	case TokenIf:
		return p.parseIf()
	case TokenLocal:
		return p.parseLocal()
	case TokenReturn:
		return p.parseReturn()
	default:
		return p.parseExpressionStatement()
	}
}

// parseFunction parses: function name ( params ) body end
func (p *Parser) parseFunction() (ast.Statement, error) {
	kw := p.advance() // function

	name, err := p.expect(TokenIdentifier, "function declaration")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen, "function declaration"); err != nil {
		return nil, err
	}

	var params []ast.Param
	for p.cur().Type != TokenRParen {
		if len(params) > 0 {
			if _, err := p.expect(TokenComma, "parameter list"); err != nil {
				return nil, err
			}
		}
		param, err := p.expect(TokenIdentifier, "parameter list")
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: param.Value, Position: param.Pos})
	}
	p.advance() // )

	body, err := p.parseBlock("function body")
	if err != nil {
		return nil, err
	}
	p.advance() // end

	return &ast.FunctionDecl{
		Name:     name.Value,
		Params:   params,
		Body:     body,
		Position: kw.Pos,
	}, nil
}

// parseBlock parses statements until an "end" keyword. The "end" token is
// left for the caller to consume.
func (p *Parser) parseBlock(context string) ([]ast.Statement, error) {
	var stmts []ast.Statement
	for p.cur().Type != TokenEnd {
		if p.cur().Type == TokenEOF {
			return nil, p.errorAt(p.cur(), "expected %s in %s, got %s", TokenEnd, context, p.cur())
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// parseIf parses: if test then body end
func (p *Parser) parseIf() (ast.Statement, error) {
	kw := p.advance() // if

	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenThen, "if statement"); err != nil {
		return nil, err
	}

	body, err := p.parseBlock("if body")
	if err != nil {
		return nil, err
	}
	p.advance() // end

	return &ast.IfStmt{Test: test, Body: body, Position: kw.Pos}, nil
}

// parseLocal parses: local name = expression ;
func (p *Parser) parseLocal() (ast.Statement, error) {
	kw := p.advance() // local

	name, err := p.expect(TokenIdentifier, "local declaration")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign, "local declaration"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon, "local declaration"); err != nil {
		return nil, err
	}

	return &ast.LocalStmt{
		Name:     name.Value,
		NamePos:  name.Pos,
		Value:    value,
		Position: kw.Pos,
	}, nil
}

// parseReturn parses: return expression ;
func (p *Parser) parseReturn() (ast.Statement, error) {
	kw := p.advance() // return

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon, "return statement"); err != nil {
		return nil, err
	}

	return &ast.ReturnStmt{Value: value, Position: kw.Pos}, nil
}

// parseExpressionStatement parses: expression ;
func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon, "expression statement"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: expr}, nil
}

// parseExpression parses a left-associative chain of binary operations:
// primary (op primary)*. There is no operator precedence; the language
// has too few operators to need one.
func (p *Parser) parseExpression() (ast.Expression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.cur().Type == TokenOperator {
		op := p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			Op:    op.Value,
			OpPos: op.Pos,
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}

// parsePrimary parses a number, an identifier, or a function call.
func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		value, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid number literal %q", tok.Pos, tok.Value)
		}
		return &ast.NumberLit{Text: tok.Value, Value: value, Position: tok.Pos}, nil

	case TokenIdentifier:
		p.advance()
		if p.cur().Type != TokenLParen {
			return &ast.Ident{Name: tok.Value, Position: tok.Pos}, nil
		}
		p.advance() // (

		var args []ast.Expression
		for p.cur().Type != TokenRParen {
			if len(args) > 0 {
				if _, err := p.expect(TokenComma, "call arguments"); err != nil {
					return nil, err
				}
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		p.advance() // )

		return &ast.CallExpr{Name: tok.Value, Args: args, Position: tok.Pos}, nil

	default:
		return nil, p.errorAt(tok, "expected expression, got %s", tok)
	}
}
