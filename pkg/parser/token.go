package parser

import (
	"fmt"

	"github.com/lunalang/luna/pkg/ast"
)

// ---------------------------------------------------------------------------
// Token types for the Luna lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber     // 42
	TokenIdentifier // foo, x1, _tmp

	// Keywords
	TokenFunction // function
	TokenEnd      // end
	TokenIf       // if
	TokenThen     // then
	TokenLocal    // local
	TokenReturn   // return

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenComma     // ,
	TokenSemicolon // ;
	TokenAssign    // =

	// Operators. Any operator character lexes to TokenOperator; the
	// bytecode compiler decides which operators are actually supported,
	// so an unknown operator is a compile-time diagnostic with a source
	// location rather than a lex failure.
	TokenOperator // +, -, <, ...
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNumber:     "NUMBER",
	TokenIdentifier: "IDENTIFIER",
	TokenFunction:   "function",
	TokenEnd:        "end",
	TokenIf:         "if",
	TokenThen:       "then",
	TokenLocal:      "local",
	TokenReturn:     "return",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenAssign:     "=",
	TokenOperator:   "OPERATOR",
}

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps reserved identifiers to their token types.
var keywords = map[string]TokenType{
	"function": TokenFunction,
	"end":      TokenEnd,
	"if":       TokenIf,
	"then":     TokenThen,
	"local":    TokenLocal,
	"return":   TokenReturn,
}

// Token is a single lexed token with its source position.
type Token struct {
	Type  TokenType
	Value string
	Pos   ast.Position
}

// String formats a token for diagnostics.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenNumber, TokenIdentifier, TokenOperator, TokenError:
		return fmt.Sprintf("%q", t.Value)
	default:
		return fmt.Sprintf("%q", t.Type.String())
	}
}
