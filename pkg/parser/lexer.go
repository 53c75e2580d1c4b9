package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/lunalang/luna/pkg/ast"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for Luna source text
// ---------------------------------------------------------------------------

const operatorChars = "+-*/<>%"

// Lexer tokenizes Luna source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// position returns the position of the current character.
func (l *Lexer) position() ast.Position {
	return ast.Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}

	case unicode.IsDigit(l.ch):
		return Token{Type: TokenNumber, Value: l.readWhile(unicode.IsDigit), Pos: pos}

	case isIdentStart(l.ch):
		value := l.readWhile(isIdentPart)
		if kw, ok := keywords[value]; ok {
			return Token{Type: kw, Value: value, Pos: pos}
		}
		return Token{Type: TokenIdentifier, Value: value, Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Value: "(", Pos: pos}
	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Value: ")", Pos: pos}
	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Value: ",", Pos: pos}
	case l.ch == ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Value: ";", Pos: pos}
	case l.ch == '=':
		l.readChar()
		return Token{Type: TokenAssign, Value: "=", Pos: pos}

	case strings.ContainsRune(operatorChars, l.ch):
		ch := l.ch
		l.readChar()
		return Token{Type: TokenOperator, Value: string(ch), Pos: pos}

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Value: string(ch), Pos: pos}
	}
}

// readWhile consumes characters while pred holds and returns them.
func (l *Lexer) readWhile(pred func(rune) bool) string {
	start := l.pos
	for l.ch != 0 && pred(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// Tokenize lexes the whole input, returning an error for the first
// unrecognized character.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return nil, errors.Errorf("%s: unrecognized character %q", tok.Pos, tok.Value)
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
