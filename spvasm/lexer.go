// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// TokenKind classifies assembly tokens.
type TokenKind uint8

// Token kinds. TokenID lexemes omit the '%' and TokenString lexemes omit
// the quotes.
const (
	TokenEOF TokenKind = iota
	TokenID
	TokenEqual
	TokenOpcode
	TokenIdent
	TokenNumber
	TokenString
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenID:
		return "id"
	case TokenEqual:
		return "'='"
	case TokenOpcode:
		return "opcode"
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	}
	return "unknown"
}

// Token is one lexical token of assembly text.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Op     spirv.OpCode
	Line   int
	Column int
}

// comment is a ';' comment with its line number.
type comment struct {
	Line int
	Text string
}

// Lexer tokenizes SPIR-V assembly text.
type Lexer struct {
	source   string
	pos      int
	line     int
	column   int
	start    int
	startCol int
	tokens   []Token
	comments []comment
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	// Estimate ~1 token per 8 characters of source.
	estTokens := len(source) / 8
	if estTokens < 16 {
		estTokens = 16
	}
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
		tokens: make([]Token, 0, estTokens),
	}
}

// Tokenize returns all tokens from the source.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		l.start = l.pos
		l.startCol = l.column
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
	l.tokens = append(l.tokens, Token{Kind: TokenEOF, Line: l.line, Column: l.column})
	return l.tokens, nil
}

func (l *Lexer) scanToken() error {
	startLine := l.line
	c := l.advance()
	switch {
	case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		return nil
	case c == ';':
		for l.peek() != '\n' && !l.isAtEnd() {
			l.advance()
		}
		l.comments = append(l.comments, comment{Line: startLine, Text: strings.TrimSpace(l.source[l.start+1 : l.pos])})
		return nil
	case c == '=':
		l.addToken(TokenEqual, "=", startLine)
		return nil
	case c == '%':
		for isIdentChar(l.peek()) {
			l.advance()
		}
		if l.pos == l.start+1 {
			return l.errorf(startLine, "expected id name after '%%'")
		}
		l.addToken(TokenID, l.source[l.start+1:l.pos], startLine)
		return nil
	case c == '"':
		return l.scanString(startLine)
	case c == '-' || c == '+' || isDigit(c):
		l.scanNumber()
		l.addToken(TokenNumber, l.source[l.start:l.pos], startLine)
		return nil
	case isIdentStart(c):
		for isIdentChar(l.peek()) || l.peek() == '|' || l.peek() == '.' {
			l.advance()
		}
		text := l.source[l.start:l.pos]
		if op, ok := spirv.LookupOpCode(text); ok {
			l.tokens = append(l.tokens, Token{Kind: TokenOpcode, Lexeme: text, Op: op, Line: startLine, Column: l.startCol})
			return nil
		}
		if strings.HasPrefix(text, "Op") && len(text) > 2 && text[2] >= 'A' && text[2] <= 'Z' {
			return l.errorf(startLine, "unknown opcode %s", text)
		}
		l.addToken(TokenIdent, text, startLine)
		return nil
	}
	return l.errorf(startLine, "unexpected character %q", c)
}

func (l *Lexer) scanString(startLine int) error {
	var sb strings.Builder
	for {
		if l.isAtEnd() {
			return l.errorf(startLine, "unterminated string")
		}
		c := l.advance()
		if c == '"' {
			break
		}
		if c == '\\' {
			if l.isAtEnd() {
				return l.errorf(startLine, "unterminated string")
			}
			c = l.advance()
		}
		sb.WriteByte(c)
	}
	l.addToken(TokenString, sb.String(), startLine)
	return nil
}

func (l *Lexer) scanNumber() {
	for !l.isAtEnd() {
		c := l.peek()
		prev := l.source[l.pos-1]
		switch {
		case isIdentChar(c) || c == '.':
			l.advance()
		case (c == '+' || c == '-') && (prev == 'e' || prev == 'E' || prev == 'p' || prev == 'P'):
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) addToken(kind TokenKind, lexeme string, line int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Lexeme: lexeme, Line: line, Column: l.startCol})
}

func (l *Lexer) errorf(line int, format string, args ...any) error {
	return newError(line, l.startCol, l.source, format, args...)
}

func (l *Lexer) advance() byte {
	c := l.source[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
