// Package lexer is a minimal reference implementation of the token stream
// contract (C1). The tokeniser is formally an external collaborator — this
// implementation exists only so the rest of the pipeline is runnable
// end-to-end; it deliberately skips string interpolation, bit/byte literal
// syntax, and other surface sugar that a production tokeniser would need.
// Scanning uses a single current-rune cursor advanced by readChar, switched
// on the current rune.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/veylang/veyc/internal/token"
)

var keywords = map[string]token.Kind{
	"let":    token.Let,
	"return": token.Return,
	"break":  token.Break,
	"new":    token.New,
	"if":     token.If,
	"else":   token.Else,
	"for":    token.For,
	"while":  token.While,
	"trait":  token.Trait,
	"impl":   token.Impl,
	"fn":     token.Fn,
	"struct": token.StructKw,
	"true":   token.True,
	"false":  token.False,
}

type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// Next implements token.Stream.
func (l *Lexer) Next() token.Token {
	hadSpace := l.skipSpacesAndComments()

	start := l.position
	line := l.line
	mk := func(k token.Kind, text string) token.Token {
		return token.Token{Kind: k, Start: start, End: l.position, Text: text, Line: line, LeadingSpace: hadSpace}
	}

	switch {
	case l.ch == 0:
		return mk(token.EOF, "")
	case l.ch == '\n':
		l.readChar()
		return mk(token.LineEnd, "\n")
	case l.ch == '(':
		l.readChar()
		return mk(token.ParenOpen, "(")
	case l.ch == ')':
		l.readChar()
		return mk(token.ParenClose, ")")
	case l.ch == '{':
		l.readChar()
		return mk(token.BlockStart, "{")
	case l.ch == '}':
		l.readChar()
		return mk(token.BlockEnd, "}")
	case l.ch == ';':
		l.readChar()
		return mk(token.CodeEnd, ";")
	case l.ch == ',':
		l.readChar()
		return mk(token.ArgumentEnd, ",")
	case l.ch == ':':
		l.readChar()
		return mk(token.Colon, ":")
	case l.ch == '"':
		return l.readString(start, line, hadSpace)
	case l.ch == '.' && isIdentStart(l.peekChar()):
		l.readChar()
		name := l.readIdentRunes()
		t := mk(token.CallingType, name)
		t.Start = start
		return t
	case l.ch == '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return mk(token.Operator, "==")
		}
		l.readChar()
		return mk(token.Equals, "=")
	case isOperatorRune(l.ch):
		lit := l.readOperatorRunes()
		return mk(token.Operator, lit)
	case unicode.IsDigit(l.ch):
		return l.readNumber(start, line, hadSpace)
	case isIdentStart(l.ch):
		name := l.readIdentRunes()
		if kw, ok := keywords[name]; ok {
			return mk(kw, name)
		}
		return mk(token.Variable, name)
	default:
		l.readChar()
		return mk(token.InvalidCharacters, string(l.ch))
	}
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentCont(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func isOperatorRune(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '<', '>', '!', '&', '|', '%', '^', '~':
		return true
	}
	return false
}

// skipSpacesAndComments advances past runs of spaces/tabs and "#"-to-end-
// of-line comments (Comment token kind is reserved for a tokeniser that
// surfaces them; this reference implementation discards them like
// whitespace since the parser never inspects Comment tokens).
func (l *Lexer) skipSpacesAndComments() bool {
	saw := false
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			saw = true
			l.readChar()
		case l.ch == '#':
			saw = true
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return saw
		}
	}
}

func (l *Lexer) readIdentRunes() string {
	var b strings.Builder
	for isIdentCont(l.ch) {
		b.WriteRune(l.ch)
		l.readChar()
	}
	return b.String()
}

func (l *Lexer) readOperatorRunes() string {
	var b strings.Builder
	for isOperatorRune(l.ch) {
		b.WriteRune(l.ch)
		l.readChar()
	}
	return b.String()
}

func (l *Lexer) readNumber(start, line int, hadSpace bool) token.Token {
	var b strings.Builder
	isFloat := false
	for unicode.IsDigit(l.ch) {
		b.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		b.WriteRune(l.ch)
		l.readChar()
		for unicode.IsDigit(l.ch) {
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
	kind := token.Integer
	if isFloat {
		kind = token.Float
	}
	return token.Token{Kind: kind, Start: start, End: l.position, Text: b.String(), Line: line, LeadingSpace: hadSpace}
}

// readString consumes a double-quoted literal with \\, \", \n, \t escapes
// and emits it as a single StringStart token holding the decoded text; this
// minimal lexer never emits StringEscape/StringEnd (no interpolation).
func (l *Lexer) readString(start, line int, hadSpace bool) token.Token {
	l.readChar() // consume opening quote
	var b strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case '"':
				b.WriteRune('"')
			case '\\':
				b.WriteRune('\\')
			default:
				b.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return token.Token{Kind: token.StringStart, Start: start, End: l.position, Text: b.String(), Line: line, LeadingSpace: hadSpace}
}
