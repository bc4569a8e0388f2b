// Package parser implements the expression/statement parser (C2): consumes
// a token stream and produces unresolved AST. Split into several files by
// concern (core dispatch, operators, top-level declarations).
package parser

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/resolver"
	"github.com/veylang/veyc/internal/token"
)

// State is the set of parse-state variants threaded through recursion:
// these affect where a line terminates (e.g. a bare `,` ends an argument
// inside a call, but not a top-level statement).
type State int

const (
	None State = iota
	ControlVariable
	Argument
	InOperator
	ControlOperator // both ControlVariable and InOperator
)

// ParsingError is the error type every parse failure produces, carrying
// the file name and byte span.
type ParsingError = diagnostics.ParsingError

type Parser struct {
	File     string
	stream   token.Stream
	resolver *resolver.Resolver

	cur  token.Token
	next token.Token

	labelSeq int
}

func New(file string, stream token.Stream, res *resolver.Resolver) *Parser {
	p := &Parser{File: file, stream: stream, resolver: res}
	p.cur = p.stream.Next()
	p.next = p.stream.Next()
	return p
}

func (p *Parser) advance() token.Token {
	tok := p.cur
	p.cur = p.next
	p.next = p.stream.Next()
	return tok
}

func (p *Parser) err(code diagnostics.ErrorCode, args ...interface{}) *ParsingError {
	return diagnostics.New(p.File, diagnostics.PhaseParser, code, p.cur, p.cur, args...)
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if p.cur.Kind != kind {
		return token.Token{}, p.err(diagnostics.ErrP001, kind, p.cur.Kind)
	}
	return p.advance(), nil
}

// freshLabel mints a CodeBody label unique within this parse: a running
// counter plus a short uuid prefix. The monomorphiser copies labels into
// its specialised bodies unchanged.
func (p *Parser) freshLabel() string {
	p.labelSeq++
	return fmt.Sprintf("L%d_%s", p.labelSeq, uuid.New().String()[:8])
}

// ParseCodeBody parses a brace-delimited block: BlockStart already
// consumed by the caller is NOT assumed — ParseCodeBody consumes it itself,
// then repeatedly calls parseLine until BlockEnd.
func (p *Parser) ParseCodeBody() (*ast.CodeBody, error) {
	if _, err := p.expect(token.BlockStart); err != nil {
		return nil, err
	}
	body := &ast.CodeBody{Label: p.freshLabel()}
	for p.cur.Kind != token.BlockEnd && p.cur.Kind != token.EOF {
		p.skipTerminators()
		if p.cur.Kind == token.BlockEnd {
			break
		}
		expr, err := p.parseLine(None)
		if err != nil {
			return nil, err
		}
		body.Expressions = append(body.Expressions, expr)
		p.skipTerminators()
	}
	if _, err := p.expect(token.BlockEnd); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) skipTerminators() {
	for p.cur.Kind == token.LineEnd || p.cur.Kind == token.CodeEnd {
		p.advance()
	}
}

// terminatesLine reports whether kind is one of the tokens that ends a
// parse_line call: LineEnd, ParenClose, ArgumentEnd, CodeEnd, BlockEnd, and
// EOF all terminate the current line.
func terminatesLine(k token.Kind) bool {
	switch k {
	case token.LineEnd, token.ParenClose, token.ArgumentEnd, token.CodeEnd, token.BlockEnd, token.EOF:
		return true
	}
	return false
}
