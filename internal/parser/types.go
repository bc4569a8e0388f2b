package parser

import (
	"strings"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/token"
)

// parseType parses a type as written in source: a bare name, or a name
// followed by an angle-bracketed, comma-separated argument list such as
// "List<int>" or "Map<K, List<V>>".
func (p *Parser) parseType() (ast.UnresolvedType, error) {
	nameTok, err := p.expect(token.Variable)
	if err != nil {
		return ast.UnresolvedType{}, err
	}
	name := nameTok.Text

	if !p.curIsOpenAngle() {
		return ast.Basic(name), nil
	}
	args, err := p.parseGenericArgList()
	if err != nil {
		return ast.UnresolvedType{}, err
	}
	return ast.Generic(name, args...), nil
}

// parseGenericArgList consumes "<T1, T2, ...>", returning the argument
// types. Callers are positioned at the leading "<".
func (p *Parser) parseGenericArgList() ([]ast.UnresolvedType, error) {
	if err := p.consumeAngle("<"); err != nil {
		return nil, err
	}
	var args []ast.UnresolvedType
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		if p.cur.Kind == token.ArgumentEnd {
			p.advance()
			continue
		}
		break
	}
	if err := p.consumeAngle(">"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) curIsOpenAngle() bool {
	return p.cur.Kind == token.Operator && p.cur.Text == "<" && !p.cur.LeadingSpace
}

// isGenericCallStart reports whether the current token opens a generic
// argument list immediately after a call's receiver/name, i.e. no
// whitespace separates it from the identifier just consumed ("a<T>(...)"
// is a generic call; "a < b" is a comparison).
func (p *Parser) isGenericCallStart() bool {
	return p.cur.Kind == token.Operator && strings.HasPrefix(p.cur.Text, "<") && !p.cur.LeadingSpace
}

// consumeAngle eats one leading "<" or ">" off the current operator token.
// Nested generics like "Map<K, List<V>>" lex the closing ">>" as a single
// merged operator token; consumeAngle splits off just the leading rune and
// leaves the remainder as the new current token instead of reading from the
// underlying stream again.
func (p *Parser) consumeAngle(lead string) error {
	if p.cur.Kind != token.Operator || !strings.HasPrefix(p.cur.Text, lead) {
		return p.err(diagnostics.ErrP001, lead, p.cur.Kind)
	}
	if len(p.cur.Text) > len(lead) {
		p.cur.Text = p.cur.Text[len(lead):]
		p.cur.Start += len(lead)
		return nil
	}
	p.advance()
	return nil
}
