package parser

import (
	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/token"
)

// parseLine collects exactly one Expression: an optional return/break
// marker, then a value built from one operand plus any trailing operators,
// plus an optional trailing assignment.
func (p *Parser) parseLine(state State) (ast.Expression, error) {
	startTok := p.cur
	kind := ast.Line

	switch p.cur.Kind {
	case token.Return:
		kind = ast.ReturnLine
		p.advance()
	case token.Break:
		kind = ast.BreakLine
		p.advance()
	}

	if terminatesLine(p.cur.Kind) {
		return ast.Expression{Kind: kind, Effect: ast.NOP{}, Tok: startTok}, nil
	}

	switch p.cur.Kind {
	case token.Let:
		eff, err := p.parseLet()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: kind, Effect: eff, Tok: startTok}, nil
	case token.If:
		eff, err := p.parseIf()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: kind, Effect: eff, Tok: startTok}, nil
	case token.For:
		eff, err := p.parseFor()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: kind, Effect: eff, Tok: startTok}, nil
	case token.While:
		eff, err := p.parseWhile()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: kind, Effect: eff, Tok: startTok}, nil
	}

	effect, err := p.parseOperatorExpr(state, 0)
	if err != nil {
		return ast.Expression{}, err
	}

	if p.cur.Kind == token.Equals {
		p.advance()
		rhs, err := p.parseLine(None)
		if err != nil {
			return ast.Expression{}, err
		}
		effect = ast.Set{Target: effect, Value: rhs.Effect}
	}

	return ast.Expression{Kind: kind, Effect: effect, Tok: startTok}, nil
}

func (p *Parser) parseLet() (ast.Effect, error) {
	p.advance() // consume 'let'
	nameTok, err := p.expect(token.Variable)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Equals); err != nil {
		return nil, err
	}
	value, err := p.parseLine(None)
	if err != nil {
		return nil, err
	}
	return ast.CreateVariable{Name: nameTok.Text, Value: value.Effect}, nil
}

// parseNew parses "new Type { name[: expr], ... }". A bare "name" with no
// ": expr" is shorthand for a field taking its value from a same-named
// local variable, resolved later by the verifier.
func (p *Parser) parseNew() (ast.Effect, error) {
	p.advance() // consume 'new'
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.BlockStart); err != nil {
		return nil, err
	}
	var named []ast.NamedArg
	for p.cur.Kind != token.BlockEnd && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.ArgumentEnd || p.cur.Kind == token.LineEnd {
			p.advance()
			continue
		}
		nameTok, err := p.expect(token.Variable)
		if err != nil {
			return nil, err
		}
		var value ast.Effect
		if p.cur.Kind == token.Colon {
			p.advance()
			v, err := p.parseLine(Argument)
			if err != nil {
				return nil, err
			}
			value = v.Effect
		}
		named = append(named, ast.NamedArg{Name: nameTok.Text, Value: value})
	}
	if _, err := p.expect(token.BlockEnd); err != nil {
		return nil, err
	}
	return ast.CreateStruct{Type: typ, NamedArgs: named}, nil
}

func (p *Parser) parseIf() (ast.Effect, error) {
	p.advance() // consume 'if'
	pred, err := p.parseLine(ControlVariable)
	if err != nil {
		return nil, err
	}
	then, err := p.ParseCodeBody()
	if err != nil {
		return nil, err
	}

	var elseBody *ast.CodeBody
	p.skipTerminators()
	if p.cur.Kind == token.Else {
		p.advance()
		if p.cur.Kind == token.If {
			tok := p.cur
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			elseBody = &ast.CodeBody{
				Label:       p.freshLabel(),
				Expressions: []ast.Expression{{Kind: ast.Line, Effect: nested, Tok: tok}},
			}
		} else {
			elseBody, err = p.ParseCodeBody()
			if err != nil {
				return nil, err
			}
		}
	}

	return ast.IfEffect{Predicate: pred, Then: then, Else: elseBody}, nil
}

// parseFor parses "for name: iterable { body }" — a colon stands in for
// the membership keyword since the token contract has no dedicated one.
func (p *Parser) parseFor() (ast.Effect, error) {
	p.advance() // consume 'for'
	nameTok, err := p.expect(token.Variable)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	iterable, err := p.parseLine(ControlVariable)
	if err != nil {
		return nil, err
	}
	body, err := p.ParseCodeBody()
	if err != nil {
		return nil, err
	}
	return ast.ForEffect{Variable: nameTok.Text, Iterable: iterable, Body: body}, nil
}

func (p *Parser) parseWhile() (ast.Effect, error) {
	p.advance() // consume 'while'
	pred, err := p.parseLine(ControlVariable)
	if err != nil {
		return nil, err
	}
	body, err := p.ParseCodeBody()
	if err != nil {
		return nil, err
	}
	return ast.WhileEffect{Predicate: pred, Body: body}, nil
}
