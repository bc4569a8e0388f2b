package parser

import (
	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/token"
)

// Program is everything one compilation unit's top level yields. Nothing
// here is installed in the registry yet — the caller does that once every
// file in the compilation has been parsed, so duplicate-name detection sees
// the whole program at once.
type Program struct {
	Functions []*ast.UnfinalizedFunction
	Structs   []*ast.UnfinalizedStruct
	Traits    []string
	Impls     []*ast.TraitImplementor
}

// ParseProgram parses every top-level declaration up to EOF.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	p.skipTerminators()
	for p.cur.Kind != token.EOF {
		mods, attrs, err := p.parseModifiers()
		if err != nil {
			return nil, err
		}
		switch p.cur.Kind {
		case token.Fn:
			fn, err := p.parseFunction(mods, attrs)
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fn)
		case token.StructKw:
			st, err := p.parseStruct(mods)
			if err != nil {
				return nil, err
			}
			prog.Structs = append(prog.Structs, st)
		case token.Trait:
			name, err := p.parseTraitDecl()
			if err != nil {
				return nil, err
			}
			prog.Traits = append(prog.Traits, name)
		case token.Impl:
			impl, err := p.parseImpl()
			if err != nil {
				return nil, err
			}
			prog.Impls = append(prog.Impls, impl)
			prog.Functions = append(prog.Functions, impl.Functions...)
		default:
			return nil, p.err(diagnostics.ErrP001, "a top-level declaration", p.cur.Kind)
		}
		p.skipTerminators()
	}
	return prog, nil
}

// parseModifiers consumes any of the "pub"/"static"/"operator(...)" prefix
// words in front of a fn/struct declaration. These are plain identifiers,
// not dedicated keywords, so they're recognised by text.
func (p *Parser) parseModifiers() (ast.Modifier, map[string]string, error) {
	var mods ast.Modifier
	var attrs map[string]string
	for p.cur.Kind == token.Variable {
		switch p.cur.Text {
		case "pub":
			mods |= ast.ModPublic
			p.advance()
		case "static":
			mods |= ast.ModStatic
			p.advance()
		case "operator":
			p.advance()
			if _, err := p.expect(token.ParenOpen); err != nil {
				return 0, nil, err
			}
			tmplTok, err := p.expect(token.StringStart)
			if err != nil {
				return 0, nil, err
			}
			if _, err := p.expect(token.ParenClose); err != nil {
				return 0, nil, err
			}
			mods |= ast.ModOperator
			if attrs == nil {
				attrs = make(map[string]string)
			}
			attrs["operation"] = tmplTok.Text
		default:
			return mods, attrs, nil
		}
	}
	return mods, attrs, nil
}

// parseGenericClause parses an optional "<T: Bound1 + Bound2, U>" clause.
// Returns (nil, nil) when the current token doesn't open one.
func (p *Parser) parseGenericClause() ([]ast.GenericParam, error) {
	if !p.curIsOpenAngle() {
		return nil, nil
	}
	if err := p.consumeAngle("<"); err != nil {
		return nil, err
	}
	var params []ast.GenericParam
	for {
		nameTok, err := p.expect(token.Variable)
		if err != nil {
			return nil, err
		}
		gp := ast.GenericParam{Name: nameTok.Text}
		if p.cur.Kind == token.Colon {
			p.advance()
			for {
				bound, err := p.parseType()
				if err != nil {
					return nil, err
				}
				gp.Bounds = append(gp.Bounds, bound)
				if p.cur.Kind == token.Operator && p.cur.Text == "+" {
					p.advance()
					continue
				}
				break
			}
		}
		params = append(params, gp)
		if p.cur.Kind == token.ArgumentEnd {
			p.advance()
			continue
		}
		break
	}
	if err := p.consumeAngle(">"); err != nil {
		return nil, err
	}
	return params, nil
}

// parseFieldList parses "(name: Type, name: Type, ...)", a function's
// parameter list. Call arguments are parsed by parseArgs instead.
func (p *Parser) parseFieldList() ([]ast.PendingField, error) {
	if _, err := p.expect(token.ParenOpen); err != nil {
		return nil, err
	}
	var fields []ast.PendingField
	for p.cur.Kind != token.ParenClose && p.cur.Kind != token.EOF {
		nameTok, err := p.expect(token.Variable)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.PendingField{Name: nameTok.Text, Type: typ})
		if p.cur.Kind == token.ArgumentEnd {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.ParenClose); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseFunction parses "fn name<generics>(fields): RetType { body }". mods
// and attrs come from a preceding parseModifiers call (or from parseImpl,
// which parses its own method-level modifiers the same way).
func (p *Parser) parseFunction(mods ast.Modifier, attrs map[string]string) (*ast.UnfinalizedFunction, error) {
	p.advance() // consume 'fn'
	nameTok, err := p.expect(token.Variable)
	if err != nil {
		return nil, err
	}
	generics, err := p.parseGenericClause()
	if err != nil {
		return nil, err
	}
	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	var ret *ast.UnresolvedType
	if p.cur.Kind == token.Colon {
		p.advance()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ret = &t
	}
	body, err := p.ParseCodeBody()
	if err != nil {
		return nil, err
	}
	data := ast.NewFunctionData(nameTok.Text, mods, attrs)
	return &ast.UnfinalizedFunction{
		Generics:   generics,
		Fields:     fields,
		Code:       body,
		ReturnType: ret,
		Data:       data,
	}, nil
}

// parseStruct parses "struct Name<generics> { field: Type, ... }".
func (p *Parser) parseStruct(mods ast.Modifier) (*ast.UnfinalizedStruct, error) {
	p.advance() // consume 'struct'
	nameTok, err := p.expect(token.Variable)
	if err != nil {
		return nil, err
	}
	generics, err := p.parseGenericClause()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.BlockStart); err != nil {
		return nil, err
	}
	var fields []ast.PendingField
	for p.cur.Kind != token.BlockEnd && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.ArgumentEnd || p.cur.Kind == token.LineEnd {
			p.advance()
			continue
		}
		fNameTok, err := p.expect(token.Variable)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.PendingField{Name: fNameTok.Text, Type: typ})
	}
	if _, err := p.expect(token.BlockEnd); err != nil {
		return nil, err
	}
	data := ast.NewStructData(nameTok.Text, mods)
	return &ast.UnfinalizedStruct{Generics: generics, Fields: fields, Data: data}, nil
}

// parseTraitDecl parses "trait Name { ... }" as a bare marker: a trait only
// declares that the name exists as a bound; the solver learns what it means
// entirely from impl blocks, so the body (if any) is skipped unparsed.
func (p *Parser) parseTraitDecl() (string, error) {
	p.advance() // consume 'trait'
	nameTok, err := p.expect(token.Variable)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(token.BlockStart); err != nil {
		return "", err
	}
	depth := 1
	for depth > 0 {
		switch p.cur.Kind {
		case token.BlockStart:
			depth++
		case token.BlockEnd:
			depth--
		case token.EOF:
			return "", p.err(diagnostics.ErrP004, nameTok)
		}
		p.advance()
	}
	return nameTok.Text, nil
}

// parseImpl parses "impl Base for Target { fn method(...) {...} ... }",
// reusing the For token in place of an unmodeled "for" keyword specific to
// impl headers. Each method's FunctionData.Name is registry-qualified as
// "Base.method", matching the operator table's Function field convention.
func (p *Parser) parseImpl() (*ast.TraitImplementor, error) {
	p.advance() // consume 'impl'
	generics, err := p.parseGenericClause()
	if err != nil {
		return nil, err
	}
	base, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.For); err != nil {
		return nil, err
	}
	target, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.BlockStart); err != nil {
		return nil, err
	}
	var fns []*ast.UnfinalizedFunction
	p.skipTerminators()
	for p.cur.Kind != token.BlockEnd && p.cur.Kind != token.EOF {
		mods, attrs, err := p.parseModifiers()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Fn {
			return nil, p.err(diagnostics.ErrP001, "a method declaration", p.cur.Kind)
		}
		fn, err := p.parseFunction(mods, attrs)
		if err != nil {
			return nil, err
		}
		fn.Data.Name = base.Name + "." + fn.Data.Name
		fns = append(fns, fn)
		p.skipTerminators()
	}
	if _, err := p.expect(token.BlockEnd); err != nil {
		return nil, err
	}
	return &ast.TraitImplementor{Generics: generics, Base: base, Target: target, Functions: fns}, nil
}
