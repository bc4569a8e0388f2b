package parser

import (
	"strconv"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/token"
)

// combineOperator folds the InOperator flag into state when recursing into
// an operator's operand: ControlVariable (inside an if/while/for predicate)
// becomes ControlOperator, everything else becomes plain InOperator.
func combineOperator(state State) State {
	if state == ControlVariable || state == ControlOperator {
		return ControlOperator
	}
	return InOperator
}

func isControlState(state State) bool {
	return state == ControlVariable || state == ControlOperator
}

// parseOperatorExpr parses an operand followed by zero or more infix
// operators, folding them by priority/associativity via precedence
// climbing: this produces the same parse tree that eagerly building a
// left-leaning chain and rotating on each new, higher-priority operator
// would, without needing to mutate an already-built tree in place.
func (p *Parser) parseOperatorExpr(state State, minPriority int) (ast.Effect, error) {
	left, err := p.parseUnaryOrOperand(state)
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.Operator {
		spec, ok := p.resolver.Ops.Lookup(p.cur.Text, false)
		if !ok || spec.Priority < minPriority {
			break
		}
		opTok := p.advance()
		nextMin := spec.Priority + 1
		if !spec.ParseLeft {
			nextMin = spec.Priority
		}
		right, err := p.parseOperatorExpr(combineOperator(state), nextMin)
		if err != nil {
			return nil, err
		}
		left = &ast.Operator{Token: opTok, Operands: []ast.Effect{left, right}}
	}
	return left, nil
}

// parseUnaryOrOperand consumes any number of prefix unary operators
// ("-x", "--x") and then one operand.
func (p *Parser) parseUnaryOrOperand(state State) (ast.Effect, error) {
	if p.cur.Kind == token.Operator {
		if _, ok := p.resolver.Ops.Lookup(p.cur.Text, true); !ok {
			return nil, p.err(diagnostics.ErrP001, "a registered prefix operator", p.cur.Text)
		}
		opTok := p.advance()
		operand, err := p.parseUnaryOrOperand(state)
		if err != nil {
			return nil, err
		}
		return &ast.Operator{Token: opTok, Operands: []ast.Effect{operand}}, nil
	}
	return p.parsePrimary(state)
}

// parsePrimary parses one term: a literal, a variable/call chain, a
// parenthesised sub-expression, a struct literal, or a nested code body —
// then greedily extends it with any trailing ".field"/".method(...)" chain.
func (p *Parser) parsePrimary(state State) (ast.Effect, error) {
	var effect ast.Effect

	switch p.cur.Kind {
	case token.Integer:
		v, convErr := strconv.ParseInt(p.cur.Text, 10, 64)
		if convErr != nil {
			return nil, p.err(diagnostics.ErrP001, "integer literal", p.cur.Text)
		}
		effect = ast.IntEffect{Value: v}
		p.advance()
	case token.Float:
		v, convErr := strconv.ParseFloat(p.cur.Text, 64)
		if convErr != nil {
			return nil, p.err(diagnostics.ErrP001, "float literal", p.cur.Text)
		}
		effect = ast.FloatEffect{Value: v}
		p.advance()
	case token.True:
		effect = ast.BoolEffect{Value: true}
		p.advance()
	case token.False:
		effect = ast.BoolEffect{Value: false}
		p.advance()
	case token.StringStart:
		effect = ast.StringEffect{Value: p.cur.Text}
		p.advance()
	case token.Variable:
		name := p.advance().Text
		call, err := p.maybeParseCall(nil, name)
		if err != nil {
			return nil, err
		}
		if call != nil {
			effect = call
		} else {
			effect = ast.LoadVariable{Name: name}
		}
	case token.ParenOpen:
		p.advance()
		inner, err := p.parseLine(None)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ParenClose); err != nil {
			return nil, err
		}
		effect = ast.Paren{Inner: inner.Effect}
	case token.New:
		eff, err := p.parseNew()
		if err != nil {
			return nil, err
		}
		effect = eff
	case token.BlockStart:
		if isControlState(state) {
			return ast.NOP{}, nil
		}
		body, err := p.ParseCodeBody()
		if err != nil {
			return nil, err
		}
		effect = ast.CodeBodyEffect{Body: body}
	default:
		return nil, p.err(diagnostics.ErrP001, "expression", p.cur.Kind)
	}

	for p.cur.Kind == token.CallingType {
		name := p.advance().Text
		call, err := p.maybeParseCall(effect, name)
		if err != nil {
			return nil, err
		}
		if call != nil {
			effect = call
			continue
		}
		effect = ast.Load{Receiver: effect, Field: name}
	}
	return effect, nil
}

// maybeParseCall checks whether name (just consumed as a Variable or
// CallingType segment) is immediately followed by a call — "(...)" or
// "<T,...>(...)" — and if so parses and returns the MethodCall. Returns
// (nil, nil) when name is not a call, so the caller falls back to
// LoadVariable/Load.
func (p *Parser) maybeParseCall(receiver ast.Effect, name string) (ast.Effect, error) {
	switch {
	case p.cur.Kind == token.ParenOpen:
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return ast.MethodCall{Receiver: receiver, Name: name, Args: args}, nil
	case p.isGenericCallStart():
		generics, err := p.parseGenericArgList()
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return ast.MethodCall{Receiver: receiver, Name: name, Args: args, GenericArgs: generics}, nil
	default:
		return nil, nil
	}
}

// parseArgs consumes "(" arg [, arg]* ")", each arg a full parse_line in
// Argument state so a bare "," inside it is recognised as the separator.
func (p *Parser) parseArgs() ([]ast.Expression, error) {
	if _, err := p.expect(token.ParenOpen); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for p.cur.Kind != token.ParenClose && p.cur.Kind != token.EOF {
		arg, err := p.parseLine(Argument)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Kind == token.ArgumentEnd {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.ParenClose); err != nil {
		return nil, err
	}
	return args, nil
}
