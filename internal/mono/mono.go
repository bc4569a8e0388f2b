// Package mono implements the monomorphiser (C7): it takes a generic
// function body plus a concrete binding for its type parameters and
// produces a fully substituted copy under a mangled name, recursively
// specializing any generic callee it reaches along the way.
//
// Concurrent requests to specialize the same (base, args) pair are
// collapsed with singleflight, the same golang.org/x/sync module the
// verifier already uses for errgroup fan-out.
package mono

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/token"
	"github.com/veylang/veyc/internal/types"
)

// Mono wraps the registry verification publishes into, plus the dedup
// group for in-flight specializations.
type Mono struct {
	reg   *registry.Registry
	group singleflight.Group
}

func New(reg *registry.Registry) *Mono {
	return &Mono{reg: reg}
}

// Specialize returns the function published under baseName, substituted
// for args bound to its declared generics in order. A non-generic function
// (or a generic one asked for with zero args) is returned as published,
// with no new name minted. For a non-generic function, its body is walked
// first so that every generic callee whose call-site type arguments are
// already concrete gets specialized; callees of non-generic callees are not
// visited.
func (m *Mono) Specialize(ctx context.Context, baseName string, args []types.FinalizedType) (*types.FinalizedFunction, error) {
	if len(args) == 0 {
		fn, err := m.reg.WaitBody(ctx, baseName)
		if err != nil {
			return nil, err
		}
		if !fn.IsGeneric() {
			if _, err := m.specializeBody(ctx, fn.Code, types.Subst{}); err != nil {
				return nil, err
			}
		}
		return fn, nil
	}

	mangled := types.Mangle(baseName, args)
	if cached, ok := m.reg.FunctionBodies.Get(mangled); ok {
		return cached, nil
	}

	v, err, _ := m.group.Do(mangled, func() (interface{}, error) {
		if cached, ok := m.reg.FunctionBodies.Get(mangled); ok {
			return cached, nil
		}
		return m.specialize(ctx, baseName, mangled, args)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.FinalizedFunction), nil
}

func (m *Mono) specialize(ctx context.Context, baseName, mangled string, args []types.FinalizedType) (*types.FinalizedFunction, error) {
	base, err := m.reg.WaitBody(ctx, baseName)
	if err != nil {
		return nil, fmt.Errorf("monomorphising %s: %w", baseName, err)
	}
	if len(args) != len(base.Generics) {
		return nil, fmt.Errorf("monomorphising %s: %d type argument(s) for %d generic parameter(s)", baseName, len(args), len(base.Generics))
	}

	subst := types.Subst{}
	for i, g := range base.Generics {
		subst[g.Name] = args[i]
	}

	data := ast.NewFunctionData(mangled, base.Data.Modifiers, base.Data.Attributes)

	sig := &types.CodelessFinalizedFunction{
		Arguments:  substFields(base.Arguments, subst),
		ReturnType: types.Apply(base.ReturnType, subst),
		Data:       data,
	}
	if !types.IsConcrete(sig.ReturnType) {
		return nil, diagnostics.New("", diagnostics.PhaseMono, diagnostics.ErrM001, token.Token{}, token.Token{}, sig.ReturnType.String())
	}
	if err := m.reg.PublishSignature(mangled, sig); err != nil {
		return nil, err
	}

	code, err := m.specializeBody(ctx, base.Code, subst)
	if err != nil {
		return nil, err
	}

	final := &types.FinalizedFunction{CodelessFinalizedFunction: *sig, Code: code}
	if err := m.reg.PublishBody(mangled, final); err != nil {
		return nil, err
	}
	return final, nil
}

func substFields(fields []types.FinalizedField, subst types.Subst) []types.FinalizedField {
	out := make([]types.FinalizedField, len(fields))
	for i, f := range fields {
		out[i] = types.FinalizedField{Name: f.Name, Type: types.Apply(f.Type, subst)}
	}
	return out
}

// specializeBody walks a finalized body applying subst to every type it
// carries, and recursively specializes any callee a nested FCall/FOperator
// reaches whose own TypeArgs become fully concrete once subst is applied.
func (m *Mono) specializeBody(ctx context.Context, body *types.FinalizedCodeBody, subst types.Subst) (*types.FinalizedCodeBody, error) {
	if body == nil {
		return nil, nil
	}
	out := &types.FinalizedCodeBody{Label: body.Label, Returns: body.Returns}
	for _, e := range body.Expressions {
		eff, err := m.specializeEffect(ctx, e.Effect, subst)
		if err != nil {
			return nil, err
		}
		out.Expressions = append(out.Expressions, types.FinalizedExpression{Kind: e.Kind, Effect: eff})
	}
	return out, nil
}

func (m *Mono) specializeExpr(ctx context.Context, e types.FinalizedExpression, subst types.Subst) (types.FinalizedExpression, error) {
	eff, err := m.specializeEffect(ctx, e.Effect, subst)
	if err != nil {
		return types.FinalizedExpression{}, err
	}
	return types.FinalizedExpression{Kind: e.Kind, Effect: eff}, nil
}

func (m *Mono) specializeEffect(ctx context.Context, eff types.FinalizedEffect, subst types.Subst) (types.FinalizedEffect, error) {
	switch v := eff.(type) {
	case types.FNOP, types.FInt, types.FFloat, types.FBool, types.FString:
		return v, nil

	case types.FLoadVariable:
		return types.FLoadVariable{Name: v.Name, Type: types.Apply(v.Type, subst)}, nil

	case types.FLoad:
		recv, err := m.specializeEffect(ctx, v.Receiver, subst)
		if err != nil {
			return nil, err
		}
		return types.FLoad{Receiver: recv, Field: v.Field, Type: types.Apply(v.Type, subst)}, nil

	case types.FParen:
		inner, err := m.specializeEffect(ctx, v.Inner, subst)
		if err != nil {
			return nil, err
		}
		return types.FParen{Inner: inner}, nil

	case types.FCodeBody:
		body, err := m.specializeBody(ctx, v.Body, subst)
		if err != nil {
			return nil, err
		}
		return types.FCodeBody{Body: body}, nil

	case types.FSet:
		target, err := m.specializeEffect(ctx, v.Target, subst)
		if err != nil {
			return nil, err
		}
		value, err := m.specializeEffect(ctx, v.Value, subst)
		if err != nil {
			return nil, err
		}
		return types.FSet{Target: target, Value: value}, nil

	case types.FCreateVariable:
		value, err := m.specializeEffect(ctx, v.Value, subst)
		if err != nil {
			return nil, err
		}
		return types.FCreateVariable{Name: v.Name, Value: value}, nil

	case types.FCreateStruct:
		named := make([]types.FNamedArg, len(v.NamedArgs))
		for i, na := range v.NamedArgs {
			value, err := m.specializeEffect(ctx, na.Value, subst)
			if err != nil {
				return nil, err
			}
			named[i] = types.FNamedArg{Name: na.Name, Value: value}
		}
		typeArgs := applyAll(v.TypeArgs, subst)
		return types.FCreateStruct{Struct: v.Struct, NamedArgs: named, TypeArgs: typeArgs}, nil

	case types.FIf:
		pred, err := m.specializeExpr(ctx, v.Predicate, subst)
		if err != nil {
			return nil, err
		}
		then, err := m.specializeBody(ctx, v.Then, subst)
		if err != nil {
			return nil, err
		}
		elseBody, err := m.specializeBody(ctx, v.Else, subst)
		if err != nil {
			return nil, err
		}
		return types.FIf{Predicate: pred, Then: then, Else: elseBody}, nil

	case types.FFor:
		iterable, err := m.specializeEffect(ctx, v.Iterable, subst)
		if err != nil {
			return nil, err
		}
		body, err := m.specializeBody(ctx, v.Body, subst)
		if err != nil {
			return nil, err
		}
		return types.FFor{Variable: v.Variable, Iterable: iterable, Body: body}, nil

	case types.FWhile:
		pred, err := m.specializeExpr(ctx, v.Predicate, subst)
		if err != nil {
			return nil, err
		}
		body, err := m.specializeBody(ctx, v.Body, subst)
		if err != nil {
			return nil, err
		}
		return types.FWhile{Predicate: pred, Body: body}, nil

	case types.FCall:
		return m.specializeCall(ctx, v, subst)

	case types.FOperator:
		return m.specializeOperator(ctx, v, subst)

	default:
		return nil, fmt.Errorf("mono: unhandled effect %T", eff)
	}
}

func (m *Mono) specializeCall(ctx context.Context, v types.FCall, subst types.Subst) (types.FinalizedEffect, error) {
	var recv types.FinalizedEffect
	if v.Receiver != nil {
		var err error
		recv, err = m.specializeEffect(ctx, v.Receiver, subst)
		if err != nil {
			return nil, err
		}
	}
	args := make([]types.FinalizedEffect, len(v.Args))
	for i, a := range v.Args {
		fa, err := m.specializeEffect(ctx, a, subst)
		if err != nil {
			return nil, err
		}
		args[i] = fa
	}

	typeArgs := applyAll(v.TypeArgs, subst)
	target := v.Target
	if len(typeArgs) > 0 && types.AllConcrete(typeArgs) {
		callee, err := m.Specialize(ctx, v.Target.Data.Name, typeArgs)
		if err != nil {
			return nil, err
		}
		target = &callee.CodelessFinalizedFunction
		typeArgs = nil
	}

	return types.FCall{Receiver: recv, Target: target, Args: args, TypeArgs: typeArgs}, nil
}

func (m *Mono) specializeOperator(ctx context.Context, v types.FOperator, subst types.Subst) (types.FinalizedEffect, error) {
	operands := make([]types.FinalizedEffect, len(v.Operands))
	for i, o := range v.Operands {
		fo, err := m.specializeEffect(ctx, o, subst)
		if err != nil {
			return nil, err
		}
		operands[i] = fo
	}

	typeArgs := applyAll(v.TypeArgs, subst)
	target := v.Target
	if len(typeArgs) > 0 && types.AllConcrete(typeArgs) {
		callee, err := m.Specialize(ctx, v.Target.Data.Name, typeArgs)
		if err != nil {
			return nil, err
		}
		target = &callee.CodelessFinalizedFunction
		typeArgs = nil
	}

	return types.FOperator{Target: target, Operands: operands, TypeArgs: typeArgs}, nil
}

func applyAll(args []types.FinalizedType, subst types.Subst) []types.FinalizedType {
	if len(args) == 0 {
		return nil
	}
	out := make([]types.FinalizedType, len(args))
	for i, a := range args {
		out[i] = types.Apply(a, subst)
	}
	return out
}
