package verifier

import (
	"context"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/resolver"
	"github.com/veylang/veyc/internal/solver"
	"github.com/veylang/veyc/internal/types"
)

// verifySignature resolves a function's generics, parameter types and
// return type. This is the Codeless form published before the body is
// checked, so callers elsewhere in a recursive or mutually recursive cycle
// can type-check against it without waiting on this function's body.
func verifySignature(ctx context.Context, fn *ast.UnfinalizedFunction, res *resolver.Resolver, reg *registry.Registry) (*types.CodelessFinalizedFunction, error) {
	scoped := res.WithGenerics(fn.Generics)
	generics, err := resolveGenerics(ctx, fn.Generics, scoped, reg)
	if err != nil {
		return nil, err
	}

	args := make([]types.FinalizedField, 0, len(fn.Fields))
	for _, f := range fn.Fields {
		ft, err := resolveType(ctx, f.Type, scoped, reg)
		if err != nil {
			return nil, err
		}
		args = append(args, types.FinalizedField{Name: f.Name, Type: ft})
	}

	ret := types.FinalizedType(types.Unit)
	if fn.ReturnType != nil {
		rt, err := resolveType(ctx, *fn.ReturnType, scoped, reg)
		if err != nil {
			return nil, err
		}
		ret = rt
	}

	return &types.CodelessFinalizedFunction{
		Generics:   generics,
		Arguments:  args,
		ReturnType: ret,
		Data:       fn.Data,
	}, nil
}

// verifyStruct resolves a struct's generics and field types. Structs carry
// no body, so there is no codeless/finalized split for them: this is the
// final form.
func verifyStruct(ctx context.Context, st *ast.UnfinalizedStruct, res *resolver.Resolver, reg *registry.Registry) (*types.FinalizedStruct, error) {
	scoped := res.WithGenerics(st.Generics)
	generics, err := resolveGenerics(ctx, st.Generics, scoped, reg)
	if err != nil {
		return nil, err
	}
	fields := make([]types.FinalizedField, 0, len(st.Fields))
	for _, f := range st.Fields {
		ft, err := resolveType(ctx, f.Type, scoped, reg)
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.FinalizedField{Name: f.Name, Type: ft})
	}
	return &types.FinalizedStruct{Generics: generics, Fields: fields, Data: st.Data}, nil
}

// verifyImpl resolves an `impl Base for Target` block and registers it with
// the trait solver. The impl's own generics (the T in `impl<T: Add> Add for
// List<T>`) become solver Requirements: obligations the solver re-checks
// against whatever concrete type a query unifies T to.
func verifyImpl(ctx context.Context, impl *ast.TraitImplementor, res *resolver.Resolver, reg *registry.Registry, sv *solver.Solver) (*types.FinishedTraitImplementor, error) {
	scoped := res.WithGenerics(impl.Generics)

	base, err := resolveBound(ctx, impl.Base, scoped, reg)
	if err != nil {
		return nil, err
	}
	target, err := resolveType(ctx, impl.Target, scoped, reg)
	if err != nil {
		return nil, err
	}

	var reqs []solver.Requirement
	for _, g := range impl.Generics {
		for _, b := range g.Bounds {
			tr, err := resolveBound(ctx, b, scoped, reg)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, solver.Requirement{Param: g.Name, Bound: tr})
		}
	}

	fnDatas := make([]*ast.FunctionData, 0, len(impl.Functions))
	for _, fn := range impl.Functions {
		fnDatas = append(fnDatas, fn.Data)
	}

	sv.Register(&solver.ImplDatum{
		Trait:        base.Trait,
		TraitArgs:    base.Args,
		Target:       target,
		Requirements: reqs,
		Functions:    fnDatas,
	})

	finished := &types.FinishedTraitImplementor{Base: base, Target: target, Functions: fnDatas}
	reg.AddImplementor(finished)
	return finished, nil
}
