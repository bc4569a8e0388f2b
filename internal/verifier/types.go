package verifier

import (
	"context"
	"fmt"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/resolver"
	"github.com/veylang/veyc/internal/types"
)

// resolveType turns a parsed UnresolvedType into a FinalizedType. Nominal
// names wait on the registry's struct table so forward references across
// files within a compilation resolve correctly; a name still missing once
// the registry is closed (every file parsed) surfaces as a not-found error.
func resolveType(ctx context.Context, u ast.UnresolvedType, res *resolver.Resolver, reg *registry.Registry) (types.FinalizedType, error) {
	name := res.Resolve(u.Name)

	if bounds, ok := res.Generic(name); ok {
		resolvedBounds := make([]types.FinalizedType, 0, len(bounds))
		for _, b := range bounds {
			tr, err := resolveBound(ctx, b, res, reg)
			if err != nil {
				return nil, err
			}
			resolvedBounds = append(resolvedBounds, tr)
		}
		return types.Generic{Name: name, Bounds: resolvedBounds}, nil
	}

	if b, ok := types.Builtins()[name]; ok && !u.IsGeneric() {
		return b, nil
	}

	switch name {
	case "Ref":
		if len(u.Args) != 1 {
			return nil, fmt.Errorf("Ref takes exactly one type argument, got %d", len(u.Args))
		}
		inner, err := resolveType(ctx, u.Args[0], res, reg)
		if err != nil {
			return nil, err
		}
		return types.Reference{Inner: inner}, nil
	case "Array":
		if len(u.Args) != 1 {
			return nil, fmt.Errorf("Array takes exactly one type argument, got %d", len(u.Args))
		}
		inner, err := resolveType(ctx, u.Args[0], res, reg)
		if err != nil {
			return nil, err
		}
		return types.Array{Elem: inner}, nil
	}

	entry, err := reg.Structs.Wait(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("unknown type %q: %w", name, err)
	}
	base := types.Struct{Data: entry.Unfinalized.Data}
	if len(u.Args) == 0 {
		return base, nil
	}
	args := make([]types.FinalizedType, 0, len(u.Args))
	for _, a := range u.Args {
		fa, err := resolveType(ctx, a, res, reg)
		if err != nil {
			return nil, err
		}
		args = append(args, fa)
	}
	return types.GenericType{Inner: base, Args: args}, nil
}

// resolveBound resolves a generic parameter's bound: a trait name,
// optionally parameterised (e.g. "Into<string>"), rather than a nominal
// type.
func resolveBound(ctx context.Context, u ast.UnresolvedType, res *resolver.Resolver, reg *registry.Registry) (types.TraitRef, error) {
	args := make([]types.FinalizedType, 0, len(u.Args))
	for _, a := range u.Args {
		fa, err := resolveType(ctx, a, res, reg)
		if err != nil {
			return types.TraitRef{}, err
		}
		args = append(args, fa)
	}
	return types.TraitRef{Trait: res.Resolve(u.Name), Args: args}, nil
}

// resolveGenerics resolves a declaration's own <T: Bound, ...> clause into
// GenericSlots, against a resolver already extended with those same params
// in scope (so a bound referencing a sibling generic resolves correctly).
func resolveGenerics(ctx context.Context, params []ast.GenericParam, scoped *resolver.Resolver, reg *registry.Registry) ([]types.GenericSlot, error) {
	slots := make([]types.GenericSlot, 0, len(params))
	for _, g := range params {
		bounds := make([]types.FinalizedType, 0, len(g.Bounds))
		for _, b := range g.Bounds {
			tr, err := resolveBound(ctx, b, scoped, reg)
			if err != nil {
				return nil, err
			}
			bounds = append(bounds, tr)
		}
		slots = append(slots, types.GenericSlot{Name: g.Name, Bounds: bounds})
	}
	return slots, nil
}
