// Package verifier implements the async, demand-driven verifier (C5): a
// two-phase pass over every parsed file that resolves signatures first
// (breaking recursive/mutual-recursion cycles through the registry's
// published-signature wait) and bodies second, both phases fanned out
// across goroutines via errgroup.
package verifier

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/parser"
	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/resolver"
	"github.com/veylang/veyc/internal/solver"
	"github.com/veylang/veyc/internal/types"
)

// Unit is one parsed file's contribution to a compilation: its Program plus
// the resolver carrying its own imports and the shared operator table.
type Unit struct {
	File    string
	Program *parser.Program
	Res     *resolver.Resolver
}

// Result is everything a compilation produces for the stages downstream of
// verification: the populated registry and the trait solver.
type Result struct {
	Registry *registry.Registry
	Solver   *solver.Solver
}

// Verify runs both phases over every unit and returns once every function's
// body has either published or poisoned. Diagnostics collected along the
// way are on Result.Registry.Errors(); Verify itself only returns an error
// for something that should never happen given well-formed units (e.g. a
// cancelled context).
func Verify(ctx context.Context, units []*Unit) (*Result, error) {
	reg := registry.New()
	sv := solver.New()

	for _, u := range units {
		for _, fn := range u.Program.Functions {
			_ = reg.AddFunction(fn) // duplicate collisions self-report via AppendError
		}
		for _, st := range u.Program.Structs {
			_ = reg.AddStruct(st)
		}
	}

	reg.Structs.Finish()
	if err := phaseSignatures(ctx, units, reg); err != nil {
		return nil, err
	}
	reg.FunctionSignatures.Finish()
	reg.StructFinals.Finish()

	for _, e := range detectStructCycles(reg) {
		reg.AppendError(e)
	}

	if err := phaseImpls(ctx, units, reg, sv); err != nil {
		return nil, err
	}

	if err := phaseBodies(ctx, units, reg, sv); err != nil {
		return nil, err
	}
	reg.FunctionBodies.Finish()

	return &Result{Registry: reg, Solver: sv}, nil
}

func phaseSignatures(ctx context.Context, units []*Unit, reg *registry.Registry) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range units {
		u := u
		for _, fn := range u.Program.Functions {
			fn := fn
			g.Go(func() error {
				sig, err := verifySignature(gctx, fn, u.Res, reg)
				if err != nil {
					poisonAndReport(reg, fn.Data, u.File, err)
					return nil
				}
				return reg.PublishSignature(fn.Data.Name, sig)
			})
		}
		for _, st := range u.Program.Structs {
			st := st
			g.Go(func() error {
				fs, err := verifyStruct(gctx, st, u.Res, reg)
				if err != nil {
					poisonAndReport(reg, st.Data, u.File, err)
					return nil
				}
				return reg.PublishStruct(st.Data.Name, fs)
			})
		}
	}
	return g.Wait()
}

func phaseImpls(ctx context.Context, units []*Unit, reg *registry.Registry, sv *solver.Solver) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range units {
		u := u
		for _, impl := range u.Program.Impls {
			impl := impl
			g.Go(func() error {
				if _, err := verifyImpl(gctx, impl, u.Res, reg, sv); err != nil {
					reg.AppendError(asParsingError(u.File, err))
				}
				return nil
			})
		}
	}
	return g.Wait()
}

func phaseBodies(ctx context.Context, units []*Unit, reg *registry.Registry, sv *solver.Solver) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range units {
		u := u
		for _, fn := range u.Program.Functions {
			fn := fn
			if fn.Data.IsPoisoned() {
				continue
			}
			g.Go(func() error {
				if err := verifyFunctionBody(gctx, fn, u.Res, reg, sv); err != nil {
					poisonAndReport(reg, fn.Data, u.File, err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

func verifyFunctionBody(ctx context.Context, fn *ast.UnfinalizedFunction, res *resolver.Resolver, reg *registry.Registry, sv *solver.Solver) error {
	sig, err := reg.WaitSignature(ctx, fn.Data.Name)
	if err != nil {
		return err
	}
	scoped := res.WithGenerics(fn.Generics)
	vars := NewVariableManager()
	for _, a := range sig.Arguments {
		vars.Declare(a.Name, a.Type)
	}
	vc := &verifyCtx{ctx: ctx, res: scoped, reg: reg, sv: sv, vars: vars}

	body, err := verifyBody(vc, fn.Code)
	if err != nil {
		return err
	}
	if !body.Returns && !assignable(types.Unit, sig.ReturnType) {
		return vc.errf(diagnostics.ErrV004)
	}

	finalFn := &types.FinalizedFunction{CodelessFinalizedFunction: *sig, Code: body}
	return reg.PublishBody(fn.Data.Name, finalFn)
}

type poisoner interface {
	Poison(*diagnostics.ParsingError)
}

func poisonAndReport(reg *registry.Registry, target poisoner, file string, err error) {
	pe := asParsingError(file, err)
	target.Poison(pe)
	reg.AppendError(pe)
}

func asParsingError(file string, err error) *diagnostics.ParsingError {
	if pe, ok := err.(*diagnostics.ParsingError); ok {
		return pe
	}
	return &diagnostics.ParsingError{File: file, Phase: diagnostics.PhaseVerifier, Message: err.Error()}
}
