package registry

import (
	"context"
	"sync"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/token"
	"github.com/veylang/veyc/internal/types"
)

// FuncEntry is the per-name slot for a parsed function declaration.
// The later forms live in their own tables: the Codeless signature in
// Registry.FunctionSignatures and the finalized body in
// Registry.FunctionBodies.
type FuncEntry struct {
	Unfinalized *ast.UnfinalizedFunction
}

// StructEntry mirrors FuncEntry for structs.
type StructEntry struct {
	Unfinalized *ast.UnfinalizedStruct
}

// Registry is the Symbol Registry (C3): a concurrent, ordered store per
// top-level kind, plus the process-wide error vector. The registry and
// error vector are the only process-wide state, guarded by one lock each,
// never held across a suspension.
type Registry struct {
	Functions           *Table[*FuncEntry]
	FunctionSignatures  *Table[*types.CodelessFinalizedFunction]
	FunctionBodies      *Table[*types.FinalizedFunction]

	Structs        *Table[*StructEntry]
	StructFinals   *Table[*types.FinalizedStruct]

	Implementors []*types.FinishedTraitImplementor

	errMu sync.Mutex
	errs  diagnostics.Vector
}

func New() *Registry {
	return &Registry{
		Functions:          NewTable[*FuncEntry](),
		FunctionSignatures: NewTable[*types.CodelessFinalizedFunction](),
		FunctionBodies:     NewTable[*types.FinalizedFunction](),
		Structs:            NewTable[*StructEntry](),
		StructFinals:       NewTable[*types.FinalizedStruct](),
	}
}

// AddFunction registers an unfinalized function declaration. On a name
// collision where neither side is already poisoned, the collision itself
// becomes a poison error carried on both.
func (r *Registry) AddFunction(f *ast.UnfinalizedFunction) error {
	entry := &FuncEntry{Unfinalized: f}
	return r.Functions.Add(f.Data.Name, entry, func(existing, incoming *FuncEntry) error {
		if existing.Unfinalized.Data.IsPoisoned() || incoming.Unfinalized.Data.IsPoisoned() {
			return nil
		}
		err := diagnostics.New("", diagnostics.PhaseRegistry, diagnostics.ErrV006, token.Token{}, token.Token{}, f.Data.Name)
		existing.Unfinalized.Data.Poison(err)
		incoming.Unfinalized.Data.Poison(err)
		r.AppendError(err)
		return err
	})
}

// AddStruct mirrors AddFunction.
func (r *Registry) AddStruct(s *ast.UnfinalizedStruct) error {
	entry := &StructEntry{Unfinalized: s}
	return r.Structs.Add(s.Data.Name, entry, func(existing, incoming *StructEntry) error {
		if existing.Unfinalized.Data.IsPoisoned() || incoming.Unfinalized.Data.IsPoisoned() {
			return nil
		}
		err := diagnostics.New("", diagnostics.PhaseRegistry, diagnostics.ErrV006, token.Token{}, token.Token{}, s.Data.Name)
		existing.Unfinalized.Data.Poison(err)
		incoming.Unfinalized.Data.Poison(err)
		r.AppendError(err)
		return err
	})
}

// PublishSignature installs the Codeless form, the cycle-breaker for
// recursive and mutually recursive calls: callers in a cycle resolve
// against this before the body is checked.
func (r *Registry) PublishSignature(name string, sig *types.CodelessFinalizedFunction) error {
	return r.FunctionSignatures.Add(name, sig, func(existing, incoming *types.CodelessFinalizedFunction) error {
		return nil // monomorphiser may republish an identical signature; last writer wins
	})
}

func (r *Registry) PublishBody(name string, fn *types.FinalizedFunction) error {
	return r.FunctionBodies.Add(name, fn, func(existing, incoming *types.FinalizedFunction) error { return nil })
}

func (r *Registry) PublishStruct(name string, s *types.FinalizedStruct) error {
	return r.StructFinals.Add(name, s, func(existing, incoming *types.FinalizedStruct) error { return nil })
}

// WaitSignature suspends until name's Codeless form is published, or
// returns a not-found error once Finish has run.
func (r *Registry) WaitSignature(ctx context.Context, name string) (*types.CodelessFinalizedFunction, error) {
	return r.FunctionSignatures.Wait(ctx, name)
}

func (r *Registry) WaitBody(ctx context.Context, name string) (*types.FinalizedFunction, error) {
	return r.FunctionBodies.Wait(ctx, name)
}

func (r *Registry) WaitStruct(ctx context.Context, name string) (*types.FinalizedStruct, error) {
	return r.StructFinals.Wait(ctx, name)
}

// Finish marks parsing complete: every table's remaining
// wakers fire so pending waits resolve to a not-found error in bounded
// time, rather than hanging.
func (r *Registry) Finish() {
	r.Functions.Finish()
	r.FunctionSignatures.Finish()
	r.FunctionBodies.Finish()
	r.Structs.Finish()
	r.StructFinals.Finish()
}

// AppendError adds to the process-wide error vector. The lock is
// never held across an await — callers collect their error synchronously
// and release immediately.
func (r *Registry) AppendError(e *diagnostics.ParsingError) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.errs.Append(e)
}

func (r *Registry) Errors() []*diagnostics.ParsingError {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.errs.Deduplicated()
}

func (r *Registry) AddImplementor(impl *types.FinishedTraitImplementor) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.Implementors = append(r.Implementors, impl)
}
