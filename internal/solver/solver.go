// Package solver implements the trait solver (C6): a constraint-solving
// back end that decides whether τ: Trait<...>, including on parameterised
// types.
package solver

import (
	"fmt"
	"sync"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/token"
	"github.com/veylang/veyc/internal/types"
)

// defaults for the bounded search: depth cap and total-work cap.
const (
	DefaultMaxDepth = 30
	DefaultMaxWork  = 3000
)

// Requirement is one bound an impl's own generic parameter must satisfy,
// e.g. `impl<T: Add> Add for List<T>` requires T: Add.
type Requirement struct {
	Param string
	Bound types.TraitRef
}

// ImplDatum is one registered `impl Trait for Target` relationship, built
// from a FinishedTraitImplementor. Target may itself contain
// types.Generic placeholders (the impl's own generic parameters); matching
// a query unifies the query's concrete type against this pattern.
type ImplDatum struct {
	Trait        string
	TraitArgs    []types.FinalizedType
	Target       types.FinalizedType
	Requirements []Requirement
	Functions    []*ast.FunctionData
}

// Goal is `Implements(τ, Trait)` built from a query.
type Goal struct {
	Type  types.FinalizedType
	Trait string
	Args  []types.FinalizedType
}

func (g Goal) String() string {
	return fmt.Sprintf("%s: %s", g.Type, types.TraitRef{Trait: g.Trait, Args: g.Args})
}

// Solver is the constraint-solving back end. It is safe for concurrent use:
// registration and queries both take the same RWMutex, matching the
// registry's guarded-by-a-single-lock design.
type Solver struct {
	mu       sync.RWMutex
	impls    map[string][]*ImplDatum // keyed by trait name
	maxDepth int
	maxWork  int
}

func New() *Solver {
	return &Solver{impls: make(map[string][]*ImplDatum), maxDepth: DefaultMaxDepth, maxWork: DefaultMaxWork}
}

func (s *Solver) Register(d *ImplDatum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.impls[d.Trait] = append(s.impls[d.Trait], d)
}

// Implements returns whether t: Trait<args...>, along with the matching
// impl's functions (needed by the verifier to bind a method call such as
// `a.add(b)` to a concrete FunctionData).
func (s *Solver) Implements(t types.FinalizedType, trait string, args []types.FinalizedType) (bool, []*ast.FunctionData) {
	work := 0
	ok, fns, _ := s.solve(Goal{Type: t, Trait: trait, Args: args}, 0, &work)
	return ok, fns
}

// Bounds adapts s to the types.BoundsChecker interface Unify uses for
// top-level call/operator bound checks (as opposed to solve's own
// boundsAdapter, used while matching an impl's generic Target pattern).
func (s *Solver) Bounds() Adapter { return Adapter{s: s} }

// Adapter is the types.BoundsChecker Unify receives from a call site outside
// the solver package.
type Adapter struct{ s *Solver }

func (a Adapter) Implements(t types.FinalizedType, bound types.FinalizedType) bool {
	ref, ok := bound.(types.TraitRef)
	if !ok {
		return false
	}
	ok2, _ := a.s.Implements(t, ref.Trait, ref.Args)
	return ok2
}

func (s *Solver) solve(goal Goal, depth int, work *int) (bool, []*ast.FunctionData, error) {
	if depth > s.maxDepth || *work > s.maxWork {
		return false, nil, diagnostics.New("", diagnostics.PhaseSolver, diagnostics.ErrS002, token.Token{}, token.Token{}, goal.String())
	}
	*work++

	// When the *queried type* is itself an unresolved Generic (inside a
	// still-generic function body, before monomorphisation), the bound is
	// trusted to hold if it appears among the generic's own declared bounds:
	// for a Generic(_, bounds) operand, this succeeds iff the requested
	// trait is among those bounds.
	if g, ok := goal.Type.(types.Generic); ok {
		for _, b := range g.Bounds {
			ref, ok := b.(types.TraitRef)
			if !ok || ref.Trait != goal.Trait {
				continue
			}
			return true, nil, nil
		}
		return false, nil, nil
	}

	s.mu.RLock()
	candidates := append([]*ImplDatum(nil), s.impls[goal.Trait]...)
	s.mu.RUnlock()

	for _, impl := range candidates {
		subst, err := types.Unify(impl.Target, goal.Type, boundsAdapter{s, depth, work})
		if err != nil {
			continue
		}
		ok := true
		for _, req := range impl.Requirements {
			concrete, bound := subst[req.Param], req.Bound
			if concrete == nil {
				ok = false
				break
			}
			sub, _, err := s.solve(Goal{Type: concrete, Trait: bound.Trait, Args: bound.Args}, depth+1, work)
			if err != nil {
				return false, nil, err
			}
			if !sub {
				ok = false
				break
			}
		}
		if ok {
			return true, impl.Functions, nil
		}
	}
	return false, nil, nil
}

// FindMethod searches every registered impl for one whose target matches t
// and that declares a function registered as "Trait.method", returning
// that function's identity. Used to resolve "receiver.method(...)" call
// syntax, which names the method but not its owning trait.
func (s *Solver) FindMethod(t types.FinalizedType, method string) (*ast.FunctionData, bool) {
	s.mu.RLock()
	traits := make([]string, 0, len(s.impls))
	for trait := range s.impls {
		traits = append(traits, trait)
	}
	s.mu.RUnlock()

	for _, trait := range traits {
		ok, fns := s.Implements(t, trait, nil)
		if !ok {
			continue
		}
		for _, fn := range fns {
			if fn.Name == trait+"."+method {
				return fn, true
			}
		}
	}
	return nil, false
}

// boundsAdapter lets Unify (called from within solve, to match an impl's
// generic Target pattern) recurse back into the solver for any bound the
// pattern's own Generic placeholders carry.
type boundsAdapter struct {
	s     *Solver
	depth int
	work  *int
}

func (b boundsAdapter) Implements(t types.FinalizedType, bound types.FinalizedType) bool {
	ref, ok := bound.(types.TraitRef)
	if !ok {
		return false
	}
	ok2, _, _ := b.s.solve(Goal{Type: t, Trait: ref.Trait, Args: ref.Args}, b.depth+1, b.work)
	return ok2
}
