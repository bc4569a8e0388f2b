package types

import (
	"fmt"
)

// Subst maps a generic parameter name to the concrete type it was unified
// with.
type Subst map[string]FinalizedType

// Merge folds other into s, preferring s's existing bindings (first writer
// wins, consistent with left-to-right parameter unification order).
func (s Subst) Merge(other Subst) Subst {
	for k, v := range other {
		if _, ok := s[k]; !ok {
			s[k] = v
		}
	}
	return s
}

type UnifyError struct {
	Formal, Actual FinalizedType
	Reason         string
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s: %s", e.Formal, e.Actual, e.Reason)
}

// BoundsChecker is satisfied by the trait solver; Unify calls it before
// binding a Generic to check every one of its bounds (first
// checking every bound via the trait solver").
type BoundsChecker interface {
	Implements(t FinalizedType, bound FinalizedType) bool
}

type typePair struct{ formal, actual string }

// Unify walks the formal parameter's type tree against the concrete
// argument's type, recording Generic(name, bounds) -> τ substitutions.
// The visited list makes the walk co-inductive so recursive struct types
// (with references breaking the cycle) don't loop forever — the same
// technique a co-inductive unifier uses for its
// alias/record cycles.
func Unify(formal, actual FinalizedType, checker BoundsChecker) (Subst, error) {
	return unify(formal, actual, checker, nil)
}

func unify(formal, actual FinalizedType, checker BoundsChecker, visited []typePair) (Subst, error) {
	pair := typePair{formal.String(), actual.String()}
	for _, p := range visited {
		if p == pair {
			return Subst{}, nil
		}
	}
	visited = append(visited, pair)

	switch f := formal.(type) {
	case Generic:
		for _, bound := range f.Bounds {
			if checker != nil && !checker.Implements(actual, bound) {
				return nil, &UnifyError{formal, actual, fmt.Sprintf("%s does not satisfy bound %s", actual, bound)}
			}
		}
		return Subst{f.Name: actual}, nil

	case Struct:
		a, ok := actual.(Struct)
		if !ok || a.Data != f.Data {
			return nil, &UnifyError{formal, actual, "struct identity mismatch"}
		}
		return Subst{}, nil

	case Reference:
		a, ok := actual.(Reference)
		if !ok {
			return nil, &UnifyError{formal, actual, "expected a reference"}
		}
		return unify(f.Inner, a.Inner, checker, visited)

	case Array:
		a, ok := actual.(Array)
		if !ok {
			return nil, &UnifyError{formal, actual, "expected an array"}
		}
		return unify(f.Elem, a.Elem, checker, visited)

	case GenericType:
		a, ok := actual.(GenericType)
		if !ok {
			return nil, &UnifyError{formal, actual, "expected a parameterised type"}
		}
		if len(f.Args) != len(a.Args) {
			return nil, &UnifyError{formal, actual, "argument count mismatch"}
		}
		s, err := unify(f.Inner, a.Inner, checker, visited)
		if err != nil {
			return nil, err
		}
		for i := range f.Args {
			sub, err := unify(f.Args[i], a.Args[i], checker, visited)
			if err != nil {
				return nil, err
			}
			s = s.Merge(sub)
		}
		return s, nil

	default:
		return nil, &UnifyError{formal, actual, "unhandled type"}
	}
}

// Apply substitutes every Generic(name, _) node in t for which subst has a
// binding, recursing through references, arrays and parameterised types.
func Apply(t FinalizedType, subst Subst) FinalizedType {
	switch v := t.(type) {
	case Generic:
		if repl, ok := subst[v.Name]; ok {
			return repl
		}
		return v
	case Reference:
		return Reference{Inner: Apply(v.Inner, subst)}
	case Array:
		return Array{Elem: Apply(v.Elem, subst)}
	case GenericType:
		args := make([]FinalizedType, len(v.Args))
		for i, a := range v.Args {
			args[i] = Apply(a, subst)
		}
		return GenericType{Inner: Apply(v.Inner, subst), Args: args}
	default:
		return t
	}
}
