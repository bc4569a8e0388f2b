// Package types holds the finalised, fully name-resolved type system that
// verification (C5) produces and the trait solver (C6) and monomorphiser
// (C7) operate on.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/veylang/veyc/internal/ast"
)

// FinalizedType is the closed set of type-system values. Implementations are
// value types; Struct holds a pointer to shared identity. Generic,
// GenericType and TraitRef hold slices, so they are not comparable with ==
// and cannot be map keys; unification compares types through String() and
// walks them co-inductively to stay cycle-safe.
type FinalizedType interface {
	String() string
	finalizedType()
}

// Struct references the shared StructData identity; two Struct values are
// the same type iff their Data pointers are equal.
type Struct struct {
	Data *ast.StructData
}

func (Struct) finalizedType() {}
func (s Struct) String() string { return s.Data.Name }

// Reference is `&T`.
type Reference struct{ Inner FinalizedType }

func (Reference) finalizedType()   {}
func (r Reference) String() string { return "&" + r.Inner.String() }

// Array is `[T]`.
type Array struct{ Elem FinalizedType }

func (Array) finalizedType()   {}
func (a Array) String() string { return "[" + a.Elem.String() + "]" }

// Generic is an as-yet-uninstantiated type parameter with its bounds. It
// must never appear in output handed to the back end outside of a
// generic top-level item's own (never-emitted) signature.
type Generic struct {
	Name   string
	Bounds []FinalizedType
}

func (Generic) finalizedType() {}
func (g Generic) String() string {
	if len(g.Bounds) == 0 {
		return g.Name
	}
	parts := make([]string, len(g.Bounds))
	for i, b := range g.Bounds {
		parts[i] = b.String()
	}
	return g.Name + ": " + strings.Join(parts, " + ")
}

// GenericType is a parameterised nominal type applied to concrete or still
// generic arguments, e.g. `List<T>` or `List<i64>`.
type GenericType struct {
	Inner FinalizedType
	Args  []FinalizedType
}

func (GenericType) finalizedType() {}
func (g GenericType) String() string {
	parts := make([]string, len(g.Args))
	for i, a := range g.Args {
		parts[i] = a.String()
	}
	return g.Inner.String() + "<" + strings.Join(parts, ", ") + ">"
}

// TraitRef names a trait constraint, e.g. the "Add" in `T: Add`. It is not
// one of the core FinalizedType variants enumerated for *values*, but it
// is the FinalizedType used wherever a Generic's Bounds slice or an impl
// block's requirement list needs to name a trait rather than a value type.
type TraitRef struct {
	Trait string
	Args  []FinalizedType // parameters for a parameterised trait, e.g. Into<T>
}

func (TraitRef) finalizedType() {}
func (t TraitRef) String() string {
	if len(t.Args) == 0 {
		return t.Trait
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return t.Trait + "<" + strings.Join(parts, ", ") + ">"
}

// IsConcrete reports whether t contains no Generic(_,_) node, i.e. it is
// safe to hand to the back end.
func IsConcrete(t FinalizedType) bool {
	switch v := t.(type) {
	case Generic:
		return false
	case Reference:
		return IsConcrete(v.Inner)
	case Array:
		return IsConcrete(v.Elem)
	case GenericType:
		if !IsConcrete(v.Inner) {
			return false
		}
		for _, a := range v.Args {
			if !IsConcrete(a) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// AllConcrete reports whether every type in args is concrete, the
// condition under which a generic call site's bound type arguments are
// ready to drive a monomorphisation request.
func AllConcrete(args []FinalizedType) bool {
	for _, a := range args {
		if !IsConcrete(a) {
			return false
		}
	}
	return true
}

// MangledName is the output-visible identity of a type argument used to
// build a specialisation suffix: structs by their
// own mangled name; arrays `[T]`; references `&T`.
func MangledName(t FinalizedType) string {
	switch v := t.(type) {
	case Struct:
		return v.Data.Name
	case Array:
		return "[" + MangledName(v.Elem) + "]"
	case Reference:
		return "&" + MangledName(v.Inner)
	case GenericType:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = MangledName(a)
		}
		return MangledName(v.Inner) + "$" + strings.Join(parts, "_")
	case Generic:
		return v.Name
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Mangle builds "BASE$T1_T2_..._Tn".
func Mangle(base string, args []FinalizedType) string {
	if len(args) == 0 {
		return base
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = MangledName(a)
	}
	return base + "$" + strings.Join(parts, "_")
}

// sortedKeys returns m's keys in sorted order, for deterministic iteration.
func sortedKeys(m map[string]FinalizedType) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
