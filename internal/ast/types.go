// Package ast holds the unresolved AST the parser (C2) produces, and the
// top-level data shared by reference across the whole pipeline.
package ast

import "strings"

// UnresolvedType is a type as written in source, before the resolver (C4)
// turns names into fully-qualified ones and the verifier (C5) turns them
// into FinalizedType.
type UnresolvedType struct {
	// Basic types have Name set and Args empty.
	Name string
	// Generic types have both Name (the outer type) and Args (ordered).
	Args []UnresolvedType
}

func Basic(name string) UnresolvedType { return UnresolvedType{Name: name} }

func Generic(inner string, args ...UnresolvedType) UnresolvedType {
	return UnresolvedType{Name: inner, Args: args}
}

func (t UnresolvedType) IsGeneric() bool { return len(t.Args) > 0 }

func (t UnresolvedType) String() string {
	if !t.IsGeneric() {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return t.Name + "<" + strings.Join(parts, ", ") + ">"
}
