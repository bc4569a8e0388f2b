// Package resolver implements the Name Resolver (C4): per-file imports,
// in-scope generics, and the ambient operator table.
package resolver

import (
	"maps"
	"strings"

	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/optable"
)

// Resolver is intentionally a flat, cheaply-copyable struct — every
// verification task gets its own copy so mutating one file's scope (e.g.
// entering a function's generic parameters) never races with another
// task's resolver.
type Resolver struct {
	File     string
	Imports  map[string]string             // alias -> fully-qualified module prefix
	Generics map[string][]ast.UnresolvedType // name -> pending bounds, in scope
	Ops      *optable.Table
}

func New(file string, ops *optable.Table) *Resolver {
	return &Resolver{
		File:     file,
		Imports:  make(map[string]string),
		Generics: make(map[string][]ast.UnresolvedType),
		Ops:      ops,
	}
}

func (r *Resolver) AddImport(alias, qualifiedPrefix string) {
	r.Imports[alias] = qualifiedPrefix
}

// Resolve turns "alias.Name" into "qualifiedPrefix.Name" using the import
// table; names with no "." or whose prefix isn't an import alias are
// returned unchanged (local or already-qualified).
func (r *Resolver) Resolve(name string) string {
	alias, rest, ok := strings.Cut(name, ".")
	if !ok {
		return name
	}
	prefix, ok := r.Imports[alias]
	if !ok {
		return name
	}
	return prefix + "." + rest
}

// Generic reports the pending bounds for a name if it is a generic
// parameter currently in scope.
func (r *Resolver) Generic(name string) ([]ast.UnresolvedType, bool) {
	bounds, ok := r.Generics[name]
	return bounds, ok
}

// WithGenerics returns a copy of r with params merged into scope, used when
// the verifier enters a generic function or struct's body.
func (r *Resolver) WithGenerics(params []ast.GenericParam) *Resolver {
	clone := r.BoxedClone()
	for _, p := range params {
		clone.Generics[p.Name] = p.Bounds
	}
	return clone
}

// BoxedClone returns an independent copy cheap enough to hand to a new
// goroutine.
func (r *Resolver) BoxedClone() *Resolver {
	return &Resolver{
		File:     r.File,
		Imports:  maps.Clone(r.Imports),
		Generics: maps.Clone(r.Generics),
		Ops:      r.Ops,
	}
}
