package mono

import (
	"context"
	"testing"

	"github.com/veylang/veyc/internal/lexer"
	"github.com/veylang/veyc/internal/optable"
	"github.com/veylang/veyc/internal/parser"
	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/resolver"
	"github.com/veylang/veyc/internal/types"
	"github.com/veylang/veyc/internal/verifier"
)

// verify lexes, parses and verifies a single-file program, failing the test
// on any parse error or registry error. It returns the populated registry
// for a mono.New call.
func verify(t *testing.T, src string) *registry.Registry {
	t.Helper()
	ops := optable.Default()
	res := resolver.New("test.vey", ops)
	p := parser.New("test.vey", lexer.New(src), res)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := verifier.Verify(context.Background(), []*verifier.Unit{{File: "test.vey", Program: prog, Res: res}})
	if err != nil {
		t.Fatalf("Verify returned an error: %v", err)
	}
	if errs := result.Registry.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected verification errors: %v", errs[0])
	}
	return result.Registry
}

func TestSpecializeIdentityOnInt(t *testing.T) {
	reg := verify(t, `
fn identity<T>(x: T): T {
	return x
}
fn main(): int {
	return identity(5)
}
`)

	m := New(reg)
	fn, err := m.Specialize(context.Background(), "identity", []types.FinalizedType{types.Int})
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if fn.Data.Name != "identity$int" {
		t.Fatalf("expected mangled name identity$int, got %s", fn.Data.Name)
	}
	if !types.IsConcrete(fn.ReturnType) {
		t.Fatalf("specialized return type must be concrete, got %s", fn.ReturnType.String())
	}
	if fn.ReturnType != types.Int {
		t.Fatalf("expected specialized return type int, got %s", fn.ReturnType.String())
	}
}

// A second Specialize call for the same (base, args) pair must return the
// same published function rather than minting a fresh copy, whether it
// lands on the fast cache-hit path or races into the singleflight group.
func TestSpecializeIsIdempotent(t *testing.T) {
	reg := verify(t, `
fn identity<T>(x: T): T {
	return x
}
fn main(): int {
	return identity(5)
}
`)

	m := New(reg)
	first, err := m.Specialize(context.Background(), "identity", []types.FinalizedType{types.Int})
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	second, err := m.Specialize(context.Background(), "identity", []types.FinalizedType{types.Int})
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same *FinalizedFunction from both calls")
	}

	cached, ok := reg.FunctionBodies.Get("identity$int")
	if !ok {
		t.Fatalf("expected identity$int to be published in the registry")
	}
	if cached != first {
		t.Fatalf("expected the cached registry entry to be the same value returned by Specialize")
	}
}

// A non-generic function (or a zero-arg request) is returned as published,
// under its own name, with no specialization performed.
func TestSpecializeWithNoArgsPassesThrough(t *testing.T) {
	reg := verify(t, `
fn main(): int {
	return 1
}
`)

	m := New(reg)
	fn, err := m.Specialize(context.Background(), "main", nil)
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if fn.Data.Name != "main" {
		t.Fatalf("expected name main, got %s", fn.Data.Name)
	}
}

// A non-generic caller's call to a generic function binds a concrete type
// argument at the call site (int here); specializing the caller with no type
// arguments must specialize that callee as a side effect.
func TestGenericCalleeSpecializedLazilyFromConcreteCaller(t *testing.T) {
	reg := verify(t, `
fn identity<T>(x: T): T {
	return x
}
fn wrapper(n: int): int {
	return identity(n)
}
fn main(): int {
	return wrapper(7)
}
`)

	m := New(reg)
	fn, err := m.Specialize(context.Background(), "wrapper", nil)
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if fn.Data.Name != "wrapper" {
		t.Fatalf("expected wrapper to pass through unmangled, got %s", fn.Data.Name)
	}

	if _, ok := reg.FunctionBodies.Get("identity$int"); !ok {
		t.Fatalf("expected identity$int to have been specialized as a side effect of specializing wrapper")
	}
}
