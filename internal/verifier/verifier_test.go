package verifier

import (
	"context"
	"strings"
	"testing"

	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/lexer"
	"github.com/veylang/veyc/internal/optable"
	"github.com/veylang/veyc/internal/parser"
	"github.com/veylang/veyc/internal/resolver"
)

// compile lexes, parses and verifies a single-file program, returning the
// Result. A parse error or an error Verify itself returns fails the test;
// the collected diagnostics are left on result.Registry.Errors().
func compile(t *testing.T, src string) *Result {
	t.Helper()
	ops := optable.Default()
	res := resolver.New("test.vey", ops)
	p := parser.New("test.vey", lexer.New(src), res)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v\nsource:\n%s", err, src)
	}
	result, err := Verify(context.Background(), []*Unit{{File: "test.vey", Program: prog, Res: res}})
	if err != nil {
		t.Fatalf("Verify returned an error: %v", err)
	}
	return result
}

func expectNoErrors(t *testing.T, result *Result) {
	t.Helper()
	if errs := result.Registry.Errors(); len(errs) > 0 {
		var msgs []string
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		t.Fatalf("expected no errors, got:\n%s", strings.Join(msgs, "\n"))
	}
}

func expectError(t *testing.T, result *Result, code diagnostics.ErrorCode) {
	t.Helper()
	for _, e := range result.Registry.Errors() {
		if e.Code == code {
			return
		}
	}
	var msgs []string
	for _, e := range result.Registry.Errors() {
		msgs = append(msgs, e.Error())
	}
	t.Fatalf("expected error %s, got:\n%s", code, strings.Join(msgs, "\n"))
}

func TestOperatorResolvesThroughRegisteredImpl(t *testing.T) {
	src := `
trait Add { }
impl Add for int {
	fn add(a: int, b: int): int {
		return a
	}
}
fn main(): int {
	return 1 + 2
}
`
	result := compile(t, src)
	expectNoErrors(t, result)

	main, err := result.Registry.WaitBody(context.Background(), "main")
	if err != nil {
		t.Fatalf("main did not publish a body: %v", err)
	}
	if !main.Code.Returns {
		t.Fatalf("main should have a return on every path")
	}
}

// Mutual recursion must not deadlock: the two-phase verifier publishes
// each function's signature before checking its body, so isOdd's body can
// resolve isEven's signature (and vice versa) without waiting on a body
// that is itself waiting on this one.
func TestMutualRecursionDoesNotDeadlock(t *testing.T) {
	src := `
fn isEven(n: int): bool {
	return isOdd(n)
}
fn isOdd(n: int): bool {
	return isEven(n)
}
fn main(): bool {
	return isEven(4)
}
`
	result := compile(t, src)
	expectNoErrors(t, result)
}

// Direct recursion exercises the same signature-before-body mechanism as
// the mutual case, with a single function calling itself.
func TestDirectRecursion(t *testing.T) {
	src := `
fn countdown(n: int): int {
	return countdown(n)
}
fn main(): int {
	return countdown(3)
}
`
	result := compile(t, src)
	expectNoErrors(t, result)
}

func TestGenericCallInfersTypeArgument(t *testing.T) {
	src := `
fn identity<T>(x: T): T {
	return x
}
fn main(): int {
	return identity(5)
}
`
	result := compile(t, src)
	expectNoErrors(t, result)

	main, err := result.Registry.WaitBody(context.Background(), "main")
	if err != nil {
		t.Fatalf("main did not publish a body: %v", err)
	}
	if len(main.Code.Expressions) != 1 {
		t.Fatalf("expected a single return statement, got %d", len(main.Code.Expressions))
	}
}

func TestDuplicateDefinitionIsPoisoned(t *testing.T) {
	src := `
fn main(): int {
	return 1
}
fn main(): int {
	return 2
}
`
	result := compile(t, src)
	expectError(t, result, diagnostics.ErrV006)
}

func TestStructCycleWithNoIndirectionIsRejected(t *testing.T) {
	src := `
struct A {
	b: B
}
struct B {
	a: A
}
fn main(): int {
	return 1
}
`
	result := compile(t, src)
	expectError(t, result, diagnostics.ErrV007)
}

func TestStructCycleBrokenByReferenceIsAccepted(t *testing.T) {
	src := `
struct Node {
	next: Ref<Node>
}
fn main(): int {
	return 1
}
`
	result := compile(t, src)
	expectNoErrors(t, result)
}

func TestIfPredicateOfTypeIntIsRejected(t *testing.T) {
	src := `
fn choose(n: int): int {
	if n {
		return 1
	} else {
		return 2
	}
}
fn main(): int {
	return 1
}
`
	result := compile(t, src)
	// "n" (an int) used as an if predicate is a type mismatch against bool;
	// this asserts that case is actually caught, not silently accepted.
	expectError(t, result, diagnostics.ErrV001)
}

// A generic function's own trait bound must actually be enforced at each
// call site: sum(1,2) has an argument type (int) that implements Add, so it
// verifies; sum(true,false) does not, and must be rejected rather than
// silently accepted.
func TestGenericBoundIsEnforcedAtCallSite(t *testing.T) {
	src := `
trait Add { }
impl Add for int {
	fn add(a: int, b: int): int {
		return a
	}
}
fn sum<T: Add>(a: T, b: T): T {
	return a
}
fn main(): int {
	return sum(1, 2)
}
`
	result := compile(t, src)
	expectNoErrors(t, result)

	src2 := `
trait Add { }
impl Add for int {
	fn add(a: int, b: int): int {
		return a
	}
}
fn sum<T: Add>(a: T, b: T): T {
	return a
}
fn main(): bool {
	return sum(true, false)
}
`
	result2 := compile(t, src2)
	expectError(t, result2, diagnostics.ErrS001)
}

func TestBareIfWithoutElseDoesNotSatisfyReturnOnAllPaths(t *testing.T) {
	src := `
fn maybe(n: bool): int {
	if n {
		return 1
	}
}
fn main(): int {
	return 1
}
`
	result := compile(t, src)
	expectError(t, result, diagnostics.ErrV004)
}
