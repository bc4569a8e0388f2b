package ir

import (
	"context"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/veylang/veyc/internal/lexer"
	"github.com/veylang/veyc/internal/mono"
	"github.com/veylang/veyc/internal/optable"
	"github.com/veylang/veyc/internal/parser"
	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/resolver"
	"github.com/veylang/veyc/internal/verifier"
)

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

func TestCollectFailsWithoutRoot(t *testing.T) {
	reg := verify(t, `
fn helper(): int {
	return 1
}
`)
	if _, err := Collect(reg, "main"); err == nil {
		t.Fatalf("expected Collect to fail when root is not among finalised functions")
	}
}

func TestCollectAndEncodeRoundTripsStructurally(t *testing.T) {
	reg := verify(t, `
struct Point {
	x: int,
	y: int
}
fn makePoint(): Point {
	return new Point { x: 1, y: 2 }
}
fn main(): int {
	return 1
}
`)

	m := mono.New(reg)
	if _, err := m.Specialize(context.Background(), "main", nil); err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if _, err := m.Specialize(context.Background(), "makePoint", nil); err != nil {
		t.Fatalf("Specialize: %v", err)
	}

	handoff, err := Collect(reg, "main")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if _, ok := handoff.Compiling["main"]; !ok {
		t.Fatalf("expected main in Compiling")
	}
	if _, ok := handoff.Compiling["makePoint"]; !ok {
		t.Fatalf("expected makePoint in Compiling")
	}
	if _, ok := handoff.StructCompiling["Point"]; !ok {
		t.Fatalf("expected Point in StructCompiling")
	}

	wire := Encode(handoff)
	if len(wire) == 0 {
		t.Fatalf("expected non-empty wire output")
	}

	num, typ, n := protowire.ConsumeTag(wire)
	if n <= 0 {
		t.Fatalf("failed to consume leading tag")
	}
	if num != fieldRoot || typ != protowire.BytesType {
		t.Fatalf("expected the first field to be fieldRoot as a length-delimited string, got field %d type %v", num, typ)
	}
	rest := wire[n:]
	rootBytes, n2 := protowire.ConsumeBytes(rest)
	if n2 <= 0 {
		t.Fatalf("failed to consume root name bytes")
	}
	if string(rootBytes) != "main" {
		t.Fatalf("expected root name %q, got %q", "main", string(rootBytes))
	}
}

// Encoding must be deterministic: two Encode calls over the same HandOff
// produce byte-identical output, since both iterate names in sorted order.
func TestEncodeIsDeterministic(t *testing.T) {
	reg := verify(t, `
fn a(): int {
	return 1
}
fn b(): int {
	return 2
}
fn main(): int {
	return 1
}
`)
	m := mono.New(reg)
	for _, name := range []string{"main", "a", "b"} {
		if _, err := m.Specialize(context.Background(), name, nil); err != nil {
			t.Fatalf("Specialize(%s): %v", name, err)
		}
	}

	handoff, err := Collect(reg, "main")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	first := Encode(handoff)
	second := Encode(handoff)
	if len(first) != len(second) {
		t.Fatalf("expected identical lengths across repeated Encode calls")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("byte %d differs between repeated Encode calls", i)
		}
	}
}
