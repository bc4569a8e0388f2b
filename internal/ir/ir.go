// Package ir implements the IR hand-off (C8): collecting the two keyed
// tables the back end consumes (finalised functions, finalised structs)
// plus a root function name, and encoding them into a stable,
// length-prefixed wire format built on protowire's low-level field
// writers. No .pb.go descriptors are generated or required; the schema
// below is the contract between this package and whatever back end reads
// the bytes.
package ir

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/types"
)

// HandOff is the back end's input: two keyed tables plus a root function
// name, typically "main".
type HandOff struct {
	Compiling       map[string]*types.FinalizedFunction
	StructCompiling map[string]*types.FinalizedStruct
	Root            string
}

// Collect reads every published function body and finalised struct out of
// reg. It does not itself decide which functions are reachable from root;
// that pruning is the back end's concern, not the hand-off's — this
// package only guarantees root names a function that exists.
func Collect(reg *registry.Registry, root string) (*HandOff, error) {
	h := &HandOff{
		Compiling:       make(map[string]*types.FinalizedFunction),
		StructCompiling: make(map[string]*types.FinalizedStruct),
		Root:            root,
	}
	for _, name := range reg.FunctionBodies.Sorted() {
		fn, ok := reg.FunctionBodies.Get(name)
		if ok {
			h.Compiling[name] = fn
		}
	}
	for _, name := range reg.StructFinals.Sorted() {
		st, ok := reg.StructFinals.Get(name)
		if ok {
			h.StructCompiling[name] = st
		}
	}
	if _, ok := h.Compiling[root]; !ok {
		return nil, fmt.Errorf("ir: root function %q not found among finalised functions", root)
	}
	return h, nil
}

// Wire field numbers for the top-level HandOff message.
const (
	fieldRoot      = protowire.Number(1)
	fieldFunction  = protowire.Number(2) // repeated
	fieldStruct    = protowire.Number(3) // repeated
)

// Encode serialises a HandOff into the wire format described at the top
// of this file. Functions and structs are each written in sorted name
// order, so Encode is deterministic for a given HandOff.
func Encode(h *HandOff) []byte {
	var b []byte
	b = appendTagString(b, fieldRoot, h.Root)

	names := make([]string, 0, len(h.Compiling))
	for name := range h.Compiling {
		names = append(names, name)
	}
	sortStrings(names)
	for _, name := range names {
		rec := encodeFunction(name, h.Compiling[name])
		b = protowire.AppendTag(b, fieldFunction, protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}

	snames := make([]string, 0, len(h.StructCompiling))
	for name := range h.StructCompiling {
		snames = append(snames, name)
	}
	sortStrings(snames)
	for _, name := range snames {
		rec := encodeStruct(name, h.StructCompiling[name])
		b = protowire.AppendTag(b, fieldStruct, protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}

	return b
}

// Function record fields.
const (
	ffName   = protowire.Number(1)
	ffArg    = protowire.Number(2) // repeated, name+type pair
	ffReturn = protowire.Number(3)
	ffBody   = protowire.Number(4)
)

func encodeFunction(name string, fn *types.FinalizedFunction) []byte {
	var b []byte
	b = appendTagString(b, ffName, name)
	for _, a := range fn.Arguments {
		pair := appendTagString(nil, 1, a.Name)
		pair = appendTagString(pair, 2, a.Type.String())
		b = protowire.AppendTag(b, ffArg, protowire.BytesType)
		b = protowire.AppendBytes(b, pair)
	}
	b = appendTagString(b, ffReturn, fn.ReturnType.String())
	body := encodeBody(fn.Code)
	b = protowire.AppendTag(b, ffBody, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b
}

// Struct record fields.
const (
	fsName  = protowire.Number(1)
	fsField = protowire.Number(2) // repeated, name+type pair
)

func encodeStruct(name string, st *types.FinalizedStruct) []byte {
	var b []byte
	b = appendTagString(b, fsName, name)
	for _, f := range st.Fields {
		pair := appendTagString(nil, 1, f.Name)
		pair = appendTagString(pair, 2, f.Type.String())
		b = protowire.AppendTag(b, fsField, protowire.BytesType)
		b = protowire.AppendBytes(b, pair)
	}
	return b
}

// Body record fields.
const (
	fbReturns = protowire.Number(1)
	fbExpr    = protowire.Number(2) // repeated
)

func encodeBody(body *types.FinalizedCodeBody) []byte {
	if body == nil {
		return nil
	}
	var b []byte
	if body.Returns {
		b = protowire.AppendTag(b, fbReturns, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	for _, e := range body.Expressions {
		rec := encodeEffect(e.Effect)
		b = protowire.AppendTag(b, fbExpr, protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}
	return b
}

// effectKind tags which FinalizedEffect variant a record holds, field 1 of
// every effect record. The remaining fields are interpreted according to
// this discriminant.
type effectKind int32

const (
	kindNOP effectKind = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindLoadVariable
	kindLoad
	kindParen
	kindCodeBody
	kindCall
	kindSet
	kindCreateVariable
	kindCreateStruct
	kindOperator
	kindIf
	kindFor
	kindWhile
)

// Effect record fields: 1=kind, 2..n=payload whose meaning depends on kind.
const (
	efKind  = protowire.Number(1)
	efA     = protowire.Number(2)
	efB     = protowire.Number(3)
	efC     = protowire.Number(4)
	efD     = protowire.Number(5)
)

func encodeEffect(e types.FinalizedEffect) []byte {
	var b []byte
	kind := func(k effectKind) []byte {
		out := protowire.AppendTag(nil, efKind, protowire.VarintType)
		return protowire.AppendVarint(out, uint64(k))
	}

	switch v := e.(type) {
	case types.FNOP:
		return kind(kindNOP)
	case types.FInt:
		b = kind(kindInt)
		b = protowire.AppendTag(b, efA, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Value))
		return b
	case types.FFloat:
		b = kind(kindFloat)
		b = protowire.AppendTag(b, efA, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.Value))
		return b
	case types.FBool:
		b = kind(kindBool)
		b = protowire.AppendTag(b, efA, protowire.VarintType)
		val := uint64(0)
		if v.Value {
			val = 1
		}
		b = protowire.AppendVarint(b, val)
		return b
	case types.FString:
		b = kind(kindString)
		b = appendTagString(b, efA, v.Value)
		return b
	case types.FLoadVariable:
		b = kind(kindLoadVariable)
		b = appendTagString(b, efA, v.Name)
		b = appendTagString(b, efB, v.Type.String())
		return b
	case types.FLoad:
		b = kind(kindLoad)
		b = nestEffect(b, efA, v.Receiver)
		b = appendTagString(b, efB, v.Field)
		b = appendTagString(b, efC, v.Type.String())
		return b
	case types.FParen:
		b = kind(kindParen)
		b = nestEffect(b, efA, v.Inner)
		return b
	case types.FCodeBody:
		b = kind(kindCodeBody)
		body := encodeBody(v.Body)
		b = protowire.AppendTag(b, efA, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
		return b
	case types.FCall:
		b = kind(kindCall)
		if v.Receiver != nil {
			b = nestEffect(b, efA, v.Receiver)
		}
		b = appendTagString(b, efB, v.Target.Data.Name)
		for _, a := range v.Args {
			b = nestEffect(b, efC, a)
		}
		return b
	case types.FSet:
		b = kind(kindSet)
		b = nestEffect(b, efA, v.Target)
		b = nestEffect(b, efB, v.Value)
		return b
	case types.FCreateVariable:
		b = kind(kindCreateVariable)
		b = appendTagString(b, efA, v.Name)
		b = nestEffect(b, efB, v.Value)
		return b
	case types.FCreateStruct:
		b = kind(kindCreateStruct)
		b = appendTagString(b, efA, v.Struct.Data.Name)
		for _, na := range v.NamedArgs {
			pair := appendTagString(nil, 1, na.Name)
			pair = nestEffect(pair, 2, na.Value)
			b = protowire.AppendTag(b, efB, protowire.BytesType)
			b = protowire.AppendBytes(b, pair)
		}
		return b
	case types.FOperator:
		b = kind(kindOperator)
		b = appendTagString(b, efA, v.Target.Data.Name)
		for _, o := range v.Operands {
			b = nestEffect(b, efB, o)
		}
		return b
	case types.FIf:
		b = kind(kindIf)
		b = nestEffect(b, efA, v.Predicate.Effect)
		thenBody := encodeBody(v.Then)
		b = protowire.AppendTag(b, efB, protowire.BytesType)
		b = protowire.AppendBytes(b, thenBody)
		if v.Else != nil {
			elseBody := encodeBody(v.Else)
			b = protowire.AppendTag(b, efC, protowire.BytesType)
			b = protowire.AppendBytes(b, elseBody)
		}
		return b
	case types.FFor:
		b = kind(kindFor)
		b = appendTagString(b, efA, v.Variable)
		b = nestEffect(b, efB, v.Iterable)
		body := encodeBody(v.Body)
		b = protowire.AppendTag(b, efC, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
		return b
	case types.FWhile:
		b = kind(kindWhile)
		b = nestEffect(b, efA, v.Predicate.Effect)
		body := encodeBody(v.Body)
		b = protowire.AppendTag(b, efB, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
		return b
	default:
		return kind(kindNOP)
	}
}

func nestEffect(b []byte, num protowire.Number, e types.FinalizedEffect) []byte {
	rec := encodeEffect(e)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, rec)
}

func appendTagString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func sortStrings(ss []string) { sort.Strings(ss) }
