package ast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/veylang/veyc/internal/diagnostics"
)

// Modifier is a bitset of keywords that can prefix a function/struct
// declaration (public, static, operator, ...).
type Modifier uint32

const (
	ModPublic Modifier = 1 << iota
	ModStatic
	ModOperator
)

func (m Modifier) Has(f Modifier) bool { return m&f != 0 }

// FunctionData is the static, immutable identity of a function, shared by
// reference across the unfinalized and finalized forms.
// Monomorphisation never mutates an existing FunctionData; it mints a fresh
// one whose Name carries a "$"-separated specialisation suffix.
type FunctionData struct {
	ID         uuid.UUID
	Modifiers  Modifier
	Attributes map[string]string // e.g. {"operation": "{}+{}"} for operator traits
	Name       string

	mu     sync.Mutex
	poison []*diagnostics.ParsingError
}

func NewFunctionData(name string, mods Modifier, attrs map[string]string) *FunctionData {
	return &FunctionData{ID: uuid.New(), Modifiers: mods, Attributes: attrs, Name: name}
}

// Poison attaches an error to this function, marking it poisoned so
// downstream errors about it are suppressed. Safe to call concurrently:
// multiple verification tasks
// may reference the same FunctionData.
func (f *FunctionData) Poison(err *diagnostics.ParsingError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poison = append(f.poison, err)
}

func (f *FunctionData) IsPoisoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.poison) > 0
}

func (f *FunctionData) PoisonErrors() []*diagnostics.ParsingError {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*diagnostics.ParsingError, len(f.poison))
	copy(out, f.poison)
	return out
}

// OperatorTemplate returns the "operation" attribute as written, if this
// function carries one. {+} holes are not normalised here, and nothing
// installs this attribute into the operator table (optable.Register, which
// normalises {+} -> {}, is fed only by its defaults and YAML).
func (f *FunctionData) OperatorTemplate() (string, bool) {
	t, ok := f.Attributes["operation"]
	return t, ok
}

// StructData mirrors FunctionData for structs.
type StructData struct {
	ID        uuid.UUID
	Modifiers Modifier
	Name      string

	mu     sync.Mutex
	poison []*diagnostics.ParsingError
}

func NewStructData(name string, mods Modifier) *StructData {
	return &StructData{ID: uuid.New(), Modifiers: mods, Name: name}
}

func (s *StructData) Poison(err *diagnostics.ParsingError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poison = append(s.poison, err)
}

func (s *StructData) IsPoisoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.poison) > 0
}

// PendingField is an unresolved `name: Type` pair, used both for function
// parameters and struct fields before verification.
type PendingField struct {
	Name string
	Type UnresolvedType
}

// UnfinalizedFunction is the parser's output for one function declaration.
type UnfinalizedFunction struct {
	Generics   []GenericParam // ordered; each carries its pending bounds
	Fields     []PendingField // parameters
	Code       *CodeBody
	ReturnType *UnresolvedType // nil means inferred/unit
	Data       *FunctionData
}

// GenericParam is one `<T: Bound1 + Bound2>` slot, kept in declaration
// order.
type GenericParam struct {
	Name   string
	Bounds []UnresolvedType
}

// UnfinalizedStruct is the parser's output for one struct declaration.
type UnfinalizedStruct struct {
	Generics []GenericParam
	Fields   []PendingField
	Data     *StructData
}

// TraitImplementor mirrors FinishedTraitImplementor at the unresolved
// stage: an `impl Base for Target { ... }` block before verification.
type TraitImplementor struct {
	Generics  []GenericParam // the impl's own generics, e.g. impl<T: Add> Add for List<T>
	Base      UnresolvedType
	Target    UnresolvedType
	Functions []*UnfinalizedFunction
}
