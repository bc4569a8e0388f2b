package types

import "github.com/veylang/veyc/internal/ast"

// FinalizedField is a name/type pair after verification.
type FinalizedField struct {
	Name string
	Type FinalizedType
}

// CodelessFinalizedFunction is the signature-only form published before the
// body is checked, breaking recursive/mutual-recursion cycles.
type CodelessFinalizedFunction struct {
	Generics   []GenericSlot // ordered_map<name, [FinalizedType]> i.e. bounds
	Arguments  []FinalizedField
	ReturnType FinalizedType // nil means unit
	Data       *ast.FunctionData
}

// GenericSlot is one generic parameter with its finalised bounds.
type GenericSlot struct {
	Name   string
	Bounds []FinalizedType
}

func (f *CodelessFinalizedFunction) IsGeneric() bool { return len(f.Generics) > 0 }

// FinalizedCodeBody is a CodeBody after the body has been verified.
// Returns records whether every path through the body terminates via
// Return/jump/panic.
type FinalizedCodeBody struct {
	Label       string
	Expressions []FinalizedExpression
	Returns     bool
}

type FinalizedExpression struct {
	Kind   ast.LineKind
	Effect FinalizedEffect
}

// FinalizedEffect mirrors ast.Effect with every type fully resolved. It is
// an interface over the same family of variants so the verifier can walk
// the unresolved tree and build this one node-for-node.
type FinalizedEffect interface {
	finalizedEffectNode()
}

type FNOP struct{}

func (FNOP) finalizedEffectNode() {}

type FInt struct{ Value int64 }

func (FInt) finalizedEffectNode() {}

type FFloat struct{ Value float64 }

func (FFloat) finalizedEffectNode() {}

type FBool struct{ Value bool }

func (FBool) finalizedEffectNode() {}

type FString struct{ Value string }

func (FString) finalizedEffectNode() {}

type FLoadVariable struct {
	Name string
	Type FinalizedType
}

func (FLoadVariable) finalizedEffectNode() {}

type FLoad struct {
	Receiver FinalizedEffect
	Field    string
	Type     FinalizedType
}

func (FLoad) finalizedEffectNode() {}

type FParen struct{ Inner FinalizedEffect }

func (FParen) finalizedEffectNode() {}

type FCodeBody struct{ Body *FinalizedCodeBody }

func (FCodeBody) finalizedEffectNode() {}

// FCall is a bound call. Target is the callee's published signature, not
// its body: resolving a body here would force every caller to wait for its
// callee's body to finish verifying, which deadlocks on (mutual) recursion.
// The monomorphiser re-looks-up the body by Target.Data.Name once it knows
// the concrete type arguments a given call site needs.
type FCall struct {
	Receiver FinalizedEffect // nil for a free call
	Target   *CodelessFinalizedFunction
	Args     []FinalizedEffect
	// TypeArgs holds the concrete (or still-generic, inside another
	// generic function's own body) binding for each of Target.Generics, in
	// order. The monomorphiser substitutes the enclosing function's own
	// generics into these before specializing Target.
	TypeArgs []FinalizedType
}

func (FCall) finalizedEffectNode() {}

type FSet struct {
	Target FinalizedEffect
	Value  FinalizedEffect
}

func (FSet) finalizedEffectNode() {}

type FCreateVariable struct {
	Name  string
	Value FinalizedEffect
}

func (FCreateVariable) finalizedEffectNode() {}

type FNamedArg struct {
	Name  string
	Value FinalizedEffect
}

type FCreateStruct struct {
	Struct    *FinalizedStruct
	NamedArgs []FNamedArg
	TypeArgs  []FinalizedType // binding for Struct.Generics, in order
}

func (FCreateStruct) finalizedEffectNode() {}

// FOperator is an operator call resolved against the operator table's
// Function entry; like FCall, Target names the callee's signature, and the
// monomorphiser resolves the body.
type FOperator struct {
	Target   *CodelessFinalizedFunction
	Operands []FinalizedEffect
	TypeArgs []FinalizedType // see FCall.TypeArgs
}

func (FOperator) finalizedEffectNode() {}

type FIf struct {
	Predicate FinalizedExpression
	Then      *FinalizedCodeBody
	Else      *FinalizedCodeBody
}

func (FIf) finalizedEffectNode() {}

// A for loop yields no value: its effect type is unit, so FFor carries no
// result type.
type FFor struct {
	Variable string
	Iterable FinalizedEffect
	Body     *FinalizedCodeBody
}

func (FFor) finalizedEffectNode() {}

type FWhile struct {
	Predicate FinalizedExpression
	Body      *FinalizedCodeBody
}

func (FWhile) finalizedEffectNode() {}

// FinalizedFunction is a CodelessFinalizedFunction plus its checked body.
type FinalizedFunction struct {
	CodelessFinalizedFunction
	Code *FinalizedCodeBody
}

// FinalizedStruct mirrors FinalizedFunction for structs. It carries no
// solver handle: the solver matches struct types by their Data pointer.
type FinalizedStruct struct {
	Generics []GenericSlot
	Fields   []FinalizedField
	Data     *ast.StructData
}

func (s *FinalizedStruct) IsGeneric() bool { return len(s.Generics) > 0 }

// FinishedTraitImplementor records one `impl Base for Target` relationship
// after verification.
type FinishedTraitImplementor struct {
	Base      FinalizedType
	Target    FinalizedType
	Functions []*ast.FunctionData
}
