package types

import "github.com/veylang/veyc/internal/ast"

// Primitive types are represented the same way user structs are: a Struct
// value over a shared, zero-field StructData. This avoids a parallel
// "primitive kind" variant in FinalizedType and lets the solver register
// trait impls for them (`impl Add for int`) exactly like any other type.
var (
	intData    = ast.NewStructData("int", ast.ModPublic)
	floatData  = ast.NewStructData("float", ast.ModPublic)
	boolData   = ast.NewStructData("bool", ast.ModPublic)
	stringData = ast.NewStructData("string", ast.ModPublic)
	unitData   = ast.NewStructData("unit", ast.ModPublic)
)

var (
	Int    = Struct{Data: intData}
	Float  = Struct{Data: floatData}
	Bool   = Struct{Data: boolData}
	String = Struct{Data: stringData}
	Unit   = Struct{Data: unitData}
)

// Builtins returns the name -> FinalizedType table the resolver consults
// before a bare type name is looked up against the struct registry.
func Builtins() map[string]FinalizedType {
	return map[string]FinalizedType{
		"int":    Int,
		"float":  Float,
		"bool":   Bool,
		"string": String,
		"unit":   Unit,
	}
}

// IsBuiltin reports whether t is one of the primitive Structs above.
func IsBuiltin(t FinalizedType) bool {
	s, ok := t.(Struct)
	if !ok {
		return false
	}
	switch s.Data {
	case intData, floatData, boolData, stringData, unitData:
		return true
	}
	return false
}
