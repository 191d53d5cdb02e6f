package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUntyped
	KindTop
	KindBottom
	KindClass
	KindApplied
	KindLambdaParam
	KindTypeVar
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUntyped:
		return "untyped"
	case KindTop:
		return "top"
	case KindBottom:
		return "bottom"
	case KindClass:
		return "class"
	case KindApplied:
		return "applied"
	case KindLambdaParam:
		return "lambda-param"
	case KindTypeVar:
		return "type-var"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor. Symbols are stored in their packed raw form
// so this package stays below the symbol store.
type Type struct {
	Kind    Kind
	Sym     uint32 // class, applied, lambda-param and type-var
	Lower   TypeID // lambda-param
	Upper   TypeID // lambda-param
	Payload uint32 // applied: slot in the args side table
}

// MakeClass describes a class type without type arguments.
func MakeClass(sym uint32) Type {
	return Type{Kind: KindClass, Sym: sym}
}

// MakeLambdaParam describes the bounds of a generic parameter sym.
func MakeLambdaParam(sym uint32, lower, upper TypeID) Type {
	return Type{Kind: KindLambdaParam, Sym: sym, Lower: lower, Upper: upper}
}

// MakeTypeVar describes a reference to the generic parameter sym.
func MakeTypeVar(sym uint32) Type {
	return Type{Kind: KindTypeVar, Sym: sym}
}
