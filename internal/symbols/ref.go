package symbols

import (
	"fmt"

	"sigil/internal/fatal"
)

// Kind tags the arena a Ref points into.
type Kind uint8

const (
	KindClassOrModule Kind = iota
	KindMethod
	KindField
	KindTypeArgument
	KindTypeMember
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindClassOrModule:
		return "class"
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	case KindTypeArgument:
		return "type-argument"
	case KindTypeMember:
		return "type-member"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Ref is a weak locator of a symbol: an arena kind and an index. It is only
// meaningful against the State that produced it.
type Ref struct {
	kind Kind
	idx  uint32
}

// NoSymbol is class index 0, the reserved absent reference.
var NoSymbol = Ref{}

const (
	rawKindShift = 29
	rawIndexMask = 1<<rawKindShift - 1
)

// MakeRef builds a reference of the given kind.
func MakeRef(kind Kind, idx uint32) Ref { return Ref{kind: kind, idx: idx} }

// ClassRef builds a class-or-module reference.
func ClassRef(idx uint32) Ref { return Ref{kind: KindClassOrModule, idx: idx} }

// MethodRef builds a method reference.
func MethodRef(idx uint32) Ref { return Ref{kind: KindMethod, idx: idx} }

// FieldRef builds a field reference.
func FieldRef(idx uint32) Ref { return Ref{kind: KindField, idx: idx} }

// TypeArgumentRef builds a type argument reference.
func TypeArgumentRef(idx uint32) Ref { return Ref{kind: KindTypeArgument, idx: idx} }

// TypeMemberRef builds a type member reference.
func TypeMemberRef(idx uint32) Ref { return Ref{kind: KindTypeMember, idx: idx} }

func (r Ref) Kind() Kind    { return r.kind }
func (r Ref) Index() uint32 { return r.idx }

// Exists reports whether r points past the sentinel of its arena.
func (r Ref) Exists() bool { return r.idx != 0 }

func (r Ref) IsClassOrModule() bool { return r.kind == KindClassOrModule }
func (r Ref) IsMethod() bool        { return r.kind == KindMethod }
func (r Ref) IsField() bool         { return r.kind == KindField }
func (r Ref) IsTypeArgument() bool  { return r.kind == KindTypeArgument }
func (r Ref) IsTypeMember() bool    { return r.kind == KindTypeMember }

// Raw packs r into 32 bits with the kind in the top 3 bits.
func (r Ref) Raw() uint32 {
	fatal.Check(r.idx <= rawIndexMask, "symbol index %d does not fit the packed form", r.idx)
	return uint32(r.kind)<<rawKindShift | r.idx
}

// RefFromRaw inverts Raw.
func RefFromRaw(raw uint32) Ref {
	return Ref{kind: Kind(raw >> rawKindShift), idx: raw & rawIndexMask}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s#%d", r.kind, r.idx)
}
