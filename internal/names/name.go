package names

import "fmt"

// NameRef identifies an interned name. Ids are never reused within a table.
type NameRef uint32

// NoName is the reserved empty reference.
const NoName NameRef = 0

// Exists reports whether the reference points at a real name.
func (r NameRef) Exists() bool { return r != NoName }

// Kind distinguishes the three name variants.
type Kind uint8

const (
	KindPlain Kind = iota + 1
	KindConstant
	KindUnique
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindConstant:
		return "constant"
	case KindUnique:
		return "unique"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// UniqueKind tags who minted a unique name.
type UniqueKind uint8

const (
	Parser UniqueKind = iota + 1
	Desugar
	Namer
	MangleRename
	Singleton
	Overload
	TypeVarName
	PositionalArg
	ResolverMissingClass
	TEnum
)

var uniqueKindNames = [...]string{
	Parser:               "Parser",
	Desugar:              "Desugar",
	Namer:                "Namer",
	MangleRename:         "MangleRename",
	Singleton:            "Singleton",
	Overload:             "Overload",
	TypeVarName:          "TypeVarName",
	PositionalArg:        "PositionalArg",
	ResolverMissingClass: "ResolverMissingClass",
	TEnum:                "TEnum",
}

func (k UniqueKind) String() string {
	if int(k) < len(uniqueKindNames) && uniqueKindNames[k] != "" {
		return uniqueKindNames[k]
	}
	return fmt.Sprintf("UniqueKind(%d)", uint8(k))
}

// Name is the stored form of one interned name. Identity is structural:
// two names are the same entry iff every field matches.
type Name struct {
	Kind     Kind
	Text     string     // plain only
	Original NameRef    // constant and unique
	Unique   UniqueKind // unique only
	Num      uint32     // unique only, >= 1
}

// IsConstant reports whether the name marks a class-like identifier.
func (n Name) IsConstant() bool { return n.Kind == KindConstant }
