package names

import (
	"slices"
	"strings"

	"sigil/internal/fatal"
)

// Plain names registered at fixed ids.
const (
	Initialize NameRef = iota + 1
	BlkArg
	Attached
	SingletonLink
	ClassMethods
	TodoMethod
	BuildHash
	BuildArray
	Puts
	New
	UndeclaredFieldStub
	StaticInit
	plainEnd
)

var wellKnownPlain = [...]string{
	"initialize",
	"<blk>",
	"<attached>",
	"<singleton>",
	"<class-methods>",
	"<todo method>",
	"<build-hash>",
	"<build-array>",
	"puts",
	"new",
	"<undeclared-field-stub>",
	"<static-init>",
}

// Texts of the well-known constants, in the order of the constant block
// below. Their plain ids follow plainEnd.
var wellKnownConstText = [...]string{
	"<none>",
	"<top>",
	"<bottom>",
	"<root>",
	"<todo>",
	"Object",
	"BasicObject",
	"Kernel",
	"Module",
	"Class",
	"Integer",
	"String",
	"Symbol",
	"Array",
	"Hash",
	"NilClass",
	"TrueClass",
	"FalseClass",
	"<untyped>",
	"Enumerable",
	"Comparable",
	"Set",
	"Range",
	"Enumerator",
	"Proc",
	"T",
	"<StubModule>",
	"<StubMixin>",
	"<StubSuperClass>",
	"<ImplicitModuleSuperClass>",
	"<Magic>",
	"<AttachedClass>",
	"Elem",
	"K",
	"V",
}

const constBase = plainEnd + NameRef(len(wellKnownConstText))

// Constant names registered at fixed ids.
const (
	ConstNoSymbol NameRef = constBase + iota
	ConstTop
	ConstBottom
	ConstRoot
	ConstTodo
	ConstObject
	ConstBasicObject
	ConstKernel
	ConstModule
	ConstClass
	ConstInteger
	ConstString
	ConstSymbol
	ConstArray
	ConstHash
	ConstNilClass
	ConstTrueClass
	ConstFalseClass
	ConstUntyped
	ConstEnumerable
	ConstComparable
	ConstSet
	ConstRange
	ConstEnumerator
	ConstProc
	ConstT
	ConstStubModule
	ConstStubMixin
	ConstStubSuperClass
	ConstImplicitModuleSuperClass
	ConstMagic
	AttachedClass
	ConstElem
	ConstK
	ConstV
	wellKnownEnd
)

// WellKnownCount is the number of ids taken by RegisterWellKnown, sentinel
// included.
const WellKnownCount = int(wellKnownEnd)

// RegisterWellKnown enters every well-known name into an empty table and
// asserts that each lands on its fixed id.
func RegisterWellKnown(t *Table) {
	fatal.Check(t.Len() == 1, "well-known names need an empty table, have %d names", t.Len())
	for i, text := range wellKnownPlain {
		want := NameRef(i + 1)
		fatal.Check(t.EnterPlain(text) == want, "well-known name %q is not at id %d", text, want)
	}
	for i, text := range wellKnownConstText {
		want := plainEnd + NameRef(i)
		fatal.Check(t.EnterPlain(text) == want, "well-known text %q is not at id %d", text, want)
	}
	for i := range wellKnownConstText {
		want := constBase + NameRef(i)
		got := t.EnterConstant(plainEnd + NameRef(i))
		fatal.Check(got == want, "well-known constant %q is at id %d, want %d", wellKnownConstText[i], got, want)
	}
	fatal.Check(t.Len() == WellKnownCount, "well-known registration left %d names, want %d", t.Len(), WellKnownCount)
}

// IsReserved reports whether text is the text of a well-known name used
// as an internal member key (for example "<singleton>"). User declarations
// must not take these.
func IsReserved(text string) bool {
	if !strings.HasPrefix(text, "<") || !strings.HasSuffix(text, ">") {
		return false
	}
	return slices.Contains(wellKnownPlain[:], text) || slices.Contains(wellKnownConstText[:], text)
}
