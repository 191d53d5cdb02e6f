package symbols

import (
	"sigil/internal/fatal"
	"sigil/internal/names"
	"sigil/internal/source"
)

// BootstrapVersion names the set of built-ins seeded by New. Any change to
// the order or content below must bump it.
const BootstrapVersion = "sigil-builtins/1"

// Built-in classes and modules at fixed indices.
var (
	Top                      = ClassRef(1)
	Bottom                   = ClassRef(2)
	Root                     = ClassRef(3)
	RootSingleton            = ClassRef(4)
	Todo                     = ClassRef(5)
	Object                   = ClassRef(6)
	BasicObject              = ClassRef(7)
	Kernel                   = ClassRef(8)
	Module                   = ClassRef(9)
	Class                    = ClassRef(10)
	Integer                  = ClassRef(11)
	String                   = ClassRef(12)
	SymbolClass              = ClassRef(13)
	Array                    = ClassRef(14)
	Hash                     = ClassRef(15)
	NilClass                 = ClassRef(16)
	TrueClass                = ClassRef(17)
	FalseClass               = ClassRef(18)
	Untyped                  = ClassRef(19)
	Enumerable               = ClassRef(20)
	Comparable               = ClassRef(21)
	Set                      = ClassRef(22)
	Range                    = ClassRef(23)
	Enumerator               = ClassRef(24)
	Proc                     = ClassRef(25)
	T                        = ClassRef(26)
	StubModule               = ClassRef(27)
	StubMixin                = ClassRef(28)
	StubSuperClass           = ClassRef(29)
	ImplicitModuleSuperClass = ClassRef(30)
	Magic                    = ClassRef(31)
	MagicSingleton           = ClassRef(32)
)

// Built-in methods, fields and type members.
var (
	NoMethod              = MethodRef(0)
	TodoMethod            = MethodRef(1)
	MagicBuildHash        = MethodRef(2)
	MagicBuildArray       = MethodRef(3)
	KernelPuts            = MethodRef(4)
	BasicObjectInitialize = MethodRef(5)
	ClassNew              = MethodRef(6)

	NoField                  = FieldRef(0)
	MagicUndeclaredFieldStub = FieldRef(1)

	NoTypeMember   = TypeMemberRef(0)
	ArrayElem      = TypeMemberRef(3)
	HashK          = TypeMemberRef(4)
	HashV          = TypeMemberRef(5)
	HashElem       = TypeMemberRef(6)
	SetElem        = TypeMemberRef(7)
	EnumerableElem = TypeMemberRef(8)
	RangeElem      = TypeMemberRef(9)
	EnumeratorElem = TypeMemberRef(10)
)

// Classes past this index are not built-ins.
const lastBuiltinClass = 32

type builtinClass struct {
	ref    Ref
	name   names.NameRef
	super  Ref
	module bool
	mixins []Ref
}

var builtinClasses = []builtinClass{
	{ref: Todo, name: names.ConstTodo},
	{ref: Object, name: names.ConstObject, super: BasicObject, mixins: []Ref{Kernel}},
	{ref: BasicObject, name: names.ConstBasicObject},
	{ref: Kernel, name: names.ConstKernel, module: true},
	{ref: Module, name: names.ConstModule, super: Object},
	{ref: Class, name: names.ConstClass, super: Module},
	{ref: Integer, name: names.ConstInteger, super: Object, mixins: []Ref{Comparable}},
	{ref: String, name: names.ConstString, super: Object, mixins: []Ref{Comparable}},
	{ref: SymbolClass, name: names.ConstSymbol, super: Object},
	{ref: Array, name: names.ConstArray, super: Object, mixins: []Ref{Enumerable}},
	{ref: Hash, name: names.ConstHash, super: Object, mixins: []Ref{Enumerable}},
	{ref: NilClass, name: names.ConstNilClass, super: Object},
	{ref: TrueClass, name: names.ConstTrueClass, super: Object},
	{ref: FalseClass, name: names.ConstFalseClass, super: Object},
	{ref: Untyped, name: names.ConstUntyped},
	{ref: Enumerable, name: names.ConstEnumerable, module: true},
	{ref: Comparable, name: names.ConstComparable, module: true},
	{ref: Set, name: names.ConstSet, super: Object, mixins: []Ref{Enumerable}},
	{ref: Range, name: names.ConstRange, super: Object, mixins: []Ref{Enumerable}},
	{ref: Enumerator, name: names.ConstEnumerator, super: Object, mixins: []Ref{Enumerable}},
	{ref: Proc, name: names.ConstProc, super: Object},
	{ref: T, name: names.ConstT, module: true},
	{ref: StubModule, name: names.ConstStubModule, module: true},
	{ref: StubMixin, name: names.ConstStubMixin, module: true},
	{ref: StubSuperClass, name: names.ConstStubSuperClass, super: Object},
	{ref: ImplicitModuleSuperClass, name: names.ConstImplicitModuleSuperClass, super: BasicObject},
	{ref: Magic, name: names.ConstMagic, super: Object},
}

type builtinTypeMember struct {
	ref      Ref
	owner    Ref
	name     names.NameRef
	variance Variance
}

var builtinTypeMembers = []builtinTypeMember{
	{ArrayElem, Array, names.ConstElem, Invariant},
	{HashK, Hash, names.ConstK, Invariant},
	{HashV, Hash, names.ConstV, Invariant},
	{HashElem, Hash, names.ConstElem, Invariant},
	{SetElem, Set, names.ConstElem, Invariant},
	{EnumerableElem, Enumerable, names.ConstElem, Covariant},
	{RangeElem, Range, names.ConstElem, Invariant},
	{EnumeratorElem, Enumerator, names.ConstElem, Invariant},
}

// IsBuiltin reports whether ref is a class seeded by New.
func IsBuiltin(ref Ref) bool {
	return ref.IsClassOrModule() && ref.Exists() && ref.idx <= lastBuiltinClass
}

func bootstrap(s *State) {
	fatal.Check(s.ClassesUsed() == 1 && s.names.Len() == 1, "bootstrap needs an empty state")
	names.RegisterWellKnown(s.names)

	synth := func(want Ref, owner Ref, name names.NameRef) *Symbol {
		got := s.EnterClass(source.NoSpan, owner, name)
		fatal.Check(got == want, "built-in %s entered at %v, want %v", s.names.Show(name), got, want)
		return s.Data(got)
	}

	synth(Top, NoSymbol, names.ConstTop).SetIsModule(false)
	synth(Bottom, NoSymbol, names.ConstBottom).SetIsModule(false)
	synth(Root, NoSymbol, names.ConstRoot).SetIsModule(false)
	fatal.Check(s.SingletonClass(Root) == RootSingleton, "root singleton is not at %v", RootSingleton)

	for _, bc := range builtinClasses {
		data := synth(bc.ref, Root, bc.name)
		data.SetIsModule(bc.module)
		data.SuperClass = bc.super
		data.Mixins = append(data.Mixins, bc.mixins...)
	}
	fatal.Check(s.SingletonClass(Magic) == MagicSingleton, "magic singleton is not at %v", MagicSingleton)

	for _, tm := range builtinTypeMembers {
		got := s.EnterTypeMember(source.NoSpan, tm.owner, tm.name, tm.variance)
		fatal.Check(got == tm.ref, "built-in type member %s entered at %v, want %v", s.names.Show(tm.name), got, tm.ref)
	}

	method := func(want Ref, owner Ref, name names.NameRef) *Symbol {
		got := s.EnterMethod(source.NoSpan, owner, name)
		fatal.Check(got == want, "built-in method %s entered at %v, want %v", s.names.Show(name), got, want)
		return s.Data(got)
	}
	method(TodoMethod, Todo, names.TodoMethod)
	method(MagicBuildHash, MagicSingleton, names.BuildHash).Intrinsic = IntrinsicBuildHash
	method(MagicBuildArray, MagicSingleton, names.BuildArray).Intrinsic = IntrinsicBuildArray
	method(KernelPuts, Kernel, names.Puts)
	method(BasicObjectInitialize, BasicObject, names.Initialize)
	method(ClassNew, Class, names.New)

	args := s.names.EnterPlain("args")
	for _, m := range []Ref{MagicBuildHash, MagicBuildArray, KernelPuts, ClassNew} {
		s.EnterMethodArgument(source.NoSpan, m, args).Flags |= ArgRepeated
	}
	s.EnterMethodArgument(source.NoSpan, ClassNew, names.BlkArg).Flags |= ArgBlock

	field := s.EnterField(source.NoSpan, Magic, names.UndeclaredFieldStub)
	fatal.Check(field == MagicUndeclaredFieldStub, "undeclared-field stub entered at %v", field)
}
