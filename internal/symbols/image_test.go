package symbols

import (
	"strings"
	"testing"

	"sigil/internal/types"
)

func TestExportImportKeepsIds(t *testing.T) {
	s, loc := newUserState(t)
	foo := s.EnterClass(loc, Root, s.Names().EnterConstantText("Foo"))
	s.Data(foo).SetIsModule(false)
	s.Data(foo).SuperClass = Object
	s.AddMixin(foo, Comparable)
	elem := s.EnterTypeMember(loc, foo, s.Names().EnterConstantText("Elem"), Covariant)
	m := s.EnterMethod(loc, foo, s.Names().EnterPlain("each"))
	s.EnterMethodArgument(loc, m, s.Names().EnterPlain("blk")).Flags |= ArgBlock
	single := s.SingletonClass(foo)
	s.Data(foo).Aliases = append(s.Data(foo).Aliases, Alias{Parent: EnumerableElem, Own: elem})
	s.Data(elem).ResultType = s.Types().Intern(types.MakeLambdaParam(elem.Raw(), s.Types().Builtins().Bottom, s.Types().Builtins().Top))
	s.Freeze(TableSymbols)

	got, err := Import(s.Export())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.ID() == s.ID() {
		t.Fatalf("imported state must get a fresh id")
	}
	if got.ClassesUsed() != s.ClassesUsed() || got.MethodsUsed() != s.MethodsUsed() || got.NamesUsed() != s.NamesUsed() {
		t.Fatalf("arena sizes differ after import")
	}
	if !got.Hash().Equal(s.Hash()) {
		t.Fatalf("imported state hashes differently")
	}
	if got.ShowFull(single) != s.ShowFull(single) || got.LookupSingletonClass(foo) != single {
		t.Fatalf("singleton link lost: %s", got.ShowFull(single))
	}
	if fd := got.Data(foo); fd.SuperClass != Object || len(fd.Mixins) != 1 || fd.Mixins[0] != Comparable {
		t.Fatalf("hierarchy lost: super=%v mixins=%v", fd.SuperClass, fd.Mixins)
	}
	if a := got.Data(foo).Aliases; len(a) != 1 || a[0].Own != elem {
		t.Fatalf("aliases lost: %v", a)
	}
	if got.ShowType(got.Data(elem).ResultType) != s.ShowType(s.Data(elem).ResultType) {
		t.Fatalf("type bounds lost")
	}
	if args := got.Data(m).Arguments; len(args) != 1 || !args[0].IsBlock() {
		t.Fatalf("arguments lost: %+v", args)
	}
	if !got.SymbolTableFrozen() || got.Names().Frozen() {
		t.Fatalf("write guards not carried over")
	}
	if f := got.Files().Get(loc.File); f.GetLine(1) != "class Foo" {
		t.Fatalf("file content lost: %q", f.GetLine(1))
	}

	// the image is independent of the exporter
	restore := got.Unfreeze(AllTables)
	got.EnterClass(loc, Root, got.Names().EnterConstantText("Bar"))
	restore()
	if s.Names().LookupConstantText("Bar").Exists() {
		t.Fatalf("import shares the name table")
	}
}

func TestImportRejectsDanglingReferences(t *testing.T) {
	img := New().Export()
	img.Arenas[KindClassOrModule][Object.Index()].SuperClass = ClassRef(9999).Raw()
	_, err := Import(img)
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected out of range error, got %v", err)
	}

	img = New().Export()
	img.Arenas[KindMethod] = nil
	if _, err := Import(img); err == nil {
		t.Fatalf("missing sentinel must be rejected")
	}

	img = New().Export()
	img.Names = append(img.Names, img.Names[len(img.Names)-1])
	if _, err := Import(img); err == nil {
		t.Fatalf("duplicate names must be rejected")
	}
}
