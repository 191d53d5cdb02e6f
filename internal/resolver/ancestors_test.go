package resolver

import (
	"context"
	"strings"
	"testing"

	"sigil/internal/fatal"
	"sigil/internal/symbols"
)

func TestFinalizeAncestorsDefaults(t *testing.T) {
	f := newFixture(t)
	c := f.class("Widget", symbols.NoSymbol)
	m := f.module("Helpers")
	undecided := f.s.EnterClass(f.loc(), symbols.Root, f.s.Names().EnterConstantText("Later"))
	f.s.EnterMethod(f.loc(), c, f.s.Names().EnterPlain("render"))
	single := f.s.SingletonClass(c)

	stats := FinalizeAncestors(context.Background(), f.s, f.rep())

	if got := f.s.Data(c).SuperClass; got != symbols.Object {
		t.Fatalf("class superclass = %s, want Object", f.s.ShowFull(got))
	}
	if got := f.s.Data(m).SuperClass; got != symbols.ImplicitModuleSuperClass {
		t.Fatalf("module superclass = %s", f.s.ShowFull(got))
	}
	if !f.s.IsModule(undecided) {
		t.Fatalf("undecided class-or-module must default to module")
	}
	objSingleton := f.s.LookupSingletonClass(symbols.Object)
	if !objSingleton.Exists() || f.s.Data(single).SuperClass != objSingleton {
		t.Fatalf("singleton superclass = %s, want <Class:Object>", f.s.ShowFull(f.s.Data(single).SuperClass))
	}
	basicSingleton := f.s.LookupSingletonClass(symbols.BasicObject)
	if f.s.Data(objSingleton).SuperClass != basicSingleton || f.s.Data(basicSingleton).SuperClass != symbols.Class {
		t.Fatalf("singleton chain must end in Class")
	}
	if f.s.Data(symbols.BasicObject).SuperClass.Exists() {
		t.Fatalf("BasicObject must stay a root")
	}
	if f.s.Data(symbols.ImplicitModuleSuperClass).SuperClass != symbols.BasicObject {
		t.Fatalf("ImplicitModuleSuperClass must inherit BasicObject")
	}

	want := AncestorStats{Classes: 2, Modules: 2, Methods: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	f.expectCodes()
}

func TestFinalizeAncestorsModuleSingleton(t *testing.T) {
	f := newFixture(t)
	m := f.module("Helpers")
	single := f.s.SingletonClass(m)
	FinalizeAncestors(context.Background(), f.s, f.rep())
	if got := f.s.Data(single).SuperClass; got != symbols.Module {
		t.Fatalf("module singleton superclass = %s, want Module", f.s.ShowFull(got))
	}
}

func TestFinalizeAncestorsKeepsDeclaredSuperClass(t *testing.T) {
	f := newFixture(t)
	base := f.class("Base", symbols.NoSymbol)
	derived := f.class("Derived", base)
	FinalizeAncestors(context.Background(), f.s, f.rep())
	if f.s.Data(derived).SuperClass != base {
		t.Fatalf("declared superclass overwritten")
	}
}

func TestFinalizeAncestorsMixinCycleThroughKernel(t *testing.T) {
	f := newFixture(t)
	m := f.module("Loopy", symbols.Kernel)
	f.s.AddMixin(symbols.Kernel, m)
	f.class("Widget", symbols.NoSymbol)

	err := fatal.Catch(func() { FinalizeAncestors(context.Background(), f.s, f.rep()) })
	if !fatal.IsViolation(err) || !strings.Contains(err.Error(), "loop in mixins") {
		t.Fatalf("expected a mixin loop violation, got %v", err)
	}
}

func TestDerivesFromSharedAncestorIsNotALoop(t *testing.T) {
	f := newFixture(t)
	a := f.module("Alpha")
	b := f.module("Bravo", a)
	cc := f.module("Charlie", a)
	c := f.class("Widget", symbols.NoSymbol, b, cc)
	if f.s.DerivesFrom(c, symbols.Kernel) {
		t.Fatalf("Widget has no superclass yet and must not derive from Kernel")
	}
	if !f.s.DerivesFrom(c, a) {
		t.Fatalf("Widget must derive from Alpha")
	}
}
