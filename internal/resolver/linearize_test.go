package resolver

import (
	"context"
	"slices"
	"testing"

	"sigil/internal/diag"
	"sigil/internal/symbols"
)

func TestLinearizeDropsInheritedMixins(t *testing.T) {
	f := newFixture(t)
	m := f.module("Greeting")
	base := f.class("Base", symbols.Object, m)
	derived := f.class("Derived", base, m)
	f.finalize()

	if got := f.s.Data(derived).Mixins; len(got) != 0 {
		t.Fatalf("Derived mixins = [%s], want none", f.show(got))
	}
	if !f.s.DerivesFrom(derived, m) {
		t.Fatalf("Derived must still derive from Greeting")
	}
	want := "Derived Base Greeting Object Kernel BasicObject"
	if got := f.show(FullLinearization(f.s, f.rep(), derived)); got != want {
		t.Fatalf("full linearization = %q, want %q", got, want)
	}
	f.expectCodes()
}

func TestLinearizeOrdersMixins(t *testing.T) {
	cases := []struct {
		name    string
		include func(f *fixture, a, b symbols.Ref) []symbols.Ref
		want    string
	}{
		{
			name:    "last include comes first",
			include: func(_ *fixture, a, b symbols.Ref) []symbols.Ref { return []symbols.Ref{a, b} },
			want:    "Bravo Alpha",
		},
		{
			name:    "transitive mixins follow their includer",
			include: func(_ *fixture, _, b symbols.Ref) []symbols.Ref { return []symbols.Ref{b} },
			want:    "Bravo Alpha",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.module("Alpha")
			b := f.module("Bravo", a)
			c := f.class("Widget", symbols.Object, tc.include(f, a, b)...)
			lin := Linearize(f.s, f.rep(), c)
			if got := f.show(lin.Mixins); got != tc.want {
				t.Fatalf("mixins = %q, want %q", got, tc.want)
			}
			if lin.SuperClass != symbols.Object || lin.Class != c {
				t.Fatalf("unexpected linearization header %+v", lin)
			}
		})
	}
}

func TestLinearizeNeverMovesEntriesBack(t *testing.T) {
	f := newFixture(t)
	a := f.module("Alpha")
	b := f.module("Bravo", a)
	cc := f.module("Charlie", a)
	c := f.class("Widget", symbols.Object, b, cc)
	// Bravo: [Bravo Alpha]; Charlie goes in front, Alpha stays behind both
	if got := f.show(Linearize(f.s, f.rep(), c).Mixins); got != "Charlie Bravo Alpha" {
		t.Fatalf("mixins = %q", got)
	}
}

func TestLinearizeIsFixedPoint(t *testing.T) {
	f := newFixture(t)
	a := f.module("Alpha")
	b := f.module("Bravo", a)
	c := f.class("Widget", symbols.Object, a, b)
	f.finalize()

	before := slices.Clone(f.s.Data(c).Mixins)
	Linearize(f.s, f.rep(), c)
	ComputeLinearization(context.Background(), f.s, f.rep())
	if after := f.s.Data(c).Mixins; !slices.Equal(before, after) {
		t.Fatalf("recomputation changed mixins: [%s] -> [%s]", f.show(before), f.show(after))
	}
	if !f.s.Data(c).IsLinearized() {
		t.Fatalf("latch not set")
	}
}

func TestLinearizeMixinCycleIsFatal(t *testing.T) {
	f := newFixture(t)
	a := f.module("Alpha")
	b := f.module("Bravo", a)
	f.s.AddMixin(a, b)
	expectFatal(t, "A includes B includes A", func() { Linearize(f.s, f.rep(), a) })
}

func TestLinearizeSelfMixinIsFatal(t *testing.T) {
	f := newFixture(t)
	a := f.module("Alpha")
	f.s.AddMixin(a, a)
	expectFatal(t, "A includes A", func() { Linearize(f.s, f.rep(), a) })
}

func TestLinearizeClassAsMixin(t *testing.T) {
	f := newFixture(t)
	k := f.class("Kit", symbols.Object)
	c := f.class("Widget", symbols.Object, k)
	FinalizeAncestors(context.Background(), f.s, f.rep())
	Linearize(f.s, f.rep(), c)

	f.expectCodes(diag.SemaIncludesNonModule)
	if got := f.show(f.s.Data(c).Mixins); got != "Kit Object Kernel BasicObject" {
		t.Fatalf("mixins = %q", got)
	}
	if !f.s.DerivesFrom(c, k) {
		t.Fatalf("Widget must derive from Kit")
	}
}

func TestLinearizeClassAsMixinKeepsMixinsUnique(t *testing.T) {
	f := newFixture(t)
	m := f.module("Mixed")
	d := f.class("Donor", symbols.Object, m)
	c := f.class("Widget", symbols.Object, m, d)
	f.finalize()

	f.expectCodes(diag.SemaIncludesNonModule)
	if got := f.show(f.s.Data(c).Mixins); got != "Donor Object Kernel BasicObject Mixed" {
		t.Fatalf("mixins = %q", got)
	}
}

func TestLinearizeBasicObjectAsMixinIsSilent(t *testing.T) {
	f := newFixture(t)
	c := f.class("Widget", symbols.Object, symbols.BasicObject)
	FinalizeAncestors(context.Background(), f.s, f.rep())
	Linearize(f.s, f.rep(), c)
	f.expectCodes()
}

func TestLinearizeKeepsStubMixins(t *testing.T) {
	f := newFixture(t)
	stub := f.module("Missing")
	f.s.Data(stub).SuperClass = symbols.StubModule
	c := f.class("Widget", symbols.Object, stub)
	if got := Linearize(f.s, f.rep(), c).Mixins; len(got) != 1 || got[0] != stub {
		t.Fatalf("stub mixin not kept as-is: [%s]", f.show(got))
	}
}
