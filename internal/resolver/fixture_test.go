package resolver

import (
	"context"
	"strings"
	"testing"

	"sigil/internal/diag"
	"sigil/internal/fatal"
	"sigil/internal/source"
	"sigil/internal/symbols"
	"sigil/internal/testkit"
)

// fixture builds small hierarchies in a user file, one line per symbol.
type fixture struct {
	t    *testing.T
	s    *symbols.State
	bag  *diag.Bag
	file source.FileID
	line uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := symbols.New()
	s.Unfreeze(symbols.AllTables)
	file := s.EnterFile("hierarchy.sigil", []byte(strings.Repeat("decl\n", 256)), source.FileNormal)
	return &fixture{t: t, s: s, bag: diag.NewBag(0), file: file}
}

func (f *fixture) rep() diag.Reporter { return diag.BagReporter{Bag: f.bag} }

func (f *fixture) loc() source.Span {
	start := f.line * 5
	f.line++
	return source.Span{File: f.file, Start: start, End: start + 4}
}

func (f *fixture) class(name string, super symbols.Ref, mixins ...symbols.Ref) symbols.Ref {
	ref := f.s.EnterClass(f.loc(), symbols.Root, f.s.Names().EnterConstantText(name))
	d := f.s.Data(ref)
	d.SetIsModule(false)
	d.SuperClass = super
	d.Mixins = append(d.Mixins, mixins...)
	return ref
}

func (f *fixture) module(name string, mixins ...symbols.Ref) symbols.Ref {
	ref := f.s.EnterClass(f.loc(), symbols.Root, f.s.Names().EnterConstantText(name))
	d := f.s.Data(ref)
	d.SetIsModule(true)
	d.Mixins = append(d.Mixins, mixins...)
	return ref
}

func (f *fixture) typeMember(owner symbols.Ref, name string, v symbols.Variance) symbols.Ref {
	return f.s.EnterTypeMember(f.loc(), owner, f.s.Names().EnterConstantText(name), v)
}

func (f *fixture) finalize() *TypeMemberPass {
	f.t.Helper()
	ctx := context.Background()
	FinalizeAncestors(ctx, f.s, f.rep())
	pass := FinalizeSymbols(ctx, f.s, f.rep())
	if err := testkit.CheckStateInvariants(f.s); err != nil {
		f.t.Fatalf("state invariants: %v", err)
	}
	return pass
}

func (f *fixture) show(refs []symbols.Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = f.s.ShowFull(r)
	}
	return strings.Join(parts, " ")
}

func (f *fixture) expectCodes(codes ...diag.Code) {
	f.t.Helper()
	items := f.bag.Items()
	if len(items) != len(codes) {
		var got []string
		for _, d := range items {
			got = append(got, d.Code.ID()+" "+d.Message)
		}
		f.t.Fatalf("expected %d diagnostics, got %d:\n%s", len(codes), len(items), strings.Join(got, "\n"))
	}
	for i, code := range codes {
		if items[i].Code != code {
			f.t.Fatalf("diagnostic %d: got %s, want %s", i, items[i].Code.ID(), code.ID())
		}
	}
}

func expectFatal(t *testing.T, what string, fn func()) {
	t.Helper()
	if err := fatal.Catch(fn); !fatal.IsViolation(err) {
		t.Fatalf("%s: expected invariant violation, got %v", what, err)
	}
}
