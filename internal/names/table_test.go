package names

import (
	"fmt"
	"hash/fnv"
	"strings"
	"testing"

	"sigil/internal/fatal"
)

func TestEnterPlainIdempotent(t *testing.T) {
	tbl := NewTable()
	a := tbl.EnterPlain("foo")
	b := tbl.EnterPlain("foo")
	if a == NoName {
		t.Fatalf("EnterPlain returned NoName")
	}
	if a != b {
		t.Fatalf("same text interned twice: %d != %d", a, b)
	}
	if got := tbl.Data(a).Text; got != "foo" {
		t.Fatalf("round trip: got %q", got)
	}
	if tbl.EnterPlain("bar") == a {
		t.Fatalf("different texts share an id")
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 names (sentinel included), got %d", tbl.Len())
	}
}

func TestLookupNeverMutates(t *testing.T) {
	tbl := NewTable()
	if tbl.LookupPlain("missing") != NoName {
		t.Fatalf("lookup of missing text should be NoName")
	}
	if tbl.LookupConstantText("Missing") != NoName {
		t.Fatalf("lookup of missing constant should be NoName")
	}
	if tbl.Len() != 1 {
		t.Fatalf("lookup mutated the table: len=%d", tbl.Len())
	}
}

func TestConstantAndUniqueStructuralIdentity(t *testing.T) {
	tbl := NewTable()
	foo := tbl.EnterPlain("Foo")
	c1 := tbl.EnterConstant(foo)
	c2 := tbl.EnterConstantText("Foo")
	if c1 != c2 || c1 == foo {
		t.Fatalf("constant identity broken: c1=%d c2=%d plain=%d", c1, c2, foo)
	}
	if tbl.LookupConstant(foo) != c1 {
		t.Fatalf("LookupConstant miss")
	}

	u1 := tbl.EnterUnique(MangleRename, c1, 1)
	u2 := tbl.EnterUnique(MangleRename, c1, 2)
	u3 := tbl.EnterUnique(Namer, c1, 1)
	if u1 == u2 || u1 == u3 {
		t.Fatalf("unique names must differ by num and kind")
	}
	if tbl.EnterUnique(MangleRename, c1, 1) != u1 {
		t.Fatalf("unique name not idempotent")
	}
	if tbl.LookupUnique(MangleRename, c1, 2) != u2 {
		t.Fatalf("LookupUnique miss")
	}
	if got := tbl.Show(u2); got != "Foo$2" {
		t.Fatalf("Show(unique) = %q", got)
	}
	s := tbl.EnterUnique(Singleton, c1, 1)
	if got := tbl.Show(s); got != "<Class:Foo>" {
		t.Fatalf("Show(singleton) = %q", got)
	}
}

func TestEnterInvalidIsFatal(t *testing.T) {
	tbl := NewTable()
	c := tbl.EnterConstantText("A")
	cases := map[string]func(){
		"constant over constant": func() { tbl.EnterConstant(c) },
		"unique with num 0":      func() { tbl.EnterUnique(Namer, c, 0) },
		"out of range original":  func() { tbl.EnterConstant(NameRef(999)) },
	}
	for name, fn := range cases {
		if err := fatal.Catch(fn); !fatal.IsViolation(err) {
			t.Errorf("%s: expected violation, got %v", name, err)
		}
	}
}

func TestFrozenTable(t *testing.T) {
	tbl := NewTable()
	known := tbl.EnterPlain("known")
	if old := tbl.Freeze(); old {
		t.Fatalf("fresh table should not be frozen")
	}
	// hits are allowed while frozen
	if tbl.EnterPlain("known") != known {
		t.Fatalf("frozen hit returned a different id")
	}
	if err := fatal.Catch(func() { tbl.EnterPlain("new") }); !fatal.IsViolation(err) {
		t.Fatalf("entering a new name while frozen should be fatal, got %v", err)
	}
	if old := tbl.Unfreeze(); !old {
		t.Fatalf("Unfreeze should return previous value true")
	}
	tbl.EnterPlain("new")
}

func TestGrowthPreservesLookups(t *testing.T) {
	tbl := NewTable()
	const n = 5000
	ids := make([]NameRef, n)
	for i := range n {
		ids[i] = tbl.EnterPlain(fmt.Sprintf("name_%d", i))
	}
	if tbl.Capacity() <= DefaultCapacity {
		t.Fatalf("table did not grow: capacity %d", tbl.Capacity())
	}
	for i := range n {
		if got := tbl.LookupPlain(fmt.Sprintf("name_%d", i)); got != ids[i] {
			t.Fatalf("after growth name_%d = %d, want %d", i, got, ids[i])
		}
	}
	tbl.SanityCheck()
}

func TestPreallocateRoundsToPowerOfTwo(t *testing.T) {
	tbl := NewTable()
	a := tbl.EnterPlain("a")
	tbl.Preallocate(3000)
	if tbl.Capacity() != 4096 {
		t.Fatalf("capacity = %d, want 4096", tbl.Capacity())
	}
	if tbl.LookupPlain("a") != a {
		t.Fatalf("preallocate lost a name")
	}
	tbl.SanityCheck()
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := NewTable()
	a := tbl.EnterPlain("shared")
	cp := tbl.Clone()
	b := cp.EnterPlain("only-in-copy")
	if tbl.LookupPlain("only-in-copy") != NoName {
		t.Fatalf("clone wrote into original")
	}
	if cp.LookupPlain("shared") != a {
		t.Fatalf("clone changed ids")
	}
	c := tbl.EnterPlain("only-in-orig")
	if b != c {
		t.Fatalf("both tables should hand out the next id: copy=%d orig=%d", b, c)
	}
	if cp.Data(b).Text != "only-in-copy" || tbl.Data(c).Text != "only-in-orig" {
		t.Fatalf("arena pages shared between clone and original")
	}
}

func TestRestoreKeepsIds(t *testing.T) {
	tbl := NewTable()
	RegisterWellKnown(tbl)
	u := tbl.EnterUnique(TypeVarName, ConstElem, 3)
	back := Restore(tbl.Names())
	if back.Len() != tbl.Len() {
		t.Fatalf("restored len %d want %d", back.Len(), tbl.Len())
	}
	if back.LookupUnique(TypeVarName, ConstElem, 3) != u {
		t.Fatalf("restored table changed ids")
	}
	back.SanityCheck()
}

func TestRegisterWellKnown(t *testing.T) {
	tbl := NewTable()
	RegisterWellKnown(tbl)
	if tbl.LookupPlain("initialize") != Initialize {
		t.Fatalf("Initialize id mismatch")
	}
	if tbl.LookupConstantText("Object") != ConstObject {
		t.Fatalf("ConstObject id mismatch")
	}
	if tbl.Show(AttachedClass) != "<AttachedClass>" {
		t.Fatalf("AttachedClass shows as %q", tbl.Show(AttachedClass))
	}
	if err := fatal.Catch(func() { RegisterWellKnown(tbl) }); err == nil {
		t.Fatalf("second registration should be fatal")
	}
}

func TestHashIsContentBased(t *testing.T) {
	a := NewTable()
	b := NewTable()
	b.EnterPlain("padding")
	ca := a.EnterConstantText("Foo")
	cb := b.EnterConstantText("Foo")
	if ca == cb {
		t.Fatalf("test setup: ids should differ")
	}
	if a.Hash(ca) != b.Hash(cb) {
		t.Fatalf("hash depends on ids")
	}
}

func TestArenaPages(t *testing.T) {
	a := NewArena()
	small := a.Enter("abc")
	big := a.Enter(strings.Repeat("x", PageSize+10))
	after := a.Enter("def")
	if small != "abc" || after != "def" || len(big) != PageSize+10 {
		t.Fatalf("arena returned wrong strings")
	}
	// the oversized page is placed before the current page, so "def" still
	// fits in the first regular page
	if a.Pages() != 2 {
		t.Fatalf("pages = %d, want 2", a.Pages())
	}
	if a.Bytes() != 6+PageSize+10 {
		t.Fatalf("bytes = %d", a.Bytes())
	}

	cp := a.Clone()
	cp.Enter("ghi")
	if cp.Pages() != 3 {
		t.Fatalf("clone must start a new page on write, pages=%d", cp.Pages())
	}
	if small != "abc" {
		t.Fatalf("existing strings changed after clone write")
	}
}

func BenchmarkEnterPlain(b *testing.B) {
	keys := make([]string, 10000)
	for i := range keys {
		keys[i] = fmt.Sprintf("ident_%d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tbl := NewTable()
		for _, k := range keys {
			tbl.EnterPlain(k)
		}
	}
}

func BenchmarkLookupPlain(b *testing.B) {
	tbl := NewTable()
	keys := make([]string, 10000)
	for i := range keys {
		keys[i] = fmt.Sprintf("ident_%d", i)
		tbl.EnterPlain(keys[i])
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tbl.LookupPlain(keys[i%len(keys)])
	}
}

func TestHashTextIsFNV1a(t *testing.T) {
	for _, text := range []string{"", "a", "initialize", "<singleton>", "Élan"} {
		h := fnv.New32a()
		_, _ = h.Write([]byte(text))
		want := h.Sum32()
		if want == 0 {
			want = 1
		}
		if got := hashText(text); got != want {
			t.Fatalf("hashText(%q) = %#x, want %#x", text, got, want)
		}
	}
	if allocs := testing.AllocsPerRun(100, func() { hashText("interned") }); allocs != 0 {
		t.Fatalf("hashText allocates %.0f times", allocs)
	}
}

func TestIsReserved(t *testing.T) {
	for _, text := range []string{"<singleton>", "<attached>", "<class-methods>", "<blk>", "<AttachedClass>"} {
		if !IsReserved(text) {
			t.Fatalf("%q should be reserved", text)
		}
	}
	for _, text := range []string{"initialize", "new", "Object", "<custom>", "@x", ""} {
		if IsReserved(text) {
			t.Fatalf("%q should not be reserved", text)
		}
	}
}
