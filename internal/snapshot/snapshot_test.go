package snapshot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"sigil/internal/source"
	"sigil/internal/symbols"
	"sigil/internal/testkit"
)

func sampleState(t *testing.T) (*symbols.State, symbols.Ref) {
	t.Helper()
	s := symbols.New()
	restore := s.Unfreeze(symbols.AllTables)
	defer restore()
	file := s.EnterFile("sample.toml", []byte("[[class]]\nname = \"Box\"\n"), source.FileNormal)
	loc := source.Span{File: file, Start: 18, End: 21}
	box := s.EnterClass(loc, symbols.Root, s.Names().EnterConstantText("Box"))
	s.Data(box).SetIsModule(false)
	s.Data(box).SuperClass = symbols.Object
	s.EnterTypeMember(loc, box, s.Names().EnterConstantText("Elem"), symbols.Invariant)
	s.EnterMethod(loc, box, s.Names().EnterPlain("fetch"))
	return s, box
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s, box := sampleState(t)
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := testkit.CheckStateInvariants(got); err != nil {
		t.Fatalf("decoded state is broken: %v", err)
	}
	if !got.Hash().Equal(s.Hash()) {
		t.Fatalf("decoded state hashes differently")
	}
	if found := got.LookupClassPath(symbols.Root, []string{"Box"}); found != box {
		t.Fatalf("Box moved from %v to %v", box, found)
	}
	if got.ShowFull(box) != "Box" {
		t.Fatalf("ShowFull = %q", got.ShowFull(box))
	}
	if !got.SymbolTableFrozen() {
		t.Fatalf("write guards lost")
	}
}

func TestDecodeRejectsForeignSchema(t *testing.T) {
	var buf bytes.Buffer
	env := envelope{Magic: magic, Schema: SchemaVersion + 1, Builtins: symbols.BootstrapVersion}
	if err := msgpack.NewEncoder(&buf).Encode(&env); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(&buf); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible, got %v", err)
	}

	if _, err := Decode(bytes.NewReader([]byte("not msgpack at all"))); err == nil {
		t.Fatalf("garbage must not decode")
	}
}

func TestInspect(t *testing.T) {
	s, _ := sampleState(t)
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	info, err := Inspect(&buf)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Schema != SchemaVersion || info.Builtins != symbols.BootstrapVersion {
		t.Fatalf("header = %d %q", info.Schema, info.Builtins)
	}
	if len(info.Files) != 1 || info.Files[0] != "sample.toml" {
		t.Fatalf("files = %v", info.Files)
	}
	if got, want := info.Symbols["class"], s.ClassesUsed()-1; got != want {
		t.Fatalf("classes = %d, want %d", got, want)
	}
	if info.Names != s.NamesUsed()-1 {
		t.Fatalf("names = %d, want %d", info.Names, s.NamesUsed()-1)
	}
}

func TestKeyFor(t *testing.T) {
	a := KeyFor([]byte("ab"), []byte("c"))
	b := KeyFor([]byte("a"), []byte("bc"))
	if a == b {
		t.Fatalf("input framing must affect the key")
	}
	if a != KeyFor([]byte("ab"), []byte("c")) {
		t.Fatalf("key is not deterministic")
	}
	if len(a.String()) != 64 {
		t.Fatalf("key string %q", a.String())
	}
}

func TestCachePutGet(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	s, box := sampleState(t)
	key := KeyFor([]byte("sample"))

	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := c.Put(key, s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.ShowFull(box) != "Box" {
		t.Fatalf("cached state lost Box")
	}
	entries, err := os.ReadDir(filepath.Join(c.Dir(), "states"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one cache file, got %v (%v)", entries, err)
	}

	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Fatalf("DropAll left the entry behind")
	}
}

func TestCacheDropsIncompatibleEntries(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	key := KeyFor([]byte("old"))
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := msgpack.Marshal(&envelope{Magic: magic, Schema: 0, Builtins: "old"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("incompatible entry: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("incompatible entry not removed: %v", err)
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	s, _ := sampleState(t)
	if err := c.Put(KeyFor(), s); err != nil {
		t.Fatalf("Put on nil cache: %v", err)
	}
	if _, ok, err := c.Get(KeyFor()); ok || err != nil {
		t.Fatalf("Get on nil cache: ok=%v err=%v", ok, err)
	}
}
