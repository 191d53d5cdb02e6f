package source

import (
	"os"
	"path/filepath"
	"testing"

	"sigil/internal/fatal"
)

func TestFileSetReservesSentinel(t *testing.T) {
	fs := NewFileSet()
	if fs.Len() != 0 {
		t.Fatalf("expected empty set, got %d", fs.Len())
	}
	id := fs.AddVirtual("a.toml", []byte("x"))
	if id == NoFileID {
		t.Fatalf("Add must never hand out NoFileID")
	}
	if fs.Lookup(NoFileID) != nil {
		t.Fatalf("Lookup(NoFileID) should be nil")
	}
	if got, ok := fs.FindByPath("a.toml"); !ok || got != id {
		t.Fatalf("FindByPath = %d, %v; want %d", got, ok, id)
	}
}

func TestFileSetFrozenAddIsFatal(t *testing.T) {
	fs := NewFileSet()
	if old := fs.Freeze(); old {
		t.Fatalf("new file set should start unfrozen")
	}
	err := fatal.Catch(func() { fs.AddVirtual("late.toml", nil) })
	if !fatal.IsViolation(err) {
		t.Fatalf("expected violation adding to a frozen table, got %v", err)
	}
	if old := fs.Unfreeze(); !old {
		t.Fatalf("Unfreeze should report previous frozen state")
	}
}

func TestFileSetReserveAndFill(t *testing.T) {
	fs := NewFileSet()
	id := fs.Reserve("lazy.toml")
	if got := fs.Get(id).Type; got != FileNotYetRead {
		t.Fatalf("reserved slot type = %v", got)
	}
	fs.Fill(id, []byte("one\ntwo"), FilePayload)
	f := fs.Get(id)
	if !f.IsPayload() {
		t.Fatalf("filled file should be payload, got %v", f.Type)
	}
	if f.GetLine(2) != "two" {
		t.Fatalf("GetLine(2) = %q", f.GetLine(2))
	}

	err := fatal.Catch(func() { fs.Fill(id, nil, FileNormal) })
	if err == nil {
		t.Fatalf("filling a non-reserved slot should be fatal")
	}
}

func TestFileSetTombStoneAllowsReentry(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("x.toml", []byte("a"))
	if err := fatal.Catch(func() { fs.AddVirtual("x.toml", nil) }); err == nil {
		t.Fatalf("duplicate path should be fatal")
	}
	fs.MarkTombStone(first)
	second := fs.AddVirtual("x.toml", []byte("b"))
	if second == first {
		t.Fatalf("tombstoned id must stay reserved")
	}
	if got, _ := fs.FindByPath("x.toml"); got != second {
		t.Fatalf("FindByPath should return the newest id")
	}
}

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("pos.toml", []byte("ab\ncde\n\nf"))
	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{5, LineCol{2, 3}},
		{7, LineCol{3, 1}},
		{8, LineCol{4, 1}},
	}
	for _, tc := range cases {
		start, _ := fs.Resolve(Span{File: id, Start: tc.off, End: tc.off})
		if start != tc.want {
			t.Errorf("offset %d: got %+v want %+v", tc.off, start, tc.want)
		}
	}
}

func TestFileSetLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.toml")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFa\r\nb\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Fatalf("content not normalized: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags not recorded: %b", f.Flags)
	}
}

func TestFileSetCloneIsIndependent(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("a.toml", nil)
	cp := fs.Clone()
	cp.AddVirtual("b.toml", nil)
	if fs.Len() != 1 || cp.Len() != 2 {
		t.Fatalf("clone shares storage: orig=%d clone=%d", fs.Len(), cp.Len())
	}
	if _, ok := fs.FindByPath("b.toml"); ok {
		t.Fatalf("clone leaked path index into original")
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Fatalf("Cover = %v", got)
	}
	if !b.Less(a) || a.Less(b) {
		t.Fatalf("Less ordering is wrong")
	}
	if NoSpan.Exists() {
		t.Fatalf("NoSpan must not exist")
	}
}
