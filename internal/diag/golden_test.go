package diag

import (
	"testing"

	"sigil/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSet()

	userFile := fs.Add("/workspace/testdata/golden/sample.toml", []byte("a\nb\n"), source.FileNormal, 0)
	payloadFile := fs.Add("/workspace/payload/core.toml", []byte("x\n"), source.FilePayload, 0)

	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     SemaParentTypeNotDeclared,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: userFile, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: payloadFile, Start: 0, End: 0}, Msg: "skip me"},
				{Span: source.Span{File: userFile, Start: 2, End: 3}, Msg: "note line"},
			},
		},
		{
			Severity: SevWarning,
			Code:     LdrUnresolvedConstant,
			Message:  "another",
			Primary:  source.Span{File: userFile, Start: 2, End: 3},
		},
	}

	expected := "error SEM3201 testdata/golden/sample.toml:1:1 first line second\n" +
		"note SEM3201 testdata/golden/sample.toml:2:1 note line\n" +
		"warning LDR4101 testdata/golden/sample.toml:2:1 another"

	if got := FormatGoldenDiagnostics(diags, fs, "/workspace", true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestCodeIDs(t *testing.T) {
	cases := map[Code]string{
		SemaIncludesNonModule:   "SEM3207",
		IOLoadFileError:         "IO4001",
		LdrDuplicateDeclaration: "LDR4103",
		ObsTimings:              "OBS6001",
		UnknownCode:             "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %q, want %q", code, got, want)
		}
	}
}

func TestBagLimitAndDedup(t *testing.T) {
	bag := NewBag(2)
	sp := source.Span{File: 1, Start: 4, End: 5}
	r := NewDedupReporter(BagReporter{Bag: bag})
	ReportError(r, SemaNotATypeVariable, sp, "x").Emit()
	ReportError(r, SemaNotATypeVariable, sp, "x").Emit()
	ReportWarning(r, LdrBadVariance, sp, "y").Emit()
	ReportInfo(r, ObsTimings, sp, "z").Emit()

	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
	if !bag.HasErrors() || bag.Count(SemaNotATypeVariable) != 1 || r.Suppressed() != 1 {
		t.Fatalf("dedup failed: %+v", bag.Items())
	}
	if bag.Dropped() != 1 || bag.CountSeverity(SevWarning) != 1 || bag.CountSeverity(SevInfo) != 0 {
		t.Fatalf("limit accounting: dropped=%d items=%+v", bag.Dropped(), bag.Items())
	}

	bag.Sort()
	if bag.Items()[0].Severity != SevError {
		t.Fatalf("errors must sort before warnings at the same span")
	}
}

func TestDroppedErrorStillFailsTheRun(t *testing.T) {
	bag := NewBag(1)
	bag.Add(New(SevWarning, LdrBadVariance, source.NoSpan, "w"))
	if bag.Add(NewError(SemaParentTypeNotDeclared, source.NoSpan, "e")) {
		t.Fatalf("bag accepted a diagnostic past its limit")
	}
	if !bag.HasErrors() {
		t.Fatalf("a dropped error must still count")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	b := ReportError(BagReporter{Bag: bag}, SemaIncludesNonModule, source.NoSpan, "m").
		WithNote(source.NoSpan, "n")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 || len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("builder emitted %d diagnostics", bag.Len())
	}
}
