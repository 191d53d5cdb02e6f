package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"sigil/internal/diag"
	"sigil/internal/source"
)

type palette struct {
	err, warn, info *color.Color
	code, path      *color.Color
	gutter, caret   *color.Color
	note, fix       *color.Color
	added, removed  *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		code:    color.New(color.Bold),
		path:    color.New(color.FgWhite, color.Bold),
		gutter:  color.New(color.FgBlue),
		caret:   color.New(color.FgRed, color.Bold),
		note:    color.New(color.FgCyan),
		fix:     color.New(color.FgGreen),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.path, p.gutter, p.caret, p.note, p.fix, p.added, p.removed} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders diagnostics in human readable form. Items are printed in
// bag order, so callers sort the bag first. Each entry looks like
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a ^~~~ underline, then notes and fixes
// when enabled.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pr := prettyPrinter{w: w, fs: fs, opts: opts, pal: newPalette(opts.Color)}
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		pr.diagnostic(&d)
	}
}

type prettyPrinter struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
	pal  palette
}

func (pr *prettyPrinter) location(span source.Span) string {
	f := pr.fs.Lookup(span.File)
	if f == nil {
		return "<builtin>"
	}
	start, _ := pr.fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", displayPath(f, pr.opts.PathMode, pr.opts.BaseDir), start.Line, start.Col)
}

func (pr *prettyPrinter) diagnostic(d *diag.Diagnostic) {
	fmt.Fprintf(pr.w, "%s: %s %s: %s\n",
		pr.pal.path.Sprint(pr.location(d.Primary)),
		pr.pal.severity(d.Severity).Sprint(d.Severity.String()),
		pr.pal.code.Sprint(d.Code.ID()),
		d.Message)
	pr.snippet(d.Primary, pr.pal.caret)

	if pr.opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(pr.w, "  %s %s: %s\n", pr.pal.note.Sprint("note:"), pr.location(n.Span), n.Msg)
			pr.snippet(n.Span, pr.pal.note)
		}
	}
	if pr.opts.ShowFixes {
		for i, fix := range d.Fixes {
			fmt.Fprintf(pr.w, "  %s %s\n", pr.pal.fix.Sprintf("fix #%d:", i+1), fix.Title)
			for _, edit := range fix.Edits {
				fmt.Fprintf(pr.w, "    edit %s apply=%s\n", pr.location(edit.Span), strconv.Quote(edit.NewText))
				if pr.opts.ShowPreview {
					pr.preview(edit)
				}
			}
		}
	}
}

// snippet prints the lines covered by span plus opts.Context lines around,
// underlining the first one.
func (pr *prettyPrinter) snippet(span source.Span, underline *color.Color) {
	f := pr.fs.Lookup(span.File)
	if f == nil || f.Type == source.FileTombStone {
		return
	}
	start, end := pr.fs.Resolve(span)
	ctx := uint32(max(pr.opts.Context, 0)) // #nosec G115 -- clamped above
	first := start.Line - min(ctx, start.Line-1)
	last := min(start.Line+ctx, uint32(len(f.LineIdx))+1) // #nosec G115 -- line count fits in uint32

	width := len(strconv.FormatUint(uint64(last), 10))
	pad := strings.Repeat(" ", width)
	for ln := first; ln <= last; ln++ {
		text := f.GetLine(ln)
		fmt.Fprintf(pr.w, "  %s %s %s\n", pr.pal.gutter.Sprintf("%*d", width, ln), pr.pal.gutter.Sprint("|"), text)
		if ln != start.Line {
			continue
		}
		prefix := text[:min(int(start.Col-1), len(text))]
		endCol := len(text)
		if end.Line == start.Line {
			endCol = min(int(end.Col-1), len(text))
		}
		marked := ""
		if endCol > len(prefix) {
			marked = text[len(prefix):endCol]
		}
		n := max(runewidth.StringWidth(marked), 1)
		mark := "^" + strings.Repeat("~", n-1)
		fmt.Fprintf(pr.w, "  %s %s %s%s\n", pad, pr.pal.gutter.Sprint("|"),
			strings.Repeat(" ", runewidth.StringWidth(prefix)), underline.Sprint(mark))
	}
}

func (pr *prettyPrinter) preview(edit diag.FixEdit) {
	p, err := buildFixEditPreview(pr.fs, edit)
	if err != nil {
		fmt.Fprintf(pr.w, "      preview unavailable: %v\n", err)
		return
	}
	fmt.Fprintln(pr.w, "      preview:")
	for _, line := range p.before {
		fmt.Fprintf(pr.w, "        %s\n", pr.pal.removed.Sprint("- "+line))
	}
	for _, line := range p.after {
		fmt.Fprintf(pr.w, "        %s\n", pr.pal.added.Sprint("+ "+line))
	}
}
