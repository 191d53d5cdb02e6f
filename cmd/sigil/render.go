package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"sigil/internal/diag"
	"sigil/internal/diagfmt"
	"sigil/internal/driver"
	"sigil/internal/source"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func (a *app) style(st lipgloss.Style, s string) string {
	if !a.color {
		return s
	}
	return st.Render(s)
}

// padRight pads s to width terminal cells.
func padRight(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// renderSummaries prints one block per class with aligned labels.
func (a *app) renderSummaries(w io.Writer, sums []driver.ClassSummary) {
	for i, sum := range sums {
		if i > 0 {
			fmt.Fprintln(w)
		}
		a.renderSummary(w, sum, "")
	}
}

func (a *app) renderSummary(w io.Writer, sum driver.ClassSummary, indent string) {
	fmt.Fprintf(w, "%s%s %s\n", indent, a.style(headingStyle, sum.Name), a.style(labelStyle, "("+sum.Kind+")"))

	type row struct{ label, value string }
	rows := []row{}
	if sum.SuperClass != "" {
		rows = append(rows, row{"superclass", sum.SuperClass})
	}
	rows = append(rows, row{"ancestors", strings.Join(sum.Ancestors, " < ")})
	for _, tm := range sum.TypeMembers {
		v := tm.Variance
		if tm.Fixed {
			v += ", fixed"
		}
		value := fmt.Sprintf("%s (%s)", tm.Name, v)
		if tm.Bounds != "" {
			value += " " + tm.Bounds
		}
		rows = append(rows, row{"type member", value})
	}

	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.label))
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s  %s\n", indent, a.style(labelStyle, padRight(r.label, width)), r.value)
	}
	if sum.Singleton != nil {
		a.renderSummary(w, *sum.Singleton, indent+"  ")
	}
}

// renderDiagnostics writes bag in the requested format.
func (a *app) renderDiagnostics(w io.Writer, bag *diag.Bag, fs *source.FileSet, format string, pretty diagfmt.PrettyOpts, args []string) error {
	switch strings.ToLower(format) {
	case "pretty":
		pretty.Color = a.color
		diagfmt.Pretty(w, bag, fs, pretty)
		return nil
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pretty.PathMode,
			BaseDir:          pretty.BaseDir,
			IncludeNotes:     pretty.ShowNotes,
			IncludeFixes:     pretty.ShowFixes,
			IncludePreviews:  pretty.ShowPreview,
		})
	case "sarif":
		return diagfmt.Sarif(w, bag, fs, diagfmt.SarifRunMeta{
			ToolName:       "sigil",
			ToolVersion:    versionString(),
			InvocationArgs: args,
			BaseDir:        pretty.BaseDir,
		})
	}
	return fmt.Errorf("unsupported format %q (must be pretty, json or sarif)", format)
}

// statusLabel renders the error/warning counts of a bag.
func (a *app) statusLabel(bag *diag.Bag) string {
	errs, warns := bag.CountSeverity(diag.SevError), bag.CountSeverity(diag.SevWarning)
	text := fmt.Sprintf("%d errors, %d warnings", errs, warns)
	if errs > 0 {
		return a.style(badStyle, text)
	}
	return a.style(okStyle, text)
}
