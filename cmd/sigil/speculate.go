package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigil/internal/diagfmt"
	"sigil/internal/driver"
)

func newSpeculateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "speculate <base> <overlay>...",
		Short: "Resolve each overlay on its own copy of the base hierarchy",
		Long:  `speculate resolves the base once, then applies every overlay to an independent deep copy in parallel and reports what each one would change`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpeculate(cmd, args)
		},
	}
}

func (a *app) runSpeculate(cmd *cobra.Command, args []string) error {
	ctx := a.context(cmd)
	opts := a.options()
	base, err := driver.Resolve(ctx, inputsOf(args[:1]), opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	pretty := diagfmt.PrettyOpts{Color: a.color, BaseDir: a.baseDir(), ShowNotes: a.timings}
	if base.HasErrors() {
		diagfmt.Pretty(a.stderr, base.Bag, base.State.Files(), pretty)
		return errHasErrors
	}

	forks, err := driver.Speculate(ctx, base, inputsOf(args[1:]), opts)
	if err != nil {
		return err
	}

	width := 0
	for _, f := range forks {
		width = max(width, len(f.Overlay.Path))
	}
	failed := false
	for _, f := range forks {
		change := "unchanged"
		if f.Changed {
			change = "changed"
		}
		fmt.Fprintf(out, "%s  %-9s  %s\n", a.style(headingStyle, padRight(f.Overlay.Path, width)), change, a.statusLabel(f.Result.Bag))
		if f.Result.Bag.Len() > 0 {
			diagfmt.Pretty(out, f.Result.Bag, f.Result.State.Files(), pretty)
		}
		failed = failed || f.Result.HasErrors()
	}
	if failed {
		return errHasErrors
	}
	return nil
}
