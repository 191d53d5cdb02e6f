package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigil/internal/diagfmt"
	"sigil/internal/driver"
)

func newDiagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diag <file>...",
		Short: "Load and resolve hierarchy files and report diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDiag(cmd, args)
		},
	}
	cmd.Flags().String("format", "", "output format (pretty|json|sarif); defaults to [diagnostics].format")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	cmd.Flags().Bool("suggest", false, "include fix suggestions")
	cmd.Flags().Bool("preview", false, "show the result of applying each fix")
	cmd.Flags().String("path-mode", "auto", "how to print file paths (auto|absolute|relative|basename)")
	cmd.Flags().Int("context", 0, "source lines shown around each diagnostic")
	return cmd
}

func (a *app) runDiag(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	format, err := flags.GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format == "" {
		format = a.cfg.Diagnostics.Format
	}
	opts := diagfmt.PrettyOpts{BaseDir: a.baseDir()}
	if opts.ShowNotes, err = flags.GetBool("with-notes"); err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if opts.ShowFixes, err = flags.GetBool("suggest"); err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	if opts.ShowPreview, err = flags.GetBool("preview"); err != nil {
		return fmt.Errorf("failed to get preview flag: %w", err)
	}
	if opts.Context, err = flags.GetInt("context"); err != nil {
		return fmt.Errorf("failed to get context flag: %w", err)
	}
	mode, err := flags.GetString("path-mode")
	if err != nil {
		return fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	var ok bool
	if opts.PathMode, ok = diagfmt.ParsePathMode(mode); !ok {
		return fmt.Errorf("unsupported path mode %q", mode)
	}
	// fixes are only useful with their previews
	opts.ShowFixes = opts.ShowFixes || opts.ShowPreview
	// timings travel as notes
	opts.ShowNotes = opts.ShowNotes || a.timings

	res, err := driver.Resolve(a.context(cmd), inputsOf(args), a.options())
	if err != nil {
		return err
	}
	if err := a.renderDiagnostics(cmd.OutOrStdout(), res.Bag, res.State.Files(), format, opts, args); err != nil {
		return err
	}
	if res.HasErrors() {
		return errHasErrors
	}
	return nil
}
