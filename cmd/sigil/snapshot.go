package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"sigil/internal/diagfmt"
	"sigil/internal/driver"
	"sigil/internal/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot (<file>... -o out.mp | --inspect out.mp)",
		Short: "Write the resolved state to a msgpack snapshot, or describe one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSnapshot(cmd, args)
		},
	}
	cmd.Flags().StringP("output", "o", "", "snapshot file to write")
	cmd.Flags().Bool("inspect", false, "describe an existing snapshot instead of writing one")
	cmd.Flags().Bool("json", false, "print --inspect output as JSON")
	return cmd
}

func (a *app) runSnapshot(cmd *cobra.Command, args []string) error {
	inspect, err := cmd.Flags().GetBool("inspect")
	if err != nil {
		return fmt.Errorf("failed to get inspect flag: %w", err)
	}
	if inspect {
		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return fmt.Errorf("failed to get json flag: %w", err)
		}
		if len(args) != 1 {
			return errors.New("--inspect takes exactly one snapshot file")
		}
		return a.inspectSnapshot(cmd, args[0], asJSON)
	}

	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if outPath == "" {
		return errors.New("missing -o/--output")
	}

	res, err := driver.Resolve(a.context(cmd), inputsOf(args), a.options())
	if err != nil {
		return err
	}
	if res.HasErrors() {
		diagfmt.Pretty(a.stderr, res.Bag, res.State.Files(), diagfmt.PrettyOpts{Color: a.color, BaseDir: a.baseDir()})
		return errHasErrors
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := snapshot.Encode(tmp, res.State); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d classes)\n", outPath, res.State.ClassesUsed()-1)
	return nil
}

func (a *app) inspectSnapshot(cmd *cobra.Command, path string, asJSON bool) error {
	f, err := os.Open(path) // #nosec G304 -- path is provided by the user
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := snapshot.Inspect(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintln(out, a.style(headingStyle, path))
	rows := [][2]string{
		{"schema", fmt.Sprintf("%d", info.Schema)},
		{"built-ins", info.Builtins},
		{"names", fmt.Sprintf("%d", info.Names)},
		{"types", fmt.Sprintf("%d", info.Types)},
	}
	kinds := make([]string, 0, len(info.Symbols))
	for k := range info.Symbols {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		rows = append(rows, [2]string{k, fmt.Sprintf("%d", info.Symbols[k])})
	}
	for _, p := range info.Files {
		rows = append(rows, [2]string{"file", p})
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %s  %s\n", a.style(labelStyle, padRight(r[0], width)), r[1])
	}
	return nil
}
