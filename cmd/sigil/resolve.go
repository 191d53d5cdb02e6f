package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sigil/internal/diagfmt"
	"sigil/internal/driver"
	"sigil/internal/snapshot"
	"sigil/internal/symbols"
)

type resolveOutput struct {
	Classes     []driver.ClassSummary `json:"classes"`
	Diagnostics int                   `json:"diagnostics"`
	Cached      bool                  `json:"cached,omitempty"`
}

func newResolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <file>...",
		Short: "Print the linearized ancestors and type members of every class",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runResolve(cmd, args)
		},
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().Bool("cache", false, "reuse resolved states from the snapshot cache")
	return cmd
}

func (a *app) runResolve(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}

	var (
		state  *symbols.State
		cached bool
		res    *driver.Result
	)
	var cache *snapshot.Cache
	var key snapshot.Key
	if useCache {
		if cache, err = snapshot.OpenCache("sigil"); err != nil {
			return err
		}
		if key, err = cacheKey(args, a.cfg.Resolve.StdlibPayload); err != nil {
			return err
		}
		if state, cached, err = cache.Get(key); err != nil {
			return err
		}
	}

	if !cached {
		if res, err = driver.Resolve(a.context(cmd), inputsOf(args), a.options()); err != nil {
			return err
		}
		state = res.State
		if cache != nil && !res.HasErrors() {
			if err := cache.Put(key, state); err != nil {
				fmt.Fprintf(a.stderr, "sigil: cache: %v\n", err)
			}
		}
	}

	sums := driver.Summarize(state)
	out := cmd.OutOrStdout()
	if format == "json" {
		payload := resolveOutput{Classes: sums, Cached: cached}
		if res != nil {
			payload.Diagnostics = res.Bag.Len()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	} else {
		a.renderSummaries(out, sums)
	}

	if res == nil || res.Bag.Len() == 0 {
		return nil
	}
	fmt.Fprintln(a.stderr)
	diagfmt.Pretty(a.stderr, res.Bag, state.Files(), diagfmt.PrettyOpts{Color: a.color, PathMode: diagfmt.PathModeAuto, BaseDir: a.baseDir()})
	if res.HasErrors() {
		return errHasErrors
	}
	return nil
}

// cacheKey hashes every input and payload path with its content.
func cacheKey(paths, payload []string) (snapshot.Key, error) {
	var parts [][]byte
	for _, p := range append(append([]string(nil), payload...), paths...) {
		// #nosec G304 -- paths come from the command line or sigil.toml
		content, err := os.ReadFile(p)
		if err != nil {
			return snapshot.Key{}, fmt.Errorf("failed to read %s: %w", p, err)
		}
		parts = append(parts, []byte(p), content)
	}
	return snapshot.KeyFor(parts...), nil
}
