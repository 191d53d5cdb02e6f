package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigil/internal/prof"
)

// setupProfiling starts the runtime profilers requested on the command line
// and chains their shutdown into a.cleanup.
func (a *app) setupProfiling(cmd *cobra.Command) error {
	pf := cmd.Root().PersistentFlags()
	var cfg prof.Config
	for flag, dst := range map[string]*string{
		"cpu-profile":   &cfg.CPU,
		"mem-profile":   &cfg.Heap,
		"runtime-trace": &cfg.Trace,
	} {
		v, err := pf.GetString(flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		*dst = v
	}
	if !cfg.Enabled() {
		return nil
	}

	session, err := prof.Start(cfg)
	if err != nil {
		return err
	}
	prev := a.cleanup
	a.cleanup = func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(a.stderr, "sigil: %v\n", err)
		}
		if prev != nil {
			prev()
		}
	}
	return nil
}
