package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sigil/internal/driver"
	"sigil/internal/trace"
)

// app carries what the root command prepares for every subcommand.
type app struct {
	stdout, stderr io.Writer

	cfg     driver.Config
	cfgPath string
	color   bool
	timings bool

	tracer  trace.Tracer
	ring    *trace.RingTracer
	cleanup func()
}

func (a *app) setup(cmd *cobra.Command) error {
	pf := cmd.Root().PersistentFlags()

	cfgFlag, err := pf.GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	if cfgFlag != "" {
		if a.cfg, err = driver.LoadConfig(cfgFlag); err != nil {
			return err
		}
		a.cfgPath = cfgFlag
	} else if a.cfg, a.cfgPath, err = driver.DiscoverConfig("."); err != nil {
		return err
	}

	if pf.Changed("max-diagnostics") {
		if a.cfg.Diagnostics.Max, err = pf.GetInt("max-diagnostics"); err != nil {
			return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	for flag, dst := range map[string]*string{
		"trace":       &a.cfg.Trace.Output,
		"trace-level": &a.cfg.Trace.Level,
		"trace-mode":  &a.cfg.Trace.Mode,
	} {
		if !pf.Changed(flag) {
			continue
		}
		if *dst, err = pf.GetString(flag); err != nil {
			return fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if a.timings, err = pf.GetBool("timings"); err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	colorFlag, err := pf.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(colorFlag) {
	case "on":
		a.color = true
	case "off":
		a.color = false
	case "auto":
		a.color = isTerminal(a.stdout)
	default:
		return fmt.Errorf("unsupported color mode %q (must be auto, on or off)", colorFlag)
	}
	color.NoColor = !a.color

	if err := a.setupTracing(cmd); err != nil {
		return err
	}
	return a.setupProfiling(cmd)
}

// options returns the pipeline options of the current configuration.
func (a *app) options() driver.Options {
	opts := driver.OptionsFromConfig(a.cfg)
	opts.Timings = a.timings
	return opts
}

// baseDir is where relative paths in diagnostics start.
func (a *app) baseDir() string {
	if a.cfgPath != "" {
		return filepath.Dir(a.cfgPath)
	}
	return "."
}

func inputsOf(paths []string) []driver.Input {
	out := make([]driver.Input, len(paths))
	for i, p := range paths {
		out[i] = driver.Input{Path: p}
	}
	return out
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// crash reports a recovered panic with the last trace events.
func (a *app) crash(r any) {
	fmt.Fprintf(a.stderr, "sigil: internal error: %v\n", r)
	if a.ring == nil {
		return
	}
	fmt.Fprintln(a.stderr, "last trace events:")
	if err := a.ring.Dump(a.stderr, trace.FormatText); err != nil {
		fmt.Fprintf(a.stderr, "trace: dump error: %v\n", err)
	}
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
