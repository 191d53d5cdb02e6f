package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sigil/internal/version"
)

const (
	exitOK      = 0
	exitErrors  = 1 // diagnostics with errors
	exitFailure = 2 // bad flags, unreadable config, I/O
	exitCrash   = 3 // invariant violation
)

// errHasErrors makes a command exit with exitErrors without printing
// anything more.
var errHasErrors = errors.New("errors reported")

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and maps the outcome to an exit status. Invariant
// violations are recovered only here, to dump the crash trace.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	defer func() {
		if r := recover(); r != nil {
			a.crash(r)
			code = exitCrash
		}
		a.close()
	}()

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errHasErrors):
		return exitErrors
	default:
		fmt.Fprintf(stderr, "sigil: %v\n", err)
		return exitFailure
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sigil",
		Short:         "Symbol table and ancestor resolution for class hierarchies",
		Long:          `sigil loads class hierarchies from TOML or YAML, linearizes ancestors and resolves generic type members`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("config", "", "path to sigil.toml (default: searched upwards from the working directory)")
	pf.Bool("timings", false, "report phase timings")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to keep (0 = unlimited)")
	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "ring", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.Duration("trace-heartbeat", 0, "heartbeat interval for long runs (0 = off)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	root.AddCommand(
		newResolveCmd(a),
		newDiagCmd(a),
		newSnapshotCmd(a),
		newSpeculateCmd(a),
		newVersionCmd(a),
	)
	return root
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}
