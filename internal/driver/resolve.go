// Package driver runs the load and resolve pipeline over hierarchy files.
package driver

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"sigil/internal/diag"
	"sigil/internal/hierarchy"
	"sigil/internal/observ"
	"sigil/internal/resolver"
	"sigil/internal/source"
	"sigil/internal/symbols"
	"sigil/internal/trace"
)

// Input is one hierarchy document. Content is read from Path when nil.
type Input struct {
	Path    string
	Content []byte
}

// Options configure one pipeline run.
type Options struct {
	MaxDiagnostics   int
	PreallocateNames int
	Payload          []string // loaded as payload files before the inputs
	Timings          bool     // append an ObsTimings diagnostic
	// Base is copied instead of starting from fresh built-ins. It must have
	// gone through Resolve already.
	Base *symbols.State
}

// OptionsFromConfig maps sigil.toml settings onto pipeline options.
func OptionsFromConfig(cfg Config) Options {
	return Options{
		MaxDiagnostics:   cfg.Diagnostics.Max,
		PreallocateNames: cfg.Resolve.PreallocateNames,
		Payload:          cfg.Resolve.StdlibPayload,
	}
}

// Result is the outcome of one run.
type Result struct {
	State       *symbols.State
	Bag         *diag.Bag
	Files       []hierarchy.Result
	Ancestors   resolver.AncestorStats
	TypeMembers *resolver.TypeMemberPass
	Timer       *observ.Timer
}

// HasErrors reports whether the run produced error diagnostics.
func (r *Result) HasErrors() bool { return r != nil && r.Bag.HasErrors() }

// Resolve loads inputs and runs ancestor and type member resolution. I/O
// and syntax problems of single inputs become IOLoadFileError diagnostics;
// the returned error is reserved for cancellation.
func Resolve(ctx context.Context, inputs []Input, opts Options) (*Result, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "driver.resolve", 0).
		WithExtra("inputs", strconv.Itoa(len(inputs)))
	defer span.End("")

	res := &Result{Bag: diag.NewBag(opts.MaxDiagnostics), Timer: observ.NewTimer()}
	rep := diag.NewDedupReporter(diag.MultiReporter{diag.BagReporter{Bag: res.Bag}, traceReporter{tracer, span.ID()}})

	if opts.Base != nil {
		res.State = opts.Base.DeepCopy(false)
	} else {
		res.State = symbols.New()
	}
	s := res.State
	s.SetTracer(tracer)

	if n := opts.PreallocateNames; n > 0 {
		restore := s.Unfreeze(symbols.TableNames)
		s.Names().Preallocate(n)
		restore()
	}

	var loadErr error
	res.Timer.Track("load", func() string {
		for _, p := range opts.Payload {
			if loadErr = ctx.Err(); loadErr != nil {
				return "canceled"
			}
			res.load(ctx, Input{Path: p}, source.FilePayload, rep)
		}
		for _, in := range inputs {
			if loadErr = ctx.Err(); loadErr != nil {
				return "canceled"
			}
			res.load(ctx, in, source.FileNormal, rep)
		}
		return fmt.Sprintf("%d files", len(res.Files))
	})
	if loadErr != nil {
		return nil, loadErr
	}

	restore := s.Unfreeze(symbols.AllTables)
	res.Timer.Track("finalize_ancestors", func() string {
		res.Ancestors = resolver.FinalizeAncestors(ctx, s, rep)
		return fmt.Sprintf("%d classes, %d modules", res.Ancestors.Classes, res.Ancestors.Modules)
	})
	res.Timer.Track("finalize_symbols", func() string {
		res.TypeMembers = resolver.FinalizeSymbols(ctx, s, rep)
		return ""
	})
	restore()

	if opts.Timings {
		res.Timer.Emit(rep)
	}
	res.Bag.Sort()
	span.WithExtra("diagnostics", strconv.Itoa(res.Bag.Len())).
		WithExtra("suppressed", strconv.Itoa(rep.Suppressed()))
	return res, nil
}

func (res *Result) load(ctx context.Context, in Input, typ source.FileType, rep diag.Reporter) {
	content := in.Content
	if content == nil {
		var err error
		// #nosec G304 -- paths come from the command line or sigil.toml
		if content, err = os.ReadFile(in.Path); err != nil {
			diag.ReportError(rep, diag.IOLoadFileError, source.NoSpan, fmt.Sprintf("failed to read %s: %v", in.Path, err)).Emit()
			return
		}
	}
	loaded, err := hierarchy.LoadBytes(ctx, res.State, in.Path, content, hierarchy.Options{FileType: typ}, rep)
	if err != nil {
		diag.ReportError(rep, diag.IOLoadFileError, source.NoSpan, err.Error()).Emit()
		return
	}
	res.Files = append(res.Files, loaded)
}

// traceReporter mirrors diagnostics into the trace as symbol-scope points.
type traceReporter struct {
	t      trace.Tracer
	parent uint64
}

func (r traceReporter) Report(code diag.Code, sev diag.Severity, _ source.Span, msg string, _ []diag.Note, _ []diag.Fix) {
	trace.Point(r.t, trace.ScopeSymbol, "diag."+sev.Label(), r.parent, code.ID()+": "+msg)
}
