// Package trace provides structured tracing for sigil.
//
// The engine has no general-purpose logger. Phases report what they do as
// trace events: spans around driver commands and engine passes, and point
// events for per-class work. Tracing is off unless requested:
//
//	sigil resolve --trace=- --trace-level=phase hierarchy.toml
//
// # Architecture
//
//   - Nop: zero-overhead tracer used when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer dumped when the engine hits an invariant
//     violation
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only crash dumps
//   - LevelPhase: driver and pass boundaries
//   - LevelDetail: per-symbol events
//   - LevelDebug: everything
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "resolver.compute_linearization", parentID)
//	defer span.End("")
package trace
