// Package diag defines the diagnostic model shared by the engine phases.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for user-facing findings of
//     the hierarchy loader and the resolver.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag performs no formatting beyond the single-line golden form and
// no IO. Rendering lives in internal/diagfmt; orchestration in internal/driver.
//
// User diagnostics are never fatal. Every phase that reports one also
// synthesizes a substitute (a placeholder type member, a stub class) so that
// the pass can continue. Broken engine contracts are not diagnostics; they
// go through internal/fatal.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning, Error (severity.go).
//   - Code: compact numeric identifier (codes.go) with a stable string ID such
//     as SEM3204.
//   - Message: short, actionable text.
//   - Primary: the source.Span the finding is attached to.
//   - Notes: secondary spans, for example the parent declaration.
//   - Fixes: optional edits.
//
// # Emitting diagnostics
//
// Phases take a Reporter and build diagnostics with ReportError /
// ReportWarning / ReportInfo, chaining WithNote before Emit. BagReporter
// aggregates into a Bag; DedupReporter drops repeats; MultiReporter fans out.
package diag
