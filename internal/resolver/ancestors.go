package resolver

import (
	"context"
	"strconv"

	"sigil/internal/diag"
	"sigil/internal/fatal"
	"sigil/internal/source"
	"sigil/internal/symbols"
	"sigil/internal/trace"
)

// AncestorStats counts what user files declared.
type AncestorStats struct {
	Classes int
	Modules int
	Methods int
}

// FinalizeAncestors defaults undecided class-or-modules to modules and
// assigns default superclasses. Singleton classes created on the way are
// finalized by the same loop.
func FinalizeAncestors(ctx context.Context, s *symbols.State, rep diag.Reporter) AncestorStats {
	span := trace.Begin(tracerFor(ctx, s), trace.ScopePass, "resolver.finalize_ancestors", 0)
	var stats AncestorStats

	for i := 1; i < s.MethodsUsed(); i++ {
		if inNormalFile(s, s.Data(symbols.MethodRef(uint32(i))).Loc()) { // #nosec G115 -- bounded by arena length
			stats.Methods++
		}
	}
	// the bound is re-read on purpose: singletons entered below are visited too
	for i := 1; i < s.ClassesUsed(); i++ {
		ref := symbols.ClassRef(uint32(i)) // #nosec G115 -- bounded by arena length
		data := s.Data(ref)
		if !data.IsClassModuleSet() {
			// never declared nor used as a class
			data.SetIsModule(true)
		}
		if inNormalFile(s, data.Loc()) {
			if data.IsClass() {
				stats.Classes++
			} else {
				stats.Modules++
			}
		}
		finalizeSuperClass(s, ref)
	}

	span.WithExtra("classes", strconv.Itoa(stats.Classes)).
		WithExtra("modules", strconv.Itoa(stats.Modules)).
		WithExtra("methods", strconv.Itoa(stats.Methods)).
		End("")
	return stats
}

// finalizeSuperClass sets the default superclass of ref unless one is
// already decided.
func finalizeSuperClass(s *symbols.State, ref symbols.Ref) {
	data := s.Data(ref)
	if data.SuperClass.Exists() && data.SuperClass != symbols.Todo {
		return
	}
	if ref == symbols.ImplicitModuleSuperClass {
		data.SuperClass = symbols.BasicObject
		return
	}

	attached := s.AttachedClass(ref)
	if attached.Exists() && attached != symbols.Untyped {
		// attached classes always have lower indices than their singletons,
		// so their superclass is already final here
		ad := s.Data(attached)
		switch {
		case attached == symbols.BasicObject:
			data.SuperClass = symbols.Class
		case ad.SuperClass == symbols.ImplicitModuleSuperClass:
			data.SuperClass = symbols.Module
		default:
			fatal.Check(ad.SuperClass != symbols.Todo, "superclass of %s is still pending", s.ShowFull(attached))
			parent := ad.SuperClass
			singleton := s.SingletonClass(parent)
			s.Data(ref).SuperClass = singleton
		}
		return
	}

	if data.IsClass() {
		if ref != symbols.Object && !s.DerivesFrom(symbols.Object, ref) {
			data.SuperClass = symbols.Object
		}
		return
	}
	if ref != symbols.BasicObject && !s.DerivesFrom(symbols.BasicObject, ref) {
		data.SuperClass = symbols.ImplicitModuleSuperClass
	}
}

func inNormalFile(s *symbols.State, loc source.Span) bool {
	f := s.Files().Lookup(loc.File)
	return f != nil && f.Type == source.FileNormal
}

// tracerFor prefers the tracer carried by ctx and falls back to the state's.
func tracerFor(ctx context.Context, s *symbols.State) trace.Tracer {
	if t := trace.FromContext(ctx); t.Enabled() {
		return t
	}
	return s.Tracer()
}
