package resolver

import (
	"context"

	"sigil/internal/diag"
	"sigil/internal/names"
	"sigil/internal/symbols"
	"sigil/internal/trace"
)

// FinalizeSymbols mixes the class-methods module of every ancestor into the
// including class's singleton, linearizes every class and resolves type
// members. FinalizeAncestors must have run.
func FinalizeSymbols(ctx context.Context, s *symbols.State, rep diag.Reporter) *TypeMemberPass {
	span := trace.Begin(tracerFor(ctx, s), trace.ScopePass, "resolver.finalize_symbols", 0)
	defer span.End("")

	before := s.ClassesUsed()
	for i := 1; i < s.ClassesUsed(); i++ {
		sym := symbols.ClassRef(uint32(i)) // #nosec G115 -- bounded by arena length
		singleton := symbols.NoSymbol
		for _, ancestor := range s.Data(sym).Mixins {
			classMethods := s.FindMember(ancestor, names.ClassMethods)
			if !classMethods.Exists() {
				continue
			}
			if !singleton.Exists() {
				singleton = s.SingletonClass(sym)
			}
			s.AddMixin(singleton, classMethods)
		}
	}
	// singletons entered above missed FinalizeAncestors
	for i := before; i < s.ClassesUsed(); i++ {
		finalizeSuperClass(s, symbols.ClassRef(uint32(i))) // #nosec G115 -- bounded by arena length
	}

	ComputeLinearization(ctx, s, rep)
	return ResolveTypeMembers(ctx, s, rep)
}
