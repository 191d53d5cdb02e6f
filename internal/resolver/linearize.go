package resolver

import (
	"context"
	"slices"
	"strconv"

	"sigil/internal/diag"
	"sigil/internal/fatal"
	"sigil/internal/symbols"
	"sigil/internal/trace"
)

// Linearization is the final ancestor information of one class: its own
// ordered mixins and its superclass. The full ancestor chain is obtained by
// walking SuperClass and concatenating Mixins.
type Linearization struct {
	Class      symbols.Ref
	SuperClass symbols.Ref
	Mixins     []symbols.Ref
}

type linearizer struct {
	s        *symbols.State
	rep      diag.Reporter
	visiting map[symbols.Ref]struct{}
}

func newLinearizer(s *symbols.State, rep diag.Reporter) *linearizer {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &linearizer{s: s, rep: rep, visiting: make(map[symbols.Ref]struct{})}
}

// ComputeLinearization linearizes every class and module in index order.
func ComputeLinearization(ctx context.Context, s *symbols.State, rep diag.Reporter) {
	span := trace.Begin(tracerFor(ctx, s), trace.ScopePass, "resolver.compute_linearization", 0)
	l := newLinearizer(s, rep)
	for i := 1; i < s.ClassesUsed(); i++ {
		l.linearize(symbols.ClassRef(uint32(i))) // #nosec G115 -- bounded by arena length
	}
	span.WithExtra("classes", strconv.Itoa(s.ClassesUsed()-1)).End("")
}

// Linearize computes the linearization of sym (and of every ancestor it
// needs) unless already computed, and returns it. Repeated calls are no-ops.
func Linearize(s *symbols.State, rep diag.Reporter, sym symbols.Ref) Linearization {
	return newLinearizer(s, rep).linearize(sym)
}

// FullLinearization returns sym followed by every ancestor in method
// resolution order: mixins, then the superclass chain. Classes used as
// mixins are expanded in place.
func FullLinearization(s *symbols.State, rep diag.Reporter, sym symbols.Ref) []symbols.Ref {
	l := newLinearizer(s, rep)
	var acc []symbols.Ref
	l.full(l.linearize(sym), &acc)
	return acc
}

func (l *linearizer) linearize(sym symbols.Ref) Linearization {
	s := l.s
	fatal.Check(sym.Exists() && sym.IsClassOrModule(), "linearizing not-a-class %v", sym)
	data := s.Data(sym)
	fatal.Check(data.IsClassOrModule(), "linearizing not-a-class %s", s.ShowFull(sym))

	if !data.IsLinearized() {
		if _, busy := l.visiting[sym]; busy {
			fatal.Raise("loop in mixins: %s", s.ShowFull(sym))
		}
		l.visiting[sym] = struct{}{}
		defer delete(l.visiting, sym)

		super := data.SuperClass
		if super.Exists() {
			l.linearize(super)
		}

		declared := slices.Clone(s.Data(sym).Mixins)
		var mixins []symbols.Ref
		for _, mixin := range declared {
			if mixin == super {
				continue
			}
			md := s.Data(mixin)
			if md.SuperClass == symbols.StubSuperClass || md.SuperClass == symbols.StubModule {
				mixins = append(mixins, mixin)
				continue
			}
			fatal.Check(md.IsClassOrModule(), "mixin %v of %s is not a class", mixin, s.ShowFull(sym))
			lin := l.linearize(mixin)

			if !s.Data(mixin).IsModule() {
				if mixin != symbols.BasicObject {
					diag.ReportError(l.rep, diag.SemaIncludesNonModule, s.Data(sym).Loc(),
						"Only modules can be mixed in. "+s.ShowFull(sym)+" includes "+s.ShowFull(mixin)).
						WithNote(s.Data(mixin).Loc(), s.ShowFull(mixin)+" is a class").
						Emit()
				}
				// bring back every method of the class chain
				var all []symbols.Ref
				l.full(lin, &all)
				seen := make(map[symbols.Ref]bool, len(all)+len(mixins))
				for _, m := range mixins {
					seen[m] = true
				}
				all = slices.DeleteFunc(all, func(r symbols.Ref) bool {
					if seen[r] {
						return true
					}
					seen[r] = true
					return false
				})
				mixins = slices.Insert(mixins, 0, all...)
				continue
			}

			pos := 0
			pos = l.maybeAddMixin(sym, &mixins, mixin, super, pos)
			for _, inherited := range lin.Mixins {
				pos = l.maybeAddMixin(sym, &mixins, inherited, super, pos)
			}
		}

		data = s.Data(sym)
		data.Mixins = mixins
		data.SetLinearized()
	}

	data = s.Data(sym)
	return Linearization{Class: sym, SuperClass: data.SuperClass, Mixins: data.Mixins}
}

// maybeAddMixin inserts mixin at pos unless parent already has it. An entry
// already present is never moved backwards. Returns the next insert position.
func (l *linearizer) maybeAddMixin(forSym symbols.Ref, list *[]symbols.Ref, mixin, parent symbols.Ref, pos int) int {
	if forSym == mixin {
		fatal.Raise("loop in mixins: %s includes itself", l.s.ShowFull(forSym))
	}
	if parent.Exists() && l.s.DerivesFrom(parent, mixin) {
		return pos
	}
	if idx := slices.Index(*list, mixin); idx >= 0 {
		if idx >= pos {
			return idx + 1
		}
		return pos
	}
	*list = slices.Insert(*list, pos, mixin)
	return pos + 1
}

func (l *linearizer) full(info Linearization, acc *[]symbols.Ref) {
	fatal.Check(!slices.Contains(*acc, info.Class), "%s visited twice in full linearization", l.s.ShowFull(info.Class))
	*acc = append(*acc, info.Class)

	for _, m := range info.Mixins {
		if slices.Contains(*acc, m) {
			continue
		}
		if l.s.Data(m).IsModule() {
			*acc = append(*acc, m)
		} else {
			l.full(l.linearize(m), acc)
		}
	}
	if info.SuperClass.Exists() && !slices.Contains(*acc, info.SuperClass) {
		l.full(l.linearize(info.SuperClass), acc)
	}
}
