package resolver

import (
	"context"
	"fmt"
	"slices"

	"sigil/internal/diag"
	"sigil/internal/fatal"
	"sigil/internal/names"
	"sigil/internal/symbols"
	"sigil/internal/trace"
	"sigil/internal/types"
)

// ResolveState is the progress of one class in a type member pass.
type ResolveState uint8

const (
	Unvisited ResolveState = iota
	ResolvingSuperClass
	ResolvingMixins
	Done
)

func (st ResolveState) String() string {
	switch st {
	case Unvisited:
		return "unvisited"
	case ResolvingSuperClass:
		return "resolving-superclass"
	case ResolvingMixins:
		return "resolving-mixins"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("ResolveState(%d)", uint8(st))
	}
}

// TypeMemberPass holds the per-class state of one type member resolution.
type TypeMemberPass struct {
	s      *symbols.State
	rep    diag.Reporter
	states []ResolveState
}

// ResolveTypeMembers aligns the type members of every class with those of
// its superclass and mixins. Linearization must be complete.
func ResolveTypeMembers(ctx context.Context, s *symbols.State, rep diag.Reporter) *TypeMemberPass {
	span := trace.Begin(tracerFor(ctx, s), trace.ScopePass, "resolver.resolve_type_members", 0)
	defer span.End("")

	if rep == nil {
		rep = diag.NopReporter{}
	}
	p := &TypeMemberPass{s: s, rep: rep, states: make([]ResolveState, s.ClassesUsed())}
	for i := 1; i < s.ClassesUsed(); i++ {
		p.resolveClass(symbols.ClassRef(uint32(i))) // #nosec G115 -- bounded by arena length
	}
	return p
}

// Resolved reports the state ref reached in this pass.
func (p *TypeMemberPass) Resolved(ref symbols.Ref) ResolveState {
	if !ref.IsClassOrModule() || int(ref.Index()) >= len(p.states) {
		return Unvisited
	}
	return p.states[ref.Index()]
}

func (p *TypeMemberPass) setState(ref symbols.Ref, st ResolveState) {
	for int(ref.Index()) >= len(p.states) {
		p.states = append(p.states, Unvisited)
	}
	p.states[ref.Index()] = st
}

func (p *TypeMemberPass) resolveClass(sym symbols.Ref) {
	s := p.s
	fatal.Check(s.Data(sym).IsClassOrModule(), "resolving type members of not-a-class %v", sym)
	if p.Resolved(sym) != Unvisited {
		return
	}
	p.setState(sym, ResolvingSuperClass)
	s.Data(sym).Aliases = nil

	if parent := s.Data(sym).SuperClass; parent.Exists() {
		p.resolveClass(parent)

		parentMembers := slices.Clone(s.Data(parent).TypeMembers)
		foundAll := true
		for _, tp := range parentMembers {
			if !p.resolveMember(parent, tp, sym) {
				foundAll = false
			}
		}
		if foundAll {
			p.checkOrder(sym, parentMembers)
		}
	}

	p.setState(sym, ResolvingMixins)
	for _, mixin := range slices.Clone(s.Data(sym).Mixins) {
		p.resolveClass(mixin)
		for _, tp := range slices.Clone(s.Data(mixin).TypeMembers) {
			p.resolveMember(mixin, tp, sym)
		}
	}
	defer p.setState(sym, Done)

	if s.Data(sym).IsClass() {
		for _, tp := range s.Data(sym).TypeMembers {
			td := s.Data(tp)
			// <AttachedClass> is covariant but not user controlled
			if td.Name == names.AttachedClass || td.Variance() == symbols.Invariant {
				continue
			}
			if loc := td.Loc(); !s.IsPayloadLoc(loc) {
				diag.ReportError(p.rep, diag.SemaVariantTypeMemberInClass, loc,
					"Classes can only have invariant type members").Emit()
				return
			}
		}
	}

	if len(s.Data(sym).TypeMembers) == 0 {
		p.fixAttachedClass(sym)
	}
}

// resolveMember finds the member of sym re-declaring parentMember and
// records the alias. Returns false when a substitute had to be synthesized
// or the variances disagree.
func (p *TypeMemberPass) resolveMember(parent, parentMember, sym symbols.Ref) bool {
	s := p.s
	name := s.Data(parentMember).Name
	my := s.FindMember(sym, name)

	if !my.Exists() {
		code := diag.SemaParentTypeNotDeclared
		if parent == symbols.Enumerable || s.DerivesFrom(parent, symbols.Enumerable) {
			code = diag.SemaEnumerableParentTypeNotDeclared
		}
		shown := s.Names().Show(name)
		diag.ReportError(p.rep, code, s.Data(sym).Loc(),
			fmt.Sprintf("Type %s declared by parent %s must be re-declared in %s", shown, s.ShowFull(parent), s.ShowFull(sym))).
			WithNote(s.Data(parentMember).Loc(), shown+" declared in parent here").
			Emit()
		p.enterPlaceholder(sym, name)
		return false
	}

	md := s.Data(my)
	if !md.IsTypeMember() && !md.IsTypeArgument() {
		diag.ReportError(p.rep, diag.SemaNotATypeVariable, md.Loc(),
			fmt.Sprintf("Type variable %s needs to be declared as a type member", s.Names().Show(name))).Emit()
		p.enterPlaceholder(sym, s.FreshNameUnique(names.TypeVarName, name, 1))
		return false
	}

	mine, theirs := md.Variance(), s.Data(parentMember).Variance()
	if !s.DerivesFrom(sym, symbols.Class) && mine != theirs &&
		mine != symbols.Invariant && theirs != symbols.Invariant {
		diag.ReportError(p.rep, diag.SemaParentVarianceMismatch, md.Loc(),
			fmt.Sprintf("Type variance mismatch with parent %s", s.ShowFull(parent))).
			WithNote(s.Data(parentMember).Loc(), fmt.Sprintf("%s is %s in the parent", s.Names().Show(name), theirs)).
			Emit()
		return false
	}

	sd := s.Data(sym)
	sd.Aliases = append(sd.Aliases, symbols.Alias{Parent: parentMember, Own: my})
	return true
}

// enterPlaceholder enters a fixed invariant type member with untyped bounds.
func (p *TypeMemberPass) enterPlaceholder(sym symbols.Ref, name names.NameRef) symbols.Ref {
	s := p.s
	tp := s.EnterTypeMember(s.Data(sym).Loc(), sym, name, symbols.Invariant)
	td := s.Data(tp)
	td.SetFixed()
	untyped := s.Types().Builtins().Untyped
	td.ResultType = s.Types().Intern(types.MakeLambdaParam(tp.Raw(), untyped, untyped))
	return tp
}

// checkOrder makes the type members of sym follow the order of the parent's,
// swapping where they do not.
func (p *TypeMemberPass) checkOrder(sym symbols.Ref, parentMembers []symbols.Ref) {
	s := p.s
	for i, tp := range parentMembers {
		my := p.dealiasAt(tp, sym)
		fatal.Check(my.Exists(), "no alias registered for %s in %s", s.ShowFull(tp), s.ShowFull(sym))
		own := s.Data(sym).TypeMembers
		fatal.Check(i < len(own), "%s has fewer type members than its parent", s.ShowFull(sym))
		if own[i] == my {
			continue
		}
		diag.ReportError(p.rep, diag.SemaTypeMembersInWrongOrder, s.Data(my).Loc(), "Type members in wrong order").
			WithNote(s.Data(tp).Loc(), "parent order is declared here").
			Emit()
		found := slices.Index(own, my)
		fatal.Check(found >= 0, "%s is not a type member of %s", s.ShowFull(my), s.ShowFull(sym))
		own[found], own[i] = own[i], own[found]
	}
}

// dealiasAt follows recorded aliases from tparam down to the member of klass
// that re-declares it. Returns NoSymbol when there is none.
func (p *TypeMemberPass) dealiasAt(tparam, klass symbols.Ref) symbols.Ref {
	s := p.s
	fatal.Check(s.Data(tparam).IsTypeMember(), "dealiasing not-a-type-member %v", tparam)
	owner := s.Data(tparam).Owner
	if owner == klass {
		return tparam
	}

	var cursor symbols.Ref
	switch {
	case s.DerivesFrom(owner, klass):
		cursor = owner
	case s.DerivesFrom(klass, owner):
		cursor = klass
	}
	for cursor.Exists() {
		for _, alias := range s.Data(cursor).Aliases {
			if alias.Parent == tparam {
				return p.dealiasAt(alias.Own, klass)
			}
		}
		cursor = s.Data(cursor).SuperClass
	}
	return symbols.NoSymbol
}

// fixAttachedClass bounds the <AttachedClass> of the singleton of a
// non-generic class by the class's own type.
func (p *TypeMemberPass) fixAttachedClass(sym symbols.Ref) {
	s := p.s
	singleton := s.LookupSingletonClass(sym)
	if !singleton.Exists() {
		return
	}
	attached := s.FindMember(singleton, names.AttachedClass)
	if !attached.Exists() {
		return
	}
	current := s.Types().MustLookup(s.Data(attached).ResultType)
	fatal.Check(current.Kind == types.KindLambdaParam, "<AttachedClass> of %s is not a lambda param", s.ShowFull(singleton))
	bottom := s.Types().Builtins().Bottom
	s.Data(attached).ResultType = s.Types().Intern(types.MakeLambdaParam(attached.Raw(), bottom, s.ExternalType(sym)))
}
