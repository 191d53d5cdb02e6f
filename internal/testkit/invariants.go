package testkit

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"sigil/internal/names"
	"sigil/internal/symbols"
)

var allKinds = []symbols.Kind{
	symbols.KindClassOrModule,
	symbols.KindMethod,
	symbols.KindField,
	symbols.KindTypeArgument,
	symbols.KindTypeMember,
}

// kindFlag is the flag every symbol of an arena must carry.
var kindFlag = map[symbols.Kind]symbols.Flags{
	symbols.KindClassOrModule: symbols.FlagClassOrModule,
	symbols.KindMethod:        symbols.FlagMethod,
	symbols.KindField:         symbols.FlagField | symbols.FlagStaticField,
	symbols.KindTypeArgument:  symbols.FlagTypeArgument,
	symbols.KindTypeMember:    symbols.FlagTypeMember,
}

// member names that link to symbols owned elsewhere
var linkNames = []names.NameRef{names.Attached, names.SingletonLink, names.ClassMethods}

// CheckStateInvariants runs the structural invariants of a symbol state:
// 1) every symbol sits in the arena matching its kind flag and has a valid owner
// 2) superclass chains terminate
// 3) type members of a class are owned by it and listed once
// 4) linearized mixin lists hold no duplicates and never the class itself
// 5) aliases map type members to members of the aliasing class
// It returns the first violation found.
func CheckStateInvariants(s *symbols.State) error {
	if s == nil {
		return fmt.Errorf("nil state")
	}
	for _, kind := range allKinds {
		for i := 1; i < s.Used(kind); i++ {
			idx, err := safecast.Conv[uint32](i)
			if err != nil {
				return fmt.Errorf("arena index overflow: %w", err)
			}
			ref := symbols.MakeRef(kind, idx)
			if err := checkSymbol(s, ref); err != nil {
				return err
			}
		}
	}
	for i := 1; i < s.ClassesUsed(); i++ {
		idx, err := safecast.Conv[uint32](i)
		if err != nil {
			return fmt.Errorf("arena index overflow: %w", err)
		}
		if err := checkClass(s, symbols.ClassRef(idx)); err != nil {
			return err
		}
	}
	return nil
}

func checkSymbol(s *symbols.State, ref symbols.Ref) error {
	data := s.Data(ref)
	if data.Flags&kindFlag[ref.Kind()] == 0 {
		return fmt.Errorf("%v lives in the %s arena but has flags %v", ref, ref.Kind(), data.Flags.Strings())
	}
	if !data.Name.Exists() {
		return fmt.Errorf("%v has no name", ref)
	}
	if data.Owner.Exists() && !s.Valid(data.Owner) {
		return fmt.Errorf("%s has dangling owner %v", s.ShowFull(ref), data.Owner)
	}
	if !data.Owner.Exists() && ref.Kind() != symbols.KindClassOrModule {
		return fmt.Errorf("%v (%s) has no owner", ref, s.Names().Show(data.Name))
	}
	return nil
}

func checkClass(s *symbols.State, ref symbols.Ref) error {
	data := s.Data(ref)

	steps := 0
	for cur := data.SuperClass; cur.Exists(); cur = s.Data(cur).SuperClass {
		if !s.Valid(cur) {
			return fmt.Errorf("superclass chain of %s reaches invalid %v", s.ShowFull(ref), cur)
		}
		if steps++; steps > s.ClassesUsed() {
			return fmt.Errorf("superclass chain of %s does not terminate", s.ShowFull(ref))
		}
	}

	for i, tm := range data.TypeMembers {
		if !tm.IsTypeMember() || !s.Valid(tm) {
			return fmt.Errorf("%s lists %v as a type member", s.ShowFull(ref), tm)
		}
		if owner := s.Data(tm).Owner; owner != ref {
			return fmt.Errorf("type member %s of %s is owned by %s", s.ShowFull(tm), s.ShowFull(ref), s.ShowFull(owner))
		}
		if slices.Index(data.TypeMembers, tm) != i {
			return fmt.Errorf("%s lists type member %s twice", s.ShowFull(ref), s.ShowFull(tm))
		}
	}

	if data.IsLinearized() {
		for i, m := range data.Mixins {
			if m == ref {
				return fmt.Errorf("%s mixes in itself", s.ShowFull(ref))
			}
			if slices.Index(data.Mixins, m) != i {
				return fmt.Errorf("%s lists mixin %s twice", s.ShowFull(ref), s.ShowFull(m))
			}
		}
	}

	for _, a := range data.Aliases {
		if !a.Parent.IsTypeMember() {
			return fmt.Errorf("%s aliases non type member %v", s.ShowFull(ref), a.Parent)
		}
		if !a.Own.IsTypeMember() && !a.Own.IsTypeArgument() {
			return fmt.Errorf("%s aliases %s to %v", s.ShowFull(ref), s.ShowFull(a.Parent), a.Own)
		}
		if s.Data(a.Own).Owner != ref {
			return fmt.Errorf("%s aliases %s to foreign %s", s.ShowFull(ref), s.ShowFull(a.Parent), s.ShowFull(a.Own))
		}
	}

	for name, member := range data.Members {
		if slices.Contains(linkNames, name) {
			continue
		}
		if !s.Valid(member) {
			return fmt.Errorf("%s member %s is dangling", s.ShowFull(ref), s.Names().Show(name))
		}
		if owner := s.Data(member).Owner; owner != ref {
			return fmt.Errorf("%s member %s is owned by %s", s.ShowFull(ref), s.Names().Show(name), s.ShowFull(owner))
		}
	}
	return nil
}
