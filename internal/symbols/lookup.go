package symbols

import (
	"slices"

	"sigil/internal/fatal"
	"sigil/internal/names"
	"sigil/internal/types"
)

// FindMember returns the member of owner named name, or NoSymbol.
func (s *State) FindMember(owner Ref, name names.NameRef) Ref {
	if !s.Valid(owner) && owner != NoSymbol {
		return NoSymbol
	}
	return s.Data(owner).Members[name]
}

// FindMemberTransitive searches owner, then its mixins in linearized order,
// then its superclass chain.
func (s *State) FindMemberTransitive(owner Ref, name names.NameRef) Ref {
	for cur := owner; cur.Exists(); cur = s.Data(cur).SuperClass {
		if found := s.FindMember(cur, name); found.Exists() {
			return found
		}
		for _, mixin := range s.Data(cur).Mixins {
			if found := s.FindMember(mixin, name); found.Exists() {
				return found
			}
		}
		if cur == s.Data(cur).SuperClass {
			break
		}
	}
	return NoSymbol
}

// LookupSymbolWithFlags finds a member named name whose flags include
// flags, looking through mangle-renamed copies name$1, name$2, ...
func (s *State) LookupSymbolWithFlags(owner Ref, name names.NameRef, flags Flags) Ref {
	fatal.Check(owner.Exists(), "looking up symbol from non-existing owner")
	fatal.Check(name.Exists(), "looking up symbol with non-existing name")
	members := s.Data(owner).Members
	lookupName := name
	for unique := uint32(1); ; unique++ {
		res, ok := members[lookupName]
		if !ok {
			return NoSymbol
		}
		if s.Data(res).Flags&flags == flags {
			return res
		}
		lookupName = s.names.LookupUnique(names.MangleRename, name, unique)
		if !lookupName.Exists() {
			return NoSymbol
		}
	}
}

// FindRenamedSymbol returns the symbol that sym displaced when it was
// entered: for x$n (n > 1) that is x$(n-1); for a bare x it is the largest
// existing x$n. Returns NoSymbol when there is none.
func (s *State) FindRenamedSymbol(owner, sym Ref) Ref {
	fatal.Check(sym.Exists(), "looking up previous name of non-existing symbol")
	name := s.Data(sym).Name
	nd := s.names.Data(name)
	members := s.Data(owner).Members

	if nd.Kind == names.KindUnique {
		if nd.Unique != names.MangleRename || nd.Num == 1 {
			return NoSymbol
		}
		prev := s.names.LookupUnique(names.MangleRename, nd.Original, nd.Num-1)
		if !prev.Exists() {
			return NoSymbol
		}
		res := members[prev]
		fatal.Check(res.Exists(), "renamed name %s has no symbol", s.names.Show(prev))
		return res
	}

	unique := uint32(1)
	lookupName := s.names.LookupUnique(names.MangleRename, name, unique)
	res, ok := members[lookupName]
	for ok {
		unique++
		lookupName = s.names.LookupUnique(names.MangleRename, name, unique)
		if !lookupName.Exists() {
			return res
		}
		res, ok = members[lookupName]
	}
	return NoSymbol
}

// DerivesFrom reports whether sym has other among its ancestors. Before
// linearization the declared mixins are searched recursively; a cycle in
// them is a violation.
func (s *State) DerivesFrom(sym, other Ref) bool {
	return s.derivesFrom(sym, other, map[Ref]bool{})
}

// onPath maps every symbol entered so far to whether it is still on the
// current search path.
func (s *State) derivesFrom(sym, other Ref, onPath map[Ref]bool) bool {
	onPath[sym] = true
	data := s.Data(sym)
	if data.IsLinearized() {
		if slices.Contains(data.Mixins, other) {
			return true
		}
	} else {
		for _, mixin := range data.Mixins {
			if mixin == other || s.derivesVia(mixin, other, onPath, "mixins") {
				return true
			}
		}
	}
	if data.SuperClass.Exists() && data.SuperClass != sym {
		if data.SuperClass == other || s.derivesVia(data.SuperClass, other, onPath, "superclasses") {
			return true
		}
	}
	onPath[sym] = false
	return false
}

func (s *State) derivesVia(next, other Ref, onPath map[Ref]bool, edge string) bool {
	if open, seen := onPath[next]; seen {
		if open {
			fatal.Raise("loop in %s: %s", edge, s.ShowFull(next))
		}
		return false
	}
	return s.derivesFrom(next, other, onPath)
}

// IsModule reports whether ref is a module.
func (s *State) IsModule(ref Ref) bool { return s.Data(ref).IsModule() }

// IsClass reports whether ref is a class.
func (s *State) IsClass(ref Ref) bool { return s.Data(ref).IsClass() }

// ExternalType is the type of ref seen from outside: the class type, or the
// class applied to T.untyped for every type member.
func (s *State) ExternalType(ref Ref) types.TypeID {
	data := s.Data(ref)
	fatal.Check(data.IsClassOrModule(), "external type of not-a-class %v", ref)
	if len(data.TypeMembers) == 0 {
		return s.types.Intern(types.MakeClass(ref.Raw()))
	}
	untyped := s.types.Builtins().Untyped
	args := make([]types.TypeID, len(data.TypeMembers))
	for i := range args {
		args[i] = untyped
	}
	return s.types.Applied(ref.Raw(), args)
}

// LookupClassPath resolves a "::"-free path of constant names starting at
// owner. Returns NoSymbol when any segment is missing or not a class.
func (s *State) LookupClassPath(owner Ref, path []string) Ref {
	cur := owner
	for _, seg := range path {
		name := s.names.LookupConstantText(seg)
		if !name.Exists() {
			return NoSymbol
		}
		next := s.FindMember(cur, name)
		if !next.Exists() || !next.IsClassOrModule() {
			return NoSymbol
		}
		cur = next
	}
	return cur
}

// ClassRefs returns every class and module except the sentinel, in index
// order.
func (s *State) ClassRefs() []Ref {
	out := make([]Ref, 0, s.ClassesUsed()-1)
	for i := 1; i < s.ClassesUsed(); i++ {
		out = append(out, ClassRef(uint32(i))) // #nosec G115 -- bounded by arena length
	}
	return out
}
