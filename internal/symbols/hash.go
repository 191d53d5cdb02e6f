package symbols

import (
	"cmp"
	"slices"
)

const (
	HashNotComputed             uint32 = 0
	hashNotComputedCollideAvoid uint32 = 1
	HashInvalid                 uint32 = 2
	hashInvalidCollideAvoid     uint32 = 3
)

// MethodHash is the combined hash of every method sharing one name.
type MethodHash struct {
	NameHash uint32
	Hash     uint32
}

// StateHash summarizes the user-visible shape of a state. Two states whose
// user files declare the same hierarchy hash equally, whatever their ids.
type StateHash struct {
	Hierarchy uint32
	Methods   []MethodHash // sorted by NameHash
}

// Equal reports whether two hashes match.
func (h StateHash) Equal(other StateHash) bool {
	return h.Hierarchy == other.Hierarchy && slices.Equal(h.Methods, other.Methods)
}

// Hash computes the state hash. Built-in and payload symbols are skipped.
func (s *State) Hash() StateHash {
	var hierarchy uint32
	for _, kind := range []Kind{KindClassOrModule, KindField, KindTypeArgument, KindTypeMember} {
		a := &s.arenas[kind]
		for i := 1; i < a.used(); i++ {
			sym := &a.data[i]
			if s.ignoreInHashing(sym) {
				continue
			}
			hierarchy = hashMix(hierarchy, s.symbolHash(sym))
		}
	}

	byName := make(map[uint32]uint32)
	methods := &s.arenas[KindMethod]
	for i := 1; i < methods.used(); i++ {
		sym := &methods.data[i]
		if s.ignoreInHashing(sym) {
			continue
		}
		nh := s.names.Hash(sym.Name)
		byName[nh] = hashMix(byName[nh], s.symbolHash(sym))
		hierarchy = hashMix(hierarchy, s.methodShapeHash(sym))
	}

	out := StateHash{Hierarchy: patchHash(hierarchy)}
	for nh, h := range byName {
		out.Methods = append(out.Methods, MethodHash{NameHash: nh, Hash: patchHash(h)})
	}
	slices.SortFunc(out.Methods, func(a, b MethodHash) int {
		return cmp.Or(cmp.Compare(a.NameHash, b.NameHash), cmp.Compare(a.Hash, b.Hash))
	})
	return out
}

func (s *State) ignoreInHashing(sym *Symbol) bool {
	loc := sym.Loc()
	return !loc.Exists() || s.IsPayloadLoc(loc)
}

// refHash hashes a reference by its owner-qualified name so the result does
// not depend on arena indices.
func (s *State) refHash(ref Ref) uint32 {
	var h uint32
	for cur := ref; s.Valid(cur); cur = s.Data(cur).Owner {
		h = hashMix(h, s.names.Hash(s.Data(cur).Name))
		if cur == s.Data(cur).Owner {
			break
		}
	}
	return h
}

func (s *State) symbolHash(sym *Symbol) uint32 {
	h := hashMix(s.names.Hash(sym.Name), uint32(sym.Flags&^FlagLinearizationComputed))
	h = hashMix(h, s.refHash(sym.Owner))
	if sym.IsClassOrModule() {
		h = hashMix(h, s.refHash(sym.SuperClass))
		for _, m := range sym.Mixins {
			h = hashMix(h, s.refHash(m))
		}
		for _, tm := range sym.TypeMembers {
			h = hashMix(h, s.refHash(tm))
		}
	}
	for _, arg := range sym.Arguments {
		h = hashMix(h, s.names.Hash(arg.Name))
		h = hashMix(h, uint32(arg.Flags))
	}
	return h
}

func (s *State) methodShapeHash(sym *Symbol) uint32 {
	h := hashMix(s.names.Hash(sym.Name), uint32(len(sym.Arguments)))
	for _, arg := range sym.Arguments {
		h = hashMix(h, uint32(arg.Flags))
	}
	return h
}

func hashMix(acc, what uint32) uint32 {
	acc ^= what + 0x9e3779b9 + (acc << 6) + (acc >> 2)
	return acc
}

// patchHash moves real hashes off the sentinel values.
func patchHash(h uint32) uint32 {
	switch h {
	case HashNotComputed:
		return hashNotComputedCollideAvoid
	case HashInvalid:
		return hashInvalidCollideAvoid
	}
	return h
}
