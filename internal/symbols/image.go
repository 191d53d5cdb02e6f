package symbols

import (
	"fmt"
	"maps"
	"slices"

	"sigil/internal/fatal"
	"sigil/internal/names"
	"sigil/internal/source"
	"sigil/internal/trace"
	"sigil/internal/types"
)

// Image is the serializable content of a State. References are stored in
// their packed Raw form so every id survives a round trip.
type Image struct {
	Names   []names.Name
	Types   types.Table
	Files   []source.File
	Arenas  [numKinds][]Record
	Frozen  TableMask
	History []CloneRecord
}

// Record is one exported symbol.
type Record struct {
	Owner         uint32
	Name          names.NameRef
	Flags         Flags
	Locs          []source.Span
	ResultType    types.TypeID
	SuperClass    uint32
	Mixins        []uint32
	TypeMembers   []uint32
	Members       map[names.NameRef]uint32
	Aliases       [][2]uint32
	Arguments     []ArgInfo
	TypeArguments []uint32
	Intrinsic     IntrinsicID
}

func rawRefs(refs []Ref) []uint32 {
	if refs == nil {
		return nil
	}
	out := make([]uint32, len(refs))
	for i, r := range refs {
		out[i] = r.Raw()
	}
	return out
}

func (s *Symbol) record() Record {
	r := Record{
		Owner:         s.Owner.Raw(),
		Name:          s.Name,
		Flags:         s.Flags,
		Locs:          slices.Clone(s.Locs),
		ResultType:    s.ResultType,
		SuperClass:    s.SuperClass.Raw(),
		Mixins:        rawRefs(s.Mixins),
		TypeMembers:   rawRefs(s.TypeMembers),
		Arguments:     slices.Clone(s.Arguments),
		TypeArguments: rawRefs(s.TypeArguments),
		Intrinsic:     s.Intrinsic,
	}
	if s.Members != nil {
		r.Members = make(map[names.NameRef]uint32, len(s.Members))
		for n, m := range s.Members {
			r.Members[n] = m.Raw()
		}
	}
	for _, a := range s.Aliases {
		r.Aliases = append(r.Aliases, [2]uint32{a.Parent.Raw(), a.Own.Raw()})
	}
	return r
}

// Export captures s. The image shares no memory with s.
func (s *State) Export() Image {
	img := Image{
		Names:   slices.Clone(s.names.Names()),
		Types:   s.types.Export(),
		Frozen:  s.frozenMask(),
		History: slices.Clone(s.cloneHistory),
	}
	for _, f := range s.files.Files() {
		f.Content = slices.Clone(f.Content)
		f.LineIdx = nil
		img.Files = append(img.Files, f)
	}
	for k := range s.arenas {
		a := &s.arenas[k]
		img.Arenas[k] = make([]Record, a.used())
		for i := range a.data {
			img.Arenas[k][i] = a.data[i].record()
		}
	}
	return img
}

func (s *State) frozenMask() TableMask {
	var m TableMask
	if s.names.Frozen() {
		m |= TableNames
	}
	if s.symbolsFrozen {
		m |= TableSymbols
	}
	if s.files.Frozen() {
		m |= TableFiles
	}
	return m
}

// Import rebuilds a State from img, keeping every name, type, file and
// symbol id. The result gets a fresh state ID. Malformed images are
// reported as errors, never as violations.
func Import(img Image) (*State, error) {
	if len(img.Names) == 0 {
		return nil, fmt.Errorf("symbols: image has no name sentinel")
	}
	for k, recs := range img.Arenas {
		if len(recs) == 0 {
			return nil, fmt.Errorf("symbols: %s arena has no sentinel", Kind(k)) // #nosec G115 -- k < numKinds
		}
	}
	in, err := types.Import(img.Types)
	if err != nil {
		return nil, err
	}

	s := &State{
		id:           lastStateID.Add(1),
		types:        in,
		cloneHistory: slices.Clone(img.History),
		tracer:       trace.Nop,
	}
	if err := fatal.Catch(func() {
		s.names = names.Restore(img.Names)
		s.files = source.Restore(img.Files)
	}); err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}

	for k, recs := range img.Arenas {
		kind := Kind(k) // #nosec G115 -- k < numKinds
		a := arena{kind: kind, data: make([]Symbol, len(recs))}
		for i := range recs {
			sym, err := s.fromRecord(img.Arenas, &recs[i])
			if err != nil {
				return nil, fmt.Errorf("symbols: %s#%d: %w", kind, i, err)
			}
			a.data[i] = sym
		}
		s.arenas[k] = a
	}
	s.Freeze(img.Frozen)
	return s, nil
}

func (s *State) fromRecord(arenas [numKinds][]Record, r *Record) (Symbol, error) {
	var bad error
	ref := func(raw uint32) Ref {
		got := RefFromRaw(raw)
		if got.kind >= numKinds || int(got.idx) >= len(arenas[got.kind]) {
			bad = fmt.Errorf("reference %v out of range", got)
			return NoSymbol
		}
		return got
	}
	refs := func(raws []uint32) []Ref {
		if raws == nil {
			return nil
		}
		out := make([]Ref, len(raws))
		for i, raw := range raws {
			out[i] = ref(raw)
		}
		return out
	}
	nameOK := func(n names.NameRef) bool { return int(n) < len(s.names.Names()) }

	sym := Symbol{
		Owner:         ref(r.Owner),
		Name:          r.Name,
		Flags:         r.Flags,
		Locs:          slices.Clone(r.Locs),
		ResultType:    r.ResultType,
		SuperClass:    ref(r.SuperClass),
		Mixins:        refs(r.Mixins),
		TypeMembers:   refs(r.TypeMembers),
		Arguments:     slices.Clone(r.Arguments),
		TypeArguments: refs(r.TypeArguments),
		Intrinsic:     r.Intrinsic,
	}
	if !nameOK(sym.Name) {
		return Symbol{}, fmt.Errorf("name %d out of range", sym.Name)
	}
	if r.Members != nil {
		sym.Members = make(map[names.NameRef]Ref, len(r.Members))
		for _, n := range slices.Sorted(maps.Keys(r.Members)) {
			if !nameOK(n) {
				return Symbol{}, fmt.Errorf("member name %d out of range", n)
			}
			sym.Members[n] = ref(r.Members[n])
		}
	}
	for _, a := range r.Aliases {
		sym.Aliases = append(sym.Aliases, Alias{Parent: ref(a[0]), Own: ref(a[1])})
	}
	for _, arg := range sym.Arguments {
		if !nameOK(arg.Name) {
			return Symbol{}, fmt.Errorf("argument name %d out of range", arg.Name)
		}
	}
	if bad != nil {
		return Symbol{}, bad
	}
	return sym, nil
}
