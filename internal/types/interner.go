package types

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the fixed types.
type Builtins struct {
	Invalid TypeID
	Untyped TypeID
	Top     TypeID
	Bottom  TypeID
}

// AppliedInfo stores the type arguments of an applied class type.
type AppliedInfo struct {
	Args []TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	applied  []AppliedInfo
}

// NewInterner constructs an interner seeded with the fixed types.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.applied = append(in.applied, AppliedInfo{}) // reserve 0 as invalid sentinel
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid}, "")
	in.builtins.Untyped = in.Intern(Type{Kind: KindUntyped})
	in.builtins.Top = in.Intern(Type{Kind: KindTop})
	in.builtins.Bottom = in.Intern(Type{Kind: KindBottom})
	return in
}

// Builtins returns TypeIDs for the fixed types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID. Applied types
// go through Applied.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if t.Kind == KindApplied {
		panic("types: use Applied to intern applied types")
	}
	key := keyOf(t, "")
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t, "")
}

// Applied interns sym[args...]. Equal argument lists share a TypeID.
func (in *Interner) Applied(sym uint32, args []TypeID) TypeID {
	enc := encodeArgs(args)
	key := typeKey{Kind: KindApplied, Sym: sym, Args: enc}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.applied = append(in.applied, AppliedInfo{Args: slices.Clone(args)})
	slot, err := safecast.Conv[uint32](len(in.applied) - 1)
	if err != nil {
		panic(fmt.Errorf("applied info overflow: %w", err))
	}
	return in.internRaw(Type{Kind: KindApplied, Sym: sym, Payload: slot}, enc)
}

// AppliedInfo returns the type arguments for an applied TypeID.
func (in *Interner) AppliedInfo(id TypeID) (*AppliedInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindApplied {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.applied) {
		return nil, false
	}
	return &in.applied[tt.Payload], true
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type, args string) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[keyOf(t, args)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len reports the number of stored types including the invalid sentinel.
func (in *Interner) Len() int { return len(in.types) }

// Clone returns an independent interner with identical ids.
func (in *Interner) Clone() *Interner {
	out := &Interner{
		types:    slices.Clone(in.types),
		index:    maps.Clone(in.index),
		builtins: in.builtins,
		applied:  make([]AppliedInfo, len(in.applied)),
	}
	for i, info := range in.applied {
		out.applied[i] = AppliedInfo{Args: slices.Clone(info.Args)}
	}
	return out
}

// Table is the serializable content of an interner.
type Table struct {
	Types   []Type
	Applied [][]TypeID
}

// Export returns the interner content in id order.
func (in *Interner) Export() Table {
	out := Table{Types: slices.Clone(in.types)}
	out.Applied = make([][]TypeID, len(in.applied))
	for i, info := range in.applied {
		out.Applied[i] = slices.Clone(info.Args)
	}
	return out
}

// Import rebuilds an interner from Export output, keeping every id.
func Import(tbl Table) (*Interner, error) {
	if len(tbl.Types) < 4 || len(tbl.Applied) == 0 {
		return nil, fmt.Errorf("types: table too short (%d types)", len(tbl.Types))
	}
	in := &Interner{
		types:   slices.Clone(tbl.Types),
		index:   make(map[typeKey]TypeID, len(tbl.Types)),
		applied: make([]AppliedInfo, len(tbl.Applied)),
	}
	for i, args := range tbl.Applied {
		in.applied[i] = AppliedInfo{Args: slices.Clone(args)}
	}
	for i, t := range in.types {
		enc := ""
		if t.Kind == KindApplied {
			if t.Payload == 0 || int(t.Payload) >= len(in.applied) {
				return nil, fmt.Errorf("types: applied type %d has bad payload %d", i, t.Payload)
			}
			enc = encodeArgs(in.applied[t.Payload].Args)
		}
		in.index[keyOf(t, enc)] = TypeID(i) // #nosec G115 -- bounded by the source interner
	}
	in.builtins = Builtins{Invalid: 0, Untyped: 1, Top: 2, Bottom: 3}
	return in, nil
}

// Show renders a type; symName renders packed symbol refs.
func (in *Interner) Show(id TypeID, symName func(uint32) string) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<none>"
	}
	switch tt.Kind {
	case KindUntyped:
		return "T.untyped"
	case KindTop:
		return "T.anything"
	case KindBottom:
		return "T.noreturn"
	case KindClass:
		return symName(tt.Sym)
	case KindApplied:
		var b strings.Builder
		b.WriteString(symName(tt.Sym))
		b.WriteByte('[')
		if info, ok := in.AppliedInfo(id); ok {
			for i, arg := range info.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(in.Show(arg, symName))
			}
		}
		b.WriteByte(']')
		return b.String()
	case KindLambdaParam:
		return "<" + in.Show(tt.Lower, symName) + " .. " + in.Show(tt.Upper, symName) + ">"
	case KindTypeVar:
		return "T.type_parameter(" + symName(tt.Sym) + ")"
	default:
		return tt.Kind.String()
	}
}

type typeKey struct {
	Kind  Kind
	Sym   uint32
	Lower TypeID
	Upper TypeID
	Args  string
}

func keyOf(t Type, args string) typeKey {
	return typeKey{Kind: t.Kind, Sym: t.Sym, Lower: t.Lower, Upper: t.Upper, Args: args}
}

func encodeArgs(args []TypeID) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return b.String()
}
