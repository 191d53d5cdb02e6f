package symbols

import (
	"maps"
	"slices"

	"sigil/internal/names"
	"sigil/internal/source"
	"sigil/internal/types"
)

// Flags encode the kind of a symbol and its modifiers.
type Flags uint32

const (
	FlagClassOrModule Flags = 1 << iota
	FlagMethod
	FlagField
	FlagStaticField
	FlagTypeArgument
	FlagTypeMember

	// classes and modules
	FlagClassModuleSet
	FlagModule
	FlagLinearizationComputed
	FlagAbstract
	FlagInterface
	FlagSealed
	FlagFinal

	// type arguments and members
	FlagInvariant
	FlagCovariant
	FlagContravariant
	FlagFixed

	// methods
	FlagPrivate
	FlagProtected
	FlagOverloaded
)

var flagLabels = []struct {
	flag  Flags
	label string
}{
	{FlagClassOrModule, "class-or-module"},
	{FlagMethod, "method"},
	{FlagField, "field"},
	{FlagStaticField, "static-field"},
	{FlagTypeArgument, "type-argument"},
	{FlagTypeMember, "type-member"},
	{FlagClassModuleSet, "class-module-set"},
	{FlagModule, "module"},
	{FlagLinearizationComputed, "linearized"},
	{FlagAbstract, "abstract"},
	{FlagInterface, "interface"},
	{FlagSealed, "sealed"},
	{FlagFinal, "final"},
	{FlagInvariant, "invariant"},
	{FlagCovariant, "covariant"},
	{FlagContravariant, "contravariant"},
	{FlagFixed, "fixed"},
	{FlagPrivate, "private"},
	{FlagProtected, "protected"},
	{FlagOverloaded, "overloaded"},
}

// Strings returns a slice of textual flag labels.
func (f Flags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 4)
	for _, fl := range flagLabels {
		if f&fl.flag != 0 {
			labels = append(labels, fl.label)
		}
	}
	return labels
}

// Variance of a generic parameter.
type Variance int8

const (
	Invariant     Variance = 0
	Covariant     Variance = 1
	Contravariant Variance = -1
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	default:
		return "invariant"
	}
}

// Flag returns the flag bit recording v.
func (v Variance) Flag() Flags {
	switch v {
	case Covariant:
		return FlagCovariant
	case Contravariant:
		return FlagContravariant
	default:
		return FlagInvariant
	}
}

// ArgFlags describe a method argument.
type ArgFlags uint8

const (
	ArgKeyword ArgFlags = 1 << iota
	ArgRepeated
	ArgDefault
	ArgBlock
	ArgShadow
)

// ArgInfo is one method argument.
type ArgInfo struct {
	Name  names.NameRef
	Loc   source.Span
	Flags ArgFlags
	Type  types.TypeID
}

// IsBlock reports whether the argument is the block parameter.
func (a ArgInfo) IsBlock() bool { return a.Flags&ArgBlock != 0 }

// Alias maps a type member of an ancestor to the member of a class that
// re-declares it.
type Alias struct {
	Parent Ref
	Own    Ref
}

// Symbol is the single record type of every arena. Kind-specific fields stay
// zero for the other kinds.
type Symbol struct {
	Owner      Ref
	Name       names.NameRef
	Flags      Flags
	Locs       []source.Span
	ResultType types.TypeID

	// classes and modules
	SuperClass  Ref
	Mixins      []Ref
	TypeMembers []Ref
	Members     map[names.NameRef]Ref
	Aliases     []Alias

	// methods
	Arguments     []ArgInfo
	TypeArguments []Ref
	Intrinsic     IntrinsicID
}

// Loc returns the first location or NoSpan.
func (s *Symbol) Loc() source.Span {
	if len(s.Locs) == 0 {
		return source.NoSpan
	}
	return s.Locs[0]
}

// AddLoc records loc unless it is absent or already known.
func (s *Symbol) AddLoc(loc source.Span) {
	if !loc.Exists() || slices.Contains(s.Locs, loc) {
		return
	}
	s.Locs = append(s.Locs, loc)
}

func (s *Symbol) IsClassOrModule() bool { return s.Flags&FlagClassOrModule != 0 }
func (s *Symbol) IsMethod() bool        { return s.Flags&FlagMethod != 0 }
func (s *Symbol) IsField() bool         { return s.Flags&FlagField != 0 }
func (s *Symbol) IsStaticField() bool   { return s.Flags&FlagStaticField != 0 }
func (s *Symbol) IsTypeArgument() bool  { return s.Flags&FlagTypeArgument != 0 }
func (s *Symbol) IsTypeMember() bool    { return s.Flags&FlagTypeMember != 0 }
func (s *Symbol) IsFixed() bool         { return s.Flags&FlagFixed != 0 }

// IsModule reports a class-or-module explicitly marked as module.
func (s *Symbol) IsModule() bool {
	return s.IsClassOrModule() && s.Flags&FlagModule != 0
}

// IsClass reports a class-or-module that is not a module.
func (s *Symbol) IsClass() bool {
	return s.IsClassOrModule() && s.Flags&FlagModule == 0
}

// IsClassModuleSet reports whether module-ness was ever decided.
func (s *Symbol) IsClassModuleSet() bool { return s.Flags&FlagClassModuleSet != 0 }

// SetIsModule decides module-ness.
func (s *Symbol) SetIsModule(module bool) {
	s.Flags |= FlagClassModuleSet
	if module {
		s.Flags |= FlagModule
	} else {
		s.Flags &^= FlagModule
	}
}

// IsLinearized reports whether the mixin list is final.
func (s *Symbol) IsLinearized() bool { return s.Flags&FlagLinearizationComputed != 0 }

// SetLinearized sets the compute-once latch.
func (s *Symbol) SetLinearized() { s.Flags |= FlagLinearizationComputed }

// SetFixed marks a type parameter with fixed bounds.
func (s *Symbol) SetFixed() { s.Flags |= FlagFixed }

// Variance of a type argument or member.
func (s *Symbol) Variance() Variance {
	switch {
	case s.Flags&FlagCovariant != 0:
		return Covariant
	case s.Flags&FlagContravariant != 0:
		return Contravariant
	default:
		return Invariant
	}
}

func (s *Symbol) clone() Symbol {
	out := *s
	out.Locs = slices.Clone(s.Locs)
	out.Mixins = slices.Clone(s.Mixins)
	out.TypeMembers = slices.Clone(s.TypeMembers)
	out.Aliases = slices.Clone(s.Aliases)
	out.Arguments = slices.Clone(s.Arguments)
	out.TypeArguments = slices.Clone(s.TypeArguments)
	if s.Members != nil {
		out.Members = maps.Clone(s.Members)
	}
	return out
}
