package driver

import (
	"sigil/internal/diag"
	"sigil/internal/resolver"
	"sigil/internal/source"
	"sigil/internal/symbols"
	"sigil/internal/types"
)

// ClassSummary is the resolved view of one user class.
type ClassSummary struct {
	Name        string              `json:"name"`
	Kind        string              `json:"kind"`
	SuperClass  string              `json:"superclass,omitempty"`
	Ancestors   []string            `json:"ancestors"`
	TypeMembers []TypeMemberSummary `json:"type_members,omitempty"`
	Singleton   *ClassSummary       `json:"singleton,omitempty"`
}

// TypeMemberSummary describes one type member with its bounds.
type TypeMemberSummary struct {
	Name     string `json:"name"`
	Variance string `json:"variance"`
	Fixed    bool   `json:"fixed,omitempty"`
	Bounds   string `json:"bounds,omitempty"`
}

// Summarize lists every class declared in a normal file, in declaration
// order. Singletons are nested under their attached class when they carry
// more than the synthesized <AttachedClass> member or extra mixins.
func Summarize(s *symbols.State) []ClassSummary {
	var out []ClassSummary
	for i := 1; i < s.ClassesUsed(); i++ {
		ref := symbols.ClassRef(uint32(i)) // #nosec G115 -- bounded by arena length
		data := s.Data(ref)
		f := s.Files().Lookup(data.Loc().File)
		if f == nil || f.Type != source.FileNormal || s.IsSingletonClass(ref) {
			continue
		}
		sum := summarize(s, ref)
		if single := s.LookupSingletonClass(ref); single.Exists() && len(s.Data(single).Mixins) > 0 {
			ss := summarize(s, single)
			sum.Singleton = &ss
		}
		out = append(out, sum)
	}
	return out
}

func summarize(s *symbols.State, ref symbols.Ref) ClassSummary {
	data := s.Data(ref)
	sum := ClassSummary{Name: s.ShowFull(ref), Kind: "class"}
	if data.IsModule() {
		sum.Kind = "module"
	}
	if data.SuperClass.Exists() {
		sum.SuperClass = s.ShowFull(data.SuperClass)
	}
	for _, a := range resolver.FullLinearization(s, diag.NopReporter{}, ref)[1:] {
		sum.Ancestors = append(sum.Ancestors, s.ShowFull(a))
	}
	for _, tm := range data.TypeMembers {
		td := s.Data(tm)
		tms := TypeMemberSummary{
			Name:     s.Names().Show(td.Name),
			Variance: td.Variance().String(),
			Fixed:    td.IsFixed(),
		}
		if td.ResultType != types.NoTypeID {
			tms.Bounds = s.ShowType(td.ResultType)
		}
		sum.TypeMembers = append(sum.TypeMembers, tms)
	}
	return sum
}
