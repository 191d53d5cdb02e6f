package symbols

import (
	"fmt"
	"strings"

	"sigil/internal/types"
)

// Show renders the short name of ref.
func (s *State) Show(ref Ref) string {
	if !s.Valid(ref) {
		return "<none>"
	}
	return s.names.Show(s.Data(ref).Name)
}

// ShowFull renders the owner-qualified name of ref: classes as Outer::Inner,
// methods as Owner#name, type arguments as method#T.
func (s *State) ShowFull(ref Ref) string {
	if !s.Valid(ref) {
		return "<none>"
	}
	data := s.Data(ref)
	own := s.names.Show(data.Name)
	owner := data.Owner
	if !s.Valid(owner) || owner == Root {
		return own
	}
	sep := "::"
	if ref.IsMethod() || ref.IsField() && !data.IsStaticField() {
		sep = "#"
	}
	if ref.IsTypeArgument() {
		sep = "#"
	}
	return s.ShowFull(owner) + sep + own
}

// ShowType renders a type id, naming symbols with ShowFull.
func (s *State) ShowType(id types.TypeID) string {
	return s.types.Show(id, func(raw uint32) string {
		ref := RefFromRaw(raw)
		if !s.Valid(ref) {
			return fmt.Sprintf("<sym %d>", raw)
		}
		return s.ShowFull(ref)
	})
}

// ShowSymbol renders a multi-line debug dump of ref.
func (s *State) ShowSymbol(ref Ref) string {
	data := s.Data(ref)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", ref.Kind(), s.ShowFull(ref))
	if flags := data.Flags.Strings(); len(flags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(flags, ", "))
	}
	b.WriteByte('\n')
	if ref.IsClassOrModule() {
		if data.SuperClass.Exists() {
			fmt.Fprintf(&b, "  super: %s\n", s.ShowFull(data.SuperClass))
		}
		if len(data.Mixins) > 0 {
			parts := make([]string, len(data.Mixins))
			for i, m := range data.Mixins {
				parts[i] = s.ShowFull(m)
			}
			fmt.Fprintf(&b, "  mixins: %s\n", strings.Join(parts, ", "))
		}
		for _, tm := range data.TypeMembers {
			tmd := s.Data(tm)
			fmt.Fprintf(&b, "  type %s (%s) %s\n", s.Show(tm), tmd.Variance(), s.ShowType(tmd.ResultType))
		}
	}
	if ref.IsMethod() {
		for _, arg := range data.Arguments {
			fmt.Fprintf(&b, "  arg %s\n", s.names.Show(arg.Name))
		}
	}
	return b.String()
}
