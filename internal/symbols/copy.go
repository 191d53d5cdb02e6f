package symbols

import (
	"slices"
	"strconv"

	"sigil/internal/trace"
)

// DeepCopy returns an independent copy of every arena, the name table, the
// type interner and the file table. Name and symbol ids in the copy are
// identical to the original. keepID keeps the state identity; otherwise the
// copy gets a fresh ID. The copy shares no writable memory with s.
func (s *State) DeepCopy(keepID bool) *State {
	span := trace.Begin(s.tracer, trace.ScopePass, "state.deep_copy", 0)
	defer span.End("")

	out := &State{
		id:            s.id,
		names:         s.names.Clone(),
		types:         s.types.Clone(),
		files:         s.files.Clone(),
		symbolsFrozen: s.symbolsFrozen,
		wasModified:   s.wasModified,
		tracer:        s.tracer,
	}
	if !keepID {
		out.id = lastStateID.Add(1)
	}
	for k := range s.arenas {
		out.arenas[k] = s.arenas[k].clone()
	}
	out.cloneHistory = append(slices.Clone(s.cloneHistory), CloneRecord{
		Origin:    s.id,
		NamesUsed: s.NamesUsed(),
	})

	span.WithExtra("symbols", strconv.Itoa(s.SymbolsUsedTotal())).
		WithExtra("names", strconv.Itoa(s.NamesUsed()))
	return out
}
