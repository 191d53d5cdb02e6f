package symbols

import (
	"sync/atomic"

	"sigil/internal/fatal"
	"sigil/internal/names"
	"sigil/internal/source"
	"sigil/internal/trace"
	"sigil/internal/types"
)

// TableMask selects write guards.
type TableMask uint8

const (
	TableNames TableMask = 1 << iota
	TableSymbols
	TableFiles

	AllTables = TableNames | TableSymbols | TableFiles
)

// CloneRecord is one step of a state's copy lineage.
type CloneRecord struct {
	Origin    uint32 // ID of the state that was copied
	NamesUsed int    // names in the origin at copy time
}

var lastStateID atomic.Uint32

// State owns every arena, the name table, the type interner and the file
// table of one compilation. It performs no locking: at most one goroutine may
// use a State at a time, and forks are made with DeepCopy.
type State struct {
	id     uint32
	names  *names.Table
	types  *types.Interner
	files  *source.FileSet
	arenas [numKinds]arena

	symbolsFrozen bool
	wasModified   bool
	cloneHistory  []CloneRecord
	tracer        trace.Tracer
}

// NewEmpty creates a state holding only the sentinels. Nothing is frozen.
func NewEmpty() *State {
	s := &State{
		id:     lastStateID.Add(1),
		names:  names.NewTable(),
		types:  types.NewInterner(),
		files:  source.NewFileSet(),
		tracer: trace.Nop,
	}
	s.arenas[KindClassOrModule] = newArena(KindClassOrModule, 128)
	s.arenas[KindMethod] = newArena(KindMethod, 256)
	s.arenas[KindField] = newArena(KindField, 64)
	s.arenas[KindTypeArgument] = newArena(KindTypeArgument, 32)
	s.arenas[KindTypeMember] = newArena(KindTypeMember, 32)
	// the NoSymbol record owns synthesized top-level classes
	s.arenas[KindClassOrModule].data[0].Flags = FlagClassOrModule
	return s
}

// New creates a state, seeds the built-ins and sets every write guard.
func New() *State {
	s := NewEmpty()
	bootstrap(s)
	s.Freeze(AllTables)
	s.wasModified = false
	return s
}

// ID identifies this state. Copies made with DeepCopy(false) get a fresh one.
func (s *State) ID() uint32 { return s.id }

// CloneHistory lists the states this one was copied from, oldest first.
func (s *State) CloneHistory() []CloneRecord { return s.cloneHistory }

// Names exposes the name table.
func (s *State) Names() *names.Table { return s.names }

// Types exposes the type interner.
func (s *State) Types() *types.Interner { return s.types }

// Files exposes the file table.
func (s *State) Files() *source.FileSet { return s.files }

// SetTracer attaches t for state-level spans. nil restores the no-op tracer.
func (s *State) SetTracer(t trace.Tracer) {
	if t == nil {
		t = trace.Nop
	}
	s.tracer = t
}

// Tracer returns the attached tracer.
func (s *State) Tracer() trace.Tracer { return s.tracer }

// WasModified reports whether any enter call created something since the
// last ResetModified.
func (s *State) WasModified() bool { return s.wasModified }

// ResetModified clears the modification flag.
func (s *State) ResetModified() { s.wasModified = false }

// Data dereferences ref. Index 0 yields the sentinel record; indices past
// the arena length are fatal.
func (s *State) Data(ref Ref) *Symbol {
	fatal.Check(ref.kind < numKinds, "symbol %v has unknown kind", ref)
	sym := s.arenas[ref.kind].get(ref.idx)
	if sym == nil {
		fatal.Raise("symbol %v out of range (used=%d)", ref, s.arenas[ref.kind].used())
	}
	return sym
}

// Valid reports whether ref indexes a live record of its arena.
func (s *State) Valid(ref Ref) bool {
	return ref.kind < numKinds && ref.idx != 0 && int(ref.idx) < s.arenas[ref.kind].used()
}

func (s *State) ClassesUsed() int       { return s.arenas[KindClassOrModule].used() }
func (s *State) MethodsUsed() int       { return s.arenas[KindMethod].used() }
func (s *State) FieldsUsed() int        { return s.arenas[KindField].used() }
func (s *State) TypeArgumentsUsed() int { return s.arenas[KindTypeArgument].used() }
func (s *State) TypeMembersUsed() int   { return s.arenas[KindTypeMember].used() }
func (s *State) NamesUsed() int         { return s.names.Len() }

// FilesUsed counts files including the NoFileID sentinel.
func (s *State) FilesUsed() int { return s.files.Len() + 1 }

// SymbolsUsedTotal sums every arena.
func (s *State) SymbolsUsedTotal() int {
	total := 0
	for k := range s.arenas {
		total += s.arenas[k].used()
	}
	return total
}

// Used reports the length of the arena for kind.
func (s *State) Used(kind Kind) int {
	fatal.Check(kind < numKinds, "unknown symbol kind %d", kind)
	return s.arenas[kind].used()
}

// FreezeNameTable sets the name guard and returns its previous value.
func (s *State) FreezeNameTable() bool { return s.names.Freeze() }

// UnfreezeNameTable releases the name guard and returns its previous value.
func (s *State) UnfreezeNameTable() bool { return s.names.Unfreeze() }

// FreezeSymbolTable sets the symbol guard and returns its previous value.
func (s *State) FreezeSymbolTable() bool {
	old := s.symbolsFrozen
	s.symbolsFrozen = true
	return old
}

// UnfreezeSymbolTable releases the symbol guard and returns its previous value.
func (s *State) UnfreezeSymbolTable() bool {
	old := s.symbolsFrozen
	s.symbolsFrozen = false
	return old
}

// FreezeFileTable sets the file guard and returns its previous value.
func (s *State) FreezeFileTable() bool { return s.files.Freeze() }

// UnfreezeFileTable releases the file guard and returns its previous value.
func (s *State) UnfreezeFileTable() bool { return s.files.Unfreeze() }

// SymbolTableFrozen reports the symbol guard.
func (s *State) SymbolTableFrozen() bool { return s.symbolsFrozen }

// Freeze sets the guards selected by mask.
func (s *State) Freeze(mask TableMask) {
	if mask&TableNames != 0 {
		s.FreezeNameTable()
	}
	if mask&TableSymbols != 0 {
		s.FreezeSymbolTable()
	}
	if mask&TableFiles != 0 {
		s.FreezeFileTable()
	}
}

// Unfreeze releases the guards selected by mask and returns a func that
// restores their previous values.
//
//	defer s.Unfreeze(symbols.TableSymbols)()
func (s *State) Unfreeze(mask TableMask) (restore func()) {
	var oldNames, oldSymbols, oldFiles bool
	if mask&TableNames != 0 {
		oldNames = s.UnfreezeNameTable()
	}
	if mask&TableSymbols != 0 {
		oldSymbols = s.UnfreezeSymbolTable()
	}
	if mask&TableFiles != 0 {
		oldFiles = s.UnfreezeFileTable()
	}
	return func() {
		if mask&TableNames != 0 && oldNames {
			s.FreezeNameTable()
		}
		if mask&TableSymbols != 0 && oldSymbols {
			s.FreezeSymbolTable()
		}
		if mask&TableFiles != 0 && oldFiles {
			s.FreezeFileTable()
		}
	}
}
