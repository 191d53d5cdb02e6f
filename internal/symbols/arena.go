package symbols

import (
	"fmt"

	"fortio.org/safecast"
)

// arena stores the symbols of one kind. Index 0 is the reserved sentinel.
type arena struct {
	kind Kind
	data []Symbol
}

func newArena(kind Kind, capacity uint32) arena {
	if capacity == 0 {
		capacity = 64
	}
	return arena{
		kind: kind,
		data: make([]Symbol, 1, capacity+1), // index 0 reserved for the sentinel
	}
}

// add appends sym and returns its reference.
func (a *arena) add(sym Symbol) Ref {
	value, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("%s arena overflow: %w", a.kind, err))
	}
	if value > rawIndexMask {
		panic(fmt.Errorf("%s arena overflow: index %d exceeds %d", a.kind, value, rawIndexMask))
	}
	a.data = append(a.data, sym)
	return Ref{kind: a.kind, idx: value}
}

// get returns the record or nil when idx is past the end.
func (a *arena) get(idx uint32) *Symbol {
	if int(idx) >= len(a.data) {
		return nil
	}
	return &a.data[idx]
}

// used reports the arena length including the sentinel.
func (a *arena) used() int { return len(a.data) }

func (a *arena) clone() arena {
	out := arena{kind: a.kind, data: make([]Symbol, len(a.data), cap(a.data))}
	for i := range a.data {
		out.data[i] = a.data[i].clone()
	}
	return out
}
