package diag

import (
	"cmp"
	"math"
	"slices"
)

// Bag collects the diagnostics of one run up to a limit. Diagnostics past
// the limit are counted but not kept.
type Bag struct {
	items   []Diagnostic
	limit   int
	dropped int
	// an error was among the dropped diagnostics
	lostError bool
}

// NewBag returns a bag keeping at most limit diagnostics; limit <= 0 keeps
// everything.
func NewBag(limit int) *Bag {
	if limit <= 0 {
		limit = math.MaxInt
	}
	return &Bag{items: make([]Diagnostic, 0, min(limit, 32)), limit: limit}
}

// Add keeps d if the bag has room and reports whether it did.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.limit {
		b.dropped++
		b.lostError = b.lostError || d.Severity >= SevError
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int { return len(b.items) }

// Dropped is the number of diagnostics refused by the limit.
func (b *Bag) Dropped() int { return b.dropped }

// Items returns the backing slice. Do not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

// HasErrors reports whether the run produced an error, kept or dropped.
func (b *Bag) HasErrors() bool {
	return b.lostError || slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

// Count returns how many kept diagnostics carry code.
func (b *Bag) Count(code Code) int {
	n := 0
	for _, d := range b.items {
		if d.Code == code {
			n++
		}
	}
	return n
}

// CountSeverity returns how many kept diagnostics have severity sev.
func (b *Bag) CountSeverity(sev Severity) int {
	n := 0
	for _, d := range b.items {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Sort orders diagnostics by primary location, then errors before
// warnings, then by code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}
