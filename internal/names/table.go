package names

import (
	"fmt"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"sigil/internal/fatal"
)

// DefaultCapacity is the initial number of name entries, sentinel included.
const DefaultCapacity = 512

const maxCapacity = 1 << 30

type slot struct {
	hash uint32 // 0 = empty
	id   NameRef
}

// Table interns names with open addressing over a power-of-two slot array
// that is always twice the name capacity. Probing is triangular, which
// visits every bucket of a power-of-two table.
type Table struct {
	arena    *Arena
	names    []Name
	slots    []slot
	capacity int
	frozen   bool
}

// NewTable creates a table holding only the NoName sentinel.
func NewTable() *Table {
	t := &Table{arena: NewArena()}
	t.names = make([]Name, 1, DefaultCapacity)
	t.slots = make([]slot, 2*DefaultCapacity)
	t.capacity = DefaultCapacity
	return t
}

// Freeze sets the write guard and returns its previous value.
func (t *Table) Freeze() bool {
	old := t.frozen
	t.frozen = true
	return old
}

// Unfreeze releases the write guard and returns its previous value.
func (t *Table) Unfreeze() bool {
	old := t.frozen
	t.frozen = false
	return old
}

// Frozen reports whether the write guard is set.
func (t *Table) Frozen() bool { return t.frozen }

// Len reports the number of names including the sentinel.
func (t *Table) Len() int { return len(t.names) }

// Capacity reports how many names fit before the next growth.
func (t *Table) Capacity() int { return t.capacity }

// Arena exposes the backing text store.
func (t *Table) Arena() *Arena { return t.arena }

// EnterPlain interns UTF-8 text.
func (t *Table) EnterPlain(text string) NameRef {
	return t.enter(Name{Kind: KindPlain, Text: text})
}

// EnterConstant wraps a plain or unique name as a constant.
func (t *Table) EnterConstant(original NameRef) NameRef {
	t.checkRef(original)
	fatal.Check(t.names[original].Kind != KindConstant, "constant name %d cannot wrap another constant", original)
	return t.enter(Name{Kind: KindConstant, Original: original})
}

// EnterConstantText is EnterConstant(EnterPlain(text)).
func (t *Table) EnterConstantText(text string) NameRef {
	return t.EnterConstant(t.EnterPlain(text))
}

// EnterUnique interns (kind, original, num). num must be >= 1.
func (t *Table) EnterUnique(kind UniqueKind, original NameRef, num uint32) NameRef {
	t.checkRef(original)
	fatal.Check(num > 0, "unique name %s over %q must have num >= 1", kind, t.Show(original))
	return t.enter(Name{Kind: KindUnique, Original: original, Unique: kind, Num: num})
}

// LookupPlain returns the id of text or NoName. It never mutates.
func (t *Table) LookupPlain(text string) NameRef {
	return t.lookup(Name{Kind: KindPlain, Text: text})
}

// LookupConstant returns the constant wrapping original or NoName.
func (t *Table) LookupConstant(original NameRef) NameRef {
	if !t.valid(original) {
		return NoName
	}
	return t.lookup(Name{Kind: KindConstant, Original: original})
}

// LookupConstantText returns the constant whose plain text is text or NoName.
func (t *Table) LookupConstantText(text string) NameRef {
	plain := t.LookupPlain(text)
	if plain == NoName {
		return NoName
	}
	return t.LookupConstant(plain)
}

// LookupUnique returns the unique name for the tuple or NoName.
func (t *Table) LookupUnique(kind UniqueKind, original NameRef, num uint32) NameRef {
	if !t.valid(original) || num == 0 {
		return NoName
	}
	return t.lookup(Name{Kind: KindUnique, Original: original, Unique: kind, Num: num})
}

// Data returns the stored name. Out-of-range ids are fatal.
func (t *Table) Data(ref NameRef) Name {
	t.checkRef(ref)
	return t.names[ref]
}

// Preallocate makes room for at least n names, rounded up to a power of two.
func (t *Table) Preallocate(n int) {
	if n <= t.capacity {
		return
	}
	fatal.Check(n <= maxCapacity, "name table cannot hold %d names", n)
	t.grow(1 << bits.Len(uint(n-1)))
}

// Clone returns an independent copy with identical ids.
func (t *Table) Clone() *Table {
	out := &Table{
		arena:    t.arena.Clone(),
		names:    make([]Name, len(t.names), t.capacity),
		slots:    slices.Clone(t.slots),
		capacity: t.capacity,
		frozen:   t.frozen,
	}
	copy(out.names, t.names)
	return out
}

// Names returns the stored names including the sentinel. Callers must not
// modify the result.
func (t *Table) Names() []Name { return t.names }

// Restore rebuilds a table from a stored name list, keeping every id. list
// must start with the sentinel.
func Restore(list []Name) *Table {
	t := NewTable()
	if len(list) > t.capacity {
		t.Preallocate(len(list))
	}
	for i := 1; i < len(list); i++ {
		n := list[i]
		var id NameRef
		switch n.Kind {
		case KindPlain:
			id = t.EnterPlain(n.Text)
		case KindConstant:
			id = t.EnterConstant(n.Original)
		case KindUnique:
			id = t.EnterUnique(n.Unique, n.Original, n.Num)
		default:
			fatal.Raise("restored name %d has kind %s", i, n.Kind)
		}
		fatal.Check(int(id) == i, "restored name %d landed at %d (duplicate entry)", i, id)
	}
	return t
}

// Hash returns a content hash of ref that is stable across tables.
func (t *Table) Hash(ref NameRef) uint32 {
	n := t.Data(ref)
	switch n.Kind {
	case KindPlain:
		return hashText(n.Text)
	case KindConstant:
		return nonZero(mix(uint32(KindConstant), t.Hash(n.Original)))
	default:
		h := mix(uint32(n.Unique), uint32(KindUnique))
		h = mix(h, n.Num)
		return nonZero(mix(h, t.Hash(n.Original)))
	}
}

// Show renders a name for humans.
func (t *Table) Show(ref NameRef) string {
	if !t.valid(ref) {
		return "<none>"
	}
	n := t.names[ref]
	switch n.Kind {
	case KindPlain:
		return n.Text
	case KindConstant:
		return t.Show(n.Original)
	case KindUnique:
		if n.Unique == Singleton {
			return "<Class:" + t.Show(n.Original) + ">"
		}
		if n.Unique == Overload {
			return t.Show(n.Original) + " (overload." + strconv.FormatUint(uint64(n.Num), 10) + ")"
		}
		return t.Show(n.Original) + "$" + strconv.FormatUint(uint64(n.Num), 10)
	default:
		return "<none>"
	}
}

// ShowRaw renders the internal structure of a name, for debugging.
func (t *Table) ShowRaw(ref NameRef) string {
	if !t.valid(ref) {
		return "<none>"
	}
	n := t.names[ref]
	switch n.Kind {
	case KindPlain:
		return "<P " + strconv.Quote(n.Text) + ">"
	case KindConstant:
		return "<C " + t.ShowRaw(n.Original) + ">"
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "<U %s %s %d>", n.Unique, t.ShowRaw(n.Original), n.Num)
		return b.String()
	}
}

// SanityCheck verifies the size relations of the table and that every
// occupied slot carries the hash of its name and is reachable by lookup.
func (t *Table) SanityCheck() {
	fatal.Check(len(t.slots) == 2*t.capacity, "slot array %d is not twice the capacity %d", len(t.slots), t.capacity)
	fatal.Check(t.capacity&(t.capacity-1) == 0, "capacity %d is not a power of two", t.capacity)
	fatal.Check(len(t.names) <= t.capacity, "%d names exceed capacity %d", len(t.names), t.capacity)
	occupied := 0
	for i, s := range t.slots {
		if s.hash == 0 {
			continue
		}
		occupied++
		fatal.Check(t.valid(s.id), "slot %d points at missing name %d", i, s.id)
		n := t.names[s.id]
		fatal.Check(s.hash == t.keyHash(n), "slot %d hash mismatch for %s", i, t.ShowRaw(s.id))
		fatal.Check(t.lookup(n) == s.id, "name %s is not reachable", t.ShowRaw(s.id))
	}
	fatal.Check(occupied == len(t.names)-1, "%d occupied slots for %d names", occupied, len(t.names)-1)
}

func (t *Table) enter(k Name) NameRef {
	h := t.keyHash(k)
	bucket, id := t.probe(h, k)
	if id != NoName {
		return id
	}
	fatal.Check(!t.frozen, "name table is frozen; cannot enter %s", t.describe(k))

	if len(t.names) == t.capacity {
		fatal.Check(t.capacity < maxCapacity, "name table is full (%d names)", len(t.names))
		t.grow(2 * t.capacity)
		bucket, _ = t.probe(h, k)
	}
	if k.Kind == KindPlain {
		k.Text = t.arena.Enter(k.Text)
	}

	value, err := safecast.Conv[uint32](len(t.names))
	if err != nil {
		panic(fmt.Errorf("name table overflow: %w", err))
	}
	id = NameRef(value)
	t.names = append(t.names, k)
	t.slots[bucket] = slot{hash: h, id: id}
	return id
}

func (t *Table) lookup(k Name) NameRef {
	_, id := t.probe(t.keyHash(k), k)
	return id
}

// probe returns the bucket holding k, or the empty bucket where k belongs.
func (t *Table) probe(h uint32, k Name) (uint32, NameRef) {
	mask := uint32(len(t.slots) - 1)
	bucket := h & mask
	probe := uint32(1)
	for {
		s := t.slots[bucket]
		if s.hash == 0 {
			return bucket, NoName
		}
		if s.hash == h && t.names[s.id] == k {
			return bucket, s.id
		}
		bucket = (bucket + probe) & mask
		probe++
	}
}

func (t *Table) grow(newCapacity int) {
	slots := make([]slot, 2*newCapacity)
	mask := uint32(len(slots) - 1)
	for _, s := range t.slots {
		if s.hash == 0 {
			continue
		}
		bucket := s.hash & mask
		probe := uint32(1)
		for slots[bucket].hash != 0 {
			bucket = (bucket + probe) & mask
			probe++
		}
		slots[bucket] = s
	}
	t.slots = slots
	t.names = slices.Grow(t.names, newCapacity-len(t.names))
	t.capacity = newCapacity
}

func (t *Table) keyHash(k Name) uint32 {
	switch k.Kind {
	case KindPlain:
		return hashText(k.Text)
	case KindConstant:
		return nonZero(mix(uint32(KindConstant), uint32(k.Original)))
	default:
		h := mix(uint32(k.Unique), uint32(KindUnique))
		h = mix(h, k.Num)
		return nonZero(mix(h, uint32(k.Original)))
	}
}

func (t *Table) valid(ref NameRef) bool {
	return ref != NoName && int(ref) < len(t.names)
}

func (t *Table) checkRef(ref NameRef) {
	fatal.Check(t.valid(ref), "name id %d out of range (len=%d)", ref, len(t.names))
}

func (t *Table) describe(k Name) string {
	switch k.Kind {
	case KindPlain:
		return strconv.Quote(k.Text)
	case KindConstant:
		return "constant " + t.Show(k.Original)
	default:
		return fmt.Sprintf("unique %s %s $%d", k.Unique, t.Show(k.Original), k.Num)
	}
}

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// hashText is 32-bit FNV-1a over the bytes of s.
func hashText(s string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return nonZero(h)
}

func mix(acc, what uint32) uint32 {
	acc ^= what + 0x9e3779b9 + (acc << 6) + (acc >> 2)
	return acc
}

// nonZero keeps 0 free as the empty-slot marker.
func nonZero(h uint32) uint32 {
	if h == 0 {
		return 1
	}
	return h
}
