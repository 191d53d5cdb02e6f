package trace

import "time"

// Kind is the shape of an event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindInfo = [...]struct{ name, marker string }{
	KindSpanBegin: {"begin", "→"},
	KindSpanEnd:   {"end", "←"},
	KindPoint:     {"point", "•"},
	KindHeartbeat: {"heartbeat", "♡"},
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindInfo) {
		return kindInfo[k].name
	}
	return "unknown"
}

func (k Kind) marker() string {
	if k > 0 && int(k) < len(kindInfo) {
		return kindInfo[k].marker
	}
	return "?"
}

// Scope is the granularity of an event; smaller is coarser.
type Scope uint8

const (
	// ScopeDriver covers CLI commands and whole resolution runs.
	ScopeDriver Scope = iota + 1
	// ScopePass covers engine phases such as load and finalize_ancestors.
	ScopePass
	// ScopeSymbol covers per-class work and single diagnostics.
	ScopeSymbol
)

var scopeNames = [...]string{ScopeDriver: "driver", ScopePass: "pass", ScopeSymbol: "symbol"}

func (s Scope) String() string {
	if s > 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // process-wide, monotonic
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for root spans
	GID      uint64
	Name     string // e.g. "resolver.finalize_ancestors"
	Detail   string
	Extra    map[string]string
}
