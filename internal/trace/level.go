package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // ring only, dumped on crashes
	LevelPhase        // driver runs and resolver phases
	LevelDetail       // per-class work
	LevelDebug
)

var levels = [...]struct {
	name string
	// coarsest scope not emitted at this level
	cutoff Scope
}{
	LevelOff:    {"off", ScopeDriver},
	LevelError:  {"error", ScopeDriver},
	LevelPhase:  {"phase", ScopeSymbol},
	LevelDetail: {"detail", ScopeSymbol + 1},
	LevelDebug:  {"debug", ^Scope(0)},
}

func (l Level) String() string {
	if int(l) < len(levels) {
		return levels[l].name
	}
	return "unknown"
}

// ParseLevel accepts the level names in any case.
func ParseLevel(s string) (Level, error) {
	for l, info := range levels {
		if strings.EqualFold(s, info.name) {
			return Level(l), nil // #nosec G115 -- bounded by len(levels)
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levels) {
		return false
	}
	return l == LevelDebug || scope < levels[l].cutoff
}
