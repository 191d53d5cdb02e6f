package names

import (
	"slices"
	"strings"
)

// PageSize is the capacity of a regular arena page in bytes.
const PageSize = 4096

// Arena is an append-only store for name text. Strings it returns alias page
// memory; bytes already written are never touched again, so those strings
// stay valid for the lifetime of every arena sharing the page.
type Arena struct {
	pages []*strings.Builder
	cur   *strings.Builder // nil until the next write needs a page
	bytes int
}

// NewArena returns an empty arena. The first page is allocated lazily.
func NewArena() *Arena {
	return &Arena{}
}

// Enter copies s into the arena and returns the stored copy.
func (a *Arena) Enter(s string) string {
	if s == "" {
		return ""
	}
	a.bytes += len(s)

	if len(s) > PageSize {
		// Dedicated page goes in front of the current one so the current
		// page stays last and keeps accepting writes.
		page := &strings.Builder{}
		page.Grow(len(s))
		page.WriteString(s)
		if a.cur != nil {
			a.pages = slices.Insert(a.pages, len(a.pages)-1, page)
		} else {
			a.pages = append(a.pages, page)
		}
		return page.String()
	}

	if a.cur == nil || a.cur.Cap()-a.cur.Len() < len(s) {
		a.cur = &strings.Builder{}
		a.cur.Grow(PageSize)
		a.pages = append(a.pages, a.cur)
	}
	start := a.cur.Len()
	a.cur.WriteString(s)
	return a.cur.String()[start:]
}

// Pages reports how many pages are held.
func (a *Arena) Pages() int { return len(a.pages) }

// Bytes reports the total number of bytes entered.
func (a *Arena) Bytes() int { return a.bytes }

// Clone returns an arena that reads the same pages but writes to fresh ones.
func (a *Arena) Clone() *Arena {
	return &Arena{
		pages: slices.Clone(a.pages),
		bytes: a.bytes,
	}
}
