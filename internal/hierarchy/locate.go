package hierarchy

import (
	"regexp"

	"fortio.org/safecast"

	"sigil/internal/source"
)

// locator recovers byte spans of declared names. Neither decoder reports
// positions for struct fields, so names are searched in document order: the
// n-th class declaration follows the (n-1)-th, and its members sit between
// it and the next class.
type locator struct {
	content []byte
	file    source.FileID
	cursor  int
}

func newLocator(content []byte, file source.FileID) *locator {
	return &locator{content: content, file: file}
}

// region is the byte range of one class declaration.
type region struct{ start, end int }

// keyed finds `key = value` or `key: value` in [from, to).
func (l *locator) keyed(key, value string, from, to int) (source.Span, bool) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\s*[:=]\s*["']?(` + regexp.QuoteMeta(value) + `)(?:["']|[^\w:]|$)`)
	return l.search(re, from, to)
}

// token finds value as a whole word in [from, to).
func (l *locator) token(value string, from, to int) (source.Span, bool) {
	re := regexp.MustCompile(`(?:^|[^\w:@])(` + regexp.QuoteMeta(value) + `)(?:[^\w:]|$)`)
	return l.search(re, from, to)
}

func (l *locator) search(re *regexp.Regexp, from, to int) (source.Span, bool) {
	from = max(0, min(from, len(l.content)))
	to = max(from, min(to, len(l.content)))
	m := re.FindSubmatchIndex(l.content[from:to])
	if m == nil {
		return source.Span{File: l.file}, false
	}
	return l.span(from+m[2], from+m[3]), true
}

func (l *locator) span(start, end int) source.Span {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		return source.Span{File: l.file}
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		return source.Span{File: l.file}
	}
	return source.Span{File: l.file, Start: s, End: e}
}

// classRegions locates every class name in order and returns one region
// per class. A class whose name cannot be found gets an empty region at the
// previous cursor.
func (l *locator) classRegions(doc *Document) ([]region, []source.Span) {
	regions := make([]region, len(doc.Classes))
	spans := make([]source.Span, len(doc.Classes))
	for i, c := range doc.Classes {
		sp, ok := l.keyed("name", c.Name, l.cursor, len(l.content))
		if ok {
			l.cursor = int(sp.End)
		}
		spans[i] = sp
		regions[i].start = int(sp.Start)
		if !ok {
			regions[i].start = l.cursor
		}
	}
	for i := range regions {
		regions[i].end = len(l.content)
		if i+1 < len(regions) {
			regions[i].end = max(regions[i+1].start, regions[i].start)
		}
	}
	return regions, spans
}
