package classify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
)

// Segment is one clause candidate: an optional heading plus its body lines
type Segment struct {
	Span    model.Span
	Heading string
	Body    string
}

// Numbered paragraph markers: "1.", "2.3", "(a)", "iv.", "Section 4", "ARTICLE IV", "Clause 7.1"
var numberedPrefix = regexp.MustCompile(`(?i)^(?:(?:section|article|clause)\s+(?:\d+(?:\.\d+)*|[ivxlc]+)\.?|\d+\.(?:\d+\.?)*|\([a-z0-9]{1,4}\)|[ivxlc]{1,6}\.)(?:\s+|$)`)

const maxHeadingWords = 8

type lineKind int

const (
	lineBlank lineKind = iota
	lineHeading
	lineNumbered // numbered paragraph carrying body text
	lineText
)

// Split breaks text into clause candidates. Blank lines end a block, headings and
// numbered paragraphs start one, and a heading-only line attaches to the block after it.
func Split(text string) []Segment {
	var (
		segments []Segment
		cur      *block
	)

	flush := func() {
		if cur != nil {
			if seg, ok := cur.segment(text); ok {
				segments = append(segments, seg)
			}
		}
		cur = nil
	}

	offset := 0
	for offset < len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += offset
		}
		line := text[offset:end]
		start := offset
		offset = end + 1

		switch kind := classifyLine(line); kind {
		case lineBlank:
			// A pending heading waits for its body
			if cur != nil && cur.hasBody() {
				flush()
			}
		case lineHeading:
			if cur != nil && !cur.hasBody() {
				// Consecutive headings: the later, more specific one wins
				cur.start = start
				cur.heading = strings.TrimSpace(line)
				cur.headingSpan = model.Span{Start: start, End: end}
				continue
			}
			flush()
			cur = &block{start: start, heading: strings.TrimSpace(line), headingSpan: model.Span{Start: start, End: end}}
		case lineNumbered:
			if cur != nil && cur.hasBody() {
				flush()
			}
			if cur == nil {
				cur = &block{start: start}
			}
			cur.addBody(start, end)
		default:
			if cur == nil {
				cur = &block{start: start}
			}
			cur.addBody(start, end)
		}
	}
	flush()

	return segments
}

type block struct {
	start       int
	heading     string
	headingSpan model.Span
	bodyStart   int
	bodyEnd     int
	bodyLines   int
}

func (b *block) hasBody() bool {
	return b.bodyLines > 0
}

func (b *block) addBody(start, end int) {
	if b.bodyLines == 0 {
		b.bodyStart = start
	}
	b.bodyEnd = end
	b.bodyLines++
}

func (b *block) segment(text string) (Segment, bool) {
	seg := Segment{Heading: cleanHeading(b.heading)}
	end := b.headingSpan.End
	if b.hasBody() {
		seg.Body = strings.TrimSpace(text[b.bodyStart:b.bodyEnd])
		end = b.bodyEnd
	}
	if seg.Heading == "" && seg.Body == "" {
		return Segment{}, false
	}

	// The span covers visible bytes only
	start := b.start
	for start < end && unicode.IsSpace(rune(text[start])) {
		start++
	}
	for end > start && unicode.IsSpace(rune(text[end-1])) {
		end--
	}
	seg.Span = model.Span{Start: start, End: end}
	return seg, true
}

func classifyLine(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return lineBlank
	}
	if strings.HasPrefix(trimmed, "#") {
		return lineHeading
	}

	if loc := numberedPrefix.FindStringIndex(trimmed); loc != nil {
		rest := strings.TrimSpace(trimmed[loc[1]:])
		if rest == "" || looksLikeHeading(rest) {
			return lineHeading
		}
		return lineNumbered
	}

	if isAllCaps(trimmed) && len(strings.Fields(trimmed)) <= maxHeadingWords {
		return lineHeading
	}
	return lineText
}

// looksLikeHeading reports whether text after a number marker is a title, not a sentence
func looksLikeHeading(rest string) bool {
	if len(strings.Fields(rest)) > maxHeadingWords {
		return false
	}
	if isAllCaps(rest) {
		return true
	}
	last := rest[len(rest)-1]
	return last != '.' && last != ';' && last != ','
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}

// cleanHeading strips markdown markers and trailing colons
func cleanHeading(h string) string {
	h = strings.TrimLeft(h, "# ")
	return strings.TrimSpace(strings.TrimRight(h, ":"))
}
