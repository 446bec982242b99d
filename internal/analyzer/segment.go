package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"jdroaster/internal/types"

	"github.com/rivo/uniseg"
)

// BoundaryStrategy selects how paragraph units are split into sentences
type BoundaryStrategy string

const (
	// BoundaryUnicode uses Unicode (UAX #29) sentence boundaries
	BoundaryUnicode BoundaryStrategy = "unicode"
	// BoundarySimple ends a sentence at '.', '!' or '?' followed by whitespace
	BoundarySimple BoundaryStrategy = "simple"
)

// ParseBoundaryStrategy validates a strategy name
func ParseBoundaryStrategy(name string) (BoundaryStrategy, error) {
	switch s := BoundaryStrategy(strings.ToLower(strings.TrimSpace(name))); s {
	case BoundaryUnicode, BoundarySimple:
		return s, nil
	case "":
		return BoundaryUnicode, nil
	default:
		return "", fmt.Errorf("unknown sentence boundary strategy %q (must be 'unicode' or 'simple')", name)
	}
}

const (
	headingMinLen = 3
	headingMaxLen = 60
	minUnitLen    = 2
)

var (
	capsHeading    = regexp.MustCompile(`^[A-Z0-9\s/&-]+$`)
	numberedBullet = regexp.MustCompile(`^\d{1,2}[.)]\s+`)
	letteredBullet = regexp.MustCompile(`^\([a-zA-Z]\)\s+`)
)

type unitKind int

const (
	unitParagraph unitKind = iota
	unitHeading
	unitBullet
)

// unit is a line-level block before sentence splitting
type unit struct {
	start, end int
	kind       unitKind
}

// span is a half-open byte range
type span struct {
	start, end int
}

// Segmenter splits normalized text into offset-addressed sentences
type Segmenter struct {
	strategy BoundaryStrategy
}

// SegmenterOption configures a Segmenter
type SegmenterOption func(*Segmenter)

// WithBoundaryStrategy sets the paragraph splitting strategy
func WithBoundaryStrategy(strategy BoundaryStrategy) SegmenterOption {
	return func(s *Segmenter) {
		s.strategy = strategy
	}
}

// NewSegmenter creates a segmenter; the Unicode strategy is the default
func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{strategy: BoundaryUnicode}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategy returns the configured boundary strategy
func (s *Segmenter) Strategy() BoundaryStrategy {
	return s.strategy
}

// Segment splits normalized text in a single pass. Headings and bullets are
// atomic sentences; paragraphs are split on sentence boundaries. Units whose
// trimmed text is shorter than two characters are dropped.
func (s *Segmenter) Segment(text string) []types.Sentence {
	sentences := make([]types.Sentence, 0)

	emit := func(start, end int) {
		start, end = trimSpan(text, start, end)
		if end <= start {
			return
		}
		if utf8.RuneCountInString(strings.TrimSpace(text[start:end])) < minUnitLen {
			return
		}
		sentences = append(sentences, types.Sentence{
			ID:    sentenceID(len(sentences)),
			Start: start,
			End:   end,
			Text:  text[start:end],
		})
	}

	for _, u := range buildUnits(text) {
		if u.kind != unitParagraph {
			emit(u.start, u.end)
			continue
		}

		start, end := trimSpan(text, u.start, u.end)
		if end <= start {
			continue
		}
		for _, sp := range s.split(text[start:end]) {
			emit(start+sp.start, start+sp.end)
		}
	}

	return sentences
}

func (s *Segmenter) split(paragraph string) []span {
	if s.strategy == BoundarySimple {
		return splitSimple(paragraph)
	}
	return splitUnicode(paragraph)
}

func splitUnicode(text string) []span {
	var spans []span
	offset := 0
	rest := text
	state := -1
	for len(rest) > 0 {
		var sentence string
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		spans = append(spans, span{offset, offset + len(sentence)})
		offset += len(sentence)
	}
	return spans
}

func splitSimple(text string) []span {
	var spans []span
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if isSpace(text[i+1]) {
				spans = append(spans, span{start, i + 1})
				start = i + 1
			}
		}
	}
	if start < len(text) {
		spans = append(spans, span{start, len(text)})
	}
	return spans
}

// buildUnits scans line by line. Contiguous body lines form one paragraph;
// blank lines, headings and bullets close the open paragraph.
func buildUnits(text string) []unit {
	var units []unit
	paraStart, paraEnd := -1, -1

	flush := func() {
		if paraStart >= 0 && paraEnd > paraStart {
			units = append(units, unit{start: paraStart, end: paraEnd, kind: unitParagraph})
		}
		paraStart, paraEnd = -1, -1
	}

	for pos := 0; pos < len(text); {
		lineEnd := len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			lineEnd = pos + nl
		}
		line := text[pos:lineEnd]

		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case isHeadingLine(line):
			flush()
			units = append(units, unit{start: pos, end: lineEnd, kind: unitHeading})
		case isBulletLine(line):
			flush()
			units = append(units, unit{start: pos, end: lineEnd, kind: unitBullet})
		default:
			if paraStart < 0 {
				paraStart = pos
			}
			paraEnd = lineEnd
		}

		pos = lineEnd + 1
	}
	flush()

	return units
}

func isHeadingLine(line string) bool {
	t := strings.TrimSpace(line)
	n := utf8.RuneCountInString(t)
	if n < headingMinLen || n > headingMaxLen {
		return false
	}
	return strings.HasSuffix(t, ":") || capsHeading.MatchString(t)
}

func isBulletLine(line string) bool {
	t := strings.TrimLeft(line, " \t\r\n")
	return strings.HasPrefix(t, "- ") ||
		strings.HasPrefix(t, "* ") ||
		strings.HasPrefix(t, "• ") ||
		numberedBullet.MatchString(t) ||
		letteredBullet.MatchString(t)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func trimSpan(text string, start, end int) (int, int) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return start, end
}

func sentenceID(i int) string {
	return "s_" + strconv.FormatInt(int64(i), 36)
}
