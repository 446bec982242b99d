package analyzer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"jdroaster/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const structuredPosting = "ABOUT US\nWe build tools. We ship fast!\n\nRequirements:\n- Go experience\n2) SQL\n(a) Kubernetes\nNice extra line\nand another.\n\nx"

func texts(sentences []types.Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}

func TestSegmentStructure(t *testing.T) {
	tests := []struct {
		name     string
		strategy BoundaryStrategy
		want     []string
	}{
		{
			name:     "simple",
			strategy: BoundarySimple,
			want: []string{
				"ABOUT US",
				"We build tools.",
				"We ship fast!",
				"Requirements:",
				"- Go experience",
				"2) SQL",
				"(a) Kubernetes",
				"Nice extra line\nand another.",
			},
		},
		{
			name:     "unicode",
			strategy: BoundaryUnicode,
			want: []string{
				"ABOUT US",
				"We build tools.",
				"We ship fast!",
				"Requirements:",
				"- Go experience",
				"2) SQL",
				"(a) Kubernetes",
				"Nice extra line",
				"and another.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := NewSegmenter(WithBoundaryStrategy(tt.strategy))
			sentences := seg.Segment(structuredPosting)

			assert.Equal(t, tt.want, texts(sentences))
			assertOffsets(t, structuredPosting, sentences)
		})
	}
}

func TestSegmentEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n"} {
		sentences := NewSegmenter().Segment(in)
		assert.NotNil(t, sentences)
		assert.Empty(t, sentences)
	}
}

func TestSegmentDropsFragments(t *testing.T) {
	seg := NewSegmenter(WithBoundaryStrategy(BoundarySimple))
	sentences := seg.Segment("Hello there. ! Next one.\n\n-\n\n*")

	require.Equal(t, []string{"Hello there.", "Next one."}, texts(sentences))
	assert.Equal(t, "s_0", sentences[0].ID)
	assert.Equal(t, "s_1", sentences[1].ID)
}

func TestSegmentIDsAreBase36(t *testing.T) {
	var b strings.Builder
	for range 12 {
		b.WriteString("- item number here\n")
	}
	sentences := NewSegmenter().Segment(strings.TrimSpace(b.String()))

	require.Len(t, sentences, 12)
	assert.Equal(t, "s_9", sentences[9].ID)
	assert.Equal(t, "s_a", sentences[10].ID)
	assert.Equal(t, "s_b", sentences[11].ID)
}

func TestSegmentSingleParagraph(t *testing.T) {
	text := "First line of text\nsecond line. Third sentence here."
	sentences := NewSegmenter(WithBoundaryStrategy(BoundarySimple)).Segment(text)

	assert.Equal(t, []string{"First line of text\nsecond line.", "Third sentence here."}, texts(sentences))
	assertOffsets(t, text, sentences)
}

func TestHeadingAndBulletLines(t *testing.T) {
	tests := []struct {
		line    string
		heading bool
		bullet  bool
	}{
		{"Responsibilities:", true, false},
		{"WHAT YOU WILL DO", true, false},
		{"R&D / QA", true, false},
		{"Hi:", true, false},
		{"A:", false, false},
		{strings.Repeat("A", 61), false, false},
		{"- Own the roadmap", false, true},
		{"* Ship features", false, true},
		{"• Mentor engineers", false, true},
		{"12. Write docs", false, true},
		{"3) Run on-call", false, true},
		{"(b) Review code", false, true},
		{"  - indented bullet", false, true},
		{"-no space", false, false},
		{"123. too many digits", false, false},
		{"We are hiring", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.heading, isHeadingLine(tt.line), "heading")
			assert.Equal(t, tt.bullet, isBulletLine(tt.line), "bullet")
		})
	}
}

func TestParseBoundaryStrategy(t *testing.T) {
	got, err := ParseBoundaryStrategy("")
	require.NoError(t, err)
	assert.Equal(t, BoundaryUnicode, got)

	got, err = ParseBoundaryStrategy("Simple")
	require.NoError(t, err)
	assert.Equal(t, BoundarySimple, got)

	_, err = ParseBoundaryStrategy("icu")
	assert.Error(t, err)
}

func FuzzSegmentOffsets(f *testing.F) {
	f.Add(structuredPosting)
	f.Add("We need a rockstar who wears many hats. Salary, $90k-$110k DOE.")
	f.Add("•  bullet\n\n\nTEAM:\n1. one\n2. two. three! four?")

	f.Fuzz(func(t *testing.T, raw string) {
		if !utf8.ValidString(raw) {
			t.Skip()
		}
		text := Normalize(raw)
		for _, strategy := range []BoundaryStrategy{BoundaryUnicode, BoundarySimple} {
			assertOffsets(t, text, NewSegmenter(WithBoundaryStrategy(strategy)).Segment(text))
		}
	})
}

// assertOffsets checks span integrity, ordering and non-overlap
func assertOffsets(t *testing.T, text string, sentences []types.Sentence) {
	t.Helper()
	prevEnd := 0
	for i, s := range sentences {
		if s.Start < 0 || s.Start >= s.End || s.End > len(text) {
			t.Fatalf("sentence %d has invalid span [%d,%d) for text of length %d", i, s.Start, s.End, len(text))
		}
		if text[s.Start:s.End] != s.Text {
			t.Fatalf("sentence %d text %q does not match span %q", i, s.Text, text[s.Start:s.End])
		}
		if s.Start < prevEnd {
			t.Fatalf("sentence %d starts at %d before previous end %d", i, s.Start, prevEnd)
		}
		if s.ID != sentenceID(i) {
			t.Fatalf("sentence %d has id %q", i, s.ID)
		}
		prevEnd = s.End
	}
}
