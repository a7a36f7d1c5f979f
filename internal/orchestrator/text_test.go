package orchestrator

import (
	"image"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
)

func TestLineQuality(t *testing.T) {
	assert.Zero(t, LineQuality(""))
	assert.Zero(t, LineQuality("   "))
	assert.Zero(t, LineQuality("#### ~~"))
	assert.InDelta(t, 5.0, LineQuality("hello"), 1e-9)
	// 4 alnum of 5 non-space runes, one of them U+FFFD.
	assert.InDelta(t, 4*4.0/5.0, LineQuality("ab\ufffdcd"), 1e-9)
	assert.Greater(t, LineQuality("Invoice 12"), LineQuality("Inv0ice"))
}

func TestMergeLines(t *testing.T) {
	t.Run("tie keeps first pass", func(t *testing.T) {
		merged, stats := MergeLines("abc", "xyz")
		assert.Equal(t, "abc", merged)
		assert.Equal(t, MergeStats{Lines: 1, FromPass1: 1}, stats)
	})
	t.Run("missing lines count as empty", func(t *testing.T) {
		merged, stats := MergeLines("one\n", "one\ntwo\nthree")
		assert.Equal(t, "one\ntwo\nthree", merged)
		assert.Equal(t, MergeStats{Lines: 3, FromPass1: 1, FromPass2: 2}, stats)
	})
	t.Run("both empty", func(t *testing.T) {
		merged, stats := MergeLines("", "\n")
		assert.Empty(t, merged)
		assert.Zero(t, stats.Lines)
	})
	t.Run("crlf", func(t *testing.T) {
		merged, _ := MergeLines("a\r\nb", "a\nb")
		assert.Equal(t, "a\nb", merged)
	})
}

func TestMergeLines_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	lines := []string{"", "hello", "h3llo", "~~~", "#!", "Total 42", "\ufffd\ufffd"}
	line := gen.IntRange(0, len(lines)-1)

	properties.Property("each merged line comes from one of the passes and is never worse", prop.ForAll(
		func(ai, bi []int) bool {
			a, b := pick(lines, ai), pick(lines, bi)
			merged, stats := MergeLines(strings.Join(a, "\n"), strings.Join(b, "\n"))
			if stats.FromPass1+stats.FromPass2 != stats.Lines {
				return false
			}
			if stats.Lines == 0 {
				return merged == ""
			}
			la := splitLines(strings.Join(a, "\n"))
			lb := splitLines(strings.Join(b, "\n"))
			for i, got := range strings.Split(merged, "\n") {
				var x, y string
				if i < len(la) {
					x = la[i]
				}
				if i < len(lb) {
					y = lb[i]
				}
				if got != x && got != y {
					return false
				}
				if LineQuality(got) < LineQuality(x) || LineQuality(got) < LineQuality(y) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(line), gen.SliceOf(line),
	))

	properties.Property("merging a text with itself is the identity on its lines", prop.ForAll(
		func(ai []int) bool {
			a := pick(lines, ai)
			text := strings.Join(splitLines(strings.Join(a, "\n")), "\n")
			merged, stats := MergeLines(text, text)
			return merged == text && stats.FromPass2 == 0
		},
		gen.SliceOf(line),
	))

	properties.TestingRun(t)
}

func pick(from []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}

func TestPostprocess(t *testing.T) {
	cfg := DefaultPostprocessConfig()
	tests := []struct {
		name, in, want string
	}{
		{"ligatures", "ﬁne ﬂow oﬃce", "fine flow office"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
		{"control", "a\x00b\x07c\ufffd", "abc"},
		{"dehyphenate", "exam-\nple text", "example text"},
		{"dehyphenate chain", "a-\nb-\nc", "abc"},
		{"keep hyphen before capital", "well-\nKnown", "well-\nKnown"},
		{"keep dash after digit", "10-\nfold", "10-\nfold"},
		{"whitespace", "  a   b\t c  \n\n\n\nd  ", "a b c\n\nd"},
		{"crlf", "one\r\ntwo", "one\ntwo"},
		{"empty", "\n \n", ""},
		{"placeholder untouched", "Name [REDACTED]  here", "Name [REDACTED] here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Postprocess(tt.in, cfg))
		})
	}
}

func TestPostprocess_Disabled(t *testing.T) {
	in := "ﬁ  x-\ny"
	assert.Equal(t, in, Postprocess(in, PostprocessConfig{}))
}

func TestPostprocess_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)
	cfg := DefaultPostprocessConfig()
	pieces := []string{"exam", "ple", "-", "\n", " ", "\t", "ﬁ", "e", "\u0301", "\x00", "A", "b", "\u00a0", "\r\n", "[REDACTED]"}

	properties.Property("postprocess is idempotent", prop.ForAll(
		func(idx []int) bool {
			once := Postprocess(strings.Join(pick(pieces, idx), ""), cfg)
			return Postprocess(once, cfg) == once
		},
		gen.SliceOf(gen.IntRange(0, len(pieces)-1)),
	))
	properties.Property("postprocess is idempotent on arbitrary strings", prop.ForAll(
		func(s string) bool {
			once := Postprocess(s, cfg)
			return Postprocess(once, cfg) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestApplyRedactions(t *testing.T) {
	box := []image.Rectangle{image.Rect(100, 0, 200, 20)}
	word := func(text string, x int) engine.Word {
		return engine.WordFromRect(text, image.Rect(x, 0, x+40, 20), 0.9)
	}

	t.Run("replaces in order", func(t *testing.T) {
		words := []engine.Word{word("pay", 0), word("to", 50), word("Alice", 110), word("Bob", 160), word("now", 210)}
		out := ApplyRedactions("pay to Alice Bob now", words, box, 0.01)
		assert.Equal(t, "pay to [REDACTED] [REDACTED] now", out.Text)
		assert.Equal(t, 2, out.Inserted)
		assert.Zero(t, out.Unplaced)
	})
	t.Run("repeated token redacts the right occurrence", func(t *testing.T) {
		words := []engine.Word{word("id", 0), word("id", 120)}
		out := ApplyRedactions("id id", words, box, 0.01)
		assert.Equal(t, "id [REDACTED]", out.Text)
	})
	t.Run("whole words only", func(t *testing.T) {
		words := []engine.Word{word("an", 120)}
		out := ApplyRedactions("banana an", words, box, 0.01)
		assert.Equal(t, "banana [REDACTED]", out.Text)
	})
	t.Run("unplaced word leaves text alone", func(t *testing.T) {
		words := []engine.Word{word("Zed", 120)}
		out := ApplyRedactions("nothing here", words, box, 0.01)
		assert.Equal(t, "nothing here", out.Text)
		assert.Equal(t, 1, out.Unplaced)
	})
	t.Run("overlap threshold", func(t *testing.T) {
		// 1px of a 40px-wide word overlaps the box: 2.5% of its area.
		w := engine.WordFromRect("edge", image.Rect(61, 0, 101, 20), 0.9)
		assert.True(t, IsRedacted(w.Rect(), box, 0.01))
		assert.False(t, IsRedacted(w.Rect(), box, 0.05))
		assert.False(t, IsRedacted(image.Rect(0, 0, 0, 0), box, 0.01))
	})
}
