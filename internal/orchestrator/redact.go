package orchestrator

import (
	"image"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/utils"
)

// Placeholder replaces every word that falls inside a validated redaction.
const Placeholder = "[REDACTED]"

// RedactionOutcome summarizes one placeholder substitution.
type RedactionOutcome struct {
	Text     string
	Inserted int
	Unplaced int // redacted words that could not be located in the text
}

// IsRedacted reports whether the word box overlaps any box by at least
// minOverlap of the word's own area.
func IsRedacted(word image.Rectangle, boxes []image.Rectangle, minOverlap float64) bool {
	area := utils.Area(word)
	if area == 0 {
		return false
	}
	for _, b := range boxes {
		inter := utils.IntersectionArea(word, b)
		if inter > 0 && float64(inter) >= minOverlap*float64(area) {
			return true
		}
	}
	return false
}

// ApplyRedactions walks the words in engine order, which is the order the
// text was produced in, and keeps a cursor into text. Each word is located at
// its next whole-word occurrence after the cursor; redacted words are
// replaced there by Placeholder. Words that cannot be found are skipped and
// leave the cursor where it was.
func ApplyRedactions(text string, words []engine.Word, boxes []image.Rectangle, minOverlap float64) RedactionOutcome {
	var out strings.Builder
	out.Grow(len(text))
	res := RedactionOutcome{}
	cursor := 0
	for _, w := range words {
		token := strings.TrimSpace(w.Text)
		if token == "" {
			continue
		}
		redacted := IsRedacted(w.Rect(), boxes, minOverlap)
		pos := indexWord(text[cursor:], token)
		if pos < 0 {
			if redacted {
				res.Unplaced++
			}
			continue
		}
		out.WriteString(text[cursor : cursor+pos])
		if redacted {
			out.WriteString(Placeholder)
			res.Inserted++
		} else {
			out.WriteString(token)
		}
		cursor += pos + len(token)
	}
	out.WriteString(text[cursor:])
	res.Text = out.String()
	return res
}

// indexWord finds token in s where it is not glued to surrounding letters or
// digits. It falls back to -1 rather than matching inside a longer word.
func indexWord(s, token string) int {
	offset := 0
	for {
		i := strings.Index(s[offset:], token)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(token)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return start
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
