package orchestrator

import (
	"strings"
	"unicode"
)

// MergeStats counts which pass supplied each merged line.
type MergeStats struct {
	Lines     int
	FromPass1 int
	FromPass2 int
}

// LineQuality scores a recognized line as alphanumeric count times the share
// of printable runes. Garbage from speckle and halftones scores low on both.
func LineQuality(line string) float64 {
	total, printable, alnum := 0, 0, 0
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isGarbageRune(r) {
			continue
		}
		printable++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) * float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	return r == unicode.ReplacementChar || unicode.IsControl(r) || unicode.Is(unicode.Co, r) || !unicode.IsPrint(r)
}

// MergeLines combines two recognitions of the same page line by line. For each
// index the line with the higher quality wins; an exact tie keeps pass 1. A
// line missing on one side counts as empty.
func MergeLines(pass1, pass2 string) (string, MergeStats) {
	a := splitLines(pass1)
	b := splitLines(pass2)
	n := max(len(a), len(b))
	out := make([]string, n)
	stats := MergeStats{Lines: n}
	for i := 0; i < n; i++ {
		var la, lb string
		if i < len(a) {
			la = a[i]
		}
		if i < len(b) {
			lb = b[i]
		}
		if LineQuality(lb) > LineQuality(la) {
			out[i] = lb
			stats.FromPass2++
		} else {
			out[i] = la
			stats.FromPass1++
		}
	}
	return strings.Join(out, "\n"), stats
}

func splitLines(s string) []string {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
