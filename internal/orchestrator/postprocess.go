package orchestrator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// PostprocessConfig toggles the deterministic text corrections.
type PostprocessConfig struct {
	StripControl       bool `mapstructure:"strip_control" yaml:"strip_control"`
	ExpandLigatures    bool `mapstructure:"expand_ligatures" yaml:"expand_ligatures"`
	Normalize          bool `mapstructure:"normalize" yaml:"normalize"`
	CollapseWhitespace bool `mapstructure:"collapse_whitespace" yaml:"collapse_whitespace"`
	Dehyphenate        bool `mapstructure:"dehyphenate" yaml:"dehyphenate"`
}

// DefaultPostprocessConfig enables every correction.
func DefaultPostprocessConfig() PostprocessConfig {
	return PostprocessConfig{
		StripControl:       true,
		ExpandLigatures:    true,
		Normalize:          true,
		CollapseWhitespace: true,
		Dehyphenate:        true,
	}
}

var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "st",
	"ﬆ", "st",
)

var (
	spaceRun = regexp.MustCompile(`[ \t\x{00A0}]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// Postprocess applies the enabled corrections. The order matters: control
// characters and ligatures go before NFC so normalization sees the final
// code points, and de-hyphenation runs on trimmed lines. With the default
// configuration the function is idempotent.
func Postprocess(text string, cfg PostprocessConfig) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if cfg.StripControl {
		text = strings.Map(func(r rune) rune {
			if r == '\n' || r == '\t' {
				return r
			}
			if unicode.IsControl(r) || r == unicode.ReplacementChar || unicode.Is(unicode.Co, r) {
				return -1
			}
			return r
		}, text)
	}
	if cfg.ExpandLigatures {
		text = ligatures.Replace(text)
	}
	if cfg.Normalize {
		text = norm.NFC.String(text)
	}
	lines := strings.Split(text, "\n")
	if cfg.CollapseWhitespace {
		for i, l := range lines {
			lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
		}
	}
	if cfg.Dehyphenate {
		lines = dehyphenate(lines)
	}
	text = strings.Join(lines, "\n")
	if cfg.CollapseWhitespace {
		text = blankRun.ReplaceAllString(text, "\n\n")
		text = strings.Trim(text, "\n")
	}
	return text
}

// dehyphenate joins a line ending in letter+hyphen with the following line
// when that one starts with a lowercase letter.
func dehyphenate(lines []string) []string {
	if len(lines) < 2 {
		return lines
	}
	out := make([]string, 0, len(lines))
	cur := lines[0]
	for _, next := range lines[1:] {
		if hyphenatedEnd(cur) && lowerStart(next) {
			cur = cur[:len(cur)-1] + next
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

func hyphenatedEnd(s string) bool {
	if !strings.HasSuffix(s, "-") {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:len(s)-1])
	return unicode.IsLetter(r)
}

func lowerStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}
