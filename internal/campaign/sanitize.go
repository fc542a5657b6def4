package campaign

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	strictPolicy = bluemonday.StrictPolicy()

	punctuation = strings.NewReplacer(
		"\u2018", "'", "\u2019", "'", "\u201a", "'",
		"\u201c", `"`, "\u201d", `"`, "\u201e", `"`,
		"\u2013", "-", "\u2014", "-", "\u2026", "...",
		"\u00a0", " ",
	)
)

// Sanitize reduces generated text to what the post editor accepts: no markup, ASCII punctuation,
// decomposed letters without combining marks, nothing outside the basic multilingual plane.
func Sanitize(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = punctuation.Replace(s)
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r > 0xFFFF:
		case unicode.Is(unicode.Mn, r):
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
		case r == unicode.ReplacementChar:
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
