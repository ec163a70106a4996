package citations

import "strings"

// ocrFold maps characters that OCR and word processors routinely confuse onto
// canonical forms so a faithful quote still matches imperfect extracted text.
var ocrFold = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'",
	"“", `"`, "”", `"`, "„", `"`,
	"–", "-", "—", "-", "−", "-",
	" ", " ",
	"ﬁ", "fi", "ﬂ", "fl",
	"…", "...",
)

// QuoteOccurs reports whether quote occurs in text, verbatim or under the
// tolerant comparison (case, whitespace, and OCR character folding).
func QuoteOccurs(quote, text string) bool {
	if quote == "" {
		return false
	}
	if strings.Contains(text, quote) {
		return true
	}
	return strings.Contains(normalize(text), normalize(quote))
}

// normalize lowercases, folds OCR confusables, and strips all whitespace so
// line breaks and hyphenation artifacts in extraction cannot defeat a match.
func normalize(s string) string {
	s = ocrFold.Replace(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
