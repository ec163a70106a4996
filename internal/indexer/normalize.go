package indexer

import "strings"

// NormalizeText cleans extracted text for storage. Line and page structure is
// preserved (quotes are checked against this text verbatim); only line endings,
// NUL bytes, and trailing per-line whitespace are normalized.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
