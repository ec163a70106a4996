// Package utils provides shared utilities for text and logging.
package utils

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// Sanitize strips control characters (everything below 0x20 except tab,
// newline and carriage return) from s. OCR output and model text can both
// carry stray control bytes that break terminal and JSON output.
func Sanitize(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// CompactWhitespace collapses all whitespace runs in s to single spaces and
// trims the result.
func CompactWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ClampInt bounds v to [min, max].
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
