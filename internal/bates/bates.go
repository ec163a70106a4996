// Package bates provides Bates-number document identifiers for a legal
// production set. A Bates number is a fixed prefix followed by a fixed number
// of digits (e.g. EFTA00001234) stamped on each produced document; it is the
// primary key for every document in the corpus.
package bates

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

const fallbackPrefix = "doc:"

// Scheme describes the Bates numbering convention of a production set.
type Scheme struct {
	Prefix string
	Digits int

	exact *regexp.Regexp
	loose *regexp.Regexp
}

// NewScheme builds a Scheme for the given prefix and digit count.
func NewScheme(prefix string, digits int) *Scheme {
	quoted := regexp.QuoteMeta(strings.ToUpper(prefix))
	return &Scheme{
		Prefix: strings.ToUpper(prefix),
		Digits: digits,
		exact:  regexp.MustCompile(`^` + quoted + `\d{` + itoa(digits) + `}$`),
		loose:  regexp.MustCompile(`\b` + quoted + `\d{` + itoa(digits) + `}\b`),
	}
}

func itoa(n int) string {
	if n <= 0 {
		return "0"
	}
	var b [8]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

// Normalize strips any directory and file extension from value and upcases
// the remainder, so "data/efta00001234.pdf" becomes "EFTA00001234".
func (s *Scheme) Normalize(value string) string {
	base := filepath.Base(strings.TrimSpace(value))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToUpper(base)
}

// Matches reports whether value (after Normalize) is a well-formed Bates
// number under this scheme.
func (s *Scheme) Matches(value string) bool {
	return s.exact.MatchString(s.Normalize(value))
}

// FindAll returns every Bates number mentioned in text, in order of first
// appearance, without duplicates.
func (s *Scheme) FindAll(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range s.loose.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// DocID returns the document identifier for a corpus file. Files named by
// Bates number (under any extension) use the number itself; anything else gets
// a stable hash of its cleaned path so re-ingesting the same file always
// yields the same ID.
func (s *Scheme) DocID(path string) string {
	if stem := s.Normalize(path); s.exact.MatchString(stem) {
		return stem
	}
	cleaned := filepath.Clean(path)
	sum := sha256.Sum256([]byte(cleaned))
	return fallbackPrefix + hex.EncodeToString(sum[:])
}
