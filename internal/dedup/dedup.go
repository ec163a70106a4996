// Package dedup flags near-duplicate documents in search results so repeated
// boilerplate (form letters, re-productions) does not read as corroboration.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/casefile/inquest/internal/models"
)

// Fingerprinter reduces document content to a short fingerprint. Documents
// with equal fingerprints are treated as near-duplicates of each other.
type Fingerprinter interface {
	Fingerprint(content string) string
}

// PrefixFingerprinter hashes a normalized prefix of the content. Whitespace is
// stripped and the text lowercased before hashing, so trivial formatting
// differences between productions of the same document collapse.
type PrefixFingerprinter struct {
	// PrefixChars is how much of the document participates in the hash.
	PrefixChars int
}

// NewPrefixFingerprinter returns a fingerprinter over the first 500 characters.
func NewPrefixFingerprinter() *PrefixFingerprinter {
	return &PrefixFingerprinter{PrefixChars: 500}
}

// Fingerprint returns a 12-hex-char digest of the normalized content prefix.
// Empty content yields an empty fingerprint, which never matches anything.
func (f *PrefixFingerprinter) Fingerprint(content string) string {
	prefix := content
	if len(prefix) > f.PrefixChars {
		prefix = prefix[:f.PrefixChars]
	}
	var b strings.Builder
	b.Grow(len(prefix))
	for _, r := range strings.ToLower(prefix) {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return ""
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:12]
}

// Detector annotates search hits with duplicate flags.
type Detector struct {
	fp Fingerprinter
}

// NewDetector returns a Detector using the given fingerprinter.
func NewDetector(fp Fingerprinter) *Detector {
	return &Detector{fp: fp}
}

// Annotate marks every hit whose fingerprint was already seen earlier in the
// slice as a duplicate of the first occurrence. The first hit of each group is
// never flagged. contentOf resolves a hit to its full text; hits it cannot
// resolve are left unflagged. Annotate is idempotent.
func (d *Detector) Annotate(hits []*models.SearchHit, contentOf func(docID string) (string, bool)) {
	firstSeen := make(map[string]string, len(hits))
	for _, hit := range hits {
		hit.Duplicate = false
		hit.DuplicateOf = ""

		content, ok := contentOf(hit.DocID)
		if !ok {
			continue
		}
		fp := d.fp.Fingerprint(content)
		if fp == "" {
			continue
		}
		if origin, seen := firstSeen[fp]; seen {
			if origin != hit.DocID {
				hit.Duplicate = true
				hit.DuplicateOf = origin
			}
			continue
		}
		firstSeen[fp] = hit.DocID
	}
}
