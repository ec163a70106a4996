// Package citations extracts structured evidence objects from answer text and
// tests quoted snippets against ledgered document text.
package citations

import (
	"encoding/json"
	"strings"

	"github.com/casefile/inquest/internal/models"
)

const evidenceKey = `"source_doc_id"`

// Extract scans free text for embedded JSON evidence objects of the form
// {"source_doc_id": ..., "page_number": ..., "exact_quote_snippet": ...}.
// Objects that mention the evidence key but fail to parse yield an unverified
// citation with a diagnostic note rather than being dropped silently.
// hasLedger reports whether a document was read in full this session; the
// result is recorded on each citation at extraction time.
func Extract(text string, hasLedger func(docID string) bool) []models.Citation {
	var out []models.Citation
	seenAt := make(map[int]bool)

	for from := 0; ; {
		k := strings.Index(text[from:], evidenceKey)
		if k < 0 {
			break
		}
		keyPos := from + k
		from = keyPos + len(evidenceKey)

		open := strings.LastIndexByte(text[:keyPos], '{')
		if open < 0 || seenAt[open] {
			continue
		}
		seenAt[open] = true

		cit, ok := decodeEvidence(text[open:])
		if !ok {
			out = append(out, models.Citation{
				Status: models.CitationUnverified,
				Note:   "malformed evidence object",
			})
			continue
		}
		if cit.SourceDocID == "" || cit.Quote == "" {
			cit.Status = models.CitationUnverified
			cit.Note = "evidence object missing source_doc_id or exact_quote_snippet"
			out = append(out, cit)
			continue
		}
		cit.Status = models.CitationPending
		if hasLedger != nil && !hasLedger(cit.SourceDocID) {
			cit.NoLedgerEntry = true
		}
		out = append(out, cit)
	}
	return out
}

// decodeEvidence parses one JSON object starting at the beginning of s.
// page_number may arrive as a string or a number; both are kept as strings
// since pages are opaque labels, not offsets.
func decodeEvidence(s string) (models.Citation, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return models.Citation{}, false
	}

	var cit models.Citation
	if v, ok := obj["source_doc_id"].(string); ok {
		cit.SourceDocID = strings.TrimSpace(v)
	}
	if v, ok := obj["exact_quote_snippet"].(string); ok {
		cit.Quote = v
	}
	switch v := obj["page_number"].(type) {
	case string:
		cit.PageNumber = strings.TrimSpace(v)
	case float64:
		cit.PageNumber = strings.TrimSuffix(strings.TrimSuffix(jsonNumber(v), ".0"), ".00")
	}
	return cit, true
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// CitedDocIDs returns the distinct document IDs referenced by citations, in
// first-citation order.
func CitedDocIDs(cits []models.Citation) []string {
	seen := make(map[string]bool, len(cits))
	var out []string
	for _, c := range cits {
		if c.SourceDocID == "" || seen[c.SourceDocID] {
			continue
		}
		seen[c.SourceDocID] = true
		out = append(out, c.SourceDocID)
	}
	return out
}
