package models

// SearchHit is one search result: a document identifier, highlight fragments
// around the match, and a duplicate annotation from the fingerprint detector.
// Fragments are for triage only and are never sufficient for citation.
type SearchHit struct {
	DocID       string   `json:"doc_id"`
	Name        string   `json:"name"`
	Pages       int      `json:"pages"`
	Size        int64    `json:"size"`
	Link        string   `json:"link,omitempty"`
	Fragments   []string `json:"fragments,omitempty"`
	Duplicate   bool     `json:"duplicate,omitempty"`
	DuplicateOf string   `json:"duplicate_of,omitempty"`
}

// SearchResults is the outcome of one search round. It is ephemeral: only the
// terms and total are retained in the session transcript.
type SearchResults struct {
	Terms []string     `json:"terms"`
	Total int          `json:"total"`
	Hits  []*SearchHit `json:"hits"`
}

// ReadResult is a full-document read. Truncated is set when the text was cut
// to a character budget; the omission is always signaled, never silent.
type ReadResult struct {
	DocID      string `json:"doc_id"`
	Name       string `json:"name"`
	Pages      int    `json:"pages"`
	Size       int64  `json:"size"`
	Link       string `json:"link,omitempty"`
	Text       string `json:"text"`
	Truncated  bool   `json:"truncated"`
	TotalChars int    `json:"total_chars"`
}

// BatchItem is one document's outcome within a batch read. NotFound items are
// reported per-item so the rest of the batch still resolves.
type BatchItem struct {
	DocID     string `json:"doc_id"`
	Name      string `json:"name,omitempty"`
	Pages     int    `json:"pages,omitempty"`
	Text      string `json:"text,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	NotFound  bool   `json:"not_found,omitempty"`
}

// BatchResult is the outcome of a batch read sharing one character budget.
type BatchResult struct {
	Items     []*BatchItem `json:"items"`
	Requested int          `json:"requested"`
	Read      int          `json:"read"`
	Exhausted bool         `json:"exhausted"` // character budget ran out before all items
}

// ListResult is a filename listing for a query.
type ListResult struct {
	Names []string     `json:"names"`
	Hits  []*SearchHit `json:"hits,omitempty"`
}
