package models

import "time"

// ToolRecord is one executed (or rejected) tool call in a session transcript.
// Records are append-only; the post-hoc auditor works over this log rather
// than over live state.
type ToolRecord struct {
	Seq    int            `json:"seq"`
	Tool   string         `json:"tool"`
	Intent string         `json:"intent"`
	Args   map[string]any `json:"args,omitempty"`
	Output string         `json:"output,omitempty"`

	// Total is the reported match volume for count/search calls.
	Total int `json:"total,omitempty"`
	// Limit is the requested result limit for search calls.
	Limit int `json:"limit,omitempty"`
	// DocIDs are document identifiers surfaced by this call.
	DocIDs []string `json:"doc_ids,omitempty"`
	// ReadIDs are documents fully read (and ledgered) by this call.
	ReadIDs []string `json:"read_ids,omitempty"`
	// Err is set when the call was rejected or failed; the session continues.
	Err string `json:"err,omitempty"`
}

// CitationStatus is the verification verdict for a citation.
type CitationStatus string

const (
	CitationPending      CitationStatus = "pending"
	CitationVerified     CitationStatus = "verified"
	CitationUnverified   CitationStatus = "unverified"
	CitationContradicted CitationStatus = "contradicted"
)

// Citation is a structured evidence object extracted from the final answer.
// The JSON field names match the evidence objects the model embeds in answer
// text. Only Status and Note are mutated after extraction.
type Citation struct {
	SourceDocID string         `json:"source_doc_id"`
	PageNumber  string         `json:"page_number"`
	Quote       string         `json:"exact_quote_snippet"`
	Status      CitationStatus `json:"status,omitempty"`
	// NoLedgerEntry is set at extraction time when the cited document was
	// never read in full during the session. Such citations can never verify.
	NoLedgerEntry bool   `json:"no_ledger_entry,omitempty"`
	Note          string `json:"note,omitempty"`
}

// Compliance is the auditor's verdict on a finished session transcript.
type Compliance struct {
	DeepSweepRequired  bool     `json:"deep_sweep_required"`
	DeepSweepCompliant bool     `json:"deep_sweep_compliant"`
	SweepTotal         int      `json:"sweep_total,omitempty"`
	BatchReads         int      `json:"batch_reads,omitempty"`
	Rationale          string   `json:"rationale,omitempty"`
	UnconfirmedLeads   []string `json:"unconfirmed_leads,omitempty"`
	Notes              []string `json:"notes,omitempty"`
}

// Session is one investigation: the tool call transcript, the set of
// fully-read documents, the answer, and the verification outcome. Durability
// is owned by callers; the core only builds it.
type Session struct {
	ID              string      `json:"id"`
	Question        string      `json:"question"`
	StartedAt       time.Time   `json:"started_at"`
	Transcript      []ToolRecord `json:"transcript"`
	ReadDocIDs      []string    `json:"read_doc_ids"`
	Answer          string      `json:"answer"`
	Partial         bool        `json:"partial"`
	Rounds          int         `json:"rounds"`
	Citations       []Citation  `json:"citations"`
	NegativeResults []string    `json:"negative_results"`
	Compliance      *Compliance `json:"compliance,omitempty"`
}
