package citations

import (
	"testing"

	"github.com/casefile/inquest/internal/models"
)

func ledgerWith(ids ...string) func(string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestExtract_findsEmbeddedObjects(t *testing.T) {
	answer := `The board approved the transfer.
{"source_doc_id": "EFTA00000001", "page_number": "3", "exact_quote_snippet": "the transfer was approved unanimously"}
A second fact follows. {"source_doc_id": "EFTA00000002", "page_number": 12, "exact_quote_snippet": "balance of 4.2 million"} End.`

	cits := Extract(answer, ledgerWith("EFTA00000001"))
	if len(cits) != 2 {
		t.Fatalf("got %d citations", len(cits))
	}
	if cits[0].SourceDocID != "EFTA00000001" || cits[0].PageNumber != "3" {
		t.Errorf("first citation: %+v", cits[0])
	}
	if cits[0].NoLedgerEntry {
		t.Error("ledgered doc should not carry the no-ledger flag")
	}
	if cits[1].PageNumber != "12" {
		t.Errorf("numeric page should become a string, got %q", cits[1].PageNumber)
	}
	if !cits[1].NoLedgerEntry {
		t.Error("un-ledgered doc must be flagged at extraction time")
	}
	for _, c := range cits {
		if c.Status != models.CitationPending && !c.NoLedgerEntry {
			t.Errorf("well-formed citation status = %q", c.Status)
		}
	}
}

func TestExtract_malformedObjectDowngraded(t *testing.T) {
	answer := `Claim. {"source_doc_id": "EFTA00000001", "exact_quote_snippet": unclosed`
	cits := Extract(answer, nil)
	if len(cits) != 1 {
		t.Fatalf("got %d citations", len(cits))
	}
	if cits[0].Status != models.CitationUnverified || cits[0].Note == "" {
		t.Errorf("malformed object should yield an unverified citation with a note: %+v", cits[0])
	}
}

func TestExtract_missingFields(t *testing.T) {
	answer := `{"source_doc_id": "EFTA00000001", "page_number": "2"}`
	cits := Extract(answer, nil)
	if len(cits) != 1 {
		t.Fatalf("got %d citations", len(cits))
	}
	if cits[0].Status != models.CitationUnverified {
		t.Errorf("missing quote should downgrade, got %+v", cits[0])
	}
}

func TestExtract_noEvidence(t *testing.T) {
	if cits := Extract("No structured evidence here, just prose.", nil); len(cits) != 0 {
		t.Errorf("got %v", cits)
	}
}

func TestCitedDocIDs(t *testing.T) {
	cits := []models.Citation{
		{SourceDocID: "EFTA00000002"},
		{SourceDocID: "EFTA00000001"},
		{SourceDocID: "EFTA00000002"},
		{},
	}
	ids := CitedDocIDs(cits)
	if len(ids) != 2 || ids[0] != "EFTA00000002" || ids[1] != "EFTA00000001" {
		t.Errorf("ids = %v", ids)
	}
}

func TestQuoteOccurs_verbatim(t *testing.T) {
	text := "The transfer was approved unanimously by the board."
	if !QuoteOccurs("approved unanimously", text) {
		t.Error("verbatim quote should match")
	}
	if QuoteOccurs("rejected unanimously", text) {
		t.Error("absent quote should not match")
	}
	if QuoteOccurs("", text) {
		t.Error("empty quote never matches")
	}
}

func TestQuoteOccurs_whitespaceTolerant(t *testing.T) {
	text := "The transfer\nwas   approved\tunanimously by the board."
	if !QuoteOccurs("transfer was approved unanimously", text) {
		t.Error("line breaks in extracted text should not defeat the match")
	}
}

func TestQuoteOccurs_ocrTolerant(t *testing.T) {
	text := `He said “the fund’s balance — as reported — was ﬁnal.”`
	if !QuoteOccurs(`the fund's balance - as reported - was final`, text) {
		t.Error("curly quotes, dashes, and ligatures should fold")
	}
}

func TestQuoteOccurs_caseTolerant(t *testing.T) {
	if !QuoteOccurs("THE BOARD APPROVED", "the board approved the motion") {
		t.Error("case difference should not defeat the match")
	}
}
