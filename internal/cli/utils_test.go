package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/casefile/inquest/internal/models"
)

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("empty = %v, %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json = %v, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("yaml should be rejected")
	}
}

func TestWriteSession_JSON(t *testing.T) {
	s := &models.Session{
		ID:       "s1",
		Question: "Who signed off?",
		Answer:   "The CFO signed off.",
		Citations: []models.Citation{
			{SourceDocID: "EFTA00000001", PageNumber: "3", Quote: "signed off", Status: models.CitationVerified},
		},
		Compliance: &models.Compliance{DeepSweepCompliant: true},
	}
	var buf bytes.Buffer
	if err := WriteSession(&buf, s, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Session
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ID != "s1" || len(decoded.Citations) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSession_text(t *testing.T) {
	s := &models.Session{
		Question:        "Who signed off?",
		Answer:          "The CFO signed off.",
		ReadDocIDs:      []string{"EFTA00000001"},
		Rounds:          4,
		NegativeResults: []string{"no matches for [kickback]"},
		Citations: []models.Citation{
			{SourceDocID: "EFTA00000001", PageNumber: "3", Quote: "signed off", Status: models.CitationVerified},
			{SourceDocID: "EFTA00000002", Quote: "missing", Status: models.CitationUnverified, Note: "quote not found in ledgered text"},
		},
		Compliance: &models.Compliance{
			DeepSweepRequired:  true,
			DeepSweepCompliant: true,
			SweepTotal:         80,
			BatchReads:         50,
			UnconfirmedLeads:   []string{"EFTA00000009"},
		},
	}
	var buf bytes.Buffer
	if err := WriteSession(&buf, s, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Who signed off?",
		"[verified] EFTA00000001",
		"[unverified] EFTA00000002",
		"quote not found",
		"no matches for [kickback]",
		"unconfirmed lead: EFTA00000009",
		"documents read in full: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	r := &models.SearchResults{
		Terms: []string{"wire transfer"},
		Total: 2,
		Hits: []*models.SearchHit{
			{DocID: "EFTA00000001", Name: "EFTA00000001.pdf", Pages: 3, Fragments: []string{"the  wire   transfer was"}},
			{DocID: "EFTA00000002", Name: "EFTA00000002.pdf", Duplicate: true, DuplicateOf: "EFTA00000001"},
		},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, r, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 documents match") {
		t.Errorf("missing total line:\n%s", out)
	}
	if !strings.Contains(out, "the wire transfer was") {
		t.Errorf("fragment whitespace should be compacted:\n%s", out)
	}
	if !strings.Contains(out, "[near-duplicate of EFTA00000001]") {
		t.Errorf("missing duplicate annotation:\n%s", out)
	}
}
