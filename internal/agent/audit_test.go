package agent

import (
	"strings"
	"testing"

	"github.com/casefile/inquest/internal/bates"
	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/models"
)

func sweepConfig() config.SweepConfig {
	cfg := config.Config{}
	config.ApplyDefaults(&cfg)
	return cfg.Agent.DeepSweep
}

func testScheme() *bates.Scheme {
	return bates.NewScheme("EFTA", 8)
}

func TestAudit_lowVolumeCompliant(t *testing.T) {
	s := &models.Session{
		Transcript: []models.ToolRecord{
			{Seq: 1, Tool: "search", Total: 5, Limit: 25},
		},
		Answer:          "answer",
		NegativeResults: []string{"no matches for [x]"},
	}
	comp := Audit(s, sweepConfig(), testScheme())
	if comp.DeepSweepRequired {
		t.Error("5 matches should not require a sweep")
	}
	if !comp.DeepSweepCompliant {
		t.Error("low volume is compliant by default")
	}
}

func TestAudit_flagsUnsweptVolume(t *testing.T) {
	s := &models.Session{
		Transcript: []models.ToolRecord{
			{Seq: 1, Tool: "count", Total: 80},
			{Seq: 2, Tool: "search", Total: 80, Limit: 25},
			{Seq: 3, Tool: "read", ReadIDs: []string{"EFTA00000001"}},
		},
		Answer: "confident answer with no rationale",
	}
	comp := Audit(s, sweepConfig(), testScheme())
	if !comp.DeepSweepRequired || comp.DeepSweepCompliant {
		t.Errorf("unswept 80-match volume must be flagged: %+v", comp)
	}
	if comp.SweepTotal != 80 {
		t.Errorf("sweep total = %d", comp.SweepTotal)
	}
	found := false
	for _, n := range comp.Notes {
		if strings.Contains(n, "deep sweep required") {
			found = true
		}
	}
	if !found {
		t.Errorf("notes = %v", comp.Notes)
	}
}

func TestAudit_sweepSatisfiedByExpandedSearchAndBatch(t *testing.T) {
	ids := make([]string, 60)
	for i := range ids {
		ids[i] = "EFTA000000" + string(rune('0'+i%10)) + string(rune('0'+i/10))
	}
	s := &models.Session{
		Transcript: []models.ToolRecord{
			{Seq: 1, Tool: "search", Total: 80, Limit: 25},
			{Seq: 2, Tool: "search", Total: 80, Limit: 100},
			{Seq: 3, Tool: "read_batch", ReadIDs: ids},
		},
		Answer: "swept answer",
	}
	comp := Audit(s, sweepConfig(), testScheme())
	if !comp.DeepSweepRequired {
		t.Fatal("sweep should be required")
	}
	if !comp.DeepSweepCompliant {
		t.Errorf("expanded search plus %d batch reads should satisfy: %+v", len(ids), comp)
	}
	if comp.BatchReads != 60 {
		t.Errorf("batch reads = %d", comp.BatchReads)
	}
}

func TestAudit_rationaleSatisfies(t *testing.T) {
	s := &models.Session{
		Transcript: []models.ToolRecord{
			{Seq: 1, Tool: "search", Total: 200, Limit: 25},
		},
		Answer: "Findings.\nSweep rationale: the volume is one mass mailing, fingerprinted as duplicates.",
	}
	comp := Audit(s, sweepConfig(), testScheme())
	if !comp.DeepSweepCompliant {
		t.Errorf("rationale should satisfy: %+v", comp)
	}
	if !strings.Contains(comp.Rationale, "mass mailing") {
		t.Errorf("rationale = %q", comp.Rationale)
	}
}

func TestAudit_unconfirmedLeads(t *testing.T) {
	s := &models.Session{
		Transcript: []models.ToolRecord{{Seq: 1, Tool: "search", Total: 2, Limit: 25}},
		Answer:     "answer",
		Citations: []models.Citation{
			{SourceDocID: "EFTA00000001"},
			{SourceDocID: "EFTA00000009", NoLedgerEntry: true},
		},
	}
	comp := Audit(s, sweepConfig(), testScheme())
	if len(comp.UnconfirmedLeads) != 1 || comp.UnconfirmedLeads[0] != "EFTA00000009" {
		t.Errorf("unconfirmed leads = %v", comp.UnconfirmedLeads)
	}
}

func TestAudit_proseReferenceWithoutReadIsLead(t *testing.T) {
	s := &models.Session{
		Transcript: []models.ToolRecord{
			{Seq: 1, Tool: "read", ReadIDs: []string{"EFTA00000001"}},
		},
		ReadDocIDs: []string{"EFTA00000001"},
		Answer:     "The approval is recorded in EFTA00000002, consistent with EFTA00000001.",
		Citations: []models.Citation{
			{SourceDocID: "EFTA00000001", Quote: "approved"},
		},
	}
	comp := Audit(s, sweepConfig(), testScheme())
	if len(comp.UnconfirmedLeads) != 1 || comp.UnconfirmedLeads[0] != "EFTA00000002" {
		t.Errorf("unconfirmed leads = %v", comp.UnconfirmedLeads)
	}
	found := false
	for _, n := range comp.Notes {
		if strings.Contains(n, "named in the answer") {
			found = true
		}
	}
	if !found {
		t.Errorf("notes = %v", comp.Notes)
	}

	// Without a scheme the prose scan is skipped.
	comp = Audit(s, sweepConfig(), nil)
	if len(comp.UnconfirmedLeads) != 0 {
		t.Errorf("leads without a scheme = %v", comp.UnconfirmedLeads)
	}
}

func TestSweepTracker_requiredBatchBounds(t *testing.T) {
	cfg := sweepConfig()
	tr := newSweepTracker(cfg)

	tr.maxTotal = 100
	// 30% of 100 is below the minimum batch size.
	if got := tr.requiredBatch(); got != cfg.MinBatchDocs {
		t.Errorf("batch for 100 = %d, want %d", got, cfg.MinBatchDocs)
	}

	tr.maxTotal = 1000
	if got := tr.requiredBatch(); got != cfg.MaxBatchDocs {
		t.Errorf("batch for 1000 = %d, want %d", got, cfg.MaxBatchDocs)
	}

	tr.maxTotal = 30
	if got := tr.requiredBatch(); got != 30 {
		t.Errorf("batch for 30 = %d, want the full volume", got)
	}
}

func TestHasSweepRationale(t *testing.T) {
	if _, ok := hasSweepRationale("plain answer"); ok {
		t.Error("no rationale expected")
	}
	if _, ok := hasSweepRationale("Sweep rationale:   "); ok {
		t.Error("empty rationale must not count")
	}
	r, ok := hasSweepRationale("Findings.\n  sweep RATIONALE: duplicates only.\nEnd.")
	if !ok || r != "duplicates only." {
		t.Errorf("rationale = %q, ok = %v", r, ok)
	}
}
