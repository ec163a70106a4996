package agent

import (
	"fmt"

	"github.com/casefile/inquest/internal/bates"
	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/models"
)

// Audit replays a finished session's transcript and renders a compliance
// verdict. It works purely over the recorded transcript and answer, so it can
// also audit sessions produced elsewhere (or canned transcripts in tests).
// With a scheme, Bates numbers named in answer prose are held to the same
// read-before-cite standard as structured citations.
func Audit(session *models.Session, cfg config.SweepConfig, scheme *bates.Scheme) *models.Compliance {
	tracker := newSweepTracker(cfg)
	for i := range session.Transcript {
		tracker.Observe(&session.Transcript[i])
	}

	comp := &models.Compliance{
		DeepSweepRequired: tracker.Required(),
		SweepTotal:        tracker.maxTotal,
		BatchReads:        tracker.batchReads,
	}

	rationale, hasRationale := hasSweepRationale(session.Answer)
	if hasRationale {
		comp.Rationale = rationale
	}

	switch {
	case !tracker.Required():
		comp.DeepSweepCompliant = true
	case tracker.Satisfied():
		comp.DeepSweepCompliant = true
	case hasRationale:
		comp.DeepSweepCompliant = true
		comp.Notes = append(comp.Notes, "deep sweep declined with explicit rationale")
	default:
		comp.Notes = append(comp.Notes, fmt.Sprintf(
			"deep sweep required at %d observed matches but transcript shows neither an expanded search with batch reads nor a rationale",
			tracker.maxTotal))
	}

	lead := make(map[string]bool)
	for _, c := range session.Citations {
		if c.NoLedgerEntry && c.SourceDocID != "" && !lead[c.SourceDocID] {
			lead[c.SourceDocID] = true
			comp.UnconfirmedLeads = append(comp.UnconfirmedLeads, c.SourceDocID)
		}
	}
	if len(comp.UnconfirmedLeads) > 0 {
		comp.Notes = append(comp.Notes, fmt.Sprintf(
			"%d citation(s) reference documents never read in full; downgraded to unconfirmed leads",
			len(comp.UnconfirmedLeads)))
	}

	if scheme != nil {
		read := make(map[string]bool, len(session.ReadDocIDs))
		for _, id := range session.ReadDocIDs {
			read[id] = true
		}
		proseLeads := 0
		for _, id := range scheme.FindAll(session.Answer) {
			if read[id] || lead[id] {
				continue
			}
			lead[id] = true
			comp.UnconfirmedLeads = append(comp.UnconfirmedLeads, id)
			proseLeads++
		}
		if proseLeads > 0 {
			comp.Notes = append(comp.Notes, fmt.Sprintf(
				"%d document(s) named in the answer without a full read or evidence object; downgraded to unconfirmed leads",
				proseLeads))
		}
	}

	if len(session.NegativeResults) == 0 && len(session.Transcript) > 0 {
		comp.Notes = append(comp.Notes, "no negative results recorded; completeness of the negative-results list is unassessed")
	}

	return comp
}
