// Package cli renders investigation output for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// WriteSession writes a finished investigation session to w.
func WriteSession(w io.Writer, s *models.Session, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	writeSessionText(w, s)
	return nil
}

func writeSessionText(w io.Writer, s *models.Session) {
	fmt.Fprintf(w, "Question: %s\n", s.Question)
	if s.Partial {
		fmt.Fprintln(w, "(partial: the round budget ran out before a final answer)")
	}
	fmt.Fprintf(w, "\n%s\n", s.Answer)

	if len(s.Citations) > 0 {
		fmt.Fprintf(w, "\nCitations (%d):\n", len(s.Citations))
		for _, c := range s.Citations {
			status := string(c.Status)
			if status == "" {
				status = string(models.CitationPending)
			}
			fmt.Fprintf(w, "  [%s] %s p.%s: %q\n", status, c.SourceDocID, c.PageNumber,
				utils.Truncate(c.Quote, 120))
			if c.Note != "" {
				fmt.Fprintf(w, "           note: %s\n", c.Note)
			}
		}
	}

	if len(s.NegativeResults) > 0 {
		fmt.Fprintln(w, "\nNegative findings:")
		for _, n := range s.NegativeResults {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}

	if comp := s.Compliance; comp != nil {
		fmt.Fprintln(w, "\nCompliance:")
		if comp.DeepSweepRequired {
			fmt.Fprintf(w, "  deep sweep: required, compliant=%t (volume %d, batch reads %d)\n",
				comp.DeepSweepCompliant, comp.SweepTotal, comp.BatchReads)
			if comp.Rationale != "" {
				fmt.Fprintf(w, "  sweep rationale: %s\n", comp.Rationale)
			}
		} else {
			fmt.Fprintln(w, "  deep sweep: not required")
		}
		for _, lead := range comp.UnconfirmedLeads {
			fmt.Fprintf(w, "  unconfirmed lead: %s\n", lead)
		}
		for _, note := range comp.Notes {
			fmt.Fprintf(w, "  note: %s\n", note)
		}
	}

	fmt.Fprintf(w, "\nRounds: %d, documents read in full: %d\n", s.Rounds, len(s.ReadDocIDs))
}

// WriteSearchResults writes direct (non-agent) search results to w.
func WriteSearchResults(w io.Writer, r *models.SearchResults, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(w, "%d documents match %v (showing %d)\n\n", r.Total, r.Terms, len(r.Hits))
	for _, hit := range r.Hits {
		fmt.Fprintf(w, "%s  %s  (%d pages, %d bytes)", hit.DocID, hit.Name, hit.Pages, hit.Size)
		if hit.Duplicate {
			fmt.Fprintf(w, "  [near-duplicate of %s]", hit.DuplicateOf)
		}
		fmt.Fprintln(w)
		for _, frag := range hit.Fragments {
			fmt.Fprintf(w, "    ...%s...\n", utils.CompactWhitespace(frag))
		}
	}
	return nil
}
