package agent

import (
	"fmt"
	"strings"

	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/pkg/utils"
)

// renderCount formats a count result for the model.
func renderCount(terms []string, cooccur bool, total int) string {
	mode := "any term"
	if cooccur {
		mode = "all terms"
	}
	return fmt.Sprintf("COUNT: %d documents match [%s] (%s).", total, strings.Join(terms, ", "), mode)
}

// renderSearch formats search results. The partial-view line is what triggers
// the model (and the auditor) to notice unswept volume.
func renderSearch(res *models.SearchResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SEARCH: %d total matches for [%s], showing %d.\n",
		res.Total, strings.Join(res.Terms, ", "), len(res.Hits))
	for _, hit := range res.Hits {
		fmt.Fprintf(&b, "- %s", hit.DocID)
		if hit.Name != "" && hit.Name != hit.DocID {
			fmt.Fprintf(&b, " (%s)", hit.Name)
		}
		if hit.Pages > 0 {
			fmt.Fprintf(&b, ", %d pages", hit.Pages)
		}
		if hit.Duplicate {
			fmt.Fprintf(&b, " [NEAR-DUPLICATE of %s]", hit.DuplicateOf)
		}
		b.WriteByte('\n')
		for _, frag := range hit.Fragments {
			fmt.Fprintf(&b, "    %s\n", frag)
		}
	}
	if res.Total > len(res.Hits) {
		fmt.Fprintf(&b, "PARTIAL VIEW: %d further matches not shown. Fragments are never citable; read documents in full before quoting.\n",
			res.Total-len(res.Hits))
	}
	return b.String()
}

// renderRead formats a full-document read.
func renderRead(res *models.ReadResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "READ %s", res.DocID)
	if res.Name != "" && res.Name != res.DocID {
		fmt.Fprintf(&b, " (%s)", res.Name)
	}
	if res.Pages > 0 {
		fmt.Fprintf(&b, ", %d pages", res.Pages)
	}
	if res.Link != "" {
		fmt.Fprintf(&b, ", %s", res.Link)
	}
	b.WriteByte('\n')
	if res.Truncated {
		fmt.Fprintf(&b, "[TRUNCATED: showing %d of %d characters]\n", len(res.Text), res.TotalChars)
	}
	b.WriteString(utils.Sanitize(res.Text))
	b.WriteByte('\n')
	return b.String()
}

// renderBatch formats a batch read, item by item in request order.
func renderBatch(res *models.BatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "READ_BATCH: %d requested, %d read.\n", res.Requested, res.Read)
	if res.Exhausted {
		b.WriteString("[BUDGET EXHAUSTED: some documents are truncated]\n")
	}
	for _, it := range res.Items {
		if it.NotFound {
			fmt.Fprintf(&b, "=== %s: NOT FOUND ===\n", it.DocID)
			continue
		}
		fmt.Fprintf(&b, "=== %s", it.DocID)
		if it.Name != "" && it.Name != it.DocID {
			fmt.Fprintf(&b, " (%s)", it.Name)
		}
		if it.Truncated {
			b.WriteString(" [TRUNCATED]")
		}
		b.WriteString(" ===\n")
		b.WriteString(utils.Sanitize(it.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

// renderList formats a name listing.
func renderList(res *models.ListResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LIST: %d documents.\n", len(res.Names))
	for _, name := range res.Names {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}
