package dedup

import (
	"strings"
	"testing"

	"github.com/casefile/inquest/internal/models"
)

func TestFingerprint_normalization(t *testing.T) {
	fp := NewPrefixFingerprinter()

	a := fp.Fingerprint("Dear Counsel,\n\nPlease find enclosed the production.")
	b := fp.Fingerprint("DEAR   COUNSEL, PLEASE FIND\tENCLOSED THE PRODUCTION.")
	if a != b {
		t.Errorf("whitespace and case variants should collapse: %q vs %q", a, b)
	}
	if len(a) != 12 {
		t.Errorf("fingerprint length = %d", len(a))
	}

	c := fp.Fingerprint("Entirely different content here.")
	if a == c {
		t.Error("different content should not collide")
	}
}

func TestFingerprint_prefixOnly(t *testing.T) {
	fp := NewPrefixFingerprinter()
	base := strings.Repeat("same boilerplate header. ", 30) // > 500 chars
	a := fp.Fingerprint(base + "unique tail A")
	b := fp.Fingerprint(base + "completely different tail B")
	if a != b {
		t.Error("text beyond the prefix should not affect the fingerprint")
	}
}

func TestFingerprint_empty(t *testing.T) {
	fp := NewPrefixFingerprinter()
	if got := fp.Fingerprint(""); got != "" {
		t.Errorf("empty content fingerprint = %q", got)
	}
	if got := fp.Fingerprint("   \n\t  "); got != "" {
		t.Errorf("whitespace-only content fingerprint = %q", got)
	}
}

func TestAnnotate_flagsLaterOccurrences(t *testing.T) {
	contents := map[string]string{
		"EFTA00000001": "Form letter body, January edition.",
		"EFTA00000002": "form   letter body, january edition.",
		"EFTA00000003": "A unique memo about something else.",
	}
	hits := []*models.SearchHit{
		{DocID: "EFTA00000001"},
		{DocID: "EFTA00000002"},
		{DocID: "EFTA00000003"},
	}

	d := NewDetector(NewPrefixFingerprinter())
	lookup := func(id string) (string, bool) {
		c, ok := contents[id]
		return c, ok
	}
	d.Annotate(hits, lookup)

	if hits[0].Duplicate {
		t.Error("first occurrence should not be flagged")
	}
	if !hits[1].Duplicate || hits[1].DuplicateOf != "EFTA00000001" {
		t.Errorf("second occurrence: dup=%v of=%q", hits[1].Duplicate, hits[1].DuplicateOf)
	}
	if hits[2].Duplicate {
		t.Error("unique document should not be flagged")
	}

	// Idempotent: a second pass yields the same flags.
	d.Annotate(hits, lookup)
	if hits[0].Duplicate || !hits[1].Duplicate || hits[2].Duplicate {
		t.Error("Annotate is not idempotent")
	}
}

func TestAnnotate_unresolvableHitLeftAlone(t *testing.T) {
	hits := []*models.SearchHit{{DocID: "EFTA00000001"}}
	d := NewDetector(NewPrefixFingerprinter())
	d.Annotate(hits, func(string) (string, bool) { return "", false })
	if hits[0].Duplicate {
		t.Error("unresolvable hit should not be flagged")
	}
}
