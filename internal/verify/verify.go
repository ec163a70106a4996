// Package verify runs the post-answer verification pass: every citation is
// tested against the read ledger, independently and with no early exit.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/casefile/inquest/internal/citations"
	"github.com/casefile/inquest/internal/ledger"
	"github.com/casefile/inquest/internal/models"
)

// Verdict is the outcome of an independent model assessment of a failed quote.
type Verdict string

const (
	// VerdictAbsent: the quoted claim is simply not in the text.
	VerdictAbsent Verdict = "absent"
	// VerdictContradicted: the text states the opposite of the claim.
	VerdictContradicted Verdict = "contradicted"
)

// Evaluator independently assesses a quote against document text. Optional:
// without one, failed quotes stay unverified and are never contradicted.
type Evaluator interface {
	Assess(ctx context.Context, quote, docText string) (Verdict, error)
}

// Verifier finalizes citation statuses on a session.
type Verifier struct {
	evaluator Evaluator
	logger    *zap.Logger
}

// New returns a Verifier. evaluator may be nil.
func New(evaluator Evaluator, logger *zap.Logger) *Verifier {
	return &Verifier{evaluator: evaluator, logger: logger}
}

// Run verifies every pending citation on the session against the ledger and
// appends a summary to the session's compliance notes. Claim text is never
// altered; only citation statuses and notes change. Citations are verified
// independently and in parallel over read-only ledger access.
func (v *Verifier) Run(ctx context.Context, session *models.Session, led *ledger.Ledger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range session.Citations {
		cit := &session.Citations[i]
		if cit.Status != models.CitationPending {
			continue
		}
		g.Go(func() error {
			v.verifyOne(gctx, cit, led)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var verified, unverified, contradicted int
	for _, c := range session.Citations {
		switch c.Status {
		case models.CitationVerified:
			verified++
		case models.CitationContradicted:
			contradicted++
		default:
			unverified++
		}
	}
	if session.Compliance != nil {
		session.Compliance.Notes = append(session.Compliance.Notes, fmt.Sprintf(
			"verification: %d verified, %d unverified, %d contradicted of %d citations",
			verified, unverified, contradicted, len(session.Citations)))
	}
	v.logger.Info("verification pass complete",
		zap.String("session", session.ID),
		zap.Int("verified", verified),
		zap.Int("unverified", unverified),
		zap.Int("contradicted", contradicted))
	return nil
}

func (v *Verifier) verifyOne(ctx context.Context, cit *models.Citation, led *ledger.Ledger) {
	if cit.NoLedgerEntry {
		cit.Status = models.CitationUnverified
		cit.Note = "cited document was never read in full during the session"
		return
	}
	entry, ok := led.Get(cit.SourceDocID)
	if !ok {
		cit.Status = models.CitationUnverified
		cit.NoLedgerEntry = true
		cit.Note = "no ledger entry for cited document"
		return
	}

	if citations.QuoteOccurs(cit.Quote, entry.Text) {
		cit.Status = models.CitationVerified
		return
	}

	if v.evaluator != nil {
		verdict, err := v.evaluator.Assess(ctx, cit.Quote, entry.Text)
		if err == nil && verdict == VerdictContradicted {
			cit.Status = models.CitationContradicted
			cit.Note = "ledgered text contradicts the quoted claim"
			return
		}
		if err != nil {
			v.logger.Warn("evaluator failed; leaving citation unverified",
				zap.String("doc", cit.SourceDocID), zap.Error(err))
		}
	}

	cit.Status = models.CitationUnverified
	cit.Note = "quote not found in ledgered text"
	if entry.Truncated {
		cit.Note += " (ledger entry was truncated at read time)"
	}
}

// ModelEvaluator implements Evaluator over a one-shot text generator.
type ModelEvaluator struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewModelEvaluator wraps a generation function (typically the model client's
// Generate method).
func NewModelEvaluator(generate func(ctx context.Context, prompt string) (string, error)) *ModelEvaluator {
	return &ModelEvaluator{generate: generate}
}

// Assess asks the model whether the document text merely lacks the quote or
// actively contradicts it. Anything but a clear CONTRADICTED reads as absent.
func (m *ModelEvaluator) Assess(ctx context.Context, quote, docText string) (Verdict, error) {
	const maxContext = 8000
	if len(docText) > maxContext {
		docText = docText[:maxContext]
	}
	prompt := fmt.Sprintf(`A quote was cited from a document but could not be located in its text.

Quote: %q

Document text:
%s

Answer with exactly one word. CONTRADICTED if the document states the opposite of the quoted claim; ABSENT otherwise.`, quote, docText)

	resp, err := m.generate(ctx, prompt)
	if err != nil {
		return VerdictAbsent, err
	}
	if strings.Contains(strings.ToUpper(resp), "CONTRADICTED") {
		return VerdictContradicted, nil
	}
	return VerdictAbsent, nil
}
