package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/bates"
	"github.com/casefile/inquest/internal/citations"
	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/ledger"
	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/tooling"
)

// State is the investigation loop's explicit machine state.
type State int

const (
	StateAwaitingModel State = iota
	StateValidating
	StateExecuting
	StateAnswering
	StateDone
	StateBudgetExceeded
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateValidating:
		return "validating"
	case StateExecuting:
		return "executing"
	case StateAnswering:
		return "answering"
	case StateDone:
		return "done"
	case StateBudgetExceeded:
		return "budget_exceeded"
	}
	return "unknown"
}

// forcedReadRounds bounds how many correction rounds may be spent reading
// documents the answer cited without a ledger entry.
const forcedReadRounds = 2

// Loop drives one investigation session: model turns in, validated tool calls
// out, enforcement rounds when the model tries to shortcut the discipline.
type Loop struct {
	model     ModelClient
	corpus    corpus.Adapter
	validator *tooling.Validator
	scheme    *bates.Scheme
	cfg       config.AgentConfig
	logger    *zap.Logger
}

// NewLoop returns a Loop. The scheme is used to spot Bates numbers named in
// answer prose without an evidence object; those fall under read-before-cite
// just like structured citations.
func NewLoop(model ModelClient, adapter corpus.Adapter, validator *tooling.Validator, scheme *bates.Scheme, cfg config.AgentConfig, logger *zap.Logger) *Loop {
	return &Loop{model: model, corpus: adapter, validator: validator, scheme: scheme, cfg: cfg, logger: logger}
}

// Run investigates one question to completion. The returned session and
// ledger are populated even on budget exhaustion (partial answer) and on
// cancellation (transcript and ledger intact); only model or corpus
// unavailability returns an error alongside the partial session.
func (l *Loop) Run(ctx context.Context, question string) (*models.Session, *ledger.Ledger, error) {
	session := &models.Session{
		ID:        uuid.New().String(),
		Question:  question,
		StartedAt: time.Now(),
	}
	led := ledger.New()
	exec := NewExecutor(l.corpus, led, session, l.cfg.MaxToolOutputChars, l.logger)
	tracker := newSweepTracker(l.cfg.DeepSweep)

	conv, err := l.model.StartConversation(ctx, systemPrompt(l.cfg))
	if err != nil {
		return session, led, err
	}

	state := StateAwaitingModel
	turn, err := conv.Send(ctx, questionPrompt(question))
	if err != nil {
		return session, led, err
	}

	var (
		seq            int
		lastAnswer     string
		sweepRetries   int
		quoteFailures  int
		forcedReads    int
		readFloorAsked bool
	)

	for round := 0; round < l.cfg.MaxRounds; round++ {
		session.Rounds = round + 1

		if len(turn.Calls) > 0 {
			state = StateValidating
			results := make([]ToolResult, 0, len(turn.Calls))
			for _, inv := range turn.Calls {
				seq++
				call, verr := l.validator.Validate(inv.Name, inv.Args)
				if verr != nil {
					exec.RecordRejection(seq, inv.Name, verr)
					results = append(results, ToolResult{
						Name: inv.Name, Output: verr.Error(), IsError: true,
					})
					continue
				}
				call.Seq = seq

				state = StateExecuting
				output, xerr := exec.Execute(ctx, call)
				if xerr != nil {
					return session, led, xerr
				}
				tracker.Observe(&session.Transcript[len(session.Transcript)-1])
				results = append(results, ToolResult{Name: inv.Name, Output: output})
			}

			state = StateAwaitingModel
			turn, err = conv.SendToolResults(ctx, results)
			if err != nil {
				return session, led, err
			}
			continue
		}

		// No tool calls: the model is attempting a final answer.
		state = StateAnswering
		answer := turn.Text
		lastAnswer = answer

		rationale, hasRationale := hasSweepRationale(answer)
		if tracker.Required() && !tracker.Satisfied() && !hasRationale && sweepRetries < l.cfg.DeepSweep.MaxRetries {
			sweepRetries++
			l.logger.Info("deep sweep enforcement round",
				zap.String("session", session.ID), zap.Int("volume", tracker.maxTotal))
			turn, err = conv.Send(ctx, sweepCorrection(tracker))
			if err != nil {
				return session, led, err
			}
			continue
		}

		cits := citations.Extract(answer, led.Has)

		if unread := l.unreadReferences(answer, cits, led); len(unread) > 0 && forcedReads < forcedReadRounds {
			forcedReads++
			l.logger.Info("forcing verification reads",
				zap.String("session", session.ID), zap.Strings("docs", unread))
			for _, id := range unread {
				seq++
				call := &tooling.Call{
					Seq:    seq,
					Name:   tooling.ToolRead,
					Intent: "verification read of a document cited without a prior full read",
					Read:   &tooling.ReadArgs{DocID: id},
				}
				if _, xerr := exec.Execute(ctx, call); xerr != nil {
					return session, led, xerr
				}
			}
			cits = citations.Extract(answer, led.Has)
		}

		if failed := failedQuotes(cits, led); len(failed) > 0 && quoteFailures < l.cfg.MaxQuoteFailures {
			quoteFailures++
			turn, err = conv.Send(ctx, quoteCorrection(failed))
			if err != nil {
				return session, led, err
			}
			continue
		}

		if led.Len() < l.cfg.MinFullReads && !readFloorAsked {
			readFloorAsked = true
			turn, err = conv.Send(ctx, fmt.Sprintf(
				"Your answer rests on %d full document reads; at least %d are required. Read the most relevant documents in full, then answer again.",
				led.Len(), l.cfg.MinFullReads))
			if err != nil {
				return session, led, err
			}
			continue
		}

		session.Answer = answer
		session.Citations = cits
		session.Compliance = Audit(session, l.cfg.DeepSweep, l.scheme)
		if hasRationale {
			session.Compliance.Rationale = rationale
		}
		state = StateDone
		l.logger.Info("session complete",
			zap.String("session", session.ID),
			zap.String("state", state.String()),
			zap.Int("rounds", session.Rounds),
			zap.Int("reads", led.Len()),
			zap.Int("citations", len(cits)))
		return session, led, nil
	}

	// Round budget exhausted: terminal with a best-effort partial answer.
	state = StateBudgetExceeded
	session.Partial = true
	session.Answer = partialAnswer(lastAnswer)
	session.Citations = citations.Extract(session.Answer, led.Has)
	session.Compliance = Audit(session, l.cfg.DeepSweep, l.scheme)
	session.Compliance.Notes = append(session.Compliance.Notes,
		fmt.Sprintf("round budget of %d exhausted; answer is partial", l.cfg.MaxRounds))
	l.logger.Warn("session budget exceeded",
		zap.String("session", session.ID), zap.String("state", state.String()))
	return session, led, nil
}

// unreadReferences returns the distinct doc IDs the answer relies on without
// a ledger entry: structured citations flagged at extraction time, plus Bates
// numbers named anywhere in the answer text.
func (l *Loop) unreadReferences(answer string, cits []models.Citation, led *ledger.Ledger) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range cits {
		if c.NoLedgerEntry && c.SourceDocID != "" && !seen[c.SourceDocID] {
			seen[c.SourceDocID] = true
			out = append(out, c.SourceDocID)
		}
	}
	if l.scheme != nil {
		for _, id := range l.scheme.FindAll(answer) {
			if !seen[id] && !led.Has(id) {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// failedQuotes returns citations whose quote does not occur in the ledgered
// text, even under the tolerant comparison.
func failedQuotes(cits []models.Citation, led *ledger.Ledger) []models.Citation {
	var out []models.Citation
	for _, c := range cits {
		if c.NoLedgerEntry || c.Status != models.CitationPending {
			continue
		}
		entry, ok := led.Get(c.SourceDocID)
		if !ok {
			continue
		}
		if !citations.QuoteOccurs(c.Quote, entry.Text) {
			out = append(out, c)
		}
	}
	return out
}

func sweepCorrection(t *sweepTracker) string {
	return fmt.Sprintf(
		"The corpus reported %d matching documents, above the %d-document threshold. Before answering you must either (a) run an expanded search with limit >= %d and read_batch at least %d of the surfaced documents, or (b) include an explicit line starting with \"Sweep rationale:\" explaining why a sweep is unnecessary. Continue the investigation.",
		t.maxTotal, t.cfg.CountThreshold, t.requiredLimit(), t.RecommendedBatch())
}

func quoteCorrection(failed []models.Citation) string {
	var b strings.Builder
	b.WriteString("Quote validation failed. The following exact_quote_snippet values do not occur in the cited documents' text:\n")
	for _, c := range failed {
		fmt.Fprintf(&b, "- %s: %q\n", c.SourceDocID, c.Quote)
	}
	b.WriteString("Quotes must be verbatim from text you retrieved with read or read_batch. Correct the quotes or remove the claims, then answer again.")
	return b.String()
}

func partialAnswer(last string) string {
	if last == "" {
		return "PARTIAL: the investigation exhausted its round budget before reaching a final answer."
	}
	return "PARTIAL (round budget exhausted): " + last
}

func questionPrompt(question string) string {
	return "Investigate the following question against the document corpus and answer it with cited evidence.\n\nQuestion: " + question
}

// systemPrompt states the evidence discipline. The enforcement rounds exist
// because models drift from these rules, not instead of them.
func systemPrompt(cfg config.AgentConfig) string {
	return fmt.Sprintf(`You are an evidence-disciplined investigator working a fixed document corpus through five tools: count, search, read, read_batch, list.

Rules:
1. Every tool call must include an "intent" argument of the form <intent>one sentence of justification</intent> (at most %d characters inside the wrapper).
2. Search fragments are for triage only. Before quoting a document you must retrieve it in full with read or read_batch. Answer only after at least %d full reads.
3. Every factual claim in your final answer must be followed by a JSON evidence object on its own line: {"source_doc_id": "...", "page_number": "...", "exact_quote_snippet": "..."}. The snippet must be verbatim from retrieved text.
4. When a count or search reports more than %d matches, either sweep the volume (expanded search, then read_batch across the surfaced documents) or state a line starting with "Sweep rationale:" explaining why the extra volume cannot change the answer.
5. Report negative findings explicitly: terms you searched that produced nothing useful belong in the answer.
6. Results marked [NEAR-DUPLICATE] repeat content you have already seen; do not count them as independent corroboration.`,
		cfg.MaxIntentChars, cfg.MinFullReads, cfg.DeepSweep.CountThreshold)
}
