package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/ledger"
	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/tooling"
	"github.com/casefile/inquest/pkg/utils"
)

// Executor runs validated tool calls against the corpus and owns their side
// effects: every full read is ledgered, every call lands in the transcript,
// and zero-hit searches are remembered as negative results.
type Executor struct {
	corpus         corpus.Adapter
	ledger         *ledger.Ledger
	session        *models.Session
	maxOutputChars int
	logger         *zap.Logger
}

// NewExecutor returns an Executor bound to one session.
func NewExecutor(adapter corpus.Adapter, led *ledger.Ledger, session *models.Session, maxOutputChars int, logger *zap.Logger) *Executor {
	return &Executor{
		corpus:         adapter,
		ledger:         led,
		session:        session,
		maxOutputChars: maxOutputChars,
		logger:         logger,
	}
}

// Execute runs one validated call and returns the rendered output for the
// model. Recoverable failures (unknown document) are reported in the output,
// not returned as errors; only corpus unavailability is an error.
func (e *Executor) Execute(ctx context.Context, call *tooling.Call) (string, error) {
	rec := models.ToolRecord{
		Seq:    call.Seq,
		Tool:   call.Name,
		Intent: call.Intent,
	}

	var output string
	var err error
	switch call.Name {
	case tooling.ToolCount:
		output, err = e.execCount(ctx, call.Count, &rec)
	case tooling.ToolSearch:
		output, err = e.execSearch(ctx, call.Search, &rec)
	case tooling.ToolRead:
		output, err = e.execRead(ctx, call.Read, &rec)
	case tooling.ToolReadBatch:
		output, err = e.execReadBatch(ctx, call.ReadBatch, &rec)
	case tooling.ToolList:
		output, err = e.execList(ctx, call.List, &rec)
	default:
		err = fmt.Errorf("unreachable tool %q", call.Name)
	}
	if err != nil {
		rec.Err = err.Error()
		e.session.Transcript = append(e.session.Transcript, rec)
		return "", err
	}

	output = utils.Truncate(output, e.maxOutputChars)
	rec.Output = output
	e.session.Transcript = append(e.session.Transcript, rec)
	e.logger.Debug("tool executed",
		zap.Int("seq", call.Seq),
		zap.String("tool", call.Name),
		zap.Int("total", rec.Total),
		zap.Int("read", len(rec.ReadIDs)))
	return output, nil
}

// RecordRejection logs a call the validator refused so the auditor sees the
// full exchange, not just the successes.
func (e *Executor) RecordRejection(seq int, name string, verr error) {
	e.session.Transcript = append(e.session.Transcript, models.ToolRecord{
		Seq:  seq,
		Tool: name,
		Err:  verr.Error(),
	})
}

func (e *Executor) execCount(ctx context.Context, args *tooling.CountArgs, rec *models.ToolRecord) (string, error) {
	total, err := e.corpus.Count(ctx, corpus.CountRequest{
		Terms: args.Terms, Fuzzy: args.Fuzzy, Cooccur: args.Cooccur,
	})
	if err != nil {
		return "", err
	}
	rec.Total = total
	if total == 0 {
		e.recordNegative(args.Terms)
	}
	return renderCount(args.Terms, args.Cooccur, total), nil
}

func (e *Executor) execSearch(ctx context.Context, args *tooling.SearchArgs, rec *models.ToolRecord) (string, error) {
	res, err := e.corpus.Search(ctx, corpus.SearchRequest{
		Terms:        args.Terms,
		Limit:        args.Limit,
		Fuzzy:        args.Fuzzy,
		Cooccur:      args.Cooccur,
		Exclude:      args.Exclude,
		MinPages:     args.MinPages,
		MaxPages:     args.MaxPages,
		FragmentSize: args.FragmentSize,
		Fragments:    args.Fragments,
	})
	if err != nil {
		return "", err
	}
	rec.Total = res.Total
	rec.Limit = args.Limit
	for _, hit := range res.Hits {
		rec.DocIDs = append(rec.DocIDs, hit.DocID)
	}
	if res.Total == 0 {
		e.recordNegative(args.Terms)
	}
	return renderSearch(res), nil
}

func (e *Executor) execRead(ctx context.Context, args *tooling.ReadArgs, rec *models.ToolRecord) (string, error) {
	res, err := e.corpus.Read(ctx, args.DocID, args.MaxChars)
	if errors.Is(err, corpus.ErrDocumentNotFound) {
		e.session.NegativeResults = append(e.session.NegativeResults,
			fmt.Sprintf("document %s not found", args.DocID))
		return fmt.Sprintf("DOCUMENT NOT FOUND: %s. Verify the identifier against search results.", args.DocID), nil
	}
	if err != nil {
		return "", err
	}
	e.ledgerRead(res.DocID, res.Text, res.Truncated, rec)
	return renderRead(res), nil
}

func (e *Executor) execReadBatch(ctx context.Context, args *tooling.ReadBatchArgs, rec *models.ToolRecord) (string, error) {
	res, err := e.corpus.ReadBatch(ctx, args.DocIDs, args.MaxCharsTotal)
	if err != nil {
		return "", err
	}
	for _, it := range res.Items {
		if it.NotFound {
			e.session.NegativeResults = append(e.session.NegativeResults,
				fmt.Sprintf("document %s not found", it.DocID))
			continue
		}
		e.ledgerRead(it.DocID, it.Text, it.Truncated, rec)
	}
	return renderBatch(res), nil
}

func (e *Executor) execList(ctx context.Context, args *tooling.ListArgs, rec *models.ToolRecord) (string, error) {
	res, err := e.corpus.List(ctx, args.Query, args.Fuzzy)
	if err != nil {
		return "", err
	}
	rec.Total = len(res.Names)
	return renderList(res), nil
}

// ledgerRead writes the read ledger entry and mirrors it on the record and
// the session.
func (e *Executor) ledgerRead(docID, text string, truncated bool, rec *models.ToolRecord) {
	if e.ledger.Record(docID, text, truncated) {
		e.session.ReadDocIDs = append(e.session.ReadDocIDs, docID)
	}
	rec.ReadIDs = append(rec.ReadIDs, docID)
}

func (e *Executor) recordNegative(terms []string) {
	e.session.NegativeResults = append(e.session.NegativeResults,
		fmt.Sprintf("no matches for [%s]", strings.Join(terms, ", ")))
}
