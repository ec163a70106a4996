package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"golang.org/x/sync/errgroup"

	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/dedup"
	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/storage"
	"github.com/casefile/inquest/pkg/utils"
)

// ErrDocumentNotFound is returned when an identifier resolves to nothing in
// the corpus. It is recoverable: the loop reports it and continues.
var ErrDocumentNotFound = errors.New("document not found in corpus")

// ErrUnavailable wraps index or store failures that are not the caller's fault.
var ErrUnavailable = errors.New("corpus unavailable")

// CountRequest selects documents by term set.
type CountRequest struct {
	Terms   []string
	Fuzzy   bool
	Cooccur bool
}

// SearchRequest selects and ranks documents by term set with optional filters.
type SearchRequest struct {
	Terms        []string
	Limit        int
	Fuzzy        bool
	Cooccur      bool
	Exclude      []string
	MinPages     int
	MaxPages     int
	FragmentSize int
	Fragments    int
}

// Adapter is the five-operation corpus boundary. Count and Search never
// expose document text beyond highlight fragments; only Read and ReadBatch
// return full text.
type Adapter interface {
	Count(ctx context.Context, req CountRequest) (int, error)
	Search(ctx context.Context, req SearchRequest) (*models.SearchResults, error)
	Read(ctx context.Context, docID string, maxChars int) (*models.ReadResult, error)
	ReadBatch(ctx context.Context, docIDs []string, budget int) (*models.BatchResult, error)
	List(ctx context.Context, query string, fuzzy bool) (*models.ListResult, error)
}

// Corpus implements Adapter over a bleve index and a SQLite document store.
type Corpus struct {
	index    *BleveIndex
	store    storage.Storage
	detector *dedup.Detector
	cfg      config.SearchConfig
	linkBase string
}

// New returns a Corpus over the given index and store.
func New(index *BleveIndex, store storage.Storage, detector *dedup.Detector, cfg config.SearchConfig, linkBase string) *Corpus {
	return &Corpus{index: index, store: store, detector: detector, cfg: cfg, linkBase: linkBase}
}

// Count returns the number of documents matching the term set.
func (c *Corpus) Count(ctx context.Context, req CountRequest) (int, error) {
	q := buildQuery(req.Terms, queryFilter{fuzzy: req.Fuzzy, cooccur: req.Cooccur})
	sr := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := c.index.index.SearchInContext(ctx, sr)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrUnavailable, err)
	}
	return int(res.Total), nil
}

// Search returns up to Limit ranked hits with highlight fragments and
// duplicate annotations. The total reflects all matches, not just the page
// returned.
func (c *Corpus) Search(ctx context.Context, req SearchRequest) (*models.SearchResults, error) {
	limit := c.cfg.DefaultLimit
	if req.Limit > 0 {
		limit = utils.ClampInt(req.Limit, 1, c.cfg.MaxLimit)
	}
	fragSize := c.cfg.FragmentSize
	if req.FragmentSize > 0 {
		fragSize = utils.ClampInt(req.FragmentSize, c.cfg.MinFragmentSize, c.cfg.MaxFragmentSize)
	}
	frags := c.cfg.Fragments
	if req.Fragments > 0 {
		frags = utils.ClampInt(req.Fragments, 1, c.cfg.MaxFragments)
	}

	q := buildQuery(req.Terms, queryFilter{
		fuzzy:    req.Fuzzy,
		cooccur:  req.Cooccur,
		exclude:  req.Exclude,
		minPages: req.MinPages,
		maxPages: req.MaxPages,
	})
	sr := bleve.NewSearchRequestOptions(q, limit, 0, false)
	sr.Highlight = bleve.NewHighlight()
	sr.Highlight.AddField("content")

	res, err := c.index.index.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	docs, err := c.store.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve hits: %v", ErrUnavailable, err)
	}

	hits := make([]*models.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := &models.SearchHit{DocID: h.ID, Link: c.link(h.ID)}
		if doc, ok := docs[h.ID]; ok {
			hit.Name = doc.Name
			hit.Pages = doc.Pages
			hit.Size = doc.Size
		}
		for _, frag := range h.Fragments["content"] {
			if len(hit.Fragments) >= frags {
				break
			}
			hit.Fragments = append(hit.Fragments, utils.Truncate(utils.Sanitize(frag), fragSize))
		}
		hits = append(hits, hit)
	}

	c.detector.Annotate(hits, func(id string) (string, bool) {
		doc, ok := docs[id]
		if !ok {
			return "", false
		}
		return doc.Content, true
	})

	return &models.SearchResults{Terms: req.Terms, Total: int(res.Total), Hits: hits}, nil
}

// Read returns the full text of one document, truncated to maxChars with the
// truncation signaled. Unknown identifiers fail with ErrDocumentNotFound.
func (c *Corpus) Read(ctx context.Context, docID string, maxChars int) (*models.ReadResult, error) {
	max := c.cfg.ReadMaxChars
	if maxChars > 0 {
		max = utils.ClampInt(maxChars, c.cfg.ReadMinChars, c.cfg.ReadMaxChars)
	}

	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, docID, err)
	}

	text := doc.Content
	truncated := false
	if len(text) > max {
		text = text[:max]
		truncated = true
	}
	return &models.ReadResult{
		DocID:      doc.ID,
		Name:       doc.Name,
		Pages:      doc.Pages,
		Size:       doc.Size,
		Link:       c.link(doc.ID),
		Text:       text,
		Truncated:  truncated,
		TotalChars: len(doc.Content),
	}, nil
}

// ReadBatch reads many documents under one shared character budget. Items
// come back in request order; unknown identifiers are reported per item so
// the rest of the batch still resolves.
func (c *Corpus) ReadBatch(ctx context.Context, docIDs []string, budget int) (*models.BatchResult, error) {
	if len(docIDs) == 0 {
		return &models.BatchResult{}, nil
	}
	if budget <= 0 || budget > c.cfg.BatchBudgetChars {
		budget = c.cfg.BatchBudgetChars
	}
	perDoc := budget / len(docIDs)
	if perDoc < c.cfg.ReadMinChars {
		perDoc = c.cfg.ReadMinChars
	}

	items := make([]*models.BatchItem, len(docIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range docIDs {
		i, id := i, id
		g.Go(func() error {
			doc, err := c.store.GetDocument(gctx, id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					items[i] = &models.BatchItem{DocID: id, NotFound: true}
					return nil
				}
				return fmt.Errorf("%w: read %s: %v", ErrUnavailable, id, err)
			}
			text := doc.Content
			truncated := false
			if len(text) > perDoc {
				text = text[:perDoc]
				truncated = true
			}
			items[i] = &models.BatchItem{
				DocID:     doc.ID,
				Name:      doc.Name,
				Pages:     doc.Pages,
				Text:      text,
				Truncated: truncated,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	read := 0
	exhausted := false
	for _, it := range items {
		if it.NotFound {
			continue
		}
		read++
		if it.Truncated {
			exhausted = true
		}
	}
	return &models.BatchResult{
		Items:     items,
		Requested: len(docIDs),
		Read:      read,
		Exhausted: exhausted,
	}, nil
}

// List returns document names matching the query, or a page of all names
// when the query is empty.
func (c *Corpus) List(ctx context.Context, query string, fuzzy bool) (*models.ListResult, error) {
	if query == "" {
		names, err := c.store.ListNames(ctx, 0, c.cfg.ListPageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
		}
		return &models.ListResult{Names: names}, nil
	}

	res, err := c.Search(ctx, SearchRequest{
		Terms: []string{query},
		Limit: c.cfg.ListPageSize,
		Fuzzy: fuzzy,
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		names = append(names, h.Name)
	}
	return &models.ListResult{Names: names, Hits: res.Hits}, nil
}

func (c *Corpus) link(id string) string {
	if c.linkBase == "" {
		return ""
	}
	return c.linkBase + "/f/" + id
}
