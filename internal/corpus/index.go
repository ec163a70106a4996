// Package corpus provides the adapter between the investigation loop and the
// underlying full-text index and document store. Everything outside this
// package reaches the corpus only through the five Adapter operations.
package corpus

import (
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/casefile/inquest/internal/models"
)

// indexDoc is the shape indexed into bleve. Pages is numeric so searches can
// filter by page-count range.
type indexDoc struct {
	Name    string  `json:"name"`
	Content string  `json:"content"`
	Pages   float64 `json:"pages"`
}

// BleveIndex wraps the bleve keyword index.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a bleve index at path. An existing index is
// reused so incremental ingestion does not force a full re-index; remove the
// directory to rebuild after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so quoted
	// investigation terms match the exact word forms in the production.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("pages", bleve.NewNumericFieldMapping())
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a document under its ID.
func (b *BleveIndex) Index(doc *models.Document) error {
	return b.index.Index(doc.ID, indexDoc{
		Name:    doc.Name,
		Content: doc.Content,
		Pages:   float64(doc.Pages),
	})
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// queryFilter is the optional constraint set applied on top of the term set.
type queryFilter struct {
	fuzzy    bool
	cooccur  bool
	exclude  []string
	minPages int
	maxPages int
}

const fuzziness = 2

// buildQuery assembles the bleve query for a term set. Terms combine
// disjunctively unless cooccur is set; exclude terms are a must-not filter;
// a page range becomes a numeric constraint on the pages field.
func buildQuery(terms []string, f queryFilter) blevequery.Query {
	termQueries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		termQueries = append(termQueries, termQuery(term, f.fuzzy))
	}

	var base blevequery.Query
	switch {
	case len(termQueries) == 0:
		base = bleve.NewMatchAllQuery()
	case f.cooccur:
		base = bleve.NewConjunctionQuery(termQueries...)
	default:
		base = bleve.NewDisjunctionQuery(termQueries...)
	}

	if len(f.exclude) == 0 && f.minPages == 0 && f.maxPages == 0 {
		return base
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(base)
	for _, term := range f.exclude {
		bq.AddMustNot(termQuery(term, false))
	}
	if f.minPages > 0 || f.maxPages > 0 {
		min := float64(f.minPages)
		var maxPtr *float64
		if f.maxPages > 0 {
			max := float64(f.maxPages)
			maxPtr = &max
		}
		pq := bleve.NewNumericRangeQuery(&min, maxPtr)
		pq.SetField("pages")
		bq.AddMust(pq)
	}
	return bq
}

// termQuery builds one term's query. Multi-word terms become phrase matches.
// Fuzzy words are lowercased first since fuzzy queries bypass the analyzer.
func termQuery(term string, fuzzy bool) blevequery.Query {
	words := strings.Fields(term)
	if len(words) == 0 {
		return bleve.NewMatchQuery(term)
	}
	if fuzzy {
		if len(words) == 1 {
			fq := bleve.NewFuzzyQuery(strings.ToLower(words[0]))
			fq.SetFuzziness(fuzziness)
			return fq
		}
		// Every word of a multi-word fuzzy term must occur.
		sub := make([]blevequery.Query, 0, len(words))
		for _, w := range words {
			fq := bleve.NewFuzzyQuery(strings.ToLower(w))
			fq.SetFuzziness(fuzziness)
			sub = append(sub, fq)
		}
		return bleve.NewConjunctionQuery(sub...)
	}
	if len(words) > 1 {
		return bleve.NewMatchPhraseQuery(term)
	}
	return bleve.NewMatchQuery(term)
}
