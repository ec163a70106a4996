package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/dedup"
	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/storage"
)

func testCorpus(t *testing.T, docs []*models.Document) *Corpus {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	index, err := NewBleveIndex(filepath.Join(dir, "index.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { index.Close() })

	ctx := context.Background()
	for _, doc := range docs {
		if err := store.PutDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
		if err := index.Index(doc); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Config{}
	config.ApplyDefaults(&cfg)
	det := dedup.NewDetector(dedup.NewPrefixFingerprinter())
	return New(index, store, det, cfg.Search, "https://corpus.example")
}

func productionDocs() []*models.Document {
	return []*models.Document{
		{ID: "EFTA00000001", Name: "EFTA00000001.pdf", Pages: 2, Size: 100,
			Content: "Board meeting minutes discussing the pension transfer approval."},
		{ID: "EFTA00000002", Name: "EFTA00000002.pdf", Pages: 40, Size: 900,
			Content: "Annual report. The pension fund balance and transfer schedules."},
		{ID: "EFTA00000003", Name: "EFTA00000003.pdf", Pages: 1, Size: 80,
			Content: "Unrelated invoice for office furniture delivery."},
	}
}

func TestCount_disjunctiveAndConjunctive(t *testing.T) {
	c := testCorpus(t, productionDocs())
	ctx := context.Background()

	n, err := c.Count(ctx, CountRequest{Terms: []string{"pension", "invoice"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("disjunctive count = %d, want 3", n)
	}

	n, err = c.Count(ctx, CountRequest{Terms: []string{"pension", "transfer"}, Cooccur: true})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("conjunctive count = %d, want 2", n)
	}

	n, err = c.Count(ctx, CountRequest{Terms: []string{"nonexistentterm"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("zero-hit count = %d", n)
	}
}

func TestSearch_excludeFilter(t *testing.T) {
	c := testCorpus(t, productionDocs())
	ctx := context.Background()

	res, err := c.Search(ctx, SearchRequest{Terms: []string{"pension"}, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("total = %d, want 2", res.Total)
	}

	res, err = c.Search(ctx, SearchRequest{
		Terms:   []string{"pension"},
		Limit:   10,
		Exclude: []string{"annual"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Hits[0].DocID != "EFTA00000001" {
		t.Errorf("exclude filter: total=%d hits=%v", res.Total, res.Hits)
	}
}

func TestSearch_pageRangeFilter(t *testing.T) {
	c := testCorpus(t, productionDocs())
	ctx := context.Background()

	res, err := c.Search(ctx, SearchRequest{
		Terms:    []string{"pension"},
		Limit:    10,
		MinPages: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Hits[0].DocID != "EFTA00000002" {
		t.Errorf("min pages filter: %+v", res)
	}

	res, err = c.Search(ctx, SearchRequest{
		Terms:    []string{"pension"},
		Limit:    10,
		MaxPages: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Hits[0].DocID != "EFTA00000001" {
		t.Errorf("max pages filter: %+v", res)
	}
}

func TestSearch_hitMetadataAndLink(t *testing.T) {
	c := testCorpus(t, productionDocs())

	res, err := c.Search(context.Background(), SearchRequest{Terms: []string{"invoice"}, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %d", len(res.Hits))
	}
	hit := res.Hits[0]
	if hit.Name != "EFTA00000003.pdf" || hit.Pages != 1 {
		t.Errorf("hit metadata: %+v", hit)
	}
	if hit.Link != "https://corpus.example/f/EFTA00000003" {
		t.Errorf("link = %q", hit.Link)
	}
}

func TestSearch_duplicateAnnotation(t *testing.T) {
	docs := productionDocs()
	docs = append(docs, &models.Document{
		ID: "EFTA00000004", Name: "EFTA00000004.pdf", Pages: 2, Size: 100,
		Content: "BOARD MEETING MINUTES  discussing the pension transfer approval.",
	})
	c := testCorpus(t, docs)

	res, err := c.Search(context.Background(), SearchRequest{Terms: []string{"pension"}, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	var dups int
	for _, h := range res.Hits {
		if h.Duplicate {
			dups++
			if h.DuplicateOf == "" {
				t.Error("duplicate hit missing origin")
			}
		}
	}
	if dups != 1 {
		t.Errorf("expected exactly one duplicate flag, got %d", dups)
	}
}

func TestRead_truncationSignaled(t *testing.T) {
	long := strings.Repeat("evidence ", 100)
	c := testCorpus(t, []*models.Document{
		{ID: "EFTA00000010", Name: "EFTA00000010.pdf", Pages: 1, Content: long},
	})

	res, err := c.Read(context.Background(), "EFTA00000010", 200)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Error("truncation must be signaled")
	}
	if len(res.Text) != 200 {
		t.Errorf("text length = %d", len(res.Text))
	}
	if res.TotalChars != len(long) {
		t.Errorf("total chars = %d, want %d", res.TotalChars, len(long))
	}

	full, err := c.Read(context.Background(), "EFTA00000010", 0)
	if err != nil {
		t.Fatal(err)
	}
	if full.Truncated {
		t.Error("default budget should not truncate a small document")
	}
}

func TestRead_notFound(t *testing.T) {
	c := testCorpus(t, productionDocs())
	_, err := c.Read(context.Background(), "EFTA99999999", 0)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestReadBatch_perItemNotFoundAndOrder(t *testing.T) {
	c := testCorpus(t, productionDocs())

	res, err := c.ReadBatch(context.Background(),
		[]string{"EFTA00000002", "EFTA99999999", "EFTA00000001"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Requested != 3 || res.Read != 2 {
		t.Errorf("requested=%d read=%d", res.Requested, res.Read)
	}
	if res.Items[0].DocID != "EFTA00000002" || res.Items[2].DocID != "EFTA00000001" {
		t.Error("items must preserve request order")
	}
	if !res.Items[1].NotFound {
		t.Error("missing document must be reported per item")
	}
	if res.Items[0].Text == "" {
		t.Error("found items must carry text")
	}
}

func TestReadBatch_sharedBudget(t *testing.T) {
	long := strings.Repeat("x", 5000)
	c := testCorpus(t, []*models.Document{
		{ID: "EFTA00000020", Name: "a.txt", Content: long},
		{ID: "EFTA00000021", Name: "b.txt", Content: long},
	})

	res, err := c.ReadBatch(context.Background(), []string{"EFTA00000020", "EFTA00000021"}, 4000)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exhausted {
		t.Error("budget smaller than content must be reported exhausted")
	}
	for _, it := range res.Items {
		if !it.Truncated || len(it.Text) != 2000 {
			t.Errorf("item %s: truncated=%v len=%d", it.DocID, it.Truncated, len(it.Text))
		}
	}
}

func TestList(t *testing.T) {
	c := testCorpus(t, productionDocs())
	ctx := context.Background()

	all, err := c.List(ctx, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Names) != 3 {
		t.Errorf("all names = %v", all.Names)
	}

	some, err := c.List(ctx, "invoice", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(some.Names) != 1 || some.Names[0] != "EFTA00000003.pdf" {
		t.Errorf("filtered names = %v", some.Names)
	}
}
