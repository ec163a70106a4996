// Package integration exercises the full ingest-to-read pipeline over real
// storage and a real index.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/bates"
	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/dedup"
	"github.com/casefile/inquest/internal/extract"
	"github.com/casefile/inquest/internal/indexer"
	"github.com/casefile/inquest/internal/storage"
)

func TestIntegration_IngestSearchRead(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	index, err := corpus.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()

	scheme := bates.NewScheme("EFTA", 8)
	idx := indexer.NewIndexer(store, index, extract.NewExtractor(), scheme, zap.NewNop())
	adapter := corpus.New(index, store, dedup.NewDetector(dedup.NewPrefixFingerprinter()), cfg.Search, "")
	ctx := context.Background()

	docs := map[string]string{
		"EFTA00000001.txt": "The wire transfer of $2.4M was approved by the board on March 3.",
		"EFTA00000002.txt": "Quarterly staffing review. No financial transactions discussed.",
		"EFTA00000003.txt": "RE: wire transfer. Please confirm the board approved the $2.4M amount.",
	}
	corpusDir := filepath.Join(dir, "production")
	if err := os.MkdirAll(corpusDir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(corpusDir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	n, err := idx.IndexDirectory(ctx, corpusDir, []string{".txt"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("ingested %d files, want 3", n)
	}

	total, err := adapter.Count(ctx, corpus.CountRequest{Terms: []string{"wire transfer"}})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("count = %d, want 2", total)
	}

	results, err := adapter.Search(ctx, corpus.SearchRequest{
		Terms: []string{"wire transfer"}, Limit: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if results.Total != 2 || len(results.Hits) != 2 {
		t.Fatalf("search results = %+v", results)
	}
	for _, hit := range results.Hits {
		if hit.DocID != "EFTA00000001" && hit.DocID != "EFTA00000003" {
			t.Errorf("unexpected hit %q", hit.DocID)
		}
	}

	read, err := adapter.Read(ctx, "EFTA00000001", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(read.Text, "approved by the board") {
		t.Errorf("read text = %q", read.Text)
	}
	if read.Truncated {
		t.Error("short document should not be truncated")
	}

	batch, err := adapter.ReadBatch(ctx, []string{"EFTA00000002", "EFTA00000003"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Read != 2 {
		t.Errorf("batch read = %d, want 2", batch.Read)
	}

	// Deleting a document removes it from both the store and the index.
	if err := idx.DeleteDocument(ctx, "EFTA00000003"); err != nil {
		t.Fatal(err)
	}
	total, err = adapter.Count(ctx, corpus.CountRequest{Terms: []string{"wire transfer"}})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("count after delete = %d, want 1", total)
	}
	if _, err := adapter.Read(ctx, "EFTA00000003", 0); err == nil {
		t.Error("deleted document should not be readable")
	}
}
