package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/bates"
	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/extract"
	"github.com/casefile/inquest/internal/storage"
)

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{"txt", "md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
		{".pdf", []string{".txt", ".md", ".pdf"}, true},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	in := "line one  \r\nline two\t\r\n\nEFTA quote stays\n"
	want := "line one\nline two\n\nEFTA quote stays"
	if got := NormalizeText(in); got != want {
		t.Errorf("NormalizeText = %q, want %q", got, want)
	}
}

func testIndexer(t *testing.T) (*Indexer, storage.Storage, *bates.Scheme) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	index, err := corpus.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = index.Close() })
	scheme := bates.NewScheme("EFTA", 8)
	return NewIndexer(store, index, extract.NewExtractor(), scheme, zap.NewNop()), store, scheme
}

func TestIndexFile_batesNamedFile(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()

	dir := t.TempDir()
	fPath := filepath.Join(dir, "EFTA00000042.txt")
	if err := os.WriteFile(fPath, []byte("Wire transfer approved.\r\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, []string{".txt"}); err != nil {
		t.Fatal(err)
	}
	doc, err := store.GetDocument(ctx, "EFTA00000042")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "EFTA00000042.txt" || doc.Content != "Wire transfer approved." {
		t.Errorf("unexpected doc: name=%q content=%q", doc.Name, doc.Content)
	}
	if doc.Kind != "txt" || doc.Pages != 1 {
		t.Errorf("kind=%q pages=%d", doc.Kind, doc.Pages)
	}
}

func TestIndexFile_updateReplacesSameDocument(t *testing.T) {
	idx, store, scheme := testIndexer(t)
	ctx := context.Background()

	dir := t.TempDir()
	fPath := filepath.Join(dir, "memo.txt")
	if err := os.WriteFile(fPath, []byte("Original content."), 0600); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fPath, []byte("Updated content after amendment."), 0600); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}

	abs, _ := filepath.Abs(fPath)
	doc, err := store.GetDocument(ctx, scheme.DocID(abs))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "Updated content after amendment." {
		t.Errorf("content = %q", doc.Content)
	}
	n, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("document count = %d, want 1", n)
	}
}

func TestIndexFile_skipsUnchangedFile(t *testing.T) {
	idx, store, scheme := testIndexer(t)
	ctx := context.Background()

	dir := t.TempDir()
	fPath := filepath.Join(dir, "EFTA00000001.txt")
	if err := os.WriteFile(fPath, []byte("Stable content."), 0600); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(fPath)
	first, err := store.GetDocument(ctx, scheme.DocID(abs))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	second, err := store.GetDocument(ctx, scheme.DocID(abs))
	if err != nil {
		t.Fatal(err)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("unchanged file should not rewrite the stored document")
	}
}

func TestIndexFile_extensionFiltered(t *testing.T) {
	idx, _, _ := testIndexer(t)
	dir := t.TempDir()
	fPath := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(fPath, []byte("#!/bin/sh"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(context.Background(), fPath, []string{".txt", ".md"}); err == nil {
		t.Error("expected error for disallowed extension")
	}
}

func TestIndexFile_notRegularFile(t *testing.T) {
	idx, _, _ := testIndexer(t)
	if err := idx.IndexFile(context.Background(), t.TempDir(), nil); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIndexFile_nonexistent(t *testing.T) {
	idx, _, _ := testIndexer(t)
	err := idx.IndexFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), nil)
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRemoveFile(t *testing.T) {
	idx, store, scheme := testIndexer(t)
	ctx := context.Background()

	dir := t.TempDir()
	fPath := filepath.Join(dir, "EFTA00000007.md")
	if err := os.WriteFile(fPath, []byte("# To be withdrawn"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(ctx, fPath, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.RemoveFile(ctx, fPath); err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(fPath)
	if _, err := store.GetDocument(ctx, scheme.DocID(abs)); err == nil {
		t.Error("document should be deleted")
	}
}

func TestIndexDirectory(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()

	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "EFTA00000001.txt"): "file a",
		filepath.Join(dir, "EFTA00000002.txt"): "file b",
		filepath.Join(sub, "EFTA00000003.txt"): "file c",
		filepath.Join(dir, "skip.xyz"):         "skip",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	n, err := idx.IndexDirectory(ctx, dir, []string{".txt"})
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	if n != 3 {
		t.Errorf("indexed %d files, want 3", n)
	}
	count, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("stored %d documents, want 3", count)
	}
}
