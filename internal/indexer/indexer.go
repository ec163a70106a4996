// Package indexer ingests corpus files: extracts text, derives Bates-number
// document IDs from filenames, and writes the document store and the keyword
// index.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/bates"
	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/extract"
	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/storage"
)

// Indexer writes documents into storage and the keyword index.
type Indexer struct {
	storage   storage.Storage
	index     *corpus.BleveIndex
	extractor *extract.Extractor
	scheme    *bates.Scheme
	logger    *zap.Logger
}

// NewIndexer creates an indexer. extractor may be nil; when nil, files are
// ingested as plain text.
func NewIndexer(store storage.Storage, index *corpus.BleveIndex, extractor *extract.Extractor, scheme *bates.Scheme, logger *zap.Logger) *Indexer {
	return &Indexer{
		storage:   store,
		index:     index,
		extractor: extractor,
		scheme:    scheme,
		logger:    logger,
	}
}

// IndexFile ingests one file. The document ID is the Bates number derived
// from the filename (or a stable hash for files without one), so re-ingesting
// the same file replaces the same document. Unchanged files (same mtime and
// size) are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := idx.scheme.DocID(absPath)
	if existing, getErr := idx.storage.GetDocument(ctx, docID); getErr == nil {
		if existing.ModTime.Equal(info.ModTime()) && existing.Size == info.Size() {
			// Re-index into bleve anyway: the index may have been rebuilt
			// since the store was written.
			if ixErr := idx.index.Index(existing); ixErr != nil {
				return fmt.Errorf("re-index unchanged document: %w", ixErr)
			}
			idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
			return nil
		}
	}

	extraction, err := idx.extractContent(absPath)
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}

	doc := &models.Document{
		ID:      docID,
		Name:    filepath.Base(absPath),
		Content: NormalizeText(extraction.Text),
		Pages:   extraction.Pages,
		Size:    info.Size(),
		Kind:    extraction.Kind,
		ModTime: info.ModTime(),
	}
	if err := idx.storage.PutDocument(ctx, doc); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	if err := idx.index.Index(doc); err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	idx.logger.Debug("file ingested",
		zap.String("path", absPath),
		zap.String("doc_id", docID),
		zap.Int("pages", doc.Pages))
	return nil
}

// IndexDirectory walks dir recursively and ingests each regular file whose
// extension is allowed. Returns the number of files ingested and the first
// error encountered.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		finfo, statErr := os.Stat(path)
		if statErr != nil {
			return nil
		}
		if !finfo.Mode().IsRegular() {
			return nil
		}
		if indexErr := idx.IndexFile(ctx, path, allowedExts); indexErr != nil {
			return indexErr
		}
		n++
		return nil
	})
	return n, err
}

// RemoveFile deletes the document derived from path from the store and the
// index.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return idx.DeleteDocument(ctx, idx.scheme.DocID(absPath))
}

// DeleteDocument removes a document from the index and the store.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if err := idx.index.Delete(id); err != nil {
		return fmt.Errorf("delete from index: %w", err)
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	idx.logger.Debug("document removed", zap.String("id", id))
	return nil
}

func (idx *Indexer) extractContent(path string) (*extract.Extraction, error) {
	if idx.extractor != nil {
		return idx.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &extract.Extraction{Text: string(content), Pages: 1, Kind: "txt"}, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
