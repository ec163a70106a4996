// Package extract provides text extraction from various document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lu4p/cat"
)

// Extraction is the text content pulled out of one source file, plus the page
// count when the format carries one. Pages is 1 for unpaginated formats.
type Extraction struct {
	Text  string
	Pages int
	Kind  string
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its extracted content.
// For plain text files (.txt, .md, .rst), content is returned as-is (UTF-8 validated).
// PDF, DOCX, and XLSX are parsed natively; ODT and RTF go through lu4p/cat.
// Returns an error if the file cannot be read or parsed.
func (e *Extractor) Extract(path string) (*Extraction, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".odt", ".rtf":
		text, err := cat.File(path)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", ext, err)
		}
		return &Extraction{Text: strings.TrimSpace(text), Pages: 1, Kind: kindOf(ext)}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Extraction, error) {
	switch ext {
	case ".pdf":
		text, pages, err := extractPDF(content)
		if err != nil {
			return nil, err
		}
		return &Extraction{Text: text, Pages: pages, Kind: "pdf"}, nil
	case ".docx":
		text, err := extractDOCX(content)
		if err != nil {
			return nil, err
		}
		return &Extraction{Text: text, Pages: 1, Kind: "docx"}, nil
	case ".xlsx":
		text, err := extractExcel(content)
		if err != nil {
			return nil, err
		}
		return &Extraction{Text: text, Pages: 1, Kind: "xlsx"}, nil
	default:
		// Unknown or plain extension: treat as plain text.
		text, err := extractPlain(content)
		if err != nil {
			return nil, err
		}
		return &Extraction{Text: text, Pages: 1, Kind: kindOf(ext)}, nil
	}
}

func kindOf(ext string) string {
	if ext == "" {
		return "txt"
	}
	return strings.TrimPrefix(ext, ".")
}
