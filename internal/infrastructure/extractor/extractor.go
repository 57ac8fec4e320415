// Package extractor turns downloaded submission files into plain text.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

// MaxTextRunes caps the text returned for a single document.
const MaxTextRunes = 50000

type decodeFunc func(name string, raw []byte) (string, error)

type Extractor struct {
	files    ports.FileStore
	decoders map[string]decodeFunc
}

func NewExtractor(files ports.FileStore) *Extractor {
	return &Extractor{
		files: files,
		decoders: map[string]decodeFunc{
			".pdf":  extractPDF,
			".docx": extractDOCX,
			".xlsx": extractXLSX,
			".txt":  extractPlainText,
			".md":   extractPlainText,
			".csv":  extractPlainText,
		},
	}
}

// Supported reports whether files with the given extension can be decoded.
func (e *Extractor) Supported(ext string) bool {
	_, ok := e.decoders[strings.ToLower(ext)]
	return ok
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	ext := doc.Extension()
	decode, ok := e.decoders[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrExtraction, "extract "+doc.Name, fmt.Errorf("unsupported file type %q", displayExt(ext, doc.MediaType)))
	}

	raw, err := e.files.Download(ctx, doc.FileRef)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.Name, err)
	}

	text, err := decode(doc.Name, raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract "+doc.Name, err)
	}
	return capRunes(strings.TrimSpace(text), MaxTextRunes), nil
}

func capRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func displayExt(ext, mediaType string) string {
	if ext != "" {
		return ext
	}
	if mediaType != "" {
		return mediaType
	}
	return "unknown"
}
