// Package ingest turns uploaded files into analyzable documents. PDFs are
// reduced to their embedded text; everything else is treated as plain text.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/models"
)

// Reader converts uploads into Documents.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a document reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// FromUpload builds a Document from raw uploaded bytes. The document is
// immutable once created.
func (r *Reader) FromUpload(fileName string, data []byte) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	var text string
	var err error
	switch ext {
	case ".pdf":
		text, err = r.pdfText(data)
		if err != nil {
			return nil, err
		}
	default:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("file %s is not valid UTF-8 text", fileName)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("file %s contains no extractable text", fileName)
	}

	doc := &models.Document{
		ID:          uuid.NewString(),
		FileName:    fileName,
		FileType:    strings.TrimPrefix(ext, "."),
		TextContent: text,
	}

	r.logger.Info("Document ingested",
		zap.String("file_name", fileName),
		zap.String("file_type", doc.FileType),
		zap.Int("text_chars", len(text)))

	return doc, nil
}

// pdfText concatenates the text of every page.
func (r *Reader) pdfText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			r.logger.Warn("Failed to extract page text",
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}
