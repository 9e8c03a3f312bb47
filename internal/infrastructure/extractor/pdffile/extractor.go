package pdffile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// Extractor pulls per-page text out of PDF documents. Each page is
// prefixed with a "Page N:" marker line so downstream chunks can recover
// their page number, and the Info dictionary backfills author/date
// metadata when the caller supplied none.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.Extraction, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read source document: %w", err)
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "parse pdf", err)
	}

	pageCount := pdfReader.NumPage()
	var text strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		fmt.Fprintf(&text, "Page %d:\n%s\n\n", i, content)
	}

	return domain.Extraction{
		Text:      strings.TrimSpace(text.String()),
		PageCount: pageCount,
		Metadata:  infoMetadata(pdfReader),
	}, nil
}

// infoMetadata reads author and creation date from the Info dictionary.
func infoMetadata(r *pdf.Reader) map[string]string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	metadata := make(map[string]string)
	if author := info.Key("Author"); author.Kind() == pdf.String {
		if v := strings.TrimSpace(author.RawString()); v != "" {
			metadata["author"] = v
		}
	}
	if created := info.Key("CreationDate"); created.Kind() == pdf.String {
		if v := normalizePDFDate(created.RawString()); v != "" {
			metadata["date"] = v
		}
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

// normalizePDFDate converts "D:20240115120000Z" style dates to ISO
// "2024-01-15"; anything shorter than a full date is dropped.
func normalizePDFDate(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "D:")
	if len(raw) < 8 {
		return ""
	}
	digits := raw[:8]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return digits[:4] + "-" + digits[4:6] + "-" + digits[6:8]
}
