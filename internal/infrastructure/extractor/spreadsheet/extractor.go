package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// Extractor flattens workbook sheets into text, one sheet per page.
// Cells in a row are tab-joined so tabular context survives chunking.
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

	book, err := excelize.OpenReader(reader)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "parse workbook", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	var text strings.Builder
	for i, sheet := range sheets {
		rows, err := book.GetRows(sheet)
		if err != nil {
			continue
		}
		var sheetText strings.Builder
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sheetText.WriteString(line)
			sheetText.WriteString("\n")
		}
		if sheetText.Len() == 0 {
			continue
		}
		fmt.Fprintf(&text, "Page %d:\nSheet: %s\n%s\n", i+1, sheet, sheetText.String())
	}

	return domain.Extraction{
		Text:      strings.TrimSpace(text.String()),
		PageCount: len(sheets),
		Metadata:  map[string]string{"sheet_count": fmt.Sprintf("%d", len(sheets))},
	}, nil
}
