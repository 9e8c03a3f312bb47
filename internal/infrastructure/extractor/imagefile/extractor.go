package imagefile

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

const ocrPrompt = `Transcribe all text visible in this image. Preserve the reading order.
If the image contains no text, describe its content in one short paragraph.`

// Extractor handles image documents. With OCR enabled the vision model
// transcribes visible text for indexing; without it the image yields no
// text and is answerable only through the vision path at query time.
type Extractor struct {
	storage ports.ObjectStorage
	vision  ports.VisionGenerator
	ocr     bool
}

func NewExtractor(storage ports.ObjectStorage, vision ports.VisionGenerator, ocr bool) *Extractor {
	return &Extractor{storage: storage, vision: vision, ocr: ocr}
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

	metadata := make(map[string]string)
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil {
		metadata["image_width"] = fmt.Sprintf("%d", cfg.Width)
		metadata["image_height"] = fmt.Sprintf("%d", cfg.Height)
		metadata["image_format"] = format
	}

	extraction := domain.Extraction{
		PageCount: 1,
		Metadata:  metadata,
	}
	if !e.ocr || e.vision == nil {
		return extraction, nil
	}

	text, err := e.vision.GenerateFromImage(ctx, ocrPrompt, doc.MediaType, raw)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "ocr image", err)
	}
	text = strings.TrimSpace(text)
	if text != "" {
		extraction.Text = "Page 1:\n" + text
	}
	return extraction, nil
}
