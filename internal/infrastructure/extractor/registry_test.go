package extractor

import (
	"context"
	"testing"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

type stubExtractor struct{ name string }

func (s *stubExtractor) Extract(context.Context, *domain.Document) (domain.Extraction, error) {
	return domain.Extraction{Text: s.name}, nil
}

func TestLookupExactAndPrefix(t *testing.T) {
	pdfExt := &stubExtractor{name: "pdf"}
	imgExt := &stubExtractor{name: "image"}
	r := NewRegistry()
	r.Register(pdfExt, "application/pdf")
	r.RegisterImages(imgExt)

	got, err := r.Lookup("application/pdf")
	if err != nil || got != ports.Extractor(pdfExt) {
		t.Fatalf("exact lookup failed: %v", err)
	}
	got, err = r.Lookup("image/png")
	if err != nil || got != ports.Extractor(imgExt) {
		t.Fatalf("image prefix lookup failed: %v", err)
	}
	got, err = r.Lookup("IMAGE/JPEG")
	if err != nil || got != ports.Extractor(imgExt) {
		t.Fatalf("lookup should be case-insensitive: %v", err)
	}
}

func TestLookupUnsupported(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("application/zip"); !domain.IsKind(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
}
