package imagefile

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
)

type storageFake struct {
	content []byte
}

func (f *storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func (f *storageFake) Archive(_ context.Context, key string) (string, error) { return key, nil }

func (f *storageFake) Remove(context.Context, string) error { return nil }

type visionFake struct {
	text string
	err  error

	gotPrompt   string
	gotMimeType string
	gotImage    []byte
}

func (f *visionFake) GenerateFromImage(_ context.Context, prompt, mimeType string, image []byte) (string, error) {
	f.gotPrompt = prompt
	f.gotMimeType = mimeType
	f.gotImage = image
	return f.text, f.err
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestExtractRecordsImageDimensions(t *testing.T) {
	e := NewExtractor(&storageFake{content: encodePNG(t, 4, 3)}, nil, false)

	got, err := e.Extract(context.Background(), &domain.Document{StoragePath: "k", MediaType: "image/png"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.PageCount != 1 {
		t.Fatalf("expected one page, got %d", got.PageCount)
	}
	if got.Text != "" {
		t.Fatalf("expected no text without OCR, got %q", got.Text)
	}
	if got.Metadata["image_width"] != "4" || got.Metadata["image_height"] != "3" || got.Metadata["image_format"] != "png" {
		t.Fatalf("unexpected metadata: %+v", got.Metadata)
	}
}

func TestExtractRunsOCRWhenEnabled(t *testing.T) {
	vision := &visionFake{text: " Invoice total: 120 EUR \n"}
	raw := encodePNG(t, 2, 2)
	e := NewExtractor(&storageFake{content: raw}, vision, true)

	got, err := e.Extract(context.Background(), &domain.Document{StoragePath: "k", MediaType: "image/png"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "Page 1:\nInvoice total: 120 EUR" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if vision.gotMimeType != "image/png" {
		t.Fatalf("expected media type forwarded, got %q", vision.gotMimeType)
	}
	if !bytes.Equal(vision.gotImage, raw) {
		t.Fatalf("expected raw image bytes forwarded")
	}
	if !strings.Contains(vision.gotPrompt, "Transcribe") {
		t.Fatalf("unexpected prompt %q", vision.gotPrompt)
	}
}

func TestExtractOCRFailureIsExtractionError(t *testing.T) {
	vision := &visionFake{err: errors.New("model unavailable")}
	e := NewExtractor(&storageFake{content: encodePNG(t, 2, 2)}, vision, true)

	_, err := e.Extract(context.Background(), &domain.Document{StoragePath: "k", MediaType: "image/png"})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractSkipsOCRWithoutVisionProvider(t *testing.T) {
	e := NewExtractor(&storageFake{content: encodePNG(t, 2, 2)}, nil, true)

	got, err := e.Extract(context.Background(), &domain.Document{StoragePath: "k", MediaType: "image/png"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "" {
		t.Fatalf("expected no text, got %q", got.Text)
	}
}
