package plaintext

import (
	"context"
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
	return io.NopCloser(strings.NewReader(string(f.content))), nil
}

func (f *storageFake) Archive(_ context.Context, key string) (string, error) { return key, nil }

func (f *storageFake) Remove(context.Context, string) error { return nil }

func TestExtractAddsPageMarker(t *testing.T) {
	e := NewExtractor(&storageFake{content: []byte("  hello world  ")})
	got, err := e.Extract(context.Background(), &domain.Document{StoragePath: "k"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "Page 1:\nhello world" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.PageCount != 1 {
		t.Fatalf("expected one page, got %d", got.PageCount)
	}
}

func TestExtractEmptyFile(t *testing.T) {
	e := NewExtractor(&storageFake{content: []byte("   \n ")})
	got, err := e.Extract(context.Background(), &domain.Document{StoragePath: "k"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "" || got.PageCount != 0 {
		t.Fatalf("expected empty extraction, got %+v", got)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	e := NewExtractor(&storageFake{content: []byte{0xff, 0xfe, 0x00, 0x80}})
	_, err := e.Extract(context.Background(), &domain.Document{StoragePath: "k"})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}
