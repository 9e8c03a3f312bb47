package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := s.Save(ctx, "doc-1_report.pdf", strings.NewReader("payload")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	r, err := s.Open(ctx, "doc-1_report.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestArchiveMovesFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if err := s.Save(ctx, "doc-1_a.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	newKey, err := s.Archive(ctx, "doc-1_a.pdf")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if newKey != "processed/doc-1_a.pdf" {
		t.Fatalf("unexpected archived key %q", newKey)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc-1_a.pdf")); !os.IsNotExist(err) {
		t.Fatalf("source file should be gone")
	}
	if _, err := s.Open(ctx, newKey); err != nil {
		t.Fatalf("archived file unreadable: %v", err)
	}

	// Archiving an archived key is idempotent.
	again, err := s.Archive(ctx, newKey)
	if err != nil || again != newKey {
		t.Fatalf("re-archive: key=%q err=%v", again, err)
	}
}

func TestRemoveMissingFileIsNoop(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Remove(context.Background(), "ghost.pdf"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Save(context.Background(), "../outside.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal rejection")
	}
}
