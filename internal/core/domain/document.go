package domain

import "time"

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusError      DocumentStatus = "error"
)

// IsTerminal reports whether a document can no longer change status
// except by deletion.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusProcessed || s == StatusError
}

type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	StoragePath string         `json:"storage_path"`
	MediaType   string         `json:"media_type"`
	Category    string         `json:"category,omitempty"`
	Author      string         `json:"author,omitempty"`
	Date        string         `json:"date,omitempty"`
	Status      DocumentStatus `json:"status"`
	PageCount   int            `json:"page_count,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Status    DocumentStatus
	MediaType string
	Author    string
	Limit     int
	Offset    int
}

// UploadedEvent is the queue payload announcing a stored document that
// awaits processing.
type UploadedEvent struct {
	DocumentID string    `json:"document_id"`
	MediaType  string    `json:"media_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ProcessingResult is what a successful ingestion writes back to the record.
type ProcessingResult struct {
	PageCount   int
	ChunkCount  int
	Author      string
	Date        string
	Category    string
	StoragePath string
}

// Extraction is the output of a media-type extractor.
type Extraction struct {
	Text      string
	PageCount int
	Metadata  map[string]string
}

// Chunk is the unit indexed for retrieval. Its ID is derived from the
// parent document id and the ordinal, so re-indexing the same document
// produces the same keys.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	Content    string
	Page       int
	Metadata   map[string]string
}
