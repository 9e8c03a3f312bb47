package ports

import (
	"context"
	"io"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
)

// UploadRequest carries one file plus caller-supplied metadata.
type UploadRequest struct {
	Filename  string
	MediaType string
	Name      string
	Category  string
	Author    string
	Date      string
	Body      io.Reader
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous ingestion.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentDirectory is the inbound read/delete model for document state.
type DocumentDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// QueryService answers natural-language questions over a document set.
type QueryService interface {
	Answer(ctx context.Context, query string, documentIDs []string) (*domain.QueryResponse, error)
	AnswerWithThemes(ctx context.Context, query string, documentIDs []string) (*domain.QueryResponse, error)
}

// ThemeService exposes theme persistence and cross-document analysis.
type ThemeService interface {
	Create(ctx context.Context, theme domain.Theme) (*domain.Theme, error)
	GetByID(ctx context.Context, id string) (*domain.Theme, error)
	List(ctx context.Context) ([]domain.Theme, error)
	Update(ctx context.Context, id string, patch domain.ThemePatch, expectedVersion int) (*domain.Theme, error)
	Delete(ctx context.Context, id string) error
	Analyze(ctx context.Context, documentIDs []string, minConfidence float64, maxThemes int) ([]domain.Theme, error)
}
