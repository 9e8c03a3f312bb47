package ports

import (
	"context"
	"io"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveProcessingResult(ctx context.Context, id string, result domain.ProcessingResult) error
	Delete(ctx context.Context, id string) error
}

// ThemeRepository persists themes with optimistic-concurrency updates.
type ThemeRepository interface {
	Create(ctx context.Context, theme *domain.Theme) error
	GetByID(ctx context.Context, id string) (*domain.Theme, error)
	List(ctx context.Context) ([]domain.Theme, error)
	// Update applies the patch only when the stored version matches
	// expectedVersion, incrementing the version in the same write.
	Update(ctx context.Context, id string, patch domain.ThemePatch, expectedVersion int) (*domain.Theme, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores source documents and archives processed ones.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Archive relocates a stored object to long-term storage and returns
	// its new key.
	Archive(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes document-uploaded events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, event domain.UploadedEvent) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, domain.UploadedEvent) error) error
}

// Extractor turns a stored document into text, a page count, and metadata.
type Extractor interface {
	Extract(ctx context.Context, doc *domain.Document) (domain.Extraction, error)
}

// ExtractorRegistry dispatches extraction by normalized media type.
type ExtractorRegistry interface {
	Lookup(mediaType string) (Extractor, error)
}

// Chunker splits extracted text into overlapping segments.
type Chunker interface {
	Split(text string) []string
	PageNumber(chunk string) (int, bool)
}

// VectorIndex owns chunks once indexed.
type VectorIndex interface {
	Add(ctx context.Context, documentID string, chunks []domain.Chunk) error
	Search(ctx context.Context, query string, documentIDs []string, limit int) ([]domain.SearchResult, error)
	Delete(ctx context.Context, documentID string) error
	// Get returns every indexed chunk of one document, in ordinal order.
	Get(ctx context.Context, documentID string) ([]domain.SearchResult, error)
}

// GenerateConfig tunes a single LLM text generation call.
type GenerateConfig struct {
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the single text capability of the LLM provider.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error)
}

// VisionGenerator answers a prompt about one image.
type VisionGenerator interface {
	GenerateFromImage(ctx context.Context, prompt string, mimeType string, image []byte) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
