package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// ProcessDocumentUseCase drives one document through extraction,
// chunking, indexing, and archival. The record arrives in processing and
// leaves with exactly one terminal status write: processed or error.
type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	extractors ports.ExtractorRegistry
	chunker    ports.Chunker
	index      ports.VectorIndex
	storage    ports.ObjectStorage
	logger     *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractors ports.ExtractorRegistry,
	chunker ports.Chunker,
	index ports.VectorIndex,
	storage ports.ObjectStorage,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:       repo,
		extractors: extractors,
		chunker:    chunker,
		index:      index,
		storage:    storage,
		logger:     logger,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.Status.IsTerminal() {
		uc.logger.Warn("ingest_skipped_terminal", "document_id", doc.ID, "status", doc.Status)
		return nil
	}
	uc.logger.Info("ingest_started", "document_id", doc.ID, "media_type", doc.MediaType)

	result, err := uc.pipeline(ctx, doc)
	if err != nil {
		uc.logger.Error("ingest_failed", "document_id", doc.ID, "error", err)
		if failErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusError, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark error status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveProcessingResult(ctx, doc.ID, result); err != nil {
		return fmt.Errorf("save processing result: %w", err)
	}
	uc.logger.Info("ingest_completed", "document_id", doc.ID, "page_count", result.PageCount)
	return nil
}

func (uc *ProcessDocumentUseCase) pipeline(ctx context.Context, doc *domain.Document) (domain.ProcessingResult, error) {
	var zero domain.ProcessingResult

	extractor, err := uc.extractors.Lookup(doc.MediaType)
	if err != nil {
		return zero, err
	}

	extraction, err := extractor.Extract(ctx, doc)
	if err != nil {
		if domain.IsKind(err, domain.ErrExtraction) || domain.IsKind(err, domain.ErrUnsupportedType) {
			return zero, err
		}
		return zero, domain.WrapError(domain.ErrExtraction, "extract document", err)
	}
	uc.logger.Info("ingest_extracted", "document_id", doc.ID, "chars", len(extraction.Text), "pages", extraction.PageCount)

	metadata := mergeMetadata(doc, extraction.Metadata)

	chunks := uc.buildChunks(doc, extraction.Text, metadata)
	if len(chunks) == 0 {
		// Distinct from an extractor error: the input was readable but
		// silently degenerate, e.g. a scanned PDF with OCR disabled.
		return zero, domain.WrapError(domain.ErrEmptyExtraction, "chunk document", errors.New("no text content extracted"))
	}
	uc.logger.Info("ingest_chunked", "document_id", doc.ID, "chunks", len(chunks))

	if err := uc.index.Add(ctx, doc.ID, chunks); err != nil {
		return zero, domain.WrapError(domain.ErrIndexWrite, "index chunks", err)
	}
	uc.logger.Info("ingest_indexed", "document_id", doc.ID, "chunks", len(chunks))

	archivedKey, err := uc.storage.Archive(ctx, doc.StoragePath)
	if err != nil {
		// Chunks may already be indexed; the error status keeps the
		// record honest about this inconsistency window.
		return zero, domain.WrapError(domain.ErrArchival, "archive source file", err)
	}
	uc.logger.Info("ingest_archived", "document_id", doc.ID, "storage_path", archivedKey)

	return domain.ProcessingResult{
		PageCount:   extraction.PageCount,
		ChunkCount:  len(chunks),
		Author:      metadata["author"],
		Date:        metadata["date"],
		Category:    doc.Category,
		StoragePath: archivedKey,
	}, nil
}

func (uc *ProcessDocumentUseCase) buildChunks(doc *domain.Document, text string, metadata map[string]string) []domain.Chunk {
	parts := uc.chunker.Split(text)
	chunks := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		chunkMeta := make(map[string]string, len(metadata)+1)
		for k, v := range metadata {
			chunkMeta[k] = v
		}
		chunkMeta["ordinal"] = fmt.Sprintf("%d", i)

		chunk := domain.Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.ID, i),
			DocumentID: doc.ID,
			Ordinal:    i,
			Content:    part,
			Metadata:   chunkMeta,
		}
		if page, ok := uc.chunker.PageNumber(part); ok {
			chunk.Page = page
			chunkMeta["page_number"] = fmt.Sprintf("%d", page)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// mergeMetadata overlays extractor-derived metadata with caller-supplied
// document fields, caller values taking precedence.
func mergeMetadata(doc *domain.Document, extracted map[string]string) map[string]string {
	merged := make(map[string]string, len(extracted)+4)
	for k, v := range extracted {
		merged[k] = v
	}
	if doc.Author != "" {
		merged["author"] = doc.Author
	}
	if doc.Date != "" {
		merged["date"] = doc.Date
	}
	merged["document_id"] = doc.ID
	merged["document_name"] = doc.Name
	if doc.Category != "" {
		merged["category"] = doc.Category
	}
	return merged
}
