package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// DocumentDirectoryUseCase serves reads over the document catalog and owns
// deletion. A delete removes vector entries and stored bytes best-effort;
// the catalog row is the authoritative record and is removed last.
type DocumentDirectoryUseCase struct {
	repo    ports.DocumentRepository
	index   ports.VectorIndex
	storage ports.ObjectStorage
	logger  *slog.Logger
}

func NewDocumentDirectoryUseCase(
	repo ports.DocumentRepository,
	index ports.VectorIndex,
	storage ports.ObjectStorage,
	logger *slog.Logger,
) *DocumentDirectoryUseCase {
	return &DocumentDirectoryUseCase{
		repo:    repo,
		index:   index,
		storage: storage,
		logger:  logger,
	}
}

func (uc *DocumentDirectoryUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *DocumentDirectoryUseCase) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.repo.List(ctx, filter)
}

func (uc *DocumentDirectoryUseCase) Delete(ctx context.Context, id string) error {
	const op = "delete document"

	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := uc.index.Delete(ctx, doc.ID); err != nil {
		uc.logger.WarnContext(ctx, "document_index_delete_failed",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
	}
	if doc.StoragePath != "" {
		if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
			uc.logger.WarnContext(ctx, "document_blob_delete_failed",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	uc.logger.InfoContext(ctx, "document_deleted", slog.String("document_id", doc.ID))
	return nil
}
