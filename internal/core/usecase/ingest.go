package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the file, creates the status record, and queues the
// document for processing. The record starts in processing, not uploaded:
// the pipeline picks it up immediately and only it writes a terminal
// status.
func (uc *IngestDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, req.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(req.Filename), filepath.Ext(req.Filename))
	}

	doc := &domain.Document{
		ID:          id,
		Name:        name,
		StoragePath: storageKey,
		MediaType:   normalizeMediaType(req.MediaType),
		Category:    req.Category,
		Author:      req.Author,
		Date:        req.Date,
		Status:      domain.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	event := domain.UploadedEvent{
		DocumentID: doc.ID,
		MediaType:  doc.MediaType,
		UploadedAt: now,
	}
	if err := uc.queue.PublishDocumentUploaded(ctx, event); err != nil {
		// The record would otherwise hang in processing with no worker
		// ever picking it up.
		_ = uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusError, "queue publish failed: "+err.Error())
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, nil
}

func normalizeMediaType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return mediaType
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if strings.Trim(base, "._-") == "" {
		return "document.bin"
	}
	return base
}
