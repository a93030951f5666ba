package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo           ports.DocumentRepository
	storage        ports.ObjectStorage
	queue          ports.MessageQueue
	maxUploadBytes int64
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxUploadBytes int64,
) *IngestDocumentUseCase {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &IngestDocumentUseCase{
		repo:           repo,
		storage:        storage,
		queue:          queue,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload stores the original bytes, records the document in section and
// schedules its classification.
func (uc *IngestDocumentUseCase) Upload(ctx context.Context, section string, file domain.UploadedFile) (*domain.Document, error) {
	if len(file.Data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("missing file"))
	}
	if int64(len(file.Data)) > uc.maxUploadBytes {
		return nil, domain.WrapError(domain.ErrFileTooLarge, "upload document", fmt.Errorf("file is %d bytes, limit is %d", len(file.Data), uc.maxUploadBytes))
	}

	section = strings.TrimSpace(section)
	if section == "" {
		section = domain.DefaultSection
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s_%s", sanitizeSegment(section), id, sanitizeFilename(file.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(file.Data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Section:     section,
		Name:        file.Filename,
		MimeType:    file.MimeType,
		Size:        int64(len(file.Data)),
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := sanitizeSegment(filepath.Base(name))
	if base == "" || base == "." || base == "_" {
		return "document.bin"
	}
	return base
}

func sanitizeSegment(value string) string {
	value = strings.ReplaceAll(strings.TrimSpace(value), " ", "_")
	return strings.Map(func(r rune) rune {
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
	}, value)
}
