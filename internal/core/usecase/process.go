package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
)

// ProcessDocumentUseCase classifies a stored document in the background and
// records the outcome on the document row.
type ProcessDocumentUseCase struct {
	repo     ports.DocumentRepository
	storage  ports.ObjectStorage
	analyzer ports.POAAnalyzer
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	analyzer ports.POAAnalyzer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:     repo,
		storage:  storage,
		analyzer: analyzer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	classification, err := uc.classifyStored(ctx, documentID)
	if err != nil {
		return uc.fail(ctx, documentID, err)
	}

	if err := uc.repo.SaveClassification(ctx, documentID, *classification); err != nil {
		return uc.fail(ctx, documentID, fmt.Errorf("save classification: %w", err))
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	slog.Info("document_classified", "document_id", documentID, "is_poa", classification.IsPOA, "confidence", classification.Confidence)
	return nil
}

func (uc *ProcessDocumentUseCase) classifyStored(ctx context.Context, documentID string) (*domain.Classification, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	file, err := loadStoredFile(ctx, uc.storage, doc)
	if err != nil {
		return nil, err
	}
	classification, err := uc.analyzer.Classify(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("classify document: %w", err)
	}
	return classification, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) fail(ctx context.Context, documentID string, processErr error) error {
	if failErr := uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error()); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, failErr)
	}
	return processErr
}

func loadStoredFile(ctx context.Context, storage ports.ObjectStorage, doc *domain.Document) (domain.UploadedFile, error) {
	reader, err := storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("read source document: %w", err)
	}
	return domain.NewUploadedFile(doc.Name, doc.MimeType, raw), nil
}
