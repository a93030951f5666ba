package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
)

const defaultListLimit = 200

type DocumentService struct {
	repo     ports.DocumentRepository
	storage  ports.ObjectStorage
	analyzer ports.POAAnalyzer
	exporter ports.DocumentExporter
}

func NewDocumentService(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	analyzer ports.POAAnalyzer,
	exporter ports.DocumentExporter,
) *DocumentService {
	return &DocumentService{
		repo:     repo,
		storage:  storage,
		analyzer: analyzer,
		exporter: exporter,
	}
}

func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("document id is required"))
	}
	return s.repo.GetByID(ctx, id)
}

// List returns documents newest first.
func (s *DocumentService) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	filter.Section = strings.TrimSpace(filter.Section)
	if filter.Limit <= 0 || filter.Limit > defaultListLimit {
		filter.Limit = defaultListLimit
	}
	return s.repo.List(ctx, filter)
}

func (s *DocumentService) OpenFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	reader, err := s.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open source document: %w", err)
	}
	return doc, reader, nil
}

// Delete removes the row first; a stale object left behind is only logged.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
		slog.Warn("document_object_delete_failed", "document_id", id, "key", doc.StoragePath, "error", err.Error())
	}
	return nil
}

// AnalyzeStored runs the analysis pipeline over a stored document and
// persists the result with its jurisdiction.
func (s *DocumentService) AnalyzeStored(ctx context.Context, id, jurisdiction string) (*domain.Analysis, error) {
	jurisdiction = strings.TrimSpace(jurisdiction)
	if jurisdiction == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze stored document", errors.New("missing state"))
	}
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	file, err := loadStoredFile(ctx, s.storage, doc)
	if err != nil {
		return nil, err
	}

	analysis, err := s.analyzer.Analyze(ctx, file, jurisdiction)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	if err := s.repo.SaveAnalysis(ctx, id, jurisdiction, encoded); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	return analysis, nil
}

func (s *DocumentService) Export(ctx context.Context, w io.Writer, filter domain.DocumentFilter) error {
	docs, err := s.List(ctx, filter)
	if err != nil {
		return err
	}
	if err := s.exporter.Export(ctx, w, docs); err != nil {
		return fmt.Errorf("export documents: %w", err)
	}
	return nil
}
