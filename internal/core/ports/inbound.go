package ports

import (
	"context"
	"io"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

// POAAnalyzer is the inbound contract for the extraction and analysis pipeline.
type POAAnalyzer interface {
	Classify(ctx context.Context, file domain.UploadedFile) (*domain.Classification, error)
	Analyze(ctx context.Context, file domain.UploadedFile, jurisdiction string) (*domain.Analysis, error)
}

// DocumentIngestor stores uploaded documents and schedules their classification.
type DocumentIngestor interface {
	Upload(ctx context.Context, section string, file domain.UploadedFile) (*domain.Document, error)
}

// DocumentReader is the inbound read model for stored documents.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	OpenFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error)
}

// DocumentManager mutates stored documents.
type DocumentManager interface {
	DocumentReader
	Delete(ctx context.Context, id string) error
	AnalyzeStored(ctx context.Context, id, jurisdiction string) (*domain.Analysis, error)
	Export(ctx context.Context, w io.Writer, filter domain.DocumentFilter) error
}

// DocumentProcessor is the inbound contract for asynchronous classification.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
