package ports

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveClassification(ctx context.Context, id string, cls domain.Classification) error
	SaveAnalysis(ctx context.Context, id, jurisdiction string, analysis json.RawMessage) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes upload events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, file domain.UploadedFile) (domain.ExtractionResult, error)
}

// PDFDecoder reads the text layer of a PDF.
type PDFDecoder interface {
	Decode(ctx context.Context, data []byte) (domain.PDFText, error)
}

// ImageProcessor reads raster metadata and applies the OCR preprocessing chain.
type ImageProcessor interface {
	Metadata(data []byte) (domain.ImageMetadata, error)
	Transform(data []byte, opts domain.TransformOptions) ([]byte, error)
}

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte, language string, opts domain.OCROptions) (string, error)
}

// CompletionGateway sends a prompt pair to the generative model and returns raw content.
type CompletionGateway interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, task domain.AnalysisTask) (string, error)
}

// DocumentExporter renders stored documents into a downloadable report.
type DocumentExporter interface {
	Export(ctx context.Context, w io.Writer, docs []domain.Document) error
}

// PipelineObserver receives per-phase timings.
type PipelineObserver interface {
	ObserveExtraction(method domain.ExtractionMethod, duration time.Duration, err error)
	ObserveCompletion(task domain.TaskKind, duration time.Duration, err error)
}
