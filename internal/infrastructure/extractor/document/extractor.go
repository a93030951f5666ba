package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
)

const (
	DefaultMaxImageDimension = 1000
	DefaultOCRTimeout        = 12 * time.Second
	DefaultFallbackTimeout   = 8 * time.Second
)

var (
	primaryOCR  = domain.OCROptions{PageSegmentationMode: 6, EngineMode: 1}
	fallbackOCR = domain.OCROptions{PageSegmentationMode: 1, EngineMode: 1}
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
}

type Config struct {
	MaxImageDimension int
	Language          string
	OCRTimeout        time.Duration
	FallbackTimeout   time.Duration
}

// Extractor turns an uploaded PDF or image into plain text. PDFs are read from
// their text layer only; images go through preprocessing and OCR with a single
// segmentation-mode fallback.
type Extractor struct {
	pdf    ports.PDFDecoder
	images ports.ImageProcessor
	ocr    ports.OCREngine
	cfg    Config
}

func NewExtractor(pdf ports.PDFDecoder, images ports.ImageProcessor, ocr ports.OCREngine, cfg Config) *Extractor {
	if cfg.MaxImageDimension <= 0 {
		cfg.MaxImageDimension = DefaultMaxImageDimension
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = DefaultOCRTimeout
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = DefaultFallbackTimeout
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = "eng"
	}
	return &Extractor{pdf: pdf, images: images, ocr: ocr, cfg: cfg}
}

type kind int

const (
	kindUnsupported kind = iota
	kindPDF
	kindImage
)

func classify(file domain.UploadedFile) kind {
	mime := strings.ToLower(strings.TrimSpace(file.MimeType))
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if strings.Contains(mime, "pdf") || ext == ".pdf" {
		return kindPDF
	}
	if strings.HasPrefix(mime, "image/") {
		return kindImage
	}
	if _, ok := imageExtensions[ext]; ok {
		return kindImage
	}
	return kindUnsupported
}

func (e *Extractor) Extract(ctx context.Context, file domain.UploadedFile) (domain.ExtractionResult, error) {
	started := time.Now()

	var (
		result domain.ExtractionResult
		err    error
	)
	switch classify(file) {
	case kindPDF:
		result, err = e.extractPDF(ctx, file)
	case kindImage:
		result, err = e.extractImage(ctx, file)
	default:
		mime := file.MimeType
		if mime == "" {
			mime = "unknown"
		}
		return domain.ExtractionResult{}, domain.WrapError(
			domain.ErrUnsupportedType,
			"extract",
			fmt.Errorf("file must be a PDF or image (png, jpg, jpeg, gif, webp, bmp); received: %s", mime),
		)
	}
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	result.Text = strings.TrimSpace(result.Text)
	result.Duration = time.Since(started)
	if result.Text == "" {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrEmptyText, "extract", fmt.Errorf("method %s produced no text", result.Method))
	}

	slog.Info("extract_done",
		"method", result.Method,
		"filename", file.Filename,
		"chars", len([]rune(result.Text)),
		"pages", result.Pages,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (e *Extractor) extractPDF(ctx context.Context, file domain.UploadedFile) (domain.ExtractionResult, error) {
	decoded, err := e.pdf.Decode(ctx, file.Data)
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrPDFParse, "extract pdf", err)
	}
	return domain.ExtractionResult{
		Text:   decoded.Text,
		Method: domain.MethodPDFText,
		Pages:  decoded.Pages,
	}, nil
}

func (e *Extractor) extractImage(ctx context.Context, file domain.UploadedFile) (domain.ExtractionResult, error) {
	meta, err := e.images.Metadata(file.Data)
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrOCR, "extract image", err)
	}

	prepared, err := e.images.Transform(file.Data, domain.TransformOptions{
		MaxDimension: e.cfg.MaxImageDimension,
		Grayscale:    true,
		Normalize:    true,
		Sharpen:      1,
	})
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrOCR, "extract image", err)
	}
	slog.Debug("image_prepared",
		"filename", file.Filename,
		"format", meta.Format,
		"width", meta.Width,
		"height", meta.Height,
		"bytes", len(prepared),
	)

	text, err := e.recognize(ctx, prepared, primaryOCR, e.cfg.OCRTimeout)
	if err != nil {
		return domain.ExtractionResult{}, ocrError(err)
	}
	if strings.TrimSpace(text) != "" {
		return domain.ExtractionResult{Text: text, Method: domain.MethodImageOCR, Pages: 1}, nil
	}

	slog.Info("ocr_fallback", "filename", file.Filename, "psm", fallbackOCR.PageSegmentationMode)
	text, err = e.recognize(ctx, prepared, fallbackOCR, e.cfg.FallbackTimeout)
	if err != nil {
		return domain.ExtractionResult{}, ocrError(err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrOCR, "extract image", errors.New("no text recognized"))
	}
	return domain.ExtractionResult{Text: text, Method: domain.MethodImageOCRFallback, Pages: 1}, nil
}

func (e *Extractor) recognize(ctx context.Context, image []byte, opts domain.OCROptions, timeout time.Duration) (string, error) {
	ocrCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.ocr.Recognize(ocrCtx, image, e.cfg.Language, opts)
}

func ocrError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrOCR, "extract image", fmt.Errorf("ocr timed out: %w", err))
	}
	return domain.WrapError(domain.ErrOCR, "extract image", err)
}
