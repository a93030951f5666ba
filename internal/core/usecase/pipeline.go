package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/core/normalize"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
	"github.com/kirillkom/poa-analyzer/internal/core/prompt"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	DefaultRequestTimeout = 55 * time.Second
)

type PipelineConfig struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// AnalysisPipeline runs extract, prompt, complete and normalize for one
// uploaded file. The same pipeline serves classification and analysis; the
// task selects the prompt, the gateway parameters and the result schema.
type AnalysisPipeline struct {
	extractor ports.TextExtractor
	gateway   ports.CompletionGateway
	observer  ports.PipelineObserver
	cfg       PipelineConfig
}

func NewAnalysisPipeline(
	extractor ports.TextExtractor,
	gateway ports.CompletionGateway,
	observer ports.PipelineObserver,
	cfg PipelineConfig,
) *AnalysisPipeline {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &AnalysisPipeline{
		extractor: extractor,
		gateway:   gateway,
		observer:  observer,
		cfg:       cfg,
	}
}

func (p *AnalysisPipeline) Classify(ctx context.Context, file domain.UploadedFile) (*domain.Classification, error) {
	raw, err := p.run(ctx, file, domain.ClassifyTask())
	if err != nil {
		return nil, err
	}
	cls, err := normalize.Classification(raw)
	if err != nil {
		slog.Warn("completion_malformed", "task", domain.TaskClassify, "error", err.Error())
		return nil, err
	}
	return cls, nil
}

func (p *AnalysisPipeline) Analyze(ctx context.Context, file domain.UploadedFile, jurisdiction string) (*domain.Analysis, error) {
	raw, err := p.run(ctx, file, domain.AnalyzeTask(jurisdiction))
	if err != nil {
		return nil, err
	}
	analysis, err := normalize.Analysis(raw)
	if err != nil {
		slog.Warn("completion_malformed", "task", domain.TaskAnalyze, "error", err.Error())
		return nil, err
	}
	return analysis, nil
}

func (p *AnalysisPipeline) run(ctx context.Context, file domain.UploadedFile, task domain.AnalysisTask) (string, error) {
	if err := task.Validate(); err != nil {
		return "", err
	}
	if err := p.checkFile(file); err != nil {
		return "", err
	}

	budgetCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	extracted, err := p.extract(budgetCtx, file)
	if err != nil {
		return "", p.budgetError(budgetCtx, "extract", err)
	}

	pair := prompt.Build(task, extracted.Text)

	started := time.Now()
	raw, err := p.gateway.Complete(budgetCtx, pair.System, pair.User, task)
	p.observer.ObserveCompletion(task.Kind, time.Since(started), err)
	if err != nil {
		return "", p.budgetError(budgetCtx, "complete", err)
	}
	return raw, nil
}

func (p *AnalysisPipeline) checkFile(file domain.UploadedFile) error {
	size := file.Size
	if size < int64(len(file.Data)) {
		size = int64(len(file.Data))
	}
	if size == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "check file", errors.New("missing file"))
	}
	if size > p.cfg.MaxUploadBytes {
		return domain.WrapError(domain.ErrFileTooLarge, "check file", fmt.Errorf("file is %d bytes, limit is %d", size, p.cfg.MaxUploadBytes))
	}
	return nil
}

func (p *AnalysisPipeline) extract(ctx context.Context, file domain.UploadedFile) (domain.ExtractionResult, error) {
	started := time.Now()
	result, err := p.extractor.Extract(ctx, file)
	if err != nil {
		p.observer.ObserveExtraction("", time.Since(started), err)
		return domain.ExtractionResult{}, err
	}
	p.observer.ObserveExtraction(result.Method, result.Duration, nil)
	return result, nil
}

// budgetError reports the overall request deadline as a timeout regardless
// of which phase was running when it fired.
func (p *AnalysisPipeline) budgetError(ctx context.Context, phase string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTimeout, "analysis pipeline", fmt.Errorf("%s exceeded request budget of %s: %w", phase, p.cfg.RequestTimeout, context.DeadlineExceeded))
	}
	return err
}

type noopObserver struct{}

func (noopObserver) ObserveExtraction(domain.ExtractionMethod, time.Duration, error) {}
func (noopObserver) ObserveCompletion(domain.TaskKind, time.Duration, error)         {}
